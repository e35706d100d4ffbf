/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultThumbnailBytes caps the thumbnail cache when no limit is configured.
const DefaultThumbnailBytes = 64 << 20

// Thumbnails is an LRU cache of first-page PNG thumbnails keyed by library
// entry id and width. Rows beyond the byte cap are evicted oldest access first.
type Thumbnails struct {
	idx      *Index
	maxBytes int64
}

func NewThumbnails(idx *Index, maxBytes int64) *Thumbnails {
	if maxBytes <= 0 {
		maxBytes = DefaultThumbnailBytes
	}
	return &Thumbnails{idx: idx, maxBytes: maxBytes}
}

// accessStamp sorts lexicographically in time order.
func accessStamp() string { return time.Now().UTC().Format("2006-01-02T15:04:05.000000000Z") }

// Get returns the PNG bytes for (entryID, w), or nil when absent, and marks the row as used.
func (t *Thumbnails) Get(ctx context.Context, entryID int64, w int) ([]byte, error) {
	var blob []byte
	err := t.idx.db.QueryRowContext(ctx, `SELECT png FROM thumbnails WHERE entry_id=? AND w=?`, entryID, w).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query thumbnail: %w", err)
	}
	_, _ = t.idx.db.ExecContext(ctx, `UPDATE thumbnails SET last_access=? WHERE entry_id=? AND w=?`, accessStamp(), entryID, w)
	return blob, nil
}

// Put upserts a thumbnail and enforces the cache size cap.
func (t *Thumbnails) Put(ctx context.Context, entryID int64, w, h int, png []byte) error {
	if len(png) == 0 {
		return errors.New("empty thumbnail")
	}
	now := accessStamp()
	_, err := t.idx.db.ExecContext(ctx, `INSERT INTO thumbnails(entry_id,w,h,png,size,updated_at,last_access)
		VALUES(?,?,?,?,?,?,?)
		ON CONFLICT(entry_id,w) DO UPDATE SET h=excluded.h, png=excluded.png, size=excluded.size, updated_at=excluded.updated_at, last_access=excluded.last_access`,
		entryID, w, h, png, len(png), now, now)
	if err != nil {
		return fmt.Errorf("upsert thumbnail: %w", err)
	}
	return t.evictToFit(ctx)
}

// GetOrCreate returns a cached thumbnail or stores the one produced by gen.
func (t *Thumbnails) GetOrCreate(ctx context.Context, entryID int64, w int, gen func(context.Context) (png []byte, h int, err error)) ([]byte, error) {
	if b, err := t.Get(ctx, entryID, w); err != nil || b != nil {
		return b, err
	}
	png, h, err := gen(ctx)
	if err != nil {
		return nil, err
	}
	if err := t.Put(ctx, entryID, w, h, png); err != nil {
		return nil, err
	}
	return png, nil
}

// Remove drops every size of an entry's thumbnail.
func (t *Thumbnails) Remove(ctx context.Context, entryID int64) error {
	if _, err := t.idx.db.ExecContext(ctx, `DELETE FROM thumbnails WHERE entry_id=?`, entryID); err != nil {
		return fmt.Errorf("delete thumbnail: %w", err)
	}
	return nil
}

// TotalBytes returns the bytes tracked by thumbnails.size.
func (t *Thumbnails) TotalBytes(ctx context.Context) (int64, error) {
	var total int64
	err := t.idx.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(size),0) FROM thumbnails`).Scan(&total)
	return total, err
}

// evictToFit deletes least-recently-used rows until total size <= maxBytes.
func (t *Thumbnails) evictToFit(ctx context.Context) error {
	total, err := t.TotalBytes(ctx)
	if err != nil {
		return fmt.Errorf("sum thumbnail size: %w", err)
	}
	if total <= t.maxBytes {
		return nil
	}
	rows, err := t.idx.db.QueryContext(ctx, `SELECT entry_id, w, size FROM thumbnails ORDER BY
		CASE WHEN last_access IS NULL THEN 0 ELSE 1 END ASC, last_access ASC`)
	if err != nil {
		return fmt.Errorf("select victims: %w", err)
	}
	type key struct {
		id int64
		w  int
	}
	var victims []key
	cur := total
	for rows.Next() {
		var k key
		var sz int64
		if err := rows.Scan(&k.id, &k.w, &sz); err != nil {
			_ = rows.Close()
			return err
		}
		victims = append(victims, k)
		cur -= sz
		if cur <= t.maxBytes {
			break
		}
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	// single connection: the cursor must be closed before writing
	if err := rows.Close(); err != nil {
		return err
	}
	if len(victims) == 0 {
		return nil
	}
	conds := make([]string, len(victims))
	args := make([]any, 0, 2*len(victims))
	for i, v := range victims {
		conds[i] = "(entry_id=? AND w=?)"
		args = append(args, v.id, v.w)
	}
	if _, err := t.idx.db.ExecContext(ctx, `DELETE FROM thumbnails WHERE `+strings.Join(conds, " OR "), args...); err != nil {
		return fmt.Errorf("evict delete: %w", err)
	}
	return nil
}
