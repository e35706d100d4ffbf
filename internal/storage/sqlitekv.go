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
	"time"
)

// SQLiteKV stores values in the kv table of an Index.
type SQLiteKV struct {
	idx     *Index
	timeout time.Duration
	owned   bool
}

// NewSQLiteKV uses idx without taking ownership; Close leaves it open.
func NewSQLiteKV(idx *Index) *SQLiteKV { return &SQLiteKV{idx: idx, timeout: 5 * time.Second} }

func (s *SQLiteKV) ReadAll(key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	var v string
	err := s.idx.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key=?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read kv %s: %w", key, err)
	}
	return v, true, nil
}

func (s *SQLiteKV) WriteAll(key, raw string) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	_, err := s.idx.db.ExecContext(ctx, `INSERT INTO kv(key, value, updated_at) VALUES(?,?,?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
		key, raw, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("write kv %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteKV) Close() error {
	if s.owned {
		return s.idx.Close()
	}
	return nil
}
