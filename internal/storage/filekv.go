/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	applog "gopdfreader/internal/log"
)

const (
	BackupsDirName = "backups"
	// KeepBackups is how many timestamped backups are kept per key.
	KeepBackups = 5
)

// FileKV stores each key as <dir>/<key>.json. Writes go to a temp file that is
// synced and renamed over the target; the previous value is copied into
// <dir>/backups first. Reads fall back to the newest backup that passes the
// validator when the current file is unreadable or fails it.
type FileKV struct {
	dir   string
	mu    sync.Mutex
	now   func() time.Time
	valid func([]byte) error
}

// NewFileKV creates dir if needed.
func NewFileKV(dir string) (*FileKV, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("data dir is required")
	}
	if err := os.MkdirAll(filepath.Join(dir, BackupsDirName), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileKV{dir: dir, now: time.Now, valid: validJSON}, nil
}

func validJSON(b []byte) error {
	if !json.Valid(b) {
		return errors.New("invalid JSON")
	}
	return nil
}

// SetValidator replaces the JSON syntax check used to decide whether the
// current value or a backup is usable.
func (f *FileKV) SetValidator(fn func([]byte) error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if fn == nil {
		fn = validJSON
	}
	f.valid = fn
}

// Path returns the file a key is stored in.
func (f *FileKV) Path(key string) string { return filepath.Join(f.dir, sanitizeKey(key)+".json") }

func sanitizeKey(key string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, key)
}

func (f *FileKV) ReadAll(key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l := applog.WithOperation(applog.WithComponent("storage"), "file_read").With(slog.String("key", key))
	b, err := os.ReadFile(f.Path(key))
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	var verr error
	if err == nil {
		if verr = f.valid(b); verr == nil {
			return string(b), true, nil
		}
	}
	// unreadable or invalid: try backups before giving up
	bak, berr := f.latestValidBackup(key)
	if berr != nil {
		if err == nil {
			// invalid content is passed through; the caller decides what malformed means
			return string(b), true, nil
		}
		return "", false, fmt.Errorf("read %s: %w; backup attempt: %v", key, err, berr)
	}
	if err == nil {
		err = verr
	}
	l.Warn("current value unusable, using latest backup", slog.Any("err", err))
	return bak, true, nil
}

func (f *FileKV) WriteAll(key, raw string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	target := f.Path(key)
	bdir := filepath.Join(f.dir, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return fmt.Errorf("ensure backups dir: %w", err)
	}
	if _, statErr := os.Stat(target); statErr == nil {
		stamp := f.now().Format("20060102-150405.000")
		bpath := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(target), stamp))
		if err := copyFile(target, bpath); err != nil {
			return fmt.Errorf("backup current value: %w", err)
		}
		f.pruneBackups(filepath.Base(target))
	}
	temp := filepath.Join(f.dir, fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(target), os.Getpid(), rand.Int()))
	if err := writeFileSync(temp, []byte(raw)); err != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("write temp value: %w", err)
	}
	if err := os.Rename(temp, target); err != nil {
		// Windows cannot rename over an existing file in every case
		_ = os.Remove(target)
		if err2 := os.Rename(temp, target); err2 != nil {
			_ = os.Remove(temp)
			return fmt.Errorf("replace value: %w", err2)
		}
	}
	return nil
}

func (f *FileKV) Close() error { return nil }

func (f *FileKV) backups(base string) []string {
	bdir := filepath.Join(f.dir, BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, base+".") && strings.HasSuffix(name, ".bak") {
			out = append(out, filepath.Join(bdir, name))
		}
	}
	sort.Strings(out) // timestamp in name yields lexicographic order
	return out
}

func (f *FileKV) pruneBackups(base string) {
	all := f.backups(base)
	for len(all) > KeepBackups {
		_ = os.Remove(all[0])
		all = all[1:]
	}
}

func (f *FileKV) latestValidBackup(key string) (string, error) {
	all := f.backups(filepath.Base(f.Path(key)))
	if len(all) == 0 {
		return "", errors.New("no backups found")
	}
	for i := len(all) - 1; i >= 0; i-- {
		b, err := os.ReadFile(all[i])
		if err == nil && f.valid(b) == nil {
			return string(b), nil
		}
	}
	return "", errors.New("no readable backup")
}

// writeFileSync writes data to a file and flushes it to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// copyFile copies a file from src to dst (overwrites dst if exists).
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}
