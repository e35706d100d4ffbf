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
	"fmt"
	"io"
	"log/slog"

	applog "gopdfreader/internal/log"
)

// KV is the key-value contract shared by every backend.
type KV interface {
	ReadAll(key string) (raw string, ok bool, err error)
	WriteAll(key, raw string) error
	io.Closer
}

// Backend names accepted by Open.
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Options select and configure a backend.
type Options struct {
	Backend     string
	DataDir     string
	PostgresDSN string
	Password    string
	// Index is reused by the sqlite backend when set.
	Index *Index
	// Validate decides which file backend values and backups are usable;
	// nil accepts any valid JSON.
	Validate func([]byte) error
}

// Open returns the KV for opts.Backend. Closing it releases only what Open created.
func Open(ctx context.Context, opts Options) (KV, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "open").With(slog.String("backend", opts.Backend))
	var (
		kv  KV
		err error
	)
	switch opts.Backend {
	case "", BackendFile:
		var f *FileKV
		f, err = NewFileKV(opts.DataDir)
		if err == nil {
			f.SetValidator(opts.Validate)
			kv = f
		}
	case BackendSQLite:
		if opts.Index != nil {
			kv = NewSQLiteKV(opts.Index)
			break
		}
		var idx *Index
		idx, err = OpenIndex(opts.DataDir)
		if err == nil {
			s := NewSQLiteKV(idx)
			s.owned = true
			kv = s
		}
	case BackendPostgres:
		kv, err = OpenPostgresKV(ctx, opts.PostgresDSN, opts.Password)
	case BackendMemory:
		kv = NewMemoryKV()
	default:
		return nil, fmt.Errorf("unknown library backend %q", opts.Backend)
	}
	if err != nil {
		l.Error("open backend failed", slog.Any("err", err))
		return nil, err
	}
	l.Debug("backend ready")
	return kv, nil
}
