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
	"os"
	"testing"
	"time"
)

func TestOpenSelectsBackend(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	for _, name := range []string{"", BackendFile, BackendSQLite, BackendMemory} {
		kv, err := Open(ctx, Options{Backend: name, DataDir: dir})
		if err != nil {
			t.Fatalf("Open(%q): %v", name, err)
		}
		if err := kv.WriteAll("k", `{"b":"`+name+`"}`); err != nil {
			t.Fatalf("%q WriteAll: %v", name, err)
		}
		if v, ok, err := kv.ReadAll("k"); err != nil || !ok || v != `{"b":"`+name+`"}` {
			t.Fatalf("%q ReadAll = %q %v %v", name, v, ok, err)
		}
		if err := kv.Close(); err != nil {
			t.Fatalf("%q Close: %v", name, err)
		}
	}
	if _, err := Open(ctx, Options{Backend: "redis"}); err == nil {
		t.Fatalf("unknown backend accepted")
	}
	if _, err := Open(ctx, Options{Backend: BackendPostgres}); err == nil {
		t.Fatalf("postgres without dsn accepted")
	}
}

// TestPostgresKVIntegration runs against a real server when GPR_TEST_PG_DSN is set.
func TestPostgresKVIntegration(t *testing.T) {
	dsn := os.Getenv("GPR_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("GPR_TEST_PG_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	kv, err := OpenPostgresKV(ctx, dsn, "")
	if err != nil {
		t.Fatalf("OpenPostgresKV: %v", err)
	}
	defer kv.Close()
	key := "test-" + time.Now().Format("150405.000000")
	if _, ok, err := kv.ReadAll(key); ok || err != nil {
		t.Fatalf("fresh key: %v %v", ok, err)
	}
	if err := kv.WriteAll(key, `[1]`); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
	if err := kv.WriteAll(key, `[1,2]`); err != nil {
		t.Fatalf("WriteAll upsert: %v", err)
	}
	if v, ok, err := kv.ReadAll(key); err != nil || !ok || v != `[1,2]` {
		t.Fatalf("ReadAll = %q %v %v", v, ok, err)
	}
	// migrations are idempotent
	if err := applyMigrations(ctx, kv.db); err != nil {
		t.Fatalf("re-apply migrations: %v", err)
	}
}

func TestParseMigrationVersion(t *testing.T) {
	if v, err := parseMigrationVersion("migrations/0002_library_kv_host.sql"); err != nil || v != 2 {
		t.Fatalf("parse = %d %v", v, err)
	}
	if _, err := parseMigrationVersion("nounderscore.sql"); err == nil {
		t.Fatalf("expected error for malformed name")
	}
}
