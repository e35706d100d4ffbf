/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileKVMissingKeyIsNotAnError(t *testing.T) {
	kv, err := NewFileKV(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileKV: %v", err)
	}
	v, ok, err := kv.ReadAll("pdfLibrary")
	if err != nil || ok || v != "" {
		t.Fatalf("ReadAll on empty dir = %q, %v, %v", v, ok, err)
	}
}

func TestFileKVWriteReadAndBackup(t *testing.T) {
	dir := t.TempDir()
	kv, err := NewFileKV(dir)
	if err != nil {
		t.Fatalf("NewFileKV: %v", err)
	}
	if err := kv.WriteAll("pdfLibrary", `[]`); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := kv.WriteAll("pdfLibrary", `[{"id":1}]`); err != nil {
		t.Fatalf("second write: %v", err)
	}
	v, ok, err := kv.ReadAll("pdfLibrary")
	if err != nil || !ok || v != `[{"id":1}]` {
		t.Fatalf("ReadAll = %q, %v, %v", v, ok, err)
	}
	baks := kv.backups(filepath.Base(kv.Path("pdfLibrary")))
	if len(baks) != 1 {
		t.Fatalf("expected one backup of the first value, got %d", len(baks))
	}
	b, _ := os.ReadFile(baks[0])
	if string(b) != `[]` {
		t.Fatalf("backup content = %q", b)
	}
	// no temp files left behind
	ents, _ := os.ReadDir(dir)
	for _, e := range ents {
		if filepath.Ext(e.Name()) != ".json" && e.Name() != BackupsDirName {
			t.Fatalf("unexpected file %s", e.Name())
		}
	}
}

func TestFileKVPrunesOldBackups(t *testing.T) {
	kv, err := NewFileKV(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileKV: %v", err)
	}
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	n := 0
	kv.now = func() time.Time { n++; return base.Add(time.Duration(n) * time.Second) }
	for i := 0; i < KeepBackups+4; i++ {
		if err := kv.WriteAll("k", fmt.Sprintf(`{"n":%d}`, i)); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}
	if got := len(kv.backups("k.json")); got != KeepBackups {
		t.Fatalf("backups = %d, want %d", got, KeepBackups)
	}
}

func TestFileKVFallsBackToLatestValidBackup(t *testing.T) {
	kv, err := NewFileKV(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileKV: %v", err)
	}
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	n := 0
	kv.now = func() time.Time { n++; return base.Add(time.Duration(n) * time.Second) }
	_ = kv.WriteAll("k", `["a"]`)
	_ = kv.WriteAll("k", `["a","b"]`)
	_ = kv.WriteAll("k", `["a","b","c"]`)
	// truncate the current value mid-write
	if err := os.WriteFile(kv.Path("k"), []byte(`["a","b`), 0o644); err != nil {
		t.Fatal(err)
	}
	v, ok, err := kv.ReadAll("k")
	if err != nil || !ok {
		t.Fatalf("ReadAll: %v %v", ok, err)
	}
	if v != `["a","b"]` {
		t.Fatalf("fallback value = %q, want the newest backup", v)
	}
}

func TestFileKVPassesCorruptValueThroughWithoutBackups(t *testing.T) {
	kv, err := NewFileKV(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileKV: %v", err)
	}
	if err := os.WriteFile(kv.Path("k"), []byte(`garbage`), 0o644); err != nil {
		t.Fatal(err)
	}
	v, ok, err := kv.ReadAll("k")
	if err != nil || !ok || v != "garbage" {
		t.Fatalf("ReadAll = %q, %v, %v", v, ok, err)
	}
}

func TestFileKVSanitizesKeys(t *testing.T) {
	kv, err := NewFileKV(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileKV: %v", err)
	}
	if got := filepath.Base(kv.Path("../etc/passwd")); got != ".._etc_passwd.json" {
		t.Fatalf("Path = %q", got)
	}
}

func TestFileKVValidatorAppliesToCurrentValueAndBackups(t *testing.T) {
	kv, err := NewFileKV(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileKV: %v", err)
	}
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	n := 0
	kv.now = func() time.Time { n++; return base.Add(time.Duration(n) * time.Second) }
	// only arrays count as usable
	kv.SetValidator(func(b []byte) error {
		if len(b) == 0 || b[0] != '[' {
			return fmt.Errorf("not an array: %s", b)
		}
		return nil
	})
	_ = kv.WriteAll("k", `["a"]`)
	_ = kv.WriteAll("k", `{"broken":true}`)
	_ = kv.WriteAll("k", `{"still":"broken"}`)
	v, ok, err := kv.ReadAll("k")
	if err != nil || !ok {
		t.Fatalf("ReadAll: %v %v", ok, err)
	}
	if v != `["a"]` {
		t.Fatalf("value = %q, want the newest backup passing the validator", v)
	}
}

func TestFileKVPassesInvalidValueThroughWhenNoBackupPasses(t *testing.T) {
	kv, err := NewFileKV(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileKV: %v", err)
	}
	kv.SetValidator(func([]byte) error { return fmt.Errorf("never usable") })
	if err := kv.WriteAll("k", `{"a":1}`); err != nil {
		t.Fatal(err)
	}
	v, ok, err := kv.ReadAll("k")
	if err != nil || !ok || v != `{"a":1}` {
		t.Fatalf("ReadAll = %q, %v, %v", v, ok, err)
	}
}
