//go:build fyne

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"image"
	"testing"
	"time"

	"fyne.io/fyne/v2/test"

	"gopdfreader/internal/library"
	"gopdfreader/internal/reader"
)

func TestPrefsKVBacksCatalog(t *testing.T) {
	a := test.NewTempApp(t)
	kv := NewPrefsKV(a.Preferences())
	if _, ok, err := kv.ReadAll(library.StorageKey); ok || err != nil {
		t.Fatalf("fresh preferences: ok=%v err=%v", ok, err)
	}
	cat := library.Load(kv)
	if _, err := cat.Add("https://example.com/a.pdf"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	again := library.Load(NewPrefsKV(a.Preferences()))
	if again.Len() != 1 {
		t.Fatalf("reloaded catalog has %d entries, want 1", again.Len())
	}
}

func TestPageViewLaysOutAtPixelSize(t *testing.T) {
	test.NewTempApp(t)
	pv := NewPageView()
	r := pv.CreateRenderer()
	if s := r.MinSize(); s.Width != 16 || s.Height != 16 {
		t.Fatalf("empty page min size = %v", s)
	}
	pv.SetPage(image.NewRGBA(image.Rect(0, 0, 200, 300)), 4)
	if pv.Page() != 4 {
		t.Fatalf("Page() = %d", pv.Page())
	}
	if s := r.MinSize(); s.Width != 216 || s.Height != 316 {
		t.Fatalf("min size = %v, want 216x316", s)
	}
}

func TestPageViewStopFlipRestoresPage(t *testing.T) {
	test.NewTempApp(t)
	pv := NewPageView()
	pv.StartFlip(reader.Next, 0)
	if pv.anim != nil {
		t.Fatalf("zero duration must not animate")
	}
	pv.StartFlip(reader.Prev, time.Second)
	pv.StopFlip()
	if pv.fold != 1 || pv.dir != reader.NoDirection || pv.anim != nil {
		t.Fatalf("after StopFlip fold=%v dir=%v anim=%v", pv.fold, pv.dir, pv.anim)
	}
}
