/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package tui

import (
	"context"
	"errors"
	"image"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"gopdfreader/internal/engine"
	"gopdfreader/internal/library"
	"gopdfreader/internal/storage"
)

type stubDoc struct{ info engine.Info }

func (d stubDoc) PageCount() int { return d.info.Pages }
func (d stubDoc) RenderPage(context.Context, int, float64) (image.Image, error) {
	return nil, engine.ErrRenderUnavailable
}
func (d stubDoc) Info() engine.Info { return d.info }
func (d stubDoc) Close() error      { return nil }

type stubEngine map[string]engine.Info

func (s stubEngine) Open(_ context.Context, locator string) (engine.Document, error) {
	info, ok := s[locator]
	if !ok {
		return nil, errors.New("no such document")
	}
	return stubDoc{info: info}, nil
}

func newModel(t *testing.T, eng stubEngine, locators ...string) (Model, *library.Catalog) {
	t.Helper()
	cat := library.Load(storage.NewMemoryKV())
	for _, loc := range locators {
		if _, err := cat.Add(loc); err != nil {
			t.Fatalf("seed %s: %v", loc, err)
		}
	}
	m := New(Options{Catalog: cat, Engine: eng})
	return step(t, m, tea.WindowSizeMsg{Width: 100, Height: 30}), cat
}

// step feeds msg to m. Enter produces the open command, which is run once
// and its result fed back; other commands such as cursor blinks are dropped.
func step(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, cmd := m.Update(msg)
	m = next.(Model)
	if k, ok := msg.(tea.KeyMsg); !ok || k.Type != tea.KeyEnter || cmd == nil {
		return m
	}
	switch out := cmd().(type) {
	case addedMsg, detailMsg:
		next, _ = m.Update(out)
		m = next.(Model)
	}
	return m
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func TestAddRecordsOnlyLoadableDocuments(t *testing.T) {
	m, cat := newModel(t, stubEngine{"/tmp/ok.pdf": {Pages: 3}})
	m = step(t, m, runes("a"))
	if m.mode != modeAdd {
		t.Fatalf("mode = %v after a, want add", m.mode)
	}
	m = step(t, m, runes("/tmp/ok.pdf"))
	m = step(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if cat.Len() != 1 {
		t.Fatalf("catalog has %d entries, want 1", cat.Len())
	}
	if len(m.list.Items()) != 1 || !strings.Contains(m.status, "Added") {
		t.Fatalf("list=%d status=%q", len(m.list.Items()), m.status)
	}

	m = step(t, m, runes("a"))
	m = step(t, m, runes("/tmp/missing.pdf"))
	m = step(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if cat.Len() != 1 {
		t.Fatalf("failed load was recorded")
	}
	if m.err == nil || !strings.Contains(m.View(), "could not load") {
		t.Fatalf("error not shown: err=%v", m.err)
	}
}

func TestEscCancelsAdd(t *testing.T) {
	m, cat := newModel(t, stubEngine{"x.pdf": {Pages: 1}})
	m = step(t, m, runes("a"))
	m = step(t, m, runes("x.pdf"))
	m = step(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.mode != modeList || cat.Len() != 0 {
		t.Fatalf("esc did not cancel: mode=%v len=%d", m.mode, cat.Len())
	}
}

func TestDeleteRemovesSelectedEntry(t *testing.T) {
	m, cat := newModel(t, stubEngine{}, "a.pdf", "b.pdf")
	// newest first, so b.pdf is selected
	m = step(t, m, runes("d"))
	if cat.Len() != 1 {
		t.Fatalf("catalog has %d entries, want 1", cat.Len())
	}
	if _, ok := cat.FindByLocator("b.pdf"); ok {
		t.Fatalf("wrong entry removed")
	}
	if len(m.list.Items()) != 1 {
		t.Fatalf("list not refreshed: %d items", len(m.list.Items()))
	}
}

func TestDetailsShowDocumentInfo(t *testing.T) {
	m, _ := newModel(t, stubEngine{"a.pdf": {Pages: 12, Author: "Ada", Version: "1.7"}}, "a.pdf")
	m = step(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.mode != modeDetail {
		t.Fatalf("mode = %v, want detail (err=%v)", m.mode, m.err)
	}
	v := m.View()
	for _, want := range []string{"12", "Ada", "1.7", "Document 1"} {
		if !strings.Contains(v, want) {
			t.Fatalf("detail view missing %q:\n%s", want, v)
		}
	}
	m = step(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.mode != modeList {
		t.Fatalf("esc did not return to the list")
	}
}

func TestQuitKey(t *testing.T) {
	m, _ := newModel(t, stubEngine{})
	_, cmd := m.Update(runes("q"))
	if cmd == nil {
		t.Fatalf("q returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("q did not quit")
	}
}

func TestDeleteGoesThroughRemoveHook(t *testing.T) {
	cat := library.Load(storage.NewMemoryKV())
	e, err := cat.Add("a.pdf")
	if err != nil {
		t.Fatal(err)
	}
	thumbs := map[int64]bool{e.ID: true}
	m := New(Options{
		Catalog: cat,
		Engine:  stubEngine{},
		Remove: func(_ context.Context, id int64) error {
			delete(thumbs, id)
			return cat.Remove(id)
		},
	})
	m = step(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
	m = step(t, m, runes("d"))
	if cat.Len() != 0 || len(thumbs) != 0 {
		t.Fatalf("entry or cached thumbnail left: len=%d thumbs=%v", cat.Len(), thumbs)
	}
	if !strings.Contains(m.status, "Removed") {
		t.Fatalf("status = %q", m.status)
	}
}

func TestAddGoesThroughAddHook(t *testing.T) {
	cat := library.Load(storage.NewMemoryKV())
	var got string
	m := New(Options{
		Catalog: cat,
		Engine:  stubEngine{},
		Add: func(_ context.Context, locator string) (library.Entry, error) {
			got = locator
			return cat.Add(locator)
		},
	})
	m = step(t, m, runes("a"))
	m = step(t, m, runes("https://x/doc.pdf"))
	m = step(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if got != "https://x/doc.pdf" || cat.Len() != 1 {
		t.Fatalf("add hook got %q, catalog len %d", got, cat.Len())
	}
}
