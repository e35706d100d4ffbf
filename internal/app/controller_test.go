/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package app

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"gopdfreader/internal/engine"
	"gopdfreader/internal/library"
	"gopdfreader/internal/reader"
	"gopdfreader/internal/storage"
	"gopdfreader/internal/telemetry"
)

type stubDoc struct {
	pages    int
	failPage int
}

func (d *stubDoc) PageCount() int     { return d.pages }
func (d *stubDoc) Info() engine.Info { return engine.Info{Pages: d.pages} }
func (d *stubDoc) Close() error       { return nil }
func (d *stubDoc) RenderPage(_ context.Context, page int, scale float64) (image.Image, error) {
	if page == d.failPage {
		return nil, errors.New("render failed")
	}
	return image.NewRGBA(image.Rect(0, 0, int(400*scale), int(600*scale))), nil
}

type stubEngine map[string]*stubDoc

func (e stubEngine) Open(_ context.Context, locator string) (engine.Document, error) {
	if d, ok := e[locator]; ok {
		return d, nil
	}
	return nil, errors.New("404")
}

type events struct {
	mu    sync.Mutex
	names []string
}

func (e *events) Event(name string, _ map[string]any) {
	e.mu.Lock()
	e.names = append(e.names, name)
	e.mu.Unlock()
}

func (e *events) has(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, n := range e.names {
		if n == name {
			return true
		}
	}
	return false
}

var _ telemetry.Sink = (*events)(nil)

func newController(t *testing.T, eng stubEngine) (*Controller, *events, *storage.Thumbnails) {
	t.Helper()
	idx, err := storage.OpenIndex(t.TempDir())
	if err != nil {
		t.Fatalf("OpenIndex: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	thumbs := storage.NewThumbnails(idx, 0)
	ev := &events{}
	c := New(Options{
		Engine:     eng,
		Catalog:    library.Load(storage.NewMemoryKV()),
		FlipDelay:  time.Millisecond,
		Thumbnails: thumbs,
		Telemetry:  ev,
	})
	t.Cleanup(c.Close)
	return c, ev, thumbs
}

func TestSubmitBlankIsNoop(t *testing.T) {
	c, _, _ := newController(t, stubEngine{})
	c.SetInput("   ")
	if err := c.Submit(context.Background()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if vm := c.View(); vm.Screen != reader.ViewHome || len(vm.Entries) != 0 || vm.Notice != "" {
		t.Fatalf("view = %#v", vm)
	}
}

func TestSubmitOpensAndDerivesLabels(t *testing.T) {
	c, ev, thumbs := newController(t, stubEngine{"http://x/doc.pdf": {pages: 10}})
	changes := 0
	c.OnChange(func() { changes++ })
	c.SetInput("  http://x/doc.pdf ")
	if err := c.Submit(context.Background()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	vm := c.View()
	if vm.Screen != reader.ViewReader || vm.Input != "" || vm.Busy {
		t.Fatalf("view = %#v", vm)
	}
	if vm.PageLabel != "Page 1 of 10" || vm.ZoomLabel != "100%" || vm.ActiveTitle != "Document 1" {
		t.Fatalf("labels = %q %q %q", vm.PageLabel, vm.ZoomLabel, vm.ActiveTitle)
	}
	if vm.CanPrev || !vm.CanNext {
		t.Fatalf("CanPrev=%v CanNext=%v", vm.CanPrev, vm.CanNext)
	}
	if len(vm.Entries) != 1 || !vm.Entries[0].Active || vm.Entries[0].Added == "" {
		t.Fatalf("entries = %#v", vm.Entries)
	}
	if changes == 0 {
		t.Fatalf("OnChange never called")
	}
	if !ev.has(telemetry.EventDocumentOpened) {
		t.Fatalf("document_opened not sent")
	}
	png, err := thumbs.Get(context.Background(), vm.Entries[0].ID, DefaultThumbWidth)
	if err != nil || len(png) == 0 {
		t.Fatalf("thumbnail not stored: %v", err)
	}
	if got := c.Thumbnail(context.Background(), vm.Entries[0].ID); len(got) == 0 {
		t.Fatalf("Thumbnail returned nothing")
	}
}

func TestLoadFailureShowsNotice(t *testing.T) {
	c, ev, _ := newController(t, stubEngine{"broken": {pages: 2, failPage: 1}})
	for _, loc := range []string{"http://nowhere/x.pdf", "broken"} {
		c.SetInput(loc)
		if err := c.Submit(context.Background()); !errors.Is(err, reader.ErrLoad) {
			t.Fatalf("Submit(%s) err = %v", loc, err)
		}
		vm := c.View()
		if vm.Screen != reader.ViewHome || len(vm.Entries) != 0 {
			t.Fatalf("state changed: %#v", vm)
		}
		if vm.Notice != NoticeLoadFailed {
			t.Fatalf("notice = %q", vm.Notice)
		}
	}
	if !ev.has(telemetry.EventDocumentLoadFailed) {
		t.Fatalf("load failure not reported")
	}
	c.DismissNotice()
	if c.View().Notice != "" {
		t.Fatalf("notice not dismissed")
	}
}

func TestOpenEntryClosesPanelEvenOnFailure(t *testing.T) {
	c, _, _ := newController(t, stubEngine{"a": {pages: 3}})
	c.TogglePanel()
	if !c.View().PanelOpen {
		t.Fatalf("panel not opened")
	}
	if err := c.OpenEntry(context.Background(), 99); !errors.Is(err, library.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
	if vm := c.View(); vm.PanelOpen || vm.Notice != NoticeLoadFailed {
		t.Fatalf("view = %#v", vm)
	}

	c.SetInput("a")
	if err := c.Submit(context.Background()); err != nil {
		t.Fatal(err)
	}
	c.Home()
	id := c.View().Entries[0].ID
	c.SetPanelOpen(true)
	if err := c.OpenEntry(context.Background(), id); err != nil {
		t.Fatalf("OpenEntry: %v", err)
	}
	if vm := c.View(); vm.PanelOpen || vm.Screen != reader.ViewReader || len(vm.Entries) != 1 {
		t.Fatalf("view = %#v", vm)
	}
}

func TestDeleteOpenEntryKeepsSession(t *testing.T) {
	c, ev, thumbs := newController(t, stubEngine{"a": {pages: 3}})
	c.SetInput("a")
	if err := c.Submit(context.Background()); err != nil {
		t.Fatal(err)
	}
	id := c.View().Entries[0].ID
	if err := c.DeleteEntry(context.Background(), id); err != nil {
		t.Fatalf("DeleteEntry: %v", err)
	}
	vm := c.View()
	if vm.Screen != reader.ViewReader || len(vm.Entries) != 0 || vm.ActiveTitle != "Document 1" {
		t.Fatalf("view after delete = %#v", vm)
	}
	if png, _ := thumbs.Get(context.Background(), id, DefaultThumbWidth); png != nil {
		t.Fatalf("thumbnail survived delete")
	}
	if !ev.has(telemetry.EventEntryDeleted) {
		t.Fatalf("entry_deleted not sent")
	}
	// deleting again is a no-op
	if err := c.DeleteEntry(context.Background(), id); err != nil {
		t.Fatalf("second DeleteEntry: %v", err)
	}
}

func TestFlipAndZoomThroughController(t *testing.T) {
	c, ev, _ := newController(t, stubEngine{"a": {pages: 3, failPage: 3}})
	if _, ok := c.Next(); ok {
		t.Fatalf("Next accepted on home screen")
	}
	if err := c.ZoomIn(context.Background()); err != nil {
		t.Fatalf("ZoomIn without document: %v", err)
	}
	c.SetInput("a")
	if err := c.Submit(context.Background()); err != nil {
		t.Fatal(err)
	}
	f, ok := c.Next()
	if !ok {
		t.Fatalf("Next rejected")
	}
	if vm := c.View(); !vm.Flipping || vm.CanNext || vm.Direction != reader.Next {
		t.Fatalf("view while flipping = %#v", vm)
	}
	if err := f.Wait(context.Background()); err != nil {
		t.Fatalf("flip: %v", err)
	}
	if !ev.has(telemetry.EventPageFlip) {
		t.Fatalf("page_flip not sent")
	}
	if err := c.ZoomIn(context.Background()); err != nil {
		t.Fatalf("ZoomIn: %v", err)
	}
	if vm := c.View(); vm.ZoomLabel != "120%" || vm.PageLabel != "Page 2 of 3" {
		t.Fatalf("labels = %q %q", vm.ZoomLabel, vm.PageLabel)
	}

	f, _ = c.Next()
	if err := f.Wait(context.Background()); err == nil {
		t.Fatalf("expected render failure on page 3")
	}
	vm := c.View()
	if vm.Notice != NoticeRenderFailed || vm.Flipping || !vm.CanPrev {
		t.Fatalf("view after failed render = %#v", vm)
	}
}
