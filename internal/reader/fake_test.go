/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package reader

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gopdfreader/internal/engine"
	"gopdfreader/internal/library"
	"gopdfreader/internal/storage"
)

type fakeDoc struct {
	mu       sync.Mutex
	pages    int
	failPage int
	block    chan struct{}
	renders  []float64
	closed   bool
}

func (d *fakeDoc) PageCount() int     { return d.pages }
func (d *fakeDoc) Info() engine.Info { return engine.Info{Pages: d.pages} }

func (d *fakeDoc) RenderPage(ctx context.Context, page int, scale float64) (image.Image, error) {
	if d.block != nil {
		<-d.block
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, engine.ErrClosed
	}
	d.renders = append(d.renders, scale)
	if page == d.failPage {
		return nil, errors.New("boom")
	}
	return image.NewGray(image.Rect(0, 0, page, page)), nil
}

func (d *fakeDoc) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return nil
}

func (d *fakeDoc) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func (d *fakeDoc) scales() []float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]float64(nil), d.renders...)
}

type fakeEngine struct {
	mu   sync.Mutex
	docs map[string]*fakeDoc
}

func (e *fakeEngine) Open(_ context.Context, locator string) (engine.Document, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	d, ok := e.docs[locator]
	if !ok {
		return nil, errors.New("not found")
	}
	return d, nil
}

type recordingSurface struct {
	mu    sync.Mutex
	pages []int
}

func (s *recordingSurface) Present(img image.Image, page int) {
	s.mu.Lock()
	s.pages = append(s.pages, page)
	s.mu.Unlock()
}

func (s *recordingSurface) last() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pages) == 0 {
		return 0
	}
	return s.pages[len(s.pages)-1]
}

type countingCue struct{ n atomic.Int32 }

func (c *countingCue) Play() { c.n.Add(1) }

type fixture struct {
	nav     *Navigator
	eng     *fakeEngine
	cat     *library.Catalog
	surface *recordingSurface
	cue     *countingCue
}

func newFixture(t *testing.T, delay time.Duration, docs map[string]*fakeDoc) *fixture {
	t.Helper()
	f := &fixture{
		eng:     &fakeEngine{docs: docs},
		cat:     library.Load(storage.NewMemoryKV()),
		surface: &recordingSurface{},
		cue:     &countingCue{},
	}
	f.nav = New(Options{Engine: f.eng, Catalog: f.cat, Surface: f.surface, Cue: f.cue, FlipDelay: delay})
	t.Cleanup(f.nav.Close)
	return f
}

func waitFlip(t *testing.T, fl *Flip) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return fl.Wait(ctx)
}
