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
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"gopdfreader/internal/audio"
	"gopdfreader/internal/engine"
	"gopdfreader/internal/library"
	applog "gopdfreader/internal/log"
)

// errStale marks work done for a session that has since been discarded.
var errStale = errors.New("reader: session discarded")

// Options configure a Navigator. Engine and Catalog are required.
type Options struct {
	Engine  engine.Engine
	Catalog *library.Catalog
	Surface Surface
	Cue     audio.Cue
	// FlipDelay is the time between accepting a flip and committing it;
	// 0 means DefaultFlipDelay, a negative value commits immediately.
	FlipDelay time.Duration
	// BaseScale multiplies the zoom factor to get the render scale; 0 means DefaultBaseScale.
	BaseScale float64
}

// Navigator owns the view state and at most one document session.
// All methods are safe for concurrent use.
type Navigator struct {
	eng       engine.Engine
	cat       *library.Catalog
	surface   Surface
	cue       audio.Cue
	delay     time.Duration
	baseScale float64
	log       *slog.Logger

	openMu   sync.Mutex // one open in flight
	renderMu sync.Mutex // renders in submission order
	closing  sync.WaitGroup

	mu      sync.Mutex
	view    View
	sess    *session
	subs    map[int]func(Event)
	nextSub int
}

type session struct {
	entry  library.Entry
	doc    engine.Document
	ctx    context.Context
	cancel context.CancelFunc

	page, total int
	zoom        int
	flipping    bool
	dir         Direction
	flip        *Flip
}

// New returns a Navigator on the Home view.
func New(opts Options) *Navigator {
	n := &Navigator{
		eng:       opts.Engine,
		cat:       opts.Catalog,
		surface:   opts.Surface,
		cue:       opts.Cue,
		delay:     opts.FlipDelay,
		baseScale: opts.BaseScale,
		log:       applog.WithComponent("reader"),
		subs:      map[int]func(Event){},
	}
	if n.surface == nil {
		n.surface = SurfaceFunc(func(image.Image, int) {})
	}
	if n.cue == nil {
		n.cue = audio.Silent
	}
	switch {
	case n.delay == 0:
		n.delay = DefaultFlipDelay
	case n.delay < 0:
		n.delay = 0
	}
	if n.baseScale <= 0 {
		n.baseScale = DefaultBaseScale
	}
	return n
}

// Catalog returns the library the navigator records opened documents in.
func (n *Navigator) Catalog() *library.Catalog { return n.cat }

// Subscribe registers fn for every event. Events are delivered on the
// goroutine that caused the transition, never while internal locks are held.
func (n *Navigator) Subscribe(fn func(Event)) (cancel func()) {
	n.mu.Lock()
	id := n.nextSub
	n.nextSub++
	n.subs[id] = fn
	n.mu.Unlock()
	return func() {
		n.mu.Lock()
		delete(n.subs, id)
		n.mu.Unlock()
	}
}

func (n *Navigator) notify(ev Event) {
	n.mu.Lock()
	fns := make([]func(Event), 0, len(n.subs))
	for _, fn := range n.subs {
		fns = append(fns, fn)
	}
	n.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// Snapshot returns the current state.
func (n *Navigator) Snapshot() Snapshot {
	n.mu.Lock()
	defer n.mu.Unlock()
	snap := Snapshot{View: n.view, ZoomPercent: DefaultZoomPercent}
	if s := n.sess; s != nil {
		snap.Entry = s.entry
		snap.Page = s.page
		snap.Total = s.total
		snap.ZoomPercent = s.zoom
		snap.Flipping = s.flipping
		snap.Direction = s.dir
	}
	return snap
}

// Open loads the document at locator, renders its first page and records it
// in the catalog. On success the previous session is discarded and the view
// switches to Reader; on failure nothing changes and the error wraps ErrLoad.
func (n *Navigator) Open(ctx context.Context, locator string) (library.Entry, error) {
	n.openMu.Lock()
	defer n.openMu.Unlock()
	ctx = applog.WithDocument(ctx, locator)
	l := applog.WithOperation(n.log, "open")

	doc, err := n.eng.Open(ctx, locator)
	if err != nil {
		return library.Entry{}, n.loadFailed(ctx, err)
	}
	total := doc.PageCount()
	if total < 1 {
		_ = doc.Close()
		return library.Entry{}, n.loadFailed(ctx, fmt.Errorf("document has %d pages", total))
	}
	img, err := doc.RenderPage(ctx, 1, n.scale(DefaultZoomPercent))
	if err != nil {
		_ = doc.Close()
		return library.Entry{}, n.loadFailed(ctx, err)
	}
	entry, err := n.cat.Add(locator)
	switch {
	case errors.Is(err, library.ErrPersist):
		l.WarnContext(ctx, "library not saved", slog.Any("err", err))
	case err != nil:
		_ = doc.Close()
		return library.Entry{}, n.loadFailed(ctx, err)
	}

	sctx, cancel := context.WithCancel(context.Background())
	s := &session{entry: entry, doc: doc, ctx: sctx, cancel: cancel, page: 1, total: total, zoom: DefaultZoomPercent}
	n.renderMu.Lock()
	n.mu.Lock()
	old := n.sess
	n.sess = s
	n.view = ViewReader
	n.mu.Unlock()
	n.surface.Present(img, 1)
	n.renderMu.Unlock()
	n.discard(old)

	l.InfoContext(ctx, "document shown", slog.Int64("id", entry.ID), slog.Int("pages", total))
	n.notify(Event{Kind: EventChanged})
	return entry, nil
}

func (n *Navigator) loadFailed(ctx context.Context, err error) error {
	err = fmt.Errorf("%w: %w", ErrLoad, err)
	n.log.WarnContext(ctx, "load failed", slog.Any("err", err))
	n.notify(Event{Kind: EventLoadFailed, Err: err})
	return err
}

// OpenEntry opens a catalog entry by id.
func (n *Navigator) OpenEntry(ctx context.Context, id int64) (library.Entry, error) {
	e, ok := n.cat.Find(id)
	if !ok {
		return library.Entry{}, fmt.Errorf("open entry %d: %w", id, library.ErrNotFound)
	}
	return n.Open(ctx, e.Locator)
}

// Home returns to the library screen and discards the session.
func (n *Navigator) Home() {
	n.mu.Lock()
	if n.view == ViewHome && n.sess == nil {
		n.mu.Unlock()
		return
	}
	old := n.sess
	n.sess = nil
	n.view = ViewHome
	n.mu.Unlock()
	n.discard(old)
	n.notify(Event{Kind: EventChanged})
}

// Close discards the session and waits until every discarded document is
// released. The navigator stays usable.
func (n *Navigator) Close() {
	n.Home()
	n.closing.Wait()
}

// discard cancels a pending flip and releases the document of a session that
// is no longer current. The document is closed in the background because a
// render in progress holds it until rasterization finishes.
func (n *Navigator) discard(s *session) {
	if s == nil {
		return
	}
	var pending *Flip
	n.mu.Lock()
	if f := s.flip; f != nil && !f.committing {
		f.timer.Stop()
		pending = f
		s.flip = nil
		s.flipping = false
	}
	n.mu.Unlock()
	if pending != nil {
		pending.finish(ErrFlipCanceled)
	}
	s.cancel()
	n.closing.Add(1)
	go func() {
		defer n.closing.Done()
		if err := s.doc.Close(); err != nil {
			n.log.Warn("close document", slog.Any("err", err))
		}
	}()
}

func (n *Navigator) scale(zoomPercent int) float64 {
	return float64(zoomPercent) / 100 * n.baseScale
}

// render draws the session's current page at its current zoom. State is read
// when the render starts so the last presented image reflects the newest state.
func (n *Navigator) render(s *session) error {
	n.renderMu.Lock()
	defer n.renderMu.Unlock()
	n.mu.Lock()
	if n.sess != s {
		n.mu.Unlock()
		return errStale
	}
	page, zoom := s.page, s.zoom
	n.mu.Unlock()

	img, err := s.doc.RenderPage(s.ctx, page, n.scale(zoom))
	n.mu.Lock()
	stale := n.sess != s
	n.mu.Unlock()
	if stale {
		return errStale
	}
	if err != nil {
		return err
	}
	n.surface.Present(img, page)
	return nil
}

// SetZoom changes the zoom by one step and re-renders the current page. At a
// bound it is a no-op. Zoom is not gated by an in-progress flip.
func (n *Navigator) SetZoom(ctx context.Context, dir ZoomDirection) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n.mu.Lock()
	s := n.sess
	if s == nil {
		n.mu.Unlock()
		return 0, ErrNoSession
	}
	p, ok := StepZoom(s.zoom, dir)
	if !ok {
		n.mu.Unlock()
		return float64(p) / 100, nil
	}
	s.zoom = p
	n.mu.Unlock()
	n.notify(Event{Kind: EventChanged})

	err := n.render(s)
	if errors.Is(err, errStale) {
		return float64(p) / 100, nil
	}
	if err != nil {
		err = fmt.Errorf("render at %d%%: %w", p, err)
		n.log.Warn("zoom render failed", slog.Any("err", err))
		n.notify(Event{Kind: EventRenderFailed, Err: err})
		return float64(p) / 100, err
	}
	return float64(p) / 100, nil
}
