/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package app is the toolkit independent UI controller. It owns the transient
// screen state (side panel, input box, notices), forwards user intents to the
// reader navigator and derives a ViewModel that a front end draws as is.
package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"sync"
	"time"

	"gopdfreader/internal/audio"
	"gopdfreader/internal/engine"
	"gopdfreader/internal/library"
	applog "gopdfreader/internal/log"
	"gopdfreader/internal/reader"
	"gopdfreader/internal/telemetry"
)

// User facing notices.
const (
	NoticeLoadFailed   = "Could not load the PDF. Please check the link and try again."
	NoticeRenderFailed = "Could not display this page."
	NoticeSaveFailed   = "The library could not be saved."
)

// DefaultThumbWidth is the width of library thumbnails in pixels.
const DefaultThumbWidth = 160

// DateLayout formats entry dates in the library list.
const DateLayout = "Jan 2, 2006"

// ThumbnailStore caches first-page thumbnails per entry.
type ThumbnailStore interface {
	Get(ctx context.Context, entryID int64, w int) ([]byte, error)
	Put(ctx context.Context, entryID int64, w, h int, png []byte) error
	Remove(ctx context.Context, entryID int64) error
}

// Options configure a Controller. Engine and Catalog are required.
type Options struct {
	Engine     engine.Engine
	Catalog    *library.Catalog
	Surface    reader.Surface
	Cue        audio.Cue
	FlipDelay  time.Duration // 0 means reader.DefaultFlipDelay
	BaseScale  float64
	Thumbnails ThumbnailStore
	ThumbWidth int
	Telemetry  telemetry.Sink
}

// Controller is safe for concurrent use. Blocking methods take a context and
// are meant to run off the UI goroutine.
type Controller struct {
	nav    *reader.Navigator
	cat    *library.Catalog
	thumbs ThumbnailStore
	thumbW int
	tel    telemetry.Sink
	log    *slog.Logger

	mu        sync.Mutex
	panelOpen bool
	input     string
	notice    string
	busy      bool
	firstPage image.Image
	listeners map[int]func()
	nextID    int

	unsubscribe func()
}

// New wires a Navigator and returns a controller on the Home screen.
func New(opts Options) *Controller {
	c := &Controller{
		cat:       opts.Catalog,
		thumbs:    opts.Thumbnails,
		thumbW:    opts.ThumbWidth,
		tel:       opts.Telemetry,
		log:       applog.WithComponent("app"),
		listeners: map[int]func(){},
	}
	if c.thumbW <= 0 {
		c.thumbW = DefaultThumbWidth
	}
	surface := opts.Surface
	c.nav = reader.New(reader.Options{
		Engine:  opts.Engine,
		Catalog: opts.Catalog,
		Surface: reader.SurfaceFunc(func(img image.Image, page int) {
			if page == 1 {
				c.mu.Lock()
				c.firstPage = img
				c.mu.Unlock()
			}
			if surface != nil {
				surface.Present(img, page)
			}
		}),
		Cue:       opts.Cue,
		FlipDelay: opts.FlipDelay,
		BaseScale: opts.BaseScale,
	})
	c.unsubscribe = c.nav.Subscribe(c.onEvent)
	return c
}

// Navigator exposes the underlying navigator.
func (c *Controller) Navigator() *reader.Navigator { return c.nav }

// Close discards the open document.
func (c *Controller) Close() {
	c.unsubscribe()
	c.nav.Close()
}

func (c *Controller) onEvent(ev reader.Event) {
	if ev.Kind == reader.EventRenderFailed {
		c.setNotice(NoticeRenderFailed)
		return
	}
	c.changed()
}

// OnChange registers fn to be called after every state transition.
func (c *Controller) OnChange(fn func()) (cancel func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

func (c *Controller) changed() {
	c.mu.Lock()
	fns := make([]func(), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (c *Controller) event(name string, props map[string]any) {
	if c.tel != nil {
		c.tel.Event(name, props)
	}
}

func (c *Controller) setNotice(s string) {
	c.mu.Lock()
	c.notice = s
	c.mu.Unlock()
	c.changed()
}

// DismissNotice clears the current notice.
func (c *Controller) DismissNotice() { c.setNotice("") }

// SetInput stores the text of the locator box.
func (c *Controller) SetInput(s string) {
	c.mu.Lock()
	c.input = s
	c.mu.Unlock()
	c.changed()
}

// TogglePanel opens or closes the side panel.
func (c *Controller) TogglePanel() {
	c.mu.Lock()
	c.panelOpen = !c.panelOpen
	c.mu.Unlock()
	c.changed()
}

// SetPanelOpen sets the side panel state.
func (c *Controller) SetPanelOpen(open bool) {
	c.mu.Lock()
	c.panelOpen = open
	c.mu.Unlock()
	c.changed()
}

// Submit opens the locator typed into the input box. Blank input is ignored.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	locator := strings.TrimSpace(c.input)
	if locator == "" {
		c.mu.Unlock()
		return nil
	}
	c.input = ""
	c.mu.Unlock()
	return c.open(ctx, locator)
}

// OpenEntry opens a library entry and closes the side panel, also when
// loading fails.
func (c *Controller) OpenEntry(ctx context.Context, id int64) error {
	defer c.SetPanelOpen(false)
	e, ok := c.cat.Find(id)
	if !ok {
		c.setNotice(NoticeLoadFailed)
		return fmt.Errorf("open entry %d: %w", id, library.ErrNotFound)
	}
	return c.open(ctx, e.Locator)
}

func (c *Controller) open(ctx context.Context, locator string) error {
	c.mu.Lock()
	c.busy = true
	c.firstPage = nil
	c.mu.Unlock()
	c.changed()

	entry, err := c.nav.Open(ctx, locator)

	c.mu.Lock()
	c.busy = false
	if err != nil {
		c.notice = NoticeLoadFailed
	} else {
		c.notice = ""
	}
	first := c.firstPage
	c.firstPage = nil
	c.mu.Unlock()
	if err != nil {
		c.event(telemetry.EventDocumentLoadFailed, map[string]any{"remote": engine.IsRemote(locator)})
		c.changed()
		return err
	}
	snap := c.nav.Snapshot()
	c.event(telemetry.EventDocumentOpened, map[string]any{"pages": snap.Total, "remote": engine.IsRemote(locator)})
	if first != nil {
		c.storeThumbnail(ctx, entry.ID, first)
	}
	c.changed()
	return nil
}

// storeThumbnail is best effort; failures are logged only.
func (c *Controller) storeThumbnail(ctx context.Context, id int64, img image.Image) {
	if c.thumbs == nil {
		return
	}
	png, h, err := engine.EncodePNG(img, c.thumbW)
	if err == nil {
		err = c.thumbs.Put(ctx, id, c.thumbW, h, png)
	}
	if err != nil {
		c.log.Debug("thumbnail not stored", slog.Int64("id", id), slog.Any("err", err))
	}
}

// Thumbnail returns the cached PNG for an entry, or nil.
func (c *Controller) Thumbnail(ctx context.Context, id int64) []byte {
	if c.thumbs == nil {
		return nil
	}
	b, err := c.thumbs.Get(ctx, id, c.thumbW)
	if err != nil {
		c.log.Debug("thumbnail lookup failed", slog.Int64("id", id), slog.Any("err", err))
		return nil
	}
	return b
}

// DeleteEntry removes an entry and its thumbnail. An open session showing
// that entry stays open.
func (c *Controller) DeleteEntry(ctx context.Context, id int64) error {
	err := c.cat.Remove(id)
	if c.thumbs != nil {
		if terr := c.thumbs.Remove(ctx, id); terr != nil {
			c.log.Debug("thumbnail not removed", slog.Int64("id", id), slog.Any("err", terr))
		}
	}
	c.event(telemetry.EventEntryDeleted, nil)
	if err != nil {
		c.setNotice(NoticeSaveFailed)
		return err
	}
	c.changed()
	return nil
}

// Home returns to the library screen.
func (c *Controller) Home() { c.nav.Home() }

// Next starts a flip forward; false when not possible right now.
func (c *Controller) Next() (*reader.Flip, bool) { return c.flip(reader.Next) }

// Prev starts a flip backward; false when not possible right now.
func (c *Controller) Prev() (*reader.Flip, bool) { return c.flip(reader.Prev) }

func (c *Controller) flip(dir reader.Direction) (*reader.Flip, bool) {
	f, ok := c.nav.RequestPageChange(dir)
	if ok {
		c.event(telemetry.EventPageFlip, map[string]any{"dir": dir.String()})
	}
	return f, ok
}

// ZoomIn steps the zoom up.
func (c *Controller) ZoomIn(ctx context.Context) error { return c.zoom(ctx, reader.ZoomIn) }

// ZoomOut steps the zoom down.
func (c *Controller) ZoomOut(ctx context.Context) error { return c.zoom(ctx, reader.ZoomOut) }

func (c *Controller) zoom(ctx context.Context, dir reader.ZoomDirection) error {
	_, err := c.nav.SetZoom(ctx, dir)
	if errors.Is(err, reader.ErrNoSession) {
		return nil
	}
	return err
}
