/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package engine turns a document locator into page images.
//
// Opening a document resolves the locator (http, https, file URL or local
// path) to a local file, validates it and reads its metadata with tabula, and
// hands rasterization to MuPDF through go-fitz. Binaries built without cgo can
// still open and inspect documents but RenderPage reports ErrRenderUnavailable.
package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"sync"

	applog "gopdfreader/internal/log"
)

var (
	// ErrUnsupportedLocator is returned for schemes other than http, https and file.
	ErrUnsupportedLocator = errors.New("engine: unsupported locator")
	// ErrNotPDF is returned when the fetched bytes do not start a PDF file.
	ErrNotPDF = errors.New("engine: not a PDF document")
	// ErrTooLarge is returned when a download exceeds the configured cap.
	ErrTooLarge = errors.New("engine: document too large")
	// ErrRenderUnavailable means the binary was built without a rasterizer.
	ErrRenderUnavailable = errors.New("engine: page rendering not available in this build (requires cgo)")
	// ErrPageRange is returned for pages outside [1, PageCount].
	ErrPageRange = errors.New("engine: page out of range")
	// ErrClosed is returned by a Document after Close.
	ErrClosed = errors.New("engine: document closed")
)

// Engine opens documents.
type Engine interface {
	Open(ctx context.Context, locator string) (Document, error)
}

// Document is one opened document. Methods are safe for concurrent use;
// renders are serialized internally.
type Document interface {
	PageCount() int
	// RenderPage rasterizes the 1-based page; scale 1.0 is 72 dpi.
	RenderPage(ctx context.Context, page int, scale float64) (image.Image, error)
	Info() Info
	Close() error
}

// Info is the metadata read while opening a document.
type Info struct {
	Title    string
	Author   string
	Producer string
	Version  string
	Pages    int
	Size     int64
}

// rasterizer is the MuPDF binding (or its absence).
type rasterizer interface {
	NumPage() int
	// Render rasterizes the 0-based page at dpi.
	Render(page int, dpi float64) (image.Image, error)
	Close() error
}

// Options configure a PDF engine.
type Options struct {
	Fetcher *Fetcher
	// openRasterizer is replaced in tests.
	openRasterizer func(path string) (rasterizer, error)
}

// PDF is the production Engine.
type PDF struct {
	fetch          *Fetcher
	openRasterizer func(path string) (rasterizer, error)
}

// New returns a PDF engine. A nil Fetcher uses NewFetcher defaults.
func New(opts Options) *PDF {
	f := opts.Fetcher
	if f == nil {
		f = NewFetcher(FetchOptions{})
	}
	or := opts.openRasterizer
	if or == nil {
		or = openRasterizer
	}
	return &PDF{fetch: f, openRasterizer: or}
}

// Open fetches, validates and prepares the document at locator.
func (p *PDF) Open(ctx context.Context, locator string) (Document, error) {
	ctx = applog.WithDocument(ctx, locator)
	l := applog.WithOperation(applog.WithComponent("engine"), "open")
	src, err := p.fetch.Fetch(ctx, locator)
	if err != nil {
		return nil, err
	}
	cleanup := func() {
		if src.Temp {
			_ = os.Remove(src.Path)
		}
	}
	if err := ctx.Err(); err != nil {
		cleanup()
		return nil, err
	}
	if err := sniffPDF(src.Path); err != nil {
		cleanup()
		return nil, err
	}
	info, perr := Probe(src.Path)
	rast, rerr := p.openRasterizer(src.Path)
	switch {
	case perr != nil && rerr != nil:
		cleanup()
		return nil, fmt.Errorf("parse document: %w", perr)
	case perr != nil:
		// tabula rejects some files MuPDF repairs silently; trust the rasterizer
		l.WarnContext(ctx, "probe failed, using rasterizer page count", slog.Any("err", perr))
		info = Info{Pages: rast.NumPage(), Size: src.Size}
	case rerr != nil && !errors.Is(rerr, ErrRenderUnavailable):
		cleanup()
		return nil, fmt.Errorf("open rasterizer: %w", rerr)
	}
	info.Size = src.Size
	if info.Pages < 1 {
		if rast != nil {
			_ = rast.Close()
		}
		cleanup()
		return nil, fmt.Errorf("parse document: no pages")
	}
	l.InfoContext(ctx, "document opened", slog.Int("pages", info.Pages), slog.String("pdf", info.Version), slog.Int64("bytes", info.Size))
	return &document{path: src.Path, temp: src.Temp, info: info, rast: rast}, nil
}

type document struct {
	mu     sync.Mutex
	path   string
	temp   bool
	info   Info
	rast   rasterizer
	closed bool
}

func (d *document) PageCount() int { return d.info.Pages }
func (d *document) Info() Info     { return d.info }

func (d *document) RenderPage(ctx context.Context, page int, scale float64) (image.Image, error) {
	if page < 1 || page > d.info.Pages {
		return nil, fmt.Errorf("%w: %d of %d", ErrPageRange, page, d.info.Pages)
	}
	if scale <= 0 {
		return nil, fmt.Errorf("engine: invalid scale %v", scale)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrClosed
	}
	if d.rast == nil {
		return nil, ErrRenderUnavailable
	}
	img, err := d.rast.Render(page-1, 72*scale)
	if err != nil {
		return nil, fmt.Errorf("render page %d: %w", page, err)
	}
	return img, nil
}

// Close releases the rasterizer and removes a downloaded temp file. Idempotent.
func (d *document) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	var err error
	if d.rast != nil {
		err = d.rast.Close()
	}
	if d.temp {
		if rerr := os.Remove(d.path); rerr != nil && !errors.Is(rerr, os.ErrNotExist) && err == nil {
			err = rerr
		}
	}
	return err
}

// sniffPDF checks for the %PDF- marker in the first KiB, where readers accept it.
func sniffPDF(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	head := make([]byte, 1024)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return err
	}
	if !bytes.Contains(head[:n], []byte("%PDF-")) {
		return ErrNotPDF
	}
	return nil
}
