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
	"fmt"
	"log/slog"
	"os"

	"gopdfreader/internal/audio"
	"gopdfreader/internal/config"
	"gopdfreader/internal/engine"
	"gopdfreader/internal/library"
	applog "gopdfreader/internal/log"
	"gopdfreader/internal/reader"
	"gopdfreader/internal/storage"
	"gopdfreader/internal/telemetry"
)

// Runtime holds the long lived services shared by the CLI and the desktop UI.
type Runtime struct {
	Config    config.AppConfig
	DataDir   string
	Engine    engine.Engine
	Catalog   *library.Catalog
	Index     *storage.Index      // nil when the index could not be opened
	Thumbs    *storage.Thumbnails // nil when Index is nil
	Telemetry *telemetry.Client

	kv storage.KV
}

// RuntimeOptions tune OpenRuntime.
type RuntimeOptions struct {
	Password string
	// Store replaces the configured backend, used for the fyne preferences store.
	Store library.Store
}

// OpenRuntime builds the services described by cfg. A broken thumbnail index
// is repaired or disabled; a library backend that cannot be opened is an error.
func OpenRuntime(ctx context.Context, cfg config.AppConfig, opts RuntimeOptions) (*Runtime, error) {
	l := applog.WithOperation(applog.WithComponent("app"), "runtime")
	dataDir, err := cfg.DataDir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	rt := &Runtime{Config: cfg, DataDir: dataDir}

	idx, repaired, err := storage.DetectAndRepairIndex(ctx, dataDir)
	switch {
	case err != nil:
		l.Warn("thumbnail index unavailable", slog.Any("err", err))
	default:
		if repaired {
			l.Warn("thumbnail index was rebuilt")
		}
		rt.Index = idx
		rt.Thumbs = storage.NewThumbnails(idx, cfg.Cache.MaxBytes)
	}

	store := opts.Store
	if store == nil {
		backend := cfg.Library.Backend
		if backend == config.BackendPreferences {
			l.Warn("preferences backend is only available in the desktop UI, using file")
			backend = config.BackendFile
		}
		if backend == config.BackendSQLite && rt.Index == nil {
			rt.Close()
			return nil, errors.New("sqlite library backend needs the index, which could not be opened")
		}
		kv, err := storage.Open(ctx, storage.Options{
			Backend:     backend,
			DataDir:     dataDir,
			PostgresDSN: cfg.Library.PostgresDSN,
			Password:    opts.Password,
			Index:       rt.Index,
			Validate:    library.Validate,
		})
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("open library backend %s: %w", backend, err)
		}
		rt.kv = kv
		store = kv
	}
	rt.Catalog = library.Load(store)
	rt.Engine = engine.New(engine.Options{Fetcher: engine.NewFetcher(engine.FetchOptions{
		Timeout:  cfg.Fetch.Timeout(),
		MaxBytes: cfg.Fetch.MaxBytes,
	})})
	rt.Telemetry = telemetry.New(telemetry.FromConfig(cfg))
	l.Debug("runtime ready", slog.String("data_dir", dataDir), slog.Int("entries", rt.Catalog.Len()))
	return rt, nil
}

// Controller builds a UI controller over the runtime.
func (rt *Runtime) Controller(surface reader.Surface) *Controller {
	delay := rt.Config.Reader.FlipDelay()
	if delay == 0 {
		delay = reader.NoFlipDelay
	}
	opts := Options{
		Engine:    rt.Engine,
		Catalog:   rt.Catalog,
		Surface:   surface,
		Cue:       audio.NewTone(rt.Config.Reader.Sound),
		FlipDelay: delay,
		BaseScale: rt.Config.Reader.BaseScale,
		Telemetry: rt.Telemetry,
	}
	if rt.Thumbs != nil {
		opts.Thumbnails = rt.Thumbs
	}
	return New(opts)
}

// ThumbnailPNG returns the cached thumbnail of an entry at the default width.
func (rt *Runtime) ThumbnailPNG(ctx context.Context, id int64) []byte {
	if rt.Thumbs == nil {
		return nil
	}
	b, err := rt.Thumbs.Get(ctx, id, DefaultThumbWidth)
	if err != nil {
		return nil
	}
	return b
}

// Close releases everything OpenRuntime acquired. Safe on a partial runtime.
func (rt *Runtime) Close() error {
	var errs []error
	if rt.Telemetry != nil {
		rt.Telemetry.Flush(context.Background())
		rt.Telemetry.Close()
	}
	if rt.kv != nil {
		errs = append(errs, rt.kv.Close())
	}
	if rt.Index != nil {
		errs = append(errs, rt.Index.Close())
	}
	return errors.Join(errs...)
}

// Inspect opens locator and returns its metadata without recording it.
func (rt *Runtime) Inspect(ctx context.Context, locator string) (engine.Info, error) {
	doc, err := rt.Engine.Open(ctx, locator)
	if err != nil {
		return engine.Info{}, err
	}
	defer doc.Close()
	return doc.Info(), nil
}

// AddDocument opens locator and records it in the catalog only when it
// loads. The locator is normalized first. The first page becomes the entry thumbnail when rendering is
// available. A persist failure is returned together with the entry.
func (rt *Runtime) AddDocument(ctx context.Context, locator string) (library.Entry, engine.Info, error) {
	l := applog.WithOperation(applog.WithComponent("app"), "add")
	locator = engine.NormalizeLocator(locator)
	if locator == "" {
		return library.Entry{}, engine.Info{}, fmt.Errorf("%w: empty locator", reader.ErrLoad)
	}
	doc, err := rt.Engine.Open(ctx, locator)
	if err != nil {
		return library.Entry{}, engine.Info{}, fmt.Errorf("%w: %w", reader.ErrLoad, err)
	}
	defer doc.Close()
	info := doc.Info()
	e, err := rt.Catalog.Add(locator)
	if e.ID == 0 {
		return e, info, err
	}
	if rt.Thumbs != nil {
		_, terr := rt.Thumbs.GetOrCreate(ctx, e.ID, DefaultThumbWidth, func(ctx context.Context) ([]byte, int, error) {
			img, err := doc.RenderPage(ctx, 1, 1)
			if err != nil {
				return nil, 0, err
			}
			return engine.EncodePNG(img, DefaultThumbWidth)
		})
		if terr != nil && !errors.Is(terr, engine.ErrRenderUnavailable) {
			l.Debug("thumbnail not stored", slog.Int64("id", e.ID), slog.Any("err", terr))
		}
	}
	return e, info, err
}

// RemoveEntry deletes an entry and its cached thumbnail.
func (rt *Runtime) RemoveEntry(ctx context.Context, id int64) error {
	if _, ok := rt.Catalog.Find(id); !ok {
		return fmt.Errorf("remove %d: %w", id, library.ErrNotFound)
	}
	if rt.Thumbs != nil {
		_ = rt.Thumbs.Remove(ctx, id)
	}
	return rt.Catalog.Remove(id)
}
