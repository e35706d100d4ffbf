/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package library keeps the ordered catalog of previously opened documents
// and persists it as a single JSON value in a key-value store.
package library

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	applog "gopdfreader/internal/log"
)

// StorageKey is the key the catalog is stored under.
const StorageKey = "pdfLibrary"

var (
	// ErrPersist wraps failures to write the catalog to its store.
	ErrPersist = errors.New("library: persist failed")
	// ErrNotFound is returned for ids that are not in the catalog.
	ErrNotFound = errors.New("library: entry not found")
	// ErrEmptyLocator rejects blank locators.
	ErrEmptyLocator = errors.New("library: empty locator")
)

// Entry is one previously opened document. All fields are fixed at creation.
type Entry struct {
	ID        int64
	Locator   string
	Title     string
	AddedDate time.Time
}

// Store is the key-value persistence backend of a Catalog.
// ReadAll reports ok=false when the key has never been written.
type Store interface {
	ReadAll(key string) (raw string, ok bool, err error)
	WriteAll(key, raw string) error
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option { return func(c *Catalog) { c.now = now } }

// WithKey stores the catalog under a different key.
func WithKey(key string) Option { return func(c *Catalog) { c.key = key } }

// Catalog is the in-memory library mirrored to a Store after every mutation.
// It is safe for concurrent use.
type Catalog struct {
	mu      sync.RWMutex
	store   Store
	key     string
	now     func() time.Time
	entries []Entry
	log     *slog.Logger
}

// Load reads the catalog from store. Missing, unreadable or malformed data
// yields an empty catalog; the problem is logged, never returned.
func Load(store Store, opts ...Option) *Catalog {
	c := &Catalog{store: store, key: StorageKey, now: time.Now, log: applog.WithComponent("library")}
	for _, o := range opts {
		o(c)
	}
	l := applog.WithOperation(c.log, "load").With(slog.String("key", c.key))
	raw, ok, err := store.ReadAll(c.key)
	switch {
	case err != nil:
		l.Warn("read failed, starting with an empty library", slog.Any("err", err))
		return c
	case !ok || strings.TrimSpace(raw) == "":
		l.Debug("no stored library")
		return c
	}
	entries, err := Decode([]byte(raw))
	if err != nil {
		l.Warn("stored library is malformed, starting with an empty library", slog.Any("err", err))
		return c
	}
	c.entries = entries
	l.Debug("library loaded", slog.Int("entries", len(entries)))
	return c
}

// List returns the entries in insertion order.
func (c *Catalog) List() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// FindByLocator returns the entry whose locator equals locator exactly.
func (c *Catalog) FindByLocator(locator string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.findLocked(locator)
}

// Find returns the entry with the given id.
func (c *Catalog) Find(id int64) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, e := range c.entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

func (c *Catalog) findLocked(locator string) (Entry, bool) {
	for _, e := range c.entries {
		if e.Locator == locator {
			return e, true
		}
	}
	return Entry{}, false
}

// Add returns the existing entry for locator, or appends a new one and
// persists the catalog. When persisting fails the entry stays in memory and
// is returned together with an error wrapping ErrPersist.
func (c *Catalog) Add(locator string) (Entry, error) {
	if strings.TrimSpace(locator) == "" {
		return Entry{}, ErrEmptyLocator
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.findLocked(locator); ok {
		return e, nil
	}
	now := c.now().UTC().Truncate(time.Millisecond)
	e := Entry{
		ID:        c.nextIDLocked(now),
		Locator:   locator,
		Title:     "Document " + strconv.Itoa(len(c.entries)+1),
		AddedDate: now,
	}
	c.entries = append(c.entries, e)
	c.log.Info("entry added", slog.Int64("id", e.ID), slog.String("title", e.Title), slog.String("doc", applog.RedactLocator(locator)))
	return e, c.persistLocked()
}

// nextIDLocked derives ids from the wall clock in milliseconds but never
// hands out an id less than or equal to an existing one.
func (c *Catalog) nextIDLocked(now time.Time) int64 {
	id := now.UnixMilli()
	for _, e := range c.entries {
		if e.ID >= id {
			id = e.ID + 1
		}
	}
	return id
}

// Remove deletes the entry with id if present and persists the catalog.
// Unknown ids are not an error.
func (c *Catalog) Remove(id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	if len(kept) != len(c.entries) {
		c.log.Info("entry removed", slog.Int64("id", id))
	}
	c.entries = kept
	return c.persistLocked()
}

func (c *Catalog) persistLocked() error {
	raw, err := Encode(c.entries)
	if err != nil {
		return fmt.Errorf("%w: encode: %w", ErrPersist, err)
	}
	if err := c.store.WriteAll(c.key, string(raw)); err != nil {
		c.log.Error("persist failed", slog.String("key", c.key), slog.Any("err", err))
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}
