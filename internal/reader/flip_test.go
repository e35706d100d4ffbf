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
	"testing"
	"time"
)

func TestFiveFlipsLandOnPageSix(t *testing.T) {
	f := newFixture(t, time.Millisecond, map[string]*fakeDoc{docURL: {pages: 10}})
	if _, err := f.nav.Open(context.Background(), docURL); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		fl, ok := f.nav.RequestPageChange(Next)
		if !ok {
			t.Fatalf("flip %d rejected", i)
		}
		if err := waitFlip(t, fl); err != nil {
			t.Fatalf("flip %d: %v", i, err)
		}
	}
	s := f.nav.Snapshot()
	if s.Page != 6 || s.Flipping {
		t.Fatalf("snapshot = %#v", s)
	}
	if f.surface.last() != 6 {
		t.Fatalf("last presented page = %d", f.surface.last())
	}
	if f.cue.n.Load() != 5 {
		t.Fatalf("cue played %d times", f.cue.n.Load())
	}
}

func TestFlipRejectedAtBoundsAndWhileFlipping(t *testing.T) {
	f := newFixture(t, time.Hour, map[string]*fakeDoc{docURL: {pages: 2}})
	if _, ok := f.nav.RequestPageChange(Next); ok {
		t.Fatalf("flip accepted without a session")
	}
	if _, err := f.nav.Open(context.Background(), docURL); err != nil {
		t.Fatal(err)
	}
	if _, ok := f.nav.RequestPageChange(Prev); ok {
		t.Fatalf("Prev accepted on page 1")
	}
	if s := f.nav.Snapshot(); s.Flipping || s.Page != 1 {
		t.Fatalf("state changed by rejected flip: %#v", s)
	}
	fl, ok := f.nav.RequestPageChange(Next)
	if !ok {
		t.Fatalf("Next rejected")
	}
	s := f.nav.Snapshot()
	if !s.Flipping || s.Direction != Next || s.Page != 1 {
		t.Fatalf("flipping state = %#v", s)
	}
	if s.CanFlip(Next) || s.CanFlip(Prev) {
		t.Fatalf("CanFlip true while flipping")
	}
	if _, ok := f.nav.RequestPageChange(Next); ok {
		t.Fatalf("second flip accepted while flipping")
	}
	if !fl.Cancel() {
		t.Fatalf("Cancel returned false")
	}
	if err := waitFlip(t, fl); !errors.Is(err, ErrFlipCanceled) {
		t.Fatalf("Wait = %v", err)
	}
	if s := f.nav.Snapshot(); s.Flipping || s.Page != 1 {
		t.Fatalf("state after cancel = %#v", s)
	}
}

func TestFlipAtLastPageRejected(t *testing.T) {
	f := newFixture(t, time.Millisecond, map[string]*fakeDoc{docURL: {pages: 2}})
	if _, err := f.nav.Open(context.Background(), docURL); err != nil {
		t.Fatal(err)
	}
	fl, _ := f.nav.RequestPageChange(Next)
	if err := waitFlip(t, fl); err != nil {
		t.Fatal(err)
	}
	if _, ok := f.nav.RequestPageChange(Next); ok {
		t.Fatalf("Next accepted on last page")
	}
	if s := f.nav.Snapshot(); s.Page != 2 || s.Flipping {
		t.Fatalf("snapshot = %#v", s)
	}
}

func TestFlippingClearedAfterRenderFailure(t *testing.T) {
	f := newFixture(t, time.Millisecond, map[string]*fakeDoc{docURL: {pages: 3, failPage: 2}})
	if _, err := f.nav.Open(context.Background(), docURL); err != nil {
		t.Fatal(err)
	}
	var renderErr error
	f.nav.Subscribe(func(ev Event) {
		if ev.Kind == EventRenderFailed {
			renderErr = ev.Err
		}
	})
	fl, ok := f.nav.RequestPageChange(Next)
	if !ok {
		t.Fatal("flip rejected")
	}
	if err := waitFlip(t, fl); err == nil || errors.Is(err, ErrFlipCanceled) {
		t.Fatalf("Wait = %v, want render error", err)
	}
	if renderErr == nil {
		t.Fatalf("no render-failed event")
	}
	s := f.nav.Snapshot()
	if s.Flipping || s.Page != 2 {
		t.Fatalf("snapshot = %#v", s)
	}
	if _, ok := f.nav.RequestPageChange(Next); !ok {
		t.Fatalf("navigation still blocked after failed render")
	}
}

func TestHomeCancelsPendingFlip(t *testing.T) {
	doc := &fakeDoc{pages: 5}
	f := newFixture(t, time.Hour, map[string]*fakeDoc{docURL: doc})
	if _, err := f.nav.Open(context.Background(), docURL); err != nil {
		t.Fatal(err)
	}
	fl, _ := f.nav.RequestPageChange(Next)
	f.nav.Home()
	if err := waitFlip(t, fl); !errors.Is(err, ErrFlipCanceled) {
		t.Fatalf("Wait = %v", err)
	}
	if fl.Cancel() {
		t.Fatalf("Cancel after discard returned true")
	}
	f.nav.closing.Wait()
	if !doc.isClosed() {
		t.Fatalf("document not closed")
	}
}

func TestZoomDuringFlipIsAllowed(t *testing.T) {
	f := newFixture(t, time.Hour, map[string]*fakeDoc{docURL: {pages: 5}})
	if _, err := f.nav.Open(context.Background(), docURL); err != nil {
		t.Fatal(err)
	}
	fl, _ := f.nav.RequestPageChange(Next)
	defer fl.Cancel()
	if z, err := f.nav.SetZoom(context.Background(), ZoomIn); err != nil || z != 1.2 {
		t.Fatalf("SetZoom during flip = %v, %v", z, err)
	}
	if !f.nav.Snapshot().Flipping {
		t.Fatalf("zoom cleared flipping")
	}
}

func TestZeroFlipDelayUsesDefault(t *testing.T) {
	f := newFixture(t, 0, map[string]*fakeDoc{docURL: {pages: 3}})
	if f.nav.delay != DefaultFlipDelay {
		t.Fatalf("delay = %v, want %v", f.nav.delay, DefaultFlipDelay)
	}
	if _, err := f.nav.Open(context.Background(), docURL); err != nil {
		t.Fatal(err)
	}
	fl, ok := f.nav.RequestPageChange(Next)
	if !ok {
		t.Fatalf("Next rejected")
	}
	select {
	case <-fl.Done():
		t.Fatalf("flip committed before the default delay")
	case <-time.After(150 * time.Millisecond):
	}
	if s := f.nav.Snapshot(); !s.Flipping || s.Page != 1 {
		t.Fatalf("snapshot = %#v", s)
	}
	if !fl.Cancel() {
		t.Fatalf("pending flip not canceled")
	}
}

func TestNoFlipDelayCommitsImmediately(t *testing.T) {
	f := newFixture(t, NoFlipDelay, map[string]*fakeDoc{docURL: {pages: 3}})
	if f.nav.delay != 0 {
		t.Fatalf("delay = %v, want 0", f.nav.delay)
	}
	if _, err := f.nav.Open(context.Background(), docURL); err != nil {
		t.Fatal(err)
	}
	fl, ok := f.nav.RequestPageChange(Next)
	if !ok {
		t.Fatalf("Next rejected")
	}
	if err := waitFlip(t, fl); err != nil {
		t.Fatalf("flip: %v", err)
	}
	if s := f.nav.Snapshot(); s.Page != 2 {
		t.Fatalf("page = %d, want 2", s.Page)
	}
}
