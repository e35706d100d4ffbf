/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package reader holds the navigation state of the application: which screen
// is shown, the open document session, its page and zoom, and the timed page
// flip. It is toolkit independent; rendered pages are handed to a Surface and
// state changes are announced to subscribers.
package reader

import (
	"errors"
	"image"
	"time"

	"gopdfreader/internal/library"
)

// View is the screen the application shows.
type View int

const (
	ViewHome View = iota
	ViewReader
)

func (v View) String() string {
	if v == ViewReader {
		return "reader"
	}
	return "home"
}

// Direction of a page flip.
type Direction int

const (
	NoDirection Direction = 0
	Next        Direction = 1
	Prev        Direction = -1
)

func (d Direction) String() string {
	switch d {
	case Next:
		return "next"
	case Prev:
		return "prev"
	default:
		return "none"
	}
}

// ZoomDirection is a zoom step.
type ZoomDirection int

const (
	ZoomIn  ZoomDirection = 1
	ZoomOut ZoomDirection = -1
)

// Zoom is kept in integer percent so that stepping never drifts.
const (
	MinZoomPercent     = 60
	MaxZoomPercent     = 200
	ZoomStepPercent    = 20
	DefaultZoomPercent = 100
)

const (
	DefaultFlipDelay = 600 * time.Millisecond
	DefaultBaseScale = 1.5
)

// NoFlipDelay as Options.FlipDelay commits flips without pausing.
const NoFlipDelay time.Duration = -1

var (
	// ErrLoad wraps every failure to open a document.
	ErrLoad = errors.New("reader: could not load document")
	// ErrFlipCanceled is reported by Flip.Wait when the flip never committed.
	ErrFlipCanceled = errors.New("reader: page flip canceled")
	// ErrNoSession is returned by operations that need an open document.
	ErrNoSession = errors.New("reader: no document open")
)

// TargetPage returns the page a flip in dir would land on, or false at a boundary.
func TargetPage(cur, total int, dir Direction) (int, bool) {
	switch dir {
	case Next:
		if cur < total {
			return cur + 1, true
		}
	case Prev:
		if cur > 1 {
			return cur - 1, true
		}
	}
	return cur, false
}

// StepZoom applies one zoom step to percent, clamped to the allowed range.
// It reports false when percent is already at the bound in that direction.
func StepZoom(percent int, dir ZoomDirection) (int, bool) {
	next := percent + int(dir)*ZoomStepPercent
	if next > MaxZoomPercent {
		next = MaxZoomPercent
	}
	if next < MinZoomPercent {
		next = MinZoomPercent
	}
	return next, next != percent
}

// Surface receives rendered pages.
type Surface interface {
	Present(img image.Image, page int)
}

// SurfaceFunc adapts a function to Surface.
type SurfaceFunc func(img image.Image, page int)

func (f SurfaceFunc) Present(img image.Image, page int) { f(img, page) }

// EventKind classifies notifications.
type EventKind int

const (
	EventChanged EventKind = iota
	EventLoadFailed
	EventRenderFailed
)

// Event is delivered to subscribers after a state transition.
type Event struct {
	Kind EventKind
	Err  error
}

// Snapshot is a consistent copy of the navigation state.
type Snapshot struct {
	View        View
	Entry       library.Entry
	Page        int
	Total       int
	ZoomPercent int
	Flipping    bool
	Direction   Direction
}

// Zoom returns the zoom factor, 1.0 meaning 100%.
func (s Snapshot) Zoom() float64 { return float64(s.ZoomPercent) / 100 }

// CanFlip reports whether a flip in dir would be accepted right now.
func (s Snapshot) CanFlip(dir Direction) bool {
	if s.View != ViewReader || s.Flipping {
		return false
	}
	_, ok := TargetPage(s.Page, s.Total, dir)
	return ok
}
