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
	"log/slog"
	"sync"
	"time"
)

// Flip is an accepted page change. It commits after the flip delay unless
// canceled first.
type Flip struct {
	nav    *Navigator
	sess   *session
	target int
	dir    Direction
	timer  *time.Timer
	// committing is set under Navigator.mu once the commit started; from then
	// on Cancel has no effect.
	committing bool

	once sync.Once
	done chan struct{}
	err  error
}

// Target is the page the flip lands on.
func (f *Flip) Target() int { return f.target }

// Done is closed when the flip committed, failed or was canceled.
func (f *Flip) Done() <-chan struct{} { return f.done }

// Wait blocks until the flip finished and returns the render error, or
// ErrFlipCanceled when it never committed.
func (f *Flip) Wait(ctx context.Context) error {
	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cancel stops a flip that has not started committing yet.
func (f *Flip) Cancel() bool {
	n := f.nav
	n.mu.Lock()
	if f.committing || f.sess.flip != f {
		n.mu.Unlock()
		return false
	}
	f.timer.Stop()
	f.sess.flip = nil
	f.sess.flipping = false
	f.sess.dir = NoDirection
	current := n.sess == f.sess
	n.mu.Unlock()
	f.finish(ErrFlipCanceled)
	if current {
		n.notify(Event{Kind: EventChanged})
	}
	return true
}

func (f *Flip) finish(err error) {
	f.once.Do(func() {
		f.err = err
		close(f.done)
	})
}

// RequestPageChange starts a flip in dir. It is rejected without any state
// change when no document is open, a flip is already running, or the current
// page is at the boundary in that direction.
func (n *Navigator) RequestPageChange(dir Direction) (*Flip, bool) {
	n.mu.Lock()
	s := n.sess
	if s == nil || s.flipping {
		n.mu.Unlock()
		return nil, false
	}
	target, ok := TargetPage(s.page, s.total, dir)
	if !ok {
		n.mu.Unlock()
		return nil, false
	}
	f := &Flip{nav: n, sess: s, target: target, dir: dir, done: make(chan struct{})}
	s.flipping = true
	s.dir = dir
	s.flip = f
	// commit takes n.mu first, so it cannot observe f before timer is set
	f.timer = time.AfterFunc(n.delay, func() { n.commit(f) })
	n.mu.Unlock()

	n.notify(Event{Kind: EventChanged})
	n.cue.Play()
	return f, true
}

func (n *Navigator) commit(f *Flip) {
	s := f.sess
	n.mu.Lock()
	if s.flip != f || n.sess != s {
		n.mu.Unlock()
		return
	}
	f.committing = true
	s.page = f.target
	n.mu.Unlock()

	var err error
	defer func() {
		n.mu.Lock()
		if s.flip == f {
			s.flip = nil
			s.flipping = false
			s.dir = NoDirection
		}
		current := n.sess == s
		n.mu.Unlock()
		if current {
			if err != nil {
				n.notify(Event{Kind: EventRenderFailed, Err: err})
			}
			n.notify(Event{Kind: EventChanged})
		}
		f.finish(err)
	}()

	n.notify(Event{Kind: EventChanged})
	err = n.render(s)
	switch {
	case errors.Is(err, errStale):
		err = ErrFlipCanceled
	case err != nil:
		err = fmt.Errorf("render page %d: %w", f.target, err)
		n.log.Warn("flip render failed", slog.Any("err", err))
	}
}
