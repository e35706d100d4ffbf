/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package app

import (
	"fmt"

	"gopdfreader/internal/reader"
)

// EntryView is one row of the library list.
type EntryView struct {
	ID      int64
	Title   string
	Locator string
	Added   string
	Active  bool
}

// ViewModel is everything a front end needs to draw one frame.
type ViewModel struct {
	Screen      reader.View
	Entries     []EntryView
	ActiveTitle string
	Page        int
	Total       int
	PageLabel   string
	ZoomLabel   string
	CanPrev     bool
	CanNext     bool
	Flipping    bool
	Direction   reader.Direction
	PanelOpen   bool
	Input       string
	Notice      string
	Busy        bool
}

// PageLabel renders "Page 3 of 10".
func PageLabel(page, total int) string { return fmt.Sprintf("Page %d of %d", page, total) }

// ZoomLabel renders a zoom percentage such as "120%".
func ZoomLabel(percent int) string { return fmt.Sprintf("%d%%", percent) }

// View derives the current view model.
func (c *Controller) View() ViewModel {
	snap := c.nav.Snapshot()
	c.mu.Lock()
	vm := ViewModel{
		Screen:    snap.View,
		PanelOpen: c.panelOpen,
		Input:     c.input,
		Notice:    c.notice,
		Busy:      c.busy,
		ZoomLabel: ZoomLabel(snap.ZoomPercent),
	}
	c.mu.Unlock()

	active := snap.View == reader.ViewReader
	for _, e := range c.cat.List() {
		vm.Entries = append(vm.Entries, EntryView{
			ID:      e.ID,
			Title:   e.Title,
			Locator: e.Locator,
			Added:   e.AddedDate.Local().Format(DateLayout),
			Active:  active && e.ID == snap.Entry.ID,
		})
	}
	if active {
		vm.ActiveTitle = snap.Entry.Title
		vm.Page = snap.Page
		vm.Total = snap.Total
		vm.PageLabel = PageLabel(snap.Page, snap.Total)
		vm.CanPrev = snap.CanFlip(reader.Prev)
		vm.CanNext = snap.CanFlip(reader.Next)
		vm.Flipping = snap.Flipping
		vm.Direction = snap.Direction
	}
	return vm
}
