/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package ui is the fyne desktop front end. Without the "fyne" build tag
// only a stub Run is compiled so headless builds stay free of OpenGL.
package ui

import "gopdfreader/internal/config"

// Options start the desktop UI.
type Options struct {
	Config   config.AppConfig
	Password string
	// Locator is opened right after start when set.
	Locator string
}

// Action is what a key press asks the reader to do.
type Action int

const (
	ActionNone Action = iota
	ActionNext
	ActionPrev
	ActionZoomIn
	ActionZoomOut
	ActionHome
)

// KeyAction maps a fyne key name or typed rune to an Action. Key names are
// passed as strings so the mapping compiles without fyne.
func KeyAction(key string, r rune) Action {
	switch key {
	case "Right", "Next", "Space":
		return ActionNext
	case "Left", "Prior", "BackSpace":
		return ActionPrev
	case "Escape":
		return ActionHome
	}
	switch r {
	case '+', '=':
		return ActionZoomIn
	case '-', '_':
		return ActionZoomOut
	}
	return ActionNone
}
