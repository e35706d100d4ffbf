//go:build fyne

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import "fyne.io/fyne/v2"

// PrefsKV stores library values in the fyne app preferences, the desktop
// counterpart of browser local storage.
type PrefsKV struct{ p fyne.Preferences }

func NewPrefsKV(p fyne.Preferences) *PrefsKV { return &PrefsKV{p: p} }

func (k *PrefsKV) ReadAll(key string) (string, bool, error) {
	v := k.p.String(key)
	return v, v != "", nil
}

func (k *PrefsKV) WriteAll(key, raw string) error {
	k.p.SetString(key, raw)
	return nil
}
