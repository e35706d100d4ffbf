/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package engine

import (
	"fmt"
	"strings"
	"unicode/utf16"

	"github.com/tsawler/tabula/core"
	"github.com/tsawler/tabula/reader"
)

// Probe parses the PDF structure at path and returns its metadata.
func Probe(path string) (Info, error) {
	r, err := reader.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("probe: %w", err)
	}
	defer r.Close()
	n, err := r.PageCount()
	if err != nil {
		return Info{}, fmt.Errorf("probe page count: %w", err)
	}
	info := Info{Pages: n, Version: r.Version().String()}
	// Info is optional and often broken in the wild; a bad one is not fatal.
	dict, err := r.GetInfo()
	if err != nil || dict == nil {
		return info, nil
	}
	text := func(key string) string {
		obj, ok := dict[key]
		if !ok || obj == nil {
			return ""
		}
		obj, err := r.Resolve(obj)
		if err != nil {
			return ""
		}
		s, ok := obj.(core.String)
		if !ok {
			return ""
		}
		return decodePDFText(string(s))
	}
	info.Title = text("Title")
	info.Author = text("Author")
	info.Producer = text("Producer")
	return info, nil
}

// decodePDFText handles the UTF-16BE (with BOM) form of PDF text strings.
// Everything else is returned as is.
func decodePDFText(s string) string {
	if len(s) >= 2 && s[0] == 0xFE && s[1] == 0xFF {
		b := []byte(s[2:])
		u := make([]uint16, 0, len(b)/2)
		for i := 0; i+1 < len(b); i += 2 {
			u = append(u, uint16(b[i])<<8|uint16(b[i+1]))
		}
		s = string(utf16.Decode(u))
	}
	return strings.TrimSpace(strings.TrimRight(s, "\x00"))
}
