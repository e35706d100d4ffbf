/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package library

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/xeipuuv/gojsonschema"
)

// DateLayout is the persisted form of AddedDate: UTC with millisecond precision.
const DateLayout = "2006-01-02T15:04:05.000Z"

//go:embed library.schema.json
var schemaJSON string

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	})
	return schema, schemaErr
}

// wireEntry is the stored layout of an Entry.
type wireEntry struct {
	ID        int64  `json:"id"`
	URL       string `json:"url"`
	Title     string `json:"title"`
	AddedDate string `json:"addedDate"`
}

// Encode renders entries in the persisted JSON layout.
func Encode(entries []Entry) ([]byte, error) {
	out := make([]wireEntry, len(entries))
	for i, e := range entries {
		out[i] = wireEntry{ID: e.ID, URL: e.Locator, Title: e.Title, AddedDate: e.AddedDate.UTC().Format(DateLayout)}
	}
	return json.Marshal(out)
}

// Validate reports whether raw is a usable persisted library.
func Validate(raw []byte) error {
	_, err := Decode(raw)
	return err
}

// Decode parses and validates the persisted JSON layout. Entries repeating
// an earlier locator are dropped so the result never violates uniqueness.
func Decode(raw []byte) ([]Entry, error) {
	s, err := compiledSchema()
	if err != nil {
		return nil, fmt.Errorf("compile library schema: %w", err)
	}
	res, err := s.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode library: %w", err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("library does not match schema: %s", strings.Join(msgs, "; "))
	}
	var in []wireEntry
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, fmt.Errorf("decode library: %w", err)
	}
	seen := make(map[string]bool, len(in))
	out := make([]Entry, 0, len(in))
	for _, w := range in {
		if seen[w.URL] {
			continue
		}
		seen[w.URL] = true
		added, err := time.Parse(time.RFC3339Nano, w.AddedDate)
		if err != nil {
			return nil, fmt.Errorf("entry %d: addedDate: %w", w.ID, err)
		}
		out = append(out, Entry{ID: w.ID, Locator: w.URL, Title: w.Title, AddedDate: added.UTC()})
	}
	return out, nil
}
