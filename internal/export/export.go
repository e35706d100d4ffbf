/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export writes the library to shareable files: a printable PDF
// index, the JSON wire layout, or a zip bundle of both plus thumbnails.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopdfreader/internal/library"
)

// Format names accepted by Library.
const (
	FormatPDF  = "pdf"
	FormatJSON = "json"
	FormatZip  = "zip"
)

// ThumbSource returns the PNG thumbnail of an entry, or nil.
type ThumbSource func(entryID int64) []byte

// Options controls a library export.
type Options struct {
	Format  string
	OutPath string
	// Title heads the PDF index; empty means "Library".
	Title string
	// Thumbs is optional; PDF and zip embed thumbnails when set.
	Thumbs ThumbSource
}

// ParseFormat normalizes a user supplied format, or derives it from the
// output file extension when format is empty.
func ParseFormat(format, outPath string) (string, error) {
	f := strings.ToLower(strings.TrimSpace(format))
	if f == "" {
		f = strings.TrimPrefix(strings.ToLower(filepath.Ext(outPath)), ".")
	}
	switch f {
	case FormatPDF, FormatJSON, FormatZip:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported export format %q (want pdf, json or zip)", f)
	}
}

// Library exports entries according to opt.
func Library(entries []library.Entry, opt Options) error {
	if strings.TrimSpace(opt.OutPath) == "" {
		return fmt.Errorf("output path is required")
	}
	f, err := ParseFormat(opt.Format, opt.OutPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(opt.OutPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	switch f {
	case FormatPDF:
		return LibraryPDF(entries, opt.OutPath, PDFOptions{Title: opt.Title, Thumbs: opt.Thumbs})
	case FormatJSON:
		return LibraryJSON(entries, opt.OutPath)
	default:
		return LibraryZip(entries, opt.OutPath, opt.Thumbs)
	}
}
