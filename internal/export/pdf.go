/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"gopdfreader/internal/library"
	"gopdfreader/internal/version"
)

// PDFOptions controls the PDF index layout. Units are millimetres on A4.
type PDFOptions struct {
	Title  string
	Thumbs ThumbSource
	// Now stamps the header; nil means time.Now.
	Now func() time.Time
}

const (
	pageH     = 297.0
	margin    = 15.0
	thumbW    = 20.0
	rowText   = 14.0
	rowThumb  = 30.0
	textWidth = 180.0
)

// LibraryPDF writes one row per entry: thumbnail, title, date added and the
// locator as a link.
func LibraryPDF(entries []library.Entry, outPath string, opt PDFOptions) error {
	title := opt.Title
	if title == "" {
		title = "Library"
	}
	now := time.Now
	if opt.Now != nil {
		now = opt.Now
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(false, margin)
	pdf.SetTitle(title, true)
	pdf.SetCreator("GoPDFReader "+version.String(), true)
	// core fonts are cp1252; translate so titles with accents survive
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, tr(title), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(110, 110, 110)
	pdf.CellFormat(0, 6, fmt.Sprintf("%d documents, exported %s", len(entries), now().Format("2006-01-02 15:04")), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	for _, e := range entries {
		var png []byte
		if opt.Thumbs != nil {
			png = opt.Thumbs(e.ID)
		}
		rowH := rowText
		if png != nil {
			rowH = rowThumb
		}
		if pdf.GetY()+rowH > pageH-margin {
			pdf.AddPage()
		}
		y := pdf.GetY()
		x := margin
		if png != nil {
			name := fmt.Sprintf("thumb-%d", e.ID)
			pdf.RegisterImageOptionsReader(name, gofpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(png))
			if pdf.Ok() {
				pdf.ImageOptions(name, x, y, thumbW, 0, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
				x += thumbW + 4
			} else {
				// a broken thumbnail must not sink the whole export
				pdf.ClearError()
			}
		}
		w := textWidth - (x - margin)
		pdf.SetXY(x, y)
		pdf.SetTextColor(0, 0, 0)
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(w, 6, tr(e.Title), "", 2, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(90, 90, 90)
		pdf.CellFormat(w, 4, "Added "+e.AddedDate.UTC().Format("2006-01-02"), "", 2, "L", false, 0, "")
		pdf.SetTextColor(20, 60, 160)
		pdf.CellFormat(w, 4, tr(truncate(e.Locator, 110)), "", 2, "L", false, 0, e.Locator)
		pdf.SetDrawColor(220, 220, 220)
		pdf.Line(margin, y+rowH-2, margin+textWidth, y+rowH-2)
		pdf.SetY(y + rowH)
	}
	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
