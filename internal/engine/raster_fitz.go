//go:build cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package engine

import (
	"image"

	"github.com/gen2brain/go-fitz"
)

type fitzRasterizer struct{ doc *fitz.Document }

func openRasterizer(path string) (rasterizer, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, err
	}
	return &fitzRasterizer{doc: doc}, nil
}

func (f *fitzRasterizer) NumPage() int { return f.doc.NumPage() }

func (f *fitzRasterizer) Render(page int, dpi float64) (image.Image, error) {
	return f.doc.ImageDPI(page, dpi)
}

func (f *fitzRasterizer) Close() error { return f.doc.Close() }
