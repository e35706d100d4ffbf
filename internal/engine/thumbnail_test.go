/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package engine

import (
	"bytes"
	"image"
	"image/png"
	"testing"
)

func TestThumbnailKeepsAspect(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 400, 600))
	th := Thumbnail(src, 100)
	if b := th.Bounds(); b.Dx() != 100 || b.Dy() != 150 {
		t.Fatalf("thumbnail bounds = %v", b)
	}
	small := image.NewRGBA(image.Rect(0, 0, 50, 80))
	if Thumbnail(small, 100) != image.Image(small) {
		t.Fatalf("narrow image should be returned unchanged")
	}
}

func TestEncodePNG(t *testing.T) {
	data, h, err := EncodePNG(image.NewRGBA(image.Rect(0, 0, 300, 200)), 150)
	if err != nil {
		t.Fatalf("EncodePNG: %v", err)
	}
	if h != 100 {
		t.Fatalf("height = %d", h)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() != 150 {
		t.Fatalf("width = %d", img.Bounds().Dx())
	}
}
