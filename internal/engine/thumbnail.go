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

	"golang.org/x/image/draw"
)

// Thumbnail scales img down to maxW pixels wide, keeping the aspect ratio.
// Images already narrower are returned unchanged.
func Thumbnail(img image.Image, maxW int) image.Image {
	b := img.Bounds()
	if maxW <= 0 || b.Dx() <= maxW {
		return img
	}
	h := b.Dy() * maxW / b.Dx()
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, maxW, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// EncodePNG is Thumbnail followed by PNG encoding; it also returns the height.
func EncodePNG(img image.Image, maxW int) ([]byte, int, error) {
	t := Thumbnail(img, maxW)
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, t); err != nil {
		return nil, 0, err
	}
	return buf.Bytes(), t.Bounds().Dy(), nil
}
