//go:build fyne

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"image"
	"image/color"
	"math"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"

	"gopdfreader/internal/reader"
)

// PageView shows one rendered page at its pixel size and plays the page
// turn animation while a flip is pending.
type PageView struct {
	widget.BaseWidget

	img  image.Image
	page int
	// fold is the visible fraction of the page width, 1 when idle.
	fold float32
	dir  reader.Direction
	anim *fyne.Animation
}

func NewPageView() *PageView {
	pv := &PageView{fold: 1}
	pv.ExtendBaseWidget(pv)
	return pv
}

// SetPage replaces the displayed image. Must run on the UI goroutine.
func (p *PageView) SetPage(img image.Image, page int) {
	p.img = img
	p.page = page
	p.Refresh()
}

// Page is the number of the page on screen, 0 before the first render.
func (p *PageView) Page() int { return p.page }

// StartFlip folds the page towards the spine over d. Calling it again while
// an animation runs restarts it.
func (p *PageView) StartFlip(dir reader.Direction, d time.Duration) {
	p.StopFlip()
	if d <= 0 {
		return
	}
	p.dir = dir
	p.anim = fyne.NewAnimation(d, func(v float32) {
		// fold to the spine and back: 1 -> 0 -> 1
		p.fold = float32(math.Abs(math.Cos(math.Pi * float64(v))))
		p.Refresh()
	})
	p.anim.Curve = fyne.AnimationEaseInOut
	p.anim.Start()
}

// StopFlip ends the animation and shows the full page.
func (p *PageView) StopFlip() {
	if p.anim != nil {
		p.anim.Stop()
		p.anim = nil
	}
	p.fold = 1
	p.dir = reader.NoDirection
	p.Refresh()
}

func (p *PageView) CreateRenderer() fyne.WidgetRenderer {
	r := &pageViewRenderer{
		pv:     p,
		bg:     canvas.NewRectangle(color.RGBA{R: 42, G: 42, B: 46, A: 255}),
		shade:  canvas.NewRectangle(color.RGBA{A: 0}),
		raster: canvas.NewImageFromImage(nil),
	}
	r.raster.FillMode = canvas.ImageFillStretch
	r.raster.ScaleMode = canvas.ImageScaleSmooth
	r.objects = []fyne.CanvasObject{r.bg, r.raster, r.shade}
	return r
}

type pageViewRenderer struct {
	pv      *PageView
	bg      *canvas.Rectangle
	raster  *canvas.Image
	shade   *canvas.Rectangle
	objects []fyne.CanvasObject
}

func (r *pageViewRenderer) Destroy()                     {}
func (r *pageViewRenderer) Objects() []fyne.CanvasObject { return r.objects }

// pageSize converts image pixels to canvas units so a 1.0 render scale maps
// to 72 dpi regardless of the screen scale.
func (r *pageViewRenderer) pageSize() fyne.Size {
	if r.pv.img == nil {
		return fyne.NewSize(0, 0)
	}
	b := r.pv.img.Bounds()
	return fyne.NewSize(float32(b.Dx()), float32(b.Dy()))
}

func (r *pageViewRenderer) MinSize() fyne.Size {
	s := r.pageSize()
	return fyne.NewSize(s.Width+16, s.Height+16)
}

func (r *pageViewRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
	r.bg.Move(fyne.NewPos(0, 0))
	ps := r.pageSize()
	x := (size.Width - ps.Width) / 2
	y := (size.Height - ps.Height) / 2
	if x < 8 {
		x = 8
	}
	if y < 8 {
		y = 8
	}
	w := ps.Width * r.pv.fold
	// Next folds towards the left edge, Prev towards the right.
	if r.pv.dir == reader.Prev {
		x += ps.Width - w
	}
	r.raster.Resize(fyne.NewSize(w, ps.Height))
	r.raster.Move(fyne.NewPos(x, y))
	r.shade.Resize(fyne.NewSize(w, ps.Height))
	r.shade.Move(fyne.NewPos(x, y))
}

func (r *pageViewRenderer) Refresh() {
	if r.raster.Image != r.pv.img {
		r.raster.Image = r.pv.img
		r.raster.Refresh()
	}
	// darken as the page folds
	r.shade.FillColor = color.RGBA{A: uint8(140 * (1 - r.pv.fold))}
	r.Layout(r.pv.Size())
	canvas.Refresh(r.pv)
}
