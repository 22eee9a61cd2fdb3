//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"image"
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	cv "slidecanvas/internal/canvas"
	"slidecanvas/internal/domain"
	"slidecanvas/internal/editor"
	"slidecanvas/internal/geom"
	"slidecanvas/internal/gesture"
	"slidecanvas/internal/media"
	"slidecanvas/internal/richtext"
)

// mousePointer is the only pointer a desktop mouse produces.
const mousePointer gesture.PointerID = 1

var (
	selectionColor = color.RGBA{R: 0, G: 170, B: 255, A: 255}
	frameStroke    = color.RGBA{R: 90, G: 90, B: 90, A: 255}
	barFill        = color.RGBA{R: 0, G: 0, B: 0, A: 28}
)

// SlideCanvas draws the current slide of a session and turns mouse input
// into editor pointer events. Zoom 0 fits the slide into the widget.
type SlideCanvas struct {
	widget.BaseWidget
	sess   *editor.Session
	zoom   float64
	active domain.ItemID
	images map[string]image.Image

	OnChanged func()
}

func NewSlideCanvas(s *editor.Session) *SlideCanvas {
	c := &SlideCanvas{sess: s, images: map[string]image.Image{}}
	c.ExtendBaseWidget(c)
	return c
}

// SetSession swaps the document shown.
func (c *SlideCanvas) SetSession(s *editor.Session) {
	c.sess = s
	c.active = ""
	c.images = map[string]image.Image{}
	c.Refresh()
}

func (c *SlideCanvas) slideSize() (w, h float64) {
	if s := c.sess.Deck().CurrentSlide(); s != nil && s.Canvas != nil {
		return s.Canvas.Width, s.Canvas.Height
	}
	return 1280, 720
}

func (c *SlideCanvas) view() view {
	w, h := c.slideSize()
	size := c.Size()
	z := c.zoom
	if z <= 0 {
		z = fitZoom(w, h, float64(size.Width)-24, float64(size.Height)-24)
	}
	return centered(z, w, h, float64(size.Width), float64(size.Height))
}

func (c *SlideCanvas) insertPoint() geom.Pt {
	return insertPoint(len(c.sess.Deck().CurrentSlide().Items()))
}

func (c *SlideCanvas) changed() {
	if c.OnChanged != nil {
		c.OnChanged()
	}
}

// MouseDown hit-tests and starts a gesture when a handle was pressed.
func (c *SlideCanvas) MouseDown(e *desktop.MouseEvent) {
	if e.Button != desktop.MouseButtonPrimary {
		return
	}
	p := c.view().toCanvas(e.Position.X, e.Position.Y)
	id, part := hitTest(c.sess.Deck().CurrentSlide().Items(), p)
	started := c.sess.Pointer(editor.PointerEvent{Type: editor.PointerDown, Pointer: mousePointer, Item: id, Part: part, At: p})
	if started && part != cv.PartBody {
		c.active = id
	}
	c.Refresh()
	c.changed()
}

func (c *SlideCanvas) MouseUp(*desktop.MouseEvent) { c.release() }

func (c *SlideCanvas) Dragged(e *fyne.DragEvent) {
	if c.active == "" {
		return
	}
	p := c.view().toCanvas(e.Position.X, e.Position.Y)
	if c.sess.Pointer(editor.PointerEvent{Type: editor.PointerMove, Pointer: mousePointer, Item: c.active, At: p}) {
		c.Refresh()
	}
}

func (c *SlideCanvas) DragEnd() { c.release() }

func (c *SlideCanvas) release() {
	if c.active == "" {
		return
	}
	c.sess.Pointer(editor.PointerEvent{Type: editor.PointerUp, Pointer: mousePointer, Item: c.active})
	c.active = ""
	c.Refresh()
	c.changed()
}

// Scrolled zooms between 10% and 400%.
func (c *SlideCanvas) Scrolled(e *fyne.ScrollEvent) {
	if c.active != "" {
		return
	}
	z := c.view().Zoom + float64(e.Scrolled.DY)*0.002
	c.zoom = geom.Clamp(z, 0.1, 4)
	c.Refresh()
}

// image decodes inline bitmaps once per source; failures are remembered as nil.
func (c *SlideCanvas) image(img *domain.Image) image.Image {
	if m, ok := c.images[img.Src]; ok {
		return m
	}
	var m image.Image
	if !img.Remote && !img.Placeholder {
		m, _ = media.Decode(img)
	}
	c.images[img.Src] = m
	return m
}

func (c *SlideCanvas) CreateRenderer() fyne.WidgetRenderer {
	return &slideRenderer{c: c, bg: canvas.NewRectangle(color.RGBA{R: 30, G: 30, B: 34, A: 255})}
}

func (c *SlideCanvas) MinSize() fyne.Size { return fyne.NewSize(640, 360) }

// slideRenderer rebuilds its objects from the session on every refresh.
type slideRenderer struct {
	c       *SlideCanvas
	bg      *canvas.Rectangle
	objects []fyne.CanvasObject
}

func (r *slideRenderer) Destroy()                     {}
func (r *slideRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *slideRenderer) MinSize() fyne.Size           { return r.c.MinSize() }
func (r *slideRenderer) Refresh()                     { r.Layout(r.c.Size()); canvas.Refresh(r.c) }

func (r *slideRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
	r.bg.Move(fyne.NewPos(0, 0))
	objs := []fyne.CanvasObject{r.bg}

	v := r.c.view()
	s := r.c.sess.Deck().CurrentSlide()
	if s == nil {
		r.objects = objs
		return
	}
	w, h := r.c.slideSize()
	objs = append(objs, rect(v, geom.R(0, 0, w, h), color.White, frameStroke, 1))
	if s.Canvas == nil {
		t := canvas.NewText(firstLine(richtext.PlainText(s.Static)), color.Black)
		t.TextSize = float32(32 * v.zoom())
		t.TextStyle.Bold = true
		x, y := v.toScreen(geom.Pt{X: w * 0.1, Y: h * 0.4})
		t.Move(fyne.NewPos(x, y))
		objs = append(objs, t)
	}

	selected := r.c.sess.Selected()
	for _, it := range s.Items() {
		cr, cg, cb := it.Color.RGB()
		if it.Effect == domain.EffectShadow {
			sh := it.Rect
			sh.X, sh.Y = sh.X+4, sh.Y+4
			objs = append(objs, rect(v, sh, color.RGBA{A: 60}, nil, 0))
		}
		objs = append(objs, rect(v, it.Rect, color.RGBA{R: cr, G: cg, B: cb, A: 255}, frameStroke, 1))
		if img, ok := it.Content.(*domain.Image); ok {
			if m := r.c.image(img); m != nil {
				ci := canvas.NewImageFromImage(m)
				ci.FillMode = canvas.ImageFillContain
				place(v, ci, it.Rect)
				objs = append(objs, ci)
			}
		}
		objs = append(objs, rect(v, geom.R(it.Rect.X, it.Rect.Y, it.Rect.W, dragBarHeight), barFill, nil, 0))

		label := canvas.NewText(itemLabel(it), color.Black)
		label.TextSize = float32(max(14*v.zoom(), 8))
		x, y := v.toScreen(geom.Pt{X: it.Rect.X + 6, Y: it.Rect.Y + dragBarHeight + 4})
		label.Move(fyne.NewPos(x, y))
		objs = append(objs, label)

		objs = append(objs, rect(v, geom.R(it.Rect.X+it.Rect.W-resizeHandle, it.Rect.Y+it.Rect.H-resizeHandle, resizeHandle, resizeHandle), frameStroke, nil, 0))
		if selected != nil && selected.ID == it.ID {
			objs = append(objs, rect(v, it.Rect, color.Transparent, selectionColor, 2))
		}
	}
	r.objects = objs
}

func rect(v view, g geom.Rect, fill color.Color, stroke color.Color, width float32) *canvas.Rectangle {
	rc := canvas.NewRectangle(fill)
	if stroke != nil {
		rc.StrokeColor = stroke
		rc.StrokeWidth = width
	}
	place(v, rc, g)
	return rc
}

func place(v view, o fyne.CanvasObject, g geom.Rect) {
	x0, y0 := v.toScreen(g.Origin())
	x1, y1 := v.toScreen(g.Max())
	o.Move(fyne.NewPos(x0, y0))
	o.Resize(fyne.NewSize(x1-x0, y1-y0))
}
