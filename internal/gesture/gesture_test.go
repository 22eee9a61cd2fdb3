/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package gesture

import (
	"math/rand"
	"testing"

	"slidecanvas/internal/domain"
	"slidecanvas/internal/geom"
)

func item(kind domain.Content, r geom.Rect) *domain.Item {
	return &domain.Item{ID: domain.NewItemID(), Rect: r, Content: kind}
}

var vp = Viewport{Origin: geom.Pt{X: 100, Y: 50}, Scroll: geom.Pt{X: 0, Y: 0}, ScrollSize: geom.Size{W: 1280, H: 720}}

func TestDragKeepsPointerOffset(t *testing.T) {
	caps := NewCaptures()
	d := NewDrag(caps)
	it := item(&domain.TextBox{}, geom.R(200, 100, 300, 120))
	// Pointer grabs the item 20px right and 10px below its corner.
	if !d.Start(it, 1, geom.Pt{X: 320, Y: 160}, vp) {
		t.Fatalf("start failed")
	}
	d.Move(it, 1, geom.Pt{X: 420, Y: 260}, vp)
	if it.Rect.X != 300 || it.Rect.Y != 200 {
		t.Fatalf("moved to %+v", it.Rect)
	}
	if !d.End(it, 1) || caps.Active() != 0 {
		t.Fatalf("capture not released")
	}
}

func TestDragAccountsForScroll(t *testing.T) {
	d := NewDrag(NewCaptures())
	it := item(&domain.TextBox{}, geom.R(500, 400, 300, 120))
	scrolled := vp
	scrolled.Scroll = geom.Pt{X: 200, Y: 100}
	scrolled.ScrollSize = geom.Size{W: 2000, H: 1500}
	d.Start(it, 1, geom.Pt{X: 400, Y: 350}, scrolled) // container (500,400)
	d.Move(it, 1, geom.Pt{X: 450, Y: 370}, scrolled)
	if it.Rect.X != 550 || it.Rect.Y != 420 {
		t.Fatalf("scroll not applied: %+v", it.Rect)
	}
}

func TestDragClampProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	caps := NewCaptures()
	d := NewDrag(caps)
	it := item(&domain.Table{}, geom.R(10, 10, 400, 300))
	start := geom.Pt{X: 150, Y: 100}
	d.Start(it, 9, start, vp)
	p := start
	for i := 0; i < 500; i++ {
		p.X += rng.Float64()*800 - 400
		p.Y += rng.Float64()*800 - 400
		d.Move(it, 9, p, vp)
		maxX, maxY := vp.ScrollSize.W-it.Rect.W, vp.ScrollSize.H-it.Rect.H
		if it.Rect.X < 0 || it.Rect.X > maxX || it.Rect.Y < 0 || it.Rect.Y > maxY {
			t.Fatalf("step %d escaped bounds: %+v", i, it.Rect)
		}
	}
}

func TestSecondPointerCannotHijackOrRestart(t *testing.T) {
	caps := NewCaptures()
	d := NewDrag(caps)
	rs := NewResize(caps)
	it := item(&domain.TextBox{}, geom.R(0, 0, 200, 100))
	d.Start(it, 1, geom.Pt{X: 110, Y: 60}, vp)
	if d.Start(it, 2, geom.Pt{X: 110, Y: 60}, vp) {
		t.Fatalf("second drag on the same item started")
	}
	if rs.Start(it, 2, geom.Pt{X: 300, Y: 150}, vp) {
		t.Fatalf("resize started on an item mid-drag")
	}
	before := it.Rect
	if d.Move(it, 2, geom.Pt{X: 500, Y: 500}, vp) || it.Rect != before {
		t.Fatalf("foreign pointer moved the item")
	}
	if d.End(it, 2) {
		t.Fatalf("foreign pointer released the capture")
	}
	other := item(&domain.TextBox{}, geom.R(400, 300, 200, 100))
	if !d.Start(other, 2, geom.Pt{X: 510, Y: 360}, vp) {
		t.Fatalf("concurrent drag on another item refused")
	}
}

func TestResizeFloorAndCeiling(t *testing.T) {
	rs := NewResize(NewCaptures())
	it := item(&domain.Image{}, geom.R(1000, 500, 200, 150))
	at := geom.Pt{X: 1300, Y: 700}
	rs.Start(it, 1, at, vp)

	rs.Move(it, 1, geom.Pt{X: at.X - 500, Y: at.Y - 500}, vp)
	if it.Rect.W != 160 || it.Rect.H != 120 {
		t.Fatalf("minimum not enforced: %+v", it.Rect)
	}
	rs.Move(it, 1, geom.Pt{X: at.X + 900, Y: at.Y + 900}, vp)
	if it.Rect.W != 280 || it.Rect.H != 220 {
		t.Fatalf("scroll bound not enforced: %+v", it.Rect)
	}
	rs.Cancel(it, 1)
	if it.Rect.W != 280 || it.Rect.H != 220 {
		t.Fatalf("cancel rolled back the last valid size: %+v", it.Rect)
	}
}

func TestResizeMinimumWinsOverScrollBound(t *testing.T) {
	rs := NewResize(NewCaptures())
	it := item(&domain.Table{}, geom.R(1200, 650, 240, 200))
	rs.Start(it, 1, geom.Pt{}, vp)
	rs.Move(it, 1, geom.Pt{X: 10, Y: 10}, vp)
	if it.Rect.W < 240 || it.Rect.H < 200 {
		t.Fatalf("fell below table minimum: %+v", it.Rect)
	}
}

func TestResizeFloorProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	kinds := []domain.Content{&domain.TextBox{}, &domain.Table{}, &domain.MindMap{}, &domain.Image{}, &domain.ModuleEmbed{}}
	for _, k := range kinds {
		rs := NewResize(NewCaptures())
		it := item(k, geom.R(rng.Float64()*600, rng.Float64()*300, 400, 300))
		p := geom.Pt{X: 700, Y: 500}
		rs.Start(it, 4, p, vp)
		for i := 0; i < 200; i++ {
			p.X += rng.Float64()*600 - 300
			p.Y += rng.Float64()*600 - 300
			rs.Move(it, 4, p, vp)
			m := k.Kind().MinSize()
			if it.Rect.W < m.W || it.Rect.H < m.H {
				t.Fatalf("%v below minimum: %+v", k.Kind(), it.Rect)
			}
		}
		rs.End(it, 4)
	}
}
