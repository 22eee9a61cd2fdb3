/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"slidecanvas/internal/canvas"
	"slidecanvas/internal/domain"
	"slidecanvas/internal/editor"
	"slidecanvas/internal/geom"
	"slidecanvas/internal/richtext"
)

// Handle sizes in canvas units.
const (
	dragBarHeight = 14.0
	resizeHandle  = 12.0
)

// view maps between widget positions and canvas coordinates. The slide is
// drawn at Off with uniform Zoom.
type view struct {
	Off  geom.Pt
	Zoom float64
}

func (v view) zoom() float64 {
	if v.Zoom <= 0 {
		return 1
	}
	return v.Zoom
}

func (v view) toCanvas(x, y float32) geom.Pt {
	z := v.zoom()
	return geom.Pt{X: (float64(x) - v.Off.X) / z, Y: (float64(y) - v.Off.Y) / z}
}

func (v view) toScreen(p geom.Pt) (x, y float32) {
	z := v.zoom()
	return float32(v.Off.X + p.X*z), float32(v.Off.Y + p.Y*z)
}

// centered places a w×h slide in the middle of a widget of the given size.
func centered(zoom float64, w, h, widgetW, widgetH float64) view {
	if zoom <= 0 {
		zoom = 1
	}
	return view{Off: geom.Pt{X: (widgetW - w*zoom) / 2, Y: (widgetH - h*zoom) / 2}, Zoom: zoom}
}

// fitZoom is the largest zoom that shows the whole slide, capped at 1.
func fitZoom(w, h, widgetW, widgetH float64) float64 {
	if w <= 0 || h <= 0 || widgetW <= 0 || widgetH <= 0 {
		return 1
	}
	return min(widgetW/w, widgetH/h, 1)
}

// hitTest returns the top-most item under p and which part was hit. Items
// later in the list are drawn on top.
func hitTest(items []*domain.Item, p geom.Pt) (domain.ItemID, canvas.Part) {
	for i := len(items) - 1; i >= 0; i-- {
		r := items[i].Rect
		if !r.Contains(p) {
			continue
		}
		switch {
		case p.X >= r.X+r.W-resizeHandle && p.Y >= r.Y+r.H-resizeHandle:
			return items[i].ID, canvas.PartResizeHandle
		case p.Y < r.Y+dragBarHeight:
			return items[i].ID, canvas.PartDragHandle
		default:
			return items[i].ID, canvas.PartBody
		}
	}
	return "", 0
}

// slideTitle is the navigator label of slide i.
func slideTitle(d *domain.Deck, i int) string {
	s := d.Slides[i]
	label := string(s.Layout)
	if s.Section != "" {
		label = s.Section + " · " + label
	}
	if n := len(s.Items()); n > 0 {
		return fmt.Sprintf("%d. %s (%d)", i+1, label, n)
	}
	return fmt.Sprintf("%d. %s", i+1, label)
}

// itemLabel is the one line drawn inside an item frame on the canvas.
func itemLabel(it *domain.Item) string {
	switch c := it.Content.(type) {
	case *domain.TextBox:
		if t := firstLine(richtext.PlainText(c.Body)); t != "" {
			return t
		}
	case *domain.Image:
		if c.Alt != "" {
			return c.Alt
		}
	}
	return editor.Describe(it).Summary
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(line)
}

// insertPoint cascades new items so they do not stack exactly.
func insertPoint(items int) geom.Pt {
	off := 40 + 24*float64(items%10)
	return geom.Pt{X: off, Y: off}
}

// editableLeaf is the text leaf the panel entry edits for it.
func editableLeaf(it *domain.Item) (editor.Leaf, string, bool) {
	if it == nil {
		return editor.Leaf{}, "", false
	}
	switch c := it.Content.(type) {
	case *domain.TextBox:
		return editor.BodyLeaf(), c.Body, true
	case *domain.MindMap:
		return editor.CenterLeaf(), c.Center, true
	}
	return editor.Leaf{}, "", false
}

// entrySelection turns an entry cursor and its selected text into rune
// offsets of text. The selection may end or start at the cursor.
func entrySelection(text string, row, col int, selected string) (start, end int) {
	runes := []rune(text)
	cur := 0
	for i, line := range strings.Split(text, "\n") {
		if i == row {
			cur += min(col, len([]rune(line)))
			break
		}
		cur += len([]rune(line)) + 1
	}
	cur = min(cur, len(runes))
	sel := []rune(selected)
	n := len(sel)
	switch {
	case n == 0:
		return cur, cur
	case cur-n >= 0 && string(runes[cur-n:cur]) == selected:
		return cur - n, cur
	case cur+n <= len(runes) && string(runes[cur:cur+n]) == selected:
		return cur, cur + n
	}
	return cur, cur
}

// plainMarkup turns entry text into one paragraph per line.
func plainMarkup(text string) string {
	var b strings.Builder
	for _, line := range strings.Split(text, "\n") {
		b.WriteString("<p>")
		b.WriteString(html.EscapeString(line))
		b.WriteString("</p>")
	}
	return b.String()
}
