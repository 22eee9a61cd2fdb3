/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"strings"
	"testing"

	"slidecanvas/internal/canvas"
	"slidecanvas/internal/domain"
	"slidecanvas/internal/editor"
	"slidecanvas/internal/geom"
	"slidecanvas/internal/richtext"
)

func TestViewRoundTrip(t *testing.T) {
	v := centered(0.5, 1280, 720, 1000, 600)
	if v.Off.X != 180 || v.Off.Y != 120 {
		t.Fatalf("unexpected offset %+v", v.Off)
	}
	x, y := v.toScreen(geom.Pt{X: 100, Y: 40})
	if x != 230 || y != 140 {
		t.Fatalf("toScreen = %v,%v", x, y)
	}
	if p := v.toCanvas(x, y); p.X != 100 || p.Y != 40 {
		t.Fatalf("toCanvas = %+v", p)
	}
}

func TestFitZoom(t *testing.T) {
	if z := fitZoom(1280, 720, 640, 720); z != 0.5 {
		t.Fatalf("fit = %v", z)
	}
	if z := fitZoom(1280, 720, 4000, 4000); z != 1 {
		t.Fatalf("fit should cap at 1, got %v", z)
	}
	if z := fitZoom(0, 0, 10, 10); z != 1 {
		t.Fatalf("degenerate fit = %v", z)
	}
}

func TestHitTestParts(t *testing.T) {
	under := &domain.Item{ID: "under", Rect: geom.R(0, 0, 400, 300)}
	over := &domain.Item{ID: "over", Rect: geom.R(100, 100, 200, 100)}
	items := []*domain.Item{under, over}

	cases := []struct {
		p    geom.Pt
		id   domain.ItemID
		part canvas.Part
	}{
		{geom.Pt{X: 150, Y: 150}, "over", canvas.PartBody},
		{geom.Pt{X: 150, Y: 105}, "over", canvas.PartDragHandle},
		{geom.Pt{X: 295, Y: 195}, "over", canvas.PartResizeHandle},
		{geom.Pt{X: 20, Y: 200}, "under", canvas.PartBody},
		{geom.Pt{X: 500, Y: 500}, "", 0},
	}
	for _, c := range cases {
		id, part := hitTest(items, c.p)
		if id != c.id || part != c.part {
			t.Fatalf("hit %+v = %q/%v, want %q/%v", c.p, id, part, c.id, c.part)
		}
	}
}

func TestSlideTitleAndLabels(t *testing.T) {
	d := domain.NewDeck("d")
	s := domain.NewBlankSlide(1280, 720)
	s.Section = "Intro"
	s.Canvas.Items = append(s.Canvas.Items, &domain.Item{ID: "a", Content: &domain.TextBox{Body: "<p>First</p><p>Second</p>"}})
	d.Slides = append(d.Slides, s, &domain.Slide{ID: "t", Layout: domain.LayoutTitle})
	if got := slideTitle(d, 0); got != "1. Intro · blank (1)" {
		t.Fatalf("title = %q", got)
	}
	if got := slideTitle(d, 1); got != "2. title" {
		t.Fatalf("title = %q", got)
	}
	if got := itemLabel(s.Canvas.Items[0]); got != "First" {
		t.Fatalf("label = %q", got)
	}
	if got := itemLabel(&domain.Item{Content: &domain.Table{Header: []string{"a"}, Rows: [][]string{{""}}}}); got != "Table" {
		t.Fatalf("table label = %q", got)
	}
	if p := insertPoint(11); p.X != 64 || p.Y != 64 {
		t.Fatalf("insert point = %+v", p)
	}
}

func TestEntrySelection(t *testing.T) {
	text := "one\ntwo three"
	cases := []struct {
		row, col   int
		sel        string
		start, end int
	}{
		{1, 3, "two", 4, 7}, // selected left to right
		{1, 0, "two", 4, 7}, // selected right to left
		{0, 2, "", 2, 2},    // caret
		{1, 99, "", 13, 13}, // column past the line end
		{0, 1, "zzz", 1, 1}, // stale selection
		{1, 9, "three", 8, 13},
	}
	for _, c := range cases {
		s, e := entrySelection(text, c.row, c.col, c.sel)
		if s != c.start || e != c.end {
			t.Fatalf("entrySelection(%d,%d,%q) = %d,%d want %d,%d", c.row, c.col, c.sel, s, e, c.start, c.end)
		}
	}
}

func TestPlainMarkupEscapesLines(t *testing.T) {
	if got := plainMarkup("a < b\nc"); got != "<p>a &lt; b</p><p>c</p>" {
		t.Fatalf("plainMarkup = %q", got)
	}
}

func TestEntrySelectionDrivesTextFormatting(t *testing.T) {
	sess := editor.NewSession(nil, editor.Options{})
	it, err := sess.AddTextBox(geom.Pt{X: 40, Y: 40})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	leaf, _, ok := editableLeaf(it)
	if !ok || !sess.SetText(it.ID, leaf, "<p>one</p><p>two three</p>") {
		t.Fatalf("set text failed")
	}
	_, markup, _ := editableLeaf(it)
	doc := richtext.Parse(markup)
	text := doc.Text()
	s, e := entrySelection(text, 1, 3, "two")
	if !sess.Focus(leaf, doc.TextRange(s, e)) || !sess.ApplyTextFormat(richtext.Bold) {
		t.Fatalf("formatting through the entry selection failed")
	}
	body := it.Content.(*domain.TextBox).Body
	if !strings.Contains(body, "<b>two</b>") || strings.Contains(body, "<b>one") {
		t.Fatalf("unexpected body %q", body)
	}
	if _, _, ok := editableLeaf(&domain.Item{Content: &domain.Image{}}); ok {
		t.Fatalf("images have no editable text")
	}
}
