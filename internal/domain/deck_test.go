/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"encoding/json"
	"testing"
	"time"

	"slidecanvas/internal/geom"
)

func TestClampCurrent(t *testing.T) {
	d := NewDeck("t")
	d.Current = 5
	d.ClampCurrent()
	if d.Current != 0 {
		t.Fatalf("empty deck cursor = %d", d.Current)
	}
	d.Slides = []*Slide{NewBlankSlide(100, 100), NewBlankSlide(100, 100)}
	d.Current = 7
	d.ClampCurrent()
	if d.Current != 1 {
		t.Fatalf("cursor not clamped to last slide: %d", d.Current)
	}
	d.Current = -2
	d.ClampCurrent()
	if d.Current != 0 {
		t.Fatalf("negative cursor: %d", d.Current)
	}
}

func TestModuleRefsRecomputedFromStructure(t *testing.T) {
	now := time.Now()
	d := NewDeck("t")
	for i := 0; i < 3; i++ {
		d.Slides = append(d.Slides, NewBlankSlide(800, 600))
	}
	m1 := NewItem(&ModuleEmbed{Title: "a"}, geom.Pt{}, now)
	m2 := NewItem(&ModuleEmbed{Title: "b"}, geom.Pt{}, now)
	m3 := NewItem(&ModuleEmbed{Title: "c"}, geom.Pt{}, now)
	d.Slides[0].Canvas.Items = []*Item{m1}
	d.Slides[2].Canvas.Items = []*Item{NewItem(&TextBox{}, geom.Pt{}, now), m2, m3}

	refs := d.ModuleRefs()
	if len(refs) != 3 {
		t.Fatalf("refs = %d", len(refs))
	}
	if refs[2].SlideIndex != 2 || refs[2].ModuleIndex != 1 || refs[2].Item != m3 {
		t.Fatalf("third ref wrong: %+v", refs[2])
	}
	d.Slides[2].Canvas.Remove(m2.ID)
	if got := d.ModuleAt(2, 0); got != m3 {
		t.Fatalf("ordinal not recomputed after removal")
	}
}

func TestScrollSizeCoversItems(t *testing.T) {
	c := &Canvas{Width: 800, Height: 600}
	c.Items = append(c.Items, &Item{Rect: geom.R(700, 500, 300, 200), Content: &TextBox{}})
	if s := c.ScrollSize(); s.W != 1000 || s.H != 700 {
		t.Fatalf("ScrollSize = %+v", s)
	}
}

func TestCloneGetsNewIdentity(t *testing.T) {
	it := NewItem(&MindMap{Center: "c", Branches: []Branch{{ID: "b1", Category: CategoryIdea}}}, geom.Pt{}, time.Now())
	cp := it.Clone()
	if cp.ID == it.ID {
		t.Fatalf("clone kept id")
	}
	mm := cp.Content.(*MindMap)
	mm.Center = "changed"
	if it.Content.(*MindMap).Center != "c" {
		t.Fatalf("clone shares content")
	}
	if mm.Branches[0].ID == "b1" {
		t.Fatalf("branch ids must be fresh")
	}
}

func TestKindNamesRoundTrip(t *testing.T) {
	for _, k := range []Kind{KindTextBox, KindTable, KindMindMap, KindImage, KindModule} {
		got, ok := ParseKind(k.String())
		if !ok || got != k {
			t.Fatalf("ParseKind(%q) = %v %v", k.String(), got, ok)
		}
		if m := k.MinSize(); m.W <= 0 || m.H <= 0 {
			t.Fatalf("%v has no minimum size", k)
		}
	}
	if _, ok := ParseKind("bogus"); ok {
		t.Fatalf("bogus kind parsed")
	}
	if CategoryQuestion.Title() != "Question" {
		t.Fatalf("Title = %q", CategoryQuestion.Title())
	}
}

func TestCompactConfig(t *testing.T) {
	cases := map[string]string{
		"":              "{}",
		"null":          "{}",
		"[1,2]":         "{}",
		"{broken":       "{}",
		` { "k" : 1 } `: `{"k":1}`,
	}
	for in, want := range cases {
		if got := string(CompactConfig(json.RawMessage(in))); got != want {
			t.Fatalf("CompactConfig(%q) = %q, want %q", in, got, want)
		}
	}
}
