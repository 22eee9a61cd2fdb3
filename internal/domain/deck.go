/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"bytes"
	"encoding/json"
	"math"

	"github.com/google/uuid"

	"slidecanvas/internal/geom"
)

// Layout is the slide template kind. Only blank slides own a canvas; the
// others carry static markup authored elsewhere.
type Layout string

const (
	LayoutBlank   Layout = "blank"
	LayoutTitle   Layout = "title"
	LayoutContent Layout = "content"
)

// Canvas is the scrollable item container of a blank slide. Items are kept
// in paint order.
type Canvas struct {
	Width, Height float64
	Items         []*Item
}

// Find returns the index and item with id, or -1 and nil.
func (c *Canvas) Find(id ItemID) (int, *Item) {
	if c == nil {
		return -1, nil
	}
	for i, it := range c.Items {
		if it.ID == id {
			return i, it
		}
	}
	return -1, nil
}

// Remove deletes the item with id and reports whether it was present.
func (c *Canvas) Remove(id ItemID) bool {
	i, _ := c.Find(id)
	if i < 0 {
		return false
	}
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
	return true
}

// ScrollSize is the scrollable extent: the declared size grown to cover every item.
func (c *Canvas) ScrollSize() geom.Size {
	if c == nil {
		return geom.Size{}
	}
	s := geom.Size{W: c.Width, H: c.Height}
	for _, it := range c.Items {
		s.W = math.Max(s.W, it.Rect.X+it.Rect.W)
		s.H = math.Max(s.H, it.Rect.Y+it.Rect.H)
	}
	return s
}

// Slide is one page of the deck.
type Slide struct {
	ID         string
	Layout     Layout
	Section    string
	Background string
	Static     string
	Canvas     *Canvas
}

// NewBlankSlide returns a blank slide with an empty canvas of the given size.
func NewBlankSlide(w, h float64) *Slide {
	return &Slide{ID: uuid.NewString(), Layout: LayoutBlank, Canvas: &Canvas{Width: w, Height: h}}
}

// Items returns the canvas items, or nil for static slides.
func (s *Slide) Items() []*Item {
	if s == nil || s.Canvas == nil {
		return nil
	}
	return s.Canvas.Items
}

// Modules returns the module embeds of the slide in document order.
func (s *Slide) Modules() []*Item {
	var out []*Item
	for _, it := range s.Items() {
		if it.Kind() == KindModule {
			out = append(out, it)
		}
	}
	return out
}

// ModuleIndex holds module configurations keyed by the owning item.
// Coordinates are derived from document structure when needed.
type ModuleIndex map[ItemID]json.RawMessage

// CompactConfig returns cfg without insignificant whitespace, or "{}" when
// cfg is absent or not a JSON object.
func CompactConfig(cfg json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(cfg)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return json.RawMessage("{}")
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return json.RawMessage("{}")
	}
	return json.RawMessage(buf.Bytes())
}

// ModuleRef addresses a module embed by slide and ordinal within that slide.
type ModuleRef struct {
	SlideIndex  int
	ModuleIndex int
	Item        *Item
}

// Deck is the whole document.
type Deck struct {
	Title   string
	Slides  []*Slide
	Current int
	Modules ModuleIndex
}

// NewDeck returns an empty deck with an initialised module index.
func NewDeck(title string) *Deck {
	return &Deck{Title: title, Modules: ModuleIndex{}}
}

// ClampCurrent keeps the slide cursor inside [0, len(Slides)); 0 when empty.
func (d *Deck) ClampCurrent() {
	switch {
	case len(d.Slides) == 0 || d.Current < 0:
		d.Current = 0
	case d.Current >= len(d.Slides):
		d.Current = len(d.Slides) - 1
	}
}

// CurrentSlide returns the slide under the cursor, or nil for an empty deck.
func (d *Deck) CurrentSlide() *Slide {
	if len(d.Slides) == 0 {
		return nil
	}
	d.ClampCurrent()
	return d.Slides[d.Current]
}

// FindItem locates an item anywhere in the deck.
func (d *Deck) FindItem(id ItemID) (slide int, item *Item) {
	for si, s := range d.Slides {
		if _, it := s.Canvas.Find(id); it != nil {
			return si, it
		}
	}
	return -1, nil
}

// ModuleRefs walks the current structure and numbers every module embed by
// slide and ordinal. Numbering is recomputed on each call.
func (d *Deck) ModuleRefs() []ModuleRef {
	var refs []ModuleRef
	for si, s := range d.Slides {
		for mi, it := range s.Modules() {
			refs = append(refs, ModuleRef{SlideIndex: si, ModuleIndex: mi, Item: it})
		}
	}
	return refs
}

// ModuleAt returns the mi-th module embed of slide si.
func (d *Deck) ModuleAt(si, mi int) *Item {
	if si < 0 || si >= len(d.Slides) || mi < 0 {
		return nil
	}
	mods := d.Slides[si].Modules()
	if mi >= len(mods) {
		return nil
	}
	return mods[mi]
}

// ItemCount counts canvas items across all slides.
func (d *Deck) ItemCount() int {
	n := 0
	for _, s := range d.Slides {
		n += len(s.Items())
	}
	return n
}
