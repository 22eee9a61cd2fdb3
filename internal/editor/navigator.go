/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"slidecanvas/internal/domain"
)

// SlideCount is the number of slides.
func (s *Session) SlideCount() int { return len(s.deck.Slides) }

// Current returns the index of the current slide.
func (s *Session) Current() int { return s.deck.Current }

// GoTo makes slide i current, clamped to the deck. Leaving a slide drops
// a selection that lived on it.
func (s *Session) GoTo(i int) {
	prev := s.deck.Current
	s.deck.Current = i
	s.deck.ClampCurrent()
	if s.deck.Current != prev {
		s.clearSelectionOff(s.deck.Current)
	}
}

// clearSelectionOff clears the selection unless it is on slide keep.
func (s *Session) clearSelectionOff(keep int) {
	if s.selected == "" {
		return
	}
	if si, _ := s.item(s.selected); si != keep {
		s.clearSelection(true)
	}
}

// AddSlide inserts a slide after the current one and makes it current.
// Blank slides get an empty canvas of the configured size.
func (s *Session) AddSlide(layout domain.Layout) *domain.Slide {
	var sl *domain.Slide
	if layout == "" || layout == domain.LayoutBlank {
		sl = s.newBlankSlide()
	} else {
		sl = &domain.Slide{ID: uuid.NewString(), Layout: layout}
	}
	at := 0
	if len(s.deck.Slides) > 0 {
		at = s.deck.Current + 1
		sl.Section = s.deck.Slides[s.deck.Current].Section
	}
	s.insertSlide(at, sl)
	s.GoTo(at)
	return sl
}

func (s *Session) insertSlide(at int, sl *domain.Slide) {
	s.deck.Slides = append(s.deck.Slides, nil)
	copy(s.deck.Slides[at+1:], s.deck.Slides[at:])
	s.deck.Slides[at] = sl
}

// DuplicateSlide copies slide i right after itself. Copied items get new
// identities and module embeds keep their configuration.
func (s *Session) DuplicateSlide(i int) *domain.Slide {
	if i < 0 || i >= len(s.deck.Slides) {
		return nil
	}
	src := s.deck.Slides[i]
	cp := &domain.Slide{ID: uuid.NewString(), Layout: src.Layout, Section: src.Section, Background: src.Background, Static: src.Static}
	if src.Canvas != nil {
		cp.Canvas = &domain.Canvas{Width: src.Canvas.Width, Height: src.Canvas.Height}
		for _, it := range src.Canvas.Items {
			c := it.Clone()
			c.Source = ""
			cp.Canvas.Items = append(cp.Canvas.Items, c)
			if cfg, ok := s.deck.Modules[it.ID]; ok {
				s.deck.Modules[c.ID] = append([]byte(nil), cfg...)
			}
		}
	}
	s.registry.RegisterSlide(cp, domain.SourcePaste)
	s.insertSlide(i+1, cp)
	s.GoTo(i + 1)
	return cp
}

// DeleteSlide removes slide i with all its items.
func (s *Session) DeleteSlide(i int) bool {
	if i < 0 || i >= len(s.deck.Slides) {
		return false
	}
	sl := s.deck.Slides[i]
	if si, _ := s.item(s.selected); si == i {
		s.clearSelection(true)
	}
	for _, it := range sl.Items() {
		s.release(it)
	}
	s.deck.Slides = append(s.deck.Slides[:i], s.deck.Slides[i+1:]...)
	if s.deck.Current > i {
		s.deck.Current--
	}
	s.deck.ClampCurrent()
	s.log.Debug("slide deleted", slog.Int("index", i), slog.Int("remaining", len(s.deck.Slides)))
	return true
}

// MoveSlide moves slide from to index to. The current slide stays current.
func (s *Session) MoveSlide(from, to int) bool {
	n := len(s.deck.Slides)
	if from < 0 || from >= n || to < 0 || to >= n || from == to {
		return false
	}
	cur := s.deck.Slides[s.deck.Current]
	sl := s.deck.Slides[from]
	s.deck.Slides = append(s.deck.Slides[:from], s.deck.Slides[from+1:]...)
	s.insertSlide(to, sl)
	for i, x := range s.deck.Slides {
		if x == cur {
			s.deck.Current = i
		}
	}
	return true
}

// MoveToSection assigns slide i to section and moves it behind the last
// slide already in that section. A new section leaves the slide in place.
func (s *Session) MoveToSection(i int, section string) bool {
	if i < 0 || i >= len(s.deck.Slides) {
		return false
	}
	section = strings.TrimSpace(section)
	s.deck.Slides[i].Section = section
	last := -1
	for j, sl := range s.deck.Slides {
		if j != i && section != "" && sl.Section == section {
			last = j
		}
	}
	if last < 0 {
		return true
	}
	to := last
	if last < i {
		to = last + 1
	}
	if to != i {
		s.MoveSlide(i, to)
	}
	return true
}

// Sections lists section names in deck order without repeats.
func (s *Session) Sections() []string {
	var out []string
	seen := map[string]bool{}
	for _, sl := range s.deck.Slides {
		if sl.Section != "" && !seen[sl.Section] {
			seen[sl.Section] = true
			out = append(out, sl.Section)
		}
	}
	return out
}
