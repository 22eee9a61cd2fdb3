/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"fmt"
	"log/slog"

	"slidecanvas/internal/domain"
	"slidecanvas/internal/richtext"
	"slidecanvas/internal/structure"
)

// Description is the tool panel's human-readable account of the selection.
type Description struct {
	Summary string
	Detail  string
}

// Panel is what the tool panel shows. Section is domain.KindNone when no
// tool section is open; otherwise it always equals the selected item's kind.
type Panel struct {
	Selected    domain.ItemID
	Section     domain.Kind
	Color       domain.Color
	Shadow      bool
	Description Description
}

// PanelRenderer draws the tool panel. It receives a fresh Panel after every
// selection change and every mutation made through the panel.
type PanelRenderer interface {
	RenderPanel(Panel)
}

// PanelFunc adapts a function to PanelRenderer.
type PanelFunc func(Panel)

func (f PanelFunc) RenderPanel(p Panel) { f(p) }

// Select makes id the single selection and opens its tool section. The
// previous item loses its selected state first. Selecting the current
// selection again only reopens a closed section. Unknown ids are ignored.
func (s *Session) Select(id domain.ItemID) bool {
	_, it := s.item(id)
	if it == nil {
		return false
	}
	if id == s.selected {
		if s.section == domain.KindNone {
			s.section = it.Kind()
			s.render()
		}
		return true
	}
	if s.selected != "" {
		s.registry.SetSelected(s.selected, false)
	}
	s.selected = id
	s.section = it.Kind()
	s.focus = nil
	s.registry.SetSelected(id, true)
	s.render()
	return true
}

// Clear drops the selection.
func (s *Session) Clear() { s.clearSelection(true) }

func (s *Session) clearSelection(render bool) {
	if s.selected != "" {
		s.registry.SetSelected(s.selected, false)
	}
	s.selected = ""
	s.section = domain.KindNone
	s.focus = nil
	if render {
		s.render()
	}
}

// Selected returns the selected item, or nil.
func (s *Session) Selected() *domain.Item {
	_, it := s.item(s.selected)
	return it
}

// ActiveSection is the open tool section, domain.KindNone when closed or
// nothing is selected.
func (s *Session) ActiveSection() domain.Kind {
	if s.Selected() == nil {
		return domain.KindNone
	}
	return s.section
}

// OpenSection opens the tool section of the selected item.
func (s *Session) OpenSection() bool {
	it := s.Selected()
	if it == nil {
		return false
	}
	s.section = it.Kind()
	s.render()
	return true
}

// CloseSection hides the tool section but keeps the selection.
func (s *Session) CloseSection() {
	if s.section == domain.KindNone {
		return
	}
	s.section = domain.KindNone
	s.render()
}

// ApplyColor recolors the selected item.
func (s *Session) ApplyColor(c domain.Color) bool {
	it := s.Selected()
	if it == nil || !c.Valid() {
		return false
	}
	it.Color = c
	s.render()
	return true
}

// ApplyEffect toggles the drop shadow of the selected item.
func (s *Session) ApplyEffect(shadow bool) bool {
	it := s.Selected()
	if it == nil {
		return false
	}
	it.Effect = domain.EffectNone
	if shadow {
		it.Effect = domain.EffectShadow
	}
	s.render()
	return true
}

// CurrentPanel derives the panel for the current selection.
func (s *Session) CurrentPanel() Panel {
	it := s.Selected()
	if it == nil {
		return Panel{Description: Describe(nil)}
	}
	return Panel{
		Selected:    it.ID,
		Section:     s.section,
		Color:       it.Color,
		Shadow:      it.Effect == domain.EffectShadow,
		Description: Describe(it),
	}
}

func (s *Session) render() {
	if s.panel == nil {
		return
	}
	p := s.CurrentPanel()
	s.log.Debug("panel", slog.String("section", p.Section.String()), slog.String("summary", p.Description.Summary))
	s.panel.RenderPanel(p)
}

// Describe summarizes an item for the tool panel; nil means no selection.
func Describe(it *domain.Item) Description {
	if it == nil {
		return Description{Summary: "Nothing selected", Detail: "Select an item on the canvas to edit it."}
	}
	switch c := it.Content.(type) {
	case *domain.TextBox:
		return Description{Summary: "Text box", Detail: plural(richtext.WordCount(c.Body), "word")}
	case *domain.Table:
		rows, cols := structure.Dimensions(c)
		return Description{Summary: "Table", Detail: fmt.Sprintf("%s × %s", plural(cols, "column"), plural(rows, "row"))}
	case *domain.MindMap:
		center := richtext.PlainText(c.Center)
		if center == "" {
			center = "Untitled idea"
		}
		return Description{Summary: "Mind map: " + center, Detail: plural(structure.Count(c), "branch")}
	case *domain.Image:
		if c.Placeholder {
			return Description{Summary: "Image", Detail: "Image unavailable"}
		}
		return Description{Summary: "Image", Detail: fmt.Sprintf("%.0f × %.0f px", c.Natural.W, c.Natural.H)}
	case *domain.ModuleEmbed:
		title := c.Title
		if title == "" {
			title = "Untitled activity"
		}
		kind := c.ActivityType
		if kind == "" {
			kind = "Interactive module"
		}
		return Description{Summary: title, Detail: kind}
	}
	return Description{Summary: "Item"}
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	if word == "branch" {
		return fmt.Sprintf("%d branches", n)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
