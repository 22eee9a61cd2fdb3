/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"errors"

	"slidecanvas/internal/domain"
	"slidecanvas/internal/richtext"
	"slidecanvas/internal/structure"
)

var ErrNoSelection = errors.New("editor: no text range selected")

// LeafKind names the editable text leaves an item can have.
type LeafKind int

const (
	LeafBody   LeafKind = iota // text box body
	LeafCell                   // table cell; Row -1 is the header
	LeafCenter                 // mind map central idea
	LeafBranch                 // mind map branch text
)

// Leaf addresses one independently editable text leaf inside an item.
type Leaf struct {
	Kind   LeafKind
	Row    int
	Col    int
	Branch string
}

func BodyLeaf() Leaf                { return Leaf{Kind: LeafBody} }
func CellLeaf(row, col int) Leaf    { return Leaf{Kind: LeafCell, Row: row, Col: col} }
func CenterLeaf() Leaf              { return Leaf{Kind: LeafCenter} }
func BranchLeaf(branch string) Leaf { return Leaf{Kind: LeafBranch, Branch: branch} }

func (l Leaf) writable(it *domain.Item) bool {
	_, ok := l.get(it)
	return ok
}

func (l Leaf) get(it *domain.Item) (string, bool) {
	switch c := it.Content.(type) {
	case *domain.TextBox:
		if l.Kind == LeafBody {
			return c.Body, true
		}
	case *domain.Table:
		if l.Kind != LeafCell || l.Col < 0 || l.Col >= c.Columns() {
			return "", false
		}
		if l.Row == -1 {
			return c.Header[l.Col], true
		}
		if l.Row >= 0 && l.Row < len(c.Rows) {
			return c.Rows[l.Row][l.Col], true
		}
	case *domain.MindMap:
		switch l.Kind {
		case LeafCenter:
			return c.Center, true
		case LeafBranch:
			for _, b := range c.Branches {
				if b.ID == l.Branch {
					return b.Body, true
				}
			}
		}
	}
	return "", false
}

func (l Leaf) set(it *domain.Item, markup string) {
	switch c := it.Content.(type) {
	case *domain.TextBox:
		c.Body = richtext.Sanitize(markup)
	case *domain.Table:
		structure.SetCell(c, l.Row, l.Col, markup)
	case *domain.MindMap:
		if l.Kind == LeafCenter {
			c.Center = richtext.Sanitize(markup)
			return
		}
		structure.SetBranchBody(c, l.Branch, markup)
	}
}

// textFocus is the remembered caret or range for toolbar commands, which
// arrive after the text surface has lost focus.
type textFocus struct {
	item domain.ItemID
	leaf Leaf
	r    richtext.Range
}

// Focus remembers a text range inside the selected item.
func (s *Session) Focus(leaf Leaf, r richtext.Range) bool {
	it := s.Selected()
	if it == nil || !leaf.writable(it) {
		return false
	}
	s.focus = &textFocus{item: it.ID, leaf: leaf, r: r}
	return true
}

// FocusedRange returns the remembered range and whether there is one.
func (s *Session) FocusedRange() (Leaf, richtext.Range, bool) {
	if s.focus == nil {
		return Leaf{}, richtext.Range{}, false
	}
	return s.focus.leaf, s.focus.r, true
}

func (s *Session) focused() (*domain.Item, *richtext.Doc) {
	it := s.Selected()
	if it == nil || s.focus == nil || s.focus.item != it.ID {
		return nil, nil
	}
	markup, ok := s.focus.leaf.get(it)
	if !ok {
		s.focus = nil
		return nil, nil
	}
	return it, richtext.Parse(markup)
}

func (s *Session) commit(it *domain.Item, doc *richtext.Doc) {
	s.focus.leaf.set(it, doc.HTML())
	s.render()
}

// ApplyTextFormat toggles f over the remembered range.
func (s *Session) ApplyTextFormat(f richtext.Format) bool {
	it, doc := s.focused()
	if it == nil || !doc.ToggleFormat(s.focus.r, f) {
		return false
	}
	s.commit(it, doc)
	return true
}

// ApplyList turns the lines touched by the remembered range into a list of
// kind, or back into plain lines when they already are one.
func (s *Session) ApplyList(kind richtext.ListKind) bool {
	it, doc := s.focused()
	if it == nil || !doc.ToggleList(s.focus.r, kind) {
		return false
	}
	s.commit(it, doc)
	return true
}

// ApplyLink links the remembered range to href. Anything but an absolute
// http(s) URL is refused with a warning and changes nothing.
func (s *Session) ApplyLink(href string) error {
	it, doc := s.focused()
	if it == nil {
		return ErrNoSelection
	}
	if err := doc.InsertLink(s.focus.r, href); err != nil {
		s.notify(NoticeWarning, "Links must start with http:// or https://.")
		return err
	}
	s.commit(it, doc)
	return nil
}

// RemoveLink unlinks the remembered range.
func (s *Session) RemoveLink() bool {
	it, doc := s.focused()
	if it == nil || !doc.Unlink(s.focus.r) {
		return false
	}
	s.commit(it, doc)
	return true
}

// ActiveFormats lists the formats covering the whole remembered range.
func (s *Session) ActiveFormats() []richtext.Format {
	it, doc := s.focused()
	if it == nil {
		return nil
	}
	return doc.Formats(s.focus.r)
}
