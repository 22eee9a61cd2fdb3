/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package domain defines the slide deck document: decks of slides, the canvas
// on blank slides and the closed set of item variants placed on it. The types
// carry no behaviour beyond small structural helpers; controllers in other
// packages own every mutation.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"slidecanvas/internal/geom"
)

// CurrentSchema is stamped on every registered item. Items carrying a lower
// number were written by an older build and get migrated when registered.
const CurrentSchema = 2

// ItemID identifies a canvas item for the lifetime of the document.
type ItemID string

// NewItemID returns a fresh random identifier.
func NewItemID() ItemID { return ItemID(uuid.NewString()) }

// Kind names an item variant.
type Kind int

const (
	KindNone Kind = iota
	KindTextBox
	KindTable
	KindMindMap
	KindImage
	KindModule
)

var kindNames = [...]string{"", "textbox", "table", "mindmap", "image", "module"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return ""
	}
	return kindNames[k]
}

// ParseKind maps a persisted kind name back to a Kind.
func ParseKind(s string) (Kind, bool) {
	for i, n := range kindNames {
		if i > 0 && n == s {
			return Kind(i), true
		}
	}
	return KindNone, false
}

// MinSize is the smallest size a resize gesture may produce for the kind.
func (k Kind) MinSize() geom.Size {
	switch k {
	case KindTextBox:
		return geom.Size{W: 120, H: 60}
	case KindTable:
		return geom.Size{W: 240, H: 200}
	case KindMindMap:
		return geom.Size{W: 320, H: 220}
	case KindImage:
		return geom.Size{W: 160, H: 120}
	case KindModule:
		return geom.Size{W: 280, H: 180}
	}
	return geom.Size{}
}

// DefaultSize is the size of a freshly inserted item.
func (k Kind) DefaultSize() geom.Size {
	switch k {
	case KindTextBox:
		return geom.Size{W: 320, H: 140}
	case KindTable:
		return geom.Size{W: 420, H: 220}
	case KindMindMap:
		return geom.Size{W: 560, H: 360}
	case KindModule:
		return geom.Size{W: 480, H: 320}
	}
	return k.MinSize()
}

// Color is one entry of the fixed item palette.
type Color string

const (
	ColorDefault Color = "default"
	ColorYellow  Color = "yellow"
	ColorOrange  Color = "orange"
	ColorRed     Color = "red"
	ColorPink    Color = "pink"
	ColorPurple  Color = "purple"
	ColorBlue    Color = "blue"
	ColorTeal    Color = "teal"
	ColorGreen   Color = "green"
	ColorGray    Color = "gray"
)

// Palette lists the colors in tool panel order.
var Palette = []Color{ColorDefault, ColorYellow, ColorOrange, ColorRed, ColorPink, ColorPurple, ColorBlue, ColorTeal, ColorGreen, ColorGray}

var paletteRGB = map[Color][3]uint8{
	ColorDefault: {255, 255, 255},
	ColorYellow:  {255, 243, 176},
	ColorOrange:  {255, 214, 165},
	ColorRed:     {255, 173, 173},
	ColorPink:    {255, 198, 255},
	ColorPurple:  {214, 196, 255},
	ColorBlue:    {189, 224, 254},
	ColorTeal:    {178, 242, 228},
	ColorGreen:   {202, 255, 191},
	ColorGray:    {222, 226, 230},
}

// Valid reports whether c is on the palette.
func (c Color) Valid() bool {
	_, ok := paletteRGB[c]
	return ok
}

// RGB returns the fill used by renderers.
func (c Color) RGB() (r, g, b uint8) {
	v, ok := paletteRGB[c]
	if !ok {
		v = paletteRGB[ColorDefault]
	}
	return v[0], v[1], v[2]
}

// Effect is the visual effect applied to an item frame.
type Effect string

const (
	EffectNone   Effect = "none"
	EffectShadow Effect = "shadow"
)

// SourceTag records how an item came into existence.
type SourceTag string

const (
	SourceDirect       SourceTag = "direct"
	SourcePaste        SourceTag = "paste"
	SourceProgrammatic SourceTag = "programmatic"
	SourceImport       SourceTag = "import"
)

// Item is one placeable unit on a canvas. Content is one of *TextBox,
// *Table, *MindMap, *Image or *ModuleEmbed.
type Item struct {
	ID      ItemID
	Rect    geom.Rect
	Color   Color
	Effect  Effect
	Created time.Time
	Source  SourceTag
	Schema  int
	Content Content
}

// NewItem builds an item with default geometry for its content kind.
func NewItem(c Content, at geom.Pt, now time.Time) *Item {
	size := c.Kind().DefaultSize()
	return &Item{
		ID:      NewItemID(),
		Rect:    geom.Rect{X: at.X, Y: at.Y, W: size.W, H: size.H},
		Color:   ColorDefault,
		Effect:  EffectNone,
		Created: now.UTC(),
		Content: c,
	}
}

// Kind derives the variant kind; KindNone for an item without content.
func (it *Item) Kind() Kind {
	if it == nil || it.Content == nil {
		return KindNone
	}
	return it.Content.Kind()
}

// Clone deep-copies the item under a new identity.
func (it *Item) Clone() *Item {
	cp := *it
	cp.ID = NewItemID()
	if it.Content != nil {
		cp.Content = it.Content.clone()
	}
	return &cp
}

// Content is the closed set of item payloads.
type Content interface {
	Kind() Kind
	clone() Content
}

// TextBox holds sanitized rich-text markup.
type TextBox struct {
	Body string
}

func (*TextBox) Kind() Kind { return KindTextBox }
func (t *TextBox) clone() Content {
	cp := *t
	return &cp
}

// Table is a header row plus body rows of rich-text cells. Every row has
// len(Header) cells.
type Table struct {
	Header []string
	Rows   [][]string
}

func (*Table) Kind() Kind { return KindTable }
func (t *Table) clone() Content {
	cp := &Table{Header: append([]string(nil), t.Header...)}
	for _, r := range t.Rows {
		cp.Rows = append(cp.Rows, append([]string(nil), r...))
	}
	return cp
}

// Columns returns the header width.
func (t *Table) Columns() int { return len(t.Header) }

// Category is one of the preset mind-map branch categories.
type Category string

const (
	CategoryIdea     Category = "idea"
	CategoryQuestion Category = "question"
	CategoryExample  Category = "example"
	CategoryFact     Category = "fact"
	CategoryAction   Category = "action"
)

// Categories lists the presets in menu order.
var Categories = []Category{CategoryIdea, CategoryQuestion, CategoryExample, CategoryFact, CategoryAction}

func (c Category) Valid() bool {
	for _, k := range Categories {
		if k == c {
			return true
		}
	}
	return false
}

// Title is the capitalised display name.
func (c Category) Title() string {
	if c == "" {
		return ""
	}
	return strings.ToUpper(string(c[:1])) + string(c[1:])
}

// DefaultColor is the branch color assigned when a branch of this category is added.
func (c Category) DefaultColor() Color {
	switch c {
	case CategoryQuestion:
		return ColorBlue
	case CategoryExample:
		return ColorGreen
	case CategoryFact:
		return ColorPurple
	case CategoryAction:
		return ColorOrange
	}
	return ColorYellow
}

// Branch is one arm of a mind map. An empty Label means the label is derived
// from the category and position.
type Branch struct {
	ID       string
	Category Category
	Label    string
	Color    Color
	Body     string
}

// MindMap is a central idea with ordered branches.
type MindMap struct {
	Center   string
	Branches []Branch
}

func (*MindMap) Kind() Kind { return KindMindMap }
func (m *MindMap) clone() Content {
	cp := &MindMap{Center: m.Center, Branches: append([]Branch(nil), m.Branches...)}
	for i := range cp.Branches {
		cp.Branches[i].ID = uuid.NewString()
	}
	return cp
}

// Image references bitmap data either inline (data URL) or remotely.
type Image struct {
	Src         string
	MIME        string
	Alt         string
	Natural     geom.Size
	Remote      bool
	Placeholder bool
}

func (*Image) Kind() Kind { return KindImage }
func (i *Image) clone() Content {
	cp := *i
	return &cp
}

// ModuleEmbed is an interactive activity produced by the module builder. Its
// configuration lives in Deck.Modules, keyed by item ID.
type ModuleEmbed struct {
	Title        string
	ActivityType string
	Preview      string
}

func (*ModuleEmbed) Kind() Kind { return KindModule }
func (m *ModuleEmbed) clone() Content {
	cp := *m
	return &cp
}
