/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package editor is the authoring session. A Session owns the deck, the
// item registry, gesture state, the single selection and the single module
// builder bridge. It is not safe for concurrent use: the host calls it from
// one event loop and hands results of background work (image decoding,
// builder messages) back to that loop.
package editor

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"slidecanvas/internal/bridge"
	"slidecanvas/internal/canvas"
	"slidecanvas/internal/config"
	"slidecanvas/internal/deckio"
	"slidecanvas/internal/domain"
	"slidecanvas/internal/geom"
	"slidecanvas/internal/gesture"
	applog "slidecanvas/internal/log"
	"slidecanvas/internal/media"
	"slidecanvas/internal/richtext"
	"slidecanvas/internal/structure"
)

// NoticeLevel grades a transient user notice.
type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeWarning
	NoticeError
)

func (l NoticeLevel) String() string {
	switch l {
	case NoticeWarning:
		return "warning"
	case NoticeError:
		return "error"
	}
	return "info"
}

// Notice is a short message shown to the user and then dismissed.
type Notice struct {
	Level NoticeLevel
	Text  string
}

// Notifier shows notices. The session never blocks on it.
type Notifier interface {
	Notice(Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

func (f NotifierFunc) Notice(n Notice) { f(n) }

// Options configures a Session. Zero values get working defaults.
type Options struct {
	Config   config.AppConfig
	Panel    PanelRenderer
	Notifier Notifier
	Media    *media.Ingestor
	Clock    func() time.Time
}

// Session is the explicit owner of everything an open document needs.
type Session struct {
	deck     *domain.Deck
	registry *canvas.Registry
	captures *gesture.Captures
	drag     *gesture.Drag
	resize   *gesture.Resize
	views    map[gesture.PointerID]gesture.Viewport
	viewport gesture.Viewport

	selected domain.ItemID
	section  domain.Kind
	focus    *textFocus

	bridge    *bridge.Bridge
	restoreTo domain.ItemID

	cfg      config.AppConfig
	panel    PanelRenderer
	notifier Notifier
	media    *media.Ingestor
	now      func() time.Time
	log      *slog.Logger
}

// NewSession opens d (a fresh one-slide deck when nil) and registers every
// item on it.
func NewSession(d *domain.Deck, opts Options) *Session {
	if opts.Config.Canvas.Width <= 0 || opts.Config.Canvas.Height <= 0 {
		opts.Config.Canvas = config.Defaults().Canvas
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Media == nil {
		opts.Media = media.NewIngestor(opts.Config.Images)
	}
	caps := gesture.NewCaptures()
	s := &Session{
		registry: canvas.NewRegistry(),
		captures: caps,
		drag:     gesture.NewDrag(caps),
		resize:   gesture.NewResize(caps),
		views:    make(map[gesture.PointerID]gesture.Viewport),
		cfg:      opts.Config,
		panel:    opts.Panel,
		notifier: opts.Notifier,
		media:    opts.Media,
		now:      opts.Clock,
		log:      applog.WithComponent("editor"),
	}
	if d == nil {
		d = domain.NewDeck("")
		d.Slides = append(d.Slides, s.newBlankSlide())
	}
	s.adopt(d, s.registry)
	return s
}

func (s *Session) adopt(d *domain.Deck, reg *canvas.Registry) {
	if d.Modules == nil {
		d.Modules = domain.ModuleIndex{}
	}
	for _, sl := range d.Slides {
		reg.RegisterSlide(sl, domain.SourceProgrammatic)
	}
	d.ClampCurrent()
	s.deck = d
	s.registry = reg
}

// Deck returns the open document. Mutate it only through the session.
func (s *Session) Deck() *domain.Deck { return s.deck }

// Registry exposes the item bindings, e.g. for hit-testing in a shell.
func (s *Session) Registry() *canvas.Registry { return s.registry }

// Load replaces the document with an imported deck file. A structural
// error leaves the current document, selection and bridge untouched and is
// reported as a notice.
func (s *Session) Load(data []byte) error {
	reg := canvas.NewRegistry()
	d, err := deckio.Import(data, deckio.Options{
		Canvas:    geom.Size{W: s.cfg.Canvas.Width, H: s.cfg.Canvas.Height},
		Registrar: reg,
	})
	if err != nil {
		s.notify(NoticeError, "Could not open the deck: the file is damaged or not a deck.")
		s.log.Warn("load failed", slog.String("err", err.Error()))
		return err
	}
	s.CloseBridge()
	s.clearSelection(false)
	s.captures = gesture.NewCaptures()
	s.drag = gesture.NewDrag(s.captures)
	s.resize = gesture.NewResize(s.captures)
	s.views = make(map[gesture.PointerID]gesture.Viewport)
	s.adopt(d, reg)
	s.render()
	return nil
}

// Save serializes the document.
func (s *Session) Save() ([]byte, error) {
	out, err := deckio.Export(s.deck)
	if err != nil {
		s.notify(NoticeError, "Could not save the deck.")
		return nil, fmt.Errorf("save deck: %w", err)
	}
	return out, nil
}

func (s *Session) notify(level NoticeLevel, text string) {
	if s.notifier != nil {
		s.notifier.Notice(Notice{Level: level, Text: text})
	}
}

func (s *Session) newBlankSlide() *domain.Slide {
	return domain.NewBlankSlide(s.cfg.Canvas.Width, s.cfg.Canvas.Height)
}

// item resolves a registered item and the index of the slide holding it.
func (s *Session) item(id domain.ItemID) (int, *domain.Item) {
	if id == "" || !s.registry.Has(id) {
		return -1, nil
	}
	return s.deck.FindItem(id)
}

// ErrNoCanvas is returned when inserting onto a slide without a canvas.
var ErrNoCanvas = errors.New("editor: current slide has no canvas")

// insert places it on the current slide, registers it and selects it.
func (s *Session) insert(it *domain.Item, source domain.SourceTag) error {
	sl := s.deck.CurrentSlide()
	if sl == nil || sl.Canvas == nil {
		s.notify(NoticeWarning, "Items can only be added to blank slides.")
		return ErrNoCanvas
	}
	scroll := sl.Canvas.ScrollSize()
	it.Rect.X = geom.Clamp(it.Rect.X, 0, scroll.W-it.Rect.W)
	it.Rect.Y = geom.Clamp(it.Rect.Y, 0, scroll.H-it.Rect.H)
	if !s.registry.Register(it, it.Kind(), source) {
		return fmt.Errorf("editor: cannot register %s item", it.Kind())
	}
	sl.Canvas.Items = append(sl.Canvas.Items, it)
	s.log.Debug("item inserted", slog.String("item", string(it.ID)), slog.String("kind", it.Kind().String()), slog.String("source", string(it.Source)))
	s.Select(it.ID)
	return nil
}

// AddTextBox inserts an empty text box at p.
func (s *Session) AddTextBox(p geom.Pt) (*domain.Item, error) {
	it := domain.NewItem(&domain.TextBox{}, p, s.now())
	return it, s.insert(it, domain.SourceDirect)
}

// AddTable inserts a table with rows body rows and cols columns.
func (s *Session) AddTable(p geom.Pt, rows, cols int) (*domain.Item, error) {
	it := domain.NewItem(structure.NewTable(rows, cols), p, s.now())
	return it, s.insert(it, domain.SourceDirect)
}

// AddMindMap inserts a mind map with the given central idea.
func (s *Session) AddMindMap(p geom.Pt, center string) (*domain.Item, error) {
	it := domain.NewItem(structure.NewMindMap(center), p, s.now())
	return it, s.insert(it, domain.SourceDirect)
}

// InsertImage places an ingested image, sized once to fit the canvas.
func (s *Session) InsertImage(img *domain.Image, p geom.Pt, source domain.SourceTag) (*domain.Item, error) {
	it := domain.NewItem(img, p, s.now())
	bounds := geom.Size{W: s.cfg.Canvas.Width, H: s.cfg.Canvas.Height}
	if sl := s.deck.CurrentSlide(); sl != nil && sl.Canvas != nil {
		bounds = geom.Size{W: sl.Canvas.Width, H: sl.Canvas.Height}
	}
	size := media.DisplaySize(img.Natural, bounds, s.cfg.Canvas.ImageMargin)
	it.Rect.W, it.Rect.H = size.W, size.H
	return it, s.insert(it, source)
}

// PasteImage ingests a clipboard payload and inserts it. Non-image
// payloads are reported and ignored.
func (s *Session) PasteImage(p media.Payload, at geom.Pt) (*domain.Item, error) {
	img, err := s.media.FromClipboard(p)
	if err != nil {
		s.notify(NoticeWarning, "Only images can be pasted onto the canvas.")
		return nil, err
	}
	return s.InsertImage(img, at, domain.SourcePaste)
}

// DropImageFile ingests a picked or dropped file and inserts it.
func (s *Session) DropImageFile(name string, data []byte, at geom.Pt) (*domain.Item, error) {
	img, err := s.media.FromFile(name, data)
	if err != nil {
		s.notify(NoticeWarning, fmt.Sprintf("%s is not an image that can be placed.", name))
		return nil, err
	}
	return s.InsertImage(img, at, domain.SourceDirect)
}

// DuplicateItem pastes a copy of id next to the original on the current
// slide. Module configurations are copied with it.
func (s *Session) DuplicateItem(id domain.ItemID) (*domain.Item, error) {
	_, it := s.item(id)
	if it == nil {
		return nil, fmt.Errorf("editor: no item %s", id)
	}
	cp := it.Clone()
	cp.Source = ""
	cp.Created = s.now().UTC()
	cp.Rect.X += 20
	cp.Rect.Y += 20
	if err := s.insert(cp, domain.SourcePaste); err != nil {
		return nil, err
	}
	if cfg, ok := s.deck.Modules[id]; ok {
		s.deck.Modules[cp.ID] = append([]byte(nil), cfg...)
	}
	return cp, nil
}

// SetText replaces one text leaf of an item with sanitized markup.
func (s *Session) SetText(id domain.ItemID, leaf Leaf, markup string) bool {
	_, it := s.item(id)
	if it == nil || !leaf.writable(it) {
		return false
	}
	leaf.set(it, richtext.Sanitize(markup))
	if id == s.selected {
		s.render()
	}
	return true
}
