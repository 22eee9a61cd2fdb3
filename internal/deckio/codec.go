/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package deckio is the deck file codec. A deck file is a JSON document
// holding one sanitized markup snapshot per slide plus a flat list of
// module configurations addressed by (slide, ordinal within slide).
package deckio

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/google/uuid"
	gojsonschema "github.com/xeipuuv/gojsonschema"

	"slidecanvas/internal/canvas"
	"slidecanvas/internal/domain"
	"slidecanvas/internal/geom"
	applog "slidecanvas/internal/log"
	"slidecanvas/internal/version"
)

// ErrStructural reports a deck file that is not a JSON object or has no
// slides array. Nothing is imported in that case.
var ErrStructural = errors.New("deckio: malformed deck file")

//go:embed deck.schema.json
var schemaJSON []byte

var schemaLoader = gojsonschema.NewBytesLoader(schemaJSON)

// Registrar reattaches behavior to imported items. *canvas.Registry
// implements it.
type Registrar interface {
	Register(item *domain.Item, kind domain.Kind, source domain.SourceTag) bool
}

type moduleEntry struct {
	SlideIndex   int             `json:"slideIndex"`
	ModuleIndex  int             `json:"moduleIndex"`
	Title        *string         `json:"title"`
	ActivityType *string         `json:"activityType"`
	Config       json.RawMessage `json:"config"`
}

type deckFile struct {
	Version           int           `json:"version"`
	Title             string        `json:"title,omitempty"`
	CurrentSlideIndex int           `json:"currentSlideIndex"`
	Slides            []string      `json:"slides"`
	Modules           []moduleEntry `json:"modules"`
}

// Export serializes d. Text bodies are sanitized, module coordinates are
// computed from the current structure and a module without a stored
// configuration is written with an empty one. d is not modified.
func Export(d *domain.Deck) ([]byte, error) {
	f := deckFile{
		Version: version.DeckFormat,
		Title:   d.Title,
		Slides:  make([]string, 0, len(d.Slides)),
		Modules: []moduleEntry{},
	}
	for _, s := range d.Slides {
		f.Slides = append(f.Slides, RenderSlide(s))
	}
	if n := len(d.Slides); n > 0 {
		f.CurrentSlideIndex = min(max(d.Current, 0), n-1)
	}
	for _, ref := range d.ModuleRefs() {
		m := ref.Item.Content.(*domain.ModuleEmbed)
		f.Modules = append(f.Modules, moduleEntry{
			SlideIndex:   ref.SlideIndex,
			ModuleIndex:  ref.ModuleIndex,
			Title:        nullable(m.Title),
			ActivityType: nullable(m.ActivityType),
			Config:       domain.CompactConfig(d.Modules[ref.Item.ID]),
		})
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(f); err != nil {
		return nil, fmt.Errorf("encode deck: %w", err)
	}
	return buf.Bytes(), nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Options tune Import.
type Options struct {
	// Canvas is the size given to blank slides whose snapshot omits it.
	Canvas geom.Size
	// Registrar receives every imported item; nil uses a private registry
	// so items are still migrated and stamped.
	Registrar Registrar
}

// Import parses a deck file. Files without a version are read with the
// legacy rules and their items migrated. On error the returned deck is nil.
func Import(data []byte, opts Options) (*domain.Deck, error) {
	l := applog.WithComponent("deckio")
	if opts.Canvas.W <= 0 || opts.Canvas.H <= 0 {
		opts.Canvas = geom.Size{W: 1280, H: 720}
	}
	if opts.Registrar == nil {
		opts.Registrar = canvas.NewRegistry()
	}

	res, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStructural, err)
	}
	if !res.Valid() {
		msg := "invalid"
		if errs := res.Errors(); len(errs) > 0 {
			msg = errs[0].String()
		}
		return nil, fmt.Errorf("%w: %s", ErrStructural, msg)
	}

	var raw struct {
		Version           any               `json:"version"`
		Title             string            `json:"title"`
		CurrentSlideIndex *float64          `json:"currentSlideIndex"`
		Slides            []string          `json:"slides"`
		Modules           []json.RawMessage `json:"modules"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStructural, err)
	}
	// Missing or unreadable versions get the legacy rules.
	ver := 1
	if v, ok := raw.Version.(float64); ok && v >= 1 && v == math.Trunc(v) {
		ver = int(v)
	}
	if ver > version.DeckFormat {
		l.Warn("deck written by a newer version; reading as current", slog.Int("version", ver))
	}

	d := domain.NewDeck(raw.Title)
	seen := map[domain.ItemID]bool{}
	for _, markup := range raw.Slides {
		s := ParseSlide(markup, opts.Canvas)
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		for _, it := range s.Items() {
			if ver < 2 {
				it.Schema = min(it.Schema, 1)
			}
			if it.ID == "" || seen[it.ID] {
				it.ID = domain.NewItemID()
			}
			seen[it.ID] = true
			if !opts.Registrar.Register(it, it.Kind(), domain.SourceImport) {
				l.Debug("imported item not registered", slog.String("item", string(it.ID)))
			}
		}
		d.Slides = append(d.Slides, s)
	}

	for i, rawEntry := range raw.Modules {
		var e moduleEntry
		if err := json.Unmarshal(rawEntry, &e); err != nil {
			l.Warn("skipping malformed module entry", slog.Int("entry", i), slog.String("err", err.Error()))
			continue
		}
		it := d.ModuleAt(e.SlideIndex, e.ModuleIndex)
		if it == nil {
			l.Warn("module entry has no embed", slog.Int("slide", e.SlideIndex), slog.Int("module", e.ModuleIndex))
			continue
		}
		m := it.Content.(*domain.ModuleEmbed)
		if e.Title != nil {
			m.Title = *e.Title
		}
		if e.ActivityType != nil {
			m.ActivityType = *e.ActivityType
		}
		d.Modules[it.ID] = domain.CompactConfig(e.Config)
	}

	if raw.CurrentSlideIndex != nil && !math.IsNaN(*raw.CurrentSlideIndex) {
		d.Current = int(math.Max(math.Min(*raw.CurrentSlideIndex, float64(len(d.Slides))), -1))
	}
	d.ClampCurrent()
	l.Debug("deck imported", slog.Int("version", ver), slog.Int("slides", len(d.Slides)), slog.Int("items", d.ItemCount()))
	return d, nil
}
