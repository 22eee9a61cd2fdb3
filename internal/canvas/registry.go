/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package canvas owns the lifecycle of canvas items: registration attaches
// the interaction affordances an item exposes, unregistration releases them.
// Affordances live in a side table keyed by item ID, never on the item.
package canvas

import (
	"log/slog"

	"slidecanvas/internal/domain"
	applog "slidecanvas/internal/log"
)

// Part is a pointer target inside an item.
type Part int

const (
	PartBody Part = iota + 1
	PartDragHandle
	PartResizeHandle
)

func (p Part) String() string {
	switch p {
	case PartBody:
		return "body"
	case PartDragHandle:
		return "drag"
	case PartResizeHandle:
		return "resize"
	}
	return "unknown"
}

// Binding is the behaviour attached to one registered item.
type Binding struct {
	Item     *domain.Item
	Kind     domain.Kind
	Parts    []Part
	Selected bool
}

// Accepts reports whether the binding routes pointer events for p.
func (b *Binding) Accepts(p Part) bool {
	for _, q := range b.Parts {
		if q == p {
			return true
		}
	}
	return false
}

// Registry is the item-to-binding side table of one editing session.
type Registry struct {
	bindings map[domain.ItemID]*Binding
	log      *slog.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		bindings: make(map[domain.ItemID]*Binding),
		log:      applog.WithComponent("canvas"),
	}
}

// Register attaches affordances to item exactly once. Calling it again for
// a registered item changes nothing. Items written by an older schema are
// migrated first, then stamped with domain.CurrentSchema. A nil item, an
// item without content or a kind that does not match the content is
// ignored and false returned.
func (r *Registry) Register(item *domain.Item, kind domain.Kind, source domain.SourceTag) bool {
	if item == nil || item.Content == nil || item.Content.Kind() != kind {
		r.log.Debug("register ignored non-conforming item", slog.String("kind", kind.String()))
		return false
	}
	if item.ID == "" {
		item.ID = domain.NewItemID()
	}
	if b, ok := r.bindings[item.ID]; ok {
		if b.Item != item {
			// Same identity, new value (e.g. reloaded from a snapshot): rebind.
			b.Item = item
			r.stamp(item)
		}
		return true
	}
	if item.Source == "" {
		item.Source = source
	}
	r.stamp(item)
	r.bindings[item.ID] = &Binding{
		Item:  item,
		Kind:  kind,
		Parts: []Part{PartBody, PartDragHandle, PartResizeHandle},
	}
	return true
}

func (r *Registry) stamp(item *domain.Item) {
	if item.Schema < domain.CurrentSchema {
		Migrate(item)
		item.Schema = domain.CurrentSchema
	}
}

// Unregister releases the binding of id. Unknown ids are ignored.
func (r *Registry) Unregister(id domain.ItemID) {
	delete(r.bindings, id)
}

// Binding returns the binding of id, or nil.
func (r *Registry) Binding(id domain.ItemID) *Binding {
	return r.bindings[id]
}

// Item returns the registered item with id, or nil.
func (r *Registry) Item(id domain.ItemID) *domain.Item {
	if b := r.bindings[id]; b != nil {
		return b.Item
	}
	return nil
}

// Has reports whether id is registered.
func (r *Registry) Has(id domain.ItemID) bool {
	_, ok := r.bindings[id]
	return ok
}

// Len is the number of registered items.
func (r *Registry) Len() int { return len(r.bindings) }

// SetSelected flips the selected visual state of id.
func (r *Registry) SetSelected(id domain.ItemID, on bool) {
	if b := r.bindings[id]; b != nil {
		b.Selected = on
	}
}

// RegisterSlide registers every item on s.
func (r *Registry) RegisterSlide(s *domain.Slide, source domain.SourceTag) {
	for _, it := range s.Items() {
		r.Register(it, it.Kind(), source)
	}
}

// UnregisterSlide releases every item on s.
func (r *Registry) UnregisterSlide(s *domain.Slide) {
	for _, it := range s.Items() {
		r.Unregister(it.ID)
	}
}

// Reset drops every binding.
func (r *Registry) Reset() {
	r.bindings = make(map[domain.ItemID]*Binding)
}
