/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"slidecanvas/internal/canvas"
	"slidecanvas/internal/domain"
	"slidecanvas/internal/geom"
	"slidecanvas/internal/gesture"
)

// PointerType is the phase of a pointer event.
type PointerType int

const (
	PointerDown PointerType = iota
	PointerMove
	PointerUp
	PointerCancel
)

// PointerEvent is a pointer event already hit-tested by the shell: Item
// and Part say what was under the pointer when it went down.
type PointerEvent struct {
	Type    PointerType
	Pointer gesture.PointerID
	Item    domain.ItemID
	Part    canvas.Part
	At      geom.Pt
}

// SetViewport records where the canvas sits on screen and how far it is
// scrolled. Running gestures pick up the new origin and scroll on their next
// move; only the scroll size is fixed when the pointer goes down.
func (s *Session) SetViewport(origin, scroll geom.Pt) {
	s.viewport.Origin = origin
	s.viewport.Scroll = scroll
}

// Pointer routes one event. Body presses select; handle presses select
// and start a drag or resize that follows only the pressing pointer.
// Events for items that are not registered are ignored.
func (s *Session) Pointer(ev PointerEvent) bool {
	si, it := s.item(ev.Item)
	if it == nil {
		if ev.Type == PointerDown && ev.Item == "" {
			s.Clear()
			return true
		}
		return false
	}
	switch ev.Type {
	case PointerDown:
		b := s.registry.Binding(it.ID)
		if b == nil || !b.Accepts(ev.Part) {
			return false
		}
		s.Select(it.ID)
		if ev.Part == canvas.PartBody {
			return true
		}
		vp := s.viewport
		vp.ScrollSize = s.deck.Slides[si].Canvas.ScrollSize()
		var ok bool
		if ev.Part == canvas.PartDragHandle {
			ok = s.drag.Start(it, ev.Pointer, ev.At, vp)
		} else {
			ok = s.resize.Start(it, ev.Pointer, ev.At, vp)
		}
		if ok {
			s.views[ev.Pointer] = vp
		}
		return ok
	case PointerMove:
		vp, ok := s.views[ev.Pointer]
		if !ok {
			return false
		}
		vp.Origin, vp.Scroll = s.viewport.Origin, s.viewport.Scroll
		if s.drag.Active(it.ID) {
			return s.drag.Move(it, ev.Pointer, ev.At, vp)
		}
		return s.resize.Move(it, ev.Pointer, ev.At, vp)
	case PointerUp, PointerCancel:
		var ok bool
		if s.drag.Active(it.ID) {
			ok = s.drag.End(it, ev.Pointer)
		} else {
			ok = s.resize.End(it, ev.Pointer)
		}
		if ok {
			delete(s.views, ev.Pointer)
			if it.ID == s.selected {
				s.render()
			}
		}
		return ok
	}
	return false
}

// Gesturing reports whether id is being dragged or resized.
func (s *Session) Gesturing(id domain.ItemID) bool {
	return s.captures.Busy(id)
}
