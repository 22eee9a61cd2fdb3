/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package gesture turns pointer streams into geometry changes on canvas
// items. Each item can be captured by at most one pointer at a time;
// gestures on different items are independent.
package gesture

import (
	"slidecanvas/internal/domain"
	"slidecanvas/internal/geom"
)

// PointerID identifies one physical pointer (mouse, pen, finger).
type PointerID int64

// Mode is the kind of gesture holding a capture.
type Mode int

const (
	ModeDrag Mode = iota + 1
	ModeResize
)

// Viewport describes where the canvas container sits in pointer space.
// Origin is the container's top-left in pointer coordinates, Scroll its
// scroll offset and ScrollSize the scrollable extent.
type Viewport struct {
	Origin     geom.Pt
	Scroll     geom.Pt
	ScrollSize geom.Size
}

// ToContainer maps a pointer position into container coordinates.
func (v Viewport) ToContainer(p geom.Pt) geom.Pt {
	return p.Sub(v.Origin).Add(v.Scroll)
}

type capture struct {
	pointer PointerID
	mode    Mode
}

// Captures is the per-item exclusive pointer capture table shared by the
// drag and resize controllers.
type Captures struct {
	held map[domain.ItemID]capture
}

func NewCaptures() *Captures {
	return &Captures{held: make(map[domain.ItemID]capture)}
}

// Acquire captures id for pointer. It fails while any gesture holds id.
func (c *Captures) Acquire(id domain.ItemID, pointer PointerID, mode Mode) bool {
	if _, busy := c.held[id]; busy {
		return false
	}
	c.held[id] = capture{pointer: pointer, mode: mode}
	return true
}

// Holds reports whether pointer holds id in mode.
func (c *Captures) Holds(id domain.ItemID, pointer PointerID, mode Mode) bool {
	h, ok := c.held[id]
	return ok && h.pointer == pointer && h.mode == mode
}

// Busy reports whether any gesture holds id.
func (c *Captures) Busy(id domain.ItemID) bool {
	_, ok := c.held[id]
	return ok
}

// Release frees id when pointer holds it in mode.
func (c *Captures) Release(id domain.ItemID, pointer PointerID, mode Mode) bool {
	if !c.Holds(id, pointer, mode) {
		return false
	}
	delete(c.held, id)
	return true
}

// Drop forgets any capture on id, used when an item is removed mid-gesture.
func (c *Captures) Drop(id domain.ItemID) {
	delete(c.held, id)
}

// Active counts held captures.
func (c *Captures) Active() int { return len(c.held) }
