/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package gesture

import (
	"slidecanvas/internal/domain"
	"slidecanvas/internal/geom"
)

// Drag moves items with the pointer. The item keeps the offset between the
// pointer and its top-left corner recorded at start, and always stays inside
// [0, scroll size - item size] on both axes.
type Drag struct {
	caps    *Captures
	offsets map[domain.ItemID]geom.Pt
}

func NewDrag(c *Captures) *Drag {
	return &Drag{caps: c, offsets: make(map[domain.ItemID]geom.Pt)}
}

// Start captures item for pointer. It fails for a nil item or an item that
// is already mid-gesture.
func (d *Drag) Start(item *domain.Item, pointer PointerID, at geom.Pt, vp Viewport) bool {
	if item == nil || !d.caps.Acquire(item.ID, pointer, ModeDrag) {
		return false
	}
	d.offsets[item.ID] = vp.ToContainer(at).Sub(item.Rect.Origin())
	return true
}

// Move repositions item. Events from any pointer other than the capturing
// one are ignored.
func (d *Drag) Move(item *domain.Item, pointer PointerID, at geom.Pt, vp Viewport) bool {
	if item == nil || !d.caps.Holds(item.ID, pointer, ModeDrag) {
		return false
	}
	p := vp.ToContainer(at).Sub(d.offsets[item.ID])
	item.Rect.X = geom.Clamp(p.X, 0, vp.ScrollSize.W-item.Rect.W)
	item.Rect.Y = geom.Clamp(p.Y, 0, vp.ScrollSize.H-item.Rect.H)
	return true
}

// End releases the capture; the last committed position stays.
func (d *Drag) End(item *domain.Item, pointer PointerID) bool {
	if item == nil || !d.caps.Release(item.ID, pointer, ModeDrag) {
		return false
	}
	delete(d.offsets, item.ID)
	return true
}

// Cancel behaves like End. There is no history to roll back to.
func (d *Drag) Cancel(item *domain.Item, pointer PointerID) bool {
	return d.End(item, pointer)
}

// Active reports whether id is being dragged.
func (d *Drag) Active(id domain.ItemID) bool {
	_, ok := d.offsets[id]
	return ok
}

// Forget clears state for a removed item.
func (d *Drag) Forget(id domain.ItemID) {
	if _, ok := d.offsets[id]; ok {
		delete(d.offsets, id)
		d.caps.Drop(id)
	}
}
