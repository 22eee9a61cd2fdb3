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

type resizeStart struct {
	size    geom.Size
	pointer geom.Pt
}

// Resize changes item size from the bottom-right handle. Width and height
// follow the pointer independently, never drop below the kind minimum and
// never exceed the scrollable area right/below the item origin. The minimum
// wins when the two conflict.
type Resize struct {
	caps   *Captures
	starts map[domain.ItemID]resizeStart
}

func NewResize(c *Captures) *Resize {
	return &Resize{caps: c, starts: make(map[domain.ItemID]resizeStart)}
}

func (r *Resize) Start(item *domain.Item, pointer PointerID, at geom.Pt, vp Viewport) bool {
	if item == nil || !r.caps.Acquire(item.ID, pointer, ModeResize) {
		return false
	}
	r.starts[item.ID] = resizeStart{size: item.Rect.Size(), pointer: vp.ToContainer(at)}
	return true
}

// Move commits the clamped size for the current pointer position. A
// viewport without a scroll size leaves the upper bound open.
func (r *Resize) Move(item *domain.Item, pointer PointerID, at geom.Pt, vp Viewport) bool {
	if item == nil || !r.caps.Holds(item.ID, pointer, ModeResize) {
		return false
	}
	st := r.starts[item.ID]
	delta := vp.ToContainer(at).Sub(st.pointer)
	minSize := item.Kind().MinSize()
	w, h := st.size.W+delta.X, st.size.H+delta.Y
	if vp.ScrollSize.W > 0 {
		w = min(w, vp.ScrollSize.W-item.Rect.X)
	}
	if vp.ScrollSize.H > 0 {
		h = min(h, vp.ScrollSize.H-item.Rect.Y)
	}
	item.Rect.W = max(w, minSize.W)
	item.Rect.H = max(h, minSize.H)
	return true
}

func (r *Resize) End(item *domain.Item, pointer PointerID) bool {
	if item == nil || !r.caps.Release(item.ID, pointer, ModeResize) {
		return false
	}
	delete(r.starts, item.ID)
	return true
}

// Cancel releases the capture and keeps the last committed size.
func (r *Resize) Cancel(item *domain.Item, pointer PointerID) bool {
	return r.End(item, pointer)
}

func (r *Resize) Active(id domain.ItemID) bool {
	_, ok := r.starts[id]
	return ok
}

func (r *Resize) Forget(id domain.ItemID) {
	if _, ok := r.starts[id]; ok {
		delete(r.starts, id)
		r.caps.Drop(id)
	}
}
