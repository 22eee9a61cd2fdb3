/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"log/slog"

	"slidecanvas/internal/domain"
	"slidecanvas/internal/structure"
)

// ActionKind enumerates the structural tool panel commands.
type ActionKind int

const (
	AddRow ActionKind = iota
	RemoveRow
	AddColumn
	RemoveColumn
	AddBranch
	RemoveBranch
	SetBranchCategory
	RemoveItem
)

var actionNames = [...]string{"add-row", "remove-row", "add-column", "remove-column", "add-branch", "remove-branch", "set-branch-category", "remove-item"}

func (a ActionKind) String() string {
	if a < 0 || int(a) >= len(actionNames) {
		return "unknown"
	}
	return actionNames[a]
}

// ParseAction resolves a command name.
func ParseAction(name string) (ActionKind, bool) {
	for i, n := range actionNames {
		if n == name {
			return ActionKind(i), true
		}
	}
	return 0, false
}

// Action is one structural command. Index addresses a row or column (-1
// means the end); Branch and Category are used by the branch commands.
type Action struct {
	Kind     ActionKind
	Index    int
	Branch   string
	Category domain.Category
}

// AppliesTo reports whether a is meaningful for items of kind k.
func (a Action) AppliesTo(k domain.Kind) bool {
	switch a.Kind {
	case AddRow, RemoveRow, AddColumn, RemoveColumn:
		return k == domain.KindTable
	case AddBranch, RemoveBranch, SetBranchCategory:
		return k == domain.KindMindMap
	case RemoveItem:
		return k != domain.KindNone
	}
	return false
}

// ApplyStructuralAction runs a on the selected item. It is a no-op without
// a selection, for an action that does not fit the selected kind, or when
// the item's invariants forbid it (last row, last column).
func (s *Session) ApplyStructuralAction(a Action) bool {
	it := s.Selected()
	if it == nil || !a.AppliesTo(it.Kind()) {
		return false
	}
	if a.Kind == RemoveItem {
		return s.RemoveItem(it.ID)
	}
	changed := false
	switch c := it.Content.(type) {
	case *domain.Table:
		switch a.Kind {
		case AddRow:
			structure.AddRow(c, a.Index)
			changed = true
		case RemoveRow:
			changed = structure.RemoveRow(c, a.Index)
		case AddColumn:
			structure.AddColumn(c, a.Index)
			changed = true
		case RemoveColumn:
			changed = structure.RemoveColumn(c, a.Index)
		}
	case *domain.MindMap:
		switch a.Kind {
		case AddBranch:
			structure.AddBranch(c, a.Category)
			changed = true
		case RemoveBranch:
			if a.Branch == "" {
				changed = structure.RemoveLastBranch(c)
			} else {
				changed = structure.RemoveBranch(c, a.Branch)
			}
		case SetBranchCategory:
			changed = structure.SetCategory(c, a.Branch, a.Category)
		}
	}
	if !changed {
		return false
	}
	s.dropStaleFocus(it)
	s.render()
	return true
}

// dropStaleFocus forgets a remembered range whose leaf no longer exists.
func (s *Session) dropStaleFocus(it *domain.Item) {
	if s.focus != nil && s.focus.item == it.ID && !s.focus.leaf.writable(it) {
		s.focus = nil
	}
}

// SetBranchLabel sets or clears (blank) a branch's custom label.
func (s *Session) SetBranchLabel(id domain.ItemID, branch, label string) bool {
	_, it := s.item(id)
	if it == nil {
		return false
	}
	m, ok := it.Content.(*domain.MindMap)
	if !ok || !structure.SetLabel(m, branch, label) {
		return false
	}
	if id == s.selected {
		s.render()
	}
	return true
}

// RemoveItem deletes an item from its slide, releases its binding and any
// gesture on it and drops its module configuration. Removing the selected
// item leaves nothing selected.
func (s *Session) RemoveItem(id domain.ItemID) bool {
	si, it := s.item(id)
	if it == nil {
		return false
	}
	s.deck.Slides[si].Canvas.Remove(id)
	s.release(it)
	if id == s.selected {
		s.clearSelection(true)
	}
	s.log.Debug("item removed", slog.String("item", string(id)))
	return true
}

// release detaches an item that has left the document.
func (s *Session) release(it *domain.Item) {
	s.drag.Forget(it.ID)
	s.resize.Forget(it.ID)
	s.registry.Unregister(it.ID)
	delete(s.deck.Modules, it.ID)
}
