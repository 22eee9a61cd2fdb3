/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package structure

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"slidecanvas/internal/domain"
	"slidecanvas/internal/richtext"
)

// NewMindMap returns a mind map with a sanitized central idea and no branches.
func NewMindMap(center string) *domain.MindMap {
	return &domain.MindMap{Center: richtext.Sanitize(center)}
}

// AddBranch appends a branch of category cat (idea when unknown) and returns its id.
func AddBranch(m *domain.MindMap, cat domain.Category) string {
	if !cat.Valid() {
		cat = domain.CategoryIdea
	}
	b := domain.Branch{ID: uuid.NewString(), Category: cat, Color: cat.DefaultColor()}
	m.Branches = append(m.Branches, b)
	return b.ID
}

// RemoveBranch deletes the branch with id. The mind map itself is never
// removed, even when its last branch goes.
func RemoveBranch(m *domain.MindMap, id string) bool {
	i := branchIndex(m, id)
	if i < 0 {
		return false
	}
	m.Branches = append(m.Branches[:i], m.Branches[i+1:]...)
	return true
}

// RemoveLastBranch deletes the final branch, if any.
func RemoveLastBranch(m *domain.MindMap) bool {
	if len(m.Branches) == 0 {
		return false
	}
	m.Branches = m.Branches[:len(m.Branches)-1]
	return true
}

// SetCategory changes a branch category. A branch still showing its derived
// color follows the new category's color.
func SetCategory(m *domain.MindMap, id string, cat domain.Category) bool {
	i := branchIndex(m, id)
	if i < 0 || !cat.Valid() {
		return false
	}
	b := &m.Branches[i]
	if b.Color == b.Category.DefaultColor() {
		b.Color = cat.DefaultColor()
	}
	b.Category = cat
	return true
}

// SetLabel sets a custom label; blank restores the derived label.
func SetLabel(m *domain.MindMap, id, label string) bool {
	i := branchIndex(m, id)
	if i < 0 {
		return false
	}
	m.Branches[i].Label = strings.TrimSpace(label)
	return true
}

// SetBranchBody stores sanitized markup as the branch text.
func SetBranchBody(m *domain.MindMap, id, markup string) bool {
	i := branchIndex(m, id)
	if i < 0 {
		return false
	}
	m.Branches[i].Body = richtext.Sanitize(markup)
	return true
}

// SetBranchColor recolors one branch.
func SetBranchColor(m *domain.MindMap, id string, c domain.Color) bool {
	i := branchIndex(m, id)
	if i < 0 || !c.Valid() {
		return false
	}
	m.Branches[i].Color = c
	return true
}

// Label is the display label of branch i: the custom label when set,
// otherwise "<Category> n" where n is the 1-based position among all branches.
func Label(m *domain.MindMap, i int) string {
	if i < 0 || i >= len(m.Branches) {
		return ""
	}
	if l := m.Branches[i].Label; l != "" {
		return l
	}
	return fmt.Sprintf("%s %d", m.Branches[i].Category.Title(), i+1)
}

// Labels lists the display labels in order.
func Labels(m *domain.MindMap) []string {
	out := make([]string, len(m.Branches))
	for i := range m.Branches {
		out[i] = Label(m, i)
	}
	return out
}

// Count is the displayed branch count, always derived from the branches.
func Count(m *domain.MindMap) int { return len(m.Branches) }

func branchIndex(m *domain.MindMap, id string) int {
	for i, b := range m.Branches {
		if b.ID == id {
			return i
		}
	}
	return -1
}
