/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package canvas

import (
	"github.com/google/uuid"

	"slidecanvas/internal/domain"
	"slidecanvas/internal/geom"
)

// Migrate upgrades an item written before the current schema. Schema 1
// items (files without a version field) may lack colors, effects, sizes,
// branch ids and categories, and may hold ragged tables.
func Migrate(item *domain.Item) {
	if !item.Color.Valid() {
		item.Color = domain.ColorDefault
	}
	if item.Effect != domain.EffectShadow {
		item.Effect = domain.EffectNone
	}
	if item.Rect.W <= 0 || item.Rect.H <= 0 {
		s := item.Kind().DefaultSize()
		item.Rect.W, item.Rect.H = s.W, s.H
	}
	switch c := item.Content.(type) {
	case *domain.Table:
		migrateTable(c)
	case *domain.MindMap:
		for i := range c.Branches {
			b := &c.Branches[i]
			if b.ID == "" {
				b.ID = uuid.NewString()
			}
			if !b.Category.Valid() {
				b.Category = domain.CategoryIdea
			}
			if !b.Color.Valid() {
				b.Color = b.Category.DefaultColor()
			}
		}
	case *domain.Image:
		// Remote images learn their size from hydration.
		if (c.Natural.W <= 0 || c.Natural.H <= 0) && (!c.Remote || c.Placeholder) {
			c.Natural = geom.Size{W: item.Rect.W, H: item.Rect.H}
		}
	case *domain.TextBox, *domain.ModuleEmbed:
	}
}

func migrateTable(t *domain.Table) {
	cols := len(t.Header)
	for _, r := range t.Rows {
		cols = max(cols, len(r))
	}
	cols = max(cols, 1)
	for len(t.Header) < cols {
		t.Header = append(t.Header, "")
	}
	for i := range t.Rows {
		for len(t.Rows[i]) < cols {
			t.Rows[i] = append(t.Rows[i], "")
		}
	}
	if len(t.Rows) == 0 {
		t.Rows = [][]string{make([]string, cols)}
	}
}
