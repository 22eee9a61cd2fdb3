/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package canvas

import (
	"testing"
	"time"

	"slidecanvas/internal/domain"
	"slidecanvas/internal/geom"
)

func textItem() *domain.Item {
	return domain.NewItem(&domain.TextBox{Body: "hi"}, geom.Pt{X: 10, Y: 10}, time.Now())
}

func TestRegisterIsIdempotent(t *testing.T) {
	r := NewRegistry()
	it := textItem()
	if !r.Register(it, domain.KindTextBox, domain.SourceDirect) {
		t.Fatalf("first register failed")
	}
	b := r.Binding(it.ID)
	if !r.Register(it, domain.KindTextBox, domain.SourcePaste) {
		t.Fatalf("second register should still report success")
	}
	if r.Len() != 1 || r.Binding(it.ID) != b {
		t.Fatalf("binding attached twice")
	}
	if it.Source != domain.SourceDirect {
		t.Fatalf("source tag overwritten: %q", it.Source)
	}
	if it.Schema != domain.CurrentSchema {
		t.Fatalf("schema not stamped: %d", it.Schema)
	}
	if !b.Accepts(PartDragHandle) || !b.Accepts(PartResizeHandle) || !b.Accepts(PartBody) {
		t.Fatalf("binding parts incomplete: %v", b.Parts)
	}
}

func TestRegisterIgnoresNonConformingItems(t *testing.T) {
	r := NewRegistry()
	if r.Register(nil, domain.KindTextBox, domain.SourceDirect) {
		t.Fatalf("nil item registered")
	}
	if r.Register(&domain.Item{ID: "x"}, domain.KindTextBox, domain.SourceDirect) {
		t.Fatalf("item without content registered")
	}
	if r.Register(textItem(), domain.KindTable, domain.SourceDirect) {
		t.Fatalf("kind mismatch registered")
	}
	if r.Len() != 0 {
		t.Fatalf("registry not empty: %d", r.Len())
	}
}

func TestUnregisterIsSafeTwice(t *testing.T) {
	r := NewRegistry()
	it := textItem()
	r.Register(it, domain.KindTextBox, domain.SourceDirect)
	r.Unregister(it.ID)
	r.Unregister(it.ID)
	if r.Has(it.ID) || r.Item(it.ID) != nil {
		t.Fatalf("binding survived unregister")
	}
}

func TestRegisterMigratesLegacyItems(t *testing.T) {
	r := NewRegistry()
	tbl := &domain.Item{
		Color:   "chartreuse",
		Content: &domain.Table{Header: []string{"a"}, Rows: [][]string{{"1", "2", "3"}, {"4"}}},
	}
	mm := &domain.Item{
		Content: &domain.MindMap{Center: "c", Branches: []domain.Branch{{Category: "weird"}}},
	}
	r.Register(tbl, domain.KindTable, domain.SourceImport)
	r.Register(mm, domain.KindMindMap, domain.SourceImport)

	if tbl.ID == "" || mm.ID == "" {
		t.Fatalf("ids not generated")
	}
	if tbl.Color != domain.ColorDefault || tbl.Effect != domain.EffectNone {
		t.Fatalf("style not normalised: %q %q", tbl.Color, tbl.Effect)
	}
	tc := tbl.Content.(*domain.Table)
	if len(tc.Header) != 3 || len(tc.Rows[0]) != 3 || len(tc.Rows[1]) != 3 {
		t.Fatalf("table not padded: %+v", tc)
	}
	if tbl.Rect.W <= 0 || tbl.Rect.H <= 0 {
		t.Fatalf("legacy size not defaulted: %+v", tbl.Rect)
	}
	b := mm.Content.(*domain.MindMap).Branches[0]
	if b.ID == "" || b.Category != domain.CategoryIdea || !b.Color.Valid() {
		t.Fatalf("branch not migrated: %+v", b)
	}
}

func TestCurrentSchemaItemsAreNotTouched(t *testing.T) {
	r := NewRegistry()
	it := textItem()
	it.Schema = domain.CurrentSchema
	it.Color = "not-a-color"
	r.Register(it, domain.KindTextBox, domain.SourceDirect)
	if it.Color != "not-a-color" {
		t.Fatalf("current items must not be migrated")
	}
}

func TestMigrateImageNaturalSize(t *testing.T) {
	local := &domain.Item{Rect: geom.Rect{W: 120, H: 90}, Content: &domain.Image{Src: "data:image/png;base64,AA=="}}
	remote := &domain.Item{Rect: geom.Rect{W: 120, H: 90}, Content: &domain.Image{Src: "https://example.org/a.png", Remote: true}}
	Migrate(local)
	Migrate(remote)
	if n := local.Content.(*domain.Image).Natural; n != (geom.Size{W: 120, H: 90}) {
		t.Fatalf("local natural size not defaulted: %+v", n)
	}
	if n := remote.Content.(*domain.Image).Natural; n.W != 0 || n.H != 0 {
		t.Fatalf("remote natural size should wait for hydration: %+v", n)
	}
}
