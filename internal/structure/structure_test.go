/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package structure

import (
	"reflect"
	"testing"

	"slidecanvas/internal/domain"
)

func TestAddColumnKeepsRowsSymmetric(t *testing.T) {
	tb := NewTable(2, 3)
	AddColumn(tb, -1)
	if len(tb.Header) != 4 {
		t.Fatalf("header has %d cells", len(tb.Header))
	}
	for i, r := range tb.Rows {
		if len(r) != 4 {
			t.Fatalf("row %d has %d cells", i, len(r))
		}
	}
	if tb.Header[3] != "Column 4" {
		t.Fatalf("new header %q", tb.Header[3])
	}
}

func TestAddColumnInMiddleShiftsCells(t *testing.T) {
	tb := NewTable(1, 2)
	SetCell(tb, 0, 0, "a")
	SetCell(tb, 0, 1, "b")
	AddColumn(tb, 1)
	if !reflect.DeepEqual(tb.Rows[0], []string{"a", "", "b"}) {
		t.Fatalf("row = %q", tb.Rows[0])
	}
}

func TestTableKeepsOneRowAndColumn(t *testing.T) {
	tb := NewTable(0, 0)
	if r, c := Dimensions(tb); r != 1 || c != 1 {
		t.Fatalf("new table %dx%d", r, c)
	}
	if RemoveRow(tb, 0) || RemoveColumn(tb, 0) {
		t.Fatalf("removed the last row or column")
	}
	AddRow(tb, 0)
	if !RemoveRow(tb, 5) {
		t.Fatalf("out of range row removal should drop the last row")
	}
	if r, _ := Dimensions(tb); r != 1 {
		t.Fatalf("rows = %d", r)
	}
}

func TestAddRowInsertsAtIndex(t *testing.T) {
	tb := NewTable(2, 1)
	SetCell(tb, 0, 0, "first")
	SetCell(tb, 1, 0, "second")
	AddRow(tb, 1)
	if len(tb.Rows) != 3 || tb.Rows[0][0] != "first" || tb.Rows[1][0] != "" || tb.Rows[2][0] != "second" {
		t.Fatalf("rows = %q", tb.Rows)
	}
}

func TestSetCellSanitizes(t *testing.T) {
	tb := NewTable(1, 1)
	if !SetCell(tb, -1, 0, `<b onclick="x()">Name</b><script>bad()</script>`) {
		t.Fatalf("header write refused")
	}
	if tb.Header[0] != "<b>Name</b>" {
		t.Fatalf("header = %q", tb.Header[0])
	}
	if SetCell(tb, 3, 0, "x") || SetCell(tb, 0, 2, "x") {
		t.Fatalf("out of range cell accepted")
	}
}

func TestBranchLabelsRenumberAfterRemoval(t *testing.T) {
	m := NewMindMap("Topic")
	AddBranch(m, domain.CategoryIdea)
	b2 := AddBranch(m, domain.CategoryQuestion)
	AddBranch(m, domain.CategoryFact)
	if got := Labels(m); !reflect.DeepEqual(got, []string{"Idea 1", "Question 2", "Fact 3"}) {
		t.Fatalf("labels = %q", got)
	}
	if !RemoveBranch(m, b2) {
		t.Fatalf("remove failed")
	}
	if got := Labels(m); !reflect.DeepEqual(got, []string{"Idea 1", "Fact 2"}) {
		t.Fatalf("labels after removal = %q", got)
	}
	if Count(m) != 2 {
		t.Fatalf("count = %d", Count(m))
	}
}

func TestRemovingLastBranchKeepsMindMap(t *testing.T) {
	m := NewMindMap("Topic")
	id := AddBranch(m, "bogus")
	if m.Branches[0].Category != domain.CategoryIdea {
		t.Fatalf("unknown category not defaulted")
	}
	RemoveBranch(m, id)
	if Count(m) != 0 || m.Center != "Topic" {
		t.Fatalf("mind map damaged: %+v", m)
	}
	if RemoveLastBranch(m) {
		t.Fatalf("removed from empty mind map")
	}
}

func TestCustomLabelAndCategoryColor(t *testing.T) {
	m := NewMindMap("")
	id := AddBranch(m, domain.CategoryIdea)
	SetLabel(m, id, "  Why? ")
	if Label(m, 0) != "Why?" {
		t.Fatalf("label = %q", Label(m, 0))
	}
	SetLabel(m, id, "")
	SetCategory(m, id, domain.CategoryAction)
	if Label(m, 0) != "Action 1" || m.Branches[0].Color != domain.ColorOrange {
		t.Fatalf("category change: %q %s", Label(m, 0), m.Branches[0].Color)
	}
	SetBranchColor(m, id, domain.ColorTeal)
	SetCategory(m, id, domain.CategoryFact)
	if m.Branches[0].Color != domain.ColorTeal {
		t.Fatalf("custom color overwritten")
	}
}
