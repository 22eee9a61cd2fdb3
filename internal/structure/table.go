/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package structure edits the inner structure of tables and mind maps.
// Every operation keeps the variant's invariants: tables stay rectangular
// with at least one body row and one column, mind maps survive losing their
// last branch.
package structure

import (
	"fmt"

	"slidecanvas/internal/domain"
	"slidecanvas/internal/richtext"
)

// NewTable returns a table with the given body rows and columns (minimum 1)
// and numbered header cells.
func NewTable(rows, cols int) *domain.Table {
	rows, cols = max(rows, 1), max(cols, 1)
	t := &domain.Table{Header: make([]string, cols)}
	for c := range t.Header {
		t.Header[c] = fmt.Sprintf("Column %d", c+1)
	}
	for r := 0; r < rows; r++ {
		t.Rows = append(t.Rows, make([]string, cols))
	}
	return t
}

// AddRow inserts an empty body row at index at; out of range appends.
func AddRow(t *domain.Table, at int) {
	row := make([]string, t.Columns())
	if at < 0 || at >= len(t.Rows) {
		t.Rows = append(t.Rows, row)
		return
	}
	t.Rows = append(t.Rows[:at], append([][]string{row}, t.Rows[at:]...)...)
}

// RemoveRow deletes body row at. The last body row cannot be removed;
// out of range removes the final row.
func RemoveRow(t *domain.Table, at int) bool {
	if len(t.Rows) <= 1 {
		return false
	}
	if at < 0 || at >= len(t.Rows) {
		at = len(t.Rows) - 1
	}
	t.Rows = append(t.Rows[:at], t.Rows[at+1:]...)
	return true
}

// AddColumn inserts a column into the header and every body row.
func AddColumn(t *domain.Table, at int) {
	n := t.Columns()
	if at < 0 || at > n {
		at = n
	}
	t.Header = insertCell(t.Header, at, fmt.Sprintf("Column %d", n+1))
	for i := range t.Rows {
		t.Rows[i] = insertCell(t.Rows[i], at, "")
	}
}

// RemoveColumn deletes column at from every row. The last column stays.
func RemoveColumn(t *domain.Table, at int) bool {
	n := t.Columns()
	if n <= 1 {
		return false
	}
	if at < 0 || at >= n {
		at = n - 1
	}
	t.Header = append(t.Header[:at], t.Header[at+1:]...)
	for i := range t.Rows {
		if at < len(t.Rows[i]) {
			t.Rows[i] = append(t.Rows[i][:at], t.Rows[i][at+1:]...)
		}
	}
	return true
}

func insertCell(row []string, at int, v string) []string {
	if at >= len(row) {
		return append(row, v)
	}
	row = append(row[:at+1], row[at:]...)
	row[at] = v
	return row
}

// SetCell stores sanitized markup in a cell; row -1 addresses the header.
func SetCell(t *domain.Table, row, col int, markup string) bool {
	if col < 0 || col >= t.Columns() {
		return false
	}
	clean := richtext.Sanitize(markup)
	if row == -1 {
		t.Header[col] = clean
		return true
	}
	if row < 0 || row >= len(t.Rows) {
		return false
	}
	t.Rows[row][col] = clean
	return true
}

// Dimensions reports body rows and columns.
func Dimensions(t *domain.Table) (rows, cols int) {
	return len(t.Rows), t.Columns()
}
