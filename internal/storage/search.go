/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"fmt"
	"strings"

	"slidecanvas/internal/domain"
	"slidecanvas/internal/richtext"
	"slidecanvas/internal/structure"
)

// SearchQuery describes an in-app search.
// Text uses SQLite FTS5 syntax (simple terms, phrases in quotes, AND/OR/NOT);
// empty Text lists documents matching the filters. Kinds restricts to item
// kinds ("textbox", "table", "mindmap", "image", "module", "slide").
type SearchQuery struct {
	Text   string
	Deck   string
	Kinds  []string
	Limit  int
	Offset int
}

// SearchResult is a single match. Snippet marks hits with [ ].
type SearchResult struct {
	Deck       string
	SlideIndex int
	SlideID    string
	ItemID     domain.ItemID
	Kind       string
	Snippet    string
}

type document struct {
	slide   int
	slideID string
	item    domain.ItemID
	kind    string
	text    string
}

// documents flattens the searchable text of d.
func documents(d *domain.Deck) []document {
	var out []document
	for si, sl := range d.Slides {
		if sl.Canvas == nil {
			if s := richtext.PlainText(sl.Static); s != "" {
				out = append(out, document{slide: si, slideID: sl.ID, kind: "slide", text: s})
			}
			continue
		}
		for _, it := range sl.Items() {
			var parts []string
			switch c := it.Content.(type) {
			case *domain.TextBox:
				parts = append(parts, richtext.PlainText(c.Body))
			case *domain.Table:
				for _, h := range c.Header {
					parts = append(parts, richtext.PlainText(h))
				}
				for _, r := range c.Rows {
					for _, cell := range r {
						parts = append(parts, richtext.PlainText(cell))
					}
				}
			case *domain.MindMap:
				parts = append(parts, richtext.PlainText(c.Center))
				for i, b := range c.Branches {
					parts = append(parts, structure.Label(c, i), richtext.PlainText(b.Body))
				}
			case *domain.Image:
				parts = append(parts, c.Alt)
			case *domain.ModuleEmbed:
				parts = append(parts, c.Title, c.ActivityType, richtext.PlainText(c.Preview))
			}
			text := strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
			if text != "" {
				out = append(out, document{slide: si, slideID: sl.ID, item: it.ID, kind: it.Kind().String(), text: text})
			}
		}
	}
	return out
}

// UpdateDocuments replaces the indexed text of deck with the content of d.
func (x *Index) UpdateDocuments(ctx context.Context, deck string, d *domain.Deck) error {
	docs := documents(d)
	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE deck=?`, deck); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear documents: %w", err)
	}
	ins, err := tx.PrepareContext(ctx, `INSERT INTO documents(deck, slide_index, slide_id, item_id, kind, text) VALUES(?,?,?,?,?,?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer ins.Close()
	for _, doc := range docs {
		if _, err := ins.ExecContext(ctx, deck, doc.slide, doc.slideID, string(doc.item), doc.kind, doc.text); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert document: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Search runs q over the indexed documents.
func (x *Index) Search(ctx context.Context, q SearchQuery) ([]SearchResult, error) {
	var args []any
	var sb strings.Builder
	if strings.TrimSpace(q.Text) != "" {
		sb.WriteString("SELECT d.deck, d.slide_index, d.slide_id, d.item_id, d.kind, snippet(fts_documents, 0, '[', ']', '…', 10)\n")
		sb.WriteString("FROM fts_documents JOIN documents d ON fts_documents.rowid = d.doc_id\n")
		sb.WriteString("WHERE fts_documents MATCH ?\n")
		args = append(args, q.Text)
	} else {
		sb.WriteString("SELECT d.deck, d.slide_index, d.slide_id, d.item_id, d.kind, ''\n")
		sb.WriteString("FROM documents d\nWHERE 1=1\n")
	}
	if q.Deck != "" {
		sb.WriteString(" AND d.deck = ?\n")
		args = append(args, q.Deck)
	}
	if len(q.Kinds) > 0 {
		sb.WriteString(" AND d.kind IN (" + placeholders(len(q.Kinds)) + ")\n")
		for _, k := range q.Kinds {
			args = append(args, k)
		}
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	sb.WriteString("ORDER BY d.deck, d.slide_index, d.doc_id\nLIMIT ? OFFSET ?")
	args = append(args, limit, max(q.Offset, 0))

	rows, err := x.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()
	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		var item string
		if err := rows.Scan(&r.Deck, &r.SlideIndex, &r.SlideID, &item, &r.Kind, &r.Snippet); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		r.ItemID = domain.ItemID(item)
		out = append(out, r)
	}
	return out, rows.Err()
}
