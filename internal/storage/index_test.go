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
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func openTestIndex(t *testing.T, opts IndexOptions) *Index {
	t.Helper()
	x, err := OpenIndex(t.TempDir(), opts)
	if err != nil {
		t.Fatalf("OpenIndex: %v", err)
	}
	t.Cleanup(func() { _ = x.Close() })
	return x
}

func TestIndexInitCreatesWALAndMetaVersion(t *testing.T) {
	x := openTestIndex(t, IndexOptions{})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	var mode string
	if err := x.db.QueryRowContext(ctx, "PRAGMA journal_mode;").Scan(&mode); err != nil {
		t.Fatalf("read journal_mode: %v", err)
	}
	if mode != "wal" && mode != "WAL" {
		t.Fatalf("expected WAL mode, got %s", mode)
	}
	var cnt int
	if err := x.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name IN ('meta','version','documents','fts_documents','assets','previews')").Scan(&cnt); err != nil {
		t.Fatalf("query sqlite_master: %v", err)
	}
	if cnt != 6 {
		t.Fatalf("expected 6 tables, got %d", cnt)
	}
	if v, err := x.SchemaVersion(ctx); err != nil || v != schemaVersion {
		t.Fatalf("schema version %d (%v)", v, err)
	}
}

func TestMigrationsUpgradeV1ToV2(t *testing.T) {
	dir := t.TempDir()
	idx := IndexPath(dir)
	if err := os.MkdirAll(filepath.Dir(idx), 0o755); err != nil {
		t.Fatalf("mk index dir: %v", err)
	}
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)", filepath.ToSlash(idx)))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	stmts := []string{
		`CREATE TABLE meta (key TEXT PRIMARY KEY, value TEXT NOT NULL);`,
		`CREATE TABLE version (id INTEGER PRIMARY KEY CHECK(id=1), schema INTEGER NOT NULL, app TEXT, created_at TEXT NOT NULL, updated_at TEXT NOT NULL);`,
		`INSERT INTO version(id, schema, app, created_at, updated_at) VALUES(1, 1, 'test', '2020-01-01T00:00:00Z', '2020-01-01T00:00:00Z');`,
	}
	for _, q := range stmts {
		if _, err := db.ExecContext(ctx, q); err != nil {
			t.Fatalf("seed v1 schema: %v (q=%s)", err, q)
		}
	}
	db.Close()

	x, err := OpenIndex(dir, IndexOptions{})
	if err != nil {
		t.Fatalf("OpenIndex: %v", err)
	}
	defer x.Close()
	if v, _ := x.SchemaVersion(ctx); v != 2 {
		t.Fatalf("expected schema 2 after migration, got %d", v)
	}
	var cnt int
	if err := x.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name IN ('idx_documents_deck','idx_previews_access')`).Scan(&cnt); err != nil {
		t.Fatalf("query indexes: %v", err)
	}
	if cnt != 2 {
		t.Fatalf("expected migration indexes, got %d", cnt)
	}
}

func TestOpenOrRebuildIndexOnCorruption(t *testing.T) {
	dir := t.TempDir()
	idx := IndexPath(dir)
	if err := os.MkdirAll(filepath.Dir(idx), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(idx, []byte("THIS IS NOT SQLITE"), 0o644); err != nil {
		t.Fatalf("write corrupt: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	x, rebuilt, err := OpenOrRebuildIndex(ctx, dir, IndexOptions{})
	if err != nil {
		t.Fatalf("OpenOrRebuildIndex: %v", err)
	}
	defer x.Close()
	if !rebuilt || !x.Healthy(ctx) {
		t.Fatalf("expected a healthy rebuilt index")
	}
	entries, _ := os.ReadDir(filepath.Join(filepath.Dir(idx), BackupsDirName))
	if len(entries) == 0 {
		t.Fatalf("expected a backup of the damaged index")
	}

	again, rebuilt, err := OpenOrRebuildIndex(ctx, dir, IndexOptions{})
	if err != nil || rebuilt {
		t.Fatalf("healthy index rebuilt again: %v", err)
	}
	again.Close()
}

func TestAssetsDedupeByContent(t *testing.T) {
	x := openTestIndex(t, IndexOptions{})
	ctx := context.Background()
	h1, existed, err := x.PutAsset(ctx, "image/png", tinyPNG, 1, 1)
	if err != nil || existed {
		t.Fatalf("first put: %v existed=%v", err, existed)
	}
	h2, existed, err := x.PutAsset(ctx, "image/png", tinyPNG, 1, 1)
	if err != nil || !existed || h1 != h2 {
		t.Fatalf("second put: %v existed=%v", err, existed)
	}
	a, err := x.Asset(ctx, h1)
	if err != nil || a.Refs != 2 || len(a.Data) != len(tinyPNG) || a.MIME != "image/png" {
		t.Fatalf("asset %+v err %v", a, err)
	}
	if _, err := x.Asset(ctx, "missing"); err != ErrAssetNotFound {
		t.Fatalf("missing asset: %v", err)
	}
}

func TestCatalogImagesStoresEachImageOnce(t *testing.T) {
	x := openTestIndex(t, IndexOptions{})
	ctx := context.Background()
	added, err := x.CatalogImages(ctx, sampleDeck("Cells"))
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	if added != 1 {
		t.Fatalf("expected 1 new asset, got %d", added)
	}
	n, size, err := x.AssetStats(ctx)
	if err != nil || n != 1 || size != int64(len(tinyPNG)) {
		t.Fatalf("stats %d/%d err %v", n, size, err)
	}
}

func TestPreviewsPutGetAndEvict(t *testing.T) {
	x := openTestIndex(t, IndexOptions{MaxPreviewBytes: 64})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i, id := range []string{"a", "b", "c"} {
		if err := x.PutPreview(ctx, id, 100, 100, make([]byte, 40)); err != nil {
			t.Fatalf("put %d: %v", i, err)
		}
		time.Sleep(5 * time.Millisecond)
	}
	total, err := x.TotalPreviewBytes(ctx)
	if err != nil || total > 64 {
		t.Fatalf("expected eviction to <=64 bytes, got %d (%v)", total, err)
	}
	if b, _ := x.Preview(ctx, "c", 100, 100); len(b) != 40 {
		t.Fatalf("newest preview evicted")
	}
	if b, _ := x.Preview(ctx, "a", 100, 100); b != nil {
		t.Fatalf("oldest preview kept")
	}
}

func TestGetOrCreatePreview(t *testing.T) {
	x := openTestIndex(t, IndexOptions{})
	ctx := context.Background()
	calls := 0
	gen := func(context.Context) ([]byte, error) { calls++; return []byte("abcd"), nil }
	for i := 0; i < 2; i++ {
		b, err := x.GetOrCreatePreview(ctx, "slide-1", 320, 180, gen)
		if err != nil || string(b) != "abcd" {
			t.Fatalf("getOrCreate %d: %q %v", i, b, err)
		}
	}
	if calls != 1 {
		t.Fatalf("generator should be called once, got %d", calls)
	}
	if err := x.InvalidatePreviews(ctx, "slide-1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if b, _ := x.Preview(ctx, "slide-1", 320, 180); b != nil {
		t.Fatalf("preview survived invalidation")
	}
}

func TestSearchFindsItemText(t *testing.T) {
	x := openTestIndex(t, IndexOptions{})
	ctx := context.Background()
	d := sampleDeck("Cells")
	if err := x.UpdateDocuments(ctx, "cells.json", d); err != nil {
		t.Fatalf("update: %v", err)
	}
	res, err := x.Search(ctx, SearchQuery{Text: "photosynthesis"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(res) != 1 || res[0].Kind != "textbox" || res[0].SlideIndex != 1 || res[0].ItemID != d.Slides[1].Canvas.Items[0].ID {
		t.Fatalf("results %+v", res)
	}
	if res, _ := x.Search(ctx, SearchQuery{Text: "fact"}); len(res) != 1 || res[0].Kind != "mindmap" {
		t.Fatalf("branch label not indexed: %+v", res)
	}
	if res, _ := x.Search(ctx, SearchQuery{Text: "plant"}); len(res) != 1 || res[0].Kind != "slide" {
		t.Fatalf("static slide not indexed: %+v", res)
	}
	if res, _ := x.Search(ctx, SearchQuery{Kinds: []string{"image"}}); len(res) != 2 {
		t.Fatalf("kind filter: %+v", res)
	}

	d.Slides[1].Canvas.Items = d.Slides[1].Canvas.Items[1:]
	if err := x.UpdateDocuments(ctx, "cells.json", d); err != nil {
		t.Fatalf("update: %v", err)
	}
	if res, _ := x.Search(ctx, SearchQuery{Text: "photosynthesis"}); len(res) != 0 {
		t.Fatalf("stale document kept: %+v", res)
	}
}
