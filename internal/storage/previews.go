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
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// accessLayout is fixed-width so that last_access sorts as text.
const accessLayout = "2006-01-02T15:04:05.000000000Z"

// Preview returns the cached thumbnail of a slide at w×h and marks it as
// recently used. A miss returns nil without error.
func (x *Index) Preview(ctx context.Context, slideID string, w, h int) ([]byte, error) {
	var blob []byte
	err := x.db.QueryRowContext(ctx, `SELECT blob FROM previews WHERE slide_id=? AND w=? AND h=?`, slideID, w, h).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query preview: %w", err)
	}
	// touch
	now := time.Now().UTC().Format(accessLayout)
	_, _ = x.db.ExecContext(ctx, `UPDATE previews SET last_access=? WHERE slide_id=? AND w=? AND h=?`, now, slideID, w, h)
	return blob, nil
}

// PutPreview upserts a thumbnail and enforces the cache cap via LRU eviction.
func (x *Index) PutPreview(ctx context.Context, slideID string, w, h int, blob []byte) error {
	if slideID == "" || len(blob) == 0 {
		return errors.New("preview needs a slide id and data")
	}
	now := time.Now().UTC().Format(accessLayout)
	_, err := x.db.ExecContext(ctx, `INSERT INTO previews(slide_id,w,h,blob,size,updated_at,last_access)
		VALUES(?,?,?,?,?,?,?)
		ON CONFLICT(slide_id,w,h) DO UPDATE SET blob=excluded.blob, size=excluded.size, updated_at=excluded.updated_at, last_access=excluded.last_access`,
		slideID, w, h, blob, len(blob), now, now)
	if err != nil {
		return fmt.Errorf("upsert preview: %w", err)
	}
	if x.opts.MaxPreviewBytes > 0 {
		return x.EvictPreviewsToFit(ctx, x.opts.MaxPreviewBytes)
	}
	return nil
}

// GetOrCreatePreview fetches a preview or generates and stores it using gen.
func (x *Index) GetOrCreatePreview(ctx context.Context, slideID string, w, h int, gen func(context.Context) ([]byte, error)) ([]byte, error) {
	if b, err := x.Preview(ctx, slideID, w, h); err != nil {
		return nil, err
	} else if b != nil {
		return b, nil
	}
	data, err := gen(ctx)
	if err != nil || data == nil {
		return nil, err
	}
	if err := x.PutPreview(ctx, slideID, w, h, data); err != nil {
		return nil, err
	}
	return data, nil
}

// InvalidatePreviews drops every cached size of a slide.
func (x *Index) InvalidatePreviews(ctx context.Context, slideID string) error {
	_, err := x.db.ExecContext(ctx, `DELETE FROM previews WHERE slide_id=?`, slideID)
	return err
}

// EvictPreviewsToFit deletes least-recently-used rows until total size <= capBytes.
func (x *Index) EvictPreviewsToFit(ctx context.Context, capBytes int64) error {
	total, err := x.TotalPreviewBytes(ctx)
	if err != nil {
		return err
	}
	if total <= capBytes {
		return nil
	}
	rows, err := x.db.QueryContext(ctx, `SELECT id, size FROM previews ORDER BY
		CASE WHEN last_access IS NULL THEN 0 ELSE 1 END ASC, last_access ASC, id ASC`)
	if err != nil {
		return fmt.Errorf("select victims: %w", err)
	}
	var victims []any
	cur := total
	for rows.Next() {
		var id, sz int64
		if err := rows.Scan(&id, &sz); err != nil {
			_ = rows.Close()
			return err
		}
		victims = append(victims, id)
		cur -= sz
		if cur <= capBytes {
			break
		}
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	// Close the cursor before writing; the pool has a single connection.
	if err := rows.Close(); err != nil {
		return err
	}
	if len(victims) == 0 {
		return nil
	}
	q := `DELETE FROM previews WHERE id IN (` + placeholders(len(victims)) + `)`
	if _, err := x.db.ExecContext(ctx, q, victims...); err != nil {
		return fmt.Errorf("evict delete: %w", err)
	}
	x.log.Debug("previews evicted", slog.Int("rows", len(victims)), slog.Int64("cap", capBytes))
	return nil
}

// TotalPreviewBytes returns total bytes tracked by previews.size.
func (x *Index) TotalPreviewBytes(ctx context.Context) (int64, error) {
	var total int64
	if err := x.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(size),0) FROM previews`).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
