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
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"slidecanvas/internal/domain"
	"slidecanvas/internal/media"
)

// ErrAssetNotFound is returned for an unknown content hash.
var ErrAssetNotFound = errors.New("asset not found")

// Asset is one stored image.
type Asset struct {
	Hash string
	MIME string
	W, H int
	Data []byte
	Refs int
}

// HashBytes is the content key used for assets.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// PutAsset stores data once per content hash. Storing the same bytes again
// only bumps the reference count; existed reports that case.
func (x *Index) PutAsset(ctx context.Context, mime string, data []byte, w, h int) (hash string, existed bool, err error) {
	if len(data) == 0 {
		return "", false, errors.New("empty asset")
	}
	hash = HashBytes(data)
	res, err := x.db.ExecContext(ctx, `UPDATE assets SET refs = refs + 1 WHERE hash=?`, hash)
	if err != nil {
		return "", false, fmt.Errorf("touch asset: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return hash, true, nil
	}
	_, err = x.db.ExecContext(ctx, `INSERT INTO assets(hash, mime, w, h, size, data, refs, created_at) VALUES(?,?,?,?,?,?,1,?)`,
		hash, mime, w, h, len(data), data, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return "", false, fmt.Errorf("insert asset: %w", err)
	}
	return hash, false, nil
}

// Asset loads a stored image by hash.
func (x *Index) Asset(ctx context.Context, hash string) (Asset, error) {
	a := Asset{Hash: hash}
	err := x.db.QueryRowContext(ctx, `SELECT mime, w, h, data, refs FROM assets WHERE hash=?`, hash).Scan(&a.MIME, &a.W, &a.H, &a.Data, &a.Refs)
	if errors.Is(err, sql.ErrNoRows) {
		return Asset{}, ErrAssetNotFound
	}
	if err != nil {
		return Asset{}, fmt.Errorf("query asset: %w", err)
	}
	return a, nil
}

// AssetStats reports the number of distinct assets and their total bytes.
func (x *Index) AssetStats(ctx context.Context) (count int, bytes int64, err error) {
	err = x.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(size),0) FROM assets`).Scan(&count, &bytes)
	return count, bytes, err
}

// CatalogImages stores every embedded image of d. Remote and placeholder
// images have no bytes and are skipped. It returns how many images were new.
func (x *Index) CatalogImages(ctx context.Context, d *domain.Deck) (int, error) {
	added := 0
	for _, sl := range d.Slides {
		for _, it := range sl.Items() {
			img, ok := it.Content.(*domain.Image)
			if !ok || img.Remote || img.Placeholder {
				continue
			}
			mime, data, err := media.ParseDataURL(img.Src)
			if err != nil {
				continue
			}
			_, existed, err := x.PutAsset(ctx, mime, data, int(img.Natural.W), int(img.Natural.H))
			if err != nil {
				return added, err
			}
			if !existed {
				added++
			}
		}
	}
	return added, nil
}
