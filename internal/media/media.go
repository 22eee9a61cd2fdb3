/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package media turns file, clipboard and remote image payloads into Image
// items. Every input path ends in Ingest, which decodes the bitmap header,
// enforces the size cap and inlines the bytes as a data URL.
package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"slidecanvas/internal/config"
	"slidecanvas/internal/domain"
	"slidecanvas/internal/geom"
	applog "slidecanvas/internal/log"
	"slidecanvas/internal/richtext"
)

var (
	ErrNotImage = errors.New("media: payload is not a supported image")
	ErrTooLarge = errors.New("media: image exceeds the size limit")
	ErrEmpty    = errors.New("media: empty payload")
)

// Payload is raw image input with whatever type information the source had.
type Payload struct {
	Name string
	MIME string
	Data []byte
}

// Ingestor owns the limits and the HTTP client used for remote images.
type Ingestor struct {
	MaxBytes int64
	Timeout  time.Duration
	Client   *http.Client
	log      *slog.Logger
}

func NewIngestor(cfg config.ImagesConfig) *Ingestor {
	return &Ingestor{
		MaxBytes: cfg.MaxBytes,
		Timeout:  cfg.RemoteTimeout(),
		Client:   http.DefaultClient,
		log:      applog.WithComponent("media"),
	}
}

// FromFile ingests a file picked or dropped by the user. The extension is
// only a hint; the bytes decide.
func (in *Ingestor) FromFile(name string, data []byte) (*domain.Image, error) {
	return in.Ingest(Payload{Name: name, MIME: mime.TypeByExtension(strings.ToLower(filepath.Ext(name))), Data: data})
}

// FromClipboard ingests a pasted payload. Only image MIME types are accepted.
func (in *Ingestor) FromClipboard(p Payload) (*domain.Image, error) {
	if !strings.HasPrefix(strings.ToLower(p.MIME), "image/") {
		return nil, fmt.Errorf("%w: clipboard type %q", ErrNotImage, p.MIME)
	}
	return in.Ingest(p)
}

// Ingest decodes the header of p and returns an inline Image with its natural size.
func (in *Ingestor) Ingest(p Payload) (*domain.Image, error) {
	if len(p.Data) == 0 {
		return nil, ErrEmpty
	}
	if in.MaxBytes > 0 && int64(len(p.Data)) > in.MaxBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(p.Data))
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(p.Data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	mt := "image/" + format
	in.logger().Debug("image ingested", slog.String("name", p.Name), slog.String("mime", mt), slog.Int("w", cfg.Width), slog.Int("h", cfg.Height))
	return &domain.Image{
		Src:     DataURL(mt, p.Data),
		MIME:    mt,
		Alt:     strings.TrimSuffix(filepath.Base(p.Name), filepath.Ext(p.Name)),
		Natural: geom.Size{W: float64(cfg.Width), H: float64(cfg.Height)},
	}, nil
}

func (in *Ingestor) logger() *slog.Logger {
	if in.log == nil {
		return applog.WithComponent("media")
	}
	return in.log
}

// DataURL inlines data as a base64 data URL.
func DataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// ParseDataURL returns the MIME type and bytes of a base64 data URL.
func ParseDataURL(src string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(src, "data:")
	if !ok {
		return "", nil, fmt.Errorf("%w: not a data URL", ErrNotImage)
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return "", nil, fmt.Errorf("%w: data URL is not base64", ErrNotImage)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	return strings.TrimSuffix(meta, ";base64"), data, nil
}

// Decode returns the bitmap of an inline image.
func Decode(img *domain.Image) (image.Image, error) {
	_, data, err := ParseDataURL(img.Src)
	if err != nil {
		return nil, err
	}
	m, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	return m, nil
}

// DisplaySize is the size an image gets when first inserted: its natural
// size scaled down to fit the canvas minus margin on each side, but never
// below the image minimum. It is not recomputed later.
func DisplaySize(natural, canvas geom.Size, margin float64) geom.Size {
	if natural.W <= 0 || natural.H <= 0 {
		return domain.KindImage.DefaultSize()
	}
	bounds := geom.Size{W: canvas.W - 2*margin, H: canvas.H - 2*margin}
	s := geom.FitWithin(natural, bounds)
	m := domain.KindImage.MinSize()
	return geom.Size{W: max(s.W, m.W), H: max(s.H, m.H)}
}

// Hydrate fetches a remote image to learn its natural size. It never
// fails: any problem yields a placeholder that keeps the URL.
func (in *Ingestor) Hydrate(ctx context.Context, rawURL string) *domain.Image {
	img := &domain.Image{Remote: true}
	if !richtext.ValidLink(rawURL) {
		img.Placeholder = true
		return img
	}
	img.Src = strings.TrimSpace(rawURL)
	if err := in.fetchRemote(ctx, img); err != nil {
		in.logger().Warn("remote image unavailable", slog.String("url", img.Src), slog.String("err", err.Error()))
		img.Placeholder = true
	}
	return img
}

func (in *Ingestor) fetchRemote(ctx context.Context, img *domain.Image) error {
	if in.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, in.Timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, img.Src, nil)
	if err != nil {
		return err
	}
	client := in.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %s", resp.Status)
	}
	body := io.Reader(resp.Body)
	if in.MaxBytes > 0 {
		body = io.LimitReader(resp.Body, in.MaxBytes)
	}
	cfg, format, err := image.DecodeConfig(body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	img.MIME = "image/" + format
	img.Natural = geom.Size{W: float64(cfg.Width), H: float64(cfg.Height)}
	return nil
}

// HydrateAll fetches several URLs concurrently, at most limit at a time,
// and returns one image per URL. Callers apply the results on their own
// goroutine.
func (in *Ingestor) HydrateAll(ctx context.Context, urls []string, limit int) map[string]*domain.Image {
	if limit <= 0 {
		limit = 4
	}
	type result struct {
		url string
		img *domain.Image
	}
	sem := make(chan struct{}, limit)
	out := make(chan result, len(urls))
	for _, u := range urls {
		go func(u string) {
			sem <- struct{}{}
			defer func() { <-sem }()
			out <- result{u, in.Hydrate(ctx, u)}
		}(u)
	}
	res := make(map[string]*domain.Image, len(urls))
	for range urls {
		r := <-out
		res[r.url] = r.img
	}
	return res
}
