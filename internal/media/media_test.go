/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package media

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/image/bmp"

	"slidecanvas/internal/config"
	"slidecanvas/internal/geom"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func newIngestor() *Ingestor {
	return NewIngestor(config.ImagesConfig{MaxBytes: 1 << 20, RemoteTimeoutMs: 2000})
}

func TestFromFileReadsPNGHeader(t *testing.T) {
	img, err := newIngestor().FromFile("diagram.png", pngBytes(t, 64, 32))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if img.MIME != "image/png" || img.Natural != (geom.Size{W: 64, H: 32}) || img.Alt != "diagram" {
		t.Fatalf("image = %+v", img)
	}
	if !strings.HasPrefix(img.Src, "data:image/png;base64,") {
		t.Fatalf("src = %.40s", img.Src)
	}
	m, err := Decode(img)
	if err != nil || m.Bounds().Dx() != 64 {
		t.Fatalf("decode: %v", err)
	}
}

func TestBytesDecideOverExtension(t *testing.T) {
	var buf bytes.Buffer
	if err := bmp.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 10, 20))); err != nil {
		t.Fatalf("bmp: %v", err)
	}
	img, err := newIngestor().FromFile("photo.jpg", buf.Bytes())
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if img.MIME != "image/bmp" || img.Natural.H != 20 {
		t.Fatalf("image = %+v", img)
	}
}

func TestRejectedPayloads(t *testing.T) {
	in := newIngestor()
	if _, err := in.FromClipboard(Payload{MIME: "text/plain", Data: []byte("hello")}); !errors.Is(err, ErrNotImage) {
		t.Fatalf("text clipboard: %v", err)
	}
	if _, err := in.FromClipboard(Payload{MIME: "image/png", Data: []byte("not a png")}); !errors.Is(err, ErrNotImage) {
		t.Fatalf("garbage: %v", err)
	}
	if _, err := in.FromFile("empty.png", nil); !errors.Is(err, ErrEmpty) {
		t.Fatalf("empty: %v", err)
	}
	in.MaxBytes = 10
	if _, err := in.FromFile("big.png", pngBytes(t, 8, 8)); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("too large: %v", err)
	}
}

func TestDisplaySize(t *testing.T) {
	canvas := geom.Size{W: 1280, H: 720}
	if got := DisplaySize(geom.Size{W: 4000, H: 2000}, canvas, 40); got != (geom.Size{W: 1200, H: 600}) {
		t.Fatalf("large = %+v", got)
	}
	if got := DisplaySize(geom.Size{W: 800, H: 400}, canvas, 40); got != (geom.Size{W: 800, H: 400}) {
		t.Fatalf("fitting image changed: %+v", got)
	}
	if got := DisplaySize(geom.Size{W: 50, H: 50}, canvas, 40); got != (geom.Size{W: 160, H: 120}) {
		t.Fatalf("tiny = %+v", got)
	}
	if got := DisplaySize(geom.Size{}, canvas, 40); got.W <= 0 || got.H <= 0 {
		t.Fatalf("unknown size = %+v", got)
	}
}

func TestHydrate(t *testing.T) {
	data := pngBytes(t, 30, 40)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ok.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(data)
	}))
	defer srv.Close()
	in := newIngestor()
	ctx := context.Background()

	ok := in.Hydrate(ctx, srv.URL+"/ok.png")
	if ok.Placeholder || !ok.Remote || ok.Natural != (geom.Size{W: 30, H: 40}) || ok.MIME != "image/png" {
		t.Fatalf("hydrated = %+v", ok)
	}
	missing := in.Hydrate(ctx, srv.URL+"/missing.png")
	if !missing.Placeholder || missing.Src == "" {
		t.Fatalf("missing = %+v", missing)
	}
	bad := in.Hydrate(ctx, "ftp://example.org/x.png")
	if !bad.Placeholder || bad.Src != "" {
		t.Fatalf("bad scheme = %+v", bad)
	}

	all := in.HydrateAll(ctx, []string{srv.URL + "/ok.png", srv.URL + "/missing.png"}, 2)
	if len(all) != 2 || all[srv.URL+"/ok.png"].Placeholder || !all[srv.URL+"/missing.png"].Placeholder {
		t.Fatalf("hydrate all = %+v", all)
	}
}

func TestHydrateHonoursTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)
	in := newIngestor()
	in.Timeout = 50 * time.Millisecond
	start := time.Now()
	img := in.Hydrate(context.Background(), srv.URL+"/slow.png")
	if !img.Placeholder || time.Since(start) > 2*time.Second {
		t.Fatalf("slow fetch not bounded: %+v", img)
	}
}

func TestThumbnail(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 400, 200))
	if b := Thumbnail(src, 100).Bounds(); b.Dx() != 100 || b.Dy() != 50 {
		t.Fatalf("thumbnail = %v", b)
	}
	if b := Thumbnail(src, 1000).Bounds(); b.Dx() != 400 || b.Dy() != 200 {
		t.Fatalf("small image rescaled: %v", b)
	}
}

func TestParseDataURL(t *testing.T) {
	mt, data, err := ParseDataURL(DataURL("image/gif", []byte("GIF89a")))
	if err != nil || mt != "image/gif" || string(data) != "GIF89a" {
		t.Fatalf("got %q %q %v", mt, data, err)
	}
	if _, _, err := ParseDataURL("https://example.org/a.png"); err == nil {
		t.Fatalf("plain URL accepted")
	}
}
