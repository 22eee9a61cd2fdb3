/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"slidecanvas/internal/domain"
	"slidecanvas/internal/geom"
	"slidecanvas/internal/media"
	"slidecanvas/internal/richtext"
	"slidecanvas/internal/storage"
	"slidecanvas/internal/textlayout"
)

// PNGOptions controls thumbnail export.
//   - Scale: canvas units to pixels; 0 means 0.25
//   - Slides: if empty, export all
//   - Index: when set, rendered thumbnails are cached as previews
//   - Fonts: text face provider; nil uses the bitmap face. Thumbnails drawn
//     with a custom provider bypass the preview cache.
type PNGOptions struct {
	Scale  float64
	Slides []int
	Index  *storage.Index
	Fonts  textlayout.Provider
}

const defaultScale = 0.25

var (
	frameColor  = color.RGBA{90, 90, 90, 255}
	shadowColor = color.RGBA{200, 200, 200, 255}
	textColor   = color.RGBA{20, 20, 20, 255}
)

// SlidePNG rasterises a slide at scale. Items are drawn back to front as
// filled frames with their text in a fixed bitmap face; inline images are
// scaled into their frame.
func SlidePNG(s *domain.Slide, scale float64) *image.RGBA {
	return renderSlide(s, scale, textlayout.BasicProvider{})
}

func renderSlide(s *domain.Slide, scale float64, fonts textlayout.Provider) *image.RGBA {
	if scale <= 0 {
		scale = defaultScale
	}
	size := pageSize(nil, s)
	w, h := max(int(math.Round(size.W*scale)), 1), max(int(math.Round(size.H*scale)), 1)
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.Draw(img, img.Bounds(), image.NewUniform(background(s.Background)), image.Point{}, xdraw.Src)

	if s.Canvas == nil {
		drawText(img, img.Bounds().Inset(w/10), splitLines(richtext.PlainText(s.Static)), fonts)
		return img
	}
	for _, it := range s.Items() {
		r := toPixels(it.Rect, scale)
		if it.Effect == domain.EffectShadow {
			fillRect(img, r.Add(image.Pt(2, 2)), shadowColor)
		}
		fillRect(img, r, itemFill(it))
		switch c := it.Content.(type) {
		case *domain.Image:
			if !drawImage(img, r, c) {
				drawText(img, r.Inset(3), itemLines(it), fonts)
			}
		case *domain.Table:
			drawTable(img, r, c, fonts)
		default:
			drawText(img, r.Inset(3), itemLines(it), fonts)
		}
		strokeRect(img, r, frameColor)
	}
	return img
}

// EncodeSlidePNG renders and encodes a slide.
func EncodeSlidePNG(s *domain.Slide, scale float64) ([]byte, error) {
	return encodeSlide(s, scale, textlayout.BasicProvider{})
}

func encodeSlide(s *domain.Slide, scale float64, fonts textlayout.Provider) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, renderSlide(s, scale, fonts)); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// SlidePreview returns the encoded thumbnail, served from the index preview
// cache when x is not nil. Callers invalidate the cache when the slide changes.
func SlidePreview(ctx context.Context, x *storage.Index, s *domain.Slide, scale float64) ([]byte, error) {
	if scale <= 0 {
		scale = defaultScale
	}
	if x == nil {
		return EncodeSlidePNG(s, scale)
	}
	size := pageSize(nil, s)
	w, h := int(math.Round(size.W*scale)), int(math.Round(size.H*scale))
	return x.GetOrCreatePreview(ctx, s.ID, w, h, func(context.Context) ([]byte, error) {
		return EncodeSlidePNG(s, scale)
	})
}

// ExportSlidePNGs writes slide-<n>.png files to outDir and returns their paths.
func ExportSlidePNGs(ctx context.Context, d *domain.Deck, outDir string, opt PNGOptions) ([]string, error) {
	if d == nil {
		return nil, fmt.Errorf("deck is nil")
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure out dir: %w", err)
	}
	var paths []string
	for _, si := range slideIndexes(len(d.Slides), opt.Slides) {
		var b []byte
		var err error
		if opt.Fonts != nil {
			b, err = encodeSlide(d.Slides[si], opt.Scale, opt.Fonts)
		} else {
			b, err = SlidePreview(ctx, opt.Index, d.Slides[si], opt.Scale)
		}
		if err != nil {
			return paths, fmt.Errorf("slide %d: %w", si+1, err)
		}
		name := filepath.Join(outDir, fmt.Sprintf("slide-%03d.png", si+1))
		if err := os.WriteFile(name, b, 0o644); err != nil {
			return paths, fmt.Errorf("write png: %w", err)
		}
		paths = append(paths, name)
	}
	return paths, nil
}

func toPixels(r geom.Rect, scale float64) image.Rectangle {
	x0, y0 := int(math.Round(r.X*scale)), int(math.Round(r.Y*scale))
	return image.Rect(x0, y0, x0+max(int(math.Round(r.W*scale)), 1), y0+max(int(math.Round(r.H*scale)), 1))
}

func drawImage(dst *image.RGBA, r image.Rectangle, img *domain.Image) bool {
	if img.Remote || img.Placeholder {
		return false
	}
	src, err := media.Decode(img)
	if err != nil {
		return false
	}
	xdraw.ApproxBiLinear.Scale(dst, r, src, src.Bounds(), xdraw.Over, nil)
	return true
}

func drawTable(dst *image.RGBA, r image.Rectangle, t *domain.Table, fonts textlayout.Provider) {
	rows := append([][]string{t.Header}, t.Rows...)
	cols := max(t.Columns(), 1)
	cw, rh := r.Dx()/cols, r.Dy()/len(rows)
	if cw < 1 || rh < 1 {
		return
	}
	for ri, row := range rows {
		for ci, cell := range plainCells(row) {
			c := image.Rect(r.Min.X+ci*cw, r.Min.Y+ri*rh, r.Min.X+(ci+1)*cw, r.Min.Y+(ri+1)*rh)
			strokeRect(dst, c, frameColor)
			drawText(dst, c.Inset(2), []string{cell}, fonts)
		}
	}
}

// drawText word-wraps lines into r and stops at the bottom edge.
func drawText(dst *image.RGBA, r image.Rectangle, lines []string, fonts textlayout.Provider) {
	if r.Dx() <= 0 {
		return
	}
	box := textlayout.Wrap(fonts, textlayout.FontSpec{}, lines, r.Dx())
	m := box.Metrics
	if len(box.Lines) == 0 || r.Dy() < m.LineHeight() {
		return
	}
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(textColor), Face: box.Face}
	y := r.Min.Y + m.Ascent
	for _, l := range box.Lines {
		if y > r.Max.Y {
			return
		}
		d.Dot = fixed.P(r.Min.X, y)
		d.DrawString(l.Text)
		y += m.LineHeight()
	}
}

func fillRect(img *image.RGBA, r image.Rectangle, col color.RGBA) {
	xdraw.Draw(img, r.Intersect(img.Bounds()), image.NewUniform(col), image.Point{}, xdraw.Src)
}

// strokeRect draws a 1px border just inside r.
func strokeRect(img *image.RGBA, r image.Rectangle, col color.RGBA) {
	r = r.Intersect(img.Bounds())
	if r.Empty() {
		return
	}
	for x := r.Min.X; x < r.Max.X; x++ {
		img.SetRGBA(x, r.Min.Y, col)
		img.SetRGBA(x, r.Max.Y-1, col)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		img.SetRGBA(r.Min.X, y, col)
		img.SetRGBA(r.Max.X-1, y, col)
	}
}
