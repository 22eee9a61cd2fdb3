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
	"errors"
	"fmt"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"

	"slidecanvas/internal/domain"
	"slidecanvas/internal/media"
	"slidecanvas/internal/richtext"
)

// PDFOptions controls the handout. Units are points; one canvas unit maps
// to one point so pages keep the slide proportions.
type PDFOptions struct {
	Slides   []int // if empty, export all slides
	NoFrames bool  // skip the hairline around each item
	Author   string
}

const (
	pdfPad      = 6.0
	pdfFontSize = 12.0
	pdfLineH    = pdfFontSize * 1.25
)

// HandoutPDF writes one page per slide to out. Items become framed boxes
// with their plain text; tables are drawn as grids and images are embedded
// when their data is inline.
func HandoutPDF(d *domain.Deck, out io.Writer, opt PDFOptions) error {
	if d == nil {
		return errors.New("deck is nil")
	}
	first := pageSize(d, nil)
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: first.W, Ht: first.H},
		OrientationStr: "P",
	})
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle(d.Title, true)
	if opt.Author != "" {
		pdf.SetAuthor(opt.Author, true)
	}
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFont("Helvetica", "", pdfFontSize)

	for _, si := range slideIndexes(len(d.Slides), opt.Slides) {
		s := d.Slides[si]
		size := pageSize(d, s)
		pdf.AddPageFormat("P", gofpdf.SizeType{Wd: size.W, Ht: size.H})
		bg := background(s.Background)
		setFillColor(pdf, bg)
		pdf.Rect(0, 0, size.W, size.H, "F")

		if s.Canvas == nil {
			pdf.SetFont("Helvetica", "B", pdfFontSize*2)
			pdf.SetXY(size.W*0.1, size.H*0.3)
			pdf.MultiCell(size.W*0.8, pdfFontSize*2.5, tr(richtext.PlainText(s.Static)), "", "C", false)
			pdf.SetFont("Helvetica", "", pdfFontSize)
		}
		for _, it := range s.Items() {
			pdfItem(pdf, tr, it, opt)
		}
		pdf.SetFont("Helvetica", "", 8)
		pdf.SetTextColor(120, 120, 120)
		pdf.Text(size.W-40, size.H-10, fmt.Sprintf("%d / %d", si+1, len(d.Slides)))
		pdf.SetTextColor(0, 0, 0)
		pdf.SetFont("Helvetica", "", pdfFontSize)
	}
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return pdf.Output(out)
}

// ExportDeckPDF writes the handout to outPath, creating its directory.
func ExportDeckPDF(d *domain.Deck, outPath string, opt PDFOptions) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	var buf bytes.Buffer
	if err := HandoutPDF(d, &buf, opt); err != nil {
		return err
	}
	if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func pdfItem(pdf *gofpdf.Fpdf, tr func(string) string, it *domain.Item, opt PDFOptions) {
	r := it.Rect
	if it.Effect == domain.EffectShadow {
		pdf.SetFillColor(200, 200, 200)
		pdf.Rect(r.X+4, r.Y+4, r.W, r.H, "F")
	}
	setFillColor(pdf, itemFill(it))
	style := "F"
	if !opt.NoFrames {
		pdf.SetDrawColor(90, 90, 90)
		pdf.SetLineWidth(0.5)
		style = "FD"
	}
	pdf.Rect(r.X, r.Y, r.W, r.H, style)

	pdf.ClipRect(r.X, r.Y, r.W, r.H, false)
	defer pdf.ClipEnd()
	switch c := it.Content.(type) {
	case *domain.Table:
		pdfTable(pdf, tr, it, c)
		return
	case *domain.Image:
		if pdfImage(pdf, it, c) {
			return
		}
	}
	lines := itemLines(it)
	pdf.SetXY(r.X+pdfPad, r.Y+pdfPad)
	for i, l := range lines {
		if i == 0 && (it.Kind() == domain.KindMindMap || it.Kind() == domain.KindModule) {
			pdf.SetFont("Helvetica", "B", pdfFontSize)
		}
		pdf.SetX(r.X + pdfPad)
		pdf.MultiCell(r.W-2*pdfPad, pdfLineH, tr(l), "", "L", false)
		pdf.SetFont("Helvetica", "", pdfFontSize)
	}
}

func pdfTable(pdf *gofpdf.Fpdf, tr func(string) string, it *domain.Item, t *domain.Table) {
	cols := max(t.Columns(), 1)
	rows := append([][]string{t.Header}, t.Rows...)
	cw := it.Rect.W / float64(cols)
	rh := min(it.Rect.H/float64(len(rows)), pdfLineH*2)
	pdf.SetDrawColor(90, 90, 90)
	for ri, row := range rows {
		if ri == 0 {
			pdf.SetFont("Helvetica", "B", pdfFontSize)
		}
		y := it.Rect.Y + float64(ri)*rh
		for ci, cell := range plainCells(row) {
			pdf.SetXY(it.Rect.X+float64(ci)*cw, y)
			pdf.CellFormat(cw, rh, tr(cell), "1", 0, "L", false, 0, "")
		}
		pdf.SetFont("Helvetica", "", pdfFontSize)
	}
}

// pdfImage embeds inline image data re-encoded as 8-bit PNG, which gofpdf
// reads regardless of the source format. Remote or broken images report false.
func pdfImage(pdf *gofpdf.Fpdf, it *domain.Item, img *domain.Image) bool {
	if img.Remote || img.Placeholder {
		return false
	}
	m, err := media.Decode(img)
	if err != nil {
		return false
	}
	b := m.Bounds()
	var buf bytes.Buffer
	if err := png.Encode(&buf, media.Thumbnail(m, max(b.Dx(), b.Dy()))); err != nil {
		return false
	}
	name := "img-" + string(it.ID)
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(name, opts, &buf)
	if pdf.Error() != nil {
		return false
	}
	pdf.ImageOptions(name, it.Rect.X, it.Rect.Y, it.Rect.W, it.Rect.H, false, opts, 0, "")
	return true
}

func setFillColor(pdf *gofpdf.Fpdf, c color.RGBA) {
	pdf.SetFillColor(int(c.R), int(c.G), int(c.B))
}
