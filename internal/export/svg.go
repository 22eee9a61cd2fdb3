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
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"golang.org/x/net/html"

	"slidecanvas/internal/domain"
	"slidecanvas/internal/richtext"
)

// SVGOptions controls SVG export. The coordinate system is the canvas.
type SVGOptions struct {
	Slides   []int
	NoFrames bool
}

const svgLineH = 18.0

// SlideSVG renders one slide as a standalone SVG document. Inline images keep
// their data URL; remote images are linked.
func SlideSVG(s *domain.Slide, opt SVGOptions) []byte {
	size := pageSize(nil, s)
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "<svg xmlns=\"http://www.w3.org/2000/svg\" width=\"%.0f\" height=\"%.0f\" viewBox=\"0 0 %.2f %.2f\">\n", size.W, size.H, size.W, size.H)
	fmt.Fprintf(&buf, "  <rect x=\"0\" y=\"0\" width=\"%.2f\" height=\"%.2f\" fill=\"%s\"/>\n", size.W, size.H, hex(background(s.Background)))
	if s.Canvas == nil {
		svgText(&buf, size.W*0.1, size.H*0.4, splitLines(richtext.PlainText(s.Static)), "bold")
	}
	stroke := "stroke=\"#5a5a5a\" stroke-width=\"0.5\""
	if opt.NoFrames {
		stroke = "stroke=\"none\""
	}
	for _, it := range s.Items() {
		r := it.Rect
		if it.Effect == domain.EffectShadow {
			fmt.Fprintf(&buf, "  <rect x=\"%.2f\" y=\"%.2f\" width=\"%.2f\" height=\"%.2f\" fill=\"%s\"/>\n", r.X+4, r.Y+4, r.W, r.H, hex(shadowColor))
		}
		fmt.Fprintf(&buf, "  <rect x=\"%.2f\" y=\"%.2f\" width=\"%.2f\" height=\"%.2f\" fill=\"%s\" %s/>\n", r.X, r.Y, r.W, r.H, hex(itemFill(it)), stroke)
		switch c := it.Content.(type) {
		case *domain.Image:
			if c.Src != "" && !c.Placeholder {
				fmt.Fprintf(&buf, "  <image x=\"%.2f\" y=\"%.2f\" width=\"%.2f\" height=\"%.2f\" href=\"%s\"/>\n", r.X, r.Y, r.W, r.H, html.EscapeString(c.Src))
				continue
			}
		case *domain.Table:
			rows := append([][]string{c.Header}, c.Rows...)
			cw, rh := r.W/float64(max(c.Columns(), 1)), r.H/float64(len(rows))
			for ri, row := range rows {
				for ci, cell := range plainCells(row) {
					x, y := r.X+float64(ci)*cw, r.Y+float64(ri)*rh
					fmt.Fprintf(&buf, "  <rect x=\"%.2f\" y=\"%.2f\" width=\"%.2f\" height=\"%.2f\" fill=\"none\" %s/>\n", x, y, cw, rh, stroke)
					svgText(&buf, x+4, y+svgLineH-4, []string{cell}, "")
				}
			}
			continue
		}
		svgText(&buf, r.X+6, r.Y+svgLineH, itemLines(it), "")
	}
	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

// ExportSlideSVGs writes slide-<n>.svg files to outDir and returns their paths.
func ExportSlideSVGs(d *domain.Deck, outDir string, opt SVGOptions) ([]string, error) {
	if d == nil {
		return nil, fmt.Errorf("deck is nil")
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure out dir: %w", err)
	}
	var paths []string
	for _, si := range slideIndexes(len(d.Slides), opt.Slides) {
		name := filepath.Join(outDir, fmt.Sprintf("slide-%03d.svg", si+1))
		if err := os.WriteFile(name, SlideSVG(d.Slides[si], opt), 0o644); err != nil {
			return paths, fmt.Errorf("write svg: %w", err)
		}
		paths = append(paths, name)
	}
	return paths, nil
}

func svgText(buf *bytes.Buffer, x, y float64, lines []string, weight string) {
	if len(lines) == 0 {
		return
	}
	fw := ""
	if weight != "" {
		fw = fmt.Sprintf(" font-weight=\"%s\"", weight)
	}
	fmt.Fprintf(buf, "  <text x=\"%.2f\" y=\"%.2f\" font-family=\"Helvetica, Arial, sans-serif\" font-size=\"14\"%s>", x, y, fw)
	for i, l := range lines {
		dy := 0.0
		if i > 0 {
			dy = svgLineH
		}
		fmt.Fprintf(buf, "<tspan x=\"%.2f\" dy=\"%.2f\">%s</tspan>", x, dy, html.EscapeString(l))
	}
	buf.WriteString("</text>\n")
}

func hex(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
