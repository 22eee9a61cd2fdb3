/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package textlayout measures and word-wraps slide text for raster export.
// Faces come from a Provider so thumbnails can use the built-in bitmap face
// or a loaded OpenType font.
package textlayout

import (
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// FontSpec describes a requested font.
type FontSpec struct {
	Family string
	SizePt float64
	Bold   bool
}

// Metrics are the resolved face metrics in pixels.
type Metrics struct {
	Ascent, Descent, LineGap int
}

// LineHeight is the baseline-to-baseline distance.
func (m Metrics) LineHeight() int { return m.Ascent + m.Descent + m.LineGap }

// Provider maps a FontSpec to a concrete face.
type Provider interface {
	Resolve(FontSpec) (font.Face, Metrics)
}

// BasicProvider always answers with the 7x13 bitmap face. Output is the
// same on every platform, which the preview cache relies on.
type BasicProvider struct{}

func (BasicProvider) Resolve(FontSpec) (font.Face, Metrics) {
	return basicfont.Face7x13, metricsOf(basicfont.Face7x13)
}

func metricsOf(f font.Face) Metrics {
	m := f.Metrics()
	return Metrics{
		Ascent:  m.Ascent.Round(),
		Descent: m.Descent.Round(),
		LineGap: max(m.Height.Round()-m.Ascent.Round()-m.Descent.Round(), 0),
	}
}

// Line is one laid out line.
type Line struct {
	Text  string
	Width int
}

// Box is the result of wrapping paragraphs into a width.
type Box struct {
	Lines   []Line
	Width   int
	Height  int
	Metrics Metrics
	Face    font.Face
}

// Wrap breaks each paragraph on whitespace so no line is wider than
// maxWidth pixels. A single word wider than maxWidth is cut to fit. Blank
// paragraphs produce no line. maxWidth <= 0 disables wrapping.
func Wrap(p Provider, spec FontSpec, paragraphs []string, maxWidth int) Box {
	if p == nil {
		p = BasicProvider{}
	}
	face, m := p.Resolve(spec)
	box := Box{Metrics: m, Face: face}
	space := Measure(face, " ")
	add := func(l Line) {
		box.Lines = append(box.Lines, l)
		box.Width = max(box.Width, l.Width)
		box.Height += m.LineHeight()
	}
	for _, para := range paragraphs {
		var cur Line
		for _, w := range strings.Fields(para) {
			ww := Measure(face, w)
			if maxWidth > 0 && ww > maxWidth {
				w, ww = fit(face, w, maxWidth)
				if w == "" {
					continue
				}
			}
			if cur.Text != "" && maxWidth > 0 && cur.Width+space+ww > maxWidth {
				add(cur)
				cur = Line{}
			}
			if cur.Text != "" {
				cur.Text += " "
				cur.Width += space
			}
			cur.Text += w
			cur.Width += ww
		}
		if cur.Text != "" {
			add(cur)
		}
	}
	return box
}

// Measure is the advance width of s in whole pixels.
func Measure(face font.Face, s string) int {
	return font.MeasureString(face, s).Ceil()
}

// fit returns the longest rune prefix of w no wider than maxWidth.
func fit(face font.Face, w string, maxWidth int) (string, int) {
	r := []rune(w)
	for n := len(r); n > 0; n-- {
		if pw := Measure(face, string(r[:n])); pw <= maxWidth {
			return string(r[:n]), pw
		}
	}
	return "", 0
}
