/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export renders decks for reading outside the editor: a PDF
// handout, PNG thumbnails and SVG pages. Renderers work on plain text; rich
// formatting is not reproduced.
package export

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"slidecanvas/internal/domain"
	"slidecanvas/internal/geom"
	"slidecanvas/internal/richtext"
	"slidecanvas/internal/structure"
)

// DefaultPage is used for slides without a canvas of their own.
var DefaultPage = geom.Size{W: 1280, H: 720}

func slideIndexes(total int, specific []int) []int {
	if len(specific) == 0 {
		out := make([]int, total)
		for i := range out {
			out[i] = i
		}
		return out
	}
	var out []int
	for _, i := range specific {
		if i >= 0 && i < total {
			out = append(out, i)
		}
	}
	return out
}

// pageSize is the slide's canvas size, or the deck's first canvas size, or DefaultPage.
func pageSize(d *domain.Deck, s *domain.Slide) geom.Size {
	if s != nil && s.Canvas != nil && s.Canvas.Width > 0 && s.Canvas.Height > 0 {
		return geom.Size{W: s.Canvas.Width, H: s.Canvas.Height}
	}
	if d != nil {
		for _, o := range d.Slides {
			if o.Canvas != nil && o.Canvas.Width > 0 && o.Canvas.Height > 0 {
				return geom.Size{W: o.Canvas.Width, H: o.Canvas.Height}
			}
		}
	}
	return DefaultPage
}

func itemFill(it *domain.Item) color.RGBA {
	r, g, b := it.Color.RGB()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// background parses a "#rgb" or "#rrggbb" slide background; anything else is white.
func background(v string) color.RGBA {
	white := color.RGBA{255, 255, 255, 255}
	h, ok := strings.CutPrefix(strings.TrimSpace(v), "#")
	if !ok {
		return white
	}
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return white
	}
	n, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return white
	}
	return color.RGBA{R: uint8(n >> 16), G: uint8(n >> 8), B: uint8(n), A: 255}
}

// itemLines flattens an item into the lines shown inside its frame.
func itemLines(it *domain.Item) []string {
	switch c := it.Content.(type) {
	case *domain.TextBox:
		return splitLines(richtext.PlainText(c.Body))
	case *domain.MindMap:
		lines := []string{richtext.PlainText(c.Center)}
		for i, b := range c.Branches {
			line := "- " + structure.Label(c, i)
			if body := richtext.PlainText(b.Body); body != "" {
				line += ": " + body
			}
			lines = append(lines, line)
		}
		return lines
	case *domain.Image:
		if c.Alt != "" {
			return []string{c.Alt}
		}
		return []string{"[image]"}
	case *domain.ModuleEmbed:
		title := c.Title
		if title == "" {
			title = "Module"
		}
		lines := []string{fmt.Sprintf("%s (%s)", title, c.ActivityType)}
		return append(lines, splitLines(richtext.PlainText(c.Preview))...)
	}
	return nil
}

func splitLines(s string) []string {
	var out []string
	for _, l := range strings.Split(s, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func plainCells(row []string) []string {
	out := make([]string, len(row))
	for i, c := range row {
		out[i] = strings.Join(splitLines(richtext.PlainText(c)), " ")
	}
	return out
}
