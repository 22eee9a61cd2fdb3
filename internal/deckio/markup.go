/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package deckio

import (
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"slidecanvas/internal/domain"
	"slidecanvas/internal/geom"
	"slidecanvas/internal/richtext"
)

// Class names and data attributes of the slide snapshot markup.
const (
	classSlide    = "slide"
	classCanvas   = "canvas"
	classItem     = "canvas-item"
	classBody     = "item-body"
	classTable    = "item-table"
	classMindMap  = "item-mindmap"
	classCenter   = "mindmap-center"
	classBranches = "mindmap-branches"
	classBranch   = "branch"
	classBranchB  = "branch-body"
	classImage    = "item-image"
	classModule   = "item-module"
	classPreview  = "module-preview"
	classStatic   = "slide-static"
)

// RenderSlide snapshots one slide as sanitized markup. Every text body is
// sanitized on the way out; the slide itself is not modified.
func RenderSlide(s *domain.Slide) string {
	var b strings.Builder
	_ = html.Render(&b, slideNode(s))
	return b.String()
}

func slideNode(s *domain.Slide) *html.Node {
	layout := s.Layout
	if layout == "" {
		layout = domain.LayoutBlank
	}
	sec := el(atom.Section, classSlide,
		data("slide-id", s.ID),
		data("layout", string(layout)),
	)
	if s.Section != "" {
		sec.Attr = append(sec.Attr, data("section", s.Section))
	}
	if s.Background != "" {
		sec.Attr = append(sec.Attr, data("background", s.Background))
	}
	if layout != domain.LayoutBlank || s.Canvas == nil {
		st := el(atom.Div, classStatic)
		appendFragment(st, richtext.SanitizePreview(s.Static))
		sec.AppendChild(st)
		return sec
	}
	cv := el(atom.Div, classCanvas, data("width", num(s.Canvas.Width)), data("height", num(s.Canvas.Height)))
	for _, it := range s.Canvas.Items {
		if n := itemNode(it); n != nil {
			cv.AppendChild(n)
		}
	}
	sec.AppendChild(cv)
	return sec
}

func itemNode(it *domain.Item) *html.Node {
	kind := it.Kind()
	if kind == domain.KindNone {
		return nil
	}
	n := el(atom.Div, classItem,
		data("item-id", string(it.ID)),
		data("item-type", kind.String()),
		data("x", num(it.Rect.X)),
		data("y", num(it.Rect.Y)),
		data("w", num(it.Rect.W)),
		data("h", num(it.Rect.H)),
		data("color", string(it.Color)),
		data("effect", string(it.Effect)),
	)
	if !it.Created.IsZero() {
		n.Attr = append(n.Attr, data("created", it.Created.UTC().Format(time.RFC3339Nano)))
	}
	if it.Source != "" {
		n.Attr = append(n.Attr, data("source", string(it.Source)))
	}
	n.Attr = append(n.Attr, data("schema", strconv.Itoa(it.Schema)))

	switch c := it.Content.(type) {
	case *domain.TextBox:
		body := el(atom.Div, classBody)
		appendFragment(body, richtext.Sanitize(c.Body))
		n.AppendChild(body)
	case *domain.Table:
		n.AppendChild(tableNode(c))
	case *domain.MindMap:
		n.AppendChild(mindMapNode(c))
	case *domain.Image:
		n.AppendChild(imageNode(c))
	case *domain.ModuleEmbed:
		m := el(atom.Div, classModule)
		if c.Title != "" {
			m.Attr = append(m.Attr, data("title", c.Title))
		}
		if c.ActivityType != "" {
			m.Attr = append(m.Attr, data("activity-type", c.ActivityType))
		}
		p := el(atom.Div, classPreview)
		appendFragment(p, richtext.SanitizePreview(c.Preview))
		m.AppendChild(p)
		n.AppendChild(m)
	}
	return n
}

func tableNode(t *domain.Table) *html.Node {
	tbl := el(atom.Table, classTable)
	head := el(atom.Thead, "")
	tr := el(atom.Tr, "")
	for _, cell := range t.Header {
		th := el(atom.Th, "")
		appendFragment(th, richtext.Sanitize(cell))
		tr.AppendChild(th)
	}
	head.AppendChild(tr)
	tbl.AppendChild(head)
	body := el(atom.Tbody, "")
	for _, row := range t.Rows {
		tr := el(atom.Tr, "")
		for c := 0; c < t.Columns(); c++ {
			td := el(atom.Td, "")
			if c < len(row) {
				appendFragment(td, richtext.Sanitize(row[c]))
			}
			tr.AppendChild(td)
		}
		body.AppendChild(tr)
	}
	tbl.AppendChild(body)
	return tbl
}

func mindMapNode(m *domain.MindMap) *html.Node {
	root := el(atom.Div, classMindMap)
	center := el(atom.Div, classCenter)
	appendFragment(center, richtext.Sanitize(m.Center))
	root.AppendChild(center)
	list := el(atom.Ol, classBranches)
	for _, b := range m.Branches {
		li := el(atom.Li, classBranch,
			data("branch-id", b.ID),
			data("category", string(b.Category)),
		)
		if b.Label != "" {
			li.Attr = append(li.Attr, data("label", b.Label))
		}
		li.Attr = append(li.Attr, data("color", string(b.Color)))
		body := el(atom.Div, classBranchB)
		appendFragment(body, richtext.Sanitize(b.Body))
		li.AppendChild(body)
		list.AppendChild(li)
	}
	root.AppendChild(list)
	return root
}

func imageNode(img *domain.Image) *html.Node {
	n := el(atom.Img, classImage)
	if src := safeImageSrc(img.Src); src != "" {
		n.Attr = append(n.Attr, html.Attribute{Key: "src", Val: src})
	}
	if img.Alt != "" {
		n.Attr = append(n.Attr, html.Attribute{Key: "alt", Val: img.Alt})
	}
	if img.MIME != "" {
		n.Attr = append(n.Attr, data("mime", img.MIME))
	}
	n.Attr = append(n.Attr,
		data("natural-w", num(img.Natural.W)),
		data("natural-h", num(img.Natural.H)),
	)
	if img.Remote {
		n.Attr = append(n.Attr, data("remote", "true"))
	}
	if img.Placeholder || safeImageSrc(img.Src) == "" {
		n.Attr = append(n.Attr, data("placeholder", "true"))
	}
	return n
}

// safeImageSrc keeps inline image data and absolute http(s) URLs.
func safeImageSrc(src string) string {
	src = strings.TrimSpace(src)
	if strings.HasPrefix(strings.ToLower(src), "data:image/") || richtext.ValidLink(src) {
		return src
	}
	return ""
}

func el(a atom.Atom, class string, attrs ...html.Attribute) *html.Node {
	n := &html.Node{Type: html.ElementNode, Data: a.String(), DataAtom: a}
	if class != "" {
		n.Attr = append(n.Attr, html.Attribute{Key: "class", Val: class})
	}
	n.Attr = append(n.Attr, attrs...)
	return n
}

func data(key, val string) html.Attribute {
	return html.Attribute{Key: "data-" + key, Val: val}
}

// appendFragment parses markup in the context of parent and appends the
// resulting nodes.
func appendFragment(parent *html.Node, markup string) {
	if markup == "" {
		return
	}
	ctx := &html.Node{Type: html.ElementNode, Data: parent.Data, DataAtom: parent.DataAtom}
	nodes, err := html.ParseFragment(strings.NewReader(markup), ctx)
	if err != nil {
		return
	}
	for _, c := range nodes {
		parent.AppendChild(c)
	}
}

func num(v float64) string {
	return strconv.FormatFloat(geom.Round(v, 2), 'f', -1, 64)
}
