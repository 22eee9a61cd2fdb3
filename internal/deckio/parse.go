/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package deckio

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"slidecanvas/internal/domain"
	"slidecanvas/internal/geom"
	"slidecanvas/internal/richtext"
)

// ParseSlide rebuilds a slide from its markup snapshot. It accepts the
// current markup as well as the looser shapes written before item schema 2:
// a div.slide root, data-type instead of data-item-type, inline style
// geometry, text bodies without an item-body wrapper and tables without a
// thead. Items that cannot be recognised are dropped. Rich text is sanitized.
func ParseSlide(markup string, defaults geom.Size) *domain.Slide {
	root := parseBody(markup)
	s := &domain.Slide{}
	sec := find(root, func(n *html.Node) bool { return hasClass(n, classSlide) })
	if sec == nil {
		sec = root
	}
	s.ID = attr(sec, "data-slide-id")
	s.Section = attr(sec, "data-section")
	s.Background = attr(sec, "data-background")
	s.Layout = domain.Layout(attr(sec, "data-layout"))

	cv := find(sec, func(n *html.Node) bool { return hasClass(n, classCanvas) })
	switch {
	case s.Layout == domain.LayoutBlank, s.Layout == "" && cv != nil:
		s.Layout = domain.LayoutBlank
		s.Canvas = &domain.Canvas{Width: defaults.W, Height: defaults.H}
		if cv == nil {
			break
		}
		if w, ok := parseFloat(attr(cv, "data-width")); ok && w > 0 {
			s.Canvas.Width = w
		}
		if h, ok := parseFloat(attr(cv, "data-height")); ok && h > 0 {
			s.Canvas.Height = h
		}
		for _, n := range findAll(cv, func(n *html.Node) bool { return hasClass(n, classItem) }) {
			if it := parseItem(n); it != nil {
				s.Canvas.Items = append(s.Canvas.Items, it)
			}
		}
	default:
		if s.Layout == "" {
			s.Layout = domain.LayoutContent
		}
		static := find(sec, func(n *html.Node) bool { return hasClass(n, classStatic) })
		if static == nil {
			static = sec
		}
		s.Static = richtext.SanitizePreview(inner(static))
	}
	return s
}

func parseItem(n *html.Node) *domain.Item {
	typ := attr(n, "data-item-type")
	if typ == "" {
		typ = attr(n, "data-type")
	}
	kind, ok := domain.ParseKind(legacyKind(typ))
	if !ok {
		return nil
	}
	it := &domain.Item{
		ID:     domain.ItemID(attr(n, "data-item-id")),
		Color:  domain.Color(attr(n, "data-color")),
		Effect: domain.Effect(attr(n, "data-effect")),
		Source: domain.SourceTag(attr(n, "data-source")),
		Rect:   parseGeometry(n),
	}
	if it.Source == "" {
		it.Source = domain.SourceImport
	}
	if v, err := strconv.Atoi(attr(n, "data-schema")); err == nil {
		it.Schema = v
	}
	if t, err := time.Parse(time.RFC3339Nano, attr(n, "data-created")); err == nil {
		it.Created = t.UTC()
	}
	if it.Effect == "" && hasClass(n, "shadow") {
		it.Effect = domain.EffectShadow
	}

	switch kind {
	case domain.KindTextBox:
		body := find(n, func(c *html.Node) bool { return hasClass(c, classBody) })
		if body == nil {
			body = n
		}
		it.Content = &domain.TextBox{Body: richtext.Sanitize(inner(body))}
	case domain.KindTable:
		it.Content = parseTable(n)
	case domain.KindMindMap:
		it.Content = parseMindMap(n)
	case domain.KindImage:
		it.Content = parseImage(n)
	case domain.KindModule:
		it.Content = parseModule(n)
	}
	if needsRepair(it) {
		// Hand-edited or truncated snapshot: let the registry migrate it.
		it.Schema = min(it.Schema, domain.CurrentSchema-1)
	}
	return it
}

func needsRepair(it *domain.Item) bool {
	if !it.Color.Valid() || (it.Effect != domain.EffectNone && it.Effect != domain.EffectShadow) || it.Rect.Empty() {
		return true
	}
	switch c := it.Content.(type) {
	case *domain.Table:
		if len(c.Header) == 0 || len(c.Rows) == 0 {
			return true
		}
		for _, r := range c.Rows {
			if len(r) != len(c.Header) {
				return true
			}
		}
	case *domain.MindMap:
		for _, b := range c.Branches {
			if b.ID == "" || !b.Category.Valid() || !b.Color.Valid() {
				return true
			}
		}
	case *domain.Image:
		return c.Natural.W <= 0 || c.Natural.H <= 0
	}
	return false
}

// legacyKind maps type names used by older snapshots.
func legacyKind(t string) string {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case "text", "text-box", "textbox":
		return "textbox"
	case "mind-map", "mindmap":
		return "mindmap"
	case "activity", "activity-module", "module":
		return "module"
	}
	return strings.ToLower(strings.TrimSpace(t))
}

var styleProp = regexp.MustCompile(`(?i)(left|top|width|height)\s*:\s*(-?[0-9.]+)px`)

func parseGeometry(n *html.Node) geom.Rect {
	var r geom.Rect
	get := func(key string) (float64, bool) { return parseFloat(attr(n, key)) }
	x, okX := get("data-x")
	y, okY := get("data-y")
	w, okW := get("data-w")
	h, okH := get("data-h")
	if okX && okY && okW && okH {
		return geom.Rect{X: x, Y: y, W: w, H: h}
	}
	for _, m := range styleProp.FindAllStringSubmatch(attr(n, "style"), -1) {
		v, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		switch strings.ToLower(m[1]) {
		case "left":
			r.X = v
		case "top":
			r.Y = v
		case "width":
			r.W = v
		case "height":
			r.H = v
		}
	}
	if okX {
		r.X = x
	}
	if okY {
		r.Y = y
	}
	if okW {
		r.W = w
	}
	if okH {
		r.H = h
	}
	return r
}

func parseTable(n *html.Node) *domain.Table {
	t := &domain.Table{}
	tbl := find(n, func(c *html.Node) bool { return c.DataAtom == atom.Table })
	if tbl == nil {
		return t
	}
	rows := findAll(tbl, func(c *html.Node) bool { return c.DataAtom == atom.Tr })
	headRow := -1
	for i, r := range rows {
		if r.Parent != nil && r.Parent.DataAtom == atom.Thead {
			headRow = i
			break
		}
	}
	if headRow < 0 && len(rows) > 0 {
		headRow = 0
	}
	for i, r := range rows {
		var cells []string
		for c := r.FirstChild; c != nil; c = c.NextSibling {
			if c.DataAtom == atom.Td || c.DataAtom == atom.Th {
				cells = append(cells, richtext.Sanitize(inner(c)))
			}
		}
		if i == headRow {
			t.Header = cells
			continue
		}
		t.Rows = append(t.Rows, cells)
	}
	return t
}

func parseMindMap(n *html.Node) *domain.MindMap {
	m := &domain.MindMap{}
	if c := find(n, func(c *html.Node) bool { return hasClass(c, classCenter) || hasClass(c, "central-idea") }); c != nil {
		m.Center = richtext.Sanitize(inner(c))
	}
	for _, b := range findAll(n, func(c *html.Node) bool { return hasClass(c, classBranch) || hasClass(c, "mindmap-branch") }) {
		br := domain.Branch{
			ID:       attr(b, "data-branch-id"),
			Category: domain.Category(attr(b, "data-category")),
			Label:    attr(b, "data-label"),
			Color:    domain.Color(attr(b, "data-color")),
		}
		body := find(b, func(c *html.Node) bool { return hasClass(c, classBranchB) })
		if body == nil {
			body = b
		}
		br.Body = richtext.Sanitize(inner(body))
		m.Branches = append(m.Branches, br)
	}
	return m
}

func parseImage(n *html.Node) *domain.Image {
	img := &domain.Image{}
	tag := find(n, func(c *html.Node) bool { return c.DataAtom == atom.Img })
	if tag == nil {
		img.Placeholder = true
		return img
	}
	img.Src = safeImageSrc(attr(tag, "src"))
	img.Alt = attr(tag, "alt")
	img.MIME = attr(tag, "data-mime")
	img.Natural.W, _ = parseFloat(attr(tag, "data-natural-w"))
	img.Natural.H, _ = parseFloat(attr(tag, "data-natural-h"))
	img.Remote = attr(tag, "data-remote") == "true"
	img.Placeholder = attr(tag, "data-placeholder") == "true" || img.Src == ""
	return img
}

func parseModule(n *html.Node) *domain.ModuleEmbed {
	m := &domain.ModuleEmbed{}
	box := find(n, func(c *html.Node) bool { return hasClass(c, classModule) })
	if box == nil {
		box = n
	}
	m.Title = attr(box, "data-title")
	m.ActivityType = attr(box, "data-activity-type")
	prev := find(box, func(c *html.Node) bool { return hasClass(c, classPreview) })
	if prev == nil {
		prev = box
	}
	m.Preview = richtext.SanitizePreview(inner(prev))
	return m
}

func parseBody(markup string) *html.Node {
	ctx := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	root := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(markup), ctx)
	if err != nil {
		return root
	}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	return root
}

// find returns the first descendant of n (excluding n) matching pred in
// document order.
func find(n *html.Node, pred func(*html.Node) bool) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && pred(c) {
			return c
		}
		if r := find(c, pred); r != nil {
			return r
		}
	}
	return nil
}

// findAll returns matching descendants without descending into matches.
func findAll(n *html.Node, pred func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && pred(c) {
			out = append(out, c)
			continue
		}
		out = append(out, findAll(c, pred)...)
	}
	return out
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func inner(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&b, c)
	}
	return b.String()
}

func parseFloat(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
