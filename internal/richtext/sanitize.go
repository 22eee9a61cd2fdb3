/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package richtext implements the restricted rich-text format used by text
// boxes, table cells and mind-map branches: an allow-list sanitizer and
// range based editing commands over the parsed node tree.
package richtext

import (
	"net/url"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var allowedTags = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Br: true,
	atom.B: true, atom.Strong: true, atom.I: true, atom.Em: true, atom.U: true,
	atom.Mark: true, atom.Span: true,
	atom.Ol: true, atom.Ul: true, atom.Li: true,
	atom.A: true,
}

// Elements whose content is code or opaque text rather than prose. They are
// dropped together with their content.
var discardWithContent = map[string]bool{
	"script": true, "style": true, "template": true, "noscript": true,
	"iframe": true, "noembed": true, "noframes": true, "xmp": true,
	"textarea": true, "title": true, "plaintext": true, "object": true,
}

var allowedClasses = map[string]bool{"highlight": true, "link": true}

var inlineTags = map[atom.Atom]bool{
	atom.B: true, atom.Strong: true, atom.I: true, atom.Em: true, atom.U: true,
	atom.Mark: true, atom.Span: true, atom.A: true,
}

var blockTags = map[atom.Atom]bool{atom.P: true, atom.Div: true, atom.Ul: true, atom.Ol: true, atom.Li: true}

// ValidLink reports whether raw is an absolute http or https URL with a host.
func ValidLink(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return u.Host != ""
	}
	return false
}

// Sanitize rewrites markup into the allowed subset. Disallowed elements are
// replaced by their children, attributes and classes outside the allow-lists
// are stripped, links with unsafe targets lose the link but keep the text.
// The output is stable: Sanitize(Sanitize(x)) == Sanitize(x).
func Sanitize(markup string) string {
	root := parseFragment(markup)
	clean(root, scope{})
	normalize(root)
	return renderChildren(root)
}

// scope carries the ancestry facts the structural rules depend on.
type scope struct {
	inParagraph bool
	inLink      bool
	parentList  bool
}

func (s scope) enter(n *html.Node) scope {
	return scope{
		inParagraph: s.inParagraph || n.DataAtom == atom.P,
		inLink:      s.inLink || n.DataAtom == atom.A,
		parentList:  n.DataAtom == atom.Ul || n.DataAtom == atom.Ol,
	}
}

type verdict int

const (
	keep verdict = iota
	unwrapIt
	dropIt
)

func judge(n *html.Node, s scope) verdict {
	if discardWithContent[strings.ToLower(n.Data)] {
		return dropIt
	}
	if n.Namespace != "" || !allowedTags[n.DataAtom] {
		return unwrapIt
	}
	switch n.DataAtom {
	case atom.Li:
		if !s.parentList {
			return unwrapIt
		}
	case atom.A:
		if s.inLink || !ValidLink(attr(n, "href")) {
			return unwrapIt
		}
	case atom.P, atom.Div, atom.Ul, atom.Ol:
		// The HTML parser closes an open paragraph before any of these.
		if s.inParagraph {
			return unwrapIt
		}
	}
	return keep
}

func clean(parent *html.Node, s scope) {
	for c := parent.FirstChild; c != nil; {
		next := c.NextSibling
		switch c.Type {
		case html.TextNode:
		case html.ElementNode:
			switch judge(c, s) {
			case dropIt:
				parent.RemoveChild(c)
			case unwrapIt:
				next = unwrap(c)
			default:
				filterAttrs(c)
				clean(c, s.enter(c))
			}
		default:
			parent.RemoveChild(c)
		}
		c = next
	}
}

// filterAttrs rebuilds the attribute list in canonical order.
func filterAttrs(n *html.Node) {
	var out []html.Attribute
	switch n.DataAtom {
	case atom.A:
		out = append(out, html.Attribute{Key: "href", Val: strings.TrimSpace(attr(n, "href"))})
		if strings.EqualFold(strings.TrimSpace(attr(n, "target")), "_blank") {
			out = append(out,
				html.Attribute{Key: "target", Val: "_blank"},
				html.Attribute{Key: "rel", Val: "noopener noreferrer"})
		}
		if cls := filterClasses(attr(n, "class")); cls != "" {
			out = append(out, html.Attribute{Key: "class", Val: cls})
		}
	case atom.Mark, atom.Span:
		if cls := filterClasses(attr(n, "class")); cls != "" {
			out = append(out, html.Attribute{Key: "class", Val: cls})
		}
	}
	n.Attr = out
}

func filterClasses(v string) string {
	var keep []string
	seen := map[string]bool{}
	for _, c := range strings.Fields(v) {
		c = strings.ToLower(c)
		if allowedClasses[c] && !seen[c] {
			seen[c] = true
			keep = append(keep, c)
		}
	}
	return strings.Join(keep, " ")
}

// attr returns the first value of key; the parser already drops duplicates.
func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}

// normalize removes empty inline wrappers and attribute-less spans and merges
// adjacent text nodes and identical adjacent inline elements, bottom-up.
func normalize(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			normalize(c)
		}
	}
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		switch {
		case c.Type == html.TextNode && c.Data == "":
			n.RemoveChild(c)
		case c.Type == html.ElementNode && inlineTags[c.DataAtom] && c.FirstChild == nil:
			n.RemoveChild(c)
		case c.Type == html.ElementNode && c.DataAtom == atom.Span && len(c.Attr) == 0:
			next = unwrap(c)
		}
		c = next
	}
	for c := n.FirstChild; c != nil && c.NextSibling != nil; {
		nx := c.NextSibling
		switch {
		case c.Type == html.TextNode && nx.Type == html.TextNode:
			c.Data += nx.Data
			n.RemoveChild(nx)
		case sameInline(c, nx):
			for g := nx.FirstChild; g != nil; g = nx.FirstChild {
				nx.RemoveChild(g)
				c.AppendChild(g)
			}
			n.RemoveChild(nx)
			normalize(c)
		default:
			c = nx
		}
	}
}

func sameInline(a, b *html.Node) bool {
	if a.Type != html.ElementNode || b.Type != html.ElementNode {
		return false
	}
	if !inlineTags[a.DataAtom] || a.DataAtom != b.DataAtom || len(a.Attr) != len(b.Attr) {
		return false
	}
	for i := range a.Attr {
		if a.Attr[i] != b.Attr[i] {
			return false
		}
	}
	return true
}

// unwrap replaces n by its children and returns the node the caller should
// visit next: the first promoted child, or n's former next sibling.
func unwrap(n *html.Node) *html.Node {
	parent := n.Parent
	next := n.NextSibling
	first := n.FirstChild
	for c := n.FirstChild; c != nil; c = n.FirstChild {
		n.RemoveChild(c)
		parent.InsertBefore(c, n)
	}
	parent.RemoveChild(n)
	if first != nil {
		return first
	}
	return next
}

func parseFragment(markup string) *html.Node {
	root := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	ctx := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(markup), ctx)
	if err != nil {
		return root
	}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	return root
}

func renderChildren(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&b, c)
	}
	return b.String()
}

var (
	previewOnce   sync.Once
	previewPolicy *bluemonday.Policy
)

func policy() *bluemonday.Policy {
	previewOnce.Do(func() {
		p := bluemonday.UGCPolicy()
		p.AllowAttrs("class").Globally()
		p.AllowDataURIImages()
		previewPolicy = p
	})
	return previewPolicy
}

// SanitizePreview cleans builder-rendered or static slide markup, which may
// use a richer vocabulary than text bodies (tables, headings, images). The
// result is canonical markup that renders and re-parses identically.
func SanitizePreview(markup string) string {
	out := markup
	for i := 0; i < 4; i++ {
		next := Canonical(policy().Sanitize(out))
		if next == out {
			break
		}
		out = next
	}
	return out
}

// Canonical re-serialises markup through the HTML parser.
func Canonical(markup string) string {
	return renderChildren(parseFragment(markup))
}
