/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package richtext

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Range selects text by rune offsets. Every text rune counts one and every
// <br> counts one; element boundaries count nothing.
type Range struct {
	Start, End int
}

// Collapsed reports a caret without extent.
func (r Range) Collapsed() bool { return r.Start == r.End }

func (r Range) clamp(n int) Range {
	if r.Start > r.End {
		r.Start, r.End = r.End, r.Start
	}
	if r.Start < 0 {
		r.Start = 0
	}
	if r.End > n {
		r.End = n
	}
	if r.Start > r.End {
		r.Start = r.End
	}
	return r
}

// Doc is an editable, already sanitized rich-text tree.
type Doc struct {
	root *html.Node
}

// Parse sanitizes markup and returns it as an editable document.
func Parse(markup string) *Doc {
	root := parseFragment(markup)
	clean(root, scope{})
	normalize(root)
	return &Doc{root: root}
}

// HTML serialises the document in sanitized form.
func (d *Doc) HTML() string {
	return Sanitize(renderChildren(d.root))
}

// Len is the offset of the document end.
func (d *Doc) Len() int {
	return weight(d.root)
}

// Text flattens the document to plain text. Line breaks and block ends become
// newlines.
func (d *Doc) Text() string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch {
			case c.Type == html.TextNode:
				b.WriteString(c.Data)
			case c.DataAtom == atom.Br:
				b.WriteByte('\n')
			default:
				walk(c)
				if blockTags[c.DataAtom] && b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
					b.WriteByte('\n')
				}
			}
		}
	}
	walk(d.root)
	return strings.TrimRight(b.String(), "\n")
}

// TextRange maps rune offsets into Text back to a document Range. The
// newlines Text adds at block ends have no document offset of their own.
func (d *Doc) TextRange(start, end int) Range {
	offs := d.textOffsets()
	at := func(i int) int {
		switch {
		case i <= 0:
			return 0
		case i >= len(offs):
			return d.Len()
		}
		return offs[i]
	}
	return Range{Start: at(start), End: at(end)}.clamp(d.Len())
}

// textOffsets[i] is the document offset of the i-th rune Text writes.
func (d *Doc) textOffsets() []int {
	var offs []int
	pos, nl := 0, false
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch {
			case c.Type == html.TextNode:
				for _, r := range c.Data {
					offs = append(offs, pos)
					pos++
					nl = r == '\n'
				}
			case c.DataAtom == atom.Br:
				offs = append(offs, pos)
				pos++
				nl = true
			default:
				walk(c)
				if blockTags[c.DataAtom] && len(offs) > 0 && !nl {
					offs = append(offs, pos)
					nl = true
				}
			}
		}
	}
	walk(d.root)
	return offs
}

// PlainText is a convenience for renderers that only need the text.
func PlainText(markup string) string { return Parse(markup).Text() }

// WordCount counts whitespace separated words.
func WordCount(markup string) int { return len(strings.Fields(PlainText(markup))) }

// leaf is a text node or <br> with its offset span.
type leaf struct {
	n          *html.Node
	start, end int
}

func (d *Doc) leaves() []leaf {
	var out []leaf
	off := 0
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch {
			case c.Type == html.TextNode:
				w := utf8.RuneCountInString(c.Data)
				out = append(out, leaf{n: c, start: off, end: off + w})
				off += w
			case c.Type == html.ElementNode && c.DataAtom == atom.Br:
				out = append(out, leaf{n: c, start: off, end: off + 1})
				off++
			case c.Type == html.ElementNode:
				walk(c)
			}
		}
	}
	walk(d.root)
	return out
}

// weight is the offset span covered by n's subtree.
func weight(n *html.Node) int {
	switch {
	case n.Type == html.TextNode:
		return utf8.RuneCountInString(n.Data)
	case n.Type == html.ElementNode && n.DataAtom == atom.Br:
		return 1
	}
	w := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w += weight(c)
	}
	return w
}

// splitAt makes off a text node boundary.
func (d *Doc) splitAt(off int) {
	for _, l := range d.leaves() {
		if l.n.Type != html.TextNode || off <= l.start || off >= l.end {
			continue
		}
		runes := []rune(l.n.Data)
		k := off - l.start
		tail := &html.Node{Type: html.TextNode, Data: string(runes[k:])}
		l.n.Data = string(runes[:k])
		l.n.Parent.InsertBefore(tail, l.n.NextSibling)
		return
	}
}

// textIn splits the tree at the range edges and returns the non-empty text
// nodes inside the range.
func (d *Doc) textIn(r Range) []*html.Node {
	d.splitAt(r.Start)
	d.splitAt(r.End)
	var out []*html.Node
	for _, l := range d.leaves() {
		if l.n.Type == html.TextNode && l.end > l.start && l.start >= r.Start && l.end <= r.End {
			out = append(out, l.n)
		}
	}
	return out
}

func (d *Doc) ancestor(n *html.Node, match func(*html.Node) bool) *html.Node {
	for p := n.Parent; p != nil && p != d.root; p = p.Parent {
		if p.Type == html.ElementNode && match(p) {
			return p
		}
	}
	return nil
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, Data: a.String(), DataAtom: a, Attr: attrs}
}

func shallowClone(n *html.Node) *html.Node {
	return &html.Node{Type: n.Type, Data: n.Data, DataAtom: n.DataAtom, Namespace: n.Namespace, Attr: append([]html.Attribute(nil), n.Attr...)}
}

func wrap(n, with *html.Node) {
	n.Parent.InsertBefore(with, n)
	n.Parent.RemoveChild(n)
	with.AppendChild(n)
}

func detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// isolate splits top so that the copy still called top holds nothing but the
// path down to n. Content before and after n moves into clones of top placed
// beside it.
func isolate(top, n *html.Node) {
	splitOff(top, n, true)
	splitOff(top, n, false)
}

func splitOff(top, n *html.Node, before bool) {
	var carried *html.Node
	for cur := n; cur != top; cur = cur.Parent {
		parent := cur.Parent
		clone := shallowClone(parent)
		if before {
			for s := parent.FirstChild; s != cur; s = parent.FirstChild {
				parent.RemoveChild(s)
				clone.AppendChild(s)
			}
			if carried != nil {
				clone.AppendChild(carried)
			}
		} else {
			if carried != nil {
				clone.AppendChild(carried)
			}
			for s := cur.NextSibling; s != nil; s = cur.NextSibling {
				parent.RemoveChild(s)
				clone.AppendChild(s)
			}
		}
		carried = nil
		if clone.FirstChild != nil {
			carried = clone
		}
	}
	if carried == nil {
		return
	}
	if before {
		top.Parent.InsertBefore(carried, top)
	} else {
		top.Parent.InsertBefore(carried, top.NextSibling)
	}
}
