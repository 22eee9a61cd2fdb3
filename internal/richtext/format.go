/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package richtext

import (
	"errors"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrInvalidLink is returned for link targets that are not absolute http(s) URLs.
var ErrInvalidLink = errors.New("link must be an absolute http or https URL")

// Format is an inline formatting command.
type Format int

const (
	Bold Format = iota + 1
	Italic
	Underline
	Highlight
)

func (f Format) String() string {
	switch f {
	case Bold:
		return "bold"
	case Italic:
		return "italic"
	case Underline:
		return "underline"
	case Highlight:
		return "highlight"
	}
	return ""
}

// ParseFormat maps a command name to a Format.
func ParseFormat(s string) (Format, bool) {
	for _, f := range []Format{Bold, Italic, Underline, Highlight} {
		if f.String() == strings.ToLower(strings.TrimSpace(s)) {
			return f, true
		}
	}
	return 0, false
}

// matches reports whether n already applies the format. Semantic synonyms
// (strong, em) count.
func (f Format) matches(n *html.Node) bool {
	switch f {
	case Bold:
		return n.DataAtom == atom.B || n.DataAtom == atom.Strong
	case Italic:
		return n.DataAtom == atom.I || n.DataAtom == atom.Em
	case Underline:
		return n.DataAtom == atom.U
	case Highlight:
		return n.DataAtom == atom.Mark
	}
	return false
}

func (f Format) element() *html.Node {
	switch f {
	case Bold:
		return element(atom.B)
	case Italic:
		return element(atom.I)
	case Underline:
		return element(atom.U)
	default:
		return element(atom.Mark, html.Attribute{Key: "class", Val: "highlight"})
	}
}

// ToggleFormat removes f from the range when every character in it already
// carries f, and applies f to the unformatted parts otherwise. It reports
// whether the document changed.
func (d *Doc) ToggleFormat(r Range, f Format) bool {
	if f.String() == "" {
		return false
	}
	r = r.clamp(d.Len())
	if r.Collapsed() {
		return false
	}
	nodes := d.textIn(r)
	if len(nodes) == 0 {
		return false
	}
	all := true
	for _, n := range nodes {
		if d.ancestor(n, f.matches) == nil {
			all = false
			break
		}
	}
	for _, n := range nodes {
		if all {
			d.strip(n, f.matches)
		} else if d.ancestor(n, f.matches) == nil {
			wrap(n, f.element())
		}
	}
	normalize(d.root)
	return true
}

// strip lifts n out of every ancestor accepted by match.
func (d *Doc) strip(n *html.Node, match func(*html.Node) bool) {
	for a := d.ancestor(n, match); a != nil; a = d.ancestor(n, match) {
		isolate(a, n)
		unwrap(a)
	}
}

// Formats lists the formats active on every character of the range; a caret
// reports the formats around it.
func (d *Doc) Formats(r Range) []Format {
	r = r.clamp(d.Len())
	var nodes []*html.Node
	for _, l := range d.leaves() {
		if l.n.Type != html.TextNode {
			continue
		}
		if r.Collapsed() && l.start <= r.Start && r.Start <= l.end && l.end > l.start {
			nodes = []*html.Node{l.n}
			break
		}
		if l.end > r.Start && l.start < r.End {
			nodes = append(nodes, l.n)
		}
	}
	if len(nodes) == 0 {
		return nil
	}
	var out []Format
	for _, f := range []Format{Bold, Italic, Underline, Highlight} {
		on := true
		for _, n := range nodes {
			if d.ancestor(n, f.matches) == nil {
				on = false
				break
			}
		}
		if on {
			out = append(out, f)
		}
	}
	return out
}

func isLink(n *html.Node) bool { return n.DataAtom == atom.A }

func newLink(href string) *html.Node {
	return element(atom.A,
		html.Attribute{Key: "href", Val: href},
		html.Attribute{Key: "target", Val: "_blank"},
		html.Attribute{Key: "rel", Val: "noopener noreferrer"},
		html.Attribute{Key: "class", Val: "link"},
	)
}

// InsertLink links the range to href. A caret inserts the URL itself as link
// text. Invalid targets return ErrInvalidLink and leave the document untouched.
func (d *Doc) InsertLink(r Range, href string) error {
	href = strings.TrimSpace(href)
	if !ValidLink(href) {
		return ErrInvalidLink
	}
	r = r.clamp(d.Len())
	if r.Collapsed() {
		d.insertAt(r.Start, newLinkText(href))
		normalize(d.root)
		return nil
	}
	nodes := d.textIn(r)
	for _, n := range nodes {
		d.strip(n, isLink)
	}
	for _, n := range nodes {
		wrap(n, newLink(href))
	}
	normalize(d.root)
	return nil
}

func newLinkText(href string) *html.Node {
	a := newLink(href)
	a.AppendChild(&html.Node{Type: html.TextNode, Data: href})
	return a
}

// Unlink removes links overlapping the range. A caret inside a link removes
// that whole link.
func (d *Doc) Unlink(r Range) bool {
	r = r.clamp(d.Len())
	var nodes []*html.Node
	if r.Collapsed() {
		for _, l := range d.leaves() {
			if l.start <= r.Start && r.Start <= l.end {
				if a := d.ancestor(l.n, isLink); a != nil {
					unwrap(a)
					normalize(d.root)
					return true
				}
			}
		}
		return false
	}
	nodes = d.textIn(r)
	changed := false
	for _, n := range nodes {
		if d.ancestor(n, isLink) != nil {
			d.strip(n, isLink)
			changed = true
		}
	}
	normalize(d.root)
	return changed
}

// insertAt places n at offset off, outside of any link.
func (d *Doc) insertAt(off int, n *html.Node) {
	d.splitAt(off)
	var ref *html.Node
	after := false
	for _, l := range d.leaves() {
		if l.end == off && l.end > l.start {
			ref, after = l.n, true
		}
		if l.start == off && ref == nil {
			ref = l.n
			break
		}
	}
	if ref == nil {
		d.root.AppendChild(n)
		return
	}
	if a := d.ancestor(ref, isLink); a != nil {
		for p := a; p != nil && p != d.root; p = p.Parent {
			if isLink(p) {
				a = p
			}
		}
		ref = a
	}
	if after {
		ref.Parent.InsertBefore(n, ref.NextSibling)
	} else {
		ref.Parent.InsertBefore(n, ref)
	}
}
