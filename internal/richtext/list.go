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

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ListKind selects ordered or unordered lists.
type ListKind int

const (
	Ordered ListKind = iota + 1
	Unordered
)

func (k ListKind) tag() atom.Atom {
	if k == Ordered {
		return atom.Ol
	}
	return atom.Ul
}

// line is one top-level visual line: a list item, a paragraph/div, or a run
// of inline nodes ended by <br>.
type line struct {
	nodes      []*html.Node
	list       atom.Atom
	block      *html.Node
	asBlock    bool
	brk        bool
	start, end int
}

func (d *Doc) lines() []*line {
	var out []*line
	var run *line
	off := 0
	flush := func() {
		if run != nil {
			out = append(out, run)
			run = nil
		}
	}
	for c := d.root.FirstChild; c != nil; c = c.NextSibling {
		switch {
		case c.Type == html.ElementNode && (c.DataAtom == atom.Ul || c.DataAtom == atom.Ol):
			flush()
			for li := c.FirstChild; li != nil; li = li.NextSibling {
				if li.Type == html.TextNode && strings.TrimSpace(li.Data) == "" {
					continue
				}
				ln := &line{list: c.DataAtom, start: off}
				if li.Type == html.ElementNode && li.DataAtom == atom.Li {
					ln.nodes = children(li)
				} else {
					ln.nodes = []*html.Node{li}
				}
				off += weight(li)
				ln.end = off
				out = append(out, ln)
			}
		case c.Type == html.ElementNode && (c.DataAtom == atom.P || c.DataAtom == atom.Div):
			flush()
			ln := &line{block: c, nodes: children(c), start: off}
			off += weight(c)
			ln.end = off
			out = append(out, ln)
		case c.Type == html.ElementNode && c.DataAtom == atom.Br:
			if run == nil {
				run = &line{start: off, end: off}
			}
			run.brk = true
			off++
			flush()
		default:
			if run == nil {
				run = &line{start: off}
			}
			run.nodes = append(run.nodes, c)
			off += weight(c)
			run.end = off
		}
	}
	flush()
	return out
}

func children(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

// ToggleList turns the lines touched by the range into items of a kind list.
// When every touched line already is an item of that kind the items become
// plain paragraphs instead. Lines are split on <br> and block boundaries.
func (d *Doc) ToggleList(r Range, kind ListKind) bool {
	if kind != Ordered && kind != Unordered {
		return false
	}
	r = r.clamp(d.Len())
	lines := d.lines()
	var hit []*line
	for _, ln := range lines {
		if ln.start <= r.End && ln.end >= r.Start {
			hit = append(hit, ln)
		}
	}
	if len(hit) == 0 {
		return false
	}
	unlist := true
	for _, ln := range hit {
		if ln.list != kind.tag() {
			unlist = false
			break
		}
	}
	for _, ln := range hit {
		ln.block = nil
		if unlist {
			ln.list, ln.asBlock = 0, true
		} else {
			ln.list = kind.tag()
		}
		ln.brk = false
	}
	d.rebuild(lines)
	normalize(d.root)
	return true
}

func (d *Doc) rebuild(lines []*line) {
	for c := d.root.FirstChild; c != nil; c = d.root.FirstChild {
		d.root.RemoveChild(c)
	}
	var list *html.Node
	for _, ln := range lines {
		if ln.list != 0 {
			if list == nil || list.DataAtom != ln.list {
				list = element(ln.list)
				d.root.AppendChild(list)
			}
			li := element(atom.Li)
			moveInto(li, ln.nodes)
			list.AppendChild(li)
			continue
		}
		list = nil
		switch {
		case ln.block != nil:
			d.root.AppendChild(ln.block)
		case ln.asBlock:
			tag := atom.P
			for _, n := range ln.nodes {
				if n.Type == html.ElementNode && blockTags[n.DataAtom] {
					tag = atom.Div
					break
				}
			}
			el := element(tag)
			moveInto(el, ln.nodes)
			d.root.AppendChild(el)
		default:
			moveInto(d.root, ln.nodes)
			if ln.brk {
				d.root.AppendChild(element(atom.Br))
			}
		}
	}
}

func moveInto(dst *html.Node, nodes []*html.Node) {
	for _, n := range nodes {
		detach(n)
		dst.AppendChild(n)
	}
}
