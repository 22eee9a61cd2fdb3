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
	"testing"
)

const linkAttrs = ` target="_blank" rel="noopener noreferrer" class="link"`

func TestToggleBoldWrapsAndUnwraps(t *testing.T) {
	d := Parse("Hello world")
	if !d.ToggleFormat(Range{0, 5}, Bold) {
		t.Fatalf("expected change")
	}
	if got := d.HTML(); got != "<b>Hello</b> world" {
		t.Fatalf("after bold: %q", got)
	}
	d.ToggleFormat(Range{0, 5}, Bold)
	if got := d.HTML(); got != "Hello world" {
		t.Fatalf("after unbold: %q", got)
	}
}

func TestToggleFormatSplitsExactAncestor(t *testing.T) {
	d := Parse("<b>Hello world</b>")
	d.ToggleFormat(Range{6, 11}, Bold)
	if got := d.HTML(); got != "<b>Hello </b>world" {
		t.Fatalf("partial unbold: %q", got)
	}
}

func TestToggleFormatMixedSelectionWraps(t *testing.T) {
	d := Parse("<b>Hello</b> world")
	d.ToggleFormat(Range{0, 11}, Bold)
	if got := d.HTML(); got != "<b>Hello world</b>" {
		t.Fatalf("mixed selection should format all: %q", got)
	}
}

func TestToggleStrongCountsAsBold(t *testing.T) {
	d := Parse("<strong>x</strong>y")
	d.ToggleFormat(Range{0, 1}, Bold)
	if got := d.HTML(); got != "xy" {
		t.Fatalf("strong not treated as bold: %q", got)
	}
}

func TestHighlight(t *testing.T) {
	d := Parse("abc")
	d.ToggleFormat(Range{1, 2}, Highlight)
	if got := d.HTML(); got != `a<mark class="highlight">b</mark>c` {
		t.Fatalf("highlight: %q", got)
	}
	if fs := d.Formats(Range{1, 2}); len(fs) != 1 || fs[0] != Highlight {
		t.Fatalf("Formats = %v", fs)
	}
}

func TestCollapsedRangeIsNoop(t *testing.T) {
	d := Parse("abc")
	if d.ToggleFormat(Range{1, 1}, Italic) {
		t.Fatalf("caret formatting should be a no-op")
	}
	if d.HTML() != "abc" {
		t.Fatalf("document changed")
	}
}

func TestFormatAcrossParagraphs(t *testing.T) {
	d := Parse("<p>ab</p><p>cd</p>")
	d.ToggleFormat(Range{1, 3}, Underline)
	if got := d.HTML(); got != "<p>a<u>b</u></p><p><u>c</u>d</p>" {
		t.Fatalf("cross-paragraph underline: %q", got)
	}
}

func TestToggleListSplitsLines(t *testing.T) {
	d := Parse("one<br>two<br>three")
	if !d.ToggleList(Range{0, 7}, Ordered) {
		t.Fatalf("expected change")
	}
	if got := d.HTML(); got != "<ol><li>one</li><li>two</li></ol>three" {
		t.Fatalf("to list: %q", got)
	}
	d.ToggleList(Range{0, 5}, Ordered)
	if got := d.HTML(); got != "<p>one</p><p>two</p>three" {
		t.Fatalf("unlist: %q", got)
	}
}

func TestToggleListSwitchesKind(t *testing.T) {
	d := Parse("<ul><li>a</li><li>b</li></ul>")
	d.ToggleList(Range{0, 0}, Ordered)
	if got := d.HTML(); got != "<ol><li>a</li></ol><ul><li>b</li></ul>" {
		t.Fatalf("switch kind: %q", got)
	}
}

func TestInsertLink(t *testing.T) {
	d := Parse("visit site")
	if err := d.InsertLink(Range{6, 10}, "https://example.com"); err != nil {
		t.Fatalf("InsertLink: %v", err)
	}
	want := `visit <a href="https://example.com"` + linkAttrs + `>site</a>`
	if got := d.HTML(); got != want {
		t.Fatalf("link:\n got %q\nwant %q", got, want)
	}
}

func TestInsertLinkRejectsUnsafeURL(t *testing.T) {
	d := Parse("visit site")
	err := d.InsertLink(Range{6, 10}, "javascript:alert(1)")
	if !errors.Is(err, ErrInvalidLink) {
		t.Fatalf("expected ErrInvalidLink, got %v", err)
	}
	if d.HTML() != "visit site" {
		t.Fatalf("rejected link mutated document: %q", d.HTML())
	}
}

func TestInsertLinkAtCaretUsesURLAsText(t *testing.T) {
	d := Parse("see ")
	if err := d.InsertLink(Range{4, 4}, "https://x.test"); err != nil {
		t.Fatal(err)
	}
	want := `see <a href="https://x.test"` + linkAttrs + `>https://x.test</a>`
	if got := d.HTML(); got != want {
		t.Fatalf("caret link: %q", got)
	}
}

func TestRelinkReplacesNestedLink(t *testing.T) {
	d := Parse(`<a href="https://old.test">abc</a>`)
	if err := d.InsertLink(Range{0, 3}, "https://new.test"); err != nil {
		t.Fatal(err)
	}
	want := `<a href="https://new.test"` + linkAttrs + `>abc</a>`
	if got := d.HTML(); got != want {
		t.Fatalf("relink: %q", got)
	}
	if !d.Unlink(Range{1, 1}) || d.HTML() != "abc" {
		t.Fatalf("unlink: %q", d.HTML())
	}
}

func TestTextRangeSkipsBlockNewlines(t *testing.T) {
	d := Parse("<p>ab</p><p>cd<br>ef</p>")
	if d.Text() != "ab\ncd\nef" {
		t.Fatalf("Text = %q", d.Text())
	}
	cases := []struct {
		start, end int
		want       Range
	}{
		{0, 2, Range{0, 2}},
		{3, 5, Range{2, 4}},
		{1, 4, Range{1, 3}},
		{6, 8, Range{5, 7}},
		{6, 99, Range{5, 7}},
		{-3, 0, Range{0, 0}},
	}
	for _, c := range cases {
		if got := d.TextRange(c.start, c.end); got != c.want {
			t.Fatalf("TextRange(%d,%d) = %+v, want %+v", c.start, c.end, got, c.want)
		}
	}
	if !d.ToggleFormat(d.TextRange(3, 5), Bold) || !strings.Contains(d.HTML(), "<b>cd</b>") || strings.Contains(d.HTML(), "<b>ab") {
		t.Fatalf("format through mapped range: %s", d.HTML())
	}
}

func TestTextAndWordCount(t *testing.T) {
	d := Parse("<p>a b</p><ul><li>c</li></ul>d<br>e")
	if got := d.Text(); got != "a b\nc\nd\ne" {
		t.Fatalf("Text = %q", got)
	}
	if n := WordCount("<p>one two</p> three"); n != 3 {
		t.Fatalf("WordCount = %d", n)
	}
	if d.Len() != 7 {
		t.Fatalf("Len = %d", d.Len())
	}
}
