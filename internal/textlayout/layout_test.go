/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
)

func lines(b Box) string {
	var out []string
	for _, l := range b.Lines {
		out = append(out, l.Text)
	}
	return strings.Join(out, "|")
}

func TestWrapBreaksOnWords(t *testing.T) {
	// 7px per glyph: 10 glyphs fit in 70px.
	b := Wrap(nil, FontSpec{}, []string{"the quick brown fox"}, 70)
	if lines(b) != "the quick|brown fox" {
		t.Fatalf("wrap = %q", lines(b))
	}
	if b.Width != 63 || b.Height != 2*13 {
		t.Fatalf("box = %dx%d", b.Width, b.Height)
	}
}

func TestWrapCutsLongWordsAndSkipsBlankParagraphs(t *testing.T) {
	b := Wrap(BasicProvider{}, FontSpec{}, []string{"abcdefghijkl", "   ", "ok"}, 35)
	if lines(b) != "abcde|ok" {
		t.Fatalf("wrap = %q", lines(b))
	}
	if b := Wrap(nil, FontSpec{}, []string{"wide"}, 3); len(b.Lines) != 0 {
		t.Fatalf("nothing should fit: %q", lines(b))
	}
}

func TestWrapWithoutLimitKeepsParagraphs(t *testing.T) {
	b := Wrap(nil, FontSpec{}, []string{"one  two", "three"}, 0)
	if lines(b) != "one two|three" {
		t.Fatalf("wrap = %q", lines(b))
	}
}

func TestBasicMetrics(t *testing.T) {
	_, m := BasicProvider{}.Resolve(FontSpec{})
	if m.LineHeight() != basicfont.Face7x13.Height {
		t.Fatalf("line height = %d", m.LineHeight())
	}
}

func TestOTProviderResolvesLoadedFont(t *testing.T) {
	lib := NewLibrary()
	if err := lib.Load("Go", false, goregular.TTF); err != nil {
		t.Fatalf("load: %v", err)
	}
	p := OTProvider{Lib: lib}
	face, m := p.Resolve(FontSpec{Family: "Go", SizePt: 24})
	if face == basicfont.Face7x13 || m.Ascent <= 13 {
		t.Fatalf("expected the 24pt OpenType face, got ascent %d", m.Ascent)
	}
	// Bold falls back to the regular weight of the same family.
	if face, _ := p.Resolve(FontSpec{Family: "Go", Bold: true}); face == basicfont.Face7x13 {
		t.Fatalf("bold request should reuse the family")
	}
	if face, _ := p.Resolve(FontSpec{Family: "Missing"}); face != basicfont.Face7x13 {
		t.Fatalf("unknown family should use the fallback")
	}
}

func TestFileProvider(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "go.ttf")
	if err := os.WriteFile(path, goregular.TTF, 0o644); err != nil {
		t.Fatal(err)
	}
	p, err := FileProvider(path)
	if err != nil {
		t.Fatalf("file provider: %v", err)
	}
	if face, _ := p.Resolve(FontSpec{}); face == basicfont.Face7x13 {
		t.Fatalf("expected the loaded face")
	}
	if _, err := FileProvider(filepath.Join(dir, "missing.ttf")); err == nil {
		t.Fatalf("expected a read error")
	}
	bad := filepath.Join(dir, "bad.ttf")
	_ = os.WriteFile(bad, []byte("not a font"), 0o644)
	if _, err := FileProvider(bad); err == nil {
		t.Fatalf("expected a parse error")
	}
}
