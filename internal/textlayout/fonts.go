/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"fmt"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
)

// Library holds parsed OpenType fonts by family and weight.
type Library struct {
	fonts map[fontKey]*opentype.Font
}

type fontKey struct {
	family string
	bold   bool
}

func NewLibrary() *Library { return &Library{fonts: make(map[fontKey]*opentype.Font)} }

// Load parses a TTF/OTF blob and registers it under family.
func (l *Library) Load(family string, bold bool, data []byte) error {
	f, err := opentype.Parse(data)
	if err != nil {
		return fmt.Errorf("parse font %s: %w", family, err)
	}
	if l.fonts == nil {
		l.fonts = make(map[fontKey]*opentype.Font)
	}
	l.fonts[fontKey{family: family, bold: bold}] = f
	return nil
}

// LoadFile reads and registers a font file.
func (l *Library) LoadFile(family string, bold bool, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read font %s: %w", path, err)
	}
	return l.Load(family, bold, data)
}

// Len is the number of registered fonts.
func (l *Library) Len() int {
	if l == nil {
		return 0
	}
	return len(l.fonts)
}

func (l *Library) find(spec FontSpec) *opentype.Font {
	if l == nil {
		return nil
	}
	if f, ok := l.fonts[fontKey{family: spec.Family, bold: spec.Bold}]; ok {
		return f
	}
	if f, ok := l.fonts[fontKey{family: spec.Family, bold: !spec.Bold}]; ok {
		return f
	}
	// An unnamed request takes whatever was loaded.
	if spec.Family == "" {
		for _, f := range l.fonts {
			return f
		}
	}
	return nil
}

// OTProvider resolves specs from a Library and falls back to another
// provider (BasicProvider when nil) for anything it does not hold.
type OTProvider struct {
	Lib      *Library
	DPI      float64
	Fallback Provider
}

func (p OTProvider) Resolve(spec FontSpec) (font.Face, Metrics) {
	if spec.SizePt <= 0 {
		spec.SizePt = 12
	}
	dpi := p.DPI
	if dpi <= 0 {
		dpi = 72
	}
	if f := p.Lib.find(spec); f != nil {
		face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: spec.SizePt, DPI: dpi, Hinting: font.HintingFull})
		if err == nil {
			return face, metricsOf(face)
		}
	}
	fb := p.Fallback
	if fb == nil {
		fb = BasicProvider{}
	}
	return fb.Resolve(spec)
}

// FileProvider loads a single font file as the unnamed default family.
func FileProvider(path string) (Provider, error) {
	lib := NewLibrary()
	if err := lib.LoadFile("", false, path); err != nil {
		return nil, err
	}
	return OTProvider{Lib: lib}, nil
}
