/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"slidecanvas/internal/domain"
	"slidecanvas/internal/storage"
	"slidecanvas/internal/textlayout"
)

// PresetName represents a named export preset.
type PresetName string

const (
	PresetWeb   PresetName = "web"
	PresetPrint PresetName = "print"
)

// BatchOptions controls batch export across formats and slides.
//
// Path semantics:
//   - OutDir defaults to the preset name; relative paths resolve against BaseDir.
//   - PDF output is deck.pdf in OutDir.
//   - PNG/SVG outputs are slide-<n>.(png|svg) in subfolders png/ or svg/ inside OutDir.
type BatchOptions struct {
	Preset  PresetName
	Formats []string // allowed: pdf, png, svg; empty means preset defaults
	Slides  []int    // zero-based indices; empty means all slides
	Scale   float64  // PNG scale override
	BaseDir string
	OutDir  string
	Index   *storage.Index
	Fonts   textlayout.Provider
}

// BatchExport runs exports according to the given preset and returns the written paths.
func BatchExport(ctx context.Context, d *domain.Deck, opt BatchOptions) ([]string, error) {
	if d == nil {
		return nil, fmt.Errorf("deck is nil")
	}
	if len(d.Slides) == 0 {
		return nil, fmt.Errorf("deck has no slides")
	}
	formats := opt.Formats
	if len(formats) == 0 {
		formats = presetDefaultFormats(opt.Preset)
	}

	baseOut := opt.OutDir
	if baseOut == "" {
		baseOut = string(opt.Preset)
	}
	if !filepath.IsAbs(baseOut) {
		baseOut = filepath.Join(opt.BaseDir, baseOut)
	}
	scale := opt.Scale
	if scale <= 0 {
		scale = presetScale(opt.Preset)
	}

	var written []string
	for _, f := range formats {
		switch strings.ToLower(strings.TrimSpace(f)) {
		case "pdf":
			out := filepath.Join(baseOut, "deck.pdf")
			if err := ExportDeckPDF(d, out, PDFOptions{Slides: opt.Slides, NoFrames: opt.Preset == PresetWeb}); err != nil {
				return written, fmt.Errorf("pdf: %w", err)
			}
			written = append(written, out)
		case "png":
			paths, err := ExportSlidePNGs(ctx, d, filepath.Join(baseOut, "png"), PNGOptions{Scale: scale, Slides: opt.Slides, Index: opt.Index, Fonts: opt.Fonts})
			written = append(written, paths...)
			if err != nil {
				return written, fmt.Errorf("png: %w", err)
			}
		case "svg":
			paths, err := ExportSlideSVGs(d, filepath.Join(baseOut, "svg"), SVGOptions{Slides: opt.Slides})
			written = append(written, paths...)
			if err != nil {
				return written, fmt.Errorf("svg: %w", err)
			}
		default:
			return written, fmt.Errorf("unknown format: %s", f)
		}
	}
	return written, nil
}

func presetDefaultFormats(p PresetName) []string {
	switch p {
	case PresetWeb:
		return []string{"png", "svg"}
	case PresetPrint:
		return []string{"pdf"}
	default:
		return []string{"pdf"}
	}
}

func presetScale(p PresetName) float64 {
	if p == PresetPrint {
		return 1
	}
	return defaultScale
}
