/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"slidecanvas/internal/config"
	"slidecanvas/internal/deckio"
	"slidecanvas/internal/domain"
	"slidecanvas/internal/export"
	"slidecanvas/internal/geom"
	applog "slidecanvas/internal/log"
	"slidecanvas/internal/richtext"
	"slidecanvas/internal/storage"
	"slidecanvas/internal/telemetry"
	"slidecanvas/internal/textlayout"
)

var errUsage = errors.New("usage")

// cli runs one command against a deck file. h is the deck currently open so
// a crash can snapshot it.
type cli struct {
	cfg   config.AppConfig
	token string
	out   io.Writer
	l     *slog.Logger
	h     *storage.DeckHandle
}

func (c *cli) run(args []string) error {
	need := func(n int) error {
		if len(args) < n {
			return errUsage
		}
		return nil
	}
	switch args[0] {
	case "new":
		if err := need(2); err != nil {
			return err
		}
		slides := 1
		if len(args) >= 3 {
			n, err := strconv.Atoi(args[2])
			if err != nil || n < 1 {
				return fmt.Errorf("slides must be a positive number, got %q", args[2])
			}
			slides = n
		}
		return c.newDeck(args[1], slides)
	case "info":
		if err := need(2); err != nil {
			return err
		}
		return c.info(args[1])
	case "sanitize":
		if err := need(2); err != nil {
			return err
		}
		return c.sanitize(args[1])
	case "export-pdf":
		if err := need(3); err != nil {
			return err
		}
		return c.exportPDF(args[1], args[2])
	case "export-png":
		if err := need(3); err != nil {
			return err
		}
		scale := 0.0
		if len(args) >= 4 {
			v, err := strconv.ParseFloat(args[3], 64)
			if err != nil || v <= 0 {
				return fmt.Errorf("scale must be a positive number, got %q", args[3])
			}
			scale = v
		}
		return c.exportPNG(args[1], args[2], scale)
	case "search":
		if err := need(3); err != nil {
			return err
		}
		return c.search(args[1], strings.Join(args[2:], " "))
	case "embed":
		if err := need(3); err != nil {
			return err
		}
		return c.embed(args[1:])
	}
	return errUsage
}

func (c *cli) importOptions() deckio.Options {
	return deckio.Options{Canvas: geom.Size{W: c.cfg.Canvas.Width, H: c.cfg.Canvas.Height}}
}

func (c *cli) open(path string) (*storage.DeckHandle, error) {
	abs, _ := filepath.Abs(path)
	applog.WithOperation(c.l, "open").Info("open deck", slog.String("path", abs))
	h, err := storage.OpenDeckFile(abs, c.importOptions())
	if err != nil {
		return nil, err
	}
	h.KeepBackups = c.cfg.Storage.KeepBackups
	if h.Recovered != "" {
		fmt.Fprintf(c.out, "Deck file was damaged; recovered from %s\n", filepath.Base(h.Recovered))
	}
	c.h = h
	return h, nil
}

func (c *cli) newDeck(path string, slides int) error {
	abs, _ := filepath.Abs(path)
	if _, err := os.Stat(abs); err == nil {
		return fmt.Errorf("%s already exists", abs)
	}
	title := strings.TrimSuffix(filepath.Base(abs), filepath.Ext(abs))
	d := domain.NewDeck(title)
	for i := 0; i < slides; i++ {
		d.Slides = append(d.Slides, domain.NewBlankSlide(c.cfg.Canvas.Width, c.cfg.Canvas.Height))
	}
	h := &storage.DeckHandle{Path: abs, Deck: d, KeepBackups: c.cfg.Storage.KeepBackups}
	c.h = h
	if err := storage.Save(h); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Created deck %q with %d slide(s) at %s\n", title, slides, abs)
	return nil
}

func (c *cli) info(path string) error {
	h, err := c.open(path)
	if err != nil {
		return err
	}
	d := h.Deck
	fmt.Fprintf(c.out, "Deck: %s\n", d.Title)
	fmt.Fprintf(c.out, "Slides: %d  Items: %d  Modules: %d\n", len(d.Slides), d.ItemCount(), len(d.ModuleRefs()))
	for i, s := range d.Slides {
		words := richtext.WordCount(s.Static)
		kinds := map[domain.Kind]int{}
		for _, it := range s.Items() {
			kinds[it.Kind()]++
			if tb, ok := it.Content.(*domain.TextBox); ok {
				words += richtext.WordCount(tb.Body)
			}
		}
		marker := " "
		if i == d.Current {
			marker = "*"
		}
		fmt.Fprintf(c.out, "%s%3d  %-8s %-16s items=%d words=%d%s\n", marker, i+1, s.Layout, s.Section, len(s.Items()), words, kindSummary(kinds))
	}
	return nil
}

func kindSummary(kinds map[domain.Kind]int) string {
	var b strings.Builder
	for k := domain.KindTextBox; k <= domain.KindModule; k++ {
		if n := kinds[k]; n > 0 {
			fmt.Fprintf(&b, " %s=%d", k, n)
		}
	}
	return b.String()
}

// sanitize re-saves the deck; export cleans every text body on the way out.
func (c *cli) sanitize(path string) error {
	h, err := c.open(path)
	if err != nil {
		return err
	}
	if err := storage.Save(h); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Sanitized %d slide(s); previous version kept in %s/\n", len(h.Deck.Slides), storage.BackupsDirName)
	return nil
}

func (c *cli) exportPDF(path, out string) error {
	h, err := c.open(path)
	if err != nil {
		return err
	}
	if err := export.ExportDeckPDF(h.Deck, out, export.PDFOptions{}); err != nil {
		return err
	}
	telemetry.Event("deck_export", map[string]any{"format": "pdf", "slides": len(h.Deck.Slides)})
	fmt.Fprintf(c.out, "Wrote %s\n", out)
	return nil
}

func (c *cli) exportPNG(path, dir string, scale float64) error {
	h, err := c.open(path)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	opts := export.PNGOptions{Scale: scale}
	if f := c.cfg.Canvas.Font; f != "" {
		p, err := textlayout.FileProvider(f)
		if err != nil {
			c.l.Warn("thumbnail font unavailable, using the bitmap face", slog.Any("err", err))
		} else {
			opts.Fonts = p
		}
	}
	if opts.Fonts == nil && c.cfg.Storage.IndexEnabled {
		x, err := c.index(ctx, h.Path)
		if err != nil {
			c.l.Warn("preview cache unavailable", slog.Any("err", err))
		} else {
			defer x.Close()
			opts.Index = x
		}
	}
	paths, err := export.ExportSlidePNGs(ctx, h.Deck, dir, opts)
	if err != nil {
		return err
	}
	telemetry.Event("deck_export", map[string]any{"format": "png", "slides": len(paths)})
	fmt.Fprintf(c.out, "Wrote %d thumbnail(s) to %s\n", len(paths), dir)
	return nil
}

func (c *cli) index(ctx context.Context, deckPath string) (*storage.Index, error) {
	x, rebuilt, err := storage.OpenOrRebuildIndex(ctx, filepath.Dir(deckPath), storage.IndexOptions{MaxPreviewBytes: c.cfg.Storage.PreviewBytes()})
	if err != nil {
		return nil, err
	}
	if rebuilt {
		fmt.Fprintln(c.out, "Index was damaged and has been rebuilt")
	}
	return x, nil
}

func (c *cli) search(path, query string) error {
	h, err := c.open(path)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	x, err := c.index(ctx, h.Path)
	if err != nil {
		return err
	}
	defer x.Close()
	if err := x.UpdateDocuments(ctx, h.Path, h.Deck); err != nil {
		return err
	}
	res, err := x.Search(ctx, storage.SearchQuery{Text: query, Deck: h.Path, Limit: 20})
	if err != nil {
		return err
	}
	if len(res) == 0 {
		fmt.Fprintln(c.out, "No matches")
		return nil
	}
	for _, r := range res {
		fmt.Fprintf(c.out, "slide %d  %-8s %s\n", r.SlideIndex+1, r.Kind, r.Snippet)
	}
	return nil
}
