//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"slidecanvas/internal/config"
	"slidecanvas/internal/crash"
	"slidecanvas/internal/deckio"
	"slidecanvas/internal/domain"
	"slidecanvas/internal/editor"
	"slidecanvas/internal/export"
	"slidecanvas/internal/geom"
	applog "slidecanvas/internal/log"
	"slidecanvas/internal/richtext"
	"slidecanvas/internal/storage"
	"slidecanvas/internal/telemetry"
	"slidecanvas/internal/version"
)

// shell holds the window state around one editing session.
type shell struct {
	cfg    config.AppConfig
	w      fyne.Window
	prefs  fyne.Preferences
	l      *slog.Logger
	h      *storage.DeckHandle
	sess   *editor.Session
	index  *storage.Index
	status *widget.Label

	slides *widget.List
	canvas *SlideCanvas
	tools  *toolPanel
}

// Run starts the Fyne desktop shell. Pass an optional deck file to open immediately.
func Run(deckPath string) error {
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("ui")
	l.Info("starting UI")

	cfg, _, err := config.Load()
	if err != nil {
		l.Warn("config not loaded, using defaults", slog.Any("err", err))
		cfg = config.Defaults()
	}

	sh := &shell{cfg: cfg, l: l, h: &storage.DeckHandle{KeepBackups: cfg.Storage.KeepBackups}}
	defer func() { crash.Recover(sh.h) }()

	fyneApp := app.NewWithID("slidecanvas")
	sh.w = fyneApp.NewWindow("SlideCanvas")
	sh.prefs = fyneApp.Preferences()
	winW := max(sh.prefs.IntWithFallback("window.width", 1280), 800)
	winH := max(sh.prefs.IntWithFallback("window.height", 800), 600)
	sh.w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	sh.status = widget.NewLabel("Ready")
	sh.tools = newToolPanel(sh)
	sh.sess = sh.newSession(nil)
	sh.h.Deck = sh.sess.Deck()
	sh.canvas = NewSlideCanvas(sh.sess)
	sh.canvas.OnChanged = sh.refresh

	sh.slides = widget.NewList(
		func() int { return sh.sess.SlideCount() },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(i widget.ListItemID, o fyne.CanvasObject) {
			if int(i) < sh.sess.SlideCount() {
				o.(*widget.Label).SetText(slideTitle(sh.sess.Deck(), int(i)))
			}
		},
	)
	sh.slides.OnSelected = func(i widget.ListItemID) {
		sh.sess.GoTo(int(i))
		sh.canvas.Refresh()
	}

	nav := container.NewGridWithColumns(3,
		widget.NewButton("+ Blank", func() { sh.sess.AddSlide(domain.LayoutBlank); sh.refresh() }),
		widget.NewButton("+ Title", func() { sh.sess.AddSlide(domain.LayoutTitle); sh.refresh() }),
		widget.NewButton("Duplicate", func() { sh.sess.DuplicateSlide(sh.sess.Current()); sh.refresh() }),
		widget.NewButton("Up", func() { sh.sess.MoveSlide(sh.sess.Current(), sh.sess.Current()-1); sh.refresh() }),
		widget.NewButton("Down", func() { sh.sess.MoveSlide(sh.sess.Current(), sh.sess.Current()+1); sh.refresh() }),
		widget.NewButton("Delete", func() { sh.sess.DeleteSlide(sh.sess.Current()); sh.refresh() }),
	)
	section := widget.NewEntry()
	section.SetPlaceHolder("Section")
	section.OnSubmitted = func(v string) { sh.sess.MoveToSection(sh.sess.Current(), v); sh.refresh() }

	left := container.NewBorder(container.NewVBox(nav, section), nil, nil, nil, sh.slides)
	center := container.NewBorder(nil, sh.status, nil, nil, sh.canvas)
	split := container.NewHSplit(left, container.NewHSplit(center, container.NewVScroll(sh.tools.box)))
	split.SetOffset(0.18)
	sh.w.SetContent(split)
	sh.w.SetMainMenu(sh.menu())

	if deckPath != "" {
		if err := sh.open(deckPath); err != nil {
			sh.status.SetText("Open failed: " + err.Error())
		}
	}
	sh.refresh()

	sh.w.SetCloseIntercept(func() {
		sz := sh.w.Canvas().Size()
		sh.prefs.SetInt("window.width", int(sz.Width))
		sh.prefs.SetInt("window.height", int(sz.Height))
		if sh.index != nil {
			_ = sh.index.Close()
		}
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		telemetry.Flush(ctx)
		sh.w.Close()
	})
	sh.w.ShowAndRun()
	return nil
}

func (sh *shell) newSession(d *domain.Deck) *editor.Session {
	return editor.NewSession(d, editor.Options{
		Config: sh.cfg,
		Panel:  editor.PanelFunc(sh.tools.render),
		Notifier: editor.NotifierFunc(func(n editor.Notice) {
			if sh.status != nil {
				sh.status.SetText(n.Level.String() + ": " + n.Text)
			}
		}),
	})
}

// refresh re-reads the session into every view.
func (sh *shell) refresh() {
	sh.slides.Refresh()
	if sh.sess.SlideCount() > 0 {
		sh.slides.Select(widget.ListItemID(sh.sess.Current()))
	} else {
		sh.slides.UnselectAll()
	}
	sh.canvas.Refresh()
	title := "SlideCanvas"
	if sh.h.Path != "" {
		title += " - " + filepath.Base(sh.h.Path)
	}
	sh.w.SetTitle(title)
}

func (sh *shell) menu() *fyne.MainMenu {
	recent := fyne.NewMenuItem("Open Recent", nil)
	for _, p := range loadRecentDecks(sh.prefs) {
		path := p
		recent.ChildMenu = appendItem(recent.ChildMenu, fyne.NewMenuItem(filepath.Base(path), func() {
			if err := sh.open(path); err != nil {
				dialog.ShowError(err, sh.w)
			}
			sh.refresh()
		}))
	}
	file := fyne.NewMenu("File",
		fyne.NewMenuItem("New Deck", func() {
			sh.sess = sh.newSession(nil)
			sh.h = &storage.DeckHandle{Deck: sh.sess.Deck(), KeepBackups: sh.cfg.Storage.KeepBackups}
			sh.canvas.SetSession(sh.sess)
			sh.refresh()
		}),
		fyne.NewMenuItem("Open…", sh.openDialog),
		recent,
		fyne.NewMenuItem("Save", sh.save),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Export PDF handout…", sh.exportPDF),
		fyne.NewMenuItem("Export PNG thumbnails…", sh.exportPNG),
	)
	insert := fyne.NewMenu("Insert",
		fyne.NewMenuItem("Text box", func() { sh.insert(func(p geom.Pt) error { _, err := sh.sess.AddTextBox(p); return err }) }),
		fyne.NewMenuItem("Table", func() { sh.insert(func(p geom.Pt) error { _, err := sh.sess.AddTable(p, 2, 3); return err }) }),
		fyne.NewMenuItem("Mind map", func() {
			sh.insert(func(p geom.Pt) error { _, err := sh.sess.AddMindMap(p, "Central idea"); return err })
		}),
		fyne.NewMenuItem("Image…", sh.insertImage),
		fyne.NewMenuItem("Image from URL…", sh.insertRemoteImage),
	)
	help := fyne.NewMenu("Help", fyne.NewMenuItem("About", func() {
		dialog.ShowInformation("About SlideCanvas", "SlideCanvas "+version.String(), sh.w)
	}))
	return fyne.NewMainMenu(file, insert, help)
}

func appendItem(m *fyne.Menu, it *fyne.MenuItem) *fyne.Menu {
	if m == nil {
		return fyne.NewMenu("", it)
	}
	m.Items = append(m.Items, it)
	return m
}

func (sh *shell) insert(add func(geom.Pt) error) {
	if err := add(sh.canvas.insertPoint()); err != nil {
		sh.status.SetText(err.Error())
	}
	sh.refresh()
}

func (sh *shell) open(path string) error {
	l := applog.WithOperation(sh.l, "open")
	opts := deckio.Options{}
	opts.Canvas.W, opts.Canvas.H = sh.cfg.Canvas.Width, sh.cfg.Canvas.Height
	h, err := storage.OpenDeckFile(path, opts)
	if err != nil {
		l.Error("open deck failed", slog.String("path", path), slog.Any("err", err))
		return err
	}
	h.KeepBackups = sh.cfg.Storage.KeepBackups
	if h.Recovered != "" {
		sh.status.SetText("Recovered from backup " + filepath.Base(h.Recovered))
	}
	sh.h = h
	sh.sess = sh.newSession(h.Deck)
	sh.canvas.SetSession(sh.sess)
	sh.hydrate()
	addRecentDeck(sh.prefs, path)
	sh.openIndex(filepath.Dir(path))
	telemetry.Event("deck_import", telemetry.DeckProps(h.Deck))
	l.Info("deck opened", slog.String("path", path), slog.Int("slides", len(h.Deck.Slides)))
	return nil
}

// hydrate fetches the deck's remote images in the background and applies
// the results on the UI goroutine, unless another deck was opened meanwhile.
func (sh *shell) hydrate() {
	sess := sh.sess
	h := sess.HydrateRemote(context.Background())
	go func() {
		<-h.Done()
		fyne.Do(func() {
			if sh.sess == sess && sess.ApplyHydration(h) > 0 {
				sh.canvas.Refresh()
			}
		})
	}()
}

func (sh *shell) openIndex(dir string) {
	if !sh.cfg.Storage.IndexEnabled {
		return
	}
	if sh.index != nil {
		_ = sh.index.Close()
		sh.index = nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	x, rebuilt, err := storage.OpenOrRebuildIndex(ctx, dir, storage.IndexOptions{MaxPreviewBytes: sh.cfg.Storage.PreviewBytes()})
	if err != nil {
		sh.l.Warn("index unavailable", slog.Any("err", err))
		return
	}
	if rebuilt {
		sh.status.SetText("Search index was rebuilt")
	}
	sh.index = x
}

func (sh *shell) openDialog() {
	dialog.ShowFileOpen(func(rc fyne.URIReadCloser, err error) {
		if err != nil || rc == nil {
			return
		}
		path := rc.URI().Path()
		_ = rc.Close()
		if err := sh.open(path); err != nil {
			dialog.ShowError(err, sh.w)
		}
		sh.refresh()
	}, sh.w)
}

func (sh *shell) save() {
	if sh.h.Path == "" {
		dialog.ShowFileSave(func(wc fyne.URIWriteCloser, err error) {
			if err != nil || wc == nil {
				return
			}
			path := wc.URI().Path()
			_ = wc.Close()
			sh.h.Path = path
			sh.save()
		}, sh.w)
		return
	}
	sh.h.Deck = sh.sess.Deck()
	if err := storage.Save(sh.h); err != nil {
		dialog.ShowError(err, sh.w)
		return
	}
	addRecentDeck(sh.prefs, sh.h.Path)
	if sh.index != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := sh.index.UpdateDocuments(ctx, sh.h.Path, sh.h.Deck); err != nil {
			sh.l.Warn("index update failed", slog.Any("err", err))
		}
		if _, err := sh.index.CatalogImages(ctx, sh.h.Deck); err != nil {
			sh.l.Warn("asset catalog failed", slog.Any("err", err))
		}
		for _, s := range sh.h.Deck.Slides {
			_ = sh.index.InvalidatePreviews(ctx, s.ID)
		}
	}
	sh.status.SetText("Saved " + filepath.Base(sh.h.Path))
	sh.refresh()
}

func (sh *shell) exportPDF() {
	dialog.ShowFileSave(func(wc fyne.URIWriteCloser, err error) {
		if err != nil || wc == nil {
			return
		}
		defer wc.Close()
		if err := export.HandoutPDF(sh.sess.Deck(), wc, export.PDFOptions{}); err != nil {
			dialog.ShowError(err, sh.w)
			return
		}
		telemetry.Event("deck_export", map[string]any{"format": "pdf", "slides": sh.sess.SlideCount()})
		sh.status.SetText("Exported " + wc.URI().Name())
	}, sh.w)
}

func (sh *shell) exportPNG() {
	dialog.ShowFolderOpen(func(dir fyne.ListableURI, err error) {
		if err != nil || dir == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		paths, err := export.ExportSlidePNGs(ctx, sh.sess.Deck(), dir.Path(), export.PNGOptions{Index: sh.index})
		if err != nil {
			dialog.ShowError(err, sh.w)
			return
		}
		telemetry.Event("deck_export", map[string]any{"format": "png", "slides": len(paths)})
		sh.status.SetText(fmt.Sprintf("Exported %d thumbnails", len(paths)))
	}, sh.w)
}

func (sh *shell) insertImage() {
	dialog.ShowFileOpen(func(rc fyne.URIReadCloser, err error) {
		if err != nil || rc == nil {
			return
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			dialog.ShowError(err, sh.w)
			return
		}
		if _, err := sh.sess.DropImageFile(rc.URI().Name(), data, sh.canvas.insertPoint()); err != nil {
			sh.status.SetText(err.Error())
		}
		sh.refresh()
	}, sh.w)
}

// insertRemoteImage fetches the URL off the UI goroutine, then inserts the
// image (or its placeholder) back on it.
func (sh *shell) insertRemoteImage() {
	entry := widget.NewEntry()
	entry.SetPlaceHolder("https://")
	dialog.ShowForm("Insert image from URL", "Insert", "Cancel", []*widget.FormItem{widget.NewFormItem("URL", entry)}, func(ok bool) {
		if !ok {
			return
		}
		url, sess, at := strings.TrimSpace(entry.Text), sh.sess, sh.canvas.insertPoint()
		go func() {
			img := sess.FetchRemoteImage(context.Background(), url)
			fyne.Do(func() {
				if sh.sess != sess {
					return
				}
				if img.Placeholder {
					sh.status.SetText("The image could not be loaded; a placeholder was inserted.")
				}
				if _, err := sess.InsertImage(img, at, domain.SourceDirect); err != nil {
					sh.status.SetText(err.Error())
				}
				sh.refresh()
			})
		}()
	}, sh.w)
}

// toolPanel mirrors editor.Panel and routes tool commands back to the session.
type toolPanel struct {
	sh      *shell
	box     *fyne.Container
	summary *widget.Label
	detail  *widget.Label
	color   *widget.Select
	shadow  *widget.Check
	text    *fyne.Container
	table   *fyne.Container
	mindmap *fyne.Container
	syncing bool

	// entry edits the selected item's main text leaf as plain lines;
	// sel is the last entry selection in rune offsets of its text.
	entry   *widget.Entry
	editing domain.ItemID
	dirty   bool
	sel     [2]int
}

func newToolPanel(sh *shell) *toolPanel {
	t := &toolPanel{sh: sh, summary: widget.NewLabel("Nothing selected"), detail: widget.NewLabel("")}
	t.summary.TextStyle.Bold = true
	t.detail.Wrapping = fyne.TextWrapWord

	names := make([]string, len(domain.Palette))
	for i, c := range domain.Palette {
		names[i] = string(c)
	}
	t.color = widget.NewSelect(names, func(v string) {
		if !t.syncing {
			sh.sess.ApplyColor(domain.Color(v))
			sh.canvas.Refresh()
		}
	})
	t.shadow = widget.NewCheck("Shadow", func(on bool) {
		if !t.syncing {
			sh.sess.ApplyEffect(on)
			sh.canvas.Refresh()
		}
	})

	t.entry = widget.NewMultiLineEntry()
	t.entry.SetMinRowsVisible(4)
	t.entry.OnChanged = func(string) {
		if !t.syncing {
			t.dirty = true
		}
	}
	t.entry.OnCursorChanged = func() {
		if !t.syncing {
			t.sel[0], t.sel[1] = entrySelection(t.entry.Text, t.entry.CursorRow, t.entry.CursorColumn, t.entry.SelectedText())
		}
	}
	apply := widget.NewButton("Apply text", func() { t.commitText(); sh.canvas.Refresh() })

	format := func(label string, f richtext.Format) *widget.Button {
		return widget.NewButton(label, func() { t.withFocus(func() { sh.sess.ApplyTextFormat(f) }) })
	}
	link := widget.NewButton("Link…", func() {
		entry := widget.NewEntry()
		entry.SetPlaceHolder("https://")
		dialog.ShowForm("Insert link", "Apply", "Cancel", []*widget.FormItem{widget.NewFormItem("URL", entry)}, func(ok bool) {
			if ok {
				t.withFocus(func() { _ = sh.sess.ApplyLink(strings.TrimSpace(entry.Text)) })
			}
		}, sh.w)
	})
	t.text = container.NewVBox(
		t.entry,
		apply,
		container.NewGridWithColumns(4, format("B", richtext.Bold), format("I", richtext.Italic), format("U", richtext.Underline), format("Mark", richtext.Highlight)),
		container.NewGridWithColumns(3,
			widget.NewButton("1. List", func() { t.withFocus(func() { sh.sess.ApplyList(richtext.Ordered) }) }),
			widget.NewButton("• List", func() { t.withFocus(func() { sh.sess.ApplyList(richtext.Unordered) }) }),
			link),
	)

	action := func(label string, a editor.Action) *widget.Button {
		return widget.NewButton(label, func() { sh.sess.ApplyStructuralAction(a); sh.refresh() })
	}
	t.table = container.NewGridWithColumns(2,
		action("+ Row", editor.Action{Kind: editor.AddRow, Index: -1}),
		action("- Row", editor.Action{Kind: editor.RemoveRow, Index: -1}),
		action("+ Column", editor.Action{Kind: editor.AddColumn, Index: -1}),
		action("- Column", editor.Action{Kind: editor.RemoveColumn, Index: -1}),
	)
	branches := container.NewGridWithColumns(2)
	for _, c := range domain.Categories {
		branches.Add(action("+ "+c.Title(), editor.Action{Kind: editor.AddBranch, Category: c}))
	}
	branches.Add(action("- Branch", editor.Action{Kind: editor.RemoveBranch}))
	t.mindmap = branches

	remove := widget.NewButton("Remove item", func() {
		if it := sh.sess.Selected(); it != nil {
			sh.sess.RemoveItem(it.ID)
			sh.refresh()
		}
	})
	duplicate := widget.NewButton("Duplicate item", func() {
		if it := sh.sess.Selected(); it != nil {
			if _, err := sh.sess.DuplicateItem(it.ID); err != nil {
				sh.status.SetText(err.Error())
			}
			sh.refresh()
		}
	})
	t.box = container.NewVBox(t.summary, t.detail, widget.NewSeparator(), t.color, t.shadow, t.text, t.table, t.mindmap, widget.NewSeparator(), duplicate, remove)
	t.render(editor.Panel{})
	return t
}

// render shows only the tool section the session reports as open.
func (t *toolPanel) render(p editor.Panel) {
	t.syncing = true
	defer func() { t.syncing = false }()
	t.summary.SetText(p.Description.Summary)
	t.detail.SetText(p.Description.Detail)
	if p.Selected == "" {
		t.summary.SetText("Nothing selected")
		t.color.Disable()
		t.shadow.Disable()
	} else {
		t.color.Enable()
		t.shadow.Enable()
		t.color.SetSelected(string(p.Color))
		t.shadow.SetChecked(p.Shadow)
	}
	show := func(c *fyne.Container, on bool) {
		if on {
			c.Show()
		} else {
			c.Hide()
		}
	}
	var it *domain.Item
	if p.Selected != "" && t.sh.sess != nil {
		if sel := t.sh.sess.Selected(); sel != nil && sel.ID == p.Selected {
			it = sel
		}
	}
	_, markup, editable := editableLeaf(it)
	if !editable {
		t.editing = ""
	} else if it.ID != t.editing {
		t.editing, t.dirty, t.sel = it.ID, false, [2]int{}
		t.entry.SetText(richtext.PlainText(markup))
	}
	show(t.text, editable)
	show(t.table, p.Section == domain.KindTable)
	show(t.mindmap, p.Section == domain.KindMindMap)
}

// commitText writes pending entry edits back to the selected item. Inline
// formatting of the edited leaf is replaced by plain paragraphs.
func (t *toolPanel) commitText() {
	it := t.sh.sess.Selected()
	leaf, _, ok := editableLeaf(it)
	if !ok || !t.dirty {
		return
	}
	t.dirty = false
	t.sh.sess.SetText(it.ID, leaf, plainMarkup(t.entry.Text))
}

// withFocus hands the entry selection to the session as the remembered
// range, then runs a text command against it.
func (t *toolPanel) withFocus(cmd func()) {
	t.commitText()
	it := t.sh.sess.Selected()
	leaf, markup, ok := editableLeaf(it)
	if !ok {
		return
	}
	doc := richtext.Parse(markup)
	if !t.sh.sess.Focus(leaf, doc.TextRange(t.sel[0], t.sel[1])) {
		return
	}
	cmd()
	t.sh.canvas.Refresh()
}

// Recent deck persistence helpers
const recentPrefsKey = "recent.decks"
const recentMax = 10

func loadRecentDecks(p fyne.Preferences) []string {
	raw := p.StringWithFallback(recentPrefsKey, "")
	var items []string
	if strings.TrimSpace(raw) != "" {
		_ = json.Unmarshal([]byte(raw), &items)
	}
	out := make([]string, 0, len(items))
	for _, s := range items {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, err := os.Stat(s); err == nil {
			out = append(out, s)
		}
	}
	return out
}

func saveRecentDecks(p fyne.Preferences, items []string) {
	if len(items) > recentMax {
		items = items[:recentMax]
	}
	b, _ := json.Marshal(items)
	p.SetString(recentPrefsKey, string(b))
}

func addRecentDeck(p fyne.Preferences, path string) {
	if strings.TrimSpace(path) == "" {
		return
	}
	abs, _ := filepath.Abs(path)
	out := []string{abs}
	for _, s := range loadRecentDecks(p) {
		// de-dup (case-insensitive on Windows)
		if strings.EqualFold(s, abs) {
			continue
		}
		out = append(out, s)
	}
	saveRecentDecks(p, out)
}
