/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"slidecanvas/internal/deckio"
	"slidecanvas/internal/domain"
	applog "slidecanvas/internal/log"
)

const (
	BackupsDirName = "backups"
	backupSuffix   = ".bak"
	crashSuffix    = ".crash.json"
	stampLayout    = "20060102-150405"
)

// DeckHandle tracks a deck loaded from or saved to disk.
// Recovered is the backup the deck was read from when the file itself was
// unreadable; empty otherwise.
type DeckHandle struct {
	Path        string
	Deck        *domain.Deck
	KeepBackups int
	Recovered   string
}

// SaveDeckFile writes data to path transactionally. An existing file is
// first copied to backups/<name>.<stamp>.bak next to it; at most keep
// backups are retained (keep <= 0 keeps all).
func SaveDeckFile(path string, data []byte, keep int) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("deck path is required")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create deck dir: %w", err)
	}
	if _, statErr := os.Stat(path); statErr == nil {
		bdir := filepath.Join(dir, BackupsDirName)
		if err := os.MkdirAll(bdir, 0o755); err != nil {
			return fmt.Errorf("ensure backups dir: %w", err)
		}
		name := fmt.Sprintf("%s.%s%s", filepath.Base(path), time.Now().Format(stampLayout), backupSuffix)
		if err := copyFile(path, filepath.Join(bdir, name)); err != nil {
			return fmt.Errorf("backup current deck: %w", err)
		}
		if keep > 0 {
			pruneBackups(path, keep)
		}
	}

	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(path), os.Getpid(), rand.Int()))
	if err := writeFileSync(temp, data); err != nil {
		return fmt.Errorf("write temp deck: %w", err)
	}
	// On Windows, replace by removing destination first if needed
	if _, err := os.Stat(path); err == nil {
		_ = os.Remove(path)
	}
	if err := os.Rename(temp, path); err != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace deck: %w", err)
	}
	return nil
}

// Save exports h.Deck and writes it with SaveDeckFile.
func Save(h *DeckHandle) error {
	if h == nil || h.Deck == nil {
		return errors.New("nil DeckHandle")
	}
	data, err := deckio.Export(h.Deck)
	if err != nil {
		return err
	}
	if err := SaveDeckFile(h.Path, data, h.KeepBackups); err != nil {
		return err
	}
	h.Recovered = ""
	return nil
}

// OpenDeckFile reads and imports the deck at path. When the file is missing
// or damaged the newest backup that imports cleanly is used instead.
func OpenDeckFile(path string, opts deckio.Options) (*DeckHandle, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "open").With(slog.String("path", path))
	d, err := readDeck(path, opts)
	if err == nil {
		return &DeckHandle{Path: path, Deck: d}, nil
	}
	l.Warn("deck unreadable, trying backups", slog.Any("err", err))
	backups, berr := listBackups(path)
	if berr != nil {
		return nil, fmt.Errorf("open deck: %w; backup attempt: %v", err, berr)
	}
	for i := len(backups) - 1; i >= 0; i-- {
		// Each attempt needs a clean registrar.
		o := opts
		o.Registrar = nil
		bd, rerr := readDeck(backups[i], o)
		if rerr != nil {
			continue
		}
		if opts.Registrar != nil {
			for _, sl := range bd.Slides {
				for _, it := range sl.Items() {
					opts.Registrar.Register(it, it.Kind(), domain.SourceImport)
				}
			}
		}
		l.Info("deck recovered from backup", slog.String("backup", backups[i]))
		return &DeckHandle{Path: path, Deck: bd, Recovered: backups[i]}, nil
	}
	return nil, fmt.Errorf("open deck: %w; backup attempt: no usable backup", err)
}

func readDeck(path string, opts deckio.Options) (*domain.Deck, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return deckio.Import(b, opts)
}

// AutosaveCrashSnapshot writes the deck next to its backups without
// touching the deck file itself and returns the snapshot path.
func AutosaveCrashSnapshot(h *DeckHandle) (string, error) {
	if h == nil || h.Deck == nil || h.Path == "" {
		return "", errors.New("nil DeckHandle")
	}
	data, err := deckio.Export(h.Deck)
	if err != nil {
		return "", err
	}
	bdir := filepath.Join(filepath.Dir(h.Path), BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return "", fmt.Errorf("ensure backups dir: %w", err)
	}
	name := fmt.Sprintf("%s.%s%s", filepath.Base(h.Path), time.Now().Format(stampLayout), crashSuffix)
	out := filepath.Join(bdir, name)
	if err := writeFileSync(out, data); err != nil {
		return "", fmt.Errorf("write crash snapshot: %w", err)
	}
	return out, nil
}

// listBackups returns the backups of path, oldest first.
func listBackups(path string) ([]string, error) {
	bdir := filepath.Join(filepath.Dir(path), BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	prefix := filepath.Base(path) + "."
	var out []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, backupSuffix) {
			out = append(out, filepath.Join(bdir, name))
		}
	}
	if len(out) == 0 {
		return nil, errors.New("no backups found")
	}
	sort.Strings(out) // timestamp in name yields lexicographic order
	return out, nil
}

func pruneBackups(path string, keep int) {
	all, err := listBackups(path)
	if err != nil || len(all) <= keep {
		return
	}
	for _, p := range all[:len(all)-keep] {
		_ = os.Remove(p)
	}
}

// writeFileSync writes data to a file, ensures it is flushed to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// copyFile copies a file from src to dst (overwrites dst if exists).
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}
