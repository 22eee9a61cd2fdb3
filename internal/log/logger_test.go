/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package log

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func lastJSONLine(t *testing.T, path string) map[string]any {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var last string
	sc := bufio.NewScanner(bytes.NewReader(b))
	for sc.Scan() {
		if s := strings.TrimSpace(sc.Text()); s != "" {
			last = s
		}
	}
	if last == "" {
		t.Fatalf("no log lines in %s", path)
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(last), &m); err != nil {
		t.Fatalf("unmarshal json log: %v", err)
	}
	return m
}

func TestInitWritesStructuredFileLog(t *testing.T) {
	fpath := filepath.Join(t.TempDir(), "slc.json")
	Init(Options{Level: "debug", Format: "json", File: fpath})
	t.Cleanup(func() { Init(Options{Level: "error"}) })

	l := WithOperation(WithComponent("codec"), "export")
	l.Info("deck exported", slog.Int("slides", 3))
	time.Sleep(20 * time.Millisecond)

	m := lastJSONLine(t, fpath)
	if m["app"] != "slidecanvas" {
		t.Fatalf("app attr: %v", m["app"])
	}
	if _, ok := m["ver"].(string); !ok {
		t.Fatalf("missing ver attr")
	}
	if m["component"] != "codec" || m["op"] != "export" {
		t.Fatalf("component/op mismatch: %v %v", m["component"], m["op"])
	}
	if m["slides"] != float64(3) {
		t.Fatalf("slides attr: %v", m["slides"])
	}
}

func TestDeckContextAddsAttribute(t *testing.T) {
	fpath := filepath.Join(t.TempDir(), "deck.json")
	Init(Options{Level: "info", Format: "json", File: fpath})
	t.Cleanup(func() { Init(Options{Level: "error"}) })

	ctx := ContextWithDeck(context.Background(), "/tmp/lesson.deck.json")
	WithComponent("storage").InfoContext(ctx, "saved")
	time.Sleep(20 * time.Millisecond)

	m := lastJSONLine(t, fpath)
	if m["deck"] != "/tmp/lesson.deck.json" {
		t.Fatalf("deck attr missing: %v", m)
	}
	if _, ok := DeckFromContext(context.Background()); ok {
		t.Fatalf("empty context should carry no deck")
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("SLC_LOG_LEVEL", "warn")
	t.Setenv("SLC_LOG_FORMAT", "json")
	t.Setenv("SLC_LOG_SOURCE", "true")
	t.Setenv("SLC_LOG_FILE", "")

	opts := FromEnv()
	if opts.Level != "warn" || opts.Format != "json" || !opts.AddSource || opts.File != "" {
		t.Fatalf("FromEnv mismatch: %+v", opts)
	}
	if v := getenv("SLC_SURELY_UNSET_VAR", "fallback"); v != "fallback" {
		t.Fatalf("getenv fallback: %q", v)
	}
}

func TestPrettyTextHandler(t *testing.T) {
	var buf bytes.Buffer
	var h slog.Handler = &prettyTextHandler{opts: prettyOpts{Level: slog.LevelWarn}, w: &buf}
	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatalf("info should be filtered at warn")
	}
	h = h.WithAttrs([]slog.Attr{slog.String("k", "v")}).WithGroup("grp")

	r := slog.NewRecord(time.Now(), slog.LevelError, "boom", 0)
	r.AddAttrs(slog.Int("n", 42), slog.Float64("pi", 3.14), slog.String("label", "two words"))
	if err := h.Handle(context.Background(), r); err != nil {
		t.Fatalf("handle: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"ERR", "boom", "k=v", "grp.n=42", "grp.pi=3.14", `grp.label="two words"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("output %q missing %q", out, want)
		}
	}
}

func TestPrettyTextHandlerAddsSource(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(&prettyTextHandler{opts: prettyOpts{AddSource: true}, w: &buf})
	l.Info("with source")
	if out := buf.String(); !strings.Contains(out, "src=") || !strings.Contains(out, "logger_test.go:") {
		t.Fatalf("source missing: %q", out)
	}

	buf.Reset()
	h := &prettyTextHandler{opts: prettyOpts{AddSource: true}, w: &buf}
	if err := h.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "no pc", 0)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if strings.Contains(buf.String(), "src=") {
		t.Fatalf("record without pc should carry no source: %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{"debug": slog.LevelDebug, "WARNING": slog.LevelWarn, "error": slog.LevelError, "": slog.LevelInfo}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q)=%v want %v", in, got, want)
		}
	}
}
