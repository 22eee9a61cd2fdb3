/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package telemetry

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"slidecanvas/internal/domain"
	"slidecanvas/internal/geom"
)

func TestClient_EventAndUploadCrash(t *testing.T) {
	var mu sync.Mutex
	var events [][]byte
	var crashes [][]byte

	mux := http.NewServeMux()
	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		_ = r.Body.Close()
		mu.Lock()
		events = append(events, b)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/crash", func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		_ = r.Body.Close()
		mu.Lock()
		crashes = append(crashes, b)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(Config{OptIn: true, EventsURL: srv.URL + "/events", CrashURL: srv.URL + "/crash", Timeout: 2 * time.Second})
	defer c.Close()
	if !c.Enabled() {
		t.Fatalf("expected client to be enabled")
	}

	c.Event("deck_saved", map[string]any{"slides": 3, "title": "My secret lesson / notes"})
	c.Flush(context.Background())

	mu.Lock()
	ecount := len(events)
	mu.Unlock()
	if ecount != 1 {
		t.Fatalf("expected one event to be sent, got %d", ecount)
	}
	var m map[string]any
	if err := json.Unmarshal(events[0], &m); err != nil {
		t.Fatalf("bad event json: %v", err)
	}
	if m["name"] != "deck_saved" || m["slides"] != float64(3) {
		t.Fatalf("event mismatch: %v", m)
	}
	if _, ok := m["title"]; ok {
		t.Fatalf("free text leaked into event: %v", m["title"])
	}

	c.UploadCrash([]byte("STACKTRACE"))
	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := len(crashes)
		mu.Unlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected crash upload to be sent")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestClient_DisabledAndEmptyEventName(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(Config{OptIn: false, EventsURL: srv.URL + "/events", CrashURL: srv.URL + "/crash", Timeout: time.Second})
	defer c.Close()
	if c.Enabled() {
		t.Fatalf("expected disabled client")
	}
	c.Event("ignored", nil)
	c.UploadCrash([]byte("ignored"))

	c2 := New(Config{OptIn: true, EventsURL: srv.URL + "/events", Timeout: time.Second})
	defer c2.Close()
	c2.Event("", nil)
	c2.Flush(nil)
	time.Sleep(50 * time.Millisecond)
	if atomic.LoadInt32(&hits) != 0 {
		t.Fatalf("expected no requests, got %d", hits)
	}
}

func TestTelemetry_SendErrorBranches(t *testing.T) {
	c := New(Config{
		OptIn:        true,
		EventsURL:    "http://127.0.0.1:1/events",
		CrashURL:     "http://127.0.0.1:1/crash",
		Timeout:      50 * time.Millisecond,
		DebugLogging: true,
	})
	defer c.Close()
	// Failing sends must not panic.
	c.Event("err", map[string]any{"a": 1})
	c.Flush(context.Background())
	c.UploadCrash([]byte("oops"))
	time.Sleep(50 * time.Millisecond)
}

func TestEnabled_DefaultClientAndFromEnv(t *testing.T) {
	t.Setenv("SLC_TELEMETRY_OPT_IN", "true")
	t.Setenv("SLC_TELEMETRY_URL", "http://127.0.0.1:0")
	t.Setenv("SLC_CRASH_UPLOAD_URL", "")
	t.Setenv("SLC_TELEMETRY_TIMEOUT_MS", "100")

	cfg := FromEnv()
	if !cfg.OptIn || cfg.EventsURL == "" || cfg.Timeout != 100*time.Millisecond {
		t.Fatalf("FromEnv did not parse correctly: %+v", cfg)
	}
	NewDefault(cfg)
	if !Enabled() {
		t.Fatalf("default Enabled should be true with env config")
	}
}

func TestDeckProps(t *testing.T) {
	d := domain.NewDeck("x")
	sl := domain.NewBlankSlide(1280, 720)
	now := time.Now()
	sl.Canvas.Items = append(sl.Canvas.Items,
		domain.NewItem(&domain.TextBox{}, geom.Pt{}, now),
		domain.NewItem(&domain.TextBox{}, geom.Pt{}, now),
		domain.NewItem(&domain.ModuleEmbed{}, geom.Pt{}, now),
	)
	d.Slides = append(d.Slides, sl, &domain.Slide{Layout: domain.LayoutTitle})
	p := DeckProps(d)
	if p["slides"] != 2 || p["items"] != 3 || p["modules"] != 1 || p["kind_textbox"] != 2 || p["kind_module"] != 1 {
		t.Fatalf("props %v", p)
	}
}
