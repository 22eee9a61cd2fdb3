/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"slidecanvas/internal/bridge"
	"slidecanvas/internal/domain"
	"slidecanvas/internal/geom"
)

func result(b *bridge.Bridge, title, kind, html, cfg string) bridge.Message {
	m := bridge.Builder(b.ID(), bridge.StatusResult)
	m.Title, m.ActivityType, m.HTML = title, kind, html
	if cfg != "" {
		m.Config = json.RawMessage(cfg)
	}
	return m
}

func TestBuilderResultCreatesModule(t *testing.T) {
	s, _ := newSession(t)
	before, _ := s.AddTextBox(geom.Pt{})
	b, err := s.OpenBridge("", bridge.NewChanTransport(1))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.HandleBuilderMessage(result(b, "Quiz", "quiz", `<p>Q1</p><script>x()</script>`, `{ "questions": [1, 2] }`)); err != nil {
		t.Fatalf("result: %v", err)
	}
	mods := s.Deck().CurrentSlide().Modules()
	if len(mods) != 1 {
		t.Fatalf("modules %d", len(mods))
	}
	m := mods[0].Content.(*domain.ModuleEmbed)
	if m.Title != "Quiz" || m.ActivityType != "quiz" || m.Preview != "<p>Q1</p>" {
		t.Fatalf("embed %+v", m)
	}
	if got := string(s.Deck().Modules[mods[0].ID]); got != `{"questions":[1,2]}` {
		t.Fatalf("config %s", got)
	}
	if s.Bridge() != nil {
		t.Fatalf("bridge still open")
	}
	if s.Selected() != before {
		t.Fatalf("selection not restored after builder closed")
	}
}

func TestBuilderEditsExistingModule(t *testing.T) {
	s, _ := newSession(t)
	it := domain.NewItem(&domain.ModuleEmbed{Title: "Old", ActivityType: "poll"}, geom.Pt{}, time.Now())
	s.insert(it, domain.SourceDirect)
	s.Deck().Modules[it.ID] = json.RawMessage(`{"v":1}`)
	tr := bridge.NewChanTransport(2)
	b, err := s.OpenBridge(it.ID, tr)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	s.HandleBuilderMessage(bridge.Builder(b.ID(), bridge.StatusReady))
	load := <-tr.Out
	if load.Type != bridge.TypeLoad || string(load.Config) != `{"v":1}` {
		t.Fatalf("load %+v", load)
	}
	s.HandleBuilderMessage(result(b, "", "", "<p>new</p>", `{"v":2}`))
	m := it.Content.(*domain.ModuleEmbed)
	if m.Title != "Old" || m.ActivityType != "poll" || m.Preview != "<p>new</p>" {
		t.Fatalf("embed %+v", m)
	}
	if string(s.Deck().Modules[it.ID]) != `{"v":2}` || len(s.Deck().CurrentSlide().Items()) != 1 {
		t.Fatalf("edit created a new module or lost the config")
	}
}

func TestBuilderResultForRemovedTargetIsDiscarded(t *testing.T) {
	s, p := newSession(t)
	it := domain.NewItem(&domain.ModuleEmbed{}, geom.Pt{}, time.Now())
	s.insert(it, domain.SourceDirect)
	b, _ := s.OpenBridge(it.ID, nil)
	s.RemoveItem(it.ID)
	s.HandleBuilderMessage(result(b, "X", "x", "<p>x</p>", `{}`))
	if len(s.Deck().CurrentSlide().Items()) != 0 || len(s.Deck().Modules) != 0 {
		t.Fatalf("result applied to a removed module")
	}
	if p.notices[len(p.notices)-1].Level != NoticeWarning {
		t.Fatalf("no warning")
	}
	if s.Selected() != nil {
		t.Fatalf("selection resurrected")
	}
}

func TestSingleBridge(t *testing.T) {
	s, _ := newSession(t)
	b, _ := s.OpenBridge("", nil)
	if _, err := s.OpenBridge("", nil); !errors.Is(err, bridge.ErrBusy) {
		t.Fatalf("second bridge: %v", err)
	}
	if err := s.HandleBuilderMessage(bridge.Message{Source: "other", Type: bridge.TypeModule, Instance: b.ID(), Status: bridge.StatusResult}); !errors.Is(err, bridge.ErrForeignMessage) {
		t.Fatalf("foreign: %v", err)
	}
	s.CloseBridge()
	if len(s.Deck().CurrentSlide().Items()) != 0 {
		t.Fatalf("close mutated the document")
	}
	if _, err := s.OpenBridge("", nil); err != nil {
		t.Fatalf("reopen: %v", err)
	}
}

func TestOpenBridgeRejectsNonModule(t *testing.T) {
	s, _ := newSession(t)
	a, _ := s.AddTextBox(geom.Pt{})
	if _, err := s.OpenBridge(a.ID, nil); !errors.Is(err, bridge.ErrNoTarget) {
		t.Fatalf("err = %v", err)
	}
}
