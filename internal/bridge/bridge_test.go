/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package bridge

import (
	"encoding/json"
	"errors"
	"testing"

	"slidecanvas/internal/domain"
)

type recorder struct {
	results []Result
	closes  []bool
}

func (r *recorder) open(target domain.ItemID, cfg string, tr Transport) *Bridge {
	var raw json.RawMessage
	if cfg != "" {
		raw = json.RawMessage(cfg)
	}
	return Open(Options{
		Target:    target,
		Config:    raw,
		Transport: tr,
		OnResult:  func(res Result) { r.results = append(r.results, res) },
		OnClose:   func(done bool) { r.closes = append(r.closes, done) },
	})
}

func TestConfigDeliveredOnlyAfterReady(t *testing.T) {
	tr := NewChanTransport(4)
	var rec recorder
	b := rec.open("item-1", `{ "questions": [1, 2] }`, tr)
	if len(tr.Out) != 0 {
		t.Fatalf("sent before ready")
	}
	if err := b.Handle(Builder(b.ID(), StatusReady)); err != nil {
		t.Fatalf("ready: %v", err)
	}
	m := <-tr.Out
	if m.Type != TypeLoad || m.Instance != b.ID() || string(m.Config) != `{"questions":[1,2]}` {
		t.Fatalf("load message = %+v", m)
	}
	if err := b.Handle(Builder(b.ID(), StatusLoaded)); err != nil {
		t.Fatalf("loaded: %v", err)
	}
	if b.Pending() != nil {
		t.Fatalf("pending kept after loaded")
	}
	// A late ready must not resend.
	_ = b.Handle(Builder(b.ID(), StatusReady))
	if len(tr.Out) != 0 {
		t.Fatalf("configuration resent after loaded")
	}
}

func TestReadyWithoutConfigSendsNothing(t *testing.T) {
	tr := NewChanTransport(1)
	var rec recorder
	b := rec.open("", "", tr)
	if err := b.Handle(Builder(b.ID(), StatusReady)); err != nil || len(tr.Out) != 0 {
		t.Fatalf("ready without config: err=%v sent=%d", err, len(tr.Out))
	}
}

func TestResultInvokesCallbackThenCloses(t *testing.T) {
	var rec recorder
	b := rec.open("item-9", `{}`, NewChanTransport(1))
	m := Builder(b.ID(), StatusResult)
	m.HTML = "<div>quiz</div>"
	m.Title = "Quiz"
	m.ActivityType = "multiple-choice"
	m.Config = json.RawMessage(`{"a": 1}`)
	if err := b.Handle(m); err != nil {
		t.Fatalf("result: %v", err)
	}
	if len(rec.results) != 1 {
		t.Fatalf("results = %d", len(rec.results))
	}
	got := rec.results[0]
	if got.Target != "item-9" || got.HTML != "<div>quiz</div>" || string(got.Config) != `{"a":1}` || got.Title != "Quiz" {
		t.Fatalf("result = %+v", got)
	}
	if !b.Closed() || len(rec.closes) != 1 || !rec.closes[0] {
		t.Fatalf("close after result: closed=%v closes=%v", b.Closed(), rec.closes)
	}
	if err := b.Handle(Builder(b.ID(), StatusResult)); !errors.Is(err, ErrClosed) {
		t.Fatalf("second result err = %v", err)
	}
	if len(rec.results) != 1 {
		t.Fatalf("callback ran after close")
	}
}

func TestForeignMessagesIgnored(t *testing.T) {
	var rec recorder
	b := rec.open("", `{"x":1}`, NewChanTransport(1))
	other := Open(Options{})
	cases := []Message{
		Builder(other.ID(), StatusResult),
		{Source: "someone-else", Type: TypeModule, Status: StatusResult, Instance: b.ID()},
		{Source: Source, Type: "chat", Status: StatusResult, Instance: b.ID()},
	}
	for _, m := range cases {
		if err := b.Handle(m); !errors.Is(err, ErrForeignMessage) {
			t.Fatalf("%+v: err = %v", m, err)
		}
	}
	if len(rec.results) != 0 || b.Closed() || b.Pending() == nil {
		t.Fatalf("foreign message changed state")
	}
}

func TestCloseWithoutResultDiscards(t *testing.T) {
	var rec recorder
	b := rec.open("item-2", `{"x":1}`, NewChanTransport(1))
	b.Close()
	b.Close()
	if b.Pending() != nil || b.Target() != "" {
		t.Fatalf("state kept after close")
	}
	if len(rec.results) != 0 || len(rec.closes) != 1 || rec.closes[0] {
		t.Fatalf("close callbacks: results=%d closes=%v", len(rec.results), rec.closes)
	}
}

func TestBuilderClosedStatusEndsSession(t *testing.T) {
	var rec recorder
	b := rec.open("", "", NewChanTransport(1))
	if err := b.Handle(Builder(b.ID(), StatusClosed)); err != nil {
		t.Fatalf("closed: %v", err)
	}
	if !b.Closed() || len(rec.results) != 0 {
		t.Fatalf("builder close not honoured")
	}
}

func TestUnknownStatus(t *testing.T) {
	b := Open(Options{})
	if err := b.Handle(Builder(b.ID(), "dancing")); !errors.Is(err, ErrUnknownStatus) {
		t.Fatalf("err = %v", err)
	}
	if b.Closed() {
		t.Fatalf("unknown status closed the bridge")
	}
}

func TestInstancesAreUnique(t *testing.T) {
	if Open(Options{}).ID() == Open(Options{}).ID() {
		t.Fatalf("instance ids repeat")
	}
}
