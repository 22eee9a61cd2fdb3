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
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"slidecanvas/internal/domain"
	applog "slidecanvas/internal/log"
)

// Result is what the builder produced on completion.
type Result struct {
	Target       domain.ItemID // empty when a new embed is to be created
	HTML         string
	Title        string
	ActivityType string
	Config       json.RawMessage
}

// Options configures one bridge session.
type Options struct {
	// Target is the module embed being edited; empty creates a new one.
	Target domain.ItemID
	// Config is delivered to the builder once it reports ready.
	Config    json.RawMessage
	Transport Transport
	OnResult  func(Result)
	// OnClose runs exactly once, after OnResult when there was a result.
	OnClose func(completed bool)
}

// Bridge is the state of one open builder: its instance id, the edit
// target, the configuration still to be delivered and the callbacks.
type Bridge struct {
	id        string
	target    domain.ItemID
	pending   json.RawMessage
	transport Transport
	onResult  func(Result)
	onClose   func(bool)
	ready     bool
	closed    bool
	log       *slog.Logger
}

// Open starts a bridge with a fresh instance id. Nothing is sent until the
// builder reports ready.
func Open(opts Options) *Bridge {
	b := &Bridge{
		id:        uuid.NewString(),
		target:    opts.Target,
		transport: opts.Transport,
		onResult:  opts.OnResult,
		onClose:   opts.OnClose,
	}
	if len(opts.Config) > 0 {
		b.pending = domain.CompactConfig(opts.Config)
	}
	b.log = applog.WithComponent("bridge").With(slog.String("instance", b.id))
	return b
}

func (b *Bridge) ID() string               { return b.id }
func (b *Bridge) Target() domain.ItemID    { return b.target }
func (b *Bridge) Pending() json.RawMessage { return b.pending }
func (b *Bridge) Ready() bool              { return b.ready }
func (b *Bridge) Closed() bool             { return b.closed }

// Accepts reports whether m comes from this bridge's builder instance.
func (b *Bridge) Accepts(m Message) bool {
	return m.Source == Source && m.Type == TypeModule && m.Instance == b.id
}

// Handle advances the handshake with one builder message.
func (b *Bridge) Handle(m Message) error {
	if b.closed {
		return ErrClosed
	}
	if !b.Accepts(m) {
		b.log.Debug("ignored foreign message", slog.String("source", m.Source), slog.String("type", m.Type))
		return ErrForeignMessage
	}
	switch m.Status {
	case StatusReady:
		b.ready = true
		if b.pending == nil {
			return nil
		}
		load := Message{Source: Source, Type: TypeLoad, Instance: b.id, Config: b.pending}
		if b.transport == nil {
			return ErrNotConnected
		}
		if err := b.transport.Send(load); err != nil {
			return fmt.Errorf("deliver configuration: %w", err)
		}
		b.log.Debug("configuration delivered")
	case StatusLoaded:
		b.pending = nil
	case StatusResult:
		res := Result{
			Target:       b.target,
			HTML:         m.HTML,
			Title:        m.Title,
			ActivityType: m.ActivityType,
			Config:       domain.CompactConfig(m.Config),
		}
		if b.onResult != nil {
			b.onResult(res)
		}
		b.finish(true)
	case StatusClosed:
		b.finish(false)
	default:
		b.log.Warn("unknown builder status", slog.String("status", m.Status))
		return fmt.Errorf("%w: %q", ErrUnknownStatus, m.Status)
	}
	return nil
}

// Close discards the pending configuration and target without mutating
// anything. Closing twice is harmless.
func (b *Bridge) Close() { b.finish(false) }

func (b *Bridge) finish(completed bool) {
	if b.closed {
		return
	}
	b.closed = true
	b.pending = nil
	b.target = ""
	b.log.Debug("bridge closed", slog.Bool("completed", completed))
	if b.onClose != nil {
		b.onClose(completed)
	}
}
