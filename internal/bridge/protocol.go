/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package bridge implements the host side of the module builder handshake.
// A Bridge is created per open and addresses exactly one builder instance;
// messages from anything else are ignored.
package bridge

import (
	"encoding/json"
	"errors"
)

// Wire identifiers shared with the builder.
const (
	Source     = "slidecanvas-module-builder"
	TypeModule = "activity-module"
	TypeLoad   = "activity-module-load"
)

// Builder statuses. StatusResult is terminal; StatusClosed is emitted when
// the builder goes away without producing a result.
const (
	StatusReady  = "ready"
	StatusLoaded = "loaded"
	StatusResult = "result"
	StatusClosed = "closed"
)

var (
	ErrForeignMessage = errors.New("bridge: message not from the open builder instance")
	ErrUnknownStatus  = errors.New("bridge: unknown builder status")
	ErrClosed         = errors.New("bridge: closed")
	ErrBusy           = errors.New("bridge: another builder is already open")
	ErrNoTarget       = errors.New("bridge: edit target no longer exists")
	ErrNotConnected   = errors.New("bridge: no builder connected")
)

// Message is the single envelope used in both directions.
type Message struct {
	Source       string          `json:"source"`
	Type         string          `json:"type"`
	Status       string          `json:"status,omitempty"`
	Instance     string          `json:"instance,omitempty"`
	HTML         string          `json:"html,omitempty"`
	Title        string          `json:"title,omitempty"`
	ActivityType string          `json:"activityType,omitempty"`
	Config       json.RawMessage `json:"config,omitempty"`
}

// Builder builds a builder-to-host message for instance. Used by in-process
// builders and tests.
func Builder(instance, status string) Message {
	return Message{Source: Source, Type: TypeModule, Status: status, Instance: instance}
}

// Transport delivers host messages to the builder.
type Transport interface {
	Send(Message) error
}

// ChanTransport hands host messages to an in-process builder.
type ChanTransport struct {
	Out chan Message
}

func NewChanTransport(buffer int) *ChanTransport {
	return &ChanTransport{Out: make(chan Message, buffer)}
}

// Send never blocks; a full channel means the builder is not draining.
func (c *ChanTransport) Send(m Message) error {
	select {
	case c.Out <- m:
		return nil
	default:
		return ErrNotConnected
	}
}
