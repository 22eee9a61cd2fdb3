/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package bridge

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	applog "slidecanvas/internal/log"
)

// HubOptions configures the websocket endpoint the external builder
// connects to.
type HubOptions struct {
	// AllowedOrigins lists browser origins (scheme://host[:port]) permitted
	// to connect. Empty means same host only. Requests without an Origin
	// header are non-browser clients and always pass the origin check.
	AllowedOrigins []string
	// Token, when set, must be presented as the token query parameter.
	Token string
	// Inbox is the buffer size of the inbound message channel.
	Inbox int
}

// Hub is a websocket Transport. It accepts one builder connection for the
// instance it expects and funnels that connection's messages into Inbox;
// the session loop is the only consumer.
type Hub struct {
	opts     HubOptions
	allowed  map[string]bool
	upgrader websocket.Upgrader
	inbox    chan Message
	done     chan struct{}
	stop     sync.Once
	log      *slog.Logger

	mu       sync.Mutex
	expected string
	conn     *websocket.Conn
}

func NewHub(opts HubOptions) *Hub {
	if opts.Inbox <= 0 {
		opts.Inbox = 16
	}
	h := &Hub{
		opts:    opts,
		allowed: make(map[string]bool, len(opts.AllowedOrigins)),
		inbox:   make(chan Message, opts.Inbox),
		done:    make(chan struct{}),
		log:     applog.WithComponent("bridge.hub"),
	}
	for _, o := range opts.AllowedOrigins {
		h.allowed[strings.TrimRight(strings.ToLower(o), "/")] = true
	}
	h.upgrader = websocket.Upgrader{CheckOrigin: h.checkOrigin}
	return h
}

// Router mounts the builder endpoint and a health check.
func (h *Hub) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/bridge/{instance}", h.handleBuilder).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	return r
}

// Expect sets the bridge instance allowed to connect next.
func (h *Hub) Expect(instance string) {
	h.mu.Lock()
	h.expected = instance
	h.mu.Unlock()
}

func (h *Hub) Inbox() <-chan Message { return h.inbox }

// Connected reports whether a builder is attached.
func (h *Hub) Connected() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.conn != nil
}

// Send writes m to the connected builder.
func (h *Hub) Send(m Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conn == nil {
		return ErrNotConnected
	}
	return h.conn.WriteJSON(m)
}

// Disconnect drops the current builder connection, if any.
func (h *Hub) Disconnect() {
	h.mu.Lock()
	c := h.conn
	h.mu.Unlock()
	if c != nil {
		_ = c.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline())
		_ = c.Close()
	}
}

// Close disconnects the builder and stops delivering to Inbox.
func (h *Hub) Close() {
	h.stop.Do(func() { close(h.done) })
	h.Disconnect()
}

func (h *Hub) deliver(m Message) {
	select {
	case h.inbox <- m:
	case <-h.done:
	}
}

func deadline() time.Time { return time.Now().Add(time.Second) }

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if len(h.allowed) > 0 {
		return h.allowed[strings.TrimRight(strings.ToLower(origin), "/")]
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

func (h *Hub) authorized(r *http.Request) bool {
	if h.opts.Token == "" {
		return true
	}
	got := r.URL.Query().Get("token")
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.opts.Token)) == 1
}

func (h *Hub) handleBuilder(w http.ResponseWriter, r *http.Request) {
	instance := mux.Vars(r)["instance"]
	l := h.log.With(slog.String("instance", instance), slog.String("remote", r.RemoteAddr))
	if !h.authorized(r) {
		l.Warn("builder rejected: bad token")
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	h.mu.Lock()
	switch {
	case h.expected == "" || instance != h.expected:
		h.mu.Unlock()
		l.Warn("builder rejected: unknown instance")
		http.Error(w, "unknown instance", http.StatusNotFound)
		return
	case h.conn != nil:
		h.mu.Unlock()
		l.Warn("builder rejected: already connected")
		http.Error(w, "builder already connected", http.StatusConflict)
		return
	}
	// Upgrade under the lock so two racing requests cannot both attach.
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.mu.Unlock()
		l.Warn("upgrade failed", slog.String("err", err.Error()))
		return
	}
	h.conn = conn
	h.mu.Unlock()
	l.Info("builder connected")
	h.read(conn, instance, l)
}

// read pumps messages until the connection ends. The instance field is
// stamped from the URL so builders cannot address another session.
func (h *Hub) read(conn *websocket.Conn, instance string, l *slog.Logger) {
	defer func() {
		h.mu.Lock()
		if h.conn == conn {
			h.conn = nil
		}
		h.mu.Unlock()
		_ = conn.Close()
		h.deliver(Builder(instance, StatusClosed))
		l.Info("builder disconnected")
	}()
	for {
		var m Message
		if err := conn.ReadJSON(&m); err != nil {
			var ce *websocket.CloseError
			if !errors.As(err, &ce) {
				l.Debug("read ended", slog.String("err", err.Error()))
			}
			return
		}
		m.Instance = instance
		h.deliver(m)
	}
}
