/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"time"

	"slidecanvas/internal/bridge"
	"slidecanvas/internal/deckio"
	"slidecanvas/internal/domain"
	"slidecanvas/internal/editor"
	"slidecanvas/internal/storage"
	"slidecanvas/internal/telemetry"
)

// embed opens the module builder bridge for one slide, serves the websocket
// endpoint until the builder finishes or goes away, and saves the deck when
// the builder produced a module.
func (c *cli) embed(args []string) error {
	fs := flag.NewFlagSet("embed", flag.ContinueOnError)
	fs.SetOutput(c.out)
	listen := fs.String("listen", c.cfg.Bridge.Listen, "address the builder connects to")
	module := fs.Int("module", 0, "1-based module on the slide to edit; 0 adds a new one")
	timeout := fs.Duration("timeout", 0, "give up waiting for the builder after this long; 0 waits until it closes")
	if err := fs.Parse(args[2:]); err != nil {
		return errUsage
	}
	slide, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("slide must be a number, got %q", args[1])
	}
	h, err := c.open(args[0])
	if err != nil {
		return err
	}
	sess := editor.NewSession(h.Deck, editor.Options{
		Config: c.cfg,
		Notifier: editor.NotifierFunc(func(n editor.Notice) {
			fmt.Fprintf(c.out, "%s: %s\n", n.Level, n.Text)
		}),
	})
	if slide < 1 || slide > sess.SlideCount() {
		return fmt.Errorf("slide %d out of range 1..%d", slide, sess.SlideCount())
	}
	sess.GoTo(slide - 1)

	var target domain.ItemID
	if *module > 0 {
		it := sess.Deck().ModuleAt(slide-1, *module-1)
		if it == nil {
			return fmt.Errorf("slide %d has no module %d", slide, *module)
		}
		target = it.ID
	}

	before, err := deckio.Export(sess.Deck())
	if err != nil {
		return err
	}
	hub := bridge.NewHub(bridge.HubOptions{AllowedOrigins: c.cfg.Bridge.AllowedOrigins, Token: c.token})
	defer hub.Close()
	b, err := sess.OpenBridge(target, hub)
	if err != nil {
		return err
	}
	hub.Expect(b.ID())

	ln, err := net.Listen("tcp", *listen)
	if err != nil {
		sess.CloseBridge()
		return fmt.Errorf("listen: %w", err)
	}
	srv := &http.Server{Handler: hub.Router(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.l.Error("bridge server stopped", slog.Any("err", err))
		}
	}()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()

	ws := fmt.Sprintf("ws://%s/bridge/%s", ln.Addr(), b.ID())
	fmt.Fprintf(c.out, "Builder endpoint: %s\n", ws)
	if u := builderURL(c.cfg.Bridge.BuilderURL, b.ID(), ws, c.token); u != "" {
		fmt.Fprintf(c.out, "Open the builder at: %s\n", u)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := embedContext(ctx, *timeout)
	defer cancel()
	if err := pump(ctx, sess, hub.Inbox(), c.l); err != nil {
		return fmt.Errorf("builder did not finish: %w", err)
	}

	after, err := deckio.Export(sess.Deck())
	if err != nil {
		return err
	}
	if bytes.Equal(before, after) {
		fmt.Fprintln(c.out, "Builder closed without changes")
		return nil
	}
	h.Deck = sess.Deck()
	if err := storage.Save(h); err != nil {
		return err
	}
	telemetry.Event("module_embedded", map[string]any{"slide": slide, "edit": target != "", "modules": len(h.Deck.ModuleRefs())})
	fmt.Fprintf(c.out, "Saved module to slide %d\n", slide)
	return nil
}

// pump feeds builder messages to the session until its bridge closes. The
// session is only touched from this goroutine.
func pump(ctx context.Context, sess *editor.Session, inbox <-chan bridge.Message, l *slog.Logger) error {
	for sess.Bridge() != nil {
		select {
		case <-ctx.Done():
			sess.CloseBridge()
			return ctx.Err()
		case m := <-inbox:
			if err := sess.HandleBuilderMessage(m); err != nil {
				l.Warn("builder message rejected", slog.String("status", m.Status), slog.Any("err", err))
			}
		}
	}
	return nil
}

// embedContext bounds the builder round-trip only when timeout is positive.
// Otherwise the wait ends when the builder closes or the user interrupts.
func embedContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(parent, timeout)
	}
	return context.WithCancel(parent)
}

// builderURL appends the bridge coordinates to the configured builder page.
func builderURL(base, instance, ws, token string) string {
	if base == "" {
		return ""
	}
	u, err := url.Parse(base)
	if err != nil {
		return ""
	}
	q := u.Query()
	q.Set("instance", instance)
	q.Set("ws", ws)
	if token != "" {
		q.Set("token", token)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
