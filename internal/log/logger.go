/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package log is the slog front door for slidecanvas. Every package obtains
// its logger through WithComponent so records carry a component attribute,
// and operations that act on a deck attach it through ContextWithDeck.
package log

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"slidecanvas/internal/version"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Options controls logger initialization. FromEnv reads them from
//   - SLC_LOG_LEVEL=debug|info|warn|error
//   - SLC_LOG_FORMAT=console|json
//   - SLC_LOG_FILE=<path> (rotated JSON file output)
//   - SLC_LOG_SOURCE=true|false
type Options struct {
	Level     string
	Format    string
	AddSource bool
	File      string
}

var (
	mu     sync.RWMutex
	global *slog.Logger
)

// L returns the process logger, initializing it from the environment on first use.
func L() *slog.Logger {
	mu.RLock()
	l := global
	mu.RUnlock()
	if l != nil {
		return l
	}
	Init(FromEnv())
	mu.RLock()
	defer mu.RUnlock()
	return global
}

// Init builds the handler chain and installs it as slog.Default.
func Init(opts Options) {
	lvl := parseLevel(opts.Level)
	hopts := &slog.HandlerOptions{Level: lvl, AddSource: opts.AddSource}

	var console slog.Handler
	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "json":
		console = slog.NewJSONHandler(os.Stderr, hopts)
	default:
		console = &prettyTextHandler{opts: prettyOpts{Level: lvl, AddSource: opts.AddSource}, w: os.Stderr}
	}
	handlers := []slog.Handler{deckAware(console)}

	if f := strings.TrimSpace(opts.File); f != "" {
		w := &lj.Logger{Filename: f, MaxSize: 10, MaxBackups: 3, MaxAge: 28, Compress: true}
		handlers = append(handlers, deckAware(slog.NewJSONHandler(w, hopts)))
	}

	h := handlers[0]
	if len(handlers) > 1 {
		h = fanout(handlers...)
	}
	logger := slog.New(h).With(
		slog.String("app", "slidecanvas"),
		slog.String("ver", version.Version),
		slog.Time("ts_init", time.Now()),
	)

	mu.Lock()
	global = logger
	mu.Unlock()
	slog.SetDefault(logger)
}

// FromEnv reads Options from SLC_LOG_* variables.
func FromEnv() Options {
	return Options{
		Level:     getenv("SLC_LOG_LEVEL", "info"),
		Format:    getenv("SLC_LOG_FORMAT", "console"),
		AddSource: strings.EqualFold(getenv("SLC_LOG_SOURCE", "false"), "true"),
		File:      os.Getenv("SLC_LOG_FILE"),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// WithComponent returns a logger with the component attribute pre-set.
func WithComponent(name string) *slog.Logger { return L().With(slog.String("component", name)) }

// WithOperation annotates the logger with an operation name.
func WithOperation(l *slog.Logger, op string) *slog.Logger { return l.With(slog.String("op", op)) }

type deckKey struct{}

// ContextWithDeck tags ctx with the deck path; records logged with that
// context through *Context methods carry a "deck" attribute.
func ContextWithDeck(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, deckKey{}, path)
}

// DeckFromContext returns the deck path stored by ContextWithDeck.
func DeckFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	p, ok := ctx.Value(deckKey{}).(string)
	return p, ok && p != ""
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
