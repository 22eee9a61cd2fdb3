/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"os"
	"path/filepath"
	"testing"

	keyring "github.com/zalando/go-keyring"
)

type memTokens map[string]string

func (m memTokens) Get(s, k string) (string, error) {
	v, ok := m[s+"/"+k]
	if !ok {
		return "", keyring.ErrNotFound
	}
	return v, nil
}
func (m memTokens) Set(s, k, v string) error { m[s+"/"+k] = v; return nil }
func (m memTokens) Delete(s, k string) error {
	if _, ok := m[s+"/"+k]; !ok {
		return keyring.ErrNotFound
	}
	delete(m, s+"/"+k)
	return nil
}

func isolate(t *testing.T) memTokens {
	t.Helper()
	t.Setenv(EnvConfigDirectory, t.TempDir())
	mem := memTokens{}
	old := SetTokenStore(mem)
	t.Cleanup(func() { SetTokenStore(old) })
	return mem
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	isolate(t)
	cfg, tok, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tok != "" {
		t.Fatalf("unexpected token %q", tok)
	}
	if cfg.Canvas.Width != 1280 || cfg.Canvas.Height != 720 {
		t.Fatalf("canvas defaults: %+v", cfg.Canvas)
	}
	if cfg.Bridge.Listen == "" || len(cfg.Bridge.AllowedOrigins) == 0 {
		t.Fatalf("bridge defaults missing: %+v", cfg.Bridge)
	}
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	mem := isolate(t)
	cfg := Defaults()
	cfg.Canvas.Width = 1600
	cfg.Bridge.AllowedOrigins = []string{"https://builder.example"}
	cfg.Storage.IndexEnabled = false
	if err := Save(cfg, "s3cret"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if mem[keyringService+"/"+keyringBridge] != "s3cret" {
		t.Fatalf("token not stored in keyring")
	}
	p, _ := ConfigPath()
	if _, err := os.Stat(p); err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	got, tok, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tok != "s3cret" || got.Canvas.Width != 1600 || got.Storage.IndexEnabled {
		t.Fatalf("round trip mismatch: tok=%q cfg=%+v", tok, got)
	}
	if len(got.Bridge.AllowedOrigins) != 1 || got.Bridge.AllowedOrigins[0] != "https://builder.example" {
		t.Fatalf("origins: %v", got.Bridge.AllowedOrigins)
	}
}

func TestMalformedFileIsReported(t *testing.T) {
	isolate(t)
	p, _ := ConfigPath()
	if err := os.WriteFile(p, []byte("canvas: [oops"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := Load(); err == nil {
		t.Fatalf("expected yaml error")
	}
}

func TestEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv(EnvCanvasWidth, "1920")
	t.Setenv(EnvBridgeOrigins, " https://a.test , ,https://b.test")
	t.Setenv(EnvTelemetryOptIn, "yes")
	t.Setenv(EnvLogFormat, "JSON")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Canvas.Width != 1920 {
		t.Fatalf("width override: %v", cfg.Canvas.Width)
	}
	if len(cfg.Bridge.AllowedOrigins) != 2 || cfg.Bridge.AllowedOrigins[1] != "https://b.test" {
		t.Fatalf("origins override: %v", cfg.Bridge.AllowedOrigins)
	}
	if !cfg.General.TelemetryOptIn || cfg.Logging.Format != "json" {
		t.Fatalf("flag overrides not applied: %+v", cfg)
	}
	if name, ok := EnvOverrideFor("canvas.width"); !ok || name != EnvCanvasWidth {
		t.Fatalf("EnvOverrideFor: %q %v", name, ok)
	}
	if _, ok := EnvOverrideFor("canvas.height"); ok {
		t.Fatalf("height is not overridden")
	}
}

func TestMergeKeepsDefaultsForZeroValues(t *testing.T) {
	dst := Defaults()
	src := AppConfig{Logging: LoggingConfig{Level: " DEBUG ", File: filepath.Join("x", "slc.log")}}
	mergeInto(&dst, &src)
	if dst.Canvas.Width != 1280 || dst.Images.MaxBytes == 0 {
		t.Fatalf("zero values overwrote defaults: %+v", dst)
	}
	if dst.Logging.Level != "debug" || dst.Logging.File == "" {
		t.Fatalf("logging merge: %+v", dst.Logging)
	}
}

func TestBridgeTokenLifecycle(t *testing.T) {
	isolate(t)
	if err := ClearBridgeToken(); err != nil {
		t.Fatalf("clearing missing token: %v", err)
	}
	if err := SetBridgeToken("abc"); err != nil {
		t.Fatal(err)
	}
	if tok, err := BridgeToken(); err != nil || tok != "abc" {
		t.Fatalf("BridgeToken = %q, %v", tok, err)
	}
	if err := ClearBridgeToken(); err != nil {
		t.Fatal(err)
	}
	if tok, _ := BridgeToken(); tok != "" {
		t.Fatalf("token survived clear: %q", tok)
	}
}
