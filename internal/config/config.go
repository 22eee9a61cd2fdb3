/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package config loads the per-user slidecanvas configuration: YAML on disk,
// defaults for anything missing, and SLC_* environment variables on top.
// The bridge pairing token never touches the YAML file; it lives in the OS
// keyring.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type GeneralConfig struct {
	TelemetryOptIn bool   `yaml:"telemetry_opt_in"`
	TelemetryURL   string `yaml:"telemetry_url"`
	Theme          string `yaml:"theme"` // system | light | dark
}

// CanvasConfig holds the geometry new blank slides start with.
type CanvasConfig struct {
	Width       float64 `yaml:"width"`
	Height      float64 `yaml:"height"`
	ImageMargin float64 `yaml:"image_margin"`
	// Font is an optional TTF/OTF file used for thumbnail text.
	Font string `yaml:"font"`
}

type ImagesConfig struct {
	MaxBytes        int64 `yaml:"max_bytes"`
	RemoteTimeoutMs int   `yaml:"remote_timeout_ms"`
}

// BridgeConfig configures the websocket endpoint the module builder connects to.
type BridgeConfig struct {
	Listen         string   `yaml:"listen"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	BuilderURL     string   `yaml:"builder_url"`
}

type StorageConfig struct {
	IndexEnabled bool `yaml:"index_enabled"`
	KeepBackups  int  `yaml:"keep_backups"`
	PreviewCache int  `yaml:"preview_cache"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// AppConfig is the YAML document. Bump ConfigVersion on incompatible changes.
type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Canvas        CanvasConfig  `yaml:"canvas"`
	Images        ImagesConfig  `yaml:"images"`
	Bridge        BridgeConfig  `yaml:"bridge"`
	Storage       StorageConfig `yaml:"storage"`
	Logging       LoggingConfig `yaml:"logging"`
}

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{Theme: "system"},
		Canvas:        CanvasConfig{Width: 1280, Height: 720, ImageMargin: 40},
		Images:        ImagesConfig{MaxBytes: 8 << 20, RemoteTimeoutMs: 10000},
		Bridge: BridgeConfig{
			Listen:         "127.0.0.1:8765",
			AllowedOrigins: []string{"http://localhost:5173", "http://127.0.0.1:5173"},
			BuilderURL:     "http://localhost:5173/builder",
		},
		Storage: StorageConfig{IndexEnabled: true, KeepBackups: 10, PreviewCache: 256},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

const (
	EnvTelemetryOptIn  = "SLC_TELEMETRY_OPT_IN"
	EnvTelemetryURL    = "SLC_TELEMETRY_URL"
	EnvCanvasWidth     = "SLC_CANVAS_WIDTH"
	EnvCanvasHeight    = "SLC_CANVAS_HEIGHT"
	EnvImagesMaxBytes  = "SLC_IMAGES_MAX_BYTES"
	EnvBridgeListen    = "SLC_BRIDGE_LISTEN"
	EnvBridgeOrigins   = "SLC_BRIDGE_ORIGINS"
	EnvStorageIndex    = "SLC_STORAGE_INDEX"
	EnvLogLevel        = "SLC_LOG_LEVEL"
	EnvLogFormat       = "SLC_LOG_FORMAT"
	EnvLogSource       = "SLC_LOG_SOURCE"
	EnvLogFile         = "SLC_LOG_FILE"
	EnvConfigDirectory = "SLC_CONFIG_DIR"
)

// ConfigPath returns the per-user config file path. SLC_CONFIG_DIR wins over
// the platform default.
func ConfigPath() (string, error) {
	if d := strings.TrimSpace(os.Getenv(EnvConfigDirectory)); d != "" {
		return filepath.Join(d, "config.yaml"), nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "SlideCanvas")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "SlideCanvas")
	default:
		if x := os.Getenv("XDG_CONFIG_HOME"); x != "" {
			base = filepath.Join(x, "slidecanvas")
		} else {
			base = filepath.Join(os.Getenv("HOME"), ".config", "slidecanvas")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the config file when present, merges it over Defaults, applies
// environment overrides and returns the bridge token from the keyring. A
// missing file or keyring entry is not an error; a malformed file is.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			applyEnvOverrides(&cfg)
			return cfg, "", err
		}
		mergeInto(&cfg, &fileCfg)
	case !errors.Is(err, os.ErrNotExist):
		return cfg, "", err
	}
	applyEnvOverrides(&cfg)
	tok, _ := BridgeToken()
	return cfg, tok, nil
}

// Save writes the YAML file and stores token in the keyring when non-empty.
func Save(cfg AppConfig, token string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if token != "" {
		return SetBridgeToken(token)
	}
	return nil
}

func mergeInto(dst, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn
	if v := strings.TrimSpace(src.General.TelemetryURL); v != "" {
		dst.General.TelemetryURL = v
	}
	if src.General.Theme != "" {
		dst.General.Theme = src.General.Theme
	}
	if src.Canvas.Width > 0 {
		dst.Canvas.Width = src.Canvas.Width
	}
	if src.Canvas.Height > 0 {
		dst.Canvas.Height = src.Canvas.Height
	}
	if src.Canvas.ImageMargin > 0 {
		dst.Canvas.ImageMargin = src.Canvas.ImageMargin
	}
	if v := strings.TrimSpace(src.Canvas.Font); v != "" {
		dst.Canvas.Font = v
	}
	if src.Images.MaxBytes > 0 {
		dst.Images.MaxBytes = src.Images.MaxBytes
	}
	if src.Images.RemoteTimeoutMs > 0 {
		dst.Images.RemoteTimeoutMs = src.Images.RemoteTimeoutMs
	}
	if src.Bridge.Listen != "" {
		dst.Bridge.Listen = src.Bridge.Listen
	}
	if len(src.Bridge.AllowedOrigins) > 0 {
		dst.Bridge.AllowedOrigins = append([]string(nil), src.Bridge.AllowedOrigins...)
	}
	if src.Bridge.BuilderURL != "" {
		dst.Bridge.BuilderURL = src.Bridge.BuilderURL
	}
	dst.Storage.IndexEnabled = src.Storage.IndexEnabled
	if src.Storage.KeepBackups > 0 {
		dst.Storage.KeepBackups = src.Storage.KeepBackups
	}
	if src.Storage.PreviewCache > 0 {
		dst.Storage.PreviewCache = src.Storage.PreviewCache
	}
	if v := strings.TrimSpace(src.Logging.Level); v != "" {
		dst.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(src.Logging.Format); v != "" {
		dst.Logging.Format = strings.ToLower(v)
	}
	dst.Logging.Source = src.Logging.Source
	if v := strings.TrimSpace(src.Logging.File); v != "" {
		dst.Logging.File = v
	}
}

func truthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

func applyEnvOverrides(cfg *AppConfig) {
	env := func(k string) string { return strings.TrimSpace(os.Getenv(k)) }
	if v := env(EnvTelemetryOptIn); v != "" {
		cfg.General.TelemetryOptIn = truthy(v)
	}
	if v := env(EnvTelemetryURL); v != "" {
		cfg.General.TelemetryURL = v
	}
	if v := env(EnvCanvasWidth); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.Canvas.Width = f
		}
	}
	if v := env(EnvCanvasHeight); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.Canvas.Height = f
		}
	}
	if v := env(EnvImagesMaxBytes); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.Images.MaxBytes = n
		}
	}
	if v := env(EnvBridgeListen); v != "" {
		cfg.Bridge.Listen = v
	}
	if v := env(EnvBridgeOrigins); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.Bridge.AllowedOrigins = origins
	}
	if v := env(EnvStorageIndex); v != "" {
		cfg.Storage.IndexEnabled = truthy(v)
	}
	if v := env(EnvLogLevel); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := env(EnvLogFormat); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := env(EnvLogSource); v != "" {
		cfg.Logging.Source = truthy(v)
	}
	if v := env(EnvLogFile); v != "" {
		cfg.Logging.File = v
	}
}

// EnvOverrideFor reports which environment variable, if any, overrides the
// dotted config key.
func EnvOverrideFor(key string) (string, bool) {
	names := map[string]string{
		"general.telemetry_opt_in": EnvTelemetryOptIn,
		"general.telemetry_url":    EnvTelemetryURL,
		"canvas.width":             EnvCanvasWidth,
		"canvas.height":            EnvCanvasHeight,
		"images.max_bytes":         EnvImagesMaxBytes,
		"bridge.listen":            EnvBridgeListen,
		"bridge.allowed_origins":   EnvBridgeOrigins,
		"storage.index_enabled":    EnvStorageIndex,
		"logging.level":            EnvLogLevel,
		"logging.format":           EnvLogFormat,
		"logging.source":           EnvLogSource,
		"logging.file":             EnvLogFile,
	}
	name, ok := names[key]
	if !ok || os.Getenv(name) == "" {
		return "", false
	}
	return name, true
}

// RemoteTimeout is the budget for hydrating one remote image.
func (c ImagesConfig) RemoteTimeout() time.Duration {
	if c.RemoteTimeoutMs <= 0 {
		return time.Duration(Defaults().Images.RemoteTimeoutMs) * time.Millisecond
	}
	return time.Duration(c.RemoteTimeoutMs) * time.Millisecond
}

// PreviewBytes is the preview cache cap; PreviewCache is given in MiB.
func (c StorageConfig) PreviewBytes() int64 {
	return int64(c.PreviewCache) << 20
}
