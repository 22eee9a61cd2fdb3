/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"slidecanvas/internal/config"
	"slidecanvas/internal/crash"
	applog "slidecanvas/internal/log"
	"slidecanvas/internal/ui"
	"slidecanvas/internal/version"
)

func usage() {
	fmt.Println("SlideCanvas - slide deck canvas engine")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  slidecanvas version|-v|--version              Show version")
	fmt.Println("  slidecanvas new <file> [slides]                 Create a deck with blank slides")
	fmt.Println("  slidecanvas info <file>                         Print a deck summary")
	fmt.Println("  slidecanvas sanitize <file>                     Re-save a deck through the codec (creates backup)")
	fmt.Println("  slidecanvas export-pdf <file> <out.pdf>         Write a PDF handout")
	fmt.Println("  slidecanvas export-png <file> <dir> [scale]     Write slide thumbnails")
	fmt.Println("  slidecanvas search <file> <query>               Full-text search over a deck")
	fmt.Println("  slidecanvas embed <file> <slide> [flags]        Serve the module builder bridge")
	fmt.Println("  slidecanvas ui [<file>]                         Launch desktop UI (build with -tags fyne for full UI)")
}

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("cli")

	cfg, token, err := config.Load()
	if err != nil {
		l.Warn("config not loaded, using defaults", slog.Any("err", err))
		cfg = config.Defaults()
	}
	if cfg.Logging.Level != "" || cfg.Logging.File != "" {
		opts := applog.FromEnv()
		if os.Getenv("SLC_LOG_LEVEL") == "" && cfg.Logging.Level != "" {
			opts.Level = cfg.Logging.Level
		}
		if os.Getenv("SLC_LOG_FILE") == "" && cfg.Logging.File != "" {
			opts.File = cfg.Logging.File
		}
		applog.Init(opts)
		l = applog.WithComponent("cli")
	}

	app := &cli{cfg: cfg, token: token, out: os.Stdout, l: l}
	defer func() { crash.Recover(app.h) }()

	args := os.Args
	l.Debug("start", slog.Int("args", len(args)))
	if len(args) < 2 {
		usage()
		return
	}
	if args[1] == "version" || args[1] == "--version" || args[1] == "-v" {
		fmt.Println("SlideCanvas")
		fmt.Println(version.String())
		return
	}
	if args[1] == "ui" {
		var file string
		if len(args) >= 3 {
			file = args[2]
		}
		if err := ui.Run(file); err != nil {
			fmt.Println("Error:", err)
			os.Exit(1)
		}
		return
	}
	if err := app.run(args[1:]); err != nil {
		if err == errUsage {
			usage()
			os.Exit(2)
		}
		l.Error("command failed", slog.String("cmd", args[1]), slog.Any("err", err))
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}
