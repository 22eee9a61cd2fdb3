/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package version carries the build version of slidecanvas. Release builds
// override the values with -ldflags "-X slidecanvas/internal/version.Version=...".
package version

import "fmt"

var (
	Version = "0.4.0-dev"
	Commit  = ""
)

// DeckFormat is the deck file format version written by this build.
const DeckFormat = 2

// String renders the version for CLI output and log attributes.
func String() string {
	if Commit == "" {
		return fmt.Sprintf("slidecanvas %s (deck format v%d)", Version, DeckFormat)
	}
	return fmt.Sprintf("slidecanvas %s+%s (deck format v%d)", Version, Commit, DeckFormat)
}
