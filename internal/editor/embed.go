/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"fmt"
	"log/slog"

	"slidecanvas/internal/bridge"
	"slidecanvas/internal/domain"
	"slidecanvas/internal/geom"
	"slidecanvas/internal/richtext"
)

// OpenBridge starts a builder session. target is the module embed to edit,
// or empty to create a new one on the current slide. Only one bridge may
// be open; a second request is refused with bridge.ErrBusy.
func (s *Session) OpenBridge(target domain.ItemID, tr bridge.Transport) (*bridge.Bridge, error) {
	if s.bridge != nil && !s.bridge.Closed() {
		s.notify(NoticeInfo, "The activity builder is already open.")
		return nil, bridge.ErrBusy
	}
	opts := bridge.Options{Transport: tr}
	if target != "" {
		_, it := s.item(target)
		if it == nil || it.Kind() != domain.KindModule {
			return nil, fmt.Errorf("%w: %s", bridge.ErrNoTarget, target)
		}
		opts.Target = target
		opts.Config = s.deck.Modules[target]
	}
	s.restoreTo = s.selected
	opts.OnResult = s.applyBuilderResult
	opts.OnClose = s.builderClosed
	s.bridge = bridge.Open(opts)
	s.log.Info("builder opened", slog.String("instance", s.bridge.ID()), slog.String("target", string(target)))
	return s.bridge, nil
}

// Bridge returns the open builder bridge, or nil.
func (s *Session) Bridge() *bridge.Bridge {
	if s.bridge == nil || s.bridge.Closed() {
		return nil
	}
	return s.bridge
}

// HandleBuilderMessage feeds one builder message to the open bridge.
func (s *Session) HandleBuilderMessage(m bridge.Message) error {
	b := s.Bridge()
	if b == nil {
		return bridge.ErrClosed
	}
	return b.Handle(m)
}

// CloseBridge abandons the open builder without touching the document.
func (s *Session) CloseBridge() {
	if b := s.Bridge(); b != nil {
		b.Close()
	}
}

func (s *Session) applyBuilderResult(res bridge.Result) {
	preview := richtext.SanitizePreview(res.HTML)
	if res.Target != "" {
		_, it := s.item(res.Target)
		if it == nil || it.Kind() != domain.KindModule {
			s.log.Warn("builder result for a vanished module", slog.String("target", string(res.Target)))
			s.notify(NoticeWarning, "The activity being edited was removed; the builder result was discarded.")
			return
		}
		m := it.Content.(*domain.ModuleEmbed)
		m.Preview = preview
		if res.Title != "" {
			m.Title = res.Title
		}
		if res.ActivityType != "" {
			m.ActivityType = res.ActivityType
		}
		s.deck.Modules[it.ID] = res.Config
		return
	}
	embed := &domain.ModuleEmbed{Title: res.Title, ActivityType: res.ActivityType, Preview: preview}
	it := domain.NewItem(embed, s.nextInsertPoint(), s.now())
	if err := s.insert(it, domain.SourceDirect); err != nil {
		s.log.Warn("builder result not placed", slog.String("err", err.Error()))
		return
	}
	s.deck.Modules[it.ID] = res.Config
	s.log.Info("module embedded", slog.String("item", string(it.ID)), slog.String("activity", res.ActivityType))
}

// builderClosed restores the selection that was active before the
// builder opened.
func (s *Session) builderClosed(completed bool) {
	prev := s.restoreTo
	s.restoreTo = ""
	if prev != "" && s.registry.Has(prev) {
		s.Select(prev)
	} else {
		s.clearSelection(true)
	}
	s.log.Debug("builder closed", slog.Bool("completed", completed))
}

// nextInsertPoint cascades new items so they do not stack exactly.
func (s *Session) nextInsertPoint() geom.Pt {
	n := float64(len(s.deck.CurrentSlide().Items()) % 10)
	return geom.Pt{X: 40 + 24*n, Y: 40 + 24*n}
}
