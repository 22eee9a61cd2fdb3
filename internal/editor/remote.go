/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"context"
	"log/slog"

	"slidecanvas/internal/domain"
	"slidecanvas/internal/geom"
)

// InsertRemoteImage fetches url for its natural size and inserts the image.
// An unreachable or non-image URL still inserts: the item becomes a
// placeholder that keeps the URL. The fetch runs on the caller's goroutine
// and is bounded by ctx and the configured remote timeout.
func (s *Session) InsertRemoteImage(ctx context.Context, url string, at geom.Pt) (*domain.Item, error) {
	img := s.FetchRemoteImage(ctx, url)
	if img.Placeholder {
		s.notify(NoticeWarning, "The image could not be loaded; a placeholder was inserted.")
	}
	return s.InsertImage(img, at, domain.SourceDirect)
}

// FetchRemoteImage fetches url and returns the image to insert, a
// placeholder on failure. It reads no session state and may run on any
// goroutine; hand the result to InsertImage on the session goroutine.
func (s *Session) FetchRemoteImage(ctx context.Context, url string) *domain.Image {
	return s.media.Hydrate(ctx, url)
}

// Hydration is a background fetch of the deck's remote images.
type Hydration struct {
	deck    *domain.Deck
	done    chan struct{}
	results map[string]*domain.Image
}

// Done is closed once every fetch has finished.
func (h *Hydration) Done() <-chan struct{} { return h.done }

// PendingRemote lists the distinct URLs of remote images whose natural size
// is still unknown.
func (s *Session) PendingRemote() []string {
	var urls []string
	seen := map[string]bool{}
	for _, img := range remoteImages(s.deck) {
		if img.Natural.W > 0 && img.Natural.H > 0 || img.Placeholder || seen[img.Src] {
			continue
		}
		seen[img.Src] = true
		urls = append(urls, img.Src)
	}
	return urls
}

// HydrateRemote starts probing every pending remote image off the session
// goroutine. The deck is not touched until ApplyHydration is called with
// the result, which must happen on the session goroutine.
func (s *Session) HydrateRemote(ctx context.Context) *Hydration {
	h := &Hydration{deck: s.deck, done: make(chan struct{})}
	urls := s.PendingRemote()
	if len(urls) == 0 {
		close(h.done)
		return h
	}
	in := s.media
	go func() {
		defer close(h.done)
		h.results = in.HydrateAll(ctx, urls, 4)
	}()
	return h
}

// ApplyHydration copies fetch results into the matching images and returns
// how many changed. Failed fetches turn their images into placeholders.
// Results for a deck that has since been replaced are dropped. Item
// geometry is left alone.
func (s *Session) ApplyHydration(h *Hydration) int {
	if h == nil {
		return 0
	}
	<-h.done
	if h.deck != s.deck {
		s.log.Debug("hydration results for a replaced deck dropped")
		return 0
	}
	n, failed := 0, 0
	for _, img := range remoteImages(s.deck) {
		res, ok := h.results[img.Src]
		if !ok || img.Placeholder || img.Natural.W > 0 && img.Natural.H > 0 {
			continue
		}
		if res.Placeholder {
			img.Placeholder = true
			failed++
		} else {
			img.Natural, img.MIME = res.Natural, res.MIME
		}
		n++
	}
	if n > 0 {
		s.log.Info("remote images hydrated", slog.Int("updated", n), slog.Int("failed", failed))
		s.render()
	}
	return n
}

func remoteImages(d *domain.Deck) []*domain.Image {
	var out []*domain.Image
	for _, sl := range d.Slides {
		for _, it := range sl.Items() {
			if img, ok := it.Content.(*domain.Image); ok && img.Remote && img.Src != "" {
				out = append(out, img)
			}
		}
	}
	return out
}
