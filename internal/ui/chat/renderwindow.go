// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/jeranaias/docsmith-tui/internal/model"
)

// =============================================================================
// RENDER WINDOW
// =============================================================================

// DefaultRenderCap bounds how many messages are materialized into the
// viewport at once. The store keeps everything for export and search; the
// window keeps per-frame render cost flat on long sessions.
const DefaultRenderCap = 60

// RenderWindow exposes a fixed-size slice of the store to the renderer.
// By default it tracks the most recent entries. Scrolling past the top of
// the window slides the same cap upward over older items; returning to
// the latest entries snaps it back.
//
// The window is indexed from the end: offset 0 means "the last cap
// entries", offset k hides the k newest entries and shows cap older ones.
type RenderWindow struct {
	cap    int
	offset int
}

// NewRenderWindow creates a window with the given cap. Non-positive caps
// use the default.
func NewRenderWindow(cap int) *RenderWindow {
	if cap <= 0 {
		cap = DefaultRenderCap
	}
	return &RenderWindow{cap: cap}
}

// Visible returns the slice of all that the renderer should draw. The
// offset is clamped so the window never runs off the front of the store,
// even after the store shrank (thread switch, clear).
func (w *RenderWindow) Visible(all []*model.Message) []*model.Message {
	n := len(all)
	if n <= w.cap {
		w.offset = 0
		return all
	}

	maxOffset := n - w.cap
	if w.offset > maxOffset {
		w.offset = maxOffset
	}
	end := n - w.offset
	return all[end-w.cap : end]
}

// SlideUp moves the window toward older entries by n messages. Returns
// true if the window actually moved (false at the top of the store).
func (w *RenderWindow) SlideUp(total, n int) bool {
	if total <= w.cap {
		return false
	}
	maxOffset := total - w.cap
	if w.offset >= maxOffset {
		return false
	}
	w.offset += n
	if w.offset > maxOffset {
		w.offset = maxOffset
	}
	return true
}

// SlideToLatest snaps the window back to the newest entries.
func (w *RenderWindow) SlideToLatest() {
	w.offset = 0
}

// AtLatest reports whether the newest entry is inside the window.
func (w *RenderWindow) AtLatest() bool {
	return w.offset == 0
}

// AtOldest reports whether the window includes the store's first entry.
func (w *RenderWindow) AtOldest(total int) bool {
	return total <= w.cap || w.offset >= total-w.cap
}

// SetCap resizes the window, keeping the current position where possible.
func (w *RenderWindow) SetCap(cap int) {
	if cap <= 0 {
		cap = DefaultRenderCap
	}
	w.cap = cap
}

// Cap returns the window size.
func (w *RenderWindow) Cap() int {
	return w.cap
}
