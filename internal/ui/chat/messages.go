// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the Bubble Tea chat surface for docsmith-tui.
//
// This file defines the Bubble Tea message types used by the chat model,
// grouped by concern: streaming lifecycle, history, jobs, export and UI
// housekeeping.
package chat

import (
	"github.com/jeranaias/docsmith-tui/internal/config"
	"github.com/jeranaias/docsmith-tui/internal/model"
	"github.com/jeranaias/docsmith-tui/internal/stream"
)

// =============================================================================
// STREAMING MESSAGES
// =============================================================================

// StreamOpenedMsg reports that the chat stream connected and is readable.
type StreamOpenedMsg struct {
	Decoder *stream.FrameDecoder
}

// StreamDeltaMsg delivers one classified frame from the stream.
type StreamDeltaMsg struct {
	Content  string
	Progress string
}

// StreamDoneMsg reports that the stream ended normally.
type StreamDoneMsg struct{}

// StreamFailedMsg reports a stream open or read failure.
type StreamFailedMsg struct {
	Err error
}

// SyncFallbackMsg carries the result of the non-streaming fallback
// request issued when the stream could not be opened. Seq ties the
// result back to the send that triggered it.
type SyncFallbackMsg struct {
	Seq  int
	Text string
	Err  error
}

// ReconciledMsg reports the post-stream authoritative reload.
type ReconciledMsg struct {
	Err error
}

// =============================================================================
// HISTORY MESSAGES
// =============================================================================

// HistoryLoadedMsg delivers the initial thread history.
type HistoryLoadedMsg struct {
	Messages []*model.Message
	Err      error
}

// CacheSnapshotMsg delivers the warm-start snapshot from the local cache.
// It paints instantly while the real history fetch is in flight.
type CacheSnapshotMsg struct {
	Messages []*model.Message
}

// OlderPageMsg reports an older-history backfill.
type OlderPageMsg struct {
	Count int
	Err   error
}

// ThreadSwitchedMsg requests switching the active thread.
type ThreadSwitchedMsg struct {
	Thread string
}

// =============================================================================
// STORE / JOBS MESSAGES
// =============================================================================

// StoreMutatedMsg is delivered whenever the message store changed, from
// any writer (stream, job poller, pagination).
type StoreMutatedMsg struct{}

// =============================================================================
// EXPORT MESSAGES
// =============================================================================

// ExportedMsg reports a transcript export.
type ExportedMsg struct {
	Path string
	Err  error
}

// =============================================================================
// UI HOUSEKEEPING MESSAGES
// =============================================================================

// ConfigReloadedMsg delivers a hot-reloaded configuration.
type ConfigReloadedMsg struct {
	Config *config.Config
}

// statusExpiredMsg clears the ephemeral status line.
type statusExpiredMsg struct {
	seq int
}

// scrollFlushMsg drains a debounced scroll-to-bottom.
type scrollFlushMsg struct{}

// animFrameMsg advances a smooth scroll animation.
type animFrameMsg struct {
	seq int
}
