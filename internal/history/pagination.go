// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jeranaias/docsmith-tui/internal/model"
	"github.com/jeranaias/docsmith-tui/internal/store"
)

// =============================================================================
// PAGINATION CONSTANTS
// =============================================================================

const (
	// DefaultPageSize is how many rows one backfill requests.
	DefaultPageSize = 20

	// TopThresholdLines is how close (in viewport lines) the scroll
	// position must be to the top before a backfill triggers.
	TopThresholdLines = 4
)

// =============================================================================
// FETCHER INTERFACE
// =============================================================================

// Fetcher fetches one normalized page of thread history.
type Fetcher interface {
	FetchHistory(ctx context.Context, workspace, thread string, limit, offset int) ([]*model.Message, error)
}

// =============================================================================
// PAGINATION WINDOW
// =============================================================================

// Window is the backward (older-message) loader for the active thread.
// Backfills are serialized by the loadingMore guard; the offset cursor
// advances by the number of items actually received, so gaps from
// server-side filtering never desynchronize it.
type Window struct {
	fetcher Fetcher
	store   *store.Store
	logger  *slog.Logger

	mu          sync.Mutex
	workspace   string
	thread      string
	pageSize    int
	offset      int
	hasMore     bool
	loadingMore bool
}

// NewWindow creates a window over the given thread.
func NewWindow(fetcher Fetcher, st *store.Store, logger *slog.Logger, workspace, thread string, pageSize int) *Window {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Window{
		fetcher:   fetcher,
		store:     st,
		logger:    logger,
		workspace: workspace,
		thread:    thread,
		pageSize:  pageSize,
		hasMore:   true,
	}
}

// ShouldTrigger reports whether a backfill should start for the given
// distance from the viewport top.
func (w *Window) ShouldTrigger(distanceFromTop int) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return distanceFromTop <= TopThresholdLines && w.hasMore && !w.loadingMore
}

// LoadMore fetches one page at the current offset and merges it into
// the store. Returns the number of items received. Concurrent calls
// collapse into one: the guard makes the others no-ops. On fetch
// failure the guard is cleared so scrolling to the top again retries.
func (w *Window) LoadMore(ctx context.Context) (int, error) {
	w.mu.Lock()
	if w.loadingMore || !w.hasMore {
		w.mu.Unlock()
		return 0, nil
	}
	w.loadingMore = true
	offset := w.offset
	pageSize := w.pageSize
	workspace, thread := w.workspace, w.thread
	w.mu.Unlock()

	page, err := w.fetcher.FetchHistory(ctx, workspace, thread, pageSize, offset)
	if err != nil {
		w.logger.Warn("history backfill failed", "offset", offset, "error", err)
		w.mu.Lock()
		w.loadingMore = false
		w.mu.Unlock()
		return 0, err
	}

	w.mu.Lock()
	// Guard against a Reset that raced the fetch: its page belongs to
	// a thread we no longer display.
	if w.workspace != workspace || w.thread != thread {
		w.loadingMore = false
		w.mu.Unlock()
		return 0, nil
	}
	if len(page) < pageSize {
		w.hasMore = false
	}
	w.offset += len(page)
	w.loadingMore = false
	w.mu.Unlock()

	if len(page) > 0 {
		w.store.MergeOlderBatch(page)
	}
	return len(page), nil
}

// Reset switches the window to a new thread: cursor back to zero,
// hasMore true, and the previously loaded window discarded entirely.
func (w *Window) Reset(workspace, thread string) {
	w.mu.Lock()
	w.workspace = workspace
	w.thread = thread
	w.offset = 0
	w.hasMore = true
	w.loadingMore = false
	w.mu.Unlock()
	w.store.Clear()
}

// Prime records an initial page load performed outside the window, so
// the cursor starts past items already in the store. full reports whether
// the initial page filled the page size.
func (w *Window) Prime(count int, full bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.offset = count
	w.hasMore = full
	w.loadingMore = false
}

// HasMore reports whether older pages may remain.
func (w *Window) HasMore() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.hasMore
}

// Loading reports whether a backfill is in flight.
func (w *Window) Loading() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.loadingMore
}

// Offset returns the current cursor, the count of items already loaded
// for the active thread.
func (w *Window) Offset() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.offset
}
