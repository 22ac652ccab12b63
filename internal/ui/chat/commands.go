// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the Bubble Tea chat surface for docsmith-tui.
//
// This file holds the tea.Cmd factories: everything that touches the
// network or disk runs here, off the update loop.
package chat

import (
	"context"
	"errors"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/docsmith-tui/internal/api"
	"github.com/jeranaias/docsmith-tui/internal/export"
	"github.com/jeranaias/docsmith-tui/internal/model"
	"github.com/jeranaias/docsmith-tui/internal/storage"
	"github.com/jeranaias/docsmith-tui/internal/store"
	"github.com/jeranaias/docsmith-tui/internal/stream"
)

// reconcileTailSize is how many trailing messages the post-stream reload
// fetches to replace optimistic entries with persisted ones.
const reconcileTailSize = 50

// openStreamCmd connects the chat stream. ctx carries the cancel already
// registered with the session guard.
func openStreamCmd(ctx context.Context, client *api.Client, workspace, thread, message string) tea.Cmd {
	return func() tea.Msg {
		dec, err := client.OpenStream(ctx, workspace, thread, message)
		if err != nil {
			return StreamFailedMsg{Err: err}
		}
		return StreamOpenedMsg{Decoder: dec}
	}
}

// readFrameCmd reads one frame from the decoder. The update loop issues
// it again after each delta, so the stream is consumed incrementally with
// a store mutation between reads.
func readFrameCmd(ctx context.Context, dec *stream.FrameDecoder, classifier *stream.Classifier) tea.Cmd {
	return func() tea.Msg {
		for {
			payload, err := dec.Next(ctx)
			if errors.Is(err, io.EOF) {
				return StreamDoneMsg{}
			}
			if err != nil {
				return StreamFailedMsg{Err: err}
			}
			res := classifier.Classify(stream.ExtractDelta(payload))
			if res.IsEmpty() {
				continue
			}
			return StreamDeltaMsg{Content: res.Content, Progress: res.Progress}
		}
	}
}

// syncFallbackCmd issues the one-shot chat request used when the stream
// could not be opened. seq is echoed back so the update loop can drop a
// result that outlived its send.
func syncFallbackCmd(client *api.Client, workspace, thread, message string, seq int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), api.DefaultTimeout)
		defer cancel()
		text, err := client.SyncChat(ctx, workspace, thread, message)
		return SyncFallbackMsg{Seq: seq, Text: text, Err: err}
	}
}

// reconcileCmd reloads the authoritative tail after stream completion and
// folds it into the store.
func reconcileCmd(client *api.Client, st *store.Store, workspace, thread string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), api.DefaultTimeout)
		defer cancel()
		batch, err := client.FetchHistory(ctx, workspace, thread, reconcileTailSize, 0)
		if err != nil {
			return ReconciledMsg{Err: err}
		}
		st.ReconcileWithAuthoritative(batch)
		return ReconciledMsg{}
	}
}

// loadHistoryCmd fetches the first history page for the active thread.
func loadHistoryCmd(client *api.Client, workspace, thread string, pageSize int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), api.DefaultTimeout)
		defer cancel()
		msgs, err := client.FetchHistory(ctx, workspace, thread, pageSize, 0)
		return HistoryLoadedMsg{Messages: msgs, Err: err}
	}
}

// loadCacheCmd loads the warm-start snapshot. Errors are not surfaced:
// the network fetch is already on its way.
func loadCacheCmd(cache *storage.Cache, workspace, thread string) tea.Cmd {
	if cache == nil {
		return nil
	}
	return func() tea.Msg {
		msgs, err := cache.LoadSnapshot(workspace, thread)
		if err != nil || len(msgs) == 0 {
			return nil
		}
		return CacheSnapshotMsg{Messages: msgs}
	}
}

// saveCacheCmd persists the current store as the thread snapshot,
// fire-and-forget.
func saveCacheCmd(cache *storage.Cache, workspace, thread string, msgs []*model.Message) tea.Cmd {
	if cache == nil {
		return nil
	}
	return func() tea.Msg {
		_ = cache.SaveSnapshot(workspace, thread, msgs)
		return nil
	}
}

// loadOlderCmd runs one pagination backfill through the history window.
type olderLoader interface {
	LoadMore(ctx context.Context) (int, error)
}

func loadOlderCmd(w olderLoader) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), api.DefaultTimeout)
		defer cancel()
		n, err := w.LoadMore(ctx)
		return OlderPageMsg{Count: n, Err: err}
	}
}

// exportCmd writes the transcript manifest to disk.
func exportCmd(workspace, thread, dir, format string, msgs []*model.Message) tea.Cmd {
	return func() tea.Msg {
		manifest := export.BuildManifest(workspace, thread, msgs)
		var exporter export.Exporter
		if format == "json" {
			exporter = export.NewJSONExporter()
		} else {
			exporter = export.NewMarkdownExporter()
		}
		path, err := export.WriteFile(manifest, exporter, dir)
		return ExportedMsg{Path: path, Err: err}
	}
}

// expireStatusCmd clears the ephemeral status line after a short delay.
func expireStatusCmd(seq int, after time.Duration) tea.Cmd {
	return tea.Tick(after, func(time.Time) tea.Msg {
		return statusExpiredMsg{seq: seq}
	})
}

// flushScrollCmd drains the scroll debounce window.
func flushScrollCmd() tea.Cmd {
	return tea.Tick(streamScrollDebounce, func(time.Time) tea.Msg {
		return scrollFlushMsg{}
	})
}

// animFrameCmd schedules the next smooth-scroll frame.
func animFrameCmd(seq int) tea.Cmd {
	return tea.Tick(16*time.Millisecond, func(time.Time) tea.Msg {
		return animFrameMsg{seq: seq}
	})
}
