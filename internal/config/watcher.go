// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// =============================================================================
// CONFIG FILE WATCHER
// =============================================================================

// DefaultDebounce coalesces editor write bursts into one reload.
const DefaultDebounce = 500 * time.Millisecond

// Watcher reloads the config file when it changes on disk and hands the
// fresh config to a callback. Editors often replace files via
// rename-over, so the parent directory is watched rather than the file
// itself.
type Watcher struct {
	path     string
	debounce time.Duration
	onReload func(*Config)
	logger   *slog.Logger

	watcher *fsnotify.Watcher
	stop    chan struct{}
	wg      sync.WaitGroup

	mu      sync.Mutex
	pending *time.Timer
}

// NewWatcher creates a watcher for the config file at path. onReload is
// invoked from the watcher goroutine with each successfully parsed
// config; failed parses are logged and skipped.
func NewWatcher(path string, logger *slog.Logger, onReload func(*Config)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch config directory: %w", err)
	}

	w := &Watcher{
		path:     path,
		debounce: DefaultDebounce,
		onReload: onReload,
		logger:   logger,
		watcher:  fw,
		stop:     make(chan struct{}),
	}
	w.wg.Add(1)
	go w.processEvents()
	return w, nil
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.scheduleReload()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", "error", err)
		case <-w.stop:
			return
		}
	}
}

// scheduleReload arms (or re-arms) the debounce timer.
func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending != nil {
		w.pending.Stop()
	}
	w.pending = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) reload() {
	cfg, err := LoadFromPath(w.path)
	if err != nil {
		w.logger.Warn("config reload skipped", "path", w.path, "error", err)
		return
	}
	w.logger.Info("config reloaded", "path", w.path)
	w.onReload(cfg)
}

// Close stops watching. Pending debounced reloads are cancelled.
func (w *Watcher) Close() error {
	close(w.stop)
	w.mu.Lock()
	if w.pending != nil {
		w.pending.Stop()
	}
	w.mu.Unlock()
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}
