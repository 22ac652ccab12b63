// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the application logger.
//
// Output goes to a JSON log file always; a readable text handler on
// stderr is added only when the TUI does not own the terminal, since
// stderr writes would corrupt the alternate screen.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	slogmulti "github.com/samber/slog-multi"
)

// ParseLevel maps a config level string to a slog.Level. Unknown values
// fall back to info.
func ParseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup creates the application logger writing JSON to logFile. When
// tuiAttached is false a text handler on stderr is fanned in as well.
// The returned cleanup closes the log file.
func Setup(logFile string, level slog.Level, tuiAttached bool) (*slog.Logger, func() error, error) {
	if err := os.MkdirAll(filepath.Dir(logFile), 0700); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	fileHandler := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level})

	var logger *slog.Logger
	if tuiAttached {
		logger = slog.New(fileHandler)
	} else {
		stderrHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
		logger = slog.New(slogmulti.Fanout(fileHandler, stderrHandler))
	}

	return logger, file.Close, nil
}

// SetupWithWriters creates a fanout logger over explicit writers, for
// tests.
func SetupWithWriters(file, stderr io.Writer, level slog.Level) *slog.Logger {
	fileHandler := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level})
	stderrHandler := slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})
	return slog.New(slogmulti.Fanout(fileHandler, stderrHandler))
}
