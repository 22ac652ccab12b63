// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads, validates and watches the docsmith-tui TOML
// configuration file.
//
// Configuration lives at ~/.docsmith/config.toml with sensible defaults
// and DOCSMITH_* environment variable overrides. The file is watched
// with fsnotify so edits apply without restarting the TUI.
package config
