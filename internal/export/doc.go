// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export renders a thread transcript to a file. A transcript
// manifest is built from the message store in display order, then handed to
// a format-specific exporter (JSON or Markdown). Files are written
// atomically so a crash mid-export never leaves a torn file.
package export
