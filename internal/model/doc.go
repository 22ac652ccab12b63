// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat turns, generation
// job cards, and the read-only job projection consumed from the
// workspace backend.
//
// The types here are the single canonical shape for chat data inside
// docsmith-tui. Backend responses are normalized into these types at the
// API boundary (internal/api); nothing downstream probes ad-hoc fields.
package model
