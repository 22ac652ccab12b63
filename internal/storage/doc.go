// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the local SQLite cache of thread history.
//
// The cache is a warm-start optimization only: a reopened session
// paints its last known transcript immediately while the first backend
// fetch is in flight, and the authoritative reload then replaces it.
// The backend always wins; nothing here is a source of truth.
package storage
