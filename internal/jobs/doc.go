// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package jobs bridges the backend's background document-generation
// jobs into the chat transcript as card pairs.
//
// A poll loop, independent of the chat stream's lifecycle, watches the
// job feed. When a job first appears it is rendered as two synthetic
// cards sharing a correlation key: a user-side request card and an
// assistant-side response card. Completion flips the response card's
// status and attaches the output filename; the request card is left
// alone. Polling pauses entirely while the user is typing so the
// fetch/parse/re-render cycle never causes input lag.
package jobs
