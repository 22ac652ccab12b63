// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api is the HTTP client for the Docsmith workspace backend.
//
// It covers the four collaborator surfaces the chat engine consumes:
// the streaming chat endpoint (plus its synchronous fallback), the
// paginated thread history, the background job feed, and the card
// persistence sink. Heterogeneous backend message shapes are normalized
// here, at the boundary, into the canonical model.Message; nothing
// downstream probes wire fields.
package api
