// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the Bubble Tea chat surface for docsmith-tui.
//
// The model owns the viewport, input area and spinner; domain state lives
// in the message store, session guard, job correlator and history window,
// which the model drives through commands and reacts to through messages.
// Scroll behavior and the render cap are isolated in ScrollController and
// RenderWindow so they can be tested without a terminal.
package chat
