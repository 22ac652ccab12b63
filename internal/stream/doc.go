// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream decodes the workspace backend's chat stream.
//
// The wire format is newline-delimited: a data frame is a line
// beginning with "data:" followed by either a JSON object carrying an
// incremental text delta, a JSON array of such objects (servers may
// batch several logical events into one physical frame), the literal
// [DONE] sentinel, or raw unstructured text. The decoder never fails
// closed on a malformed payload; unparsable lines are yielded as
// literal text.
//
// The package also classifies decoded deltas into ephemeral progress
// annotations versus durable content, so progress chatter never lands
// in the persisted transcript.
package stream
