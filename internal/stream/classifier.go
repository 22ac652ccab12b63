// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import "strings"

// =============================================================================
// PROGRESS TAG REGISTRY
// =============================================================================

// progressTag maps a recognized prefix to its display label. A line is
// progress iff its trimmed text starts with one of these prefixes.
type progressTag struct {
	prefix string
	label  string
}

// progressTags is the fixed registry of recognized progress prefixes:
// bracketed tokens emitted by the generation pipeline plus the small
// set of status glyphs the agent layer prefixes to its notices.
var progressTags = []progressTag{
	{prefix: "[STEP]", label: "Working"},
	{prefix: "[PROGRESS]", label: "Working"},
	{prefix: "[STATUS]", label: "Status"},
	{prefix: "[AGENT]", label: "Agent"},
	{prefix: "[TOOL]", label: "Tool"},
	{prefix: "⚙", label: "Working"},
	{prefix: "⏳", label: "Waiting"},
	{prefix: "✓", label: "Done"},
}

// =============================================================================
// CLASSIFICATION RESULT
// =============================================================================

// Result is the outcome of classifying one decoded delta.
type Result struct {
	// Content is the durable text to append to the open turn, verbatim.
	// Empty when the delta carried only progress or keepalive data.
	Content string

	// Progress is the transformed status string when the delta carried
	// at least one progress line (last one wins), else "".
	Progress string
}

// IsEmpty reports whether the delta carried nothing at all.
func (r Result) IsEmpty() bool {
	return r.Content == "" && r.Progress == ""
}

// =============================================================================
// DELTA CLASSIFIER
// =============================================================================

// Classifier splits decoded deltas into progress annotations and
// durable content. Progress annotations replace a single current-status
// slot that the UI renders as an ephemeral indicator under the open
// turn; they are never appended to durable content.
//
// Classification is line-wise: a delta may interleave progress lines
// with real content (e.g. "[STEP] compiling\nHere is the draft"), and
// only the content lines survive into the transcript.
type Classifier struct {
	status string
}

// NewClassifier creates a classifier with an empty status slot.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify examines one delta. Empty keepalive fragments produce an
// empty Result before any classification happens.
func (c *Classifier) Classify(delta string) Result {
	if strings.TrimSpace(delta) == "" {
		return Result{}
	}

	// Fast path: no line of this delta starts with a progress prefix.
	if !c.hasProgressLine(delta) {
		return Result{Content: delta}
	}

	var content []string
	var res Result
	for _, line := range strings.Split(delta, "\n") {
		if status, ok := classifyLine(line); ok {
			c.status = status
			res.Progress = status
			continue
		}
		content = append(content, line)
	}
	res.Content = strings.Join(content, "\n")
	return res
}

// Status returns the current ephemeral status, or "" when none has
// arrived yet.
func (c *Classifier) Status() string {
	return c.status
}

// Reset clears the status slot. Called when a stream completes so a
// stale annotation never outlives its turn.
func (c *Classifier) Reset() {
	c.status = ""
}

// hasProgressLine reports whether any line of the delta is a progress
// annotation.
func (c *Classifier) hasProgressLine(delta string) bool {
	for _, line := range strings.Split(delta, "\n") {
		if _, ok := classifyLine(line); ok {
			return true
		}
	}
	return false
}

// classifyLine matches one line against the registry. Returns the
// transformed status (prefix stripped, glyph substituted by its label)
// and whether the line was progress.
func classifyLine(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	for _, tag := range progressTags {
		if strings.HasPrefix(trimmed, tag.prefix) {
			detail := strings.TrimSpace(strings.TrimPrefix(trimmed, tag.prefix))
			if detail == "" {
				return tag.label, true
			}
			return tag.label + ": " + detail, true
		}
	}
	return "", false
}
