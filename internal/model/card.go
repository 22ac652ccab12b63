// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "time"

// =============================================================================
// CARD STATUS
// =============================================================================

// CardStatus represents the lifecycle state of a generation job as
// reflected on its cards.
type CardStatus string

const (
	CardStatusRunning   CardStatus = "running"
	CardStatusDone      CardStatus = "done"
	CardStatusError     CardStatus = "error"
	CardStatusCancelled CardStatus = "cancelled"
)

// String returns the string representation of the status.
func (s CardStatus) String() string {
	return string(s)
}

// Terminal reports whether the status is a final state. The store does
// not enforce monotone transitions; the job feed is taken at its word.
func (s CardStatus) Terminal() bool {
	switch s {
	case CardStatusDone, CardStatusError, CardStatusCancelled:
		return true
	}
	return false
}

// =============================================================================
// CARD TYPE
// =============================================================================

// ReplySuffix is appended to a request card's ID to derive the ID of
// the paired response card. Two cards, one correlation key.
const ReplySuffix = "-reply"

// Card is a synthetic representation of an out-of-band generation job,
// displayed in place of the hidden raw prompt/response pair.
//
// Exactly one message holds a given card ID at any time; merging by ID
// must never produce duplicates.
type Card struct {
	// ID is stable per job-facing event. A job's request card uses the
	// bare ID, its response card ID + ReplySuffix.
	ID string `json:"id"`

	// Side is which side of the conversation the card renders on.
	Side Role `json:"side"`

	JobID     string     `json:"jobId"`
	JobStatus CardStatus `json:"jobStatus"`

	Filename  string    `json:"filename,omitempty"`
	Template  string    `json:"template,omitempty"`
	AIContext string    `json:"aiContext,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ReplyID returns the ID of the response card paired with this card.
func (c *Card) ReplyID() string {
	return c.ID + ReplySuffix
}

// Merge overlays upd onto c: fields set in upd overwrite, fields absent
// in upd are preserved. The ID never changes.
func (c *Card) Merge(upd *Card) {
	if upd.Side != "" {
		c.Side = upd.Side
	}
	if upd.JobID != "" {
		c.JobID = upd.JobID
	}
	if upd.JobStatus != "" {
		c.JobStatus = upd.JobStatus
	}
	if upd.Filename != "" {
		c.Filename = upd.Filename
	}
	if upd.Template != "" {
		c.Template = upd.Template
	}
	if upd.AIContext != "" {
		c.AIContext = upd.AIContext
	}
	if !upd.Timestamp.IsZero() {
		c.Timestamp = upd.Timestamp
	}
}
