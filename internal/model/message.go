// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Workspace"
	default:
		return string(r)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single chat turn.
//
// A message is created optimistically on send (user) or on the first
// streamed delta (assistant). Its Content is mutable only while the turn
// is the store's open streaming target; once the stream completes and
// the store reconciles against backend data, the optimistic entry is
// superseded, never edited.
type Message struct {
	// Identity
	ID   string `json:"id"`
	Role Role   `json:"role"`

	// SentAt is the best available timestamp for ordering, resolved at
	// the API boundary. Assigned at creation, never reassigned. A zero
	// value sorts before all timestamped entries, ties broken by
	// arrival order.
	SentAt time.Time `json:"sentAt"`

	// Content is the durable text of the turn. During streaming it is
	// replaced wholesale (prior + delta), not diff-patched.
	Content string `json:"content"`

	// Card is set on synthetic turns standing in for a hidden raw
	// generation exchange. A card-bearing message has empty Content.
	Card *Card `json:"card,omitempty"`

	// SailpointMetadata is an opaque side-channel present on certain
	// assistant turns. Carried verbatim, never interpreted or mutated.
	SailpointMetadata json.RawMessage `json:"sailpointMetadata,omitempty"`

	// Raw is the original backend payload for backend-sourced entries,
	// kept for the export manifest. Empty for locally created turns.
	Raw json.RawMessage `json:"-"`

	// Pending marks an optimistic local entry that has not yet been
	// replaced by a backend-persisted row.
	Pending bool `json:"-"`
}

// NewUserMessage creates an optimistic user turn stamped now.
func NewUserMessage(content string) *Message {
	return &Message{
		ID:      uuid.New().String(),
		Role:    RoleUser,
		Content: content,
		SentAt:  time.Now(),
		Pending: true,
	}
}

// NewAssistantMessage creates an empty assistant turn ready to receive
// streamed deltas.
func NewAssistantMessage() *Message {
	return &Message{
		ID:      uuid.New().String(),
		Role:    RoleAssistant,
		SentAt:  time.Now(),
		Pending: true,
	}
}

// NewCardMessage wraps a card in a synthetic turn. The turn's timestamp
// is the card's own.
func NewCardMessage(card *Card) *Message {
	return &Message{
		ID:     uuid.New().String(),
		Role:   Role(card.Side),
		SentAt: card.Timestamp,
		Card:   card,
	}
}

// IsCard reports whether this turn is a synthetic card turn.
func (m *Message) IsCard() bool {
	return m.Card != nil
}

// Clone returns a shallow copy with a deep-copied card, so callers can
// hand messages across goroutine boundaries without sharing card state.
func (m *Message) Clone() *Message {
	dup := *m
	if m.Card != nil {
		card := *m.Card
		dup.Card = &card
	}
	return &dup
}
