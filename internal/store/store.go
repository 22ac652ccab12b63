// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"sync"

	"github.com/jeranaias/docsmith-tui/internal/model"
)

// =============================================================================
// MESSAGE STORE
// =============================================================================

// Store is the ordered sequence of chat turns for the active thread.
//
// Invariant: after any externally-sourced merge (card injection,
// pagination backfill, job correlation, reconciliation) the sequence is
// globally sorted ascending by best available timestamp. During active
// streaming the trailing open turn is exempt: it is always logically
// last even if its timestamp momentarily ties others, until the next
// reconciliation pass re-sorts.
type Store struct {
	mu       sync.Mutex
	messages []*model.Message

	// openTurn is the distinguished mutable trailing assistant turn
	// during an active stream. Content mutation is only legal through
	// this reference; it is cleared on stream completion so historical
	// turns can never be accidentally edited.
	openTurn *model.Message

	listeners []func()
}

// New creates an empty store.
func New() *Store {
	return &Store{}
}

// OnMutated registers a listener invoked after every mutation.
// Listeners run outside the store lock and must not assume any
// particular goroutine.
func (s *Store) OnMutated(fn func()) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// notify fires listeners. Caller must NOT hold the lock.
func (s *Store) notify() {
	s.mu.Lock()
	listeners := make([]func(), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

// =============================================================================
// LOCAL STREAMING MUTATION
// =============================================================================

// AppendOptimisticUser creates and appends a user turn stamped now.
// Always succeeds locally.
func (s *Store) AppendOptimisticUser(text string) *model.Message {
	msg := model.NewUserMessage(text)
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
	s.notify()
	return msg
}

// BeginAssistantTurn appends an empty assistant turn iff no open turn
// exists for the current stream. Idempotent within one stream: repeated
// calls return the same turn.
func (s *Store) BeginAssistantTurn() *model.Message {
	s.mu.Lock()
	if s.openTurn != nil {
		turn := s.openTurn
		s.mu.Unlock()
		return turn
	}
	turn := model.NewAssistantMessage()
	s.openTurn = turn
	s.messages = append(s.messages, turn)
	s.mu.Unlock()
	s.notify()
	return turn
}

// AppendToOpenTurn replaces the open turn's content with prior + text.
// Calling this without an open turn is a caller logic error; the store
// tolerates it by creating one ad hoc with the given text so no data
// is lost.
func (s *Store) AppendToOpenTurn(text string) {
	s.mu.Lock()
	if s.openTurn == nil {
		turn := model.NewAssistantMessage()
		turn.Content = text
		s.openTurn = turn
		s.messages = append(s.messages, turn)
		s.mu.Unlock()
		s.notify()
		return
	}
	s.openTurn.Content = s.openTurn.Content + text
	s.mu.Unlock()
	s.notify()
}

// OpenTurn returns the current open turn, or nil.
func (s *Store) OpenTurn() *model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openTurn
}

// CloseTurn ends the streaming exemption: the open turn reference is
// cleared and strict ordering is restored.
func (s *Store) CloseTurn() {
	s.mu.Lock()
	s.openTurn = nil
	sortMessages(s.messages)
	s.mu.Unlock()
	s.notify()
}

// =============================================================================
// EXTERNALLY-SOURCED MERGES
// =============================================================================

// ReconcileWithAuthoritative replaces all non-card entries with the
// authoritative batch fetched after stream completion, while
// re-attaching local-only cards the backend does not yet know about.
// This is how optimistic entries pick up backend-assigned identities
// without losing client-side cards.
func (s *Store) ReconcileWithAuthoritative(batch []*model.Message) {
	normalizePageOrder(batch)

	s.mu.Lock()
	backendCards := make(map[string]bool)
	for _, m := range batch {
		m.Pending = false
		if m.Card != nil {
			backendCards[m.Card.ID] = true
		}
	}

	next := make([]*model.Message, 0, len(batch)+4)
	next = append(next, batch...)
	for _, m := range s.messages {
		if m.Card != nil && !backendCards[m.Card.ID] {
			next = append(next, m)
		}
	}

	s.messages = next
	s.openTurn = nil
	sortMessages(s.messages)
	s.mu.Unlock()
	s.notify()
}

// MergeCards upserts a batch of cards. A card whose ID is already held
// by some message is merge-updated in place (new fields overwrite,
// absent fields preserved); unknown cards are appended as synthetic
// turns. The whole store is re-sorted once after the batch.
func (s *Store) MergeCards(cards []*model.Card) {
	if len(cards) == 0 {
		return
	}

	s.mu.Lock()
	held := make(map[string]*model.Message, len(s.messages))
	for _, m := range s.messages {
		if m.Card != nil {
			held[m.Card.ID] = m
		}
	}

	for _, card := range cards {
		if existing, ok := held[card.ID]; ok {
			// Messages() snapshots share message pointers with the
			// render goroutine, so a merged card entry is replaced
			// wholesale rather than mutated in place.
			upd := existing.Clone()
			upd.Card.Merge(card)
			if !upd.Card.Timestamp.IsZero() {
				upd.SentAt = upd.Card.Timestamp
			}
			s.replaceLocked(existing, upd)
			held[card.ID] = upd
			continue
		}
		dup := *card
		msg := model.NewCardMessage(&dup)
		s.messages = append(s.messages, msg)
		held[card.ID] = msg
	}

	sortMessages(s.messages)
	s.keepOpenTurnLastLocked()
	s.mu.Unlock()
	s.notify()
}

// MergeOlderBatch prepends an older page ahead of current entries. The
// batch is expected to predate current entries, but caller ordering is
// not trusted: order is re-derived from timestamps, stably.
func (s *Store) MergeOlderBatch(batch []*model.Message) {
	if len(batch) == 0 {
		return
	}
	normalizePageOrder(batch)

	s.mu.Lock()
	for _, m := range batch {
		m.Pending = false
	}
	merged := make([]*model.Message, 0, len(batch)+len(s.messages))
	merged = append(merged, batch...)
	merged = append(merged, s.messages...)
	s.messages = merged
	sortMessages(s.messages)
	s.keepOpenTurnLastLocked()
	s.mu.Unlock()
	s.notify()
}

// replaceLocked swaps one message pointer for another, preserving
// position. Caller must hold the lock.
func (s *Store) replaceLocked(old, next *model.Message) {
	for i, m := range s.messages {
		if m == old {
			s.messages[i] = next
			return
		}
	}
}

// keepOpenTurnLastLocked reasserts the streaming exemption after a
// re-sort: the open turn, if any, moves back to the tail.
func (s *Store) keepOpenTurnLastLocked() {
	if s.openTurn == nil {
		return
	}
	for i, m := range s.messages {
		if m == s.openTurn {
			s.messages = append(s.messages[:i], s.messages[i+1:]...)
			s.messages = append(s.messages, s.openTurn)
			return
		}
	}
}

// =============================================================================
// READ ACCESS
// =============================================================================

// Messages returns a snapshot copy of the sequence. The slice is fresh
// but the message pointers are shared; callers needing isolation use
// Clone on individual entries.
func (s *Store) Messages() []*model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len returns the number of turns.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// CardMessage returns the message holding the given card ID, or nil.
func (s *Store) CardMessage(cardID string) *model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.messages {
		if m.Card != nil && m.Card.ID == cardID {
			return m
		}
	}
	return nil
}

// Clear empties the store. Used when switching thread or workspace.
func (s *Store) Clear() {
	s.mu.Lock()
	s.messages = nil
	s.openTurn = nil
	s.mu.Unlock()
	s.notify()
}
