// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// STREAM STATE
// =============================================================================

// State is one phase of the stream lifecycle.
type State int

const (
	// StateIdle means no stream is active; a send may proceed.
	StateIdle State = iota

	// StateConnecting means a stream request is in flight but the
	// response has not yet been confirmed OK with a readable body.
	StateConnecting

	// StateStreaming means frames are being consumed.
	StateStreaming
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateConnecting:
		return "Connecting"
	case StateStreaming:
		return "Streaming"
	default:
		return "Unknown"
	}
}

// Outcome records how the last stream settled.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeCompleted
	OutcomeFailed
)

// =============================================================================
// SESSION GUARD
// =============================================================================

// Guard enforces the one mandatory mutual-exclusion invariant: at most
// one active stream per session. Terminal states (Completed, Failed)
// settle back to Idle unconditionally so the next send can always
// proceed.
type Guard struct {
	mu sync.Mutex

	sessionID string
	state     State
	outcome   Outcome

	// cancel aborts the active stream's read loop. Set while a stream
	// is open, cleared on settle.
	cancel context.CancelFunc

	// lastActivity feeds the typing-pause heuristic for job polling.
	lastActivity time.Time
}

// NewGuard creates a guard in the Idle state.
func NewGuard() *Guard {
	return &Guard{
		sessionID:    uuid.New().String(),
		state:        StateIdle,
		lastActivity: time.Now(),
	}
}

// SessionID returns the stable identifier for this session.
func (g *Guard) SessionID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sessionID
}

// State returns the current lifecycle state.
func (g *Guard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Outcome returns how the last stream settled.
func (g *Guard) Outcome() Outcome {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.outcome
}

// =============================================================================
// LIFECYCLE TRANSITIONS
// =============================================================================

// BeginSend attempts Idle -> Connecting. Returns false when a stream is
// already active for this session; the caller must neither open a
// second stream nor duplicate the optimistic user message.
func (g *Guard) BeginSend(cancel context.CancelFunc) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != StateIdle {
		return false
	}
	g.state = StateConnecting
	g.outcome = OutcomeNone
	g.cancel = cancel
	return true
}

// MarkStreaming records Connecting -> Streaming, once the response is
// confirmed OK with a readable body.
func (g *Guard) MarkStreaming() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == StateConnecting {
		g.state = StateStreaming
	}
}

// Complete settles Streaming -> Completed -> Idle.
func (g *Guard) Complete() {
	g.settle(OutcomeCompleted)
}

// Fail settles {Connecting, Streaming} -> Failed -> Idle. Used for
// decode errors, network errors, non-OK responses after the fallback
// also failed, and aborts.
func (g *Guard) Fail() {
	g.settle(OutcomeFailed)
}

// Abort cancels the active stream's read loop, if any, and settles to
// Idle through Failed. Safe to call when no stream is active.
func (g *Guard) Abort() {
	g.mu.Lock()
	cancel := g.cancel
	active := g.state != StateIdle
	g.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if active {
		g.settle(OutcomeFailed)
	}
}

// Streaming reports whether a stream is currently active (either
// connecting or consuming frames).
func (g *Guard) Streaming() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state == StateConnecting || g.state == StateStreaming
}

func (g *Guard) settle(outcome Outcome) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = StateIdle
	g.outcome = outcome
	g.cancel = nil
}

// =============================================================================
// ACTIVITY TRACKING
// =============================================================================

// RecordActivity updates the activity clock. Called on every keypress.
func (g *Guard) RecordActivity() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastActivity = time.Now()
}

// IdleTime returns how long since the last recorded activity.
func (g *Guard) IdleTime() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	return time.Since(g.lastActivity)
}

// TypingRecently reports whether activity was recorded within the
// given threshold. The job poller skips cycles while this is true so
// the fetch/parse/re-render cycle never causes perceptible input lag.
func (g *Guard) TypingRecently(threshold time.Duration) bool {
	return g.IdleTime() < threshold
}
