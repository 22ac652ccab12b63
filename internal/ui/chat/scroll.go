// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"sync"
	"time"
)

// =============================================================================
// SCROLL CONTROLLER
// =============================================================================

const (
	// bottomEpsilonLines is how close to the bottom still counts as "at
	// bottom" for auto-follow purposes.
	bottomEpsilonLines = 2

	// streamScrollDebounce coalesces scroll-to-bottom requests during
	// token streaming. Tokens can arrive hundreds of times per second;
	// one jump per window keeps up without flooding the render loop.
	streamScrollDebounce = 50 * time.Millisecond
)

// ScrollAction tells the view layer how to move the viewport.
type ScrollAction int

const (
	// ScrollNone leaves the viewport alone.
	ScrollNone ScrollAction = iota
	// ScrollJump snaps to the bottom immediately.
	ScrollJump
	// ScrollAnimate scrolls to the bottom smoothly.
	ScrollAnimate
)

// ScrollController decides when and how the viewport follows new content,
// independent of what that content is.
//
// While the user is at the bottom every store mutation schedules a
// scroll-to-bottom: an immediate jump during active streaming (debounced),
// an animated scroll otherwise. Scrolling away from the bottom stops
// auto-follow until the user returns via the scroll-to-bottom key or a new
// send resets the intent.
//
// Thread-safety: mutations arrive from the stream reader and the job
// poller while scroll events come from the Bubble Tea loop, so state is
// mutex-guarded.
type ScrollController struct {
	mu        sync.Mutex
	atBottom  bool
	follow    bool
	streaming bool

	lastScroll time.Time
	pending    bool

	// animSeq invalidates in-flight animations: each new animation gets
	// a fresh sequence number and stale frames are dropped.
	animSeq int
}

// NewScrollController creates a controller in the following state.
func NewScrollController() *ScrollController {
	return &ScrollController{atBottom: true, follow: true}
}

// OnScroll records a viewport scroll event. distanceFromBottom is in
// lines; within a small epsilon counts as bottom. Scrolling away disables
// auto-follow, returning to the bottom by hand re-enables it.
func (s *ScrollController) OnScroll(distanceFromBottom int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wasAtBottom := s.atBottom
	s.atBottom = distanceFromBottom <= bottomEpsilonLines
	if !s.atBottom {
		s.follow = false
	} else if !wasAtBottom {
		s.follow = true
	}
}

// OnSend resets follow intent: a new send always snaps to the bottom.
func (s *ScrollController) OnSend() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.follow = true
	s.atBottom = true
	s.pending = false
}

// JumpToBottom is the manual scroll-to-bottom affordance.
func (s *ScrollController) JumpToBottom() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.follow = true
	s.atBottom = true
	s.pending = false
}

// SetStreaming toggles streaming mode. Leaving streaming mode flushes
// nothing by itself; a trailing pending scroll is picked up by Flush.
func (s *ScrollController) SetStreaming(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streaming = on
}

// OnMutation reports how to react to a content mutation. During streaming
// the jump is debounced: at most one per window, the rest marked pending
// for a later Flush.
func (s *ScrollController) OnMutation() ScrollAction {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.follow {
		return ScrollNone
	}
	if !s.streaming {
		return ScrollAnimate
	}

	now := time.Now()
	if now.Sub(s.lastScroll) >= streamScrollDebounce {
		s.lastScroll = now
		s.pending = false
		return ScrollJump
	}
	s.pending = true
	return ScrollNone
}

// Flush returns ScrollJump when a debounced scroll is still owed, such as
// after the last delta of a burst or at stream end.
func (s *ScrollController) Flush() ScrollAction {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.pending || !s.follow {
		return ScrollNone
	}
	s.pending = false
	s.lastScroll = time.Now()
	return ScrollJump
}

// HasPending reports whether a debounced scroll is waiting.
func (s *ScrollController) HasPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Following reports whether auto-follow is active.
func (s *ScrollController) Following() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.follow
}

// AtBottom reports whether the viewport is at (or within epsilon of) the
// bottom.
func (s *ScrollController) AtBottom() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.atBottom
}

// BeginAnimation invalidates any in-flight animation and returns the
// sequence number for the new one. Frames carrying a stale sequence must
// be dropped by the caller.
func (s *ScrollController) BeginAnimation() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.animSeq++
	return s.animSeq
}

// AnimationCurrent reports whether seq is still the live animation.
func (s *ScrollController) AnimationCurrent(seq int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return seq == s.animSeq && s.follow
}
