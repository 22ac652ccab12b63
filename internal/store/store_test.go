// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/docsmith-tui/internal/model"
)

// ts builds a deterministic timestamp n seconds past a fixed epoch.
func ts(n int) time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(n) * time.Second)
}

func msgAt(role model.Role, content string, at time.Time) *model.Message {
	m := &model.Message{ID: content, Role: role, Content: content, SentAt: at}
	return m
}

func cardAt(id string, status model.CardStatus, at time.Time) *model.Card {
	return &model.Card{ID: id, Side: model.RoleUser, JobID: "j-" + id, JobStatus: status, Timestamp: at}
}

// =============================================================================
// STREAMING MUTATION
// =============================================================================

func TestOptimisticUserAppend(t *testing.T) {
	s := New()
	msg := s.AppendOptimisticUser("hello")

	require.Equal(t, 1, s.Len())
	assert.Equal(t, model.RoleUser, msg.Role)
	assert.True(t, msg.Pending)
	assert.False(t, msg.SentAt.IsZero())
}

func TestBeginAssistantTurnIdempotent(t *testing.T) {
	s := New()
	first := s.BeginAssistantTurn()
	second := s.BeginAssistantTurn()

	assert.Same(t, first, second, "repeated calls within one stream must return the same turn")
	assert.Equal(t, 1, s.Len())
}

func TestAppendToOpenTurnReplacesContent(t *testing.T) {
	s := New()
	s.BeginAssistantTurn()
	s.AppendToOpenTurn("Hi ")
	s.AppendToOpenTurn("there")

	msgs := s.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "Hi there", msgs[0].Content)
}

func TestAppendToOpenTurnAdHocCreation(t *testing.T) {
	s := New()
	// Caller skipped BeginAssistantTurn; data must not be lost.
	s.AppendToOpenTurn("stray delta")

	msgs := s.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, model.RoleAssistant, msgs[0].Role)
	assert.Equal(t, "stray delta", msgs[0].Content)
	assert.NotNil(t, s.OpenTurn())
}

func TestCloseTurnClearsOpenReference(t *testing.T) {
	s := New()
	s.BeginAssistantTurn()
	s.CloseTurn()

	assert.Nil(t, s.OpenTurn())
	// A new stream gets a fresh turn.
	next := s.BeginAssistantTurn()
	assert.Equal(t, 2, s.Len())
	assert.Empty(t, next.Content)
}

// =============================================================================
// ORDERING PROPERTIES
// =============================================================================

func TestMergeOlderBatchGlobalOrdering(t *testing.T) {
	s := New()
	s.MergeOlderBatch([]*model.Message{
		msgAt(model.RoleUser, "c", ts(30)),
		msgAt(model.RoleAssistant, "a", ts(10)),
		msgAt(model.RoleUser, "b", ts(20)),
	})

	var got []string
	for _, m := range s.Messages() {
		got = append(got, m.Content)
	}
	assert.Equal(t, []string{"a", "b", "c"}, got, "store must sort ascending by timestamp")
}

func TestSortStabilityForMissingTimestamps(t *testing.T) {
	s := New()
	// No timestamps anywhere: relative input order is the only order.
	s.MergeOlderBatch([]*model.Message{
		{ID: "1", Role: model.RoleUser, Content: "first"},
		{ID: "2", Role: model.RoleAssistant, Content: "second"},
		{ID: "3", Role: model.RoleUser, Content: "third"},
	})

	var got []string
	for _, m := range s.Messages() {
		got = append(got, m.Content)
	}
	assert.Equal(t, []string{"first", "second", "third"}, got)
}

func TestDescendingPageReversedNotScrambled(t *testing.T) {
	s := New()
	// Server returned newest-first; detection must reverse, preserving rows.
	s.MergeOlderBatch([]*model.Message{
		msgAt(model.RoleAssistant, "newest", ts(30)),
		msgAt(model.RoleAssistant, "middle", ts(20)),
		msgAt(model.RoleUser, "oldest", ts(10)),
	})

	msgs := s.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "oldest", msgs[0].Content)
	assert.Equal(t, "middle", msgs[1].Content)
	assert.Equal(t, "newest", msgs[2].Content)
}

func TestUntimestampedEntriesSortFirstStably(t *testing.T) {
	s := New()
	// Entries with no timestamp key to zero and sort ahead of
	// timestamped peers, keeping their own relative order.
	s.MergeOlderBatch([]*model.Message{
		msgAt(model.RoleUser, "timestamped", ts(10)),
		{ID: "a", Role: model.RoleUser, Content: "bare-a"},
		{ID: "b", Role: model.RoleAssistant, Content: "bare-b"},
	})

	var got []string
	for _, m := range s.Messages() {
		got = append(got, m.Content)
	}
	assert.Equal(t, []string{"bare-a", "bare-b", "timestamped"}, got)
}

func TestOpenTurnStaysLastDuringMerges(t *testing.T) {
	s := New()
	s.AppendOptimisticUser("question")
	turn := s.BeginAssistantTurn()
	s.AppendToOpenTurn("partial answ")

	// A card with a far-future timestamp arrives mid-stream. Strict
	// ordering is relaxed for the open turn: it stays logically last.
	s.MergeCards([]*model.Card{cardAt("c1", model.CardStatusRunning, time.Now().Add(time.Hour))})

	msgs := s.Messages()
	assert.Same(t, turn, msgs[len(msgs)-1])
}

// =============================================================================
// CARD MERGE PROPERTIES
// =============================================================================

func TestMergeCardsIdempotent(t *testing.T) {
	s := New()
	card := cardAt("c1", model.CardStatusRunning, ts(5))

	s.MergeCards([]*model.Card{card})
	lenAfterFirst := s.Len()
	contentAfterFirst := s.CardMessage("c1").Card.JobStatus

	s.MergeCards([]*model.Card{card})
	assert.Equal(t, lenAfterFirst, s.Len(), "identical merge must not change length")
	assert.Equal(t, contentAfterFirst, s.CardMessage("c1").Card.JobStatus)
}

func TestMergeCardsUpdatePreservesAbsentFields(t *testing.T) {
	s := New()
	first := cardAt("c1", model.CardStatusRunning, ts(5))
	first.Template = "quarterly-report"
	s.MergeCards([]*model.Card{first})

	// Completion update carries no template; it must survive.
	s.MergeCards([]*model.Card{{ID: "c1", JobStatus: model.CardStatusDone, Filename: "out.docx"}})

	got := s.CardMessage("c1").Card
	assert.Equal(t, model.CardStatusDone, got.JobStatus)
	assert.Equal(t, "out.docx", got.Filename)
	assert.Equal(t, "quarterly-report", got.Template)
	assert.Equal(t, "j-c1", got.JobID)
}

func TestMergeCardsNeverDuplicates(t *testing.T) {
	s := New()
	s.MergeCards([]*model.Card{cardAt("c1", model.CardStatusRunning, ts(1))})
	s.MergeCards([]*model.Card{cardAt("c1", model.CardStatusDone, ts(2))})

	count := 0
	for _, m := range s.Messages() {
		if m.Card != nil && m.Card.ID == "c1" {
			count++
		}
	}
	assert.Equal(t, 1, count, "exactly one message may hold a given card id")
}

func TestMergeCardsLeavesHeldSnapshotsUntouched(t *testing.T) {
	s := New()
	s.MergeCards([]*model.Card{cardAt("c1", model.CardStatusRunning, ts(1))})

	// The render goroutine holds this snapshot across the poller's
	// status flip; its card must not change under it.
	snapshot := s.Messages()
	require.Len(t, snapshot, 1)
	held := snapshot[0]

	s.MergeCards([]*model.Card{{ID: "c1", JobStatus: model.CardStatusDone}})

	assert.Equal(t, model.CardStatusRunning, held.Card.JobStatus,
		"held snapshot mutated by a concurrent merge")
	assert.Equal(t, model.CardStatusDone, s.CardMessage("c1").Card.JobStatus)
	assert.NotSame(t, held, s.CardMessage("c1"),
		"merged card entry must be a fresh message value")
}

// =============================================================================
// RECONCILIATION
// =============================================================================

func TestReconcileReplacesOptimisticEntries(t *testing.T) {
	s := New()
	s.AppendOptimisticUser("hello")
	s.BeginAssistantTurn()
	s.AppendToOpenTurn("Hi there")

	authoritative := []*model.Message{
		msgAt(model.RoleUser, "hello", ts(1)),
		msgAt(model.RoleAssistant, "Hi there", ts(2)),
	}
	authoritative[0].ID = "backend-1"
	authoritative[1].ID = "backend-2"
	s.ReconcileWithAuthoritative(authoritative)

	msgs := s.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "backend-1", msgs[0].ID, "optimistic entries replaced by persisted identities")
	assert.False(t, msgs[0].Pending)
	assert.Nil(t, s.OpenTurn(), "reconciliation ends the streaming exemption")
}

func TestReconcileReattachesLocalOnlyCards(t *testing.T) {
	s := New()
	s.MergeCards([]*model.Card{cardAt("local-card", model.CardStatusRunning, ts(5))})
	s.AppendOptimisticUser("hello")

	s.ReconcileWithAuthoritative([]*model.Message{
		msgAt(model.RoleUser, "hello", ts(1)),
	})

	require.NotNil(t, s.CardMessage("local-card"), "client-side cards must survive reconciliation")
	assert.Equal(t, 2, s.Len())
}

func TestReconcileDropsSupersededLocalCardCopies(t *testing.T) {
	s := New()
	s.MergeCards([]*model.Card{cardAt("c1", model.CardStatusRunning, ts(5))})

	persisted := model.NewCardMessage(cardAt("c1", model.CardStatusDone, ts(5)))
	s.ReconcileWithAuthoritative([]*model.Message{persisted})

	require.Equal(t, 1, s.Len(), "backend-visible card replaces the local copy, no duplicate")
	assert.Equal(t, model.CardStatusDone, s.CardMessage("c1").Card.JobStatus)
}

// =============================================================================
// MUTATION EVENTS
// =============================================================================

func TestOnMutatedFiresForEveryMutation(t *testing.T) {
	s := New()
	calls := 0
	s.OnMutated(func() { calls++ })

	s.AppendOptimisticUser("a")
	s.BeginAssistantTurn()
	s.AppendToOpenTurn("x")
	s.CloseTurn()
	s.MergeCards([]*model.Card{cardAt("c1", model.CardStatusRunning, ts(1))})
	s.MergeOlderBatch([]*model.Message{msgAt(model.RoleUser, "old", ts(0))})
	s.Clear()

	assert.Equal(t, 7, calls)
}
