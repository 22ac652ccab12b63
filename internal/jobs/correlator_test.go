// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/docsmith-tui/internal/model"
	"github.com/jeranaias/docsmith-tui/internal/store"
)

// =============================================================================
// TEST DOUBLES
// =============================================================================

type fakeFeed struct {
	mu   sync.Mutex
	jobs []*model.Job
	err  error
}

func (f *fakeFeed) FetchJobs(_ context.Context, _ string) ([]*model.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]*model.Job, len(f.jobs))
	copy(out, f.jobs)
	return out, nil
}

func (f *fakeFeed) set(jobs ...*model.Job) {
	f.mu.Lock()
	f.jobs = jobs
	f.mu.Unlock()
}

func (f *fakeFeed) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

type fakeSink struct {
	mu      sync.Mutex
	upserts []model.Card
}

func (s *fakeSink) UpsertCard(_ context.Context, _ string, card *model.Card) error {
	s.mu.Lock()
	s.upserts = append(s.upserts, *card)
	s.mu.Unlock()
	return nil
}

func (s *fakeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.upserts)
}

type idleClock struct{ typing bool }

func (c idleClock) TypingRecently(time.Duration) bool { return c.typing }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestCorrelator(feed Feed, sink Sink, st *store.Store, clock ActivityClock) *Correlator {
	return NewCorrelator(feed, sink, st, clock, testLogger(), Config{Workspace: "ws-1"})
}

func jobAt(id string, status model.CardStatus, updated time.Time) *model.Job {
	return &model.Job{
		ID:          id,
		WorkspaceID: "ws-1",
		Status:      status,
		CreatedAt:   updated.Add(-time.Minute),
		UpdatedAt:   updated,
	}
}

// =============================================================================
// CARD PAIR SYNTHESIS
// =============================================================================

func TestNewJobInjectsCardPair(t *testing.T) {
	st := store.New()
	feed := &fakeFeed{}
	sink := &fakeSink{}
	c := newTestCorrelator(feed, sink, st, idleClock{})

	feed.set(jobAt("j1", model.CardStatusRunning, time.Now()))
	c.PollOnce(context.Background())

	request := st.CardMessage("j1")
	response := st.CardMessage("j1" + model.ReplySuffix)
	require.NotNil(t, request)
	require.NotNil(t, response)

	assert.Equal(t, model.RoleUser, request.Card.Side)
	assert.Equal(t, model.RoleAssistant, response.Card.Side)
	assert.Equal(t, model.CardStatusRunning, request.Card.JobStatus)
	assert.Equal(t, model.CardStatusRunning, response.Card.JobStatus)
	assert.Equal(t, request.Card.Timestamp, response.Card.Timestamp, "pair is timestamped together")

	assert.Eventually(t, func() bool { return sink.count() == 2 },
		time.Second, 10*time.Millisecond, "both cards persisted best-effort")
}

func TestLifecycleDedup(t *testing.T) {
	st := store.New()
	feed := &fakeFeed{}
	c := newTestCorrelator(feed, &fakeSink{}, st, idleClock{})

	countCards := func() (req, resp int) {
		for _, m := range st.Messages() {
			switch {
			case m.Card == nil:
			case m.Card.ID == "j1":
				req++
			case m.Card.ID == "j1"+model.ReplySuffix:
				resp++
			}
		}
		return
	}

	// created -> running -> done: exactly one message per card at every point.
	for _, status := range []model.CardStatus{model.CardStatusRunning, model.CardStatusRunning, model.CardStatusDone} {
		feed.set(jobAt("j1", status, time.Now()))
		c.PollOnce(context.Background())

		req, resp := countCards()
		assert.Equal(t, 1, req, "exactly one request card at status %s", status)
		assert.Equal(t, 1, resp, "exactly one response card at status %s", status)
	}
}

func TestCompletionUpdatesResponseCardOnly(t *testing.T) {
	st := store.New()
	feed := &fakeFeed{}
	c := newTestCorrelator(feed, &fakeSink{}, st, idleClock{})

	feed.set(jobAt("j1", model.CardStatusRunning, time.Now()))
	c.PollOnce(context.Background())
	requestBefore := *st.CardMessage("j1").Card

	done := jobAt("j1", model.CardStatusDone, time.Now())
	done.File = "out.docx"
	feed.set(done)
	c.PollOnce(context.Background())

	response := st.CardMessage("j1" + model.ReplySuffix).Card
	assert.Equal(t, model.CardStatusDone, response.JobStatus)
	assert.Equal(t, "out.docx", response.Filename)

	requestAfter := st.CardMessage("j1").Card
	assert.Equal(t, requestBefore.JobStatus, requestAfter.JobStatus, "request card status unchanged")
	assert.Equal(t, requestBefore.Filename, requestAfter.Filename)
}

func TestTerminalStatusOnFirstSight(t *testing.T) {
	st := store.New()
	feed := &fakeFeed{}
	c := newTestCorrelator(feed, &fakeSink{}, st, idleClock{})

	// Poller was offline while the job ran to completion.
	done := jobAt("j1", model.CardStatusDone, time.Now())
	done.File = "late.docx"
	feed.set(done)
	c.PollOnce(context.Background())

	response := st.CardMessage("j1" + model.ReplySuffix).Card
	assert.Equal(t, model.CardStatusDone, response.JobStatus)
	assert.Equal(t, "late.docx", response.Filename)
}

// =============================================================================
// POLL BEHAVIOR
// =============================================================================

func TestPollSkippedWhileTyping(t *testing.T) {
	st := store.New()
	feed := &fakeFeed{}
	c := newTestCorrelator(feed, &fakeSink{}, st, idleClock{typing: true})

	feed.set(jobAt("j1", model.CardStatusRunning, time.Now()))
	c.PollOnce(context.Background())

	assert.Equal(t, 0, st.Len(), "typing pause must skip the whole cycle")
}

func TestPollFailureDegradesSilently(t *testing.T) {
	st := store.New()
	feed := &fakeFeed{err: errors.New("connection refused")}
	c := newTestCorrelator(feed, &fakeSink{}, st, idleClock{})

	c.PollOnce(context.Background())
	assert.Equal(t, 0, st.Len())
}

func TestWorkspaceFilter(t *testing.T) {
	st := store.New()
	feed := &fakeFeed{}
	c := newTestCorrelator(feed, &fakeSink{}, st, idleClock{})

	other := jobAt("j2", model.CardStatusRunning, time.Now())
	other.WorkspaceID = "ws-other"
	feed.set(jobAt("j1", model.CardStatusRunning, time.Now()), other)
	c.PollOnce(context.Background())

	assert.NotNil(t, st.CardMessage("j1"))
	assert.Nil(t, st.CardMessage("j2"), "jobs from other workspaces are invisible")
}

func TestLatestJobSortedByUpdateDescending(t *testing.T) {
	st := store.New()
	feed := &fakeFeed{}
	c := newTestCorrelator(feed, &fakeSink{}, st, idleClock{})

	now := time.Now()
	feed.set(
		jobAt("old", model.CardStatusDone, now.Add(-time.Hour)),
		jobAt("new", model.CardStatusRunning, now),
	)
	c.PollOnce(context.Background())

	require.NotNil(t, c.LatestJob())
	assert.Equal(t, "new", c.LatestJob().ID)
}

func TestFeedDisconnectMarksInFlightError(t *testing.T) {
	st := store.New()
	feed := &fakeFeed{}
	c := newTestCorrelator(feed, &fakeSink{}, st, idleClock{})

	feed.set(jobAt("j1", model.CardStatusRunning, time.Now()))
	c.PollOnce(context.Background())

	c.MarkFeedDisconnected()

	response := st.CardMessage("j1" + model.ReplySuffix).Card
	assert.Equal(t, model.CardStatusError, response.JobStatus,
		"in-flight card must not stay running after feed disconnect")
}

func TestSustainedPollFailureTripsDisconnect(t *testing.T) {
	st := store.New()
	feed := &fakeFeed{}
	c := newTestCorrelator(feed, &fakeSink{}, st, idleClock{})

	feed.set(jobAt("j1", model.CardStatusRunning, time.Now()))
	c.PollOnce(context.Background())

	feed.setErr(errors.New("connection refused"))
	for i := 0; i < feedFailureThreshold-1; i++ {
		c.PollOnce(context.Background())
		response := st.CardMessage("j1" + model.ReplySuffix).Card
		assert.Equal(t, model.CardStatusRunning, response.JobStatus,
			"transient failure %d must not flip cards", i+1)
	}

	c.PollOnce(context.Background())
	response := st.CardMessage("j1" + model.ReplySuffix).Card
	assert.Equal(t, model.CardStatusError, response.JobStatus,
		"sustained outage must flip in-flight cards to error")
}

func TestPollRecoveryResetsFailureCount(t *testing.T) {
	st := store.New()
	feed := &fakeFeed{}
	c := newTestCorrelator(feed, &fakeSink{}, st, idleClock{})

	feed.set(jobAt("j1", model.CardStatusRunning, time.Now()))
	c.PollOnce(context.Background())

	// Two failures, one recovery, two failures: never three in a row.
	feed.setErr(errors.New("connection refused"))
	c.PollOnce(context.Background())
	c.PollOnce(context.Background())
	feed.setErr(nil)
	c.PollOnce(context.Background())
	feed.setErr(errors.New("connection refused"))
	c.PollOnce(context.Background())
	c.PollOnce(context.Background())

	response := st.CardMessage("j1" + model.ReplySuffix).Card
	assert.Equal(t, model.CardStatusRunning, response.JobStatus,
		"interrupted failure runs must not trip the disconnect")
}

func TestProgressIsDerivedStateOnly(t *testing.T) {
	st := store.New()
	feed := &fakeFeed{}
	c := newTestCorrelator(feed, &fakeSink{}, st, idleClock{})

	job := jobAt("j1", model.CardStatusRunning, time.Now())
	job.Progress = 40
	feed.set(job)
	c.PollOnce(context.Background())

	job2 := jobAt("j1", model.CardStatusRunning, time.Now())
	job2.Progress = 80
	feed.set(job2)
	c.PollOnce(context.Background())

	assert.Equal(t, 80, c.Progress("j1"))
	// The cards themselves carry no progress field mutation.
	assert.Equal(t, model.CardStatusRunning, st.CardMessage("j1").Card.JobStatus)
}
