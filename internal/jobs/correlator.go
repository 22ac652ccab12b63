// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package jobs

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/jeranaias/docsmith-tui/internal/model"
	"github.com/jeranaias/docsmith-tui/internal/store"
)

// =============================================================================
// CORRELATOR CONSTANTS
// =============================================================================

const (
	// DefaultPollInterval is how often the job feed is polled.
	DefaultPollInterval = 5 * time.Second

	// DefaultTypingThreshold is the idle window under which the user
	// counts as actively typing and polling is skipped.
	DefaultTypingThreshold = 2 * time.Second

	// persistTimeout bounds each fire-and-forget card upsert.
	persistTimeout = 10 * time.Second

	// feedFailureThreshold is how many consecutive poll failures count
	// as the feed being disconnected rather than transiently flaky.
	feedFailureThreshold = 3
)

// =============================================================================
// COLLABORATOR INTERFACES
// =============================================================================

// Feed fetches the background job projection for a workspace.
type Feed interface {
	FetchJobs(ctx context.Context, workspace string) ([]*model.Job, error)
}

// Sink persists cards for durability. Failures are swallowed by the
// correlator; local state stays correct either way.
type Sink interface {
	UpsertCard(ctx context.Context, workspace string, card *model.Card) error
}

// ActivityClock reports whether the user is actively typing.
type ActivityClock interface {
	TypingRecently(threshold time.Duration) bool
}

// =============================================================================
// JOB CARD CORRELATOR
// =============================================================================

// Correlator maps job lifecycle transitions onto card pairs inside the
// message store.
type Correlator struct {
	feed     Feed
	sink     Sink
	store    *store.Store
	activity ActivityClock
	logger   *slog.Logger

	workspace       string
	interval        time.Duration
	typingThreshold time.Duration

	mu sync.Mutex
	// injected tracks which jobs already have cards in the store and
	// the last status reflected onto them. An explicit map owned here,
	// not module state captured by closures.
	injected map[string]model.CardStatus
	// progress holds UI-visible derived state (percentages) for
	// running jobs; never written onto the cards themselves.
	progress map[string]int
	latest   []*model.Job
	// failures counts consecutive poll failures; reset on success.
	failures int

	stop chan struct{}
	wg   sync.WaitGroup
}

// Config holds correlator configuration.
type Config struct {
	Workspace       string
	PollInterval    time.Duration
	TypingThreshold time.Duration
}

// NewCorrelator creates a correlator for one workspace.
func NewCorrelator(feed Feed, sink Sink, st *store.Store, activity ActivityClock, logger *slog.Logger, cfg Config) *Correlator {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.TypingThreshold <= 0 {
		cfg.TypingThreshold = DefaultTypingThreshold
	}
	return &Correlator{
		feed:            feed,
		sink:            sink,
		store:           st,
		activity:        activity,
		logger:          logger,
		workspace:       cfg.Workspace,
		interval:        cfg.PollInterval,
		typingThreshold: cfg.TypingThreshold,
		injected:        make(map[string]model.CardStatus),
		progress:        make(map[string]int),
		stop:            make(chan struct{}),
	}
}

// =============================================================================
// POLL LOOP
// =============================================================================

// Start begins the poll loop. It runs until Stop.
func (c *Correlator) Start(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			select {
			case <-c.stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.PollOnce(ctx)
			}
		}
	}()
}

// Stop halts the poll loop and waits for it to exit.
func (c *Correlator) Stop() {
	close(c.stop)
	c.wg.Wait()
}

// PollOnce runs a single poll cycle. Exported so the UI can force a
// refresh and so tests can drive the correlator deterministically.
func (c *Correlator) PollOnce(ctx context.Context) {
	if c.activity != nil && c.activity.TypingRecently(c.typingThreshold) {
		return
	}

	jobs, err := c.feed.FetchJobs(ctx, c.workspace)
	if err != nil {
		// Degrades to "no jobs this cycle"; never surfaces to the UI.
		// A sustained outage trips the disconnect handling exactly once
		// so in-flight cards cannot stay running forever.
		c.logger.Debug("job feed poll failed", "error", err)
		c.mu.Lock()
		c.failures++
		tripped := c.failures == feedFailureThreshold
		c.mu.Unlock()
		if tripped {
			c.MarkFeedDisconnected()
		}
		return
	}

	c.mu.Lock()
	c.failures = 0
	c.mu.Unlock()

	relevant := make([]*model.Job, 0, len(jobs))
	for _, job := range jobs {
		if job.InWorkspace(c.workspace) {
			relevant = append(relevant, job)
		}
	}
	// Latest-relevant-job lookups elsewhere in the UI want newest first.
	sort.SliceStable(relevant, func(i, j int) bool {
		return relevant[i].UpdatedAt.After(relevant[j].UpdatedAt)
	})

	c.mu.Lock()
	c.latest = relevant
	c.mu.Unlock()

	for _, job := range relevant {
		c.reconcileJob(ctx, job)
	}
}

// =============================================================================
// JOB RECONCILIATION
// =============================================================================

// reconcileJob maps one job's current state onto its card pair.
func (c *Correlator) reconcileJob(ctx context.Context, job *model.Job) {
	c.mu.Lock()
	lastStatus, seen := c.injected[job.ID]
	c.progress[job.ID] = job.Progress
	c.mu.Unlock()

	if !seen {
		c.injectPair(ctx, job)
		return
	}

	// Status transitions are taken at the feed's word; nothing here
	// enforces monotonicity (a done -> running report is reflected
	// as-is).
	if job.Status != lastStatus {
		c.updateResponseCard(ctx, job)
	}
}

// injectPair synthesizes the request/response card pair for a newly
// observed job, timestamps them together, merges them into the store,
// and persists both best-effort.
func (c *Correlator) injectPair(ctx context.Context, job *model.Job) {
	at := job.CreatedAt
	if at.IsZero() {
		at = time.Now()
	}

	request := &model.Card{
		ID:        job.ID,
		Side:      model.RoleUser,
		JobID:     job.ID,
		JobStatus: model.CardStatusRunning,
		Template:  job.Template,
		AIContext: job.AIContext,
		Timestamp: at,
	}
	response := &model.Card{
		ID:        request.ReplyID(),
		Side:      model.RoleAssistant,
		JobID:     job.ID,
		JobStatus: model.CardStatusRunning,
		Timestamp: at,
	}

	c.store.MergeCards([]*model.Card{request, response})

	c.mu.Lock()
	c.injected[job.ID] = model.CardStatusRunning
	c.mu.Unlock()

	c.persist(request)
	c.persist(response)

	// The feed may already report a terminal state on first sight.
	if job.Status != model.CardStatusRunning && job.Status != "" {
		c.updateResponseCard(ctx, job)
	}
}

// updateResponseCard reflects a status change onto the response card
// and attaches output metadata when present. The request card is never
// touched.
func (c *Correlator) updateResponseCard(_ context.Context, job *model.Job) {
	upd := &model.Card{
		ID:        job.ID + model.ReplySuffix,
		JobStatus: job.Status,
		Filename:  job.File,
	}
	if !job.UpdatedAt.IsZero() {
		upd.Timestamp = job.UpdatedAt
	}
	c.store.MergeCards([]*model.Card{upd})

	c.mu.Lock()
	c.injected[job.ID] = job.Status
	c.mu.Unlock()

	if msg := c.store.CardMessage(upd.ID); msg != nil {
		c.persist(msg.Card)
	}
}

// MarkFeedDisconnected is called when the job feed's own transport
// drops. Every in-flight response card flips to error rather than
// staying running forever.
func (c *Correlator) MarkFeedDisconnected() {
	c.mu.Lock()
	var stuck []string
	for jobID, status := range c.injected {
		if status == model.CardStatusRunning {
			stuck = append(stuck, jobID)
			c.injected[jobID] = model.CardStatusError
		}
	}
	c.mu.Unlock()

	for _, jobID := range stuck {
		upd := &model.Card{ID: jobID + model.ReplySuffix, JobStatus: model.CardStatusError}
		c.store.MergeCards([]*model.Card{upd})
		if msg := c.store.CardMessage(upd.ID); msg != nil {
			c.persist(msg.Card)
		}
	}
	if len(stuck) > 0 {
		c.logger.Warn("job feed disconnected, marked in-flight cards as error", "count", len(stuck))
	}
}

// =============================================================================
// PERSISTENCE
// =============================================================================

// persist upserts one card, fire-and-forget. The UI path never blocks
// on durability and failures are swallowed; local state is already
// correct.
func (c *Correlator) persist(card *model.Card) {
	if c.sink == nil {
		return
	}
	dup := *card
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := c.sink.UpsertCard(ctx, c.workspace, &dup); err != nil {
			c.logger.Debug("card persistence failed", "card", dup.ID, "error", err)
		}
	}()
}

// =============================================================================
// LOOKUPS
// =============================================================================

// LatestJob returns the most recently updated job bound to the
// workspace, or nil. Used elsewhere in the UI to attribute a hidden raw
// exchange to a job.
func (c *Correlator) LatestJob() *model.Job {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.latest) == 0 {
		return nil
	}
	return c.latest[0]
}

// Progress returns the UI-visible progress percentage for a job.
func (c *Correlator) Progress(jobID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progress[jobID]
}
