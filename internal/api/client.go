// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/jeranaias/docsmith-tui/internal/model"
	"github.com/jeranaias/docsmith-tui/internal/stream"
)

// Configuration constants for the workspace backend API.
const (
	// DefaultTimeout bounds non-streaming requests.
	DefaultTimeout = 30 * time.Second

	// MaxResponseSize is the maximum allowed response body size.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB

	// requestsPerSecond throttles the client so history refetches and
	// job polls never saturate the backend from a single terminal.
	requestsPerSecond = 8
)

// Error variables for common backend failures.
var (
	// ErrUnavailable indicates the backend rejected or dropped the request.
	ErrUnavailable = errors.New("workspace backend unavailable")

	// ErrBadStatus indicates a non-OK response with a readable body.
	ErrBadStatus = errors.New("unexpected backend status")
)

// PERFORMANCE: Connection pooling reduces TCP handshake overhead.
// Shared HTTP client for all non-streaming requests.
var sharedHTTPClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	},
	Timeout: DefaultTimeout,
}

// sharedStreamingClient is used for the chat stream (no timeout,
// context-controlled).
var sharedStreamingClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	},
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the Docsmith workspace backend.
type Client struct {
	baseURL string
	apiKey  string

	httpClient   *http.Client
	streamClient *http.Client
	limiter      *rate.Limiter
}

// NewClient creates a client for the given base URL. The API key may be
// empty for backends running without auth (local development).
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:      baseURL,
		apiKey:       apiKey,
		httpClient:   sharedHTTPClient,
		streamClient: sharedStreamingClient,
		limiter:      rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
	}
}

// setHeaders applies common headers to a request.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

// =============================================================================
// CHAT
// =============================================================================

// OpenStream opens the streaming chat endpoint for a thread and returns
// a frame decoder over the response. The caller owns the decoder and
// must Close it. A non-OK response or missing body fails with
// stream.ErrStreamUnavailable so callers can fall back to SyncChat.
func (c *Client) OpenStream(ctx context.Context, workspace, thread, message string) (*stream.FrameDecoder, error) {
	body, err := json.Marshal(chatRequest{Message: message, Mode: "chat"})
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	u := fmt.Sprintf("%s/workspace/%s/thread/%s/stream-chat",
		c.baseURL, url.PathEscape(workspace), url.PathEscape(thread))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create stream request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", stream.ErrStreamUnavailable, err)
	}

	dec, err := stream.NewFrameDecoder(resp)
	if err != nil {
		resp.Body.Close()
		return nil, err
	}
	return dec, nil
}

// SyncChat performs the synchronous (non-streaming) fallback request.
// Used when the stream cannot be opened at all.
func (c *Client) SyncChat(ctx context.Context, workspace, thread, message string) (string, error) {
	body, err := json.Marshal(chatRequest{Message: message, Mode: "chat"})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	u := fmt.Sprintf("%s/workspace/%s/thread/%s/chat",
		c.baseURL, url.PathEscape(workspace), url.PathEscape(thread))
	var reply chatResponse
	if err := c.doJSON(ctx, http.MethodPost, u, bytes.NewReader(body), &reply); err != nil {
		return "", err
	}
	if reply.Error != "" {
		return "", fmt.Errorf("%w: %s", ErrUnavailable, reply.Error)
	}
	return reply.TextResponse, nil
}

// =============================================================================
// HISTORY
// =============================================================================

// FetchHistory fetches one page of thread history at the given offset
// and normalizes every row into the canonical message shape. Rows that
// fail to decode entirely are skipped rather than failing the page.
func (c *Client) FetchHistory(ctx context.Context, workspace, thread string, limit, offset int) ([]*model.Message, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	q.Set("visible", "true")

	u := fmt.Sprintf("%s/workspace/%s/thread/%s/chats?%s",
		c.baseURL, url.PathEscape(workspace), url.PathEscape(thread), q.Encode())
	var page historyResponse
	if err := c.doJSON(ctx, http.MethodGet, u, nil, &page); err != nil {
		return nil, err
	}

	msgs := make([]*model.Message, 0, len(page.History))
	for _, raw := range page.History {
		msg, err := normalizeHistoryItem(raw)
		if err != nil {
			continue
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// =============================================================================
// JOB FEED
// =============================================================================

// FetchJobs fetches the background job feed filtered to one workspace.
func (c *Client) FetchJobs(ctx context.Context, workspace string) ([]*model.Job, error) {
	u := fmt.Sprintf("%s/jobs?workspace=%s", c.baseURL, url.QueryEscape(workspace))
	var feed jobsResponse
	if err := c.doJSON(ctx, http.MethodGet, u, nil, &feed); err != nil {
		return nil, err
	}
	return feed.Jobs, nil
}

// =============================================================================
// CARD PERSISTENCE
// =============================================================================

// UpsertCard persists a card by ID. The backend is a durability sink
// only, never a source of truth for ordering; callers treat failures as
// degraded durability, not as state corruption.
func (c *Client) UpsertCard(ctx context.Context, workspace string, card *model.Card) error {
	body, err := json.Marshal(card)
	if err != nil {
		return fmt.Errorf("marshal card: %w", err)
	}
	u := fmt.Sprintf("%s/workspace/%s/cards", c.baseURL, url.PathEscape(workspace))
	return c.doJSON(ctx, http.MethodPost, u, bytes.NewReader(body), nil)
}

// DeleteCards deletes all cards bound to a job within a workspace.
func (c *Client) DeleteCards(ctx context.Context, workspace, jobID string) error {
	u := fmt.Sprintf("%s/workspace/%s/cards?job=%s",
		c.baseURL, url.PathEscape(workspace), url.QueryEscape(jobID))
	return c.doJSON(ctx, http.MethodDelete, u, nil, nil)
}

// =============================================================================
// TRANSPORT
// =============================================================================

// doJSON performs a rate-limited request and decodes the JSON response
// into out (when non-nil).
func (c *Client) doJSON(ctx context.Context, method, u string, body io.Reader, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %d %s", ErrBadStatus, resp.StatusCode, bytes.TrimSpace(snippet))
	}

	if out == nil {
		return nil
	}
	limited := io.LimitReader(resp.Body, MaxResponseSize)
	if err := json.NewDecoder(limited).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
