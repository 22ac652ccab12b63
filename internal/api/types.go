// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"encoding/json"
	"time"

	"github.com/jeranaias/docsmith-tui/internal/model"
)

// =============================================================================
// WIRE TYPES
// =============================================================================

// historyItem is one row of the thread history feed. Backend rows come
// in several generations of shape: the text may live under content,
// message, or text, and the timestamp under sentAt, createdAt,
// created_at, timestamp, or date, as either epoch millis or RFC 3339.
// This type is the only place those variants are probed.
type historyItem struct {
	ID   string     `json:"id"`
	Role model.Role `json:"role"`

	Content *string `json:"content"`
	Message *string `json:"message"`
	Text    *string `json:"text"`

	SentAt     json.RawMessage `json:"sentAt"`
	CreatedAt  json.RawMessage `json:"createdAt"`
	CreatedAt2 json.RawMessage `json:"created_at"`
	Timestamp  json.RawMessage `json:"timestamp"`
	Date       json.RawMessage `json:"date"`

	Card              *model.Card     `json:"card"`
	SailpointMetadata json.RawMessage `json:"sailpointMetadata"`
}

// historyResponse wraps a history page.
type historyResponse struct {
	History []json.RawMessage `json:"history"`
}

// jobsResponse wraps the job feed.
type jobsResponse struct {
	Jobs []*model.Job `json:"jobs"`
}

// chatResponse is the synchronous (non-streaming) chat reply.
type chatResponse struct {
	TextResponse string `json:"textResponse"`
	Error        string `json:"error,omitempty"`
}

// chatRequest is the body for both streaming and synchronous chat.
type chatRequest struct {
	Message string `json:"message"`
	Mode    string `json:"mode,omitempty"`
}

// =============================================================================
// NORMALIZATION
// =============================================================================

// normalizeHistoryItem converts one raw backend row into the canonical
// message shape, resolving the text and timestamp field chains and
// keeping the original payload for the export manifest.
func normalizeHistoryItem(raw json.RawMessage) (*model.Message, error) {
	var item historyItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, err
	}

	msg := &model.Message{
		ID:                item.ID,
		Role:              item.Role,
		Card:              item.Card,
		SailpointMetadata: item.SailpointMetadata,
		Raw:               raw,
	}
	if msg.Role == "" {
		msg.Role = model.RoleAssistant
	}

	switch {
	case item.Content != nil:
		msg.Content = *item.Content
	case item.Message != nil:
		msg.Content = *item.Message
	case item.Text != nil:
		msg.Content = *item.Text
	}

	for _, field := range []json.RawMessage{item.SentAt, item.CreatedAt, item.CreatedAt2, item.Timestamp, item.Date} {
		if ts, ok := parseWireTime(field); ok {
			msg.SentAt = ts
			break
		}
	}
	if msg.SentAt.IsZero() && msg.Card != nil {
		msg.SentAt = msg.Card.Timestamp
	}

	return msg, nil
}

// parseWireTime accepts an epoch-millis number or an RFC 3339 string.
func parseWireTime(raw json.RawMessage) (time.Time, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return time.Time{}, false
	}

	var millis int64
	if err := json.Unmarshal(raw, &millis); err == nil && millis > 0 {
		return time.UnixMilli(millis), true
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		if ts, err := time.Parse(time.RFC3339, s); err == nil {
			return ts, true
		}
	}

	return time.Time{}, false
}
