// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/docsmith-tui/internal/api"
	"github.com/jeranaias/docsmith-tui/internal/config"
	"github.com/jeranaias/docsmith-tui/internal/model"
	"github.com/jeranaias/docsmith-tui/internal/session"
	"github.com/jeranaias/docsmith-tui/internal/store"
)

func newTestModel(t *testing.T) Model {
	t.Helper()
	return New(Deps{
		Config: config.Default(),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Client: api.NewClient("http://127.0.0.1:0", ""),
		Store:  store.New(),
		Guard:  session.NewGuard(),
	})
}

func sendText(t *testing.T, m Model, text string) Model {
	t.Helper()
	m.textarea.SetValue(text)
	next, _ := m.handleSend()
	return next.(Model)
}

// A second send must stay locked out while the sync fallback for a
// failed stream open is still outstanding.
func TestFallbackWindowHoldsSingleFlight(t *testing.T) {
	m := newTestModel(t)
	m = sendText(t, m, "first question")

	if !m.guard.Streaming() {
		t.Fatal("send did not move the guard out of Idle")
	}
	if m.store.Len() != 1 {
		t.Fatalf("store len = %d, want 1 optimistic user turn", m.store.Len())
	}

	next, cmd := m.handleStreamFailure(StreamFailedMsg{Err: errors.New("connection refused")})
	m = next.(Model)
	if cmd == nil {
		t.Fatal("open failure did not issue the sync fallback")
	}
	if !m.guard.Streaming() {
		t.Fatal("guard settled before the fallback result arrived")
	}

	m = sendText(t, m, "second question")
	if m.store.Len() != 1 {
		t.Fatalf("second send admitted during fallback window, store len = %d", m.store.Len())
	}

	next, _ = m.Update(SyncFallbackMsg{Seq: m.sendSeq, Text: "here you go"})
	m = next.(Model)
	if m.guard.Streaming() {
		t.Fatal("guard still active after fallback settled")
	}
	if m.guard.Outcome() != session.OutcomeCompleted {
		t.Errorf("outcome = %v, want Completed", m.guard.Outcome())
	}
	msgs := m.store.Messages()
	if len(msgs) != 2 || msgs[1].Content != "here you go" {
		t.Fatalf("fallback text missing from store: %+v", msgs)
	}
}

// A fallback result belonging to a cancelled send must be dropped, not
// written into the next send's turn.
func TestStaleFallbackResultDropped(t *testing.T) {
	m := newTestModel(t)
	m = sendText(t, m, "first question")

	next, _ := m.handleStreamFailure(StreamFailedMsg{Err: errors.New("connection refused")})
	m = next.(Model)
	staleSeq := m.sendSeq

	// User cancels the stuck send, then sends again.
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = next.(Model)
	if m.guard.Streaming() {
		t.Fatal("cancel did not settle the guard")
	}
	m = sendText(t, m, "second question")
	if m.store.Len() != 2 {
		t.Fatalf("second send rejected after cancel, store len = %d", m.store.Len())
	}

	next, _ = m.Update(SyncFallbackMsg{Seq: staleSeq, Text: "stale answer"})
	m = next.(Model)

	if m.store.Len() != 2 {
		t.Fatalf("stale fallback mutated the store, len = %d", m.store.Len())
	}
	for _, msg := range m.store.Messages() {
		if strings.Contains(msg.Content, "stale answer") {
			t.Fatal("stale fallback text reached the store")
		}
	}
	if !m.guard.Streaming() {
		t.Fatal("stale fallback settled the new send's guard")
	}
}

// When the stream open and the fallback both fail, the turn gets the
// apology and the guard settles through Failed.
func TestFallbackFailureSurfacesApology(t *testing.T) {
	m := newTestModel(t)
	m = sendText(t, m, "first question")

	next, _ := m.handleStreamFailure(StreamFailedMsg{Err: errors.New("connection refused")})
	m = next.(Model)

	next, _ = m.Update(SyncFallbackMsg{Seq: m.sendSeq, Err: errors.New("also down")})
	m = next.(Model)

	if m.guard.Outcome() != session.OutcomeFailed {
		t.Errorf("outcome = %v, want Failed", m.guard.Outcome())
	}
	msgs := m.store.Messages()
	if len(msgs) != 2 {
		t.Fatalf("store len = %d, want user turn + apology turn", len(msgs))
	}
	last := msgs[len(msgs)-1]
	if last.Role != model.RoleAssistant || last.Content != streamApology {
		t.Fatalf("closing turn = %q (%s), want apology", last.Content, last.Role)
	}
}
