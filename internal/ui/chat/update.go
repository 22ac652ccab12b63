// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/docsmith-tui/internal/ui/styles"
)

// statusLinger is how long an ephemeral progress status stays visible
// after the stream stops sending new ones.
const statusLinger = 4 * time.Second

// streamApology is the user-visible text for a turn whose stream and
// fallback both failed.
const streamApology = "Sorry, I could not reach the workspace. Please try again."

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)
	case tea.KeyMsg:
		return m.handleKey(msg)

	// -------------------------------------------------------------------------
	// Stream lifecycle
	// -------------------------------------------------------------------------
	case StreamOpenedMsg:
		m.guard.MarkStreaming()
		m.decoder = msg.Decoder
		m.store.BeginAssistantTurn()
		m.scroll.SetStreaming(true)
		m.refreshViewport()
		return m, readFrameCmd(m.streamCtx, m.decoder, m.classifier)

	case StreamDeltaMsg:
		if m.decoder == nil {
			// Aborted between frames; drop the straggler.
			return m, nil
		}
		if msg.Content != "" {
			m.store.AppendToOpenTurn(msg.Content)
		}
		if msg.Progress != "" {
			m.status = msg.Progress
			m.statusSeq++
			cmds = append(cmds, expireStatusCmd(m.statusSeq, statusLinger))
		}
		m.refreshViewport()
		if cmd := m.applyScroll(m.scroll.OnMutation()); cmd != nil {
			cmds = append(cmds, cmd)
		}
		if m.scroll.HasPending() {
			cmds = append(cmds, flushScrollCmd())
		}
		cmds = append(cmds, readFrameCmd(m.streamCtx, m.decoder, m.classifier))
		return m, tea.Batch(cmds...)

	case StreamDoneMsg:
		m.finishStream()
		m.guard.Complete()
		m.refreshViewport()
		m.viewportToBottomIfFollowing()
		return m, reconcileCmd(m.client, m.store, m.workspace, m.thread)

	case StreamFailedMsg:
		return m.handleStreamFailure(msg)

	case SyncFallbackMsg:
		if msg.Seq != m.sendSeq {
			// Result of a superseded send; the open turn belongs to a
			// newer stream now.
			return m, nil
		}
		m.store.BeginAssistantTurn()
		if msg.Err != nil || strings.TrimSpace(msg.Text) == "" {
			m.logger.Warn("sync fallback failed", "error", msg.Err)
			m.store.AppendToOpenTurn(streamApology)
			m.store.CloseTurn()
			m.guard.Fail()
		} else {
			m.store.AppendToOpenTurn(msg.Text)
			m.store.CloseTurn()
			m.guard.Complete()
		}
		m.refreshViewport()
		m.viewportToBottomIfFollowing()
		return m, saveCacheCmd(m.cache, m.workspace, m.thread, m.store.Messages())

	case ReconciledMsg:
		if msg.Err != nil {
			// Optimistic state stays authoritative until the next pass.
			m.logger.Warn("post-stream reload failed", "error", msg.Err)
			return m, nil
		}
		m.refreshViewport()
		m.viewportToBottomIfFollowing()
		return m, saveCacheCmd(m.cache, m.workspace, m.thread, m.store.Messages())

	// -------------------------------------------------------------------------
	// History
	// -------------------------------------------------------------------------
	case CacheSnapshotMsg:
		// Warm paint only while nothing fresher is on screen.
		if m.store.Len() == 0 && len(msg.Messages) > 0 {
			m.store.MergeOlderBatch(msg.Messages)
			m.refreshViewport()
			m.viewport.GotoBottom()
		}
		return m, nil

	case HistoryLoadedMsg:
		if msg.Err != nil {
			m.logger.Warn("history load failed", "error", msg.Err)
			m.errText = "could not load thread history"
			return m, nil
		}
		m.errText = ""
		m.store.Clear()
		m.store.MergeOlderBatch(msg.Messages)
		m.window.Prime(len(msg.Messages), len(msg.Messages) == m.cfg.History.PageSize)
		m.refreshViewport()
		m.viewport.GotoBottom()
		return m, saveCacheCmd(m.cache, m.workspace, m.thread, m.store.Messages())

	case OlderPageMsg:
		if msg.Err != nil {
			m.logger.Warn("backfill failed", "error", msg.Err)
			return m, nil
		}
		if msg.Count > 0 {
			m.refreshViewport()
		}
		return m, nil

	case ThreadSwitchedMsg:
		return m.handleThreadSwitch(msg.Thread)

	// -------------------------------------------------------------------------
	// Store events (stream, job poller, pagination)
	// -------------------------------------------------------------------------
	case StoreMutatedMsg:
		m.refreshViewport()
		if cmd := m.applyScroll(m.scroll.OnMutation()); cmd != nil {
			return m, cmd
		}
		return m, nil

	// -------------------------------------------------------------------------
	// Export
	// -------------------------------------------------------------------------
	case ExportedMsg:
		if msg.Err != nil {
			m.logger.Warn("export failed", "error", msg.Err)
			m.errText = "export failed"
		} else {
			m.exportNote = "exported to " + msg.Path
			m.statusSeq++
			return m, expireStatusCmd(m.statusSeq, statusLinger)
		}
		return m, nil

	// -------------------------------------------------------------------------
	// Housekeeping
	// -------------------------------------------------------------------------
	case ConfigReloadedMsg:
		m.cfg = msg.Config
		m.theme = styles.NewTheme(m.cfg.UI.Theme)
		m.render.SetCap(m.cfg.UI.RenderWindowSize)
		m.newMarkdownRenderer()
		m.refreshViewport()
		return m, nil

	case statusExpiredMsg:
		if msg.seq == m.statusSeq {
			m.status = ""
			m.exportNote = ""
			m.refreshViewport()
		}
		return m, nil

	case scrollFlushMsg:
		if m.scroll.Flush() == ScrollJump {
			m.refreshViewport()
			m.viewport.GotoBottom()
		}
		return m, nil

	case animFrameMsg:
		return m.handleAnimFrame(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	// Everything else feeds the focused input.
	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

// handleResize lays out the viewport and input for the new size.
func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height

	headerHeight := 2
	inputHeight := m.textarea.Height() + 2
	footerHeight := 1
	vpHeight := msg.Height - headerHeight - inputHeight - footerHeight
	if vpHeight < 3 {
		vpHeight = 3
	}

	if !m.ready {
		m.viewport = viewport.New(msg.Width, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = msg.Width
		m.viewport.Height = vpHeight
	}
	m.textarea.SetWidth(msg.Width - 2)
	m.newMarkdownRenderer()
	m.refreshViewport()
	m.viewportToBottomIfFollowing()
	return m, nil
}

// handleKey routes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Any keypress counts as activity for the job poller's typing pause.
	m.guard.RecordActivity()

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.guard.Abort()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Submit):
		return m.handleSend()

	case key.Matches(msg, m.keys.Cancel):
		// No-op unless a send is active; Abort settles through Failed
		// back to Idle so the next send can proceed. Bumping the send
		// sequence orphans any fallback still in flight.
		m.sendSeq++
		m.guard.Abort()
		return m, nil

	case key.Matches(msg, m.keys.Export):
		return m, exportCmd(m.workspace, m.thread, m.cfg.Export.Dir, m.cfg.Export.Format, m.store.Messages())

	case key.Matches(msg, m.keys.ScrollBottom):
		m.scroll.JumpToBottom()
		m.render.SlideToLatest()
		m.refreshViewport()
		m.viewport.GotoBottom()
		return m, nil

	case key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.Down),
		key.Matches(msg, m.keys.PageUp), key.Matches(msg, m.keys.PageDown):
		return m.handleViewportKey(msg)
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

// handleSend starts a new turn, subject to the single-flight guard.
func (m Model) handleSend() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.textarea.Value())
	if text == "" {
		return m, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	if !m.guard.BeginSend(cancel) {
		cancel()
		// A second send while one is in flight is ignored, not queued.
		return m, nil
	}

	m.streamCtx = ctx
	m.sendSeq++
	m.lastSent = text
	m.textarea.Reset()
	m.classifier.Reset()
	m.status = ""
	m.errText = ""

	m.store.AppendOptimisticUser(text)
	m.scroll.OnSend()
	m.render.SlideToLatest()
	m.refreshViewport()
	m.viewport.GotoBottom()

	return m, openStreamCmd(ctx, m.client, m.workspace, m.thread, text)
}

// handleViewportKey scrolls and re-evaluates follow state, the render
// window and the pagination trigger.
func (m Model) handleViewportKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)

	m.scroll.OnScroll(m.distanceFromBottom())

	// Scrolling into the top of the render window slides it over older
	// items already in the store before any network backfill.
	if m.viewport.YOffset == 0 {
		total := m.store.Len()
		if !m.render.AtOldest(total) {
			if m.render.SlideUp(total, 3) {
				m.refreshViewport()
			}
			return m, cmd
		}
		if m.window.ShouldTrigger(m.viewport.YOffset) {
			return m, tea.Batch(cmd, loadOlderCmd(m.window))
		}
	}
	return m, cmd
}

// handleStreamFailure covers both open failures (fallback to the sync
// request) and mid-stream failures (error text into the open turn).
func (m Model) handleStreamFailure(msg StreamFailedMsg) (tea.Model, tea.Cmd) {
	m.logger.Warn("stream failed", "error", msg.Err)

	if m.decoder == nil {
		// Never got a readable body. Try the one-shot request before
		// surfacing anything - unless the user cancelled the send
		// themselves. The guard stays Connecting until the fallback
		// settles, so no second send is admitted meanwhile.
		if errors.Is(msg.Err, context.Canceled) {
			m.guard.Fail()
			return m, nil
		}
		return m, syncFallbackCmd(m.client, m.workspace, m.thread, m.lastSent, m.sendSeq)
	}

	// Fill the still-open turn before finishStream closes it, so the
	// error text lands in the existing empty turn instead of a new one.
	if open := m.store.OpenTurn(); open != nil && strings.TrimSpace(open.Content) == "" {
		if errors.Is(msg.Err, context.Canceled) {
			m.store.AppendToOpenTurn("(cancelled)")
		} else {
			m.store.AppendToOpenTurn(streamApology)
		}
	}
	m.finishStream()
	m.guard.Fail()
	m.refreshViewport()
	return m, nil
}

// handleThreadSwitch tears down the active thread and loads another.
func (m Model) handleThreadSwitch(thread string) (tea.Model, tea.Cmd) {
	m.sendSeq++
	m.guard.Abort()
	m.finishStream()
	m.thread = thread
	m.classifier.Reset()
	m.status = ""
	m.errText = ""
	m.scroll.OnSend()
	m.render.SlideToLatest()
	m.window.Reset(m.workspace, thread)
	m.refreshViewport()
	return m, tea.Batch(
		loadCacheCmd(m.cache, m.workspace, thread),
		loadHistoryCmd(m.client, m.workspace, thread, m.cfg.History.PageSize),
	)
}

// handleAnimFrame advances a smooth scroll toward the bottom.
func (m Model) handleAnimFrame(msg animFrameMsg) (tea.Model, tea.Cmd) {
	if !m.scroll.AnimationCurrent(msg.seq) {
		return m, nil
	}
	m.viewport.LineDown(3)
	if m.viewport.AtBottom() {
		return m, nil
	}
	return m, animFrameCmd(msg.seq)
}

// applyScroll executes a scroll decision against the viewport.
func (m *Model) applyScroll(action ScrollAction) tea.Cmd {
	switch action {
	case ScrollJump:
		m.viewport.GotoBottom()
	case ScrollAnimate:
		return animFrameCmd(m.scroll.BeginAnimation())
	}
	return nil
}

// finishStream tears down stream consumption state.
func (m *Model) finishStream() {
	if m.decoder != nil {
		m.decoder.Close()
		m.decoder = nil
	}
	m.streamCtx = nil
	m.scroll.SetStreaming(false)
	m.store.CloseTurn()
	m.status = ""
}

// distanceFromBottom is the viewport's line distance from the end.
func (m *Model) distanceFromBottom() int {
	return m.viewport.TotalLineCount() - (m.viewport.YOffset + m.viewport.Height)
}

// viewportToBottomIfFollowing keeps the view pinned while auto-follow is
// active.
func (m *Model) viewportToBottomIfFollowing() {
	if m.scroll.Following() {
		m.viewport.GotoBottom()
	}
}

// refreshViewport re-renders the visible window into the viewport.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderMessages())
}
