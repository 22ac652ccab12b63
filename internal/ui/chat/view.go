// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/jeranaias/docsmith-tui/internal/model"
	"github.com/jeranaias/docsmith-tui/internal/util"
)

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "starting..."
	}

	var sb strings.Builder
	sb.WriteString(m.renderHeader())
	sb.WriteString("\n")
	sb.WriteString(m.viewport.View())
	sb.WriteString("\n")
	sb.WriteString(m.renderStatusLine())
	sb.WriteString("\n")
	sb.WriteString(m.theme.InputBox.Width(m.width).Render(m.textarea.View()))
	sb.WriteString("\n")
	sb.WriteString(m.renderHelp())
	return sb.String()
}

func (m Model) renderHeader() string {
	title := fmt.Sprintf("docsmith — %s / %s", m.workspace, m.thread)
	return m.theme.Header.Width(m.width).Render(util.TruncateWidth(title, m.width))
}

// renderStatusLine shows, in priority order: an error, the streaming
// spinner with the ephemeral progress status, an export note, or the
// scrolled-away hint.
func (m Model) renderStatusLine() string {
	switch {
	case m.errText != "":
		return m.theme.ErrorText.Render(m.errText)
	case m.streamingActive():
		line := m.spinner.View() + " responding"
		if m.status != "" {
			line += "  " + m.theme.Progress.Render(m.status)
		}
		return m.theme.StatusBar.Render(line)
	case m.exportNote != "":
		return m.theme.StatusBar.Render(m.exportNote)
	case !m.scroll.Following():
		return m.theme.Help.Render("scrolled up — C-b to jump to latest")
	default:
		return m.theme.StatusBar.Render(fmt.Sprintf("%d messages", m.store.Len()))
	}
}

func (m Model) renderHelp() string {
	return m.theme.Help.Render("Enter send · Esc cancel · C-e export · PgUp history · C-c quit")
}

// renderMessages materializes the visible window into viewport content.
func (m *Model) renderMessages() string {
	visible := m.render.Visible(m.store.Messages())
	if len(visible) == 0 {
		return m.theme.Help.Render("No messages yet. Say hello.")
	}

	parts := make([]string, 0, len(visible))
	if m.window.Loading() {
		parts = append(parts, m.theme.Help.Render("loading older messages..."))
	}
	for _, msg := range visible {
		parts = append(parts, m.renderMessage(msg))
	}
	return strings.Join(parts, "\n\n")
}

func (m *Model) renderMessage(msg *model.Message) string {
	label := m.theme.UserLabel
	if msg.Role == model.RoleAssistant {
		label = m.theme.AssistantLabel
	}

	header := label.Render(msg.Role.DisplayName())
	if !msg.SentAt.IsZero() {
		header += " " + m.theme.Timestamp.Render(msg.SentAt.Format("15:04"))
	}

	if msg.IsCard() {
		return header + "\n" + m.renderCard(msg.Card)
	}

	body := msg.Content
	if msg.Role == model.RoleAssistant && m.cfg.UI.MarkdownRendering && m.markdown != nil {
		if rendered, err := m.markdown.Render(body); err == nil {
			body = strings.TrimRight(rendered, "\n")
		}
	}
	return header + "\n" + body
}

// renderCard draws a generation job card with its live status and, while
// running, the correlator's progress percentage.
func (m *Model) renderCard(card *model.Card) string {
	status := m.theme.CardStatusStyle(card.JobStatus.String()).Render(card.JobStatus.String())

	var lines []string
	if card.Side == model.RoleUser {
		lines = append(lines, "Document request")
	} else {
		lines = append(lines, "Document generation "+status)
	}
	if card.Template != "" {
		lines = append(lines, "template: "+card.Template)
	}
	if card.Filename != "" {
		lines = append(lines, "file: "+card.Filename)
	}
	if card.JobStatus == model.CardStatusRunning && card.Side == model.RoleAssistant {
		if pct := m.correlator.Progress(card.JobID); pct > 0 {
			lines = append(lines, fmt.Sprintf("progress: %d%%", pct))
		}
	}
	if card.AIContext != "" {
		lines = append(lines, util.TruncateWidth(card.AIContext, m.contentWidth()-4))
	}

	return m.theme.CardBox.Render(strings.Join(lines, "\n"))
}
