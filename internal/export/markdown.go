// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"

	"github.com/jeranaias/docsmith-tui/internal/model"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter renders the manifest as a readable Markdown transcript
// with YAML frontmatter.
type MarkdownExporter struct{}

// NewMarkdownExporter creates a Markdown exporter.
func NewMarkdownExporter() *MarkdownExporter {
	return &MarkdownExporter{}
}

// Render implements Exporter.
func (e *MarkdownExporter) Render(m *Manifest) ([]byte, error) {
	if m == nil {
		return nil, fmt.Errorf("manifest is nil")
	}

	var sb strings.Builder

	sb.WriteString("---\n")
	sb.WriteString(fmt.Sprintf("workspace: %s\n", escapeYAML(m.Workspace)))
	sb.WriteString(fmt.Sprintf("thread: %s\n", escapeYAML(m.Thread)))
	sb.WriteString(fmt.Sprintf("exported: %s\n", m.ExportedAt))
	sb.WriteString(fmt.Sprintf("messages: %d\n", len(m.Entries)))
	sb.WriteString("---\n\n")

	for i, entry := range m.Entries {
		if i > 0 {
			sb.WriteString("\n---\n\n")
		}
		sb.WriteString(fmt.Sprintf("### %s", model.Role(entry.Role).DisplayName()))
		if entry.Timestamp != "" {
			sb.WriteString(fmt.Sprintf(" — %s", entry.Timestamp))
		}
		sb.WriteString("\n\n")

		switch {
		case entry.Card != nil:
			writeCard(&sb, entry.Card)
		case entry.Text != "":
			sb.WriteString(entry.Text)
			sb.WriteString("\n")
		default:
			sb.WriteString("*(empty)*\n")
		}
	}

	return []byte(sb.String()), nil
}

// FileExtension implements Exporter.
func (e *MarkdownExporter) FileExtension() string { return ".md" }

// writeCard renders a generation card as a quoted block.
func writeCard(sb *strings.Builder, card *model.Card) {
	sb.WriteString(fmt.Sprintf("> **Generation job** `%s`\n", card.JobID))
	sb.WriteString(fmt.Sprintf("> Status: %s\n", card.JobStatus))
	if card.Template != "" {
		sb.WriteString(fmt.Sprintf("> Template: %s\n", card.Template))
	}
	if card.Filename != "" {
		sb.WriteString(fmt.Sprintf("> File: %s\n", card.Filename))
	}
	if card.AIContext != "" {
		sb.WriteString(fmt.Sprintf("> Context: %s\n", card.AIContext))
	}
}

// escapeYAML quotes values that would break frontmatter parsing.
func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":#\"'\n") {
		return fmt.Sprintf("%q", strings.ReplaceAll(s, "\n", " "))
	}
	return s
}
