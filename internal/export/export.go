// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/jeranaias/docsmith-tui/internal/model"
	"github.com/jeranaias/docsmith-tui/internal/util"
)

// =============================================================================
// TRANSCRIPT MANIFEST
// =============================================================================

// Entry is a single transcript row in display order.
type Entry struct {
	Index     int             `json:"index"`
	Role      string          `json:"role"`
	Text      string          `json:"text,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
	Card      *model.Card     `json:"card,omitempty"`
	Raw       json.RawMessage `json:"raw,omitempty"`
}

// Manifest is the full transcript of a thread at export time, built from
// the message store after reconciliation so the rows match what the user
// sees on screen.
type Manifest struct {
	Workspace  string  `json:"workspace"`
	Thread     string  `json:"thread"`
	ExportedAt string  `json:"exportedAt"`
	Entries    []Entry `json:"entries"`
}

// BuildManifest snapshots messages into a manifest. Order is preserved;
// timestamps are rendered RFC 3339 and omitted for untimestamped rows.
func BuildManifest(workspace, thread string, messages []*model.Message) *Manifest {
	m := &Manifest{
		Workspace:  workspace,
		Thread:     thread,
		ExportedAt: time.Now().Format(time.RFC3339),
		Entries:    make([]Entry, 0, len(messages)),
	}
	for i, msg := range messages {
		e := Entry{
			Index: i,
			Role:  string(msg.Role),
			Text:  msg.Content,
			Card:  msg.Card,
			Raw:   msg.Raw,
		}
		if !msg.SentAt.IsZero() {
			e.Timestamp = msg.SentAt.Format(time.RFC3339)
		}
		m.Entries = append(m.Entries, e)
	}
	return m
}

// =============================================================================
// EXPORTERS
// =============================================================================

// Exporter renders a manifest into a concrete file format.
type Exporter interface {
	// Render converts the manifest to the target format.
	Render(m *Manifest) ([]byte, error)

	// FileExtension returns the extension for the format (e.g. ".md").
	FileExtension() string
}

// WriteFile renders the manifest and writes it atomically under dir. The
// filename is derived from the thread ID and export time; the final path
// is returned.
func WriteFile(m *Manifest, exporter Exporter, dir string) (string, error) {
	if m == nil {
		return "", fmt.Errorf("manifest is nil")
	}
	content, err := exporter.Render(m)
	if err != nil {
		return "", fmt.Errorf("render failed: %w", err)
	}

	name := fmt.Sprintf("docsmith-%s-%s%s",
		sanitizeFilename(m.Thread),
		time.Now().Format("20060102-150405"),
		exporter.FileExtension())
	path := filepath.Join(dir, name)

	if err := util.AtomicWriteFile(path, content, 0644); err != nil {
		return "", fmt.Errorf("write failed: %w", err)
	}
	return path, nil
}

// sanitizeFilename keeps thread IDs filesystem-safe.
func sanitizeFilename(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	if len(out) == 0 {
		return "thread"
	}
	if len(out) > 40 {
		out = out[:40]
	}
	return string(out)
}
