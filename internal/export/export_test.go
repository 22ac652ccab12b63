// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/docsmith-tui/internal/model"
)

func testMessages() []*model.Message {
	return []*model.Message{
		{
			ID:      "m1",
			Role:    model.RoleUser,
			SentAt:  time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
			Content: "draft the onboarding doc",
		},
		{
			ID:     "m2",
			Role:   model.RoleAssistant,
			SentAt: time.Date(2025, 3, 1, 10, 0, 5, 0, time.UTC),
			Card: &model.Card{
				ID:        "c1",
				Side:      model.RoleAssistant,
				JobID:     "job-42",
				JobStatus: model.CardStatusDone,
				Filename:  "onboarding.docx",
				Template:  "onboarding",
				Timestamp: time.Date(2025, 3, 1, 10, 0, 5, 0, time.UTC),
			},
		},
		{
			ID:      "m3",
			Role:    model.RoleAssistant,
			Content: "done, see the attached draft",
			Raw:     json.RawMessage(`{"id":"m3"}`),
		},
	}
}

func TestBuildManifest(t *testing.T) {
	m := BuildManifest("ws-1", "thread-1", testMessages())

	require.Len(t, m.Entries, 3)
	assert.Equal(t, "ws-1", m.Workspace)
	assert.Equal(t, "thread-1", m.Thread)

	// Display order preserved, indices sequential.
	for i, e := range m.Entries {
		assert.Equal(t, i, e.Index)
	}
	assert.Equal(t, "2025-03-01T10:00:00Z", m.Entries[0].Timestamp)
	assert.Equal(t, "user", m.Entries[0].Role)

	// Card and raw payload survive.
	require.NotNil(t, m.Entries[1].Card)
	assert.Equal(t, "job-42", m.Entries[1].Card.JobID)
	assert.JSONEq(t, `{"id":"m3"}`, string(m.Entries[2].Raw))

	// Untimestamped row has no timestamp field.
	assert.Empty(t, m.Entries[2].Timestamp)
}

func TestJSONExporterRoundTrip(t *testing.T) {
	m := BuildManifest("ws-1", "thread-1", testMessages())

	data, err := NewJSONExporter().Render(m)
	require.NoError(t, err)

	var decoded Manifest
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, m.Workspace, decoded.Workspace)
	require.Len(t, decoded.Entries, 3)
	assert.Equal(t, "draft the onboarding doc", decoded.Entries[0].Text)
	require.NotNil(t, decoded.Entries[1].Card)
	assert.Equal(t, model.CardStatusDone, decoded.Entries[1].Card.JobStatus)
}

func TestMarkdownExporter(t *testing.T) {
	m := BuildManifest("ws-1", "thread-1", testMessages())

	data, err := NewMarkdownExporter().Render(m)
	require.NoError(t, err)
	out := string(data)

	assert.True(t, strings.HasPrefix(out, "---\n"), "frontmatter missing")
	assert.Contains(t, out, "workspace: ws-1")
	assert.Contains(t, out, "### You — 2025-03-01T10:00:00Z")
	assert.Contains(t, out, "draft the onboarding doc")
	assert.Contains(t, out, "**Generation job** `job-42`")
	assert.Contains(t, out, "Status: done")
	assert.Contains(t, out, "File: onboarding.docx")
}

func TestMarkdownExporterNilManifest(t *testing.T) {
	_, err := NewMarkdownExporter().Render(nil)
	assert.Error(t, err)
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	m := BuildManifest("ws-1", "thread/with spaces!", testMessages())

	path, err := WriteFile(m, NewJSONExporter(), dir)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, ".json"))
	assert.NotContains(t, path, " ")
	assert.NotContains(t, path, "!")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded Manifest
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Len(t, decoded.Entries, 3)
}

func TestEscapeYAML(t *testing.T) {
	assert.Equal(t, "plain", escapeYAML("plain"))
	assert.Equal(t, `"has: colon"`, escapeYAML("has: colon"))
}
