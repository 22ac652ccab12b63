// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "time"

// =============================================================================
// JOB PROJECTION
// =============================================================================

// Job is the read-only projection of a background generation job as
// reported by the workspace backend's job feed. The chat surface never
// writes jobs; it only correlates them onto cards.
type Job struct {
	ID          string     `json:"id"`
	WorkspaceID string     `json:"workspaceId"`
	Status      CardStatus `json:"status"`
	Template    string     `json:"template,omitempty"`
	AIContext   string     `json:"aiContext,omitempty"`
	File        string     `json:"file,omitempty"`
	Progress    int        `json:"progress,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// InWorkspace reports whether the job is bound to the given workspace.
func (j *Job) InWorkspace(workspaceID string) bool {
	return j.WorkspaceID == workspaceID
}
