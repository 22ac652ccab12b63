// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for docsmith-tui.
package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the styled components for the chat surface. It detects the
// terminal's color capability and adjusts accordingly.
type Theme struct {
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	// ==========================================================================
	// LAYOUT
	// ==========================================================================

	Header    lipgloss.Style
	StatusBar lipgloss.Style
	Help      lipgloss.Style

	// ==========================================================================
	// MESSAGE STYLES
	// ==========================================================================

	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	Timestamp      lipgloss.Style
	ErrorText      lipgloss.Style

	// ==========================================================================
	// CARD STYLES
	// ==========================================================================

	CardBox       lipgloss.Style
	CardRunning   lipgloss.Style
	CardDone      lipgloss.Style
	CardError     lipgloss.Style
	CardCancelled lipgloss.Style

	// ==========================================================================
	// EPHEMERAL STATUS
	// ==========================================================================

	Progress lipgloss.Style

	// Input area
	InputBox    lipgloss.Style
	InputPrompt lipgloss.Style
}

// palette is the raw color set behind a theme.
type palette struct {
	primary   string
	secondary string
	muted     string
	errorCol  string
	success   string
	warning   string
	border    string
}

var darkPalette = palette{
	primary:   "#7aa2f7",
	secondary: "#9ece6a",
	muted:     "#565f89",
	errorCol:  "#f7768e",
	success:   "#73daca",
	warning:   "#e0af68",
	border:    "#3b4261",
}

var lightPalette = palette{
	primary:   "#2e5dbf",
	secondary: "#33635c",
	muted:     "#9699a3",
	errorCol:  "#c0392b",
	success:   "#166d5a",
	warning:   "#8f5e15",
	border:    "#c8c9d1",
}

// NewTheme builds the theme for the named scheme ("dark" or "light").
// Terminal capability is auto-detected; an unknown name falls back to the
// detected background.
func NewTheme(name string) *Theme {
	colorProfile := termenv.ColorProfile()
	isDark := termenv.HasDarkBackground()
	switch name {
	case "dark":
		isDark = true
	case "light":
		isDark = false
	}

	p := darkPalette
	if !isDark {
		p = lightPalette
	}

	t := &Theme{
		IsDark:       isDark,
		HasTrueColor: colorProfile == termenv.TrueColor,
		ColorProfile: colorProfile,
	}

	t.Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(p.primary)).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(lipgloss.Color(p.border))

	t.StatusBar = lipgloss.NewStyle().
		Foreground(lipgloss.Color(p.muted))

	t.Help = lipgloss.NewStyle().
		Foreground(lipgloss.Color(p.muted)).
		Italic(true)

	t.UserLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(p.secondary))

	t.AssistantLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(p.primary))

	t.Timestamp = lipgloss.NewStyle().
		Foreground(lipgloss.Color(p.muted))

	t.ErrorText = lipgloss.NewStyle().
		Foreground(lipgloss.Color(p.errorCol))

	t.CardBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(p.border)).
		Padding(0, 1)

	t.CardRunning = lipgloss.NewStyle().Foreground(lipgloss.Color(p.warning))
	t.CardDone = lipgloss.NewStyle().Foreground(lipgloss.Color(p.success))
	t.CardError = lipgloss.NewStyle().Foreground(lipgloss.Color(p.errorCol))
	t.CardCancelled = lipgloss.NewStyle().Foreground(lipgloss.Color(p.muted))

	t.Progress = lipgloss.NewStyle().
		Foreground(lipgloss.Color(p.warning)).
		Italic(true)

	t.InputBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderTop(true).
		BorderForeground(lipgloss.Color(p.border))

	t.InputPrompt = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(p.secondary))

	return t
}

// CardStatusStyle returns the style for a job status string.
func (t *Theme) CardStatusStyle(status string) lipgloss.Style {
	switch status {
	case "running":
		return t.CardRunning
	case "done":
		return t.CardDone
	case "error":
		return t.CardError
	case "cancelled":
		return t.CardCancelled
	default:
		return t.StatusBar
	}
}
