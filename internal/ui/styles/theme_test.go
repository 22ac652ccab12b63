// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "testing"

func TestNewThemeExplicitSchemes(t *testing.T) {
	dark := NewTheme("dark")
	if !dark.IsDark {
		t.Error("dark theme reports IsDark=false")
	}
	light := NewTheme("light")
	if light.IsDark {
		t.Error("light theme reports IsDark=true")
	}
}

func TestCardStatusStyle(t *testing.T) {
	theme := NewTheme("dark")
	for _, status := range []string{"running", "done", "error", "cancelled", "unknown"} {
		// Must never panic and must return a usable style.
		_ = theme.CardStatusStyle(status).Render(status)
	}
	if theme.CardStatusStyle("done").Render("x") == theme.CardStatusStyle("error").Render("x") &&
		theme.HasTrueColor {
		t.Error("done and error statuses render identically")
	}
}
