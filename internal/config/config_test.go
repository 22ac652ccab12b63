// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 30, cfg.API.TimeoutSecs)
	assert.Equal(t, "dark", cfg.UI.Theme)
	assert.Equal(t, 20, cfg.History.PageSize)
	assert.Equal(t, 5*time.Second, cfg.PollInterval())
	assert.Equal(t, 2*time.Second, cfg.TypingPause())
	assert.True(t, cfg.Cache.Enabled)
}

func TestLoadFromPathMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default().History.PageSize, cfg.History.PageSize)
}

func TestLoadFromPathParsesTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
workspace = "acme"

[api]
base_url = "https://docsmith.example.com/api"
timeout_secs = 10

[ui]
theme = "light"

[history]
page_size = 50
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "acme", cfg.Workspace)
	assert.Equal(t, "https://docsmith.example.com/api", cfg.API.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout())
	assert.Equal(t, "light", cfg.UI.Theme)
	assert.Equal(t, 50, cfg.History.PageSize)
	// Unset sections keep defaults.
	assert.Equal(t, 5, cfg.Jobs.PollIntervalSecs)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.API.BaseURL = "not a url"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.UI.Theme = "solarized"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Logging.Level = "trace"
	assert.Error(t, cfg.Validate())
}

func TestValidateRepairsZeroNumerics(t *testing.T) {
	cfg := Default()
	cfg.History.PageSize = 0
	cfg.API.TimeoutSecs = -5
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 20, cfg.History.PageSize)
	assert.Equal(t, 30, cfg.API.TimeoutSecs)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DOCSMITH_API_KEY", "env-key")
	t.Setenv("DOCSMITH_WORKSPACE", "env-ws")
	t.Setenv("DOCSMITH_CACHE", "false")

	cfg := Default()
	cfg.API.APIKey = "file-key"
	cfg.ApplyEnvOverrides()

	assert.Equal(t, "env-key", cfg.API.APIKey)
	assert.Equal(t, "env-ws", cfg.Workspace)
	assert.False(t, cfg.Cache.Enabled)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.Workspace = "roundtrip"
	cfg.API.BaseURL = "http://localhost:8080"
	require.NoError(t, SaveToPath(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "roundtrip", loaded.Workspace)
	assert.Equal(t, "http://localhost:8080", loaded.API.BaseURL)
}

func TestGlobalSetAndReset(t *testing.T) {
	ResetGlobalForTesting()
	defer ResetGlobalForTesting()

	cfg := Default()
	cfg.Workspace = "global-ws"
	SetGlobal(cfg)
	assert.Equal(t, "global-ws", Global().Workspace)
}
