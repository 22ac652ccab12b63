// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/docsmith-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete docsmith-tui configuration.
type Config struct {
	Version string `toml:"version"`

	// Workspace is the default workspace slug opened on launch.
	Workspace string `toml:"workspace"`

	API     APIConfig     `toml:"api"`
	UI      UIConfig      `toml:"ui"`
	Jobs    JobsConfig    `toml:"jobs"`
	History HistoryConfig `toml:"history"`
	Cache   CacheConfig   `toml:"cache"`
	Export  ExportConfig  `toml:"export"`
	Logging LoggingConfig `toml:"logging"`
}

// APIConfig contains backend connection settings.
type APIConfig struct {
	// BaseURL is the docsmith backend root, e.g. https://docsmith.example.com/api.
	BaseURL string `toml:"base_url"`
	// APIKey authenticates every request. Overridable via DOCSMITH_API_KEY.
	APIKey string `toml:"api_key"`
	// TimeoutSecs bounds non-streaming requests. Streaming requests are
	// never given a deadline.
	TimeoutSecs int `toml:"timeout_secs"`
}

// UIConfig contains terminal UI settings.
type UIConfig struct {
	// Theme selects the color scheme: "dark" or "light".
	Theme string `toml:"theme"`
	// MarkdownRendering enables glamour rendering of assistant turns.
	MarkdownRendering bool `toml:"markdown_rendering"`
	// RenderWindowSize caps how many messages are rendered at once.
	RenderWindowSize int `toml:"render_window_size"`
}

// JobsConfig tunes the generation-job poller.
type JobsConfig struct {
	// PollIntervalSecs is how often job status is fetched.
	PollIntervalSecs int `toml:"poll_interval_secs"`
	// TypingPauseSecs suppresses a poll tick when the user typed within
	// this many seconds.
	TypingPauseSecs int `toml:"typing_pause_secs"`
}

// HistoryConfig tunes thread history pagination.
type HistoryConfig struct {
	// PageSize is messages fetched per older-history page.
	PageSize int `toml:"page_size"`
}

// CacheConfig contains local snapshot cache settings.
type CacheConfig struct {
	// Enabled turns the SQLite warm-start cache on.
	Enabled bool `toml:"enabled"`
	// Path overrides the cache location (empty = ~/.docsmith/cache.db).
	Path string `toml:"path"`
}

// ExportConfig contains transcript export settings.
type ExportConfig struct {
	// Dir is where transcripts are written (empty = current directory).
	Dir string `toml:"dir"`
	// Format is the default format: "markdown" or "json".
	Format string `toml:"format"`
}

// LoggingConfig contains log output settings.
type LoggingConfig struct {
	// Level is slog level: "debug", "info", "warn", "error".
	Level string `toml:"level"`
	// Path overrides the log file (empty = ~/.docsmith/docsmith.log).
	Path string `toml:"path"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Version: "1.0",
		API: APIConfig{
			TimeoutSecs: 30,
		},
		UI: UIConfig{
			Theme:             "dark",
			MarkdownRendering: true,
			RenderWindowSize:  60,
		},
		Jobs: JobsConfig{
			PollIntervalSecs: 5,
			TypingPauseSecs:  2,
		},
		History: HistoryConfig{
			PageSize: 20,
		},
		Cache: CacheConfig{
			Enabled: true,
		},
		Export: ExportConfig{
			Format: "markdown",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns the docsmith configuration directory (~/.docsmith).
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".docsmith"), nil
}

// ConfigPath returns the full path to config.toml.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureConfigDir creates the configuration directory if needed.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads configuration from the default location, merging over
// defaults and applying environment overrides. A missing file is not an
// error; defaults are returned.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath reads configuration from an explicit path.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// =============================================================================
// SAVING
// =============================================================================

// Save writes the configuration to the default location atomically.
func Save(cfg *Config) error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveToPath(cfg, path)
}

// SaveToPath writes the configuration as TOML to an explicit path.
func SaveToPath(cfg *Config, path string) error {
	var sb strings.Builder
	if err := toml.NewEncoder(&sb).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	// 0600: config may hold the API key.
	return util.AtomicWriteFile(path, []byte(sb.String()), 0600)
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError describes a single invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// Validate checks field values. Zero numeric fields are repaired to
// defaults rather than rejected.
func (c *Config) Validate() error {
	if c.API.BaseURL != "" {
		u, err := url.Parse(c.API.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return ValidationError{Field: "api.base_url", Message: "must be an http(s) URL"}
		}
	}
	switch c.UI.Theme {
	case "", "dark", "light":
	default:
		return ValidationError{Field: "ui.theme", Message: `must be "dark" or "light"`}
	}
	switch c.Export.Format {
	case "", "markdown", "json":
	default:
		return ValidationError{Field: "export.format", Message: `must be "markdown" or "json"`}
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return ValidationError{Field: "logging.level", Message: "must be debug, info, warn or error"}
	}

	def := Default()
	if c.API.TimeoutSecs <= 0 {
		c.API.TimeoutSecs = def.API.TimeoutSecs
	}
	if c.UI.RenderWindowSize <= 0 {
		c.UI.RenderWindowSize = def.UI.RenderWindowSize
	}
	if c.Jobs.PollIntervalSecs <= 0 {
		c.Jobs.PollIntervalSecs = def.Jobs.PollIntervalSecs
	}
	if c.Jobs.TypingPauseSecs < 0 {
		c.Jobs.TypingPauseSecs = def.Jobs.TypingPauseSecs
	}
	if c.History.PageSize <= 0 {
		c.History.PageSize = def.History.PageSize
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies DOCSMITH_* environment variables over file
// values. Environment always wins.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("DOCSMITH_BASE_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("DOCSMITH_API_KEY"); v != "" {
		c.API.APIKey = v
	}
	if v := os.Getenv("DOCSMITH_WORKSPACE"); v != "" {
		c.Workspace = v
	}
	if v := os.Getenv("DOCSMITH_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("DOCSMITH_CACHE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Cache.Enabled = b
		}
	}
}

// =============================================================================
// DERIVED VALUES
// =============================================================================

// RequestTimeout returns the non-streaming request timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.API.TimeoutSecs) * time.Second
}

// PollInterval returns the job poll cadence.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Jobs.PollIntervalSecs) * time.Second
}

// TypingPause returns the typing suppression window for job polls.
func (c *Config) TypingPause() time.Duration {
	return time.Duration(c.Jobs.TypingPauseSecs) * time.Second
}

// =============================================================================
// GLOBAL INSTANCE
// =============================================================================

var (
	globalMu     sync.RWMutex
	globalConfig *Config
)

// Global returns the process-wide configuration, loading it on first use.
func Global() *Config {
	globalMu.RLock()
	if globalConfig != nil {
		defer globalMu.RUnlock()
		return globalConfig
	}
	globalMu.RUnlock()

	globalMu.Lock()
	defer globalMu.Unlock()
	if globalConfig == nil {
		cfg, err := Load()
		if err != nil {
			cfg = Default()
		}
		globalConfig = cfg
	}
	return globalConfig
}

// SetGlobal replaces the process-wide configuration.
func SetGlobal(cfg *Config) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting clears the global instance.
func ResetGlobalForTesting() {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalConfig = nil
}
