// docsmith-tui - A terminal chat surface for the Docsmith document workspace.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"

	"github.com/jeranaias/docsmith-tui/internal/api"
	"github.com/jeranaias/docsmith-tui/internal/config"
	"github.com/jeranaias/docsmith-tui/internal/history"
	"github.com/jeranaias/docsmith-tui/internal/jobs"
	"github.com/jeranaias/docsmith-tui/internal/logging"
	"github.com/jeranaias/docsmith-tui/internal/session"
	"github.com/jeranaias/docsmith-tui/internal/storage"
	"github.com/jeranaias/docsmith-tui/internal/store"
	"github.com/jeranaias/docsmith-tui/internal/ui/chat"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "docsmith:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		workspaceFlag = flag.String("workspace", "", "workspace slug (overrides config)")
		threadFlag    = flag.String("thread", "default", "thread ID to open")
		configFlag    = flag.String("config", "", "path to config.toml")
		versionFlag   = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *versionFlag {
		fmt.Printf("docsmith-tui %s (%s, %s)\n", Version, GitCommit, BuildDate)
		return nil
	}

	// Configuration
	configPath := *configFlag
	if configPath == "" {
		var err error
		configPath, err = config.ConfigPath()
		if err != nil {
			return err
		}
	}
	cfg, err := config.LoadFromPath(configPath)
	if err != nil {
		return err
	}
	config.SetGlobal(cfg)

	workspace := cfg.Workspace
	if *workspaceFlag != "" {
		workspace = *workspaceFlag
	}
	if workspace == "" {
		return fmt.Errorf("no workspace configured: set workspace in %s or pass -workspace", configPath)
	}
	if cfg.API.BaseURL == "" {
		return fmt.Errorf("no api.base_url configured in %s", configPath)
	}

	// Logging: JSON file always. The TUI owns the terminal when stdout
	// is one; headless runs (piped, CI) fan log lines to stderr too.
	logPath := cfg.Logging.Path
	if logPath == "" {
		dir, err := config.ConfigDir()
		if err != nil {
			return err
		}
		logPath = filepath.Join(dir, "docsmith.log")
	}
	tuiAttached := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	logger, closeLog, err := logging.Setup(logPath, logging.ParseLevel(cfg.Logging.Level), tuiAttached)
	if err != nil {
		return err
	}
	defer closeLog()
	logger.Info("starting", "version", Version, "workspace", workspace, "thread", *threadFlag)

	// Domain state
	client := api.NewClient(cfg.API.BaseURL, cfg.API.APIKey)
	st := store.New()
	guard := session.NewGuard()
	window := history.NewWindow(client, st, logger, workspace, *threadFlag, cfg.History.PageSize)

	var cache *storage.Cache
	if cfg.Cache.Enabled {
		cache, err = openCache(cfg)
		if err != nil {
			logger.Warn("cache unavailable", "error", err)
		} else {
			defer cache.Close()
		}
	}

	correlator := jobs.NewCorrelator(client, client, st, guard, logger, jobs.Config{
		Workspace:       workspace,
		PollInterval:    cfg.PollInterval(),
		TypingThreshold: cfg.TypingPause(),
	})

	m := chat.New(chat.Deps{
		Config:     cfg,
		Logger:     logger,
		Client:     client,
		Store:      st,
		Guard:      guard,
		Window:     window,
		Correlator: correlator,
		Cache:      cache,
		Workspace:  workspace,
		Thread:     *threadFlag,
	})

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())

	// Every store writer (stream, poller, pagination) funnels through one
	// listener; the program coalesces repaints on its own loop.
	st.OnMutated(func() {
		p.Send(chat.StoreMutatedMsg{})
	})

	// Background job polling, decoupled from the chat stream lifecycle.
	pollCtx, stopPolling := context.WithCancel(context.Background())
	correlator.Start(pollCtx)
	defer func() {
		stopPolling()
		correlator.Stop()
	}()

	// Config hot-reload.
	watcher, err := config.NewWatcher(configPath, logger, func(fresh *config.Config) {
		config.SetGlobal(fresh)
		p.Send(chat.ConfigReloadedMsg{Config: fresh})
	})
	if err != nil {
		logger.Warn("config watch unavailable", "error", err)
	} else {
		defer watcher.Close()
	}

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui crashed: %w", err)
	}
	logger.Info("shutdown")
	return nil
}

func openCache(cfg *config.Config) (*storage.Cache, error) {
	if cfg.Cache.Path != "" {
		return storage.Open(cfg.Cache.Path)
	}
	return storage.OpenDefault()
}
