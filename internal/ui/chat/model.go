// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"log/slog"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/docsmith-tui/internal/api"
	"github.com/jeranaias/docsmith-tui/internal/config"
	"github.com/jeranaias/docsmith-tui/internal/history"
	"github.com/jeranaias/docsmith-tui/internal/jobs"
	"github.com/jeranaias/docsmith-tui/internal/session"
	"github.com/jeranaias/docsmith-tui/internal/storage"
	"github.com/jeranaias/docsmith-tui/internal/store"
	"github.com/jeranaias/docsmith-tui/internal/stream"
	"github.com/jeranaias/docsmith-tui/internal/ui/styles"
)

// =============================================================================
// CHAT MODEL
// =============================================================================

// Deps carries everything the chat model needs. All fields except Cache
// are required.
type Deps struct {
	Config     *config.Config
	Logger     *slog.Logger
	Client     *api.Client
	Store      *store.Store
	Guard      *session.Guard
	Window     *history.Window
	Correlator *jobs.Correlator
	Cache      *storage.Cache
	Workspace  string
	Thread     string
}

// Model is the Bubble Tea model for the chat surface.
type Model struct {
	cfg    *config.Config
	logger *slog.Logger
	theme  *styles.Theme
	keys   KeyMap

	client     *api.Client
	store      *store.Store
	guard      *session.Guard
	window     *history.Window
	correlator *jobs.Correlator
	cache      *storage.Cache

	classifier *stream.Classifier
	scroll     *ScrollController
	render     *RenderWindow

	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model
	markdown *glamour.TermRenderer

	workspace string
	thread    string

	width  int
	height int
	ready  bool

	// decoder is non-nil only while a stream is being consumed.
	// streamCtx carries the cancel registered with the session guard.
	decoder   *stream.FrameDecoder
	streamCtx context.Context

	// lastSent is kept for the sync fallback retry. sendSeq identifies
	// the current send so a fallback result from a superseded send is
	// dropped instead of landing in the wrong turn.
	lastSent string
	sendSeq  int

	// Ephemeral status line under the open turn. statusSeq invalidates
	// stale expiry timers.
	status    string
	statusSeq int

	errText    string
	exportNote string
}

// New creates the chat model.
func New(deps Deps) Model {
	ta := textarea.New()
	ta.Placeholder = "Ask the workspace..."
	ta.Prompt = "> "
	ta.SetHeight(3)
	ta.ShowLineNumbers = false
	ta.CharLimit = 8000
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot

	return Model{
		cfg:        deps.Config,
		logger:     deps.Logger,
		theme:      styles.NewTheme(deps.Config.UI.Theme),
		keys:       DefaultKeyMap(),
		client:     deps.Client,
		store:      deps.Store,
		guard:      deps.Guard,
		window:     deps.Window,
		correlator: deps.Correlator,
		cache:      deps.Cache,
		classifier: stream.NewClassifier(),
		scroll:     NewScrollController(),
		render:     NewRenderWindow(deps.Config.UI.RenderWindowSize),
		textarea:   ta,
		spinner:    sp,
		workspace:  deps.Workspace,
		thread:     deps.Thread,
	}
}

// Init implements tea.Model. The cached snapshot paints first; the real
// history fetch replaces it when it lands.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.spinner.Tick,
		loadCacheCmd(m.cache, m.workspace, m.thread),
		loadHistoryCmd(m.client, m.workspace, m.thread, m.cfg.History.PageSize),
	)
}

// newMarkdownRenderer builds a glamour renderer for the current width.
func (m *Model) newMarkdownRenderer() {
	style := "dark"
	if !m.theme.IsDark {
		style = "light"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(m.contentWidth()),
	)
	if err != nil {
		m.logger.Warn("markdown renderer unavailable", "error", err)
		m.markdown = nil
		return
	}
	m.markdown = r
}

// contentWidth is the usable width for message text.
func (m *Model) contentWidth() int {
	w := m.width - 4
	if w < 20 {
		w = 20
	}
	return w
}

// streamingActive reports whether a stream is currently consumed.
func (m *Model) streamingActive() bool {
	return m.decoder != nil
}
