// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"log"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/smartdocs-tui/internal/api"
	"github.com/jeranaias/smartdocs-tui/internal/config"
	"github.com/jeranaias/smartdocs-tui/internal/gateway"
	"github.com/jeranaias/smartdocs-tui/internal/scroll"
	"github.com/jeranaias/smartdocs-tui/internal/session"
	"github.com/jeranaias/smartdocs-tui/internal/stream"
	"github.com/jeranaias/smartdocs-tui/internal/telemetry"
	"github.com/jeranaias/smartdocs-tui/internal/transcript"
	"github.com/jeranaias/smartdocs-tui/internal/ui/components"
	"github.com/jeranaias/smartdocs-tui/internal/ui/styles"
)

// =============================================================================
// SCREENS
// =============================================================================

type screen int

const (
	screenLogin screen = iota
	screenChat
)

// Layout rows outside the transcript.
const (
	headerRows = 1
	statusRows = 1
	inputRows  = 3
)

// =============================================================================
// CHAT MODEL
// =============================================================================

// Deps are the collaborators of the chat view. Config, Gateway and Scroll
// are required.
type Deps struct {
	Config  *config.Config
	Gateway *gateway.Gateway
	Scroll  *scroll.Coordinator

	// Client performs logins; may be nil when the session is preloaded.
	Client  *api.Client
	Session *session.Manager

	Stats    *telemetry.Tracker
	Observer stream.Observer

	// ConfigUpdates delivers configurations reloaded from disk.
	ConfigUpdates <-chan *config.Config

	// ExportDir is where /export writes files (default ".").
	ExportDir string

	Logger *log.Logger
}

// Model is the Bubble Tea model for the chat view. It is used as a pointer
// so the transcript subscription can reach it.
type Model struct {
	cfg      *config.Config
	gw       *gateway.Gateway
	store    *transcript.Store
	coord    *scroll.Coordinator
	client   *api.Client
	sess     *session.Manager
	stats    *telemetry.Tracker
	observer stream.Observer
	updates  <-chan *config.Config
	export   string
	logger   *log.Logger

	// Styling
	theme *styles.Theme
	keys  KeyMap
	help  help.Model

	// Dimensions
	width  int
	height int
	screen screen

	// Components
	vp       *transcriptViewport
	input    textinput.Model
	spinner  spinner.Model
	renderer *components.EntryRenderer
	list     *components.ConversationList
	toasts   *components.ToastManager
	banner   components.ExpiryBanner
	login    loginForm

	spinning    bool
	showHelp    bool
	offline     bool
	unsubscribe func()
}

// New creates the chat model and subscribes it to the gateway's store.
func New(deps Deps) *Model {
	cfg := deps.Config
	if cfg == nil {
		cfg = config.Default()
	}

	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question about your documents..."
	ti.CharLimit = 8192
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	theme := styles.NewTheme(cfg.UI.Theme)
	sp.Style = theme.Streaming

	m := &Model{
		cfg:      cfg,
		gw:       deps.Gateway,
		store:    deps.Gateway.Store(),
		coord:    deps.Scroll,
		client:   deps.Client,
		sess:     deps.Session,
		stats:    deps.Stats,
		observer: deps.Observer,
		updates:  deps.ConfigUpdates,
		export:   deps.ExportDir,
		logger:   deps.Logger,
		theme:    theme,
		keys:     DefaultKeyMap(),
		help:     help.New(),
		vp:       newTranscriptViewport(80, 20, cfg.Scroll.Smooth),
		input:    ti,
		spinner:  sp,
		renderer: components.NewEntryRenderer(theme, cfg.UI.Markdown, deps.Logger),
		list:     components.NewConversationList(),
		toasts:   components.NewToastManager(),
		login:    newLoginForm(cfg.Auth.Username),
		screen:   screenChat,
	}
	if m.export == "" {
		m.export = "."
	}
	if m.sess != nil && !m.sess.IsLoggedIn() {
		m.screen = screenLogin
		m.input.Blur()
	}

	m.coord.Attach(m.vp)
	m.unsubscribe = m.store.Subscribe(m.onChange)
	m.refreshTranscript()
	return m
}

// Init starts the background loops and, when logged in, loads the
// conversation list.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		textinput.Blink,
		components.ToastTickCmd(),
		waitForConfig(m.updates),
	}
	if m.sess != nil {
		cmds = append(cmds, session.TickCmd())
	}
	if m.screen == screenChat {
		cmds = append(cmds, m.gw.Start())
	} else {
		cmds = append(cmds, m.login.focusCmd())
	}
	return tea.Batch(cmds...)
}

// Close releases the store subscription.
func (m *Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
}

// =============================================================================
// TRANSCRIPT WIRING
// =============================================================================

// onChange is the store listener. The viewport content must reflect the
// change before the coordinator measures it.
func (m *Model) onChange(c transcript.Change) {
	if c.Kind == transcript.ChangeLoaded {
		m.renderer.Forget()
	}
	m.refreshTranscript()
	m.coord.OnChange(c)
}

// refreshTranscript re-renders the transcript into the viewport.
func (m *Model) refreshTranscript() {
	if m.store.Len() == 0 {
		m.vp.SetContent(m.theme.Empty.Render(m.emptyText()))
		return
	}
	m.vp.SetContent(m.renderer.RenderTranscript(m.store.Entries()))
}

func (m *Model) emptyText() string {
	if m.gw.CurrentID() == 0 {
		return "No conversation yet. Type a question to start one."
	}
	return "No messages yet."
}

// =============================================================================
// LAYOUT
// =============================================================================

// layout sizes every component from the window size.
func (m *Model) layout() {
	m.theme.SetSize(m.width, m.height)

	bodyWidth := m.width
	if m.theme.ShowList() {
		listWidth := m.theme.ListWidth()
		m.list.SetSize(listWidth, m.bodyHeight())
		bodyWidth -= listWidth + 1 // right border
	}
	m.vp.SetSize(bodyWidth, m.bodyHeight())
	m.renderer.SetWidth(bodyWidth - 2)
	m.input.Width = max(10, m.width-6)
	m.help.Width = m.width

	m.refreshTranscript()
	if !m.coord.State().Reading {
		m.vp.ScrollToBottom(false)
	}
	m.coord.OnScroll(false)
}

func (m *Model) bodyHeight() int {
	h := m.height - headerRows - statusRows - inputRows
	if m.banner.IsVisible() {
		h--
	}
	return max(1, h)
}

// syncList mirrors the gateway's conversation list into the side pane.
func (m *Model) syncList() {
	m.list.SetItems(m.gw.Conversations(), m.gw.CurrentID())
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Theme returns the active theme.
func (m *Model) Theme() *styles.Theme { return m.theme }

// Offline reports whether the list was last loaded from the cache.
func (m *Model) Offline() bool { return m.offline }

// OnLoginScreen reports whether the login form is shown.
func (m *Model) OnLoginScreen() bool { return m.screen == screenLogin }
