// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/smartdocs-tui/internal/api"
	"github.com/jeranaias/smartdocs-tui/internal/config"
	"github.com/jeranaias/smartdocs-tui/internal/gateway"
	"github.com/jeranaias/smartdocs-tui/internal/scroll"
	"github.com/jeranaias/smartdocs-tui/internal/session"
	"github.com/jeranaias/smartdocs-tui/internal/stream"
	"github.com/jeranaias/smartdocs-tui/internal/ui/components"
)

// =============================================================================
// UPDATE
// =============================================================================

// Update handles every message of the program. Gateway messages are passed
// through to the gateway after the view has seen them.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	model, cmd := m.update(msg)
	cmds := []tea.Cmd{cmd}

	if m.gw.Busy() && !m.spinning {
		m.spinning = true
		cmds = append(cmds, m.spinner.Tick)
	}
	cmds = append(cmds, m.vp.frameCmd())
	return model, tea.Batch(cmds...)
}

func (m *Model) update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		return m, nil

	case tea.KeyMsg:
		if m.screen == screenLogin {
			return m.updateLogin(msg)
		}
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case scrollFrameMsg:
		m.vp.step()
		return m, nil

	case spinner.TickMsg:
		if !m.gw.Busy() {
			m.spinning = false
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case components.ToastTickMsg:
		m.toasts.Tick()
		return m, components.ToastTickCmd()

	case ConfigReloadedMsg:
		m.applyConfig(msg.Config)
		m.toasts.AddStatus("configuration reloaded")
		return m, waitForConfig(m.updates)

	case loginResultMsg:
		return m.handleLoginResult(msg)

	case exportDoneMsg:
		if msg.Err != nil {
			m.toasts.AddError("export failed: " + msg.Err.Error())
		} else {
			m.toasts.AddSuccess("exported to " + msg.Path)
		}
		return m, nil

	case copyDoneMsg:
		if msg.Err != nil {
			m.toasts.AddError("copy failed: " + msg.Err.Error())
		} else {
			m.toasts.AddSuccess("copied last answer")
		}
		return m, nil

	// Session expiry
	case session.TickMsg:
		if m.sess == nil {
			return m, nil
		}
		if m.banner.IsVisible() {
			m.banner.Update(m.sess.RemainingTime())
		}
		return m, m.sess.HandleTick()

	case session.ExpiryWarningMsg:
		if m.screen == screenChat {
			m.banner.Show(msg.Remaining)
			m.layout()
		}
		return m, nil

	case session.ExpiredMsg:
		if m.screen != screenChat {
			return m, nil
		}
		return m, m.logout("your login expired, please log in again")

	// UI-facing gateway messages
	case gateway.NotifyMsg:
		m.notify(msg.Level, msg.Text)
		return m, nil

	case gateway.SendFailedMsg:
		if m.input.Value() == "" {
			m.input.SetValue(msg.Text)
			m.input.CursorEnd()
		}
		return m, nil

	case gateway.AuthExpiredMsg:
		if m.screen != screenChat {
			return m, nil
		}
		reason := "your login expired, please log in again"
		if msg.Err == api.ErrNotLoggedIn {
			reason = "please log in"
		}
		return m, m.logout(reason)

	case gateway.TurnCompletedMsg:
		return m, nil

	case gateway.ConversationsLoadedMsg:
		m.offline = msg.Offline
		cmd := m.gw.Update(msg)
		m.syncList()
		return m, cmd
	}

	cmd := m.gw.Update(msg)
	m.syncList()
	return m, cmd
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		m.showHelp = false
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.Dismiss):
		if m.banner.IsVisible() {
			m.banner.Dismiss()
			m.layout()
		} else {
			m.toasts.Dismiss()
		}
		return m, nil

	case key.Matches(msg, m.keys.Cancel):
		if m.gw.Busy() {
			return m, m.gw.Cancel()
		}
		m.input.SetValue("")
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		return m.submit()

	case key.Matches(msg, m.keys.NextConv):
		if conv, ok := m.list.Next(); ok {
			return m, m.open(conv.ID)
		}
		return m, nil

	case key.Matches(msg, m.keys.PrevConv):
		if conv, ok := m.list.Prev(); ok {
			return m, m.open(conv.ID)
		}
		return m, nil

	case key.Matches(msg, m.keys.Up):
		m.vp.lineUp(1)
		m.coord.OnScroll(true)
		return m, nil

	case key.Matches(msg, m.keys.Down):
		m.vp.lineDown(1)
		m.coord.OnScroll(true)
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.vp.pageUp()
		m.coord.OnScroll(true)
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.vp.pageDown()
		m.coord.OnScroll(true)
		return m, nil

	case key.Matches(msg, m.keys.Home):
		m.vp.top()
		m.coord.OnScroll(true)
		return m, nil

	case key.Matches(msg, m.keys.End):
		m.coord.JumpToLatest()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.screen != screenChat {
		return m, nil
	}
	switch msg.Type {
	case tea.MouseWheelUp:
		m.vp.lineUp(3)
		m.coord.OnScroll(true)
	case tea.MouseWheelDown:
		m.vp.lineDown(3)
		m.coord.OnScroll(true)
	}
	return m, nil
}

// submit sends the input as a question, or runs it as a slash command.
func (m *Model) submit() (tea.Model, tea.Cmd) {
	text := m.input.Value()
	if strings.HasPrefix(strings.TrimSpace(text), "/") {
		m.input.SetValue("")
		return m.handleCommand(strings.TrimSpace(text))
	}
	if strings.TrimSpace(text) == "" {
		return m, nil
	}
	if m.gw.Busy() {
		m.toasts.AddWarning("wait for the current answer, or press esc to stop it")
		return m, nil
	}
	m.input.SetValue("")
	cmd := m.gw.Send(text)
	m.syncList()
	return m, cmd
}

// open switches to conversation id unless it is already shown.
func (m *Model) open(id int64) tea.Cmd {
	if id == m.gw.CurrentID() {
		return nil
	}
	cmd := m.gw.Open(id)
	m.syncList()
	return cmd
}

// =============================================================================
// HELPERS
// =============================================================================

func (m *Model) notify(level gateway.NotifyLevel, text string) {
	switch level {
	case gateway.NotifyError:
		m.toasts.AddError(text)
	case gateway.NotifyWarning:
		m.toasts.AddWarning(text)
	default:
		m.toasts.AddStatus(text)
	}
}

// applyConfig adopts a reloaded configuration. The transport is fixed at
// startup; everything else takes effect for the next turn.
func (m *Model) applyConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.Chat.Transport != m.cfg.Chat.Transport {
		m.toasts.AddWarning("transport changes take effect after a restart")
	}
	m.cfg = cfg
	m.gw.SetOptions(gateway.OptionsFromConfig(cfg, config.SurfaceTUI, m.logger, m.observer))
	m.coord.SetThresholds(scroll.Thresholds{
		NearBottom:    cfg.Scroll.NearBottom,
		FarFromBottom: cfg.Scroll.FarFromBottom,
		Epsilon:       cfg.Scroll.Epsilon,
	})
	m.vp.SetSmooth(cfg.Scroll.Smooth)
	m.renderer.SetMarkdown(cfg.UI.Markdown)
	m.refreshTranscript()
}

// streamState describes the in-flight turn for the status bar.
func (m *Model) streamState() string {
	if sess := m.gw.Session(); sess != nil {
		switch sess.State() {
		case stream.StateOpening:
			return "connecting"
		case stream.StateStreaming:
			return "answering"
		}
	}
	if m.gw.Busy() {
		return "waiting"
	}
	return ""
}

func (m *Model) logf(format string, args ...any) {
	if m.logger != nil {
		m.logger.Printf(format, args...)
	}
}
