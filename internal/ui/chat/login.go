// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/smartdocs-tui/internal/api"
	"github.com/jeranaias/smartdocs-tui/internal/session"
	"github.com/jeranaias/smartdocs-tui/internal/ui/styles"
)

// =============================================================================
// LOGIN FORM
// =============================================================================

// loginForm is the username/password screen shown when there is no valid
// token.
type loginForm struct {
	username textinput.Model
	password textinput.Model
	focus    int
	busy     bool
	err      string
}

func newLoginForm(username string) loginForm {
	u := textinput.New()
	u.Prompt = "Username: "
	u.CharLimit = 150
	u.SetValue(username)

	p := textinput.New()
	p.Prompt = "Password: "
	p.EchoMode = textinput.EchoPassword
	p.EchoCharacter = '•'
	p.CharLimit = 256

	f := loginForm{username: u, password: p}
	if username != "" {
		f.focus = 1
	}
	return f
}

// focusCmd focuses the active field.
func (f *loginForm) focusCmd() tea.Cmd {
	f.username.Blur()
	f.password.Blur()
	if f.focus == 0 {
		return f.username.Focus()
	}
	return f.password.Focus()
}

// reset clears the password and shows reason, if any.
func (f *loginForm) reset(reason string) tea.Cmd {
	f.password.SetValue("")
	f.busy = false
	f.err = reason
	if f.username.Value() == "" {
		f.focus = 0
	} else {
		f.focus = 1
	}
	return f.focusCmd()
}

func (f *loginForm) view(theme *styles.Theme, width, height int) string {
	var b strings.Builder
	b.WriteString(theme.LoginTitle.Render("SmartDocs"))
	b.WriteString("\n\n")
	b.WriteString(f.username.View())
	b.WriteString("\n")
	b.WriteString(f.password.View())
	b.WriteString("\n\n")
	switch {
	case f.busy:
		b.WriteString(theme.InfoStyle.Render(styles.StatusIndicators.Pending + " Logging in..."))
	case f.err != "":
		b.WriteString(theme.ErrorStyle.Render(styles.StatusIndicators.Error + " " + f.err))
	default:
		b.WriteString(theme.HeaderMeta.Render("Enter to log in · Tab to switch field · Ctrl+C to quit"))
	}
	box := theme.LoginBox.Render(b.String())
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}

// =============================================================================
// LOGIN FLOW
// =============================================================================

func (m *Model) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := &m.login
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "tab", "shift+tab", "up", "down":
		f.focus = 1 - f.focus
		return m, f.focusCmd()
	case "enter":
		if f.busy {
			return m, nil
		}
		if f.focus == 0 && f.password.Value() == "" {
			f.focus = 1
			return m, f.focusCmd()
		}
		return m, m.submitLogin()
	}

	var cmd tea.Cmd
	if f.focus == 0 {
		f.username, cmd = f.username.Update(msg)
	} else {
		f.password, cmd = f.password.Update(msg)
	}
	return m, cmd
}

func (m *Model) submitLogin() tea.Cmd {
	f := &m.login
	username := strings.TrimSpace(f.username.Value())
	password := f.password.Value()
	if username == "" || password == "" {
		f.err = "username and password are required"
		return nil
	}
	if m.client == nil {
		f.err = "no server configured"
		return nil
	}
	f.busy = true
	f.err = ""

	client, timeout := m.client, m.cfg.RequestTimeout()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		tokens, err := client.Login(ctx, username, password)
		return loginResultMsg{Username: username, Tokens: tokens, Err: err}
	}
}

func (m *Model) handleLoginResult(msg loginResultMsg) (tea.Model, tea.Cmd) {
	f := &m.login
	f.busy = false
	if msg.Err != nil {
		if errors.Is(msg.Err, api.ErrAuthExpired) {
			f.err = "invalid username or password"
		} else {
			f.err = msg.Err.Error()
		}
		f.password.SetValue("")
		return m, nil
	}

	creds := session.Credentials{
		AccessToken:  msg.Tokens.AccessToken,
		RefreshToken: msg.Tokens.RefreshToken,
		Username:     msg.Username,
	}
	if m.sess != nil {
		if err := m.sess.Login(creds); err != nil {
			m.logf("LOGIN_PERSIST_FAILED | err=%v", err)
			m.toasts.AddWarning("logged in, but the token could not be saved: " + err.Error())
		}
	}
	m.client.SetToken(creds.AccessToken)
	m.banner.Reset()
	m.login = newLoginForm(msg.Username)

	m.screen = screenChat
	m.layout()
	return m, tea.Batch(m.input.Focus(), m.gw.Start())
}

// logout returns to the login screen with reason.
func (m *Model) logout(reason string) tea.Cmd {
	m.gw.Reset()
	if m.sess != nil {
		if err := m.sess.Logout(); err != nil {
			m.logf("LOGOUT_FAILED | err=%v", err)
		}
	}
	if m.client != nil {
		m.client.SetToken("")
	}
	m.banner.Reset()
	m.offline = false
	m.syncList()
	m.screen = screenLogin
	m.input.Blur()
	return m.login.reset(reason)
}
