// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/smartdocs-tui/internal/model"
	"github.com/jeranaias/smartdocs-tui/internal/session"
)

// =============================================================================
// COMMAND REGISTRY
// =============================================================================

// CommandHandler handles one slash command.
type CommandHandler func(m *Model, args []string) (tea.Model, tea.Cmd)

type command struct {
	usage   string
	help    string
	handler CommandHandler
}

// commands maps command names to their handlers.
var commands = map[string]command{
	"help":    {"/help", "show commands and keys", handleHelpCommand},
	"new":     {"/new [title]", "start a new conversation", handleNewCommand},
	"open":    {"/open <id>", "open a conversation by id", handleOpenCommand},
	"delete":  {"/delete", "delete the current conversation", handleDeleteCommand},
	"refresh": {"/refresh", "reload the conversation list", handleRefreshCommand},
	"stream":  {"/stream [on|off]", "toggle streaming answers", handleStreamCommand},
	"model":   {"/model [name]", "show or change the answer model", handleModelCommand},
	"export":  {"/export [md|json|txt]", "export the conversation to a file", handleExportCommand},
	"copy":    {"/copy", "copy the last answer to the clipboard", handleCopyCommand},
	"stats":   {"/stats", "show answer statistics for this run", handleStatsCommand},
	"whoami":  {"/whoami", "show the login and its expiry", handleWhoamiCommand},
	"logout":  {"/logout", "log out", handleLogoutCommand},
	"quit":    {"/quit", "exit", handleQuitCommand},
	"q":       {"/quit", "exit", handleQuitCommand},
	"rm":      {"/delete", "delete the current conversation", handleDeleteCommand},
}

// handleCommand runs a slash command line such as "/model qwen-max".
func (m *Model) handleCommand(content string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(strings.TrimPrefix(content, "/"))
	if len(fields) == 0 {
		return m, nil
	}
	name := strings.ToLower(fields[0])
	cmd, ok := commands[name]
	if !ok {
		m.toasts.AddWarning(fmt.Sprintf("unknown command /%s, try /help", name))
		return m, nil
	}
	return cmd.handler(m, fields[1:])
}

// commandHelp lists the commands, one per line.
func commandHelp() string {
	seen := make(map[string]bool)
	var lines []string
	for _, c := range commands {
		if seen[c.usage] {
			continue
		}
		seen[c.usage] = true
		lines = append(lines, fmt.Sprintf("%-22s %s", c.usage, c.help))
	}
	sort.Strings(lines)
	return strings.Join(lines, "\n")
}

// =============================================================================
// HANDLERS
// =============================================================================

func handleHelpCommand(m *Model, args []string) (tea.Model, tea.Cmd) {
	m.showHelp = true
	return m, nil
}

func handleQuitCommand(m *Model, args []string) (tea.Model, tea.Cmd) {
	return m, tea.Quit
}

func handleNewCommand(m *Model, args []string) (tea.Model, tea.Cmd) {
	if m.gw.Busy() {
		m.toasts.AddWarning("wait for the current answer, or press esc to stop it")
		return m, nil
	}
	title := strings.Join(args, " ")
	if title == "" {
		title = model.DefaultTitle
	}
	return m, m.gw.Create(title)
}

func handleOpenCommand(m *Model, args []string) (tea.Model, tea.Cmd) {
	if len(args) != 1 {
		m.toasts.AddWarning("usage: /open <id>")
		return m, nil
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		m.toasts.AddWarning("conversation id must be a positive number")
		return m, nil
	}
	return m, m.open(id)
}

func handleDeleteCommand(m *Model, args []string) (tea.Model, tea.Cmd) {
	id := m.gw.CurrentID()
	if id == 0 {
		m.toasts.AddWarning("no conversation to delete")
		return m, nil
	}
	return m, m.gw.Delete(id)
}

func handleRefreshCommand(m *Model, args []string) (tea.Model, tea.Cmd) {
	return m, m.gw.Refresh()
}

func handleStreamCommand(m *Model, args []string) (tea.Model, tea.Cmd) {
	on := !m.gw.Streaming()
	if len(args) > 0 {
		switch strings.ToLower(args[0]) {
		case "on", "true", "yes":
			on = true
		case "off", "false", "no":
			on = false
		default:
			m.toasts.AddWarning("usage: /stream [on|off]")
			return m, nil
		}
	}
	m.gw.SetStreaming(on)
	if on {
		m.toasts.AddStatus("streaming answers on")
	} else {
		m.toasts.AddStatus("streaming answers off")
	}
	return m, nil
}

func handleModelCommand(m *Model, args []string) (tea.Model, tea.Cmd) {
	if len(args) == 0 {
		m.toasts.AddStatus("model: " + m.gw.Model())
		return m, nil
	}
	m.gw.SetModel(args[0])
	m.toasts.AddStatus("model set to " + args[0])
	return m, nil
}

func handleCopyCommand(m *Model, args []string) (tea.Model, tea.Cmd) {
	text := lastAnswer(m.store.Entries())
	if text == "" {
		m.toasts.AddWarning("no answer to copy")
		return m, nil
	}
	return m, func() tea.Msg {
		return copyDoneMsg{Err: clipboard.WriteAll(text)}
	}
}

func handleStatsCommand(m *Model, args []string) (tea.Model, tea.Cmd) {
	if m.stats == nil {
		m.toasts.AddStatus("statistics are not collected")
		return m, nil
	}
	m.toasts.AddStatus(m.stats.Summary().Format())
	return m, nil
}

func handleWhoamiCommand(m *Model, args []string) (tea.Model, tea.Cmd) {
	if m.sess == nil {
		m.toasts.AddStatus("no session manager")
		return m, nil
	}
	st := m.sess.GetStatus()
	if !st.LoggedIn {
		m.toasts.AddStatus("not logged in")
		return m, nil
	}
	msg := fmt.Sprintf("%s on %s", st.Username, st.ServerURL)
	if !st.ExpiresAt.IsZero() {
		msg += ", expires in " + session.FormatDuration(m.sess.RemainingTime())
	}
	m.toasts.AddStatus(msg)
	return m, nil
}

func handleLogoutCommand(m *Model, args []string) (tea.Model, tea.Cmd) {
	return m, m.logout("")
}

// lastAnswer returns the text of the newest finished assistant entry.
func lastAnswer(entries []model.Entry) string {
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if e.Role == model.RoleAssistant && !e.IsStreaming && e.Content != "" {
			return e.Content
		}
	}
	return ""
}
