// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/smartdocs-tui/internal/api"
	"github.com/jeranaias/smartdocs-tui/internal/config"
)

// =============================================================================
// CONFIG MESSAGES
// =============================================================================

// ConfigReloadedMsg carries a configuration reloaded from disk.
type ConfigReloadedMsg struct {
	Config *config.Config
}

// waitForConfig waits for the next reloaded configuration. It returns nil
// once the watcher is closed, which ends the wait loop.
func waitForConfig(updates <-chan *config.Config) tea.Cmd {
	if updates == nil {
		return nil
	}
	return func() tea.Msg {
		cfg, ok := <-updates
		if !ok {
			return nil
		}
		return ConfigReloadedMsg{Config: cfg}
	}
}

// =============================================================================
// LOGIN MESSAGES
// =============================================================================

// loginResultMsg is the outcome of a login request.
type loginResultMsg struct {
	Username string
	Tokens   *api.Tokens
	Err      error
}

// =============================================================================
// COMMAND RESULTS
// =============================================================================

// exportDoneMsg reports a finished export.
type exportDoneMsg struct {
	Path string
	Err  error
}

// copyDoneMsg reports a finished clipboard copy.
type copyDoneMsg struct {
	Err error
}
