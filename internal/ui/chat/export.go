// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/smartdocs-tui/internal/export"
)

// =============================================================================
// EXPORT HANDLERS
// =============================================================================

// handleExportCommand writes the open conversation to a file. The entries
// are snapshotted before the write runs off the update loop.
func handleExportCommand(m *Model, args []string) (tea.Model, tea.Cmd) {
	conv, ok := m.gw.Current()
	if !ok {
		m.toasts.AddWarning("no conversation to export")
		return m, nil
	}
	format := ""
	if len(args) > 0 {
		format = args[0]
	}

	opts := export.DefaultOptions()
	opts.OutputDir = m.export
	exporter, err := export.ForFormat(format, opts)
	if err != nil {
		m.toasts.AddWarning(err.Error())
		return m, nil
	}

	t := export.Transcript{Conversation: conv, Entries: m.store.Entries()}
	m.toasts.AddStatus("exporting...")
	return m, func() tea.Msg {
		path, err := export.ExportToFile(t, exporter, opts)
		return exportDoneMsg{Path: path, Err: err}
	}
}
