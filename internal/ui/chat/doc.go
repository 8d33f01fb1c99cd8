// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the main view of the SmartDocs TUI.

The Model is the Bubble Tea program root. It owns no conversation state of
its own: the transcript lives in a transcript.Store, the in-flight turn in a
gateway.Gateway and the read position in a scroll.Coordinator. The Model
wires them together and draws the result.

# Data Flow

Every store mutation reaches the Model through a store subscription. The
listener re-renders the transcript into the viewport first and only then
hands the change to the scroll coordinator, so the coordinator always
measures content that already reflects the change.

Gateway messages (stream events, deadline ticks, REST results) arrive as
ordinary tea.Msg values and are passed to Gateway.Update from the single
Update loop. Nothing touches the store from another goroutine.

# Files

  - model.go:    Model, Deps and construction
  - update.go:   message dispatch and key handling
  - view.go:     layout and rendering
  - viewport.go: the scroll.Viewport adapter with spring animation
  - commands.go: slash command registry
  - login.go:    the login screen
  - keys.go:     key bindings

# Usage

	m := chat.New(chat.Deps{...})
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		log.Fatal(err)
	}
*/
package chat
