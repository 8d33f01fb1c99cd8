// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/smartdocs-tui/internal/ui/components"
	"github.com/jeranaias/smartdocs-tui/internal/ui/styles"
	"github.com/jeranaias/smartdocs-tui/internal/util"
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the whole screen.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}
	if m.screen == screenLogin {
		return m.login.view(m.theme, m.width, m.height)
	}
	if m.showHelp {
		return m.renderHelp()
	}

	parts := []string{m.renderHeader(), m.renderBody()}
	if m.banner.IsVisible() {
		parts = append(parts, m.banner.View(m.width))
	}
	parts = append(parts, m.renderInput(), m.renderStatus())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// =============================================================================
// HEADER
// =============================================================================

func (m *Model) renderHeader() string {
	brand := m.theme.HeaderBrand.Render("SmartDocs")

	title := "no conversation"
	if conv, ok := m.gw.Current(); ok {
		title = conv.GetTitle()
	}

	var meta []string
	meta = append(meta, m.gw.Model())
	if m.gw.Streaming() {
		meta = append(meta, "stream")
	}
	if m.offline {
		meta = append(meta, "offline")
	}
	right := m.theme.HeaderMeta.Render(strings.Join(meta, " · "))

	avail := m.width - lipgloss.Width(brand) - lipgloss.Width(right) - 6
	center := m.theme.HeaderMeta.Render(util.TruncateWidth(title, max(0, avail)))

	gap := m.width - 2 - lipgloss.Width(brand) - lipgloss.Width(center) - lipgloss.Width(right) - 2
	line := brand + "  " + center + strings.Repeat(" ", max(1, gap)) + right
	return m.theme.Header.Width(m.width).Render(line)
}

// =============================================================================
// BODY
// =============================================================================

func (m *Model) renderBody() string {
	transcript := m.vp.View()
	if m.coord.ShowJumpToLatest() {
		label := m.theme.JumpToLatest.Render("↓ new messages · End to jump")
		line := lipgloss.PlaceHorizontal(m.vp.vp.Width, lipgloss.Center, label)
		transcript = replaceBottomLines(transcript, line)
	}
	if toasts := m.toasts.Toasts(); len(toasts) > 0 {
		stack := components.RenderToastStack(toasts, m.vp.vp.Width)
		transcript = replaceBottomLines(transcript, lipgloss.PlaceHorizontal(m.vp.vp.Width, lipgloss.Right, stack))
	}

	if !m.theme.ShowList() {
		return transcript
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, m.list.View(m.theme), transcript)
}

// replaceBottomLines overwrites the last lines of base with overlay.
func replaceBottomLines(base, overlay string) string {
	lines := strings.Split(base, "\n")
	over := strings.Split(overlay, "\n")
	if len(over) > len(lines) {
		over = over[len(over)-len(lines):]
	}
	copy(lines[len(lines)-len(over):], over)
	return strings.Join(lines, "\n")
}

// =============================================================================
// INPUT AND STATUS
// =============================================================================

func (m *Model) renderInput() string {
	return m.theme.InputContainer.Width(m.width).Render(m.input.View())
}

func (m *Model) renderStatus() string {
	var left string
	if state := m.streamState(); state != "" {
		left = m.theme.Streaming.Render(m.spinner.View() + " " + state + "...")
	} else if m.cfg.UI.ShowStats {
		if stats := m.gw.LastStats(); stats != nil {
			left = m.theme.StatusValue.Render(stats.Format())
		}
	}
	if m.coord.State().Reading {
		if left != "" {
			left += "  "
		}
		left += m.theme.StatusKey.Render("reading")
	}

	right := m.help.ShortHelpView(m.keys.ShortHelp())
	gap := m.width - 2 - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		right = ""
		gap = m.width - 2 - lipgloss.Width(left)
	}
	return m.theme.StatusBar.Width(m.width).Render(left + strings.Repeat(" ", max(0, gap)) + right)
}

// =============================================================================
// HELP
// =============================================================================

func (m *Model) renderHelp() string {
	var b strings.Builder
	b.WriteString(m.theme.LoginTitle.Render("Keys"))
	b.WriteString("\n")
	m.help.ShowAll = true
	b.WriteString(m.help.View(m.keys))
	m.help.ShowAll = false
	b.WriteString("\n\n")
	b.WriteString(m.theme.LoginTitle.Render("Commands"))
	b.WriteString("\n")
	b.WriteString(commandHelp())
	b.WriteString("\n\n")
	b.WriteString(m.theme.HeaderMeta.Render(fmt.Sprintf("%s press any key to close", styles.StatusIndicators.Info)))

	box := m.theme.HelpBox.Render(b.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}
