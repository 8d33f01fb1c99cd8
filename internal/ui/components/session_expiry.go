// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/smartdocs-tui/internal/ui/styles"
)

// =============================================================================
// LOGIN EXPIRY BANNER
// =============================================================================

// ExpiryBanner warns that the access token is about to expire. It is a
// one-line banner above the input, not a modal: answers keep streaming.
type ExpiryBanner struct {
	visible   bool
	dismissed bool
	remaining time.Duration
}

// Show displays the banner with the time left on the token.
func (b *ExpiryBanner) Show(remaining time.Duration) {
	if b.dismissed {
		b.remaining = remaining
		return
	}
	b.visible = true
	b.remaining = remaining
}

// Update refreshes the countdown without changing visibility.
func (b *ExpiryBanner) Update(remaining time.Duration) {
	b.remaining = remaining
}

// Dismiss hides the banner until Reset.
func (b *ExpiryBanner) Dismiss() {
	b.visible = false
	b.dismissed = true
}

// Reset clears the banner, e.g. after a new login.
func (b *ExpiryBanner) Reset() {
	*b = ExpiryBanner{}
}

// IsVisible reports whether the banner is shown.
func (b *ExpiryBanner) IsVisible() bool { return b.visible }

// View renders the banner, or "" when hidden.
func (b *ExpiryBanner) View(width int) string {
	if !b.visible {
		return ""
	}
	style := lipgloss.NewStyle().
		Foreground(styles.Amber).
		Bold(true).
		Width(width).
		Padding(0, 1)
	return style.Render(fmt.Sprintf("%s Login expires in %s. Finish up or run /logout and log in again. (ctrl+x to hide)",
		styles.StatusIndicators.Warning, formatTimeRemaining(b.remaining)))
}

// formatTimeRemaining formats a duration as M:SS.
func formatTimeRemaining(d time.Duration) string {
	if d < 0 {
		return "0:00"
	}
	totalSecs := int(d.Seconds())
	return fmt.Sprintf("%d:%02d", totalSecs/60, totalSecs%60)
}
