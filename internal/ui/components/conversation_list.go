// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jeranaias/smartdocs-tui/internal/model"
	"github.com/jeranaias/smartdocs-tui/internal/ui/styles"
	"github.com/jeranaias/smartdocs-tui/internal/util"
)

// =============================================================================
// CONVERSATION LIST
// =============================================================================

// ConversationList is the left pane listing conversations, most recently
// updated first. The highlighted row follows the open conversation.
type ConversationList struct {
	items   []model.Conversation
	current int64
	cursor  int
	offset  int

	width  int
	height int
	now    func() time.Time
}

// NewConversationList creates an empty list.
func NewConversationList() *ConversationList {
	return &ConversationList{now: time.Now}
}

// SetClock replaces the time source used for relative timestamps.
func (l *ConversationList) SetClock(now func() time.Time) { l.now = now }

// SetSize sets the pane dimensions.
func (l *ConversationList) SetSize(width, height int) {
	l.width = width
	l.height = height
	l.clampOffset()
}

// SetItems replaces the conversations and keeps the cursor on the open one.
func (l *ConversationList) SetItems(items []model.Conversation, current int64) {
	l.items = items
	l.current = current
	if idx := model.FindConversation(items, current); idx >= 0 {
		l.cursor = idx
	} else if l.cursor >= len(items) {
		l.cursor = len(items) - 1
	}
	if l.cursor < 0 {
		l.cursor = 0
	}
	l.clampOffset()
}

// Len returns the number of conversations.
func (l *ConversationList) Len() int { return len(l.items) }

// Next returns the conversation below the open one, wrapping around.
func (l *ConversationList) Next() (model.Conversation, bool) {
	return l.step(1)
}

// Prev returns the conversation above the open one, wrapping around.
func (l *ConversationList) Prev() (model.Conversation, bool) {
	return l.step(-1)
}

func (l *ConversationList) step(delta int) (model.Conversation, bool) {
	if len(l.items) == 0 {
		return model.Conversation{}, false
	}
	idx := model.FindConversation(l.items, l.current)
	if idx < 0 {
		if delta > 0 {
			return l.items[0], true
		}
		return l.items[len(l.items)-1], true
	}
	idx = (idx + delta + len(l.items)) % len(l.items)
	return l.items[idx], true
}

// rowsPerItem is the title line plus the timestamp line.
const rowsPerItem = 2

func (l *ConversationList) visibleItems() int {
	n := (l.height - 2) / rowsPerItem
	if n < 1 {
		n = 1
	}
	return n
}

func (l *ConversationList) clampOffset() {
	visible := l.visibleItems()
	if l.cursor < l.offset {
		l.offset = l.cursor
	}
	if l.cursor >= l.offset+visible {
		l.offset = l.cursor - visible + 1
	}
	if l.offset < 0 {
		l.offset = 0
	}
}

// View renders the pane.
func (l *ConversationList) View(theme *styles.Theme) string {
	if l.width <= 0 {
		return ""
	}
	inner := l.width - 2

	var b strings.Builder
	b.WriteString(theme.ListTitle.Render("Conversations"))
	b.WriteString("\n")

	if len(l.items) == 0 {
		b.WriteString(theme.ListItemMeta.Render("none yet"))
		return theme.ListPane.Width(l.width).Height(l.height).Render(b.String())
	}

	end := l.offset + l.visibleItems()
	if end > len(l.items) {
		end = len(l.items)
	}
	now := l.now()
	for i := l.offset; i < end; i++ {
		conv := l.items[i]
		title := util.PadRight(util.TruncateWidth(conv.GetTitle(), inner-1), inner-1)
		if conv.ID == l.current {
			b.WriteString(theme.ListItemSelected.Render(title))
		} else {
			b.WriteString(theme.ListItem.Render(title))
		}
		b.WriteString("\n")
		b.WriteString(theme.ListItemMeta.Render(relativeTime(conv.UpdatedAt, now)))
		if i < end-1 {
			b.WriteString("\n")
		}
	}
	return theme.ListPane.Width(l.width).Height(l.height).Render(b.String())
}

// relativeTime renders "3 minutes ago" style timestamps.
func relativeTime(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	if now.Sub(t) < time.Minute {
		return "just now"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}
