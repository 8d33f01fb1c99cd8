// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/smartdocs-tui/internal/model"
	"github.com/jeranaias/smartdocs-tui/internal/ui/styles"
)

var listNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleConversations() []model.Conversation {
	return []model.Conversation{
		{ID: 3, Title: "Leave policy", UpdatedAt: listNow.Add(-30 * time.Second)},
		{ID: 2, Title: "", UpdatedAt: listNow.Add(-2 * time.Hour)},
		{ID: 1, Title: "Onboarding checklist for new engineers joining the team", UpdatedAt: listNow.Add(-72 * time.Hour)},
	}
}

func TestConversationList_NextPrevWrap(t *testing.T) {
	l := NewConversationList()
	l.SetItems(sampleConversations(), 3)

	next, ok := l.Next()
	if !ok || next.ID != 2 {
		t.Errorf("Next from 3 = %d, want 2", next.ID)
	}
	prev, ok := l.Prev()
	if !ok || prev.ID != 1 {
		t.Errorf("Prev from 3 should wrap to 1, got %d", prev.ID)
	}
}

func TestConversationList_NoCurrent(t *testing.T) {
	l := NewConversationList()
	l.SetItems(sampleConversations(), 0)

	if next, _ := l.Next(); next.ID != 3 {
		t.Errorf("Next without a current conversation should pick the first, got %d", next.ID)
	}
	if prev, _ := l.Prev(); prev.ID != 1 {
		t.Errorf("Prev without a current conversation should pick the last, got %d", prev.ID)
	}

	empty := NewConversationList()
	if _, ok := empty.Next(); ok {
		t.Error("Empty list should have no next conversation")
	}
}

func TestConversationList_View(t *testing.T) {
	l := NewConversationList()
	l.SetClock(func() time.Time { return listNow })
	l.SetSize(28, 20)
	l.SetItems(sampleConversations(), 3)

	out := l.View(styles.NewTheme(styles.ModeDark))
	for _, want := range []string{"Leave policy", model.DefaultTitle, "just now", "2 hours ago", "..."} {
		if !strings.Contains(out, want) {
			t.Errorf("View should contain %q:\n%s", want, out)
		}
	}
}

func TestConversationList_ScrollsToCurrent(t *testing.T) {
	var items []model.Conversation
	for i := 1; i <= 20; i++ {
		items = append(items, model.Conversation{ID: int64(i), Title: "c", UpdatedAt: listNow})
	}
	l := NewConversationList()
	l.SetSize(20, 10)
	l.SetItems(items, 18)

	if l.offset == 0 {
		t.Error("List should scroll so the open conversation is visible")
	}
	if l.cursor < l.offset || l.cursor >= l.offset+l.visibleItems() {
		t.Errorf("Cursor %d outside visible window [%d,%d)", l.cursor, l.offset, l.offset+l.visibleItems())
	}
}
