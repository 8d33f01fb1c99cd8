// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jeranaias/smartdocs-tui/internal/model"
	"github.com/jeranaias/smartdocs-tui/internal/ui/styles"
)

func newPlainRenderer() *EntryRenderer {
	r := NewEntryRenderer(styles.NewTheme(styles.ModeDark), false, nil)
	r.SetWidth(60)
	return r
}

func TestEntryRenderer_UserAndAnswer(t *testing.T) {
	r := newPlainRenderer()
	out := r.RenderTranscript([]model.Entry{
		{ID: "1", Role: model.RoleUser, Content: "hello"},
		{ID: "2", Role: model.RoleAssistant, Content: "Hi there", Model: "qwen-turbo"},
	})
	assert.Contains(t, out, "You")
	assert.Contains(t, out, "hello")
	assert.Contains(t, out, "SmartDocs")
	assert.Contains(t, out, "Hi there")
	assert.Contains(t, out, "qwen-turbo")
}

func TestEntryRenderer_StreamingCursor(t *testing.T) {
	r := newPlainRenderer()
	out := r.Render(model.Entry{ID: "s", Role: model.RoleAssistant, Content: "Partial", IsStreaming: true})
	assert.Contains(t, out, "Partial"+StreamingCursor)

	empty := r.Render(model.Entry{ID: "s", Role: model.RoleAssistant, IsStreaming: true})
	assert.Contains(t, empty, StreamingCursor)
}

func TestEntryRenderer_NoticeAndReferences(t *testing.T) {
	r := newPlainRenderer()
	out := r.Render(model.Entry{
		ID:      "a",
		Role:    model.RoleAssistant,
		Content: "Partial",
		Notice:  "connection lost: eof",
		References: []model.Reference{
			{DocumentID: 3, Title: "Guide", RelevanceScore: 0.92},
			{DocumentID: 4},
		},
	})
	assert.Contains(t, out, "connection lost: eof")
	assert.Contains(t, out, "[1] Guide")
	assert.Contains(t, out, "0.92")
	assert.Contains(t, out, "[2] document 4")
}

func TestEntryRenderer_CachesFinishedEntries(t *testing.T) {
	r := newPlainRenderer()
	e := model.Entry{ID: "a", Role: model.RoleAssistant, Content: "one"}
	first := r.Render(e)
	assert.Equal(t, first, r.Render(e))

	e.Notice = "stopped"
	assert.NotEqual(t, first, r.Render(e), "changed entry is re-rendered")
}

func TestEntryRenderer_Markdown(t *testing.T) {
	r := NewEntryRenderer(styles.NewTheme(styles.ModeDark), true, nil)
	r.SetWidth(60)
	out := r.Render(model.Entry{ID: "m", Role: model.RoleAssistant, Content: "# Title\n\n**bold** text"})
	assert.Contains(t, out, "Title")
	assert.Contains(t, out, "bold")
	assert.False(t, strings.HasPrefix(out, "\n"), "glamour margins are trimmed")
}

// =============================================================================
// FENCED CODE
// =============================================================================

func TestSplitFences(t *testing.T) {
	segs := SplitFences("Run this:\n```go\nfmt.Println(1)\n```\nDone.")
	assert.Equal(t, []Segment{
		{Text: "Run this:"},
		{Code: true, Language: "go", Text: "fmt.Println(1)"},
		{Text: "Done."},
	}, segs)
}

func TestSplitFences_UnclosedBlock(t *testing.T) {
	segs := SplitFences("```sql\nSELECT 1")
	assert.Equal(t, []Segment{{Code: true, Language: "sql", Text: "SELECT 1"}}, segs)
}

func TestEntryRenderer_PlainCodeBlock(t *testing.T) {
	r := newPlainRenderer()
	out := r.Render(model.Entry{
		ID:      "a1",
		Role:    model.RoleAssistant,
		Content: "Use:\n```\nsmartdocs login ada\n```",
	})
	assert.Contains(t, out, "Use:")
	assert.Contains(t, out, "login")
	assert.NotContains(t, out, "```")
}
