// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"log"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/smartdocs-tui/internal/model"
	"github.com/jeranaias/smartdocs-tui/internal/ui/styles"
)

// StreamingCursor is appended to an answer while it is still arriving.
const StreamingCursor = "▌"

// =============================================================================
// ENTRY RENDERER
// =============================================================================

// EntryRenderer turns transcript entries into terminal text.
//
// PERFORMANCE: finished entries are rendered once and cached by ID. The
// streaming entry is wrapped as plain text on every delta; markdown is
// rendered when it is finalized.
type EntryRenderer struct {
	theme    *styles.Theme
	markdown bool
	width    int
	md       *glamour.TermRenderer
	logger   *log.Logger

	cache map[string]cachedEntry
}

type cachedEntry struct {
	key string
	out string
}

// NewEntryRenderer creates a renderer. markdown enables glamour rendering
// of answers.
func NewEntryRenderer(theme *styles.Theme, markdown bool, logger *log.Logger) *EntryRenderer {
	return &EntryRenderer{
		theme:    theme,
		markdown: markdown,
		width:    80,
		logger:   logger,
		cache:    make(map[string]cachedEntry),
	}
}

// SetWidth sets the wrap width and drops cached output.
func (r *EntryRenderer) SetWidth(width int) {
	if width < 20 {
		width = 20
	}
	if width == r.width && r.md != nil {
		return
	}
	r.width = width
	r.md = nil
	r.cache = make(map[string]cachedEntry)
}

// SetMarkdown toggles markdown rendering.
func (r *EntryRenderer) SetMarkdown(on bool) {
	if on == r.markdown {
		return
	}
	r.markdown = on
	r.cache = make(map[string]cachedEntry)
}

// Forget drops cached output for entries no longer shown.
func (r *EntryRenderer) Forget() {
	r.cache = make(map[string]cachedEntry)
}

// RenderTranscript renders all entries separated by blank lines.
func (r *EntryRenderer) RenderTranscript(entries []model.Entry) string {
	if len(entries) == 0 {
		return ""
	}
	parts := make([]string, 0, len(entries))
	for i := range entries {
		parts = append(parts, r.Render(entries[i]))
	}
	return strings.Join(parts, "\n\n")
}

// Render renders one entry.
func (r *EntryRenderer) Render(e model.Entry) string {
	if e.IsStreaming {
		return r.render(e)
	}
	key := cacheKey(e)
	if c, ok := r.cache[e.ID]; ok && c.key == key {
		return c.out
	}
	out := r.render(e)
	r.cache[e.ID] = cachedEntry{key: key, out: out}
	return out
}

func cacheKey(e model.Entry) string {
	return fmt.Sprintf("%d|%t|%s|%d|%s", len(e.Content), e.Placeholder, e.Notice, len(e.References), e.Model)
}

func (r *EntryRenderer) render(e model.Entry) string {
	t := r.theme
	var b strings.Builder

	stamp := ""
	if !e.CreatedAt.IsZero() {
		stamp = t.Timestamp.Render(" · " + e.CreatedAt.Local().Format("15:04"))
	}

	if e.Role == model.RoleUser {
		b.WriteString(t.UserLabel.Render(e.Role.DisplayName()) + stamp + "\n")
		b.WriteString(t.UserText.Width(r.width - 2).Render(e.Content))
		return b.String()
	}

	label := t.AssistantLabel.Render(e.Role.DisplayName())
	if e.Model != "" {
		label += t.Timestamp.Render(" · " + e.Model)
	}
	b.WriteString(label + stamp + "\n")

	switch {
	case e.Placeholder:
		b.WriteString(t.Placeholder.Render(e.Content))
	case e.IsStreaming && e.Content == "":
		b.WriteString(t.Streaming.PaddingLeft(2).Render(StreamingCursor))
	case e.IsStreaming:
		b.WriteString(t.AssistantText.Width(r.width).Render(e.Content + StreamingCursor))
	default:
		b.WriteString(r.renderAnswer(e.Content))
	}

	if e.Notice != "" {
		b.WriteString("\n" + t.Notice.Render(styles.StatusIndicators.Warning+" "+e.Notice))
	}
	if len(e.References) > 0 {
		b.WriteString("\n" + r.renderReferences(e.References))
	}
	return b.String()
}

func (r *EntryRenderer) renderAnswer(content string) string {
	if r.markdown {
		if out, err := r.renderMarkdown(content); err == nil {
			return out
		} else if r.logger != nil {
			r.logger.Printf("MARKDOWN_RENDER_FAILED | error=%v", err)
		}
	}
	return r.renderPlain(content)
}

// renderPlain wraps prose and highlights fenced code without reflowing it.
func (r *EntryRenderer) renderPlain(content string) string {
	segs := SplitFences(content)
	if len(segs) == 0 {
		return r.theme.AssistantText.Width(r.width).Render(content)
	}
	style := codeStyle(r.theme.GlamourStyle())
	parts := make([]string, 0, len(segs))
	for _, s := range segs {
		if s.Code {
			parts = append(parts, highlightCode(s.Text, s.Language, style))
			continue
		}
		parts = append(parts, r.theme.AssistantText.Width(r.width).Render(s.Text))
	}
	return strings.Join(parts, "\n")
}

func (r *EntryRenderer) renderMarkdown(content string) (string, error) {
	if r.md == nil {
		md, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(r.theme.GlamourStyle()),
			glamour.WithWordWrap(r.width-2),
		)
		if err != nil {
			return "", err
		}
		r.md = md
	}
	out, err := r.md.Render(content)
	if err != nil {
		return "", err
	}
	return strings.Trim(out, "\n"), nil
}

func (r *EntryRenderer) renderReferences(refs []model.Reference) string {
	lines := make([]string, 0, len(refs)+1)
	lines = append(lines, r.theme.Timestamp.PaddingLeft(2).Render("Sources"))
	for i, ref := range refs {
		title := ref.Title
		if title == "" {
			title = fmt.Sprintf("document %d", ref.DocumentID)
		}
		line := fmt.Sprintf("[%d] %s", i+1, title)
		score := r.theme.ReferenceScore.Render(fmt.Sprintf(" %.2f", ref.RelevanceScore))
		lines = append(lines, r.theme.Reference.Render(line)+score)
	}
	return strings.Join(lines, "\n")
}
