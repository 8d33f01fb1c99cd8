// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"

	"github.com/jeranaias/smartdocs-tui/internal/model"
	"github.com/jeranaias/smartdocs-tui/internal/transcript"
)

// =============================================================================
// ANSWER PRINTER
// =============================================================================

// answerPrinter writes one answer to the terminal. On a terminal with
// markdown enabled the answer is collected and rendered with glamour once
// finished; otherwise deltas are written as they arrive.
type answerPrinter struct {
	w        io.Writer
	store    *transcript.Store
	markdown bool
	quiet    bool
	stats    bool

	md      *glamour.TermRenderer
	id      string
	printed int
}

func newAnswerPrinter(w io.Writer, store *transcript.Store, markdown, quiet, stats bool) *answerPrinter {
	p := &answerPrinter{
		w:        w,
		store:    store,
		markdown: markdown && isTerminal(w),
		quiet:    quiet,
		stats:    stats,
	}
	if p.markdown {
		md, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(GetTerminalWidth()-4),
		)
		if err == nil {
			p.md = md
		} else {
			p.markdown = false
		}
	}
	return p
}

// onChange is a transcript.Listener. It runs on the goroutine that drives
// the stream, so no locking is needed.
func (p *answerPrinter) onChange(c transcript.Change) {
	if p.markdown || c.Kind != transcript.ChangeDelta {
		return
	}
	entry, ok := p.store.Entry(c.EntryID)
	if !ok || entry.Role != model.RoleAssistant {
		return
	}
	if c.EntryID != p.id {
		p.id = c.EntryID
		p.printed = 0
	}
	if len(entry.Content) > p.printed {
		fmt.Fprint(p.w, entry.Content[p.printed:])
		p.printed = len(entry.Content)
	}
}

// finish writes whatever the live output has not shown yet, then the
// notice, sources and statistics.
func (p *answerPrinter) finish(entry model.Entry, stats *model.Statistics) {
	live := p.printed > 0 && entry.ID == p.id
	switch {
	case entry.Placeholder:
		if live {
			fmt.Fprintln(p.w)
		}
		fmt.Fprintln(p.w, DimStyle.Italic(true).Render(entry.Content))
	case live:
		if len(entry.Content) > p.printed {
			fmt.Fprint(p.w, entry.Content[p.printed:])
		}
		fmt.Fprintln(p.w)
	default:
		fmt.Fprintln(p.w, p.render(entry.Content))
	}
	p.id, p.printed = "", 0

	if entry.Notice != "" {
		fmt.Fprintln(p.w, WarningStyle.Render("("+entry.Notice+")"))
	}
	if p.quiet {
		return
	}
	if len(entry.References) > 0 {
		fmt.Fprintln(p.w, formatSources(entry.References))
	}
	if p.stats && stats != nil {
		fmt.Fprintln(p.w, DimStyle.Render(stats.Format()))
	}
}

func (p *answerPrinter) render(content string) string {
	if p.md == nil {
		return content
	}
	out, err := p.md.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(out, "\n")
}

// formatSources lists referenced documents, one per line.
func formatSources(refs []model.Reference) string {
	var b strings.Builder
	b.WriteString(DimStyle.Render("Sources:"))
	for i, ref := range refs {
		title := ref.Title
		if title == "" {
			title = fmt.Sprintf("document %d", ref.DocumentID)
		}
		fmt.Fprintf(&b, "\n  [%d] %s %s", i+1, title, DimStyle.Render(fmt.Sprintf("%.2f", ref.RelevanceScore)))
	}
	return b.String()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func isTerminalReader(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
