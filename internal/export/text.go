// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
)

// =============================================================================
// TEXT EXPORTER
// =============================================================================

// TextExporter exports transcripts as plain text.
type TextExporter struct {
	options *Options
}

// NewTextExporter creates a new plain text exporter.
func NewTextExporter(opts *Options) *TextExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &TextExporter{options: opts}
}

// Export converts a transcript to plain text.
func (e *TextExporter) Export(t Transcript) ([]byte, error) {
	if len(t.Entries) == 0 {
		return nil, ErrEmptyTranscript
	}

	var sb strings.Builder
	title := t.Conversation.GetTitle()
	sb.WriteString(title + "\n")
	sb.WriteString(strings.Repeat("=", len([]rune(title))) + "\n")
	if e.options.IncludeMetadata && !t.Conversation.CreatedAt.IsZero() {
		sb.WriteString("Created: " + formatTimestamp(t.Conversation.CreatedAt) + "\n")
	}
	sb.WriteString("\n")

	for _, entry := range t.Entries {
		sb.WriteString(entry.Role.DisplayName())
		if e.options.IncludeTimestamps && !entry.CreatedAt.IsZero() {
			sb.WriteString(" [" + formatShortTimestamp(entry.CreatedAt) + "]")
		}
		sb.WriteString(":\n")
		sb.WriteString(strings.TrimSpace(entry.Content) + "\n")
		if entry.Notice != "" {
			sb.WriteString("(" + entry.Notice + ")\n")
		}
		for _, ref := range entry.References {
			sb.WriteString(fmt.Sprintf("  source: %s (%.2f)\n", ref.Title, ref.RelevanceScore))
		}
		sb.WriteString("\n")
	}
	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for text.
func (e *TextExporter) FileExtension() string {
	return ".txt"
}

// MimeType returns the MIME type for text.
func (e *TextExporter) MimeType() string {
	return "text/plain"
}
