// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"time"

	"github.com/jeranaias/smartdocs-tui/internal/model"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter exports transcripts to JSON. The output always carries the
// complete entries; Options only set the export time.
type JSONExporter struct {
	options *Options
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(opts *Options) *JSONExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONExporter{options: opts}
}

type jsonTranscript struct {
	ID         int64       `json:"id"`
	Title      string      `json:"title"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
	ExportedAt time.Time   `json:"exported_at"`
	Messages   []jsonEntry `json:"messages"`
}

type jsonEntry struct {
	ID          string            `json:"id"`
	Role        string            `json:"role"`
	Content     string            `json:"content"`
	CreatedAt   *time.Time        `json:"created_at,omitempty"`
	Model       string            `json:"model,omitempty"`
	Placeholder bool              `json:"placeholder,omitempty"`
	Notice      string            `json:"notice,omitempty"`
	References  []model.Reference `json:"references,omitempty"`
}

// Export converts a transcript to indented JSON.
func (e *JSONExporter) Export(t Transcript) ([]byte, error) {
	if len(t.Entries) == 0 {
		return nil, ErrEmptyTranscript
	}
	out := jsonTranscript{
		ID:         t.Conversation.ID,
		Title:      t.Conversation.GetTitle(),
		CreatedAt:  t.Conversation.CreatedAt,
		UpdatedAt:  t.Conversation.UpdatedAt,
		ExportedAt: e.options.now().UTC(),
		Messages:   make([]jsonEntry, 0, len(t.Entries)),
	}
	for _, entry := range t.Entries {
		je := jsonEntry{
			ID:          entry.ID,
			Role:        entry.Role.String(),
			Content:     entry.Content,
			Model:       entry.Model,
			Placeholder: entry.Placeholder,
			Notice:      entry.Notice,
			References:  entry.References,
		}
		if !entry.CreatedAt.IsZero() {
			ts := entry.CreatedAt
			je.CreatedAt = &ts
		}
		out.Messages = append(out.Messages, je)
	}
	return json.MarshalIndent(out, "", "  ")
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

// MimeType returns the MIME type for JSON.
func (e *JSONExporter) MimeType() string {
	return "application/json"
}
