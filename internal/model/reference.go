// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"fmt"
	"sort"

	"golang.org/x/text/unicode/norm"
)

// MaxPreviewRunes is the excerpt length kept for a reference; longer
// previews are cut and suffixed with "...".
const MaxPreviewRunes = 200

// Reference is a source document cited by an assistant answer. Streaming
// payloads and REST responses both decode into this one shape.
type Reference struct {
	DocumentID     int64   `json:"document_id"`
	Title          string  `json:"title"`
	RelevanceScore float64 `json:"relevance_score"`
	ContentPreview string  `json:"content_preview,omitempty"`
	ChunkIndices   []int   `json:"chunk_indices,omitempty"`
}

// UnmarshalJSON accepts both "document_id" (stream payloads) and "id" (REST
// message schema) for the document key.
func (r *Reference) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID             *int64  `json:"id"`
		DocumentID     *int64  `json:"document_id"`
		Title          string  `json:"title"`
		RelevanceScore float64 `json:"relevance_score"`
		ContentPreview string  `json:"content_preview"`
		ChunkIndices   []int   `json:"chunk_indices"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = Reference{
		Title:          raw.Title,
		RelevanceScore: raw.RelevanceScore,
		ContentPreview: raw.ContentPreview,
		ChunkIndices:   raw.ChunkIndices,
	}
	switch {
	case raw.DocumentID != nil:
		r.DocumentID = *raw.DocumentID
	case raw.ID != nil:
		r.DocumentID = *raw.ID
	}
	return nil
}

// Normalize fills in a synthesized excerpt when the source omitted one and
// bounds the excerpt length. Previews are NFC-normalized so that composed
// and decomposed forms of the same text compare and measure equally.
func (r Reference) Normalize() Reference {
	if r.ContentPreview == "" {
		r.ContentPreview = fmt.Sprintf("Document ID: %d, Title: %s", r.DocumentID, r.Title)
		return r
	}
	preview := norm.NFC.String(r.ContentPreview)
	runes := []rune(preview)
	if len(runes) > MaxPreviewRunes {
		preview = string(runes[:MaxPreviewRunes]) + "..."
	}
	r.ContentPreview = preview
	return r
}

// NormalizeReferences applies Normalize to every record.
func NormalizeReferences(refs []Reference) []Reference {
	if len(refs) == 0 {
		return nil
	}
	out := make([]Reference, len(refs))
	for i, ref := range refs {
		out[i] = ref.Normalize()
	}
	return out
}

// MergeReferences merges incoming into current, deduplicated by document.
// A record replaces an existing one for the same document when its score is
// greater or equal, so exact ties go to the most recently received record.
// The result is ordered by score descending, then document ID.
func MergeReferences(current, incoming []Reference) []Reference {
	if len(incoming) == 0 {
		return current
	}

	byDoc := make(map[int64]Reference, len(current)+len(incoming))
	for _, ref := range current {
		byDoc[ref.DocumentID] = ref
	}
	for _, ref := range incoming {
		if existing, ok := byDoc[ref.DocumentID]; ok && ref.RelevanceScore < existing.RelevanceScore {
			continue
		}
		byDoc[ref.DocumentID] = ref
	}

	merged := make([]Reference, 0, len(byDoc))
	for _, ref := range byDoc {
		merged = append(merged, ref)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].RelevanceScore != merged[j].RelevanceScore {
			return merged[i].RelevanceScore > merged[j].RelevanceScore
		}
		return merged[i].DocumentID < merged[j].DocumentID
	})
	return merged
}
