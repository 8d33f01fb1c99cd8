// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a transcript entry. The values match the
// server's message_type field.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "SmartDocs"
	case RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// =============================================================================
// ENTRY TYPE
// =============================================================================

// TempIDPrefix marks identifiers generated on the client before the server
// has assigned one.
const TempIDPrefix = "tmp_"

// Entry is one turn of a transcript.
type Entry struct {
	ID         string      `json:"id"`
	Role       Role        `json:"role"`
	Content    string      `json:"content"`
	CreatedAt  time.Time   `json:"created_at"`
	References []Reference `json:"references,omitempty"`
	Model      string      `json:"model,omitempty"`

	// IsStreaming is true while a stream session owns this entry.
	IsStreaming bool `json:"-"`

	// Placeholder is set when Content is a client-generated stand-in
	// (timeout, failure, empty answer) rather than server text.
	Placeholder bool `json:"placeholder,omitempty"`

	// Notice is a one-line annotation shown under partial content after
	// a stream ended abnormally.
	Notice string `json:"notice,omitempty"`

	Stats *Statistics `json:"-"`
}

// NewTempID returns a client-side identifier derived from the current time.
// ULIDs sort by creation time, so temporary IDs keep transcript order.
func NewTempID() string {
	return TempIDPrefix + strings.ToLower(ulid.Make().String())
}

// IsTemporaryID reports whether id was generated by NewTempID.
func IsTemporaryID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}

// HasServerID reports whether the entry carries a server-assigned identifier.
func (e *Entry) HasServerID() bool {
	return e.ID != "" && !IsTemporaryID(e.ID)
}

// IsEmpty returns true if the entry has no content.
func (e *Entry) IsEmpty() bool {
	return len(e.Content) == 0
}

// Clone returns a copy that shares no slices with e.
func (e Entry) Clone() Entry {
	if e.References != nil {
		refs := make([]Reference, len(e.References))
		copy(refs, e.References)
		for i := range refs {
			if refs[i].ChunkIndices != nil {
				refs[i].ChunkIndices = append([]int(nil), refs[i].ChunkIndices...)
			}
		}
		e.References = refs
	}
	if e.Stats != nil {
		stats := *e.Stats
		e.Stats = &stats
	}
	return e
}

// =============================================================================
// STREAM STATISTICS
// =============================================================================

// Statistics holds timing information for one streamed answer.
type Statistics struct {
	StartTime      time.Time
	FirstDeltaTime time.Time
	EndTime        time.Time

	Deltas int
	Runes  int

	// Derived metrics (computed on Finalize)
	TimeToFirstDelta time.Duration
	TotalDuration    time.Duration
}

// NewStatistics creates a new Statistics with the start time set.
func NewStatistics(start time.Time) *Statistics {
	return &Statistics{StartTime: start}
}

// RecordDelta records one delta of text arriving at now.
func (s *Statistics) RecordDelta(text string, now time.Time) {
	if s.FirstDeltaTime.IsZero() {
		s.FirstDeltaTime = now
		s.TimeToFirstDelta = now.Sub(s.StartTime)
	}
	s.Deltas++
	s.Runes += len([]rune(text))
}

// Finalize computes the final statistics.
func (s *Statistics) Finalize(now time.Time) {
	s.EndTime = now
	s.TotalDuration = now.Sub(s.StartTime)
}

// Format returns a short status line, e.g. "2.5s | 42 deltas | first 234ms".
func (s *Statistics) Format() string {
	if s == nil {
		return ""
	}
	out := fmt.Sprintf("%.1fs | %d deltas", s.TotalDuration.Seconds(), s.Deltas)
	if s.Deltas > 0 {
		out += fmt.Sprintf(" | first %dms", s.TimeToFirstDelta.Milliseconds())
	}
	return out
}
