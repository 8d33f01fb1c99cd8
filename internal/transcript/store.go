// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transcript

import (
	"strings"
	"time"

	"github.com/jeranaias/smartdocs-tui/internal/model"
)

// Store holds the transcript of the active conversation.
type Store struct {
	conversationID int64
	entries        []model.Entry

	// streamingID is the entry that currently accepts deltas, or "".
	streamingID string

	listeners map[int]Listener
	nextSub   int

	now func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		listeners: make(map[int]Listener),
		now:       time.Now,
	}
}

// SetClock replaces the time source used for entry timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// Subscribe registers fn for change notifications and returns a function
// that removes it.
func (s *Store) Subscribe(fn Listener) func() {
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = fn
	return func() { delete(s.listeners, id) }
}

func (s *Store) emit(kind ChangeKind, id string, index int) {
	c := Change{Kind: kind, EntryID: id, Index: index, Count: len(s.entries)}
	for i := 0; i < s.nextSub; i++ {
		if fn, ok := s.listeners[i]; ok {
			fn(c)
		}
	}
}

// =============================================================================
// READ ACCESS
// =============================================================================

// ConversationID returns the conversation the transcript belongs to, or 0.
func (s *Store) ConversationID() int64 {
	return s.conversationID
}

// Len returns the number of entries.
func (s *Store) Len() int {
	return len(s.entries)
}

// Entries returns copies of all entries in order.
func (s *Store) Entries() []model.Entry {
	out := make([]model.Entry, len(s.entries))
	for i := range s.entries {
		out[i] = s.entries[i].Clone()
	}
	return out
}

// Entry returns a copy of the entry with id.
func (s *Store) Entry(id string) (model.Entry, bool) {
	idx := s.indexOf(id)
	if idx < 0 {
		return model.Entry{}, false
	}
	return s.entries[idx].Clone(), true
}

// Has reports whether an entry with id is in the transcript.
func (s *Store) Has(id string) bool {
	return s.indexOf(id) >= 0
}

// StreamingID returns the open streaming entry, or "".
func (s *Store) StreamingID() string {
	return s.streamingID
}

// IsStreaming reports whether an assistant entry is open.
func (s *Store) IsStreaming() bool {
	return s.streamingID != ""
}

func (s *Store) indexOf(id string) int {
	if id == "" {
		return -1
	}
	// Mutations almost always target the tail.
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].ID == id {
			return i
		}
	}
	return -1
}

// =============================================================================
// MUTATIONS
// =============================================================================

// LoadAll replaces the whole transcript, e.g. when a conversation is opened.
// Any open streaming entry is dropped with it.
func (s *Store) LoadAll(conversationID int64, entries []model.Entry) {
	s.conversationID = conversationID
	s.entries = make([]model.Entry, len(entries))
	for i := range entries {
		s.entries[i] = entries[i].Clone()
		s.entries[i].IsStreaming = false
	}
	s.streamingID = ""
	s.emit(ChangeLoaded, "", -1)
}

// AppendUser appends an immutable user entry with a temporary ID.
func (s *Store) AppendUser(text string) string {
	entry := model.Entry{
		ID:        model.NewTempID(),
		Role:      model.RoleUser,
		Content:   text,
		CreatedAt: s.now(),
	}
	s.entries = append(s.entries, entry)
	s.emit(ChangeUserAppended, entry.ID, len(s.entries)-1)
	return entry.ID
}

// BeginAssistant appends an empty streaming assistant entry.
func (s *Store) BeginAssistant() (string, error) {
	if s.streamingID != "" {
		return "", errFor(ErrAlreadyStreaming, s.streamingID)
	}
	entry := model.Entry{
		ID:          model.NewTempID(),
		Role:        model.RoleAssistant,
		CreatedAt:   s.now(),
		IsStreaming: true,
	}
	s.entries = append(s.entries, entry)
	s.streamingID = entry.ID
	s.emit(ChangeAssistantBegun, entry.ID, len(s.entries)-1)
	return entry.ID, nil
}

// AppendDelta appends text to the open streaming entry.
func (s *Store) AppendDelta(id, text string) error {
	if id == "" || id != s.streamingID {
		return errFor(ErrUnknownEntry, id)
	}
	idx := s.indexOf(id)
	if idx < 0 {
		return errFor(ErrUnknownEntry, id)
	}
	if text == "" {
		return nil
	}
	s.entries[idx].Content += text
	s.emit(ChangeDelta, id, idx)
	return nil
}

// SetContent publishes the full accumulated text of the open streaming
// entry. Content only grows: text must extend what is already shown.
func (s *Store) SetContent(id, text string) error {
	if id == "" || id != s.streamingID {
		return errFor(ErrUnknownEntry, id)
	}
	idx := s.indexOf(id)
	if idx < 0 {
		return errFor(ErrUnknownEntry, id)
	}
	current := s.entries[idx].Content
	if !strings.HasPrefix(text, current) {
		return errFor(ErrContentShrink, id)
	}
	if text == current {
		return nil
	}
	s.entries[idx].Content = text
	s.emit(ChangeDelta, id, idx)
	return nil
}

// SetReferences replaces the reference list of an assistant entry.
func (s *Store) SetReferences(id string, refs []model.Reference) error {
	idx := s.indexOf(id)
	if idx < 0 {
		return errFor(ErrUnknownEntry, id)
	}
	if s.entries[idx].Role != model.RoleAssistant {
		return errFor(ErrNotAssistant, id)
	}
	s.entries[idx].References = append([]model.Reference(nil), refs...)
	s.emit(ChangeReferences, id, idx)
	return nil
}

// SetPlaceholder fills an assistant entry that received no content with a
// client-generated stand-in. Entries that already have content are left
// alone, so partial answers are never overwritten.
func (s *Store) SetPlaceholder(id, text string) error {
	idx := s.indexOf(id)
	if idx < 0 {
		return errFor(ErrUnknownEntry, id)
	}
	if s.entries[idx].Role != model.RoleAssistant {
		return errFor(ErrNotAssistant, id)
	}
	if s.entries[idx].Content != "" {
		return nil
	}
	s.entries[idx].Content = text
	s.entries[idx].Placeholder = true
	s.emit(ChangeAnnotated, id, idx)
	return nil
}

// SetNotice attaches a one-line notice to an assistant entry.
func (s *Store) SetNotice(id, notice string) error {
	idx := s.indexOf(id)
	if idx < 0 {
		return errFor(ErrUnknownEntry, id)
	}
	if s.entries[idx].Role != model.RoleAssistant {
		return errFor(ErrNotAssistant, id)
	}
	s.entries[idx].Notice = notice
	s.emit(ChangeAnnotated, id, idx)
	return nil
}

// SetStats records stream statistics on an entry.
func (s *Store) SetStats(id string, stats *model.Statistics) error {
	idx := s.indexOf(id)
	if idx < 0 {
		return errFor(ErrUnknownEntry, id)
	}
	s.entries[idx].Stats = stats
	return nil
}

// Finalize clears the streaming flag. Finalizing an entry that is not
// streaming is a no-op.
func (s *Store) Finalize(id string) error {
	idx := s.indexOf(id)
	if idx < 0 {
		return errFor(ErrUnknownEntry, id)
	}
	if !s.entries[idx].IsStreaming {
		return nil
	}
	s.entries[idx].IsStreaming = false
	if s.streamingID == id {
		s.streamingID = ""
	}
	s.emit(ChangeFinalized, id, idx)
	return nil
}

// Discard closes the open streaming entry without notifying listeners.
// It is for a turn being thrown away just before the transcript is
// replaced. Discarding anything but the streaming entry is a no-op.
func (s *Store) Discard(id string) {
	if id == "" || id != s.streamingID {
		return
	}
	if idx := s.indexOf(id); idx >= 0 {
		s.entries[idx].IsStreaming = false
	}
	s.streamingID = ""
}

// ReplaceWithServerEntry swaps the entry with id for entry, keeping its
// position. The replacement is always finalized.
func (s *Store) ReplaceWithServerEntry(id string, entry model.Entry) error {
	idx := s.indexOf(id)
	if idx < 0 {
		return errFor(ErrUnknownEntry, id)
	}
	replacement := entry.Clone()
	replacement.IsStreaming = false
	if replacement.ID == "" {
		replacement.ID = id
	}
	if replacement.CreatedAt.IsZero() {
		replacement.CreatedAt = s.entries[idx].CreatedAt
	}
	s.entries[idx] = replacement
	if s.streamingID == id {
		s.streamingID = ""
	}
	s.emit(ChangeReplaced, replacement.ID, idx)
	return nil
}

// Remove deletes an entry. It is used to discard an assistant entry whose
// request failed before any content was shown.
func (s *Store) Remove(id string) error {
	idx := s.indexOf(id)
	if idx < 0 {
		return errFor(ErrUnknownEntry, id)
	}
	s.entries = append(s.entries[:idx], s.entries[idx+1:]...)
	if s.streamingID == id {
		s.streamingID = ""
	}
	s.emit(ChangeRemoved, id, idx)
	return nil
}
