// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"sort"
	"strconv"
	"time"
)

// DefaultTitle is shown for conversations created without a title.
const DefaultTitle = "New Conversation"

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation is the server's conversation metadata. The transcript lives
// in the transcript store, not here.
type Conversation struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ConversationDetail is a conversation with its messages, as returned by
// GET /qa/conversations/{id}.
type ConversationDetail struct {
	Conversation
	Messages []ServerMessage `json:"messages"`
}

// GetTitle returns the title, or a default if not set.
func (c Conversation) GetTitle() string {
	if c.Title != "" {
		return c.Title
	}
	return DefaultTitle
}

// Key returns the conversation ID as a string, used for cache keys and
// command arguments.
func (c Conversation) Key() string {
	return strconv.FormatInt(c.ID, 10)
}

// Entries converts the detail's messages into transcript entries.
func (d ConversationDetail) Entries() []Entry {
	entries := make([]Entry, 0, len(d.Messages))
	for _, msg := range d.Messages {
		entries = append(entries, msg.ToEntry())
	}
	return entries
}

// =============================================================================
// LIST ORDERING
// =============================================================================

// SortConversations orders list by UpdatedAt descending, the server's
// listing order. Ties keep their relative order.
func SortConversations(list []Conversation) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].UpdatedAt.After(list[j].UpdatedAt)
	})
}

// TouchConversation moves the conversation with id to the front of list and
// sets its UpdatedAt to now. The list is returned unchanged when id is absent.
func TouchConversation(list []Conversation, id int64, now time.Time) []Conversation {
	idx := FindConversation(list, id)
	if idx < 0 {
		return list
	}
	conv := list[idx]
	conv.UpdatedAt = now

	out := make([]Conversation, 0, len(list))
	out = append(out, conv)
	out = append(out, list[:idx]...)
	out = append(out, list[idx+1:]...)
	return out
}

// FindConversation returns the index of id in list, or -1.
func FindConversation(list []Conversation, id int64) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}
