// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strconv"
	"time"
)

// ServerMessage is one message as returned by the REST API, either inside a
// conversation detail or as the reply to a non-streaming send.
type ServerMessage struct {
	ID                  int64       `json:"id"`
	Content             string      `json:"content"`
	MessageType         Role        `json:"message_type"`
	CreatedAt           time.Time   `json:"created_at"`
	Model               string      `json:"model,omitempty"`
	ReferencedDocuments []Reference `json:"referenced_documents,omitempty"`
}

// ToEntry converts the message into a finalized transcript entry with
// normalized references. A reply without message_type is an assistant turn.
func (m ServerMessage) ToEntry() Entry {
	role := m.MessageType
	if role == "" {
		role = RoleAssistant
	}
	created := m.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	entry := Entry{
		Role:       role,
		Content:    m.Content,
		CreatedAt:  created,
		Model:      m.Model,
		References: NormalizeReferences(m.ReferencedDocuments),
	}
	if m.ID != 0 {
		entry.ID = strconv.FormatInt(m.ID, 10)
	} else {
		entry.ID = NewTempID()
	}
	return entry
}
