// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"github.com/jeranaias/smartdocs-tui/internal/model"
	"github.com/jeranaias/smartdocs-tui/internal/stream"
)

// =============================================================================
// MESSAGES FOR THE UI
// =============================================================================

// NotifyLevel is the severity of a NotifyMsg.
type NotifyLevel int

const (
	NotifyInfo NotifyLevel = iota
	NotifyWarning
	NotifyError
)

// NotifyMsg asks the UI to show a transient notification.
type NotifyMsg struct {
	Level NotifyLevel
	Text  string
}

// SendFailedMsg reports a non-streaming send that failed. The UI restores
// Text to the input so the user can retry.
type SendFailedMsg struct {
	Text string
	Err  error
}

// AuthExpiredMsg reports that the server rejected the token. The UI logs
// out and asks for credentials.
type AuthExpiredMsg struct {
	Err error
}

// TurnCompletedMsg reports a finished turn, successful or not.
type TurnCompletedMsg struct {
	ConversationID int64
	State          stream.State
	Stats          *model.Statistics
}

// =============================================================================
// INTERNAL MESSAGES
// =============================================================================
// These are produced by gateway commands and must be passed back to Update.

// StreamEventMsg carries one channel event for a session.
type StreamEventMsg struct {
	SessionID string
	Event     stream.Event
}

// DeadlineMsg fires when a session's deadline may have passed.
type DeadlineMsg struct {
	SessionID string
}

// SendDoneMsg is the result of a blocking send.
type SendDoneMsg struct {
	Seq     int
	Message *model.ServerMessage
	Err     error
}

// ConversationsLoadedMsg is the result of a list refresh.
type ConversationsLoadedMsg struct {
	List []model.Conversation
	// Offline is set when List came from the local cache after the server
	// request failed.
	Offline bool
	Err     error
}

// CachedTranscriptMsg carries a cached transcript shown while the server
// copy is fetched.
type CachedTranscriptMsg struct {
	ID      int64
	Entries []model.Entry
}

// ConversationOpenedMsg is the result of fetching a conversation.
type ConversationOpenedMsg struct {
	ID     int64
	Detail *model.ConversationDetail
	List   []model.Conversation
	Err    error
}

// ConversationCreatedMsg is the result of creating a conversation. ForSend
// holds the question that triggered the creation, if any.
type ConversationCreatedMsg struct {
	Conversation *model.Conversation
	ForSend      string
	Err          error
}

// ConversationDeletedMsg is the result of deleting a conversation.
type ConversationDeletedMsg struct {
	ID  int64
	Err error
}
