// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transcript

// Error is returned by Store operations that reject a mutation. It can be
// compared with errors.Is against the sentinel values below.
type Error struct {
	Message string
	EntryID string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.EntryID != "" {
		return e.Message + ": " + e.EntryID
	}
	return e.Message
}

// Is matches on Message so wrapped errors carrying an EntryID still compare
// equal to the sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

var (
	// ErrAlreadyStreaming is returned by BeginAssistant while another entry
	// is still streaming.
	ErrAlreadyStreaming = &Error{Message: "an assistant entry is already streaming"}

	// ErrUnknownEntry is returned when an operation names an entry that is
	// not in the transcript, or is not the open streaming entry.
	ErrUnknownEntry = &Error{Message: "unknown transcript entry"}

	// ErrNotAssistant is returned when an assistant-only mutation targets a
	// user entry.
	ErrNotAssistant = &Error{Message: "entry is not an assistant entry"}

	// ErrContentShrink is returned by SetContent when the new text does not
	// extend the published content.
	ErrContentShrink = &Error{Message: "streaming content may only grow"}
)

func errFor(sentinel *Error, id string) error {
	return &Error{Message: sentinel.Message, EntryID: id}
}
