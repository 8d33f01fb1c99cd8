// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transcript

// ChangeKind identifies which store operation produced a Change.
type ChangeKind int

const (
	ChangeLoaded ChangeKind = iota
	ChangeUserAppended
	ChangeAssistantBegun
	ChangeDelta
	ChangeReferences
	ChangeAnnotated
	ChangeFinalized
	ChangeReplaced
	ChangeRemoved
)

// String returns the change kind name used in logs.
func (k ChangeKind) String() string {
	switch k {
	case ChangeLoaded:
		return "loaded"
	case ChangeUserAppended:
		return "user_appended"
	case ChangeAssistantBegun:
		return "assistant_begun"
	case ChangeDelta:
		return "delta"
	case ChangeReferences:
		return "references"
	case ChangeAnnotated:
		return "annotated"
	case ChangeFinalized:
		return "finalized"
	case ChangeReplaced:
		return "replaced"
	case ChangeRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Change describes one store mutation.
type Change struct {
	Kind    ChangeKind
	EntryID string
	// Index is the entry's position after the mutation, or -1 for Loaded.
	Index int
	// Count is the number of entries after the mutation.
	Count int
}

// Listener receives change notifications synchronously, after the store has
// been updated.
type Listener func(Change)
