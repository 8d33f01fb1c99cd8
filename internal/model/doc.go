// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations, transcript
// entries and the reference records attached to answers.
//
// This package defines the domain types shared by the REST client, the stream
// session, the transcript store and the UI. It has no I/O.
//
// # Key Types
//
//   - Conversation: server conversation metadata, ordered by UpdatedAt
//   - Entry: one user or assistant turn in a transcript
//   - Reference: a source document cited by an assistant answer
//   - ServerMessage: a message as returned by the REST API
//   - ModelInfo: answer models the backend accepts
//
// # Usage
//
// Decode a REST message and convert it into a transcript entry:
//
//	var msg model.ServerMessage
//	json.Unmarshal(body, &msg)
//	entry := msg.ToEntry()
//
// Merge references carried by successive stream payloads:
//
//	refs = model.MergeReferences(refs, payload.References)
package model
