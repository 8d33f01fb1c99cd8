// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transcript owns the ordered entries of the active conversation.
//
// Store is the single writer of entry content. Stream sessions and the
// non-streaming send path mutate it only through its operations, and every
// mutation is announced to subscribers as a Change so the scroll coordinator
// and the renderer can react without the store knowing about either.
//
// Invariants:
//   - at most one entry is streaming at a time (BeginAssistant fails with
//     ErrAlreadyStreaming otherwise)
//   - user entries never change after AppendUser, except that
//     ReplaceWithServerEntry may swap in the server's copy
//   - a streaming entry's content only grows until Finalize
//   - ReplaceWithServerEntry keeps the entry's position
//
// Store is not safe for concurrent use. All calls happen on the UI event
// loop.
package transcript
