// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the local transcript cache for smartdocs.
//
// The server is the source of truth. The cache keeps the conversation list
// and finalized transcripts in SQLite so a conversation can be shown
// immediately on open and browsed when the server is unreachable.
//
// # Key Types
//
//   - Cache: SQLite-backed conversation and transcript cache
//   - ConversationError: Error type comparable with errors.Is
//
// # Usage
//
//	cache, err := storage.Open(path)
//	defer cache.Close()
//
//	err = cache.SaveTranscript(ctx, conv, entries)
//	entries, err := cache.LoadTranscript(ctx, conv.ID)
//
// # Storage Location
//
// The cache lives at ~/.smartdocs/cache.db unless cache.path says otherwise.
package storage
