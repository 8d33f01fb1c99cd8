// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package gateway connects the chat screen to the SmartDocs backend.
//
// The Gateway owns the conversation list and the in-flight turn. It appends
// the optimistic user entry, then either drives a stream.Session that
// pushes deltas into the transcript store, or performs one blocking send
// and swaps the placeholder for the server's message.
//
// All methods must be called from the Bubble Tea update loop. Network work
// runs in tea.Cmd goroutines that only return messages; the UI forwards
// every message to Update. Channel events are read one per command, so
// deltas are applied in arrival order.
//
// Ask is the blocking equivalent used by the line-mode CLI. It runs the same
// session state machine on the caller's goroutine.
package gateway
