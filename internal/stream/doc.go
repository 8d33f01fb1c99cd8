// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream consumes the incremental answer stream for one question.
//
// A Dialer opens a Channel: a one-way push connection that delivers Opened,
// Message, Closed and Error events. Two transports are provided, SSE over
// net/http and WebSocket via nhooyr.io/websocket; both carry the same JSON
// payloads:
//
//	{"answer_delta": "Hi"}
//	{"referenced_documents": [{"document_id": 7, "title": "...", "relevance_score": 0.8}]}
//	{"finished": true}
//	{"error": true, "error_message": "...", "finished": true}
//	[DONE]
//
// Session is the state machine that turns channel events into transcript
// mutations:
//
//	Opening -> Streaming -> Completed | Failed | TimedOut
//
// plus Cancelled for explicit teardown. Session does no I/O of its own and
// takes the current time as an argument, so tests drive it with synthetic
// events and a fake clock.
package stream
