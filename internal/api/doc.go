// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api is the REST client for the SmartDocs server.
//
// It covers login, the conversation CRUD endpoints and the blocking
// (non-streaming) send. Streaming answers go through package stream.
//
// All requests pass through a token-bucket limiter. A 401 or 403 from any
// authenticated endpoint unwraps to stream.ErrAuthExpired so callers handle
// REST and stream auth failures the same way.
package api
