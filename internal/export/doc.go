// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes a conversation transcript to a file.
//
// # Supported Formats
//
//   - Markdown: human-readable, with each answer's sources listed under it
//   - JSON: the entries and references as data
//   - Text: plain text for pasting into mail or tickets
//
// # Usage
//
//	exp, err := export.ForFormat("md", nil)
//	path, err := export.ExportToFile(export.Transcript{Conversation: conv, Entries: entries}, exp, nil)
package export
