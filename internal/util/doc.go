// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the smartdocs packages.
//
// # Key Functions
//
//   - TruncateRunes: UTF-8 safe truncation with ellipsis
//   - TruncateWidth / StringWidth / PadRight: display-width aware helpers for
//     the TUI, backed by go-runewidth so CJK answers line up
//   - AtomicWriteFile: crash-safe write used for config and token files
//   - HomePath: resolves paths under ~/.smartdocs
//
// # Usage
//
//	title := util.TruncateWidth(conv.Title, 24)
//	err := util.AtomicWriteFile(path, data, 0600)
package util
