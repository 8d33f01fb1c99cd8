// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package scroll decides when the transcript viewport follows new content.
//
// The Coordinator reads and moves the viewport only through the Viewport
// handle it is given when a conversation opens, so the policy is testable
// with a fake viewport and independent of units (terminal rows in the TUI).
//
// Policy per transcript change:
//   - Loaded: jump to bottom instantly
//   - UserAppended: animate to bottom unconditionally
//   - assistant updates: follow only while the reader is near the bottom;
//     past FarFromBottom, or while the user is reading, suppress and raise
//     the jump-to-latest affordance
//
// A scroll is a user scroll when it comes from a gesture, or when the
// offset change is not explained by content growth within Epsilon.
package scroll
