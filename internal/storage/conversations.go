// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"strconv"
	"strings"

	"github.com/jeranaias/smartdocs-tui/internal/model"
	"github.com/jeranaias/smartdocs-tui/internal/util"
)

// =============================================================================
// CONVERSATION LIST FORMATTING
// =============================================================================

// FormatConversationList formats conversations as a table for the CLI.
func FormatConversationList(list []model.Conversation) string {
	if len(list) == 0 {
		return "No conversations found."
	}

	var sb strings.Builder
	sb.WriteString("Conversations:\n")
	sb.WriteString("------------------------------------------------------------\n")
	sb.WriteString(util.PadRight("ID", 8) + " " + util.PadRight("Updated", 17) + " Title\n")
	sb.WriteString("------------------------------------------------------------\n")

	for _, c := range list {
		sb.WriteString(util.PadRight(strconv.FormatInt(c.ID, 10), 8) + " " +
			util.PadRight(c.UpdatedAt.Local().Format("2006-01-02 15:04"), 17) + " " +
			util.TruncateWidth(c.GetTitle(), 40) + "\n")
	}
	return sb.String()
}

// =============================================================================
// TRANSCRIPT HELPERS
// =============================================================================

// Preview returns the first user question of a transcript, truncated.
func Preview(entries []model.Entry) string {
	for _, e := range entries {
		if e.Role == model.RoleUser && e.Content != "" {
			return util.TruncateRunes(util.FirstLine(e.Content), 80)
		}
	}
	return ""
}
