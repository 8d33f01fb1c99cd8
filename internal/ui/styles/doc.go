// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling of the smartdocs chat screen.

All colors are Lip Gloss AdaptiveColor values. NewTheme picks the light or
dark variant from ui.theme, asking the terminal when the mode is "auto":

	theme := styles.NewTheme(cfg.UI.Theme)
	theme.SetSize(width, height)
	if theme.ShowList() {
		// room for the conversation list
	}

Status indicators pair every color with an ASCII shape ([OK], [X], [!], [i])
so states stay distinguishable without color.
*/
package styles
