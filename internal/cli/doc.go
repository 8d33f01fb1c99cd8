// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and the non-interactive
// commands of smartdocs.
//
// # Key Types
//
//   - Command: enumeration of the available commands
//   - Args: parsed global and command-specific flags
//   - Env: the services a command runs against
//   - ArgParser: flag and positional parsing shared by subcommands
//
// # Usage
//
//	cmd, args := cli.Parse(os.Args[1:])
//	if cmd == cli.CmdTUI {
//	    // start the terminal UI
//	}
//	err := cli.Run(ctx, cmd, args, env)
//
// # Commands Overview
//
//   - login / logout / whoami: manage the saved token
//   - conversations: list, create or delete conversations
//   - ask: one question, answer printed to stdout
//   - chat: line-based REPL with history
//   - export: write a conversation to markdown, JSON or text
//   - config: show, get or set configuration values
//
// ask and chat use the short-budget "cli" timeout profile.
package cli
