// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"

	"github.com/jeranaias/smartdocs-tui/internal/export"
	"github.com/jeranaias/smartdocs-tui/internal/model"
)

// =============================================================================
// EXPORT COMMAND
// =============================================================================

// HandleExport writes one conversation to a file. The server copy is
// preferred; the cached transcript is used when the server is unreachable.
func HandleExport(ctx context.Context, env *Env, args Args) error {
	return OutputJSON(env.stdout(), args.JSON, "export", func() (any, error) {
		if args.ConversationID == 0 {
			return nil, ErrMissingArgument("conversation id", "smartdocs export 42 --format json")
		}
		if err := env.requireLogin(); err != nil {
			return nil, err
		}

		opts := export.DefaultOptions()
		opts.OutputDir = args.OutputDir
		if opts.OutputDir == "" {
			opts.OutputDir = "."
		}
		exporter, err := export.ForFormat(args.Format, opts)
		if err != nil {
			return nil, &UsageError{Reason: err.Error(), Example: "smartdocs export 42 --format md"}
		}

		t, err := env.loadTranscript(ctx, args.ConversationID)
		if err != nil {
			return nil, wrap("export", fmt.Sprintf("load %d", args.ConversationID), err)
		}
		path, err := export.ExportToFile(t, exporter, opts)
		if err != nil {
			return nil, wrap("export", "write", err)
		}

		if !args.JSON {
			if args.Quiet {
				fmt.Fprintln(env.stdout(), path)
			} else {
				fmt.Fprintf(env.stdout(), "%s exported %d messages to %s\n",
					SuccessStyle.Render("[OK]"), len(t.Entries), path)
			}
		}
		return map[string]any{"id": args.ConversationID, "path": path, "messages": len(t.Entries)}, nil
	})
}

// loadTranscript fetches a conversation from the server, falling back to
// the cache.
func (e *Env) loadTranscript(ctx context.Context, id int64) (export.Transcript, error) {
	detail, err := e.Client.GetConversation(ctx, id)
	if err == nil {
		return export.Transcript{Conversation: detail.Conversation, Entries: detail.Entries()}, nil
	}
	if e.Cache == nil {
		return export.Transcript{}, err
	}

	cctx, cancel := context.WithTimeout(ctx, cacheTimeout)
	defer cancel()
	entries, cerr := e.Cache.LoadTranscript(cctx, id)
	if cerr != nil || len(entries) == 0 {
		return export.Transcript{}, err
	}
	conv := model.Conversation{ID: id}
	if list, lerr := e.Cache.ListConversations(cctx); lerr == nil {
		if i := model.FindConversation(list, id); i >= 0 {
			conv = list[i]
		}
	}
	e.logf("CLI_EXPORT_OFFLINE | conversation=%d error=%v", id, err)
	return export.Transcript{Conversation: conv, Entries: entries}, nil
}
