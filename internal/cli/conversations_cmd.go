// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jeranaias/smartdocs-tui/internal/model"
	"github.com/jeranaias/smartdocs-tui/internal/storage"
)

// cacheTimeout bounds local cache access from commands.
const cacheTimeout = 5 * time.Second

// =============================================================================
// CONVERSATIONS COMMAND
// =============================================================================

// HandleConversations dispatches "conversations [list|new|rm]".
func HandleConversations(ctx context.Context, env *Env, args Args) error {
	switch args.Subcommand {
	case "list", "ls":
		return listConversations(ctx, env, args)
	case "new":
		return newConversation(ctx, env, args)
	case "rm":
		return deleteConversation(ctx, env, args)
	}
	return OutputJSON(env.stdout(), args.JSON, "conversations", func() (any, error) {
		return nil, &UsageError{
			Reason:  "unknown conversations subcommand: " + args.Subcommand,
			Example: "smartdocs conversations rm 42",
		}
	})
}

type conversationsResult struct {
	Offline       bool                 `json:"offline"`
	Conversations []model.Conversation `json:"conversations"`
}

// listConversations prints the server list. When the server cannot be
// reached the cached list is shown instead and marked offline.
func listConversations(ctx context.Context, env *Env, args Args) error {
	return OutputJSON(env.stdout(), args.JSON, "conversations", func() (any, error) {
		if err := env.requireLogin(); err != nil {
			return nil, err
		}

		res := conversationsResult{}
		list, err := env.Client.ListConversations(ctx)
		if err != nil {
			cached, ok := env.cachedList(ctx)
			if !ok {
				return nil, wrap("conversations", "list", err)
			}
			env.logf("CLI_LIST_OFFLINE | error=%v", err)
			list = cached
			res.Offline = true
		} else if env.Cache != nil {
			cctx, cancel := context.WithTimeout(ctx, cacheTimeout)
			if err := env.Cache.SaveConversations(cctx, list); err != nil {
				env.logf("CACHE_WRITE_FAILED | op=list error=%v", err)
			}
			cancel()
		}
		model.SortConversations(list)
		res.Conversations = list

		if args.JSON {
			return res, nil
		}
		w := env.stdout()
		if res.Offline {
			fmt.Fprintln(w, WarningStyle.Render("offline: showing cached conversations"))
		}
		if args.Quiet {
			for _, c := range list {
				fmt.Fprintf(w, "%d\t%s\n", c.ID, c.GetTitle())
			}
			return res, nil
		}
		fmt.Fprint(w, storage.FormatConversationList(list))
		if len(list) > 0 {
			fmt.Fprintln(w, DimStyle.Render("last activity "+humanize.Time(list[0].UpdatedAt)))
		}
		return res, nil
	})
}

func (e *Env) cachedList(ctx context.Context) ([]model.Conversation, bool) {
	if e.Cache == nil {
		return nil, false
	}
	cctx, cancel := context.WithTimeout(ctx, cacheTimeout)
	defer cancel()
	list, err := e.Cache.ListConversations(cctx)
	if err != nil || len(list) == 0 {
		return nil, false
	}
	return list, true
}

func newConversation(ctx context.Context, env *Env, args Args) error {
	return OutputJSON(env.stdout(), args.JSON, "conversations new", func() (any, error) {
		if err := env.requireLogin(); err != nil {
			return nil, err
		}
		conv, err := env.Client.CreateConversation(ctx, args.Title)
		if err != nil {
			return nil, wrap("conversations", "new", err)
		}
		if env.Cache != nil {
			cctx, cancel := context.WithTimeout(ctx, cacheTimeout)
			_ = env.Cache.PutConversation(cctx, *conv)
			cancel()
		}
		if !args.JSON {
			if args.Quiet {
				fmt.Fprintln(env.stdout(), conv.ID)
			} else {
				fmt.Fprintf(env.stdout(), "%s created conversation %d: %s\n",
					SuccessStyle.Render("[OK]"), conv.ID, conv.GetTitle())
			}
		}
		return conv, nil
	})
}

func deleteConversation(ctx context.Context, env *Env, args Args) error {
	return OutputJSON(env.stdout(), args.JSON, "conversations rm", func() (any, error) {
		if args.ConversationID == 0 {
			return nil, ErrMissingArgument("conversation id", "smartdocs conversations rm 42")
		}
		if err := env.requireLogin(); err != nil {
			return nil, err
		}
		if err := env.Client.DeleteConversation(ctx, args.ConversationID); err != nil {
			return nil, wrap("conversations", fmt.Sprintf("rm %d", args.ConversationID), err)
		}
		if env.Cache != nil {
			cctx, cancel := context.WithTimeout(ctx, cacheTimeout)
			_ = env.Cache.DeleteConversation(cctx, args.ConversationID)
			cancel()
		}
		if !args.JSON && !args.Quiet {
			fmt.Fprintf(env.stdout(), "%s deleted conversation %d\n", SuccessStyle.Render("[OK]"), args.ConversationID)
		}
		return map[string]int64{"id": args.ConversationID}, nil
	})
}
