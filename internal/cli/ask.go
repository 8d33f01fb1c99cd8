// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jeranaias/smartdocs-tui/internal/gateway"
	"github.com/jeranaias/smartdocs-tui/internal/model"
)

// MaxFileSize is the largest file ask will attach (50KB).
const MaxFileSize = 50 * 1024

// =============================================================================
// ASK COMMAND
// =============================================================================

type askResult struct {
	ConversationID int64             `json:"conversation_id"`
	Question       string            `json:"question"`
	Answer         string            `json:"answer"`
	Model          string            `json:"model,omitempty"`
	Placeholder    bool              `json:"placeholder,omitempty"`
	Notice         string            `json:"notice,omitempty"`
	References     []model.Reference `json:"references,omitempty"`
	Stats          *statsResult      `json:"stats,omitempty"`
}

type statsResult struct {
	DurationMs     int64 `json:"duration_ms"`
	FirstDeltaMs   int64 `json:"first_delta_ms"`
	Deltas         int   `json:"deltas"`
	CharsGenerated int   `json:"chars"`
}

func newStatsResult(s *model.Statistics) *statsResult {
	if s == nil {
		return nil
	}
	return &statsResult{
		DurationMs:     s.TotalDuration.Milliseconds(),
		FirstDeltaMs:   s.TimeToFirstDelta.Milliseconds(),
		Deltas:         s.Deltas,
		CharsGenerated: s.Runes,
	}
}

// HandleAsk sends one question and prints the answer. Cancelling ctx
// (Ctrl+C) stops the stream and keeps the text received so far.
func HandleAsk(ctx context.Context, env *Env, args Args) error {
	return OutputJSON(env.stdout(), args.JSON, "ask", func() (any, error) {
		question, err := buildQuestion(env, args)
		if err != nil {
			return nil, err
		}
		if err := env.requireLogin(); err != nil {
			return nil, err
		}

		gw := env.newGateway(args)
		defer gw.Close()
		if args.ConversationID != 0 {
			if err := openForCLI(ctx, env, gw, args.ConversationID); err != nil {
				return nil, err
			}
		}

		var printer *answerPrinter
		if !args.JSON {
			printer = newAnswerPrinter(env.stdout(), gw.Store(), env.Config.UI.Markdown, args.Quiet, env.Config.UI.ShowStats)
			unsubscribe := gw.Store().Subscribe(printer.onChange)
			defer unsubscribe()
		}

		entry, askErr := gw.Ask(ctx, question)
		if entry.ID == "" {
			return nil, wrap("ask", "send", askErr)
		}

		res := askResult{
			ConversationID: gw.CurrentID(),
			Question:       question,
			Answer:         entry.Content,
			Model:          entry.Model,
			Placeholder:    entry.Placeholder,
			Notice:         entry.Notice,
			References:     entry.References,
			Stats:          newStatsResult(gw.LastStats()),
		}
		if printer != nil {
			printer.finish(entry, gw.LastStats())
		}
		if askErr != nil {
			if errors.Is(askErr, context.Canceled) {
				return res, nil
			}
			return res, wrap("ask", "answer", askErr)
		}
		return res, nil
	})
}

// openForCLI loads an existing conversation into the gateway.
func openForCLI(ctx context.Context, env *Env, gw *gateway.Gateway, id int64) error {
	t, err := env.loadTranscript(ctx, id)
	if err != nil {
		return wrap("ask", fmt.Sprintf("open %d", id), err)
	}
	gw.SetConversation(t.Conversation, t.Entries)
	return nil
}

// buildQuestion joins the query, stdin ("-" or piped with no query) and an
// attached file.
func buildQuestion(env *Env, args Args) (string, error) {
	question := strings.TrimSpace(args.Query)
	if question == "-" || (question == "" && !isTerminalReader(env.stdin())) {
		in, err := readAll(env.stdin())
		if err != nil {
			return "", wrap("ask", "read stdin", err)
		}
		question = in
	}

	if args.File != "" {
		content, err := readFileForContext(args.File)
		if err != nil {
			return "", wrap("ask", "attach", err)
		}
		question = strings.TrimSpace(question + "\n" + content)
	}

	if question == "" {
		return "", ErrMissingArgument("question", `smartdocs ask "How do I reset my password?"`)
	}
	return question, nil
}

// readFileForContext reads a file to attach to a question. Files larger
// than MaxFileSize are rejected.
func readFileForContext(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("file not found: %s", path)
		}
		return "", fmt.Errorf("cannot access file: %w", err)
	}
	if info.Size() > MaxFileSize {
		return "", fmt.Errorf("file too large: %d bytes (max %d bytes)", info.Size(), MaxFileSize)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n--- File: %s ---\n", path)
	b.Write(content)
	b.WriteString("\n--- End of file ---\n")
	return b.String(), nil
}
