// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/peterh/liner"

	"github.com/jeranaias/smartdocs-tui/internal/export"
	"github.com/jeranaias/smartdocs-tui/internal/gateway"
	"github.com/jeranaias/smartdocs-tui/internal/storage"
)

const chatPrompt = "smartdocs> "

// =============================================================================
// INPUT HISTORY
// =============================================================================

// LineReader reads REPL input. *ChatCLI implements it on top of liner.
type LineReader interface {
	ReadInput(prompt string) (string, error)
	Close()
}

// ChatCLI provides line editing and persistent history for chat.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a line editor. History is read from historyFile when
// it is set.
func NewChatCLI(historyFile string) *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	c := &ChatCLI{line: line, historyFile: historyFile}
	c.LoadHistory()
	return c
}

// LoadHistory loads command history from file.
func (c *ChatCLI) LoadHistory() {
	if c.historyFile == "" {
		return
	}
	if f, err := os.Open(c.historyFile); err == nil {
		_, _ = c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads one line. Non-empty input is added to history.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory writes history with owner-only permissions.
func (c *ChatCLI) SaveHistory() {
	if c.historyFile == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(c.historyFile), 0700); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = c.line.WriteHistory(f)
}

// Close saves history and restores the terminal.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// SESSION STATE
// =============================================================================

// ChatSession is one REPL run.
type ChatSession struct {
	env  *Env
	args Args
	gw   *gateway.Gateway
	out  io.Writer

	printer *answerPrinter

	mu     sync.Mutex
	cancel context.CancelFunc

	StartTime time.Time
	Questions int
}

func newChatSession(env *Env, args Args) *ChatSession {
	gw := env.newGateway(args)
	s := &ChatSession{
		env:       env,
		args:      args,
		gw:        gw,
		out:       env.stdout(),
		StartTime: time.Now(),
	}
	s.printer = newAnswerPrinter(s.out, gw.Store(), env.Config.UI.Markdown, args.Quiet, env.Config.UI.ShowStats)
	gw.Store().Subscribe(s.printer.onChange)
	return s
}

// Close releases the gateway.
func (s *ChatSession) Close() {
	s.gw.Close()
}

// Interrupt cancels the answer in progress. It reports whether there was
// one.
func (s *ChatSession) Interrupt() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return false
	}
	s.cancel()
	s.cancel = nil
	return true
}

// =============================================================================
// CHAT HANDLER
// =============================================================================

// HandleChat runs the line REPL. Ctrl+C while an answer streams cancels
// that answer; at the prompt it exits.
func HandleChat(ctx context.Context, env *Env, args Args) error {
	if err := env.requireLogin(); err != nil {
		return err
	}

	s := newChatSession(env, args)
	defer s.Close()
	if args.ConversationID != 0 {
		if err := openForCLI(ctx, env, s.gw, args.ConversationID); err != nil {
			return err
		}
	}

	lines := env.Lines
	if lines == nil {
		lines = NewChatCLI(env.HistoryFile)
	}
	defer lines.Close()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	defer func() {
		signal.Stop(sigChan)
		close(sigChan)
	}()
	go func() {
		for range sigChan {
			if s.Interrupt() {
				fmt.Fprintln(env.stderr(), "\n"+WarningStyle.Render("[Cancelled]"))
			}
		}
	}()

	if !args.Quiet {
		s.printWelcome()
	}

	for {
		input, err := lines.ReadInput(chatPrompt)
		if err != nil {
			// Ctrl+C at the prompt (liner.ErrPromptAborted) or Ctrl+D.
			fmt.Fprintln(s.out)
			s.printExitSummary()
			return nil
		}

		quit, err := s.HandleLine(ctx, input)
		if err != nil {
			DisplayError(env.stderr(), err, false)
		}
		if quit || ctx.Err() != nil {
			s.printExitSummary()
			return nil
		}
	}
}

// HandleLine runs one REPL line: a slash command or a question.
func (s *ChatSession) HandleLine(ctx context.Context, input string) (quit bool, err error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return false, nil
	}
	if strings.HasPrefix(input, "/") {
		return s.handleSlashCommand(ctx, input)
	}
	return false, s.ask(ctx, input)
}

func (s *ChatSession) ask(ctx context.Context, question string) error {
	turnCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.cancel = nil
		s.mu.Unlock()
		cancel()
	}()

	entry, err := s.gw.Ask(turnCtx, question)
	if entry.ID != "" {
		s.Questions++
		s.printer.finish(entry, s.gw.LastStats())
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

type slashCommand struct {
	usage   string
	help    string
	handler func(s *ChatSession, ctx context.Context, args []string) (bool, error)
}

var slashCommands map[string]slashCommand

func init() {
	slashCommands = map[string]slashCommand{
		"help":   {"/help", "show commands", (*ChatSession).cmdHelp},
		"new":    {"/new [title]", "start a new conversation", (*ChatSession).cmdNew},
		"open":   {"/open <id>", "continue a conversation", (*ChatSession).cmdOpen},
		"list":   {"/list", "list conversations", (*ChatSession).cmdList},
		"stream": {"/stream on|off", "toggle streaming answers", (*ChatSession).cmdStream},
		"model":  {"/model [name]", "show or change the answer model", (*ChatSession).cmdModel},
		"export": {"/export [md|json|txt]", "export this conversation", (*ChatSession).cmdExport},
		"quit":   {"/quit", "leave chat", (*ChatSession).cmdQuit},
	}
	slashCommands["exit"] = slashCommands["quit"]
	slashCommands["q"] = slashCommands["quit"]
	slashCommands["ls"] = slashCommands["list"]
}

func (s *ChatSession) handleSlashCommand(ctx context.Context, input string) (bool, error) {
	fields := strings.Fields(strings.TrimPrefix(input, "/"))
	if len(fields) == 0 {
		return false, nil
	}
	cmd, ok := slashCommands[strings.ToLower(fields[0])]
	if !ok {
		return false, &UsageError{Reason: "unknown command: /" + fields[0], Example: "/help"}
	}
	return cmd.handler(s, ctx, fields[1:])
}

func (s *ChatSession) cmdHelp(_ context.Context, _ []string) (bool, error) {
	seen := map[string]bool{}
	var names []string
	for name, cmd := range slashCommands {
		if !seen[cmd.usage] {
			seen[cmd.usage] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		cmd := slashCommands[name]
		fmt.Fprintf(s.out, "  %-22s %s\n", cmd.usage, DimStyle.Render(cmd.help))
	}
	return false, nil
}

func (s *ChatSession) cmdNew(ctx context.Context, args []string) (bool, error) {
	conv, err := s.env.Client.CreateConversation(ctx, strings.Join(args, " "))
	if err != nil {
		return false, wrap("chat", "new", err)
	}
	s.gw.SetConversation(*conv, nil)
	fmt.Fprintf(s.out, "%s conversation %d: %s\n", SuccessStyle.Render("[OK]"), conv.ID, conv.GetTitle())
	return false, nil
}

func (s *ChatSession) cmdOpen(ctx context.Context, args []string) (bool, error) {
	if len(args) == 0 || parseID(args[0]) == 0 {
		return false, ErrMissingArgument("conversation id", "/open 42")
	}
	id := parseID(args[0])
	if err := openForCLI(ctx, s.env, s.gw, id); err != nil {
		return false, err
	}
	conv, _ := s.gw.Current()
	fmt.Fprintf(s.out, "%s conversation %d: %s (%d messages)\n",
		SuccessStyle.Render("[OK]"), conv.ID, conv.GetTitle(), s.gw.Store().Len())
	return false, nil
}

func (s *ChatSession) cmdList(ctx context.Context, _ []string) (bool, error) {
	list, err := s.env.Client.ListConversations(ctx)
	if err != nil {
		cached, ok := s.env.cachedList(ctx)
		if !ok {
			return false, wrap("chat", "list", err)
		}
		fmt.Fprintln(s.out, WarningStyle.Render("offline: showing cached conversations"))
		list = cached
	}
	fmt.Fprint(s.out, storage.FormatConversationList(list))
	return false, nil
}

func (s *ChatSession) cmdStream(_ context.Context, args []string) (bool, error) {
	if len(args) > 0 {
		switch strings.ToLower(args[0]) {
		case "on", "true", "1":
			s.gw.SetStreaming(true)
		case "off", "false", "0":
			s.gw.SetStreaming(false)
		default:
			return false, &UsageError{Reason: "expected on or off", Example: "/stream off"}
		}
	}
	state := "off"
	if s.gw.Streaming() {
		state = "on"
	}
	fmt.Fprintf(s.out, "streaming %s\n", state)
	return false, nil
}

func (s *ChatSession) cmdModel(_ context.Context, args []string) (bool, error) {
	if len(args) > 0 {
		s.gw.SetModel(args[0])
	}
	fmt.Fprintf(s.out, "model %s\n", s.gw.Model())
	return false, nil
}

func (s *ChatSession) cmdExport(_ context.Context, args []string) (bool, error) {
	conv, ok := s.gw.Current()
	if !ok {
		return false, errors.New("no conversation to export")
	}
	format := ""
	if len(args) > 0 {
		format = args[0]
	}
	opts := export.DefaultOptions()
	opts.OutputDir = "."
	exporter, err := export.ForFormat(format, opts)
	if err != nil {
		return false, &UsageError{Reason: err.Error(), Example: "/export json"}
	}
	path, err := export.ExportToFile(export.Transcript{Conversation: conv, Entries: s.gw.Store().Entries()}, exporter, opts)
	if err != nil {
		return false, wrap("chat", "export", err)
	}
	fmt.Fprintf(s.out, "%s exported to %s\n", SuccessStyle.Render("[OK]"), path)
	return false, nil
}

func (s *ChatSession) cmdQuit(_ context.Context, _ []string) (bool, error) {
	return true, nil
}

// =============================================================================
// OUTPUT
// =============================================================================

func (s *ChatSession) printWelcome() {
	fmt.Fprintln(s.out, TitleStyle.Render("SmartDocs chat"))
	status := s.env.Session.GetStatus()
	fmt.Fprintln(s.out, RenderField("User", status.Username))
	fmt.Fprintln(s.out, RenderField("Model", s.gw.Model()))
	if conv, ok := s.gw.Current(); ok {
		fmt.Fprintln(s.out, RenderField("Conversation", fmt.Sprintf("%d: %s", conv.ID, conv.GetTitle())))
	}
	fmt.Fprintln(s.out, DimStyle.Render("Type a question, /help for commands, Ctrl+D to exit."))
	fmt.Fprintln(s.out)
}

func (s *ChatSession) printExitSummary() {
	if s.args.Quiet {
		return
	}
	elapsed := time.Since(s.StartTime).Round(time.Second)
	fmt.Fprintln(s.out, DimStyle.Render(fmt.Sprintf("%d questions in %s", s.Questions, elapsed)))
}
