// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// Version information (set at build time via ldflags)
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// =============================================================================
// COMMANDS
// =============================================================================

// Command represents a CLI command.
type Command int

const (
	// CmdTUI starts the interactive terminal UI (default).
	CmdTUI Command = iota
	// CmdLogin authenticates and saves the token.
	CmdLogin
	// CmdLogout removes the saved token.
	CmdLogout
	// CmdWhoami shows the logged in user.
	CmdWhoami
	// CmdConversations lists, creates or deletes conversations.
	CmdConversations
	// CmdAsk sends a single question.
	CmdAsk
	// CmdChat starts the line-based REPL.
	CmdChat
	// CmdExport writes a conversation to a file.
	CmdExport
	// CmdConfig shows or modifies configuration.
	CmdConfig
	// CmdVersion prints version information.
	CmdVersion
	// CmdHelp prints usage.
	CmdHelp
)

var commandNames = map[Command]string{
	CmdTUI:           "tui",
	CmdLogin:         "login",
	CmdLogout:        "logout",
	CmdWhoami:        "whoami",
	CmdConversations: "conversations",
	CmdAsk:           "ask",
	CmdChat:          "chat",
	CmdExport:        "export",
	CmdConfig:        "config",
	CmdVersion:       "version",
	CmdHelp:          "help",
}

// String returns the command name.
func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return "unknown"
}

// =============================================================================
// ARGUMENTS
// =============================================================================

// Args holds parsed command-line arguments.
type Args struct {
	// Global flags
	Quiet   bool
	Verbose bool
	JSON    bool
	Model   string
	// Stream is "on", "off" or empty to keep the configured value
	Stream string

	// ask / chat
	Query          string
	File           string
	ConversationID int64

	// login
	Username string

	// export
	Format    string
	OutputDir string

	// config / conversations
	Subcommand string
	ConfigKey  string
	ConfigVal  string
	Title      string

	// Raw holds the arguments after the command name.
	Raw []string
}

// =============================================================================
// USAGE
// =============================================================================

const usageText = `smartdocs - terminal client for SmartDocs document Q&A

Usage:
  smartdocs [flags] [command] [args]

Commands:
  (none), tui                 Start the interactive terminal UI
  login [username]            Log in and save the token
  logout                      Remove the saved token
  whoami                      Show the logged in user
  conversations [list]        List conversations (alias: conv, ls)
  conversations new [title]   Create a conversation
  conversations rm <id>       Delete a conversation
  ask [flags] <question>      Ask one question and print the answer
  chat [flags]                Line-based chat with history
  export <id> [flags]         Write a conversation to a file
  config [show]               Show the configuration
  config get <key>            Print one value
  config set <key> <value>    Change one value
  config keys                 List settable keys
  config path                 Print the config file path
  version                     Print version information
  help                        Show this help

Global flags:
  --model NAME                Answer model for this run
  --stream / --no-stream      Override chat.streaming for this run
  --json                      Machine-readable output
  -q, --quiet                 Minimal output
  -v, --verbose               Log diagnostics to stderr

ask / chat flags:
  -c, --conversation ID       Continue an existing conversation
  -f, --file FILE             Append a file's content to the question
  A question of "-" is read from stdin.

export flags:
  --format md|json|txt        Output format (default md)
  -o, --output DIR            Output directory (default: current directory)

Examples:
  smartdocs login ada
  smartdocs ask "How do I reset my password?"
  echo "what changed in v2?" | smartdocs ask -
  smartdocs ask -c 42 "and for admins?"
  smartdocs --no-stream chat
  smartdocs export 42 --format json -o ~/exports
  smartdocs config set chat.transport websocket

Version: %s
`

// PrintUsage writes the usage text.
func PrintUsage(w io.Writer) {
	fmt.Fprintf(w, usageText, Version)
}

// PrintVersion writes version information.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "smartdocs version %s\n", Version)
	fmt.Fprintf(w, "  Git commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  Build date: %s\n", BuildDate)
}

// =============================================================================
// PARSING
// =============================================================================

// Parse parses command-line arguments (without the program name) and
// returns the command and its args.
func Parse(argv []string) (Command, Args) {
	remaining, parsed := parseGlobalFlags(argv)
	if len(remaining) == 0 {
		return CmdTUI, parsed
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	parsed.Raw = remaining

	switch cmd {
	case "tui":
		return CmdTUI, parsed
	case "login":
		p := NewArgParser(remaining)
		parsed.Username = p.FlagOrDefault("user", p.Subcommand())
		return CmdLogin, parsed
	case "logout":
		return CmdLogout, parsed
	case "whoami", "status":
		return CmdWhoami, parsed
	case "conversations", "conversation", "conv", "ls":
		parseConversationArgs(&parsed, remaining)
		return CmdConversations, parsed
	case "ask":
		parseAskArgs(&parsed, remaining)
		return CmdAsk, parsed
	case "chat":
		parseAskArgs(&parsed, remaining)
		return CmdChat, parsed
	case "export":
		parseExportArgs(&parsed, remaining)
		return CmdExport, parsed
	case "config":
		parseConfigArgs(&parsed, remaining)
		return CmdConfig, parsed
	case "version", "-v", "--version":
		return CmdVersion, parsed
	case "help", "-h", "--help":
		return CmdHelp, parsed
	default:
		// Unknown words are treated as a question for ask.
		parseAskArgs(&parsed, append([]string{cmd}, remaining...))
		return CmdAsk, parsed
	}
}

// parseGlobalFlags extracts global flags from args and returns the rest.
func parseGlobalFlags(args []string) ([]string, Args) {
	var remaining []string
	var parsed Args

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "-q" || arg == "--quiet":
			parsed.Quiet = true
		case arg == "--verbose":
			parsed.Verbose = true
		case arg == "-v" && len(remaining) > 0:
			// -v after the command means verbose; before it, version.
			parsed.Verbose = true
		case arg == "--json":
			parsed.JSON = true
		case arg == "--stream":
			parsed.Stream = "on"
		case arg == "--no-stream":
			parsed.Stream = "off"
		case arg == "--model" && i+1 < len(args):
			i++
			parsed.Model = args[i]
		case strings.HasPrefix(arg, "--model="):
			parsed.Model = strings.TrimPrefix(arg, "--model=")
		default:
			remaining = append(remaining, arg)
		}
	}
	return remaining, parsed
}

func parseAskArgs(args *Args, remaining []string) {
	var query []string
	for i := 0; i < len(remaining); i++ {
		arg := remaining[i]
		switch arg {
		case "-f", "--file":
			if i+1 < len(remaining) {
				i++
				args.File = remaining[i]
			}
		case "-c", "--conversation":
			if i+1 < len(remaining) {
				i++
				args.ConversationID = parseID(remaining[i])
			}
		case "-m", "--model":
			if i+1 < len(remaining) {
				i++
				args.Model = remaining[i]
			}
		default:
			query = append(query, arg)
		}
	}
	args.Query = strings.Join(query, " ")
}

func parseConversationArgs(args *Args, remaining []string) {
	p := NewArgParser(remaining)
	args.Subcommand = strings.ToLower(p.Subcommand())
	if args.Subcommand == "" {
		args.Subcommand = "list"
	}
	rest := p.PositionalFrom(1)
	switch args.Subcommand {
	case "new", "create":
		args.Subcommand = "new"
		args.Title = strings.Join(rest, " ")
	case "rm", "delete", "del":
		args.Subcommand = "rm"
		if len(rest) > 0 {
			args.ConversationID = parseID(rest[0])
		}
	}
}

func parseExportArgs(args *Args, remaining []string) {
	p := NewArgParser(remaining)
	args.ConversationID = parseID(p.Subcommand())
	args.Format = p.FlagOrDefault("format", "md")
	args.OutputDir = p.FlagOrDefault("output", p.Flag("o"))
}

func parseConfigArgs(args *Args, remaining []string) {
	p := NewArgParser(remaining)
	args.Subcommand = strings.ToLower(p.Subcommand())
	if args.Subcommand == "" {
		args.Subcommand = "show"
	}
	args.ConfigKey = p.Positional(1)
	args.ConfigVal = strings.Join(p.PositionalFrom(2), " ")
}

// =============================================================================
// DISPATCH
// =============================================================================

// Run executes a non-TUI command.
func Run(ctx context.Context, cmd Command, args Args, env *Env) error {
	switch cmd {
	case CmdLogin:
		return HandleLogin(ctx, env, args)
	case CmdLogout:
		return HandleLogout(env, args)
	case CmdWhoami:
		return HandleWhoami(ctx, env, args)
	case CmdConversations:
		return HandleConversations(ctx, env, args)
	case CmdAsk:
		return HandleAsk(ctx, env, args)
	case CmdChat:
		return HandleChat(ctx, env, args)
	case CmdExport:
		return HandleExport(ctx, env, args)
	case CmdConfig:
		return HandleConfig(env, args)
	case CmdVersion:
		PrintVersion(env.Stdout)
		return nil
	case CmdHelp:
		PrintUsage(env.Stdout)
		return nil
	}
	return fmt.Errorf("%s is not a command-line command", cmd)
}
