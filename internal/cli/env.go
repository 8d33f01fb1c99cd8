// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"io"
	"log"
	"os"

	"github.com/jeranaias/smartdocs-tui/internal/api"
	"github.com/jeranaias/smartdocs-tui/internal/config"
	"github.com/jeranaias/smartdocs-tui/internal/gateway"
	"github.com/jeranaias/smartdocs-tui/internal/session"
	"github.com/jeranaias/smartdocs-tui/internal/stream"
	"github.com/jeranaias/smartdocs-tui/internal/transcript"
)

// =============================================================================
// ENVIRONMENT
// =============================================================================

// Env is what a command runs against. Cache, Dialer, Observer and Logger
// are optional.
type Env struct {
	Config  *config.Config
	Client  *api.Client
	Session *session.Manager
	// ConfigPath is where "config set" writes; empty means the default.
	ConfigPath string

	Cache    gateway.Cache
	Dialer   stream.Dialer
	Observer stream.Observer
	Logger   *log.Logger

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// ReadPassword prompts for a secret; defaults to TerminalPassword.
	ReadPassword PasswordReader
	// Lines reads chat input; defaults to a liner-backed ChatCLI.
	Lines LineReader
	// HistoryFile keeps chat REPL input history; empty disables it.
	HistoryFile string
}

func (e *Env) stdin() io.Reader {
	if e.Stdin == nil {
		return os.Stdin
	}
	return e.Stdin
}

func (e *Env) stdout() io.Writer {
	if e.Stdout == nil {
		return os.Stdout
	}
	return e.Stdout
}

func (e *Env) stderr() io.Writer {
	if e.Stderr == nil {
		return os.Stderr
	}
	return e.Stderr
}

func (e *Env) logf(format string, args ...any) {
	if e.Logger != nil {
		e.Logger.Printf(format, args...)
	}
}

// requireLogin fails early when no token is saved.
func (e *Env) requireLogin() error {
	if e.Session == nil || !e.Session.IsLoggedIn() {
		return api.ErrNotLoggedIn
	}
	return nil
}

// newGateway builds a gateway on the short-budget cli surface with the
// run's --model and --stream overrides applied.
func (e *Env) newGateway(args Args) *gateway.Gateway {
	opts := gateway.OptionsFromConfig(e.Config, config.SurfaceCLI, e.Logger, e.Observer)
	if args.Model != "" {
		opts.Model = args.Model
	}
	switch args.Stream {
	case "on":
		opts.Streaming = true
	case "off":
		opts.Streaming = false
	}

	dialer := e.Dialer
	if dialer == nil {
		dialer = gateway.NewDialer(e.Config, e.Logger)
	}
	return gateway.New(gateway.Deps{
		API:    e.Client,
		Dialer: dialer,
		Store:  transcript.NewStore(),
		Tokens: e.Session,
		Cache:  e.Cache,
		Logger: e.Logger,
	}, opts)
}
