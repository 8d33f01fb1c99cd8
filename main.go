// smartdocs - terminal client for SmartDocs document Q&A.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/smartdocs-tui/internal/api"
	"github.com/jeranaias/smartdocs-tui/internal/cli"
	"github.com/jeranaias/smartdocs-tui/internal/config"
	"github.com/jeranaias/smartdocs-tui/internal/gateway"
	"github.com/jeranaias/smartdocs-tui/internal/scroll"
	"github.com/jeranaias/smartdocs-tui/internal/session"
	"github.com/jeranaias/smartdocs-tui/internal/storage"
	"github.com/jeranaias/smartdocs-tui/internal/stream"
	"github.com/jeranaias/smartdocs-tui/internal/telemetry"
	"github.com/jeranaias/smartdocs-tui/internal/transcript"
	"github.com/jeranaias/smartdocs-tui/internal/ui/chat"
	"github.com/jeranaias/smartdocs-tui/internal/util"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse(os.Args[1:])

	switch cmd {
	case cli.CmdVersion:
		cli.PrintVersion(os.Stdout)
		return
	case cli.CmdHelp:
		cli.PrintUsage(os.Stdout)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		cli.DisplayError(os.Stderr, err, args.JSON)
		os.Exit(cli.GetExitCode(err))
	}

	logger, closeLog := openLogger(cfg, cmd == cli.CmdTUI, args.Verbose)
	defer closeLog()

	client := api.NewClient(api.Config{
		APIBase:    cfg.APIBase(),
		PublicBase: cfg.PublicBase(),
		Timeout:    cfg.RequestTimeout(),
		RateLimit:  cfg.Server.RateLimit,
		RateBurst:  cfg.Server.RateBurst,
		Logger:     logger,
	})

	sess := session.NewManager(session.Config{
		TokenFile: cfg.Auth.TokenFile,
		ServerURL: cfg.Server.BaseURL,
		Logger:    logger,
	})
	if err := sess.Load(); err != nil {
		logger.Printf("session: %v", err)
	}
	client.SetToken(sess.Token())
	sess.SetLogoutCallback(func() { client.SetToken("") })

	var cache gateway.Cache
	if cfg.Cache.Enabled {
		c, err := storage.Open(cfg.Cache.Path)
		if err != nil {
			logger.Printf("cache disabled: %v", err)
		} else {
			defer c.Close()
			cache = c
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tracker := telemetry.NewTracker()
	observers := []stream.Observer{tracker}
	if cfg.Metrics.Enabled {
		metrics := telemetry.NewMetrics()
		observers = append(observers, metrics)
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Addr, logger); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Printf("metrics: %v", err)
			}
		}()
	}
	observer := telemetry.Fanout(observers...)

	if cmd == cli.CmdTUI {
		os.Exit(runTUI(ctx, cfg, args, client, sess, cache, tracker, observer, logger))
	}

	env := &cli.Env{
		Config:      cfg,
		Client:      client,
		Session:     sess,
		Cache:       cache,
		Observer:    observer,
		Logger:      logger,
		HistoryFile: util.HomePath("chat_history"),
	}

	runCtx := ctx
	if cmd != cli.CmdChat {
		// chat handles Ctrl+C itself, one turn at a time.
		var stop context.CancelFunc
		runCtx, stop = signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
	}

	if err := cli.Run(runCtx, cmd, args, env); err != nil {
		if !args.JSON {
			cli.DisplayError(os.Stderr, err, false)
		}
		cancel()
		closeLog()
		os.Exit(cli.GetExitCode(err))
	}
}

// runTUI starts the full-screen chat and returns the process exit code.
func runTUI(ctx context.Context, cfg *config.Config, args cli.Args, client *api.Client, sess *session.Manager,
	cache gateway.Cache, tracker *telemetry.Tracker, observer stream.Observer, logger *log.Logger) int {
	opts := gateway.OptionsFromConfig(cfg, config.SurfaceTUI, logger, observer)
	if args.Model != "" {
		opts.Model = args.Model
	}
	switch args.Stream {
	case "on":
		opts.Streaming = true
	case "off":
		opts.Streaming = false
	}

	coord := scroll.NewCoordinator(scroll.Thresholds{
		NearBottom:    cfg.Scroll.NearBottom,
		FarFromBottom: cfg.Scroll.FarFromBottom,
		Epsilon:       cfg.Scroll.Epsilon,
	})

	gw := gateway.New(gateway.Deps{
		API:    client,
		Dialer: gateway.NewDialer(cfg, logger),
		Store:  transcript.NewStore(),
		Tokens: sess,
		Scroll: coord,
		Cache:  cache,
		Logger: logger,
	}, opts)
	defer gw.Close()

	updates, err := config.Watch(ctx, config.ConfigPathTOML(), logger)
	if err != nil {
		logger.Printf("config watch disabled: %v", err)
	}

	m := chat.New(chat.Deps{
		Config:        cfg,
		Gateway:       gw,
		Scroll:        coord,
		Client:        client,
		Session:       sess,
		Stats:         tracker,
		Observer:      observer,
		ConfigUpdates: updates,
		Logger:        logger,
	})
	defer m.Close()

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		fmt.Fprintf(os.Stderr, "Error running smartdocs: %v\n", err)
		return cli.ExitGeneralError
	}
	return cli.ExitSuccess
}

// openLogger returns the diagnostic logger. The TUI owns the terminal, so
// it always logs to the file; other commands log to stderr when verbose.
func openLogger(cfg *config.Config, tui, verbose bool) (*log.Logger, func()) {
	flags := log.LstdFlags | log.Lmicroseconds
	if verbose && !tui {
		return log.New(os.Stderr, "smartdocs: ", flags), func() {}
	}
	if cfg.Log.File == "" || (!cfg.Log.Verbose && !verbose && !tui) {
		return log.New(io.Discard, "", 0), func() {}
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Log.File), 0700); err != nil {
		return log.New(io.Discard, "", 0), func() {}
	}
	f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return log.New(io.Discard, "", 0), func() {}
	}
	return log.New(f, "", flags), func() { _ = f.Close() }
}
