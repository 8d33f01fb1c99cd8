// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"log"

	"github.com/jeranaias/smartdocs-tui/internal/config"
	"github.com/jeranaias/smartdocs-tui/internal/stream"
)

// SessionOptions maps the chat settings and the surface's timeout profile
// to stream session options.
func SessionOptions(cfg *config.Config, surface string, logger *log.Logger, observer stream.Observer) stream.Options {
	s := cfg.Surface(surface)
	return stream.Options{
		Budget:             s.Timeout(),
		Policy:             stream.TimeoutPolicy(s.TimeoutPolicy),
		TimeoutPlaceholder: cfg.Chat.TimeoutPlaceholder,
		FailurePlaceholder: cfg.Chat.FailurePlaceholder,
		EmptyPlaceholder:   cfg.EmptyAnswerText(),
		Logger:             logger,
		Observer:           observer,
	}
}

// OptionsFromConfig returns the turn options for a surface.
func OptionsFromConfig(cfg *config.Config, surface string, logger *log.Logger, observer stream.Observer) Options {
	return Options{
		Streaming:      cfg.Chat.Streaming,
		Model:          cfg.Chat.Model,
		Session:        SessionOptions(cfg, surface, logger, observer),
		RequestTimeout: cfg.RequestTimeout(),
	}
}

// NewDialer returns the push transport selected by chat.transport.
func NewDialer(cfg *config.Config, logger *log.Logger) stream.Dialer {
	if cfg.Chat.Transport == "websocket" {
		return stream.NewWebSocketDialer(cfg.APIBase(), logger)
	}
	return stream.NewSSEDialer(cfg.APIBase(), logger)
}
