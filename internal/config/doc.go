// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for smartdocs.
//
// Supports both TOML and JSON configuration formats, with defaults,
// environment variable overrides, validation and hot reload.
//
// Configuration file locations (in order of precedence):
//   - ~/.smartdocs/config.toml
//   - ~/.smartdocs/config.json
//   - Built-in defaults
//
// # Environment Overrides
//
//   - SMARTDOCS_URL: server.base_url
//   - SMARTDOCS_MODEL: chat.model
//   - SMARTDOCS_STREAMING: chat.streaming
//   - SMARTDOCS_TRANSPORT: chat.transport
//   - SMARTDOCS_TOKEN_FILE: auth.token_file
//   - SMARTDOCS_METRICS_ADDR: metrics.addr (also enables metrics)
//   - SMARTDOCS_LOG_FILE: log.file
//
// # Usage
//
//	cfg, err := config.Load()
//	updates, err := config.Watch(ctx, config.ConfigPathTOML(), logger)
//
// There is no package-level configuration instance; the loaded *Config is
// passed to whatever needs it.
package config
