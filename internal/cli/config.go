// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jeranaias/smartdocs-tui/internal/config"
)

// =============================================================================
// CONFIG COMMAND
// =============================================================================

// HandleConfig dispatches "config [show|get|set|keys|path]".
func HandleConfig(env *Env, args Args) error {
	return OutputJSON(env.stdout(), args.JSON, "config "+args.Subcommand, func() (any, error) {
		switch args.Subcommand {
		case "show":
			return configShow(env, args)
		case "get":
			return configGet(env, args)
		case "set":
			return configSet(env, args)
		case "keys":
			keys := config.GetAllKeys()
			if !args.JSON {
				fmt.Fprintln(env.stdout(), strings.Join(keys, "\n"))
			}
			return keys, nil
		case "path":
			path := env.configPath()
			if !args.JSON {
				fmt.Fprintln(env.stdout(), path)
			}
			return map[string]string{"path": path}, nil
		}
		return nil, &UsageError{
			Reason:  "unknown config subcommand: " + args.Subcommand,
			Example: "smartdocs config set chat.streaming false",
		}
	})
}

func (e *Env) configPath() string {
	if e.ConfigPath != "" {
		return e.ConfigPath
	}
	return config.ConfigPathTOML()
}

func configShow(env *Env, args Args) (any, error) {
	if args.JSON {
		return env.Config, nil
	}
	w := env.stdout()
	fmt.Fprintln(w, TitleStyle.Render("Configuration"))
	fmt.Fprintln(w, DimStyle.Render(env.configPath()))
	fmt.Fprintln(w, RenderSeparator(60))
	for _, key := range config.GetAllKeys() {
		v, err := env.Config.Get(key)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "%-34s %s\n", key, ValueStyle.Render(fmt.Sprint(v)))
	}
	return env.Config, nil
}

func configGet(env *Env, args Args) (any, error) {
	if args.ConfigKey == "" {
		return nil, ErrMissingArgument("key", "smartdocs config get chat.transport")
	}
	v, err := env.Config.Get(args.ConfigKey)
	if err != nil {
		return nil, &UsageError{Reason: err.Error(), Example: "smartdocs config keys"}
	}
	if !args.JSON {
		fmt.Fprintln(env.stdout(), v)
	}
	return map[string]any{"key": args.ConfigKey, "value": v}, nil
}

// configSet edits the config file itself, so environment overrides in
// effect for this run are not written back.
func configSet(env *Env, args Args) (any, error) {
	if args.ConfigKey == "" || args.ConfigVal == "" {
		return nil, ErrMissingArgument("key and value", "smartdocs config set chat.streaming false")
	}

	path := env.configPath()
	cfg := config.Default()
	if _, err := os.Stat(path); err == nil {
		if err := config.LoadTOML(cfg, path); err != nil {
			return nil, wrap("config", "load", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, wrap("config", "load", err)
	}

	if err := cfg.Set(args.ConfigKey, args.ConfigVal); err != nil {
		return nil, &UsageError{Reason: err.Error(), Example: "smartdocs config keys"}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := config.SaveTOML(cfg, path); err != nil {
		return nil, wrap("config", "save", err)
	}
	_ = env.Config.Set(args.ConfigKey, args.ConfigVal)

	v, _ := cfg.Get(args.ConfigKey)
	if !args.JSON && !args.Quiet {
		fmt.Fprintf(env.stdout(), "%s %s = %v\n", SuccessStyle.Render("[OK]"), args.ConfigKey, v)
	}
	return map[string]any{"key": args.ConfigKey, "value": v, "path": path}, nil
}
