// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/smartdocs-tui/internal/api"
	"github.com/jeranaias/smartdocs-tui/internal/config"
	"github.com/jeranaias/smartdocs-tui/internal/stream"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess       = 0
	ExitGeneralError  = 1
	ExitUsageError    = 2
	ExitConfigError   = 3
	ExitAuthError     = 4
	ExitNetworkError  = 5
	ExitNotFoundError = 7
	ExitTimeoutError  = 8
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// CommandError is a CLI command failure with context.
type CommandError struct {
	Command string
	Action  string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Command, e.Action, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// UsageError is invalid command usage.
type UsageError struct {
	Reason  string
	Example string
}

func (e *UsageError) Error() string {
	if e.Example != "" {
		return fmt.Sprintf("%s\nExample: %s", e.Reason, e.Example)
	}
	return e.Reason
}

// ErrMissingArgument returns a usage error for a missing argument.
func ErrMissingArgument(name, example string) error {
	return &UsageError{Reason: "missing " + name, Example: example}
}

func wrap(command, action string, err error) error {
	if err == nil {
		return nil
	}
	return &CommandError{Command: command, Action: action, Err: err}
}

// =============================================================================
// DISPLAY
// =============================================================================

// DisplayError writes err to w, as JSON when jsonMode is set.
func DisplayError(w io.Writer, err error, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		out := map[string]any{
			"success":    false,
			"error":      err.Error(),
			"error_type": errorType(err),
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
		return
	}
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("[ERROR]"), err.Error())
	if errors.Is(err, api.ErrNotLoggedIn) || errors.Is(err, api.ErrAuthExpired) {
		fmt.Fprintln(w, DimStyle.Render("Run 'smartdocs login' to sign in."))
	}
}

func errorType(err error) string {
	var usage *UsageError
	var apiErr *api.APIError
	var streamErr *stream.StreamError
	switch {
	case errors.As(err, &usage):
		return "usage_error"
	case errors.Is(err, api.ErrNotLoggedIn), errors.Is(err, api.ErrAuthExpired):
		return "auth_error"
	case errors.As(err, &streamErr):
		return "stream_" + streamErr.Type.String()
	case errors.As(err, &apiErr):
		return "api_error"
	}
	return "generic_error"
}

// GetExitCode maps an error to a process exit code.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var usage *UsageError
	if errors.As(err, &usage) {
		return ExitUsageError
	}
	var verr config.ValidateErrors
	if errors.As(err, &verr) {
		return ExitConfigError
	}
	if errors.Is(err, api.ErrNotLoggedIn) || errors.Is(err, api.ErrAuthExpired) {
		return ExitAuthError
	}
	if errors.Is(err, api.ErrNotFound) {
		return ExitNotFoundError
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, stream.ErrTimeout) {
		return ExitTimeoutError
	}
	var streamErr *stream.StreamError
	var apiErr *api.APIError
	if errors.As(err, &streamErr) || errors.As(err, &apiErr) {
		return ExitNetworkError
	}
	return ExitGeneralError
}
