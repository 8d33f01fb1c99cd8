// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jeranaias/smartdocs-tui/internal/stream"
)

// Sentinel errors. APIError unwraps to one of these by status.
var (
	// ErrAuthExpired is the stream package's auth sentinel.
	ErrAuthExpired = stream.ErrAuthExpired

	ErrNotFound    = errors.New("not found")
	ErrBadRequest  = errors.New("bad request")
	ErrServer      = errors.New("server error")
	ErrRateLimited = errors.New("rate limited")
	ErrNotLoggedIn = errors.New("not logged in")
)

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Method  string
	Path    string
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("%s %s: HTTP %d", e.Method, e.Path, e.Status)
}

// Unwrap maps the status to a sentinel.
func (e *APIError) Unwrap() error {
	switch {
	case e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden:
		return ErrAuthExpired
	case e.Status == http.StatusNotFound:
		return ErrNotFound
	case e.Status == http.StatusTooManyRequests:
		return ErrRateLimited
	case e.Status >= 500:
		return ErrServer
	default:
		return ErrBadRequest
	}
}

// IsAuthExpired checks if err means the session must log in again.
func IsAuthExpired(err error) bool {
	return errors.Is(err, ErrAuthExpired) || errors.Is(err, ErrNotLoggedIn)
}

// IsNotFound checks if err is a 404.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// errorBody covers both error shapes the server uses: {"detail": ...} from
// the framework and {"error": "..."} from hand-written handlers.
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
	Error  json.RawMessage `json:"error"`
}

// errorMessage extracts a human message from an error body, or "".
func errorMessage(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return ""
	}
	for _, raw := range []json.RawMessage{eb.Detail, eb.Error} {
		if msg := rawText(raw); msg != "" {
			return msg
		}
	}
	return ""
}

// rawText renders a detail field that may be a string or a validation list.
func rawText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}
