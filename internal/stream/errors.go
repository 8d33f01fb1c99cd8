// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import "errors"

// =============================================================================
// ERROR TYPES
// =============================================================================

// StreamError represents a failure of one answer stream.
type StreamError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *StreamError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *StreamError) Unwrap() error {
	return e.Cause
}

// Is matches any StreamError of the same Type, so errors.Is(err, ErrTimeout)
// works for errors carrying their own message.
func (e *StreamError) Is(target error) bool {
	t, ok := target.(*StreamError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// ErrorType categorizes stream errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	// ErrTypeTransportOpen: the channel could not be established.
	ErrTypeTransportOpen
	// ErrTypeTransportAbort: the channel closed abnormally after opening.
	ErrTypeTransportAbort
	// ErrTypeProtocolParse: one payload did not decode.
	ErrTypeProtocolParse
	// ErrTypeTimeout: the session budget elapsed.
	ErrTypeTimeout
	// ErrTypeServer: the server sent an explicit error payload.
	ErrTypeServer
	// ErrTypeAuth: the server rejected the token.
	ErrTypeAuth
)

// String returns the error type name used in logs and metrics.
func (t ErrorType) String() string {
	switch t {
	case ErrTypeTransportOpen:
		return "transport_open"
	case ErrTypeTransportAbort:
		return "transport_abort"
	case ErrTypeProtocolParse:
		return "protocol_parse"
	case ErrTypeTimeout:
		return "timeout"
	case ErrTypeServer:
		return "server"
	case ErrTypeAuth:
		return "auth"
	default:
		return "unknown"
	}
}

// Sentinel errors for easy checking.
var (
	ErrTransportOpen  = &StreamError{Type: ErrTypeTransportOpen, Message: "could not open answer stream"}
	ErrTransportAbort = &StreamError{Type: ErrTypeTransportAbort, Message: "answer stream interrupted"}
	ErrProtocolParse  = &StreamError{Type: ErrTypeProtocolParse, Message: "malformed stream payload"}
	ErrTimeout        = &StreamError{Type: ErrTypeTimeout, Message: "response timed out"}
	ErrServer         = &StreamError{Type: ErrTypeServer, Message: "server reported an error"}
	ErrAuthExpired    = &StreamError{Type: ErrTypeAuth, Message: "authentication expired"}
)

// TypeOf returns the ErrorType of err, or ErrTypeUnknown.
func TypeOf(err error) ErrorType {
	var se *StreamError
	if errors.As(err, &se) {
		return se.Type
	}
	return ErrTypeUnknown
}

// IsAuthExpired checks if an error means the token was rejected.
func IsAuthExpired(err error) bool {
	return TypeOf(err) == ErrTypeAuth
}
