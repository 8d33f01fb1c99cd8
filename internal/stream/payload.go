// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/jeranaias/smartdocs-tui/internal/model"
)

// DoneSentinel is the literal payload that ends a stream.
const DoneSentinel = "[DONE]"

// Payload is one decoded stream event.
type Payload struct {
	AnswerDelta         string            `json:"answer_delta,omitempty"`
	ReferencedDocuments []model.Reference `json:"referenced_documents,omitempty"`
	Finished            bool              `json:"finished,omitempty"`
	ErrorFlag           json.RawMessage   `json:"error,omitempty"`
	ErrorMessage        string            `json:"error_message,omitempty"`
}

// DecodePayload parses one event body. The DoneSentinel decodes to a payload
// with Finished set, so both completion signals are handled identically.
func DecodePayload(data []byte) (Payload, error) {
	trimmed := bytes.TrimSpace(data)
	if string(trimmed) == DoneSentinel {
		return Payload{Finished: true}, nil
	}
	var p Payload
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return Payload{}, &StreamError{Type: ErrTypeProtocolParse, Message: ErrProtocolParse.Message, Cause: err}
	}
	return p, nil
}

// IsError reports whether the server flagged this payload as an error. The
// field is a boolean on the stream endpoint and a string on validation
// failures, so both forms are accepted.
func (p Payload) IsError() bool {
	raw := bytes.TrimSpace(p.ErrorFlag)
	if len(raw) == 0 || string(raw) == "null" || string(raw) == "false" {
		return false
	}
	if raw[0] == '"' {
		var s string
		if json.Unmarshal(raw, &s) == nil {
			return strings.TrimSpace(s) != ""
		}
	}
	return true
}

// ErrorText returns the server's error message for an error payload.
func (p Payload) ErrorText() string {
	if p.ErrorMessage != "" {
		return p.ErrorMessage
	}
	raw := bytes.TrimSpace(p.ErrorFlag)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if json.Unmarshal(raw, &s) == nil && s != "" {
			return s
		}
	}
	return ErrServer.Message
}
