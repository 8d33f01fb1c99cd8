// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
)

// maxSSELine bounds a single SSE line; answers with large reference lists
// arrive as one data line.
const maxSSELine = 1024 * 1024

// =============================================================================
// SSE DIALER
// =============================================================================

// SSEDialer opens answer streams as text/event-stream responses.
type SSEDialer struct {
	// APIBase is the server URL including the API prefix.
	APIBase string

	// Client is used for the GET request. It must not have a Timeout set:
	// the session enforces its own budget.
	Client *http.Client

	Logger *log.Logger
}

// NewSSEDialer creates an SSE dialer for apiBase.
func NewSSEDialer(apiBase string, logger *log.Logger) *SSEDialer {
	return &SSEDialer{
		APIBase: apiBase,
		Client:  &http.Client{},
		Logger:  logger,
	}
}

// Open starts the request in a goroutine and returns immediately.
func (d *SSEDialer) Open(ctx context.Context, req Request) Channel {
	ch := newPumpChannel(ctx)
	go d.run(ch, req)
	return ch
}

func (d *SSEDialer) run(ch *pumpChannel, req Request) {
	streamURL, err := StreamURL(d.APIBase, req)
	if err != nil {
		ch.finish(Event{Kind: EventError, Err: &StreamError{Type: ErrTypeTransportOpen, Message: "invalid stream URL", Cause: err}})
		return
	}

	httpReq, err := http.NewRequestWithContext(ch.ctx, http.MethodGet, streamURL, nil)
	if err != nil {
		ch.finish(Event{Kind: EventError, Err: &StreamError{Type: ErrTypeTransportOpen, Message: "failed to create request", Cause: err}})
		return
	}
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")

	resp, err := d.Client.Do(httpReq)
	if err != nil {
		ch.finish(Event{Kind: EventError, Err: &StreamError{Type: ErrTypeTransportOpen, Message: ErrTransportOpen.Message, Cause: err}})
		return
	}
	defer resp.Body.Close()

	if err := checkStreamResponse(resp); err != nil {
		ch.finish(Event{Kind: EventError, Err: err})
		return
	}

	if !ch.send(Event{Kind: EventOpened}) {
		ch.finish(Event{})
		return
	}

	err = readSSE(resp.Body, func(data string) bool {
		return ch.send(Event{Kind: EventMessage, Data: []byte(data)})
	})
	if ch.ctx.Err() != nil {
		ch.finish(Event{})
		return
	}
	if err != nil {
		logf(d.Logger, "STREAM_ABORT | transport=sse conversation=%d error=%v", req.ConversationID, err)
		ch.finish(Event{Kind: EventError, Err: &StreamError{Type: ErrTypeTransportAbort, Message: ErrTransportAbort.Message, Cause: err}})
		return
	}
	ch.finish(Event{Kind: EventClosed})
}

// checkStreamResponse rejects responses that are not an event stream. The
// server answers validation failures with a plain JSON body such as
// {"error": "..."}, sometimes with status 200.
func checkStreamResponse(resp *http.Response) error {
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return &StreamError{Type: ErrTypeAuth, Message: ErrAuthExpired.Message}
	}

	contentType := resp.Header.Get("Content-Type")
	if resp.StatusCode == http.StatusOK && strings.HasPrefix(contentType, "text/event-stream") {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var serverErr struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	msg := resp.Status
	if json.Unmarshal(body, &serverErr) == nil {
		switch {
		case serverErr.Error != "":
			msg = serverErr.Error
		case serverErr.Detail != "":
			msg = serverErr.Detail
		}
	}
	return &StreamError{Type: ErrTypeTransportOpen, Message: fmt.Sprintf("stream rejected: %s", msg)}
}

// readSSE parses an event stream, calling emit with the data of each event.
// Multi-line data fields are joined with "\n". Comments and other fields are
// ignored. It stops early when emit returns false.
func readSSE(r io.Reader, emit func(data string) bool) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSSELine)

	var data []string
	dispatch := func() bool {
		if len(data) == 0 {
			return true
		}
		payload := strings.Join(data, "\n")
		data = data[:0]
		return emit(payload)
	}

	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")

		if line == "" {
			if !dispatch() {
				return nil
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		if field != "data" {
			continue
		}
		data = append(data, strings.TrimPrefix(value, " "))
	}

	if err := scanner.Err(); err != nil {
		return err
	}
	// A final event without the trailing blank line is still delivered.
	dispatch()
	return nil
}

func logf(l *log.Logger, format string, args ...any) {
	if l != nil {
		l.Printf(format, args...)
	}
}
