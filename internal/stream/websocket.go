// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"log"
	"net/http"
	"strings"

	"nhooyr.io/websocket"
)

// maxFrameBytes bounds one websocket message.
const maxFrameBytes = 1 << 20

// WebSocketDialer opens answer streams over a websocket. Each text frame is
// one JSON payload; a normal close (1000) completes the stream.
type WebSocketDialer struct {
	// APIBase is the server URL including the API prefix. http(s) schemes
	// are rewritten to ws(s).
	APIBase string

	Client *http.Client
	Logger *log.Logger
}

// NewWebSocketDialer creates a websocket dialer for apiBase.
func NewWebSocketDialer(apiBase string, logger *log.Logger) *WebSocketDialer {
	return &WebSocketDialer{
		APIBase: apiBase,
		Client:  &http.Client{},
		Logger:  logger,
	}
}

// Open dials in a goroutine and returns immediately.
func (d *WebSocketDialer) Open(ctx context.Context, req Request) Channel {
	ch := newPumpChannel(ctx)
	go d.run(ch, req)
	return ch
}

func (d *WebSocketDialer) run(ch *pumpChannel, req Request) {
	streamURL, err := StreamURL(wsBase(d.APIBase), req)
	if err != nil {
		ch.finish(Event{Kind: EventError, Err: &StreamError{Type: ErrTypeTransportOpen, Message: "invalid stream URL", Cause: err}})
		return
	}

	conn, resp, err := websocket.Dial(ch.ctx, streamURL, &websocket.DialOptions{HTTPClient: d.Client})
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			ch.finish(Event{Kind: EventError, Err: &StreamError{Type: ErrTypeAuth, Message: ErrAuthExpired.Message, Cause: err}})
			return
		}
		ch.finish(Event{Kind: EventError, Err: &StreamError{Type: ErrTypeTransportOpen, Message: ErrTransportOpen.Message, Cause: err}})
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "client closed")
	conn.SetReadLimit(maxFrameBytes)

	if !ch.send(Event{Kind: EventOpened}) {
		ch.finish(Event{})
		return
	}

	for {
		typ, data, err := conn.Read(ch.ctx)
		if err != nil {
			if ch.ctx.Err() != nil {
				ch.finish(Event{})
				return
			}
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				ch.finish(Event{Kind: EventClosed})
				return
			}
			logf(d.Logger, "STREAM_ABORT | transport=websocket conversation=%d error=%v", req.ConversationID, err)
			ch.finish(Event{Kind: EventError, Err: &StreamError{Type: ErrTypeTransportAbort, Message: ErrTransportAbort.Message, Cause: err}})
			return
		}
		if typ != websocket.MessageText {
			logf(d.Logger, "STREAM_SKIP | transport=websocket reason=binary_frame bytes=%d", len(data))
			continue
		}
		if !ch.send(Event{Kind: EventMessage, Data: data}) {
			ch.finish(Event{})
			return
		}
	}
}

func wsBase(apiBase string) string {
	switch {
	case strings.HasPrefix(apiBase, "https://"):
		return "wss://" + strings.TrimPrefix(apiBase, "https://")
	case strings.HasPrefix(apiBase, "http://"):
		return "ws://" + strings.TrimPrefix(apiBase, "http://")
	default:
		return apiBase
	}
}

