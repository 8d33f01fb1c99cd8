// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"sync"
)

// =============================================================================
// CHANNEL TYPES
// =============================================================================

// Request parameterizes one answer stream. The token travels as a query
// parameter because the stream endpoint does not read custom headers.
type Request struct {
	ConversationID int64
	Content        string
	Model          string
	Token          string
}

// EventKind identifies a channel event.
type EventKind int

const (
	EventOpened EventKind = iota
	EventMessage
	EventClosed
	EventError
)

// String returns the event kind name used in logs.
func (k EventKind) String() string {
	switch k {
	case EventOpened:
		return "opened"
	case EventMessage:
		return "message"
	case EventClosed:
		return "closed"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one delivery from a Channel. Data is set for EventMessage and Err
// for EventError. EventClosed means the server closed the channel normally.
type Event struct {
	Kind EventKind
	Data []byte
	Err  error
}

// Channel is one push connection. Events is closed after the final Closed
// or Error event, or after Close.
type Channel interface {
	Events() <-chan Event
	Close() error
}

// Dialer opens channels. Open never blocks: connection failures arrive as
// an EventError on the returned channel.
type Dialer interface {
	Open(ctx context.Context, req Request) Channel
}

// StreamPath returns the stream endpoint path under the API prefix.
func StreamPath(conversationID int64) string {
	return "/qa/conversations/" + strconv.FormatInt(conversationID, 10) + "/messages/stream"
}

// StreamURL builds the full stream URL for req under apiBase, e.g.
// "https://docs.example.com/api".
func StreamURL(apiBase string, req Request) (string, error) {
	u, err := url.Parse(strings.TrimRight(apiBase, "/") + StreamPath(req.ConversationID))
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("content", req.Content)
	q.Set("token", req.Token)
	if req.Model != "" {
		q.Set("model", req.Model)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// =============================================================================
// PUMP CHANNEL
// =============================================================================

// pumpChannel is the Channel shared by the transports: a goroutine reads the
// connection and pushes events until it finishes or Close cancels it.
type pumpChannel struct {
	events    chan Event
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

func newPumpChannel(parent context.Context) *pumpChannel {
	ctx, cancel := context.WithCancel(parent)
	return &pumpChannel{
		// Buffered so a burst of small payloads does not stall the reader
		// between UI frames.
		events: make(chan Event, 64),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (c *pumpChannel) Events() <-chan Event {
	return c.events
}

func (c *pumpChannel) Close() error {
	c.closeOnce.Do(c.cancel)
	return nil
}

// send delivers ev unless the channel was closed. It reports whether the
// reader should keep going.
func (c *pumpChannel) send(ev Event) bool {
	select {
	case c.events <- ev:
		return true
	case <-c.ctx.Done():
		return false
	}
}

// finish sends a terminal event unless the channel was closed by the
// consumer, then closes Events.
func (c *pumpChannel) finish(ev Event) {
	if c.ctx.Err() == nil {
		c.send(ev)
	}
	close(c.events)
	c.Close()
}
