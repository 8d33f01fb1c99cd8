// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"context"
	"errors"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/smartdocs-tui/internal/api"
	"github.com/jeranaias/smartdocs-tui/internal/model"
	"github.com/jeranaias/smartdocs-tui/internal/stream"
)

var (
	// ErrEmptyQuestion is returned by Ask for blank input.
	ErrEmptyQuestion = errors.New("nothing to send")
	// ErrBusy is returned by Ask while another turn is in flight.
	ErrBusy = errors.New("another answer is in progress")
)

// =============================================================================
// BLOCKING TURNS
// =============================================================================

// SetConversation makes conv the open conversation with the given
// transcript, without a server round trip.
func (g *Gateway) SetConversation(conv model.Conversation, entries []model.Entry) {
	g.abortInFlight()
	g.openingID = 0
	if model.FindConversation(g.conversations, conv.ID) < 0 {
		g.conversations = append([]model.Conversation{conv}, g.conversations...)
	}
	g.current = conv.ID
	g.store.LoadAll(conv.ID, entries)
}

// Ask runs one turn on the caller's goroutine and returns the finished
// assistant entry. A conversation is created first if none is open.
// Cancelling ctx interrupts the stream and keeps what arrived.
func (g *Gateway) Ask(ctx context.Context, text string) (model.Entry, error) {
	if strings.TrimSpace(text) == "" {
		return model.Entry{}, ErrEmptyQuestion
	}
	if g.Busy() {
		return model.Entry{}, ErrBusy
	}
	if g.tokens == nil || g.tokens.Token() == "" {
		return model.Entry{}, api.ErrNotLoggedIn
	}

	if g.current == 0 {
		cctx, cancel := context.WithTimeout(ctx, g.opts.RequestTimeout)
		conv, err := g.api.CreateConversation(cctx, TitleFor(text))
		cancel()
		if err != nil {
			return model.Entry{}, err
		}
		g.SetConversation(*conv, nil)
		runNow(g.putConversation(*conv))
	}

	g.store.AppendUser(text)
	if !g.opts.Streaming {
		return g.askBlocking(ctx, text)
	}
	return g.askStreaming(ctx, text)
}

func (g *Gateway) askBlocking(ctx context.Context, text string) (model.Entry, error) {
	pendingID, err := g.store.BeginAssistant()
	if err != nil {
		return model.Entry{}, err
	}
	sctx, cancel := context.WithTimeout(ctx, g.opts.RequestTimeout)
	defer cancel()
	msg, err := g.api.SendMessage(sctx, g.current, text, g.opts.Model)
	if err != nil {
		g.store.Remove(pendingID)
		return model.Entry{}, err
	}
	entry := g.serverEntry(msg)
	if err := g.store.ReplaceWithServerEntry(pendingID, entry); err != nil {
		return model.Entry{}, err
	}
	runNow(g.touchCurrent())
	runNow(g.saveTranscript())
	stored, _ := g.store.Entry(entry.ID)
	return stored, nil
}

func (g *Gateway) askStreaming(ctx context.Context, text string) (model.Entry, error) {
	sess, ch, err := g.openSession(text)
	if err != nil {
		return model.Entry{}, err
	}
	defer func() {
		g.session = nil
		g.channel = nil
		g.lastStats = sess.Stats()
	}()

	timer := time.NewTimer(until(sess.Deadline(), g.now()))
	defer timer.Stop()

	events := ch.Events()
	interrupted := false
	for !sess.State().IsTerminal() {
		select {
		case ev, ok := <-events:
			if !ok {
				// Nothing more will arrive; the deadline decides.
				events = nil
				continue
			}
			if !sess.HandleEvent(ev, g.now()) {
				resetTimer(timer, until(sess.Deadline(), g.now()))
			}
		case <-timer.C:
			if !sess.CheckDeadline(g.now()) {
				timer.Reset(until(sess.Deadline(), g.now()))
			}
		case <-ctx.Done():
			sess.Interrupt(g.now())
			interrupted = true
		}
	}

	if sess.State() == stream.StateCompleted {
		runNow(g.touchCurrent())
	}
	runNow(g.saveTranscript())

	entry, _ := g.store.Entry(sess.EntryID())
	if interrupted {
		return entry, ctx.Err()
	}
	return entry, sess.Err()
}

func until(deadline, now time.Time) time.Duration {
	if d := deadline.Sub(now); d > 0 {
		return d
	}
	return 0
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}

// runNow executes a cache command inline.
func runNow(cmd tea.Cmd) {
	if cmd != nil {
		cmd()
	}
}
