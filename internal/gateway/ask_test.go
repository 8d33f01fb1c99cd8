// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/smartdocs-tui/internal/model"
	"github.com/jeranaias/smartdocs-tui/internal/stream"
)

// newAskFixture uses the real clock; Ask waits on real timers.
func newAskFixture(t *testing.T, streaming bool, budget time.Duration) *fixture {
	t.Helper()
	f := newFixture(t, streaming)
	f.gw.SetClock(time.Now)
	opts := f.gw.Options()
	opts.Session.Budget = budget
	opts.Session.Policy = stream.PolicyIdle
	f.gw.SetOptions(opts)
	return f
}

func TestAsk_StreamsAnswer(t *testing.T) {
	f := newAskFixture(t, true, 5*time.Second)
	f.open(1)
	f.dialer.scripts = [][]stream.Event{{
		{Kind: stream.EventOpened},
		payload(`{"answer_delta":"Hi"}`),
		payload(`{"answer_delta":" there","referenced_documents":[{"document_id":3,"title":"Guide","relevance_score":0.5}]}`),
		{Kind: stream.EventClosed},
	}}

	entry, err := f.gw.Ask(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "Hi there", entry.Content)
	require.Len(t, entry.References, 1)
	assert.Equal(t, "Guide", entry.References[0].Title)
	assert.False(t, f.gw.Busy())
	assert.Len(t, f.cache.transcripts[1], 2)
}

func TestAsk_CreatesConversation(t *testing.T) {
	f := newAskFixture(t, true, 5*time.Second)
	f.dialer.scripts = [][]stream.Event{{payload(`{"answer_delta":"ok","finished":true}`)}}

	entry, err := f.gw.Ask(context.Background(), "first question")
	require.NoError(t, err)
	assert.Equal(t, "ok", entry.Content)
	assert.Equal(t, int64(101), f.gw.CurrentID())
	assert.Equal(t, int64(101), f.store.ConversationID())
}

func TestAsk_TimesOutWithoutEvents(t *testing.T) {
	f := newAskFixture(t, true, 50*time.Millisecond)
	f.open(1)

	entry, err := f.gw.Ask(context.Background(), "hello")
	require.Error(t, err)
	assert.Equal(t, stream.ErrTypeTimeout, stream.TypeOf(err))
	assert.Equal(t, "response timed out", entry.Content)
	assert.True(t, entry.Placeholder)
}

func TestAsk_ContextCancelKeepsPartial(t *testing.T) {
	f := newAskFixture(t, true, 10*time.Second)
	f.open(1)
	f.dialer.scripts = [][]stream.Event{{
		{Kind: stream.EventOpened},
		payload(`{"answer_delta":"Partial"}`),
	}}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	entry, err := f.gw.Ask(ctx, "hello")
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, "Partial", entry.Content)
	assert.Equal(t, "stopped", entry.Notice)
}

func TestAsk_NonStreaming(t *testing.T) {
	f := newAskFixture(t, false, time.Second)
	f.open(1)
	f.api.reply = &model.ServerMessage{ID: 7, Content: "Answer"}

	entry, err := f.gw.Ask(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "7", entry.ID)
	assert.Equal(t, "Answer", entry.Content)
	assert.Equal(t, []string{"hello"}, f.api.sent)
}

func TestAsk_NonStreamingFailureRemovesPending(t *testing.T) {
	f := newAskFixture(t, false, time.Second)
	f.open(1)
	f.api.sendErr = errors.New("connection reset")

	_, err := f.gw.Ask(context.Background(), "hello")
	require.Error(t, err)
	assert.Equal(t, 1, f.store.Len())
}

func TestAsk_RejectsBlank(t *testing.T) {
	f := newAskFixture(t, true, time.Second)
	_, err := f.gw.Ask(context.Background(), " \n")
	assert.ErrorIs(t, err, ErrEmptyQuestion)
}
