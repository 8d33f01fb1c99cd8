// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/smartdocs-tui/internal/model"
	"github.com/jeranaias/smartdocs-tui/internal/transcript"
)

// fakeChannel records Close calls; tests feed events to the session directly.
type fakeChannel struct {
	events chan Event
	closed int
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{events: make(chan Event)}
}

func (c *fakeChannel) Events() <-chan Event { return c.events }
func (c *fakeChannel) Close() error         { c.closed++; return nil }

type recordingObserver struct {
	finished []State
	dropped  int
}

func (o *recordingObserver) SessionFinished(state State, _ ErrorType, _ *model.Statistics) {
	o.finished = append(o.finished, state)
}
func (o *recordingObserver) PayloadDropped() { o.dropped++ }

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestSession(t *testing.T, opts Options) (*Session, *transcript.Store, *fakeChannel) {
	t.Helper()
	store := transcript.NewStore()
	store.AppendUser("hello")
	entryID, err := store.BeginAssistant()
	require.NoError(t, err)

	s := NewSession(store, entryID, opts, t0)
	ch := newFakeChannel()
	s.Attach(ch)
	return s, store, ch
}

func msg(data string) Event {
	return Event{Kind: EventMessage, Data: []byte(data)}
}

func entryOf(t *testing.T, store *transcript.Store, s *Session) model.Entry {
	t.Helper()
	e, ok := store.Entry(s.EntryID())
	require.True(t, ok)
	return e
}

// =============================================================================
// HAPPY PATH
// =============================================================================

func TestSession_HelloHiThere(t *testing.T) {
	s, store, ch := newTestSession(t, DefaultOptions())

	assert.False(t, s.HandleEvent(Event{Kind: EventOpened}, t0))
	assert.Equal(t, StateStreaming, s.State())
	assert.False(t, s.HandleEvent(msg(`{"answer_delta":"Hi"}`), t0.Add(time.Second)))
	assert.False(t, s.HandleEvent(msg(`{"answer_delta":" there"}`), t0.Add(2*time.Second)))
	assert.True(t, s.HandleEvent(msg(`{"finished":true}`), t0.Add(3*time.Second)))

	assert.Equal(t, StateCompleted, s.State())
	assert.Equal(t, 1, ch.closed)

	entries := store.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, model.RoleUser, entries[0].Role)
	assert.Equal(t, "hello", entries[0].Content)
	assert.Equal(t, model.RoleAssistant, entries[1].Role)
	assert.Equal(t, "Hi there", entries[1].Content)
	assert.False(t, entries[1].IsStreaming)
	require.NotNil(t, entries[1].Stats)
	assert.Equal(t, 2, entries[1].Stats.Deltas)
}

func TestSession_DeltasConcatenateInArrivalOrder(t *testing.T) {
	s, store, _ := newTestSession(t, DefaultOptions())
	parts := []string{"文档", "检索", " is ", "retrieval", "\n", "done"}

	for i, p := range parts {
		s.OnDelta(p, t0.Add(time.Duration(i)*time.Millisecond))
		assert.Equal(t, s.Content(), entryOf(t, store, s).Content, "store and buffer agree after every delta")
	}
	s.OnCompleted(t0.Add(time.Second))

	assert.Equal(t, "文档检索 is retrieval\ndone", entryOf(t, store, s).Content)
}

func TestSession_FirstDeliveryOpensWithoutOpenedEvent(t *testing.T) {
	s, _, _ := newTestSession(t, DefaultOptions())
	s.HandleEvent(msg(`{"answer_delta":"x"}`), t0)
	assert.Equal(t, StateStreaming, s.State())
}

func TestSession_DoneSentinelCompletes(t *testing.T) {
	s, store, _ := newTestSession(t, DefaultOptions())
	s.HandleEvent(msg(`{"answer_delta":"ok"}`), t0)
	s.HandleEvent(msg(`[DONE]`), t0)

	assert.Equal(t, StateCompleted, s.State())
	assert.Equal(t, "ok", entryOf(t, store, s).Content)
}

func TestSession_NormalCloseCompletes(t *testing.T) {
	s, _, _ := newTestSession(t, DefaultOptions())
	s.HandleEvent(msg(`{"answer_delta":"partial but fine"}`), t0)
	s.HandleEvent(Event{Kind: EventClosed}, t0)

	assert.Equal(t, StateCompleted, s.State())
	assert.NoError(t, s.Err())
}

// =============================================================================
// REFERENCES
// =============================================================================

func TestSession_ReferencesMergedAndPublished(t *testing.T) {
	s, store, _ := newTestSession(t, DefaultOptions())

	s.HandleEvent(msg(`{"answer_delta":"a","referenced_documents":[{"document_id":1,"title":"A","relevance_score":0.9}]}`), t0)
	s.HandleEvent(msg(`{"referenced_documents":[{"document_id":1,"title":"A2","relevance_score":0.5},{"document_id":2,"title":"B","relevance_score":0.6}]}`), t0)

	refs := entryOf(t, store, s).References
	require.Len(t, refs, 2)
	assert.Equal(t, int64(1), refs[0].DocumentID)
	assert.Equal(t, 0.9, refs[0].RelevanceScore)
	assert.Equal(t, "A", refs[0].Title)
	assert.Equal(t, "Document ID: 2, Title: B", refs[1].ContentPreview)
	assert.Equal(t, StateStreaming, s.State(), "references do not change state")
}

// =============================================================================
// FAILURES
// =============================================================================

func TestSession_ParseErrorIsDropped(t *testing.T) {
	obs := &recordingObserver{}
	opts := DefaultOptions()
	opts.Observer = obs
	s, store, _ := newTestSession(t, opts)

	s.HandleEvent(msg(`{"answer_delta":"one"}`), t0)
	assert.False(t, s.HandleEvent(msg(`{not json`), t0))
	s.HandleEvent(msg(`{"answer_delta":" two"}`), t0)

	assert.Equal(t, StateStreaming, s.State())
	assert.Equal(t, "one two", entryOf(t, store, s).Content)
	assert.Equal(t, 1, obs.dropped)
}

func TestSession_OpenFailureWritesPlaceholder(t *testing.T) {
	s, store, ch := newTestSession(t, DefaultOptions())

	s.HandleEvent(Event{Kind: EventError, Err: errors.New("dial tcp: connection refused")}, t0)

	assert.Equal(t, StateFailed, s.State())
	assert.ErrorIs(t, s.Err(), ErrTransportOpen)
	e := entryOf(t, store, s)
	assert.Equal(t, "failed to get a response", e.Content)
	assert.True(t, e.Placeholder)
	assert.Contains(t, e.Notice, "connection refused")
	assert.False(t, e.IsStreaming)
	assert.Equal(t, 1, ch.closed)
}

func TestSession_AbortKeepsPartialContent(t *testing.T) {
	s, store, _ := newTestSession(t, DefaultOptions())
	s.HandleEvent(Event{Kind: EventOpened}, t0)
	s.HandleEvent(msg(`{"answer_delta":"The first half"}`), t0)

	s.HandleEvent(Event{Kind: EventError, Err: errors.New("unexpected EOF")}, t0)

	assert.Equal(t, StateFailed, s.State())
	assert.ErrorIs(t, s.Err(), ErrTransportAbort)
	e := entryOf(t, store, s)
	assert.Equal(t, "The first half", e.Content)
	assert.False(t, e.Placeholder)
	assert.Equal(t, "connection lost: answer stream failed: unexpected EOF", e.Notice)
}

func TestSession_ServerErrorPayloadFails(t *testing.T) {
	s, store, _ := newTestSession(t, DefaultOptions())
	s.HandleEvent(msg(`{"answer_delta":"partial"}`), t0)

	s.HandleEvent(msg(`{"error":true,"error_message":"LLM quota exceeded","finished":true,"answer_delta":"\n\nfailed"}`), t0)

	assert.Equal(t, StateFailed, s.State(), "error wins over finished")
	assert.ErrorIs(t, s.Err(), ErrServer)
	e := entryOf(t, store, s)
	assert.Equal(t, "partial", e.Content)
	assert.Equal(t, "server error: LLM quota exceeded", e.Notice)
}

// =============================================================================
// TIMEOUTS
// =============================================================================

func TestSession_TimeoutWithoutEvents(t *testing.T) {
	opts := DefaultOptions()
	opts.Budget = 30 * time.Second
	opts.TimeoutPlaceholder = "response timed out."
	s, store, ch := newTestSession(t, opts)

	assert.False(t, s.CheckDeadline(t0.Add(29*time.Second)))
	assert.True(t, s.CheckDeadline(t0.Add(30*time.Second)))

	assert.Equal(t, StateTimedOut, s.State())
	assert.ErrorIs(t, s.Err(), ErrTimeout)
	assert.Equal(t, "response timed out.", entryOf(t, store, s).Content)
	assert.Equal(t, 1, ch.closed)
}

func TestSession_DeadlinePolicyIgnoresDeltas(t *testing.T) {
	opts := DefaultOptions()
	opts.Budget = 10 * time.Second
	opts.Policy = PolicyDeadline
	s, store, _ := newTestSession(t, opts)

	s.OnDelta("steady", t0.Add(9*time.Second))
	assert.True(t, s.CheckDeadline(t0.Add(10*time.Second)))
	assert.Equal(t, StateTimedOut, s.State())
	e := entryOf(t, store, s)
	assert.Equal(t, "steady", e.Content, "partial content survives a timeout")
	assert.Equal(t, "response timed out", e.Notice)
}

func TestSession_IdlePolicyRestartsOnDelta(t *testing.T) {
	opts := DefaultOptions()
	opts.Budget = 10 * time.Second
	opts.Policy = PolicyIdle
	s, _, _ := newTestSession(t, opts)

	s.OnDelta("a", t0.Add(9*time.Second))
	assert.Equal(t, t0.Add(19*time.Second), s.Deadline())
	assert.False(t, s.CheckDeadline(t0.Add(15*time.Second)))
	assert.True(t, s.CheckDeadline(t0.Add(19*time.Second)))
}

// =============================================================================
// EMPTY ANSWERS / CANCELLATION
// =============================================================================

func TestSession_EmptyAnswerPolicy(t *testing.T) {
	tests := []struct {
		name        string
		placeholder string
		want        string
	}{
		{"placeholder", "(no answer)", "(no answer)"},
		{"blank", "", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			opts := DefaultOptions()
			opts.EmptyPlaceholder = tc.placeholder
			s, store, _ := newTestSession(t, opts)

			s.HandleEvent(msg(`{"finished":true}`), t0)

			assert.Equal(t, StateCompleted, s.State())
			assert.Equal(t, tc.want, entryOf(t, store, s).Content)
		})
	}
}

func TestSession_VanishedEntryIsSilentNoop(t *testing.T) {
	obs := &recordingObserver{}
	opts := DefaultOptions()
	opts.Observer = obs
	s, store, ch := newTestSession(t, opts)
	s.HandleEvent(msg(`{"answer_delta":"Hi"}`), t0)

	store.LoadAll(2, []model.Entry{{ID: "1", Role: model.RoleUser, Content: "other conversation"}})
	var changes int
	store.Subscribe(func(transcript.Change) { changes++ })

	assert.True(t, s.HandleEvent(msg(`{"answer_delta":" there"}`), t0))
	s.CheckDeadline(t0.Add(time.Hour))

	assert.Equal(t, StateCancelled, s.State())
	assert.Equal(t, 0, changes)
	assert.Equal(t, 1, ch.closed)
	assert.Empty(t, obs.finished)
}

func TestSession_TerminalIgnoresLateEvents(t *testing.T) {
	s, store, _ := newTestSession(t, DefaultOptions())
	s.HandleEvent(msg(`{"answer_delta":"done"}`), t0)
	s.HandleEvent(msg(`{"finished":true}`), t0)

	s.HandleEvent(msg(`{"answer_delta":" late"}`), t0)
	s.HandleEvent(Event{Kind: EventError, Err: errors.New("late")}, t0)

	assert.Equal(t, StateCompleted, s.State())
	assert.Equal(t, "done", entryOf(t, store, s).Content)
}

func TestSession_InterruptKeepsContent(t *testing.T) {
	s, store, ch := newTestSession(t, DefaultOptions())
	s.HandleEvent(msg(`{"answer_delta":"some"}`), t0)

	s.Interrupt(t0)

	assert.Equal(t, StateCancelled, s.State())
	e := entryOf(t, store, s)
	assert.Equal(t, "some", e.Content)
	assert.Equal(t, "stopped", e.Notice)
	assert.False(t, e.IsStreaming)
	assert.Equal(t, 1, ch.closed)
}

func TestSession_AbandonLeavesTranscript(t *testing.T) {
	s, store, ch := newTestSession(t, DefaultOptions())
	s.Abandon()

	assert.Equal(t, StateCancelled, s.State())
	assert.True(t, entryOf(t, store, s).IsStreaming)
	assert.Equal(t, 1, ch.closed)
}
