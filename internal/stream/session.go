// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/smartdocs-tui/internal/model"
)

// =============================================================================
// STATE
// =============================================================================

// State is the lifecycle state of a Session.
type State int

const (
	StateOpening State = iota
	StateStreaming
	StateCompleted
	StateFailed
	StateTimedOut
	StateCancelled
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateOpening:
		return "opening"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateTimedOut:
		return "timed_out"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether no further transitions are possible.
func (s State) IsTerminal() bool {
	return s >= StateCompleted
}

// =============================================================================
// OPTIONS
// =============================================================================

// TimeoutPolicy selects how the session budget is enforced.
type TimeoutPolicy string

const (
	// PolicyDeadline is a fixed wall-clock deadline from session start.
	PolicyDeadline TimeoutPolicy = "deadline"
	// PolicyIdle restarts the budget on every delta.
	PolicyIdle TimeoutPolicy = "idle"
)

// Observer receives session outcomes, e.g. for metrics.
type Observer interface {
	SessionFinished(state State, errType ErrorType, stats *model.Statistics)
	PayloadDropped()
}

// Options configures a Session.
type Options struct {
	Budget time.Duration
	Policy TimeoutPolicy

	// Placeholders written into an assistant entry that received no content.
	TimeoutPlaceholder string
	FailurePlaceholder string
	// EmptyPlaceholder is used when the stream completes without any delta.
	// Empty means the entry is left blank.
	EmptyPlaceholder string

	Logger   *log.Logger
	Observer Observer
}

// DefaultOptions returns the long-budget options used by the chat screen.
func DefaultOptions() Options {
	return Options{
		Budget:             120 * time.Second,
		Policy:             PolicyDeadline,
		TimeoutPlaceholder: "response timed out",
		FailurePlaceholder: "failed to get a response",
		EmptyPlaceholder:   "(no answer)",
	}
}

// Sink is the subset of the transcript store a session writes to.
type Sink interface {
	Has(id string) bool
	SetContent(id, text string) error
	SetReferences(id string, refs []model.Reference) error
	SetPlaceholder(id, text string) error
	SetNotice(id, notice string) error
	SetStats(id string, stats *model.Statistics) error
	Finalize(id string) error
}

// =============================================================================
// SESSION
// =============================================================================

// Session drives one streamed answer into one transcript entry. It holds
// only the entry's ID, never a copy of the entry.
type Session struct {
	id      string
	entryID string

	state   State
	channel Channel
	sink    Sink
	opts    Options

	// buf is the accumulated answer, kept apart from the published entry.
	buf      strings.Builder
	refs     []model.Reference
	deadline time.Time
	stats    *model.Statistics
	err      error
}

// NewSession creates a session in the Opening state for entryID, with its
// deadline starting at now.
func NewSession(sink Sink, entryID string, opts Options, now time.Time) *Session {
	if opts.Budget <= 0 {
		opts.Budget = DefaultOptions().Budget
	}
	if opts.Policy == "" {
		opts.Policy = PolicyDeadline
	}
	return &Session{
		id:       uuid.NewString(),
		entryID:  entryID,
		state:    StateOpening,
		sink:     sink,
		opts:     opts,
		deadline: now.Add(opts.Budget),
		stats:    model.NewStatistics(now),
	}
}

// Attach hands the session the channel it owns. The session closes it on
// any terminal transition.
func (s *Session) Attach(ch Channel) {
	s.channel = ch
	if s.state.IsTerminal() && ch != nil {
		ch.Close()
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// EntryID returns the transcript entry the session fills.
func (s *Session) EntryID() string { return s.entryID }

// State returns the current state.
func (s *Session) State() State { return s.state }

// Err returns the terminal error for Failed and TimedOut sessions.
func (s *Session) Err() error { return s.err }

// Deadline returns the current deadline.
func (s *Session) Deadline() time.Time { return s.deadline }

// Content returns the accumulated answer.
func (s *Session) Content() string { return s.buf.String() }

// References returns the merged reference set.
func (s *Session) References() []model.Reference { return s.refs }

// Stats returns the session statistics.
func (s *Session) Stats() *model.Statistics { return s.stats }

// active reports whether events should still be applied. A session whose
// entry vanished (conversation switched, transcript reloaded) is cancelled
// silently.
func (s *Session) active() bool {
	if s.state.IsTerminal() {
		return false
	}
	if !s.sink.Has(s.entryID) {
		s.state = StateCancelled
		s.closeChannel()
		return false
	}
	return true
}

// HandleEvent applies one channel event and reports whether the session is
// now terminal.
func (s *Session) HandleEvent(ev Event, now time.Time) bool {
	if !s.active() {
		return true
	}

	switch ev.Kind {
	case EventOpened:
		s.OnOpened()
	case EventMessage:
		p, err := DecodePayload(ev.Data)
		if err != nil {
			logf(s.opts.Logger, "STREAM_PARSE_ERROR | session=%s error=%v", s.id, err)
			if s.opts.Observer != nil {
				s.opts.Observer.PayloadDropped()
			}
			break
		}
		s.OnPayload(p, now)
	case EventClosed:
		s.OnCompleted(now)
	case EventError:
		s.OnChannelError(ev.Err, now)
	}
	return s.state.IsTerminal()
}

// OnOpened moves Opening to Streaming.
func (s *Session) OnOpened() {
	if !s.active() {
		return
	}
	if s.state == StateOpening {
		s.state = StateStreaming
	}
}

// OnPayload applies one decoded payload: error flag first, then delta, then
// references, then the finished flag.
func (s *Session) OnPayload(p Payload, now time.Time) {
	if !s.active() {
		return
	}
	if p.IsError() {
		s.OnChannelError(&StreamError{Type: ErrTypeServer, Message: p.ErrorText()}, now)
		return
	}
	s.OnOpened()
	if p.AnswerDelta != "" {
		s.OnDelta(p.AnswerDelta, now)
	}
	if len(p.ReferencedDocuments) > 0 {
		s.OnReferences(p.ReferencedDocuments)
	}
	if p.Finished {
		s.OnCompleted(now)
	}
}

// OnDelta appends text to the buffer and publishes the whole buffer to the
// entry.
func (s *Session) OnDelta(text string, now time.Time) {
	if !s.active() || text == "" {
		return
	}
	s.OnOpened()
	s.buf.WriteString(text)
	if err := s.sink.SetContent(s.entryID, s.buf.String()); err != nil {
		logf(s.opts.Logger, "STREAM_DELTA_REJECTED | session=%s entry=%s error=%v", s.id, s.entryID, err)
		s.state = StateCancelled
		s.closeChannel()
		return
	}
	s.stats.RecordDelta(text, now)
	if s.opts.Policy == PolicyIdle {
		s.deadline = now.Add(s.opts.Budget)
	}
}

// OnReferences merges refs into the reference set and republishes it.
func (s *Session) OnReferences(refs []model.Reference) {
	if !s.active() {
		return
	}
	s.refs = model.MergeReferences(s.refs, model.NormalizeReferences(refs))
	if err := s.sink.SetReferences(s.entryID, s.refs); err != nil {
		logf(s.opts.Logger, "STREAM_REFS_REJECTED | session=%s error=%v", s.id, err)
	}
}

// OnCompleted ends the stream normally.
func (s *Session) OnCompleted(now time.Time) {
	if !s.active() {
		return
	}
	if s.buf.Len() == 0 && s.opts.EmptyPlaceholder != "" {
		s.sink.SetPlaceholder(s.entryID, s.opts.EmptyPlaceholder)
	}
	s.finish(StateCompleted, nil, now)
}

// OnChannelError ends the stream as Failed. Partial content is kept and
// annotated; an entry with no content gets the failure placeholder.
func (s *Session) OnChannelError(err error, now time.Time) {
	if !s.active() {
		return
	}
	if err == nil {
		err = ErrTransportAbort
	}
	var se *StreamError
	if !errors.As(err, &se) {
		errType := ErrTypeTransportAbort
		if s.state == StateOpening {
			errType = ErrTypeTransportOpen
		}
		err = &StreamError{Type: errType, Message: "answer stream failed", Cause: err}
	}

	if s.buf.Len() == 0 {
		s.sink.SetPlaceholder(s.entryID, s.opts.FailurePlaceholder)
	}
	s.sink.SetNotice(s.entryID, noticeFor(err))
	s.finish(StateFailed, err, now)
}

// CheckDeadline times the session out if now is past the deadline. It
// reports whether the session is terminal.
func (s *Session) CheckDeadline(now time.Time) bool {
	if !s.active() {
		return true
	}
	if now.Before(s.deadline) {
		return false
	}
	if s.buf.Len() == 0 {
		s.sink.SetPlaceholder(s.entryID, s.opts.TimeoutPlaceholder)
	} else {
		s.sink.SetNotice(s.entryID, noticeFor(ErrTimeout))
	}
	s.finish(StateTimedOut, ErrTimeout, now)
	return true
}

// Interrupt stops the stream at the user's request, keeping what arrived.
func (s *Session) Interrupt(now time.Time) {
	if !s.active() {
		return
	}
	if s.buf.Len() > 0 {
		s.sink.SetNotice(s.entryID, "stopped")
	} else {
		s.sink.SetPlaceholder(s.entryID, "(stopped)")
	}
	s.finish(StateCancelled, nil, now)
}

// Abandon closes the channel without touching the transcript. It is used
// when the transcript itself is being replaced.
func (s *Session) Abandon() {
	if s.state.IsTerminal() {
		return
	}
	s.state = StateCancelled
	s.closeChannel()
}

func (s *Session) finish(state State, err error, now time.Time) {
	s.state = state
	s.err = err
	s.closeChannel()
	s.stats.Finalize(now)
	s.sink.SetStats(s.entryID, s.stats)
	s.sink.Finalize(s.entryID)

	if s.opts.Observer != nil {
		s.opts.Observer.SessionFinished(state, TypeOf(err), s.stats)
	}
	logf(s.opts.Logger, "STREAM_END | session=%s state=%s deltas=%d duration=%s error=%v",
		s.id, state, s.stats.Deltas, s.stats.TotalDuration, err)
}

func (s *Session) closeChannel() {
	if s.channel != nil {
		s.channel.Close()
	}
}

// noticeFor renders a one-line notice for a terminal error.
func noticeFor(err error) string {
	switch TypeOf(err) {
	case ErrTypeTimeout:
		return "response timed out"
	case ErrTypeTransportOpen:
		return "could not reach the server: " + firstLine(err.Error())
	case ErrTypeAuth:
		return "session expired, please log in again"
	case ErrTypeServer:
		return "server error: " + firstLine(err.Error())
	default:
		return "connection lost: " + firstLine(err.Error())
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
