// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/smartdocs-tui/internal/model"
	"github.com/jeranaias/smartdocs-tui/internal/stream"
)

// =============================================================================
// STATS TRACKER
// =============================================================================

// Tracker aggregates stream outcomes for the current process.
type Tracker struct {
	mu        sync.RWMutex
	startTime time.Time
	byState   map[stream.State]int
	byError   map[stream.ErrorType]int
	dropped   int

	deltas int
	runes  int

	// Only sessions that received at least one delta count toward latency.
	firstDeltaTotal time.Duration
	firstDeltaCount int
	durationTotal   time.Duration
	durationCount   int

	recent []AnswerRecord
}

// AnswerRecord is one finished session.
type AnswerRecord struct {
	Time       time.Time
	State      stream.State
	ErrorType  stream.ErrorType
	Deltas     int
	Duration   time.Duration
	FirstDelta time.Duration
}

// maxRecent bounds the recent-answers list.
const maxRecent = 10

// Summary is a snapshot of the tracker.
type Summary struct {
	Since         time.Time
	Answers       int
	Completed     int
	Failed        int
	TimedOut      int
	Cancelled     int
	Dropped       int
	Deltas        int
	Runes         int
	AvgFirstDelta time.Duration
	AvgDuration   time.Duration
	Errors        map[stream.ErrorType]int
	Recent        []AnswerRecord
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		startTime: time.Now(),
		byState:   make(map[stream.State]int),
		byError:   make(map[stream.ErrorType]int),
	}
}

// =============================================================================
// RECORDING
// =============================================================================

// SessionFinished implements stream.Observer.
func (t *Tracker) SessionFinished(state stream.State, errType stream.ErrorType, stats *model.Statistics) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.byState[state]++
	if errType != stream.ErrTypeUnknown {
		t.byError[errType]++
	}

	rec := AnswerRecord{Time: time.Now(), State: state, ErrorType: errType}
	if stats != nil {
		t.deltas += stats.Deltas
		t.runes += stats.Runes
		rec.Deltas = stats.Deltas
		rec.Duration = stats.TotalDuration
		rec.FirstDelta = stats.TimeToFirstDelta
		if stats.Deltas > 0 {
			t.firstDeltaTotal += stats.TimeToFirstDelta
			t.firstDeltaCount++
		}
		t.durationTotal += stats.TotalDuration
		t.durationCount++
		rec.Time = stats.EndTime
	}

	t.recent = append(t.recent, rec)
	if len(t.recent) > maxRecent {
		t.recent = t.recent[len(t.recent)-maxRecent:]
	}
}

// PayloadDropped implements stream.Observer.
func (t *Tracker) PayloadDropped() {
	t.mu.Lock()
	t.dropped++
	t.mu.Unlock()
}

// =============================================================================
// QUERIES
// =============================================================================

// Summary returns a snapshot. The returned value is safe to keep.
func (t *Tracker) Summary() Summary {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s := Summary{
		Since:     t.startTime,
		Completed: t.byState[stream.StateCompleted],
		Failed:    t.byState[stream.StateFailed],
		TimedOut:  t.byState[stream.StateTimedOut],
		Cancelled: t.byState[stream.StateCancelled],
		Dropped:   t.dropped,
		Deltas:    t.deltas,
		Runes:     t.runes,
		Errors:    make(map[stream.ErrorType]int, len(t.byError)),
		Recent:    append([]AnswerRecord(nil), t.recent...),
	}
	for _, n := range t.byState {
		s.Answers += n
	}
	for k, v := range t.byError {
		s.Errors[k] = v
	}
	if t.firstDeltaCount > 0 {
		s.AvgFirstDelta = t.firstDeltaTotal / time.Duration(t.firstDeltaCount)
	}
	if t.durationCount > 0 {
		s.AvgDuration = t.durationTotal / time.Duration(t.durationCount)
	}
	return s
}

// Format renders the summary for the /stats command.
func (s Summary) Format() string {
	if s.Answers == 0 {
		return "No answers streamed yet."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Answers: %d (completed %d, failed %d, timed out %d, stopped %d)\n",
		s.Answers, s.Completed, s.Failed, s.TimedOut, s.Cancelled)
	fmt.Fprintf(&sb, "Average: first text %dms, total %.1fs\n",
		s.AvgFirstDelta.Milliseconds(), s.AvgDuration.Seconds())
	fmt.Fprintf(&sb, "Received: %d deltas, %d characters\n", s.Deltas, s.Runes)
	if s.Dropped > 0 {
		fmt.Fprintf(&sb, "Malformed payloads skipped: %d\n", s.Dropped)
	}
	if len(s.Errors) > 0 {
		parts := make([]string, 0, len(s.Errors))
		for _, et := range []stream.ErrorType{
			stream.ErrTypeTransportOpen, stream.ErrTypeTransportAbort, stream.ErrTypeTimeout,
			stream.ErrTypeServer, stream.ErrTypeAuth, stream.ErrTypeProtocolParse,
		} {
			if n := s.Errors[et]; n > 0 {
				parts = append(parts, fmt.Sprintf("%s=%d", et, n))
			}
		}
		sb.WriteString("Errors: " + strings.Join(parts, " ") + "\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// =============================================================================
// FANOUT
// =============================================================================

type fanout []stream.Observer

// Fanout returns an observer that forwards to every non-nil observer.
func Fanout(observers ...stream.Observer) stream.Observer {
	var f fanout
	for _, o := range observers {
		if o != nil {
			f = append(f, o)
		}
	}
	return f
}

func (f fanout) SessionFinished(state stream.State, errType stream.ErrorType, stats *model.Statistics) {
	for _, o := range f {
		o.SessionFinished(state, errType, stats)
	}
}

func (f fanout) PayloadDropped() {
	for _, o := range f {
		o.PayloadDropped()
	}
}
