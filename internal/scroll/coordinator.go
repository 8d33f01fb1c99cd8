// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package scroll

import (
	"github.com/jeranaias/smartdocs-tui/internal/transcript"
)

// Viewport is the capability the coordinator needs from the view.
type Viewport interface {
	// Offset is the index of the first visible line.
	Offset() int
	// ContentHeight is the total number of content lines.
	ContentHeight() int
	// Height is the number of visible lines.
	Height() int
	// ScrollToBottom moves to the last line, animated or instantly.
	ScrollToBottom(animate bool)
}

// Thresholds are distances from the bottom in viewport units.
type Thresholds struct {
	NearBottom    int
	FarFromBottom int
	Epsilon       int
}

// DefaultThresholds are tuned for terminal rows.
func DefaultThresholds() Thresholds {
	return Thresholds{NearBottom: 1, FarFromBottom: 10, Epsilon: 0}
}

// State is the read-position state of one transcript.
type State struct {
	// Reading is set when the user scrolled away from the bottom.
	Reading bool
	// Distance is the distance from the bottom at the last measurement.
	Distance int
}

// Action is what the coordinator did for one change.
type Action int

const (
	ActionNone Action = iota
	ActionJump
	ActionAnimate
	ActionSuppressed
)

// Coordinator owns the ScrollState of the active transcript.
type Coordinator struct {
	vp Viewport
	th Thresholds

	state      State
	showJump   bool
	lastHeight int
}

// NewCoordinator creates a coordinator with th.
func NewCoordinator(th Thresholds) *Coordinator {
	if th.FarFromBottom < th.NearBottom {
		th.FarFromBottom = th.NearBottom
	}
	return &Coordinator{th: th}
}

// Attach sets the viewport handle and resets the state to at-bottom.
func (c *Coordinator) Attach(vp Viewport) {
	c.vp = vp
	c.Reset()
}

// SetThresholds replaces the thresholds, e.g. after a config reload.
func (c *Coordinator) SetThresholds(th Thresholds) {
	if th.FarFromBottom < th.NearBottom {
		th.FarFromBottom = th.NearBottom
	}
	c.th = th
}

// Reset returns to "at bottom, not reading".
func (c *Coordinator) Reset() {
	c.state = State{}
	c.showJump = false
	if c.vp != nil {
		c.lastHeight = c.vp.ContentHeight()
	}
}

// State returns the current scroll state.
func (c *Coordinator) State() State { return c.state }

// ShowJumpToLatest reports whether the jump-to-latest affordance is visible.
func (c *Coordinator) ShowJumpToLatest() bool { return c.showJump }

func (c *Coordinator) distance() int {
	d := c.vp.ContentHeight() - c.vp.Height() - c.vp.Offset()
	if d < 0 {
		return 0
	}
	return d
}

func (c *Coordinator) toBottom(animate bool) {
	c.vp.ScrollToBottom(animate)
	c.state = State{}
	c.showJump = false
	c.lastHeight = c.vp.ContentHeight()
}

// OnChange reacts to one transcript change. The viewport content must
// already reflect the change.
func (c *Coordinator) OnChange(change transcript.Change) Action {
	if c.vp == nil {
		return ActionNone
	}

	switch change.Kind {
	case transcript.ChangeLoaded:
		c.toBottom(false)
		return ActionJump

	case transcript.ChangeUserAppended:
		c.toBottom(true)
		return ActionAnimate
	}

	// Assistant-side update: decide from the distance measured before the
	// content grew.
	prev := c.state.Distance
	switch {
	case prev <= c.th.NearBottom:
		c.toBottom(true)
		return ActionAnimate
	case prev > c.th.FarFromBottom || c.state.Reading:
		c.showJump = true
		c.state.Distance = c.distance()
		c.lastHeight = c.vp.ContentHeight()
		return ActionSuppressed
	default:
		c.toBottom(true)
		return ActionAnimate
	}
}

// OnScroll records a viewport offset change. gesture is true for explicit
// key or mouse scrolling; false for offset changes the view reports on its
// own, such as those caused by content growth.
func (c *Coordinator) OnScroll(gesture bool) {
	if c.vp == nil {
		return
	}
	height := c.vp.ContentHeight()
	growth := height - c.lastHeight
	d := c.distance()

	switch {
	case d <= c.th.NearBottom:
		c.state.Reading = false
		c.showJump = false
	case gesture:
		c.state.Reading = true
	case growth > 0 && c.explainedByGrowth(d, growth):
		// Content grew under a still reader; not a user scroll.
	default:
		c.state.Reading = true
	}
	c.state.Distance = d
	c.lastHeight = height
}

// explainedByGrowth reports whether distance d after growth matches either a
// view anchored to the bottom (distance kept) or a view that held its offset
// (distance grew by exactly growth), within Epsilon.
func (c *Coordinator) explainedByGrowth(d, growth int) bool {
	prev := c.state.Distance
	return abs(d-prev) <= c.th.Epsilon || abs(d-(prev+growth)) <= c.th.Epsilon
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// JumpToLatest performs the affordance action.
func (c *Coordinator) JumpToLatest() {
	if c.vp == nil {
		return
	}
	c.toBottom(true)
}
