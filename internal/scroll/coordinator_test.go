// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package scroll

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/smartdocs-tui/internal/transcript"
)

// fakeViewport measures in pixels so the thresholds read like a web view.
type fakeViewport struct {
	offset  int
	content int
	height  int
	calls   []bool // animate flag of each ScrollToBottom
}

func (v *fakeViewport) Offset() int        { return v.offset }
func (v *fakeViewport) ContentHeight() int { return v.content }
func (v *fakeViewport) Height() int        { return v.height }
func (v *fakeViewport) ScrollToBottom(animate bool) {
	v.calls = append(v.calls, animate)
	v.offset = v.bottom()
}
func (v *fakeViewport) bottom() int {
	if v.content <= v.height {
		return 0
	}
	return v.content - v.height
}

func pixelThresholds() Thresholds {
	return Thresholds{NearBottom: 20, FarFromBottom: 200, Epsilon: 2}
}

func setup(t *testing.T) (*Coordinator, *fakeViewport) {
	t.Helper()
	vp := &fakeViewport{content: 1000, height: 400}
	c := NewCoordinator(pixelThresholds())
	c.Attach(vp)
	c.OnChange(transcript.Change{Kind: transcript.ChangeLoaded})
	vp.calls = nil
	return c, vp
}

func delta() transcript.Change {
	return transcript.Change{Kind: transcript.ChangeDelta, EntryID: "tmp_a"}
}

// =============================================================================
// LOAD / USER APPEND
// =============================================================================

func TestCoordinator_LoadJumpsInstantly(t *testing.T) {
	vp := &fakeViewport{content: 50 * 120, height: 400, offset: 0}
	c := NewCoordinator(pixelThresholds())
	c.Attach(vp)

	action := c.OnChange(transcript.Change{Kind: transcript.ChangeLoaded, Index: -1, Count: 50})

	assert.Equal(t, ActionJump, action)
	assert.Equal(t, []bool{false}, vp.calls, "exactly one instant scroll, no animated frame")
	assert.Equal(t, vp.bottom(), vp.offset)
}

func TestCoordinator_UserAppendAlwaysAnimates(t *testing.T) {
	c, vp := setup(t)
	vp.offset = 100
	c.OnScroll(true)
	require.True(t, c.State().Reading)

	vp.content += 40
	action := c.OnChange(transcript.Change{Kind: transcript.ChangeUserAppended})

	assert.Equal(t, ActionAnimate, action)
	assert.Equal(t, []bool{true}, vp.calls)
	assert.Equal(t, vp.bottom(), vp.offset)
	assert.False(t, c.State().Reading)
}

// =============================================================================
// DELTAS
// =============================================================================

func TestCoordinator_DeltaWhileReadingFarAway(t *testing.T) {
	c, vp := setup(t)
	vp.offset = vp.bottom() - 300
	c.OnScroll(true)

	vp.content += 50
	action := c.OnChange(delta())

	assert.Equal(t, ActionSuppressed, action)
	assert.Equal(t, 300, vp.offset, "offset must not move")
	assert.Empty(t, vp.calls)
	assert.True(t, c.ShowJumpToLatest())
}

func TestCoordinator_DeltaNearBottomFollows(t *testing.T) {
	c, vp := setup(t)
	vp.offset = vp.bottom() - 10
	c.OnScroll(true)
	require.False(t, c.State().Reading)

	vp.content += 50
	action := c.OnChange(delta())

	assert.Equal(t, ActionAnimate, action)
	assert.Equal(t, vp.bottom(), vp.offset)
	assert.Equal(t, []bool{true}, vp.calls)
}

func TestCoordinator_DeltaAtBottomKeepsFollowing(t *testing.T) {
	c, vp := setup(t)
	for i := 0; i < 20; i++ {
		vp.content += 17
		c.OnChange(delta())
		assert.Equal(t, vp.bottom(), vp.offset)
	}
	assert.False(t, c.ShowJumpToLatest())
}

func TestCoordinator_MidRangeFollowsWithoutManualScroll(t *testing.T) {
	c, vp := setup(t)
	// Content grows by 50 while the offset holds; the view reports it.
	vp.content += 50
	c.OnScroll(false)
	require.False(t, c.State().Reading, "growth is not a user scroll")
	require.Equal(t, 50, c.State().Distance)

	vp.content += 10
	action := c.OnChange(delta())

	assert.Equal(t, ActionAnimate, action)
	assert.Equal(t, vp.bottom(), vp.offset)
}

func TestCoordinator_MidRangeSuppressedWhileReading(t *testing.T) {
	c, vp := setup(t)
	vp.offset = vp.bottom() - 100
	c.OnScroll(true)

	vp.content += 10
	assert.Equal(t, ActionSuppressed, c.OnChange(delta()))
	assert.Equal(t, 500, vp.offset)
}

func TestCoordinator_FarWithoutReadingIsSuppressed(t *testing.T) {
	c, vp := setup(t)
	vp.content += 300
	c.OnScroll(false)
	require.False(t, c.State().Reading)

	vp.content += 10
	assert.Equal(t, ActionSuppressed, c.OnChange(delta()))
	assert.True(t, c.ShowJumpToLatest())
}

// =============================================================================
// MANUAL SCROLL DETECTION
// =============================================================================

func TestCoordinator_AnchoredGrowthIsNotUserScroll(t *testing.T) {
	c, vp := setup(t)
	vp.offset = vp.bottom() - 100
	c.OnScroll(false)
	require.True(t, c.State().Reading, "unexplained offset change counts as reading")

	c.Attach(vp)
	c.OnChange(transcript.Change{Kind: transcript.ChangeLoaded})

	// The view keeps the bottom anchored while content grows.
	vp.content += 80
	vp.offset = vp.bottom()
	c.OnScroll(false)
	assert.False(t, c.State().Reading)
}

func TestCoordinator_OffsetChangeOutsideEnvelopeIsUserScroll(t *testing.T) {
	c, vp := setup(t)
	vp.content += 80
	vp.offset = vp.bottom() - 40
	c.OnScroll(false)

	assert.True(t, c.State().Reading)
	assert.Equal(t, 40, c.State().Distance)
}

func TestCoordinator_ReturningNearBottomClearsReading(t *testing.T) {
	c, vp := setup(t)
	vp.offset = vp.bottom() - 300
	c.OnScroll(true)
	vp.content += 10
	c.OnChange(delta())
	require.True(t, c.ShowJumpToLatest())

	vp.offset = vp.bottom() - 5
	c.OnScroll(true)

	assert.False(t, c.State().Reading)
	assert.False(t, c.ShowJumpToLatest())

	vp.content += 10
	assert.Equal(t, ActionAnimate, c.OnChange(delta()))
}

func TestCoordinator_JumpToLatest(t *testing.T) {
	c, vp := setup(t)
	vp.offset = 0
	c.OnScroll(true)
	vp.content += 10
	c.OnChange(delta())

	c.JumpToLatest()

	assert.Equal(t, vp.bottom(), vp.offset)
	assert.False(t, c.ShowJumpToLatest())
	assert.Equal(t, State{}, c.State())
}

func TestCoordinator_ResetOnAttach(t *testing.T) {
	c, vp := setup(t)
	vp.offset = 0
	c.OnScroll(true)

	c.Attach(&fakeViewport{content: 10, height: 400})

	assert.Equal(t, State{}, c.State())
	assert.False(t, c.ShowJumpToLatest())
}

func TestCoordinator_NoViewport(t *testing.T) {
	c := NewCoordinator(DefaultThresholds())
	assert.Equal(t, ActionNone, c.OnChange(delta()))
	c.OnScroll(true)
	c.JumpToLatest()
}
