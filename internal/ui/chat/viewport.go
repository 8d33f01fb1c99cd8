// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"math"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/harmonica"
)

// =============================================================================
// TRANSCRIPT VIEWPORT
// =============================================================================

const (
	frameRate       = 60
	springFrequency = 6.0
	springDamping   = 1.0
)

// scrollFrameMsg advances the scroll animation by one frame.
type scrollFrameMsg struct{}

// transcriptViewport adapts a bubbles viewport to scroll.Viewport. Animated
// scrolls follow a critically damped spring. Animation frames move the
// offset without being reported as scrolls; only gestures are.
type transcriptViewport struct {
	vp     viewport.Model
	smooth bool

	spring    harmonica.Spring
	pos       float64
	vel       float64
	animating bool
	ticking   bool
}

func newTranscriptViewport(width, height int, smooth bool) *transcriptViewport {
	vp := viewport.New(width, height)
	vp.MouseWheelEnabled = false
	return &transcriptViewport{
		vp:     vp,
		smooth: smooth,
		spring: harmonica.NewSpring(harmonica.FPS(frameRate), springFrequency, springDamping),
	}
}

// Offset implements scroll.Viewport.
func (t *transcriptViewport) Offset() int { return t.vp.YOffset }

// ContentHeight implements scroll.Viewport.
func (t *transcriptViewport) ContentHeight() int { return t.vp.TotalLineCount() }

// Height implements scroll.Viewport.
func (t *transcriptViewport) Height() int { return t.vp.Height }

// ScrollToBottom implements scroll.Viewport. A jump also ends any running
// animation.
func (t *transcriptViewport) ScrollToBottom(animate bool) {
	bottom := t.maxOffset()
	if !animate || !t.smooth || bottom-t.vp.YOffset <= 1 {
		t.stop()
		t.vp.GotoBottom()
		return
	}
	if !t.animating {
		t.pos = float64(t.vp.YOffset)
		t.vel = 0
	}
	t.animating = true
}

func (t *transcriptViewport) maxOffset() int {
	return max(0, t.vp.TotalLineCount()-t.vp.Height)
}

func (t *transcriptViewport) stop() {
	t.animating = false
	t.vel = 0
}

// Animating reports whether a spring animation is in progress.
func (t *transcriptViewport) Animating() bool { return t.animating }

// SetSmooth turns animation on or off. Turning it off finishes any running
// animation at the bottom.
func (t *transcriptViewport) SetSmooth(on bool) {
	t.smooth = on
	if !on && t.animating {
		t.stop()
		t.vp.GotoBottom()
	}
}

// SetSize resizes the viewport.
func (t *transcriptViewport) SetSize(width, height int) {
	t.vp.Width = width
	t.vp.Height = max(1, height)
}

// SetContent replaces the rendered transcript.
func (t *transcriptViewport) SetContent(s string) {
	t.vp.SetContent(s)
}

// frameCmd schedules the next animation frame if one is needed and none is
// pending.
func (t *transcriptViewport) frameCmd() tea.Cmd {
	if !t.animating || t.ticking {
		return nil
	}
	t.ticking = true
	return tea.Tick(time.Second/frameRate, func(time.Time) tea.Msg {
		return scrollFrameMsg{}
	})
}

// step advances the spring one frame toward the current bottom.
func (t *transcriptViewport) step() {
	t.ticking = false
	if !t.animating {
		return
	}
	target := float64(t.maxOffset())
	t.pos, t.vel = t.spring.Update(t.pos, t.vel, target)
	if math.Abs(target-t.pos) < 0.5 && math.Abs(t.vel) < 0.5 {
		t.stop()
		t.vp.SetYOffset(int(target))
		return
	}
	t.vp.SetYOffset(int(math.Round(t.pos)))
}

// =============================================================================
// GESTURES
// =============================================================================

// The gesture methods move the view on the user's behalf and stop any
// animation. The caller reports them with OnScroll(true).

func (t *transcriptViewport) lineUp(n int) {
	t.stop()
	t.vp.LineUp(n)
}

func (t *transcriptViewport) lineDown(n int) {
	t.stop()
	t.vp.LineDown(n)
}

func (t *transcriptViewport) pageUp() {
	t.stop()
	t.vp.ViewUp()
}

func (t *transcriptViewport) pageDown() {
	t.stop()
	t.vp.ViewDown()
}

func (t *transcriptViewport) top() {
	t.stop()
	t.vp.GotoTop()
}

func (t *transcriptViewport) View() string {
	return t.vp.View()
}
