// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"testing"
	"time"
)

func newTestManager(now *time.Time) *ToastManager {
	m := NewToastManager()
	m.SetClock(func() time.Time { return *now })
	return m
}

func TestToastManager_NewestFirstAndCapped(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	m := newTestManager(&now)

	m.AddStatus("one")
	m.AddWarning("two")
	m.AddError("three")
	m.AddSuccess("four")

	toasts := m.Toasts()
	if len(toasts) != 3 {
		t.Fatalf("Expected 3 toasts, got %d", len(toasts))
	}
	if toasts[0].Message != "four" || toasts[2].Message != "two" {
		t.Errorf("Unexpected order: %v", toasts)
	}
}

func TestToastManager_DuplicateRefreshes(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	m := newTestManager(&now)

	id := m.AddError("offline")
	now = now.Add(5 * time.Second)
	if got := m.AddError("offline"); got != id {
		t.Errorf("Expected duplicate to reuse ID %d, got %d", id, got)
	}
	if n := len(m.Toasts()); n != 1 {
		t.Errorf("Expected 1 toast, got %d", n)
	}
	now = now.Add(7 * time.Second)
	if !m.Tick() {
		t.Error("Refreshed toast should still be visible")
	}
}

func TestToastManager_TickExpires(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	m := newTestManager(&now)

	m.AddStatus("saved")
	m.AddError("failed")

	now = now.Add(DefaultToastDuration + time.Millisecond)
	if !m.Tick() {
		t.Fatal("Error toast should outlive the status toast")
	}
	toasts := m.Toasts()
	if len(toasts) != 1 || toasts[0].Kind != ToastKindError {
		t.Errorf("Expected only the error toast, got %v", toasts)
	}

	now = now.Add(ErrorToastDuration)
	if m.Tick() {
		t.Error("All toasts should have expired")
	}
}

func TestToastManager_Dismiss(t *testing.T) {
	now := time.Now()
	m := newTestManager(&now)
	m.AddStatus("a")
	m.AddStatus("b")
	m.Dismiss()
	toasts := m.Toasts()
	if len(toasts) != 1 || toasts[0].Message != "a" {
		t.Errorf("Dismiss should drop the newest toast, got %v", toasts)
	}
	m.Clear()
	if len(m.Toasts()) != 0 {
		t.Error("Clear should remove all toasts")
	}
}

func TestRenderToast_ContainsIndicator(t *testing.T) {
	out := RenderToast(Toast{Message: "could not reach the server", Kind: ToastKindError}, 80)
	if !strings.Contains(out, "[X]") {
		t.Errorf("Error toast should contain the [X] indicator:\n%s", out)
	}
	if !strings.Contains(out, "server") {
		t.Errorf("Toast should contain its message:\n%s", out)
	}
}

func TestWrapText(t *testing.T) {
	got := wrapText("the quick brown fox jumps", 10)
	for _, line := range strings.Split(got, "\n") {
		if len(line) > 10 {
			t.Errorf("Line %q exceeds width 10", line)
		}
	}
	if wrapText("", 10) != "" {
		t.Error("Empty text should stay empty")
	}
}
