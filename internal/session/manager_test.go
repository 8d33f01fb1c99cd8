// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{"sub": "7"}
	if !exp.IsZero() {
		claims["exp"] = exp.Unix()
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func newTestManager(t *testing.T) (*Manager, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "token.json")
	m := NewManager(Config{TokenFile: path, ServerURL: "http://docs.local/"})
	m.SetClock(func() time.Time { return t0 })
	return m, path
}

// =============================================================================
// LOGIN / LOGOUT TESTS
// =============================================================================

func TestManager_LoginPersists(t *testing.T) {
	m, path := newTestManager(t)

	if m.IsLoggedIn() {
		t.Fatal("fresh manager should be logged out")
	}
	if err := m.Login(Credentials{AccessToken: "mock_access_token", Username: "ada"}); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !m.IsLoggedIn() || m.Token() != "mock_access_token" || m.Username() != "ada" {
		t.Errorf("unexpected state after login: %+v", m.GetStatus())
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("token file missing: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("token file mode = %o, want 600", info.Mode().Perm())
	}

	// A second manager restores the same login.
	m2 := NewManager(Config{TokenFile: path, ServerURL: "http://docs.local"})
	m2.SetClock(func() time.Time { return t0 })
	if err := m2.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m2.Token() != "mock_access_token" {
		t.Errorf("restored token = %q", m2.Token())
	}
	if _, ok := m2.ExpiresAt(); ok {
		t.Error("opaque token should have no expiry")
	}
}

func TestManager_LoginRejectsEmptyToken(t *testing.T) {
	m, _ := newTestManager(t)
	if err := m.Login(Credentials{Username: "ada"}); err == nil {
		t.Error("expected error for empty token")
	}
}

func TestManager_Logout(t *testing.T) {
	m, path := newTestManager(t)
	called := false
	m.SetLogoutCallback(func() { called = true })

	if err := m.Login(Credentials{AccessToken: "tok", Username: "ada"}); err != nil {
		t.Fatal(err)
	}
	if err := m.Logout(); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if m.IsLoggedIn() || m.Token() != "" {
		t.Error("still logged in after logout")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("token file should be removed, stat err = %v", err)
	}
	if !called {
		t.Error("logout callback not called")
	}

	// Logging out twice is harmless.
	if err := m.Logout(); err != nil {
		t.Errorf("second Logout: %v", err)
	}
}

// =============================================================================
// LOAD TESTS
// =============================================================================

func TestManager_LoadMissingFile(t *testing.T) {
	m, _ := newTestManager(t)
	if err := m.Load(); err != nil {
		t.Errorf("Load on missing file: %v", err)
	}
	if m.IsLoggedIn() {
		t.Error("should be logged out")
	}
}

func TestManager_LoadCorruptFile(t *testing.T) {
	m, path := newTestManager(t)
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := m.Load(); err == nil {
		t.Error("expected parse error")
	}
}

func TestManager_LoadIgnoresOtherServer(t *testing.T) {
	m, path := newTestManager(t)
	if err := m.Login(Credentials{AccessToken: "tok", Username: "ada"}); err != nil {
		t.Fatal(err)
	}

	other := NewManager(Config{TokenFile: path, ServerURL: "http://elsewhere"})
	if err := other.Load(); err != nil {
		t.Fatal(err)
	}
	if other.IsLoggedIn() {
		t.Error("token for another server must be ignored")
	}
}

func TestManager_LoadIgnoresExpiredToken(t *testing.T) {
	m, path := newTestManager(t)
	if err := m.Login(Credentials{AccessToken: signedToken(t, t0.Add(-time.Minute)), Username: "ada"}); err != nil {
		t.Fatal(err)
	}
	if m.IsLoggedIn() {
		t.Error("expired token should not count as logged in")
	}
	if !m.IsExpired() {
		t.Error("IsExpired should be true")
	}

	m2 := NewManager(Config{TokenFile: path})
	m2.SetClock(func() time.Time { return t0 })
	if err := m2.Load(); err != nil {
		t.Fatal(err)
	}
	if m2.Token() != "" {
		t.Error("expired token should not be restored")
	}
}

// =============================================================================
// EXPIRY TESTS
// =============================================================================

func TestManager_JWTExpiry(t *testing.T) {
	m, _ := newTestManager(t)
	exp := t0.Add(10 * time.Minute)
	if err := m.Login(Credentials{AccessToken: signedToken(t, exp), Username: "ada"}); err != nil {
		t.Fatal(err)
	}

	got, ok := m.ExpiresAt()
	if !ok || !got.Equal(exp) {
		t.Errorf("ExpiresAt = %v, %v; want %v", got, ok, exp)
	}
	if m.RemainingTime() != 10*time.Minute {
		t.Errorf("RemainingTime = %v", m.RemainingTime())
	}
	if m.ShouldShowWarning() {
		t.Error("no warning 10 minutes out")
	}

	now := t0.Add(9 * time.Minute)
	m.SetClock(func() time.Time { return now })
	if !m.ShouldShowWarning() {
		t.Error("expected warning 1 minute before expiry")
	}
	_ = m.HandleTick()
	if m.ShouldShowWarning() {
		t.Error("warning must only fire once")
	}

	now = t0.Add(11 * time.Minute)
	if !m.IsExpired() || m.IsLoggedIn() {
		t.Error("token should be expired")
	}
	if m.RemainingTime() != 0 {
		t.Errorf("RemainingTime after expiry = %v", m.RemainingTime())
	}
}

func TestManager_TokenWithoutExp(t *testing.T) {
	m, _ := newTestManager(t)
	if err := m.Login(Credentials{AccessToken: signedToken(t, time.Time{}), Username: "ada"}); err != nil {
		t.Fatal(err)
	}
	if _, ok := m.ExpiresAt(); ok {
		t.Error("token without exp should have no expiry")
	}
	if m.IsExpired() {
		t.Error("token without exp never expires client-side")
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	m, _ := newTestManager(t)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = m.Login(Credentials{AccessToken: "tok", Username: "ada"})
		}()
		go func() {
			defer wg.Done()
			_ = m.Token()
			_ = m.GetStatus()
		}()
	}
	wg.Wait()
}

// =============================================================================
// FORMAT TESTS
// =============================================================================

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{30 * time.Second, "30s"},
		{2 * time.Minute, "2m"},
		{90 * time.Second, "1m 30s"},
		{time.Hour, "1h"},
		{75 * time.Minute, "1h 15m"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.d); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
