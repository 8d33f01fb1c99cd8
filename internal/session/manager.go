// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/golang-jwt/jwt/v5"

	"github.com/jeranaias/smartdocs-tui/internal/util"
)

// =============================================================================
// CREDENTIALS
// =============================================================================

// Credentials is the persisted login.
type Credentials struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Username     string    `json:"username"`
	ServerURL    string    `json:"server_url"`
	IssuedAt     time.Time `json:"issued_at"`
}

// ErrNoToken is returned when an operation needs a login.
var ErrNoToken = errors.New("not logged in")

// =============================================================================
// SESSION MANAGER
// =============================================================================

// Manager tracks the login state. It is safe for concurrent use.
type Manager struct {
	mu sync.Mutex

	path      string
	serverURL string
	logger    *log.Logger
	now       func() time.Time

	creds     *Credentials
	expiresAt time.Time // zero when the token carries no exp claim

	warningBefore time.Duration
	warningShown  bool

	onLogout func()
}

// Config holds configuration for the session manager.
type Config struct {
	// TokenFile is where credentials are persisted
	TokenFile string

	// ServerURL scopes the login; a saved token for another server is ignored
	ServerURL string

	// WarningBefore is how long before expiry to warn (default: 2 minutes)
	WarningBefore time.Duration

	Logger *log.Logger
}

// NewManager creates a session manager. Call Load to restore a saved login.
func NewManager(cfg Config) *Manager {
	if cfg.WarningBefore <= 0 {
		cfg.WarningBefore = 2 * time.Minute
	}
	return &Manager{
		path:          cfg.TokenFile,
		serverURL:     strings.TrimRight(cfg.ServerURL, "/"),
		logger:        cfg.Logger,
		now:           time.Now,
		warningBefore: cfg.WarningBefore,
	}
}

// SetClock replaces the time source.
func (m *Manager) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// SetLogoutCallback sets the function called after Logout.
func (m *Manager) SetLogoutCallback(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onLogout = fn
}

// =============================================================================
// PERSISTENCE
// =============================================================================

// Load restores credentials from the token file. A missing file, a token
// for a different server, or an already expired token leaves the manager
// logged out without error.
func (m *Manager) Load() error {
	data, err := os.ReadFile(m.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read token file: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return fmt.Errorf("failed to parse token file %s: %w", m.path, err)
	}
	if creds.AccessToken == "" {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.serverURL != "" && strings.TrimRight(creds.ServerURL, "/") != m.serverURL {
		m.logf("SESSION_IGNORED | reason=server_mismatch saved=%s", creds.ServerURL)
		return nil
	}
	exp, _ := tokenExpiry(creds.AccessToken)
	if !exp.IsZero() && !m.now().Before(exp) {
		m.logf("SESSION_IGNORED | reason=expired user=%s", creds.Username)
		return nil
	}

	m.creds = &creds
	m.expiresAt = exp
	m.warningShown = false
	m.logf("SESSION_RESTORED | user=%s", creds.Username)
	return nil
}

// Login stores new credentials and persists them.
func (m *Manager) Login(creds Credentials) error {
	if creds.AccessToken == "" {
		return errors.New("empty access token")
	}

	m.mu.Lock()
	if creds.ServerURL == "" {
		creds.ServerURL = m.serverURL
	}
	if creds.IssuedAt.IsZero() {
		creds.IssuedAt = m.now()
	}
	exp, _ := tokenExpiry(creds.AccessToken)
	m.creds = &creds
	m.expiresAt = exp
	m.warningShown = false
	m.mu.Unlock()

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}
	// SECURITY: Token file is owner-only.
	if err := util.AtomicWriteFile(m.path, data, 0600); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	m.logf("SESSION_LOGIN | user=%s", creds.Username)
	return nil
}

// Logout forgets the credentials and removes the token file.
func (m *Manager) Logout() error {
	m.mu.Lock()
	user := ""
	if m.creds != nil {
		user = m.creds.Username
	}
	m.creds = nil
	m.expiresAt = time.Time{}
	m.warningShown = false
	onLogout := m.onLogout
	m.mu.Unlock()

	err := os.Remove(m.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove token file: %w", err)
	}
	m.logf("SESSION_LOGOUT | user=%s", user)

	if onLogout != nil {
		onLogout()
	}
	return nil
}

// =============================================================================
// SESSION STATE
// =============================================================================

// IsLoggedIn reports whether a non-expired token is held.
func (m *Manager) IsLoggedIn() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creds != nil && !m.expiredLocked()
}

// Token returns the bearer token, or "" when logged out.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.creds == nil {
		return ""
	}
	return m.creds.AccessToken
}

// Username returns the logged-in user name.
func (m *Manager) Username() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.creds == nil {
		return ""
	}
	return m.creds.Username
}

// ExpiresAt returns the token expiry and whether the token has one.
func (m *Manager) ExpiresAt() (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.expiresAt, !m.expiresAt.IsZero()
}

// IsExpired returns true if a held token is past its exp claim.
func (m *Manager) IsExpired() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creds != nil && m.expiredLocked()
}

func (m *Manager) expiredLocked() bool {
	return !m.expiresAt.IsZero() && !m.now().Before(m.expiresAt)
}

// RemainingTime returns time until expiry, or 0 when there is no expiry.
func (m *Manager) RemainingTime() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.expiresAt.IsZero() {
		return 0
	}
	remaining := m.expiresAt.Sub(m.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ShouldShowWarning returns true once when expiry is near.
func (m *Manager) ShouldShowWarning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.warningShown || m.creds == nil || m.expiresAt.IsZero() {
		return false
	}
	remaining := m.expiresAt.Sub(m.now())
	return remaining > 0 && remaining <= m.warningBefore
}

// =============================================================================
// BUBBLE TEA INTEGRATION
// =============================================================================

// TickMsg is sent periodically to check token expiry.
type TickMsg struct {
	Time time.Time
}

// ExpiryWarningMsg indicates the token is about to expire.
type ExpiryWarningMsg struct {
	Remaining time.Duration
}

// ExpiredMsg indicates the token has expired.
type ExpiredMsg struct{}

// TickCmd returns a command that ticks periodically.
func TickCmd() tea.Cmd {
	return tea.Tick(15*time.Second, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}

// HandleTick processes a tick and returns the resulting messages.
func (m *Manager) HandleTick() tea.Cmd {
	var cmds []tea.Cmd

	if m.ShouldShowWarning() {
		remaining := m.RemainingTime()
		cmds = append(cmds, func() tea.Msg {
			return ExpiryWarningMsg{Remaining: remaining}
		})
		m.mu.Lock()
		m.warningShown = true
		m.mu.Unlock()
	}

	if m.IsExpired() {
		cmds = append(cmds, func() tea.Msg {
			return ExpiredMsg{}
		})
	}

	cmds = append(cmds, TickCmd())
	return tea.Batch(cmds...)
}

// =============================================================================
// SESSION STATUS
// =============================================================================

// Status represents the current session status.
type Status struct {
	LoggedIn  bool
	Username  string
	ServerURL string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Remaining time.Duration
}

// GetStatus returns the current session status.
func (m *Manager) GetStatus() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := Status{ServerURL: m.serverURL}
	if m.creds == nil {
		return st
	}
	st.LoggedIn = !m.expiredLocked()
	st.Username = m.creds.Username
	st.ServerURL = m.creds.ServerURL
	st.IssuedAt = m.creds.IssuedAt
	st.ExpiresAt = m.expiresAt
	if !m.expiresAt.IsZero() {
		if r := m.expiresAt.Sub(m.now()); r > 0 {
			st.Remaining = r
		}
	}
	return st
}

// FormatDuration returns a human-readable duration string.
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d >= time.Hour {
		h := int(d.Hours())
		mins := int(d.Minutes()) % 60
		if mins == 0 {
			return fmt.Sprintf("%dh", h)
		}
		return fmt.Sprintf("%dh %dm", h, mins)
	}
	mins := int(d.Minutes())
	secs := int(d.Seconds()) % 60
	if secs == 0 {
		return fmt.Sprintf("%dm", mins)
	}
	return fmt.Sprintf("%dm %ds", mins, secs)
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// tokenExpiry reads the exp claim without verifying the signature.
func tokenExpiry(token string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, err
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, err
	}
	return exp.Time, nil
}

func (m *Manager) logf(format string, args ...any) {
	if m.logger != nil {
		m.logger.Printf(format, args...)
	}
}
