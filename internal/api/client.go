// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/jeranaias/smartdocs-tui/internal/model"
)

// Configuration defaults.
const (
	DefaultTimeout = 60 * time.Second

	// MaxResponseSize caps how much of a response body is read.
	// SECURITY: Response size limit prevents memory exhaustion.
	MaxResponseSize = 10 * 1024 * 1024

	userAgent = "smartdocs-tui/1.0"
)

// =============================================================================
// WIRE TYPES
// =============================================================================

// Tokens is the login response.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// User is the authenticated account.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// DisplayName returns the full name, falling back to the username.
func (u User) DisplayName() string {
	if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
		return name
	}
	return u.Username
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type createConversationRequest struct {
	Title string `json:"title"`
}

type sendMessageRequest struct {
	Content string `json:"content"`
	Model   string `json:"model,omitempty"`
}

type deleteResponse struct {
	Success bool `json:"success"`
}

// =============================================================================
// CLIENT
// =============================================================================

// Config configures a Client.
type Config struct {
	// APIBase is the authenticated root, e.g. http://host/api
	APIBase string
	// PublicBase is the unauthenticated root, e.g. http://host/public-api
	PublicBase string
	Timeout    time.Duration
	// RateLimit is requests per second; 0 disables limiting.
	RateLimit float64
	RateBurst int
	Logger    *log.Logger
}

// Client talks to the SmartDocs REST API. It is safe for concurrent use.
type Client struct {
	apiBase    string
	publicBase string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger

	mu    sync.RWMutex
	token string
}

// NewClient creates a client, filling zero config values with defaults.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 1
	}
	return &Client{
		apiBase:    strings.TrimRight(cfg.APIBase, "/"),
		publicBase: strings.TrimRight(cfg.PublicBase, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, cfg.RateBurst),
		logger:     cfg.Logger,
	}
}

// APIBase returns the authenticated root URL.
func (c *Client) APIBase() string {
	return c.apiBase
}

// SetToken sets the bearer token used for authenticated calls.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// =============================================================================
// ENDPOINTS
// =============================================================================

// Login exchanges credentials for tokens. It does not store the token.
func (c *Client) Login(ctx context.Context, username, password string) (*Tokens, error) {
	var out Tokens
	err := c.do(ctx, http.MethodPost, c.publicBase+"/accounts/login", loginRequest{
		Username: username,
		Password: password,
	}, &out, false)
	if err != nil {
		return nil, err
	}
	if out.AccessToken == "" {
		return nil, fmt.Errorf("login: server returned no access token")
	}
	return &out, nil
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var out User
	if err := c.do(ctx, http.MethodGet, c.apiBase+"/accounts/me", nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListConversations returns the user's conversations, most recent first.
func (c *Client) ListConversations(ctx context.Context) ([]model.Conversation, error) {
	var out []model.Conversation
	if err := c.do(ctx, http.MethodGet, c.apiBase+"/qa/conversations", nil, &out, true); err != nil {
		return nil, err
	}
	model.SortConversations(out)
	return out, nil
}

// CreateConversation creates a conversation. An empty title gets the
// default.
func (c *Client) CreateConversation(ctx context.Context, title string) (*model.Conversation, error) {
	if strings.TrimSpace(title) == "" {
		title = model.DefaultTitle
	}
	var out model.Conversation
	if err := c.do(ctx, http.MethodPost, c.apiBase+"/qa/conversations", createConversationRequest{Title: title}, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetConversation returns a conversation with its messages.
func (c *Client) GetConversation(ctx context.Context, id int64) (*model.ConversationDetail, error) {
	var out model.ConversationDetail
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("%s/qa/conversations/%d", c.apiBase, id), nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteConversation deletes a conversation.
func (c *Client) DeleteConversation(ctx context.Context, id int64) error {
	var out deleteResponse
	if err := c.do(ctx, http.MethodDelete, fmt.Sprintf("%s/qa/conversations/%d", c.apiBase, id), nil, &out, true); err != nil {
		return err
	}
	if !out.Success {
		return fmt.Errorf("delete conversation %d: %w", id, ErrNotFound)
	}
	return nil
}

// SendMessage posts a question and blocks until the full answer is ready.
func (c *Client) SendMessage(ctx context.Context, conversationID int64, content, modelName string) (*model.ServerMessage, error) {
	var out model.ServerMessage
	url := fmt.Sprintf("%s/qa/conversations/%d/messages", c.apiBase, conversationID)
	if err := c.do(ctx, http.MethodPost, url, sendMessageRequest{Content: content, Model: modelName}, &out, true); err != nil {
		return nil, err
	}
	if out.MessageType == "" {
		out.MessageType = model.RoleAssistant
	}
	return &out, nil
}

// =============================================================================
// REQUEST PLUMBING
// =============================================================================

// do performs one JSON request. body may be nil; out may be nil.
func (c *Client) do(ctx context.Context, method, url string, body, out any, auth bool) error {
	token := c.Token()
	if auth && token == "" {
		return ErrNotLoggedIn
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s %s: %w", method, url, err)
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logf("API_ERROR | method=%s path=%s error=%v", method, req.URL.Path, err)
		return fmt.Errorf("%s %s: %w", method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	// CLOUD: Log method, path, status and duration only; never headers or bodies.
	c.logf("API_REQUEST | method=%s path=%s status=%d duration=%s", method, req.URL.Path, resp.StatusCode, time.Since(start).Round(time.Millisecond))

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{
			Status:  resp.StatusCode,
			Method:  method,
			Path:    req.URL.Path,
			Message: errorMessage(data),
		}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", req.URL.Path, err)
	}
	return nil
}

func (c *Client) logf(format string, args ...any) {
	if c.logger != nil {
		c.logger.Printf(format, args...)
	}
}
