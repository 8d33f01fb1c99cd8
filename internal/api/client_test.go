// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/smartdocs-tui/internal/model"
	"github.com/jeranaias/smartdocs-tui/internal/stream"
)

const testToken = "good-token"

// fakeServer mimics the SmartDocs REST surface.
type fakeServer struct {
	deleted  atomic.Int64
	lastSend sendMessageRequest
}

func (f *fakeServer) router() http.Handler {
	r := chi.NewRouter()

	r.Post("/public-api/accounts/login", func(w http.ResponseWriter, r *http.Request) {
		var in loginRequest
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"invalid username or password"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"good-token","refresh_token":"r","token_type":"bearer"}`))
	})

	r.Group(func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("Authorization") != "Bearer "+testToken {
					w.WriteHeader(http.StatusUnauthorized)
					_, _ = w.Write([]byte(`{"detail":"Unauthorized"}`))
					return
				}
				next.ServeHTTP(w, r)
			})
		})

		r.Get("/api/accounts/me", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"id":7,"username":"ada","email":"a@b.c","first_name":"","last_name":""}`))
		})
		r.Get("/api/qa/conversations", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`[
				{"id":1,"title":"old","created_at":"2025-01-01T00:00:00+08:00","updated_at":"2025-01-01T00:00:00+08:00"},
				{"id":2,"title":"new","created_at":"2025-01-02T00:00:00+08:00","updated_at":"2025-01-03T00:00:00+08:00"}
			]`))
		})
		r.Post("/api/qa/conversations", func(w http.ResponseWriter, r *http.Request) {
			var in createConversationRequest
			_ = json.NewDecoder(r.Body).Decode(&in)
			_ = json.NewEncoder(w).Encode(model.Conversation{ID: 9, Title: in.Title, CreatedAt: time.Now(), UpdatedAt: time.Now()})
		})
		r.Get("/api/qa/conversations/{id}", func(w http.ResponseWriter, r *http.Request) {
			if chi.URLParam(r, "id") != "2" {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"detail":"Not Found"}`))
				return
			}
			_, _ = w.Write([]byte(`{"id":2,"title":"new","created_at":"2025-01-02T00:00:00+08:00","updated_at":"2025-01-03T00:00:00+08:00",
				"messages":[
					{"id":10,"content":"hello","message_type":"user","created_at":"2025-01-02T00:00:01+08:00","referenced_documents":[]},
					{"id":11,"content":"Hi there","message_type":"assistant","created_at":"2025-01-02T00:00:02+08:00",
					 "referenced_documents":[{"id":3,"title":"Guide","relevance_score":0.9,"chunk_indices":[1,2]}]}
				]}`))
		})
		r.Post("/api/qa/conversations/{id}/messages", func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewDecoder(r.Body).Decode(&f.lastSend)
			_, _ = w.Write([]byte(`{"id":12,"content":"answer","message_type":"assistant","created_at":"2025-01-02T00:00:03+08:00",
				"referenced_documents":[{"id":4,"title":"FAQ","relevance_score":0.5,"chunk_indices":[]}]}`))
		})
		r.Delete("/api/qa/conversations/{id}", func(w http.ResponseWriter, r *http.Request) {
			f.deleted.Add(1)
			ok := chi.URLParam(r, "id") == "2"
			_ = json.NewEncoder(w).Encode(deleteResponse{Success: ok})
		})
		r.Get("/api/qa/broken", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})
	})
	return r
}

func newTestClient(t *testing.T) (*Client, *fakeServer) {
	t.Helper()
	fake := &fakeServer{}
	srv := httptest.NewServer(fake.router())
	t.Cleanup(srv.Close)

	c := NewClient(Config{
		APIBase:    srv.URL + "/api",
		PublicBase: srv.URL + "/public-api/",
		Timeout:    5 * time.Second,
	})
	return c, fake
}

// =============================================================================
// AUTH
// =============================================================================

func TestClient_Login(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	tokens, err := c.Login(ctx, "ada", "secret")
	require.NoError(t, err)
	assert.Equal(t, testToken, tokens.AccessToken)
	assert.Equal(t, "", c.Token(), "login must not store the token")

	_, err = c.Login(ctx, "ada", "wrong")
	require.Error(t, err)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "invalid username or password", apiErr.Message)
}

func TestClient_RequiresToken(t *testing.T) {
	c, _ := newTestClient(t)

	_, err := c.ListConversations(context.Background())
	assert.ErrorIs(t, err, ErrNotLoggedIn)
	assert.True(t, IsAuthExpired(err))
}

func TestClient_RejectedTokenIsAuthExpired(t *testing.T) {
	c, _ := newTestClient(t)
	c.SetToken("stale")

	_, err := c.Me(context.Background())
	require.Error(t, err)
	assert.True(t, IsAuthExpired(err))
	assert.True(t, stream.IsAuthExpired(err), "REST and stream auth failures share one check")
}

func TestClient_Me(t *testing.T) {
	c, _ := newTestClient(t)
	c.SetToken(testToken)

	u, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), u.ID)
	assert.Equal(t, "ada", u.DisplayName())
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

func TestClient_ListConversationsSorted(t *testing.T) {
	c, _ := newTestClient(t)
	c.SetToken(testToken)

	list, err := c.ListConversations(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int64(2), list[0].ID)
	assert.Equal(t, int64(1), list[1].ID)
}

func TestClient_CreateConversationDefaultTitle(t *testing.T) {
	c, _ := newTestClient(t)
	c.SetToken(testToken)

	conv, err := c.CreateConversation(context.Background(), "  ")
	require.NoError(t, err)
	assert.Equal(t, int64(9), conv.ID)
	assert.Equal(t, model.DefaultTitle, conv.Title)
}

func TestClient_GetConversation(t *testing.T) {
	c, _ := newTestClient(t)
	c.SetToken(testToken)

	detail, err := c.GetConversation(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "new", detail.Title)

	entries := detail.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, model.RoleUser, entries[0].Role)
	assert.Equal(t, "11", entries[1].ID)
	require.Len(t, entries[1].References, 1)
	assert.Equal(t, int64(3), entries[1].References[0].DocumentID)
	assert.Equal(t, "Document ID: 3, Title: Guide", entries[1].References[0].ContentPreview)

	_, err = c.GetConversation(context.Background(), 99)
	assert.True(t, IsNotFound(err))
}

func TestClient_DeleteConversation(t *testing.T) {
	c, fake := newTestClient(t)
	c.SetToken(testToken)

	require.NoError(t, c.DeleteConversation(context.Background(), 2))
	err := c.DeleteConversation(context.Background(), 5)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, int64(2), fake.deleted.Load())
}

func TestClient_SendMessage(t *testing.T) {
	c, fake := newTestClient(t)
	c.SetToken(testToken)

	msg, err := c.SendMessage(context.Background(), 2, "what is it?", "qwen-max")
	require.NoError(t, err)
	assert.Equal(t, "what is it?", fake.lastSend.Content)
	assert.Equal(t, "qwen-max", fake.lastSend.Model)

	entry := msg.ToEntry()
	assert.Equal(t, "12", entry.ID)
	assert.Equal(t, "answer", entry.Content)
	assert.Equal(t, model.RoleAssistant, entry.Role)
	require.Len(t, entry.References, 1)
}

func TestClient_ServerError(t *testing.T) {
	c, _ := newTestClient(t)
	c.SetToken(testToken)

	err := c.do(context.Background(), http.MethodGet, c.apiBase+"/qa/broken", nil, nil, true)
	assert.ErrorIs(t, err, ErrServer)
	assert.False(t, IsAuthExpired(err))
}

// =============================================================================
// PLUMBING
// =============================================================================

func TestClient_RateLimitHonorsContext(t *testing.T) {
	c := NewClient(Config{APIBase: "http://127.0.0.1:1/api", RateLimit: 0.001, RateBurst: 1})
	c.SetToken(testToken)
	// Drain the single token.
	require.True(t, c.limiter.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.ListConversations(ctx)
	assert.Error(t, err)
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"detail":"Not Found"}`, "Not Found"},
		{`{"error":"missing content"}`, "missing content"},
		{`{"detail":[{"msg":"field required"},{"msg":"bad type"}]}`, "field required; bad type"},
		{`{"error":true}`, ""},
		{`not json`, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, errorMessage([]byte(tt.body)), tt.body)
	}
}
