// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/smartdocs-tui/internal/api"
	"github.com/jeranaias/smartdocs-tui/internal/config"
	"github.com/jeranaias/smartdocs-tui/internal/session"
	"github.com/jeranaias/smartdocs-tui/internal/stream"
)

// =============================================================================
// FAKE BACKEND
// =============================================================================

type fakeBackend struct {
	mu       sync.Mutex
	sent     []string
	deleted  []string
	nextConv int64
}

func (f *fakeBackend) router() http.Handler {
	r := chi.NewRouter()

	r.Post("/public-api/accounts/login", func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
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
				if r.Header.Get("Authorization") != "Bearer good-token" {
					w.WriteHeader(http.StatusUnauthorized)
					_, _ = w.Write([]byte(`{"detail":"Unauthorized"}`))
					return
				}
				next.ServeHTTP(w, r)
			})
		})

		r.Get("/api/accounts/me", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"id":7,"username":"ada","email":"ada@example.com","first_name":"Ada","last_name":"L"}`))
		})
		r.Get("/api/qa/conversations", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`[
				{"id":1,"title":"Password reset","created_at":"2025-01-01T00:00:00Z","updated_at":"2025-01-01T00:00:00Z"},
				{"id":2,"title":"Quarterly report","created_at":"2025-01-02T00:00:00Z","updated_at":"2025-01-03T00:00:00Z"}
			]`))
		})
		r.Post("/api/qa/conversations", func(w http.ResponseWriter, r *http.Request) {
			var in struct {
				Title string `json:"title"`
			}
			_ = json.NewDecoder(r.Body).Decode(&in)
			f.mu.Lock()
			f.nextConv++
			id := 40 + f.nextConv
			f.mu.Unlock()
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id": id, "title": in.Title,
				"created_at": time.Now().UTC(), "updated_at": time.Now().UTC(),
			})
		})
		r.Get("/api/qa/conversations/{id}", func(w http.ResponseWriter, r *http.Request) {
			if chi.URLParam(r, "id") != "2" {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"detail":"Not Found"}`))
				return
			}
			_, _ = w.Write([]byte(`{"id":2,"title":"Quarterly report","created_at":"2025-01-02T00:00:00Z","updated_at":"2025-01-03T00:00:00Z",
				"messages":[
					{"id":10,"content":"what changed?","message_type":"user","created_at":"2025-01-02T00:00:01Z","referenced_documents":[]},
					{"id":11,"content":"Hi there","message_type":"assistant","created_at":"2025-01-02T00:00:02Z",
					 "referenced_documents":[{"id":3,"title":"Guide","relevance_score":0.9}]}
				]}`))
		})
		r.Post("/api/qa/conversations/{id}/messages", func(w http.ResponseWriter, r *http.Request) {
			var in struct {
				Content string `json:"content"`
			}
			_ = json.NewDecoder(r.Body).Decode(&in)
			f.mu.Lock()
			f.sent = append(f.sent, in.Content)
			f.mu.Unlock()
			_, _ = w.Write([]byte(`{"id":12,"content":"answer","message_type":"assistant","created_at":"2025-01-02T00:00:03Z",
				"referenced_documents":[{"id":4,"title":"FAQ","relevance_score":0.5}]}`))
		})
		r.Delete("/api/qa/conversations/{id}", func(w http.ResponseWriter, r *http.Request) {
			f.mu.Lock()
			f.deleted = append(f.deleted, chi.URLParam(r, "id"))
			f.mu.Unlock()
			_, _ = w.Write([]byte(`{"success":true}`))
		})
	})
	return r
}

func (f *fakeBackend) lastSent() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return ""
	}
	return f.sent[len(f.sent)-1]
}

type scriptedChannel struct {
	events chan stream.Event
}

func (c *scriptedChannel) Events() <-chan stream.Event { return c.events }
func (c *scriptedChannel) Close() error                { return nil }

type fakeDialer struct {
	script []stream.Event
}

func (d *fakeDialer) Open(ctx context.Context, req stream.Request) stream.Channel {
	ch := &scriptedChannel{events: make(chan stream.Event, len(d.script))}
	for _, ev := range d.script {
		ch.events <- ev
	}
	close(ch.events)
	return ch
}

func payload(s string) stream.Event {
	return stream.Event{Kind: stream.EventMessage, Data: []byte(s)}
}

type scriptedLines struct {
	lines  []string
	closed bool
}

func (l *scriptedLines) ReadInput(prompt string) (string, error) {
	if len(l.lines) == 0 {
		return "", io.EOF
	}
	line := l.lines[0]
	l.lines = l.lines[1:]
	return line, nil
}

func (l *scriptedLines) Close() { l.closed = true }

// =============================================================================
// HELPERS
// =============================================================================

type testEnv struct {
	*Env
	backend *fakeBackend
	dialer  *fakeDialer
	out     *bytes.Buffer
	errOut  *bytes.Buffer
}

func newTestEnv(t *testing.T, loggedIn bool) *testEnv {
	t.Helper()
	backend := &fakeBackend{}
	srv := httptest.NewServer(backend.router())
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	cfg := config.Default()
	cfg.Server.BaseURL = srv.URL
	cfg.UI.Markdown = false
	cfg.UI.ShowStats = false

	client := api.NewClient(api.Config{
		APIBase:    srv.URL + "/api",
		PublicBase: srv.URL + "/public-api",
		Timeout:    5 * time.Second,
	})
	sess := session.NewManager(session.Config{
		TokenFile: filepath.Join(dir, "token.json"),
		ServerURL: srv.URL,
	})
	if loggedIn {
		require.NoError(t, sess.Login(session.Credentials{AccessToken: "good-token", Username: "ada"}))
		client.SetToken("good-token")
	}

	te := &testEnv{
		backend: backend,
		dialer:  &fakeDialer{},
		out:     &bytes.Buffer{},
		errOut:  &bytes.Buffer{},
	}
	te.Env = &Env{
		Config:     cfg,
		Client:     client,
		Session:    sess,
		ConfigPath: filepath.Join(dir, "config.toml"),
		Dialer:     te.dialer,
		Stdin:      strings.NewReader(""),
		Stdout:     te.out,
		Stderr:     te.errOut,
		ReadPassword: func(string) (string, error) {
			return "secret", nil
		},
	}
	return te
}

// =============================================================================
// PARSING
// =============================================================================

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		argv  []string
		want  Command
		check func(t *testing.T, a Args)
	}{
		{name: "no args starts tui", argv: nil, want: CmdTUI},
		{name: "version flag", argv: []string{"-v"}, want: CmdVersion},
		{name: "help", argv: []string{"--help"}, want: CmdHelp},
		{
			name: "login with username",
			argv: []string{"login", "ada"},
			want: CmdLogin,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "ada", a.Username)
			},
		},
		{
			name: "ask with flags",
			argv: []string{"--no-stream", "ask", "-c", "42", "how", "do", "I", "reset?", "--json"},
			want: CmdAsk,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "how do I reset?", a.Query)
				assert.Equal(t, int64(42), a.ConversationID)
				assert.Equal(t, "off", a.Stream)
				assert.True(t, a.JSON)
			},
		},
		{
			name: "unknown word is a question",
			argv: []string{"what", "is", "new"},
			want: CmdAsk,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "what is new", a.Query)
			},
		},
		{
			name: "conversations defaults to list",
			argv: []string{"conv"},
			want: CmdConversations,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "list", a.Subcommand)
			},
		},
		{
			name: "conversations rm",
			argv: []string{"conversations", "delete", "#7"},
			want: CmdConversations,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "rm", a.Subcommand)
				assert.Equal(t, int64(7), a.ConversationID)
			},
		},
		{
			name: "conversations new with title",
			argv: []string{"conversations", "new", "Q3", "numbers"},
			want: CmdConversations,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "new", a.Subcommand)
				assert.Equal(t, "Q3 numbers", a.Title)
			},
		},
		{
			name: "export flags",
			argv: []string{"export", "42", "--format", "json", "-o", "/tmp/out"},
			want: CmdExport,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, int64(42), a.ConversationID)
				assert.Equal(t, "json", a.Format)
				assert.Equal(t, "/tmp/out", a.OutputDir)
			},
		},
		{
			name: "config set",
			argv: []string{"config", "set", "chat.empty_placeholder", "no", "answer"},
			want: CmdConfig,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "set", a.Subcommand)
				assert.Equal(t, "chat.empty_placeholder", a.ConfigKey)
				assert.Equal(t, "no answer", a.ConfigVal)
			},
		},
		{
			name: "global model flag",
			argv: []string{"--model=qwen-max", "chat"},
			want: CmdChat,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "qwen-max", a.Model)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, args := Parse(tt.argv)
			assert.Equal(t, tt.want, cmd)
			if tt.check != nil {
				tt.check(t, args)
			}
		})
	}
}

func TestArgParser(t *testing.T) {
	p := NewArgParser([]string{"show", "--lines", "50", "--since=2024-01-01", "--json", "--all=false", "extra"})
	assert.Equal(t, "show", p.Subcommand())
	assert.Equal(t, "50", p.Flag("lines"))
	assert.Equal(t, "2024-01-01", p.Flag("--since"))
	assert.True(t, p.BoolFlag("json"))
	assert.False(t, p.BoolFlag("all"))
	assert.True(t, p.HasFlag("all"))
	assert.Equal(t, "", p.Positional(5))
	assert.Equal(t, "fallback", p.FlagOrDefault("missing", "fallback"))

	n, err := p.FlagInt("lines")
	require.NoError(t, err)
	assert.Equal(t, 50, n)
	_, err = p.FlagInt("missing")
	assert.Error(t, err)
}

func TestParseID(t *testing.T) {
	assert.Equal(t, int64(12), parseID("12"))
	assert.Equal(t, int64(12), parseID("#12"))
	assert.Equal(t, int64(0), parseID("abc"))
	assert.Equal(t, int64(0), parseID("-3"))
}

// =============================================================================
// AUTH
// =============================================================================

func TestHandleLogin(t *testing.T) {
	te := newTestEnv(t, false)

	err := HandleLogin(context.Background(), te.Env, Args{Username: "ada"})
	require.NoError(t, err)
	assert.True(t, te.Session.IsLoggedIn())
	assert.Equal(t, "good-token", te.Client.Token())
	assert.Contains(t, te.out.String(), "logged in as ada")
}

func TestHandleLogin_PromptsForUsername(t *testing.T) {
	te := newTestEnv(t, false)
	te.Stdin = strings.NewReader("ada\n")

	require.NoError(t, HandleLogin(context.Background(), te.Env, Args{Quiet: true}))
	assert.Equal(t, "ada", te.Session.Username())
	assert.Contains(t, te.errOut.String(), "Username: ")
}

func TestHandleLogin_WrongPassword(t *testing.T) {
	te := newTestEnv(t, false)
	te.ReadPassword = func(string) (string, error) { return "nope", nil }

	err := HandleLogin(context.Background(), te.Env, Args{Username: "ada"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid username or password")
	assert.False(t, te.Session.IsLoggedIn())
}

func TestHandleLogout(t *testing.T) {
	te := newTestEnv(t, true)

	require.NoError(t, HandleLogout(te.Env, Args{}))
	assert.False(t, te.Session.IsLoggedIn())
	assert.Equal(t, "", te.Client.Token())
	assert.Contains(t, te.out.String(), "logged out ada")
}

func TestHandleWhoami(t *testing.T) {
	te := newTestEnv(t, true)

	require.NoError(t, HandleWhoami(context.Background(), te.Env, Args{}))
	assert.Contains(t, te.out.String(), "Ada L")
	assert.Contains(t, te.out.String(), "ada@example.com")
}

// =============================================================================
// ASK
// =============================================================================

func TestHandleAsk_RequiresLogin(t *testing.T) {
	te := newTestEnv(t, false)

	err := HandleAsk(context.Background(), te.Env, Args{Query: "hello"})
	assert.ErrorIs(t, err, api.ErrNotLoggedIn)
	assert.Equal(t, ExitAuthError, GetExitCode(err))
}

func TestHandleAsk_MissingQuestion(t *testing.T) {
	te := newTestEnv(t, true)

	err := HandleAsk(context.Background(), te.Env, Args{})
	var usage *UsageError
	require.ErrorAs(t, err, &usage)
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestHandleAsk_StreamsAnswer(t *testing.T) {
	te := newTestEnv(t, true)
	te.dialer.script = []stream.Event{
		{Kind: stream.EventOpened},
		payload(`{"answer_delta":"Hello"}`),
		payload(`{"answer_delta":" world","referenced_documents":[{"document_id":3,"title":"Guide","relevance_score":0.9}]}`),
		payload(`[DONE]`),
		{Kind: stream.EventClosed},
	}

	require.NoError(t, HandleAsk(context.Background(), te.Env, Args{Query: "say hi", Stream: "on"}))
	out := te.out.String()
	assert.Contains(t, out, "Hello world")
	assert.Contains(t, out, "Sources:")
	assert.Contains(t, out, "[1] Guide")
}

func TestHandleAsk_NonStreamingJSON(t *testing.T) {
	te := newTestEnv(t, true)

	require.NoError(t, HandleAsk(context.Background(), te.Env, Args{Query: "what is new?", Stream: "off", JSON: true}))

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			ConversationID int64  `json:"conversation_id"`
			Answer         string `json:"answer"`
			References     []struct {
				DocumentID int64 `json:"document_id"`
			} `json:"references"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(te.out.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, int64(41), resp.Data.ConversationID)
	assert.Equal(t, "answer", resp.Data.Answer)
	require.Len(t, resp.Data.References, 1)
	assert.Equal(t, int64(4), resp.Data.References[0].DocumentID)
	assert.Equal(t, "what is new?", te.backend.lastSent())
}

func TestHandleAsk_ReadsStdinAndFile(t *testing.T) {
	te := newTestEnv(t, true)
	te.Stdin = strings.NewReader("summarize this\n")
	file := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(file, []byte("line one"), 0600))

	require.NoError(t, HandleAsk(context.Background(), te.Env, Args{Query: "-", File: file, Stream: "off", Quiet: true}))
	sent := te.backend.lastSent()
	assert.True(t, strings.HasPrefix(sent, "summarize this"))
	assert.Contains(t, sent, "--- File: "+file+" ---\nline one")
	assert.Contains(t, te.out.String(), "answer")
}

func TestHandleAsk_ContinuesConversation(t *testing.T) {
	te := newTestEnv(t, true)

	require.NoError(t, HandleAsk(context.Background(), te.Env, Args{Query: "and then?", ConversationID: 2, Stream: "off", JSON: true}))
	assert.Contains(t, te.out.String(), `"conversation_id": 2`)
}

func TestHandleAsk_StreamErrorKeepsPartial(t *testing.T) {
	te := newTestEnv(t, true)
	te.dialer.script = []stream.Event{
		{Kind: stream.EventOpened},
		payload(`{"answer_delta":"Partial"}`),
		{Kind: stream.EventError, Err: errors.New("connection reset")},
	}

	err := HandleAsk(context.Background(), te.Env, Args{Query: "q", Stream: "on"})
	require.Error(t, err)
	assert.Contains(t, te.out.String(), "Partial")
	assert.Equal(t, ExitNetworkError, GetExitCode(err))
}

func TestReadFileForContext_TooLarge(t *testing.T) {
	file := filepath.Join(t.TempDir(), "big.txt")
	require.NoError(t, os.WriteFile(file, bytes.Repeat([]byte("x"), MaxFileSize+1), 0600))

	_, err := readFileForContext(file)
	assert.ErrorContains(t, err, "file too large")
}

// =============================================================================
// CONVERSATIONS AND EXPORT
// =============================================================================

func TestHandleConversations_List(t *testing.T) {
	te := newTestEnv(t, true)

	require.NoError(t, HandleConversations(context.Background(), te.Env, Args{Subcommand: "list"}))
	out := te.out.String()
	assert.Contains(t, out, "Password reset")
	assert.Less(t, strings.Index(out, "Quarterly report"), strings.Index(out, "Password reset"))
}

func TestHandleConversations_NewAndRemove(t *testing.T) {
	te := newTestEnv(t, true)

	require.NoError(t, HandleConversations(context.Background(), te.Env, Args{Subcommand: "new", Title: "Q3", Quiet: true}))
	assert.Equal(t, "41\n", te.out.String())

	require.NoError(t, HandleConversations(context.Background(), te.Env, Args{Subcommand: "rm", ConversationID: 41}))
	assert.Equal(t, []string{"41"}, te.backend.deleted)

	err := HandleConversations(context.Background(), te.Env, Args{Subcommand: "rm"})
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestHandleExport(t *testing.T) {
	te := newTestEnv(t, true)
	dir := t.TempDir()

	require.NoError(t, HandleExport(context.Background(), te.Env, Args{ConversationID: 2, Format: "md", OutputDir: dir, Quiet: true}))
	path := strings.TrimSpace(te.out.String())
	assert.Equal(t, dir, filepath.Dir(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Hi there")
	assert.Contains(t, string(data), "what changed?")
}

func TestHandleExport_NotFound(t *testing.T) {
	te := newTestEnv(t, true)

	err := HandleExport(context.Background(), te.Env, Args{ConversationID: 99, Format: "md", OutputDir: t.TempDir()})
	assert.Equal(t, ExitNotFoundError, GetExitCode(err))
}

// =============================================================================
// CONFIG
// =============================================================================

func TestHandleConfig_SetAndGet(t *testing.T) {
	te := newTestEnv(t, true)

	require.NoError(t, HandleConfig(te.Env, Args{Subcommand: "set", ConfigKey: "chat.transport", ConfigVal: "websocket"}))
	assert.Equal(t, "websocket", te.Config.Chat.Transport)

	saved := config.Default()
	require.NoError(t, config.LoadTOML(saved, te.ConfigPath))
	assert.Equal(t, "websocket", saved.Chat.Transport)

	te.out.Reset()
	require.NoError(t, HandleConfig(te.Env, Args{Subcommand: "get", ConfigKey: "chat.transport"}))
	assert.Equal(t, "websocket\n", te.out.String())
}

func TestHandleConfig_RejectsInvalidValue(t *testing.T) {
	te := newTestEnv(t, true)

	err := HandleConfig(te.Env, Args{Subcommand: "set", ConfigKey: "chat.transport", ConfigVal: "carrier-pigeon"})
	require.Error(t, err)
	assert.Equal(t, ExitConfigError, GetExitCode(err))
	_, statErr := os.Stat(te.ConfigPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestHandleConfig_UnknownKey(t *testing.T) {
	te := newTestEnv(t, true)

	err := HandleConfig(te.Env, Args{Subcommand: "get", ConfigKey: "chat.nope"})
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

// =============================================================================
// CHAT
// =============================================================================

func TestHandleChat_Script(t *testing.T) {
	te := newTestEnv(t, true)
	lines := &scriptedLines{lines: []string{"/stream off", "hello there", "/model qwen-max", "", "/bogus", "/quit", "never read"}}
	te.Lines = lines

	require.NoError(t, HandleChat(context.Background(), te.Env, Args{}))
	out := te.out.String()
	assert.Contains(t, out, "streaming off")
	assert.Contains(t, out, "answer")
	assert.Contains(t, out, "model qwen-max")
	assert.Contains(t, out, "1 questions")
	assert.Contains(t, te.errOut.String(), "unknown command: /bogus")
	assert.Equal(t, []string{"never read"}, lines.lines)
	assert.True(t, lines.closed)
	assert.Equal(t, "hello there", te.backend.lastSent())
}

func TestChatSession_OpenAndExport(t *testing.T) {
	te := newTestEnv(t, true)
	s := newChatSession(te.Env, Args{})
	t.Cleanup(s.Close)
	ctx := context.Background()

	_, err := s.HandleLine(ctx, "/open 2")
	require.NoError(t, err)
	assert.Contains(t, te.out.String(), "conversation 2: Quarterly report (2 messages)")

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	_, err = s.HandleLine(ctx, "/export txt")
	require.NoError(t, err)
	matches, _ := filepath.Glob("conversation_2_*.txt")
	assert.Len(t, matches, 1)
}

func TestChatSession_InterruptWithoutTurn(t *testing.T) {
	te := newTestEnv(t, true)
	s := newChatSession(te.Env, Args{})
	t.Cleanup(s.Close)

	assert.False(t, s.Interrupt())
}

// =============================================================================
// ERRORS AND OUTPUT
// =============================================================================

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitGeneralError, GetExitCode(errors.New("boom")))
	assert.Equal(t, ExitUsageError, GetExitCode(ErrMissingArgument("id", "x")))
	assert.Equal(t, ExitAuthError, GetExitCode(wrap("ask", "send", api.ErrNotLoggedIn)))
	assert.Equal(t, ExitTimeoutError, GetExitCode(wrap("ask", "answer", stream.ErrTimeout)))
	assert.Equal(t, ExitNotFoundError, GetExitCode(&api.APIError{Status: 404}))
	assert.Equal(t, ExitNetworkError, GetExitCode(&api.APIError{Status: 502}))
}

func TestDisplayError(t *testing.T) {
	var buf bytes.Buffer
	DisplayError(&buf, api.ErrNotLoggedIn, false)
	assert.Contains(t, buf.String(), "not logged in")
	assert.Contains(t, buf.String(), "smartdocs login")

	buf.Reset()
	DisplayError(&buf, ErrMissingArgument("id", "smartdocs export 42"), true)
	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "usage_error", out["error_type"])
	assert.Equal(t, false, out["success"])
}

func TestOutputJSON_ErrorCarriesPartialData(t *testing.T) {
	var buf bytes.Buffer
	err := OutputJSON(&buf, true, "ask", func() (any, error) {
		return map[string]string{"answer": "part"}, errors.New("timed out")
	})
	require.Error(t, err)

	var resp JSONResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "timed out", *resp.Error)
	assert.Equal(t, "ask", resp.Command)
}

func TestRun_VersionAndHelp(t *testing.T) {
	te := newTestEnv(t, false)

	require.NoError(t, Run(context.Background(), CmdVersion, Args{}, te.Env))
	assert.Contains(t, te.out.String(), "smartdocs version")

	te.out.Reset()
	require.NoError(t, Run(context.Background(), CmdHelp, Args{}, te.Env))
	assert.Contains(t, te.out.String(), "conversations rm <id>")

	assert.Error(t, Run(context.Background(), CmdTUI, Args{}, te.Env))
}
