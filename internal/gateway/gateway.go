// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/jeranaias/smartdocs-tui/internal/api"
	"github.com/jeranaias/smartdocs-tui/internal/model"
	"github.com/jeranaias/smartdocs-tui/internal/scroll"
	"github.com/jeranaias/smartdocs-tui/internal/stream"
	"github.com/jeranaias/smartdocs-tui/internal/transcript"
)

// cacheTimeout bounds local cache reads and writes.
const cacheTimeout = 5 * time.Second

// maxTitleRunes limits titles derived from the first question.
const maxTitleRunes = 50

// =============================================================================
// DEPENDENCIES
// =============================================================================

// API is the REST surface the gateway needs. *api.Client satisfies it.
type API interface {
	ListConversations(ctx context.Context) ([]model.Conversation, error)
	CreateConversation(ctx context.Context, title string) (*model.Conversation, error)
	GetConversation(ctx context.Context, id int64) (*model.ConversationDetail, error)
	DeleteConversation(ctx context.Context, id int64) error
	SendMessage(ctx context.Context, conversationID int64, content, modelName string) (*model.ServerMessage, error)
}

// Cache is the local conversation cache. *storage.Cache satisfies it.
type Cache interface {
	SaveConversations(ctx context.Context, list []model.Conversation) error
	PutConversation(ctx context.Context, conv model.Conversation) error
	ListConversations(ctx context.Context) ([]model.Conversation, error)
	DeleteConversation(ctx context.Context, id int64) error
	SaveTranscript(ctx context.Context, conv model.Conversation, entries []model.Entry) error
	LoadTranscript(ctx context.Context, id int64) ([]model.Entry, error)
}

// TokenSource returns the current access token.
type TokenSource interface {
	Token() string
}

// Deps are the collaborators of a Gateway. Scroll, Cache and Logger are
// optional.
type Deps struct {
	API    API
	Dialer stream.Dialer
	Store  *transcript.Store
	Tokens TokenSource
	Scroll *scroll.Coordinator
	Cache  Cache
	Logger *log.Logger
}

// Options are the per-turn settings.
type Options struct {
	Streaming      bool
	Model          string
	Session        stream.Options
	RequestTimeout time.Duration
}

// =============================================================================
// GATEWAY
// =============================================================================

// Gateway owns the conversation list and the in-flight turn.
type Gateway struct {
	api    API
	dialer stream.Dialer
	store  *transcript.Store
	tokens TokenSource
	scroll *scroll.Coordinator
	cache  Cache
	logger *log.Logger

	opts   Options
	ctx    context.Context
	cancel context.CancelFunc
	now    func() time.Time
	tick   func(time.Duration, func(time.Time) tea.Msg) tea.Cmd

	conversations []model.Conversation
	current       int64
	openingID     int64
	autoOpen      bool

	// Streaming turn.
	session *stream.Session
	channel stream.Channel

	// Non-streaming turn.
	pendingID   string
	pendingText string
	sendSeq     int
	sendCancel  context.CancelFunc

	// Question waiting for its conversation to be created.
	queued string

	lastStats *model.Statistics
}

// New creates a gateway. Close releases its background work.
func New(deps Deps, opts Options) *Gateway {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 60 * time.Second
	}
	if opts.Model == "" {
		opts.Model = model.DefaultModel
	}
	if opts.Session.Logger == nil {
		opts.Session.Logger = deps.Logger
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Gateway{
		api:    deps.API,
		dialer: deps.Dialer,
		store:  deps.Store,
		tokens: deps.Tokens,
		scroll: deps.Scroll,
		cache:  deps.Cache,
		logger: deps.Logger,
		opts:   opts,
		ctx:    ctx,
		cancel: cancel,
		now:    time.Now,
		tick:   tea.Tick,
	}
}

// SetClock replaces the time source used for deadlines.
func (g *Gateway) SetClock(now func() time.Time) {
	g.now = now
}

// Close abandons the in-flight turn and cancels all requests.
func (g *Gateway) Close() {
	g.abortInFlight()
	g.cancel()
}

// Store returns the transcript store.
func (g *Gateway) Store() *transcript.Store { return g.store }

// Conversations returns a copy of the conversation list.
func (g *Gateway) Conversations() []model.Conversation {
	out := make([]model.Conversation, len(g.conversations))
	copy(out, g.conversations)
	return out
}

// CurrentID returns the open conversation, or 0.
func (g *Gateway) CurrentID() int64 { return g.current }

// Current returns the open conversation's metadata.
func (g *Gateway) Current() (model.Conversation, bool) {
	idx := model.FindConversation(g.conversations, g.current)
	if idx < 0 {
		return model.Conversation{}, false
	}
	return g.conversations[idx], true
}

// Busy reports whether a turn or a conversation load is in flight.
func (g *Gateway) Busy() bool {
	return g.session != nil || g.pendingID != "" || g.queued != "" || g.openingID != 0
}

// Session returns the active stream session, or nil.
func (g *Gateway) Session() *stream.Session { return g.session }

// LastStats returns the statistics of the last finished streamed turn.
func (g *Gateway) LastStats() *model.Statistics { return g.lastStats }

// Streaming reports whether answers are streamed.
func (g *Gateway) Streaming() bool { return g.opts.Streaming }

// SetStreaming switches the send path for future turns.
func (g *Gateway) SetStreaming(on bool) { g.opts.Streaming = on }

// Model returns the answer model selector.
func (g *Gateway) Model() string { return g.opts.Model }

// SetModel changes the answer model for future turns.
func (g *Gateway) SetModel(name string) { g.opts.Model = name }

// SetOptions replaces the turn options. The running turn keeps the options
// it started with.
func (g *Gateway) SetOptions(opts Options) {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = g.opts.RequestTimeout
	}
	if opts.Model == "" {
		opts.Model = g.opts.Model
	}
	if opts.Session.Logger == nil {
		opts.Session.Logger = g.logger
	}
	g.opts = opts
}

// Options returns the current turn options.
func (g *Gateway) Options() Options { return g.opts }

// =============================================================================
// CONVERSATIONS
// =============================================================================

// Start refreshes the list and opens the most recent conversation.
func (g *Gateway) Start() tea.Cmd {
	g.autoOpen = true
	return g.Refresh()
}

// Refresh fetches the conversation list. When the server is unreachable the
// cached list is used instead.
func (g *Gateway) Refresh() tea.Cmd {
	client, cache, timeout := g.api, g.cache, g.opts.RequestTimeout
	parent := g.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, timeout)
		defer cancel()
		list, err := client.ListConversations(ctx)
		if err == nil {
			return ConversationsLoadedMsg{List: list}
		}
		if cache != nil && !api.IsAuthExpired(err) {
			cctx, ccancel := context.WithTimeout(parent, cacheTimeout)
			defer ccancel()
			if cached, cerr := cache.ListConversations(cctx); cerr == nil {
				return ConversationsLoadedMsg{List: cached, Offline: true, Err: err}
			}
		}
		return ConversationsLoadedMsg{Err: err}
	}
}

// Open switches to conversation id. The in-flight turn is abandoned, the
// cached copy is shown if there is one, and the server copy replaces it.
func (g *Gateway) Open(id int64) tea.Cmd {
	g.abortInFlight()
	g.openingID = id
	if g.scroll != nil {
		g.scroll.Reset()
	}

	client, cache, timeout := g.api, g.cache, g.opts.RequestTimeout
	parent, logger := g.ctx, g.logger
	cmds := []tea.Cmd{}
	if cache != nil {
		cmds = append(cmds, func() tea.Msg {
			ctx, cancel := context.WithTimeout(parent, cacheTimeout)
			defer cancel()
			entries, err := cache.LoadTranscript(ctx, id)
			if err != nil {
				return nil
			}
			return CachedTranscriptMsg{ID: id, Entries: entries}
		})
	}
	cmds = append(cmds, func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, timeout)
		defer cancel()

		var (
			detail *model.ConversationDetail
			list   []model.Conversation
		)
		// The list refresh is best effort; only the detail decides the open.
		var eg errgroup.Group
		eg.Go(func() error {
			d, err := client.GetConversation(ctx, id)
			detail = d
			return err
		})
		eg.Go(func() error {
			l, err := client.ListConversations(ctx)
			if err != nil {
				if logger != nil {
					logger.Printf("CONVERSATION_LIST_REFRESH_FAILED | conversation=%d error=%v", id, err)
				}
				return nil
			}
			list = l
			return nil
		})
		err := eg.Wait()
		return ConversationOpenedMsg{ID: id, Detail: detail, List: list, Err: err}
	})
	return tea.Batch(cmds...)
}

// Create makes a new empty conversation and switches to it.
func (g *Gateway) Create(title string) tea.Cmd {
	return g.create(title, "")
}

func (g *Gateway) create(title, forSend string) tea.Cmd {
	client, timeout, parent := g.api, g.opts.RequestTimeout, g.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, timeout)
		defer cancel()
		conv, err := client.CreateConversation(ctx, title)
		return ConversationCreatedMsg{Conversation: conv, ForSend: forSend, Err: err}
	}
}

// Delete removes conversation id on the server.
func (g *Gateway) Delete(id int64) tea.Cmd {
	client, timeout, parent := g.api, g.opts.RequestTimeout, g.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, timeout)
		defer cancel()
		return ConversationDeletedMsg{ID: id, Err: client.DeleteConversation(ctx, id)}
	}
}

// Reset clears all conversation state, e.g. on logout.
func (g *Gateway) Reset() {
	g.abortInFlight()
	g.openingID = 0
	g.conversations = nil
	g.current = 0
	g.lastStats = nil
	g.store.LoadAll(0, nil)
	if g.scroll != nil {
		g.scroll.Reset()
	}
}

// =============================================================================
// SENDING
// =============================================================================

// Send starts a turn for text. The user entry is appended immediately and
// stays even if the request fails.
func (g *Gateway) Send(text string) tea.Cmd {
	if strings.TrimSpace(text) == "" {
		return notify(NotifyWarning, "nothing to send")
	}
	if g.Busy() {
		return notify(NotifyWarning, "wait for the current answer, or press esc to stop it")
	}
	if g.tokens == nil || g.tokens.Token() == "" {
		return tea.Batch(
			msgCmd(SendFailedMsg{Text: text, Err: api.ErrNotLoggedIn}),
			msgCmd(AuthExpiredMsg{Err: api.ErrNotLoggedIn}),
		)
	}

	g.store.AppendUser(text)
	if g.current == 0 {
		g.queued = text
		return g.create(TitleFor(text), text)
	}
	return g.startTurn(text)
}

func (g *Gateway) startTurn(text string) tea.Cmd {
	if g.opts.Streaming {
		return g.startStream(text)
	}
	return g.startBlockingSend(text)
}

func (g *Gateway) startStream(text string) tea.Cmd {
	sess, ch, err := g.openSession(text)
	if err != nil {
		return notify(NotifyError, "could not start answer: "+err.Error())
	}
	return tea.Batch(waitForEvent(sess.ID(), ch), g.scheduleDeadline(sess))
}

// openSession begins the assistant entry and dials the channel.
func (g *Gateway) openSession(text string) (*stream.Session, stream.Channel, error) {
	entryID, err := g.store.BeginAssistant()
	if err != nil {
		return nil, nil, err
	}
	sess := stream.NewSession(g.store, entryID, g.opts.Session, g.now())
	ch := g.dialer.Open(g.ctx, stream.Request{
		ConversationID: g.current,
		Content:        text,
		Model:          g.opts.Model,
		Token:          g.tokens.Token(),
	})
	sess.Attach(ch)
	g.session = sess
	g.channel = ch
	g.logf("STREAM_START | session=%s conversation=%d model=%s", sess.ID(), g.current, g.opts.Model)
	return sess, ch, nil
}

func (g *Gateway) startBlockingSend(text string) tea.Cmd {
	pendingID, err := g.store.BeginAssistant()
	if err != nil {
		return notify(NotifyError, "could not start answer: "+err.Error())
	}
	g.pendingID = pendingID
	g.pendingText = text
	g.sendSeq++
	seq := g.sendSeq

	ctx, cancel := context.WithTimeout(g.ctx, g.opts.RequestTimeout)
	g.sendCancel = cancel
	client, convID, modelName := g.api, g.current, g.opts.Model
	return func() tea.Msg {
		defer cancel()
		msg, err := client.SendMessage(ctx, convID, text, modelName)
		return SendDoneMsg{Seq: seq, Message: msg, Err: err}
	}
}

// Cancel stops the in-flight turn. A stream that already produced text
// keeps it with a "stopped" notice; an empty one is removed.
func (g *Gateway) Cancel() tea.Cmd {
	switch {
	case g.session != nil:
		sess := g.session
		if sess.Content() == "" {
			sess.Abandon()
			g.store.Remove(sess.EntryID())
		} else {
			sess.Interrupt(g.now())
		}
		return g.endSession()
	case g.pendingID != "":
		g.cancelPending()
		return notify(NotifyInfo, "stopped")
	case g.queued != "":
		g.queued = ""
		return notify(NotifyInfo, "stopped")
	}
	return nil
}

// abortInFlight drops the in-flight turn without writing into the
// transcript. The transcript is about to be replaced.
func (g *Gateway) abortInFlight() {
	if g.session != nil {
		g.session.Abandon()
		g.store.Discard(g.session.EntryID())
		g.session = nil
		g.channel = nil
	}
	if g.pendingID != "" {
		g.cancelPending()
	}
	g.queued = ""
}

func (g *Gateway) cancelPending() {
	if g.sendCancel != nil {
		g.sendCancel()
		g.sendCancel = nil
	}
	g.store.Remove(g.pendingID)
	g.pendingID = ""
	g.pendingText = ""
	g.sendSeq++
}

// =============================================================================
// UPDATE
// =============================================================================

// Update applies a gateway message and returns the follow-up command.
// Messages of other types are ignored.
func (g *Gateway) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case StreamEventMsg:
		return g.handleStreamEvent(msg)
	case DeadlineMsg:
		return g.handleDeadline(msg)
	case SendDoneMsg:
		return g.handleSendDone(msg)
	case ConversationsLoadedMsg:
		return g.handleListLoaded(msg)
	case CachedTranscriptMsg:
		return g.handleCachedTranscript(msg)
	case ConversationOpenedMsg:
		return g.handleOpened(msg)
	case ConversationCreatedMsg:
		return g.handleCreated(msg)
	case ConversationDeletedMsg:
		return g.handleDeleted(msg)
	}
	return nil
}

func (g *Gateway) isCurrentSession(id string) bool {
	return g.session != nil && g.session.ID() == id
}

func (g *Gateway) handleStreamEvent(msg StreamEventMsg) tea.Cmd {
	if !g.isCurrentSession(msg.SessionID) {
		return nil
	}
	if !g.session.HandleEvent(msg.Event, g.now()) {
		return waitForEvent(msg.SessionID, g.channel)
	}
	return g.endSession()
}

func (g *Gateway) handleDeadline(msg DeadlineMsg) tea.Cmd {
	if !g.isCurrentSession(msg.SessionID) {
		return nil
	}
	if g.session.CheckDeadline(g.now()) {
		return g.endSession()
	}
	// The idle policy moved the deadline.
	return g.scheduleDeadline(g.session)
}

// endSession detaches the terminal session and reports its outcome.
func (g *Gateway) endSession() tea.Cmd {
	sess := g.session
	g.session = nil
	g.channel = nil
	g.lastStats = sess.Stats()

	cmds := []tea.Cmd{msgCmd(TurnCompletedMsg{
		ConversationID: g.current,
		State:          sess.State(),
		Stats:          sess.Stats(),
	})}
	switch sess.State() {
	case stream.StateCompleted:
		cmds = append(cmds, g.touchCurrent())
	case stream.StateFailed:
		if api.IsAuthExpired(sess.Err()) {
			cmds = append(cmds, msgCmd(AuthExpiredMsg{Err: sess.Err()}))
		} else {
			cmds = append(cmds, notify(NotifyError, "answer failed: "+sess.Err().Error()))
		}
	case stream.StateTimedOut:
		cmds = append(cmds, notify(NotifyWarning, "response timed out"))
	}
	cmds = append(cmds, g.saveTranscript())
	return tea.Batch(cmds...)
}

func (g *Gateway) handleSendDone(msg SendDoneMsg) tea.Cmd {
	if msg.Seq != g.sendSeq || g.pendingID == "" {
		return nil
	}
	pendingID, text := g.pendingID, g.pendingText
	g.pendingID = ""
	g.pendingText = ""
	g.sendCancel = nil

	if msg.Err != nil {
		g.store.Remove(pendingID)
		g.logf("SEND_FAILED | conversation=%d error=%v", g.current, msg.Err)
		cmds := []tea.Cmd{msgCmd(SendFailedMsg{Text: text, Err: msg.Err})}
		if api.IsAuthExpired(msg.Err) {
			cmds = append(cmds, msgCmd(AuthExpiredMsg{Err: msg.Err}))
		} else {
			cmds = append(cmds, notify(NotifyError, "send failed: "+msg.Err.Error()))
		}
		return tea.Batch(cmds...)
	}

	entry := g.serverEntry(msg.Message)
	if err := g.store.ReplaceWithServerEntry(pendingID, entry); err != nil {
		g.logf("SEND_REPLACE_FAILED | entry=%s error=%v", pendingID, err)
		return nil
	}
	return tea.Batch(
		msgCmd(TurnCompletedMsg{ConversationID: g.current, State: stream.StateCompleted}),
		g.touchCurrent(),
		g.saveTranscript(),
	)
}

// serverEntry converts a send reply, applying the empty-answer policy.
func (g *Gateway) serverEntry(msg *model.ServerMessage) model.Entry {
	var entry model.Entry
	if msg != nil {
		entry = msg.ToEntry()
	} else {
		entry = model.ServerMessage{}.ToEntry()
	}
	if entry.Model == "" {
		entry.Model = g.opts.Model
	}
	if entry.Content == "" && g.opts.Session.EmptyPlaceholder != "" {
		entry.Content = g.opts.Session.EmptyPlaceholder
		entry.Placeholder = true
	}
	return entry
}

func (g *Gateway) handleListLoaded(msg ConversationsLoadedMsg) tea.Cmd {
	if msg.Err != nil && !msg.Offline {
		if api.IsAuthExpired(msg.Err) {
			return msgCmd(AuthExpiredMsg{Err: msg.Err})
		}
		return notify(NotifyError, "could not load conversations: "+msg.Err.Error())
	}

	g.conversations = msg.List
	model.SortConversations(g.conversations)

	cmds := []tea.Cmd{}
	if msg.Offline {
		cmds = append(cmds, notify(NotifyWarning, "offline: showing cached conversations"))
	} else {
		cmds = append(cmds, g.saveList())
	}
	if g.autoOpen {
		g.autoOpen = false
		if g.current == 0 && !g.Busy() && len(g.conversations) > 0 {
			cmds = append(cmds, g.Open(g.conversations[0].ID))
		}
	}
	return tea.Batch(cmds...)
}

func (g *Gateway) handleCachedTranscript(msg CachedTranscriptMsg) tea.Cmd {
	if msg.ID != g.openingID {
		return nil
	}
	g.current = msg.ID
	g.store.LoadAll(msg.ID, msg.Entries)
	return nil
}

func (g *Gateway) handleOpened(msg ConversationOpenedMsg) tea.Cmd {
	if msg.ID != g.openingID {
		return nil
	}
	g.openingID = 0
	if msg.Err != nil {
		g.logf("CONVERSATION_OPEN_FAILED | conversation=%d error=%v", msg.ID, msg.Err)
		if api.IsAuthExpired(msg.Err) {
			return msgCmd(AuthExpiredMsg{Err: msg.Err})
		}
		if g.current == msg.ID {
			return notify(NotifyWarning, "offline: showing cached copy")
		}
		return notify(NotifyError, "could not open conversation: "+msg.Err.Error())
	}

	g.current = msg.ID
	if msg.List != nil {
		g.conversations = msg.List
		model.SortConversations(g.conversations)
	}
	g.store.LoadAll(msg.ID, msg.Detail.Entries())
	return tea.Batch(g.saveList(), g.saveTranscript())
}

func (g *Gateway) handleCreated(msg ConversationCreatedMsg) tea.Cmd {
	if msg.Err != nil {
		cmds := []tea.Cmd{}
		if msg.ForSend != "" && g.queued == msg.ForSend {
			g.queued = ""
			cmds = append(cmds, msgCmd(SendFailedMsg{Text: msg.ForSend, Err: msg.Err}))
		}
		if api.IsAuthExpired(msg.Err) {
			cmds = append(cmds, msgCmd(AuthExpiredMsg{Err: msg.Err}))
		} else {
			cmds = append(cmds, notify(NotifyError, "could not create conversation: "+msg.Err.Error()))
		}
		return tea.Batch(cmds...)
	}

	conv := *msg.Conversation
	g.conversations = append([]model.Conversation{conv}, g.conversations...)
	put := g.putConversation(conv)

	if msg.ForSend != "" {
		// The transcript already holds the user entry for this question.
		g.current = conv.ID
		if g.queued != msg.ForSend {
			return put
		}
		g.queued = ""
		return tea.Batch(put, g.startTurn(msg.ForSend))
	}

	g.abortInFlight()
	g.openingID = 0
	g.current = conv.ID
	g.store.LoadAll(conv.ID, nil)
	if g.scroll != nil {
		g.scroll.Reset()
	}
	return put
}

func (g *Gateway) handleDeleted(msg ConversationDeletedMsg) tea.Cmd {
	if msg.Err != nil {
		if api.IsAuthExpired(msg.Err) {
			return msgCmd(AuthExpiredMsg{Err: msg.Err})
		}
		return notify(NotifyError, "could not delete conversation: "+msg.Err.Error())
	}

	if idx := model.FindConversation(g.conversations, msg.ID); idx >= 0 {
		g.conversations = append(g.conversations[:idx:idx], g.conversations[idx+1:]...)
	}
	cmds := []tea.Cmd{g.forget(msg.ID), notify(NotifyInfo, "conversation deleted")}
	if msg.ID == g.current {
		g.abortInFlight()
		g.current = 0
		if len(g.conversations) > 0 {
			cmds = append(cmds, g.Open(g.conversations[0].ID))
		} else {
			g.store.LoadAll(0, nil)
		}
	}
	return tea.Batch(cmds...)
}

// =============================================================================
// COMMAND HELPERS
// =============================================================================

// waitForEvent reads the next channel event. A closed channel yields no
// message; the session has already ended or will end by its deadline.
func waitForEvent(sessionID string, ch stream.Channel) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch.Events()
		if !ok {
			return nil
		}
		return StreamEventMsg{SessionID: sessionID, Event: ev}
	}
}

func (g *Gateway) scheduleDeadline(sess *stream.Session) tea.Cmd {
	d := sess.Deadline().Sub(g.now())
	if d < 0 {
		d = 0
	}
	id := sess.ID()
	return g.tick(d, func(time.Time) tea.Msg {
		return DeadlineMsg{SessionID: id}
	})
}

func (g *Gateway) touchCurrent() tea.Cmd {
	g.conversations = model.TouchConversation(g.conversations, g.current, g.now())
	if conv, ok := g.Current(); ok {
		return g.putConversation(conv)
	}
	return nil
}

func (g *Gateway) saveList() tea.Cmd {
	if g.cache == nil {
		return nil
	}
	cache, list, parent := g.cache, g.Conversations(), g.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, cacheTimeout)
		defer cancel()
		if err := cache.SaveConversations(ctx, list); err != nil {
			g.logf("CACHE_WRITE_FAILED | what=list error=%v", err)
		}
		return nil
	}
}

func (g *Gateway) putConversation(conv model.Conversation) tea.Cmd {
	if g.cache == nil {
		return nil
	}
	cache, parent := g.cache, g.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, cacheTimeout)
		defer cancel()
		if err := cache.PutConversation(ctx, conv); err != nil {
			g.logf("CACHE_WRITE_FAILED | what=conversation id=%d error=%v", conv.ID, err)
		}
		return nil
	}
}

func (g *Gateway) saveTranscript() tea.Cmd {
	if g.cache == nil || g.current == 0 {
		return nil
	}
	conv, ok := g.Current()
	if !ok {
		conv = model.Conversation{ID: g.current, UpdatedAt: g.now()}
	}
	cache, entries, parent := g.cache, g.store.Entries(), g.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, cacheTimeout)
		defer cancel()
		if err := cache.SaveTranscript(ctx, conv, entries); err != nil {
			g.logf("CACHE_WRITE_FAILED | what=transcript id=%d error=%v", conv.ID, err)
		}
		return nil
	}
}

func (g *Gateway) forget(id int64) tea.Cmd {
	if g.cache == nil {
		return nil
	}
	cache, parent := g.cache, g.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, cacheTimeout)
		defer cancel()
		if err := cache.DeleteConversation(ctx, id); err != nil {
			g.logf("CACHE_WRITE_FAILED | what=delete id=%d error=%v", id, err)
		}
		return nil
	}
}

func notify(level NotifyLevel, text string) tea.Cmd {
	return msgCmd(NotifyMsg{Level: level, Text: text})
}

func msgCmd(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}

// TitleFor derives a conversation title from the first question.
func TitleFor(text string) string {
	title := strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(title) <= maxTitleRunes {
		return title
	}
	runes := []rune(title)
	return strings.TrimSpace(string(runes[:maxTitleRunes-3])) + "..."
}

func (g *Gateway) logf(format string, args ...any) {
	if g.logger != nil {
		g.logger.Printf(format, args...)
	}
}

// String describes the gateway state for debug logging.
func (g *Gateway) String() string {
	state := "idle"
	switch {
	case g.session != nil:
		state = "streaming:" + g.session.State().String()
	case g.pendingID != "":
		state = "sending"
	case g.queued != "":
		state = "creating"
	case g.openingID != 0:
		state = fmt.Sprintf("opening:%d", g.openingID)
	}
	return fmt.Sprintf("gateway{conversation=%d state=%s conversations=%d}", g.current, state, len(g.conversations))
}
