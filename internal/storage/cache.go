// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/smartdocs-tui/internal/model"
)

// =============================================================================
// ERRORS
// =============================================================================

// ErrConversationNotFound is returned when a conversation is not cached.
// Use errors.Is(err, ErrConversationNotFound) to check for this error.
var ErrConversationNotFound = &ConversationError{Message: "conversation not cached"}

// ConversationError represents a cache lookup error.
type ConversationError struct {
	Message string
}

// Error implements the error interface.
func (e *ConversationError) Error() string {
	return e.Message
}

// Is implements errors.Is support for comparing conversation errors.
func (e *ConversationError) Is(target error) bool {
	t, ok := target.(*ConversationError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

// =============================================================================
// CACHE
// =============================================================================

// Cache is the SQLite transcript cache. It is safe for concurrent use.
type Cache struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the cache at path. Use ":memory:" for tests.
func Open(path string) (*Cache, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections.
	// A single connection also keeps ":memory:" databases alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	c := &Cache{db: db, now: time.Now}
	if err := c.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return c, nil
}

// initSchema creates the tables, rebuilding them on a version mismatch.
func (c *Cache) initSchema() error {
	if _, err := c.db.Exec(Schema); err != nil {
		return err
	}

	var version string
	err := c.db.QueryRow("SELECT value FROM metadata WHERE key = 'schema_version'").Scan(&version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return err
	case version == SchemaVersion:
		return nil
	default:
		if _, err := c.db.Exec(dropSchema); err != nil {
			return err
		}
		if _, err := c.db.Exec(Schema); err != nil {
			return err
		}
	}

	_, err = c.db.Exec("INSERT OR REPLACE INTO metadata(key, value) VALUES ('schema_version', ?)", SchemaVersion)
	return err
}

// Close closes the database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// =============================================================================
// CONVERSATION LIST
// =============================================================================

// SaveConversations replaces the cached conversation list. Conversations
// missing from list are dropped along with their transcripts.
func (c *Cache) SaveConversations(ctx context.Context, list []model.Conversation) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := c.now().UnixNano()
	keep := make([]any, 0, len(list))
	for _, conv := range list {
		if err := upsertConversation(ctx, tx, conv, now); err != nil {
			return err
		}
		keep = append(keep, conv.ID)
	}

	query := "DELETE FROM conversations"
	if len(keep) > 0 {
		query += " WHERE id NOT IN (" + strings.TrimSuffix(strings.Repeat("?,", len(keep)), ",") + ")"
	}
	if _, err := tx.ExecContext(ctx, query, keep...); err != nil {
		return fmt.Errorf("failed to prune conversations: %w", err)
	}
	return tx.Commit()
}

// PutConversation inserts or updates one conversation.
func (c *Cache) PutConversation(ctx context.Context, conv model.Conversation) error {
	return upsertConversation(ctx, c.db, conv, c.now().UnixNano())
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertConversation(ctx context.Context, db execer, conv model.Conversation, cachedAt int64) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO conversations(id, title, created_at, updated_at, cached_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			cached_at = excluded.cached_at`,
		conv.ID, conv.Title, conv.CreatedAt.UnixNano(), conv.UpdatedAt.UnixNano(), cachedAt)
	if err != nil {
		return fmt.Errorf("failed to cache conversation %d: %w", conv.ID, err)
	}
	return nil
}

// ListConversations returns cached conversations, most recently updated first.
func (c *Cache) ListConversations(ctx context.Context) ([]model.Conversation, error) {
	rows, err := c.db.QueryContext(ctx,
		"SELECT id, title, created_at, updated_at FROM conversations ORDER BY updated_at DESC, id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanConversations(rows)
}

// GetConversation returns one cached conversation.
func (c *Cache) GetConversation(ctx context.Context, id int64) (model.Conversation, error) {
	row := c.db.QueryRowContext(ctx,
		"SELECT id, title, created_at, updated_at FROM conversations WHERE id = ?", id)
	conv, err := scanConversation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Conversation{}, ErrConversationNotFound
	}
	return conv, err
}

// DeleteConversation removes a conversation and its transcript.
func (c *Cache) DeleteConversation(ctx context.Context, id int64) error {
	_, err := c.db.ExecContext(ctx, "DELETE FROM conversations WHERE id = ?", id)
	return err
}

// =============================================================================
// TRANSCRIPTS
// =============================================================================

// SaveTranscript replaces the cached transcript of conv. Entries still
// streaming are skipped.
func (c *Cache) SaveTranscript(ctx context.Context, conv model.Conversation, entries []model.Entry) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := upsertConversation(ctx, tx, conv, c.now().UnixNano()); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM entries WHERE conversation_id = ?", conv.ID); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO entries(conversation_id, position, entry_id, role, content, data) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	pos := 0
	for _, e := range entries {
		if e.IsStreaming {
			continue
		}
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to encode entry %s: %w", e.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, conv.ID, pos, e.ID, string(e.Role), e.Content, string(data)); err != nil {
			return fmt.Errorf("failed to cache entry %s: %w", e.ID, err)
		}
		pos++
	}
	return tx.Commit()
}

// LoadTranscript returns the cached transcript of a conversation, or
// ErrConversationNotFound when the conversation is not cached.
func (c *Cache) LoadTranscript(ctx context.Context, id int64) ([]model.Entry, error) {
	if _, err := c.GetConversation(ctx, id); err != nil {
		return nil, err
	}

	rows, err := c.db.QueryContext(ctx,
		"SELECT data FROM entries WHERE conversation_id = ? ORDER BY position", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.Entry
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var e model.Entry
		if err := json.Unmarshal([]byte(data), &e); err != nil {
			return nil, fmt.Errorf("corrupt cached entry in conversation %d: %w", id, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// SearchMessages returns conversations where a cached entry or the title
// contains query (case-insensitive).
func (c *Cache) SearchMessages(ctx context.Context, query string) ([]model.Conversation, error) {
	if strings.TrimSpace(query) == "" {
		return c.ListConversations(ctx)
	}
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
	rows, err := c.db.QueryContext(ctx, `
		SELECT c.id, c.title, c.created_at, c.updated_at FROM conversations c
		WHERE lower(c.title) LIKE ? ESCAPE '\'
		   OR EXISTS (SELECT 1 FROM entries e WHERE e.conversation_id = c.id AND lower(e.content) LIKE ? ESCAPE '\')
		ORDER BY c.updated_at DESC, c.id DESC`, pattern, pattern)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanConversations(rows)
}

// =============================================================================
// HELPERS
// =============================================================================

type scanner interface {
	Scan(dest ...any) error
}

func scanConversation(s scanner) (model.Conversation, error) {
	var conv model.Conversation
	var created, updated int64
	if err := s.Scan(&conv.ID, &conv.Title, &created, &updated); err != nil {
		return model.Conversation{}, err
	}
	conv.CreatedAt = time.Unix(0, created)
	conv.UpdatedAt = time.Unix(0, updated)
	return conv, nil
}

func scanConversations(rows *sql.Rows) ([]model.Conversation, error) {
	var list []model.Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, conv)
	}
	return list, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
