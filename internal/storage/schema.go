// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

const (
	// SchemaVersion tracks the cache schema. A mismatch drops and rebuilds
	// the cache, since everything in it can be refetched.
	SchemaVersion = "1"
)

// Schema is the SQLite cache schema.
const Schema = `
CREATE TABLE IF NOT EXISTS metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS conversations (
    id INTEGER PRIMARY KEY,
    title TEXT NOT NULL,
    created_at INTEGER NOT NULL,  -- Unix nanoseconds
    updated_at INTEGER NOT NULL,
    cached_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_conversations_updated ON conversations(updated_at DESC);

-- One row per finalized transcript entry, in display order.
CREATE TABLE IF NOT EXISTS entries (
    conversation_id INTEGER NOT NULL,
    position INTEGER NOT NULL,
    entry_id TEXT NOT NULL,
    role TEXT NOT NULL,
    content TEXT NOT NULL,
    data TEXT NOT NULL,           -- full entry as JSON
    PRIMARY KEY (conversation_id, position),
    FOREIGN KEY(conversation_id) REFERENCES conversations(id) ON DELETE CASCADE
);
`

// dropSchema removes every cache table.
const dropSchema = `
DROP TABLE IF EXISTS entries;
DROP TABLE IF EXISTS conversations;
DROP TABLE IF EXISTS metadata;
`
