// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/docsmith-tui/internal/model"
)

// =============================================================================
// SCHEMA
// =============================================================================

const schema = `
CREATE TABLE IF NOT EXISTS cached_messages (
	workspace   TEXT NOT NULL,
	thread      TEXT NOT NULL,
	position    INTEGER NOT NULL,
	message_id  TEXT NOT NULL,
	role        TEXT NOT NULL,
	content     TEXT NOT NULL,
	sent_at_ms  INTEGER NOT NULL,
	card_json   TEXT,
	raw_json    TEXT,
	PRIMARY KEY (workspace, thread, position)
);

CREATE TABLE IF NOT EXISTS cache_meta (
	workspace  TEXT NOT NULL,
	thread     TEXT NOT NULL,
	updated_ms INTEGER NOT NULL,
	PRIMARY KEY (workspace, thread)
);
`

// =============================================================================
// HISTORY CACHE
// =============================================================================

// Cache is the on-disk message cache. Safe for use from multiple
// goroutines; database/sql serializes access.
type Cache struct {
	db *sql.DB
}

// Open opens (or creates) the cache database at the given path.
func Open(path string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply cache schema: %w", err)
	}
	return &Cache{db: db}, nil
}

// OpenDefault opens the cache at ~/.docsmith/cache.db.
func OpenDefault() (*Cache, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return Open(filepath.Join(home, ".docsmith", "cache.db"))
}

// Close releases the database handle.
func (c *Cache) Close() error {
	return c.db.Close()
}

// =============================================================================
// SNAPSHOT OPERATIONS
// =============================================================================

// SaveSnapshot replaces the cached transcript for a thread with the
// given messages, in order. The whole replacement is one transaction so
// a crash never leaves a half-written transcript.
func (c *Cache) SaveSnapshot(workspace, thread string, msgs []*model.Message) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("begin snapshot: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`DELETE FROM cached_messages WHERE workspace = ? AND thread = ?`,
		workspace, thread,
	); err != nil {
		return fmt.Errorf("clear old snapshot: %w", err)
	}

	insert, err := tx.Prepare(`
		INSERT INTO cached_messages
			(workspace, thread, position, message_id, role, content, sent_at_ms, card_json, raw_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer insert.Close()

	for i, m := range msgs {
		var cardJSON any
		if m.Card != nil {
			b, err := json.Marshal(m.Card)
			if err != nil {
				return fmt.Errorf("marshal card %s: %w", m.Card.ID, err)
			}
			cardJSON = string(b)
		}
		var rawJSON any
		if len(m.Raw) > 0 {
			rawJSON = string(m.Raw)
		}
		var sentMs int64
		if !m.SentAt.IsZero() {
			sentMs = m.SentAt.UnixMilli()
		}
		if _, err := insert.Exec(workspace, thread, i, m.ID, string(m.Role), m.Content, sentMs, cardJSON, rawJSON); err != nil {
			return fmt.Errorf("insert cached message: %w", err)
		}
	}

	if _, err := tx.Exec(
		`INSERT INTO cache_meta (workspace, thread, updated_ms) VALUES (?, ?, ?)
		 ON CONFLICT (workspace, thread) DO UPDATE SET updated_ms = excluded.updated_ms`,
		workspace, thread, time.Now().UnixMilli(),
	); err != nil {
		return fmt.Errorf("update cache meta: %w", err)
	}

	return tx.Commit()
}

// LoadSnapshot returns the cached transcript for a thread in stored
// order, or an empty slice when nothing is cached.
func (c *Cache) LoadSnapshot(workspace, thread string) ([]*model.Message, error) {
	rows, err := c.db.Query(`
		SELECT message_id, role, content, sent_at_ms, card_json, raw_json
		FROM cached_messages
		WHERE workspace = ? AND thread = ?
		ORDER BY position ASC`,
		workspace, thread)
	if err != nil {
		return nil, fmt.Errorf("query snapshot: %w", err)
	}
	defer rows.Close()

	var msgs []*model.Message
	for rows.Next() {
		var (
			id, role, content string
			sentMs            int64
			cardJSON, rawJSON sql.NullString
		)
		if err := rows.Scan(&id, &role, &content, &sentMs, &cardJSON, &rawJSON); err != nil {
			return nil, fmt.Errorf("scan cached message: %w", err)
		}

		m := &model.Message{
			ID:      id,
			Role:    model.Role(role),
			Content: content,
		}
		if sentMs > 0 {
			m.SentAt = time.UnixMilli(sentMs)
		}
		if cardJSON.Valid {
			var card model.Card
			if err := json.Unmarshal([]byte(cardJSON.String), &card); err == nil {
				m.Card = &card
			}
		}
		if rawJSON.Valid {
			m.Raw = json.RawMessage(rawJSON.String)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// UpdatedAt returns when a thread's snapshot was last written, or the
// zero time when nothing is cached.
func (c *Cache) UpdatedAt(workspace, thread string) (time.Time, error) {
	var ms int64
	err := c.db.QueryRow(
		`SELECT updated_ms FROM cache_meta WHERE workspace = ? AND thread = ?`,
		workspace, thread,
	).Scan(&ms)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms), nil
}

// Purge drops the cached transcript for a thread.
func (c *Cache) Purge(workspace, thread string) error {
	if _, err := c.db.Exec(
		`DELETE FROM cached_messages WHERE workspace = ? AND thread = ?`,
		workspace, thread,
	); err != nil {
		return err
	}
	_, err := c.db.Exec(
		`DELETE FROM cache_meta WHERE workspace = ? AND thread = ?`,
		workspace, thread,
	)
	return err
}
