package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// sqliteSchema mirrors postgresSchema. Timestamps are unix nanoseconds so
// that ordering is exact.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
	handle       TEXT PRIMARY KEY,
	display_name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS events (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	user_handle TEXT NOT NULL,
	eventname   TEXT NOT NULL,
	starttime   TEXT NOT NULL,
	endtime     TEXT NOT NULL,
	created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS events_created_at_idx ON events (created_at DESC);

CREATE TABLE IF NOT EXISTS joins (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	event_id    INTEGER NOT NULL,
	user_handle TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS joins_event_user_idx ON joins (event_id, user_handle);

CREATE TABLE IF NOT EXISTS replies (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	content           TEXT NOT NULL,
	user_handle       TEXT NOT NULL,
	reply_to_event_id INTEGER NOT NULL,
	created_at        INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS replies_event_idx ON replies (reply_to_event_id, created_at);
`

// OpenSQLite opens (creating if needed) the SQLite file at path and applies
// the schema.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// A single writer avoids "database is locked" under concurrent requests.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return db, nil
}
