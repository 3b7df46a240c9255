// Package store provides SQLite-backed persistence for recordings and samples.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS recordings (
	id          INTEGER PRIMARY KEY,
	name        TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	start_time  DATETIME NOT NULL,
	end_time    DATETIME NOT NULL,
	data_count  INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS samples (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	recording_id   INTEGER NOT NULL REFERENCES recordings(id) ON DELETE CASCADE,
	time           DATETIME NOT NULL,
	delta          REAL NOT NULL DEFAULT 0,
	theta          REAL NOT NULL DEFAULT 0,
	low_alpha      REAL NOT NULL DEFAULT 0,
	high_alpha     REAL NOT NULL DEFAULT 0,
	low_beta       REAL NOT NULL DEFAULT 0,
	high_beta      REAL NOT NULL DEFAULT 0,
	low_gamma      REAL NOT NULL DEFAULT 0,
	high_gamma     REAL NOT NULL DEFAULT 0,
	attention      REAL NOT NULL DEFAULT 0,
	meditation     REAL NOT NULL DEFAULT 0,
	signal_quality REAL NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_samples_recording_time ON samples(recording_id, time);
`

// DB wraps a sql.DB with recording-store operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
