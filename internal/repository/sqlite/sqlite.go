// Package sqlite implements the repository interfaces on SQLite.
//
// SQLite fits this system unusually well: a tap backend is one table of
// counters plus an append-only log, single-server, with every write being a
// single-row update. An embedded database removes the only infrastructure
// dependency the app would otherwise have.
//
// We use modernc.org/sqlite rather than mattn/go-sqlite3: it is a pure-Go
// translation of SQLite, so no CGo, no C compiler, painless cross-compilation.
// Tests open ":memory:" databases and never touch disk.
package sqlite

import (
	"database/sql"
	"fmt"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps the sql.DB pool and provides the repository methods.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at dbPath and runs migrations.
// Use ":memory:" for a throwaway in-memory database.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Force an immediate connection so a bad path fails here, not on the
	// first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets concurrent balance reads proceed while a tap is committing.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// taps.telegram_id references users; SQLite leaves this off by default.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool. Callers should defer this right after New.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS keeps it idempotent,
// so startup is safe against an existing database.
func (db *DB) migrate() error {
	// telegram_id is the platform-issued account ID — immutable, assigned by
	// Telegram, never generated here. Timestamps are ms since epoch;
	// last_tap_at = 0 means the user has never tapped.
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			telegram_id    INTEGER PRIMARY KEY,
			username       TEXT    NOT NULL DEFAULT '',
			first_name     TEXT    NOT NULL DEFAULT '',
			last_name      TEXT    NOT NULL DEFAULT '',
			platform       TEXT    NOT NULL DEFAULT '',
			points         INTEGER NOT NULL DEFAULT 0,
			last_tap_at    INTEGER NOT NULL DEFAULT 0,
			created_at     INTEGER NOT NULL,
			last_active_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_users_points ON users(points DESC);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	// Append-only audit log: one row per accepted tap, never updated.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS taps (
			id          TEXT PRIMARY KEY,
			telegram_id INTEGER NOT NULL REFERENCES users(telegram_id),
			ts          INTEGER NOT NULL,
			count       INTEGER NOT NULL DEFAULT 1
		);
		CREATE INDEX IF NOT EXISTS idx_taps_user_ts ON taps(telegram_id, ts);
	`)
	if err != nil {
		return fmt.Errorf("creating taps table: %w", err)
	}

	return nil
}
