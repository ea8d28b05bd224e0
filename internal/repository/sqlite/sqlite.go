// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY SQLITE?
// SQLite is an embedded database: it lives inside your Go binary as a single file.
// No separate database server to install, configure, or manage. Here it backs:
//   - the test profile (DATABASE_URL=sqlite://:memory:)
//   - single-box development (DATABASE_URL=sqlite:///path/to/db.sqlite3)
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo (calls C code from Go), which means you need a C compiler
// installed and cross-compilation becomes painful. modernc.org/sqlite is a pure Go
// translation of the SQLite C code: no C compiler needed, works everywhere Go works.
//
// DATABASE/SQL OVERVIEW:
// Go's standard library provides "database/sql", a generic interface for SQL databases.
// It works with any database through "drivers" (SQLite, Postgres, MySQL, etc.).
// Key types:
//   - sql.DB      — a connection pool (NOT a single connection!)
//   - sql.Row     — a single result row
//   - sql.Rows    — multiple result rows (must be closed!)
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"path/filepath"

	// BLANK IMPORT:
	// The sqlite package's init() registers itself with database/sql as a
	// driver named "sqlite". After this import, sql.Open("sqlite", ...) works.
	_ "modernc.org/sqlite"

	"github.com/sakif/base-backend/internal/repository"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// compile-time check that *DB is a complete store
var _ repository.Store = (*DB)(nil)

// DB wraps a sql.DB connection pool and provides repository methods.
type DB struct {
	conn *sql.DB
}

// New opens the SQLite database at path and creates the schema.
//
// path examples:
//   - "data/app.sqlite3"  → file-based database (persistent)
//   - ":memory:"          → in-memory database (tests; lost on close)
//
// IN-MEMORY POOLS:
// Every connection to ":memory:" is a separate, empty database. The pool is
// therefore capped at one connection so every query sees the same schema
// and rows. Concurrent callers queue on that connection, which also makes
// the unique constraints race-free for tests.
//
// FILE DATABASES:
// Pragmas are passed in the DSN (modernc's _pragma parameter) so that they
// apply to every pooled connection, not just the first one:
//   - journal_mode(WAL)   — readers don't block the single writer
//   - busy_timeout(5000)  — a writer waits up to 5s for the lock instead of failing
func New(path string) (*DB, error) {
	dsn := path
	if path != MemoryPath {
		q := url.Values{}
		q.Add("_pragma", "busy_timeout(5000)")
		q.Add("_pragma", "journal_mode(WAL)")
		dsn = filepath.Clean(path) + "?" + q.Encode()
	}

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	if path == MemoryPath {
		conn.SetMaxOpenConns(1)
	}

	// sql.Open does not connect; Ping forces the first connection so a bad
	// path or permissions issue surfaces here rather than on the first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping verifies the database answers. It is what the readiness probe calls.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: ping: %w", err)
	}
	return nil
}

// migrate creates the schema.
//
// SQLite is only used for tests and single-box development, so the schema is
// applied as idempotent DDL on open. The Postgres store runs versioned goose
// migrations instead.
//
// The UNIQUE constraints on email and username are the only uniqueness
// check in the system: CreateUser relies on them to reject duplicates.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id                TEXT PRIMARY KEY,
			email             TEXT NOT NULL,
			username          TEXT NOT NULL,
			full_name         TEXT NOT NULL DEFAULT '',
			password          TEXT NOT NULL,
			is_email_verified INTEGER NOT NULL DEFAULT 0,
			is_active         INTEGER NOT NULL DEFAULT 1,
			is_staff          INTEGER NOT NULL DEFAULT 0,
			is_superuser      INTEGER NOT NULL DEFAULT 0,
			created_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT users_email_key UNIQUE (email),
			CONSTRAINT users_username_key UNIQUE (username)
		);
		CREATE INDEX IF NOT EXISTS idx_users_created_at ON users(created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}
	return nil
}
