package storage

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// Durable wraps the engine's sqlite-backed durable tier: the row-level
// truth for sessions, files, prompts, conversation messages, results, the
// model registry, and the persisted priority queue. Unlike the hot tier,
// durable rows are never physically deleted by session expiry (spec.md
// §4.1: "Never physically deletes durable rows").
type Durable struct {
	conn *sql.DB
}

// OpenDurable opens (creating if absent) the sqlite database at path and
// applies all pending goose migrations.
func OpenDurable(path string) (*Durable, error) {
	conn, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// sqlite only safely supports one writer; a single connection avoids
	// SQLITE_BUSY under the engine's own concurrent executor pool, relying
	// on WAL mode for concurrent readers.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	migrationsFS, err := fs.Sub(MigrationFS, "migrations")
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("migrations sub-fs: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, conn, migrationsFS)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("create migration provider: %w", err)
	}

	if _, err := provider.Up(context.Background()); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	return &Durable{conn: conn}, nil
}

// Close closes the underlying database connection.
func (d *Durable) Close() error {
	return d.conn.Close()
}

// Conn returns the underlying *sql.DB for package-specific query code
// (internal/sessionstore, internal/promptstore, etc. each own their
// statements against this connection rather than this package growing a
// god-object of every table's CRUD).
func (d *Durable) Conn() *sql.DB {
	return d.conn
}
