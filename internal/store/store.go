// Package store persists connection profiles, transfer history, bookmarks
// and application logs in a SQL database.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Store wraps the database handle. Entity access goes through the typed
// sub-stores returned by Profiles, History, Bookmarks and Logs.
type Store struct {
	db *sql.DB
}

// Open connects to the database and ensures the schema exists.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Profiles returns the connection-profile sub-store.
func (s *Store) Profiles() *Profiles { return &Profiles{db: s.db} }

// History returns the transfer-history sub-store.
func (s *Store) History() *History { return &History{db: s.db} }

// Bookmarks returns the bookmark sub-store.
func (s *Store) Bookmarks() *Bookmarks { return &Bookmarks{db: s.db} }

// Logs returns the application-log sub-store.
func (s *Store) Logs() *Logs { return &Logs{db: s.db} }

func (s *Store) initSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS connections (
			name TEXT PRIMARY KEY,
			protocol TEXT NOT NULL,
			host TEXT NOT NULL,
			port INTEGER NOT NULL,
			username TEXT NOT NULL,
			secret TEXT NOT NULL DEFAULT '',
			use_tls BOOLEAN NOT NULL DEFAULT FALSE,
			favorite BOOLEAN NOT NULL DEFAULT FALSE,
			last_used TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS history (
			id SERIAL PRIMARY KEY,
			connection TEXT NOT NULL,
			operation TEXT NOT NULL,
			local_path TEXT NOT NULL DEFAULT '',
			remote_path TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			size BIGINT NOT NULL DEFAULT 0,
			duration_ms BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS bookmarks (
			id SERIAL PRIMARY KEY,
			connection TEXT NOT NULL,
			path TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (connection, path)
		)`,
		`CREATE TABLE IF NOT EXISTS logs (
			id SERIAL PRIMARY KEY,
			level TEXT NOT NULL,
			message TEXT NOT NULL,
			connection TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}
