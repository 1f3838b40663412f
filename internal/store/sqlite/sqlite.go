// Package sqlite implements store.Store on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/n0madic/stridecoach/internal/store"
)

// Store is a store.Store backed by a single SQLite connection.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ store.Store = (*Store)(nil)

// querier is the subset of *sql.DB and *sql.Tx the row helpers need.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Open opens (creating if needed) the database at path and applies the
// schema.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, now: time.Now}
	if err := s.Migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Migrate creates missing tables and indexes. It is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA foreign_keys=ON;`,
		`CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT 'Nueva conversación',
			model TEXT NOT NULL,
			created_ns INTEGER NOT NULL,
			updated_ns INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_updated ON conversations(updated_ns);`,
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_ns INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, created_ns);`,
		`CREATE TABLE IF NOT EXISTS runner_profile (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			name TEXT,
			age REAL,
			weight REAL,
			height REAL,
			years_running REAL,
			weekly_km REAL,
			pb_5k TEXT,
			pb_10k TEXT,
			pb_half_marathon TEXT,
			pb_marathon TEXT,
			current_goal TEXT,
			target_race TEXT,
			target_date TEXT,
			target_time TEXT,
			injuries TEXT,
			health_notes TEXT,
			preferred_terrain TEXT,
			available_days TEXT,
			max_time_per_session REAL,
			coach_notes TEXT,
			additional_info TEXT,
			created_ns INTEGER NOT NULL,
			updated_ns INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS running_events (
			id TEXT PRIMARY KEY,
			date TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT 'running' CHECK (category IN ('running', 'personal')),
			type TEXT NOT NULL,
			title TEXT,
			time TEXT,
			distance TEXT,
			duration TEXT,
			pace TEXT,
			notes TEXT,
			heart_rate INTEGER,
			feeling TEXT,
			completed INTEGER NOT NULL DEFAULT 0,
			created_ns INTEGER NOT NULL,
			updated_ns INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_running_events_date ON running_events(date);`,
		`CREATE TABLE IF NOT EXISTS generated_images (
			id TEXT PRIMARY KEY,
			prompt TEXT NOT NULL,
			model TEXT NOT NULL,
			image_url TEXT NOT NULL,
			created_ns INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS vision_analyses (
			id TEXT PRIMARY KEY,
			image_url TEXT NOT NULL,
			prompt TEXT,
			model TEXT NOT NULL,
			response TEXT NOT NULL,
			created_ns INTEGER NOT NULL
		);`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite migrate: %w", err)
		}
	}
	return nil
}

// inTx runs fn inside a transaction, rolling back on error.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *Store) nowNS() int64 {
	return s.now().UTC().UnixNano()
}

func fromNS(ns int64) time.Time {
	return time.Unix(0, ns).UTC()
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullableInt(i *int) any {
	if i == nil {
		return nil
	}
	return *i
}

func nullableFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func intPtr(ni sql.NullInt64) *int {
	if !ni.Valid {
		return nil
	}
	v := int(ni.Int64)
	return &v
}

func floatPtr(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	v := nf.Float64
	return &v
}
