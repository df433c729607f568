// Package metadata implements the Persist metadata stage's narrow
// relational interface (spec.md §6): a single snapshot record
// {id, repository_id, commit_sha, created_at} per successful index run. A
// full relational metadata store is out of scope (SPEC_FULL.md §5); this is
// only that one shape, backed by modernc.org/sqlite the way
// josephgoksu-TaskWing/internal/memory/sqlite.go backs its stores (pure Go
// driver, no cgo, schema created on open).
package metadata

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Snapshot is the row persist_metadata writes (spec.md §6).
type Snapshot struct {
	ID           string
	RepositoryID string
	CommitSHA    string
	CreatedAt    time.Time
}

// Store is the narrow snapshot-recording interface the workflow driver
// consumes for its Persist metadata stage.
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) a SQLite-backed Store at dbPath.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create metadata directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open metadata db: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS snapshots (
			id TEXT PRIMARY KEY,
			repository_id TEXT NOT NULL,
			commit_sha TEXT NOT NULL,
			created_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_snapshots_repo ON snapshots(repository_id);
	`)
	return err
}

// RecordSnapshot inserts a snapshot row and returns its id (spec.md §6's
// persist_metadata -> {status:"success", snapshot_id}).
func (s *Store) RecordSnapshot(ctx context.Context, repositoryID, commitSHA string, now time.Time) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (id, repository_id, commit_sha, created_at)
		VALUES (?, ?, ?, ?)
	`, id, repositoryID, commitSHA, now.UTC().Format(time.RFC3339))
	if err != nil {
		return "", fmt.Errorf("record snapshot: %w", err)
	}
	return id, nil
}

// LastSnapshot returns the most recent snapshot recorded for repositoryID,
// or nil if none exists.
func (s *Store) LastSnapshot(ctx context.Context, repositoryID string) (*Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, repository_id, commit_sha, created_at
		FROM snapshots WHERE repository_id = ?
		ORDER BY created_at DESC LIMIT 1
	`, repositoryID)

	var snap Snapshot
	var createdAt string
	if err := row.Scan(&snap.ID, &snap.RepositoryID, &snap.CommitSHA, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("query last snapshot: %w", err)
	}
	snap.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &snap, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
