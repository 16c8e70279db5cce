// Package archive keeps a SQLite log of ingested sources. It is bookkeeping
// only: the vector index is memory-resident by design and never rebuilt from
// the archive.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/kioku/internal/models"
)

// Store records completed ingestions.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the archive database at dbPath, creating parent
// directories as needed. ":memory:" is accepted for tests.
func NewStore(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dbPath != ":memory:" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create archive directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init archive schema: %w", err)
	}
	return &Store{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS sources (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		name TEXT,
		chars INTEGER NOT NULL,
		chunks INTEGER NOT NULL,
		metadata TEXT,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sources_created_at ON sources(created_at);
	`
	_, err := db.Exec(schema)
	return err
}

// RecordSource writes one source row, stamping its creation time.
// Re-recording an existing id replaces the row, so a re-ingested source
// (a watched file that changed, say) carries its latest counts and time.
func (s *Store) RecordSource(ctx context.Context, src *models.Source) error {
	metadataJSON, err := json.Marshal(src.Metadata)
	if err != nil {
		return fmt.Errorf("marshal source metadata: %w", err)
	}
	src.CreatedAt = time.Now()
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO sources (id, kind, name, chars, chunks, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		src.ID, src.Kind, src.Name, src.Chars, src.Chunks, string(metadataJSON), src.CreatedAt,
	)
	return err
}

// ListSources returns sources newest first.
func (s *Store) ListSources(ctx context.Context, offset, limit int) ([]*models.Source, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, name, chars, chunks, metadata, created_at
		 FROM sources ORDER BY created_at DESC, id LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []*models.Source
	for rows.Next() {
		var src models.Source
		var metadataJSON string
		if err := rows.Scan(&src.ID, &src.Kind, &src.Name, &src.Chars, &src.Chunks, &metadataJSON, &src.CreatedAt); err != nil {
			return nil, err
		}
		if metadataJSON != "" {
			_ = json.Unmarshal([]byte(metadataJSON), &src.Metadata)
		}
		sources = append(sources, &src)
	}
	return sources, rows.Err()
}

// CountSources returns the total number of recorded sources.
func (s *Store) CountSources(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sources`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
