package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed persistence for feed snapshots and
// generation run history.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates a new Store, opening the SQLite database and running migrations
func New(dbPath string, logger *slog.Logger) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{
		db:     db,
		logger: logger,
	}

	// Run migrations
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Debug("store initialized", "path", dbPath)
	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// SaveSnapshot stores the raw feed body for the given URL, replacing any
// previous snapshot of the same feed.
func (s *Store) SaveSnapshot(url string, body []byte, fetchedAt time.Time) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin snapshot transaction: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM snapshots WHERE url = ?", url); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to delete old snapshot: %w", err)
	}

	if _, err := tx.Exec(
		"INSERT INTO snapshots (url, fetched_at, body) VALUES (?, ?, ?)",
		url, fetchedAt.UTC(), body,
	); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}

// LatestSnapshot returns the most recent cached body for the given URL.
// ok is false when no snapshot exists.
func (s *Store) LatestSnapshot(url string) (body []byte, fetchedAt time.Time, ok bool, err error) {
	const query = `
		SELECT body, fetched_at FROM snapshots
		WHERE url = ?
		ORDER BY fetched_at DESC
		LIMIT 1
	`

	row := s.db.QueryRow(query, url)
	if err := row.Scan(&body, &fetchedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, time.Time{}, false, nil
		}
		return nil, time.Time{}, false, fmt.Errorf("failed to query snapshot: %w", err)
	}
	return body, fetchedAt, true, nil
}

// CreateRun inserts a new Run and sets its ID
func (s *Store) CreateRun(run *Run) error {
	const query = `
		INSERT INTO runs (
			started_at, source_url, from_cache, total_mirrors, skipped_records,
			retained, sort_key, result_limit, output_path, status, error_message
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.Exec(
		query,
		run.StartedAt.UTC(), run.SourceURL, run.FromCache, run.TotalMirrors,
		run.SkippedRecords, run.Retained, run.SortKey, run.Limit,
		run.OutputPath, run.Status, run.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	run.ID = id
	return nil
}

// RecentRuns returns the most recent generation runs, newest first.
func (s *Store) RecentRuns(limit int) ([]Run, error) {
	const query = `
		SELECT id, started_at, source_url, from_cache, total_mirrors,
		       skipped_records, retained, sort_key, result_limit,
		       output_path, status, error_message
		FROM runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`

	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(
			&r.ID, &r.StartedAt, &r.SourceURL, &r.FromCache, &r.TotalMirrors,
			&r.SkippedRecords, &r.Retained, &r.SortKey, &r.Limit,
			&r.OutputPath, &r.Status, &r.ErrorMessage,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}

	return runs, nil
}
