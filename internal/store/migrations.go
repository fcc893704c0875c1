package store

import (
	"fmt"
)

// migrate runs all pending migrations
func (s *Store) migrate() error {
	// Create migrations table if it doesn't exist
	createMigrationsTableSQL := `
		CREATE TABLE IF NOT EXISTS migrations (
			id INTEGER PRIMARY KEY,
			version INTEGER NOT NULL UNIQUE,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`

	if _, err := s.db.Exec(createMigrationsTableSQL); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	// Get the current schema version
	var currentVersion int
	err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM migrations").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get current migration version: %w", err)
	}

	s.logger.Debug("current schema version", "version", currentVersion)

	// Define all migrations
	migrations := []struct {
		version int
		sql     string
	}{
		{
			version: 1,
			sql: `
				CREATE TABLE snapshots (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					url TEXT NOT NULL,
					fetched_at DATETIME NOT NULL,
					body BLOB NOT NULL
				);
				CREATE INDEX idx_snapshots_url ON snapshots(url, fetched_at);

				CREATE TABLE runs (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					started_at DATETIME NOT NULL,
					source_url TEXT NOT NULL,
					from_cache INTEGER NOT NULL DEFAULT 0,
					total_mirrors INTEGER NOT NULL DEFAULT 0,
					skipped_records INTEGER NOT NULL DEFAULT 0,
					retained INTEGER NOT NULL DEFAULT 0,
					sort_key TEXT NOT NULL,
					result_limit INTEGER NOT NULL DEFAULT -1,
					output_path TEXT NOT NULL DEFAULT '',
					status TEXT NOT NULL DEFAULT 'success',
					error_message TEXT NOT NULL DEFAULT ''
				);
				CREATE INDEX idx_runs_started_at ON runs(started_at);
			`,
		},
	}

	// Apply pending migrations
	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", m.version, err)
		}

		if _, err := tx.Exec(m.sql); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to apply migration %d: %w", m.version, err)
		}

		if _, err := tx.Exec("INSERT INTO migrations (version) VALUES (?)", m.version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", m.version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", m.version, err)
		}

		s.logger.Info("applied migration", "version", m.version)
	}

	return nil
}
