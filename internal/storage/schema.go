package storage

import (
	"database/sql"
	"fmt"
)

const currentSchemaVersion = 1

func (db *DB) initializeSchema() error {
	return db.WithTx(func(tx *sql.Tx) error {
		stmts := []string{
			`CREATE TABLE IF NOT EXISTS schema_version (
				version INTEGER NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS runs (
				id TEXT PRIMARY KEY,
				root TEXT NOT NULL,
				frontend TEXT NOT NULL,
				schema_name TEXT NOT NULL,
				schema_version INTEGER NOT NULL,
				started_at TEXT NOT NULL,
				finished_at TEXT NOT NULL,
				fact_count INTEGER NOT NULL,
				stats_json TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS blocks (
				run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
				block INTEGER NOT NULL,
				predicate TEXT NOT NULL,
				PRIMARY KEY (run_id, block)
			)`,
			`CREATE TABLE IF NOT EXISTS facts (
				run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
				block INTEGER NOT NULL,
				ordinal INTEGER NOT NULL,
				predicate TEXT NOT NULL,
				fact_id INTEGER NOT NULL,
				key_json TEXT NOT NULL,
				PRIMARY KEY (run_id, fact_id)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_facts_order ON facts(run_id, block, ordinal)`,
			`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`,
		}
		for _, stmt := range stmts {
			if _, err := tx.Exec(stmt); err != nil {
				return fmt.Errorf("failed to create schema: %w", err)
			}
		}
		if err := setSchemaVersion(tx, currentSchemaVersion); err != nil {
			return err
		}

		db.logger.Info("Database schema initialized", map[string]interface{}{
			"version": currentSchemaVersion,
		})
		return nil
	})
}

func (db *DB) runMigrations() error {
	version, err := db.getSchemaVersion()
	if err != nil {
		return err
	}
	if version == currentSchemaVersion {
		db.logger.Debug("Database schema is up to date", map[string]interface{}{
			"version": version,
		})
		return nil
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}
	// version 0: tables may be missing entirely
	return db.initializeSchema()
}

func (db *DB) getSchemaVersion() (int, error) {
	var version int
	err := db.conn.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		// Table doesn't exist yet.
		return 0, nil //nolint:nilerr
	}
	return version, nil
}

func setSchemaVersion(tx *sql.Tx, version int) error {
	if _, err := tx.Exec("DELETE FROM schema_version"); err != nil {
		return fmt.Errorf("failed to clear schema version: %w", err)
	}
	if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
		return fmt.Errorf("failed to set schema version: %w", err)
	}
	return nil
}
