package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"factgraph/internal/errors"
	"factgraph/internal/facts"

	"github.com/google/uuid"
)

// timeLayout is fixed-width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Run describes one indexing run persisted in the sink.
type Run struct {
	ID            string          `json:"id"`
	Root          string          `json:"root"`
	Frontend      string          `json:"frontend"`
	SchemaName    string          `json:"schemaName"`
	SchemaVersion int             `json:"schemaVersion"`
	StartedAt     time.Time       `json:"startedAt"`
	FinishedAt    time.Time       `json:"finishedAt"`
	FactCount     int             `json:"factCount"`
	Stats         json.RawMessage `json:"stats"`
}

// SaveRun stores the blocks of one run in a single transaction and returns
// the run with its generated id filled in.
func (db *DB) SaveRun(ctx context.Context, run Run, blocks []facts.Block) (Run, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now().UTC()
	}
	if len(run.Stats) == 0 {
		run.Stats = json.RawMessage("{}")
	}
	run.FactCount = 0
	for _, b := range blocks {
		run.FactCount += len(b.Facts)
	}

	err := db.WithTx(func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO runs
			(id, root, frontend, schema_name, schema_version, started_at, finished_at, fact_count, stats_json)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, run.Root, run.Frontend, run.SchemaName, run.SchemaVersion,
			run.StartedAt.UTC().Format(timeLayout), run.FinishedAt.UTC().Format(timeLayout),
			run.FactCount, string(run.Stats))
		if err != nil {
			return fmt.Errorf("insert run: %w", err)
		}

		for bi, b := range blocks {
			if _, err := tx.ExecContext(ctx, "INSERT INTO blocks (run_id, block, predicate) VALUES (?, ?, ?)",
				run.ID, bi, b.Predicate); err != nil {
				return fmt.Errorf("insert block %s: %w", b.Predicate, err)
			}
		}

		stmt, err := tx.PrepareContext(ctx, `INSERT INTO facts
			(run_id, block, ordinal, predicate, fact_id, key_json) VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare fact insert: %w", err)
		}
		defer stmt.Close()

		for bi, b := range blocks {
			for fi, f := range b.Facts {
				key, err := json.Marshal(f.Key)
				if err != nil {
					return fmt.Errorf("encode fact %d: %w", f.ID, err)
				}
				if _, err := stmt.ExecContext(ctx, run.ID, bi, fi, b.Predicate, int64(f.ID), string(key)); err != nil {
					return fmt.Errorf("insert fact %d: %w", f.ID, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return Run{}, errors.New(errors.SinkFailed, fmt.Sprintf("failed to save run to %s", db.dbPath), err)
	}

	db.logger.Debug("Saved run", map[string]interface{}{
		"run":   run.ID,
		"facts": run.FactCount,
	})
	return run, nil
}

// ListRuns returns all runs, newest first.
func (db *DB) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT
		id, root, frontend, schema_name, schema_version, started_at, finished_at, fact_count, stats_json
		FROM runs ORDER BY finished_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun returns one run by id. An empty id selects the newest run.
func (db *DB) GetRun(ctx context.Context, id string) (Run, error) {
	query := `SELECT id, root, frontend, schema_name, schema_version, started_at, finished_at, fact_count, stats_json
		FROM runs WHERE id = ?`
	args := []interface{}{id}
	if id == "" {
		query = `SELECT id, root, frontend, schema_name, schema_version, started_at, finished_at, fact_count, stats_json
			FROM runs ORDER BY finished_at DESC, id LIMIT 1`
		args = nil
	}

	run, err := scanRun(db.conn.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return Run{}, errors.Newf(errors.IndexMissing, "no run %q in %s", id, db.dbPath)
	}
	return run, err
}

// LoadBlocks reads the blocks of a run back in their stored order.
func (db *DB) LoadBlocks(ctx context.Context, runID string) ([]facts.Block, error) {
	type rawFact struct {
		ID  int64           `json:"id"`
		Key json.RawMessage `json:"key"`
	}
	type rawBlock struct {
		Predicate string    `json:"predicate"`
		Facts     []rawFact `json:"facts"`
	}

	brows, err := db.conn.QueryContext(ctx, "SELECT predicate FROM blocks WHERE run_id = ? ORDER BY block", runID)
	if err != nil {
		return nil, err
	}
	raw := []rawBlock{}
	for brows.Next() {
		var predicate string
		if err := brows.Scan(&predicate); err != nil {
			brows.Close()
			return nil, err
		}
		raw = append(raw, rawBlock{Predicate: predicate, Facts: []rawFact{}})
	}
	brows.Close()
	if err := brows.Err(); err != nil {
		return nil, err
	}

	rows, err := db.conn.QueryContext(ctx, `SELECT block, fact_id, key_json
		FROM facts WHERE run_id = ? ORDER BY block, ordinal`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			block int
			id    int64
			key   string
		)
		if err := rows.Scan(&block, &id, &key); err != nil {
			return nil, err
		}
		if block < 0 || block >= len(raw) {
			return nil, errors.Newf(errors.InternalError, "run %s: fact %d in unknown block %d", runID, id, block)
		}
		raw[block].Facts = append(raw[block].Facts, rawFact{ID: id, Key: json.RawMessage(key)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	return facts.DecodeBlocks(data)
}

// DeleteRun removes a run and its facts.
func (db *DB) DeleteRun(ctx context.Context, id string) error {
	return db.WithTx(func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM facts WHERE run_id = ?", id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM blocks WHERE run_id = ?", id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errors.Newf(errors.IndexMissing, "no run %q", id)
		}
		return nil
	})
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run               Run
		started, finished string
		stats             string
	)
	if err := row.Scan(&run.ID, &run.Root, &run.Frontend, &run.SchemaName, &run.SchemaVersion,
		&started, &finished, &run.FactCount, &stats); err != nil {
		return Run{}, err
	}
	var err error
	if run.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return Run{}, fmt.Errorf("run %s: bad started_at: %w", run.ID, err)
	}
	if run.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
		return Run{}, fmt.Errorf("run %s: bad finished_at: %w", run.ID, err)
	}
	run.Stats = json.RawMessage(stats)
	return run, nil
}
