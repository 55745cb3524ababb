package results

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/rbg-research/SMM4H-2025/internal/domain"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite result store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// createSchema mirrors migrations/000001 for SQLite.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS classification_runs (
		id TEXT PRIMARY KEY,
		split TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL DEFAULT '',
		model TEXT NOT NULL DEFAULT '',
		note_count INTEGER NOT NULL DEFAULT 0,
		failed_count INTEGER NOT NULL DEFAULT 0,
		started_at DATETIME NOT NULL,
		completed_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_classification_runs_started_at ON classification_runs(started_at);

	CREATE TABLE IF NOT EXISTS note_results (
		run_id TEXT NOT NULL REFERENCES classification_runs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		note_id TEXT NOT NULL,
		note_text TEXT NOT NULL DEFAULT '',
		definition_1 INTEGER NOT NULL DEFAULT 0,
		definition_2 INTEGER NOT NULL DEFAULT 0,
		rule_a INTEGER NOT NULL DEFAULT 0,
		rule_b INTEGER NOT NULL DEFAULT 0,
		rule_c INTEGER NOT NULL DEFAULT 0,
		insomnia INTEGER NOT NULL DEFAULT 0,
		definition_1_evidence TEXT NOT NULL DEFAULT '',
		definition_2_evidence TEXT NOT NULL DEFAULT '',
		rule_b_evidence TEXT NOT NULL DEFAULT '',
		rule_c_evidence TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (run_id, position)
	);

	CREATE INDEX IF NOT EXISTS idx_note_results_note_id ON note_results(note_id);
	`

	_, err := db.Exec(schema)
	return err
}

// SaveRun stores a run and its results. Saving a run again replaces its
// previous results.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *Run, results []domain.NoteResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO classification_runs (
			id, split, source, model, note_count, failed_count, started_at, completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			split = excluded.split,
			source = excluded.source,
			model = excluded.model,
			note_count = excluded.note_count,
			failed_count = excluded.failed_count,
			started_at = excluded.started_at,
			completed_at = excluded.completed_at
	`,
		run.ID, run.Split, run.Source, run.Model,
		run.NoteCount, run.FailedCount, run.StartedAt, run.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM note_results WHERE run_id = ?", run.ID); err != nil {
		return fmt.Errorf("failed to clear previous results: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO note_results (
			run_id, position, note_id, note_text,
			definition_1, definition_2, rule_a, rule_b, rule_c, insomnia,
			definition_1_evidence, definition_2_evidence, rule_b_evidence, rule_c_evidence,
			error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare result insert: %w", err)
	}
	defer stmt.Close()

	for i, res := range results {
		args := append([]interface{}{run.ID, i}, resultArgs(res)...)
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to save result %s: %w", res.Note.NoteID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, split, source, model, note_count, failed_count, started_at, completed_at
		FROM classification_runs
		WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: run %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	return run, nil
}

// ListRuns returns runs with pagination, most recent first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit, offset int) ([]*Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, split, source, model, note_count, failed_count, started_at, completed_at
		FROM classification_runs
		ORDER BY started_at DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	var result []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, run)
	}
	return result, rows.Err()
}

// ListResults returns a run's results in input order.
func (s *SQLiteStore) ListResults(ctx context.Context, runID string) ([]domain.NoteResult, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT note_id, note_text,
			definition_1, definition_2, rule_b, rule_c,
			definition_1_evidence, definition_2_evidence, rule_b_evidence, rule_c_evidence,
			error
		FROM note_results
		WHERE run_id = ?
		ORDER BY position
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	result := []domain.NoteResult{}
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, res)
	}
	return result, rows.Err()
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
