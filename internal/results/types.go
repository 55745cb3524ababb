// Package results persists classification runs and their per-note results.
package results

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/rbg-research/SMM4H-2025/internal/domain"
)

// ErrStorageDisabled is returned by Open when no storage driver is configured.
var ErrStorageDisabled = errors.New("result storage is disabled")

// Run describes one classification run.
type Run struct {
	ID          string    `json:"id"`
	Split       string    `json:"split,omitempty"`
	Source      string    `json:"source,omitempty"`
	Model       string    `json:"model,omitempty"`
	NoteCount   int       `json:"note_count"`
	FailedCount int       `json:"failed_count"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// NewRun starts a run record with a fresh ID.
func NewRun(split, source, model string) *Run {
	return &Run{
		ID:        uuid.NewString(),
		Split:     split,
		Source:    source,
		Model:     model,
		StartedAt: time.Now().UTC(),
	}
}

// Complete fills in the counts and completion time from the run's results.
func (r *Run) Complete(results []domain.NoteResult) {
	r.NoteCount = len(results)
	r.FailedCount = 0
	for _, res := range results {
		if res.Failed() {
			r.FailedCount++
		}
	}
	r.CompletedAt = time.Now().UTC()
}

// Store defines the interface for result storage operations.
type Store interface {
	// SaveRun stores a run and all of its results in one transaction.
	SaveRun(ctx context.Context, run *Run, results []domain.NoteResult) error

	// GetRun returns a run by ID, or an error matching domain.ErrNotFound.
	GetRun(ctx context.Context, id string) (*Run, error)

	// ListRuns returns runs, most recent first.
	ListRuns(ctx context.Context, limit, offset int) ([]*Run, error)

	// ListResults returns a run's results in input order.
	ListResults(ctx context.Context, runID string) ([]domain.NoteResult, error)

	// Close closes the store and releases resources.
	Close() error
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s scanner) (*Run, error) {
	run := &Run{}
	err := s.Scan(
		&run.ID, &run.Split, &run.Source, &run.Model,
		&run.NoteCount, &run.FailedCount, &run.StartedAt, &run.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	run.StartedAt = run.StartedAt.UTC()
	run.CompletedAt = run.CompletedAt.UTC()
	return run, nil
}

// scanResult rebuilds a note result. The record is derived again from the
// stored definitions and medication rules so its invariants always hold.
func scanResult(s scanner) (domain.NoteResult, error) {
	var (
		res                                    domain.NoteResult
		definition1, definition2, ruleB, ruleC bool
	)
	err := s.Scan(
		&res.Note.NoteID, &res.Note.Text,
		&definition1, &definition2, &ruleB, &ruleC,
		&res.Evidence.Definition1, &res.Evidence.Definition2,
		&res.Evidence.RuleB, &res.Evidence.RuleC,
		&res.Error,
	)
	if err != nil {
		return domain.NoteResult{}, err
	}
	res.Record = domain.NewClassificationRecord(definition1, definition2, ruleB, ruleC)
	return res, nil
}

// resultArgs returns the column values stored for one result, after run_id
// and position.
func resultArgs(res domain.NoteResult) []interface{} {
	r := res.Record
	return []interface{}{
		res.Note.NoteID,
		res.Note.Text,
		r.Definition1().Bool(),
		r.Definition2().Bool(),
		r.RuleA().Bool(),
		r.RuleB().Bool(),
		r.RuleC().Bool(),
		r.FinalStatus().Bool(),
		res.Evidence.Definition1,
		res.Evidence.Definition2,
		res.Evidence.RuleB,
		res.Evidence.RuleC,
		res.Error,
	}
}
