package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/rbg-research/SMM4H-2025/internal/domain"
	"github.com/rbg-research/SMM4H-2025/internal/logging"
)

// Pipeline classifies a batch of notes with a bounded number of workers.
// Results keep input order regardless of completion order.
type Pipeline struct {
	logger     *logrus.Logger
	classifier domain.NoteClassifier
	workers    int
}

// NewPipeline creates a pipeline. Fewer than one worker is treated as one,
// which processes notes strictly in sequence.
func NewPipeline(logger *logrus.Logger, classifier domain.NoteClassifier, workers int) *Pipeline {
	if workers < 1 {
		workers = 1
	}
	return &Pipeline{
		logger:     logger,
		classifier: classifier,
		workers:    workers,
	}
}

// Run classifies every note. A note that fails is given the default record
// and its error message; the batch continues. Run only returns an error when
// ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context, notes []domain.ClinicalNote) ([]domain.NoteResult, error) {
	startTime := time.Now()
	total := len(notes)
	results := make([]domain.NoteResult, total)

	p.logger.WithFields(logrus.Fields{
		"notes":   total,
		"workers": p.workers,
	}).Info("Starting classification run")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for i, note := range notes {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			results[i] = p.classifyOne(gctx, i, total, note)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	failed := 0
	for _, r := range results {
		if r.Failed() {
			failed++
		}
	}
	p.logger.WithFields(logrus.Fields{
		"notes":           total,
		"failed":          failed,
		"processing_time": time.Since(startTime),
	}).Info("Classification run completed")

	return results, nil
}

func (p *Pipeline) classifyOne(ctx context.Context, index, total int, note domain.ClinicalNote) domain.NoteResult {
	entry := p.logger.WithFields(logrus.Fields{
		"note_id": note.NoteID,
		"index":   index + 1,
		"total":   total,
	})
	entry.WithField("preview", logging.Preview(note.Text)).Info("Processing note")

	result, err := p.classifier.Classify(ctx, note)
	if err != nil {
		entry.WithError(err).Warn("Note classification failed, using default record")
		return domain.NoteResult{
			Note:   note,
			Record: domain.DefaultRecord(),
			Error:  err.Error(),
		}
	}
	return *result
}
