package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rbg-research/SMM4H-2025/internal/config"
	"github.com/rbg-research/SMM4H-2025/internal/domain"
)

// ClassifierService classifies a single clinical note: one completion call
// followed by section parsing, medication matching and rule composition.
type ClassifierService struct {
	logger     *logrus.Logger
	completion domain.CompletionService
	parser     *ResponseParser
	primary    *MedicationMatcher
	secondary  *MedicationMatcher
	ruleEngine *RuleEngine
}

// NewClassifierService creates a new classifier service
func NewClassifierService(
	logger *logrus.Logger,
	completion domain.CompletionService,
	vocab config.Vocabularies,
) (*ClassifierService, error) {
	primary, err := NewMedicationMatcher(vocab.Primary)
	if err != nil {
		return nil, fmt.Errorf("failed to build primary medication matcher: %w", err)
	}
	secondary, err := NewMedicationMatcher(vocab.Secondary)
	if err != nil {
		return nil, fmt.Errorf("failed to build secondary medication matcher: %w", err)
	}

	return &ClassifierService{
		logger:     logger,
		completion: completion,
		parser:     NewResponseParser(),
		primary:    primary,
		secondary:  secondary,
		ruleEngine: NewRuleEngine(logger),
	}, nil
}

// Classify runs the full classification for one note. The only error it
// returns wraps domain.ErrCompletionService; a response without the expected
// sections is classified with empty evidence.
func (c *ClassifierService) Classify(ctx context.Context, note domain.ClinicalNote) (*domain.NoteResult, error) {
	startTime := time.Now()

	completion, err := c.completion.Complete(ctx, RenderPrompt(note.Text))
	if err != nil {
		return nil, fmt.Errorf("%w: note %s: %w", domain.ErrCompletionService, note.NoteID, err)
	}

	result := c.ClassifyCompletion(note, completion)

	c.logger.WithFields(logrus.Fields{
		"note_id":         note.NoteID,
		"insomnia":        result.Record.FinalStatus(),
		"processing_time": time.Since(startTime),
	}).Info("Note classification completed")

	return &result, nil
}

// ClassifyCompletion classifies a note against an already obtained
// completion, without calling the completion service.
func (c *ClassifierService) ClassifyCompletion(note domain.ClinicalNote, completion string) domain.NoteResult {
	evidence := c.parser.Parse(completion)
	c.logger.WithFields(logrus.Fields{
		"note_id":            note.NoteID,
		"sleep_difficulty":   evidence.SleepDifficulty,
		"daytime_impairment": evidence.DaytimeImpairment,
	}).Debug("Parsed completion sections")

	record, noteEvidence := c.ruleEngine.Compose(
		evidence,
		c.primary.Match(note.Text),
		c.secondary.Match(note.Text),
	)
	return domain.NoteResult{Note: note, Record: record, Evidence: noteEvidence}
}
