package service

import (
	"github.com/sirupsen/logrus"

	"github.com/rbg-research/SMM4H-2025/internal/domain"
)

// RuleEngine composes the insomnia rules from parsed evidence and medication
// matches.
type RuleEngine struct {
	logger *logrus.Logger
}

// NewRuleEngine creates a new rule engine
func NewRuleEngine(logger *logrus.Logger) *RuleEngine {
	return &RuleEngine{logger: logger}
}

// Compose derives the classification record and the evidence reported with
// it. Secondary medication evidence is only kept when Rule C fires.
func (e *RuleEngine) Compose(evidence domain.ExtractedEvidence, primary, secondary domain.MedicationMatch) (domain.ClassificationRecord, domain.NoteEvidence) {
	record := domain.NewClassificationRecord(
		evidence.SleepDifficulty != "",
		evidence.DaytimeImpairment != "",
		primary.Found(),
		secondary.Found(),
	)

	noteEvidence := domain.NoteEvidence{
		Definition1: evidence.SleepDifficulty,
		Definition2: evidence.DaytimeImpairment,
		RuleB:       primary.Evidence(),
	}
	if record.RuleC().Bool() {
		noteEvidence.RuleC = secondary.Evidence()
	} else if secondary.Found() {
		e.logger.WithField("secondary_medications", secondary.Evidence()).
			Debug("Secondary medications found without a positive definition, Rule C not applied")
	}

	e.logger.WithFields(logrus.Fields{
		"definition_1": record.Definition1(),
		"definition_2": record.Definition2(),
		"rule_a":       record.RuleA(),
		"rule_b":       record.RuleB(),
		"rule_c":       record.RuleC(),
		"insomnia":     record.FinalStatus(),
	}).Debug("Composed insomnia rules")

	return record, noteEvidence
}
