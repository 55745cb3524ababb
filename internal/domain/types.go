// Package domain contains core entities and types for classifying clinical
// notes for insomnia-related symptoms.
//
// A note is classified by two definitions extracted from a text completion
// (nighttime sleep difficulty and daytime impairment) and three rules built
// on top of them:
//
//	Rule A: Definition 1 and Definition 2
//	Rule B: a primary insomnia medication is mentioned
//	Rule C: a secondary insomnia medication is mentioned and either definition holds
//
// The final insomnia status is Rule A or Rule B or Rule C.
package domain

import (
	"encoding/json"
	"errors"
	"strings"
)

// Label is the lowercase yes/no value used in every output view.
type Label string

const (
	LabelYes Label = "yes"
	LabelNo  Label = "no"
)

// ErrInvalidVocabulary marks a medication table that fails validation.
var ErrInvalidVocabulary = errors.New("invalid medication vocabulary")

// LabelFromBool maps true to "yes" and false to "no".
func LabelFromBool(b bool) Label {
	if b {
		return LabelYes
	}
	return LabelNo
}

// Bool reports whether the label is "yes".
func (l Label) Bool() bool {
	return l == LabelYes
}

// String returns the string representation
func (l Label) String() string {
	return string(l)
}

// missingValues are cell values read as not-a-value, in addition to blank
// cells. They follow the markers common CSV tooling writes for empty cells.
var missingValues = map[string]struct{}{
	"#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {},
	"N/A": {}, "NA": {}, "NULL": {}, "NaN": {}, "None": {},
	"n/a": {}, "nan": {}, "null": {},
}

// IsMissingValue reports whether a cell is blank or a not-a-value marker.
// Note IDs are checked with this at load time, so every ID that reaches a
// report is one the report reader accepts.
func IsMissingValue(value string) bool {
	if strings.TrimSpace(value) == "" {
		return true
	}
	_, ok := missingValues[value]
	return ok
}

// ClinicalNote is one input row. It is read once and never modified.
type ClinicalNote struct {
	NoteID string `json:"note_id"`
	Text   string `json:"text"`
}

// ExtractedEvidence holds the two phrase sections parsed from a completion.
// An empty string means the section is absent.
type ExtractedEvidence struct {
	SleepDifficulty   string `json:"sleep_difficulty"`
	DaytimeImpairment string `json:"daytime_impairment"`
}

// VocabularyKind names one of the two medication vocabularies.
type VocabularyKind string

const (
	PrimaryVocabulary   VocabularyKind = "primary"
	SecondaryVocabulary VocabularyKind = "secondary"
)

// MedicationEntry maps a surface term (generic, brand or misspelling) to its
// canonical generic name.
type MedicationEntry struct {
	Term      string `json:"term" yaml:"term"`
	Canonical string `json:"canonical" yaml:"canonical"`
}

// Vocabulary is an ordered medication table. Matching follows entry order.
type Vocabulary struct {
	Kind    VocabularyKind    `json:"kind"`
	Entries []MedicationEntry `json:"entries"`
}

// Validate checks that every entry has a term and no term is declared twice.
func (v Vocabulary) Validate() error {
	seen := make(map[string]struct{}, len(v.Entries))
	for i, e := range v.Entries {
		if strings.TrimSpace(e.Term) == "" {
			return NewValidationError("entries", "term must not be empty", i)
		}
		if strings.TrimSpace(e.Canonical) == "" {
			return NewValidationError("entries", "canonical name must not be empty", e.Term)
		}
		if _, dup := seen[e.Term]; dup {
			return NewValidationError("entries", "duplicate term", e.Term)
		}
		seen[e.Term] = struct{}{}
	}
	return nil
}

// MedicationMatch is the list of vocabulary terms found in a note, in
// vocabulary declaration order.
type MedicationMatch struct {
	Kind  VocabularyKind `json:"kind"`
	Terms []string       `json:"terms"`
}

// Found reports whether any term matched.
func (m MedicationMatch) Found() bool {
	return len(m.Terms) > 0
}

// Evidence joins the matched terms the way they appear in reports.
func (m MedicationMatch) Evidence() string {
	return strings.Join(m.Terms, ", ")
}

// ClassificationRecord holds the five labels and the final status of a note.
// The fields are derived from four inputs and cannot be set independently.
type ClassificationRecord struct {
	definition1 bool
	definition2 bool
	ruleA       bool
	ruleB       bool
	ruleC       bool
	final       bool
}

// NewClassificationRecord derives every label from the two definitions and
// whether primary and secondary medications were found.
func NewClassificationRecord(definition1, definition2, primaryFound, secondaryFound bool) ClassificationRecord {
	r := ClassificationRecord{
		definition1: definition1,
		definition2: definition2,
		ruleA:       definition1 && definition2,
		ruleB:       primaryFound,
		ruleC:       secondaryFound && (definition1 || definition2),
	}
	r.final = r.ruleA || r.ruleB || r.ruleC
	return r
}

// DefaultRecord is the all-"no" record used when a note cannot be classified.
func DefaultRecord() ClassificationRecord {
	return ClassificationRecord{}
}

func (r ClassificationRecord) Definition1() Label { return LabelFromBool(r.definition1) }
func (r ClassificationRecord) Definition2() Label { return LabelFromBool(r.definition2) }
func (r ClassificationRecord) RuleA() Label       { return LabelFromBool(r.ruleA) }
func (r ClassificationRecord) RuleB() Label       { return LabelFromBool(r.ruleB) }
func (r ClassificationRecord) RuleC() Label       { return LabelFromBool(r.ruleC) }
func (r ClassificationRecord) FinalStatus() Label { return LabelFromBool(r.final) }

// Labels returns the labels keyed by their report names.
func (r ClassificationRecord) Labels() map[string]Label {
	return map[string]Label{
		"Definition 1": r.Definition1(),
		"Definition 2": r.Definition2(),
		"Rule A":       r.RuleA(),
		"Rule B":       r.RuleB(),
		"Rule C":       r.RuleC(),
		"Insomnia":     r.FinalStatus(),
	}
}

// MarshalJSON exposes the derived labels.
func (r ClassificationRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Labels())
}

// NoteEvidence is the supporting text reported next to each label.
// Rule A has no evidence of its own.
type NoteEvidence struct {
	Definition1 string `json:"definition_1"`
	Definition2 string `json:"definition_2"`
	RuleB       string `json:"rule_b"`
	RuleC       string `json:"rule_c"`
}

// NoteResult is the classification of one note as it is written to reports.
type NoteResult struct {
	Note     ClinicalNote         `json:"note"`
	Record   ClassificationRecord `json:"record"`
	Evidence NoteEvidence         `json:"evidence"`
	Error    string               `json:"error,omitempty"`
}

// Failed reports whether the default record was substituted for this note.
func (r NoteResult) Failed() bool {
	return r.Error != ""
}
