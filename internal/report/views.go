package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rbg-research/SMM4H-2025/internal/domain"
)

// View file names.
const (
	Subtask1File  = "subtask_1.json"
	Subtask2aFile = "subtask_2a.json"
	Subtask2bFile = "subtask_2b.json"
)

// SummaryEntry is a note's entry in the summary view.
type SummaryEntry struct {
	Insomnia string `json:"Insomnia"`
}

// LabelsEntry is a note's entry in the labels view.
type LabelsEntry struct {
	Definition1 string `json:"Definition 1"`
	Definition2 string `json:"Definition 2"`
	RuleA       string `json:"Rule A"`
	RuleB       string `json:"Rule B"`
	RuleC       string `json:"Rule C"`
}

// EvidenceItem pairs a label with its evidence text.
type EvidenceItem struct {
	Label string   `json:"label"`
	Text  []string `json:"text"`
}

// EvidenceEntry is a note's entry in the evidence view. Rule A has no
// evidence of its own and is omitted.
type EvidenceEntry struct {
	Definition1 EvidenceItem `json:"Definition 1"`
	Definition2 EvidenceItem `json:"Definition 2"`
	RuleB       EvidenceItem `json:"Rule B"`
	RuleC       EvidenceItem `json:"Rule C"`
}

// View maps note IDs to entries and marshals them in first-seen order. A
// repeated note ID replaces the earlier entry in place.
type View[T any] struct {
	ids     []string
	entries map[string]T
}

func newView[T any](size int) *View[T] {
	return &View[T]{ids: make([]string, 0, size), entries: make(map[string]T, size)}
}

func (v *View[T]) set(id string, entry T) {
	if _, exists := v.entries[id]; !exists {
		v.ids = append(v.ids, id)
	}
	v.entries[id] = entry
}

// Get returns the entry for a note ID.
func (v *View[T]) Get(id string) (T, bool) {
	entry, ok := v.entries[id]
	return entry, ok
}

// IDs returns the note IDs in output order.
func (v *View[T]) IDs() []string {
	return append([]string(nil), v.ids...)
}

// Len returns the number of notes in the view.
func (v *View[T]) Len() int {
	return len(v.ids)
}

// MarshalJSON renders the view as a JSON object in note order.
func (v *View[T]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	buf.WriteByte('{')
	for i, id := range v.ids {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := enc.Encode(id); err != nil {
			return nil, err
		}
		buf.Truncate(buf.Len() - 1)
		buf.WriteByte(':')
		if err := enc.Encode(v.entries[id]); err != nil {
			return nil, err
		}
		buf.Truncate(buf.Len() - 1)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Views holds the three report projections of one run.
type Views struct {
	Summary  *View[SummaryEntry]
	Labels   *View[LabelsEntry]
	Evidence *View[EvidenceEntry]
}

// BuildViews projects combined table rows into the three views. Every view
// applies the same note_id trimming and label normalization.
func BuildViews(rows []Row) (*Views, error) {
	views := &Views{
		Summary:  newView[SummaryEntry](len(rows)),
		Labels:   newView[LabelsEntry](len(rows)),
		Evidence: newView[EvidenceEntry](len(rows)),
	}

	for i, row := range rows {
		id, err := noteID(row, i+1)
		if err != nil {
			return nil, err
		}

		views.Summary.set(id, SummaryEntry{
			Insomnia: SafeGet(row, ColumnInsomniaPred),
		})
		views.Labels.set(id, LabelsEntry{
			Definition1: SafeGet(row, ColumnDefinition1Pred),
			Definition2: SafeGet(row, ColumnDefinition2Pred),
			RuleA:       SafeGet(row, ColumnRuleAPred),
			RuleB:       SafeGet(row, ColumnRuleBPred),
			RuleC:       SafeGet(row, ColumnRuleCPred),
		})
		views.Evidence.set(id, EvidenceEntry{
			Definition1: evidenceItem(row, ColumnDefinition1Pred, ColumnDefinition1Evidence),
			Definition2: evidenceItem(row, ColumnDefinition2Pred, ColumnDefinition2Evidence),
			RuleB:       evidenceItem(row, ColumnRuleBPred, ColumnRuleBEvidence),
			RuleC:       evidenceItem(row, ColumnRuleCPred, ColumnRuleCEvidence),
		})
	}

	return views, nil
}

// ViewsFromResults builds the views directly from in-memory results.
func ViewsFromResults(results []domain.NoteResult) (*Views, error) {
	return BuildViews(RowsFromResults(results))
}

// Files returns each view with its file name.
func (v *Views) Files() map[string]json.Marshaler {
	return map[string]json.Marshaler{
		Subtask1File:  v.Summary,
		Subtask2aFile: v.Labels,
		Subtask2bFile: v.Evidence,
	}
}

// ByName returns one view by its short name: "1", "2a" or "2b".
func (v *Views) ByName(name string) (json.Marshaler, bool) {
	switch strings.ToLower(strings.TrimPrefix(name, "subtask_")) {
	case "1":
		return v.Summary, true
	case "2a":
		return v.Labels, true
	case "2b":
		return v.Evidence, true
	default:
		return nil, false
	}
}

func evidenceItem(row Row, labelColumn, textColumn string) EvidenceItem {
	return EvidenceItem{
		Label: SafeGet(row, labelColumn),
		Text:  ProcessText(row, textColumn),
	}
}

func noteID(row Row, n int) (string, error) {
	id, ok := row[ColumnNoteID]
	id = strings.TrimSpace(id)
	if !ok || domain.IsMissingValue(id) {
		return "", &domain.DataLoadError{
			Row: n,
			Err: domain.NewValidationError(ColumnNoteID, "note_id is missing", nil),
		}
	}
	return id, nil
}

// MarshalIndented renders a view with four-space indentation.
func MarshalIndented(view json.Marshaler) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(view); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrReportWrite, err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
