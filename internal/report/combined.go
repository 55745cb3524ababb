// Package report writes classification results as the combined CSV table
// and the three JSON views keyed by note_id.
package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rbg-research/SMM4H-2025/internal/domain"
)

// Combined table columns.
const (
	ColumnText                = "text"
	ColumnNoteID              = "note_id"
	ColumnDefinition1Pred     = "Definition 1 Pred"
	ColumnDefinition2Pred     = "Definition 2 Pred"
	ColumnRuleAPred           = "Rule A Pred"
	ColumnRuleBPred           = "Rule B Pred"
	ColumnRuleCPred           = "Rule C Pred"
	ColumnInsomniaPred        = "Insomnia Pred"
	ColumnDefinition1Evidence = "Definition 1 Evidence"
	ColumnDefinition2Evidence = "Definition 2 Evidence"
	ColumnRuleBEvidence       = "Rule B Evidence"
	ColumnRuleCEvidence       = "Rule C Evidence"
)

// CombinedColumns is the header of the combined table, in order.
var CombinedColumns = []string{
	ColumnText,
	ColumnNoteID,
	ColumnDefinition1Pred,
	ColumnDefinition2Pred,
	ColumnRuleAPred,
	ColumnRuleBPred,
	ColumnRuleCPred,
	ColumnInsomniaPred,
	ColumnDefinition1Evidence,
	ColumnDefinition2Evidence,
	ColumnRuleBEvidence,
	ColumnRuleCEvidence,
}

// Row is one combined table row keyed by column name. A column absent from
// the map is a missing cell.
type Row map[string]string

// RowFromResult flattens a note result into a combined table row.
func RowFromResult(r domain.NoteResult) Row {
	return Row{
		ColumnText:                r.Note.Text,
		ColumnNoteID:              r.Note.NoteID,
		ColumnDefinition1Pred:     r.Record.Definition1().String(),
		ColumnDefinition2Pred:     r.Record.Definition2().String(),
		ColumnRuleAPred:           r.Record.RuleA().String(),
		ColumnRuleBPred:           r.Record.RuleB().String(),
		ColumnRuleCPred:           r.Record.RuleC().String(),
		ColumnInsomniaPred:        r.Record.FinalStatus().String(),
		ColumnDefinition1Evidence: r.Evidence.Definition1,
		ColumnDefinition2Evidence: r.Evidence.Definition2,
		ColumnRuleBEvidence:       r.Evidence.RuleB,
		ColumnRuleCEvidence:       r.Evidence.RuleC,
	}
}

// RowsFromResults flattens results, keeping their order.
func RowsFromResults(results []domain.NoteResult) []Row {
	rows := make([]Row, len(results))
	for i, r := range results {
		rows[i] = RowFromResult(r)
	}
	return rows
}

// WriteCombined writes the combined table with a header row.
func WriteCombined(w io.Writer, results []domain.NoteResult) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(CombinedColumns); err != nil {
		return fmt.Errorf("%w: writing header: %w", domain.ErrReportWrite, err)
	}

	record := make([]string, len(CombinedColumns))
	for _, row := range RowsFromResults(results) {
		for i, column := range CombinedColumns {
			record[i] = row[column]
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("%w: writing row for note %s: %w", domain.ErrReportWrite, row[ColumnNoteID], err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrReportWrite, err)
	}
	return nil
}

// ReadCombined reads a combined table. Header names are trimmed; columns
// other than note_id may be missing. A row without a note_id is a data load
// error.
func ReadCombined(r io.Reader, name string) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("missing header row")
		}
		return nil, &domain.DataLoadError{Path: name, Err: err}
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	var rows []Row
	for n := 1; ; n++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &domain.DataLoadError{Path: name, Row: n, Err: err}
		}

		row := make(Row, len(header))
		for i, column := range header {
			if i < len(record) {
				row[column] = record[i]
			}
		}
		if domain.IsMissingValue(strings.TrimSpace(row[ColumnNoteID])) {
			return nil, &domain.DataLoadError{
				Path: name,
				Row:  n,
				Err:  domain.NewValidationError(ColumnNoteID, "note_id is missing", nil),
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// SafeGet returns the lowercase trimmed cell, or "no" for a missing cell.
func SafeGet(row Row, column string) string {
	value, ok := row[column]
	if !ok || domain.IsMissingValue(value) {
		return domain.LabelNo.String()
	}
	return strings.ToLower(strings.TrimSpace(value))
}

// ProcessText returns the evidence cell as a one-element list, or an empty
// list for a missing cell. The text itself is kept verbatim.
func ProcessText(row Row, column string) []string {
	value, ok := row[column]
	if !ok || domain.IsMissingValue(value) {
		return []string{}
	}
	return []string{value}
}
