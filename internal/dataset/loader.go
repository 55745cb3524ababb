// Package dataset reads clinical notes from delimited files.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rbg-research/SMM4H-2025/internal/domain"
)

// Required input columns.
const (
	TextColumn   = "text"
	NoteIDColumn = "note_id"
)

const utf8BOM = "\ufeff"

// ResolvePath returns the explicit input path when set, otherwise
// <data_dir>/<data_split>.csv.
func ResolvePath(cfg domain.PipelineConfig) string {
	if cfg.InputPath != "" {
		return cfg.InputPath
	}
	return filepath.Join(cfg.DataDir, cfg.DataSplit+".csv")
}

// LoadNotes reads every note from a CSV file. Any problem with the file is
// returned as a *domain.DataLoadError.
func LoadNotes(path string) ([]domain.ClinicalNote, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &domain.DataLoadError{Path: path, Err: err}
	}
	defer f.Close()

	return ReadNotes(f, path)
}

// ReadNotes reads notes from CSV content with a header row containing at
// least the text and note_id columns. Other columns are ignored. Rows are
// numbered from 1 after the header.
func ReadNotes(r io.Reader, name string) ([]domain.ClinicalNote, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("missing header row")
		}
		return nil, &domain.DataLoadError{Path: name, Err: err}
	}

	textIdx, idIdx := -1, -1
	for i, column := range header {
		switch strings.TrimSpace(strings.TrimPrefix(column, utf8BOM)) {
		case TextColumn:
			textIdx = i
		case NoteIDColumn:
			idIdx = i
		}
	}
	if textIdx < 0 || idIdx < 0 {
		return nil, &domain.DataLoadError{
			Path: name,
			Err:  fmt.Errorf("header must contain %q and %q columns, got %v", TextColumn, NoteIDColumn, header),
		}
	}

	var notes []domain.ClinicalNote
	seen := make(map[string]int)
	for row := 1; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &domain.DataLoadError{Path: name, Row: row, Err: err}
		}

		var noteID string
		if idIdx < len(record) {
			noteID = strings.TrimSpace(record[idIdx])
		}
		if domain.IsMissingValue(noteID) {
			return nil, &domain.DataLoadError{
				Path: name,
				Row:  row,
				Err:  domain.NewValidationError(NoteIDColumn, "note_id is missing", noteID),
			}
		}
		if first, dup := seen[noteID]; dup {
			return nil, &domain.DataLoadError{
				Path: name,
				Row:  row,
				Err:  domain.NewValidationError(NoteIDColumn, fmt.Sprintf("duplicate note_id, first seen on row %d", first), noteID),
			}
		}
		seen[noteID] = row

		var text string
		if textIdx < len(record) {
			text = record[textIdx]
		}
		notes = append(notes, domain.ClinicalNote{NoteID: noteID, Text: text})
	}

	return notes, nil
}
