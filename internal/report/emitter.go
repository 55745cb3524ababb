package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/rbg-research/SMM4H-2025/internal/domain"
)

// CombinedFileName is the combined table written under <output_dir>/<split>/.
const CombinedFileName = "output.csv"

// Emitter writes report artifacts under an output directory.
type Emitter struct {
	logger    *logrus.Logger
	outputDir string
}

// NewEmitter creates a new report emitter
func NewEmitter(logger *logrus.Logger, outputDir string) *Emitter {
	return &Emitter{logger: logger, outputDir: outputDir}
}

// CombinedPath returns where the combined table for a split is written.
func (e *Emitter) CombinedPath(split string) string {
	return filepath.Join(e.outputDir, split, CombinedFileName)
}

// WriteCombinedFile writes the combined table for a split and returns its path.
func (e *Emitter) WriteCombinedFile(split string, results []domain.NoteResult) (string, error) {
	path := e.CombinedPath(split)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("%w: creating output directory: %w", domain.ErrReportWrite, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrReportWrite, err)
	}
	if err := WriteCombined(f, results); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrReportWrite, err)
	}

	e.logger.WithFields(logrus.Fields{
		"path":  path,
		"notes": len(results),
	}).Info("Combined table saved")
	return path, nil
}

// GenerateFromCombined reads a combined table back and writes the three JSON
// views to the output directory.
func (e *Emitter) GenerateFromCombined(csvPath string) (*Views, error) {
	f, err := os.Open(csvPath)
	if err != nil {
		return nil, &domain.DataLoadError{Path: csvPath, Err: err}
	}
	defer f.Close()

	rows, err := ReadCombined(f, csvPath)
	if err != nil {
		return nil, err
	}

	views, err := BuildViews(rows)
	if err != nil {
		return nil, err
	}
	if err := e.WriteViews(views); err != nil {
		return nil, err
	}
	return views, nil
}

// WriteViews writes subtask_1.json, subtask_2a.json and subtask_2b.json.
func (e *Emitter) WriteViews(views *Views) error {
	if err := os.MkdirAll(e.outputDir, 0755); err != nil {
		return fmt.Errorf("%w: creating output directory: %w", domain.ErrReportWrite, err)
	}

	for name, view := range views.Files() {
		data, err := MarshalIndented(view)
		if err != nil {
			return err
		}

		path := filepath.Join(e.outputDir, name)
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("%w: %w", domain.ErrReportWrite, err)
		}
		e.logger.WithField("path", path).Info("JSON file saved")
	}
	return nil
}
