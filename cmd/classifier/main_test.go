package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/rbg-research/SMM4H-2025/internal/domain"
	"github.com/rbg-research/SMM4H-2025/internal/report"
	"github.com/rbg-research/SMM4H-2025/internal/results"
)

func resetFlags(t *testing.T) {
	t.Helper()
	reset := func() {
		configFile, logLevel = "", ""
		inputPath, dataDir, dataSplit, outputDir, vocabularyFile = "", "", "", "", ""
		workers = 0
		reportCSV, reportOut = "", ""
	}
	reset()
	t.Cleanup(reset)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// completionServer answers OpenAI-style completion requests. Prompts
// containing "FAIL" get a 500.
func completionServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Prompt string `json:"prompt"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		if strings.Contains(req.Prompt, "FAIL") {
			http.Error(w, "model crashed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]string{{
				"text": "Sleep Difficulty Phrases:\nlying awake for hours\n\nDaytime Impairment Phrases:\nunknown<end_of_turn>",
			}},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func readJSON(t *testing.T, path string, v interface{}) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, v))
}

func TestClassifyCommand(t *testing.T) {
	resetFlags(t)
	server := completionServer(t)
	dir := t.TempDir()

	writeFile(t, filepath.Join(dir, "data", "validation.csv"),
		"note_id,text\n"+
			"11,\"Lying awake for hours, Ambien 5mg qhs.\"\n"+
			"12,FAIL this note\n"+
			"13,\"No sleep complaints, on Melatonin.\"\n")

	dbPath := filepath.Join(dir, "runs.db")
	configFile = filepath.Join(dir, "config.yaml")
	writeFile(t, configFile, `
completion:
  base_url: `+server.URL+`/v1
pipeline:
  data_dir: `+filepath.Join(dir, "data")+`
  output_dir: `+filepath.Join(dir, "results")+`
storage:
  driver: sqlite
  sqlite_path: `+dbPath+`
logging:
  level: error
`)
	dataSplit = "validation"
	workers = 2

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	require.NoError(t, runClassify(cmd, nil))
	assert.Contains(t, out.String(), "Classified 3 notes (1 failed)")

	resultsDir := filepath.Join(dir, "results")
	_, err := os.Stat(filepath.Join(resultsDir, "validation", report.CombinedFileName))
	require.NoError(t, err)

	var summary map[string]map[string]string
	readJSON(t, filepath.Join(resultsDir, report.Subtask1File), &summary)
	assert.Equal(t, "yes", summary["11"]["Insomnia"])
	assert.Equal(t, "no", summary["12"]["Insomnia"])
	// Melatonin with sleep difficulty satisfies Rule C.
	assert.Equal(t, "yes", summary["13"]["Insomnia"])

	var labels map[string]map[string]string
	readJSON(t, filepath.Join(resultsDir, report.Subtask2aFile), &labels)
	assert.Equal(t, "yes", labels["11"]["Rule B"])
	assert.Equal(t, "no", labels["11"]["Rule A"])
	assert.Equal(t, "yes", labels["13"]["Rule C"])

	var evidence map[string]map[string]report.EvidenceItem
	readJSON(t, filepath.Join(resultsDir, report.Subtask2bFile), &evidence)
	assert.Equal(t, []string{"Ambien"}, evidence["11"]["Rule B"].Text)
	assert.Equal(t, []string{}, evidence["12"]["Definition 1"].Text)

	store, err := results.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	runs, err := store.ListRuns(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "validation", runs[0].Split)
	assert.Equal(t, 3, runs[0].NoteCount)
	assert.Equal(t, 1, runs[0].FailedCount)
}

func TestClassifyCommand_MissingDataset(t *testing.T) {
	resetFlags(t)
	dir := t.TempDir()
	configFile = filepath.Join(dir, "config.yaml")
	writeFile(t, configFile, "logging:\n  level: error\n")
	inputPath = filepath.Join(dir, "absent.csv")
	outputDir = filepath.Join(dir, "results")

	err := runClassify(&cobra.Command{}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDataLoad)
}

func TestReportCommand(t *testing.T) {
	resetFlags(t)
	dir := t.TempDir()
	configFile = filepath.Join(dir, "config.yaml")
	writeFile(t, configFile, "logging:\n  level: error\n")

	var csv bytes.Buffer
	require.NoError(t, report.WriteCombined(&csv, []domain.NoteResult{{
		Note:     domain.ClinicalNote{NoteID: "5", Text: "t"},
		Record:   domain.NewClassificationRecord(true, true, false, false),
		Evidence: domain.NoteEvidence{Definition1: "insomnia", Definition2: "fatigue"},
	}}))
	reportCSV = filepath.Join(dir, "output.csv")
	writeFile(t, reportCSV, csv.String())
	reportOut = filepath.Join(dir, "views")

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	require.NoError(t, runReport(cmd, nil))
	assert.Contains(t, out.String(), "Wrote views for 1 notes")

	for _, name := range []string{report.Subtask1File, report.Subtask2aFile, report.Subtask2bFile} {
		_, err := os.Stat(filepath.Join(reportOut, name))
		assert.NoError(t, err, name)
	}

	var labels map[string]map[string]string
	readJSON(t, filepath.Join(reportOut, report.Subtask2aFile), &labels)
	assert.Equal(t, "yes", labels["5"]["Rule A"])
}

func TestVocabularyCommand(t *testing.T) {
	resetFlags(t)
	dir := t.TempDir()
	configFile = filepath.Join(dir, "config.yaml")
	writeFile(t, configFile, "{}\n")

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	require.NoError(t, runVocabulary(cmd, nil))

	var file struct {
		Primary   []domain.MedicationEntry `yaml:"primary"`
		Secondary []domain.MedicationEntry `yaml:"secondary"`
	}
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &file))
	require.Len(t, file.Primary, 22)
	assert.Equal(t, "Estazolam", file.Primary[0].Term)
	assert.Len(t, file.Secondary, 32)
}

func TestLoadConfig_Overrides(t *testing.T) {
	resetFlags(t)
	dir := t.TempDir()
	configFile = filepath.Join(dir, "config.yaml")
	writeFile(t, configFile, "pipeline:\n  data_split: test\n")
	logLevel = "debug"

	manager, err := loadConfig(map[string]interface{}{
		"pipeline.data_split": "train",
		"pipeline.output_dir": "",
	})
	require.NoError(t, err)
	assert.Equal(t, "train", manager.GetPipelineConfig().DataSplit)
	assert.Equal(t, "results/", manager.GetPipelineConfig().OutputDir)
	assert.Equal(t, "debug", manager.GetConfig().Logging.Level)
}
