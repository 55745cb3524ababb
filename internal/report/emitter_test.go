package report

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rbg-research/SMM4H-2025/internal/domain"
)

func TestEmitter_WriteAndGenerate(t *testing.T) {
	logger, hook := test.NewNullLogger()
	dir := t.TempDir()
	emitter := NewEmitter(logger, dir)

	path, err := emitter.WriteCombinedFile("test", sampleResults())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "test", "output.csv"), path)

	views, err := emitter.GenerateFromCombined(path)
	require.NoError(t, err)
	assert.Equal(t, 3, views.Summary.Len())

	for _, name := range []string{Subtask1File, Subtask2aFile, Subtask2bFile} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err, name)

		var decoded map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &decoded), name)
		assert.Len(t, decoded, 3, name)
	}

	data, err := os.ReadFile(filepath.Join(dir, Subtask2aFile))
	require.NoError(t, err)
	var labels map[string]LabelsEntry
	require.NoError(t, json.Unmarshal(data, &labels))
	assert.Equal(t, LabelsEntry{Definition1: "yes", Definition2: "yes", RuleA: "yes", RuleB: "yes", RuleC: "yes"}, labels["101"])
	assert.Equal(t, LabelsEntry{Definition1: "no", Definition2: "no", RuleA: "no", RuleB: "no", RuleC: "no"}, labels["103"])

	assert.NotEmpty(t, hook.AllEntries())
}

func TestEmitter_GenerateFromCombined_MissingFile(t *testing.T) {
	logger, _ := test.NewNullLogger()
	emitter := NewEmitter(logger, t.TempDir())

	_, err := emitter.GenerateFromCombined(filepath.Join(t.TempDir(), "absent.csv"))
	assert.True(t, errors.Is(err, domain.ErrDataLoad))
}

func TestEmitter_WriteCombinedFile_Unwritable(t *testing.T) {
	logger, _ := test.NewNullLogger()
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	// The output directory is a regular file, so the split directory cannot be created.
	emitter := NewEmitter(logger, blocker)
	_, err := emitter.WriteCombinedFile("test", sampleResults())
	assert.True(t, errors.Is(err, domain.ErrReportWrite))
}
