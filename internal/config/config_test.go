package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestNewManagerWithFile_Defaults(t *testing.T) {
	path := writeConfigFile(t, "environment: development\n")

	m, err := NewManagerWithFile(path)
	require.NoError(t, err)

	cfg := m.GetConfig()
	assert.Equal(t, "openai", cfg.Completion.Provider)
	assert.Equal(t, 0.0, cfg.Completion.Temperature)
	assert.Equal(t, 512, cfg.Completion.MaxTokens)
	assert.Equal(t, 120*time.Second, cfg.Completion.Timeout)
	assert.Equal(t, "test", cfg.Pipeline.DataSplit)
	assert.Equal(t, 1, cfg.Pipeline.Workers)
	assert.Equal(t, "none", cfg.Storage.Driver)
	assert.True(t, m.IsDevelopment())
	assert.False(t, m.IsProduction())
	assert.NoError(t, m.Validate())
}

func TestNewManagerWithFile_Overrides(t *testing.T) {
	path := writeConfigFile(t, `
environment: production
completion:
  provider: ollama
  base_url: http://ollama:11434
  model: gemma2:2b
  rate_limit: 2.5
pipeline:
  data_split: validation
  workers: 4
storage:
  driver: sqlite
  sqlite_path: /tmp/runs.db
logging:
  level: debug
`)

	m, err := NewManagerWithFile(path)
	require.NoError(t, err)

	cfg := m.GetConfig()
	assert.Equal(t, "ollama", m.GetCompletionConfig().Provider)
	assert.Equal(t, "gemma2:2b", cfg.Completion.Model)
	assert.Equal(t, 2.5, cfg.Completion.RateLimit)
	assert.Equal(t, "validation", m.GetPipelineConfig().DataSplit)
	assert.Equal(t, 4, cfg.Pipeline.Workers)
	assert.Equal(t, "sqlite", m.GetStorageConfig().Driver)
	assert.True(t, m.IsProduction())
	assert.NoError(t, m.Validate())
}

func TestNewManagerWithFile_EnvOverride(t *testing.T) {
	path := writeConfigFile(t, "pipeline:\n  workers: 2\n")
	t.Setenv("INSOMNIA_PIPELINE_WORKERS", "8")
	t.Setenv("INSOMNIA_COMPLETION_MODEL", "gemma-from-env")

	m, err := NewManagerWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, 8, m.GetPipelineConfig().Workers)
	assert.Equal(t, "gemma-from-env", m.GetCompletionConfig().Model)
}

func TestNewManagerWithFile_MissingFile(t *testing.T) {
	_, err := NewManagerWithFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestManager_Set(t *testing.T) {
	m, err := NewManagerWithFile(writeConfigFile(t, "{}\n"))
	require.NoError(t, err)

	require.NoError(t, m.Set("pipeline.input_path", "notes.csv"))
	assert.Equal(t, "notes.csv", m.GetPipelineConfig().InputPath)
}

func TestManager_Validate(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"Bad provider", "completion:\n  provider: gpt\n"},
		{"Zero workers", "pipeline:\n  workers: 0\n"},
		{"Bad port", "server:\n  port: 70000\n"},
		{"Postgres without URL", "storage:\n  driver: postgres\n"},
		{"Unknown driver", "storage:\n  driver: mongo\n"},
		{"Bad log level", "logging:\n  level: loud\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewManagerWithFile(writeConfigFile(t, tt.content))
			require.NoError(t, err)
			assert.Error(t, m.Validate())
		})
	}
}
