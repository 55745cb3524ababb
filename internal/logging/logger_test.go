package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rbg-research/SMM4H-2025/internal/domain"
)

func TestNewLogger(t *testing.T) {
	logger, closer, err := NewLogger(domain.LoggingConfig{Level: "debug", Format: "json", Output: "stdout"})
	require.NoError(t, err)
	defer closer.Close()

	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)
}

func TestNewLogger_InvalidLevelFallsBackToInfo(t *testing.T) {
	logger, _, err := NewLogger(domain.LoggingConfig{Level: "chatty", Format: "text"})
	require.NoError(t, err)

	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)
}

func TestNewLogger_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "classifier.log")

	logger, closer, err := NewLogger(domain.LoggingConfig{Level: "info", Format: "json", Output: "file", Filename: path})
	require.NoError(t, err)

	logger.WithField("note_id", "n-1").Info("note classified")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"note_id":"n-1"`)
}

func TestNewLogger_InvalidOutput(t *testing.T) {
	_, _, err := NewLogger(domain.LoggingConfig{Output: "syslog"})
	assert.Error(t, err)

	_, _, err = NewLogger(domain.LoggingConfig{Output: "file"})
	assert.Error(t, err)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short note", Preview("short note"))

	long := strings.Repeat("a", 150)
	assert.Equal(t, strings.Repeat("a", 100)+"...", Preview(long))
}
