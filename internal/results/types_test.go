package results

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRun(t *testing.T) {
	run := NewRun("validation", "api", "gemma")

	_, err := uuid.Parse(run.ID)
	require.NoError(t, err)
	assert.Equal(t, "validation", run.Split)
	assert.Equal(t, "api", run.Source)
	assert.Equal(t, "gemma", run.Model)
	assert.False(t, run.StartedAt.IsZero())
	assert.True(t, run.CompletedAt.IsZero())

	other := NewRun("validation", "api", "gemma")
	assert.NotEqual(t, run.ID, other.ID)
}

func TestRun_Complete(t *testing.T) {
	run := NewRun("test", "", "")
	run.Complete(sampleResults())

	assert.Equal(t, 3, run.NoteCount)
	assert.Equal(t, 1, run.FailedCount)
	assert.False(t, run.CompletedAt.Before(run.StartedAt))
}
