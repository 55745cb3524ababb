package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rbg-research/SMM4H-2025/internal/config"
	"github.com/rbg-research/SMM4H-2025/internal/domain"
	"github.com/rbg-research/SMM4H-2025/internal/middleware"
	"github.com/rbg-research/SMM4H-2025/internal/results"
	"github.com/rbg-research/SMM4H-2025/internal/service"
)

const insomniaCompletion = "Sleep Difficulty Phrases:\nlying awake for hours\n\n" +
	"Daytime Impairment Phrases:\nforgetful during the day"

// fakeCompletion answers every prompt with insomniaCompletion, failing for
// notes that contain failMarker.
type fakeCompletion struct {
	err error
}

const failMarker = "FAIL-ME"

func (f *fakeCompletion) Complete(ctx context.Context, prompt string) (string, error) {
	if strings.Contains(prompt, failMarker) {
		return "", f.err
	}
	return insomniaCompletion, nil
}

func newTestServer(t *testing.T, store results.Store) *Server {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pipeline:\n  workers: 2\n"), 0644))
	manager, err := config.NewManagerWithFile(path)
	require.NoError(t, err)

	logger, _ := test.NewNullLogger()
	classifier, err := service.NewClassifierService(logger,
		&fakeCompletion{err: errors.New("upstream timeout")}, config.DefaultVocabularies())
	require.NoError(t, err)

	return NewServer(manager, logger, classifier, store)
}

func newTestStore(t *testing.T) results.Store {
	t.Helper()
	store, err := results.NewSQLiteStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func doJSON(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) domain.ClassifierError {
	t.Helper()
	var e domain.ClassifierError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e))
	return e
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)

	w := doJSON(t, s, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, false, body["storage"])
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}

func TestClassify(t *testing.T) {
	s := newTestServer(t, nil)

	w := doJSON(t, s, http.MethodPost, "/api/v1/classify", map[string]string{
		"note_id": " 101 ",
		"text":    "Lying awake for hours. Takes Ambien nightly.",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	var labels map[string]string
	require.NoError(t, json.Unmarshal(body["labels"], &labels))
	assert.Equal(t, "yes", labels["Rule A"])
	assert.Equal(t, "yes", labels["Rule B"])
	assert.Equal(t, "yes", labels["Insomnia"])

	var summary map[string]map[string]string
	require.NoError(t, json.Unmarshal(body["subtask_1"], &summary))
	assert.Equal(t, "yes", summary["101"]["Insomnia"])

	var evidence map[string]map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(body["subtask_2b"], &evidence))
	assert.Equal(t, []interface{}{"Ambien"}, evidence["101"]["Rule B"]["text"])
}

func TestClassify_WithCompletion(t *testing.T) {
	s := newTestServer(t, nil)

	// The supplied completion is used even though the service would fail.
	w := doJSON(t, s, http.MethodPost, "/api/v1/classify", map[string]string{
		"note_id":    "7",
		"text":       "FAIL-ME quiet night",
		"completion": "Sleep Difficulty Phrases:\nunknown\nDaytime Impairment Phrases:\nunknown",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		NoteID string            `json:"note_id"`
		Labels map[string]string `json:"labels"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "7", resp.NoteID)
	assert.Equal(t, "no", resp.Labels["Insomnia"])
}

func TestClassify_GeneratesNoteID(t *testing.T) {
	s := newTestServer(t, nil)

	w := doJSON(t, s, http.MethodPost, "/api/v1/classify", map[string]string{"text": "slept fine"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp NoteResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.NoteID)
}

func TestClassify_Errors(t *testing.T) {
	s := newTestServer(t, nil)

	t.Run("Missing text", func(t *testing.T) {
		w := doJSON(t, s, http.MethodPost, "/api/v1/classify", map[string]string{"note_id": "1"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, domain.ErrCodeValidation, decodeError(t, w).Code)
	})

	t.Run("Completion failure", func(t *testing.T) {
		w := doJSON(t, s, http.MethodPost, "/api/v1/classify", map[string]string{
			"note_id": "1", "text": "FAIL-ME",
		})
		assert.Equal(t, http.StatusBadGateway, w.Code)
		e := decodeError(t, w)
		assert.Equal(t, domain.ErrCodeCompletionService, e.Code)
		assert.Equal(t, w.Header().Get(middleware.RequestIDHeader), e.RequestID)
	})

	// The note would fail at the completion call, so a 400 shows the id was
	// rejected before any completion was requested.
	for _, id := range []string{"NA", "null", " nan "} {
		t.Run("Missing-value note_id "+strings.TrimSpace(id), func(t *testing.T) {
			w := doJSON(t, s, http.MethodPost, "/api/v1/classify", map[string]string{
				"note_id": id, "text": "FAIL-ME",
			})
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, domain.ErrCodeValidation, decodeError(t, w).Code)
		})
	}
}

func TestClassify_CircuitOpen(t *testing.T) {
	s := newTestServer(t, nil)
	logger, _ := test.NewNullLogger()
	classifier, err := service.NewClassifierService(logger,
		&fakeCompletion{err: fmt.Errorf("%w: too many failures", domain.ErrCircuitOpen)}, config.DefaultVocabularies())
	require.NoError(t, err)
	s.classifier = classifier

	w := doJSON(t, s, http.MethodPost, "/api/v1/classify", map[string]string{"text": "FAIL-ME"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestClassifyBatch(t *testing.T) {
	store := newTestStore(t)
	s := newTestServer(t, store)

	w := doJSON(t, s, http.MethodPost, "/api/v1/classify/batch", map[string]interface{}{
		"split": "validation",
		"notes": []map[string]string{
			{"note_id": "b", "text": "Up all night. Takes Trazodone."},
			{"note_id": "a", "text": "FAIL-ME"},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Run     results.Run `json:"run"`
		Stored  bool        `json:"stored"`
		Results []struct {
			NoteID string            `json:"note_id"`
			Labels map[string]string `json:"labels"`
			Error  string            `json:"error"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Stored)
	assert.Equal(t, 2, resp.Run.NoteCount)
	assert.Equal(t, 1, resp.Run.FailedCount)
	assert.Equal(t, "validation", resp.Run.Split)

	require.Len(t, resp.Results, 2)
	assert.Equal(t, "b", resp.Results[0].NoteID)
	assert.Equal(t, "yes", resp.Results[0].Labels["Rule C"])
	assert.Equal(t, "a", resp.Results[1].NoteID)
	assert.Equal(t, "no", resp.Results[1].Labels["Insomnia"])
	assert.NotEmpty(t, resp.Results[1].Error)

	// The stored run re-emits the same views.
	w = doJSON(t, s, http.MethodGet, "/api/v1/runs/"+resp.Run.ID+"/subtask/2a", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "{\n    \"b\": {\n"), w.Body.String())

	var labels map[string]map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &labels))
	assert.Equal(t, "yes", labels["b"]["Rule C"])
	assert.Equal(t, "no", labels["a"]["Definition 1"])

	w = doJSON(t, s, http.MethodGet, "/api/v1/runs/"+resp.Run.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, s, http.MethodGet, "/api/v1/runs?limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Runs []results.Run `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Runs, 1)
	assert.Equal(t, resp.Run.ID, list.Runs[0].ID)
}

func TestClassifyBatch_Validation(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name string
		body interface{}
	}{
		{"No notes", map[string]interface{}{"notes": []interface{}{}}},
		{"Missing text", map[string]interface{}{"notes": []map[string]string{{"note_id": "1"}}}},
		{"Duplicate ids", map[string]interface{}{"notes": []map[string]string{
			{"note_id": "1", "text": "x"}, {"note_id": " 1", "text": "y"},
		}}},
		{"Missing-value id", map[string]interface{}{"notes": []map[string]string{
			{"note_id": "1", "text": "x"}, {"note_id": "N/A", "text": "FAIL-ME"},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, s, http.MethodPost, "/api/v1/classify/batch", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, domain.ErrCodeValidation, decodeError(t, w).Code)
		})
	}
}

func TestClassifyBatch_WithoutStore(t *testing.T) {
	s := newTestServer(t, nil)

	w := doJSON(t, s, http.MethodPost, "/api/v1/classify/batch", map[string]interface{}{
		"notes": []map[string]string{{"note_id": "1", "text": "slept fine"}},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp BatchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Stored)
}

func TestRuns_Errors(t *testing.T) {
	t.Run("Storage disabled", func(t *testing.T) {
		s := newTestServer(t, nil)
		w := doJSON(t, s, http.MethodGet, "/api/v1/runs/abc/subtask/1", nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, domain.ErrCodeDatabaseError, decodeError(t, w).Code)
	})

	t.Run("Unknown run", func(t *testing.T) {
		s := newTestServer(t, newTestStore(t))
		w := doJSON(t, s, http.MethodGet, "/api/v1/runs/abc/subtask/1", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, domain.ErrCodeNotFound, decodeError(t, w).Code)
	})

	t.Run("Unknown view", func(t *testing.T) {
		store := newTestStore(t)
		run := results.NewRun("test", "", "")
		run.Complete(nil)
		require.NoError(t, store.SaveRun(context.Background(), run, nil))

		s := newTestServer(t, store)
		w := doJSON(t, s, http.MethodGet, "/api/v1/runs/"+run.ID+"/subtask/3", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Bad limit", func(t *testing.T) {
		s := newTestServer(t, newTestStore(t))
		w := doJSON(t, s, http.MethodGet, "/api/v1/runs?limit=abc", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
