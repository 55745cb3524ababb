package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rbg-research/SMM4H-2025/internal/domain"
	"github.com/rbg-research/SMM4H-2025/internal/report"
	"github.com/rbg-research/SMM4H-2025/internal/results"
)

const (
	defaultRunLimit = 20
	maxRunLimit     = 200
)

// NoteRequest is a single note to classify.
type NoteRequest struct {
	NoteID string `json:"note_id"`
	Text   string `json:"text" binding:"required"`
	// Completion, when set, is used instead of calling the completion service.
	Completion *string `json:"completion,omitempty"`
}

// BatchRequest is a set of notes classified as one run.
type BatchRequest struct {
	Split string        `json:"split"`
	Notes []NoteRequest `json:"notes" binding:"required,min=1,dive"`
}

// NoteResponse is the classification of one note.
type NoteResponse struct {
	NoteID   string                      `json:"note_id"`
	Labels   domain.ClassificationRecord `json:"labels"`
	Evidence domain.NoteEvidence         `json:"evidence"`
	Error    string                      `json:"error,omitempty"`
}

// ClassifyResponse carries one note's result and its three views.
type ClassifyResponse struct {
	NoteResponse
	Subtask1  *report.View[report.SummaryEntry]  `json:"subtask_1"`
	Subtask2a *report.View[report.LabelsEntry]   `json:"subtask_2a"`
	Subtask2b *report.View[report.EvidenceEntry] `json:"subtask_2b"`
}

// BatchResponse summarizes a classified run.
type BatchResponse struct {
	Run     *results.Run   `json:"run"`
	Stored  bool           `json:"stored"`
	Results []NoteResponse `json:"results"`
}

func noteResponse(res domain.NoteResult) NoteResponse {
	return NoteResponse{
		NoteID:   res.Note.NoteID,
		Labels:   res.Record,
		Evidence: res.Evidence,
		Error:    res.Error,
	}
}

// note builds the clinical note for a request. An omitted note_id gets a
// generated one; a not-a-value marker such as "NA" is rejected.
func (r NoteRequest) note() (domain.ClinicalNote, error) {
	id := strings.TrimSpace(r.NoteID)
	if id == "" {
		id = uuid.NewString()
	}
	if domain.IsMissingValue(id) {
		return domain.ClinicalNote{}, domain.NewValidationError("note_id", "note_id is missing", r.NoteID)
	}
	return domain.ClinicalNote{NoteID: id, Text: r.Text}, nil
}

func bindError(err error) error {
	return domain.NewValidationError("body", err.Error(), nil)
}

// handleClassify classifies one note and returns its three views.
func (s *Server) handleClassify(c *gin.Context) {
	var req NoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, bindError(err))
		return
	}

	note, err := req.note()
	if err != nil {
		s.respondError(c, err)
		return
	}

	var res domain.NoteResult
	if req.Completion != nil {
		res = s.classifier.ClassifyCompletion(note, *req.Completion)
	} else {
		out, err := s.classifier.Classify(c.Request.Context(), note)
		if err != nil {
			s.respondError(c, err)
			return
		}
		res = *out
	}

	views, err := report.ViewsFromResults([]domain.NoteResult{res})
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ClassifyResponse{
		NoteResponse: noteResponse(res),
		Subtask1:     views.Summary,
		Subtask2a:    views.Labels,
		Subtask2b:    views.Evidence,
	})
}

// handleClassifyBatch classifies a list of notes as one run. Notes whose
// completion fails get the all-"no" record; the run itself still succeeds.
func (s *Server) handleClassifyBatch(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, bindError(err))
		return
	}

	notes := make([]domain.ClinicalNote, 0, len(req.Notes))
	seen := make(map[string]bool, len(req.Notes))
	for _, n := range req.Notes {
		note, err := n.note()
		if err != nil {
			s.respondError(c, err)
			return
		}
		if seen[note.NoteID] {
			s.respondError(c, domain.NewValidationError("note_id", "duplicate note_id", note.NoteID))
			return
		}
		seen[note.NoteID] = true
		notes = append(notes, note)
	}

	run := results.NewRun(req.Split, "api", s.configManager.GetCompletionConfig().Model)
	out, err := s.pipeline.Run(c.Request.Context(), notes)
	if err != nil {
		s.respondError(c, err)
		return
	}
	run.Complete(out)

	stored := false
	if s.store != nil {
		if err := s.store.SaveRun(c.Request.Context(), run, out); err != nil {
			s.respondError(c, err)
			return
		}
		stored = true
	}

	resp := BatchResponse{Run: run, Stored: stored, Results: make([]NoteResponse, 0, len(out))}
	for _, res := range out {
		resp.Results = append(resp.Results, noteResponse(res))
	}
	c.JSON(http.StatusOK, resp)
}

// handleListRuns lists stored runs, most recent first.
func (s *Server) handleListRuns(c *gin.Context) {
	if s.store == nil {
		s.respondError(c, results.ErrStorageDisabled)
		return
	}

	limit, err := queryInt(c, "limit", defaultRunLimit)
	if err != nil {
		s.respondError(c, err)
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if limit < 1 || limit > maxRunLimit {
		s.respondError(c, domain.NewValidationError("limit", "must be between 1 and 200", limit))
		return
	}

	runs, err := s.store.ListRuns(c.Request.Context(), limit, offset)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if runs == nil {
		runs = []*results.Run{}
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs, "limit": limit, "offset": offset})
}

// handleGetRun returns a stored run's metadata.
func (s *Server) handleGetRun(c *gin.Context) {
	if s.store == nil {
		s.respondError(c, results.ErrStorageDisabled)
		return
	}

	run, err := s.store.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

// handleGetRunView re-emits one view of a stored run, formatted exactly
// like the file the batch driver writes.
func (s *Server) handleGetRunView(c *gin.Context) {
	if s.store == nil {
		s.respondError(c, results.ErrStorageDisabled)
		return
	}

	stored, err := s.store.ListResults(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	views, err := report.ViewsFromResults(stored)
	if err != nil {
		s.respondError(c, err)
		return
	}

	view, ok := views.ByName(c.Param("view"))
	if !ok {
		s.respondError(c, fmt.Errorf("%w: view %q", domain.ErrNotFound, c.Param("view")))
		return
	}

	data, err := report.MarshalIndented(view)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, domain.NewValidationError(key, "must be a non-negative integer", raw)
	}
	return n, nil
}
