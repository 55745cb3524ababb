package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/rbg-research/SMM4H-2025/internal/domain"
	"github.com/rbg-research/SMM4H-2025/internal/report"
	"github.com/rbg-research/SMM4H-2025/internal/service"
)

// ClassifyNoteParams defines parameters for the classify_clinical_note tool
type ClassifyNoteParams struct {
	NoteID     string `json:"note_id,omitempty" jsonschema:"identifier echoed in the result; generated when empty"`
	Text       string `json:"text" jsonschema:"clinical note text"`
	Completion string `json:"completion,omitempty" jsonschema:"model completion to classify instead of calling the completion service"`
}

// ClassifyNoteResult defines the result structure for the classify_clinical_note tool
type ClassifyNoteResult struct {
	NoteID   string              `json:"note_id"`
	Labels   map[string]string   `json:"labels"`
	Evidence domain.NoteEvidence `json:"evidence"`
}

// GetRunViewParams defines parameters for the get_run_view tool
type GetRunViewParams struct {
	RunID string `json:"run_id" jsonschema:"stored run identifier"`
	View  string `json:"view" jsonschema:"view name: 1, 2a or 2b"`
}

// handleClassifyNote handles the classify_clinical_note tool invocation
func (s *Server) handleClassifyNote(ctx context.Context, req *mcp.CallToolRequest, params ClassifyNoteParams) (*mcp.CallToolResult, ClassifyNoteResult, error) {
	s.logger.WithField("tool", ClassifyNoteTool).Info("Tool invoked")

	if strings.TrimSpace(params.Text) == "" {
		return s.createErrorResult("Missing required parameter", domain.NewValidationError("text", "text is required", nil)), ClassifyNoteResult{}, nil
	}

	note := domain.ClinicalNote{NoteID: strings.TrimSpace(params.NoteID), Text: params.Text}
	if note.NoteID == "" {
		note.NoteID = uuid.NewString()
	}
	if domain.IsMissingValue(note.NoteID) {
		return s.createErrorResult("Invalid parameter", domain.NewValidationError("note_id", "note_id is missing", params.NoteID)), ClassifyNoteResult{}, nil
	}

	var res domain.NoteResult
	if params.Completion != "" {
		res = s.classifier.ClassifyCompletion(note, params.Completion)
	} else {
		out, err := s.classifier.Classify(ctx, note)
		if err != nil {
			return s.createErrorResult("Classification failed", err), ClassifyNoteResult{}, nil
		}
		res = *out
	}

	result := ClassifyNoteResult{
		NoteID:   res.Note.NoteID,
		Labels:   make(map[string]string, 6),
		Evidence: res.Evidence,
	}
	for name, label := range res.Record.Labels() {
		result.Labels[name] = label.String()
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, ClassifyNoteResult{}, fmt.Errorf("failed to encode result: %w", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("Note %s: Insomnia=%s", result.NoteID, res.Record.FinalStatus())},
			&mcp.TextContent{Text: string(data)},
		},
	}, result, nil
}

// handleGetRunView handles the get_run_view tool invocation
func (s *Server) handleGetRunView(ctx context.Context, req *mcp.CallToolRequest, params GetRunViewParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithFields(logrus.Fields{"tool": GetRunViewTool, "run_id": params.RunID}).Info("Tool invoked")

	stored, err := s.store.ListResults(ctx, params.RunID)
	if err != nil {
		return s.createErrorResult("Run lookup failed", err), nil, nil
	}

	views, err := report.ViewsFromResults(stored)
	if err != nil {
		return s.createErrorResult("Building views failed", err), nil, nil
	}

	view, ok := views.ByName(params.View)
	if !ok {
		return s.createErrorResult("Unknown view", fmt.Errorf("%w: view %q", domain.ErrNotFound, params.View)), nil, nil
	}

	data, err := report.MarshalIndented(view)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode view: %w", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}

// handleExtractionPrompt renders the extraction prompt for a note.
func (s *Server) handleExtractionPrompt(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	text := req.Params.Arguments["text"]
	if strings.TrimSpace(text) == "" {
		return nil, domain.NewValidationError("text", "text is required", nil)
	}

	return &mcp.GetPromptResult{
		Description: "Insomnia evidence extraction",
		Messages: []*mcp.PromptMessage{
			{Role: "user", Content: &mcp.TextContent{Text: service.RenderPrompt(text)}},
		},
	}, nil
}

// handleVocabularyResource returns the effective medication tables as YAML.
func (s *Server) handleVocabularyResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	data, err := yaml.Marshal(s.vocab)
	if err != nil {
		return nil, fmt.Errorf("failed to encode vocabulary: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{URI: VocabularyResource, MIMEType: "application/yaml", Text: string(data)},
		},
	}, nil
}

// createErrorResult creates an error result for tool execution
func (s *Server) createErrorResult(message string, err error) *mcp.CallToolResult {
	s.logger.WithError(err).WithField("code", domain.CodeFor(err)).Warn(message)

	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("%s [%s]: %v", message, domain.CodeFor(err), err)},
		},
	}
}
