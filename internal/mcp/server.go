// Package mcp exposes the note classifier as MCP tools over stdio.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/rbg-research/SMM4H-2025/internal/config"
	"github.com/rbg-research/SMM4H-2025/internal/domain"
	"github.com/rbg-research/SMM4H-2025/internal/results"
)

// Tool, prompt and resource names.
const (
	ClassifyNoteTool   = "classify_clinical_note"
	GetRunViewTool     = "get_run_view"
	ExtractionPrompt   = "insomnia_extraction"
	VocabularyResource = "vocabulary://medications"
)

// Server represents the insomnia classifier MCP server
type Server struct {
	configManager domain.ConfigManager
	mcpServer     *mcp.Server
	classifier    domain.Classifier
	vocab         config.Vocabularies
	store         results.Store
	logger        *logrus.Logger
}

// NewServer creates a new MCP server instance. store may be nil, in which
// case the run view tool is not registered.
func NewServer(
	configManager domain.ConfigManager,
	logger *logrus.Logger,
	classifier domain.Classifier,
	vocab config.Vocabularies,
	store results.Store,
) (*Server, error) {
	cfg := configManager.GetConfig()

	serverInfo := &mcp.Implementation{
		Name:    cfg.MCP.ServerName,
		Version: cfg.MCP.ServerVersion,
	}

	server := &Server{
		configManager: configManager,
		mcpServer:     mcp.NewServer(serverInfo, nil),
		classifier:    classifier,
		vocab:         vocab,
		store:         store,
		logger:        logger,
	}

	if err := server.registerCapabilities(); err != nil {
		return nil, fmt.Errorf("failed to register capabilities: %w", err)
	}

	return server, nil
}

// Start serves MCP over stdin/stdout until ctx is cancelled or the client
// disconnects.
func (s *Server) Start(ctx context.Context) error {
	s.logger.WithField("transport_type", "stdio").Info("Starting insomnia classifier MCP server")

	if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

// registerCapabilities registers all MCP tools, resources, and prompts
func (s *Server) registerCapabilities() error {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: ClassifyNoteTool,
		Description: "Classify a clinical note for insomnia. Returns the Definition 1, Definition 2, " +
			"Rule A, Rule B, Rule C and Insomnia labels with their evidence.",
	}, s.handleClassifyNote)

	if s.store != nil {
		mcp.AddTool(s.mcpServer, &mcp.Tool{
			Name:        GetRunViewTool,
			Description: "Return one JSON view (1, 2a or 2b) of a stored classification run.",
		}, s.handleGetRunView)
	}

	s.mcpServer.AddPrompt(&mcp.Prompt{
		Name:        ExtractionPrompt,
		Description: "The evidence extraction prompt sent to the completion model for a note.",
		Arguments: []*mcp.PromptArgument{
			{Name: "text", Description: "Clinical note text", Required: true},
		},
	}, s.handleExtractionPrompt)

	s.mcpServer.AddResource(&mcp.Resource{
		URI:         VocabularyResource,
		Name:        "medications",
		Description: "Primary and secondary medication vocabularies used by Rules B and C.",
		MIMEType:    "application/yaml",
	}, s.handleVocabularyResource)

	s.logger.WithField("storage", s.store != nil).Info("Registered MCP capabilities")
	return nil
}
