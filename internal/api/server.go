// Package api exposes the note classifier over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/rbg-research/SMM4H-2025/internal/domain"
	"github.com/rbg-research/SMM4H-2025/internal/middleware"
	"github.com/rbg-research/SMM4H-2025/internal/results"
	"github.com/rbg-research/SMM4H-2025/internal/service"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// Server represents the HTTP server
type Server struct {
	configManager domain.ConfigManager
	logger        *logrus.Logger
	classifier    domain.Classifier
	pipeline      *service.Pipeline
	store         results.Store
	router        *gin.Engine
	server        *http.Server
}

// NewServer creates a new HTTP server instance. store may be nil, in which
// case runs are not persisted and the run endpoints report storage as
// disabled.
func NewServer(configManager domain.ConfigManager, logger *logrus.Logger, classifier domain.Classifier, store results.Store) *Server {
	cfg := configManager.GetConfig()

	// Set Gin mode based on environment
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.RequestTimeout(cfg.Server.WriteTimeout))

	server := &Server{
		configManager: configManager,
		logger:        logger,
		classifier:    classifier,
		pipeline:      service.NewPipeline(logger, classifier, cfg.Pipeline.Workers),
		store:         store,
		router:        router,
	}

	server.setupRoutes()

	return server
}

// Handler returns the configured router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.configManager.GetServerConfig()
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/classify", s.handleClassify)
		v1.POST("/classify/batch", s.handleClassifyBatch)
		v1.GET("/runs", s.handleListRuns)
		v1.GET("/runs/:id", s.handleGetRun)
		v1.GET("/runs/:id/subtask/:view", s.handleGetRunView)
	}
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   Version,
		"storage":   s.store != nil,
	})
}

// respondError writes a ClassifierError with a status derived from err.
func (s *Server) respondError(c *gin.Context, err error) {
	code := domain.CodeFor(err)
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrCircuitOpen):
		status = http.StatusServiceUnavailable
	case errors.Is(err, results.ErrStorageDisabled):
		status = http.StatusServiceUnavailable
		code = domain.ErrCodeDatabaseError
	case code == domain.ErrCodeValidation, code == domain.ErrCodeDataLoad:
		status = http.StatusBadRequest
	case code == domain.ErrCodeNotFound:
		status = http.StatusNotFound
	case code == domain.ErrCodeCompletionService:
		status = http.StatusBadGateway
	}

	requestID := c.GetString(middleware.RequestIDKey)
	if status >= http.StatusInternalServerError {
		s.logger.WithError(err).WithField("request_id", requestID).Error("Request failed")
	}

	c.AbortWithStatusJSON(status, domain.NewClassifierError(code, http.StatusText(status), err.Error(), requestID))
}
