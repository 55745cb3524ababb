// Package app wires configuration, logging, the completion stack, the
// classifier and the optional result store for the binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/rbg-research/SMM4H-2025/internal/config"
	"github.com/rbg-research/SMM4H-2025/internal/logging"
	"github.com/rbg-research/SMM4H-2025/internal/results"
	"github.com/rbg-research/SMM4H-2025/internal/service"
	"github.com/rbg-research/SMM4H-2025/pkg/completion"
)

// App holds the long-lived components shared by the binaries.
type App struct {
	Config     *config.Manager
	Logger     *logrus.Logger
	Vocab      config.Vocabularies
	Completion *completion.Service
	Classifier *service.ClassifierService
	// Store is nil when storage.driver is "none".
	Store results.Store

	logCloser io.Closer
}

// LoadConfig reads and validates configuration. An empty path searches the
// default locations.
func LoadConfig(path string) (*config.Manager, error) {
	manager, err := config.NewManagerWithFile(path)
	if err != nil {
		return nil, err
	}
	if err := manager.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return manager, nil
}

// NewLogger builds the configured logger.
func NewLogger(manager *config.Manager) (*logrus.Logger, io.Closer, error) {
	return logging.NewLogger(manager.GetConfig().Logging)
}

// New builds every component from a validated configuration.
func New(ctx context.Context, manager *config.Manager) (*App, error) {
	logger, closer, err := NewLogger(manager)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	a := &App{Config: manager, Logger: logger, logCloser: closer}
	if err := a.init(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.Config.GetConfig()

	vocab, err := config.LoadVocabularies(cfg.Pipeline.VocabularyFile)
	if err != nil {
		return err
	}
	a.Vocab = vocab

	a.Completion, err = completion.NewService(cfg.Completion, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create completion service: %w", err)
	}

	a.Classifier, err = service.NewClassifierService(a.Logger, a.Completion, vocab)
	if err != nil {
		return fmt.Errorf("failed to create classifier: %w", err)
	}

	a.Store, err = results.Open(ctx, cfg.Storage, a.Logger)
	if errors.Is(err, results.ErrStorageDisabled) {
		a.Store = nil
		err = nil
	}
	if err != nil {
		return fmt.Errorf("failed to open result store: %w", err)
	}

	return nil
}

// Close releases the store, cache connections and log file.
func (a *App) Close() error {
	var errs []error
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	if a.Completion != nil {
		if stats, ok := a.Completion.CacheStats(); ok {
			a.Logger.WithFields(logrus.Fields{
				"memory_hits":  stats.MemoryHits,
				"redis_hits":   stats.RedisHits,
				"misses":       stats.Misses,
				"memory_items": stats.MemoryItems,
			}).Info("Completion cache statistics")
		}
		errs = append(errs, a.Completion.Close())
	}
	if a.logCloser != nil {
		errs = append(errs, a.logCloser.Close())
	}
	return errors.Join(errs...)
}
