package completion

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/rbg-research/SMM4H-2025/internal/domain"
)

// Service is the configured completion stack: the HTTP client, optionally
// behind a circuit breaker, optionally behind the cache.
type Service struct {
	domain.CompletionService
	cache *CachedService
}

// NewService builds the completion stack from configuration.
func NewService(config domain.CompletionConfig, logger *logrus.Logger) (*Service, error) {
	client, err := NewHTTPClient(config)
	if err != nil {
		return nil, err
	}

	var svc domain.CompletionService = client
	if config.Breaker.Enabled {
		svc = NewResilientService(svc, config.Breaker, logger)
	}

	s := &Service{CompletionService: svc}
	if config.Cache.Enabled {
		cache, err := NewCachedService(svc, config.Model, config.Cache, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create completion cache: %w", err)
		}
		s.CompletionService = cache
		s.cache = cache
	}

	logger.WithFields(logrus.Fields{
		"provider": config.Provider,
		"base_url": config.BaseURL,
		"model":    config.Model,
		"breaker":  config.Breaker.Enabled,
		"cache":    config.Cache.Enabled,
		"redis":    config.Cache.RedisURL != "",
	}).Info("Completion service configured")

	return s, nil
}

// Complete implements domain.CompletionService
func (s *Service) Complete(ctx context.Context, prompt string) (string, error) {
	return s.CompletionService.Complete(ctx, prompt)
}

// CacheStats returns cache statistics, or false when caching is disabled.
func (s *Service) CacheStats() (CacheStats, bool) {
	if s.cache == nil {
		return CacheStats{}, false
	}
	return s.cache.Stats(), true
}

// Close releases cache connections.
func (s *Service) Close() error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Close()
}
