package completion

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/rbg-research/SMM4H-2025/internal/domain"
)

// ResilientService wraps a completion service with a circuit breaker so a
// failing server is not called for every remaining note.
type ResilientService struct {
	next    domain.CompletionService
	breaker *gobreaker.CircuitBreaker
}

// NewResilientService creates a circuit breaker around next.
func NewResilientService(next domain.CompletionService, config domain.BreakerConfig, logger *logrus.Logger) *ResilientService {
	minRequests := config.MinRequests
	failureRatio := config.FailureRatio

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "completion",
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= failureRatio
		},
		// A cancelled run says nothing about the server's health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})

	return &ResilientService{next: next, breaker: breaker}
}

// Complete calls the wrapped service unless the breaker is open.
func (r *ResilientService) Complete(ctx context.Context, prompt string) (string, error) {
	result, err := r.breaker.Execute(func() (interface{}, error) {
		return r.next.Complete(ctx, prompt)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("%w: %v", domain.ErrCircuitOpen, err)
		}
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	return result.(string), nil
}

// State returns the current breaker state.
func (r *ResilientService) State() gobreaker.State {
	return r.breaker.State()
}
