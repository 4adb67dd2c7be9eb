package completion

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"rxscan/internal/config"
	"rxscan/internal/metrics"
	"rxscan/internal/port"
)

// ErrAllProvidersUnavailable is returned when every provider's breaker is open.
var ErrAllProvidersUnavailable = errors.New("all completion providers unavailable")

// Provider is a named completion client.
type Provider struct {
	Name   string
	Client port.CompletionClient
}

type guardedProvider struct {
	Provider
	breaker *gobreaker.CircuitBreaker[string]
	tripNow atomic.Bool
}

// FallbackClient tries providers in order. Each provider sits behind its own
// circuit breaker, which opens after consecutive failures or at once on a
// 429. It implements port.CompletionClient.
type FallbackClient struct {
	providers []*guardedProvider
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// NewFallbackClient creates a FallbackClient from an ordered list of providers.
func NewFallbackClient(providers []Provider, cfg config.BreakerConfig, logger *zap.Logger, m *metrics.Metrics) *FallbackClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}

	f := &FallbackClient{logger: logger, metrics: m}
	for _, p := range providers {
		gp := &guardedProvider{Provider: p}
		gp.breaker = gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
			Name:        p.Name,
			MaxRequests: 1,
			Timeout:     cfg.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return gp.tripNow.Swap(false) || counts.ConsecutiveFailures >= maxFailures
			},
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, ErrEmptyCompletion) || errors.Is(err, context.Canceled)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("completion breaker state change",
					zap.String("provider", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()))
			},
		})
		f.providers = append(f.providers, gp)
	}
	return f
}

// Complete sends req to the first provider that answers.
func (f *FallbackClient) Complete(ctx context.Context, req port.CompletionRequest) (string, error) {
	var lastErr error
	for _, p := range f.providers {
		start := time.Now()
		text, err := p.breaker.Execute(func() (string, error) {
			out, err := p.Client.Complete(ctx, req)
			var rlErr *RateLimitError
			if errors.As(err, &rlErr) {
				p.tripNow.Store(true)
			}
			return out, err
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			f.logger.Debug("skipping completion provider", zap.String("provider", p.Name), zap.Error(err))
			continue
		}
		f.metrics.ObserveCompletion(p.Name, time.Since(start), err == nil)
		if err == nil {
			return text, nil
		}

		f.logger.Warn("completion provider failed", zap.String("provider", p.Name), zap.Error(err))
		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}

	if lastErr == nil {
		return "", ErrAllProvidersUnavailable
	}
	return "", fmt.Errorf("all completion providers failed: %w", lastErr)
}
