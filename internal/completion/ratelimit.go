package completion

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"rxscan/internal/config"
	"rxscan/internal/port"
)

// RateLimited wraps a CompletionClient with a token bucket shared by all
// callers.
type RateLimited struct {
	next    port.CompletionClient
	limiter *rate.Limiter
}

// NewRateLimited returns next unchanged when no limit is configured.
func NewRateLimited(next port.CompletionClient, cfg config.RateLimitConfig) port.CompletionClient {
	if cfg.RequestsPerSecond <= 0 {
		return next
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst),
	}
}

// Complete waits for a token, then delegates.
func (r *RateLimited) Complete(ctx context.Context, req port.CompletionRequest) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("waiting for rate limiter: %w", err)
	}
	return r.next.Complete(ctx, req)
}
