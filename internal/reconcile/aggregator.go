// Package reconcile queries the completion service several times for the
// same document and combines the samples into one record.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"rxscan/internal/domain"
	"rxscan/internal/metrics"
)

// ErrEmptyResponse marks an attempt whose response had no text.
var ErrEmptyResponse = errors.New("empty response")

// Attempt performs one independent completion request. attempt is 1-based.
type Attempt func(ctx context.Context, attempt int) (string, error)

// Sample is one successful attempt's raw text.
type Sample struct {
	Attempt int
	Text    string
}

// AllAttemptsFailedError reports that every attempt of a round failed.
type AllAttemptsFailedError struct {
	Attempts int
	Causes   []error
}

func (e *AllAttemptsFailedError) Error() string {
	msgs := make([]string, 0, len(e.Causes))
	for _, c := range e.Causes {
		if c != nil {
			msgs = append(msgs, c.Error())
		}
	}
	return fmt.Sprintf("all %d attempts failed: %s", e.Attempts, strings.Join(msgs, "; "))
}

// Is makes errors.Is(err, domain.ErrExtractionFailed) hold.
func (e *AllAttemptsFailedError) Is(target error) bool {
	return target == domain.ErrExtractionFailed
}

func (e *AllAttemptsFailedError) Unwrap() []error {
	return e.Causes
}

// Aggregator runs a fixed number of attempts concurrently and joins them.
type Aggregator struct {
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewAggregator creates an Aggregator. A nil logger or metrics is allowed.
func NewAggregator(logger *zap.Logger, m *metrics.Metrics) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{logger: logger, metrics: m}
}

// Collect issues n attempts concurrently, at most n in flight, and waits for
// all of them. Failed or empty attempts are logged and dropped. Samples are
// returned in completion order. If no attempt succeeds the error is an
// *AllAttemptsFailedError.
func (a *Aggregator) Collect(ctx context.Context, label string, n int, fn Attempt) ([]Sample, error) {
	if n < 1 {
		n = 1
	}

	var (
		mu      sync.Mutex
		samples = make([]Sample, 0, n)
		causes  = make([]error, 0, n)
	)

	var g errgroup.Group
	g.SetLimit(n)
	for i := 1; i <= n; i++ {
		attempt := i
		g.Go(func() error {
			text, err := fn(ctx, attempt)
			if err == nil && strings.TrimSpace(text) == "" {
				err = ErrEmptyResponse
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				a.logger.Warn("attempt failed",
					zap.String("round", label),
					zap.Int("attempt", attempt),
					zap.Int("of", n),
					zap.Error(err))
				a.metrics.ObserveAttempt(label, false)
				causes = append(causes, fmt.Errorf("attempt %d: %w", attempt, err))
				return nil
			}
			a.metrics.ObserveAttempt(label, true)
			samples = append(samples, Sample{Attempt: attempt, Text: text})
			return nil
		})
	}
	_ = g.Wait()

	if len(samples) == 0 {
		a.metrics.ObserveRoundFailure(label)
		a.logger.Error("all attempts failed", zap.String("round", label), zap.Int("attempts", n))
		return nil, &AllAttemptsFailedError{Attempts: n, Causes: causes}
	}

	a.logger.Debug("round complete",
		zap.String("round", label),
		zap.Int("attempts", n),
		zap.Int("succeeded", len(samples)))
	return samples, nil
}

// Texts returns the raw text of each sample.
func Texts(samples []Sample) []string {
	out := make([]string, len(samples))
	for i, s := range samples {
		out[i] = s.Text
	}
	return out
}
