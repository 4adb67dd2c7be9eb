// Package metrics exposes Prometheus collectors for scan rounds and
// completion calls.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	attempts      *prometheus.CounterVec
	roundFailures *prometheus.CounterVec
	completions   *prometheus.HistogramVec
	scans         *prometheus.CounterVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rxscan",
			Name:      "attempts_total",
			Help:      "Completion attempts per round, by outcome.",
		}, []string{"round", "outcome"}),
		roundFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rxscan",
			Name:      "round_failures_total",
			Help:      "Rounds in which every attempt failed.",
		}, []string{"round"}),
		completions: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "rxscan",
			Name:      "completion_duration_seconds",
			Help:      "Latency of completion calls by provider.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
		}, []string{"provider", "outcome"}),
		scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rxscan",
			Name:      "scans_total",
			Help:      "Scan requests by document type and outcome.",
		}, []string{"type", "outcome"}),
	}
	reg.MustRegister(
		m.attempts,
		m.roundFailures,
		m.completions,
		m.scans,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

func outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

// ObserveAttempt counts one attempt of a round.
func (m *Metrics) ObserveAttempt(round string, ok bool) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(round, outcome(ok)).Inc()
}

// ObserveRoundFailure counts a round with no successful attempt.
func (m *Metrics) ObserveRoundFailure(round string) {
	if m == nil {
		return
	}
	m.roundFailures.WithLabelValues(round).Inc()
}

// ObserveCompletion records the latency of one provider call.
func (m *Metrics) ObserveCompletion(provider string, d time.Duration, ok bool) {
	if m == nil {
		return
	}
	m.completions.WithLabelValues(provider, outcome(ok)).Observe(d.Seconds())
}

// ObserveScan counts a finished scan request.
func (m *Metrics) ObserveScan(docType string, ok bool) {
	if m == nil {
		return
	}
	m.scans.WithLabelValues(docType, outcome(ok)).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
