// Package observability defines the Prometheus metrics emitted by the
// retrieval pipeline. Metrics are exposed on /metrics.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "campusguide"

// Strategy outcomes
const (
	OutcomeOK      = "ok"
	OutcomeEmpty   = "empty"
	OutcomeError   = "error"
	OutcomePanic   = "panic"
	OutcomeTimeout = "timeout"
)

// Metrics holds the retrieval counters and histograms. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	// StrategyDuration measures each strategy run.
	// Labels: strategy, outcome
	StrategyDuration *prometheus.HistogramVec

	// StrategyResults counts results returned per strategy.
	// Labels: strategy
	StrategyResults *prometheus.CounterVec

	// CacheRequests counts cache lookups.
	// Labels: result (hit, miss)
	CacheRequests *prometheus.CounterVec

	// Decisions counts search decisions by rule and verdict.
	// Labels: rule, search
	Decisions *prometheus.CounterVec

	// FallbackUsed counts retrieval cycles that needed the static fallback.
	FallbackUsed prometheus.Counter

	// RetrievalDuration measures whole aggregation cycles.
	RetrievalDuration prometheus.Histogram

	// CrawledPages counts crawler page outcomes.
	// Labels: outcome (stored, unchanged, duplicate, skipped, error)
	CrawledPages *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		StrategyDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: "retrieval",
				Name:      "strategy_duration_seconds",
				Help:      "Duration of individual retrieval strategy runs",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 16},
			},
			[]string{"strategy", "outcome"},
		),
		StrategyResults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "retrieval",
				Name:      "strategy_results_total",
				Help:      "Results returned by each retrieval strategy",
			},
			[]string{"strategy"},
		),
		CacheRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "cache",
				Name:      "requests_total",
				Help:      "Result cache lookups by outcome",
			},
			[]string{"result"},
		),
		Decisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "intent",
				Name:      "decisions_total",
				Help:      "Search decisions by rule",
			},
			[]string{"rule", "search"},
		),
		FallbackUsed: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "retrieval",
				Name:      "fallback_used_total",
				Help:      "Retrieval cycles that fell back to static links",
			},
		),
		RetrievalDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: "retrieval",
				Name:      "duration_seconds",
				Help:      "Duration of full retrieval cycles",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 16},
			},
		),
		CrawledPages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "ingest",
				Name:      "pages_total",
				Help:      "Crawled pages by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// ObserveStrategy records one strategy run.
func (m *Metrics) ObserveStrategy(strategy, outcome string, elapsed time.Duration, results int) {
	if m == nil {
		return
	}
	m.StrategyDuration.WithLabelValues(strategy, outcome).Observe(elapsed.Seconds())
	m.StrategyResults.WithLabelValues(strategy).Add(float64(results))
}

// ObserveCache records a cache lookup.
func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheRequests.WithLabelValues(result).Inc()
}

// ObserveDecision records a search decision.
func (m *Metrics) ObserveDecision(rule string, search bool) {
	if m == nil {
		return
	}
	verdict := "false"
	if search {
		verdict = "true"
	}
	m.Decisions.WithLabelValues(rule, verdict).Inc()
}

// ObserveFallback records a static fallback use.
func (m *Metrics) ObserveFallback() {
	if m == nil {
		return
	}
	m.FallbackUsed.Inc()
}

// ObserveRetrieval records a full aggregation cycle.
func (m *Metrics) ObserveRetrieval(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RetrievalDuration.Observe(elapsed.Seconds())
}

// ObservePage records a crawler page outcome.
func (m *Metrics) ObservePage(outcome string) {
	if m == nil {
		return
	}
	m.CrawledPages.WithLabelValues(outcome).Inc()
}
