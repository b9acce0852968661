// Package metrics exposes the Prometheus collectors for provider calls and analysis runs.
// All recording methods are safe on a nil *Metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "trendsentinel"

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Provider metrics
	ProviderCallsTotal   *prometheus.CounterVec
	ProviderDuration     *prometheus.HistogramVec
	BreakerState         *prometheus.GaugeVec
	DataUnavailableTotal *prometheus.CounterVec

	// Analysis metrics
	AnalysisTotal         *prometheus.CounterVec
	AnalysisDuration      prometheus.Histogram
	RecommendationsTotal  *prometheus.CounterVec
	CompositeScore        *prometheus.GaugeVec
	AdvisoryOutcomesTotal *prometheus.CounterVec
}

var durationBuckets = []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30}

// New creates and registers all metrics on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		ProviderCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "provider",
				Name:      "calls_total",
				Help:      "Provider calls by operation and outcome",
			},
			[]string{"provider", "op", "outcome"},
		),
		ProviderDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "provider",
				Name:      "duration_seconds",
				Help:      "Duration of provider calls in seconds",
				Buckets:   durationBuckets,
			},
			[]string{"provider", "op"},
		),
		BreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "provider",
				Name:      "breaker_state",
				Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
			},
			[]string{"provider"},
		),
		DataUnavailableTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "provider",
				Name:      "chain_exhausted_total",
				Help:      "Calls where every provider in the chain failed",
			},
			[]string{"op"},
		),
		AnalysisTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "analysis",
				Name:      "runs_total",
				Help:      "Analysis runs by outcome",
			},
			[]string{"outcome"},
		),
		AnalysisDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "analysis",
				Name:      "duration_seconds",
				Help:      "Duration of a single-symbol analysis run",
				Buckets:   durationBuckets,
			},
		),
		RecommendationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "analysis",
				Name:      "recommendations_total",
				Help:      "Recommendations by variant",
			},
			[]string{"recommendation"},
		),
		CompositeScore: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "analysis",
				Name:      "composite_score",
				Help:      "Latest composite score per symbol",
			},
			[]string{"symbol"},
		),
		AdvisoryOutcomesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "advisory",
				Name:      "outcomes_total",
				Help:      "Advisory calls by outcome (ok, timeout, error, disabled)",
			},
			[]string{"outcome"},
		),
	}
}

// ObserveProviderCall records one provider attempt.
func (m *Metrics) ObserveProviderCall(provider, op, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.ProviderCallsTotal.WithLabelValues(provider, op, outcome).Inc()
	m.ProviderDuration.WithLabelValues(provider, op).Observe(d.Seconds())
}

// SetBreakerState records a breaker transition (0=closed, 1=half-open, 2=open).
func (m *Metrics) SetBreakerState(provider string, state int) {
	if m == nil {
		return
	}
	m.BreakerState.WithLabelValues(provider).Set(float64(state))
}

// IncDataUnavailable counts an exhausted chain.
func (m *Metrics) IncDataUnavailable(op string) {
	if m == nil {
		return
	}
	m.DataUnavailableTotal.WithLabelValues(op).Inc()
}

// ObserveAnalysis records a finished run.
func (m *Metrics) ObserveAnalysis(symbol, outcome, recommendation string, score float64, d time.Duration) {
	if m == nil {
		return
	}
	m.AnalysisTotal.WithLabelValues(outcome).Inc()
	m.AnalysisDuration.Observe(d.Seconds())
	if recommendation != "" {
		m.RecommendationsTotal.WithLabelValues(recommendation).Inc()
		m.CompositeScore.WithLabelValues(symbol).Set(score)
	}
}

// IncAdvisory counts an advisory outcome.
func (m *Metrics) IncAdvisory(outcome string) {
	if m == nil {
		return
	}
	m.AdvisoryOutcomesTotal.WithLabelValues(outcome).Inc()
}
