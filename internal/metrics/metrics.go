// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProviderCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "b2b_provider_calls_total",
			Help: "Search provider invocations by outcome",
		},
		[]string{"service", "phase", "status"},
	)

	ProviderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "b2b_provider_call_duration_seconds",
			Help:    "Duration of search provider invocations in seconds",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8),
		},
		[]string{"service"},
	)

	RefineOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "b2b_refine_total",
			Help: "Structured refiner calls by stage and outcome",
		},
		[]string{"stage", "outcome"},
	)

	Runs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "b2b_runs_total",
			Help: "Collection and recommendation runs by outcome",
		},
		[]string{"operation", "outcome"},
	)

	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "b2b_run_duration_seconds",
			Help:    "Duration of collection and recommendation runs in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 9),
		},
		[]string{"operation"},
	)

	RunsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "b2b_runs_active",
			Help: "Runs currently holding a contact lock",
		},
		[]string{"operation"},
	)

	BreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "b2b_breaker_transitions_total",
			Help: "Circuit breaker state transitions per provider",
		},
		[]string{"service", "to"},
	)
)

// Outcome labels.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
	OutcomeParse  = "parse_error"
	OutcomeBusy   = "busy"
)
