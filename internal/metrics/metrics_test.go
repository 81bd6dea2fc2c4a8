package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorsRegistered(t *testing.T) {
	ProviderCalls.WithLabelValues("brave", "company", OutcomeOK).Inc()
	RefineOutcomes.WithLabelValues("refine_company", OutcomeParse).Inc()
	Runs.WithLabelValues("collect", OutcomeOK).Inc()
	RunDuration.WithLabelValues("collect").Observe(1.5)
	ProviderDuration.WithLabelValues("brave").Observe(0.3)
	RunsActive.WithLabelValues("collect").Set(0)
	BreakerTransitions.WithLabelValues("brave", "open").Inc()

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"b2b_provider_calls_total",
		"b2b_provider_call_duration_seconds",
		"b2b_refine_total",
		"b2b_runs_total",
		"b2b_run_duration_seconds",
		"b2b_runs_active",
		"b2b_breaker_transitions_total",
	} {
		assert.True(t, names[want], want)
	}
}
