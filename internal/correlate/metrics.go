// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package correlate

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Result labels for interaction metrics.
const (
	ResultMarked          = "marked"
	ResultMiss            = "miss"
	ResultIgnoredDisabled = "ignored_disabled"
	ResultIgnoredKind     = "ignored_kind"
	ResultIgnoredZone     = "ignored_zone"
	ResultDropped         = "dropped"
)

// InteractionsTotal counts interaction notifications by how they were handled.
// Use RegisterMetrics to register this with a Prometheus registry.
var InteractionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "hitreg_interactions_total",
		Help: "Total number of interaction notifications by result",
	},
	[]string{"result"},
)

// OutcomesTotal counts correlated damage notifications by outcome.
var OutcomesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "hitreg_outcomes_total",
		Help: "Total number of correlated damage notifications by outcome",
	},
	[]string{"outcome"},
)

// ResolutionDuration observes how long handle resolution takes on a worker.
var ResolutionDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "hitreg_resolution_duration_seconds",
		Help:    "Time spent resolving a transient handle to a target",
		Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05},
	},
)

// RegisterMetrics registers correlate package metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(InteractionsTotal)
	reg.MustRegister(OutcomesTotal)
	reg.MustRegister(ResolutionDuration)
}

func recordInteraction(result string) {
	InteractionsTotal.WithLabelValues(result).Inc()
}

func recordOutcome(outcome string) {
	OutcomesTotal.WithLabelValues(outcome).Inc()
}

func recordResolution(d time.Duration) {
	ResolutionDuration.Observe(d.Seconds())
}
