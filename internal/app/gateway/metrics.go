package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Call outcomes.
const (
	outcomeOK       = "ok"
	outcomeEmpty    = "empty"
	outcomeFallback = "fallback"
	outcomeFailure  = "failure"
	outcomeSkipped  = "skipped"
)

var (
	callsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nexusflow",
			Subsystem: "gateway",
			Name:      "calls_total",
			Help:      "Gateway operations by outcome.",
		},
		[]string{"op", "outcome"},
	)

	callSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "nexusflow",
			Subsystem: "gateway",
			Name:      "call_seconds",
			Help:      "Latency of generative model calls.",
			Buckets:   []float64{.1, .25, .5, 1, 2, 4, 8, 16, 32},
		},
		[]string{"op"},
	)
)
