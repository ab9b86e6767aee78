// Package metrics exposes the engine's Prometheus instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	DecisionOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "helmsman",
		Name:      "decision_outcomes_total",
		Help:      "Validated decision outcomes by agent, action and verdict.",
	}, []string{"agent", "action", "verdict"})

	RejectionReasons = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "helmsman",
		Name:      "rejection_reasons_total",
		Help:      "Risk rejections by reason string.",
	}, []string{"reason"})

	SignalsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "helmsman",
		Name:      "signals_dropped_total",
		Help:      "Malformed provider payloads dropped during normalization.",
	}, []string{"agent"})

	CycleDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "helmsman",
		Name:      "cycle_duration_seconds",
		Help:      "Wall time of one full agent evaluation cycle.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"agent"})

	BreakerTripped = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "helmsman",
		Name:      "breaker_tripped",
		Help:      "1 while the company-wide circuit breaker latch is tripped.",
	})

	TotalExposure = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "helmsman",
		Name:      "total_exposure_usd",
		Help:      "Company-wide open exposure at entry basis.",
	})
)

// Handler serves the default registry; mounted on the admin server.
func Handler() http.Handler {
	return promhttp.Handler()
}
