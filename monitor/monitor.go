// Package monitor exposes prometheus metrics for instrument sessions and
// sweeps.  Metrics are registered at init and served by Handler.
package monitor

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// CommandsIssued counts commands sent to instruments
	CommandsIssued = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "golight_commands_issued_total",
		Help: "Number of instrument commands issued",
	})

	// CommandErrors counts commands that failed, at the transport or
	// instrument level
	CommandErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "golight_command_errors_total",
		Help: "Number of instrument commands that failed",
	})

	// SweepsTotal counts SME sweeps by outcome (complete, timeout, fault)
	SweepsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "golight_sweeps_total",
		Help: "Number of SME sweeps by outcome",
	}, []string{"outcome"})

	// SweepDuration observes wall time of completed sweeps in seconds
	SweepDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "golight_sweep_duration_seconds",
		Help:    "Wall time of completed SME sweeps",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})
)

func init() {
	prometheus.MustRegister(
		CommandsIssued,
		CommandErrors,
		SweepsTotal,
		SweepDuration,
	)
}

// Handler returns the HTTP handler serving the metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
