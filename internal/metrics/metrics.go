package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AnalysisRequests counts analyze attempts by outcome
	// (succeeded, invalid, busy, transport, server_message, server_status, malformed).
	AnalysisRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resume_optimizer_analysis_requests_total",
			Help: "Total number of analyze attempts by outcome",
		},
		[]string{"outcome"},
	)

	DownloadRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resume_optimizer_download_requests_total",
			Help: "Total number of download attempts by format and outcome",
		},
		[]string{"format", "outcome"},
	)

	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "resume_optimizer_upstream_duration_seconds",
			Help:    "Duration of calls to the analysis service in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"endpoint"},
	)

	AnalysesInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "resume_optimizer_analyses_in_flight",
			Help: "Number of analyze requests currently waiting on the analysis service",
		},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "resume_optimizer_active_sessions",
			Help: "Number of sessions held in memory",
		},
	)
)
