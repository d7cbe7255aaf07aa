package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Backend polling
	FetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lxmf_fetch_total",
			Help: "Backend fetches by kind and result",
		},
		[]string{"kind", "result"}, // result: ok, error, backend_error
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lxmf_fetch_duration_seconds",
			Help:    "Backend fetch duration",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"kind"},
	)

	StaleResponses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lxmf_stale_responses_total",
			Help: "Responses discarded because the selection or tab moved on",
		},
		[]string{"kind"},
	)

	UnchangedPolls = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lxmf_unchanged_polls_total",
			Help: "Message polls whose digest matched the previous one",
		},
	)

	// Aggregation
	TelemetryFolds = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lxmf_telemetry_folds_total",
			Help: "Telemetry fragments folded into the per-peer database",
		},
	)

	UnreadPeers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lxmf_unread_peers",
			Help: "Peers with unread messages",
		},
	)

	ActiveTransfers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lxmf_active_transfers",
			Help: "Messages currently sending or receiving",
		},
	)

	// View API
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lxmf_http_requests_total",
			Help: "View API requests",
		},
		[]string{"method", "path", "status"},
	)

	WSClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lxmf_ws_clients",
			Help: "Connected event stream clients",
		},
	)
)
