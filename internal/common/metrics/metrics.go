// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "txn_http_requests_total",
			Help: "Total number of HTTP requests handled, by route and status",
		},
		[]string{"route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "txn_http_request_duration_seconds",
			Help: "Duration of HTTP request handling in seconds",
		},
		[]string{"route"},
	)

	SettlementCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "txn_settlement_calls_total",
			Help: "Total number of settlement API calls, by operation and result",
		},
		[]string{"operation", "result"},
	)

	SettlementCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "txn_settlement_call_duration_seconds",
			Help: "Duration of settlement API calls in seconds",
		},
		[]string{"operation"},
	)
)
