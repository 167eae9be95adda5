// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "rewards_admin"

var (
	// SettlementsTotal counts settlement attempts by kind and outcome
	// (succeeded, failed, rejected).
	SettlementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "settlements_total",
		Help:      "Settlement attempts by kind and outcome.",
	}, []string{"kind", "outcome"})

	// SettlementDuration observes platform settlement call latency.
	SettlementDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "settlement_duration_seconds",
		Help:      "Latency of settlement calls to the platform.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"kind"})

	// SettlementsInFlight is the number of settlement calls awaiting a
	// platform response.
	SettlementsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "settlements_in_flight",
		Help:      "Settlement calls currently in flight.",
	})

	// PendingClaims is the claim count from the most recent aggregation.
	PendingClaims = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "pending_claims",
		Help:      "Aggregated pending claims at the last fetch.",
	})

	// MalformedAttempts counts platform records dropped during normalization.
	MalformedAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "malformed_attempts_total",
		Help:      "Platform claim records dropped as malformed.",
	})

	// PlatformRequestDuration observes outbound platform API calls.
	PlatformRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "platform_request_duration_seconds",
		Help:      "Latency of platform API requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"code", "method"})

	// RPCRequestsTotal counts Connect RPCs by procedure and code.
	RPCRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rpc_requests_total",
		Help:      "Connect RPCs by procedure and result code.",
	}, []string{"procedure", "code"})

	// EventClients is the number of connected websocket clients.
	EventClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "event_clients",
		Help:      "Connected event stream clients.",
	})
)
