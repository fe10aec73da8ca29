// Package metrics defines and registers all custom Prometheus metrics for the
// account service. It is the single source of truth for metric names, labels,
// and help strings.
//
// Metrics are registered with the default Prometheus registry on import
// (promauto) and exposed by the router on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "accounts"

// ── Session metrics ───────────────────────────────────────────────────────────

// SessionOpsTotal counts session operations handled by the HTTP layer.
// Labels:
//   - op: "register", "login", "logout", "refresh", "change_password"
//   - result: "ok" or the error kind (e.g. "unauthorized", "rate_limited")
var SessionOpsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_operations_total",
		Help:      "Total number of session operations, by operation and result.",
	},
	[]string{"op", "result"},
)

// AuthRejectionsTotal counts requests refused by the access-token middleware.
// Label:
//   - reason: "missing_token" or "invalid_token"
var AuthRejectionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_rejections_total",
		Help:      "Total number of requests rejected for a missing or invalid access token.",
	},
	[]string{"reason"},
)

// ── Asset metrics ─────────────────────────────────────────────────────────────

// AssetOpsTotal counts calls to the asset host.
// Labels:
//   - op: "upload" or "delete"
//   - result: "ok", "error" or "breaker_open"
var AssetOpsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "asset_operations_total",
		Help:      "Total number of asset host operations, by operation and result.",
	},
	[]string{"op", "result"},
)

// AssetOpDuration measures the latency of asset host calls.
var AssetOpDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "asset_operation_duration_seconds",
		Help:      "Duration of asset host operations.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"op"},
)

// AssetBreakerState mirrors the asset host circuit breaker: 0 closed, 1 half-open, 2 open.
var AssetBreakerState = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "asset_breaker_state",
		Help:      "Asset host circuit breaker state (0 closed, 1 half-open, 2 open).",
	},
)

// ── Eviction queue metrics ────────────────────────────────────────────────────

// EvictionsTotal counts background deletions of replaced assets.
// Label:
//   - result: "ok", "error" or "dropped" (queue stopped before the job ran)
var EvictionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "asset_evictions_total",
		Help:      "Total number of asset evictions, by result.",
	},
	[]string{"result"},
)

// EvictionQueueDepth tracks pending evictions in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var EvictionQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "eviction_queue_depth",
		Help:      "Current number of evictions pending in each worker channel.",
	},
	[]string{"worker_id"},
)
