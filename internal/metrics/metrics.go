package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Offline cache. resource is one of profile, status, containers, items.
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hearth_cache_lookups_total",
			Help: "Offline cache lookups by resource and result (hit, miss, expired, invalid)",
		},
		[]string{"resource", "result"},
	)

	CacheWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hearth_cache_writes_total",
			Help: "Offline cache writes by resource and stored tier; tier=dropped when nothing fit",
		},
		[]string{"resource", "tier"},
	)

	CacheServed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hearth_cache_served_total",
			Help: "Reads answered from the offline cache by resource and path (offline, fast, stale)",
		},
		[]string{"resource", "path"},
	)

	RemoteCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hearth_remote_calls_total",
			Help: "Calls to the remote document API by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	// 0 closed, 1 half-open, 2 open.
	RemoteBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hearth_remote_breaker_state",
			Help: "Circuit breaker state of the remote client",
		},
		[]string{"name"},
	)

	// Server side.
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hearth_api_requests_total",
			Help: "HTTP API requests by route pattern and status code",
		},
		[]string{"route", "status"},
	)
)

func RecordAPIRequest(route string, status int) {
	APIRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

func RecordRemoteCall(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	RemoteCalls.WithLabelValues(operation, outcome).Inc()
}
