package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blocktimeproxy_requests_total",
			Help: "Total number of requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "blocktimeproxy_request_duration_seconds",
			Help:    "Request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	RateLimitExceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "blocktimeproxy_rate_limit_exceeded_total",
			Help: "Total number of rate limit exceeded errors",
		},
	)

	RateLimitClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "blocktimeproxy_rate_limit_clients",
			Help: "Clients currently tracked by the rate limiter",
		},
	)

	CircuitBreakerOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "blocktimeproxy_circuit_breaker_open",
			Help: "Circuit breaker state (1 = open, 0 = closed or half-open)",
		},
	)

	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "blocktimeproxy_cache_hits_total",
			Help: "Total number of cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "blocktimeproxy_cache_misses_total",
			Help: "Total number of cache misses",
		},
	)

	UpstreamErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blocktimeproxy_upstream_errors_total",
			Help: "Total failed upstream lookups",
		},
		[]string{"reason"},
	)

	UpstreamDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "blocktimeproxy_upstream_duration_seconds",
			Help:    "Upstream getBlockTime latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)
