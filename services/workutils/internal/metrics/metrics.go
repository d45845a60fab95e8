package metrics

import (
	"github.com/greymass/workutils/libraries/blocktime"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "workutils_sessions_active",
			Help: "Current open panel sessions",
		},
	)

	SessionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "workutils_sessions_total",
			Help: "Total panel sessions opened",
		},
	)

	SessionsRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "workutils_sessions_rejected_total",
			Help: "Total sessions rejected (max connections)",
		},
	)

	EditsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workutils_edits_total",
			Help: "Total edits applied per panel and result",
		},
		[]string{"panel", "result"},
	)

	LookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workutils_block_lookups_total",
			Help: "Total finished block time lookups by outcome",
		},
		[]string{"outcome"},
	)
)

// WatchCache exports the size and hit counts of the shared block time cache.
func WatchCache(cache *blocktime.Cache) {
	promauto.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "workutils_blocktime_cache_entries",
			Help: "Block timestamps held in the cache",
		},
		func() float64 { return float64(cache.Len()) },
	)
	promauto.NewCounterFunc(
		prometheus.CounterOpts{
			Name: "workutils_blocktime_cache_hits_total",
			Help: "Total block time cache hits",
		},
		func() float64 {
			hits, _ := cache.Stats()
			return float64(hits)
		},
	)
	promauto.NewCounterFunc(
		prometheus.CounterOpts{
			Name: "workutils_blocktime_cache_misses_total",
			Help: "Total block time cache misses",
		},
		func() float64 {
			_, misses := cache.Stats()
			return float64(misses)
		},
	)
}
