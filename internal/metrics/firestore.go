package metrics

import "github.com/prometheus/client_golang/prometheus"

// Firestore and cache Prometheus metrics.
var (
	FirestoreRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "spirits",
			Name:      "firestore_requests_total",
			Help:      "Total Firestore REST requests by operation and outcome",
		},
		[]string{"op", "status"},
	)

	CacheRebuildsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "spirits",
			Name:      "cache_rebuilds_total",
			Help:      "Derived-cache rebuilds by cache and outcome",
		},
		[]string{"cache", "status"},
	)

	EnrichmentCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "spirits",
			Name:      "enrichment_cache_total",
			Help:      "Enrichment cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	TrendingEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "spirits",
			Name:      "trending_events_total",
			Help:      "Logged engagement events by action",
		},
		[]string{"action"},
	)
)

var storeMetricsRegistered bool

// RegisterStoreMetrics registers Firestore/cache metrics. Must be called once from main.
func RegisterStoreMetrics() {
	if storeMetricsRegistered {
		return
	}
	prometheus.MustRegister(FirestoreRequestsTotal)
	prometheus.MustRegister(CacheRebuildsTotal)
	prometheus.MustRegister(EnrichmentCacheTotal)
	prometheus.MustRegister(TrendingEventsTotal)
	storeMetricsRegistered = true
}
