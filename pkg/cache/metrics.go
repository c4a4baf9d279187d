package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for cache operations.
var (
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "se_cache_hits_total",
		Help: "Total cache hits",
	})

	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "se_cache_misses_total",
		Help: "Total cache misses",
	})

	CacheErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "se_cache_errors_total",
		Help: "Total cache operation errors by operation",
	}, []string{"operation"})

	CacheSize = promauto.NewCounter(prometheus.CounterOpts{
		Name: "se_cache_stored_bytes_total",
		Help: "Total bytes written to the response cache",
	})
)
