package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by resource
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pokepipe_cache_hits_total",
			Help: "Total number of PokeAPI payload cache hits",
		},
		[]string{"resource"},
	)

	// CacheMisses tracks cache misses by resource
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pokepipe_cache_misses_total",
			Help: "Total number of PokeAPI payload cache misses",
		},
		[]string{"resource"},
	)

	// CacheStoredBytes tracks bytes written to the cache
	CacheStoredBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pokepipe_cache_stored_bytes_total",
			Help: "Total bytes of PokeAPI payloads written to the cache",
		},
		[]string{"resource"},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pokepipe_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
