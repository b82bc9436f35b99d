package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultHit    = "hit"
	resultMiss   = "miss"
	resultBypass = "bypass"
	resultError  = "error"
)

var (
	// Lookups counts cache lookups by result: hit, miss, bypass or error.
	Lookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "httpsession_cache_lookups_total",
		Help: "Total number of response cache lookups by result",
	}, []string{"result"})

	// Stores counts responses written to a cache store.
	Stores = promauto.NewCounter(prometheus.CounterOpts{
		Name: "httpsession_cache_stores_total",
		Help: "Total number of responses written to the response cache",
	})
)
