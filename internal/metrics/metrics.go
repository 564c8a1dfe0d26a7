// Package metrics exposes the Prometheus counters and histograms for
// the tile cache and search path, grounded on
// jinterlante1206-AleutianLocal/services/trace/graph/hld_queries.go's
// promauto package-level metric style.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the router's Prometheus instruments behind a single
// injectable struct rather than package-level globals, so multiple
// registries can be used in tests without collector collisions.
type Metrics struct {
	TileCacheHits   prometheus.Counter
	TileCacheMisses prometheus.Counter
	SearchDuration  prometheus.Histogram
	SearchesTotal   *prometheus.CounterVec
}

// New registers and returns a fresh Metrics bundle on reg. Pass
// prometheus.NewRegistry() in tests to avoid the global default
// registry's duplicate-registration panics across test runs.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TileCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "bikerouter_tile_cache_hits_total",
			Help: "Tile cache lookups served from the in-memory LRU.",
		}),
		TileCacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "bikerouter_tile_cache_misses_total",
			Help: "Tile cache lookups that required a load from scratch cache or disk.",
		}),
		SearchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "bikerouter_search_duration_seconds",
			Help:    "Wall-clock duration of a single /route search.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		}),
		SearchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bikerouter_searches_total",
			Help: "Total /route searches by result.",
		}, []string{"result"}),
	}
}

// ObserveSearchDuration records one search's wall-clock duration.
func (m *Metrics) ObserveSearchDuration(seconds float64) {
	m.SearchDuration.Observe(seconds)
}

// ObserveResult increments the searches counter for the given result
// label ("ok", "no_route", "no_node", "tile_missing", "cancelled",
// "deadline_exceeded", "internal").
func (m *Metrics) ObserveResult(label string) {
	m.SearchesTotal.WithLabelValues(label).Inc()
}
