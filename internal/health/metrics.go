package health

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry wraps a dedicated prometheus.Registry so the exact counter and
// gauge names from spec.md's metrics exposition contract are registered
// once, with no dependence on the default global registry. The HTTP
// transport that serves promhttp.HandlerFor(registry.Prometheus(), ...) is
// external to this package.
type Registry struct {
	vectorSearches prometheus.Counter
	vectorInserts  prometheus.Counter
	cacheHits      prometheus.Counter
	cacheMisses    prometheus.Counter
	errorsTotal    *prometheus.CounterVec
	cacheHitRate   prometheus.Gauge
	opLatency      *prometheus.HistogramVec
}

// NewRegistry builds and registers every metric named in spec.md §6 against
// reg (an empty prometheus.Registry is typical; the composition root owns
// its lifetime).
func NewRegistry(reg *prometheus.Registry) *Registry {
	r := &Registry{
		vectorSearches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "memory_vector_searches_total",
			Help: "Total number of vector index searches performed.",
		}),
		vectorInserts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "memory_vector_inserts_total",
			Help: "Total number of vector index inserts performed.",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "memory_cache_hits_total",
			Help: "Total number of embedding cache hits.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "memory_cache_misses_total",
			Help: "Total number of embedding cache misses.",
		}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "memory_errors_total",
			Help: "Total number of errors by component and kind.",
		}, []string{"component", "kind"}),
		cacheHitRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "memory_cache_hit_rate",
			Help: "Current embedding cache hit rate, in [0,1].",
		}),
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "memory_operation_latency_seconds",
			Help:    "Per-operation latency in seconds, by component.",
			Buckets: prometheus.DefBuckets,
		}, []string{"component"}),
	}

	reg.MustRegister(r.vectorSearches, r.vectorInserts, r.cacheHits, r.cacheMisses,
		r.errorsTotal, r.cacheHitRate, r.opLatency)
	return r
}

// ObserveSearch records one vector index search and its latency.
func (r *Registry) ObserveSearch(d time.Duration) {
	r.vectorSearches.Inc()
	r.opLatency.WithLabelValues(string(ComponentVectorIndex)).Observe(d.Seconds())
}

// ObserveInsert records one vector index insert and its latency.
func (r *Registry) ObserveInsert(d time.Duration) {
	r.vectorInserts.Inc()
	r.opLatency.WithLabelValues(string(ComponentVectorIndex)).Observe(d.Seconds())
}

// ObserveError records one error attributed to component, keyed by kind
// (an errors.Kind string, kept loosely typed here to avoid a dependency
// cycle on the errors package).
func (r *Registry) ObserveError(component Component, kind string) {
	r.errorsTotal.WithLabelValues(string(component), kind).Inc()
}

// ObserveLatency records one operation's latency for component without
// touching any counter, for operations with no dedicated counter above.
func (r *Registry) ObserveLatency(component Component, d time.Duration) {
	r.opLatency.WithLabelValues(string(component)).Observe(d.Seconds())
}

// SetCacheHitRate publishes the current embedding cache hit rate, typically
// sourced from embed.CachedEmbedder.Stats().HitRate().
func (r *Registry) SetCacheHitRate(rate float64) {
	r.cacheHitRate.Set(rate)
}

// RecordCacheHit/RecordCacheMiss feed the raw hit/miss counters; callers
// that already track cumulative counts (embed.CachedEmbedder) report
// through SetCacheHitRate instead and need not call these.
func (r *Registry) RecordCacheHit() {
	r.cacheHits.Inc()
}

func (r *Registry) RecordCacheMiss() {
	r.cacheMisses.Inc()
}
