// Package metrics provides optional Prometheus instrumentation for the
// cache middleware: request-outcome counters keyed by diagnostic tag,
// storage operation latency histograms, and an entry-count gauge.
package metrics

import (
	"context"
	"time"

	"github.com/gcristofol/httpcache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector records cache outcomes and storage operation latency.
type Collector struct {
	requests  *prometheus.CounterVec
	opLatency *prometheus.HistogramVec
	cacheSize prometheus.Gauge
}

// Config configures a Collector's registration.
type Config struct {
	// Registry to register metrics against. Defaults to
	// prometheus.DefaultRegisterer.
	Registry prometheus.Registerer

	// Namespace prefixes every metric name (default "httpcache").
	Namespace string
}

// New creates a Collector with default configuration.
func New() *Collector {
	return NewWithConfig(Config{})
}

// NewWithConfig creates a Collector registered against config.Registry.
func NewWithConfig(config Config) *Collector {
	if config.Registry == nil {
		config.Registry = prometheus.DefaultRegisterer
	}
	if config.Namespace == "" {
		config.Namespace = "httpcache"
	}

	factory := promauto.With(config.Registry)

	return &Collector{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "requests_total",
			Help:      "Total requests handled by the cache middleware, labeled by diagnostic outcome.",
		}, []string{"diagnostic"}),
		opLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "storage_operation_duration_seconds",
			Help:      "Duration of Storage.Get/Set calls.",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		}, []string{"operation"}),
		cacheSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: config.Namespace,
			Name:      "entries_estimate",
			Help:      "Best-effort estimate of live entries, updated by callers that track it (e.g. MemoryStorage.Len).",
		}),
	}
}

// ObserveDiagnostic increments the request counter for the diagnostic tag
// the middleware emitted for this request (see httpcache's Diag* constants).
func (c *Collector) ObserveDiagnostic(diagnostic string) {
	c.requests.WithLabelValues(diagnostic).Inc()
}

// ObserveStorageOperation records how long a Get or Set call against the
// Storage collaborator took.
func (c *Collector) ObserveStorageOperation(operation string, d time.Duration) {
	c.opLatency.WithLabelValues(operation).Observe(d.Seconds())
}

// SetEntryCount updates the entries_estimate gauge.
func (c *Collector) SetEntryCount(n int) {
	c.cacheSize.Set(float64(n))
}

// MeteredStorage wraps an httpcache.Storage, recording per-operation
// latency on Collector without changing behavior. Pass the result to
// httpcache.NewMiddleware in place of the underlying store.
type MeteredStorage struct {
	httpcache.Storage
	collector *Collector
}

// Wrap returns a Storage that records Get/Set latency against collector
// before delegating to store.
func Wrap(store httpcache.Storage, collector *Collector) *MeteredStorage {
	return &MeteredStorage{Storage: store, collector: collector}
}

func (m *MeteredStorage) Get(ctx context.Context, key string) (*httpcache.CachedEntry, bool, error) {
	start := time.Now()
	entry, found, err := m.Storage.Get(ctx, key)
	m.collector.ObserveStorageOperation("get", time.Since(start))
	return entry, found, err
}

func (m *MeteredStorage) Set(ctx context.Context, key string, entry *httpcache.CachedEntry, ttl time.Duration) error {
	start := time.Now()
	err := m.Storage.Set(ctx, key, entry, ttl)
	m.collector.ObserveStorageOperation("set", time.Since(start))
	return err
}
