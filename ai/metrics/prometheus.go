// Package metrics exports routing metrics in Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hrygo/triage/ai/routing"
)

const (
	namespace = "triage"
	subsystem = "router"
)

// RoutingMetrics records routing decisions and response cache traffic.
// It implements routing.Observer and routing.CacheObserver.
type RoutingMetrics struct {
	registry *prometheus.Registry

	decisions    *prometheus.CounterVec
	routeLatency *prometheus.HistogramVec
	confidence   prometheus.Histogram

	cacheLookups *prometheus.CounterVec
	cacheWrites  *prometheus.CounterVec

	decisionLogDropped prometheus.Counter
}

var (
	_ routing.Observer      = (*RoutingMetrics)(nil)
	_ routing.CacheObserver = (*RoutingMetrics)(nil)
)

// Config configures the exporter.
type Config struct {
	// Registry to use (if nil, creates a new one)
	Registry *prometheus.Registry

	// Buckets for the route latency histogram, in seconds.
	LatencyBuckets []float64

	// Register Go runtime and process collectors.
	RuntimeCollectors bool
}

// DefaultConfig returns buckets from 10µs to 100ms; Route normally stays in
// the low microseconds unless the cache store is consulted.
func DefaultConfig() Config {
	return Config{
		LatencyBuckets:    []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		RuntimeCollectors: true,
	}
}

// NewRoutingMetrics creates and registers the routing metrics.
func NewRoutingMetrics(cfg Config) *RoutingMetrics {
	if len(cfg.LatencyBuckets) == 0 {
		cfg.LatencyBuckets = DefaultConfig().LatencyBuckets
	}
	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &RoutingMetrics{registry: registry}

	m.decisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "decisions_total",
			Help:      "Routing decisions by action",
		},
		[]string{"action"},
	)
	m.routeLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "route_latency_seconds",
			Help:      "Time spent inside Route in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"action"},
	)
	m.confidence = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "classification_confidence",
			Help:      "Classifier confidence of routed calls",
			Buckets:   []float64{0, 0.2, 0.34, 0.5, 0.6, 0.67, 0.8, 1},
		},
	)
	m.cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cache_lookups_total",
			Help:      "Response cache lookups by intent and result (hit, miss, error, skipped)",
		},
		[]string{"intent", "result"},
	)
	m.cacheWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cache_writes_total",
			Help:      "Response cache writes by intent and result (stored, skipped, error)",
		},
		[]string{"intent", "result"},
	)
	m.decisionLogDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "decision_log_dropped_total",
			Help:      "Decisions dropped because the decision log queue was full",
		},
	)

	registry.MustRegister(
		m.decisions,
		m.routeLatency,
		m.confidence,
		m.cacheLookups,
		m.cacheWrites,
		m.decisionLogDropped,
	)
	if cfg.RuntimeCollectors {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	return m
}

// ObserveDecision implements routing.Observer.
func (m *RoutingMetrics) ObserveDecision(d routing.Decision) {
	action := string(d.Action)
	m.decisions.WithLabelValues(action).Inc()
	m.routeLatency.WithLabelValues(action).Observe(d.Latency.Seconds())
	m.confidence.Observe(d.Confidence)
}

// ObserveCacheLookup implements routing.CacheObserver.
func (m *RoutingMetrics) ObserveCacheLookup(intent routing.Intent, result routing.CacheResult) {
	m.cacheLookups.WithLabelValues(intentLabel(intent), string(result)).Inc()
}

// ObserveCacheWrite implements routing.CacheObserver.
func (m *RoutingMetrics) ObserveCacheWrite(intent routing.Intent, result routing.CacheResult) {
	m.cacheWrites.WithLabelValues(intentLabel(intent), string(result)).Inc()
}

// RecordDecisionLogDrop counts one decision dropped by the decision log.
// Pass it as routing.RecorderConfig.OnDrop.
func (m *RoutingMetrics) RecordDecisionLogDrop() {
	m.decisionLogDropped.Inc()
}

// Handler returns the HTTP handler for the metrics endpoint.
func (m *RoutingMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the Prometheus registry.
func (m *RoutingMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func intentLabel(intent routing.Intent) string {
	if !intent.Present() {
		return "none"
	}
	return string(intent)
}
