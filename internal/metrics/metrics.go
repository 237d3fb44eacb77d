// Package metrics exposes the service's prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all metrics of one process. Each collector owns its
// registry, so tests can build as many as they like.
type Collector struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	ReconcileOps      *prometheus.CounterVec
	ReconcileFailures *prometheus.CounterVec
	ResponsesRecorded prometheus.Counter

	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
}

func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		ReconcileOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reconcile_operations_total",
				Help:      "Topic writes issued by reconciliation, by kind",
			},
			[]string{"kind"},
		),
		ReconcileFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reconcile_failures_total",
				Help:      "Reconciliations aborted by a store failure, by phase",
			},
			[]string{"phase"},
		),
		ResponsesRecorded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "responses_recorded_total",
				Help:      "Participant responses recorded",
			},
		),
		CacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Total number of interest cache hits",
			},
		),
		CacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Total number of interest cache misses",
			},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.ReconcileOps,
		c.ReconcileFailures,
		c.ResponsesRecorded,
		c.CacheHits,
		c.CacheMisses,
	)
	return c
}

// ObserveRequest records one finished HTTP request.
func (c *Collector) ObserveRequest(method, route string, status int, duration time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveReconcile adds one reconciliation's write counts.
func (c *Collector) ObserveReconcile(inserted, updated, reordered, archived int) {
	c.ReconcileOps.WithLabelValues("insert").Add(float64(inserted))
	c.ReconcileOps.WithLabelValues("update").Add(float64(updated))
	c.ReconcileOps.WithLabelValues("reorder").Add(float64(reordered))
	c.ReconcileOps.WithLabelValues("archive").Add(float64(archived))
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector's registry in the prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
