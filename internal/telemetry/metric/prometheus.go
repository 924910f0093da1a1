// Package metric provides Prometheus metrics for the SyncMesh client.
//
// It exposes metrics in Prometheus format for monitoring request rates,
// latencies, cache effectiveness, and offline journal depth.
package metric

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "syncmesh"

// Registry holds all client metrics.
//
// A nil *Registry is valid and records nothing. Callers that do not
// supply a prometheus.Registerer get a nil Registry and never need to
// guard their record calls.
type Registry struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	retriesTotal    prometheus.Counter

	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter
	cacheGCRuns prometheus.Counter

	journalAppended prometheus.Counter
	journalReplayed prometheus.Counter
	journalPending  prometheus.Gauge
}

// NewRegistry creates the client metrics and registers them on reg.
// A nil registerer disables collection and returns a nil Registry.
//
// Registering two registries on the same registerer makes the second
// one adopt the first one's collectors, so both record into the same
// series.
func NewRegistry(reg prometheus.Registerer) *Registry {
	if reg == nil {
		return nil
	}

	r := &Registry{
		requestsTotal: register(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "client",
				Name:      "requests_total",
				Help:      "Total datatype requests by operation and outcome.",
			},
			[]string{"method", "status"},
		)),
		requestDuration: register(reg, prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "client",
				Name:      "request_duration_seconds",
				Help:      "Request latency in seconds by operation.",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method"},
		)),
		retriesTotal: register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "retries_total",
			Help:      "Total request retry attempts.",
		})),
		cacheHits: register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Total local cache hits.",
		})),
		cacheMisses: register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Total local cache misses.",
		})),
		cacheGCRuns: register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "gc_runs_total",
			Help:      "Total value log garbage collection passes.",
		})),
		journalAppended: register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "journal",
			Name:      "appended_total",
			Help:      "Total operations appended to the offline journal.",
		})),
		journalReplayed: register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "journal",
			Name:      "replayed_total",
			Help:      "Total journalled operations replayed to the server.",
		})),
		journalPending: register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "journal",
			Name:      "pending",
			Help:      "Operations currently waiting in the offline journal.",
		})),
	}

	// Duplicate build info registrations are harmless.
	_ = reg.Register(NewBuildInfoCollector())

	return r
}

// register adds c to reg, adopting an existing collector when the same
// metric is already registered.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}

// RecordRequest counts one completed request.
func (r *Registry) RecordRequest(method, status string) {
	if r == nil {
		return
	}
	r.requestsTotal.WithLabelValues(method, status).Inc()
}

// ObserveRequestDuration records the latency of one request.
func (r *Registry) ObserveRequestDuration(method string, seconds float64) {
	if r == nil {
		return
	}
	r.requestDuration.WithLabelValues(method).Observe(seconds)
}

// IncRetry counts one retry attempt.
func (r *Registry) IncRetry() {
	if r == nil {
		return
	}
	r.retriesTotal.Inc()
}

// IncCacheHit counts one local cache hit.
func (r *Registry) IncCacheHit() {
	if r == nil {
		return
	}
	r.cacheHits.Inc()
}

// IncCacheMiss counts one local cache miss.
func (r *Registry) IncCacheMiss() {
	if r == nil {
		return
	}
	r.cacheMisses.Inc()
}

// IncCacheGCRun counts one value log garbage collection pass.
func (r *Registry) IncCacheGCRun() {
	if r == nil {
		return
	}
	r.cacheGCRuns.Inc()
}

// IncJournalAppended counts one operation written to the journal.
func (r *Registry) IncJournalAppended() {
	if r == nil {
		return
	}
	r.journalAppended.Inc()
}

// AddJournalReplayed counts n journalled operations replayed to the server.
func (r *Registry) AddJournalReplayed(n int) {
	if r == nil {
		return
	}
	r.journalReplayed.Add(float64(n))
}

// SetJournalPending records the current journal depth.
func (r *Registry) SetJournalPending(n int) {
	if r == nil {
		return
	}
	r.journalPending.Set(float64(n))
}
