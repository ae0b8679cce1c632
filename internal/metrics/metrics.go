// Package metrics exposes Prometheus instrumentation for HTTP traffic and
// canvas analysis.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder owns a private registry and the collectors registered on it.
type Recorder struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec

	analyses        *prometheus.CounterVec
	analysisLatency prometheus.Histogram
	cacheHits       prometheus.Counter
}

// New creates a Recorder with Go runtime and process collectors included.
func New() *Recorder {
	registry := prometheus.NewRegistry()

	r := &Recorder{
		registry: registry,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests handled, by method and status code.",
		}, []string{"method", "code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "calculator_analyses_total",
			Help: "Canvas analyses sent to the vision model, by outcome.",
		}, []string{"outcome"}),
		analysisLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "calculator_analysis_duration_seconds",
			Help:    "Vision model round-trip latency.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "calculator_cache_hits_total",
			Help: "Calculations answered from the result cache.",
		}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.httpRequests,
		r.httpLatency,
		r.analyses,
		r.analysisLatency,
		r.cacheHits,
	)
	return r
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one completed HTTP request.
func (r *Recorder) ObserveRequest(method string, status int, elapsed time.Duration) {
	r.httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	r.httpLatency.WithLabelValues(method).Observe(elapsed.Seconds())
}

// ObserveAnalysis records one vision model call.
func (r *Recorder) ObserveAnalysis(outcome string, seconds float64) {
	r.analyses.WithLabelValues(outcome).Inc()
	r.analysisLatency.Observe(seconds)
}

// ObserveCacheHit records a calculation served from cache.
func (r *Recorder) ObserveCacheHit() {
	r.cacheHits.Inc()
}
