// Package metrics exposes Prometheus counters for the chat service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the service counters. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	registry *prometheus.Registry

	requests      *prometheus.CounterVec
	invocations   *prometheus.CounterVec
	fallbacks     *prometheus.CounterVec
	discardedHits *prometheus.CounterVec
	syncs         *prometheus.CounterVec
}

// New registers the counters on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ragchat_http_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"route", "status"}),
		invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ragchat_model_invocations_total",
			Help: "Model invocations by model and outcome.",
		}, []string{"model", "outcome"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ragchat_model_fallbacks_total",
			Help: "Primary model failures answered by the fallback model.",
		}, []string{"from", "to"}),
		discardedHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ragchat_discarded_hits_total",
			Help: "Search hits dropped after retrieval, by reason.",
		}, []string{"reason"}),
		syncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ragchat_index_syncs_total",
			Help: "Index synchronizations by operation and outcome.",
		}, []string{"operation", "outcome"}),
	}

	m.registry.MustRegister(m.requests, m.invocations, m.fallbacks, m.discardedHits, m.syncs)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Request counts a served HTTP request.
func (m *Metrics) Request(route, status string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, status).Inc()
}

// ModelInvoked counts a model invocation.
func (m *Metrics) ModelInvoked(model, outcome string) {
	if m == nil {
		return
	}
	m.invocations.WithLabelValues(model, outcome).Inc()
}

// ModelFallback counts a switch from the primary to the fallback model.
func (m *Metrics) ModelFallback(from, to string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(from, to).Inc()
}

// HitsDiscarded counts hits removed by the tenant or focus checks.
func (m *Metrics) HitsDiscarded(reason string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.discardedHits.WithLabelValues(reason).Add(float64(n))
}

// IndexSync counts an index upsert or removal.
func (m *Metrics) IndexSync(operation, outcome string) {
	if m == nil {
		return
	}
	m.syncs.WithLabelValues(operation, outcome).Inc()
}
