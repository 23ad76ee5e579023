// Package metrics exposes Prometheus collectors for the sync layer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "dashboard_client"

// Metrics holds the client's collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Requests      *prometheus.CounterVec
	Retries       *prometheus.CounterVec
	RequestTime   *prometheus.HistogramVec
	Healthy       prometheus.Gauge
	HealthProbes  *prometheus.CounterVec
	BatchItems    *prometheus.CounterVec
	BatchDuration prometheus.Histogram
}

// New registers all collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Outbound API requests by method and outcome (ok, http_error, network_error, aborted).",
		}, []string{"method", "outcome"}),
		Retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retries_total",
			Help:      "Retry attempts issued after a transient failure.",
		}, []string{"method"}),
		RequestTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Wall time of a request including retries and backoff.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method"}),
		Healthy: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "server_healthy",
			Help:      "1 when the last recorded contact with the API succeeded.",
		}),
		HealthProbes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "health_probes_total",
			Help:      "Explicit health probes by result.",
		}, []string{"result"}),
		BatchItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_items_total",
			Help:      "Bulk import items by entity and result (created, failed, duplicate, malformed).",
		}, []string{"entity", "result"}),
		BatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Wall time of one bulk import run.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
	}

	reg.MustRegister(
		m.Requests,
		m.Retries,
		m.RequestTime,
		m.Healthy,
		m.HealthProbes,
		m.BatchItems,
		m.BatchDuration,
	)
	m.Healthy.Set(1)
	return m
}

// ObserveRequest records one finished request.
func (m *Metrics) ObserveRequest(method, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(method, outcome).Inc()
	m.RequestTime.WithLabelValues(method).Observe(seconds)
}

// ObserveRetry counts one retry.
func (m *Metrics) ObserveRetry(method string) {
	if m == nil {
		return
	}
	m.Retries.WithLabelValues(method).Inc()
}

// SetHealthy mirrors the health flag.
func (m *Metrics) SetHealthy(healthy bool) {
	if m == nil {
		return
	}
	if healthy {
		m.Healthy.Set(1)
	} else {
		m.Healthy.Set(0)
	}
}

// ObserveProbe counts an explicit health probe.
func (m *Metrics) ObserveProbe(healthy bool) {
	if m == nil {
		return
	}
	result := "down"
	if healthy {
		result = "up"
	}
	m.HealthProbes.WithLabelValues(result).Inc()
}

// ObserveBatch records the per-result counts of one bulk run.
func (m *Metrics) ObserveBatch(entity string, created, failed, duplicates, malformed int, seconds float64) {
	if m == nil {
		return
	}
	m.BatchItems.WithLabelValues(entity, "created").Add(float64(created))
	m.BatchItems.WithLabelValues(entity, "failed").Add(float64(failed))
	m.BatchItems.WithLabelValues(entity, "duplicate").Add(float64(duplicates))
	m.BatchItems.WithLabelValues(entity, "malformed").Add(float64(malformed))
	m.BatchDuration.Observe(seconds)
}
