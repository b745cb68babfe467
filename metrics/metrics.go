// Package metrics provides Prometheus metrics for document operations.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Operation results used as the "result" label.
const (
	ResultOK       = "ok"
	ResultNotFound = "not_found"
	ResultError    = "error"
)

// Metrics holds the document operation collectors.
type Metrics struct {
	gatherer prometheus.Gatherer

	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
}

// New registers the collectors on reg. A nil reg uses a fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	return &Metrics{
		gatherer: reg,
		operationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shelver_document_operations_total",
				Help: "Total number of document operations",
			},
			[]string{"provider", "op", "result"},
		),
		operationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "shelver_document_operation_duration_seconds",
				Help:    "Document operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider", "op"},
		),
	}
}

// Observe records one finished operation.
func (m *Metrics) Observe(provider, op string, start time.Time, result string) {
	m.operationsTotal.WithLabelValues(provider, op, result).Inc()
	m.operationDuration.WithLabelValues(provider, op).Observe(time.Since(start).Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
