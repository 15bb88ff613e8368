// Package metrics exposes Prometheus collectors for forecast queries and
// quota usage.
package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "weather_quota"

// Metrics contains the Prometheus collectors. It satisfies weather.Recorder.
type Metrics struct {
	registry *prometheus.Registry

	queries       *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	accessTotal   prometheus.Gauge
	quotaUsage    prometheus.Gauge
	clients       prometheus.Gauge
}

// New registers the collectors on reg. A nil reg gets a fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		queries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "queries_total",
				Help:      "Total number of forecast queries by outcome and advisory level",
			},
			[]string{"outcome", "advisory"},
		),

		fetchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "fetch_duration_seconds",
				Help:      "Duration of forecast provider calls in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
			},
			[]string{"outcome"},
		),

		accessTotal: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "access_total",
			Help:      "Total number of accesses recorded in the ledger",
		}),

		quotaUsage: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "quota_usage_ratio",
			Help:      "Recorded accesses as a fraction of the hard limit",
		}),

		clients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "clients",
			Help:      "Number of distinct client identifiers in the ledger",
		}),
	}
}

// RecordQuery counts a finished query.
func (m *Metrics) RecordQuery(outcome, advisory string) {
	m.queries.WithLabelValues(outcome, advisory).Inc()
}

// ObserveFetch records the latency of a provider call.
func (m *Metrics) ObserveFetch(outcome string, seconds float64) {
	m.fetchDuration.WithLabelValues(outcome).Observe(seconds)
}

// UpdateUsage sets the ledger total and the usage ratio.
func (m *Metrics) UpdateUsage(total int64, usage float64) {
	m.accessTotal.Set(float64(total))
	m.quotaUsage.Set(usage)
}

// UpdateClients sets the number of distinct clients.
func (m *Metrics) UpdateClients(n int) {
	m.clients.Set(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
