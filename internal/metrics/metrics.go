package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Classification outcomes
const (
	OutcomeFlagged         = "flagged"
	OutcomeSafe            = "safe"
	OutcomeFallback        = "fallback"
	OutcomeKeywordOverride = "keyword_override"
)

// Metrics holds the service's collectors on its own registry
type Metrics struct {
	registry *prometheus.Registry

	// Classifications counts pipeline results by outcome
	Classifications *prometheus.CounterVec
	// AdapterLatency tracks the duration of model calls by result
	AdapterLatency *prometheus.HistogramVec
	// HTTPRequests counts handled requests by route and status
	HTTPRequests *prometheus.CounterVec
}

// New registers all collectors on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Classifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harassment_classifications_total",
				Help: "Total number of classified messages by outcome",
			},
			[]string{"outcome"},
		),
		AdapterLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "harassment_adapter_latency_seconds",
				Help:    "Latency of language model calls",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		),
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harassment_http_requests_total",
				Help: "Total number of HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
	}
}

// ObserveClassification records one pipeline result
func (m *Metrics) ObserveClassification(outcome string) {
	if m == nil {
		return
	}
	m.Classifications.WithLabelValues(outcome).Inc()
}

// ObserveAdapterCall records the duration of one model call
func (m *Metrics) ObserveAdapterCall(start time.Time, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.AdapterLatency.WithLabelValues(result).Observe(time.Since(start).Seconds())
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
