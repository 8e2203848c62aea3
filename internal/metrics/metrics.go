// Package metrics exposes Prometheus collectors for the news pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "smart_portfolio"

// Metrics groups the collectors of one service. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	aggregations       *prometheus.CounterVec
	aggregationSeconds prometheus.Histogram
	duplicatesDropped  prometheus.Counter
	sentimentCalls     *prometheus.CounterVec
	archivedItems      *prometheus.CounterVec
}

// New registers the collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New(service string) *Metrics {
	labels := prometheus.Labels{"service": service}
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		aggregations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "aggregations_total",
			Help:        "News aggregations by outcome.",
			ConstLabels: labels,
		}, []string{"outcome"}),
		aggregationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "aggregation_duration_seconds",
			Help:        "Wall time of one news aggregation.",
			ConstLabels: labels,
			Buckets:     []float64{0.25, 0.5, 1, 2, 4, 8, 15},
		}),
		duplicatesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "duplicates_dropped_total",
			Help:        "Headlines removed as near-duplicates.",
			ConstLabels: labels,
		}),
		sentimentCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "sentiment_calls_total",
			Help:        "Sentiment classifications by outcome.",
			ConstLabels: labels,
		}, []string{"outcome"}),
		archivedItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "archived_items_total",
			Help:        "Archive writes by outcome.",
			ConstLabels: labels,
		}, []string{"outcome"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.aggregations,
		m.aggregationSeconds,
		m.duplicatesDropped,
		m.sentimentCalls,
		m.archivedItems,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveAggregation(elapsed time.Duration, dropped int, err error) {
	if m == nil {
		return
	}
	m.aggregationSeconds.Observe(elapsed.Seconds())
	if err != nil {
		m.aggregations.WithLabelValues("failed").Inc()
		return
	}
	m.aggregations.WithLabelValues("ok").Inc()
	m.duplicatesDropped.Add(float64(dropped))
}

func (m *Metrics) ObserveSentiment(ok, failed int) {
	if m == nil {
		return
	}
	m.sentimentCalls.WithLabelValues("ok").Add(float64(ok))
	m.sentimentCalls.WithLabelValues("failed").Add(float64(failed))
}

// ObserveArchive records one archive outcome: indexed, duplicate or failed.
func (m *Metrics) ObserveArchive(outcome string) {
	if m == nil {
		return
	}
	m.archivedItems.WithLabelValues(outcome).Inc()
}
