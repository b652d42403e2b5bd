// Package metrics exposes the service's Prometheus collectors on a private registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector the service records into.
// Recording on a nil *Metrics is a no-op.
type Metrics struct {
	registry *prometheus.Registry

	StageLoadFailures          *prometheus.CounterVec
	AggregationPartialFailures *prometheus.CounterVec
	EventPublishFailures       *prometheus.CounterVec
	JobRuns                    *prometheus.CounterVec
	HTTPRequests               *prometheus.CounterVec
	HTTPRequestDuration        *prometheus.HistogramVec
}

// New creates the collectors and registers them with a fresh registry.
// Go runtime and process collectors are included.
func New(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		StageLoadFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_load_failures_total",
			Help:      "Pipeline stage fetch failures by source.",
		}, []string{"source"}),
		AggregationPartialFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aggregation_partial_failures_total",
			Help:      "Collections left out of a pipeline view after retries were exhausted.",
		}, []string{"collection"}),
		EventPublishFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_publish_failures_total",
			Help:      "Pipeline events that could not be handed to the publisher.",
		}, []string{"type"}),
		JobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Background job runs by job and outcome.",
		}, []string{"job", "status"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: namespace}),
		m.StageLoadFailures,
		m.AggregationPartialFailures,
		m.EventPublishFailures,
		m.JobRuns,
		m.HTTPRequests,
		m.HTTPRequestDuration,
	)
	return m
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordStageLoadFailure counts one failed stage fetch
func (m *Metrics) RecordStageLoadFailure(source string) {
	if m == nil {
		return
	}
	m.StageLoadFailures.WithLabelValues(source).Inc()
}

// RecordPartialFailure counts one collection dropped from a pipeline view
func (m *Metrics) RecordPartialFailure(collection string) {
	if m == nil {
		return
	}
	m.AggregationPartialFailures.WithLabelValues(collection).Inc()
}

// RecordPublishFailure counts one event that failed to publish
func (m *Metrics) RecordPublishFailure(eventType string) {
	if m == nil {
		return
	}
	m.EventPublishFailures.WithLabelValues(eventType).Inc()
}

// RecordJobRun counts one job run
func (m *Metrics) RecordJobRun(job string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.JobRuns.WithLabelValues(job, status).Inc()
}

// ObserveRequest records one served HTTP request
func (m *Metrics) ObserveRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
