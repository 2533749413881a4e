// Package observability provides Prometheus metrics and HTTP middleware
// for the gallery service.
package observability

import "github.com/prometheus/client_golang/prometheus"

// QueryBuckets covers Weaviate query latencies from 10ms to 30s.
var QueryBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

var (
	// RequestsTotal counts HTTP requests by method, route and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "route", "status"},
	)

	// RequestDuration records HTTP request duration in seconds.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gallery_request_duration_seconds",
			Help:    "Request duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// QueriesTotal counts Weaviate queries by mode and outcome.
	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_weaviate_queries_total",
			Help: "Weaviate queries",
		},
		[]string{"mode", "status"},
	)

	// QueryLatency records Weaviate query latency in seconds.
	QueryLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gallery_weaviate_query_latency_seconds",
			Help:    "Weaviate query latency",
			Buckets: QueryBuckets,
		},
		[]string{"mode"},
	)

	// SupersededTotal counts responses dropped because a newer search started.
	SupersededTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_superseded_responses_total",
			Help: "Discarded stale responses",
		},
		[]string{"operation"},
	)

	// ActiveSessions tracks sessions held by the registry.
	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "gallery_sessions_active",
			Help: "Active browser sessions",
		},
	)

	// RateLimitRejectedTotal counts requests rejected by the search limiter.
	RateLimitRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gallery_ratelimit_rejected_total",
			Help: "Rate limit rejections",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		QueriesTotal,
		QueryLatency,
		SupersededTotal,
		ActiveSessions,
		RateLimitRejectedTotal,
	)
}
