// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks engine operation latency
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relevance_operation_duration_seconds",
			Help:    "Duration of search, recommend and suggest operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// CacheLookups counts result cache lookups by outcome
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relevance_cache_lookups_total",
			Help: "Total number of result cache lookups",
		},
		[]string{"operation", "result"}, // "hit", "miss", "error"
	)

	// CatalogFetchErrors counts failed catalog snapshot reads
	CatalogFetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relevance_catalog_fetch_errors_total",
			Help: "Total number of failed catalog snapshot reads",
		},
		[]string{"source"},
	)

	// DegradedResponses counts responses served through a fallback path
	DegradedResponses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relevance_degraded_responses_total",
			Help: "Total number of responses produced by a fallback path",
		},
		[]string{"operation", "reason"},
	)

	// HTTPRequests counts gateway requests
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relevance_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "status"},
	)
)
