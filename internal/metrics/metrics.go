package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "flightorders_http_request_duration_seconds",
		Help:    "HTTP request latency by route and status",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	OrderOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flightorders_order_operations_total",
		Help: "Ledger operations by kind and outcome",
	}, []string{"operation", "outcome"})

	OutboxPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flightorders_outbox_events_published_total",
		Help: "The total number of outbox events published to Kafka",
	})
	OutboxPublishErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flightorders_outbox_publish_errors_total",
		Help: "The total number of failed outbox publish attempts",
	})

	AuditEntries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flightorders_audit_entries_total",
		Help: "Order history entries written by the audit consumer",
	}, []string{"event_type"})
)
