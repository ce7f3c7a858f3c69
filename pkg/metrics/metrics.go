// Package metrics provides Prometheus metrics for the fern service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SyncPagesTotal tracks batch sync page calls by outcome
	SyncPagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "sync",
			Name:      "pages_total",
			Help:      "Total number of batch sync pages by entity type and status",
		},
		[]string{"entity_type", "status"},
	)

	// SyncPageDuration tracks batch sync page duration in seconds
	SyncPageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fern",
			Subsystem: "sync",
			Name:      "page_duration_seconds",
			Help:      "Duration of batch sync pages in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"entity_type"},
	)

	// DocumentsTotal tracks documents written to or removed from the index
	DocumentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "index",
			Name:      "documents_total",
			Help:      "Total number of index documents by entity type and operation (indexed, deleted, failed)",
		},
		[]string{"entity_type", "operation", "source"},
	)

	// EventsTotal tracks lifecycle events handled by the incremental indexer
	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "indexer",
			Name:      "events_total",
			Help:      "Total number of lifecycle events handled by event name and status",
		},
		[]string{"event", "status"},
	)

	// EventDuration tracks incremental indexer handling time
	EventDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fern",
			Subsystem: "indexer",
			Name:      "event_duration_seconds",
			Help:      "Duration of lifecycle event handling in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"event"},
	)

	// DLQEntriesTotal tracks events sent to the dead letter stream
	DLQEntriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "dlq",
			Name:      "entries_total",
			Help:      "Total number of events sent to the dead letter stream",
		},
		[]string{"event"},
	)

	// HTTPClientRequestsTotal tracks outbound requests to the CMS and search engine
	HTTPClientRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "http_client",
			Name:      "requests_total",
			Help:      "Total number of outbound HTTP requests",
		},
		[]string{"upstream", "method", "status_code"},
	)

	// HTTPClientRequestDuration tracks outbound request duration
	HTTPClientRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fern",
			Subsystem: "http_client",
			Name:      "request_duration_seconds",
			Help:      "Duration of outbound HTTP requests in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"upstream", "method"},
	)

	// KafkaMessagesTotal tracks consumed and produced Kafka messages
	KafkaMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "kafka",
			Name:      "messages_total",
			Help:      "Total number of Kafka messages by topic, direction and status",
		},
		[]string{"topic", "direction", "status"},
	)
)

const (
	SourceBatch = "batch"
	SourceEvent = "event"
)

// RecordDocuments adds indexed, deleted and failed counts for one write.
func RecordDocuments(entityType, source string, indexed, deleted, failed int) {
	if indexed > 0 {
		DocumentsTotal.WithLabelValues(entityType, "indexed", source).Add(float64(indexed))
	}
	if deleted > 0 {
		DocumentsTotal.WithLabelValues(entityType, "deleted", source).Add(float64(deleted))
	}
	if failed > 0 {
		DocumentsTotal.WithLabelValues(entityType, "failed", source).Add(float64(failed))
	}
}
