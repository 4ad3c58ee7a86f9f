// Package metrics exposes the Prometheus instruments the backend records.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	entityOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pmhub_entity_operations_total",
		Help: "Entity operations by type, operation and outcome.",
	}, []string{"entity", "operation", "outcome"})

	auditEntries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pmhub_audit_entries_total",
		Help: "Audit entries appended to the change history.",
	})

	versionConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pmhub_version_conflicts_total",
		Help: "Optimistic lock conflicts by entity type.",
	}, []string{"entity"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pmhub_http_request_duration_seconds",
		Help:    "HTTP request latency by method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// ObserveEntityOp records one entity operation outcome
// ("ok", "validation", "conflict", "forbidden", "blocked" or "error").
func ObserveEntityOp(entity, operation, outcome string) {
	entityOps.WithLabelValues(entity, operation, outcome).Inc()
}

// ObserveAuditEntry records one appended audit entry.
func ObserveAuditEntry() {
	auditEntries.Inc()
}

// ObserveConflict records one optimistic lock conflict.
func ObserveConflict(entity string) {
	versionConflicts.WithLabelValues(entity).Inc()
}

// ObserveRequest records one finished HTTP request.
func ObserveRequest(method, route, status string, seconds float64) {
	requestDuration.WithLabelValues(method, route, status).Observe(seconds)
}
