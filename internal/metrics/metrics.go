// Package metrics declares the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ChangeRequestTransitions counts committed status changes by target status.
	ChangeRequestTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "projectos_change_request_transitions_total",
		Help: "Committed change request status transitions by resulting status",
	}, []string{"status"})

	// DecisionConflicts counts client decisions refused because the request was no longer pending.
	DecisionConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "projectos_decision_conflicts_total",
		Help: "Client decisions rejected because the change request was already finalized",
	})

	// AuditEntries counts appended audit log rows by action.
	AuditEntries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "projectos_audit_entries_total",
		Help: "Audit log entries written by action",
	}, []string{"action"})

	// HTTPRequestDuration records handler latency by method, route and status.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "projectos_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)
