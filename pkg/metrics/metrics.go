// Package metrics exposes the process-wide Prometheus collectors the gin
// server publishes at /metrics, grounded on the same promauto-registered
// package-level collector pattern used elsewhere in the pack.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AlertsProcessedTotal counts every alert the watcher hands to a
	// coordinator drive loop.
	AlertsProcessedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vigil_alerts_processed_total",
		Help: "Total alerts claimed and dispatched to the coordinator.",
	})

	// IncidentsResolvedTotal counts incidents reaching the resolved state,
	// labeled by incident_type.
	IncidentsResolvedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vigil_incidents_resolved_total",
		Help: "Total incidents that reached resolved, by incident type.",
	}, []string{"incident_type"})

	// IncidentsEscalatedTotal counts incidents reaching the escalated
	// state, labeled by incident_type.
	IncidentsEscalatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vigil_incidents_escalated_total",
		Help: "Total incidents that reached escalated, by incident type.",
	}, []string{"incident_type"})

	// ReflectionLoopsTotal counts every reflecting -> investigating
	// re-entry. It carries no labels; a single incident's reflection count
	// lives on the incident document (reflection_count).
	ReflectionLoopsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vigil_reflection_loops_total",
		Help: "Total reflection loop re-entries across all incidents.",
	})

	// A2ACallDuration measures one router dispatch's wall-clock time,
	// labeled by agent id and outcome status.
	A2ACallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vigil_a2a_call_duration_seconds",
		Help:    "A2A router dispatch duration by agent and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"agent", "status"})

	// IntegrationCallErrorsTotal counts failed external-integration calls,
	// labeled by integration name and error class.
	IntegrationCallErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vigil_integration_call_errors_total",
		Help: "Total integration call failures, by integration and error class.",
	}, []string{"integration", "error_class"})
)

// RecordAlertProcessed increments the alert-processed counter.
func RecordAlertProcessed() {
	AlertsProcessedTotal.Inc()
}

// RecordIncidentResolved increments the resolved counter for incidentType.
func RecordIncidentResolved(incidentType string) {
	IncidentsResolvedTotal.WithLabelValues(incidentType).Inc()
}

// RecordIncidentEscalated increments the escalated counter for incidentType.
func RecordIncidentEscalated(incidentType string) {
	IncidentsEscalatedTotal.WithLabelValues(incidentType).Inc()
}

// RecordReflectionLoop increments the reflection-loop counter.
func RecordReflectionLoop() {
	ReflectionLoopsTotal.Inc()
}

// RecordA2ACall observes one dispatch's duration for agent/status.
func RecordA2ACall(agent, status string, d time.Duration) {
	A2ACallDuration.WithLabelValues(agent, status).Observe(d.Seconds())
}

// RecordIntegrationError increments the integration-error counter.
func RecordIntegrationError(integrationName, errorClass string) {
	IntegrationCallErrorsTotal.WithLabelValues(integrationName, errorClass).Inc()
}
