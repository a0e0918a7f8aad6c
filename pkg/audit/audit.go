// Package audit adapts the two audit sinks (the document store and the
// optional Postgres mirror in pkg/store/sqlaudit) to the ActionAuditWriter
// and TelemetryRecorder interfaces pkg/agents and pkg/a2a depend on. Writes
// are always best-effort: a failure is logged, never returned, since an
// audit write must never block or fail the incident it records.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/vigil-soc/vigil/pkg/store"
	"github.com/vigil-soc/vigil/pkg/store/sqlaudit"
)

// StoreWriter persists action-audit records and agent-telemetry rows into
// the primary document store, under IndexActions / IndexAgentTelemetry.
// This is the sink used whenever no Postgres mirror is configured.
type StoreWriter struct {
	store store.Store
}

// NewStoreWriter builds a StoreWriter bound to s.
func NewStoreWriter(s store.Store) *StoreWriter {
	return &StoreWriter{store: s}
}

// WriteAudit implements agents.ActionAuditWriter.
func (w *StoreWriter) WriteAudit(ctx context.Context, rec store.ActionAuditRecord) {
	if _, err := w.store.Index(ctx, store.IndexActions, rec.ActionID, rec, false); err != nil {
		slog.Warn("action audit write failed", "action_id", rec.ActionID, "error", err)
	}
}

// Record implements a2a.TelemetryRecorder.
func (w *StoreWriter) Record(ctx context.Context, rec store.AgentTelemetry) {
	id := rec.CorrelationID + ":" + rec.ToAgent + ":" + rec.Timestamp.Format(time.RFC3339Nano)
	if _, err := w.store.Index(ctx, store.IndexAgentTelemetry, id, rec, false); err != nil {
		slog.Warn("agent telemetry write failed", "correlation_id", rec.CorrelationID, "error", err)
	}
}

// SQLMirror fans action-audit and agent-telemetry writes out to the
// Postgres mirror alongside whatever primary sink is also wired (the
// document store remains authoritative; no cmd/vigil command reads the
// mirror back).
type SQLMirror struct {
	client *sqlaudit.Client
	next   interface {
		WriteAudit(ctx context.Context, rec store.ActionAuditRecord)
		Record(ctx context.Context, rec store.AgentTelemetry)
	}
}

// NewSQLMirror builds a SQLMirror that writes to client and then forwards
// to next (typically a StoreWriter), so both sinks stay populated.
func NewSQLMirror(client *sqlaudit.Client, next *StoreWriter) *SQLMirror {
	return &SQLMirror{client: client, next: next}
}

// WriteAudit implements agents.ActionAuditWriter.
func (m *SQLMirror) WriteAudit(ctx context.Context, rec store.ActionAuditRecord) {
	row := sqlaudit.ActionAuditRow{
		IncidentID:  rec.IncidentID,
		ActionID:    rec.ActionID,
		ActionType:  rec.ActionType,
		Status:      rec.ExecutionStatus,
		Actor:       rec.TargetSystem,
		Integration: rec.TargetSystem,
		ExecutedAt:  rec.CompletedAt,
	}
	if err := m.client.InsertActionAudit(ctx, row); err != nil {
		slog.Warn("sql action audit mirror failed", "action_id", rec.ActionID, "error", err)
	}
	if m.next != nil {
		m.next.WriteAudit(ctx, rec)
	}
}

// Record implements a2a.TelemetryRecorder.
func (m *SQLMirror) Record(ctx context.Context, rec store.AgentTelemetry) {
	row := sqlaudit.AgentTelemetryRow{
		IncidentID: rec.CorrelationID,
		AgentID:    rec.ToAgent,
		Task:       rec.Task,
		Status:     rec.Status,
		DurationMS: rec.ExecutionTimeMs,
		RecordedAt: rec.Timestamp,
	}
	if err := m.client.InsertAgentTelemetry(ctx, row); err != nil {
		slog.Warn("sql agent telemetry mirror failed", "correlation_id", rec.CorrelationID, "error", err)
	}
	if m.next != nil {
		m.next.Record(ctx, rec)
	}
}
