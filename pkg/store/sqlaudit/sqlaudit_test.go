package sqlaudit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

// TestClient_MirrorsAuditAndTelemetry spins up a disposable Postgres via
// testcontainers-go and exercises the mirror's write/read paths end to end.
// Skipped automatically when Docker is unavailable in the test environment.
func TestClient_MirrorsAuditAndTelemetry(t *testing.T) {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("vigil"),
		tcpostgres.WithUsername("vigil"),
		tcpostgres.WithPassword("vigil"),
	)
	if err != nil {
		t.Skipf("skipping: could not start postgres container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	client, err := NewClient(ctx, Config{
		Host:     host,
		Port:     port.Int(),
		User:     "vigil",
		Password: "vigil",
		Database: "vigil",
		SSLMode:  "disable",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	now := time.Now().UTC()
	require.NoError(t, client.InsertActionAudit(ctx, ActionAuditRow{
		IncidentID:  "INC-2026-00001",
		ActionID:    "act-1",
		ActionType:  "isolate_host",
		Status:      "succeeded",
		Actor:       "executor",
		Integration: "edr",
		ExecutedAt:  now,
	}))
	require.NoError(t, client.InsertAgentTelemetry(ctx, AgentTelemetryRow{
		IncidentID: "INC-2026-00001",
		AgentID:    "investigator",
		Task:       "investigate",
		Status:     "succeeded",
		DurationMS: 1200,
		RecordedAt: now,
	}))

	rows, err := client.ActionsForIncident(ctx, "INC-2026-00001")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "isolate_host", rows[0].ActionType)

	durations, err := client.AgentDurations(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	require.Contains(t, durations, "investigator")
}
