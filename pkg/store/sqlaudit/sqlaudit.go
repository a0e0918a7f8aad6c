// Package sqlaudit mirrors action-audit and agent-telemetry records into
// Postgres. It is not a second implementation of the document store:
// writes are best-effort fan-out from the coordinator and agents alongside
// the authoritative store.Store. The read queries (ActionsForIncident,
// AgentDurations) are exercised by this package's test; no cmd/vigil
// command calls them.
package sqlaudit

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations
var migrationsFS embed.FS

// Config configures the Postgres connection backing the audit mirror.
type Config struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

func (c Config) dsn() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, sslMode)
}

// Client is a thin wrapper over database/sql using the pgx stdlib driver.
// Unlike tarsy's client.go it never hands the connection to an ORM: every
// statement here is hand-written and every row read back into a plain
// struct, since ent is not part of this module's dependency set.
type Client struct {
	db *sql.DB
}

// NewClient opens a connection pool and applies any pending migrations.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	db, err := sql.Open("pgx", cfg.dsn())
	if err != nil {
		return nil, fmt.Errorf("sqlaudit: open: %w", err)
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen == 0 {
		maxOpen = 10
	}
	maxIdle := cfg.MaxIdleConns
	if maxIdle == 0 {
		maxIdle = 5
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlaudit: ping: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlaudit: migrate: %w", err)
	}

	return &Client{db: db}, nil
}

// runMigrations applies migrations/*.sql via golang-migrate. It deliberately
// never calls m.Close(), which would close the shared *sql.DB out from under
// the rest of the client — only the source driver is closed, matching the
// caveat tarsy's own database client observes.
func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("source driver: %w", err)
	}
	defer sourceDriver.Close()

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (c *Client) Close() error {
	return c.db.Close()
}

// ActionAuditRow is the flattened, queryable projection of an
// ActionAuditRecord, joined here with the incident it belongs to.
type ActionAuditRow struct {
	IncidentID  string
	ActionID    string
	ActionType  string
	Status      string
	Actor       string
	Integration string
	ExecutedAt  time.Time
}

// InsertActionAudit mirrors one audit record. Best-effort: callers log and
// continue on error rather than fail the incident's state transition.
func (c *Client) InsertActionAudit(ctx context.Context, row ActionAuditRow) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO action_audit (incident_id, action_id, action_type, status, actor, integration, executed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (action_id) DO UPDATE SET status = EXCLUDED.status, executed_at = EXCLUDED.executed_at
	`, row.IncidentID, row.ActionID, row.ActionType, row.Status, row.Actor, row.Integration, row.ExecutedAt)
	return err
}

// AgentTelemetryRow is the flattened projection of an AgentTelemetry record.
type AgentTelemetryRow struct {
	IncidentID string
	AgentID    string
	Task       string
	Status     string
	DurationMS int64
	RecordedAt time.Time
}

// InsertAgentTelemetry mirrors one agent-telemetry record.
func (c *Client) InsertAgentTelemetry(ctx context.Context, row AgentTelemetryRow) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO agent_telemetry (incident_id, agent_id, task, status, duration_ms, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, row.IncidentID, row.AgentID, row.Task, row.Status, row.DurationMS, row.RecordedAt)
	return err
}

// ActionsForIncident lists audit rows for one incident, most recent first.
func (c *Client) ActionsForIncident(ctx context.Context, incidentID string) ([]ActionAuditRow, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT incident_id, action_id, action_type, status, actor, integration, executed_at
		FROM action_audit WHERE incident_id = $1 ORDER BY executed_at DESC
	`, incidentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ActionAuditRow
	for rows.Next() {
		var r ActionAuditRow
		if err := rows.Scan(&r.IncidentID, &r.ActionID, &r.ActionType, &r.Status, &r.Actor, &r.Integration, &r.ExecutedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// AgentDurations reports mean handler duration per agent over the lookback
// window.
func (c *Client) AgentDurations(ctx context.Context, since time.Time) (map[string]float64, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT agent_id, AVG(duration_ms) FROM agent_telemetry
		WHERE recorded_at >= $1 GROUP BY agent_id
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var agentID string
		var avg float64
		if err := rows.Scan(&agentID, &avg); err != nil {
			return nil, err
		}
		out[agentID] = avg
	}
	return out, rows.Err()
}
