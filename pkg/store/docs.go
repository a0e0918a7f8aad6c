// Package store defines the document shapes Vigil persists to the external
// document store (§3, §6, §10) and the Store interface core components use
// to read and write them. The document store itself — indexing, search,
// bulk writes, optimistic concurrency enforcement — is an out-of-scope
// external collaborator; this package only defines the wire shapes and a
// uniform client interface (store.go), plus one in-memory implementation
// used by tests and the CLI (memstore.go). sqlaudit/ is a Postgres mirror
// of audit and telemetry records, not a Store implementation.
package store

import "time"

// Index names, matching §6's required indices/data-streams.
const (
	IndexAlerts             = "vigil-alerts"
	IndexAlertClaims        = "vigil-alert-claims"
	IndexIncidents          = "vigil-incidents"
	IndexInvestigations     = "vigil-investigations"
	IndexActions            = "vigil-actions"
	IndexAgentTelemetry     = "vigil-agent-telemetry"
	IndexApprovalResponses  = "vigil-approval-responses"
	IndexRunbooks           = "vigil-runbooks"
	IndexAssets             = "vigil-assets"
	IndexThreatIntel        = "vigil-threat-intel"
	IndexBaselines          = "vigil-baselines"
	IndexMetrics            = "vigil-metrics"
	IndexGithubEvents       = "github-events"
	IndexLogs               = "logs"
)

// Alert is an ingested signal, claimed exactly once by the watcher (§3).
type Alert struct {
	ID              string         `json:"alert_id"`
	RuleID          string         `json:"rule_id"`
	Severity        string         `json:"severity"`
	Source          string         `json:"source"`
	Destination     string         `json:"destination,omitempty"`
	Asset           string         `json:"asset"`
	Enrichment      map[string]any `json:"enrichment,omitempty"`
	PriorityScore   float64        `json:"priority_score,omitempty"`
	Disposition     string         `json:"disposition,omitempty"`
	Processed       bool           `json:"processed"`
	CreatedAt       time.Time      `json:"created_at"`
}

// AlertClaim is the conditional-create document that enforces exactly-once
// alert handling (I4 / P4).
type AlertClaim struct {
	AlertID   string    `json:"alert_id"`
	ClaimedAt time.Time `json:"claimed_at"`
	ClaimedBy string    `json:"claimed_by"`
}

// Incident states (§4.5).
const (
	StatusDetected      = "detected"
	StatusTriaging      = "triaging"
	StatusTriaged       = "triaged"
	StatusInvestigating = "investigating"
	StatusThreatHunting = "threat_hunting"
	StatusPlanning      = "planning"
	StatusAwaitApproval = "awaiting_approval"
	StatusExecuting     = "executing"
	StatusVerifying     = "verifying"
	StatusReflecting    = "reflecting"
	StatusResolved      = "resolved"
	StatusEscalated     = "escalated"
	StatusSuppressed    = "suppressed"
)

// Resolution types.
const (
	ResolutionAutoResolved = "auto_resolved"
	ResolutionEscalated    = "escalated"
	ResolutionSuppressed   = "suppressed"
)

// Incident types.
const (
	IncidentTypeSecurity    = "security"
	IncidentTypeOperational = "operational"
)

// AgentInvolvement records one agent's participation in an incident, the
// way tarsy records an AgentExecution row per stage.
type AgentInvolvement struct {
	Agent string    `json:"agent"`
	Task  string    `json:"task"`
	At    time.Time `json:"at"`
}

// Incident is the authoritative per-incident document (§3, §6).
type Incident struct {
	IncidentID       string            `json:"incident_id"`
	Status           string            `json:"status"`
	IncidentType     string            `json:"incident_type"`
	Severity         string            `json:"severity"`
	PriorityScore    float64           `json:"priority_score"`
	AlertIDs         []string          `json:"alert_ids"`
	ReflectionCount  int               `json:"reflection_count"`
	AgentsInvolved   []AgentInvolvement `json:"agents_involved"`
	AffectedAssets   []string          `json:"affected_assets,omitempty"`
	InvestigationSummary *InvestigationReport `json:"investigation_summary,omitempty"`
	RemediationPlan  *RemediationPlan  `json:"remediation_plan,omitempty"`
	VerificationResults []VerificationResult `json:"verification_results,omitempty"`
	ResolutionType   string            `json:"resolution_type,omitempty"`
	Notes            []string          `json:"notes,omitempty"`

	TTDSeconds             float64 `json:"ttd_seconds,omitempty"`
	TTISeconds             float64 `json:"tti_seconds,omitempty"`
	TTRSeconds             float64 `json:"ttr_seconds,omitempty"`
	TTVSeconds             float64 `json:"ttv_seconds,omitempty"`
	TotalDurationSeconds   float64 `json:"total_duration_seconds,omitempty"`

	StateTimestamps map[string]time.Time `json:"_state_timestamps"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`

	SeqNo        int64 `json:"_seq_no"`
	PrimaryTerm  int64 `json:"_primary_term"`
}

// NewIncidentID formats an incident identity as INC-YYYY-XXXXX.
func NewIncidentID(year int, seq int) string {
	return formatIncidentID(year, seq)
}

// BlastRadiusAsset is one asset named in an investigation's blast radius.
type BlastRadiusAsset struct {
	Asset      string  `json:"asset"`
	Confidence float64 `json:"confidence"`
}

// ChangeCorrelation links an operational anomaly to a recent deployment.
type ChangeCorrelation struct {
	Matched         bool    `json:"matched"`
	Confidence      string  `json:"confidence,omitempty"` // high|medium|low
	Commit          string  `json:"commit,omitempty"`
	Author          string  `json:"author,omitempty"`
	TimeGapSeconds  float64 `json:"time_gap_seconds,omitempty"`
}

// ThreatIntelMatch is one indicator-of-compromise hit.
type ThreatIntelMatch struct {
	Indicator string `json:"indicator"`
	Type      string `json:"type"` // ip|hash|domain|...
	Source    string `json:"source"`
	Technique string `json:"technique,omitempty"` // MITRE ATT&CK T####
}

// InvestigationReport is produced once per investigation attempt (§3).
type InvestigationReport struct {
	InvestigationID      string             `json:"investigation_id"`
	IncidentID           string             `json:"incident_id"`
	Iteration            int                `json:"iteration"`
	RootCause            string             `json:"root_cause"`
	AttackChain           []string          `json:"attack_chain,omitempty"`
	BlastRadius          []BlastRadiusAsset `json:"blast_radius,omitempty"`
	ThreatIntel          []ThreatIntelMatch `json:"threat_intel,omitempty"`
	ChangeCorrelation    *ChangeCorrelation `json:"change_correlation,omitempty"`
	RecommendedNext      string             `json:"recommended_next"` // threat_hunt|plan_remediation|escalate
	CreatedAt            time.Time          `json:"created_at"`
}

// ThreatScope is produced by the threat-hunter for security incidents only.
type ThreatScope struct {
	ConfirmedCompromised []CompromisedHost `json:"confirmed_compromised"`
	SuspectedCompromised []CompromisedHost `json:"suspected_compromised"`
	TotalAssetsScanned   int               `json:"total_assets_scanned"`
	CleanAssets          int               `json:"clean_assets"`
}

// CompromisedHost is one host/user categorized by the threat hunter.
type CompromisedHost struct {
	Asset        string  `json:"asset"`
	HitCount     int     `json:"hit_count"`
	AnomalyScore float64 `json:"anomaly_score"`
}

// Action types for remediation plan steps.
const (
	ActionContainment    = "containment"
	ActionRemediation    = "remediation"
	ActionCommunication  = "communication"
	ActionDocumentation  = "documentation"
)

// PlanAction is one ordered step of a remediation plan (§4.6 Commander).
type PlanAction struct {
	Order             int      `json:"order"`
	ActionType        string   `json:"action_type"`
	Description       string   `json:"description"`
	TargetSystem      string   `json:"target_system"`
	TargetAsset       string   `json:"target_asset"`
	ApprovalRequired  bool     `json:"approval_required"`
	Rollback          []string `json:"rollback,omitempty"`
}

// SuccessCriterion is one measurable post-action health check.
type SuccessCriterion struct {
	Metric      string  `json:"metric"`
	Operator    string  `json:"operator"` // lt|lte|gt|gte|eq
	Threshold   float64 `json:"threshold"`
	ServiceName string  `json:"service_name"`
}

// RemediationPlan is the ordered, deduplicated output of the commander.
type RemediationPlan struct {
	Actions          []PlanAction       `json:"actions"`
	SuccessCriteria  []SuccessCriterion `json:"success_criteria"`
	RequiresApproval bool               `json:"requires_approval"`
	RunbookUsed      string             `json:"runbook_used,omitempty"`
}

// Execution statuses.
const (
	ExecStatusCompleted      = "completed"
	ExecStatusPartialFailure = "partial_failure"
	ExecStatusFailed         = "failed"
)

// ActionResult is one executed action's outcome, embedded in an execution
// summary response.
type ActionResult struct {
	ActionOrder int    `json:"action_order"`
	Status      string `json:"status"` // completed|failed
	Error       string `json:"error,omitempty"`
}

// ExecutionSummary is the executor's contract response.
type ExecutionSummary struct {
	Status           string         `json:"status"`
	ActionsCompleted int            `json:"actions_completed"`
	ActionsFailed    int            `json:"actions_failed"`
	ActionResults    []ActionResult `json:"action_results"`
}

// CriterionActual is one criterion's measured value during verification.
type CriterionActual struct {
	Metric  string  `json:"metric"`
	Actual  float64 `json:"actual"`
	Passed  bool    `json:"passed"`
}

// VerificationResult is the verifier's contract response, also appended to
// the incident's verification_results list.
type VerificationResult struct {
	Iteration        int               `json:"iteration"`
	HealthScore      float64           `json:"health_score"`
	Passed           bool              `json:"passed"`
	CriteriaActuals  []CriterionActual `json:"criteria_actuals"`
	FailureAnalysis  string            `json:"failure_analysis,omitempty"`
	Timestamp        time.Time         `json:"timestamp"`
}

// Execution statuses for action audit records.
const (
	AuditStatusCompleted = "completed"
	AuditStatusFailed    = "failed"
)

// ActionAuditRecord is an immutable, write-once audit trail entry (§3).
type ActionAuditRecord struct {
	ActionID         string     `json:"action_id"`
	IncidentID       string     `json:"incident_id"`
	AgentName        string     `json:"agent_name"`
	ActionType       string     `json:"action_type"`
	TargetSystem     string     `json:"target_system"`
	TargetAsset      string     `json:"target_asset"`
	StartedAt        time.Time  `json:"started_at"`
	CompletedAt      time.Time  `json:"completed_at"`
	DurationMs       int64      `json:"duration_ms"`
	ExecutionStatus  string     `json:"execution_status"`
	ResultSummary    string     `json:"result_summary,omitempty"`
	ErrorMessage     string     `json:"error_message,omitempty"`
	RollbackAvailable bool      `json:"rollback_available"`
}

// Telemetry statuses.
const (
	TelemetrySuccess       = "success"
	TelemetryTimeout       = "timeout"
	TelemetryError         = "error"
	TelemetryCardUnavail   = "card_unavailable"
	TelemetrySuccessLocal  = "success_local"
)

// AgentTelemetry is one A2A call's telemetry record (§3).
type AgentTelemetry struct {
	Timestamp      time.Time `json:"timestamp"`
	FromAgent      string    `json:"from_agent"`
	ToAgent        string    `json:"to_agent"`
	CorrelationID  string    `json:"correlation_id"`
	Task           string    `json:"task"`
	ExecutionTimeMs int64    `json:"execution_time_ms"`
	Status         string    `json:"status"`
}

// Approval values.
const (
	ApprovalApprove = "approve"
	ApprovalReject  = "reject"
	ApprovalInfo    = "info"
)

// ApprovalResponse is an operator's decision on a pending approval request.
type ApprovalResponse struct {
	IncidentID string    `json:"incident_id"`
	ActionID   string    `json:"action_id"`
	Value      string    `json:"value"`
	User       string    `json:"user"`
	Timestamp  time.Time `json:"timestamp"`
}

// Runbook is a stored playbook whose steps the commander classifies into
// plan actions.
type Runbook struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Rank     int          `json:"rank"`
	Steps    []PlanAction `json:"steps"`
}
