package contracts

import "github.com/vigil-soc/vigil/pkg/store"

// EnrichAndScoreRequest asks the triage agent to enrich and score one
// ingested alert (§4.6 Triage).
type EnrichAndScoreRequest struct {
	AlertID  string  `json:"alert_id" validate:"required"`
	RuleID   string  `json:"rule_id" validate:"required"`
	Severity string  `json:"severity" validate:"required,oneof=critical high medium low"`
	Asset    string  `json:"asset" validate:"required"`
	Source   string  `json:"source" validate:"required"`
}

// EnrichAndScoreResponse is the triage agent's contract response.
type EnrichAndScoreResponse struct {
	PriorityScore float64        `json:"priority_score" validate:"required,gte=0,lte=1"`
	Disposition   string         `json:"disposition" validate:"required,oneof=investigate queue suppress"`
	Enrichment    map[string]any `json:"enrichment"`
}

// InvestigateRequest asks the investigator agent to build an investigation
// report for an already-created incident (§4.6 Investigator).
type InvestigateRequest struct {
	IncidentID string   `json:"incident_id" validate:"required"`
	AlertIDs   []string `json:"alert_ids" validate:"required,min=1"`
	Iteration  int      `json:"iteration" validate:"min=0"`
}

// InvestigateResponse is the investigator agent's contract response.
type InvestigateResponse struct {
	Report store.InvestigationReport `json:"report" validate:"required"`
}

// SweepEnvironmentRequest asks the threat-hunter agent to scope a confirmed
// or suspected compromise across the fleet (§4.6 Threat Hunter).
type SweepEnvironmentRequest struct {
	IncidentID  string   `json:"incident_id" validate:"required"`
	Indicators  []string `json:"indicators" validate:"required,min=1"`
	SeedAssets  []string `json:"seed_assets" validate:"required,min=1"`
}

// SweepEnvironmentResponse is the threat-hunter agent's contract response.
type SweepEnvironmentResponse struct {
	Scope store.ThreatScope `json:"scope" validate:"required"`
}

// PlanRemediationRequest asks the commander agent to build an ordered
// remediation plan (§4.6 Commander).
type PlanRemediationRequest struct {
	IncidentID   string `json:"incident_id" validate:"required"`
	IncidentType string `json:"incident_type" validate:"required,oneof=security operational"`
	RootCause    string `json:"root_cause" validate:"required"`
}

// PlanRemediationResponse is the commander agent's contract response.
type PlanRemediationResponse struct {
	Plan store.RemediationPlan `json:"plan" validate:"required"`
}

// ExecutePlanRequest asks the executor agent to carry out an approved
// remediation plan (§4.6 Executor).
type ExecutePlanRequest struct {
	IncidentID string            `json:"incident_id" validate:"required"`
	Plan       store.RemediationPlan `json:"plan" validate:"required"`
}

// ExecutePlanResponse is the executor agent's contract response.
type ExecutePlanResponse struct {
	Summary store.ExecutionSummary `json:"summary" validate:"required"`
}

// VerifyResolutionRequest asks the verifier agent to check whether an
// executed plan actually resolved the incident (§4.6 Verifier).
type VerifyResolutionRequest struct {
	IncidentID string                   `json:"incident_id" validate:"required"`
	Criteria   []store.SuccessCriterion `json:"criteria" validate:"required,min=1"`
	Iteration  int                      `json:"iteration" validate:"min=0"`
}

// VerifyResolutionResponse is the verifier agent's contract response. P6
// requires FailureAnalysis to be non-empty whenever Passed is false — this
// is enforced in validate.go, since go-playground/validator's struct tags
// alone can't express a cross-field "required unless" rule cleanly here.
type VerifyResolutionResponse struct {
	Result store.VerificationResult `json:"result" validate:"required"`
}
