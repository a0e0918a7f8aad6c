// Package coordinator implements the drive loop that takes one claimed
// alert through triage, investigation, planning, approval, execution,
// verification, and — on failure — a bounded reflection loop, to a
// terminal state (§4.8).
package coordinator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vigil-soc/vigil/pkg/a2a"
	"github.com/vigil-soc/vigil/pkg/agents"
	"github.com/vigil-soc/vigil/pkg/contracts"
	"github.com/vigil-soc/vigil/pkg/incident"
	"github.com/vigil-soc/vigil/pkg/metrics"
	"github.com/vigil-soc/vigil/pkg/store"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/vigil-soc/vigil/pkg/coordinator")

// maxReflections bounds the reflect-and-retry loop before an incident is
// force-escalated (§4.8 step 9).
const maxReflections = 3

// operationalRulePrefixes classify an alert as operational by rule id
// prefix (§4.8 step 1); anything else is treated as security.
var operationalRulePrefixes = []string{"sentinel-", "anomaly-", "ops-"}

func classify(ruleID string) string {
	lower := strings.ToLower(ruleID)
	for _, p := range operationalRulePrefixes {
		if strings.HasPrefix(lower, p) {
			return store.IncidentTypeOperational
		}
	}
	return store.IncidentTypeSecurity
}

// EscalationNotifier posts the user-visible side effects of an escalation:
// a chat notification always, and a ticket when ticketing is configured
// (§7 user-visible failure path). Both are best-effort — a notifier
// failure is logged by the caller's integration wrapper, never allowed to
// turn a terminal transition back into an error.
type EscalationNotifier interface {
	NotifyEscalation(ctx context.Context, inc store.Incident, reason string)
}

// Coordinator drives one incident end to end.
type Coordinator struct {
	machine  *incident.Machine
	router   *a2a.Router
	store    store.Store
	notifier EscalationNotifier
	year     func() int
	seq      func() int
}

// New builds a Coordinator. seq supplies the monotonically increasing
// per-year incident sequence number (the caller owns its persistence,
// typically a small counter document in the store). notifier may be nil
// to skip escalation side effects (e.g. in unit tests).
func New(machine *incident.Machine, router *a2a.Router, s store.Store, notifier EscalationNotifier, year func() int, seq func() int) *Coordinator {
	return &Coordinator{machine: machine, router: router, store: s, notifier: notifier, year: year, seq: seq}
}

// ProcessAlert runs §4.8 steps 1-10 for one claimed alert.
func (c *Coordinator) ProcessAlert(ctx context.Context, alert store.Alert) error {
	ctx, span := tracer.Start(ctx, "ProcessAlert", trace.WithAttributes(
		attribute.String("vigil.alert_id", alert.ID),
		attribute.String("vigil.rule_id", alert.RuleID),
	))
	defer span.End()

	metrics.RecordAlertProcessed()
	incidentType := classify(alert.RuleID)

	triageResp, err := c.triage(ctx, alert)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("coordinator: triage failed: %w", err)
	}

	switch triageResp.Disposition {
	case string(suppressDisposition):
		return c.createTerminalIncident(ctx, alert, incidentType, triageResp, store.StatusSuppressed, store.ResolutionSuppressed)
	case string(queueDisposition):
		return c.createTerminalIncident(ctx, alert, incidentType, triageResp, store.StatusTriaging, "")
	}

	inc, err := c.createIncident(ctx, alert, incidentType, triageResp)
	if err != nil {
		return fmt.Errorf("coordinator: create incident failed: %w", err)
	}

	return c.drive(ctx, inc, incidentType, "")
}

type disposition string

const (
	investigateDisposition disposition = "investigate"
	queueDisposition        disposition = "queue"
	suppressDisposition     disposition = "suppress"
)

func (c *Coordinator) triage(ctx context.Context, alert store.Alert) (contracts.EnrichAndScoreResponse, error) {
	env := contracts.NewEnvelope("coordinator", "triage", contracts.TaskEnrichAndScore, alert.ID, contracts.EnrichAndScoreRequest{
		AlertID:  alert.ID,
		RuleID:   alert.RuleID,
		Severity: alert.Severity,
		Asset:    alert.Asset,
		Source:   alert.Source,
	})
	result, err := c.router.Dispatch(ctx, env)
	if err != nil {
		return contracts.EnrichAndScoreResponse{}, err
	}
	resp, ok := result.(contracts.EnrichAndScoreResponse)
	if !ok {
		return contracts.EnrichAndScoreResponse{}, fmt.Errorf("coordinator: unexpected triage response type %T", result)
	}
	return resp, nil
}

// createTerminalIncident handles the "queue" and "suppress" triage
// dispositions (§4.8 step 2), both of which park an incident outside the
// investigate/plan/execute drive loop. Every path routes through
// StatusTriaging first since Detected only has that one legal edge.
func (c *Coordinator) createTerminalIncident(ctx context.Context, alert store.Alert, incidentType string, triage contracts.EnrichAndScoreResponse, status, resolution string) error {
	inc := store.Incident{
		IncidentID:    store.NewIncidentID(c.year(), c.seq()),
		IncidentType:  incidentType,
		Severity:      alert.Severity,
		PriorityScore: triage.PriorityScore,
		AlertIDs:      []string{alert.ID},
	}
	created, err := c.machine.Create(ctx, inc)
	if err != nil {
		return err
	}
	created, err = c.machine.Transition(ctx, created.IncidentID, store.StatusTriaging, nil)
	if err != nil {
		return err
	}
	if status == store.StatusTriaging {
		return nil
	}
	_, err = c.machine.Transition(ctx, created.IncidentID, status, func(i *store.Incident) {
		i.ResolutionType = resolution
	})
	return err
}

func (c *Coordinator) createIncident(ctx context.Context, alert store.Alert, incidentType string, triage contracts.EnrichAndScoreResponse) (store.Incident, error) {
	inc := store.Incident{
		IncidentID:    store.NewIncidentID(c.year(), c.seq()),
		IncidentType:  incidentType,
		Severity:      alert.Severity,
		PriorityScore: triage.PriorityScore,
		AlertIDs:      []string{alert.ID},
		AffectedAssets: []string{alert.Asset},
	}
	created, err := c.machine.Create(ctx, inc)
	if err != nil {
		return store.Incident{}, err
	}
	created, err = c.machine.Transition(ctx, created.IncidentID, store.StatusTriaging, nil)
	if err != nil {
		return store.Incident{}, err
	}
	return c.machine.Transition(ctx, created.IncidentID, store.StatusTriaged, nil)
}

// drive runs steps 4-10 of §4.8, re-entering at "investigating" for each
// reflection attempt.
func (c *Coordinator) drive(ctx context.Context, inc store.Incident, incidentType, previousFailureAnalysis string) error {
	incidentID := inc.IncidentID

	if inc.Status == store.StatusTriaged && incidentType == store.IncidentTypeOperational {
		if synthetic, skip := c.sentinelSkip(ctx, inc); skip {
			inc, err := c.machine.Transition(ctx, incidentID, store.StatusPlanning, func(i *store.Incident) {
				i.InvestigationSummary = &synthetic
			})
			if err != nil {
				return c.escalate(ctx, incidentID, err.Error())
			}
			return c.drivePlan(ctx, inc, incidentType, synthetic)
		}
	}

	inc, err := c.machine.Transition(ctx, incidentID, store.StatusInvestigating, nil)
	if err != nil {
		return c.escalate(ctx, incidentID, err.Error())
	}

	investigateCtx := agents.WithIncidentType(ctx, incidentType)
	investigation, err := c.investigate(investigateCtx, inc, previousFailureAnalysis)
	if err != nil {
		return c.escalate(ctx, incidentID, err.Error())
	}

	if investigation.RecommendedNext == "escalate" {
		return c.escalate(ctx, incidentID, investigation.RootCause)
	}

	if investigation.RecommendedNext == "threat_hunt" {
		inc, err = c.machine.Transition(ctx, incidentID, store.StatusThreatHunting, nil)
		if err != nil {
			return c.escalate(ctx, incidentID, err.Error())
		}
		if _, err := c.sweep(ctx, inc); err != nil {
			return c.escalate(ctx, incidentID, err.Error())
		}
	}

	inc, err = c.machine.Transition(ctx, incidentID, store.StatusPlanning, func(i *store.Incident) {
		i.InvestigationSummary = &investigation
	})
	if err != nil {
		return c.escalate(ctx, incidentID, err.Error())
	}

	return c.drivePlan(ctx, inc, incidentType, investigation)
}

// sentinelSkip implements §4.8 step 5: an operational incident whose sentinel
// report already carries a low-confidence change correlation and no further
// signals skips the investigator entirely, reusing that correlation as a
// synthetic investigation report instead of re-deriving it.
func (c *Coordinator) sentinelSkip(ctx context.Context, inc store.Incident) (store.InvestigationReport, bool) {
	versioned, err := c.store.Get(ctx, "vigil-tool-change-correlation", inc.IncidentID)
	if err != nil {
		return store.InvestigationReport{}, false
	}
	m, ok := versioned.Doc.(map[string]any)
	if !ok {
		return store.InvestigationReport{}, false
	}
	confidence, _ := m["confidence"].(string)
	if confidence != "low" {
		return store.InvestigationReport{}, false
	}
	matched, _ := m["matched"].(bool)
	timeGap, _ := m["time_gap_seconds"].(float64)
	commit, _ := m["commit"].(string)
	author, _ := m["author"].(string)
	report := store.InvestigationReport{
		InvestigationID: uuid.NewString(),
		IncidentID:      inc.IncidentID,
		Iteration:       inc.ReflectionCount,
		CreatedAt:       time.Now(),
		ChangeCorrelation: &store.ChangeCorrelation{
			Matched:        matched,
			Confidence:     confidence,
			Commit:         commit,
			Author:         author,
			TimeGapSeconds: timeGap,
		},
		RootCause:       fmt.Sprintf("sentinel-reported deployment %s correlates inconclusively (confidence=low); investigator skipped", commit),
		RecommendedNext: "plan_remediation",
	}
	return report, true
}

// drivePlan runs §4.8 steps 6-10 (plan through verify/reflect/resolve),
// shared by the normal investigate path and the sentinel skip path above.
func (c *Coordinator) drivePlan(ctx context.Context, inc store.Incident, incidentType string, investigation store.InvestigationReport) error {
	incidentID := inc.IncidentID
	var err error

	plan, err := c.plan(ctx, inc, investigation)
	if err != nil {
		return c.escalate(ctx, incidentID, err.Error())
	}

	if plan.RequiresApproval {
		inc, err = c.machine.Transition(ctx, incidentID, store.StatusAwaitApproval, func(i *store.Incident) {
			i.RemediationPlan = &plan
		})
		if err != nil {
			return c.escalate(ctx, incidentID, err.Error())
		}
		// The incident moves on to "executing" before the approval gate is
		// consulted: agents.ExecutorHandler awaits the gate for each
		// approval-required action and stops at the first rejection or
		// timeout. A plan stopped that way is escalated after execute below
		// (§4.8 step 6).
	}

	inc, err = c.machine.Transition(ctx, incidentID, store.StatusExecuting, func(i *store.Incident) {
		i.RemediationPlan = &plan
	})
	if err != nil {
		return c.escalate(ctx, incidentID, err.Error())
	}

	summary, err := c.execute(ctx, inc, plan)
	if err != nil {
		return c.escalate(ctx, incidentID, err.Error())
	}
	for _, r := range summary.ActionResults {
		if r.Error == "approval not granted" {
			return c.escalate(ctx, incidentID, fmt.Sprintf("approval not granted for action %d", r.ActionOrder))
		}
	}
	if summary.Status == store.ExecStatusFailed && summary.ActionsCompleted == 0 {
		return c.escalate(ctx, incidentID, "execution failed with no completed actions")
	}

	inc, err = c.machine.Transition(ctx, incidentID, store.StatusVerifying, nil)
	if err != nil {
		return c.escalate(ctx, incidentID, err.Error())
	}

	verification, err := c.verify(ctx, inc, plan, inc.ReflectionCount)
	if err != nil {
		return c.escalate(ctx, incidentID, err.Error())
	}

	inc, err = c.machine.Get(ctx, incidentID)
	if err != nil {
		return err
	}
	inc.VerificationResults = append(inc.VerificationResults, verification)

	if verification.Passed {
		return c.resolve(ctx, incidentID, inc.VerificationResults)
	}

	if inc.ReflectionCount >= maxReflections {
		return c.escalate(ctx, incidentID, verification.FailureAnalysis)
	}

	inc, err = c.machine.Transition(ctx, incidentID, store.StatusReflecting, func(i *store.Incident) {
		i.ReflectionCount++
		i.VerificationResults = append(i.VerificationResults, verification)
	})
	if err != nil {
		return c.escalate(ctx, incidentID, err.Error())
	}
	metrics.RecordReflectionLoop()

	return c.drive(ctx, inc, incidentType, verification.FailureAnalysis)
}

func (c *Coordinator) investigate(ctx context.Context, inc store.Incident, previousFailureAnalysis string) (store.InvestigationReport, error) {
	env := contracts.NewEnvelope("coordinator", "investigator", contracts.TaskInvestigate, inc.IncidentID, contracts.InvestigateRequest{
		IncidentID: inc.IncidentID,
		AlertIDs:   inc.AlertIDs,
		Iteration:  inc.ReflectionCount,
	})
	_ = previousFailureAnalysis // carried for logging/prompting only; pure handlers key off ctx/report state
	result, err := c.router.Dispatch(ctx, env)
	if err != nil {
		return store.InvestigationReport{}, err
	}
	resp, ok := result.(contracts.InvestigateResponse)
	if !ok {
		return store.InvestigationReport{}, fmt.Errorf("coordinator: unexpected investigate response type %T", result)
	}
	return resp.Report, nil
}

func (c *Coordinator) sweep(ctx context.Context, inc store.Incident) (store.ThreatScope, error) {
	var indicators []string
	if inc.InvestigationSummary != nil {
		for _, ti := range inc.InvestigationSummary.ThreatIntel {
			indicators = append(indicators, ti.Indicator)
		}
	}
	env := contracts.NewEnvelope("coordinator", "threat_hunter", contracts.TaskSweepEnvironment, inc.IncidentID, contracts.SweepEnvironmentRequest{
		IncidentID: inc.IncidentID,
		Indicators: indicators,
		SeedAssets: inc.AffectedAssets,
	})
	result, err := c.router.Dispatch(ctx, env)
	if err != nil {
		return store.ThreatScope{}, err
	}
	resp, ok := result.(contracts.SweepEnvironmentResponse)
	if !ok {
		return store.ThreatScope{}, fmt.Errorf("coordinator: unexpected sweep response type %T", result)
	}
	return resp.Scope, nil
}

func (c *Coordinator) plan(ctx context.Context, inc store.Incident, investigation store.InvestigationReport) (store.RemediationPlan, error) {
	env := contracts.NewEnvelope("coordinator", "commander", contracts.TaskPlanRemediation, inc.IncidentID, contracts.PlanRemediationRequest{
		IncidentID:   inc.IncidentID,
		IncidentType: inc.IncidentType,
		RootCause:    investigation.RootCause,
	})
	result, err := c.router.Dispatch(ctx, env)
	if err != nil {
		return store.RemediationPlan{}, err
	}
	resp, ok := result.(contracts.PlanRemediationResponse)
	if !ok {
		return store.RemediationPlan{}, fmt.Errorf("coordinator: unexpected plan response type %T", result)
	}
	return resp.Plan, nil
}

func (c *Coordinator) execute(ctx context.Context, inc store.Incident, plan store.RemediationPlan) (store.ExecutionSummary, error) {
	env := contracts.NewEnvelope("coordinator", "executor", contracts.TaskExecutePlan, inc.IncidentID, contracts.ExecutePlanRequest{
		IncidentID: inc.IncidentID,
		Plan:       plan,
	})
	result, err := c.router.Dispatch(ctx, env)
	if err != nil {
		return store.ExecutionSummary{}, err
	}
	resp, ok := result.(contracts.ExecutePlanResponse)
	if !ok {
		return store.ExecutionSummary{}, fmt.Errorf("coordinator: unexpected execute response type %T", result)
	}
	return resp.Summary, nil
}

func (c *Coordinator) verify(ctx context.Context, inc store.Incident, plan store.RemediationPlan, iteration int) (store.VerificationResult, error) {
	env := contracts.NewEnvelope("coordinator", "verifier", contracts.TaskVerifyResolution, inc.IncidentID, contracts.VerifyResolutionRequest{
		IncidentID: inc.IncidentID,
		Criteria:   plan.SuccessCriteria,
		Iteration:  iteration,
	})
	result, err := c.router.Dispatch(ctx, env)
	if err != nil {
		return store.VerificationResult{}, err
	}
	resp, ok := result.(contracts.VerifyResolutionResponse)
	if !ok {
		return store.VerificationResult{}, fmt.Errorf("coordinator: unexpected verify response type %T", result)
	}
	return resp.Result, nil
}

func (c *Coordinator) resolve(ctx context.Context, incidentID string, results []store.VerificationResult) error {
	resolved, err := c.machine.Transition(ctx, incidentID, store.StatusResolved, func(i *store.Incident) {
		i.VerificationResults = results
		i.ResolutionType = store.ResolutionAutoResolved
	})
	if err != nil {
		return err
	}
	metrics.RecordIncidentResolved(resolved.IncidentType)
	return c.finalizeTimings(ctx, incidentID)
}

func (c *Coordinator) escalate(ctx context.Context, incidentID, reason string) error {
	inc, getErr := c.machine.Get(ctx, incidentID)
	if getErr != nil {
		return getErr
	}
	if incident.IsTerminal(inc.Status) {
		return fmt.Errorf("coordinator: escalation reason: %s", reason)
	}
	escalated, err := c.machine.Transition(ctx, incidentID, store.StatusEscalated, func(i *store.Incident) {
		i.ResolutionType = store.ResolutionEscalated
		i.Notes = append(i.Notes, reason)
	})
	if err != nil {
		return err
	}
	metrics.RecordIncidentEscalated(escalated.IncidentType)
	if c.notifier != nil {
		c.notifier.NotifyEscalation(ctx, escalated, reason)
	}
	return c.finalizeTimings(ctx, incidentID)
}

func (c *Coordinator) finalizeTimings(ctx context.Context, incidentID string) error {
	versioned, err := c.store.Get(ctx, store.IndexIncidents, incidentID)
	if err != nil {
		return err
	}
	inc, ok := versioned.Doc.(store.Incident)
	if !ok {
		return fmt.Errorf("coordinator: incident %s: unexpected document shape", incidentID)
	}
	timed := incident.DeriveTimings(inc)
	_, err = c.store.Update(ctx, store.IndexIncidents, incidentID, timed, versioned.SeqNo, versioned.PrimaryTerm)
	return err
}

// Year is a small helper for callers that just want "current calendar
// year" without importing time directly in their wiring code.
func Year() int {
	return time.Now().Year()
}
