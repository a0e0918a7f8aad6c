package agents

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/vigil-soc/vigil/pkg/contracts"
	"github.com/vigil-soc/vigil/pkg/store"
)

// classificationPatterns maps substrings found in a runbook step's
// description to an action type, checked in the fixed order communication
// → documentation → containment → default=remediation (§4.6 Commander).
var classificationPatterns = []struct {
	actionType string
	keywords   []string
}{
	{store.ActionCommunication, []string{"notify", "page", "announce", "escalate", "alert stakeholder"}},
	{store.ActionDocumentation, []string{"document", "record", "log finding", "postmortem"}},
	{store.ActionContainment, []string{"isolate", "block", "firewall", "quarantine", "suspend", "disable"}},
}

// actionOrderRank fixes containment(1) → remediation(2) → communication(3)
// → documentation(4).
var actionOrderRank = map[string]int{
	store.ActionContainment:   1,
	store.ActionRemediation:   2,
	store.ActionCommunication: 3,
	store.ActionDocumentation: 4,
}

// classify assigns an action type by the first matching pattern group, in
// the documented priority order, defaulting to remediation.
func classify(description string) string {
	lower := strings.ToLower(description)
	for _, group := range classificationPatterns {
		for _, kw := range group.keywords {
			if strings.Contains(lower, kw) {
				return group.actionType
			}
		}
	}
	return store.ActionRemediation
}

// dedupKey is the composite key actions are deduplicated on.
func dedupKey(a store.PlanAction) string {
	firstWord := ""
	if fields := strings.Fields(a.Description); len(fields) > 0 {
		firstWord = strings.ToLower(fields[0])
	}
	return fmt.Sprintf("%s|%s|%s|%s", a.ActionType, a.TargetSystem, a.TargetAsset, firstWord)
}

// BuildPlanInput bundles everything the commander's pure plan-building
// function consumes.
type BuildPlanInput struct {
	IncidentType     string
	Severity         string
	RootCause        string
	AffectedServices []string
	CurrentMetrics   map[string]float64 // service -> current avg latency ms
	Runbooks         []store.Runbook    // ranked ascending (rank 1 = top)
}

// BuildPlan is the commander's deterministic, pure plan-building function
// (§4.6 Commander). It never returns an error: on any internal
// inconsistency it falls back to a single communication/escalation action
// rather than throwing out to the A2A router.
func BuildPlan(in BuildPlanInput) (plan store.RemediationPlan) {
	defer func() {
		// BuildPlan is pure and should never panic, but a fallback plan is
		// cheaper than letting a slice/index bug crash the coordinator.
		if recover() != nil {
			plan = fallbackPlan()
		}
	}()

	plan, ok := buildPlan(in)
	if !ok {
		return fallbackPlan()
	}
	return plan
}

func fallbackPlan() store.RemediationPlan {
	return store.RemediationPlan{
		Actions: []store.PlanAction{{
			Order:       1,
			ActionType:  store.ActionCommunication,
			Description: "describe_escalation: commander could not build an automated plan",
		}},
	}
}

func buildPlan(in BuildPlanInput) (store.RemediationPlan, bool) {
	if len(in.Runbooks) == 0 {
		return fallbackPlan(), true
	}

	sorted := append([]store.Runbook(nil), in.Runbooks...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Rank < sorted[j].Rank })

	covered := make(map[string]bool) // {action_type,target_system,target_asset}
	var merged []store.PlanAction

	for _, rb := range sorted {
		for _, step := range rb.Steps {
			actionType := step.ActionType
			if actionType == "" {
				actionType = classify(step.Description)
			}
			coverageKey := fmt.Sprintf("%s|%s|%s", actionType, step.TargetSystem, step.TargetAsset)
			if covered[coverageKey] {
				continue
			}
			covered[coverageKey] = true
			step.ActionType = actionType
			merged = append(merged, step)
		}
	}

	deduped := make(map[string]store.PlanAction)
	var order []string
	for _, a := range merged {
		key := dedupKey(a)
		if _, exists := deduped[key]; !exists {
			order = append(order, key)
		}
		deduped[key] = a
	}

	var actions []store.PlanAction
	for _, key := range order {
		actions = append(actions, deduped[key])
	}

	sort.SliceStable(actions, func(i, j int) bool {
		return actionOrderRank[actions[i].ActionType] < actionOrderRank[actions[j].ActionType]
	})
	for i := range actions {
		actions[i].Order = i + 1
	}

	requiresApproval := false
	for i := range actions {
		if requiresApprovalFor(actions[i], in) {
			actions[i].ApprovalRequired = true
			requiresApproval = true
		}
	}

	criteria := deriveSuccessCriteria(in.AffectedServices, in.CurrentMetrics)

	runbookUsed := ""
	if len(sorted) > 0 {
		runbookUsed = sorted[0].Name
	}

	return store.RemediationPlan{
		Actions:          actions,
		SuccessCriteria:  criteria,
		RequiresApproval: requiresApproval,
		RunbookUsed:      runbookUsed,
	}, true
}

// requiresApprovalFor implements the five approval-required rules (§4.6).
func requiresApprovalFor(a store.PlanAction, in BuildPlanInput) bool {
	if a.ApprovalRequired {
		return true // (e) source runbook step declared it
	}
	lower := strings.ToLower(a.Description)
	if a.ActionType == store.ActionContainment && (strings.Contains(lower, "isolate") || strings.Contains(lower, "firewall")) {
		return true // (a)
	}
	if a.ActionType == store.ActionRemediation && strings.Contains(lower, "rollback") && a.TargetSystem == "container-orchestrator" {
		return true // (b)
	}
	if strings.Contains(lower, "suspend") && a.TargetSystem == "identity" {
		return true // (c)
	}
	if in.Severity == "critical" && isTierOne(a.TargetAsset, in) {
		return true // (d)
	}
	return false
}

// isTierOne is the rule-(d) tier check. The pure plan builder makes no
// asset-criticality lookup: a target counts as tier-1 only when its
// TargetAsset carries a "tier1:" prefix. Neither the coordinator nor
// cmd/vigil's resolvePlanInput adds that prefix to runbook targets.
func isTierOne(targetAsset string, in BuildPlanInput) bool {
	return strings.HasPrefix(targetAsset, "tier1:")
}

// deriveSuccessCriteria computes per-service success criteria (§4.6).
func deriveSuccessCriteria(services []string, currentMetrics map[string]float64) []store.SuccessCriterion {
	var out []store.SuccessCriterion
	for _, svc := range services {
		out = append(out,
			store.SuccessCriterion{Metric: "error_rate", Operator: "lte", Threshold: 1.0, ServiceName: svc},
			store.SuccessCriterion{Metric: "avg_latency", Operator: "lte", Threshold: deriveLatencyTarget(svc, currentMetrics[svc]), ServiceName: svc},
			store.SuccessCriterion{Metric: "throughput", Operator: "gte", Threshold: 80, ServiceName: svc},
		)
	}
	return out
}

// deriveLatencyTarget implements the derive() helper (§4.6): default 200ms,
// 150ms for gateways, 50ms for databases; if current latency already beats
// the default, keep the default; otherwise target 30% of current, clamped
// to [10ms, 500ms].
func deriveLatencyTarget(service string, currentLatencyMs float64) float64 {
	lower := strings.ToLower(service)
	defaultMs := 200.0
	switch {
	case strings.Contains(lower, "gateway"):
		defaultMs = 150.0
	case strings.Contains(lower, "database") || strings.Contains(lower, "db"):
		defaultMs = 50.0
	}

	if currentLatencyMs <= 0 || currentLatencyMs <= defaultMs {
		return defaultMs
	}
	target := currentLatencyMs * 0.30
	if target < 10 {
		target = 10
	}
	if target > 500 {
		target = 500
	}
	return target
}

// PlanRemediationHandler wraps BuildPlan as the commander's contract
// handler. It is agentic only in the sense of handling an envelope; the
// planning logic itself is the pure BuildPlan function above.
type PlanRemediationHandler struct {
	resolve func(req contracts.PlanRemediationRequest) BuildPlanInput
}

// NewPlanRemediationHandler builds a handler that resolves a
// PlanRemediationRequest into BuildPlan's richer input via resolve (the
// coordinator supplies affected services, runbook matches, and current
// metrics, none of which travel over the wire contract itself).
func NewPlanRemediationHandler(resolve func(contracts.PlanRemediationRequest) BuildPlanInput) *PlanRemediationHandler {
	return &PlanRemediationHandler{resolve: resolve}
}

// Handle implements the PlanRemediation contract.
func (h *PlanRemediationHandler) Handle(_ context.Context, env contracts.Envelope) (any, error) {
	req, ok := env.Payload.(contracts.PlanRemediationRequest)
	if !ok {
		return nil, fmt.Errorf("commander: unexpected payload type %T", env.Payload)
	}
	plan := BuildPlan(h.resolve(req))
	resp := contracts.PlanRemediationResponse{Plan: plan}
	if err := contracts.ValidatePayload(string(contracts.TaskPlanRemediation), resp); err != nil {
		return nil, err
	}
	return resp, nil
}
