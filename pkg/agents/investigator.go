package agents

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vigil-soc/vigil/pkg/contracts"
	"github.com/vigil-soc/vigil/pkg/store"
	"github.com/vigil-soc/vigil/pkg/toolexec"
)

// attackChainWindows are the progressively widened lookback windows the
// attack-chain tracer retries against when the narrower window is sparse
// (§4.6 Investigator).
var attackChainWindows = []time.Duration{time.Hour, 6 * time.Hour, 24 * time.Hour}

// InvestigatorHandler builds an InvestigationReport for security or
// operational incidents.
type InvestigatorHandler struct {
	executor *toolexec.Executor
}

// NewInvestigatorHandler builds an InvestigatorHandler bound to executor.
func NewInvestigatorHandler(executor *toolexec.Executor) *InvestigatorHandler {
	return &InvestigatorHandler{executor: executor}
}

// Handle implements the Investigate contract.
func (h *InvestigatorHandler) Handle(ctx context.Context, env contracts.Envelope) (any, error) {
	req, ok := env.Payload.(contracts.InvestigateRequest)
	if !ok {
		return nil, fmt.Errorf("investigator: unexpected payload type %T", env.Payload)
	}

	var report store.InvestigationReport
	var err error
	if isOperational(ctx) {
		report, err = h.investigateOperational(ctx, req)
	} else {
		report, err = h.investigateSecurity(ctx, req)
	}
	if err != nil {
		return nil, err
	}

	resp := contracts.InvestigateResponse{Report: report}
	if err := contracts.ValidatePayload(string(contracts.TaskInvestigate), resp); err != nil {
		return nil, err
	}
	return resp, nil
}

type ctxKeyIncidentType struct{}

// WithIncidentType attaches the incident's classified type ("security" or
// "operational") to ctx, the way the coordinator threads the §4.8 step-1
// classification result into the investigator call.
func WithIncidentType(ctx context.Context, incidentType string) context.Context {
	return context.WithValue(ctx, ctxKeyIncidentType{}, incidentType)
}

func isOperational(ctx context.Context) bool {
	v, _ := ctx.Value(ctxKeyIncidentType{}).(string)
	return v == store.IncidentTypeOperational
}

func (h *InvestigatorHandler) investigateSecurity(ctx context.Context, req contracts.InvestigateRequest) (store.InvestigationReport, error) {
	report := store.InvestigationReport{
		InvestigationID: uuid.NewString(),
		IncidentID:      req.IncidentID,
		Iteration:       req.Iteration,
		CreatedAt:       time.Now(),
	}

	var chain []string
	for _, window := range attackChainWindows {
		result, err := h.executor.Execute(ctx, "attack_chain_tracer", map[string]any{
			"incident_id": req.IncidentID,
			"window":      window.String(),
		})
		if err == nil && len(result.Docs) >= 2 {
			for _, d := range result.Docs {
				if m, ok := d.Doc.(map[string]any); ok {
					if step, ok := m["step"].(string); ok {
						chain = append(chain, step)
					}
				}
			}
			break
		}
	}
	report.AttackChain = chain

	blastResult, err := h.executor.Execute(ctx, "blast_radius_sweep", map[string]any{"alert_ids": req.AlertIDs})
	if err == nil {
		for _, d := range blastResult.Docs {
			if m, ok := d.Doc.(map[string]any); ok {
				asset, _ := m["asset"].(string)
				confidence, _ := m["confidence"].(float64)
				report.BlastRadius = append(report.BlastRadius, store.BlastRadiusAsset{Asset: asset, Confidence: confidence})
			}
		}
	}

	tiResult, err := h.executor.Execute(ctx, "threat_intel_match", map[string]any{"incident_id": req.IncidentID})
	externalAttacker := false
	if err == nil {
		for _, d := range tiResult.Docs {
			if m, ok := d.Doc.(map[string]any); ok {
				match := store.ThreatIntelMatch{
					Indicator: asString(m["indicator"]),
					Type:      asString(m["type"]),
					Source:    asString(m["source"]),
					Technique: asString(m["technique"]),
				}
				report.ThreatIntel = append(report.ThreatIntel, match)
				externalAttacker = true
			}
		}
	}

	if len(chain) == 0 && !externalAttacker && len(report.ThreatIntel) == 0 {
		report.RecommendedNext = "escalate"
		report.RootCause = "insufficient evidence to determine root cause"
		return report, nil
	}

	report.RootCause = deriveRootCause(chain, report.ThreatIntel)
	if externalAttacker {
		report.RecommendedNext = "threat_hunt"
	} else {
		report.RecommendedNext = "plan_remediation"
	}
	return report, nil
}

func (h *InvestigatorHandler) investigateOperational(ctx context.Context, req contracts.InvestigateRequest) (store.InvestigationReport, error) {
	report := store.InvestigationReport{
		InvestigationID: uuid.NewString(),
		IncidentID:      req.IncidentID,
		Iteration:       req.Iteration,
		CreatedAt:       time.Now(),
		RecommendedNext: "plan_remediation",
	}

	result, err := h.executor.Execute(ctx, "change_correlation", map[string]any{"incident_id": req.IncidentID})
	if err != nil || len(result.Docs) == 0 {
		report.ChangeCorrelation = &store.ChangeCorrelation{Matched: false}
		report.RootCause = "no deployment event correlated with the anomaly window"
		return report, nil
	}

	m, _ := result.Docs[0].Doc.(map[string]any)
	timeGap, _ := m["time_gap_seconds"].(float64)
	cc := &store.ChangeCorrelation{
		Matched:        true,
		Commit:         asString(m["commit"]),
		Author:         asString(m["author"]),
		TimeGapSeconds: timeGap,
	}
	switch {
	case timeGap < 300:
		cc.Confidence = "high"
	case timeGap <= 600:
		cc.Confidence = "medium"
	default:
		cc.Confidence = "low"
	}
	report.ChangeCorrelation = cc
	report.RootCause = fmt.Sprintf("deployment %s correlated with anomaly (confidence=%s)", cc.Commit, cc.Confidence)
	return report, nil
}

func deriveRootCause(chain []string, intel []store.ThreatIntelMatch) string {
	if len(intel) > 0 {
		return fmt.Sprintf("attacker activity matching known indicator %s", intel[0].Indicator)
	}
	if len(chain) > 0 {
		return fmt.Sprintf("attack chain: %s", chain[len(chain)-1])
	}
	return "root cause undetermined"
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}
