// Package agents implements the six deterministic agent-contract handlers
// named in §4.6: triage, investigator, threat hunter, commander, executor,
// verifier. Each handler is a plain function of its request payload plus
// the shared toolexec/integration/store collaborators — no hidden state,
// so the same inputs always produce the same contract response.
package agents

import (
	"context"
	"fmt"
	"sync"

	"github.com/vigil-soc/vigil/pkg/contracts"
	"github.com/vigil-soc/vigil/pkg/scoring"
	"github.com/vigil-soc/vigil/pkg/toolexec"
)

// TriageHandler enriches and scores one alert via three concurrent tool
// calls, grounded on the bounded-concurrency tool-fan-out pattern the
// teacher uses for parallel tool execution within a single iteration.
type TriageHandler struct {
	executor *toolexec.Executor
	weights  scoring.Weights
	thresholds scoring.Thresholds
}

// NewTriageHandler builds a TriageHandler bound to executor, using w/t for
// the scoring pass (zero values fall back to scoring's defaults).
func NewTriageHandler(executor *toolexec.Executor, w scoring.Weights, t scoring.Thresholds) *TriageHandler {
	if w == (scoring.Weights{}) {
		w = scoring.DefaultWeights
	}
	if t == (scoring.Thresholds{}) {
		t = scoring.DefaultThresholds
	}
	return &TriageHandler{executor: executor, weights: w, thresholds: t}
}

// toolOutcome carries one concurrent tool call's result or neutral default.
type toolOutcome struct {
	riskSignal   float64
	fpRate       float64
	criticality  string
	enrichment   map[string]any
}

// Handle implements the Triage contract (§4.6). On any tool failure it
// substitutes a neutral default (risk_signal=0, fp_rate=0, criticality
// tier-3) rather than failing the call — triage must never block the
// pipeline on a degraded dependency.
func (h *TriageHandler) Handle(ctx context.Context, env contracts.Envelope) (any, error) {
	req, ok := env.Payload.(contracts.EnrichAndScoreRequest)
	if !ok {
		return nil, fmt.Errorf("triage: unexpected payload type %T", env.Payload)
	}

	outcome := h.runToolsConcurrently(ctx, req)

	input := scoring.Input{
		Severity:         req.Severity,
		AssetCriticality: outcome.criticality,
		RiskSignal:       outcome.riskSignal,
		HistoricalFPRate: outcome.fpRate,
	}
	priorityScore := scoring.PriorityScore(input, h.weights)
	disposition := scoring.DispositionFor(priorityScore, h.thresholds)

	resp := contracts.EnrichAndScoreResponse{
		PriorityScore: priorityScore,
		Disposition:   string(disposition),
		Enrichment:    outcome.enrichment,
	}
	if err := contracts.ValidatePayload(string(contracts.TaskEnrichAndScore), resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// runToolsConcurrently runs alert-enrichment, historical-fp-rate, and
// asset-criticality in parallel, each guarded independently so one tool's
// failure doesn't affect the others' results.
func (h *TriageHandler) runToolsConcurrently(ctx context.Context, req contracts.EnrichAndScoreRequest) toolOutcome {
	var wg sync.WaitGroup
	out := toolOutcome{criticality: "tier-3", enrichment: make(map[string]any)}
	var mu sync.Mutex

	wg.Add(1)
	go func() {
		defer wg.Done()
		result, err := h.executor.Execute(ctx, "alert_enrichment", map[string]any{"alert_id": req.AlertID, "asset": req.Asset})
		mu.Lock()
		defer mu.Unlock()
		if err != nil || len(result.Docs) == 0 {
			return
		}
		if m, ok := result.Docs[0].Doc.(map[string]any); ok {
			if v, ok := m["risk_signal"].(float64); ok {
				out.riskSignal = v
			}
			out.enrichment["correlated_counts"] = m["correlated_counts"]
			out.enrichment["risk_signal"] = out.riskSignal
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		result, err := h.executor.Execute(ctx, "historical_fp_rate", map[string]any{"rule_id": req.RuleID})
		mu.Lock()
		defer mu.Unlock()
		if err != nil || len(result.Docs) == 0 {
			return
		}
		if m, ok := result.Docs[0].Doc.(map[string]any); ok {
			if v, ok := m["fp_rate"].(float64); ok {
				out.fpRate = v
			}
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		result, err := h.executor.Execute(ctx, "asset_criticality", map[string]any{"asset": req.Asset})
		mu.Lock()
		defer mu.Unlock()
		if err != nil || len(result.Docs) == 0 {
			return
		}
		if m, ok := result.Docs[0].Doc.(map[string]any); ok {
			if v, ok := m["criticality"].(string); ok {
				out.criticality = v
			}
		}
	}()

	wg.Wait()
	return out
}
