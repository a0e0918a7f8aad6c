package agents

import (
	"context"
	"fmt"
	"sort"

	"github.com/vigil-soc/vigil/pkg/contracts"
	"github.com/vigil-soc/vigil/pkg/store"
	"github.com/vigil-soc/vigil/pkg/toolexec"
)

// iocSweepWindow is the fixed lookback window for the indicator-of-
// compromise sweep (§4.6 Threat hunter).
const iocSweepWindow = "7d"

// confirmedHitThreshold is the minimum hit count for a host/user to be
// categorized confirmed rather than suspected.
const confirmedHitThreshold = 3

// ThreatHunterHandler sweeps the environment for a threat scope.
type ThreatHunterHandler struct {
	executor *toolexec.Executor
}

// NewThreatHunterHandler builds a ThreatHunterHandler bound to executor.
func NewThreatHunterHandler(executor *toolexec.Executor) *ThreatHunterHandler {
	return &ThreatHunterHandler{executor: executor}
}

// Handle implements the SweepEnvironment contract.
func (h *ThreatHunterHandler) Handle(ctx context.Context, env contracts.Envelope) (any, error) {
	req, ok := env.Payload.(contracts.SweepEnvironmentRequest)
	if !ok {
		return nil, fmt.Errorf("threat hunter: unexpected payload type %T", env.Payload)
	}

	iocResult, err := h.executor.Execute(ctx, "ioc_sweep", map[string]any{
		"indicators": req.Indicators,
		"window":     iocSweepWindow,
	})
	if err != nil {
		iocResult = toolexec.Result{}
	}

	anomalyResult, err := h.executor.Execute(ctx, "behavioral_anomaly", map[string]any{
		"seed_assets": req.SeedAssets,
	})
	if err != nil {
		anomalyResult = toolexec.Result{}
	}

	hits := make(map[string]int)
	for _, d := range iocResult.Docs {
		if m, ok := d.Doc.(map[string]any); ok {
			asset := asString(m["asset"])
			hits[asset]++
		}
	}

	anomalyScores := make(map[string]float64)
	for _, d := range anomalyResult.Docs {
		if m, ok := d.Doc.(map[string]any); ok {
			asset := asString(m["asset"])
			if score, ok := m["anomaly_score"].(float64); ok {
				anomalyScores[asset] = score
			}
		}
	}

	scanned := make(map[string]bool)
	for _, a := range req.SeedAssets {
		scanned[a] = true
	}
	for a := range hits {
		scanned[a] = true
	}
	for a := range anomalyScores {
		scanned[a] = true
	}

	scope := store.ThreatScope{TotalAssetsScanned: len(scanned)}
	for asset := range scanned {
		hitCount := hits[asset]
		anomalyScore := anomalyScores[asset]
		host := store.CompromisedHost{Asset: asset, HitCount: hitCount, AnomalyScore: anomalyScore}

		switch {
		case hitCount >= confirmedHitThreshold:
			scope.ConfirmedCompromised = append(scope.ConfirmedCompromised, host)
		case hitCount > 0 || anomalyScore > 0:
			scope.SuspectedCompromised = append(scope.SuspectedCompromised, host)
		default:
			scope.CleanAssets++
		}
	}

	sort.Slice(scope.ConfirmedCompromised, func(i, j int) bool {
		return scope.ConfirmedCompromised[i].HitCount > scope.ConfirmedCompromised[j].HitCount
	})
	sort.Slice(scope.SuspectedCompromised, func(i, j int) bool {
		return scope.SuspectedCompromised[i].AnomalyScore > scope.SuspectedCompromised[j].AnomalyScore
	})

	resp := contracts.SweepEnvironmentResponse{Scope: scope}
	if err := contracts.ValidatePayload(string(contracts.TaskSweepEnvironment), resp); err != nil {
		return nil, err
	}
	return resp, nil
}
