package agents

import (
	"context"
	"fmt"
	"time"

	"github.com/vigil-soc/vigil/pkg/contracts"
	"github.com/vigil-soc/vigil/pkg/store"
	"github.com/vigil-soc/vigil/pkg/toolexec"
)

// stabilizationDelay is the default wait before sampling health metrics, so
// a just-executed change has time to take effect (§4.6 Verifier). This is a
// fixed delay; it does not adapt to how quickly the service recovers.
const stabilizationDelay = 10 * time.Second

// passThreshold is the default health_score pass bar.
const passThreshold = 0.8

// VerifierHandler checks whether an executed plan resolved the incident.
type VerifierHandler struct {
	executor *toolexec.Executor
	sleep    func(time.Duration)
}

// NewVerifierHandler builds a VerifierHandler bound to executor, using the
// real stabilization delay.
func NewVerifierHandler(executor *toolexec.Executor) *VerifierHandler {
	return &VerifierHandler{executor: executor, sleep: time.Sleep}
}

// Handle implements the VerifyResolution contract.
func (h *VerifierHandler) Handle(ctx context.Context, env contracts.Envelope) (any, error) {
	req, ok := env.Payload.(contracts.VerifyResolutionRequest)
	if !ok {
		return nil, fmt.Errorf("verifier: unexpected payload type %T", env.Payload)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	h.sleep(stabilizationDelay)

	var actuals []store.CriterionActual
	passed := 0
	var failing []string

	for _, c := range req.Criteria {
		actual := h.measure(ctx, c)
		ok := compare(actual, c.Operator, c.Threshold)
		actuals = append(actuals, store.CriterionActual{Metric: c.Metric, Actual: actual, Passed: ok})
		if ok {
			passed++
		} else {
			failing = append(failing, fmt.Sprintf("%s=%.2f (want %s %.2f) on %s", c.Metric, actual, c.Operator, c.Threshold, c.ServiceName))
		}
	}

	total := len(req.Criteria)
	healthScore := 0.0
	if total > 0 {
		healthScore = float64(passed) / float64(total)
	}
	overallPassed := healthScore >= passThreshold

	result := store.VerificationResult{
		Iteration:       req.Iteration,
		HealthScore:     healthScore,
		Passed:          overallPassed,
		CriteriaActuals: actuals,
		Timestamp:       time.Now(),
	}
	if !overallPassed {
		result.FailureAnalysis = fmt.Sprintf("health_score %.2f below threshold %.2f: %v", healthScore, passThreshold, failing)
	}

	resp := contracts.VerifyResolutionResponse{Result: result}
	if err := contracts.ValidatePayload(string(contracts.TaskVerifyResolution), resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (h *VerifierHandler) measure(ctx context.Context, c store.SuccessCriterion) float64 {
	result, err := h.executor.Execute(ctx, "health_comparison", map[string]any{
		"service": c.ServiceName,
		"metric":  c.Metric,
	})
	if err != nil || len(result.Docs) == 0 {
		return 0
	}
	m, ok := result.Docs[0].Doc.(map[string]any)
	if !ok {
		return 0
	}
	v, _ := m["value"].(float64)
	return v
}

func compare(actual float64, op string, threshold float64) bool {
	switch op {
	case "lt":
		return actual < threshold
	case "lte":
		return actual <= threshold
	case "gt":
		return actual > threshold
	case "gte":
		return actual >= threshold
	case "eq":
		return actual == threshold
	default:
		return false
	}
}
