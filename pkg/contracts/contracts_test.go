package contracts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigil-soc/vigil/pkg/store"
)

func TestNewEnvelope_SetsRoutingFields(t *testing.T) {
	env := NewEnvelope("coordinator", "triage", TaskEnrichAndScore, "alert-123", EnrichAndScoreRequest{
		AlertID:  "alert-123",
		RuleID:   "rule-1",
		Severity: "high",
		Asset:    "host-1",
		Source:   "edr",
	})

	assert.NotEmpty(t, env.MessageID)
	assert.Equal(t, "coordinator", env.FromAgent)
	assert.Equal(t, "triage", env.ToAgent)
	assert.Equal(t, TaskEnrichAndScore, env.Task)
	assert.Equal(t, "alert-123", env.CorrelationID)
	assert.False(t, env.CreatedAt.IsZero())
}

func TestValidatePayload_EnrichAndScoreResponse(t *testing.T) {
	err := ValidatePayload("enrich_and_score", EnrichAndScoreResponse{
		PriorityScore: 0.81,
		Disposition:   "investigate",
		Enrichment:    map[string]any{"geo": "unexpected"},
	})
	require.NoError(t, err)

	err = ValidatePayload("enrich_and_score", EnrichAndScoreResponse{
		PriorityScore: 1.5,
		Disposition:   "unknown",
	})
	var cve *ContractValidationError
	require.ErrorAs(t, err, &cve)
	assert.GreaterOrEqual(t, len(cve.Errors), 2)
}

func TestValidatePayload_VerifyResolutionRequiresFailureAnalysisWhenFailed(t *testing.T) {
	resp := VerifyResolutionResponse{
		Result: store.VerificationResult{
			Iteration:   1,
			HealthScore: 0.2,
			Passed:      false,
		},
	}
	err := ValidatePayload("verify_resolution", resp)
	var cve *ContractValidationError
	require.ErrorAs(t, err, &cve)
	assert.Contains(t, cve.Errors[len(cve.Errors)-1], "failure_analysis")

	resp.Result.FailureAnalysis = "health score below threshold on service checkout-api"
	err = ValidatePayload("verify_resolution", resp)
	require.NoError(t, err)
}

func TestValidatePayload_RequiresNonEmptyCollections(t *testing.T) {
	err := ValidatePayload("investigate", InvestigateRequest{
		IncidentID: "INC-2026-00001",
		AlertIDs:   nil,
	})
	var cve *ContractValidationError
	require.ErrorAs(t, err, &cve)
}
