package coordinator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigil-soc/vigil/pkg/a2a"
	"github.com/vigil-soc/vigil/pkg/contracts"
	"github.com/vigil-soc/vigil/pkg/incident"
	"github.com/vigil-soc/vigil/pkg/store"
)

func fixedTimeout(_ string) time.Duration { return 5 * time.Second }

func newHarness(t *testing.T) (*Coordinator, store.Store, *a2a.Router) {
	t.Helper()
	s := store.NewMemStore()
	router := a2a.NewRouter(fixedTimeout, nil)
	machine := incident.NewMachine(s)
	seq := 0
	c := New(machine, router, s, nil, func() int { return 2026 }, func() int { seq++; return seq })
	return c, s, router
}

func planFixture(requiresApproval bool) store.RemediationPlan {
	return store.RemediationPlan{
		Actions: []store.PlanAction{
			{Order: 1, ActionType: store.ActionRemediation, Description: "patch", TargetSystem: "k8s", TargetAsset: "host-1", ApprovalRequired: requiresApproval},
		},
		SuccessCriteria: []store.SuccessCriterion{
			{Metric: "avg_latency", Operator: "lt", Threshold: 200, ServiceName: "checkout-gateway"},
		},
		RequiresApproval: requiresApproval,
	}
}

func registerHappyPath(router *a2a.Router, disposition string, plan store.RemediationPlan, verifyPassed bool) {
	router.Register("triage", func(ctx context.Context, env contracts.Envelope) (any, error) {
		return contracts.EnrichAndScoreResponse{PriorityScore: 0.8, Disposition: disposition, Enrichment: map[string]any{}}, nil
	})
	router.Register("investigator", func(ctx context.Context, env contracts.Envelope) (any, error) {
		return contracts.InvestigateResponse{Report: store.InvestigationReport{
			RootCause:       "credential stuffing",
			RecommendedNext: "plan_remediation",
		}}, nil
	})
	router.Register("threat_hunter", func(ctx context.Context, env contracts.Envelope) (any, error) {
		return contracts.SweepEnvironmentResponse{Scope: store.ThreatScope{TotalAssetsScanned: 10, CleanAssets: 10}}, nil
	})
	router.Register("commander", func(ctx context.Context, env contracts.Envelope) (any, error) {
		return contracts.PlanRemediationResponse{Plan: plan}, nil
	})
	router.Register("executor", func(ctx context.Context, env contracts.Envelope) (any, error) {
		return contracts.ExecutePlanResponse{Summary: store.ExecutionSummary{
			Status:           store.ExecStatusCompleted,
			ActionsCompleted: 1,
			ActionResults:    []store.ActionResult{{ActionOrder: 1, Status: store.ExecStatusCompleted}},
		}}, nil
	})
	router.Register("verifier", func(ctx context.Context, env contracts.Envelope) (any, error) {
		result := store.VerificationResult{Passed: verifyPassed, HealthScore: 0.3}
		if !verifyPassed {
			result.FailureAnalysis = "checkout-gateway still degraded"
		} else {
			result.HealthScore = 0.95
		}
		return contracts.VerifyResolutionResponse{Result: result}, nil
	})
}

func TestProcessAlert_ResolvesOnFirstPass(t *testing.T) {
	c, s, router := newHarness(t)
	registerHappyPath(router, "investigate", planFixture(false), true)

	alert := store.Alert{ID: "alert-1", RuleID: "firewall-blocked-ip", Severity: "high", Asset: "host-1", Source: "firewall"}
	require.NoError(t, c.ProcessAlert(context.Background(), alert))

	incidents, err := s.Search(context.Background(), store.IndexIncidents, store.SearchQuery{}, nil, 10)
	require.NoError(t, err)
	require.Len(t, incidents, 1)
	inc := incidents[0].Doc.(store.Incident)
	assert.Equal(t, store.StatusResolved, inc.Status)
	assert.Equal(t, store.ResolutionAutoResolved, inc.ResolutionType)
	assert.Equal(t, store.IncidentTypeSecurity, inc.IncidentType)
	assert.Equal(t, 0, inc.ReflectionCount)
}

func TestProcessAlert_SuppressedAlertNeverCreatesActiveIncident(t *testing.T) {
	c, s, router := newHarness(t)
	router.Register("triage", func(ctx context.Context, env contracts.Envelope) (any, error) {
		return contracts.EnrichAndScoreResponse{PriorityScore: 0.1, Disposition: "suppress"}, nil
	})

	alert := store.Alert{ID: "alert-2", RuleID: "sentinel-noise", Severity: "low", Asset: "host-2", Source: "sentinel"}
	require.NoError(t, c.ProcessAlert(context.Background(), alert))

	incidents, err := s.Search(context.Background(), store.IndexIncidents, store.SearchQuery{}, nil, 10)
	require.NoError(t, err)
	require.Len(t, incidents, 1)
	inc := incidents[0].Doc.(store.Incident)
	assert.Equal(t, store.StatusSuppressed, inc.Status)
	assert.Equal(t, store.ResolutionSuppressed, inc.ResolutionType)
	assert.Equal(t, store.IncidentTypeOperational, inc.IncidentType)
}

func TestProcessAlert_QueuedAlertParksInTriaging(t *testing.T) {
	c, s, router := newHarness(t)
	router.Register("triage", func(ctx context.Context, env contracts.Envelope) (any, error) {
		return contracts.EnrichAndScoreResponse{PriorityScore: 0.5, Disposition: "queue"}, nil
	})

	alert := store.Alert{ID: "alert-3", RuleID: "anomaly-cpu-spike", Severity: "medium", Asset: "host-3", Source: "monitor"}
	require.NoError(t, c.ProcessAlert(context.Background(), alert))

	incidents, err := s.Search(context.Background(), store.IndexIncidents, store.SearchQuery{}, nil, 10)
	require.NoError(t, err)
	require.Len(t, incidents, 1)
	inc := incidents[0].Doc.(store.Incident)
	assert.Equal(t, store.StatusTriaging, inc.Status)
}

func TestProcessAlert_ReflectsOnceThenResolves(t *testing.T) {
	c, s, router := newHarness(t)
	registerHappyPath(router, "investigate", planFixture(false), true)

	calls := 0
	router.Register("verifier", func(ctx context.Context, env contracts.Envelope) (any, error) {
		calls++
		if calls == 1 {
			return contracts.VerifyResolutionResponse{Result: store.VerificationResult{
				Passed: false, HealthScore: 0.3, FailureAnalysis: "checkout-gateway still degraded",
			}}, nil
		}
		return contracts.VerifyResolutionResponse{Result: store.VerificationResult{Passed: true, HealthScore: 0.95}}, nil
	})

	alert := store.Alert{ID: "alert-4", RuleID: "edr-lateral-movement", Severity: "critical", Asset: "host-4", Source: "edr"}
	require.NoError(t, c.ProcessAlert(context.Background(), alert))

	incidents, err := s.Search(context.Background(), store.IndexIncidents, store.SearchQuery{}, nil, 10)
	require.NoError(t, err)
	require.Len(t, incidents, 1)
	inc := incidents[0].Doc.(store.Incident)
	assert.Equal(t, store.StatusResolved, inc.Status)
	assert.Equal(t, 1, inc.ReflectionCount)
	assert.Equal(t, 2, calls)
}

func TestProcessAlert_EscalatesAfterThreeReflections(t *testing.T) {
	c, s, router := newHarness(t)
	registerHappyPath(router, "investigate", planFixture(false), false)

	alert := store.Alert{ID: "alert-5", RuleID: "edr-ransomware-indicators", Severity: "critical", Asset: "host-5", Source: "edr"}
	require.NoError(t, c.ProcessAlert(context.Background(), alert))

	incidents, err := s.Search(context.Background(), store.IndexIncidents, store.SearchQuery{}, nil, 10)
	require.NoError(t, err)
	require.Len(t, incidents, 1)
	inc := incidents[0].Doc.(store.Incident)
	assert.Equal(t, store.StatusEscalated, inc.Status)
	assert.Equal(t, store.ResolutionEscalated, inc.ResolutionType)
	assert.Equal(t, 3, inc.ReflectionCount)
}

func TestProcessAlert_ExecutionFailureWithNoCompletedActionsEscalatesImmediately(t *testing.T) {
	c, s, router := newHarness(t)
	registerHappyPath(router, "investigate", planFixture(false), true)
	router.Register("executor", func(ctx context.Context, env contracts.Envelope) (any, error) {
		return contracts.ExecutePlanResponse{Summary: store.ExecutionSummary{
			Status:        store.ExecStatusFailed,
			ActionsFailed: 1,
			ActionResults: []store.ActionResult{{ActionOrder: 1, Status: "failed", Error: "integration unavailable"}},
		}}, nil
	})

	alert := store.Alert{ID: "alert-6", RuleID: "waf-sqli-attempt", Severity: "high", Asset: "host-6", Source: "waf"}
	require.NoError(t, c.ProcessAlert(context.Background(), alert))

	incidents, err := s.Search(context.Background(), store.IndexIncidents, store.SearchQuery{}, nil, 10)
	require.NoError(t, err)
	require.Len(t, incidents, 1)
	inc := incidents[0].Doc.(store.Incident)
	assert.Equal(t, store.StatusEscalated, inc.Status)
	assert.Equal(t, 0, inc.ReflectionCount)
}

type countingNotifier struct{ calls int }

func (n *countingNotifier) NotifyEscalation(_ context.Context, _ store.Incident, _ string) {
	n.calls++
}

func TestProcessAlert_EscalationPostsExactlyOneNotification(t *testing.T) {
	s := store.NewMemStore()
	router := a2a.NewRouter(fixedTimeout, nil)
	machine := incident.NewMachine(s)
	notifier := &countingNotifier{}
	seq := 0
	c := New(machine, router, s, notifier, func() int { return 2026 }, func() int { seq++; return seq })
	registerHappyPath(router, "investigate", planFixture(false), false)

	alert := store.Alert{ID: "alert-7", RuleID: "edr-data-exfil", Severity: "critical", Asset: "host-7", Source: "edr"}
	require.NoError(t, c.ProcessAlert(context.Background(), alert))

	assert.Equal(t, 1, notifier.calls)
}

func TestProcessAlert_OperationalLowConfidenceSkipsInvestigator(t *testing.T) {
	c, s, router := newHarness(t)
	registerHappyPath(router, "investigate", planFixture(false), true)

	investigatorCalled := false
	router.Register("investigator", func(ctx context.Context, env contracts.Envelope) (any, error) {
		investigatorCalled = true
		return contracts.InvestigateResponse{Report: store.InvestigationReport{RecommendedNext: "plan_remediation"}}, nil
	})

	incidentID := store.NewIncidentID(2026, 1)
	_, err := s.Index(context.Background(), "vigil-tool-change-correlation", incidentID, map[string]any{
		"incident_id": incidentID, "matched": true, "confidence": "low", "time_gap_seconds": 900.0, "commit": "a3f8c21",
	}, false)
	require.NoError(t, err)

	alert := store.Alert{ID: "alert-8", RuleID: "sentinel-error-rate-spike", Severity: "high", Asset: "host-8", Source: "sentinel"}
	require.NoError(t, c.ProcessAlert(context.Background(), alert))

	assert.False(t, investigatorCalled, "investigator must be skipped for a low-confidence sentinel-sourced change correlation")

	incidents, err := s.Search(context.Background(), store.IndexIncidents, store.SearchQuery{}, nil, 10)
	require.NoError(t, err)
	require.Len(t, incidents, 1)
	inc := incidents[0].Doc.(store.Incident)
	assert.Equal(t, store.StatusResolved, inc.Status)
	require.NotNil(t, inc.InvestigationSummary)
	require.NotNil(t, inc.InvestigationSummary.ChangeCorrelation)
	assert.Equal(t, "low", inc.InvestigationSummary.ChangeCorrelation.Confidence)
	assert.Equal(t, "a3f8c21", inc.InvestigationSummary.ChangeCorrelation.Commit)
}

func TestClassify_RulePrefixDeterminesIncidentType(t *testing.T) {
	assert.Equal(t, store.IncidentTypeOperational, classify("sentinel-deploy-correlation"))
	assert.Equal(t, store.IncidentTypeOperational, classify("anomaly-latency-spike"))
	assert.Equal(t, store.IncidentTypeOperational, classify("ops-disk-pressure"))
	assert.Equal(t, store.IncidentTypeSecurity, classify("edr-lateral-movement"))
}
