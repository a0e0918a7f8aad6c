package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigil-soc/vigil/pkg/store"
)

func TestBuildPlan_OrdersByActionTypeRank(t *testing.T) {
	plan := BuildPlan(BuildPlanInput{
		Runbooks: []store.Runbook{{
			Name: "rb-1",
			Rank: 1,
			Steps: []store.PlanAction{
				{ActionType: store.ActionDocumentation, Description: "document the timeline", TargetSystem: "wiki", TargetAsset: "host-1"},
				{ActionType: store.ActionContainment, Description: "isolate host-1", TargetSystem: "firewall", TargetAsset: "host-1"},
				{ActionType: store.ActionCommunication, Description: "notify stakeholders", TargetSystem: "chat", TargetAsset: "host-1"},
				{ActionType: store.ActionRemediation, Description: "patch the service", TargetSystem: "k8s", TargetAsset: "host-1"},
			},
		}},
	})

	require.Len(t, plan.Actions, 4)
	assert.Equal(t, store.ActionContainment, plan.Actions[0].ActionType)
	assert.Equal(t, store.ActionRemediation, plan.Actions[1].ActionType)
	assert.Equal(t, store.ActionCommunication, plan.Actions[2].ActionType)
	assert.Equal(t, store.ActionDocumentation, plan.Actions[3].ActionType)
	for i, a := range plan.Actions {
		assert.Equal(t, i+1, a.Order)
	}
}

func TestBuildPlan_MergeOnlyAddsUncoveredFromLowerRankedRunbook(t *testing.T) {
	plan := BuildPlan(BuildPlanInput{
		Runbooks: []store.Runbook{
			{
				Name: "top",
				Rank: 1,
				Steps: []store.PlanAction{
					{ActionType: store.ActionContainment, Description: "isolate host-1", TargetSystem: "firewall", TargetAsset: "host-1"},
				},
			},
			{
				Name: "secondary",
				Rank: 2,
				Steps: []store.PlanAction{
					{ActionType: store.ActionContainment, Description: "isolate host-1 again", TargetSystem: "firewall", TargetAsset: "host-1"},
					{ActionType: store.ActionRemediation, Description: "patch host-1", TargetSystem: "k8s", TargetAsset: "host-1"},
				},
			},
		},
	})

	require.Len(t, plan.Actions, 2) // containment from top runbook only, remediation newly covered
	assert.Equal(t, store.ActionContainment, plan.Actions[0].ActionType)
	assert.Equal(t, store.ActionRemediation, plan.Actions[1].ActionType)
}

func TestBuildPlan_DedupesOnCompositeKey(t *testing.T) {
	plan := BuildPlan(BuildPlanInput{
		Runbooks: []store.Runbook{{
			Name: "rb",
			Rank: 1,
			Steps: []store.PlanAction{
				{ActionType: store.ActionRemediation, Description: "patch the service", TargetSystem: "k8s", TargetAsset: "host-1"},
				{ActionType: store.ActionRemediation, Description: "patch the service again differently", TargetSystem: "k8s", TargetAsset: "host-1"},
			},
		}},
	})
	require.Len(t, plan.Actions, 1)
}

func TestBuildPlan_ApprovalRequiredForIsolationAndRollback(t *testing.T) {
	plan := BuildPlan(BuildPlanInput{
		Runbooks: []store.Runbook{{
			Name: "rb",
			Rank: 1,
			Steps: []store.PlanAction{
				{ActionType: store.ActionContainment, Description: "isolate host-1", TargetSystem: "firewall", TargetAsset: "host-1"},
				{ActionType: store.ActionRemediation, Description: "rollback deployment", TargetSystem: "container-orchestrator", TargetAsset: "host-2"},
			},
		}},
	})
	require.True(t, plan.RequiresApproval)
	for _, a := range plan.Actions {
		assert.True(t, a.ApprovalRequired)
	}
}

func TestBuildPlan_CriticalTierOneRequiresApproval(t *testing.T) {
	plan := BuildPlan(BuildPlanInput{
		Severity: "critical",
		Runbooks: []store.Runbook{{
			Name: "rb",
			Rank: 1,
			Steps: []store.PlanAction{
				{ActionType: store.ActionRemediation, Description: "patch the service", TargetSystem: "k8s", TargetAsset: "tier1:host-1"},
			},
		}},
	})
	require.True(t, plan.RequiresApproval)
}

func TestBuildPlan_SuccessCriteriaDerivation(t *testing.T) {
	plan := BuildPlan(BuildPlanInput{
		AffectedServices: []string{"checkout-gateway", "orders-database", "frontend"},
		CurrentMetrics:   map[string]float64{"checkout-gateway": 900, "orders-database": 40, "frontend": 100},
		Runbooks:         []store.Runbook{{Name: "rb", Rank: 1, Steps: []store.PlanAction{{ActionType: store.ActionRemediation, Description: "patch"}}}},
	})

	byService := map[string]float64{}
	for _, c := range plan.SuccessCriteria {
		if c.Metric == "avg_latency" {
			byService[c.ServiceName] = c.Threshold
		}
	}
	assert.InDelta(t, 270, byService["checkout-gateway"], 0.01) // 30% of 900
	assert.Equal(t, 50.0, byService["orders-database"])         // current below default db latency
	assert.Equal(t, 200.0, byService["frontend"])                // current below default
}

func TestBuildPlan_FallbackOnNoRunbooks(t *testing.T) {
	plan := BuildPlan(BuildPlanInput{})
	require.Len(t, plan.Actions, 1)
	assert.Equal(t, store.ActionCommunication, plan.Actions[0].ActionType)
}

func TestClassify_PriorityOrder(t *testing.T) {
	assert.Equal(t, store.ActionCommunication, classify("notify the on-call team"))
	assert.Equal(t, store.ActionDocumentation, classify("document the root cause"))
	assert.Equal(t, store.ActionContainment, classify("isolate the compromised host"))
	assert.Equal(t, store.ActionRemediation, classify("patch the vulnerable service"))
}

func TestDeriveLatencyTarget(t *testing.T) {
	assert.Equal(t, 200.0, deriveLatencyTarget("frontend", 50))
	assert.Equal(t, 150.0, deriveLatencyTarget("api-gateway", 50))
	assert.Equal(t, 50.0, deriveLatencyTarget("orders-database", 30))
	assert.InDelta(t, 270.0, deriveLatencyTarget("checkout-gateway", 900), 0.01)
	assert.Equal(t, 500.0, deriveLatencyTarget("slow-service", 10000))
}
