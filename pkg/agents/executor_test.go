package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vigil-soc/vigil/pkg/store"
)

func TestOpForAction_RemediationRoutesToOrchestrator(t *testing.T) {
	action := store.PlanAction{ActionType: store.ActionRemediation, TargetSystem: "k8s", TargetAsset: "checkout-gateway"}

	assert.Equal(t, "orchestrator", actionIntegrationName[action.ActionType])
	assert.Equal(t, "restart_workload", opForAction(action))
}

func TestOpForAction_EveryActionTypeHasASupportedIntegrationOp(t *testing.T) {
	cases := []struct {
		actionType string
		want       string
		op         string
	}{
		{store.ActionContainment, "firewall", "isolate_host"},
		{store.ActionRemediation, "orchestrator", "restart_workload"},
		{store.ActionCommunication, "chat", "post_message"},
		{store.ActionDocumentation, "ticketing", "create_ticket"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, actionIntegrationName[c.actionType], "action type %s", c.actionType)
		assert.Equal(t, c.op, opForAction(store.PlanAction{ActionType: c.actionType}), "action type %s", c.actionType)
	}
}
