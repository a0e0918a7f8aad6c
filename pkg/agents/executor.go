package agents

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vigil-soc/vigil/pkg/approval"
	"github.com/vigil-soc/vigil/pkg/contracts"
	"github.com/vigil-soc/vigil/pkg/integration"
	"github.com/vigil-soc/vigil/pkg/store"
)

// perActionDeadline is the configured per-attempt execution deadline,
// keyed by action type (§4.6 Executor). Unlisted action types use
// defaultActionDeadline.
var perActionDeadline = map[string]time.Duration{
	store.ActionContainment:   30 * time.Second,
	store.ActionRemediation:   2 * time.Minute,
	store.ActionCommunication: 10 * time.Second,
	store.ActionDocumentation: 10 * time.Second,
}

const defaultActionDeadline = 30 * time.Second

// ActionAuditWriter persists one immutable audit record per executed
// action (§3).
type ActionAuditWriter interface {
	WriteAudit(ctx context.Context, rec store.ActionAuditRecord)
}

// actionIntegrationName maps an action type to the integration name that
// carries it out.
var actionIntegrationName = map[string]string{
	store.ActionContainment:   "firewall",
	store.ActionRemediation:   "orchestrator",
	store.ActionCommunication: "chat",
	store.ActionDocumentation: "ticketing",
}

// ExecutorHandler carries out an approved remediation plan action by
// action, stopping at the first failure (§4.6 Executor).
type ExecutorHandler struct {
	integrations *integration.Registry
	approval     *approval.Gate
	audit        ActionAuditWriter
}

// NewExecutorHandler builds an ExecutorHandler.
func NewExecutorHandler(integrations *integration.Registry, gate *approval.Gate, audit ActionAuditWriter) *ExecutorHandler {
	return &ExecutorHandler{integrations: integrations, approval: gate, audit: audit}
}

// Handle implements the ExecutePlan contract.
func (h *ExecutorHandler) Handle(ctx context.Context, env contracts.Envelope) (any, error) {
	req, ok := env.Payload.(contracts.ExecutePlanRequest)
	if !ok {
		return nil, fmt.Errorf("executor: unexpected payload type %T", env.Payload)
	}

	var results []store.ActionResult
	completed, failed := 0, 0
	stoppedEarly := false

	for _, action := range req.Plan.Actions {
		if action.ApprovalRequired {
			outcome, err := h.approval.Await(ctx, req.IncidentID, fmt.Sprintf("act-%d", action.Order),
				fmt.Sprintf("approve %s on %s?", action.Description, action.TargetAsset))
			if err != nil || outcome != approval.OutcomeApproved {
				results = append(results, store.ActionResult{ActionOrder: action.Order, Status: "failed", Error: "approval not granted"})
				failed++
				stoppedEarly = true
				break
			}
		}

		result := h.execute(ctx, req.IncidentID, action)
		results = append(results, result)
		if result.Status == store.ExecStatusCompleted {
			completed++
		} else {
			failed++
			stoppedEarly = true
			break
		}
	}

	status := store.ExecStatusCompleted
	if stoppedEarly && completed > 0 {
		status = store.ExecStatusPartialFailure
	} else if stoppedEarly {
		status = store.ExecStatusFailed
	}

	resp := contracts.ExecutePlanResponse{Summary: store.ExecutionSummary{
		Status:           status,
		ActionsCompleted: completed,
		ActionsFailed:    failed,
		ActionResults:    results,
	}}
	if err := contracts.ValidatePayload(string(contracts.TaskExecutePlan), resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (h *ExecutorHandler) execute(ctx context.Context, incidentID string, action store.PlanAction) store.ActionResult {
	deadline, ok := perActionDeadline[action.ActionType]
	if !ok {
		deadline = defaultActionDeadline
	}
	callCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	integrationName := actionIntegrationName[action.ActionType]
	if integrationName == "" {
		integrationName = "firewall"
	}

	started := time.Now()
	actionID := uuid.NewString()

	var execErr error
	target, err := h.integrations.Get(integrationName)
	if err != nil {
		execErr = err
	} else {
		_, execErr = target.Call(callCtx, opForAction(action), map[string]any{
			"target":       action.TargetAsset,
			"description":  action.Description,
			"target_system": action.TargetSystem,
		})
	}

	completed := time.Now()
	status := store.AuditStatusCompleted
	resultStatus := store.ExecStatusCompleted
	errMsg := ""
	if execErr != nil {
		status = store.AuditStatusFailed
		resultStatus = "failed"
		errMsg = execErr.Error()
	}

	if h.audit != nil {
		h.audit.WriteAudit(ctx, store.ActionAuditRecord{
			ActionID:        actionID,
			IncidentID:      incidentID,
			ActionType:      action.ActionType,
			TargetSystem:    action.TargetSystem,
			TargetAsset:     action.TargetAsset,
			StartedAt:       started,
			CompletedAt:     completed,
			DurationMs:      completed.Sub(started).Milliseconds(),
			ExecutionStatus: status,
			ResultSummary:   action.Description,
			ErrorMessage:    errMsg,
			RollbackAvailable: len(action.Rollback) > 0,
		})
	}

	return store.ActionResult{ActionOrder: action.Order, Status: resultStatus, Error: errMsg}
}

func opForAction(a store.PlanAction) string {
	switch a.ActionType {
	case store.ActionContainment:
		return "isolate_host"
	case store.ActionRemediation:
		return "restart_workload"
	case store.ActionCommunication:
		return "post_message"
	case store.ActionDocumentation:
		return "create_ticket"
	default:
		return "restart_workload"
	}
}
