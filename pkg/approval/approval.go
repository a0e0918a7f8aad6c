// Package approval implements the async approval gate (§4.9): notify an
// external channel, then poll the document store for an operator's
// response until it arrives, the timeout elapses, or too many consecutive
// poll errors force a fail-closed escalation.
package approval

import (
	"context"
	"fmt"
	"time"

	"github.com/vigil-soc/vigil/pkg/config"
	"github.com/vigil-soc/vigil/pkg/store"
)

// Outcome is the resolved disposition of an approval wait.
type Outcome string

const (
	OutcomeApproved Outcome = "approved"
	OutcomeRejected Outcome = "rejected"
	OutcomeTimedOut Outcome = "timed_out"
	OutcomeFailed   Outcome = "failed"
)

// Notifier sends the human-facing approval prompt (typically the chat
// integration). It is decoupled from the polling loop so tests can stub it.
type Notifier interface {
	Notify(ctx context.Context, incidentID, actionID, message string) error
}

// Gate drives one approval wait against the document store.
type Gate struct {
	store    store.Store
	notifier Notifier
	cfg      *config.ApprovalConfig
}

// NewGate builds a Gate bound to s, notifier, and cfg.
func NewGate(s store.Store, notifier Notifier, cfg *config.ApprovalConfig) *Gate {
	return &Gate{store: s, notifier: notifier, cfg: cfg}
}

// Await notifies, then polls IndexApprovalResponses for a matching response
// until timeout_minutes elapses. "info" responses are treated as
// continue-polling signals that do not extend the deadline (§9 Open
// Question), so an operator can post a status update without resetting the
// clock.
func (g *Gate) Await(ctx context.Context, incidentID, actionID, message string) (Outcome, error) {
	if err := g.notifier.Notify(ctx, incidentID, actionID, message); err != nil {
		return OutcomeFailed, fmt.Errorf("approval: notify failed: %w", err)
	}

	deadline := time.Now().Add(time.Duration(g.cfg.TimeoutMinutes) * time.Minute)
	ticker := time.NewTicker(g.cfg.PollInterval)
	defer ticker.Stop()

	consecutiveErrors := 0

	for {
		select {
		case <-ctx.Done():
			return OutcomeFailed, ctx.Err()
		case <-ticker.C:
			if time.Now().After(deadline) {
				return OutcomeTimedOut, nil
			}

			resp, found, err := g.poll(ctx, incidentID, actionID)
			if err != nil {
				consecutiveErrors++
				if consecutiveErrors >= g.cfg.MaxConsecutiveErrors {
					return OutcomeFailed, fmt.Errorf("approval: fail-closed after %d consecutive poll errors: %w", consecutiveErrors, err)
				}
				continue
			}
			consecutiveErrors = 0
			if !found {
				continue
			}

			switch resp.Value {
			case store.ApprovalApprove:
				return OutcomeApproved, nil
			case store.ApprovalReject:
				return OutcomeRejected, nil
			case store.ApprovalInfo:
				continue // does not extend the deadline
			default:
				return OutcomeFailed, fmt.Errorf("approval: unrecognized response value %q", resp.Value)
			}
		}
	}
}

func (g *Gate) poll(ctx context.Context, incidentID, actionID string) (store.ApprovalResponse, bool, error) {
	results, err := g.store.Search(ctx, store.IndexApprovalResponses, store.SearchQuery{
		Filters: map[string]any{"incident_id": incidentID, "action_id": actionID},
	}, &store.SortOrder{Field: "timestamp", Descending: true}, 1)
	if err != nil {
		return store.ApprovalResponse{}, false, err
	}
	if len(results) == 0 {
		return store.ApprovalResponse{}, false, nil
	}
	resp, ok := results[0].Doc.(store.ApprovalResponse)
	if !ok {
		return store.ApprovalResponse{}, false, fmt.Errorf("approval: unexpected document shape")
	}
	return resp, true, nil
}
