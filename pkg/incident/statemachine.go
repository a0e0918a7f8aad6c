// Package incident implements Vigil's incident state machine: the legal
// transition graph (§4.5), compare-and-swap updates against the document
// store with bounded retry on version conflict, and the state-timestamp
// ledger used to derive TTD/TTI/TTR/TTV metrics.
package incident

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vigil-soc/vigil/pkg/store"
)

// maxCASRetries bounds how many times Update retries a compare-and-swap
// write before giving up, mirroring tarsy's claim-retry discipline for
// contended rows.
const maxCASRetries = 5

// InvalidTransitionError reports an attempted state change the graph
// doesn't allow.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: %s -> %s", e.From, e.To)
}

// ConcurrencyError is returned when maxCASRetries compare-and-swap attempts
// all lose to a racing writer.
type ConcurrencyError struct {
	IncidentID string
	Attempts   int
}

func (e *ConcurrencyError) Error() string {
	return fmt.Sprintf("incident %s: exhausted %d compare-and-swap attempts", e.IncidentID, e.Attempts)
}

// transitions is the legal state graph (§4.5). Terminal states have no
// outgoing edges.
var transitions = map[string][]string{
	store.StatusDetected:      {store.StatusTriaging},
	store.StatusTriaging:      {store.StatusTriaged, store.StatusSuppressed},
	store.StatusTriaged:       {store.StatusInvestigating, store.StatusPlanning},
	store.StatusInvestigating: {store.StatusThreatHunting, store.StatusPlanning, store.StatusEscalated},
	store.StatusThreatHunting: {store.StatusPlanning, store.StatusEscalated},
	store.StatusPlanning:      {store.StatusAwaitApproval, store.StatusExecuting, store.StatusEscalated},
	store.StatusAwaitApproval: {store.StatusExecuting, store.StatusEscalated},
	store.StatusExecuting:     {store.StatusVerifying, store.StatusEscalated},
	store.StatusVerifying:     {store.StatusResolved, store.StatusReflecting, store.StatusEscalated},
	store.StatusReflecting:    {store.StatusInvestigating, store.StatusEscalated},
	store.StatusResolved:      {},
	store.StatusEscalated:     {},
	store.StatusSuppressed:    {},
}

// CanTransition reports whether from -> to is a legal edge.
func CanTransition(from, to string) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether status has no outgoing transitions.
func IsTerminal(status string) bool {
	edges, ok := transitions[status]
	return ok && len(edges) == 0
}

// Machine drives incident state transitions against a Store.
type Machine struct {
	store store.Store
}

// NewMachine builds a state machine bound to s.
func NewMachine(s store.Store) *Machine {
	return &Machine{store: s}
}

// Transition loads the incident, validates from->to against the legal
// graph, applies mutate, stamps _state_timestamps[to], and writes back with
// optimistic concurrency — retrying the whole read-validate-write cycle up
// to maxCASRetries times on ErrVersionConflict, the way tarsy's
// ClaimNextPendingSession re-reads after a lost race instead of failing
// outright.
func (m *Machine) Transition(ctx context.Context, incidentID, to string, mutate func(*store.Incident)) (store.Incident, error) {
	var lastErr error
	for attempt := 0; attempt < maxCASRetries; attempt++ {
		versioned, err := m.store.Get(ctx, store.IndexIncidents, incidentID)
		if err != nil {
			return store.Incident{}, err
		}
		inc, ok := versioned.Doc.(store.Incident)
		if !ok {
			return store.Incident{}, fmt.Errorf("incident %s: unexpected document shape", incidentID)
		}

		if !CanTransition(inc.Status, to) {
			return store.Incident{}, &InvalidTransitionError{From: inc.Status, To: to}
		}

		if mutate != nil {
			mutate(&inc)
		}
		inc.Status = to
		inc.UpdatedAt = time.Now()
		if inc.StateTimestamps == nil {
			inc.StateTimestamps = make(map[string]time.Time)
		}
		inc.StateTimestamps[to] = inc.UpdatedAt
		if IsTerminal(to) {
			resolvedAt := inc.UpdatedAt
			inc.ResolvedAt = &resolvedAt
		}

		updated, err := m.store.Update(ctx, store.IndexIncidents, incidentID, inc, versioned.SeqNo, versioned.PrimaryTerm)
		if err == nil {
			result := updated.Doc.(store.Incident)
			return result, nil
		}
		if !errors.Is(err, store.ErrVersionConflict) {
			return store.Incident{}, err
		}
		lastErr = err
	}
	return store.Incident{}, &ConcurrencyError{IncidentID: incidentID, Attempts: maxCASRetries}
}

// Get loads the current incident document.
func (m *Machine) Get(ctx context.Context, incidentID string) (store.Incident, error) {
	versioned, err := m.store.Get(ctx, store.IndexIncidents, incidentID)
	if err != nil {
		return store.Incident{}, err
	}
	return versioned.Doc.(store.Incident), nil
}

// Create indexes a brand-new incident document in StatusDetected, stamping
// its initial state timestamp.
func (m *Machine) Create(ctx context.Context, inc store.Incident) (store.Incident, error) {
	now := time.Now()
	inc.Status = store.StatusDetected
	inc.CreatedAt = now
	inc.UpdatedAt = now
	inc.StateTimestamps = map[string]time.Time{store.StatusDetected: now}

	versioned, err := m.store.Index(ctx, store.IndexIncidents, inc.IncidentID, inc, true)
	if err != nil {
		return store.Incident{}, err
	}
	return versioned.Doc.(store.Incident), nil
}
