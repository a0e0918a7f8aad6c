package incident

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigil-soc/vigil/pkg/store"
)

func TestMachine_CreateAndTransitionHappyPath(t *testing.T) {
	s := store.NewMemStore()
	m := NewMachine(s)
	ctx := context.Background()

	inc, err := m.Create(ctx, store.Incident{IncidentID: "INC-2026-00001", IncidentType: store.IncidentTypeSecurity})
	require.NoError(t, err)
	assert.Equal(t, store.StatusDetected, inc.Status)

	inc, err = m.Transition(ctx, inc.IncidentID, store.StatusTriaging, nil)
	require.NoError(t, err)
	assert.Equal(t, store.StatusTriaging, inc.Status)

	inc, err = m.Transition(ctx, inc.IncidentID, store.StatusTriaged, func(i *store.Incident) {
		i.PriorityScore = 0.81
	})
	require.NoError(t, err)
	assert.Equal(t, 0.81, inc.PriorityScore)
}

func TestMachine_RejectsIllegalTransition(t *testing.T) {
	s := store.NewMemStore()
	m := NewMachine(s)
	ctx := context.Background()

	inc, err := m.Create(ctx, store.Incident{IncidentID: "INC-2026-00002"})
	require.NoError(t, err)

	_, err = m.Transition(ctx, inc.IncidentID, store.StatusResolved, nil)
	var ite *InvalidTransitionError
	require.ErrorAs(t, err, &ite)
}

func TestMachine_TerminalStatesHaveNoOutgoingEdges(t *testing.T) {
	for _, terminal := range []string{store.StatusResolved, store.StatusEscalated, store.StatusSuppressed} {
		assert.True(t, IsTerminal(terminal))
		assert.False(t, CanTransition(terminal, store.StatusTriaging))
	}
}

func TestDeriveTimings_PartialLedgerLeavesZeroes(t *testing.T) {
	inc := store.Incident{StateTimestamps: map[string]time.Time{}}
	result := DeriveTimings(inc)
	assert.Equal(t, 0.0, result.TTDSeconds)
}
