package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemStore_IndexGetRoundTrip(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	v, err := s.Index(ctx, IndexIncidents, "INC-2026-00001", Incident{IncidentID: "INC-2026-00001", Status: StatusDetected}, false)
	require.NoError(t, err)
	assert.Equal(t, int64(0), v.SeqNo)

	got, err := s.Get(ctx, IndexIncidents, "INC-2026-00001")
	require.NoError(t, err)
	assert.Equal(t, StatusDetected, got.Doc.(Incident).Status)
}

func TestMemStore_ConditionalCreateRejectsDuplicate(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	_, err := s.Index(ctx, IndexAlertClaims, "alert-1", AlertClaim{AlertID: "alert-1"}, true)
	require.NoError(t, err)

	_, err = s.Index(ctx, IndexAlertClaims, "alert-1", AlertClaim{AlertID: "alert-1"}, true)
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestMemStore_UpdateEnforcesOptimisticConcurrency(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	v, err := s.Index(ctx, IndexIncidents, "INC-2026-00002", Incident{Status: StatusDetected}, false)
	require.NoError(t, err)

	_, err = s.Update(ctx, IndexIncidents, "INC-2026-00002", Incident{Status: StatusTriaging}, v.SeqNo, v.PrimaryTerm)
	require.NoError(t, err)

	// Stale seq_no must be rejected.
	_, err = s.Update(ctx, IndexIncidents, "INC-2026-00002", Incident{Status: StatusTriaged}, v.SeqNo, v.PrimaryTerm)
	assert.ErrorIs(t, err, ErrVersionConflict)
}

func TestMemStore_SearchFiltersByField(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	_, _ = s.Index(ctx, IndexIncidents, "a", Incident{IncidentID: "a", Status: StatusResolved}, false)
	_, _ = s.Index(ctx, IndexIncidents, "b", Incident{IncidentID: "b", Status: StatusEscalated}, false)

	results, err := s.Search(ctx, IndexIncidents, SearchQuery{Filters: map[string]any{"status": StatusResolved}}, nil, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].Doc.(Incident).IncidentID)
}

func TestMemStore_CountAndDeleteByQuery(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	_, _ = s.Index(ctx, IndexAlerts, "1", Alert{ID: "1", Processed: true}, false)
	_, _ = s.Index(ctx, IndexAlerts, "2", Alert{ID: "2", Processed: false}, false)

	n, err := s.Count(ctx, IndexAlerts, SearchQuery{Filters: map[string]any{"processed": true}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	deleted, err := s.DeleteByQuery(ctx, IndexAlerts, SearchQuery{Filters: map[string]any{"processed": true}})
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	n, _ = s.Count(ctx, IndexAlerts, SearchQuery{})
	assert.Equal(t, 1, n)
}
