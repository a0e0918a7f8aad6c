package a2a

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigil-soc/vigil/pkg/contracts"
	"github.com/vigil-soc/vigil/pkg/store"
)

type recordingTelemetry struct {
	records []store.AgentTelemetry
}

func (r *recordingTelemetry) Record(_ context.Context, rec store.AgentTelemetry) {
	r.records = append(r.records, rec)
}

func TestRouter_DispatchSuccessRecordsTelemetry(t *testing.T) {
	telemetry := &recordingTelemetry{}
	router := NewRouter(func(string) time.Duration { return time.Second }, telemetry)
	router.Register("triage", func(ctx context.Context, env contracts.Envelope) (any, error) {
		return "ok", nil
	})

	env := contracts.NewEnvelope("coordinator", "triage", contracts.TaskEnrichAndScore, "alert-1", nil)
	result, err := router.Dispatch(context.Background(), env)
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	require.Len(t, telemetry.records, 1)
	assert.Equal(t, store.TelemetrySuccess, telemetry.records[0].Status)
}

func TestRouter_DispatchUnknownAgent(t *testing.T) {
	router := NewRouter(func(string) time.Duration { return time.Second }, nil)
	env := contracts.NewEnvelope("coordinator", "ghost", contracts.TaskInvestigate, "inc-1", nil)
	_, err := router.Dispatch(context.Background(), env)
	require.ErrorIs(t, err, ErrAgentNotFound)
}

func TestRouter_RetriesOnceOnRetryableError(t *testing.T) {
	calls := 0
	router := NewRouter(func(string) time.Duration { return time.Second }, nil)
	router.Register("commander", func(ctx context.Context, env contracts.Envelope) (any, error) {
		calls++
		if calls == 1 {
			return nil, &RetryableError{Err: errors.New("upstream 503")}
		}
		return "recovered", nil
	})

	env := contracts.NewEnvelope("coordinator", "commander", contracts.TaskPlanRemediation, "inc-1", nil)
	result, err := router.Dispatch(context.Background(), env)
	require.NoError(t, err)
	assert.Equal(t, "recovered", result)
	assert.Equal(t, 2, calls)
}

func TestRouter_DoesNotRetryNonRetryableError(t *testing.T) {
	calls := 0
	router := NewRouter(func(string) time.Duration { return time.Second }, nil)
	router.Register("executor", func(ctx context.Context, env contracts.Envelope) (any, error) {
		calls++
		return nil, errors.New("permanent failure")
	})

	env := contracts.NewEnvelope("coordinator", "executor", contracts.TaskExecutePlan, "inc-1", nil)
	_, err := router.Dispatch(context.Background(), env)
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRouter_DispatchRejectsEnvelopeMissingCorrelationID(t *testing.T) {
	router := NewRouter(func(string) time.Duration { return time.Second }, nil)
	router.Register("triage", func(ctx context.Context, env contracts.Envelope) (any, error) {
		return "ok", nil
	})

	env := contracts.NewEnvelope("coordinator", "triage", contracts.TaskEnrichAndScore, "", nil)
	_, err := router.Dispatch(context.Background(), env)
	var validationErr *EnvelopeValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestRouter_DispatchSurfacesAgentTimeoutError(t *testing.T) {
	router := NewRouter(func(string) time.Duration { return time.Millisecond }, nil)
	router.Register("investigator", func(ctx context.Context, env contracts.Envelope) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	env := contracts.NewEnvelope("coordinator", "investigator", contracts.TaskInvestigate, "inc-1", nil)
	_, err := router.Dispatch(context.Background(), env)
	var timeoutErr *AgentTimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, "investigator", timeoutErr.AgentID)
}

func TestCardCache_LocalFallback(t *testing.T) {
	cache := NewCardCache(map[string]AgentCard{
		"triage": {AgentID: "triage", AcceptsTasks: []string{"enrich_and_score"}},
	}, nil)

	card, ok := cache.Get(context.Background(), "triage")
	require.True(t, ok)
	assert.Equal(t, "triage", card.AgentID)

	_, ok = cache.Get(context.Background(), "ghost")
	assert.False(t, ok)
}
