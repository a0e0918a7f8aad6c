package integration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigil-soc/vigil/pkg/config"
)

type stubAdapter struct {
	calls     int
	failUntil int
	err       error
}

func (s *stubAdapter) Call(_ context.Context, op string, args map[string]any) (map[string]any, error) {
	s.calls++
	if s.calls <= s.failUntil {
		return nil, errors.New("transient failure")
	}
	return map[string]any{"ok": true}, nil
}

func (s *stubAdapter) MockCall(_ context.Context, op string, args map[string]any) (map[string]any, error) {
	return map[string]any{"mock": true}, nil
}

func TestWrapped_MockModeWhenCredentialAbsent(t *testing.T) {
	t.Setenv("VIGIL_TEST_CRED_ABSENT", "")
	cfg := config.IntegrationConfig{CredentialEnv: "VIGIL_TEST_CRED_ABSENT_XYZ", MaxRetries: 1}
	w := New("test", cfg, &stubAdapter{})
	assert.True(t, w.IsMock())

	result, err := w.Call(context.Background(), "anything", nil)
	require.NoError(t, err)
	assert.Equal(t, true, result["mock"])
}

func TestWrapped_RealModeWhenCredentialPresent(t *testing.T) {
	t.Setenv("VIGIL_TEST_CRED_PRESENT", "secret")
	cfg := config.IntegrationConfig{CredentialEnv: "VIGIL_TEST_CRED_PRESENT", MaxRetries: 2}
	adapter := &stubAdapter{failUntil: 1}
	w := New("test", cfg, adapter)
	assert.False(t, w.IsMock())

	result, err := w.Call(context.Background(), "anything", nil)
	require.NoError(t, err)
	assert.Equal(t, true, result["ok"])
	assert.Equal(t, 2, adapter.calls)
}

func TestWrapped_RetriesExhaustedReturnsError(t *testing.T) {
	t.Setenv("VIGIL_TEST_CRED_PRESENT2", "secret")
	cfg := config.IntegrationConfig{CredentialEnv: "VIGIL_TEST_CRED_PRESENT2", MaxRetries: 1}
	adapter := &stubAdapter{failUntil: 10}
	w := New("test", cfg, adapter)

	_, err := w.Call(context.Background(), "anything", nil)
	require.Error(t, err)
}

func TestWrapped_CircuitOpensAfterConsecutiveFailures(t *testing.T) {
	t.Setenv("VIGIL_TEST_CRED_PRESENT3", "secret")
	cfg := config.IntegrationConfig{
		CredentialEnv: "VIGIL_TEST_CRED_PRESENT3",
		MaxRetries:    0,
		Breaker: &config.BreakerConfig{
			FailureThreshold: 2,
			OpenTimeout:      time.Minute,
			HalfOpenMaxCalls: 1,
		},
	}
	adapter := &stubAdapter{failUntil: 100}
	w := New("test", cfg, adapter)

	for i := 0; i < 2; i++ {
		_, err := w.Call(context.Background(), "op", nil)
		require.Error(t, err)
	}

	_, err := w.Call(context.Background(), "op", nil)
	require.ErrorIs(t, err, ErrCircuitOpen)
}
