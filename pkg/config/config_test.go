package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeVigilYAML(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vigil.yaml"), []byte(content), 0o644))
}

func TestInitialize_MinimalConfig(t *testing.T) {
	dir := t.TempDir()
	writeVigilYAML(t, dir, `
integrations:
  slack:
    kind: chat
    credential_env: SLACK_BOT_TOKEN
`)

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Stats().Integrations)
	assert.Equal(t, 3, cfg.Defaults.MaxReflections)

	ic, err := cfg.GetIntegration("slack")
	require.NoError(t, err)
	assert.Equal(t, "chat", ic.Kind)
	assert.NotNil(t, ic.Breaker)
	assert.Equal(t, uint32(5), ic.Breaker.FailureThreshold)
}

func TestInitialize_MissingFile(t *testing.T) {
	dir := t.TempDir()
	_, err := Initialize(context.Background(), dir)
	require.ErrorIs(t, err, ErrConfigNotFound)
}

func TestInitialize_InvalidIntegrationKind(t *testing.T) {
	dir := t.TempDir()
	writeVigilYAML(t, dir, `
integrations:
  bogus:
    kind: not-a-real-kind
    credential_env: X
`)
	_, err := Initialize(context.Background(), dir)
	require.ErrorIs(t, err, ErrValidationFailed)
}

func TestInitialize_ScoringThresholdOrderingEnforced(t *testing.T) {
	dir := t.TempDir()
	writeVigilYAML(t, dir, `
scoring:
  thresholds:
    investigate: 0.4
    suppress: 0.7
`)
	_, err := Initialize(context.Background(), dir)
	require.ErrorIs(t, err, ErrValidationFailed)
}

func TestInitialize_EnvExpansion(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("VIGIL_TEST_BASE_URL", "https://example.invalid")
	writeVigilYAML(t, dir, `
integrations:
  edr:
    kind: identity
    credential_env: EDR_API_KEY
    base_url: ${VIGIL_TEST_BASE_URL}
`)
	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)
	ic, err := cfg.GetIntegration("edr")
	require.NoError(t, err)
	assert.Equal(t, "https://example.invalid", ic.BaseURL)
}

func TestAgentTimeoutRegistry_FallsBackToDefault(t *testing.T) {
	reg := NewAgentTimeoutRegistry(map[string]AgentTimeoutConfig{
		"commander": {Timeout: 120_000_000_000}, // 2m, in nanoseconds
	}, *DefaultDefaults())

	assert.Equal(t, DefaultDefaults().AgentTimeout, reg.TimeoutFor("triage"))
}
