package config

import "time"

// AgentTimeoutConfig overrides the default per-agent handler timeout (§4.7's
// A2A router timeout table). Agents not listed here use Defaults.AgentTimeout.
type AgentTimeoutConfig struct {
	Timeout time.Duration `yaml:"timeout" validate:"required,min=1s"`
}

// ScoringConfig overrides the pinned scoring constants from pkg/scoring.
// Every field is optional; zero values fall back to pkg/scoring's defaults.
type ScoringConfig struct {
	Weights    *ScoringWeightsConfig    `yaml:"weights,omitempty"`
	Thresholds *ScoringThresholdsConfig `yaml:"thresholds,omitempty"`
}

// ScoringWeightsConfig mirrors scoring.Weights for YAML override.
type ScoringWeightsConfig struct {
	Severity         float64 `yaml:"severity,omitempty" validate:"omitempty,gte=0,lte=1"`
	AssetCriticality float64 `yaml:"asset_criticality,omitempty" validate:"omitempty,gte=0,lte=1"`
	Corroboration    float64 `yaml:"corroboration,omitempty" validate:"omitempty,gte=0,lte=1"`
	Novelty          float64 `yaml:"novelty,omitempty" validate:"omitempty,gte=0,lte=1"`
}

// ScoringThresholdsConfig mirrors scoring.Thresholds for YAML override.
type ScoringThresholdsConfig struct {
	Investigate float64 `yaml:"investigate,omitempty" validate:"omitempty,gte=0,lte=1"`
	Suppress    float64 `yaml:"suppress,omitempty" validate:"omitempty,gte=0,lte=1"`
}

// IntegrationConfig describes one external system the integration harness
// (pkg/integration) can call — chat, ticketing, paging, firewall, identity,
// or container-orchestrator. CredentialEnv names the environment variable
// whose absence forces mock mode for this integration (§4.4).
type IntegrationConfig struct {
	Kind          string        `yaml:"kind" validate:"required,oneof=chat ticketing paging firewall identity orchestrator"`
	CredentialEnv string        `yaml:"credential_env" validate:"required"`
	BaseURL       string        `yaml:"base_url,omitempty"`
	Timeout       time.Duration `yaml:"timeout,omitempty" validate:"omitempty,min=1s"`
	MaxRetries    int           `yaml:"max_retries,omitempty" validate:"omitempty,min=0,max=10"`
	Breaker       *BreakerConfig `yaml:"breaker,omitempty"`
}

// BreakerConfig tunes the gobreaker circuit breaker wrapping one integration.
type BreakerConfig struct {
	FailureThreshold uint32        `yaml:"failure_threshold,omitempty" validate:"omitempty,min=1"`
	OpenTimeout      time.Duration `yaml:"open_timeout,omitempty" validate:"omitempty,min=1s"`
	HalfOpenMaxCalls uint32        `yaml:"half_open_max_calls,omitempty" validate:"omitempty,min=1"`
}

// ApprovalConfig tunes the async approval gate (§4.9).
type ApprovalConfig struct {
	PollInterval          time.Duration `yaml:"poll_interval,omitempty" validate:"omitempty,min=1s"`
	TimeoutMinutes        int           `yaml:"timeout_minutes,omitempty" validate:"omitempty,min=1"`
	MaxConsecutiveErrors  int           `yaml:"max_consecutive_errors,omitempty" validate:"omitempty,min=1"`
}

// WatcherConfig tunes the alert-ingestion loop (§4.11).
type WatcherConfig struct {
	PollInterval      time.Duration `yaml:"poll_interval,omitempty" validate:"omitempty,min=1s"`
	ClaimTTL          time.Duration `yaml:"claim_ttl,omitempty" validate:"omitempty,min=1s"`
	BatchSize         int           `yaml:"batch_size,omitempty" validate:"omitempty,min=1,max=500"`
}

// ToolCatalogConfig points at the tool catalog file consumed by pkg/toolexec.
type ToolCatalogConfig struct {
	Path string `yaml:"path" validate:"required"`
}
