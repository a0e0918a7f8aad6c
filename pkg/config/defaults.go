package config

import "time"

// Defaults holds the system-wide defaults applied when a component doesn't
// specify its own value, the way tarsy's Defaults backstop agent/chain
// settings.
type Defaults struct {
	// AgentTimeout is used for any agent not listed in AgentTimeouts.
	AgentTimeout time.Duration `yaml:"agent_timeout,omitempty"`

	// MaxReflections bounds the coordinator's reflect-and-retry loop (§4.8).
	MaxReflections int `yaml:"max_reflections,omitempty" validate:"omitempty,min=0,max=10"`
}

// DefaultDefaults returns the built-in system defaults, used when a config
// file omits the `defaults` section entirely.
func DefaultDefaults() *Defaults {
	return &Defaults{
		AgentTimeout:   30 * time.Second,
		MaxReflections: 3,
	}
}

// DefaultApprovalConfig returns the built-in approval-gate tunables (§4.9).
func DefaultApprovalConfig() *ApprovalConfig {
	return &ApprovalConfig{
		PollInterval:         15 * time.Second,
		TimeoutMinutes:       15,
		MaxConsecutiveErrors: 3,
	}
}

// DefaultWatcherConfig returns the built-in alert-watcher tunables (§4.11).
func DefaultWatcherConfig() *WatcherConfig {
	return &WatcherConfig{
		PollInterval: 5 * time.Second,
		ClaimTTL:     2 * time.Minute,
		BatchSize:    25,
	}
}

// DefaultBreakerConfig returns the built-in circuit-breaker tunables applied
// to an integration when its YAML entry omits `breaker`.
func DefaultBreakerConfig() *BreakerConfig {
	return &BreakerConfig{
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
		HalfOpenMaxCalls: 1,
	}
}
