package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var structValidate = validator.New()

// Validator validates configuration comprehensively with clear error
// messages, failing fast at the first structural problem.
type Validator struct {
	cfg *Config
}

// NewValidator creates a validator for the given configuration.
func NewValidator(cfg *Config) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateAll performs comprehensive validation, fail-fast, in dependency
// order: defaults before anything that falls back to them, integrations
// before the approval/watcher tunables that assume they exist.
func (v *Validator) ValidateAll() error {
	if err := v.validateDefaults(); err != nil {
		return fmt.Errorf("defaults validation failed: %w", err)
	}
	if err := v.validateIntegrations(); err != nil {
		return fmt.Errorf("integration validation failed: %w", err)
	}
	if err := v.validateScoring(); err != nil {
		return fmt.Errorf("scoring validation failed: %w", err)
	}
	if err := v.validateApproval(); err != nil {
		return fmt.Errorf("approval validation failed: %w", err)
	}
	if err := v.validateWatcher(); err != nil {
		return fmt.Errorf("watcher validation failed: %w", err)
	}
	if err := v.validateToolCatalog(); err != nil {
		return fmt.Errorf("tool catalog validation failed: %w", err)
	}
	return nil
}

func (v *Validator) validateDefaults() error {
	d := v.cfg.Defaults
	if d == nil {
		return NewValidationError("defaults", "", "", ErrMissingRequiredField)
	}
	if d.AgentTimeout <= 0 {
		return NewValidationError("defaults", "", "agent_timeout", ErrInvalidValue)
	}
	if d.MaxReflections < 0 || d.MaxReflections > 10 {
		return NewValidationError("defaults", "", "max_reflections", ErrInvalidValue)
	}
	return nil
}

func (v *Validator) validateIntegrations() error {
	for name, ic := range v.cfg.IntegrationRegistry.GetAll() {
		if err := structValidate.Struct(ic); err != nil {
			return NewValidationError("integration", name, "", err)
		}
		if ic.Breaker != nil {
			if err := structValidate.Struct(ic.Breaker); err != nil {
				return NewValidationError("integration", name, "breaker", err)
			}
		}
	}
	return nil
}

func (v *Validator) validateScoring() error {
	s := v.cfg.Scoring
	if s.Weights != nil {
		if err := structValidate.Struct(s.Weights); err != nil {
			return NewValidationError("scoring", "weights", "", err)
		}
	}
	if s.Thresholds != nil {
		if err := structValidate.Struct(s.Thresholds); err != nil {
			return NewValidationError("scoring", "thresholds", "", err)
		}
		if s.Thresholds.Investigate != 0 && s.Thresholds.Suppress != 0 &&
			s.Thresholds.Suppress >= s.Thresholds.Investigate {
			return NewValidationError("scoring", "thresholds", "", fmt.Errorf("suppress threshold must be below investigate threshold"))
		}
	}
	return nil
}

func (v *Validator) validateApproval() error {
	a := v.cfg.Approval
	if a == nil {
		return NewValidationError("approval", "", "", ErrMissingRequiredField)
	}
	return structValidate.Struct(a)
}

func (v *Validator) validateWatcher() error {
	w := v.cfg.Watcher
	if w == nil {
		return NewValidationError("watcher", "", "", ErrMissingRequiredField)
	}
	return structValidate.Struct(w)
}

func (v *Validator) validateToolCatalog() error {
	tc := v.cfg.ToolCatalog
	if tc == nil || tc.Path == "" {
		return NewValidationError("tool_catalog", "", "path", ErrMissingRequiredField)
	}
	return nil
}
