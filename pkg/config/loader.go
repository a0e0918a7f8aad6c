package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// vigilYAMLConfig mirrors the on-disk vigil.yaml layout.
type vigilYAMLConfig struct {
	Defaults     *Defaults                     `yaml:"defaults"`
	Integrations map[string]IntegrationConfig  `yaml:"integrations"`
	AgentTimeouts map[string]AgentTimeoutConfig `yaml:"agent_timeouts"`
	Scoring      ScoringConfig                 `yaml:"scoring"`
	Approval     *ApprovalConfig               `yaml:"approval"`
	Watcher      *WatcherConfig                `yaml:"watcher"`
	ToolCatalog  *ToolCatalogConfig            `yaml:"tool_catalog"`
}

// Initialize loads, validates, and returns ready-to-use configuration.
//
// Steps:
//  1. Read vigil.yaml from configDir
//  2. Expand environment variables
//  3. Parse YAML into structs
//  4. Merge user-defined values over built-in defaults
//  5. Build registries
//  6. Validate all configuration
func Initialize(_ context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("initializing configuration")

	path := configDir + "/vigil.yaml"
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewLoadError(path, ErrConfigNotFound)
		}
		return nil, NewLoadError(path, err)
	}

	expanded := ExpandEnv(raw)

	var parsed vigilYAMLConfig
	if err := yaml.Unmarshal(expanded, &parsed); err != nil {
		return nil, NewLoadError(path, fmt.Errorf("%w: %v", ErrInvalidYAML, err))
	}

	defaults := DefaultDefaults()
	if parsed.Defaults != nil {
		if err := mergo.Merge(defaults, parsed.Defaults, mergo.WithOverride); err != nil {
			return nil, NewLoadError(path, err)
		}
	}

	approval := DefaultApprovalConfig()
	if parsed.Approval != nil {
		if err := mergo.Merge(approval, parsed.Approval, mergo.WithOverride); err != nil {
			return nil, NewLoadError(path, err)
		}
	}

	watcher := DefaultWatcherConfig()
	if parsed.Watcher != nil {
		if err := mergo.Merge(watcher, parsed.Watcher, mergo.WithOverride); err != nil {
			return nil, NewLoadError(path, err)
		}
	}

	for name, ic := range parsed.Integrations {
		if ic.Breaker == nil {
			ic.Breaker = DefaultBreakerConfig()
			parsed.Integrations[name] = ic
		}
	}

	toolCatalog := parsed.ToolCatalog
	if toolCatalog == nil {
		toolCatalog = &ToolCatalogConfig{Path: configDir + "/tools.yaml"}
	}

	cfg := &Config{
		configDir:            configDir,
		Defaults:             defaults,
		IntegrationRegistry:  NewIntegrationRegistry(parsed.Integrations),
		AgentTimeoutRegistry: NewAgentTimeoutRegistry(parsed.AgentTimeouts, *defaults),
		Scoring:              parsed.Scoring,
		Approval:             approval,
		Watcher:              watcher,
		ToolCatalog:          toolCatalog,
	}

	if err := NewValidator(cfg).ValidateAll(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	stats := cfg.Stats()
	log.Info("configuration initialized",
		"integrations", stats.Integrations,
		"agent_overrides", stats.AgentOverrides)

	return cfg, nil
}
