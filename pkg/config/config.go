package config

// Config is the umbrella configuration object produced by Initialize. It
// encapsulates every registry and tunable the rest of Vigil reads from,
// the way tarsy's Config wraps its agent/chain/MCP registries.
type Config struct {
	configDir string

	Defaults *Defaults

	IntegrationRegistry  *IntegrationRegistry
	AgentTimeoutRegistry *AgentTimeoutRegistry

	Scoring    ScoringConfig
	Approval   *ApprovalConfig
	Watcher    *WatcherConfig
	ToolCatalog *ToolCatalogConfig
}

// ConfigDir returns the directory Initialize loaded configuration from.
func (c *Config) ConfigDir() string {
	return c.configDir
}

// ConfigStats summarizes what was loaded, for a single startup log line.
type ConfigStats struct {
	Integrations  int
	AgentOverrides int
}

// Stats returns a snapshot suitable for startup logging.
func (c *Config) Stats() ConfigStats {
	return ConfigStats{
		Integrations:   len(c.IntegrationRegistry.GetAll()),
		AgentOverrides: len(c.AgentTimeoutRegistry.GetAll()),
	}
}

// GetIntegration retrieves an integration configuration by name.
func (c *Config) GetIntegration(name string) (IntegrationConfig, error) {
	return c.IntegrationRegistry.Get(name)
}
