package toolexec

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type catalogYAML struct {
	Tools []ToolDef `yaml:"tools"`
}

// LoadCatalog reads and validates a tool catalog YAML file (the path named
// by config.ToolCatalogConfig.Path).
func LoadCatalog(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("toolexec: reading catalog %s: %w", path, err)
	}
	var parsed catalogYAML
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("toolexec: parsing catalog %s: %w", path, err)
	}
	return NewCatalog(parsed.Tools)
}
