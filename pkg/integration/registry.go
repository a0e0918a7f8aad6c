package integration

import (
	"fmt"

	"github.com/vigil-soc/vigil/pkg/config"
)

// Registry holds every configured Integration, keyed by name, so agents can
// resolve "the firewall integration" without knowing its concrete adapter.
type Registry struct {
	integrations map[string]Integration
}

// NewRegistry builds every configured integration's adapter and resilience
// wrapper from cfg.
func NewRegistry(cfg *config.Config) (*Registry, error) {
	r := &Registry{integrations: make(map[string]Integration)}
	for name, ic := range cfg.IntegrationRegistry.GetAll() {
		adapter, err := buildAdapter(ic)
		if err != nil {
			return nil, fmt.Errorf("integration %q: %w", name, err)
		}
		r.integrations[name] = New(name, ic, adapter)
	}
	return r, nil
}

func buildAdapter(ic config.IntegrationConfig) (Adapter, error) {
	switch ic.Kind {
	case "chat":
		return NewChatAdapter(ic), nil
	case "ticketing":
		return NewTicketingAdapter(ic), nil
	case "paging":
		return NewPagingAdapter(ic), nil
	case "firewall":
		return NewFirewallAdapter(ic), nil
	case "identity":
		return NewIdentityAdapter(ic), nil
	case "orchestrator":
		return NewOrchestratorAdapter(ic), nil
	default:
		return nil, fmt.Errorf("unknown integration kind %q", ic.Kind)
	}
}

// Get resolves an integration by name.
func (r *Registry) Get(name string) (Integration, error) {
	i, ok := r.integrations[name]
	if !ok {
		return nil, fmt.Errorf("integration %q not registered", name)
	}
	return i, nil
}
