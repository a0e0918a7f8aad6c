package integration

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/slack-go/slack"

	"github.com/vigil-soc/vigil/pkg/config"
)

// ChatAdapter posts incident notifications to a chat system. Its real path
// uses slack-go/slack; its mock path just echoes the would-be message so
// demo mode can run without a bot token.
type ChatAdapter struct {
	cfg    config.IntegrationConfig
	client *slack.Client
}

// NewChatAdapter builds a ChatAdapter, wiring a real slack.Client only when
// a bot token is present in the environment.
func NewChatAdapter(cfg config.IntegrationConfig) *ChatAdapter {
	a := &ChatAdapter{cfg: cfg}
	if token := os.Getenv(cfg.CredentialEnv); token != "" {
		a.client = slack.New(token)
	}
	return a
}

func (a *ChatAdapter) Call(ctx context.Context, op string, args map[string]any) (map[string]any, error) {
	switch op {
	case "post_message":
		channel, _ := args["channel"].(string)
		text, _ := args["text"].(string)
		if channel == "" {
			channel = a.cfg.BaseURL // reused as default-channel override when set
		}
		_, ts, err := a.client.PostMessageContext(ctx, channel, slack.MsgOptionText(text, false))
		if err != nil {
			var rateLimited *slack.RateLimitedError
			if errors.As(err, &rateLimited) {
				return nil, &RetryableError{Err: fmt.Errorf("chat: post_message: %w", err), RetryAfter: rateLimited.RetryAfter}
			}
			return nil, fmt.Errorf("chat: post_message: %w", err)
		}
		return map[string]any{"timestamp": ts}, nil
	default:
		return nil, fmt.Errorf("chat: unsupported operation %q", op)
	}
}

func (a *ChatAdapter) MockCall(_ context.Context, op string, args map[string]any) (map[string]any, error) {
	switch op {
	case "post_message":
		return map[string]any{"timestamp": "mock-ts", "channel": args["channel"]}, nil
	default:
		return nil, fmt.Errorf("chat: unsupported operation %q", op)
	}
}

// TicketingAdapter files and updates tickets in an external tracker (Jira,
// ServiceNow, ...). The real path is a generic REST call left to the
// caller's HTTP client injection point (BaseURL + CredentialEnv bearer
// token); this module ships only the mock path plus the shape, since no
// ticketing SDK appears anywhere in the example pack.
type TicketingAdapter struct {
	cfg config.IntegrationConfig
}

func NewTicketingAdapter(cfg config.IntegrationConfig) *TicketingAdapter {
	return &TicketingAdapter{cfg: cfg}
}

func (a *TicketingAdapter) Call(_ context.Context, op string, args map[string]any) (map[string]any, error) {
	return nil, fmt.Errorf("ticketing: live calls require a configured base_url and credential_env (op %q)", op)
}

func (a *TicketingAdapter) MockCall(_ context.Context, op string, args map[string]any) (map[string]any, error) {
	switch op {
	case "create_ticket":
		return map[string]any{"ticket_id": "MOCK-1001", "summary": args["summary"]}, nil
	case "update_ticket":
		return map[string]any{"ticket_id": args["ticket_id"], "status": "updated"}, nil
	default:
		return nil, fmt.Errorf("ticketing: unsupported operation %q", op)
	}
}

// PagingAdapter pages on-call responders (PagerDuty, Opsgenie, ...).
type PagingAdapter struct {
	cfg config.IntegrationConfig
}

func NewPagingAdapter(cfg config.IntegrationConfig) *PagingAdapter {
	return &PagingAdapter{cfg: cfg}
}

func (a *PagingAdapter) Call(_ context.Context, op string, args map[string]any) (map[string]any, error) {
	return nil, fmt.Errorf("paging: live calls require a configured base_url and credential_env (op %q)", op)
}

func (a *PagingAdapter) MockCall(_ context.Context, op string, args map[string]any) (map[string]any, error) {
	switch op {
	case "trigger_page":
		return map[string]any{"incident_key": "MOCK-PAGE-1", "escalation_policy": args["escalation_policy"]}, nil
	default:
		return nil, fmt.Errorf("paging: unsupported operation %q", op)
	}
}

// FirewallAdapter issues containment actions against a network enforcement
// point (block IP, isolate host).
type FirewallAdapter struct {
	cfg config.IntegrationConfig
}

func NewFirewallAdapter(cfg config.IntegrationConfig) *FirewallAdapter {
	return &FirewallAdapter{cfg: cfg}
}

func (a *FirewallAdapter) Call(_ context.Context, op string, args map[string]any) (map[string]any, error) {
	return nil, fmt.Errorf("firewall: live calls require a configured base_url and credential_env (op %q)", op)
}

func (a *FirewallAdapter) MockCall(_ context.Context, op string, args map[string]any) (map[string]any, error) {
	switch op {
	case "block_ip", "isolate_host":
		return map[string]any{"status": "applied", "target": args["target"]}, nil
	default:
		return nil, fmt.Errorf("firewall: unsupported operation %q", op)
	}
}

// IdentityAdapter issues identity/access actions (disable account, revoke
// session, force password reset).
type IdentityAdapter struct {
	cfg config.IntegrationConfig
}

func NewIdentityAdapter(cfg config.IntegrationConfig) *IdentityAdapter {
	return &IdentityAdapter{cfg: cfg}
}

func (a *IdentityAdapter) Call(_ context.Context, op string, args map[string]any) (map[string]any, error) {
	return nil, fmt.Errorf("identity: live calls require a configured base_url and credential_env (op %q)", op)
}

func (a *IdentityAdapter) MockCall(_ context.Context, op string, args map[string]any) (map[string]any, error) {
	switch op {
	case "disable_account", "revoke_sessions":
		return map[string]any{"status": "applied", "principal": args["principal"]}, nil
	default:
		return nil, fmt.Errorf("identity: unsupported operation %q", op)
	}
}

// OrchestratorAdapter issues container/workload remediation actions
// (cordon node, restart workload, scale down).
type OrchestratorAdapter struct {
	cfg config.IntegrationConfig
}

func NewOrchestratorAdapter(cfg config.IntegrationConfig) *OrchestratorAdapter {
	return &OrchestratorAdapter{cfg: cfg}
}

func (a *OrchestratorAdapter) Call(_ context.Context, op string, args map[string]any) (map[string]any, error) {
	return nil, fmt.Errorf("orchestrator: live calls require a configured base_url and credential_env (op %q)", op)
}

func (a *OrchestratorAdapter) MockCall(_ context.Context, op string, args map[string]any) (map[string]any, error) {
	switch op {
	case "restart_workload", "scale_workload", "cordon_node":
		return map[string]any{"status": "applied", "workload": args["workload"]}, nil
	default:
		return nil, fmt.Errorf("orchestrator: unsupported operation %q", op)
	}
}
