package coordinator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vigil-soc/vigil/pkg/integration"
	"github.com/vigil-soc/vigil/pkg/store"
)

// ChatNotifier posts an escalation message via the chat integration and,
// when ticketing is configured, files a ticket (§7 user-visible failure
// path). Both calls are best-effort: a failure is logged and swallowed,
// since an escalation notification failing must never re-open a terminal
// incident.
type ChatNotifier struct {
	integrations  *integration.Registry
	escalationChannel string
	ticketingEnabled  bool
}

// NewChatNotifier builds a ChatNotifier. ticketingEnabled controls whether
// a ticket is filed alongside the chat post (true when a ticketing
// integration is configured).
func NewChatNotifier(integrations *integration.Registry, escalationChannel string, ticketingEnabled bool) *ChatNotifier {
	return &ChatNotifier{integrations: integrations, escalationChannel: escalationChannel, ticketingEnabled: ticketingEnabled}
}

// NotifyEscalation implements EscalationNotifier.
func (n *ChatNotifier) NotifyEscalation(ctx context.Context, inc store.Incident, reason string) {
	text := fmt.Sprintf("incident %s escalated: %s", inc.IncidentID, reason)

	if chat, err := n.integrations.Get("chat"); err == nil {
		if _, callErr := chat.Call(ctx, "post_message", map[string]any{
			"channel": n.escalationChannel,
			"text":    text,
		}); callErr != nil {
			slog.Warn("escalation chat notification failed", "incident_id", inc.IncidentID, "error", callErr)
		}
	} else {
		slog.Warn("chat integration unavailable for escalation notification", "incident_id", inc.IncidentID, "error", err)
	}

	if !n.ticketingEnabled {
		return
	}
	ticketing, err := n.integrations.Get("ticketing")
	if err != nil {
		slog.Warn("ticketing integration unavailable for escalation", "incident_id", inc.IncidentID, "error", err)
		return
	}
	if _, callErr := ticketing.Call(ctx, "create_ticket", map[string]any{
		"incident_id": inc.IncidentID,
		"summary":     text,
	}); callErr != nil {
		slog.Warn("escalation ticket creation failed", "incident_id", inc.IncidentID, "error", callErr)
	}
}
