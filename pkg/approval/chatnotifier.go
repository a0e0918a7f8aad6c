package approval

import (
	"context"
	"fmt"

	"github.com/vigil-soc/vigil/pkg/integration"
)

// ChatNotifier posts the approval prompt to the configured chat
// integration. It implements Notifier.
type ChatNotifier struct {
	integrations *integration.Registry
	channel      string
}

// NewChatNotifier builds a ChatNotifier that posts to channel via the
// registry's "chat" integration.
func NewChatNotifier(integrations *integration.Registry, channel string) *ChatNotifier {
	return &ChatNotifier{integrations: integrations, channel: channel}
}

// Notify implements Notifier.
func (n *ChatNotifier) Notify(ctx context.Context, incidentID, actionID, message string) error {
	chat, err := n.integrations.Get("chat")
	if err != nil {
		return fmt.Errorf("approval: chat integration unavailable: %w", err)
	}
	text := fmt.Sprintf("[approval required] incident %s action %s: %s", incidentID, actionID, message)
	_, err = chat.Call(ctx, "post_message", map[string]any{
		"channel": n.channel,
		"text":    text,
	})
	return err
}
