package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"pack-portal/internal/event"
	"pack-portal/internal/metrics"
)

const sendTimeout = 10 * time.Second

type sender interface {
	Send(ctx context.Context, content string) error
}

// Notifier announces new claims in the community Discord channel.
type Notifier struct {
	bus    event.Bus
	sender sender
}

func New(bus event.Bus, sender sender) *Notifier {
	return &Notifier{bus: bus, sender: sender}
}

// Start subscribes to the bus and consumes claim events in the background
// until ctx is cancelled. The returned channel closes once the consumer has
// stopped. Delivery failures are logged and counted, never retried.
func (n *Notifier) Start(ctx context.Context) <-chan struct{} {
	events, unsubscribe := n.bus.Subscribe()
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer unsubscribe()
		n.run(ctx, events)
	}()

	return done
}

func (n *Notifier) run(ctx context.Context, events <-chan event.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			n.handle(ctx, evt)
		}
	}
}

func (n *Notifier) handle(ctx context.Context, evt event.Event) {
	if evt.Type != event.TypeClaimCreated {
		return
	}

	payload, ok := evt.Payload.(event.ClaimCreated)
	if !ok {
		slog.Warn("unexpected claim event payload", "event_id", evt.ID)
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	if err := n.sender.Send(sendCtx, Message(payload)); err != nil {
		metrics.RecordNotification(metrics.StatusError)
		slog.Error("claim notification failed", "claim_id", payload.ClaimID, "error", err)
		return
	}

	metrics.RecordNotification(metrics.StatusSent)
	slog.Debug("claim notification sent", "claim_id", payload.ClaimID)
}

// Message renders the channel announcement for a claim.
func Message(c event.ClaimCreated) string {
	return fmt.Sprintf("🎉 <@%s>（%s）さんが「%s」を受け取りました！", c.DiscordUserID, c.DiscordUsername, c.PackTitle)
}
