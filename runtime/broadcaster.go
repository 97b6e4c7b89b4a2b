package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/observability"
	"encoding/json"
	"log/slog"
)

// Broadcaster fans a single response out to the live connections of one
// or more identities. It has no membership knowledge: callers resolve
// the target set from a fresh membership snapshot before every call,
// which is what makes kicks and leaves take effect on the next event.
//
// Delivery is best-effort. A failing device is logged and skipped; it
// never blocks the identity's other devices or the rest of the targets.
type Broadcaster struct {
	registry   contract.IRegistry
	monitoring *observability.MonitoringManager
	log        *slog.Logger
}

func NewBroadcaster(registry contract.IRegistry, monitoring *observability.MonitoringManager, log *slog.Logger) *Broadcaster {
	return &Broadcaster{registry: registry, monitoring: monitoring, log: log}
}

// DeliverToUser sends the response to every live device of one identity.
// Delivering to an offline identity is a no-op, not an error: the
// membership snapshot may legitimately be ahead of the registry.
func (b *Broadcaster) DeliverToUser(userID string, res domain.Response) {
	payload, err := json.Marshal(res)
	if err != nil {
		b.log.Error("Marshalling response failed", "type", res.Type, "error", err)
		return
	}
	b.deliverPayload(userID, res.Type, payload)
}

// DeliverToUsers applies DeliverToUser to each identity in the set,
// skipping the excluded one. Duplicates in the target slice are
// delivered once; exclusion wins regardless of how many times the
// excluded identity appears.
func (b *Broadcaster) DeliverToUsers(userIDs []string, res domain.Response, exclude string) {
	payload, err := json.Marshal(res)
	if err != nil {
		b.log.Error("Marshalling response failed", "type", res.Type, "error", err)
		return
	}

	seen := make(map[string]struct{}, len(userIDs))
	for _, userID := range userIDs {
		if userID == exclude {
			continue
		}
		if _, done := seen[userID]; done {
			continue
		}
		seen[userID] = struct{}{}
		b.deliverPayload(userID, res.Type, payload)
	}
}

// BroadcastAll delivers to every currently online identity. Used only
// for global presence notifications.
func (b *Broadcaster) BroadcastAll(res domain.Response, exclude string) {
	b.DeliverToUsers(b.registry.OnlineUsers(), res, exclude)
}

func (b *Broadcaster) deliverPayload(userID, eventType string, payload []byte) {
	for _, conn := range b.registry.ConnectionsFor(userID) {
		if err := conn.Send(payload); err != nil {
			b.monitoring.IncrDeliveryFailures()
			b.log.Warn("Delivery failed, skipping device",
				"user", userID, "type", eventType, "error", err)
			continue
		}
		b.monitoring.IncrDeliveries()
	}
}
