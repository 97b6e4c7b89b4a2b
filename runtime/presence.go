package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"log/slog"
)

const (
	presenceEventType = "presence"
	presenceOnline    = "online"
	presenceOffline   = "offline"
)

type presencePayload struct {
	UserID string `json:"user_id"`
	Status string `json:"status"`
}

// Presence broadcasts online/offline transitions to every connected
// identity, the user's own other devices included. Notifications are
// fire-and-forget: a failed delivery never rolls back the registry
// mutation that triggered it.
type Presence struct {
	broadcaster contract.IBroadcaster
	log         *slog.Logger
}

func NewPresence(broadcaster contract.IBroadcaster, log *slog.Logger) *Presence {
	return &Presence{broadcaster: broadcaster, log: log}
}

func (p *Presence) UserOnline(userID string) {
	p.log.Info("User online", "user", userID)
	p.broadcast(userID, presenceOnline)
}

func (p *Presence) UserOffline(userID string) {
	p.log.Info("User offline", "user", userID)
	p.broadcast(userID, presenceOffline)
}

func (p *Presence) broadcast(userID, status string) {
	res := domain.Success(presenceEventType, presencePayload{UserID: userID, Status: status})
	p.broadcaster.BroadcastAll(res, "")
}
