package handlers

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/repositories"
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// NotificationHandler persists per-user notifications and relays them
// over the live socket. Handing them to an external push gateway is
// out of scope; the stored push token is where such a gateway would
// plug in.
type NotificationHandler struct {
	notifications repositories.INotificationRepository
	registry      contract.IRegistry
	broadcaster   contract.IBroadcaster
	log           *slog.Logger
}

func NewNotificationHandler(notifications repositories.INotificationRepository,
	registry contract.IRegistry, broadcaster contract.IBroadcaster, log *slog.Logger) *NotificationHandler {
	return &NotificationHandler{
		notifications: notifications,
		registry:      registry,
		broadcaster:   broadcaster,
		log:           log,
	}
}

// Notify stores a notification for each recipient and pushes it to
// whoever is connected right now.
func (h *NotificationHandler) Notify(userIDs []string, title, message, kind string) {
	for _, userID := range userIDs {
		notification := domain.Notification{
			ID:        uuid.NewString(),
			Title:     title,
			Message:   message,
			Kind:      kind,
			CreatedAt: time.Now(),
		}
		if err := h.notifications.Store(userID, notification); err != nil {
			h.log.Error("Persisting notification failed", "user", userID, "error", err)
			continue
		}
		h.broadcaster.DeliverToUser(userID, domain.Success("new_notification", notification))
	}
}

func (h *NotificationHandler) GetNotifications(_ context.Context, conn contract.Conn, _ json.RawMessage) {
	userID, ok := h.registry.UserFor(conn)
	if !ok {
		replyError(h.log, conn, "notification_list", "Unauthorized")
		return
	}

	notifications, err := h.notifications.ListFor(userID)
	if err != nil {
		h.log.Error("Listing notifications failed", "user", userID, "error", err)
		replyError(h.log, conn, "notification_list", "Could not load notifications")
		return
	}
	reply(h.log, conn, domain.Success("notification_list", notifications))
}

func (h *NotificationHandler) MarkRead(_ context.Context, conn contract.Conn, data json.RawMessage) {
	userID, ok := h.registry.UserFor(conn)
	if !ok {
		replyError(h.log, conn, "mark_notification_read", "Unauthorized")
		return
	}

	var req struct {
		NotificationID string `json:"notification_id"`
	}
	if !decode(h.log, conn, "mark_notification_read", data, &req) {
		return
	}
	if req.NotificationID == "" {
		replyError(h.log, conn, "mark_notification_read", "Missing notification ID")
		return
	}

	if err := h.notifications.MarkRead(userID, req.NotificationID); err != nil {
		h.log.Error("Marking notification read failed", "user", userID, "error", err)
		replyError(h.log, conn, "mark_notification_read", "Could not update notification")
		return
	}
	reply(h.log, conn, domain.Success("mark_notification_read", map[string]any{
		"notification_id": req.NotificationID,
	}))
}
