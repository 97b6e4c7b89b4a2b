package handlers

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/observability"
	"context"
	"encoding/json"
	"log/slog"
)

// HealthHandler answers health_check with the router's live stats.
// It deliberately skips the auth check so probes work before login.
type HealthHandler struct {
	monitoring *observability.MonitoringManager
	registry   contract.IRegistry
	log        *slog.Logger
}

func NewHealthHandler(monitoring *observability.MonitoringManager,
	registry contract.IRegistry, log *slog.Logger) *HealthHandler {
	return &HealthHandler{monitoring: monitoring, registry: registry, log: log}
}

func (h *HealthHandler) HealthCheck(_ context.Context, conn contract.Conn, _ json.RawMessage) {
	stats := h.monitoring.Snapshot()
	reply(h.log, conn, domain.Success("health_check", map[string]any{
		"status":       "ok",
		"online_users": len(h.registry.OnlineUsers()),
		"stats":        stats,
	}))
}
