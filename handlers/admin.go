package handlers

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/repositories"
	"context"
	"encoding/json"
	"log/slog"

	"github.com/samber/lo"
)

// AdminHandler covers moderation actions inside a group: kick, mute,
// unmute, promote and demote. Authorization derives from the caller's
// role in that group, never from a global flag.
type AdminHandler struct {
	groups      repositories.IGroupRepository
	registry    contract.IRegistry
	broadcaster contract.IBroadcaster
	log         *slog.Logger
}

func NewAdminHandler(groups repositories.IGroupRepository, registry contract.IRegistry,
	broadcaster contract.IBroadcaster, log *slog.Logger) *AdminHandler {
	return &AdminHandler{
		groups:      groups,
		registry:    registry,
		broadcaster: broadcaster,
		log:         log,
	}
}

func (h *AdminHandler) AdminAction(_ context.Context, conn contract.Conn, data json.RawMessage) {
	actorID, ok := h.registry.UserFor(conn)
	if !ok {
		replyError(h.log, conn, "admin_action", "Unauthorized")
		return
	}

	var req struct {
		GroupID  string `json:"group_id"`
		Action   string `json:"action"`
		TargetID string `json:"target_id"`
	}
	if !decode(h.log, conn, "admin_action", data, &req) {
		return
	}
	if req.GroupID == "" || req.Action == "" || req.TargetID == "" {
		replyError(h.log, conn, "admin_action", "Missing group, action or target")
		return
	}

	group, err := h.groups.GetByID(req.GroupID)
	if err != nil {
		replyError(h.log, conn, "admin_action", "Group not found")
		return
	}
	target, isMember := group.Members[req.TargetID]
	if !isMember {
		replyError(h.log, conn, "admin_action", "Target is not a member")
		return
	}
	if req.TargetID == group.OwnerID {
		replyError(h.log, conn, "admin_action", "The owner cannot be targeted")
		return
	}

	actorRole, _ := group.RoleOf(actorID)
	if targetRole, _ := group.RoleOf(req.TargetID); targetRole == domain.RoleAdmin && actorRole != domain.RoleOwner {
		replyError(h.log, conn, "admin_action", "Only the owner can target an admin")
		return
	}

	switch req.Action {
	case "kick":
		if !domain.CanManageMembers(actorRole) {
			replyError(h.log, conn, "admin_action", "Insufficient permissions")
			return
		}
		delete(group.Members, req.TargetID)
	case "mute":
		if !domain.CanMuteMembers(actorRole) {
			replyError(h.log, conn, "admin_action", "Insufficient permissions")
			return
		}
		target.Muted = true
		group.Members[req.TargetID] = target
	case "unmute":
		if !domain.CanMuteMembers(actorRole) {
			replyError(h.log, conn, "admin_action", "Insufficient permissions")
			return
		}
		target.Muted = false
		group.Members[req.TargetID] = target
	case "promote":
		if !domain.CanPromoteMembers(actorRole) {
			replyError(h.log, conn, "admin_action", "Insufficient permissions")
			return
		}
		target.Role = domain.RoleAdmin
		group.Members[req.TargetID] = target
	case "demote":
		if !domain.CanPromoteMembers(actorRole) {
			replyError(h.log, conn, "admin_action", "Insufficient permissions")
			return
		}
		target.Role = domain.RoleMember
		group.Members[req.TargetID] = target
	default:
		replyError(h.log, conn, "admin_action", "Unknown action: "+req.Action)
		return
	}

	if err := h.groups.Save(group); err != nil {
		h.log.Error("Persisting admin action failed", "group", group.ID, "error", err)
		replyError(h.log, conn, "admin_action", "Could not apply action")
		return
	}

	reply(h.log, conn, domain.Success("admin_action", map[string]any{
		"group_id":  group.ID,
		"action":    req.Action,
		"target_id": req.TargetID,
	}))

	// Kicked users are no longer in the member map, so add them back
	// to the fan-out explicitly
	recipients := lo.Keys(group.Members)
	if req.Action == "kick" {
		recipients = append(recipients, req.TargetID)
	}
	h.broadcaster.DeliverToUsers(recipients, domain.Success("admin_update", map[string]any{
		"group_id":  group.ID,
		"action":    req.Action,
		"target_id": req.TargetID,
		"actor_id":  actorID,
	}), actorID)
	h.log.Info("Admin action applied", "group", group.ID, "action", req.Action,
		"actor", actorID, "target", req.TargetID)
}
