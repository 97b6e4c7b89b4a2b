package handlers

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/repositories"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type GroupHandler struct {
	groups        repositories.IGroupRepository
	users         repositories.IUserRepository
	notifications *NotificationHandler
	registry      contract.IRegistry
	broadcaster   contract.IBroadcaster
	log           *slog.Logger
}

func NewGroupHandler(groups repositories.IGroupRepository, users repositories.IUserRepository,
	notifications *NotificationHandler, registry contract.IRegistry,
	broadcaster contract.IBroadcaster, log *slog.Logger) *GroupHandler {
	return &GroupHandler{
		groups:        groups,
		users:         users,
		notifications: notifications,
		registry:      registry,
		broadcaster:   broadcaster,
		log:           log,
	}
}

// GetChats replies with every group the caller belongs to.
func (h *GroupHandler) GetChats(_ context.Context, conn contract.Conn, _ json.RawMessage) {
	userID, ok := h.registry.UserFor(conn)
	if !ok {
		replyError(h.log, conn, "get_chats", "Unauthorized")
		return
	}

	groups, err := h.groups.GroupsOf(userID)
	if err != nil {
		h.log.Error("Listing groups failed", "user", userID, "error", err)
		replyError(h.log, conn, "get_chats", "Could not load chats")
		return
	}
	reply(h.log, conn, domain.Success("chat_list", groups))
}

func (h *GroupHandler) CreateGroup(_ context.Context, conn contract.Conn, data json.RawMessage) {
	userID, ok := h.registry.UserFor(conn)
	if !ok {
		replyError(h.log, conn, "create_group", "Unauthorized")
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if !decode(h.log, conn, "create_group", data, &req) {
		return
	}
	if req.Name == "" {
		replyError(h.log, conn, "create_group", "Missing group name")
		return
	}

	creator, err := h.users.GetByID(userID)
	if err != nil {
		h.log.Error("Loading creator failed", "user", userID, "error", err)
		replyError(h.log, conn, "create_group", "Could not create group")
		return
	}

	group := domain.Group{
		ID:        uuid.NewString(),
		Name:      req.Name,
		OwnerID:   userID,
		JoinCode:  newJoinCode(),
		CreatedAt: time.Now(),
		Members: map[string]domain.Member{
			userID: {
				Role:     domain.RoleOwner,
				Username: creator.Username,
				JoinedAt: time.Now(),
			},
		},
	}

	if err := h.groups.Save(group); err != nil {
		h.log.Error("Persisting group failed", "error", err)
		replyError(h.log, conn, "create_group", "Could not create group")
		return
	}
	reply(h.log, conn, domain.Success("create_group", group))
	h.log.Info("Group created", "group", group.ID, "owner", userID)
}

func (h *GroupHandler) JoinGroup(_ context.Context, conn contract.Conn, data json.RawMessage) {
	userID, ok := h.registry.UserFor(conn)
	if !ok {
		replyError(h.log, conn, "join_group", "Unauthorized")
		return
	}

	var req struct {
		JoinCode string `json:"join_code"`
	}
	if !decode(h.log, conn, "join_group", data, &req) {
		return
	}
	if req.JoinCode == "" {
		replyError(h.log, conn, "join_group", "Missing join code")
		return
	}

	group, err := h.groups.GetByJoinCode(req.JoinCode)
	if err != nil {
		replyError(h.log, conn, "join_group", "Invalid join code")
		return
	}
	if group.IsMember(userID) {
		replyError(h.log, conn, "join_group", "Already a member")
		return
	}

	joiner, err := h.users.GetByID(userID)
	if err != nil {
		h.log.Error("Loading joiner failed", "user", userID, "error", err)
		replyError(h.log, conn, "join_group", "Could not join group")
		return
	}

	member := domain.Member{
		Role:     domain.RoleMember,
		Username: joiner.Username,
		JoinedAt: time.Now(),
	}
	group.Members[userID] = member

	if err := h.groups.Save(group); err != nil {
		h.log.Error("Persisting group failed", "group", group.ID, "error", err)
		replyError(h.log, conn, "join_group", "Could not join group")
		return
	}

	reply(h.log, conn, domain.Success("join_group", group))

	// Real-time update for everyone already in the group
	payload := map[string]any{
		"group_id":  group.ID,
		"user_id":   userID,
		"user_data": member,
	}
	h.broadcaster.DeliverToUsers(lo.Keys(group.Members),
		domain.Success("group_member_joined", payload), userID)

	h.notifications.Notify(lo.Without(lo.Keys(group.Members), userID),
		"New member", joiner.Username+" joined "+group.Name, "group")
	h.log.Info("User joined group", "group", group.ID, "user", userID)
}

// newJoinCode derives a short shareable code. Six characters of a UUID
// are plenty for invite links; collisions only matter within live
// codes and are caught by the join-code index on save.
func newJoinCode() string {
	return strings.ToUpper(uuid.NewString()[:6])
}
