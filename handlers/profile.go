package handlers

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/repositories"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/samber/lo"
)

// ProfileHandler serves profile edits and avatar reads. A username
// change keeps the numeric tag when the resulting handle is free and
// draws a new one otherwise; the directory entry is refreshed through
// the index queue either way.
type ProfileHandler struct {
	users       repositories.IUserRepository
	groups      repositories.IGroupRepository
	avatars     repositories.IAvatarStore
	registry    contract.IRegistry
	broadcaster contract.IBroadcaster
	indexJobs   chan<- domain.User
	log         *slog.Logger
}

func NewProfileHandler(users repositories.IUserRepository, groups repositories.IGroupRepository,
	avatars repositories.IAvatarStore, registry contract.IRegistry,
	broadcaster contract.IBroadcaster, indexJobs chan<- domain.User, log *slog.Logger) *ProfileHandler {
	return &ProfileHandler{
		users:       users,
		groups:      groups,
		avatars:     avatars,
		registry:    registry,
		broadcaster: broadcaster,
		indexJobs:   indexJobs,
		log:         log,
	}
}

func (h *ProfileHandler) UpdateProfile(_ context.Context, conn contract.Conn, data json.RawMessage) {
	userID, ok := h.registry.UserFor(conn)
	if !ok {
		replyError(h.log, conn, "update_profile", "Unauthorized")
		return
	}

	var req struct {
		Username  string `json:"username"`
		ImageData string `json:"image_data"`
	}
	if !decode(h.log, conn, "update_profile", data, &req) {
		return
	}
	if req.Username == "" && req.ImageData == "" {
		replyError(h.log, conn, "update_profile", "Nothing to update")
		return
	}

	user, err := h.users.GetByID(userID)
	if err != nil {
		replyError(h.log, conn, "update_profile", "User not found")
		return
	}

	if req.Username != "" && req.Username != user.Username {
		handle, tag, err := h.freeHandle(req.Username, user.Tag)
		if err != nil {
			replyError(h.log, conn, "update_profile", "Username is too popular, try another")
			return
		}
		user.Username = req.Username
		user.Tag = tag
		user.Handle = handle
	}

	if req.ImageData != "" {
		raw, err := decodeBase64Payload(req.ImageData)
		if err != nil {
			replyError(h.log, conn, "update_profile", "Invalid image encoding")
			return
		}
		filename, err := h.avatars.Save(user.ID, raw)
		if err != nil {
			h.log.Error("Saving avatar failed", "user", user.ID, "error", err)
			replyError(h.log, conn, "update_profile", "Could not save avatar")
			return
		}
		user.Avatar = filename
	}

	if err := h.users.Save(user); err != nil {
		h.log.Error("Persisting profile failed", "user", user.ID, "error", err)
		replyError(h.log, conn, "update_profile", "Could not update profile")
		return
	}

	select {
	case h.indexJobs <- user:
	default:
		h.log.Warn("Directory index queue full, dropping job", "user", user.ID)
	}

	reply(h.log, conn, domain.Success("update_profile", user.Public()))

	// Everyone sharing a group with the caller sees the new profile
	h.broadcaster.DeliverToUsers(h.contactsOf(userID), domain.Success("profile_updated", map[string]any{
		"user": user.Public(),
	}), userID)
	h.log.Info("Profile updated", "user", user.ID)
}

func (h *ProfileHandler) GetAvatar(_ context.Context, conn contract.Conn, data json.RawMessage) {
	if _, ok := h.registry.UserFor(conn); !ok {
		replyError(h.log, conn, "get_avatar", "Unauthorized")
		return
	}

	var req struct {
		UserID string `json:"user_id"`
	}
	if !decode(h.log, conn, "get_avatar", data, &req) {
		return
	}
	if req.UserID == "" {
		replyError(h.log, conn, "get_avatar", "Missing user ID")
		return
	}

	user, err := h.users.GetByID(req.UserID)
	if err != nil || user.Avatar == "" {
		replyError(h.log, conn, "get_avatar", "No avatar")
		return
	}
	raw, err := h.avatars.Load(user.Avatar)
	if err != nil {
		replyError(h.log, conn, "get_avatar", "No avatar")
		return
	}

	reply(h.log, conn, domain.Success("get_avatar", map[string]any{
		"user_id": req.UserID,
		"data":    base64.StdEncoding.EncodeToString(raw),
	}))
}

// freeHandle keeps the caller's tag when the renamed handle is free
// and draws fresh tags otherwise, the same way registration does.
// Renaming must never steal a handle that already resolves to someone
// else.
func (h *ProfileHandler) freeHandle(username, tag string) (string, string, error) {
	handle := username + "#" + tag
	taken, err := h.users.HandleExists(handle)
	if err != nil {
		return "", "", err
	}
	if !taken {
		return handle, tag, nil
	}
	for attempt := 0; attempt < maxHandleAttempts; attempt++ {
		tag = fmt.Sprintf("%04d", rand.Intn(10000))
		handle = username + "#" + tag
		taken, err := h.users.HandleExists(handle)
		if err != nil {
			return "", "", err
		}
		if !taken {
			return handle, tag, nil
		}
	}
	return "", "", fmt.Errorf("no free handle for %q after %d attempts", username, maxHandleAttempts)
}

// contactsOf gathers the member IDs of every group the user belongs
// to, deduplicated, without the user themselves.
func (h *ProfileHandler) contactsOf(userID string) []string {
	groups, err := h.groups.GroupsOf(userID)
	if err != nil {
		h.log.Warn("Listing groups for profile fan-out failed", "user", userID, "error", err)
		return nil
	}
	var contacts []string
	for _, group := range groups {
		contacts = append(contacts, lo.Keys(group.Members)...)
	}
	return lo.Without(lo.Uniq(contacts), userID)
}
