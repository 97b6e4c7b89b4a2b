package handlers

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"context"
	"encoding/json"
	"log/slog"

	"github.com/samber/lo"
)

// VoiceHandler manages the transient voice channel state. Signalling
// payloads (SDP offers, ICE candidates) pass through opaquely; the
// relay never inspects them.
type VoiceHandler struct {
	voice       *runtime.VoiceRegistry
	users       repositories.IUserRepository
	registry    contract.IRegistry
	broadcaster contract.IBroadcaster
	log         *slog.Logger
}

func NewVoiceHandler(voice *runtime.VoiceRegistry, users repositories.IUserRepository,
	registry contract.IRegistry, broadcaster contract.IBroadcaster, log *slog.Logger) *VoiceHandler {
	return &VoiceHandler{
		voice:       voice,
		users:       users,
		registry:    registry,
		broadcaster: broadcaster,
		log:         log,
	}
}

func (h *VoiceHandler) Join(_ context.Context, conn contract.Conn, data json.RawMessage) {
	userID, ok := h.registry.UserFor(conn)
	if !ok {
		replyError(h.log, conn, "join_voice", "Unauthorized")
		return
	}

	var req struct {
		ChannelID string `json:"channel_id"`
	}
	if !decode(h.log, conn, "join_voice", data, &req) {
		return
	}
	if req.ChannelID == "" {
		replyError(h.log, conn, "join_voice", "Missing channel ID")
		return
	}

	user, err := h.users.GetByID(userID)
	if err != nil {
		h.log.Error("Loading voice joiner failed", "user", userID, "error", err)
		replyError(h.log, conn, "join_voice", "Could not join voice")
		return
	}

	participant := h.voice.Join(req.ChannelID, user.Public())

	// The joiner gets the full room, everyone else gets the newcomer
	reply(h.log, conn, domain.Success("join_voice", map[string]any{
		"channel_id":   req.ChannelID,
		"participants": h.voice.Snapshot(req.ChannelID),
	}))
	h.broadcaster.DeliverToUsers(h.voice.ParticipantsOf(req.ChannelID),
		domain.Success("voice_member_joined", map[string]any{
			"channel_id":  req.ChannelID,
			"participant": participant,
		}), userID)
	h.log.Info("User joined voice", "channel", req.ChannelID, "user", userID)
}

func (h *VoiceHandler) Leave(_ context.Context, conn contract.Conn, data json.RawMessage) {
	userID, ok := h.registry.UserFor(conn)
	if !ok {
		replyError(h.log, conn, "leave_voice", "Unauthorized")
		return
	}

	var req struct {
		ChannelID string `json:"channel_id"`
	}
	if !decode(h.log, conn, "leave_voice", data, &req) {
		return
	}

	if !h.voice.Leave(req.ChannelID, userID) {
		replyError(h.log, conn, "leave_voice", "Not in that channel")
		return
	}

	reply(h.log, conn, domain.Success("leave_voice", map[string]any{
		"channel_id": req.ChannelID,
	}))
	h.announceLeft(req.ChannelID, userID)
	h.log.Info("User left voice", "channel", req.ChannelID, "user", userID)
}

// UpdateState applies a mute/speaking/hand patch and mirrors the
// resulting state to the whole channel.
func (h *VoiceHandler) UpdateState(_ context.Context, conn contract.Conn, data json.RawMessage) {
	userID, ok := h.registry.UserFor(conn)
	if !ok {
		replyError(h.log, conn, "voice_state_update", "Unauthorized")
		return
	}

	var req struct {
		ChannelID string `json:"channel_id"`
		domain.VoiceStatePatch
	}
	if !decode(h.log, conn, "voice_state_update", data, &req) {
		return
	}

	state, present := h.voice.UpdateState(req.ChannelID, userID, req.VoiceStatePatch)
	if !present {
		replyError(h.log, conn, "voice_state_update", "Not in that channel")
		return
	}

	// The whole channel gets the update, the sender included, so all
	// of their devices converge on the confirmed state
	h.broadcaster.DeliverToUsers(h.voice.ParticipantsOf(req.ChannelID),
		domain.Success("voice_state_update", map[string]any{
			"channel_id": req.ChannelID,
			"user_id":    userID,
			"state":      state,
		}), "")
}

// Signal relays a WebRTC signalling blob to the rest of the channel.
// The mesh is small; every peer receives every offer and filters on the
// from field. The sender is always excluded, their own devices included.
func (h *VoiceHandler) Signal(_ context.Context, conn contract.Conn, data json.RawMessage) {
	userID, ok := h.registry.UserFor(conn)
	if !ok {
		replyError(h.log, conn, "voice_signal", "Unauthorized")
		return
	}

	var req struct {
		ChannelID string          `json:"channel_id"`
		Signal    json.RawMessage `json:"signal"`
	}
	if !decode(h.log, conn, "voice_signal", data, &req) {
		return
	}
	if req.ChannelID == "" {
		replyError(h.log, conn, "voice_signal", "Missing channel ID")
		return
	}

	participants := h.voice.ParticipantsOf(req.ChannelID)
	if !lo.Contains(participants, userID) {
		replyError(h.log, conn, "voice_signal", "Not in that channel")
		return
	}

	h.broadcaster.DeliverToUsers(participants, domain.Success("voice_signal", map[string]any{
		"channel_id": req.ChannelID,
		"from":       userID,
		"signal":     req.Signal,
	}), userID)
}

// HandleDisconnect is the session close hook: it evicts the user from
// every channel and tells the remaining occupants.
func (h *VoiceHandler) HandleDisconnect(userID string) {
	for _, channelID := range h.voice.LeaveAll(userID) {
		h.announceLeft(channelID, userID)
	}
}

func (h *VoiceHandler) announceLeft(channelID, userID string) {
	h.broadcaster.DeliverToUsers(h.voice.ParticipantsOf(channelID),
		domain.Success("voice_member_left", map[string]any{
			"channel_id": channelID,
			"user_id":    userID,
		}), userID)
}
