package handlers

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/moderation"
	"chat-relay/repositories"
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/abadojack/whatlanggo"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

type MessageHandler struct {
	messages         repositories.IMessageRepository
	groups           repositories.IGroupRepository
	moderator        moderation.Moderator
	registry         contract.IRegistry
	broadcaster      contract.IBroadcaster
	maxContentLength int
	log              *slog.Logger
}

func NewMessageHandler(messages repositories.IMessageRepository, groups repositories.IGroupRepository,
	moderator moderation.Moderator, registry contract.IRegistry, broadcaster contract.IBroadcaster,
	maxContentLength int, log *slog.Logger) *MessageHandler {
	return &MessageHandler{
		messages:         messages,
		groups:           groups,
		moderator:        moderator,
		registry:         registry,
		broadcaster:      broadcaster,
		maxContentLength: maxContentLength,
		log:              log,
	}
}

// Send persists and fans out one chat message. The target is either a
// group ID or a user ID for a direct message; membership is re-read
// here, immediately before the fan-out, never cached.
func (h *MessageHandler) Send(_ context.Context, conn contract.Conn, data json.RawMessage) {
	senderID, ok := h.registry.UserFor(conn)
	if !ok {
		replyError(h.log, conn, "message", "Unauthorized")
		return
	}

	var req struct {
		To      string `json:"to"`
		Content string `json:"content"`
		Kind    string `json:"msg_type"`
		ReplyTo string `json:"reply_to"`
	}
	if !decode(h.log, conn, "message", data, &req) {
		return
	}
	if req.To == "" || req.Content == "" {
		replyError(h.log, conn, "message", "Missing 'to' or 'content'")
		return
	}
	if h.maxContentLength > 0 && len(req.Content) > h.maxContentLength {
		replyError(h.log, conn, "message", "Message too long")
		return
	}
	if req.Kind == "" {
		req.Kind = "text"
	}

	chatKey, recipients, isGroup := h.resolveTarget(req.To, senderID)
	if isGroup && !lo.Contains(recipients, senderID) {
		replyError(h.log, conn, "message", "You are not a member")
		return
	}

	content := h.moderator.Censor(req.Content)
	info := whatlanggo.Detect(content)

	message := domain.Message{
		ID:        uuid.New(),
		ChatID:    req.To,
		SenderID:  senderID,
		Content:   content,
		Kind:      req.Kind,
		Language:  info.Lang.Iso6391(),
		ReplyTo:   req.ReplyTo,
		Timestamp: time.Now().UnixMilli(),
	}

	if err := h.messages.Store(chatKey, message); err != nil {
		h.log.Error("Persisting message failed", "chat", chatKey, "error", err)
		replyError(h.log, conn, "message", "Could not store message")
		return
	}

	if isGroup {
		h.broadcaster.DeliverToUsers(recipients, domain.Success("message", map[string]any{
			"chat_id": req.To,
			"message": message,
		}), "")
		return
	}

	// Each side of a direct chat files the message under the other
	// party's ID
	h.broadcaster.DeliverToUser(req.To, domain.Success("message", map[string]any{
		"chat_id": senderID,
		"message": message,
	}))
	if req.To != senderID {
		h.broadcaster.DeliverToUser(senderID, domain.Success("message", map[string]any{
			"chat_id": req.To,
			"message": message,
		}))
	}
}

// Typing relays a typing indicator to the target's devices, always
// excluding the sender's own.
func (h *MessageHandler) Typing(_ context.Context, conn contract.Conn, data json.RawMessage) {
	senderID, ok := h.registry.UserFor(conn)
	if !ok {
		replyError(h.log, conn, "typing", "Unauthorized")
		return
	}

	var req struct {
		To       string `json:"to"`
		IsTyping *bool  `json:"is_typing"`
	}
	if !decode(h.log, conn, "typing", data, &req) {
		return
	}
	if req.To == "" {
		replyError(h.log, conn, "typing", "Missing 'to'")
		return
	}

	isTyping := true
	if req.IsTyping != nil {
		isTyping = *req.IsTyping
	}

	_, recipients, _ := h.resolveTarget(req.To, senderID)
	h.broadcaster.DeliverToUsers(recipients, domain.Success("typing", map[string]any{
		"from":      senderID,
		"chat_id":   req.To,
		"is_typing": isTyping,
	}), senderID)
}

// GetHistory returns a page of a chat's messages plus pin info for
// groups. The cursor round-trips opaquely through the client.
func (h *MessageHandler) GetHistory(_ context.Context, conn contract.Conn, data json.RawMessage) {
	userID, ok := h.registry.UserFor(conn)
	if !ok {
		replyError(h.log, conn, "chat_history", "Unauthorized")
		return
	}

	var req struct {
		ChatID string  `json:"chat_id"`
		Cursor *string `json:"cursor"`
	}
	if !decode(h.log, conn, "chat_history", data, &req) {
		return
	}
	if req.ChatID == "" {
		replyError(h.log, conn, "chat_history", "Missing chat ID")
		return
	}

	chatKey := repositories.DirectChatKey(userID, req.ChatID)
	var pinned *domain.PinnedMessage

	if group, err := h.groups.GetByID(req.ChatID); err == nil {
		if !group.IsMember(userID) {
			replyError(h.log, conn, "chat_history", "Not a member")
			return
		}
		chatKey = group.ID
		if group.PinnedMessageID != "" {
			if id, err := uuid.Parse(group.PinnedMessageID); err == nil {
				if message, err := h.messages.GetByID(chatKey, id); err == nil {
					pinned = &domain.PinnedMessage{ID: group.PinnedMessageID, Content: message.Content}
				}
			}
		}
	}

	messages, cursor, err := h.messages.GetMessages(chatKey, req.Cursor)
	if err != nil {
		h.log.Error("Loading history failed", "chat", chatKey, "error", err)
		replyError(h.log, conn, "chat_history", "Could not load history")
		return
	}

	reply(h.log, conn, domain.Success("chat_history", map[string]any{
		"chat_id":        req.ChatID,
		"messages":       messages,
		"cursor":         cursor,
		"pinned_message": pinned,
	}))
}

// Delete tombstones one of the caller's own messages and tells every
// recipient to blank it.
func (h *MessageHandler) Delete(_ context.Context, conn contract.Conn, data json.RawMessage) {
	userID, ok := h.registry.UserFor(conn)
	if !ok {
		replyError(h.log, conn, "delete_message", "Unauthorized")
		return
	}

	var req struct {
		ChatID    string `json:"chat_id"`
		MessageID string `json:"message_id"`
	}
	if !decode(h.log, conn, "delete_message", data, &req) {
		return
	}
	if req.ChatID == "" || req.MessageID == "" {
		replyError(h.log, conn, "delete_message", "Missing chat or message ID")
		return
	}
	messageID, err := uuid.Parse(req.MessageID)
	if err != nil {
		replyError(h.log, conn, "delete_message", "Invalid message ID")
		return
	}

	chatKey, recipients, _ := h.resolveTarget(req.ChatID, userID)
	if err := h.messages.Tombstone(chatKey, messageID, userID); err != nil {
		replyError(h.log, conn, "delete_message", "Could not delete message")
		return
	}

	h.broadcaster.DeliverToUsers(recipients, domain.Success("message_deleted", map[string]any{
		"chat_id":    req.ChatID,
		"message_id": req.MessageID,
	}), "")
}

// Pin records a message as the group's pinned message and broadcasts
// it. Direct chats have no pin.
func (h *MessageHandler) Pin(_ context.Context, conn contract.Conn, data json.RawMessage) {
	userID, ok := h.registry.UserFor(conn)
	if !ok {
		replyError(h.log, conn, "pin_message", "Unauthorized")
		return
	}

	var req struct {
		ChatID    string `json:"chat_id"`
		MessageID string `json:"message_id"`
	}
	if !decode(h.log, conn, "pin_message", data, &req) {
		return
	}

	group, err := h.groups.GetByID(req.ChatID)
	if err != nil {
		replyError(h.log, conn, "pin_message", "Group not found")
		return
	}
	if !group.IsMember(userID) {
		replyError(h.log, conn, "pin_message", "Not a member")
		return
	}

	group.PinnedMessageID = req.MessageID
	if err := h.groups.Save(group); err != nil {
		h.log.Error("Persisting pin failed", "group", group.ID, "error", err)
		replyError(h.log, conn, "pin_message", "Could not pin message")
		return
	}

	content := "Pinned message"
	if id, err := uuid.Parse(req.MessageID); err == nil {
		if message, err := h.messages.GetByID(group.ID, id); err == nil {
			content = message.Content
		}
	}

	h.broadcaster.DeliverToUsers(lo.Keys(h.groups.MembersOf(group.ID)),
		domain.Success("message_pinned", map[string]any{
			"chat_id":    req.ChatID,
			"message_id": req.MessageID,
			"content":    content,
			"pinned_by":  userID,
		}), "")
}

// resolveTarget maps a target ID to the storage chat key and the
// fan-out recipient set. Group targets resolve to a fresh membership
// snapshot; direct targets resolve to the pair itself.
func (h *MessageHandler) resolveTarget(targetID, senderID string) (string, []string, bool) {
	if h.groups.Exists(targetID) {
		return targetID, lo.Keys(h.groups.MembersOf(targetID)), true
	}
	return repositories.DirectChatKey(senderID, targetID), []string{targetID, senderID}, false
}
