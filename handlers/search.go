package handlers

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/repositories"
	"context"
	"encoding/json"
	"log/slog"
)

// SearchHandler resolves a handle or username to a public profile plus
// live presence, using the directory index for the lookup and badger
// for the profile itself.
type SearchHandler struct {
	directory repositories.IDirectory
	users     repositories.IUserRepository
	registry  contract.IRegistry
	log       *slog.Logger
}

func NewSearchHandler(directory repositories.IDirectory, users repositories.IUserRepository,
	registry contract.IRegistry, log *slog.Logger) *SearchHandler {
	return &SearchHandler{
		directory: directory,
		users:     users,
		registry:  registry,
		log:       log,
	}
}

func (h *SearchHandler) SearchUser(ctx context.Context, conn contract.Conn, data json.RawMessage) {
	if _, ok := h.registry.UserFor(conn); !ok {
		replyError(h.log, conn, "search_user", "Unauthorized")
		return
	}

	var req struct {
		Query string `json:"query"`
	}
	if !decode(h.log, conn, "search_user", data, &req) {
		return
	}
	if req.Query == "" {
		replyError(h.log, conn, "search_user", "Missing query")
		return
	}

	userID, err := h.directory.Search(ctx, req.Query)
	if err != nil {
		h.log.Error("Directory search failed", "query", req.Query, "error", err)
		replyError(h.log, conn, "search_user", "Search failed")
		return
	}
	if userID == "" {
		replyError(h.log, conn, "search_user", "User not found")
		return
	}

	user, err := h.users.GetByID(userID)
	if err != nil {
		// Index entry outlived the account
		h.log.Warn("Indexed user missing from store", "user", userID)
		replyError(h.log, conn, "search_user", "User not found")
		return
	}

	reply(h.log, conn, domain.Success("search_user", map[string]any{
		"user":      user.Public(),
		"is_online": h.registry.IsOnline(user.ID),
	}))
}
