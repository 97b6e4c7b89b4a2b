package handlers

import (
	"chat-relay/auth"
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
)

const maxHandleAttempts = 5

// AuthHandler owns register, login and reconnect. It is the only
// handler that creates registry bindings; every other handler merely
// reads them.
type AuthHandler struct {
	users     repositories.IUserRepository
	avatars   repositories.IAvatarStore
	registry  contract.IRegistry
	presence  *runtime.Presence
	tokens    *auth.TokenIssuer
	indexJobs chan<- domain.User
	log       *slog.Logger
}

func NewAuthHandler(users repositories.IUserRepository, avatars repositories.IAvatarStore,
	registry contract.IRegistry, presence *runtime.Presence, tokens *auth.TokenIssuer,
	indexJobs chan<- domain.User, log *slog.Logger) *AuthHandler {
	return &AuthHandler{
		users:     users,
		avatars:   avatars,
		registry:  registry,
		presence:  presence,
		tokens:    tokens,
		indexJobs: indexJobs,
		log:       log,
	}
}

// authPayload is what register/login/reconnect send back: the public
// account fields plus a fresh session token. Never the password hash.
type authPayload struct {
	domain.PublicProfile
	Tag       string    `json:"tag"`
	CreatedAt time.Time `json:"created_at"`
	Token     string    `json:"token"`
}

func (h *AuthHandler) Register(_ context.Context, conn contract.Conn, data json.RawMessage) {
	var req auth.RegisterRequest
	if !decode(h.log, conn, "register", data, &req) {
		return
	}
	if err := auth.ValidateRegister(req); err != nil {
		replyError(h.log, conn, "register", "Invalid username or password")
		return
	}

	handle, tag, err := h.uniqueHandle(req.Username)
	if err != nil {
		replyError(h.log, conn, "register", "Username is too popular, try another")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.log.Error("Hashing password failed", "error", err)
		replyError(h.log, conn, "register", "Registration failed")
		return
	}

	user := domain.User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		Tag:          tag,
		Handle:       handle,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}

	// A broken avatar never fails registration
	if req.ImageData != "" {
		if filename, err := h.saveAvatar(user.ID, req.ImageData); err != nil {
			h.log.Warn("Saving avatar failed", "user", user.ID, "error", err)
		} else {
			user.Avatar = filename
		}
	}

	if err := h.users.Save(user); err != nil {
		h.log.Error("Persisting user failed", "error", err)
		replyError(h.log, conn, "register", "Registration failed")
		return
	}
	h.enqueueIndex(user)

	h.bind(user.ID, conn)
	h.reply(conn, "register", user)
	h.log.Info("Registered new user", "handle", handle)
}

func (h *AuthHandler) Login(_ context.Context, conn contract.Conn, data json.RawMessage) {
	var req auth.LoginRequest
	if !decode(h.log, conn, "login", data, &req) {
		return
	}
	if err := auth.ValidateLogin(req); err != nil {
		replyError(h.log, conn, "login", "Missing credentials")
		return
	}

	user, err := h.lookup(req.Handle)
	if err != nil {
		replyError(h.log, conn, "login", "Invalid credentials")
		return
	}

	ok, err := auth.ComparePassword(req.Password, user.PasswordHash)
	if err != nil || !ok {
		replyError(h.log, conn, "login", "Invalid credentials")
		return
	}

	if req.PushToken != "" && req.PushToken != user.PushToken {
		user.PushToken = req.PushToken
		if err := h.users.Save(user); err != nil {
			h.log.Warn("Updating push token failed", "user", user.ID, "error", err)
		}
	}

	h.bind(user.ID, conn)
	h.reply(conn, "login", user)
	h.log.Info("User logged in", "handle", user.Handle)
}

// Reconnect re-binds a returning client that still holds its user ID
// and token from a previous session.
func (h *AuthHandler) Reconnect(_ context.Context, conn contract.Conn, data json.RawMessage) {
	var req struct {
		UserID string `json:"user_id"`
		Token  string `json:"token"`
	}
	if !decode(h.log, conn, "reconnect", data, &req) {
		return
	}
	if req.UserID == "" {
		replyError(h.log, conn, "reconnect", "Missing user ID")
		return
	}

	user, err := h.users.GetByID(req.UserID)
	if err != nil {
		replyError(h.log, conn, "reconnect", "User not found")
		return
	}

	if req.Token != "" {
		claims, err := h.tokens.Validate(req.Token)
		if err != nil || claims.UserID != user.ID {
			replyError(h.log, conn, "reconnect", "Invalid session token")
			return
		}
	}

	h.bind(user.ID, conn)
	h.reply(conn, "reconnect", user)
	h.log.Info("User reconnected", "handle", user.Handle)
}

// bind registers the connection and fires the online presence
// transition when this is the user's first device.
func (h *AuthHandler) bind(userID string, conn contract.Conn) {
	if online := h.registry.Bind(userID, conn); online {
		h.presence.UserOnline(userID)
	}
}

func (h *AuthHandler) reply(conn contract.Conn, eventType string, user domain.User) {
	token, err := h.tokens.Generate(user.ID)
	if err != nil {
		h.log.Error("Generating token failed", "user", user.ID, "error", err)
		replyError(h.log, conn, eventType, "Authentication failed")
		return
	}
	reply(h.log, conn, domain.Success(eventType, authPayload{
		PublicProfile: user.Public(),
		Tag:           user.Tag,
		CreatedAt:     user.CreatedAt,
		Token:         token,
	}))
}

// lookup accepts either a full handle or a bare username.
func (h *AuthHandler) lookup(identifier string) (domain.User, error) {
	if strings.Contains(identifier, "#") {
		return h.users.GetByHandle(identifier)
	}
	return h.users.GetByUsername(identifier)
}

// uniqueHandle draws "#NNNN" tags until the handle is free, within a
// bounded number of attempts.
func (h *AuthHandler) uniqueHandle(username string) (string, string, error) {
	for attempt := 0; attempt < maxHandleAttempts; attempt++ {
		tag := fmt.Sprintf("%04d", rand.Intn(10000))
		handle := fmt.Sprintf("%s#%s", username, tag)
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

func (h *AuthHandler) saveAvatar(userID, imageData string) (string, error) {
	// Strip a data URL header if the client sent one
	if idx := strings.Index(imageData, ","); idx != -1 {
		imageData = imageData[idx+1:]
	}
	raw, err := base64.StdEncoding.DecodeString(imageData)
	if err != nil {
		return "", err
	}
	return h.avatars.Save(userID, raw)
}

// enqueueIndex hands the user to the directory indexer without ever
// blocking the auth path.
func (h *AuthHandler) enqueueIndex(user domain.User) {
	select {
	case h.indexJobs <- user:
	default:
		h.log.Warn("Directory index queue full, dropping job", "user", user.ID)
	}
}
