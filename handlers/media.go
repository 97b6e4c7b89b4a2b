package handlers

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/repositories"
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// MediaHandler moves attachments in and out of the media store. Files
// travel base64-encoded inside the JSON envelope; the detected MIME
// type is recorded on the reference, not whatever the client claims.
type MediaHandler struct {
	media    repositories.IMediaRepository
	registry contract.IRegistry
	maxSize  int
	log      *slog.Logger
}

func NewMediaHandler(media repositories.IMediaRepository, registry contract.IRegistry,
	maxSize int, log *slog.Logger) *MediaHandler {
	return &MediaHandler{
		media:    media,
		registry: registry,
		maxSize:  maxSize,
		log:      log,
	}
}

func (h *MediaHandler) Upload(_ context.Context, conn contract.Conn, data json.RawMessage) {
	userID, ok := h.registry.UserFor(conn)
	if !ok {
		replyError(h.log, conn, "upload_media", "Unauthorized")
		return
	}

	var req struct {
		Filename string `json:"filename"`
		Data     string `json:"data"`
	}
	if !decode(h.log, conn, "upload_media", data, &req) {
		return
	}
	if req.Data == "" {
		replyError(h.log, conn, "upload_media", "Missing file data")
		return
	}

	raw, err := decodeBase64Payload(req.Data)
	if err != nil {
		replyError(h.log, conn, "upload_media", "Invalid file encoding")
		return
	}
	if h.maxSize > 0 && len(raw) > h.maxSize {
		replyError(h.log, conn, "upload_media", "File too large")
		return
	}

	kind := mimetype.Detect(raw)
	ref := domain.MediaRef{
		ID:        uuid.NewString(),
		OwnerID:   userID,
		Filename:  req.Filename,
		MimeType:  kind.String(),
		Size:      int64(len(raw)),
		CreatedAt: time.Now(),
	}
	ref.Path = ref.ID + kind.Extension()

	if err := h.media.WriteFile(ref, raw); err != nil {
		h.log.Error("Writing media file failed", "media", ref.ID, "error", err)
		replyError(h.log, conn, "upload_media", "Could not store file")
		return
	}
	if err := h.media.SaveRef(ref); err != nil {
		h.log.Error("Persisting media ref failed", "media", ref.ID, "error", err)
		replyError(h.log, conn, "upload_media", "Could not store file")
		return
	}

	reply(h.log, conn, domain.Success("media_ref", ref))
	h.log.Info("Media uploaded", "media", ref.ID, "owner", userID,
		"mime", ref.MimeType, "size", ref.Size)
}

func (h *MediaHandler) Get(_ context.Context, conn contract.Conn, data json.RawMessage) {
	if _, ok := h.registry.UserFor(conn); !ok {
		replyError(h.log, conn, "get_media", "Unauthorized")
		return
	}

	var req struct {
		MediaID string `json:"media_id"`
	}
	if !decode(h.log, conn, "get_media", data, &req) {
		return
	}
	if req.MediaID == "" {
		replyError(h.log, conn, "get_media", "Missing media ID")
		return
	}

	ref, err := h.media.GetRef(req.MediaID)
	if err != nil {
		replyError(h.log, conn, "get_media", "Media not found")
		return
	}
	raw, err := h.media.ReadFile(ref)
	if err != nil {
		h.log.Error("Reading media file failed", "media", ref.ID, "error", err)
		replyError(h.log, conn, "get_media", "Media not found")
		return
	}

	reply(h.log, conn, domain.Success("get_media", map[string]any{
		"media_id":  ref.ID,
		"filename":  ref.Filename,
		"mime_type": ref.MimeType,
		"data":      base64.StdEncoding.EncodeToString(raw),
	}))
}

// GetRef returns just the metadata, for clients that render a preview
// before deciding to download.
func (h *MediaHandler) GetRef(_ context.Context, conn contract.Conn, data json.RawMessage) {
	if _, ok := h.registry.UserFor(conn); !ok {
		replyError(h.log, conn, "media_ref", "Unauthorized")
		return
	}

	var req struct {
		MediaID string `json:"media_id"`
	}
	if !decode(h.log, conn, "media_ref", data, &req) {
		return
	}

	ref, err := h.media.GetRef(req.MediaID)
	if err != nil {
		replyError(h.log, conn, "media_ref", "Media not found")
		return
	}
	reply(h.log, conn, domain.Success("media_ref", ref))
}

// decodeBase64Payload accepts both bare base64 and data URLs.
func decodeBase64Payload(payload string) ([]byte, error) {
	if idx := strings.Index(payload, ","); idx != -1 && strings.HasPrefix(payload, "data:") {
		payload = payload[idx+1:]
	}
	return base64.StdEncoding.DecodeString(payload)
}
