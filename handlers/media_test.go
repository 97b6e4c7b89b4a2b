package handlers

import (
	"chat-relay/domain"
	"chat-relay/repositories"
	"context"
	"encoding/base64"
	"log/slog"
	"strings"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

// A real PNG header so MIME detection has something to chew on.
var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

func newMediaHandler(t *testing.T, maxSize int) (*MediaHandler, *fixture) {
	t.Helper()
	f := newFixture(t)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	media := repositories.NewMediaRepository(db, t.TempDir())
	return NewMediaHandler(media, f.registry, maxSize, slog.Default()), f
}

func TestMediaHandler_Upload_Then_Download(t *testing.T) {
	req := require.New(t)
	handler, f := newMediaHandler(t, 1<<20)
	alice, conn := f.seedUser(t, "alice")

	handler.Upload(context.Background(), conn, payload(t, map[string]string{
		"filename": "pic.png",
		"data":     base64.StdEncoding.EncodeToString(pngBytes),
	}))

	res, ok := conn.lastOfType(t, "media_ref")
	req.True(ok)
	req.Equal(domain.StatusSuccess, res.Status)
	ref := decodeData[domain.MediaRef](t, res)
	req.Equal(alice.ID, ref.OwnerID)
	req.Equal("image/png", ref.MimeType)
	req.Equal(int64(len(pngBytes)), ref.Size)
	req.True(strings.HasSuffix(ref.Path, ".png"))

	// Download returns the exact bytes back
	handler.Get(context.Background(), conn, payload(t, map[string]string{
		"media_id": ref.ID,
	}))
	download, ok := conn.lastOfType(t, "get_media")
	req.True(ok)
	got := decodeData[struct {
		Data string `json:"data"`
	}](t, download)
	raw, err := base64.StdEncoding.DecodeString(got.Data)
	req.NoError(err)
	req.Equal(pngBytes, raw)
}

func TestMediaHandler_Upload_Accepts_Data_URL(t *testing.T) {
	req := require.New(t)
	handler, f := newMediaHandler(t, 1<<20)
	_, conn := f.seedUser(t, "alice")

	handler.Upload(context.Background(), conn, payload(t, map[string]string{
		"filename": "pic.png",
		"data":     "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes),
	}))

	res, ok := conn.lastOfType(t, "media_ref")
	req.True(ok)
	req.Equal(domain.StatusSuccess, res.Status)
}

func TestMediaHandler_Upload_Too_Large(t *testing.T) {
	req := require.New(t)
	handler, f := newMediaHandler(t, 4)
	_, conn := f.seedUser(t, "alice")

	handler.Upload(context.Background(), conn, payload(t, map[string]string{
		"filename": "pic.png",
		"data":     base64.StdEncoding.EncodeToString(pngBytes),
	}))

	res, ok := conn.lastOfType(t, "upload_media")
	req.True(ok)
	req.Equal(domain.StatusError, res.Status)
	req.Equal("File too large", res.Message)
}

func TestMediaHandler_Get_Unknown_ID(t *testing.T) {
	req := require.New(t)
	handler, f := newMediaHandler(t, 1<<20)
	_, conn := f.seedUser(t, "alice")

	handler.Get(context.Background(), conn, payload(t, map[string]string{
		"media_id": "missing",
	}))

	res, ok := conn.lastOfType(t, "get_media")
	req.True(ok)
	req.Equal(domain.StatusError, res.Status)
}
