//go:generate go run go.uber.org/mock/mockgen -source=media.go -destination=../mocks/mock_media_repository.go -package=mocks
package repositories

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"
)

type IMediaRepository interface {
	SaveRef(ref domain.MediaRef) error
	GetRef(mediaID string) (domain.MediaRef, error)
	WriteFile(ref domain.MediaRef, data []byte) error
	ReadFile(ref domain.MediaRef) ([]byte, error)
}

// MediaRepository stores media references in badger and the raw bytes
// on disk under the media directory. Transcoding and external blob
// storage stay out of scope; this is plain file I/O.
type MediaRepository struct {
	db       *badger.DB
	mediaDir string
}

func NewMediaRepository(db *badger.DB, mediaDir string) *MediaRepository {
	return &MediaRepository{db: db, mediaDir: mediaDir}
}

func mediaKey(mediaID string) []byte {
	return []byte(fmt.Sprintf("media:%s", mediaID))
}

func (r *MediaRepository) SaveRef(ref domain.MediaRef) error {
	data, err := json.Marshal(ref)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(mediaKey(ref.ID), data)
	})
}

func (r *MediaRepository) GetRef(mediaID string) (domain.MediaRef, error) {
	var ref domain.MediaRef
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(mediaKey(mediaID))
		if err != nil {
			return err
		}
		return item.Value(func(value []byte) error {
			return json.Unmarshal(value, &ref)
		})
	})
	if err == badger.ErrKeyNotFound {
		return domain.MediaRef{}, errors.ErrMediaNotFound
	}
	return ref, err
}

func (r *MediaRepository) WriteFile(ref domain.MediaRef, data []byte) error {
	if err := os.MkdirAll(r.mediaDir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(r.mediaDir, ref.Path), data, 0o644)
}

func (r *MediaRepository) ReadFile(ref domain.MediaRef) ([]byte, error) {
	return os.ReadFile(filepath.Join(r.mediaDir, ref.Path))
}
