package repositories

import (
	"fmt"
	"os"
	"path/filepath"
)

type IAvatarStore interface {
	Save(userID string, data []byte) (string, error)
	Load(filename string) ([]byte, error)
}

// AvatarStore keeps avatar files on disk, one per user, overwritten on
// update. Only the filename is recorded on the user document.
type AvatarStore struct {
	dir string
}

func NewAvatarStore(dir string) *AvatarStore {
	return &AvatarStore{dir: dir}
}

func (s *AvatarStore) Save(userID string, data []byte) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", err
	}
	filename := fmt.Sprintf("%s.jpg", userID)
	if err := os.WriteFile(filepath.Join(s.dir, filename), data, 0o644); err != nil {
		return "", err
	}
	return filename, nil
}

func (s *AvatarStore) Load(filename string) ([]byte, error) {
	return os.ReadFile(filepath.Join(s.dir, filename))
}
