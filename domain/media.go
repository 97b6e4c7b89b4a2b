package domain

import "time"

// MediaRef is the stored pointer to an uploaded file. The bytes live on
// disk under the media directory; only the reference goes to badger.
type MediaRef struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Filename  string    `json:"filename"`
	MimeType  string    `json:"mime_type"`
	Size      int64     `json:"size"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
}
