package domain

import "time"

// Notification is one per-user notification entry.
// Delivery to a push gateway is an external concern; we only persist
// and relay over the live socket when the user is connected.
type Notification struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Kind      string    `json:"type"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}
