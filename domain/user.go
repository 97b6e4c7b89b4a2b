package domain

import "time"

// User is the account record persisted by the user repository.
// The password hash never leaves the repository layer unmasked;
// handlers must convert to PublicProfile before any fan-out.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Tag          string    `json:"tag"`
	Handle       string    `json:"handle"`
	PasswordHash string    `json:"password_hash"`
	Avatar       string    `json:"avatar,omitempty"`
	PushToken    string    `json:"push_token,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// PublicProfile is the subset of User safe to send to other clients.
type PublicProfile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Handle   string `json:"handle"`
	Avatar   string `json:"avatar,omitempty"`
}

func (u User) Public() PublicProfile {
	return PublicProfile{
		ID:       u.ID,
		Username: u.Username,
		Handle:   u.Handle,
		Avatar:   u.Avatar,
	}
}
