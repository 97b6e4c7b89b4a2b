package domain

import "time"

// Member is one entry of a group's membership map.
type Member struct {
	Role     string    `json:"role"`
	Username string    `json:"username"`
	JoinedAt time.Time `json:"joined_at"`
	Muted    bool      `json:"muted"`
}

// Group is the chat group document persisted by the group repository.
// Members is keyed by user ID.
type Group struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	OwnerID         string            `json:"owner_id"`
	JoinCode        string            `json:"join_code"`
	PinnedMessageID string            `json:"pinned_message_id,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	Members         map[string]Member `json:"members"`
}

// IsMember reports whether the user belongs to the group.
func (g Group) IsMember(userID string) bool {
	_, ok := g.Members[userID]
	return ok
}
