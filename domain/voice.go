package domain

import "time"

// VoiceParticipant is one occupant of a voice channel.
// The set is transient: it lives in memory only and follows
// join/leave operations, not group membership.
type VoiceParticipant struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	Avatar     string    `json:"avatar,omitempty"`
	JoinedAt   time.Time `json:"joined_at"`
	IsMuted    bool      `json:"is_muted"`
	IsSpeaking bool      `json:"is_speaking"`
	RaisedHand bool      `json:"raised_hand"`
}

// VoiceState is the mutable part of a participant, broadcast on updates.
type VoiceState struct {
	IsMuted    bool `json:"is_muted"`
	IsSpeaking bool `json:"is_speaking"`
	RaisedHand bool `json:"raised_hand"`
}

// VoiceStatePatch carries only the fields present in a state update,
// so a client can flip one flag without clobbering the others.
type VoiceStatePatch struct {
	IsMuted    *bool `json:"is_muted,omitempty"`
	IsSpeaking *bool `json:"is_speaking,omitempty"`
	RaisedHand *bool `json:"raised_hand,omitempty"`
}
