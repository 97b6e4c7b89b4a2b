package runtime

import (
	"chat-relay/domain"
	"sync"
	"time"
)

// VoiceRegistry tracks who currently sits in which voice channel.
// The state is transient by design: it follows explicit join/leave
// calls and dies with the process, unlike group membership which lives
// in storage. A channel whose last participant leaves is removed
// outright, never left as an empty entry.
type VoiceRegistry struct {
	mu       sync.RWMutex
	channels map[string]map[string]*domain.VoiceParticipant
}

func NewVoiceRegistry() *VoiceRegistry {
	return &VoiceRegistry{channels: make(map[string]map[string]*domain.VoiceParticipant)}
}

// Join adds the user to the channel, creating the channel on first use.
// New participants start muted. Rejoining refreshes the entry.
func (v *VoiceRegistry) Join(channelID string, profile domain.PublicProfile) domain.VoiceParticipant {
	v.mu.Lock()
	defer v.mu.Unlock()

	participants, ok := v.channels[channelID]
	if !ok {
		participants = make(map[string]*domain.VoiceParticipant)
		v.channels[channelID] = participants
	}

	participant := &domain.VoiceParticipant{
		ID:       profile.ID,
		Username: profile.Username,
		Avatar:   profile.Avatar,
		JoinedAt: time.Now(),
		IsMuted:  true,
	}
	participants[profile.ID] = participant
	return *participant
}

// Leave removes the user from the channel and reports whether they were
// actually in it. The channel record disappears when it empties.
func (v *VoiceRegistry) Leave(channelID, userID string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	participants, ok := v.channels[channelID]
	if !ok {
		return false
	}
	if _, present := participants[userID]; !present {
		return false
	}
	delete(participants, userID)
	if len(participants) == 0 {
		delete(v.channels, channelID)
	}
	return true
}

// LeaveAll removes the user from every channel they occupy and returns
// the affected channel IDs. Called on connection teardown so a crashed
// client does not linger in a call.
func (v *VoiceRegistry) LeaveAll(userID string) []string {
	v.mu.Lock()
	defer v.mu.Unlock()

	var left []string
	for channelID, participants := range v.channels {
		if _, present := participants[userID]; !present {
			continue
		}
		delete(participants, userID)
		if len(participants) == 0 {
			delete(v.channels, channelID)
		}
		left = append(left, channelID)
	}
	return left
}

// UpdateState applies a partial state patch and returns the resulting
// full state. The boolean is false when the user is not in the channel.
func (v *VoiceRegistry) UpdateState(channelID, userID string, patch domain.VoiceStatePatch) (domain.VoiceState, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	participants, ok := v.channels[channelID]
	if !ok {
		return domain.VoiceState{}, false
	}
	participant, present := participants[userID]
	if !present {
		return domain.VoiceState{}, false
	}

	if patch.IsMuted != nil {
		participant.IsMuted = *patch.IsMuted
	}
	if patch.IsSpeaking != nil {
		participant.IsSpeaking = *patch.IsSpeaking
	}
	if patch.RaisedHand != nil {
		participant.RaisedHand = *patch.RaisedHand
	}

	return domain.VoiceState{
		IsMuted:    participant.IsMuted,
		IsSpeaking: participant.IsSpeaking,
		RaisedHand: participant.RaisedHand,
	}, true
}

// ParticipantsOf returns the IDs of the channel's current occupants.
// Empty when the channel does not exist.
func (v *VoiceRegistry) ParticipantsOf(channelID string) []string {
	v.mu.RLock()
	defer v.mu.RUnlock()

	participants, ok := v.channels[channelID]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(participants))
	for id := range participants {
		ids = append(ids, id)
	}
	return ids
}

// Snapshot returns a copy of the channel's participant records, keyed
// by user ID, for the join response.
func (v *VoiceRegistry) Snapshot(channelID string) map[string]domain.VoiceParticipant {
	v.mu.RLock()
	defer v.mu.RUnlock()

	participants, ok := v.channels[channelID]
	if !ok {
		return map[string]domain.VoiceParticipant{}
	}
	snapshot := make(map[string]domain.VoiceParticipant, len(participants))
	for id, participant := range participants {
		snapshot[id] = *participant
	}
	return snapshot
}
