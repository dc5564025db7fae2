package models

import "time"

// Room is a live two-party session keyed by a 4-digit code.
// It is owned by the room store and only mutated under the hub lock.
type Room struct {
	// Code is the 4-digit join code. Unique among live rooms.
	Code string
	// SessionID identifies this incarnation of the room; codes get reused.
	SessionID string
	// Participants holds at most two entries, in join order.
	Participants []Participant
	// Messages is the append-only chat history, dropped with the room.
	Messages []Message

	CreatedAt    time.Time
	LastActivity time.Time
	ExpiresAt    time.Time

	// VoiceActive is informational only; nothing gates on it.
	VoiceActive bool

	// PeakParticipants and Usernames feed the archive record.
	PeakParticipants int
	Usernames        []string
}

// Participant is one connection currently occupying a room.
type Participant struct {
	ConnID   string
	Username string
	JoinedAt time.Time
}

// Message is one chat line. Immutable once appended.
type Message struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Text      string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	SenderID  string    `json:"-"`
}

// Touch records activity and pushes the expiry deadline out by ttl.
func (r *Room) Touch(now time.Time, ttl time.Duration) {
	r.LastActivity = now
	r.ExpiresAt = now.Add(ttl)
}

// Expired reports whether the room's deadline has passed at now.
func (r *Room) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// IndexOf returns the participant index for connID, or -1.
func (r *Room) IndexOf(connID string) int {
	for i, p := range r.Participants {
		if p.ConnID == connID {
			return i
		}
	}
	return -1
}

// Participant returns the participant for connID.
func (r *Room) Participant(connID string) (Participant, bool) {
	if i := r.IndexOf(connID); i >= 0 {
		return r.Participants[i], true
	}
	return Participant{}, false
}

// AddParticipant appends p and keeps the archive bookkeeping current.
func (r *Room) AddParticipant(p Participant) {
	r.Participants = append(r.Participants, p)
	if n := len(r.Participants); n > r.PeakParticipants {
		r.PeakParticipants = n
	}
	r.Usernames = append(r.Usernames, p.Username)
}

// RemoveParticipant drops connID from the room and returns who was removed.
func (r *Room) RemoveParticipant(connID string) (Participant, bool) {
	i := r.IndexOf(connID)
	if i < 0 {
		return Participant{}, false
	}
	p := r.Participants[i]
	r.Participants = append(r.Participants[:i], r.Participants[i+1:]...)
	return p, true
}

// History returns a copy of the chat history safe to hand to a client.
func (r *Room) History() []Message {
	out := make([]Message, len(r.Messages))
	copy(out, r.Messages)
	return out
}
