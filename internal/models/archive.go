package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// End reasons stored on RoomRecord.
const (
	EndReasonEmpty   = "empty"
	EndReasonExpired = "expired"
)

// RoomRecord is the archived summary of one room incarnation.
// Message bodies are never stored, only counts.
type RoomRecord struct {
	// SessionID is the primary key; Code alone repeats over time.
	SessionID string `gorm:"primaryKey;type:uuid"`
	// Code is the 4-digit join code the room was reachable under.
	Code string `gorm:"type:char(4);not null;index"`
	// StartedAt is when the room was created.
	StartedAt time.Time `gorm:"not null"`
	// EndedAt is nil while the room is live.
	EndedAt *time.Time
	// EndReason is one of the EndReason constants.
	EndReason string `gorm:"type:text"`
	// MessageCount is the history length at destruction.
	MessageCount int
	// PeakParticipants is the most participants seen at once.
	PeakParticipants int
	// Participants lists every display name that joined.
	Participants pq.StringArray `gorm:"type:text[]"`
}

// BeforeCreate fills SessionID for rows written without one.
func (r *RoomRecord) BeforeCreate(tx *gorm.DB) (err error) {
	if r.SessionID == "" {
		r.SessionID = uuid.NewString()
	}
	return
}
