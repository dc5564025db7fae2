package storage

import (
	"errors"
	"fmt"
	"time"

	"duocall/backend/internal/models"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Storage is the room archive. Live room state never goes through here.
type Storage interface {
	SaveRoom(rec *models.RoomRecord) error
	CloseRoom(c Closure) error
	GetRoomRecord(sessionID string) (*models.RoomRecord, error)
}

// Closure is what the archive learns when a room is destroyed.
type Closure struct {
	SessionID        string
	EndedAt          time.Time
	Reason           string
	MessageCount     int
	PeakParticipants int
	Participants     []string
}

var ErrRecordNotFound = errors.New("room record not found")

type Service struct {
	DB *gorm.DB
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB) *Service {
	return &Service{DB: db}
}

// Migrate creates or updates the archive table.
func (s *Service) Migrate() error {
	if err := s.DB.AutoMigrate(&models.RoomRecord{}); err != nil {
		return fmt.Errorf("migrate room records: %w", err)
	}
	return nil
}

// SaveRoom inserts the opening row for a room incarnation.
func (s *Service) SaveRoom(rec *models.RoomRecord) error {
	return s.DB.Create(rec).Error
}

// CloseRoom stamps the end of a room incarnation.
func (s *Service) CloseRoom(c Closure) error {
	res := s.DB.Model(&models.RoomRecord{}).
		Where("session_id = ?", c.SessionID).
		Updates(map[string]interface{}{
			"ended_at":          c.EndedAt,
			"end_reason":        c.Reason,
			"message_count":     c.MessageCount,
			"peak_participants": c.PeakParticipants,
			"participants":      pq.StringArray(c.Participants),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("close %s: %w", c.SessionID, ErrRecordNotFound)
	}
	return nil
}

func (s *Service) GetRoomRecord(sessionID string) (*models.RoomRecord, error) {
	var rec models.RoomRecord
	err := s.DB.Where("session_id = ?", sessionID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
