package rooms

import (
	"time"

	"duocall/backend/internal/models"
)

// Store maps codes to live rooms and tracks the used-code set.
// Store has no lock of its own: callers hold the hub lock so that a
// participant change, expiry refresh and history append land together.
type Store struct {
	rooms map[string]*models.Room
	used  map[string]struct{}
}

// Stats is a point-in-time summary for the admin surface.
type Stats struct {
	Rooms        int `json:"rooms"`
	Participants int `json:"participants"`
	UsedCodes    int `json:"usedCodes"`
}

func NewStore() *Store {
	return &Store{
		rooms: make(map[string]*models.Room),
		used:  make(map[string]struct{}),
	}
}

// IsUsed reports whether code is reserved or backs a live room.
func (s *Store) IsUsed(code string) bool {
	_, ok := s.used[code]
	return ok
}

// Reserve marks code as taken.
func (s *Store) Reserve(code string) {
	s.used[code] = struct{}{}
}

// Release returns code to the allocatable pool.
func (s *Store) Release(code string) {
	delete(s.used, code)
}

// Create registers room under its (already reserved) code.
func (s *Store) Create(room *models.Room) error {
	if _, ok := s.rooms[room.Code]; ok {
		return ErrCodeInUse
	}
	s.Reserve(room.Code)
	s.rooms[room.Code] = room
	return nil
}

// Get looks up a live room.
func (s *Store) Get(code string) (*models.Room, bool) {
	r, ok := s.rooms[code]
	return r, ok
}

// Delete destroys the room: history is cleared and the code released.
// Deleting an absent code is a no-op and reports false.
func (s *Store) Delete(code string) (*models.Room, bool) {
	r, ok := s.rooms[code]
	if !ok {
		return nil, false
	}
	delete(s.rooms, code)
	s.Release(code)
	r.Messages = nil
	return r, true
}

// Expired returns the rooms whose deadline has passed at now.
func (s *Store) Expired(now time.Time) []*models.Room {
	var out []*models.Room
	for _, r := range s.rooms {
		if r.Expired(now) {
			out = append(out, r)
		}
	}
	return out
}

// Len returns the number of live rooms.
func (s *Store) Len() int { return len(s.rooms) }

// Stats summarises the store.
func (s *Store) Stats() Stats {
	st := Stats{Rooms: len(s.rooms), UsedCodes: len(s.used)}
	for _, r := range s.rooms {
		st.Participants += len(r.Participants)
	}
	return st
}
