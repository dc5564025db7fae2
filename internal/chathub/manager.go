package chathub

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"duocall/backend/internal/config"
	"duocall/backend/internal/ledger"
	"duocall/backend/internal/metrics"
	"duocall/backend/internal/models"
	"duocall/backend/internal/rooms"
	"duocall/backend/internal/storage"

	"github.com/google/uuid"
)

const ledgerTimeout = 2 * time.Second

// Archive receives room open/close summaries. storage.Archiver implements it.
type Archive interface {
	RoomOpened(rec models.RoomRecord)
	RoomClosed(c storage.Closure)
}

// Inbound pairs a decoded frame with the connection that sent it.
type Inbound struct {
	Client Client
	Event  models.InboundEvent
}

type Options struct {
	RoomTTL time.Duration
	Ledger  ledger.Ledger
	Archive Archive
	Metrics *metrics.Recorder
	Logger  *slog.Logger

	// Now and Intn default to time.Now and math/rand/v2.
	Now  func() time.Time
	Intn func(n int) int
}

// ManagerService is the room lifecycle coordinator. Every operation takes
// mu for its whole read-modify-write, so a room is never observed half
// updated and the store, allocator and ledger are sequenced together.
type ManagerService struct {
	mu      sync.Mutex
	clients map[string]Client
	store   *rooms.Store
	alloc   *rooms.Allocator
	ledger  ledger.Ledger
	archive Archive
	metrics *metrics.Recorder
	log     *slog.Logger
	ttl     time.Duration
	now     func() time.Time
	intn    func(n int) int

	// Channels. They are unbuffered so a connection's last frame is always
	// handled before its unregister.
	IncomingCh   chan Inbound
	RegisterCh   chan Client
	UnregisterCh chan Client

	done chan struct{}
}

func NewManagerService(opts Options) *ManagerService {
	if opts.RoomTTL <= 0 {
		opts.RoomTTL = config.DefaultRoomTTL
	}
	if opts.Ledger == nil {
		opts.Ledger = ledger.NewMemoryLedger(0)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	store := rooms.NewStore()
	alloc := rooms.NewAllocator(store, opts.Intn)
	intn := opts.Intn
	if intn == nil {
		intn = rand.IntN
	}

	return &ManagerService{
		clients:      make(map[string]Client),
		store:        store,
		alloc:        alloc,
		ledger:       opts.Ledger,
		archive:      opts.Archive,
		metrics:      opts.Metrics,
		log:          opts.Logger,
		ttl:          opts.RoomTTL,
		now:          opts.Now,
		intn:         intn,
		IncomingCh:   make(chan Inbound),
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		done:         make(chan struct{}),
	}
}

// Run is the hub's dispatch loop. It returns when ctx is cancelled.
func (m *ManagerService) Run(ctx context.Context) {
	defer close(m.done)
	m.log.Info("hub.started")

	for {
		select {
		case c := <-m.RegisterCh:
			m.Register(c)
		case c := <-m.UnregisterCh:
			m.Unregister(c)
		case in := <-m.IncomingCh:
			m.Handle(in.Client, in.Event)
		case <-ctx.Done():
			m.log.Info("hub.stopped")
			return
		}
	}
}

// Done is closed once Run has returned.
func (m *ManagerService) Done() <-chan struct{} { return m.done }

// Register makes c addressable for outbound events.
func (m *ManagerService) Register(c Client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients[c.GetConnID()] = c
	m.log.Debug("client.registered", "conn", c.GetConnID())
}

// Unregister handles a transport disconnect: implicit leave, then the
// connection is forgotten and its send side closed.
func (m *ManagerService) Unregister(c Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.clients[c.GetConnID()]; !ok {
		return
	}
	if code := c.GetRoomCode(); code != "" {
		m.leaveLocked(c, code)
	}
	delete(m.clients, c.GetConnID())
	c.Close()
	m.log.Debug("client.unregistered", "conn", c.GetConnID())
}

// CreateRoom allocates a code, creates the room and seats c in it.
func (m *ManagerService) CreateRoom(c Client, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.occupiesLiveRoom(c) {
		return rooms.ErrAlreadyInRoom
	}

	code, err := m.alloc.Allocate()
	if err != nil {
		return err
	}

	now := m.now()
	name := m.sanitizeUsername(username)
	room := &models.Room{
		Code:      code,
		SessionID: uuid.NewString(),
		CreatedAt: now,
		Messages:  []models.Message{},
	}
	room.Touch(now, m.ttl)
	room.AddParticipant(models.Participant{ConnID: c.GetConnID(), Username: name, JoinedAt: now})
	if err := m.store.Create(room); err != nil {
		m.store.Release(code)
		return err
	}
	c.SetRoomCode(code)

	m.metrics.RoomCreated()
	m.metrics.ParticipantJoined()
	if m.archive != nil {
		m.archive.RoomOpened(models.RoomRecord{SessionID: room.SessionID, Code: code, StartedAt: now})
	}
	m.log.Info("room.created", "code", code, "conn", c.GetConnID())

	m.send(c, models.EventJoinedRoom, models.JoinedRoomPayload{
		Code:      code,
		Username:  name,
		UserCount: 1,
		Messages:  room.History(),
	})
	return nil
}

// JoinRoom seats c in an existing room. Checks run in a fixed order:
// format, existence, capacity, duplicate membership, then the ledger.
func (m *ManagerService) JoinRoom(c Client, code, username string) (err error) {
	defer func() {
		if err != nil {
			m.metrics.JoinRejected(joinRejectReason(err))
			m.log.Debug("room.join_rejected", "code", code, "conn", c.GetConnID(), "err", err)
		}
	}()

	if !rooms.ValidCode(code) {
		return rooms.ErrInvalidCode
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.store.Get(code)
	if !ok {
		return rooms.ErrRoomNotFound
	}
	if len(room.Participants) >= config.RoomCapacity {
		return rooms.ErrRoomFull
	}
	if room.IndexOf(c.GetConnID()) >= 0 {
		return rooms.ErrAlreadyInRoom
	}
	if c.GetRoomCode() != code && m.occupiesLiveRoom(c) {
		return rooms.ErrAlreadyInRoom
	}

	name := m.sanitizeUsername(username)
	ctx, cancel := context.WithTimeout(context.Background(), ledgerTimeout)
	defer cancel()

	left, err := m.ledger.HasLeftConn(ctx, c.GetConnID(), code)
	if err != nil {
		return fmt.Errorf("check ledger: %w", err)
	}
	if !left {
		if left, err = m.ledger.HasLeftName(ctx, name, code); err != nil {
			return fmt.Errorf("check ledger: %w", err)
		}
	}
	if left {
		return rooms.ErrRejoinForbidden
	}

	now := m.now()
	room.AddParticipant(models.Participant{ConnID: c.GetConnID(), Username: name, JoinedAt: now})
	room.Touch(now, m.ttl)
	c.SetRoomCode(code)
	m.metrics.ParticipantJoined()

	count := len(room.Participants)
	m.log.Info("room.joined", "code", code, "conn", c.GetConnID(), "count", count)

	m.send(c, models.EventJoinedRoom, models.JoinedRoomPayload{
		Code:      code,
		Username:  name,
		UserCount: count,
		Messages:  room.History(),
	})
	m.broadcastOthers(room, c.GetConnID(), models.EventUserJoined, models.UserPresencePayload{
		Username:  name,
		UserCount: count,
	})
	return nil
}

// SendMessage appends a chat line and echoes it to every participant,
// the sender included.
func (m *ManagerService) SendMessage(c Client, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, err := m.roomOf(c)
	if err != nil {
		return err
	}
	p, ok := room.Participant(c.GetConnID())
	if !ok {
		return rooms.ErrParticipantNotFound
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if utf8.RuneCountInString(text) > config.MaxMessageRunes {
		return rooms.ErrMessageTooLong
	}

	now := m.now()
	msg := models.Message{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Username:  p.Username,
		Text:      text,
		Timestamp: now,
		SenderID:  c.GetConnID(),
	}
	room.Messages = append(room.Messages, msg)
	room.Touch(now, m.ttl)
	m.metrics.MessageSent()

	m.broadcast(room, models.EventNewMessage, models.NewMessagePayload{
		ID:        msg.ID,
		Username:  msg.Username,
		Message:   msg.Text,
		Timestamp: msg.Timestamp,
	})
	return nil
}

// Typing relays a presence hint to the other participant. It changes no
// state and does not refresh the room's expiry.
func (m *ManagerService) Typing(c Client, username string, isTyping bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, err := m.roomOf(c)
	if err != nil {
		return err
	}
	if p, ok := room.Participant(c.GetConnID()); ok {
		username = p.Username
	}
	m.broadcastOthers(room, c.GetConnID(), models.EventUserTyping, models.UserTypingPayload{
		Username: username,
		IsTyping: isTyping,
	})
	return nil
}

// LeaveRoom is the explicit leave. It is irreversible for this connection
// and display name, and is acknowledged with leftRoom.
func (m *ManagerService) LeaveRoom(c Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	code := c.GetRoomCode()
	if code == "" {
		return rooms.ErrNotInRoom
	}
	m.leaveLocked(c, code)
	m.send(c, models.EventLeftRoom, models.Empty{})
	return nil
}

// Disconnect is the implicit leave for a connection that is already gone.
// It has nobody to acknowledge.
func (m *ManagerService) Disconnect(c Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if code := c.GetRoomCode(); code != "" {
		m.leaveLocked(c, code)
	}
}

// RelaySignal forwards an opaque voice-setup payload to the other
// participant. start/end additionally flip the room's voice flag.
func (m *ManagerService) RelaySignal(c Client, kind string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, err := m.roomOf(c)
	if err != nil {
		return err
	}
	if room.IndexOf(c.GetConnID()) < 0 {
		return rooms.ErrParticipantNotFound
	}

	var (
		outType string
		out     any
	)
	switch kind {
	case models.EventVoiceChatOffer, models.EventVoiceChatAnswer, models.EventIceCandidate:
		outType, out = kind, models.SignalPayload{Payload: payload}
	case models.EventStartVoiceChat:
		room.VoiceActive = true
		outType, out = models.EventVoiceChatStarted, models.Empty{}
	case models.EventEndVoiceChat:
		room.VoiceActive = false
		outType, out = models.EventVoiceChatEnded, models.Empty{}
	default:
		return rooms.ErrUnknownEvent
	}

	room.Touch(m.now(), m.ttl)
	m.broadcastOthers(room, c.GetConnID(), outType, out)
	return nil
}

// SweepExpired destroys every room whose deadline has passed, notifying
// its participants first. It returns how many rooms went.
func (m *ManagerService) SweepExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	expired := m.store.Expired(m.now())
	for _, room := range expired {
		m.expireLocked(room)
	}
	return len(expired)
}

// ExpireRoom force-expires one room. An absent code is a no-op.
func (m *ManagerService) ExpireRoom(code string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.store.Get(code)
	if !ok {
		return false
	}
	m.expireLocked(room)
	return true
}

// AllocateCode returns a code that is free right now. It does not reserve
// it; a later createRoom may or may not receive the same value.
func (m *ManagerService) AllocateCode() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.alloc.Peek()
}

// Stats summarises live state for the admin surface.
func (m *ManagerService) Stats() rooms.Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.Stats()
}

// RoomSnapshot returns a copy of a live room. Tests and admin only.
func (m *ManagerService) RoomSnapshot(code string) (models.Room, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.store.Get(code)
	if !ok {
		return models.Room{}, false
	}
	snap := *room
	snap.Participants = append([]models.Participant(nil), room.Participants...)
	snap.Messages = room.History()
	snap.Usernames = append([]string(nil), room.Usernames...)
	return snap, true
}

// --- locked helpers ---

func (m *ManagerService) occupiesLiveRoom(c Client) bool {
	code := c.GetRoomCode()
	if code == "" {
		return false
	}
	if room, ok := m.store.Get(code); ok && room.IndexOf(c.GetConnID()) >= 0 {
		return true
	}
	// Stale tag from an expired room.
	c.SetRoomCode("")
	return false
}

func (m *ManagerService) roomOf(c Client) (*models.Room, error) {
	code := c.GetRoomCode()
	if code == "" {
		return nil, rooms.ErrNotInRoom
	}
	room, ok := m.store.Get(code)
	if !ok {
		c.SetRoomCode("")
		return nil, rooms.ErrNotInRoom
	}
	return room, nil
}

func (m *ManagerService) leaveLocked(c Client, code string) {
	c.SetRoomCode("")

	room, live := m.store.Get(code)
	var (
		username string
		removed  bool
	)
	if live {
		var p models.Participant
		if p, removed = room.RemoveParticipant(c.GetConnID()); removed {
			username = p.Username
			m.metrics.ParticipantsLeft(1)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), ledgerTimeout)
	defer cancel()
	if err := m.ledger.RecordLeft(ctx, c.GetConnID(), username, code); err != nil {
		m.log.Error("ledger.record_failed", "code", code, "conn", c.GetConnID(), "err", err)
	}

	if !removed {
		return
	}
	m.log.Info("room.left", "code", code, "conn", c.GetConnID(), "count", len(room.Participants))

	if len(room.Participants) == 0 {
		m.destroyLocked(room, models.EndReasonEmpty)
		return
	}
	m.broadcast(room, models.EventUserLeft, models.UserPresencePayload{
		Username:  username,
		UserCount: len(room.Participants),
	})
}

func (m *ManagerService) expireLocked(room *models.Room) {
	for _, p := range room.Participants {
		if c, ok := m.clients[p.ConnID]; ok {
			m.send(c, models.EventRoomExpired, models.Empty{})
			c.SetRoomCode("")
		}
	}
	m.destroyLocked(room, models.EndReasonExpired)
}

func (m *ManagerService) destroyLocked(room *models.Room, reason string) {
	messages := len(room.Messages)
	remaining := len(room.Participants)
	if _, ok := m.store.Delete(room.Code); !ok {
		return
	}

	m.metrics.RoomDestroyed(reason)
	m.metrics.ParticipantsLeft(remaining)
	if m.archive != nil {
		m.archive.RoomClosed(storage.Closure{
			SessionID:        room.SessionID,
			EndedAt:          m.now(),
			Reason:           reason,
			MessageCount:     messages,
			PeakParticipants: room.PeakParticipants,
			Participants:     append([]string(nil), room.Usernames...),
		})
	}
	m.log.Info("room.destroyed", "code", room.Code, "reason", reason, "messages", messages)
}

// send delivers one event without blocking. A full buffer drops this
// delivery only; other targets are unaffected.
func (m *ManagerService) send(c Client, typ string, payload any) {
	if _, ok := m.clients[c.GetConnID()]; !ok {
		return
	}
	select {
	case c.GetSendChannel() <- models.OutboundEvent{Type: typ, Payload: payload}:
	default:
		m.log.Warn("delivery.dropped", "conn", c.GetConnID(), "type", typ)
	}
}

func (m *ManagerService) broadcast(room *models.Room, typ string, payload any) {
	m.broadcastOthers(room, "", typ, payload)
}

func (m *ManagerService) broadcastOthers(room *models.Room, except, typ string, payload any) {
	for _, p := range room.Participants {
		if p.ConnID == except {
			continue
		}
		if c, ok := m.clients[p.ConnID]; ok {
			m.send(c, typ, payload)
		}
	}
}

func (m *ManagerService) sanitizeUsername(name string) string {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) > config.MaxUsernameRunes {
		name = strings.TrimSpace(string([]rune(name)[:config.MaxUsernameRunes]))
	}
	if name == "" {
		name = fmt.Sprintf("User%d", m.intn(1000))
	}
	return name
}
