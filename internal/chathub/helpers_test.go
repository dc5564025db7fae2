package chathub_test

import (
	"encoding/json"
	"testing"
	"time"

	"duocall/backend/internal/chathub"
	"duocall/backend/internal/ledger"
	"duocall/backend/internal/models"

	"github.com/stretchr/testify/require"
)

// testClock is a manually advanced time source.
type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time          { return c.now }
func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// codes returns an intn that yields the given values, then counts upward
// from the last one so later allocations never collide by accident.
func codes(values ...int) func(int) int {
	i := 0
	next := values[len(values)-1] + 1
	return func(n int) int {
		if i < len(values) {
			v := values[i]
			i++
			return v % n
		}
		v := next
		next++
		return v % n
	}
}

type testHub struct {
	*chathub.ManagerService
	clock  *testClock
	ledger *ledger.MemoryLedger
}

func newTestHub(t *testing.T, intn func(int) int) *testHub {
	t.Helper()
	clock := &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	l := ledger.NewMemoryLedger(0)
	hub := chathub.NewManagerService(chathub.Options{
		RoomTTL: 10 * time.Minute,
		Ledger:  l,
		Now:     clock.Now,
		Intn:    intn,
	})
	return &testHub{ManagerService: hub, clock: clock, ledger: l}
}

func (h *testHub) connect(id string) *MockClient {
	c := newMockClient(id)
	h.Register(c)
	return c
}

func event(t *testing.T, typ string, payload any) models.InboundEvent {
	t.Helper()
	ev := models.InboundEvent{Type: typ}
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		ev.Payload = raw
	}
	return ev
}
