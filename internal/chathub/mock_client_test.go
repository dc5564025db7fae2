package chathub_test

import (
	"testing"

	"duocall/backend/internal/models"
)

type MockClient struct {
	connID      string
	roomCode    string
	closed      bool
	RecvChannel chan models.OutboundEvent
}

func newMockClient(connID string) *MockClient {
	return &MockClient{
		connID:      connID,
		RecvChannel: make(chan models.OutboundEvent, 32),
	}
}

func (c *MockClient) GetConnID() string {
	return c.connID
}

func (c *MockClient) GetRoomCode() string {
	return c.roomCode
}

func (c *MockClient) SetRoomCode(code string) {
	c.roomCode = code
}

func (c *MockClient) GetSendChannel() chan<- models.OutboundEvent {
	return c.RecvChannel
}

func (c *MockClient) Run() {
	// Not needed for testing
}

func (c *MockClient) Close() {
	c.closed = true
}

// Next pops the next queued event or fails the test.
func (c *MockClient) Next(t *testing.T) models.OutboundEvent {
	t.Helper()
	select {
	case ev := <-c.RecvChannel:
		return ev
	default:
		t.Fatalf("client %s has no pending event", c.connID)
		return models.OutboundEvent{}
	}
}

// Drain returns every queued event.
func (c *MockClient) Drain() []models.OutboundEvent {
	var out []models.OutboundEvent
	for {
		select {
		case ev := <-c.RecvChannel:
			out = append(out, ev)
		default:
			return out
		}
	}
}
