package chathub

import "duocall/backend/internal/models"

// Client is the interface for any type of connection.
// It abstracts the transport so the hub can manage connections uniformly.
type Client interface {
	// GetConnID returns the opaque identity of the connection. It is stable
	// for the connection's lifetime and is what the session ledger records.
	GetConnID() string
	// GetRoomCode returns the room the connection is tagged with, or "".
	GetRoomCode() string
	// SetRoomCode tags the connection with a room. Only the hub calls this,
	// under its lock.
	SetRoomCode(string)

	// GetSendChannel returns the channel the hub writes outbound events to.
	GetSendChannel() chan<- models.OutboundEvent

	// Run starts the client's read and write pumps.
	Run()
	// Close shuts down the send side. The hub calls it once, on unregister.
	Close()
}
