package models

import (
	"encoding/json"
	"time"
)

// Inbound event types.
const (
	EventCreateRoom      = "createRoom"
	EventJoinRoom        = "joinRoom"
	EventSendMessage     = "sendMessage"
	EventTyping          = "typing"
	EventLeaveRoom       = "leaveRoom"
	EventVoiceChatOffer  = "voiceChatOffer"
	EventVoiceChatAnswer = "voiceChatAnswer"
	EventIceCandidate    = "iceCandidate"
	EventStartVoiceChat  = "startVoiceChat"
	EventEndVoiceChat    = "endVoiceChat"
)

// Outbound event types. Signal passthrough reuses the inbound names.
const (
	EventJoinedRoom       = "joinedRoom"
	EventError            = "error"
	EventRoomFull         = "roomFull"
	EventUserJoined       = "userJoined"
	EventNewMessage       = "newMessage"
	EventUserTyping       = "userTyping"
	EventUserLeft         = "userLeft"
	EventLeftRoom         = "leftRoom"
	EventRoomExpired      = "roomExpired"
	EventVoiceChatStarted = "voiceChatStarted"
	EventVoiceChatEnded   = "voiceChatEnded"
)

// InboundEvent is a decoded client frame. Payload is decoded lazily by type.
type InboundEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// OutboundEvent is what the hub puts on a client's send channel.
type OutboundEvent struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type CreateRoomRequest struct {
	Username string `json:"username"`
}

type JoinRoomRequest struct {
	Code     string `json:"code"`
	Username string `json:"username"`
}

type SendMessageRequest struct {
	Message string `json:"message"`
}

type TypingRequest struct {
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}

// SignalRequest carries an opaque voice-setup payload. It is never inspected.
type SignalRequest struct {
	Payload json.RawMessage `json:"payload"`
}

type JoinedRoomPayload struct {
	Code      string    `json:"code"`
	Username  string    `json:"username"`
	UserCount int       `json:"userCount"`
	Messages  []Message `json:"messages"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type UserPresencePayload struct {
	Username  string `json:"username"`
	UserCount int    `json:"userCount"`
}

type NewMessagePayload struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type UserTypingPayload struct {
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}

type SignalPayload struct {
	Payload json.RawMessage `json:"payload"`
}

// Empty is the payload of events that carry no data.
type Empty struct{}
