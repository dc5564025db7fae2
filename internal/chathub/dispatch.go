package chathub

import (
	"encoding/json"
	"errors"
	"fmt"

	"duocall/backend/internal/models"
	"duocall/backend/internal/rooms"
)

// clientErrors are safe to show to the originating connection verbatim.
var clientErrors = []error{
	rooms.ErrInvalidCode,
	rooms.ErrRoomNotFound,
	rooms.ErrAlreadyInRoom,
	rooms.ErrNotInRoom,
	rooms.ErrParticipantNotFound,
	rooms.ErrRejoinForbidden,
	rooms.ErrCodeSpaceExhausted,
	rooms.ErrMessageTooLong,
	rooms.ErrUnknownEvent,
	rooms.ErrBadPayload,
}

const genericErrorMessage = "Something went wrong, please try again"

// Handle routes one inbound frame and reports any failure back to c only.
func (m *ManagerService) Handle(c Client, ev models.InboundEvent) {
	if err := m.handle(c, ev); err != nil {
		m.reportError(c, ev.Type, err)
	}
}

func (m *ManagerService) handle(c Client, ev models.InboundEvent) error {
	switch ev.Type {
	case models.EventCreateRoom:
		var req models.CreateRoomRequest
		if err := decode(ev.Payload, &req); err != nil {
			return err
		}
		return m.CreateRoom(c, req.Username)

	case models.EventJoinRoom:
		var req models.JoinRoomRequest
		if err := decode(ev.Payload, &req); err != nil {
			return err
		}
		return m.JoinRoom(c, req.Code, req.Username)

	case models.EventSendMessage:
		var req models.SendMessageRequest
		if err := decode(ev.Payload, &req); err != nil {
			return err
		}
		return m.SendMessage(c, req.Message)

	case models.EventTyping:
		var req models.TypingRequest
		if err := decode(ev.Payload, &req); err != nil {
			return err
		}
		return m.Typing(c, req.Username, req.IsTyping)

	case models.EventLeaveRoom:
		return m.LeaveRoom(c)

	case models.EventVoiceChatOffer, models.EventVoiceChatAnswer, models.EventIceCandidate:
		var req models.SignalRequest
		if err := decode(ev.Payload, &req); err != nil {
			return err
		}
		return m.RelaySignal(c, ev.Type, req.Payload)

	case models.EventStartVoiceChat, models.EventEndVoiceChat:
		return m.RelaySignal(c, ev.Type, nil)

	default:
		return fmt.Errorf("%w: %q", rooms.ErrUnknownEvent, ev.Type)
	}
}

func (m *ManagerService) reportError(c Client, eventType string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if errors.Is(err, rooms.ErrRoomFull) {
		m.send(c, models.EventRoomFull, models.Empty{})
		return
	}
	for _, known := range clientErrors {
		if errors.Is(err, known) {
			m.send(c, models.EventError, models.ErrorPayload{Message: known.Error()})
			return
		}
	}
	m.log.Error("event.failed", "type", eventType, "conn", c.GetConnID(), "err", err)
	m.send(c, models.EventError, models.ErrorPayload{Message: genericErrorMessage})
}

// decode unmarshals an optional payload. A missing payload leaves dst zero.
func decode(raw json.RawMessage, dst any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %v", rooms.ErrBadPayload, err)
	}
	return nil
}

func joinRejectReason(err error) string {
	switch {
	case errors.Is(err, rooms.ErrInvalidCode):
		return "invalid_code"
	case errors.Is(err, rooms.ErrRoomNotFound):
		return "not_found"
	case errors.Is(err, rooms.ErrRoomFull):
		return "full"
	case errors.Is(err, rooms.ErrAlreadyInRoom):
		return "already_in_room"
	case errors.Is(err, rooms.ErrRejoinForbidden):
		return "rejoin_forbidden"
	default:
		return "error"
	}
}
