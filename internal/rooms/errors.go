package rooms

import "errors"

var (
	ErrInvalidCode         = errors.New("room code must be exactly 4 digits")
	ErrRoomNotFound        = errors.New("room not found")
	ErrRoomFull            = errors.New("room is full")
	ErrAlreadyInRoom       = errors.New("already in a room")
	ErrNotInRoom           = errors.New("not in a room")
	ErrParticipantNotFound = errors.New("participant not found in room")
	ErrRejoinForbidden     = errors.New("you have left this room and cannot rejoin")
	ErrCodeSpaceExhausted  = errors.New("no room codes available")
	ErrCodeInUse           = errors.New("room code already backs a live room")
	ErrMessageTooLong      = errors.New("message is too long")
	ErrUnknownEvent        = errors.New("unknown event")
	ErrBadPayload          = errors.New("malformed payload")
)
