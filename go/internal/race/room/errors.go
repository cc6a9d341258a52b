package room

import "errors"

var (
	// ErrTooFewParticipants is returned when a race is requested with too few waiting participants
	ErrTooFewParticipants = errors.New("too few participants")

	// ErrRaceInProgress is returned when a race is requested while another one is running
	ErrRaceInProgress = errors.New("race in progress")

	// ErrUnknownParticipant is returned when an identity is not in the registry
	ErrUnknownParticipant = errors.New("unknown participant")

	// ErrRoomClosed is returned once the room loop has stopped
	ErrRoomClosed = errors.New("room closed")
)
