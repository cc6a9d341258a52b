package events

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedMessage is returned when an inbound client message cannot be understood
var ErrMalformedMessage = errors.New("malformed message")

// MessageType represents the type of an inbound client message
type MessageType string

const (
	MessageTypeStartGame      MessageType = "start_game"
	MessageTypeProgressUpdate MessageType = "progress_update"
)

// ClientMessage is the decoded form of an inbound message
type ClientMessage struct {
	Type     MessageType `json:"type"`
	Progress *float64    `json:"progress,omitempty"`
}

// ParseClientMessage decodes and validates an inbound text frame
func ParseClientMessage(data []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return ClientMessage{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	switch msg.Type {
	case MessageTypeStartGame:
		return msg, nil
	case MessageTypeProgressUpdate:
		if msg.Progress == nil {
			return ClientMessage{}, fmt.Errorf("%w: progress_update requires progress", ErrMalformedMessage)
		}
		return msg, nil
	case "":
		return ClientMessage{}, fmt.Errorf("%w: missing type", ErrMalformedMessage)
	default:
		return ClientMessage{}, fmt.Errorf("%w: unknown type %q", ErrMalformedMessage, msg.Type)
	}
}
