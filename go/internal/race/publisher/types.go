package publisher

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/typerace/go/internal/race/events"
)

// RaceEventType represents a room lifecycle transition
type RaceEventType string

const (
	RaceEventTypeStarted  RaceEventType = "race_started"
	RaceEventTypeFinished RaceEventType = "race_finished"
)

// RaceEvent is a lifecycle event handed to publishers
type RaceEvent struct {
	ID        uuid.UUID       `json:"eventId"`
	Type      RaceEventType   `json:"eventType"`
	RaceID    uuid.UUID       `json:"raceId"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// RaceStartedPayload is the payload for a race_started event
type RaceStartedPayload struct {
	RaceID       string    `json:"race_id"`
	Paragraph    string    `json:"paragraph"`
	Participants []string  `json:"participants"`
	StartedAt    time.Time `json:"started_at"`
}

// RaceFinishedPayload is the payload for a race_finished event
type RaceFinishedPayload struct {
	RaceID     string           `json:"race_id"`
	Rankings   []events.Ranking `json:"rankings"`
	FinishedAt time.Time        `json:"finished_at"`
	Duration   string           `json:"duration"`
}

// NewRaceEvent wraps payload in an event envelope
func NewRaceEvent(eventType RaceEventType, raceID uuid.UUID, at time.Time, payload interface{}) (RaceEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return RaceEvent{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return RaceEvent{
		ID:        uuid.New(),
		Type:      eventType,
		RaceID:    raceID,
		Timestamp: at,
		Payload:   data,
	}, nil
}
