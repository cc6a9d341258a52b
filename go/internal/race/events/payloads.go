package events

import (
	"encoding/json"
	"fmt"
)

// Outbound event payloads sent to websocket clients. Every payload is a flat JSON
// object carrying its own "type" field.

// EventType represents the type of a room event
type EventType string

const (
	EventTypePlayersList        EventType = "players_list"
	EventTypeNewPlayer          EventType = "new_player"
	EventTypePlayerDisconnected EventType = "player_disconnected"
	EventTypeGameStart          EventType = "game_start"
	EventTypeProgressUpdate     EventType = "progress_update"
	EventTypePlayerFinished     EventType = "player_finished"
	EventTypeGameOver           EventType = "game_over"
	EventTypeError              EventType = "error"
)

// Event is implemented by every outbound payload
type Event interface {
	EventType() EventType
}

// PlayerSummary is one entry of the players_list snapshot
type PlayerSummary struct {
	Name     string  `json:"name"`
	Progress float64 `json:"progress"`
}

// PlayersListPayload is sent once to a joining connection
type PlayersListPayload struct {
	Type        EventType       `json:"type"`
	Players     []PlayerSummary `json:"players"`
	GameStarted bool            `json:"game_started"`
}

// NewPlayerPayload announces a join
type NewPlayerPayload struct {
	Type       EventType `json:"type"`
	PlayerName string    `json:"player_name"`
}

// PlayerDisconnectedPayload announces a leave
type PlayerDisconnectedPayload struct {
	Type       EventType `json:"type"`
	PlayerName string    `json:"player_name"`
}

// GameStartPayload is sent to the new active set when a race starts
type GameStartPayload struct {
	Type      EventType `json:"type"`
	RaceID    string    `json:"race_id"`
	Paragraph string    `json:"paragraph"`
}

// ProgressUpdatePayload relays a participant's reported progress
type ProgressUpdatePayload struct {
	Type       EventType `json:"type"`
	PlayerName string    `json:"player_name"`
	Progress   float64   `json:"progress"`
}

// PlayerFinishedPayload announces a finish and its rank
type PlayerFinishedPayload struct {
	Type       EventType `json:"type"`
	PlayerName string    `json:"player_name"`
	Rank       int       `json:"rank"`
	ElapsedMs  int64     `json:"elapsed_ms"`
}

// GameOverPayload carries the final standings, ascending by rank
type GameOverPayload struct {
	Type     EventType `json:"type"`
	Rankings []Ranking `json:"rankings"`
}

// ErrorPayload is sent only to the connection whose request failed
type ErrorPayload struct {
	Type    EventType `json:"type"`
	Message string    `json:"message"`
}

func (PlayersListPayload) EventType() EventType        { return EventTypePlayersList }
func (NewPlayerPayload) EventType() EventType          { return EventTypeNewPlayer }
func (PlayerDisconnectedPayload) EventType() EventType { return EventTypePlayerDisconnected }
func (GameStartPayload) EventType() EventType          { return EventTypeGameStart }
func (ProgressUpdatePayload) EventType() EventType     { return EventTypeProgressUpdate }
func (PlayerFinishedPayload) EventType() EventType     { return EventTypePlayerFinished }
func (GameOverPayload) EventType() EventType           { return EventTypeGameOver }
func (ErrorPayload) EventType() EventType              { return EventTypeError }

// Ranking is a (name, rank) pair. It is encoded as a two-element JSON array.
type Ranking struct {
	Name string
	Rank int
}

// MarshalJSON encodes the ranking as ["name", rank]
func (r Ranking) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{r.Name, r.Rank})
}

// UnmarshalJSON decodes a ["name", rank] pair
func (r *Ranking) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("decode ranking: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("decode ranking: expected 2 elements, got %d", len(pair))
	}
	if err := json.Unmarshal(pair[0], &r.Name); err != nil {
		return fmt.Errorf("decode ranking name: %w", err)
	}
	if err := json.Unmarshal(pair[1], &r.Rank); err != nil {
		return fmt.Errorf("decode ranking rank: %w", err)
	}
	return nil
}

// NewPlayersList builds a players_list snapshot
func NewPlayersList(players []PlayerSummary, gameStarted bool) PlayersListPayload {
	if players == nil {
		players = []PlayerSummary{}
	}
	return PlayersListPayload{Type: EventTypePlayersList, Players: players, GameStarted: gameStarted}
}

func NewNewPlayer(name string) NewPlayerPayload {
	return NewPlayerPayload{Type: EventTypeNewPlayer, PlayerName: name}
}

func NewPlayerDisconnected(name string) PlayerDisconnectedPayload {
	return PlayerDisconnectedPayload{Type: EventTypePlayerDisconnected, PlayerName: name}
}

func NewGameStart(raceID, paragraph string) GameStartPayload {
	return GameStartPayload{Type: EventTypeGameStart, RaceID: raceID, Paragraph: paragraph}
}

func NewProgressUpdate(name string, progress float64) ProgressUpdatePayload {
	return ProgressUpdatePayload{Type: EventTypeProgressUpdate, PlayerName: name, Progress: progress}
}

func NewPlayerFinished(name string, rank int, elapsedMs int64) PlayerFinishedPayload {
	return PlayerFinishedPayload{Type: EventTypePlayerFinished, PlayerName: name, Rank: rank, ElapsedMs: elapsedMs}
}

func NewGameOver(rankings []Ranking) GameOverPayload {
	if rankings == nil {
		rankings = []Ranking{}
	}
	return GameOverPayload{Type: EventTypeGameOver, Rankings: rankings}
}

func NewError(message string) ErrorPayload {
	return ErrorPayload{Type: EventTypeError, Message: message}
}
