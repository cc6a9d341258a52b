package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mcdev12/typerace/go/internal/race/events"
	"github.com/mcdev12/typerace/go/internal/race/room"
	"github.com/rs/zerolog/log"
)

var (
	// ErrConnectionClosed is returned when sending to a connection that has gone away
	ErrConnectionClosed = errors.New("connection closed")

	// ErrSendBufferFull is returned when a connection is not draining its send buffer
	ErrSendBufferFull = errors.New("send buffer full")
)

// Room is what the gateway needs from the race room
type Room interface {
	Join(ctx context.Context, name string, sender room.Sender) (uuid.UUID, error)
	Leave(ctx context.Context, id uuid.UUID) error
	StartRace(ctx context.Context, requester uuid.UUID) error
	ReportProgress(ctx context.Context, id uuid.UUID, progress float64) error
}

// ConnectionManager manages WebSocket connections to the race room
type ConnectionManager struct {
	connections map[*Connection]bool
	mu          sync.RWMutex

	// Upgrader for WebSocket connections
	upgrader websocket.Upgrader

	config ConnectionConfig
	room   Room
}

// Connection represents a WebSocket connection to a participant
type Connection struct {
	ID            string
	ParticipantID uuid.UUID
	PlayerName    string
	Conn          *websocket.Conn
	Manager       *ConnectionManager

	ConnectedAt time.Time

	send   chan []byte
	mu     sync.Mutex
	closed bool
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBufferSize  int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024, // 1KB max message size
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBufferSize:  256,
		CheckOrigin: func(r *http.Request) bool {
			// Every origin is accepted unless allowed_origins narrows it
			return true
		},
	}
}

// NewConnectionManager creates a new WebSocket connection manager
func NewConnectionManager(config ConnectionConfig, rm Room) *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config: config,
		room:   rm,
	}
}

// Start blocks until ctx is cancelled, then closes every connection
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")
	<-ctx.Done()

	log.Info().Msg("connection manager shutting down")
	cm.mu.RLock()
	conns := make([]*Connection, 0, len(cm.connections))
	for conn := range cm.connections {
		conns = append(conns, conn)
	}
	cm.mu.RUnlock()

	for _, conn := range conns {
		conn.closeSend()
	}
}

// UpgradeConnection upgrades an HTTP connection to WebSocket and joins the room
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, playerName string) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		PlayerName:  playerName,
		Conn:        conn,
		Manager:     cm,
		ConnectedAt: time.Now(),
		send:        make(chan []byte, cm.config.SendBufferSize),
	}

	cm.registerConnection(connection)
	go connection.writePump()

	participantID, err := cm.room.Join(r.Context(), playerName, connection)
	if err != nil {
		cm.unregisterConnection(connection)
		return fmt.Errorf("failed to join room: %w", err)
	}
	connection.ParticipantID = participantID

	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("participant_id", participantID.String()).
		Str("player_name", playerName).
		Msg("WebSocket connection established")

	return nil
}

func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.connections[conn] = true

	log.Debug().
		Str("connection_id", conn.ID).
		Int("total_connections", len(cm.connections)).
		Msg("connection registered")
}

// unregisterConnection removes a connection and stops its write pump
func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	_, exists := cm.connections[conn]
	delete(cm.connections, conn)
	cm.mu.Unlock()

	conn.closeSend()

	if exists {
		log.Info().
			Str("connection_id", conn.ID).
			Str("participant_id", conn.ParticipantID.String()).
			Msg("connection unregistered")
	}
}

// GetConnectionStats returns statistics about active connections
func (cm *ConnectionManager) GetConnectionStats() map[string]interface{} {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	return map[string]interface{}{
		"total_connections": len(cm.connections),
	}
}

// Send queues an event for this connection. It never blocks; a connection that
// cannot keep up is closed. Send runs on the room goroutine before
// ParticipantID is set and must not read it.
func (c *Connection) Send(event events.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", event.EventType(), err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConnectionClosed
	}

	select {
	case c.send <- data:
		return nil
	default:
		log.Warn().
			Str("connection_id", c.ID).
			Str("player_name", c.PlayerName).
			Msg("connection send buffer full, closing connection")
		c.Conn.Close()
		return ErrSendBufferFull
	}
}

func (c *Connection) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// writePump handles sending messages to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				// Channel was closed
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Debug().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump reads client messages until the connection fails, then leaves the room
func (c *Connection) readPump() {
	ctx := context.Background()
	defer func() {
		if err := c.Manager.room.Leave(ctx, c.ParticipantID); err != nil {
			log.Debug().Err(err).Str("participant_id", c.ParticipantID.String()).Msg("leave after disconnect failed")
		}
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Warn().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			return
		}

		c.handleClientMessage(ctx, message)
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}

// handleClientMessage routes an inbound message to the room. Parse failures are
// answered on this connection only.
func (c *Connection) handleClientMessage(ctx context.Context, message []byte) {
	msg, err := events.ParseClientMessage(message)
	if err != nil {
		log.Warn().
			Err(err).
			Str("connection_id", c.ID).
			Str("participant_id", c.ParticipantID.String()).
			Msg("malformed client message")
		if sendErr := c.Send(events.NewError("Invalid message")); sendErr != nil {
			log.Debug().Err(sendErr).Str("connection_id", c.ID).Msg("failed to report malformed message")
		}
		return
	}

	switch msg.Type {
	case events.MessageTypeStartGame:
		// Rejections are reported to this connection by the room.
		if err := c.Manager.room.StartRace(ctx, c.ParticipantID); err != nil {
			log.Debug().
				Err(err).
				Str("participant_id", c.ParticipantID.String()).
				Msg("start game request rejected")
		}

	case events.MessageTypeProgressUpdate:
		if err := c.Manager.room.ReportProgress(ctx, c.ParticipantID, *msg.Progress); err != nil {
			log.Error().
				Err(err).
				Str("participant_id", c.ParticipantID.String()).
				Msg("failed to report progress")
		}
	}
}
