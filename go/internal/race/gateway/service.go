package gateway

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/mcdev12/typerace/go/internal/race/publisher"
	"github.com/mcdev12/typerace/go/internal/race/room"
	"github.com/rs/zerolog/log"
)

// Service is the race gateway: the room loop, its WebSocket connections and
// the small HTTP surface around them
type Service struct {
	room              *room.Room
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	publisherStats    func() publisher.Stats
}

// Config holds configuration for the race gateway service
type Config struct {
	ConnectionConfig ConnectionConfig
	RoomConfig       room.Config
}

// DefaultConfig returns default configuration for the race gateway
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		RoomConfig:       room.DefaultConfig(),
	}
}

// NewService creates a new race gateway service
func NewService(config Config) (*Service, error) {
	rm, err := room.New(config.RoomConfig)
	if err != nil {
		return nil, err
	}

	connectionManager := NewConnectionManager(config.ConnectionConfig, rm)

	svc := &Service{
		room:              rm,
		connectionManager: connectionManager,
		wsHandler:         NewWebSocketHandler(connectionManager),
	}
	if mp, ok := config.RoomConfig.Publisher.(*publisher.MetricPublisher); ok {
		svc.publisherStats = mp.Stats
	}
	return svc, nil
}

// Start runs the room and connection manager until ctx is cancelled
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting race gateway service")

	go s.connectionManager.Start(ctx)
	s.room.Run(ctx)

	log.Info().Msg("race gateway service stopped")
	return nil
}

// RegisterRoutes registers the WebSocket and HTTP routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /info", s.handleInfo)
	log.Info().Msg("race gateway routes registered")
}

// GetStats returns statistics about the gateway service
func (s *Service) GetStats(ctx context.Context) (map[string]interface{}, error) {
	snapshot, err := s.room.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	stats := s.connectionManager.GetConnectionStats()
	stats["service"] = "race_gateway"
	stats["phase"] = snapshot.Phase
	stats["active_participants"] = snapshot.ActiveCount
	stats["waiting_participants"] = snapshot.WaitingCount
	if s.publisherStats != nil {
		stats["publisher"] = s.publisherStats()
	}
	return stats, nil
}

func (s *Service) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Typing Race Multiplayer Game API"})
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		log.Error().Err(err).Msg("failed to write health check response")
	}
}

func (s *Service) handleInfo(w http.ResponseWriter, r *http.Request) {
	stats, err := s.GetStats(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to get gateway stats")
		http.Error(w, "room unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
