package gateway

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

// maxPlayerNameLength bounds the display name taken from the URL
const maxPlayerNameLength = 64

// WebSocketHandler handles WebSocket upgrade requests for the race room
type WebSocketHandler struct {
	connectionManager *ConnectionManager
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(cm *ConnectionManager) *WebSocketHandler {
	return &WebSocketHandler{
		connectionManager: cm,
	}
}

// HandlePlayerConnection handles GET /ws/{player_name}
func (h *WebSocketHandler) HandlePlayerConnection(w http.ResponseWriter, r *http.Request) {
	playerName := strings.TrimSpace(r.PathValue("player_name"))
	if playerName == "" {
		http.Error(w, "player_name is required", http.StatusBadRequest)
		return
	}
	if len(playerName) > maxPlayerNameLength {
		http.Error(w, "player_name is too long", http.StatusBadRequest)
		return
	}

	// On failure the upgrader has already answered the request.
	if err := h.connectionManager.UpgradeConnection(w, r, playerName); err != nil {
		log.Error().
			Err(err).
			Str("player_name", playerName).
			Msg("failed to establish WebSocket connection")
	}
}

// RegisterRoutes registers WebSocket routes with an HTTP mux
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws/{player_name}", h.HandlePlayerConnection)
}
