package gateway

import (
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/AmberMaze/thirty-challenge-code/go/internal/models"
)

// Handler serves the websocket upgrade endpoints of the relay.
type Handler struct {
	connectionManager *ConnectionManager
}

// NewHandler creates a relay HTTP handler.
func NewHandler(cm *ConnectionManager) *Handler {
	return &Handler{connectionManager: cm}
}

// HandleSessionConnection upgrades one of the four session clients.
func (h *Handler) HandleSessionConnection(w http.ResponseWriter, r *http.Request) {
	gameID := r.URL.Query().Get("game_id")
	if gameID == "" {
		http.Error(w, "game_id is required", http.StatusBadRequest)
		return
	}

	clientID := r.URL.Query().Get("client_id")
	if clientID == "" {
		http.Error(w, "client_id is required", http.StatusBadRequest)
		return
	}

	kind := models.ParticipantKind(r.URL.Query().Get("kind"))
	switch kind {
	case models.KindHostDesktop, models.KindHostMobile, models.KindPlayerA, models.KindPlayerB:
	default:
		http.Error(w, "kind must be one of host-desktop, host-mobile, playerA, playerB", http.StatusBadRequest)
		return
	}

	if err := h.connectionManager.UpgradeConnection(w, r, gameID, clientID, kind); err != nil {
		log.Error().
			Err(err).
			Str("game_id", gameID).
			Str("client_id", clientID).
			Msg("failed to upgrade session connection")
		http.Error(w, "failed to upgrade connection", http.StatusInternalServerError)
		return
	}
}

// HandleStats reports active connection counts.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	connections, sessions := h.connectionManager.Stats()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"total_connections":%d,"active_sessions":%d}`, connections, sessions)
}

// RegisterRoutes registers the relay routes on a mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/session", h.HandleSessionConnection)
	mux.HandleFunc("/ws/stats", h.HandleStats)
}
