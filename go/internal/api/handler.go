package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/AmberMaze/thirty-challenge-code/go/internal/game"
	"github.com/AmberMaze/thirty-challenge-code/go/internal/models"
	"github.com/AmberMaze/thirty-challenge-code/go/internal/realtime"
	"github.com/AmberMaze/thirty-challenge-code/go/internal/store"
	"github.com/AmberMaze/thirty-challenge-code/go/internal/video"
)

// GameStore is what the API needs from the persistence layer.
type GameStore interface {
	CreateGame(ctx context.Context, state models.GameState) error
	LoadGameState(ctx context.Context, gameID string) (models.GameState, error)
	UpdateGame(ctx context.Context, gameID string, patch models.GameStatePatch) error
}

// VideoProvider mints rooms and tokens with the conferencing provider.
type VideoProvider interface {
	CreateRoom(ctx context.Context, gameID string) video.RoomResult
	CreateMeetingToken(ctx context.Context, gameID, participantName string, isHost bool) video.TokenResult
}

// Publisher announces API-originated changes on the session bus so
// already-connected clients converge without polling.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// Handler serves the session lifecycle endpoints: creating and loading
// games and attaching their video room. The live sync path stays on the
// websocket relay; this surface only covers what happens before a
// client has a session to join.
type Handler struct {
	games     GameStore
	video     VideoProvider
	publisher Publisher
}

// NewHandler creates the lifecycle handler.
func NewHandler(games GameStore, video VideoProvider, publisher Publisher) *Handler {
	return &Handler{
		games:     games,
		video:     video,
		publisher: publisher,
	}
}

// RegisterRoutes registers the lifecycle routes on a mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/games", h.HandleCreateGame)
	mux.HandleFunc("GET /api/games/{id}", h.HandleGetGame)
	mux.HandleFunc("POST /api/games/{id}/video-room", h.HandleCreateVideoRoom)
	mux.HandleFunc("POST /api/games/{id}/meeting-tokens", h.HandleCreateMeetingToken)
}

type createGameRequest struct {
	GameID   string `json:"game_id"`
	HostCode string `json:"host_code"`
	HostName string `json:"host_name"`
}

// HandleCreateGame persists a fresh session in its canonical initial
// state and returns it.
func (h *Handler) HandleCreateGame(w http.ResponseWriter, r *http.Request) {
	var req createGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.GameID == "" {
		req.GameID = uuid.New().String()
	}
	if req.HostCode == "" {
		req.HostCode = strings.ToUpper(uuid.New().String()[:6])
	}

	state := game.NewInitialState(req.GameID, req.HostCode)
	state.HostName = req.HostName

	if err := h.games.CreateGame(r.Context(), state); err != nil {
		log.Error().Err(err).Str("game_id", req.GameID).Msg("failed to create game")
		http.Error(w, "failed to create game", http.StatusInternalServerError)
		return
	}

	log.Info().
		Str("game_id", state.GameID).
		Str("host_code", state.HostCode).
		Msg("game created")
	writeJSON(w, http.StatusCreated, state)
}

// HandleGetGame loads a stored session.
func (h *Handler) HandleGetGame(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("id")

	state, err := h.games.LoadGameState(r.Context(), gameID)
	if errors.Is(err, store.ErrGameNotFound) {
		http.Error(w, "game not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Error().Err(err).Str("game_id", gameID).Msg("failed to load game")
		http.Error(w, "failed to load game", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, state)
}

// HandleCreateVideoRoom creates the session's video room, persists its
// URL on the game record, and announces it on the session bus.
func (h *Handler) HandleCreateVideoRoom(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("id")

	if _, err := h.games.LoadGameState(r.Context(), gameID); err != nil {
		if errors.Is(err, store.ErrGameNotFound) {
			http.Error(w, "game not found", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Str("game_id", gameID).Msg("failed to load game")
		http.Error(w, "failed to load game", http.StatusInternalServerError)
		return
	}

	result := h.video.CreateRoom(r.Context(), gameID)
	if !result.OK {
		writeJSON(w, http.StatusBadGateway, result)
		return
	}

	url, created := result.URL, result.Created
	patch := models.GameStatePatch{
		VideoRoomURL:     &url,
		VideoRoomCreated: &created,
	}
	if err := h.games.UpdateGame(r.Context(), gameID, patch); err != nil {
		log.Error().Err(err).Str("game_id", gameID).Msg("failed to persist video room")
		http.Error(w, "failed to persist video room", http.StatusInternalServerError)
		return
	}

	h.announceVideoRoom(r.Context(), gameID, url, created)
	writeJSON(w, http.StatusOK, result)
}

type meetingTokenRequest struct {
	ParticipantName string `json:"participant_name"`
	IsHost          bool   `json:"is_host"`
}

// HandleCreateMeetingToken mints a room access token for one
// participant.
func (h *Handler) HandleCreateMeetingToken(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("id")

	var req meetingTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ParticipantName == "" {
		http.Error(w, "participant_name is required", http.StatusBadRequest)
		return
	}

	result := h.video.CreateMeetingToken(r.Context(), gameID, req.ParticipantName, req.IsHost)
	if !result.OK {
		writeJSON(w, http.StatusBadGateway, result)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// announceVideoRoom is fire-and-forget: clients already connected pick
// the room up live, everyone else sees it on their next load.
func (h *Handler) announceVideoRoom(ctx context.Context, gameID, url string, created bool) {
	if h.publisher == nil {
		return
	}

	data, err := json.Marshal(realtime.VideoMessage{
		Origin:  "api",
		URL:     url,
		Created: created,
	})
	if err != nil {
		log.Warn().Err(err).Str("game_id", gameID).Msg("video announcement marshal failed")
		return
	}
	if err := h.publisher.Publish(ctx, realtime.VideoSubject(gameID), data); err != nil {
		log.Warn().Err(err).Str("game_id", gameID).Msg("video announcement publish failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}
