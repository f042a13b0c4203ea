package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/AmberMaze/thirty-challenge-code/go/internal/game"
	"github.com/AmberMaze/thirty-challenge-code/go/internal/models"
)

// ErrGameNotFound reports a load for a session that was never created.
var ErrGameNotFound = errors.New("game not found")

// gameRow mirrors the games table with nullable columns as pointers.
type gameRow struct {
	ID                   string
	HostCode             string
	HostName             *string
	Phase                *string
	CurrentSegment       *string
	CurrentQuestionIndex *int
	Timer                *int
	IsTimerRunning       *bool
	ScoreHistory         []byte
	SegmentSettings      []byte
	VideoRoomURL         *string
	VideoRoomCreated     *bool
}

type playerRow struct {
	Slot           string
	PlayerID       *string
	Name           *string
	Score          *int
	Strikes        *int
	SpecialButtons []byte
	Flag           *string
	Club           *string
	IsConnected    *bool
}

// LoadGameState maps the stored record into a GameState. Any field
// absent from the record falls back to its canonical initial default,
// and the players map is always rebuilt onto the fixed three slots no
// matter what the record contains.
func (r *Repository) LoadGameState(ctx context.Context, gameID string) (models.GameState, error) {
	var row gameRow
	err := r.db.QueryRow(ctx, `
		SELECT id, host_code, host_name, phase, current_segment,
			current_question_index, timer, is_timer_running,
			score_history, segment_settings, video_room_url, video_room_created
		FROM games WHERE id = $1`, gameID,
	).Scan(
		&row.ID, &row.HostCode, &row.HostName, &row.Phase, &row.CurrentSegment,
		&row.CurrentQuestionIndex, &row.Timer, &row.IsTimerRunning,
		&row.ScoreHistory, &row.SegmentSettings, &row.VideoRoomURL, &row.VideoRoomCreated,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.GameState{}, ErrGameNotFound
	}
	if err != nil {
		return models.GameState{}, fmt.Errorf("load game %s: %w", gameID, err)
	}

	state := game.NewInitialState(row.ID, row.HostCode)
	applyGameRow(&state, row)

	rows, err := r.db.Query(ctx, `
		SELECT slot, player_id, name, score, strikes,
			special_buttons, flag, club, is_connected
		FROM game_players WHERE game_id = $1`, gameID)
	if err != nil {
		return models.GameState{}, fmt.Errorf("load players %s: %w", gameID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var pr playerRow
		if err := rows.Scan(
			&pr.Slot, &pr.PlayerID, &pr.Name, &pr.Score, &pr.Strikes,
			&pr.SpecialButtons, &pr.Flag, &pr.Club, &pr.IsConnected,
		); err != nil {
			return models.GameState{}, fmt.Errorf("scan player: %w", err)
		}
		slot := models.PlayerSlot(pr.Slot)
		if !models.ValidSlot(slot) {
			// Rows outside the fixed slot set never reach the state.
			continue
		}
		state.Players[slot] = applyPlayerRow(state.Players[slot], pr)
	}
	if err := rows.Err(); err != nil {
		return models.GameState{}, fmt.Errorf("iterate players: %w", err)
	}

	return state, nil
}

func applyGameRow(state *models.GameState, row gameRow) {
	if row.HostName != nil {
		state.HostName = *row.HostName
	}
	if row.Phase != nil && *row.Phase != "" {
		state.Phase = models.Phase(*row.Phase)
	}
	if row.CurrentSegment != nil && *row.CurrentSegment != "" {
		seg := models.SegmentCode(*row.CurrentSegment)
		state.CurrentSegment = &seg
	}
	if row.CurrentQuestionIndex != nil && *row.CurrentQuestionIndex >= 0 {
		state.CurrentQuestionIndex = *row.CurrentQuestionIndex
	}
	if row.Timer != nil && *row.Timer > 0 {
		state.Timer = *row.Timer
	}
	if row.IsTimerRunning != nil {
		state.IsTimerRunning = *row.IsTimerRunning
	}
	if len(row.ScoreHistory) > 0 {
		var history []models.ScoreEvent
		if err := json.Unmarshal(row.ScoreHistory, &history); err == nil && history != nil {
			state.ScoreHistory = history
		}
	}
	if len(row.SegmentSettings) > 0 {
		var settings map[models.SegmentCode]int
		if err := json.Unmarshal(row.SegmentSettings, &settings); err == nil {
			for seg, n := range settings {
				state.SegmentSettings[seg] = n
			}
		}
	}
	if row.VideoRoomURL != nil {
		state.VideoRoomURL = *row.VideoRoomURL
	}
	if row.VideoRoomCreated != nil {
		state.VideoRoomCreated = *row.VideoRoomCreated
	}
}

func applyPlayerRow(p models.Player, pr playerRow) models.Player {
	if pr.PlayerID != nil && *pr.PlayerID != "" {
		p.ID = *pr.PlayerID
	}
	if pr.Name != nil {
		p.Name = *pr.Name
	}
	if pr.Score != nil {
		p.Score = *pr.Score
	}
	if pr.Strikes != nil {
		p.Strikes = clampStrikes(*pr.Strikes)
	}
	if len(pr.SpecialButtons) > 0 {
		var buttons map[models.ButtonKind]bool
		if err := json.Unmarshal(pr.SpecialButtons, &buttons); err == nil {
			for k, v := range buttons {
				p.SpecialButtons[k] = v
			}
		}
	}
	if pr.Flag != nil {
		p.Flag = *pr.Flag
	}
	if pr.Club != nil {
		p.Club = *pr.Club
	}
	if pr.IsConnected != nil {
		p.IsConnected = *pr.IsConnected
	}
	return p
}

func clampStrikes(n int) int {
	if n < 0 {
		return 0
	}
	if n > game.MaxStrikes {
		return game.MaxStrikes
	}
	return n
}
