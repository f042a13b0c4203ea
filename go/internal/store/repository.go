package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/AmberMaze/thirty-challenge-code/go/internal/models"
)

// DB defines what the repository needs from the database layer.
// *pgxpool.Pool satisfies it.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Repository implements session data access. Storage is an external
// collaborator to the session core: the core hands it opaque durable
// writes and never depends on the row format.
type Repository struct {
	db DB
}

// NewRepository creates a new session repository.
func NewRepository(db DB) *Repository {
	return &Repository{db: db}
}

// CreateGame persists a freshly created session and its three player
// slots.
func (r *Repository) CreateGame(ctx context.Context, state models.GameState) error {
	history, err := json.Marshal(state.ScoreHistory)
	if err != nil {
		return fmt.Errorf("marshal score history: %w", err)
	}
	settings, err := json.Marshal(state.SegmentSettings)
	if err != nil {
		return fmt.Errorf("marshal segment settings: %w", err)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create game: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO games (id, host_code, host_name, phase, current_segment,
			current_question_index, timer, is_timer_running,
			score_history, segment_settings, video_room_url, video_room_created)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		state.GameID, state.HostCode, nullable(state.HostName), string(state.Phase),
		segmentValue(state.CurrentSegment), state.CurrentQuestionIndex,
		state.Timer, state.IsTimerRunning, history, settings,
		nullable(state.VideoRoomURL), state.VideoRoomCreated,
	)
	if err != nil {
		return fmt.Errorf("insert game: %w", err)
	}

	for _, slot := range models.PlayerSlots {
		if err := upsertPlayer(ctx, tx, state.GameID, slot, state.Players[slot]); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit create game: %w", err)
	}
	return nil
}

// AddPlayer writes one player slot wholesale.
func (r *Repository) AddPlayer(ctx context.Context, gameID string, slot models.PlayerSlot, p models.Player) error {
	return upsertPlayer(ctx, r.db, gameID, slot, p)
}

// UpdateGame applies a partial record update; only fields present in
// the patch touch the row. Score events append to the stored history.
func (r *Repository) UpdateGame(ctx context.Context, gameID string, patch models.GameStatePatch) error {
	return r.updateGameOn(ctx, r.db, gameID, patch)
}

// UpdatePlayer shallow-merges a player patch into one slot's row.
func (r *Repository) UpdatePlayer(ctx context.Context, gameID string, slot models.PlayerSlot, pp models.PlayerPatch) error {
	return updatePlayerOn(ctx, r.db, gameID, slot, pp)
}

// PersistDelta writes a delta durably: the game and player rows update
// and the delta lands in the outbox, all in one transaction.
func (r *Repository) PersistDelta(ctx context.Context, gameID string, patch models.GameStatePatch) error {
	payload, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("marshal delta: %w", err)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin persist delta: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := r.updateGameOn(ctx, tx, gameID, patch); err != nil {
		return err
	}
	for slot, pp := range patch.Players {
		if err := updatePlayerOn(ctx, tx, gameID, slot, pp); err != nil {
			return err
		}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO session_outbox (id, game_id, payload)
		VALUES ($1, $2, $3)`,
		uuid.New(), gameID, payload,
	)
	if err != nil {
		return fmt.Errorf("insert outbox delta: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit persist delta: %w", err)
	}
	return nil
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (r *Repository) updateGameOn(ctx context.Context, db execer, gameID string, patch models.GameStatePatch) error {
	sets := []string{"updated_at = now()"}
	args := []any{gameID}

	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if patch.HostName != nil {
		add("host_name", *patch.HostName)
	}
	if patch.Phase != nil {
		add("phase", string(*patch.Phase))
	}
	if patch.SegmentCleared {
		sets = append(sets, "current_segment = NULL")
	} else if patch.CurrentSegment != nil {
		add("current_segment", string(*patch.CurrentSegment))
	}
	if patch.CurrentQuestionIndex != nil {
		add("current_question_index", *patch.CurrentQuestionIndex)
	}
	if patch.Timer != nil {
		add("timer", *patch.Timer)
	}
	if patch.IsTimerRunning != nil {
		add("is_timer_running", *patch.IsTimerRunning)
	}
	if patch.ScoreHistoryReset {
		sets = append(sets, "score_history = '[]'::jsonb")
	}
	if len(patch.ScoreAppend) > 0 {
		events, err := json.Marshal(patch.ScoreAppend)
		if err != nil {
			return fmt.Errorf("marshal score events: %w", err)
		}
		args = append(args, events)
		sets = append(sets, fmt.Sprintf("score_history = score_history || $%d::jsonb", len(args)))
	}
	if len(patch.SegmentSettings) > 0 {
		settings, err := json.Marshal(patch.SegmentSettings)
		if err != nil {
			return fmt.Errorf("marshal segment settings: %w", err)
		}
		args = append(args, settings)
		sets = append(sets, fmt.Sprintf("segment_settings = segment_settings || $%d::jsonb", len(args)))
	}
	if patch.VideoRoomURL != nil {
		add("video_room_url", *patch.VideoRoomURL)
	}
	if patch.VideoRoomCreated != nil {
		add("video_room_created", *patch.VideoRoomCreated)
	}

	if len(sets) == 1 && len(patch.Players) > 0 {
		// Player-only delta; nothing on the game row but the timestamp.
		return nil
	}

	query := fmt.Sprintf("UPDATE games SET %s WHERE id = $1", strings.Join(sets, ", "))
	if _, err := db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("update game %s: %w", gameID, err)
	}
	return nil
}

func updatePlayerOn(ctx context.Context, db execer, gameID string, slot models.PlayerSlot, pp models.PlayerPatch) error {
	sets := []string{}
	args := []any{gameID, string(slot)}

	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if pp.ID != nil {
		add("player_id", *pp.ID)
	}
	if pp.Name != nil {
		add("name", *pp.Name)
	}
	if pp.Score != nil {
		add("score", *pp.Score)
	}
	if pp.Strikes != nil {
		add("strikes", *pp.Strikes)
	}
	if len(pp.SpecialButtons) > 0 {
		buttons, err := json.Marshal(pp.SpecialButtons)
		if err != nil {
			return fmt.Errorf("marshal special buttons: %w", err)
		}
		args = append(args, buttons)
		sets = append(sets, fmt.Sprintf("special_buttons = special_buttons || $%d::jsonb", len(args)))
	}
	if pp.Flag != nil {
		add("flag", *pp.Flag)
	}
	if pp.Club != nil {
		add("club", *pp.Club)
	}
	if pp.IsConnected != nil {
		add("is_connected", *pp.IsConnected)
	}

	if len(sets) == 0 {
		return nil
	}

	query := fmt.Sprintf(
		"UPDATE game_players SET %s WHERE game_id = $1 AND slot = $2",
		strings.Join(sets, ", "),
	)
	if _, err := db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("update player %s/%s: %w", gameID, slot, err)
	}
	return nil
}

func upsertPlayer(ctx context.Context, db execer, gameID string, slot models.PlayerSlot, p models.Player) error {
	buttons, err := json.Marshal(p.SpecialButtons)
	if err != nil {
		return fmt.Errorf("marshal special buttons: %w", err)
	}

	_, err = db.Exec(ctx, `
		INSERT INTO game_players (game_id, slot, player_id, name, score,
			strikes, special_buttons, flag, club, is_connected)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (game_id, slot) DO UPDATE SET
			player_id = EXCLUDED.player_id,
			name = EXCLUDED.name,
			score = EXCLUDED.score,
			strikes = EXCLUDED.strikes,
			special_buttons = EXCLUDED.special_buttons,
			flag = EXCLUDED.flag,
			club = EXCLUDED.club,
			is_connected = EXCLUDED.is_connected`,
		gameID, string(slot), p.ID, p.Name, p.Score, p.Strikes,
		buttons, nullable(p.Flag), nullable(p.Club), p.IsConnected,
	)
	if err != nil {
		return fmt.Errorf("upsert player %s/%s: %w", gameID, slot, err)
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func segmentValue(seg *models.SegmentCode) *string {
	if seg == nil {
		return nil
	}
	s := string(*seg)
	return &s
}
