package models

// PlayerPatch is a partial update for one player slot. Nil fields are
// left untouched by the merge; SpecialButtons merges per key.
type PlayerPatch struct {
	ID             *string             `json:"id,omitempty"`
	Name           *string             `json:"name,omitempty"`
	Score          *int                `json:"score,omitempty"`
	Strikes        *int                `json:"strikes,omitempty"`
	SpecialButtons map[ButtonKind]bool `json:"special_buttons,omitempty"`
	Flag           *string             `json:"flag,omitempty"`
	Club           *string             `json:"club,omitempty"`
	IsConnected    *bool               `json:"is_connected,omitempty"`
}

// GameStatePatch is a partial delta of GameState broadcast to peers.
// Only changed leaves are populated; absent fields retain their local
// value on the receiving side (they are never cleared by a merge).
//
// SegmentCleared exists because CurrentSegment is nullable: a nil
// CurrentSegment in a patch means "unchanged", not "cleared".
// ScoreHistoryReset replaces the history (normally append-only) and is
// set only by the delta of a full session reset.
type GameStatePatch struct {
	HostName             *string                    `json:"host_name,omitempty"`
	Phase                *Phase                     `json:"phase,omitempty"`
	CurrentSegment       *SegmentCode               `json:"current_segment,omitempty"`
	SegmentCleared       bool                       `json:"segment_cleared,omitempty"`
	CurrentQuestionIndex *int                       `json:"current_question_index,omitempty"`
	Timer                *int                       `json:"timer,omitempty"`
	IsTimerRunning       *bool                      `json:"is_timer_running,omitempty"`
	Players              map[PlayerSlot]PlayerPatch `json:"players,omitempty"`
	ScoreHistoryReset    bool                       `json:"score_history_reset,omitempty"`
	ScoreAppend          []ScoreEvent               `json:"score_append,omitempty"`
	SegmentSettings      map[SegmentCode]int        `json:"segment_settings,omitempty"`
	VideoRoomURL         *string                    `json:"video_room_url,omitempty"`
	VideoRoomCreated     *bool                      `json:"video_room_created,omitempty"`
}

// IsZero reports whether the patch carries no changes at all.
func (p GameStatePatch) IsZero() bool {
	return p.HostName == nil &&
		p.Phase == nil &&
		p.CurrentSegment == nil &&
		!p.SegmentCleared &&
		p.CurrentQuestionIndex == nil &&
		p.Timer == nil &&
		p.IsTimerRunning == nil &&
		len(p.Players) == 0 &&
		!p.ScoreHistoryReset &&
		len(p.ScoreAppend) == 0 &&
		len(p.SegmentSettings) == 0 &&
		p.VideoRoomURL == nil &&
		p.VideoRoomCreated == nil
}
