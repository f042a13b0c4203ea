package models

import (
	"time"
)

// Phase defines the top-level stage of a session.
type Phase string

const (
	PhaseConfig    Phase = "CONFIG"
	PhaseLobby     Phase = "LOBBY"
	PhasePlaying   Phase = "PLAYING"
	PhaseCompleted Phase = "COMPLETED"
)

// SegmentCode identifies one round of the show.
type SegmentCode string

const (
	SegmentWSHA SegmentCode = "WSHA"
	SegmentAUCT SegmentCode = "AUCT"
	SegmentBELL SegmentCode = "BELL"
	SegmentSING SegmentCode = "SING"
	SegmentREMO SegmentCode = "REMO"
)

// SegmentOrder is the fixed play order of segments.
var SegmentOrder = []SegmentCode{
	SegmentWSHA,
	SegmentAUCT,
	SegmentBELL,
	SegmentSING,
	SegmentREMO,
}

// PlayerSlot keys the fixed three-entry players map. Slots are created
// once at session start and never added or removed.
type PlayerSlot string

const (
	SlotHost    PlayerSlot = "host"
	SlotPlayerA PlayerSlot = "playerA"
	SlotPlayerB PlayerSlot = "playerB"
)

// PlayerSlots lists every valid slot.
var PlayerSlots = []PlayerSlot{SlotHost, SlotPlayerA, SlotPlayerB}

// ValidSlot reports whether s is one of the three fixed slots.
func ValidSlot(s PlayerSlot) bool {
	switch s {
	case SlotHost, SlotPlayerA, SlotPlayerB:
		return true
	}
	return false
}

// ButtonKind identifies a one-shot special button a player can expend.
type ButtonKind string

const (
	ButtonLock     ButtonKind = "lock_button"
	ButtonTraveler ButtonKind = "traveler_button"
	ButtonPit      ButtonKind = "pit_button"
)

// ButtonKinds lists every special button a player starts with.
var ButtonKinds = []ButtonKind{ButtonLock, ButtonTraveler, ButtonPit}

// Player is one participant slot within a session.
type Player struct {
	ID             string              `json:"id"`
	Name           string              `json:"name"`
	Score          int                 `json:"score"`
	Strikes        int                 `json:"strikes"`
	SpecialButtons map[ButtonKind]bool `json:"special_buttons"`
	Flag           string              `json:"flag,omitempty"`
	Club           string              `json:"club,omitempty"`
	IsConnected    bool                `json:"is_connected"`
}

// Clone returns a deep copy of the player.
func (p Player) Clone() Player {
	cp := p
	cp.SpecialButtons = make(map[ButtonKind]bool, len(p.SpecialButtons))
	for k, v := range p.SpecialButtons {
		cp.SpecialButtons[k] = v
	}
	return cp
}

// ScoreEvent records one signed score change.
type ScoreEvent struct {
	PlayerID  string    `json:"player_id"`
	Points    int       `json:"points"`
	Timestamp time.Time `json:"timestamp"`
	Reason    string    `json:"reason,omitempty"`
}

// GameState is the complete shared state of one session. Each client
// holds its own copy and converges through delta broadcast; all
// mutation goes through the reducer.
type GameState struct {
	GameID               string                `json:"game_id"`
	HostCode             string                `json:"host_code"`
	HostName             string                `json:"host_name,omitempty"`
	Phase                Phase                 `json:"phase"`
	CurrentSegment       *SegmentCode          `json:"current_segment,omitempty"`
	CurrentQuestionIndex int                   `json:"current_question_index"`
	Timer                int                   `json:"timer"`
	IsTimerRunning       bool                  `json:"is_timer_running"`
	Players              map[PlayerSlot]Player `json:"players"`
	ScoreHistory         []ScoreEvent          `json:"score_history"`
	SegmentSettings      map[SegmentCode]int   `json:"segment_settings"`
	VideoRoomURL         string                `json:"video_room_url,omitempty"`
	VideoRoomCreated     bool                  `json:"video_room_created"`
}

// Clone returns a deep copy of the state.
func (s GameState) Clone() GameState {
	cp := s
	if s.CurrentSegment != nil {
		seg := *s.CurrentSegment
		cp.CurrentSegment = &seg
	}
	cp.Players = make(map[PlayerSlot]Player, len(s.Players))
	for slot, p := range s.Players {
		cp.Players[slot] = p.Clone()
	}
	cp.ScoreHistory = make([]ScoreEvent, len(s.ScoreHistory))
	copy(cp.ScoreHistory, s.ScoreHistory)
	cp.SegmentSettings = make(map[SegmentCode]int, len(s.SegmentSettings))
	for seg, n := range s.SegmentSettings {
		cp.SegmentSettings[seg] = n
	}
	return cp
}
