package game

import (
	"github.com/AmberMaze/thirty-challenge-code/go/internal/models"
)

// MergePatch applies a partial delta over a state, field by field.
// Fields absent from the patch keep their local value; per-player
// patches shallow-merge into the addressed slot; score events append.
// Patches addressing unknown slots are dropped, so the players map
// keeps exactly its three fixed keys. The merge is idempotent: the
// transport delivers at least once, so appended score events already
// present in the history are skipped.
func MergePatch(s models.GameState, p models.GameStatePatch) models.GameState {
	next := s.Clone()

	if p.HostName != nil {
		next.HostName = *p.HostName
	}
	if p.Phase != nil {
		next.Phase = *p.Phase
	}
	if p.SegmentCleared {
		// A segment must exist outside CONFIG/LOBBY, so a clear only
		// takes effect when the post-merge phase allows a nil segment.
		if next.Phase == models.PhaseConfig || next.Phase == models.PhaseLobby {
			next.CurrentSegment = nil
		}
	} else if p.CurrentSegment != nil {
		seg := *p.CurrentSegment
		next.CurrentSegment = &seg
	}
	if p.CurrentQuestionIndex != nil && *p.CurrentQuestionIndex >= 0 {
		next.CurrentQuestionIndex = *p.CurrentQuestionIndex
	}
	if p.Timer != nil {
		next.Timer = *p.Timer
		if next.Timer < 0 {
			next.Timer = 0
		}
	}
	if p.IsTimerRunning != nil {
		next.IsTimerRunning = *p.IsTimerRunning
	}
	for slot, pp := range p.Players {
		if !models.ValidSlot(slot) {
			continue
		}
		next.Players[slot] = mergePlayer(next.Players[slot], pp)
	}
	if p.ScoreHistoryReset {
		next.ScoreHistory = []models.ScoreEvent{}
	}
	for _, ev := range p.ScoreAppend {
		if !containsEvent(next.ScoreHistory, ev) {
			next.ScoreHistory = append(next.ScoreHistory, ev)
		}
	}
	for seg, n := range p.SegmentSettings {
		next.SegmentSettings[seg] = n
	}
	if p.VideoRoomURL != nil {
		next.VideoRoomURL = *p.VideoRoomURL
	}
	if p.VideoRoomCreated != nil {
		next.VideoRoomCreated = *p.VideoRoomCreated
	}

	return next
}

func containsEvent(history []models.ScoreEvent, ev models.ScoreEvent) bool {
	for _, have := range history {
		if have.PlayerID == ev.PlayerID &&
			have.Points == ev.Points &&
			have.Reason == ev.Reason &&
			have.Timestamp.Equal(ev.Timestamp) {
			return true
		}
	}
	return false
}

// mergePlayer shallow-merges a patch into a player. Strikes clamp to
// the 0..MaxStrikes range regardless of what the patch carries.
func mergePlayer(p models.Player, pp models.PlayerPatch) models.Player {
	if pp.ID != nil {
		p.ID = *pp.ID
	}
	if pp.Name != nil {
		p.Name = *pp.Name
	}
	if pp.Score != nil {
		p.Score = *pp.Score
	}
	if pp.Strikes != nil {
		p.Strikes = *pp.Strikes
		if p.Strikes < 0 {
			p.Strikes = 0
		}
		if p.Strikes > MaxStrikes {
			p.Strikes = MaxStrikes
		}
	}
	if len(pp.SpecialButtons) > 0 {
		buttons := make(map[models.ButtonKind]bool, len(p.SpecialButtons))
		for k, v := range p.SpecialButtons {
			buttons[k] = v
		}
		for k, v := range pp.SpecialButtons {
			buttons[k] = v
		}
		p.SpecialButtons = buttons
	}
	if pp.Flag != nil {
		p.Flag = *pp.Flag
	}
	if pp.Club != nil {
		p.Club = *pp.Club
	}
	if pp.IsConnected != nil {
		p.IsConnected = *pp.IsConnected
	}
	return p
}
