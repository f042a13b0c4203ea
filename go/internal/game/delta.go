package game

import (
	"github.com/AmberMaze/thirty-challenge-code/go/internal/models"
)

// DeltaFor derives the broadcast patch for a locally-applied action,
// given the state the reducer produced. Deltas stay at leaf
// granularity: a score change carries one player's score, never the
// whole players map, so concurrent edits to sibling fields cannot be
// overwritten by an unrelated delta. Init returns nil because remote
// patches are already everyone else's news.
func DeltaFor(a Action, next models.GameState) *models.GameStatePatch {
	switch act := a.(type) {
	case Init:
		return nil

	case SetPhase:
		p := &models.GameStatePatch{Phase: ptr(next.Phase)}
		if act.Phase == models.PhaseConfig {
			p.SegmentCleared = true
		} else if next.CurrentSegment != nil {
			p.CurrentSegment = ptr(*next.CurrentSegment)
		}
		return p

	case SetCurrentSegment:
		return &models.GameStatePatch{
			CurrentSegment:       next.CurrentSegment,
			CurrentQuestionIndex: ptr(0),
			Timer:                ptr(0),
			IsTimerRunning:       ptr(false),
		}

	case NextQuestion:
		return &models.GameStatePatch{
			CurrentQuestionIndex: ptr(next.CurrentQuestionIndex),
			Timer:                ptr(0),
			IsTimerRunning:       ptr(false),
			Players:              strikesPatch(next),
		}

	case NextSegment:
		return &models.GameStatePatch{
			CurrentSegment:       next.CurrentSegment,
			CurrentQuestionIndex: ptr(0),
			Timer:                ptr(0),
			IsTimerRunning:       ptr(false),
			Players:              strikesPatch(next),
		}

	case AddPlayer:
		if !models.ValidSlot(act.Slot) {
			return nil
		}
		p := next.Players[act.Slot]
		return &models.GameStatePatch{
			Players: map[models.PlayerSlot]models.PlayerPatch{
				act.Slot: fullPlayerPatch(p),
			},
		}

	case UpdatePlayer:
		if !models.ValidSlot(act.Slot) {
			return nil
		}
		return &models.GameStatePatch{
			Players: map[models.PlayerSlot]models.PlayerPatch{
				act.Slot: act.Patch,
			},
		}

	case UpdateScore:
		if !models.ValidSlot(act.Slot) {
			return nil
		}
		return &models.GameStatePatch{
			Players: map[models.PlayerSlot]models.PlayerPatch{
				act.Slot: {Score: ptr(next.Players[act.Slot].Score)},
			},
		}

	case AddStrike:
		if !models.ValidSlot(act.Slot) {
			return nil
		}
		return &models.GameStatePatch{
			Players: map[models.PlayerSlot]models.PlayerPatch{
				act.Slot: {Strikes: ptr(next.Players[act.Slot].Strikes)},
			},
		}

	case UseSpecialButton:
		if !models.ValidSlot(act.Slot) {
			return nil
		}
		return &models.GameStatePatch{
			Players: map[models.PlayerSlot]models.PlayerPatch{
				act.Slot: {SpecialButtons: map[models.ButtonKind]bool{act.Button: false}},
			},
		}

	case StartTimer, StopTimer, TickTimer:
		return &models.GameStatePatch{
			Timer:          ptr(next.Timer),
			IsTimerRunning: ptr(next.IsTimerRunning),
		}

	case PushScoreEvent:
		return &models.GameStatePatch{
			ScoreAppend: []models.ScoreEvent{act.Event},
		}

	case ResetStrikes:
		return &models.GameStatePatch{Players: strikesPatch(next)}

	case CompleteGame:
		return &models.GameStatePatch{
			Phase:          ptr(models.PhaseCompleted),
			Timer:          ptr(0),
			IsTimerRunning: ptr(false),
		}

	case ResetGame:
		// A reset replaces the whole value, so the delta carries every
		// field and clears the otherwise append-only history.
		return fullStatePatch(next)
	}

	return nil
}

func strikesPatch(s models.GameState) map[models.PlayerSlot]models.PlayerPatch {
	out := make(map[models.PlayerSlot]models.PlayerPatch, len(s.Players))
	for slot, p := range s.Players {
		out[slot] = models.PlayerPatch{Strikes: ptr(p.Strikes)}
	}
	return out
}

func fullPlayerPatch(p models.Player) models.PlayerPatch {
	buttons := make(map[models.ButtonKind]bool, len(p.SpecialButtons))
	for k, v := range p.SpecialButtons {
		buttons[k] = v
	}
	return models.PlayerPatch{
		ID:             ptr(p.ID),
		Name:           ptr(p.Name),
		Score:          ptr(p.Score),
		Strikes:        ptr(p.Strikes),
		SpecialButtons: buttons,
		Flag:           ptr(p.Flag),
		Club:           ptr(p.Club),
		IsConnected:    ptr(p.IsConnected),
	}
}

func fullStatePatch(s models.GameState) *models.GameStatePatch {
	players := make(map[models.PlayerSlot]models.PlayerPatch, len(s.Players))
	for slot, p := range s.Players {
		players[slot] = fullPlayerPatch(p)
	}
	settings := make(map[models.SegmentCode]int, len(s.SegmentSettings))
	for seg, n := range s.SegmentSettings {
		settings[seg] = n
	}
	p := &models.GameStatePatch{
		HostName:             ptr(s.HostName),
		Phase:                ptr(s.Phase),
		CurrentQuestionIndex: ptr(s.CurrentQuestionIndex),
		Timer:                ptr(s.Timer),
		IsTimerRunning:       ptr(s.IsTimerRunning),
		Players:              players,
		ScoreHistoryReset:    true,
		ScoreAppend:          append([]models.ScoreEvent(nil), s.ScoreHistory...),
		SegmentSettings:      settings,
		VideoRoomURL:         ptr(s.VideoRoomURL),
		VideoRoomCreated:     ptr(s.VideoRoomCreated),
	}
	if s.CurrentSegment != nil {
		p.CurrentSegment = ptr(*s.CurrentSegment)
	} else {
		p.SegmentCleared = true
	}
	return p
}

func ptr[T any](v T) *T {
	return &v
}
