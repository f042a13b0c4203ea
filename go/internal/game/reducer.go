package game

import (
	"github.com/AmberMaze/thirty-challenge-code/go/internal/models"
)

// MaxStrikes caps the per-player strike counter.
const MaxStrikes = 3

// Reduce is the transition function of the session state machine. It is
// pure and total: it never mutates its input, never fails, and always
// returns a complete state satisfying the model invariants. Actions
// addressing a slot outside the fixed three are a caller contract
// violation and reduce to a no-op; this policy is uniform across the
// whole action set.
func Reduce(s models.GameState, a Action) models.GameState {
	// COMPLETED is terminal: only a full reset or an Init (load or
	// remote delta) may still change state.
	if s.Phase == models.PhaseCompleted {
		switch a.(type) {
		case ResetGame, Init:
		default:
			return s
		}
	}

	switch act := a.(type) {
	case Init:
		if act.State != nil {
			return act.State.Clone()
		}
		if act.Patch != nil {
			return MergePatch(s, *act.Patch)
		}
		return s

	case SetPhase:
		next := s.Clone()
		next.Phase = act.Phase
		switch act.Phase {
		case models.PhaseConfig:
			next.CurrentSegment = nil
		case models.PhasePlaying, models.PhaseCompleted:
			// A segment must exist outside CONFIG/LOBBY.
			if next.CurrentSegment == nil {
				seg := models.SegmentOrder[0]
				next.CurrentSegment = &seg
			}
		}
		return next

	case SetCurrentSegment:
		next := s.Clone()
		seg := act.Segment
		next.CurrentSegment = &seg
		next.CurrentQuestionIndex = 0
		next.Timer = 0
		next.IsTimerRunning = false
		return next

	case NextQuestion:
		next := s.Clone()
		next.CurrentQuestionIndex++
		resetQuestionScope(&next)
		return next

	case NextSegment:
		next := s.Clone()
		next.CurrentSegment = segmentAfter(next.CurrentSegment)
		next.CurrentQuestionIndex = 0
		resetQuestionScope(&next)
		return next

	case AddPlayer:
		if !models.ValidSlot(act.Slot) {
			return s
		}
		next := s.Clone()
		next.Players[act.Slot] = act.Player.Clone()
		return next

	case UpdatePlayer:
		if !models.ValidSlot(act.Slot) {
			return s
		}
		next := s.Clone()
		next.Players[act.Slot] = mergePlayer(next.Players[act.Slot], act.Patch)
		return next

	case UpdateScore:
		if !models.ValidSlot(act.Slot) {
			return s
		}
		next := s.Clone()
		p := next.Players[act.Slot]
		p.Score += act.Points
		next.Players[act.Slot] = p
		return next

	case AddStrike:
		if !models.ValidSlot(act.Slot) {
			return s
		}
		next := s.Clone()
		p := next.Players[act.Slot]
		if p.Strikes < MaxStrikes {
			p.Strikes++
		}
		next.Players[act.Slot] = p
		return next

	case UseSpecialButton:
		if !models.ValidSlot(act.Slot) {
			return s
		}
		next := s.Clone()
		next.Players[act.Slot].SpecialButtons[act.Button] = false
		return next

	case StartTimer:
		next := s.Clone()
		next.Timer = act.Duration
		if next.Timer < 0 {
			next.Timer = 0
		}
		next.IsTimerRunning = true
		return next

	case StopTimer:
		next := s.Clone()
		next.Timer = 0
		next.IsTimerRunning = false
		return next

	case TickTimer:
		if s.Timer <= 0 {
			return s
		}
		next := s.Clone()
		next.Timer--
		return next

	case PushScoreEvent:
		next := s.Clone()
		next.ScoreHistory = append(next.ScoreHistory, act.Event)
		return next

	case ResetStrikes:
		next := s.Clone()
		zeroStrikes(&next)
		return next

	case CompleteGame:
		next := s.Clone()
		next.Phase = models.PhaseCompleted
		if next.CurrentSegment == nil {
			seg := models.SegmentOrder[0]
			next.CurrentSegment = &seg
		}
		next.Timer = 0
		next.IsTimerRunning = false
		return next

	case ResetGame:
		return NewInitialState(s.GameID, s.HostCode)
	}

	return s
}

// resetQuestionScope clears everything scoped to a single question:
// the timer and every player's strikes.
func resetQuestionScope(s *models.GameState) {
	s.Timer = 0
	s.IsTimerRunning = false
	zeroStrikes(s)
}

func zeroStrikes(s *models.GameState) {
	for slot, p := range s.Players {
		p.Strikes = 0
		s.Players[slot] = p
	}
}

// segmentAfter returns the segment following cur in play order. From a
// nil segment it starts at the first; past the last it stays put.
func segmentAfter(cur *models.SegmentCode) *models.SegmentCode {
	if cur == nil {
		seg := models.SegmentOrder[0]
		return &seg
	}
	for i, seg := range models.SegmentOrder {
		if seg == *cur && i+1 < len(models.SegmentOrder) {
			nxt := models.SegmentOrder[i+1]
			return &nxt
		}
	}
	seg := *cur
	return &seg
}
