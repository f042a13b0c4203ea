package game

import (
	"github.com/AmberMaze/thirty-challenge-code/go/internal/models"
)

// Action is the closed set of state transitions. The marker method is
// unexported so no other package can add action kinds; every handler
// switches over the full set.
type Action interface {
	isAction()
}

// Init replaces or merges state. With State set it is a wholesale
// replacement (initial load, storage restore). With Patch set it is the
// reconciliation path: the patch merges over current state field by
// field and absent fields keep their local value.
type Init struct {
	State *models.GameState
	Patch *models.GameStatePatch
}

// SetPhase moves the session to a new phase. Entering CONFIG clears the
// current segment, since no segment is valid during configuration.
type SetPhase struct {
	Phase models.Phase
}

// SetCurrentSegment switches to a segment and zeroes the progress
// counters scoped below it (question index, timer).
type SetCurrentSegment struct {
	Segment models.SegmentCode
}

// NextQuestion advances within the current segment. Strikes are scoped
// to the question, so every player's strikes reset.
type NextQuestion struct{}

// NextSegment advances to the next segment in play order.
type NextSegment struct{}

// AddPlayer fills (or overwrites) one of the three fixed slots.
type AddPlayer struct {
	Slot   models.PlayerSlot
	Player models.Player
}

// UpdatePlayer shallow-merges a patch into one player slot.
type UpdatePlayer struct {
	Slot  models.PlayerSlot
	Patch models.PlayerPatch
}

// UpdateScore adds a signed delta to one player's score.
type UpdateScore struct {
	Slot   models.PlayerSlot
	Points int
}

// AddStrike increments one player's strike counter.
type AddStrike struct {
	Slot models.PlayerSlot
}

// UseSpecialButton marks a one-shot button as spent.
type UseSpecialButton struct {
	Slot   models.PlayerSlot
	Button models.ButtonKind
}

// StartTimer arms the shared countdown at the given duration in seconds.
type StartTimer struct {
	Duration int
}

// StopTimer clears and stops the shared countdown.
type StopTimer struct{}

// TickTimer decrements the countdown by one second, if any remain.
type TickTimer struct{}

// PushScoreEvent appends to the score history.
type PushScoreEvent struct {
	Event models.ScoreEvent
}

// ResetStrikes zeroes every player's strikes.
type ResetStrikes struct{}

// CompleteGame ends the session and stops the timer.
type CompleteGame struct{}

// ResetGame replaces the entire state with the canonical initial value.
type ResetGame struct{}

func (Init) isAction()              {}
func (SetPhase) isAction()          {}
func (SetCurrentSegment) isAction() {}
func (NextQuestion) isAction()      {}
func (NextSegment) isAction()       {}
func (AddPlayer) isAction()         {}
func (UpdatePlayer) isAction()      {}
func (UpdateScore) isAction()       {}
func (AddStrike) isAction()         {}
func (UseSpecialButton) isAction()  {}
func (StartTimer) isAction()        {}
func (StopTimer) isAction()         {}
func (TickTimer) isAction()         {}
func (PushScoreEvent) isAction()    {}
func (ResetStrikes) isAction()      {}
func (CompleteGame) isAction()      {}
func (ResetGame) isAction()         {}
