package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AmberMaze/thirty-challenge-code/go/internal/models"
)

func newTestState() models.GameState {
	return NewInitialState("game-1", "HOST42")
}

func TestInitialState(t *testing.T) {
	s := newTestState()

	assert.Equal(t, models.PhaseConfig, s.Phase)
	assert.Nil(t, s.CurrentSegment)
	assert.Zero(t, s.Timer)
	assert.False(t, s.IsTimerRunning)
	assert.Empty(t, s.ScoreHistory)

	require.Len(t, s.Players, 3)
	for _, slot := range models.PlayerSlots {
		p, ok := s.Players[slot]
		require.True(t, ok, "missing slot %s", slot)
		assert.Zero(t, p.Score)
		assert.Zero(t, p.Strikes)
		for _, b := range models.ButtonKinds {
			assert.True(t, p.SpecialButtons[b], "button %s should start available", b)
		}
	}

	for _, seg := range models.SegmentOrder {
		assert.Equal(t, DefaultQuestionsPerSegment, s.SegmentSettings[seg])
	}
}

func TestReduceNeverMutatesInput(t *testing.T) {
	s := newTestState()
	before := s.Clone()

	Reduce(s, UpdateScore{Slot: models.SlotPlayerA, Points: 10})
	Reduce(s, AddStrike{Slot: models.SlotPlayerB})
	Reduce(s, StartTimer{Duration: 30})
	Reduce(s, PushScoreEvent{Event: models.ScoreEvent{PlayerID: "playerA", Points: 5}})

	assert.Equal(t, before, s)
}

func TestReduceIsDeterministic(t *testing.T) {
	s := newTestState()
	a := UpdateScore{Slot: models.SlotPlayerA, Points: 7}

	first := Reduce(s, a)
	second := Reduce(s, a)

	assert.Equal(t, first, second)
}

func TestTimerScenario(t *testing.T) {
	s := newTestState()
	require.Zero(t, s.Timer)
	require.False(t, s.IsTimerRunning)

	s = Reduce(s, StartTimer{Duration: 30})
	assert.Equal(t, 30, s.Timer)
	assert.True(t, s.IsTimerRunning)

	for i := 0; i < 30; i++ {
		s = Reduce(s, TickTimer{})
	}
	assert.Zero(t, s.Timer)

	// Ticking an expired timer stays at zero.
	s = Reduce(s, TickTimer{})
	assert.Zero(t, s.Timer)
	// The reducer does not flip the running flag at zero; the timer
	// coordinator owns that.
	assert.True(t, s.IsTimerRunning)
}

func TestStrikesResetScenario(t *testing.T) {
	s := newTestState()

	for i := 0; i < 3; i++ {
		s = Reduce(s, AddStrike{Slot: models.SlotPlayerA})
	}
	assert.Equal(t, 3, s.Players[models.SlotPlayerA].Strikes)

	// A fourth strike clamps rather than exceeding the cap.
	s = Reduce(s, AddStrike{Slot: models.SlotPlayerA})
	assert.Equal(t, 3, s.Players[models.SlotPlayerA].Strikes)

	s = Reduce(s, AddStrike{Slot: models.SlotPlayerB})
	s = Reduce(s, NextQuestion{})

	assert.Zero(t, s.Players[models.SlotPlayerA].Strikes)
	assert.Zero(t, s.Players[models.SlotPlayerB].Strikes)
	assert.Equal(t, 1, s.CurrentQuestionIndex)
}

func TestScoreAccumulationScenario(t *testing.T) {
	s := newTestState()
	require.Zero(t, s.Players[models.SlotPlayerA].Score)

	s = Reduce(s, UpdateScore{Slot: models.SlotPlayerA, Points: 10})
	s = Reduce(s, UpdateScore{Slot: models.SlotPlayerA, Points: 5})

	assert.Equal(t, 15, s.Players[models.SlotPlayerA].Score)
	assert.Empty(t, s.ScoreHistory, "UpdateScore must not implicitly append history")

	s = Reduce(s, PushScoreEvent{Event: models.ScoreEvent{
		PlayerID:  "playerA",
		Points:    5,
		Timestamp: time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC),
	}})
	assert.Len(t, s.ScoreHistory, 1)
}

func TestScoreMayGoNegative(t *testing.T) {
	s := newTestState()
	s = Reduce(s, UpdateScore{Slot: models.SlotPlayerB, Points: -7})
	assert.Equal(t, -7, s.Players[models.SlotPlayerB].Score)
}

func TestFullResetScenario(t *testing.T) {
	s := newTestState()
	s = Reduce(s, SetPhase{Phase: models.PhaseLobby})
	s = Reduce(s, SetCurrentSegment{Segment: models.SegmentAUCT})
	s = Reduce(s, SetPhase{Phase: models.PhasePlaying})
	s = Reduce(s, UpdateScore{Slot: models.SlotPlayerA, Points: 12})
	s = Reduce(s, AddStrike{Slot: models.SlotPlayerB})
	s = Reduce(s, StartTimer{Duration: 60})
	s = Reduce(s, PushScoreEvent{Event: models.ScoreEvent{PlayerID: "playerA", Points: 12}})

	s = Reduce(s, ResetGame{})

	assert.Equal(t, newTestState(), s)
}

func TestPlayersAlwaysThreeSlots(t *testing.T) {
	s := newTestState()
	actions := []Action{
		SetPhase{Phase: models.PhaseLobby},
		AddPlayer{Slot: models.SlotPlayerA, Player: models.Player{ID: "u-9", Name: "Sara", SpecialButtons: map[models.ButtonKind]bool{}}},
		AddPlayer{Slot: "playerC", Player: models.Player{ID: "u-10"}},
		UpdatePlayer{Slot: "referee", Patch: models.PlayerPatch{Name: strPtr("nope")}},
		SetCurrentSegment{Segment: models.SegmentWSHA},
		SetPhase{Phase: models.PhasePlaying},
		UpdateScore{Slot: models.SlotPlayerB, Points: 3},
		NextQuestion{},
		NextSegment{},
		ResetStrikes{},
		UseSpecialButton{Slot: models.SlotPlayerA, Button: models.ButtonPit},
		StartTimer{Duration: 10},
		TickTimer{},
		StopTimer{},
		CompleteGame{},
		ResetGame{},
	}

	for _, a := range actions {
		s = Reduce(s, a)
		require.Len(t, s.Players, 3, "after %T", a)
		for _, slot := range models.PlayerSlots {
			_, ok := s.Players[slot]
			require.True(t, ok, "slot %s missing after %T", slot, a)
		}
		require.GreaterOrEqual(t, s.Timer, 0, "after %T", a)
	}
}

func TestUnknownSlotIsNoOp(t *testing.T) {
	s := newTestState()

	for _, a := range []Action{
		AddPlayer{Slot: "playerC", Player: models.Player{ID: "x"}},
		UpdatePlayer{Slot: "playerC", Patch: models.PlayerPatch{Name: strPtr("x")}},
		UpdateScore{Slot: "playerC", Points: 5},
		AddStrike{Slot: "playerC"},
		UseSpecialButton{Slot: "playerC", Button: models.ButtonLock},
	} {
		next := Reduce(s, a)
		assert.Equal(t, s, next, "%T addressing an unknown slot must be a no-op", a)
	}
}

func TestSetPhaseConfigClearsSegment(t *testing.T) {
	s := newTestState()
	s = Reduce(s, SetCurrentSegment{Segment: models.SegmentBELL})
	require.NotNil(t, s.CurrentSegment)

	s = Reduce(s, SetPhase{Phase: models.PhaseConfig})
	assert.Nil(t, s.CurrentSegment)
}

func TestSetPhasePlayingDefaultsSegment(t *testing.T) {
	s := newTestState()
	s = Reduce(s, SetPhase{Phase: models.PhasePlaying})

	require.NotNil(t, s.CurrentSegment)
	assert.Equal(t, models.SegmentOrder[0], *s.CurrentSegment)
}

func TestSetCurrentSegmentResetsProgress(t *testing.T) {
	s := newTestState()
	s = Reduce(s, SetCurrentSegment{Segment: models.SegmentWSHA})
	s = Reduce(s, NextQuestion{})
	s = Reduce(s, StartTimer{Duration: 45})

	s = Reduce(s, SetCurrentSegment{Segment: models.SegmentSING})

	require.NotNil(t, s.CurrentSegment)
	assert.Equal(t, models.SegmentSING, *s.CurrentSegment)
	assert.Zero(t, s.CurrentQuestionIndex)
	assert.Zero(t, s.Timer)
	assert.False(t, s.IsTimerRunning)
}

func TestNextSegmentWalksPlayOrder(t *testing.T) {
	s := newTestState()

	s = Reduce(s, NextSegment{})
	require.NotNil(t, s.CurrentSegment)
	assert.Equal(t, models.SegmentOrder[0], *s.CurrentSegment)

	for i := 1; i < len(models.SegmentOrder); i++ {
		s = Reduce(s, NextSegment{})
		assert.Equal(t, models.SegmentOrder[i], *s.CurrentSegment)
	}

	// Past the last segment it stays put.
	s = Reduce(s, NextSegment{})
	assert.Equal(t, models.SegmentOrder[len(models.SegmentOrder)-1], *s.CurrentSegment)
}

func TestUseSpecialButtonIsOneShot(t *testing.T) {
	s := newTestState()
	s = Reduce(s, UseSpecialButton{Slot: models.SlotPlayerA, Button: models.ButtonTraveler})

	assert.False(t, s.Players[models.SlotPlayerA].SpecialButtons[models.ButtonTraveler])
	assert.True(t, s.Players[models.SlotPlayerA].SpecialButtons[models.ButtonLock])
	assert.True(t, s.Players[models.SlotPlayerB].SpecialButtons[models.ButtonTraveler])
}

func TestCompletedAdmitsOnlyResetAndInit(t *testing.T) {
	s := newTestState()
	s = Reduce(s, SetPhase{Phase: models.PhasePlaying})
	s = Reduce(s, CompleteGame{})
	require.Equal(t, models.PhaseCompleted, s.Phase)
	assert.Zero(t, s.Timer)
	assert.False(t, s.IsTimerRunning)

	frozen := Reduce(s, UpdateScore{Slot: models.SlotPlayerA, Points: 10})
	assert.Equal(t, s, frozen)
	frozen = Reduce(s, StartTimer{Duration: 30})
	assert.Equal(t, s, frozen)

	timer := 12
	merged := Reduce(s, Init{Patch: &models.GameStatePatch{Timer: &timer}})
	assert.Equal(t, 12, merged.Timer)

	reset := Reduce(s, ResetGame{})
	assert.Equal(t, models.PhaseConfig, reset.Phase)
}

func TestResetGameKeepsIdentity(t *testing.T) {
	s := NewInitialState("game-7", "CODE77")
	s = Reduce(s, UpdateScore{Slot: models.SlotPlayerA, Points: 30})

	s = Reduce(s, ResetGame{})

	assert.Equal(t, "game-7", s.GameID)
	assert.Equal(t, "CODE77", s.HostCode)
}

func strPtr(s string) *string { return &s }
