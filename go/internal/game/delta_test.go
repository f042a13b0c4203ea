package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AmberMaze/thirty-challenge-code/go/internal/models"
)

func TestDeltaForInitIsNil(t *testing.T) {
	s := newTestState()
	timer := 5
	a := Init{Patch: &models.GameStatePatch{Timer: &timer}}

	next := Reduce(s, a)
	assert.Nil(t, DeltaFor(a, next), "remote patches must not be re-broadcast")
}

func TestDeltaForScoreTouchesOneLeaf(t *testing.T) {
	s := newTestState()
	a := UpdateScore{Slot: models.SlotPlayerA, Points: 10}
	next := Reduce(s, a)

	p := DeltaFor(a, next)
	require.NotNil(t, p)

	assert.Nil(t, p.Phase)
	assert.Nil(t, p.Timer)
	require.Len(t, p.Players, 1)
	pp := p.Players[models.SlotPlayerA]
	require.NotNil(t, pp.Score)
	assert.Equal(t, 10, *pp.Score)
	assert.Nil(t, pp.Name)
	assert.Nil(t, pp.Strikes)
	assert.Nil(t, pp.SpecialButtons)
}

func TestDeltaForTimerActions(t *testing.T) {
	s := newTestState()
	a := StartTimer{Duration: 30}
	next := Reduce(s, a)

	p := DeltaFor(a, next)
	require.NotNil(t, p)
	require.NotNil(t, p.Timer)
	require.NotNil(t, p.IsTimerRunning)
	assert.Equal(t, 30, *p.Timer)
	assert.True(t, *p.IsTimerRunning)
	assert.Empty(t, p.Players)
}

func TestDeltaForNextQuestionCarriesStrikes(t *testing.T) {
	s := newTestState()
	s = Reduce(s, AddStrike{Slot: models.SlotPlayerA})

	a := NextQuestion{}
	next := Reduce(s, a)
	p := DeltaFor(a, next)
	require.NotNil(t, p)

	require.NotNil(t, p.CurrentQuestionIndex)
	assert.Equal(t, 1, *p.CurrentQuestionIndex)
	require.Len(t, p.Players, 3)
	for slot, pp := range p.Players {
		require.NotNil(t, pp.Strikes, "slot %s", slot)
		assert.Zero(t, *pp.Strikes)
	}
}

func TestDeltaForUnknownSlotIsNil(t *testing.T) {
	s := newTestState()
	for _, a := range []Action{
		UpdateScore{Slot: "playerC", Points: 5},
		AddStrike{Slot: "playerC"},
		AddPlayer{Slot: "playerC", Player: models.Player{ID: "x"}},
		UseSpecialButton{Slot: "playerC", Button: models.ButtonLock},
	} {
		next := Reduce(s, a)
		assert.Nil(t, DeltaFor(a, next), "%T", a)
	}
}

func TestDeltaRoundTripConverges(t *testing.T) {
	// A peer that merges every emitted delta ends up with the same
	// state the dispatcher computed locally.
	local := newTestState()
	peer := newTestState()

	actions := []Action{
		SetPhase{Phase: models.PhaseLobby},
		AddPlayer{Slot: models.SlotPlayerA, Player: models.Player{
			ID: "u-1", Name: "Sara", Flag: "tn",
			SpecialButtons: map[models.ButtonKind]bool{
				models.ButtonLock:     true,
				models.ButtonTraveler: true,
				models.ButtonPit:      true,
			},
			IsConnected: true,
		}},
		SetPhase{Phase: models.PhasePlaying},
		UpdateScore{Slot: models.SlotPlayerA, Points: 10},
		PushScoreEvent{Event: models.ScoreEvent{
			PlayerID:  "u-1",
			Points:    10,
			Reason:    "correct answer",
			Timestamp: time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC),
		}},
		AddStrike{Slot: models.SlotPlayerB},
		StartTimer{Duration: 30},
		TickTimer{},
		NextQuestion{},
		UseSpecialButton{Slot: models.SlotPlayerA, Button: models.ButtonPit},
		NextSegment{},
		StopTimer{},
		CompleteGame{},
	}

	for _, a := range actions {
		local = Reduce(local, a)
		if p := DeltaFor(a, local); p != nil {
			peer = MergePatch(peer, *p)
		}
	}

	assert.Equal(t, local, peer)
}

func TestDeltaForResetGameRestoresPeer(t *testing.T) {
	local := newTestState()
	peer := local.Clone()
	peer = Reduce(peer, UpdateScore{Slot: models.SlotPlayerA, Points: 40})
	peer = Reduce(peer, PushScoreEvent{Event: models.ScoreEvent{PlayerID: "playerA", Points: 40}})
	peer = Reduce(peer, SetPhase{Phase: models.PhasePlaying})

	a := ResetGame{}
	local = Reduce(local, a)
	p := DeltaFor(a, local)
	require.NotNil(t, p)
	assert.True(t, p.ScoreHistoryReset)

	peer = MergePatch(peer, *p)
	assert.Equal(t, local, peer)
}
