package session

import (
	"reflect"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/AmberMaze/thirty-challenge-code/go/internal/game"
	"github.com/AmberMaze/thirty-challenge-code/go/internal/models"
)

const (
	outboundBuffer   = 256
	subscriberBuffer = 16
)

// Store is the explicit state-store handle for one client's copy of a
// session. All mutation goes through Dispatch, which applies the
// reducer synchronously; the result is immediately the local truth
// (optimistic, local-first). Each locally-originated mutation also
// yields a fine-grained delta on the outbound channel for the
// reconciler to persist and broadcast.
type Store struct {
	clock clockwork.Clock

	mu    sync.Mutex
	state models.GameState

	outbound chan models.GameStatePatch
	subs     map[int]chan models.GameState
	nextSub  int
}

// NewStore creates a store seeded with the given state.
func NewStore(initial models.GameState) *Store {
	return NewStoreWithClock(initial, clockwork.NewRealClock())
}

// NewStoreWithClock creates a store on an explicit clock; tests pass a
// fake clock so score-event timestamps are deterministic.
func NewStoreWithClock(initial models.GameState, clock clockwork.Clock) *Store {
	return &Store{
		clock:    clock,
		state:    initial.Clone(),
		outbound: make(chan models.GameStatePatch, outboundBuffer),
		subs:     make(map[int]chan models.GameState),
	}
}

// State returns a snapshot of the current state.
func (s *Store) State() models.GameState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Dispatch applies one action and returns the new state. Local actions
// enqueue their delta for broadcast; Init actions (remote deltas,
// loads) do not, so reconciliation never echoes. Actions the reducer
// treated as a no-op (a tick at zero, anything gated by COMPLETED)
// emit nothing either.
func (s *Store) Dispatch(a game.Action) models.GameState {
	s.mu.Lock()
	prev := s.state
	next := game.Reduce(s.state, a)
	s.state = next
	s.mu.Unlock()

	if delta := game.DeltaFor(a, next); delta != nil && !delta.IsZero() && !reflect.DeepEqual(prev, next) {
		select {
		case s.outbound <- *delta:
		default:
			log.Warn().Str("game_id", next.GameID).Msg("outbound delta buffer full, dropping delta")
		}
	}

	s.notify(next)
	return next
}

// ScorePoints adjusts a player's score and records the matching score
// event in one call, so call sites cannot apply one without the other.
func (s *Store) ScorePoints(slot models.PlayerSlot, points int, reason string) models.GameState {
	st := s.Dispatch(game.UpdateScore{Slot: slot, Points: points})
	if !models.ValidSlot(slot) {
		return st
	}
	return s.Dispatch(game.PushScoreEvent{Event: models.ScoreEvent{
		PlayerID:  st.Players[slot].ID,
		Points:    points,
		Timestamp: s.clock.Now(),
		Reason:    reason,
	}})
}

// Outbound is the channel of deltas awaiting persistence and broadcast.
func (s *Store) Outbound() <-chan models.GameStatePatch {
	return s.outbound
}

// Subscribe returns a channel of state snapshots and a cancel func.
// Slow subscribers miss intermediate snapshots rather than blocking
// dispatch.
func (s *Store) Subscribe() (<-chan models.GameState, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan models.GameState, subscriberBuffer)
	s.subs[id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

func (s *Store) notify(state models.GameState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ch := range s.subs {
		select {
		case ch <- state.Clone():
		default:
		}
	}
}
