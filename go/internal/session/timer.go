package session

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/AmberMaze/thirty-challenge-code/go/internal/game"
)

// TimerCoordinator drives the shared countdown for the one client that
// started it. It dispatches TickTimer once per second; every tick's
// delta is broadcast by the reconciler, so peers just display the
// received value. Synchronization is seconds-granularity and
// best-effort. There is no leader election: any participant may start
// or stop, and concurrent starts resolve last-write-wins like every
// other field.
type TimerCoordinator struct {
	store *Store
	clock clockwork.Clock

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewTimerCoordinator creates a coordinator on the real clock.
func NewTimerCoordinator(store *Store) *TimerCoordinator {
	return NewTimerCoordinatorWithClock(store, clockwork.NewRealClock())
}

// NewTimerCoordinatorWithClock creates a coordinator on an explicit
// clock for tests.
func NewTimerCoordinatorWithClock(store *Store, clock clockwork.Clock) *TimerCoordinator {
	return &TimerCoordinator{
		store: store,
		clock: clock,
	}
}

// Start arms the countdown at duration seconds and begins ticking.
// Starting while already running restarts the countdown.
func (c *TimerCoordinator) Start(ctx context.Context, duration int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()
	c.store.Dispatch(game.StartTimer{Duration: duration})

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})

	go c.run(runCtx, c.done)

	log.Debug().Int("duration", duration).Msg("timer coordinator started")
}

// Stop halts the countdown and clears the shared timer. Idempotent;
// the ticker is released on every exit path.
func (c *TimerCoordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopLocked() {
		c.store.Dispatch(game.StopTimer{})
	}
}

// Running reports whether this coordinator is driving a countdown.
func (c *TimerCoordinator) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel == nil {
		return false
	}
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

func (c *TimerCoordinator) stopLocked() bool {
	if c.cancel == nil {
		return false
	}
	c.cancel()
	<-c.done
	c.cancel = nil
	c.done = nil
	return true
}

func (c *TimerCoordinator) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := c.clock.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			state := c.store.Dispatch(game.TickTimer{})
			if state.Timer == 0 {
				// The reducer leaves IsTimerRunning alone at zero;
				// clearing it is this coordinator's job.
				c.store.Dispatch(game.StopTimer{})
				return
			}
		}
	}
}
