package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/AmberMaze/thirty-challenge-code/go/internal/models"
)

// LivenessWindow is how long a participant stays live without a
// presence renewal. Fixed policy constant; missing it is a status
// change, not an error.
const LivenessWindow = 30 * time.Second

// PresenceTracker maintains the liveness registry for one session:
// participant id -> kind, name, connected flag, last-seen. Touch renews
// an entry; the sweep loop downgrades entries that miss the liveness
// window.
type PresenceTracker struct {
	clock  clockwork.Clock
	window time.Duration

	mu      sync.RWMutex
	entries map[string]models.Participant
}

// NewPresenceTracker creates a tracker on the real clock.
func NewPresenceTracker() *PresenceTracker {
	return NewPresenceTrackerWithClock(clockwork.NewRealClock(), LivenessWindow)
}

// NewPresenceTrackerWithClock creates a tracker on an explicit clock,
// used by tests with a fake clock.
func NewPresenceTrackerWithClock(clock clockwork.Clock, window time.Duration) *PresenceTracker {
	return &PresenceTracker{
		clock:   clock,
		window:  window,
		entries: make(map[string]models.Participant),
	}
}

// Touch renews (or creates) a participant entry with the current time.
func (t *PresenceTracker) Touch(p models.Participant) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p.LastSeen = t.clock.Now()
	t.entries[p.ID] = p
}

// MarkDisconnected downgrades a participant without removing it.
func (t *PresenceTracker) MarkDisconnected(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if p, ok := t.entries[id]; ok {
		p.Connected = false
		t.entries[id] = p
	}
}

// Get returns one participant entry.
func (t *PresenceTracker) Get(id string) (models.Participant, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	p, ok := t.entries[id]
	return p, ok
}

// Participants returns a snapshot of the registry.
func (t *PresenceTracker) Participants() []models.Participant {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]models.Participant, 0, len(t.entries))
	for _, p := range t.entries {
		out = append(out, p)
	}
	return out
}

// HostConnected is the derived signal: true while at least one
// host-kind participant is inside the liveness window and reported
// connected by the video collaborator. It is computed on demand and
// never stored.
func (t *PresenceTracker) HostConnected() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	now := t.clock.Now()
	for _, p := range t.entries {
		if p.Kind.IsHost() && p.Connected && now.Sub(p.LastSeen) <= t.window {
			return true
		}
	}
	return false
}

// Run sweeps the registry until ctx is done, downgrading participants
// whose renewals stopped.
func (t *PresenceTracker) Run(ctx context.Context) {
	ticker := t.clock.NewTicker(t.window / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			t.sweep()
		}
	}
}

func (t *PresenceTracker) sweep() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.Now()
	for id, p := range t.entries {
		if p.Connected && now.Sub(p.LastSeen) > t.window {
			p.Connected = false
			t.entries[id] = p
			log.Debug().
				Str("participant_id", id).
				Str("kind", string(p.Kind)).
				Msg("participant missed liveness window, marked disconnected")
		}
	}
}
