package session

import (
	"context"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/AmberMaze/thirty-challenge-code/go/internal/game"
	"github.com/AmberMaze/thirty-challenge-code/go/internal/models"
	"github.com/AmberMaze/thirty-challenge-code/go/internal/realtime"
)

const inboundBuffer = 256

// Persister is what the reconciler needs from the storage layer. Writes
// are fire-and-forget from the caller's point of view: a failed write
// is a warning, never a rollback of applied state.
type Persister interface {
	PersistDelta(ctx context.Context, gameID string, patch models.GameStatePatch) error
}

// Reconciler converges this client's copy with its peers. Inbound
// remote deltas are drained by a single goroutine that applies them
// through the reducer's Init path (field-wise merge, last-write-wins
// per field as processed by this observer). Outbound local deltas are
// drained by a sender goroutine that persists and broadcasts them. The
// state machine itself stays single-threaded; only I/O is concurrent.
type Reconciler struct {
	store     *Store
	channel   realtime.Channel
	persister Persister
	presence  *realtime.PresenceTracker
	self      models.Participant
	clock     clockwork.Clock

	inbound chan game.Init

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// NewReconciler wires a store to a sync channel. persister may be nil
// for clients that do not own storage (the host mobile camera, say).
func NewReconciler(store *Store, presence *realtime.PresenceTracker, persister Persister, self models.Participant) *Reconciler {
	return &Reconciler{
		store:     store,
		persister: persister,
		presence:  presence,
		self:      self,
		clock:     clockwork.NewRealClock(),
		inbound:   make(chan game.Init, inboundBuffer),
	}
}

// Handlers returns the inbound callback surface to hand to the
// transport. Every remote mutation funnels into the inbound channel as
// an Init so application order is whatever this observer received.
func (r *Reconciler) Handlers() realtime.Handlers {
	return realtime.Handlers{
		OnGameStateUpdate: func(m realtime.StateMessage) {
			r.enqueue(game.Init{State: m.Full, Patch: m.Patch})
		},
		OnPlayerJoin: func(m realtime.JoinMessage) {
			r.enqueue(game.Init{Patch: joinPatch(m)})
		},
		OnPlayerLeave: func(m realtime.LeaveMessage) {
			r.enqueue(game.Init{Patch: &models.GameStatePatch{
				Players: map[models.PlayerSlot]models.PlayerPatch{
					m.Slot: {IsConnected: boolPtr(false)},
				},
			}})
			if r.presence != nil {
				r.presence.MarkDisconnected(m.Origin)
			}
		},
		OnHostUpdate: func(m realtime.HostMessage) {
			name := m.Name
			r.enqueue(game.Init{Patch: &models.GameStatePatch{HostName: &name}})
		},
		OnVideoRoomUpdate: func(m realtime.VideoMessage) {
			url, created := m.URL, m.Created
			r.enqueue(game.Init{Patch: &models.GameStatePatch{
				VideoRoomURL:     &url,
				VideoRoomCreated: &created,
			}})
		},
		OnPresence: func(m realtime.PresenceMessage) {
			if r.presence != nil {
				r.presence.Touch(m.Participant)
			}
		},
	}
}

// Bind attaches the transport channel. Must happen before Start.
func (r *Reconciler) Bind(ch realtime.Channel) {
	r.channel = ch
}

// Start runs the reconciliation and sender loops plus the presence
// heartbeat. Idempotent; Stop shuts everything down.
func (r *Reconciler) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.started = true

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(3)
	go r.applyLoop(runCtx, &wg)
	go r.sendLoop(runCtx, &wg)
	go r.heartbeatLoop(runCtx, &wg)
	go func() {
		wg.Wait()
		close(r.done)
	}()
}

// Stop halts the loops. Safe to call repeatedly.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	done := r.done
	r.cancel = nil
	r.started = false
	r.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// AnnounceFullState broadcasts this client's complete state, bringing
// late joiners and reconnecting peers up to date.
func (r *Reconciler) AnnounceFullState() {
	if r.channel != nil {
		r.channel.BroadcastFullState(r.store.State())
	}
}

func (r *Reconciler) enqueue(act game.Init) {
	if act.State == nil && (act.Patch == nil || act.Patch.IsZero()) {
		return
	}
	select {
	case r.inbound <- act:
	default:
		log.Warn().Str("game_id", r.store.State().GameID).Msg("inbound delta buffer full, dropping remote delta")
	}
}

// applyLoop is the single consumer of remote deltas.
func (r *Reconciler) applyLoop(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case act := <-r.inbound:
			r.store.Dispatch(act)
		}
	}
}

// sendLoop drains locally-originated deltas: persist, then broadcast.
// Either failing leaves local state untouched.
func (r *Reconciler) sendLoop(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case patch := <-r.store.Outbound():
			gameID := r.store.State().GameID
			if r.persister != nil {
				if err := r.persister.PersistDelta(ctx, gameID, patch); err != nil {
					log.Warn().Err(err).Str("game_id", gameID).Msg("delta persistence failed, state remains local-first")
				}
			}
			if r.channel != nil {
				r.channel.BroadcastGameState(&patch)
			}
		}
	}
}

// heartbeatLoop renews this participant's presence entry on the wire.
func (r *Reconciler) heartbeatLoop(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	interval := realtime.LivenessWindow / 3
	ticker := r.clock.NewTicker(interval)
	defer ticker.Stop()

	announce := func() {
		p := r.self
		p.Connected = true
		p.LastSeen = r.clock.Now()
		if r.presence != nil {
			r.presence.Touch(p)
		}
		if r.channel != nil {
			r.channel.TrackPresence(p)
		}
	}

	announce()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			announce()
		}
	}
}

func joinPatch(m realtime.JoinMessage) *models.GameStatePatch {
	p := m.Player
	buttons := make(map[models.ButtonKind]bool, len(p.SpecialButtons))
	for k, v := range p.SpecialButtons {
		buttons[k] = v
	}
	return &models.GameStatePatch{
		Players: map[models.PlayerSlot]models.PlayerPatch{
			m.Slot: {
				ID:             &p.ID,
				Name:           &p.Name,
				Score:          &p.Score,
				Strikes:        &p.Strikes,
				SpecialButtons: buttons,
				Flag:           &p.Flag,
				Club:           &p.Club,
				IsConnected:    &p.IsConnected,
			},
		},
	}
}

func boolPtr(b bool) *bool { return &b }
