package realtime

import (
	"context"

	"github.com/AmberMaze/thirty-challenge-code/go/internal/models"
)

// StateMessage announces a state change. Exactly one of Full and Patch
// is set: Full for wholesale replacement (load, reset), Patch for the
// usual fine-grained delta.
type StateMessage struct {
	Origin string                 `json:"origin"`
	Full   *models.GameState      `json:"full,omitempty"`
	Patch  *models.GameStatePatch `json:"patch,omitempty"`
}

// JoinMessage announces a player taking a slot.
type JoinMessage struct {
	Origin string            `json:"origin"`
	Slot   models.PlayerSlot `json:"slot"`
	Player models.Player     `json:"player"`
}

// LeaveMessage announces a participant going away.
type LeaveMessage struct {
	Origin string            `json:"origin"`
	Slot   models.PlayerSlot `json:"slot"`
}

// HostMessage announces a host display-name change.
type HostMessage struct {
	Origin string `json:"origin"`
	Name   string `json:"name"`
}

// VideoMessage forwards the opaque video-room fields.
type VideoMessage struct {
	Origin  string `json:"origin"`
	URL     string `json:"url"`
	Created bool   `json:"created"`
}

// PresenceMessage is a fire-and-forget liveness announcement.
type PresenceMessage struct {
	Origin      string             `json:"origin"`
	Participant models.Participant `json:"participant"`
}

// Handlers is the inbound callback surface the transport invokes on
// delivery. Nil handlers are skipped. Handlers never see messages this
// client originated.
type Handlers struct {
	OnGameStateUpdate func(StateMessage)
	OnPlayerJoin      func(JoinMessage)
	OnPlayerLeave     func(LeaveMessage)
	OnHostUpdate      func(HostMessage)
	OnVideoRoomUpdate func(VideoMessage)
	OnPresence        func(PresenceMessage)
}

// Channel moves locally-applied mutations to peers and peer mutations
// in. Delivery is at-least-once with per-origin FIFO only; receivers
// must be idempotent. Broadcast operations are fire-and-forget:
// transport failures surface as logged warnings and never roll back
// local state.
type Channel interface {
	// Connect subscribes the channel; idempotent. A failed Connect
	// leaves no subscriptions behind.
	Connect(ctx context.Context) error
	// Disconnect releases every subscription the channel created, even
	// after a partially failed Connect; idempotent.
	Disconnect()

	BroadcastGameState(patch *models.GameStatePatch)
	BroadcastFullState(state models.GameState)
	BroadcastPlayerJoin(slot models.PlayerSlot, player models.Player)
	BroadcastPlayerLeave(slot models.PlayerSlot)
	BroadcastHostUpdate(name string)
	BroadcastVideoRoom(url string, created bool)
	TrackPresence(p models.Participant)
}
