package models

import "time"

// ParticipantKind identifies which of the four clients a participant is.
type ParticipantKind string

const (
	KindHostDesktop ParticipantKind = "host-desktop"
	KindHostMobile  ParticipantKind = "host-mobile"
	KindPlayerA     ParticipantKind = "playerA"
	KindPlayerB     ParticipantKind = "playerB"
)

// IsHost reports whether the kind is one of the two host clients.
func (k ParticipantKind) IsHost() bool {
	return k == KindHostDesktop || k == KindHostMobile
}

// Participant describes the liveness of one connected client as
// observed by its peers.
type Participant struct {
	ID        string          `json:"id"`
	Kind      ParticipantKind `json:"kind"`
	Name      string          `json:"name"`
	Connected bool            `json:"connected"`
	LastSeen  time.Time       `json:"last_seen"`
}
