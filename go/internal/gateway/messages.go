package gateway

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MessageType tags a websocket envelope with the session subject it
// maps to on the bus.
type MessageType string

const (
	MessageState    MessageType = "state"
	MessageJoin     MessageType = "join"
	MessageLeave    MessageType = "leave"
	MessageHost     MessageType = "host"
	MessageVideo    MessageType = "video"
	MessagePresence MessageType = "presence"
)

var messageTypes = map[MessageType]bool{
	MessageState:    true,
	MessageJoin:     true,
	MessageLeave:    true,
	MessageHost:     true,
	MessageVideo:    true,
	MessagePresence: true,
}

// Envelope is the websocket wire frame between a client and the relay.
// Data carries the realtime message payload opaquely; the relay only
// routes, it never interprets deltas.
type Envelope struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Subject returns the bus subject an envelope publishes on.
func (e Envelope) Subject(gameID string) (string, error) {
	if !messageTypes[e.Type] {
		return "", fmt.Errorf("unknown message type %q", e.Type)
	}
	return fmt.Sprintf("session.%s.%s", gameID, e.Type), nil
}

// typeFromSubject maps a bus subject back to the envelope type.
func typeFromSubject(subject string) (MessageType, bool) {
	idx := strings.LastIndexByte(subject, '.')
	if idx < 0 {
		return "", false
	}
	mt := MessageType(subject[idx+1:])
	return mt, messageTypes[mt]
}
