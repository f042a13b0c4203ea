package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/AmberMaze/thirty-challenge-code/go/internal/models"
)

// NATSConfig holds connection settings for the NATS-backed channel.
type NATSConfig struct {
	URL           string
	GameID        string
	ClientID      string
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultNATSConfig returns settings suitable for a local bus.
func DefaultNATSConfig(gameID, clientID string) NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		GameID:        gameID,
		ClientID:      clientID,
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

// NATSChannel implements Channel over core NATS subjects. Messages this
// client published are filtered out before handlers run, so handlers
// only ever see peer-originated traffic.
type NATSChannel struct {
	config   NATSConfig
	handlers Handlers

	mu        sync.Mutex
	nc        *nats.Conn
	subs      []*nats.Subscription
	connected bool
}

// NewNATSChannel creates a channel for one session participant.
func NewNATSChannel(config NATSConfig, handlers Handlers) *NATSChannel {
	return &NATSChannel{
		config:   config,
		handlers: handlers,
	}
}

// Connect dials the bus and subscribes to every session subject.
// Idempotent; on partial failure all subscriptions created so far are
// released before the error is returned.
func (c *NATSChannel) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return nil
	}

	opts := []nats.Option{
		nats.MaxReconnects(c.config.MaxReconnects),
		nats.ReconnectWait(c.config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn().Err(err).Str("game_id", c.config.GameID).Msg("sync channel disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("sync channel reconnected")
		}),
	}

	nc, err := nats.Connect(c.config.URL, opts...)
	if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}

	subjects := SessionSubjects(c.config.GameID)
	callbacks := []nats.MsgHandler{
		c.handleState, c.handleJoin, c.handleLeave,
		c.handleHost, c.handleVideo, c.handlePresence,
	}

	var subs []*nats.Subscription
	for i, subject := range subjects {
		sub, err := nc.Subscribe(subject, callbacks[i])
		if err != nil {
			for _, s := range subs {
				_ = s.Unsubscribe()
			}
			nc.Close()
			return fmt.Errorf("subscribe %s: %w", subject, err)
		}
		subs = append(subs, sub)
	}

	c.nc = nc
	c.subs = subs
	c.connected = true

	log.Info().
		Str("game_id", c.config.GameID).
		Str("client_id", c.config.ClientID).
		Msg("sync channel connected")
	return nil
}

// Disconnect releases every subscription and closes the connection.
// Safe to call repeatedly and after a failed Connect.
func (c *NATSChannel) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, sub := range c.subs {
		if err := sub.Unsubscribe(); err != nil {
			log.Warn().Err(err).Msg("unsubscribe failed during disconnect")
		}
	}
	c.subs = nil

	if c.nc != nil {
		c.nc.Close()
		c.nc = nil
	}
	c.connected = false

	log.Info().
		Str("game_id", c.config.GameID).
		Str("client_id", c.config.ClientID).
		Msg("sync channel disconnected")
}

// BroadcastGameState announces a delta to peers.
func (c *NATSChannel) BroadcastGameState(patch *models.GameStatePatch) {
	if patch == nil || patch.IsZero() {
		return
	}
	c.publish(StateSubject(c.config.GameID), StateMessage{
		Origin: c.config.ClientID,
		Patch:  patch,
	})
}

// BroadcastFullState announces a wholesale replacement (load or reset).
func (c *NATSChannel) BroadcastFullState(state models.GameState) {
	c.publish(StateSubject(c.config.GameID), StateMessage{
		Origin: c.config.ClientID,
		Full:   &state,
	})
}

// BroadcastPlayerJoin announces one player taking a slot.
func (c *NATSChannel) BroadcastPlayerJoin(slot models.PlayerSlot, player models.Player) {
	c.publish(fmt.Sprintf(subjectJoin, c.config.GameID), JoinMessage{
		Origin: c.config.ClientID,
		Slot:   slot,
		Player: player,
	})
}

// BroadcastPlayerLeave announces a participant going away.
func (c *NATSChannel) BroadcastPlayerLeave(slot models.PlayerSlot) {
	c.publish(fmt.Sprintf(subjectLeave, c.config.GameID), LeaveMessage{
		Origin: c.config.ClientID,
		Slot:   slot,
	})
}

// BroadcastHostUpdate announces a host name change.
func (c *NATSChannel) BroadcastHostUpdate(name string) {
	c.publish(fmt.Sprintf(subjectHost, c.config.GameID), HostMessage{
		Origin: c.config.ClientID,
		Name:   name,
	})
}

// BroadcastVideoRoom forwards the opaque video-room fields to peers.
func (c *NATSChannel) BroadcastVideoRoom(url string, created bool) {
	c.publish(fmt.Sprintf(subjectVideo, c.config.GameID), VideoMessage{
		Origin:  c.config.ClientID,
		URL:     url,
		Created: created,
	})
}

// TrackPresence is a fire-and-forget liveness announcement.
func (c *NATSChannel) TrackPresence(p models.Participant) {
	c.publish(fmt.Sprintf(subjectPresence, c.config.GameID), PresenceMessage{
		Origin:      c.config.ClientID,
		Participant: p,
	})
}

// publish marshals and sends one message. Failures are warnings: the
// local mutation already applied and stays authoritative.
func (c *NATSChannel) publish(subject string, payload any) {
	c.mu.Lock()
	nc := c.nc
	c.mu.Unlock()

	if nc == nil {
		log.Warn().Str("subject", subject).Msg("broadcast dropped: channel not connected")
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		log.Warn().Err(err).Str("subject", subject).Msg("broadcast dropped: marshal failed")
		return
	}
	if err := nc.Publish(subject, data); err != nil {
		log.Warn().Err(err).Str("subject", subject).Msg("broadcast failed")
	}
}

func (c *NATSChannel) handleState(msg *nats.Msg) {
	var m StateMessage
	if !c.decode(msg, &m) || m.Origin == c.config.ClientID {
		return
	}
	if c.handlers.OnGameStateUpdate != nil {
		c.handlers.OnGameStateUpdate(m)
	}
}

func (c *NATSChannel) handleJoin(msg *nats.Msg) {
	var m JoinMessage
	if !c.decode(msg, &m) || m.Origin == c.config.ClientID {
		return
	}
	if c.handlers.OnPlayerJoin != nil {
		c.handlers.OnPlayerJoin(m)
	}
}

func (c *NATSChannel) handleLeave(msg *nats.Msg) {
	var m LeaveMessage
	if !c.decode(msg, &m) || m.Origin == c.config.ClientID {
		return
	}
	if c.handlers.OnPlayerLeave != nil {
		c.handlers.OnPlayerLeave(m)
	}
}

func (c *NATSChannel) handleHost(msg *nats.Msg) {
	var m HostMessage
	if !c.decode(msg, &m) || m.Origin == c.config.ClientID {
		return
	}
	if c.handlers.OnHostUpdate != nil {
		c.handlers.OnHostUpdate(m)
	}
}

func (c *NATSChannel) handleVideo(msg *nats.Msg) {
	var m VideoMessage
	if !c.decode(msg, &m) || m.Origin == c.config.ClientID {
		return
	}
	if c.handlers.OnVideoRoomUpdate != nil {
		c.handlers.OnVideoRoomUpdate(m)
	}
}

func (c *NATSChannel) handlePresence(msg *nats.Msg) {
	var m PresenceMessage
	if !c.decode(msg, &m) || m.Origin == c.config.ClientID {
		return
	}
	if c.handlers.OnPresence != nil {
		c.handlers.OnPresence(m)
	}
}

func (c *NATSChannel) decode(msg *nats.Msg, v any) bool {
	if err := json.Unmarshal(msg.Data, v); err != nil {
		log.Warn().Err(err).Str("subject", msg.Subject).Msg("dropping malformed session message")
		return false
	}
	return true
}
