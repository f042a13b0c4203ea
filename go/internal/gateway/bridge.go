package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// BridgeConfig holds NATS settings for the relay bridge.
type BridgeConfig struct {
	URL           string
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultBridgeConfig returns settings for a local bus.
func DefaultBridgeConfig() BridgeConfig {
	return BridgeConfig{
		URL:           nats.DefaultURL,
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

// Bridge connects the websocket relay to the session bus: envelopes
// from clients publish to the session's subjects, and bus traffic fans
// back out to the session's connections. One wildcard subscription per
// session with at least one connected client.
type Bridge struct {
	connectionManager *ConnectionManager
	nc                *nats.Conn
	config            BridgeConfig

	mu   sync.Mutex
	subs map[string]*nats.Subscription
}

// NewBridge dials the bus and wires itself into the connection manager.
func NewBridge(cm *ConnectionManager, config BridgeConfig) (*Bridge, error) {
	opts := []nats.Option{
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("bridge disconnected from bus")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("bridge reconnected to bus")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	b := &Bridge{
		connectionManager: cm,
		nc:                nc,
		config:            config,
		subs:              make(map[string]*nats.Subscription),
	}

	cm.SetInboundHandler(b.publishInbound)
	cm.SetSessionHooks(b.subscribeSession, b.unsubscribeSession)

	return b, nil
}

// Publish satisfies the outbox worker's Publisher.
func (b *Bridge) Publish(ctx context.Context, subject string, data []byte) error {
	return b.nc.Publish(subject, data)
}

// Stop releases every session subscription and the bus connection.
func (b *Bridge) Stop() {
	b.mu.Lock()
	for gameID, sub := range b.subs {
		if err := sub.Unsubscribe(); err != nil {
			log.Warn().Err(err).Str("game_id", gameID).Msg("bridge unsubscribe failed")
		}
	}
	b.subs = make(map[string]*nats.Subscription)
	b.mu.Unlock()

	if b.nc != nil {
		b.nc.Close()
	}
	log.Info().Msg("bridge stopped")
}

// publishInbound relays one client envelope onto the bus. The envelope
// payload already carries its origin, so peers connected to other relay
// instances and the clients on this one all converge the same way.
func (b *Bridge) publishInbound(gameID string, env Envelope) {
	subject, err := env.Subject(gameID)
	if err != nil {
		log.Warn().Err(err).Str("game_id", gameID).Msg("dropping unroutable envelope")
		return
	}
	if err := b.nc.Publish(subject, env.Data); err != nil {
		log.Warn().
			Err(err).
			Str("subject", subject).
			Msg("bus publish failed; connected clients already received nothing")
	}
}

// subscribeSession starts fanning bus traffic to a session's clients.
func (b *Bridge) subscribeSession(gameID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subs[gameID]; exists {
		return
	}

	subject := fmt.Sprintf("session.%s.>", gameID)
	sub, err := b.nc.Subscribe(subject, func(msg *nats.Msg) {
		mt, ok := typeFromSubject(msg.Subject)
		if !ok {
			return
		}
		b.connectionManager.BroadcastToSession(gameID, Envelope{
			Type: mt,
			Data: msg.Data,
		})
	})
	if err != nil {
		log.Error().Err(err).Str("game_id", gameID).Msg("session subscribe failed")
		return
	}

	b.subs[gameID] = sub
	log.Info().Str("game_id", gameID).Msg("bridge subscribed session")
}

// unsubscribeSession stops fan-out once a session has no clients left.
func (b *Bridge) unsubscribeSession(gameID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, exists := b.subs[gameID]; exists {
		if err := sub.Unsubscribe(); err != nil {
			log.Warn().Err(err).Str("game_id", gameID).Msg("session unsubscribe failed")
		}
		delete(b.subs, gameID)
		log.Info().Str("game_id", gameID).Msg("bridge unsubscribed idle session")
	}
}
