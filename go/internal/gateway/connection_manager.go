package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/AmberMaze/thirty-challenge-code/go/internal/models"
)

// ConnectionManager manages the websocket connections of every live
// session. Each session has at most four clients (two host consoles and
// two players); the manager fans inbound envelopes up to the bus and
// bus traffic back down to each session's connections.
type ConnectionManager struct {
	sessionConnections map[string]map[*Connection]bool
	mu                 sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig

	broadcastCh chan BroadcastMessage

	// onInbound receives every envelope a client sends; the bridge
	// publishes them to the session's bus subjects.
	onInbound func(gameID string, env Envelope)

	// Session lifecycle callbacks for the bus bridge.
	onSessionActive func(gameID string)
	onSessionIdle   func(gameID string)
}

// Connection is one client's websocket attachment to a session.
type Connection struct {
	ID       string
	ClientID string
	Kind     models.ParticipantKind
	GameID   string
	Conn     *websocket.Conn
	Send     chan []byte
	Manager  *ConnectionManager

	ConnectedAt time.Time
	LastPing    time.Time
}

// ConnectionConfig holds websocket tuning for the relay.
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// BroadcastMessage targets one session, optionally one client.
type BroadcastMessage struct {
	GameID   string
	Envelope Envelope
	ClientID string // if set, only this client receives it
}

// DefaultConnectionConfig returns relay defaults. Deltas are small;
// 16KB covers a full-state announcement comfortably.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  16 * 1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// NewConnectionManager creates a relay connection manager.
func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	return &ConnectionManager{
		sessionConnections: make(map[string]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan BroadcastMessage, 1000),
	}
}

// SetInboundHandler registers the callback for client-originated
// envelopes. Must be set before connections arrive.
func (cm *ConnectionManager) SetInboundHandler(fn func(gameID string, env Envelope)) {
	cm.onInbound = fn
}

// SetSessionHooks registers callbacks fired when a session gains its
// first connection and loses its last one.
func (cm *ConnectionManager) SetSessionHooks(active, idle func(gameID string)) {
	cm.onSessionActive = active
	cm.onSessionIdle = idle
}

// Start processes broadcast messages until ctx is done.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			return
		case message := <-cm.broadcastCh:
			cm.handleBroadcast(message)
		}
	}
}

// UpgradeConnection upgrades an HTTP request to a session websocket.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, gameID, clientID string, kind models.ParticipantKind) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade websocket connection")
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		ClientID:    clientID,
		Kind:        kind,
		GameID:      gameID,
		Conn:        conn,
		Send:        make(chan []byte, 256),
		Manager:     cm,
		ConnectedAt: time.Now(),
		LastPing:    time.Now(),
	}

	cm.registerConnection(connection)

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("client_id", clientID).
		Str("kind", string(kind)).
		Str("game_id", gameID).
		Msg("websocket connection established")
	return nil
}

func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	first := cm.sessionConnections[conn.GameID] == nil
	if first {
		cm.sessionConnections[conn.GameID] = make(map[*Connection]bool)
	}
	cm.sessionConnections[conn.GameID][conn] = true
	total := len(cm.sessionConnections[conn.GameID])
	cm.mu.Unlock()

	if first && cm.onSessionActive != nil {
		cm.onSessionActive(conn.GameID)
	}

	log.Debug().
		Str("connection_id", conn.ID).
		Str("game_id", conn.GameID).
		Int("total_connections", total).
		Msg("connection registered")
}

func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	var idle bool
	if connections, exists := cm.sessionConnections[conn.GameID]; exists {
		if _, exists := connections[conn]; exists {
			delete(connections, conn)
			close(conn.Send)

			if len(connections) == 0 {
				delete(cm.sessionConnections, conn.GameID)
				idle = true
			}

			log.Info().
				Str("connection_id", conn.ID).
				Str("client_id", conn.ClientID).
				Str("game_id", conn.GameID).
				Msg("connection unregistered")
		}
	}
	cm.mu.Unlock()

	if idle && cm.onSessionIdle != nil {
		cm.onSessionIdle(conn.GameID)
	}
}

// BroadcastToSession queues an envelope for every client of a session.
func (cm *ConnectionManager) BroadcastToSession(gameID string, env Envelope) {
	select {
	case cm.broadcastCh <- BroadcastMessage{GameID: gameID, Envelope: env}:
	default:
		log.Warn().Str("game_id", gameID).Msg("broadcast channel full, dropping message")
	}
}

// BroadcastToClient queues an envelope for one client of a session.
func (cm *ConnectionManager) BroadcastToClient(gameID, clientID string, env Envelope) {
	select {
	case cm.broadcastCh <- BroadcastMessage{GameID: gameID, Envelope: env, ClientID: clientID}:
	default:
		log.Warn().
			Str("game_id", gameID).
			Str("client_id", clientID).
			Msg("broadcast channel full, dropping client message")
	}
}

func (cm *ConnectionManager) handleBroadcast(message BroadcastMessage) {
	cm.mu.RLock()
	connections, exists := cm.sessionConnections[message.GameID]
	if !exists {
		cm.mu.RUnlock()
		return
	}

	var targets []*Connection
	for conn := range connections {
		if message.ClientID != "" && conn.ClientID != message.ClientID {
			continue
		}
		targets = append(targets, conn)
	}
	cm.mu.RUnlock()

	data, err := json.Marshal(message.Envelope)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal envelope for broadcast")
		return
	}

	for _, conn := range targets {
		select {
		case conn.Send <- data:
		default:
			// Slow or dead client; evict rather than stall the session.
			log.Warn().
				Str("connection_id", conn.ID).
				Str("client_id", conn.ClientID).
				Msg("connection send buffer full, closing connection")
			cm.unregisterConnection(conn)
			conn.Conn.Close()
		}
	}

	log.Debug().
		Str("type", string(message.Envelope.Type)).
		Str("game_id", message.GameID).
		Int("connections", len(targets)).
		Msg("envelope broadcast to session")
}

// Stats returns counts of active sessions and connections.
func (cm *ConnectionManager) Stats() (totalConnections, activeSessions int) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	for _, connections := range cm.sessionConnections {
		totalConnections += len(connections)
	}
	return totalConnections, len(cm.sessionConnections)
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to websocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
			c.LastPing = time.Now()
		}
	}
}

func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		c.LastPing = time.Now()
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected websocket close error")
			}
			break
		}

		c.handleClientMessage(message)
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}

// handleClientMessage forwards one client envelope to the bus bridge.
func (c *Connection) handleClientMessage(message []byte) {
	var env Envelope
	if err := json.Unmarshal(message, &env); err != nil {
		log.Warn().
			Err(err).
			Str("connection_id", c.ID).
			Msg("dropping malformed client envelope")
		return
	}
	if !messageTypes[env.Type] {
		log.Warn().
			Str("connection_id", c.ID).
			Str("type", string(env.Type)).
			Msg("dropping client envelope of unknown type")
		return
	}
	if c.Manager.onInbound != nil {
		c.Manager.onInbound(c.GameID, env)
	}
}
