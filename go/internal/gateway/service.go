package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
)

// Service is the relay: websocket connections on one side, the session
// bus on the other.
type Service struct {
	connectionManager *ConnectionManager
	handler           *Handler
	bridge            *Bridge
}

// Config holds relay configuration.
type Config struct {
	ConnectionConfig ConnectionConfig
	BridgeConfig     BridgeConfig
}

// DefaultConfig returns relay defaults.
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		BridgeConfig:     DefaultBridgeConfig(),
	}
}

// NewService creates the relay service.
func NewService(config Config) (*Service, error) {
	connectionManager := NewConnectionManager(config.ConnectionConfig)

	bridge, err := NewBridge(connectionManager, config.BridgeConfig)
	if err != nil {
		return nil, fmt.Errorf("create bridge: %w", err)
	}

	return &Service{
		connectionManager: connectionManager,
		handler:           NewHandler(connectionManager),
		bridge:            bridge,
	}, nil
}

// Bridge exposes the bus connection, used by the outbox worker as its
// publisher.
func (s *Service) Bridge() *Bridge {
	return s.bridge
}

// Start runs the relay until ctx is done.
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting session relay")

	go s.connectionManager.Start(ctx)

	<-ctx.Done()

	log.Info().Msg("session relay shutting down")
	s.bridge.Stop()
	return nil
}

// RegisterRoutes registers the relay's HTTP routes.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.handler.RegisterRoutes(mux)
	log.Info().Msg("session relay routes registered")
}
