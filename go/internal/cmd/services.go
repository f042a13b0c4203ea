package main

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/AmberMaze/thirty-challenge-code/go/internal/api"
	"github.com/AmberMaze/thirty-challenge-code/go/internal/gateway"
	"github.com/AmberMaze/thirty-challenge-code/go/internal/realtime"
	"github.com/AmberMaze/thirty-challenge-code/go/internal/store"
	"github.com/AmberMaze/thirty-challenge-code/go/internal/video"
)

// Services holds every long-lived component of the relay server.
type Services struct {
	Repository *store.Repository
	Outbox     *store.OutboxWorker
	Relay      *gateway.Service
	Video      *video.Client
	API        *api.Handler
}

func setupServices(config *Config, pool *pgxpool.Pool) (*Services, error) {
	repository := store.NewRepository(pool)

	relayConfig := gateway.DefaultConfig()
	relayConfig.BridgeConfig.URL = config.NATS.URL
	relay, err := gateway.NewService(relayConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create relay: %w", err)
	}

	// The bridge's bus connection doubles as the outbox publisher;
	// replayed deltas land on the same state subject live deltas use.
	outbox := store.NewOutboxWorker(pool, relay.Bridge(), realtime.StateSubject, store.DefaultOutboxConfig())

	videoClient := video.NewClient(config.Video.BaseURL, config.Video.APIKey)

	return &Services{
		Repository: repository,
		Outbox:     outbox,
		Relay:      relay,
		Video:      videoClient,
		API:        api.NewHandler(repository, videoClient, relay.Bridge()),
	}, nil
}
