package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Publisher is what the outbox worker needs from the message bus.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// OutboxConfig holds tuning for the delta relay.
type OutboxConfig struct {
	PollInterval time.Duration
	BatchSize    int
	MaxRetries   int
	RetryDelay   time.Duration
}

// DefaultOutboxConfig returns the default relay settings.
func DefaultOutboxConfig() OutboxConfig {
	return OutboxConfig{
		PollInterval: 5 * time.Second,
		BatchSize:    100,
		MaxRetries:   3,
		RetryDelay:   time.Second,
	}
}

// OutboxWorker relays durably-stored deltas to the bus. Deltas land in
// the outbox in the same transaction as the game update; the worker
// publishes unsent rows in batches so peers that were offline when a
// delta was broadcast live can still replay it.
type OutboxWorker struct {
	db        DB
	publisher Publisher
	subjectFn func(gameID string) string
	config    OutboxConfig

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewOutboxWorker creates a relay worker. subjectFn maps a game ID to
// the bus subject its deltas publish on.
func NewOutboxWorker(db DB, publisher Publisher, subjectFn func(string) string, cfg OutboxConfig) *OutboxWorker {
	return &OutboxWorker{
		db:        db,
		publisher: publisher,
		subjectFn: subjectFn,
		config:    cfg,
		stopChan:  make(chan struct{}),
	}
}

// Start begins polling. Returns an error if already running.
func (w *OutboxWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("outbox worker already running")
	}
	w.running = true
	w.mu.Unlock()

	w.wg.Add(1)
	go w.run(ctx)

	log.Info().
		Dur("poll_interval", w.config.PollInterval).
		Int("batch_size", w.config.BatchSize).
		Msg("outbox worker started")
	return nil
}

// Stop halts polling and waits for the current batch to finish.
func (w *OutboxWorker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return fmt.Errorf("outbox worker not running")
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopChan)
	w.wg.Wait()

	log.Info().Msg("outbox worker stopped")
	return nil
}

func (w *OutboxWorker) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	w.processOutbox(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case <-ticker.C:
			w.processOutbox(ctx)
		}
	}
}

type outboxRow struct {
	ID      uuid.UUID
	GameID  string
	Payload []byte
}

func (w *OutboxWorker) processOutbox(ctx context.Context) {
	tx, err := w.db.Begin(ctx)
	if err != nil {
		log.Error().Err(err).Msg("outbox: begin transaction failed")
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
		SELECT id, game_id, payload FROM session_outbox
		WHERE sent_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED`, w.config.BatchSize)
	if err != nil {
		log.Error().Err(err).Msg("outbox: fetch unsent deltas failed")
		return
	}

	var pending []outboxRow
	for rows.Next() {
		var row outboxRow
		if err := rows.Scan(&row.ID, &row.GameID, &row.Payload); err != nil {
			rows.Close()
			log.Error().Err(err).Msg("outbox: scan failed")
			return
		}
		pending = append(pending, row)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		log.Error().Err(err).Msg("outbox: iterate failed")
		return
	}

	if len(pending) == 0 {
		return
	}

	log.Debug().Int("count", len(pending)).Msg("outbox: processing deltas")

	var sentIDs []uuid.UUID
	for _, row := range pending {
		if err := w.publishWithRetry(ctx, row); err != nil {
			log.Error().
				Err(err).
				Str("delta_id", row.ID.String()).
				Str("game_id", row.GameID).
				Msg("outbox: publish failed")
			continue
		}
		sentIDs = append(sentIDs, row.ID)
	}

	if len(sentIDs) > 0 {
		if _, err := tx.Exec(ctx, `
			UPDATE session_outbox SET sent_at = now()
			WHERE id = ANY($1)`, sentIDs); err != nil {
			log.Error().Err(err).Msg("outbox: mark sent failed")
			return
		}
	}

	if err := tx.Commit(ctx); err != nil {
		log.Error().Err(err).Msg("outbox: commit failed")
		return
	}

	log.Info().
		Int("total", len(pending)).
		Int("sent", len(sentIDs)).
		Msg("outbox: relayed deltas")
}

func (w *OutboxWorker) publishWithRetry(ctx context.Context, row outboxRow) error {
	var lastErr error

	for attempt := 0; attempt <= w.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(w.config.RetryDelay * time.Duration(attempt)):
			}
		}

		if err := w.publisher.Publish(ctx, w.subjectFn(row.GameID), row.Payload); err != nil {
			lastErr = err
			log.Warn().
				Err(err).
				Str("delta_id", row.ID.String()).
				Int("attempt", attempt+1).
				Msg("outbox: publish attempt failed, retrying")
			continue
		}
		return nil
	}

	return fmt.Errorf("publish failed after %d attempts: %w", w.config.MaxRetries+1, lastErr)
}
