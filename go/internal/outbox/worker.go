package outbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/hardwood-league/commish/go/internal/storage"
)

// Config holds the poll worker settings.
type Config struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	BatchSize    int           `yaml:"batch_size"`
	MaxRetries   int           `yaml:"max_retries"`
	RetryDelay   time.Duration `yaml:"retry_delay"`
}

// DefaultConfig returns the standard worker settings.
func DefaultConfig() Config {
	return Config{
		PollInterval: 5 * time.Second,
		BatchSize:    100,
		MaxRetries:   3,
		RetryDelay:   time.Second,
	}
}

// Worker polls the outbox for unsent events and publishes them. It is
// the fallback delivery path; the Listener is the realtime one. Both
// can run at once because MarkSent is idempotent and the publisher
// deduplicates by event id.
type Worker struct {
	store     storage.OutboxStore
	publisher Publisher
	clock     clockwork.Clock
	config    Config

	mu        sync.Mutex
	running   bool
	processed uint64
	lastEvent time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
}

// NewWorker creates an outbox poll worker.
func NewWorker(store storage.OutboxStore, publisher Publisher, clock clockwork.Clock, config Config) *Worker {
	return &Worker{
		store:     store,
		publisher: publisher,
		clock:     clock,
		config:    config,
		stopChan:  make(chan struct{}),
	}
}

// Start launches the poll loop.
func (w *Worker) Start(ctx context.Context) error {
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

// Stop halts the poll loop and waits for it to finish.
func (w *Worker) Stop() error {
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

// Stats returns how many events this worker has published and when the
// last one went out.
func (w *Worker) Stats() (uint64, time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.processed, w.lastEvent
}

// Running reports whether the poll loop is active.
func (w *Worker) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := w.clock.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	// Drain whatever accumulated while we were down.
	w.ProcessOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case <-ticker.Chan():
			w.ProcessOnce(ctx)
		}
	}
}

// ProcessOnce publishes one batch of unsent events.
func (w *Worker) ProcessOnce(ctx context.Context) {
	events, err := w.store.FetchUnsent(ctx, w.config.BatchSize)
	if err != nil {
		log.Error().Err(err).Msg("failed to fetch unsent events")
		return
	}
	if len(events) == 0 {
		return
	}

	var sent []uuid.UUID
	for _, event := range events {
		if err := w.publishWithRetry(ctx, event); err != nil {
			log.Error().
				Err(err).
				Str("event_id", event.ID.String()).
				Str("event_type", event.EventType).
				Msg("failed to publish event")
			continue
		}
		sent = append(sent, event.ID)
	}

	if len(sent) > 0 {
		if err := w.store.MarkSent(ctx, sent, w.clock.Now()); err != nil {
			log.Error().Err(err).Msg("failed to mark events as sent")
			return
		}
		w.mu.Lock()
		w.processed += uint64(len(sent))
		w.lastEvent = w.clock.Now()
		w.mu.Unlock()
	}

	log.Info().
		Int("total", len(events)).
		Int("successful", len(sent)).
		Msg("processed outbox events")
}

func (w *Worker) publishWithRetry(ctx context.Context, event storage.OutboxEvent) error {
	var lastErr error
	for attempt := 0; attempt <= w.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-w.clock.After(w.config.RetryDelay * time.Duration(attempt)):
			}
		}

		if err := w.publisher.Publish(ctx, event); err != nil {
			lastErr = err
			log.Warn().
				Err(err).
				Str("event_id", event.ID.String()).
				Int("attempt", attempt+1).
				Msg("failed to publish event, retrying")
			continue
		}
		return nil
	}
	return fmt.Errorf("failed after %d attempts: %w", w.config.MaxRetries+1, lastErr)
}
