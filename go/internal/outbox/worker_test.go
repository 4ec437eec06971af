package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hardwood-league/commish/go/internal/storage"
	"github.com/hardwood-league/commish/go/internal/storage/memory"
)

type stubPublisher struct {
	mu        sync.Mutex
	published []storage.OutboxEvent
	failFirst int
}

func (p *stubPublisher) Publish(_ context.Context, event storage.OutboxEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failFirst > 0 {
		p.failFirst--
		return errors.New("bus unavailable")
	}
	p.published = append(p.published, event)
	return nil
}

func (p *stubPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}

func seedEvents(t *testing.T, store *memory.OutboxStore, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, store.Insert(context.Background(), &storage.OutboxEvent{
			ID:         uuid.New(),
			ProposalID: uint64(2000 + i),
			EventType:  "trade.approved",
			Payload:    []byte(`{}`),
			CreatedAt:  time.Now(),
		}))
	}
}

func TestProcessOnce(t *testing.T) {
	store := memory.NewOutboxStore()
	pub := &stubPublisher{}
	w := NewWorker(store, pub, clockwork.NewFakeClock(), DefaultConfig())
	seedEvents(t, store, 3)

	w.ProcessOnce(context.Background())

	assert.Equal(t, 3, pub.count())
	pending, err := store.CountUnsent(context.Background())
	require.NoError(t, err)
	assert.Zero(t, pending)

	processed, _ := w.Stats()
	assert.Equal(t, uint64(3), processed)
}

func TestProcessOnce_AlreadySentSkipped(t *testing.T) {
	store := memory.NewOutboxStore()
	pub := &stubPublisher{}
	w := NewWorker(store, pub, clockwork.NewFakeClock(), DefaultConfig())
	seedEvents(t, store, 2)

	w.ProcessOnce(context.Background())
	w.ProcessOnce(context.Background())

	// A second pass finds nothing unsent; no duplicates go out.
	assert.Equal(t, 2, pub.count())
}

func TestProcessOnce_PublishFailureKeepsEventPending(t *testing.T) {
	store := memory.NewOutboxStore()
	cfg := DefaultConfig()
	cfg.MaxRetries = 0
	pub := &stubPublisher{failFirst: 1}
	w := NewWorker(store, pub, clockwork.NewFakeClock(), cfg)
	seedEvents(t, store, 1)

	w.ProcessOnce(context.Background())

	pending, err := store.CountUnsent(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, pending)

	// The next pass delivers it.
	w.ProcessOnce(context.Background())
	assert.Equal(t, 1, pub.count())
}

func TestWorker_StartStop(t *testing.T) {
	store := memory.NewOutboxStore()
	w := NewWorker(store, &stubPublisher{}, clockwork.NewFakeClock(), DefaultConfig())

	require.NoError(t, w.Start(context.Background()))
	assert.True(t, w.Running())
	assert.Error(t, w.Start(context.Background()))

	require.NoError(t, w.Stop())
	assert.False(t, w.Running())
	assert.Error(t, w.Stop())
}
