package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hardwood-league/commish/go/internal/storage"
)

// OutboxStore is an in-memory implementation of storage.OutboxStore.
type OutboxStore struct {
	mu   sync.RWMutex
	data map[uuid.UUID]*storage.OutboxEvent
}

// NewOutboxStore creates a new in-memory outbox store.
func NewOutboxStore() *OutboxStore {
	return &OutboxStore{data: make(map[uuid.UUID]*storage.OutboxEvent)}
}

var _ storage.OutboxStore = (*OutboxStore)(nil)

// Insert adds a pending event. Returns ErrDuplicateKey if the id exists.
func (s *OutboxStore) Insert(_ context.Context, e *storage.OutboxEvent) error {
	if e == nil || e.ID == uuid.Nil || e.EventType == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[e.ID]; exists {
		return storage.ErrDuplicateKey
	}

	eventCopy := *e
	eventCopy.Payload = append([]byte(nil), e.Payload...)
	s.data[e.ID] = &eventCopy
	return nil
}

// FetchUnsent returns unsent events oldest first, capped at limit.
func (s *OutboxStore) FetchUnsent(_ context.Context, limit int) ([]storage.OutboxEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []storage.OutboxEvent
	for _, e := range s.data {
		if e.SentAt != nil {
			continue
		}
		eventCopy := *e
		eventCopy.Payload = append([]byte(nil), e.Payload...)
		result = append(result, eventCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// MarkSent stamps the given events as published.
func (s *OutboxStore) MarkSent(_ context.Context, ids []uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		e, exists := s.data[id]
		if !exists {
			return storage.ErrNotFound
		}
		sentAt := at
		e.SentAt = &sentAt
	}
	return nil
}

// CountUnsent returns the number of pending events.
func (s *OutboxStore) CountUnsent(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, e := range s.data {
		if e.SentAt == nil {
			count++
		}
	}
	return count, nil
}
