package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hardwood-league/commish/go/internal/models"
	"github.com/hardwood-league/commish/go/internal/storage"
)

// TradeStore is an in-memory implementation of storage.TradeStore.
type TradeStore struct {
	mu   sync.RWMutex
	data map[uint64]*models.Trade
}

// NewTradeStore creates a new in-memory trade store.
func NewTradeStore() *TradeStore {
	return &TradeStore{data: make(map[uint64]*models.Trade)}
}

var _ storage.TradeStore = (*TradeStore)(nil)

// Insert adds a new trade proposal. Returns ErrDuplicateKey if the
// message id is already tracked.
func (s *TradeStore) Insert(_ context.Context, t *models.Trade) error {
	if t == nil || t.MessageID == 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[t.MessageID]; exists {
		return storage.ErrDuplicateKey
	}

	tradeCopy := *t
	tradeCopy.Movements = append([]models.Movement(nil), t.Movements...)
	s.data[t.MessageID] = &tradeCopy
	return nil
}

// Get retrieves a trade by message id. Returns ErrNotFound if absent.
func (s *TradeStore) Get(_ context.Context, messageID uint64) (*models.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.data[messageID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	tradeCopy := *t
	tradeCopy.Movements = append([]models.Movement(nil), t.Movements...)
	return &tradeCopy, nil
}

// UpdateVotes overwrites the recomputed qualifying vote counts.
func (s *TradeStore) UpdateVotes(_ context.Context, messageID uint64, upvotes, downvotes int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.data[messageID]
	if !exists {
		return storage.ErrNotFound
	}

	t.Upvotes = upvotes
	t.Downvotes = downvotes
	return nil
}

// SetStatus moves the trade to a terminal status.
func (s *TradeStore) SetStatus(_ context.Context, messageID uint64, status models.ProposalStatus, processedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.data[messageID]
	if !exists {
		return storage.ErrNotFound
	}

	t.Status = status
	t.ProcessedAt = &processedAt
	return nil
}

// SetReversed marks the trade as reversed.
func (s *TradeStore) SetReversed(_ context.Context, messageID uint64, reversedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.data[messageID]
	if !exists {
		return storage.ErrNotFound
	}

	t.ReversedAt = &reversedAt
	return nil
}

// SetLastReminder records when the sweep last nudged the committee.
func (s *TradeStore) SetLastReminder(_ context.Context, messageID uint64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.data[messageID]
	if !exists {
		return storage.ErrNotFound
	}

	t.LastReminderSent = &at
	return nil
}

// ListPendingSince returns pending trades with message ids >= floor,
// newest first, capped at limit.
func (s *TradeStore) ListPendingSince(_ context.Context, floor uint64, limit int) ([]models.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.Trade
	for _, t := range s.data {
		if t.Status != models.ProposalStatusPending || t.MessageID < floor {
			continue
		}
		tradeCopy := *t
		tradeCopy.Movements = append([]models.Movement(nil), t.Movements...)
		result = append(result, tradeCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].MessageID > result[j].MessageID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
