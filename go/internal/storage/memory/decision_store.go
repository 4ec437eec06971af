package memory

import (
	"context"
	"sync"

	"github.com/hardwood-league/commish/go/internal/models"
	"github.com/hardwood-league/commish/go/internal/storage"
)

// DecisionStore is an in-memory implementation of storage.DecisionStore.
type DecisionStore struct {
	mu   sync.RWMutex
	data map[uint64]*models.DecisionRecord
}

// NewDecisionStore creates a new in-memory decision store.
func NewDecisionStore() *DecisionStore {
	return &DecisionStore{data: make(map[uint64]*models.DecisionRecord)}
}

var _ storage.DecisionStore = (*DecisionStore)(nil)

// Insert records a terminal decision. Returns ErrDuplicateKey if a row
// already exists for the proposal id.
func (s *DecisionStore) Insert(_ context.Context, d *models.DecisionRecord) error {
	if d == nil || d.ProposalID == 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[d.ProposalID]; exists {
		return storage.ErrDuplicateKey
	}

	recordCopy := *d
	s.data[d.ProposalID] = &recordCopy
	return nil
}

// Get retrieves a decision row. Returns ErrNotFound if absent.
func (s *DecisionStore) Get(_ context.Context, proposalID uint64) (*models.DecisionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, exists := s.data[proposalID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	recordCopy := *d
	return &recordCopy, nil
}

// Exists reports whether a decision row exists for the proposal id.
func (s *DecisionStore) Exists(_ context.Context, proposalID uint64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.data[proposalID]
	return exists, nil
}

// SetApplied updates whether the roster/ledger mutation landed.
func (s *DecisionStore) SetApplied(_ context.Context, proposalID uint64, applied bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, exists := s.data[proposalID]
	if !exists {
		return storage.ErrNotFound
	}

	d.Applied = applied
	return nil
}

// SetReversed marks the decision as reversed.
func (s *DecisionStore) SetReversed(_ context.Context, proposalID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, exists := s.data[proposalID]
	if !exists {
		return storage.ErrNotFound
	}

	d.Reversed = true
	return nil
}
