package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/hardwood-league/commish/go/internal/models"
	"github.com/hardwood-league/commish/go/internal/storage"
)

// CoinStore is an in-memory implementation of storage.CoinStore.
type CoinStore struct {
	mu   sync.RWMutex
	data map[string]*models.TeamCoins
}

// NewCoinStore creates a new in-memory coin store.
func NewCoinStore() *CoinStore {
	return &CoinStore{data: make(map[string]*models.TeamCoins)}
}

var _ storage.CoinStore = (*CoinStore)(nil)

// Get retrieves a team's balance. Returns ErrNotFound if absent.
func (s *CoinStore) Get(_ context.Context, team string) (*models.TeamCoins, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tc, exists := s.data[team]
	if !exists {
		return nil, storage.ErrNotFound
	}

	coinsCopy := *tc
	return &coinsCopy, nil
}

// Upsert creates or replaces a team's balance row.
func (s *CoinStore) Upsert(_ context.Context, tc *models.TeamCoins) error {
	if tc == nil || tc.Team == "" || tc.CoinsRemaining < 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	coinsCopy := *tc
	s.data[tc.Team] = &coinsCopy
	return nil
}

// Adjust atomically adds delta to the balance. The balance never goes
// negative; a shortfall returns ErrInsufficientBalance without mutating.
func (s *CoinStore) Adjust(_ context.Context, team string, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tc, exists := s.data[team]
	if !exists {
		return 0, storage.ErrNotFound
	}

	next := tc.CoinsRemaining + delta
	if next < 0 {
		return tc.CoinsRemaining, storage.ErrInsufficientBalance
	}

	tc.CoinsRemaining = next
	return next, nil
}

// TransactionStore is an in-memory implementation of storage.TransactionStore.
type TransactionStore struct {
	mu   sync.RWMutex
	data []models.FATransaction
}

// NewTransactionStore creates a new in-memory transaction store.
func NewTransactionStore() *TransactionStore {
	return &TransactionStore{}
}

var _ storage.TransactionStore = (*TransactionStore)(nil)

// Insert appends an immutable ledger record.
func (s *TransactionStore) Insert(_ context.Context, tx *models.FATransaction) error {
	if tx == nil || tx.Team == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = append(s.data, *tx)
	return nil
}

// ListByTeam returns a team's ledger records oldest first.
func (s *TransactionStore) ListByTeam(_ context.Context, team string) ([]models.FATransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.FATransaction
	for _, tx := range s.data {
		if tx.Team == team {
			result = append(result, tx)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}
