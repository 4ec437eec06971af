package memory

import (
	"context"
	"sync"

	"github.com/hardwood-league/commish/go/internal/models"
	"github.com/hardwood-league/commish/go/internal/storage"
)

// AliasStore is an in-memory implementation of storage.AliasStore.
type AliasStore struct {
	mu   sync.RWMutex
	data map[string]*models.Alias
}

// NewAliasStore creates a new in-memory alias store.
func NewAliasStore() *AliasStore {
	return &AliasStore{data: make(map[string]*models.Alias)}
}

var _ storage.AliasStore = (*AliasStore)(nil)

// Get retrieves a learned alias. Returns ErrNotFound if absent.
func (s *AliasStore) Get(_ context.Context, alias string) (*models.Alias, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, exists := s.data[alias]
	if !exists {
		return nil, storage.ErrNotFound
	}

	aliasCopy := *a
	return &aliasCopy, nil
}

// Record inserts the alias or increments its use count.
func (s *AliasStore) Record(_ context.Context, alias, canonicalName string) error {
	if alias == "" || canonicalName == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if a, exists := s.data[alias]; exists {
		a.UseCount++
		return nil
	}

	s.data[alias] = &models.Alias{
		Alias:         alias,
		CanonicalName: canonicalName,
		UseCount:      1,
	}
	return nil
}
