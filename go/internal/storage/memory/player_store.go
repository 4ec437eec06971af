package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/hardwood-league/commish/go/internal/models"
	"github.com/hardwood-league/commish/go/internal/storage"
)

// PlayerStore is an in-memory implementation of storage.PlayerStore.
type PlayerStore struct {
	mu   sync.RWMutex
	data map[int64]*models.Player
}

// NewPlayerStore creates a new in-memory player store.
func NewPlayerStore() *PlayerStore {
	return &PlayerStore{data: make(map[int64]*models.Player)}
}

var _ storage.PlayerStore = (*PlayerStore)(nil)

// Insert adds a new player. Returns ErrDuplicateKey if the id exists.
func (s *PlayerStore) Insert(_ context.Context, p *models.Player) error {
	if p == nil || p.ID == 0 || p.Name == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[p.ID]; exists {
		return storage.ErrDuplicateKey
	}

	playerCopy := *p
	s.data[p.ID] = &playerCopy
	return nil
}

// GetByID retrieves a player by id. Returns ErrNotFound if absent.
func (s *PlayerStore) GetByID(_ context.Context, id int64) (*models.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}

	playerCopy := *p
	return &playerCopy, nil
}

// ListAll returns every player sorted by id.
func (s *PlayerStore) ListAll(_ context.Context) ([]models.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.Player, 0, len(s.data))
	for _, p := range s.data {
		result = append(result, *p)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})

	return result, nil
}

// ApplyTeamChanges applies every reassignment or none. All referenced
// players must exist.
func (s *PlayerStore) ApplyTeamChanges(_ context.Context, changes []storage.TeamChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range changes {
		if _, exists := s.data[c.PlayerID]; !exists {
			return storage.ErrNotFound
		}
	}

	for _, c := range changes {
		s.data[c.PlayerID].Team = c.NewTeam
	}
	return nil
}
