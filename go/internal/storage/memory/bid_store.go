package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/hardwood-league/commish/go/internal/models"
	"github.com/hardwood-league/commish/go/internal/storage"
)

// BidStore is an in-memory implementation of storage.BidStore.
type BidStore struct {
	mu      sync.RWMutex
	bids    map[uint64]*models.FABid
	windows map[int64]*models.FAWindow
	nextWin int64
}

// NewBidStore creates a new in-memory bid store.
func NewBidStore() *BidStore {
	return &BidStore{
		bids:    make(map[uint64]*models.FABid),
		windows: make(map[int64]*models.FAWindow),
		nextWin: 1,
	}
}

var _ storage.BidStore = (*BidStore)(nil)

// Insert adds a new bid. Returns ErrDuplicateKey if the message id exists.
func (s *BidStore) Insert(_ context.Context, b *models.FABid) error {
	if b == nil || b.MessageID == 0 || b.PlayerToSign == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.bids[b.MessageID]; exists {
		return storage.ErrDuplicateKey
	}

	bidCopy := *b
	s.bids[b.MessageID] = &bidCopy
	return nil
}

// Get retrieves a bid by message id. Returns ErrNotFound if absent.
func (s *BidStore) Get(_ context.Context, messageID uint64) (*models.FABid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, exists := s.bids[messageID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	bidCopy := *b
	return &bidCopy, nil
}

// SetStatus updates the bid lifecycle status.
func (s *BidStore) SetStatus(_ context.Context, messageID uint64, status models.BidStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, exists := s.bids[messageID]
	if !exists {
		return storage.ErrNotFound
	}

	b.Status = status
	return nil
}

// ListOpenByTeam returns a team's open or counted bids in a window.
func (s *BidStore) ListOpenByTeam(_ context.Context, windowID int64, team string) ([]models.FABid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.FABid
	for _, b := range s.bids {
		if b.WindowID != windowID || b.Team != team {
			continue
		}
		if b.Status != models.BidStatusOpen && b.Status != models.BidStatusCounted {
			continue
		}
		result = append(result, *b)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].MessageID < result[j].MessageID
	})
	return result, nil
}

// ListByWindow returns every bid placed in a window.
func (s *BidStore) ListByWindow(_ context.Context, windowID int64) ([]models.FABid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.FABid
	for _, b := range s.bids {
		if b.WindowID == windowID {
			result = append(result, *b)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].MessageID < result[j].MessageID
	})
	return result, nil
}

// GetWindow retrieves a bidding window. Returns ErrNotFound if absent.
func (s *BidStore) GetWindow(_ context.Context, windowID int64) (*models.FAWindow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, exists := s.windows[windowID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	windowCopy := *w
	return &windowCopy, nil
}

// CreateWindow opens a new unlocked bidding window.
func (s *BidStore) CreateWindow(_ context.Context) (*models.FAWindow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := &models.FAWindow{ID: s.nextWin}
	s.nextWin++
	s.windows[w.ID] = w

	windowCopy := *w
	return &windowCopy, nil
}

// LockWindow closes a window to new bids.
func (s *BidStore) LockWindow(_ context.Context, windowID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, exists := s.windows[windowID]
	if !exists {
		return storage.ErrNotFound
	}

	w.Locked = true
	return nil
}
