package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hardwood-league/commish/go/internal/models"
	"github.com/hardwood-league/commish/go/internal/sqlutil"
	"github.com/hardwood-league/commish/go/internal/storage"
)

// BidStore implements storage.BidStore using PostgreSQL.
type BidStore struct {
	pool *Pool
}

// NewBidStore creates a new BidStore.
func NewBidStore(pool *Pool) *BidStore {
	return &BidStore{pool: pool}
}

var _ storage.BidStore = (*BidStore)(nil)

// Insert adds a new bid. Returns ErrDuplicateKey if the message id exists.
func (s *BidStore) Insert(ctx context.Context, b *models.FABid) error {
	query := `
		INSERT INTO fa_bids (message_id, window_id, team, player_to_sign, player_to_cut, bid_amount, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	cut := sqlutil.ToNullString(b.PlayerToCut)
	_, err := s.pool.Exec(ctx, query,
		int64(b.MessageID), b.WindowID, b.Team, b.PlayerToSign, cut,
		b.BidAmount, b.Status, b.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert bid: %w", err)
	}
	return nil
}

// Get retrieves a bid by message id. Returns ErrNotFound if absent.
func (s *BidStore) Get(ctx context.Context, messageID uint64) (*models.FABid, error) {
	query := `
		SELECT message_id, window_id, team, player_to_sign, player_to_cut, bid_amount, status, created_at
		FROM fa_bids WHERE message_id = $1
	`

	b, err := scanBid(s.pool.QueryRow(ctx, query, int64(messageID)))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get bid: %w", err)
	}
	return b, nil
}

// SetStatus updates the bid lifecycle status.
func (s *BidStore) SetStatus(ctx context.Context, messageID uint64, status models.BidStatus) error {
	query := `UPDATE fa_bids SET status = $2 WHERE message_id = $1`

	tag, err := s.pool.Exec(ctx, query, int64(messageID), status)
	if err != nil {
		return fmt.Errorf("update bid status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListOpenByTeam returns a team's open or counted bids in a window.
func (s *BidStore) ListOpenByTeam(ctx context.Context, windowID int64, team string) ([]models.FABid, error) {
	query := `
		SELECT message_id, window_id, team, player_to_sign, player_to_cut, bid_amount, status, created_at
		FROM fa_bids
		WHERE window_id = $1 AND team = $2 AND status IN ('open', 'counted')
		ORDER BY message_id
	`
	return s.list(ctx, query, windowID, team)
}

// ListByWindow returns every bid placed in a window.
func (s *BidStore) ListByWindow(ctx context.Context, windowID int64) ([]models.FABid, error) {
	query := `
		SELECT message_id, window_id, team, player_to_sign, player_to_cut, bid_amount, status, created_at
		FROM fa_bids WHERE window_id = $1 ORDER BY message_id
	`
	return s.list(ctx, query, windowID)
}

// GetWindow retrieves a bidding window. Returns ErrNotFound if absent.
func (s *BidStore) GetWindow(ctx context.Context, windowID int64) (*models.FAWindow, error) {
	query := `SELECT id, locked FROM fa_windows WHERE id = $1`

	var w models.FAWindow
	err := s.pool.QueryRow(ctx, query, windowID).Scan(&w.ID, &w.Locked)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get window: %w", err)
	}
	return &w, nil
}

// CreateWindow opens a new unlocked bidding window.
func (s *BidStore) CreateWindow(ctx context.Context) (*models.FAWindow, error) {
	query := `INSERT INTO fa_windows (locked) VALUES (FALSE) RETURNING id, locked`

	var w models.FAWindow
	if err := s.pool.QueryRow(ctx, query).Scan(&w.ID, &w.Locked); err != nil {
		return nil, fmt.Errorf("create window: %w", err)
	}
	return &w, nil
}

// LockWindow closes a window to new bids.
func (s *BidStore) LockWindow(ctx context.Context, windowID int64) error {
	query := `UPDATE fa_windows SET locked = TRUE WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, windowID)
	if err != nil {
		return fmt.Errorf("lock window: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *BidStore) list(ctx context.Context, query string, args ...any) ([]models.FABid, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bids: %w", err)
	}
	defer rows.Close()

	var result []models.FABid
	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bid: %w", err)
		}
		result = append(result, *b)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBid(row rowScanner) (*models.FABid, error) {
	var (
		b     models.FABid
		msgID int64
		cut   sql.NullString
	)
	err := row.Scan(&msgID, &b.WindowID, &b.Team, &b.PlayerToSign, &cut, &b.BidAmount, &b.Status, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	b.MessageID = uint64(msgID)
	b.PlayerToCut = sqlutil.FromNullString(cut)
	return &b, nil
}
