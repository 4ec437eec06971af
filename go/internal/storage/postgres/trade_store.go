package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hardwood-league/commish/go/internal/models"
	"github.com/hardwood-league/commish/go/internal/storage"
)

// TradeStore implements storage.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

var _ storage.TradeStore = (*TradeStore)(nil)

// Insert adds a new trade proposal. Returns ErrDuplicateKey if the
// message id is already tracked.
func (s *TradeStore) Insert(ctx context.Context, t *models.Trade) error {
	teamsJSON, err := json.Marshal(t.Teams)
	if err != nil {
		return fmt.Errorf("marshal teams: %w", err)
	}
	movementsJSON, err := json.Marshal(t.Movements)
	if err != nil {
		return fmt.Errorf("marshal movements: %w", err)
	}

	query := `
		INSERT INTO trades (message_id, status, teams, movements, upvotes, downvotes, low_confidence, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = s.pool.Exec(ctx, query,
		int64(t.MessageID), t.Status, teamsJSON, movementsJSON,
		t.Upvotes, t.Downvotes, t.LowConfidence, t.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

// Get retrieves a trade by message id. Returns ErrNotFound if absent.
func (s *TradeStore) Get(ctx context.Context, messageID uint64) (*models.Trade, error) {
	query := `
		SELECT message_id, status, teams, movements, upvotes, downvotes,
		       low_confidence, created_at, processed_at, reversed_at, last_reminder_sent
		FROM trades WHERE message_id = $1
	`

	var (
		t             models.Trade
		msgID         int64
		teamsJSON     []byte
		movementsJSON []byte
	)
	err := s.pool.QueryRow(ctx, query, int64(messageID)).Scan(
		&msgID, &t.Status, &teamsJSON, &movementsJSON, &t.Upvotes, &t.Downvotes,
		&t.LowConfidence, &t.CreatedAt, &t.ProcessedAt, &t.ReversedAt, &t.LastReminderSent,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get trade: %w", err)
	}

	t.MessageID = uint64(msgID)
	if err := json.Unmarshal(teamsJSON, &t.Teams); err != nil {
		return nil, fmt.Errorf("unmarshal teams: %w", err)
	}
	if err := json.Unmarshal(movementsJSON, &t.Movements); err != nil {
		return nil, fmt.Errorf("unmarshal movements: %w", err)
	}
	return &t, nil
}

// UpdateVotes overwrites the recomputed qualifying vote counts.
func (s *TradeStore) UpdateVotes(ctx context.Context, messageID uint64, upvotes, downvotes int) error {
	query := `UPDATE trades SET upvotes = $2, downvotes = $3 WHERE message_id = $1`
	return s.exec(ctx, query, int64(messageID), upvotes, downvotes)
}

// SetStatus moves the trade to a terminal status.
func (s *TradeStore) SetStatus(ctx context.Context, messageID uint64, status models.ProposalStatus, processedAt time.Time) error {
	query := `UPDATE trades SET status = $2, processed_at = $3 WHERE message_id = $1`
	return s.exec(ctx, query, int64(messageID), status, processedAt)
}

// SetReversed marks the trade as reversed.
func (s *TradeStore) SetReversed(ctx context.Context, messageID uint64, reversedAt time.Time) error {
	query := `UPDATE trades SET reversed_at = $2 WHERE message_id = $1`
	return s.exec(ctx, query, int64(messageID), reversedAt)
}

// SetLastReminder records when the sweep last nudged the committee.
func (s *TradeStore) SetLastReminder(ctx context.Context, messageID uint64, at time.Time) error {
	query := `UPDATE trades SET last_reminder_sent = $2 WHERE message_id = $1`
	return s.exec(ctx, query, int64(messageID), at)
}

// ListPendingSince returns pending trades with message ids >= floor,
// newest first, capped at limit.
func (s *TradeStore) ListPendingSince(ctx context.Context, floor uint64, limit int) ([]models.Trade, error) {
	query := `
		SELECT message_id, status, teams, movements, upvotes, downvotes,
		       low_confidence, created_at, processed_at, reversed_at, last_reminder_sent
		FROM trades
		WHERE status = 'pending' AND message_id >= $1
		ORDER BY message_id DESC
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, int64(floor), limit)
	if err != nil {
		return nil, fmt.Errorf("list pending trades: %w", err)
	}
	defer rows.Close()

	var result []models.Trade
	for rows.Next() {
		var (
			t             models.Trade
			msgID         int64
			teamsJSON     []byte
			movementsJSON []byte
		)
		err := rows.Scan(
			&msgID, &t.Status, &teamsJSON, &movementsJSON, &t.Upvotes, &t.Downvotes,
			&t.LowConfidence, &t.CreatedAt, &t.ProcessedAt, &t.ReversedAt, &t.LastReminderSent,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		t.MessageID = uint64(msgID)
		if err := json.Unmarshal(teamsJSON, &t.Teams); err != nil {
			return nil, fmt.Errorf("unmarshal teams: %w", err)
		}
		if err := json.Unmarshal(movementsJSON, &t.Movements); err != nil {
			return nil, fmt.Errorf("unmarshal movements: %w", err)
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func (s *TradeStore) exec(ctx context.Context, query string, args ...any) error {
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update trade: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
