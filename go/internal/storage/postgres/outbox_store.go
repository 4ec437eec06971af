package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hardwood-league/commish/go/internal/storage"
)

// OutboxStore implements storage.OutboxStore using PostgreSQL.
type OutboxStore struct {
	pool *Pool
}

// NewOutboxStore creates a new OutboxStore.
func NewOutboxStore(pool *Pool) *OutboxStore {
	return &OutboxStore{pool: pool}
}

var _ storage.OutboxStore = (*OutboxStore)(nil)

// Insert adds a pending event. The schema trigger notifies the realtime
// worker on this insert.
func (s *OutboxStore) Insert(ctx context.Context, e *storage.OutboxEvent) error {
	query := `
		INSERT INTO outcome_outbox (id, proposal_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.pool.Exec(ctx, query, e.ID, int64(e.ProposalID), e.EventType, e.Payload, e.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

// FetchUnsent returns unsent events oldest first, capped at limit.
// Rows are locked so concurrent workers skip each other's batches.
func (s *OutboxStore) FetchUnsent(ctx context.Context, limit int) ([]storage.OutboxEvent, error) {
	query := `
		SELECT id, proposal_id, event_type, payload, created_at, sent_at
		FROM outcome_outbox
		WHERE sent_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch unsent outbox events: %w", err)
	}
	defer rows.Close()

	var result []storage.OutboxEvent
	for rows.Next() {
		var (
			e      storage.OutboxEvent
			propID int64
		)
		if err := rows.Scan(&e.ID, &propID, &e.EventType, &e.Payload, &e.CreatedAt, &e.SentAt); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		e.ProposalID = uint64(propID)
		result = append(result, e)
	}
	return result, rows.Err()
}

// MarkSent stamps the given events as published.
func (s *OutboxStore) MarkSent(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	query := `UPDATE outcome_outbox SET sent_at = $2 WHERE id = ANY($1)`
	if _, err := s.pool.Exec(ctx, query, ids, at); err != nil {
		return fmt.Errorf("mark outbox events sent: %w", err)
	}
	return nil
}

// CountUnsent returns the number of pending events.
func (s *OutboxStore) CountUnsent(ctx context.Context) (int, error) {
	query := `SELECT COUNT(*) FROM outcome_outbox WHERE sent_at IS NULL`

	var count int
	if err := s.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count unsent outbox events: %w", err)
	}
	return count, nil
}
