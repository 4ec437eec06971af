package postgres

import (
	"context"
	"fmt"

	"github.com/hardwood-league/commish/go/internal/models"
	"github.com/hardwood-league/commish/go/internal/storage"
)

// DecisionStore implements storage.DecisionStore using PostgreSQL.
type DecisionStore struct {
	pool *Pool
}

// NewDecisionStore creates a new DecisionStore.
func NewDecisionStore(pool *Pool) *DecisionStore {
	return &DecisionStore{pool: pool}
}

var _ storage.DecisionStore = (*DecisionStore)(nil)

// Insert records a terminal decision. The primary key on proposal_id is
// the durable half of the exactly-once guarantee: a second insert for the
// same proposal returns ErrDuplicateKey.
func (s *DecisionStore) Insert(ctx context.Context, d *models.DecisionRecord) error {
	query := `
		INSERT INTO decisions (proposal_id, kind, upvotes, downvotes, decision, applied, reversed, decided_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.pool.Exec(ctx, query,
		int64(d.ProposalID), d.Kind, d.Upvotes, d.Downvotes, d.Decision, d.Applied, d.Reversed, d.DecidedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert decision: %w", err)
	}
	return nil
}

// Get retrieves a decision row. Returns ErrNotFound if absent.
func (s *DecisionStore) Get(ctx context.Context, proposalID uint64) (*models.DecisionRecord, error) {
	query := `
		SELECT proposal_id, kind, upvotes, downvotes, decision, applied, reversed, decided_at
		FROM decisions WHERE proposal_id = $1
	`

	var (
		d     models.DecisionRecord
		propID int64
	)
	err := s.pool.QueryRow(ctx, query, int64(proposalID)).Scan(
		&propID, &d.Kind, &d.Upvotes, &d.Downvotes, &d.Decision, &d.Applied, &d.Reversed, &d.DecidedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get decision: %w", err)
	}
	d.ProposalID = uint64(propID)
	return &d, nil
}

// Exists reports whether a decision row exists for the proposal id.
func (s *DecisionStore) Exists(ctx context.Context, proposalID uint64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM decisions WHERE proposal_id = $1)`

	var exists bool
	if err := s.pool.QueryRow(ctx, query, int64(proposalID)).Scan(&exists); err != nil {
		return false, fmt.Errorf("check decision exists: %w", err)
	}
	return exists, nil
}

// SetApplied updates whether the roster/ledger mutation landed.
func (s *DecisionStore) SetApplied(ctx context.Context, proposalID uint64, applied bool) error {
	query := `UPDATE decisions SET applied = $2 WHERE proposal_id = $1`

	tag, err := s.pool.Exec(ctx, query, int64(proposalID), applied)
	if err != nil {
		return fmt.Errorf("set decision applied: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// SetReversed marks the decision as reversed.
func (s *DecisionStore) SetReversed(ctx context.Context, proposalID uint64) error {
	query := `UPDATE decisions SET reversed = TRUE WHERE proposal_id = $1`

	tag, err := s.pool.Exec(ctx, query, int64(proposalID))
	if err != nil {
		return fmt.Errorf("set decision reversed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
