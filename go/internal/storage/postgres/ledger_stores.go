package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hardwood-league/commish/go/internal/models"
	"github.com/hardwood-league/commish/go/internal/sqlutil"
	"github.com/hardwood-league/commish/go/internal/storage"
)

// CoinStore implements storage.CoinStore using PostgreSQL.
type CoinStore struct {
	pool *Pool
}

// NewCoinStore creates a new CoinStore.
func NewCoinStore(pool *Pool) *CoinStore {
	return &CoinStore{pool: pool}
}

var _ storage.CoinStore = (*CoinStore)(nil)

// Get retrieves a team's balance. Returns ErrNotFound if absent.
func (s *CoinStore) Get(ctx context.Context, team string) (*models.TeamCoins, error) {
	query := `SELECT team, coins_remaining FROM team_coins WHERE team = $1`

	var tc models.TeamCoins
	err := s.pool.QueryRow(ctx, query, team).Scan(&tc.Team, &tc.CoinsRemaining)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get team coins: %w", err)
	}
	return &tc, nil
}

// Upsert creates or replaces a team's balance row.
func (s *CoinStore) Upsert(ctx context.Context, tc *models.TeamCoins) error {
	query := `
		INSERT INTO team_coins (team, coins_remaining)
		VALUES ($1, $2)
		ON CONFLICT (team) DO UPDATE SET coins_remaining = EXCLUDED.coins_remaining
	`

	if _, err := s.pool.Exec(ctx, query, tc.Team, tc.CoinsRemaining); err != nil {
		return fmt.Errorf("upsert team coins: %w", err)
	}
	return nil
}

// Adjust atomically adds delta to the balance and returns the result.
// The CHECK constraint on team_coins turns an overdraw into
// ErrInsufficientBalance with no mutation.
func (s *CoinStore) Adjust(ctx context.Context, team string, delta int) (int, error) {
	query := `
		UPDATE team_coins
		SET coins_remaining = coins_remaining + $2
		WHERE team = $1
		RETURNING coins_remaining
	`

	var remaining int
	err := s.pool.QueryRow(ctx, query, team, delta).Scan(&remaining)
	if err != nil {
		if isNotFoundError(err) {
			return 0, storage.ErrNotFound
		}
		if isCheckViolationError(err) {
			return 0, storage.ErrInsufficientBalance
		}
		return 0, fmt.Errorf("adjust team coins: %w", err)
	}
	return remaining, nil
}

// TransactionStore implements storage.TransactionStore using PostgreSQL.
type TransactionStore struct {
	pool *Pool
}

// NewTransactionStore creates a new TransactionStore.
func NewTransactionStore(pool *Pool) *TransactionStore {
	return &TransactionStore{pool: pool}
}

var _ storage.TransactionStore = (*TransactionStore)(nil)

// Insert appends an immutable ledger record.
func (s *TransactionStore) Insert(ctx context.Context, tx *models.FATransaction) error {
	query := `
		INSERT INTO fa_transactions (id, team, drop_player, sign_player, bid_amount, coins_remaining, actor, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	dropPlayer := sqlutil.ToNullString(tx.DropPlayer)
	signPlayer := sqlutil.ToNullString(tx.SignPlayer)
	actor := sqlutil.ToNullString(tx.Actor)

	_, err := s.pool.Exec(ctx, query,
		tx.ID, tx.Team, dropPlayer, signPlayer, tx.BidAmount, tx.CoinsRemaining, actor, tx.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// ListByTeam returns a team's ledger records oldest first.
func (s *TransactionStore) ListByTeam(ctx context.Context, team string) ([]models.FATransaction, error) {
	query := `
		SELECT id, team, drop_player, sign_player, bid_amount, coins_remaining, actor, created_at
		FROM fa_transactions WHERE team = $1 ORDER BY created_at
	`

	rows, err := s.pool.Query(ctx, query, team)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var result []models.FATransaction
	for rows.Next() {
		var (
			tx                       models.FATransaction
			dropPlayer, signP, actor sql.NullString
		)
		err := rows.Scan(&tx.ID, &tx.Team, &dropPlayer, &signP, &tx.BidAmount, &tx.CoinsRemaining, &actor, &tx.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		tx.DropPlayer = sqlutil.FromNullString(dropPlayer)
		tx.SignPlayer = sqlutil.FromNullString(signP)
		tx.Actor = sqlutil.FromNullString(actor)
		result = append(result, tx)
	}
	return result, rows.Err()
}
