package postgres

import (
	"context"
	"fmt"

	"github.com/hardwood-league/commish/go/internal/models"
	"github.com/hardwood-league/commish/go/internal/storage"
)

// AliasStore implements storage.AliasStore using PostgreSQL.
type AliasStore struct {
	pool *Pool
}

// NewAliasStore creates a new AliasStore.
func NewAliasStore(pool *Pool) *AliasStore {
	return &AliasStore{pool: pool}
}

var _ storage.AliasStore = (*AliasStore)(nil)

// Get retrieves a learned alias. Returns ErrNotFound if absent.
func (s *AliasStore) Get(ctx context.Context, alias string) (*models.Alias, error) {
	query := `SELECT alias, canonical_name, use_count FROM learned_aliases WHERE alias = $1`

	var a models.Alias
	err := s.pool.QueryRow(ctx, query, alias).Scan(&a.Alias, &a.CanonicalName, &a.UseCount)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get alias: %w", err)
	}
	return &a, nil
}

// Record inserts the alias or increments its use count.
func (s *AliasStore) Record(ctx context.Context, alias, canonicalName string) error {
	query := `
		INSERT INTO learned_aliases (alias, canonical_name, use_count)
		VALUES ($1, $2, 1)
		ON CONFLICT (alias)
		DO UPDATE SET use_count = learned_aliases.use_count + 1
	`

	if _, err := s.pool.Exec(ctx, query, alias, canonicalName); err != nil {
		return fmt.Errorf("record alias: %w", err)
	}
	return nil
}
