package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/hardwood-league/commish/go/internal/models"
	"github.com/hardwood-league/commish/go/internal/sqlutil"
	"github.com/hardwood-league/commish/go/internal/storage"
)

// PlayerStore implements storage.PlayerStore using PostgreSQL.
type PlayerStore struct {
	pool *Pool
}

// NewPlayerStore creates a new PlayerStore.
func NewPlayerStore(pool *Pool) *PlayerStore {
	return &PlayerStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PlayerStore = (*PlayerStore)(nil)

// Insert adds a new player. Returns ErrDuplicateKey if the id exists.
func (s *PlayerStore) Insert(ctx context.Context, p *models.Player) error {
	query := `
		INSERT INTO players (id, name, team, overall, salary)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.pool.Exec(ctx, query, p.ID, p.Name, p.Team, p.Overall, p.Salary)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert player: %w", err)
	}
	return nil
}

// GetByID retrieves a player by id. Returns ErrNotFound if absent.
func (s *PlayerStore) GetByID(ctx context.Context, id int64) (*models.Player, error) {
	query := `SELECT id, name, team, overall, salary FROM players WHERE id = $1`

	var p models.Player
	err := s.pool.QueryRow(ctx, query, id).Scan(&p.ID, &p.Name, &p.Team, &p.Overall, &p.Salary)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get player: %w", err)
	}
	return &p, nil
}

// ListAll returns every player ordered by id.
func (s *PlayerStore) ListAll(ctx context.Context) ([]models.Player, error) {
	query := `SELECT id, name, team, overall, salary FROM players ORDER BY id`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	defer rows.Close()

	var result []models.Player
	for rows.Next() {
		var p models.Player
		if err := rows.Scan(&p.ID, &p.Name, &p.Team, &p.Overall, &p.Salary); err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// ApplyTeamChanges applies every reassignment in one transaction. A
// missing player aborts the whole batch.
func (s *PlayerStore) ApplyTeamChanges(ctx context.Context, changes []storage.TeamChange) error {
	if len(changes) == 0 {
		return nil
	}

	query := `UPDATE players SET team = $2 WHERE id = $1`
	return sqlutil.Run(ctx, s.pool, func(tx pgx.Tx) error {
		for _, c := range changes {
			tag, err := tx.Exec(ctx, query, c.PlayerID, c.NewTeam)
			if err != nil {
				return fmt.Errorf("update player team: %w", err)
			}
			if tag.RowsAffected() == 0 {
				return storage.ErrNotFound
			}
		}
		return nil
	})
}
