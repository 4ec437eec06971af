package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hardwood-league/commish/go/internal/models"
)

// TeamChange is a single player -> team reassignment applied by
// PlayerStore.ApplyTeamChanges.
type TeamChange struct {
	PlayerID int64
	NewTeam  string
}

// PlayerStore persists canonical roster entries.
type PlayerStore interface {
	Insert(ctx context.Context, p *models.Player) error
	GetByID(ctx context.Context, id int64) (*models.Player, error)
	// ListAll returns every player; the resolver scans this set.
	ListAll(ctx context.Context) ([]models.Player, error)
	// ApplyTeamChanges applies all reassignments in one transaction.
	// Either every change lands or none do.
	ApplyTeamChanges(ctx context.Context, changes []TeamChange) error
}

// AliasStore persists learned free-text -> canonical name mappings.
type AliasStore interface {
	Get(ctx context.Context, alias string) (*models.Alias, error)
	// Record inserts the alias with use_count 1, or increments use_count
	// if it already exists.
	Record(ctx context.Context, alias, canonicalName string) error
}

// TradeStore persists trade proposals keyed by source message id.
type TradeStore interface {
	Insert(ctx context.Context, t *models.Trade) error
	Get(ctx context.Context, messageID uint64) (*models.Trade, error)
	UpdateVotes(ctx context.Context, messageID uint64, upvotes, downvotes int) error
	SetStatus(ctx context.Context, messageID uint64, status models.ProposalStatus, processedAt time.Time) error
	SetReversed(ctx context.Context, messageID uint64, reversedAt time.Time) error
	SetLastReminder(ctx context.Context, messageID uint64, at time.Time) error
	// ListPendingSince returns pending trades with message ids at or above
	// floor, newest first, capped at limit. The reconciliation sweep scans
	// this window.
	ListPendingSince(ctx context.Context, floor uint64, limit int) ([]models.Trade, error)
}

// BidStore persists free-agency bids and bidding windows.
type BidStore interface {
	Insert(ctx context.Context, b *models.FABid) error
	Get(ctx context.Context, messageID uint64) (*models.FABid, error)
	SetStatus(ctx context.Context, messageID uint64, status models.BidStatus) error
	// ListOpenByTeam returns this team's open bids in the given window,
	// used for the bid-commitment check at placement time.
	ListOpenByTeam(ctx context.Context, windowID int64, team string) ([]models.FABid, error)
	ListByWindow(ctx context.Context, windowID int64) ([]models.FABid, error)

	GetWindow(ctx context.Context, windowID int64) (*models.FAWindow, error)
	CreateWindow(ctx context.Context) (*models.FAWindow, error)
	LockWindow(ctx context.Context, windowID int64) error
}

// CoinStore persists per-team balances. Adjust is the only mutation path
// and never lets a balance go negative.
type CoinStore interface {
	Get(ctx context.Context, team string) (*models.TeamCoins, error)
	Upsert(ctx context.Context, tc *models.TeamCoins) error
	// Adjust atomically adds delta (negative to spend) and returns the
	// resulting balance. Returns ErrInsufficientBalance without mutating
	// when the result would be negative.
	Adjust(ctx context.Context, team string, delta int) (int, error)
}

// TransactionStore appends immutable ledger records.
type TransactionStore interface {
	Insert(ctx context.Context, tx *models.FATransaction) error
	ListByTeam(ctx context.Context, team string) ([]models.FATransaction, error)
}

// DecisionStore persists terminal vote decisions. Insert must fail with
// ErrDuplicateKey when a row already exists for the proposal id; that
// failure is the durable half of the exactly-once guarantee.
type DecisionStore interface {
	Insert(ctx context.Context, d *models.DecisionRecord) error
	Get(ctx context.Context, proposalID uint64) (*models.DecisionRecord, error)
	Exists(ctx context.Context, proposalID uint64) (bool, error)
	SetApplied(ctx context.Context, proposalID uint64, applied bool) error
	SetReversed(ctx context.Context, proposalID uint64) error
}

// OutboxEvent is a pending decision event awaiting publication.
type OutboxEvent struct {
	ID         uuid.UUID
	ProposalID uint64
	EventType  string
	Payload    []byte
	CreatedAt  time.Time
	SentAt     *time.Time
}

// OutboxStore persists decision events for the outbox relay.
type OutboxStore interface {
	Insert(ctx context.Context, e *OutboxEvent) error
	FetchUnsent(ctx context.Context, limit int) ([]OutboxEvent, error)
	MarkSent(ctx context.Context, ids []uuid.UUID, at time.Time) error
	CountUnsent(ctx context.Context) (int, error)
}
