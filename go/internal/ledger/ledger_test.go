package ledger

import (
	"context"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hardwood-league/commish/go/internal/models"
	"github.com/hardwood-league/commish/go/internal/storage/memory"
)

type engineFixture struct {
	engine  *Engine
	coins   *memory.CoinStore
	txns    *memory.TransactionStore
	bids    *memory.BidStore
	players *memory.PlayerStore
}

func newFixture(t *testing.T) *engineFixture {
	t.Helper()
	f := &engineFixture{
		coins:   memory.NewCoinStore(),
		txns:    memory.NewTransactionStore(),
		bids:    memory.NewBidStore(),
		players: memory.NewPlayerStore(),
	}
	f.engine = NewEngine(f.coins, f.txns, f.bids, f.players, clockwork.NewFakeClock(), CapRule{
		RosterOverallCap: 500,
		BoundaryOverall:  75,
	})
	return f
}

func (f *engineFixture) setBalance(t *testing.T, team string, coins int) {
	t.Helper()
	require.NoError(t, f.coins.Upsert(context.Background(), &models.TeamCoins{Team: team, CoinsRemaining: coins}))
}

func TestValidateBid_WithinBalance(t *testing.T) {
	f := newFixture(t)
	f.setBalance(t, "Lakers", 20)

	v, err := f.engine.ValidateBid(context.Background(), "Lakers", 1, &models.Player{Name: "Lonnie Walker", Overall: 78}, 15)
	require.NoError(t, err)
	assert.True(t, v.OK)
	assert.Equal(t, 20, v.AvailableBalance)
	assert.Equal(t, 15, v.RequiredTotal)
}

func TestValidateBid_OpenBidsCountAgainstBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.setBalance(t, "Lakers", 20)

	w, err := f.bids.CreateWindow(ctx)
	require.NoError(t, err)
	require.NoError(t, f.bids.Insert(ctx, &models.FABid{
		MessageID: 100, WindowID: w.ID, Team: "Lakers",
		PlayerToSign: "Victor Oladipo", BidAmount: 12, Status: models.BidStatusOpen,
	}))

	// 12 already committed, so a new 10 pushes past the balance of 20.
	v, err := f.engine.ValidateBid(ctx, "Lakers", w.ID, &models.Player{Name: "Lonnie Walker", Overall: 78}, 10)
	require.NoError(t, err)
	assert.False(t, v.OK)
	assert.Equal(t, 22, v.RequiredTotal)

	// 8 fits exactly.
	v, err = f.engine.ValidateBid(ctx, "Lakers", w.ID, &models.Player{Name: "Lonnie Walker", Overall: 78}, 8)
	require.NoError(t, err)
	assert.True(t, v.OK)
}

func TestValidateBid_ZeroBalanceRestriction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.setBalance(t, "Pistons", 0)

	// Above the boundary rating: rejected before any mutation.
	_, err := f.engine.ValidateBid(ctx, "Pistons", 1, &models.Player{Name: "Star Player", Overall: 90}, 0)
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	// At or below the boundary: allowed at cost 0.
	v, err := f.engine.ValidateBid(ctx, "Pistons", 1, &models.Player{Name: "Role Player", Overall: 75}, 0)
	require.NoError(t, err)
	assert.True(t, v.OK)
}

func TestEffectiveCost_CapExceptionForcesZero(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Roster total 510 > cap 500.
	for i, ovr := range []int{99, 96, 90, 85, 80, 60} {
		require.NoError(t, f.players.Insert(ctx, &models.Player{
			ID: int64(i + 1), Name: "Player", Team: "Suns", Overall: ovr, Salary: 10,
		}))
	}

	// Boundary-rated player costs 0 for the capped team.
	cost, err := f.engine.EffectiveCost(ctx, "Suns", &models.Player{Name: "Boundary Guy", Overall: 75}, 9)
	require.NoError(t, err)
	assert.Equal(t, 0, cost)

	// Non-boundary player keeps the stated amount.
	cost, err = f.engine.EffectiveCost(ctx, "Suns", &models.Player{Name: "Other Guy", Overall: 76}, 9)
	require.NoError(t, err)
	assert.Equal(t, 9, cost)

	// An under-cap team pays the stated amount even at the boundary.
	cost, err = f.engine.EffectiveCost(ctx, "Magic", &models.Player{Name: "Boundary Guy", Overall: 75}, 9)
	require.NoError(t, err)
	assert.Equal(t, 9, cost)
}

func TestCommit_NeverNegative(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.setBalance(t, "Lakers", 5)

	err := f.engine.Commit(ctx, "Lakers", 8, "Lonnie Walker", "", "admin")
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	// Failed commit mutates nothing: balance intact, no ledger row.
	balance, err := f.engine.Balance(ctx, "Lakers")
	require.NoError(t, err)
	assert.Equal(t, 5, balance)

	txns, err := f.txns.ListByTeam(ctx, "Lakers")
	require.NoError(t, err)
	assert.Empty(t, txns)
}

func TestCommitRefund_RoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.setBalance(t, "Lakers", 20)

	require.NoError(t, f.engine.Commit(ctx, "Lakers", 7, "Lonnie Walker", "Malik Beasley", "admin"))
	balance, err := f.engine.Balance(ctx, "Lakers")
	require.NoError(t, err)
	assert.Equal(t, 13, balance)

	require.NoError(t, f.engine.Refund(ctx, "Lakers", 7, "Lonnie Walker", "Malik Beasley", "admin"))
	balance, err = f.engine.Balance(ctx, "Lakers")
	require.NoError(t, err)
	assert.Equal(t, 20, balance)

	// Both movements are on the ledger, the refund with a negative amount.
	txns, err := f.txns.ListByTeam(ctx, "Lakers")
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Equal(t, 7, txns[0].BidAmount)
	assert.Equal(t, 13, txns[0].CoinsRemaining)
	assert.Equal(t, -7, txns[1].BidAmount)
	assert.Equal(t, 20, txns[1].CoinsRemaining)
}

func TestBalance_MissingTeamIsZero(t *testing.T) {
	f := newFixture(t)

	balance, err := f.engine.Balance(context.Background(), "Expansion Team")
	require.NoError(t, err)
	assert.Equal(t, 0, balance)
}
