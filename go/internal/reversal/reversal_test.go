package reversal

import (
	"context"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hardwood-league/commish/go/internal/ledger"
	"github.com/hardwood-league/commish/go/internal/models"
	"github.com/hardwood-league/commish/go/internal/playermatch"
	"github.com/hardwood-league/commish/go/internal/storage"
	"github.com/hardwood-league/commish/go/internal/storage/memory"
)

type fixture struct {
	engine    *Engine
	trades    *memory.TradeStore
	bids      *memory.BidStore
	decisions *memory.DecisionStore
	players   *memory.PlayerStore
	coins     *memory.CoinStore
	clock     *clockwork.FakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		trades:    memory.NewTradeStore(),
		bids:      memory.NewBidStore(),
		decisions: memory.NewDecisionStore(),
		players:   memory.NewPlayerStore(),
		coins:     memory.NewCoinStore(),
		clock:     clockwork.NewFakeClock(),
	}
	ctx := context.Background()
	seed := []models.Player{
		{ID: 1, Name: "LeBron James", Team: "Celtics", Overall: 96, Salary: 47},
		{ID: 2, Name: "Jayson Tatum", Team: "Lakers", Overall: 95, Salary: 32},
		{ID: 3, Name: "Dennis Schroder", Team: "Lakers", Overall: 81, Salary: 6},
		{ID: 4, Name: "Malik Beasley", Team: models.FreeAgentTeam, Overall: 80, Salary: 5},
	}
	for i := range seed {
		require.NoError(t, f.players.Insert(ctx, &seed[i]))
	}
	require.NoError(t, f.coins.Upsert(ctx, &models.TeamCoins{Team: "Lakers", CoinsRemaining: 8}))

	resolver := playermatch.NewResolver(f.players, memory.NewAliasStore(), nil, nil)
	coinEngine := ledger.NewEngine(f.coins, memory.NewTransactionStore(), f.bids, f.players, f.clock, ledger.CapRule{
		RosterOverallCap: 500,
		BoundaryOverall:  75,
	})
	f.engine = NewEngine(f.trades, f.bids, f.decisions, f.players, resolver, coinEngine, f.clock)
	return f
}

// committedTrade seeds the state left behind by an applied approval:
// LeBron already moved to the Celtics, Tatum to the Lakers.
func (f *fixture) committedTrade(t *testing.T, messageID uint64) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.trades.Insert(ctx, &models.Trade{
		MessageID: messageID,
		Status:    models.ProposalStatusApproved,
		Teams:     [2]string{"Lakers", "Celtics"},
		Movements: []models.Movement{
			{PlayerName: "LeBron James", FromTeam: "Lakers", ToTeam: "Celtics"},
			{PlayerName: "Jayson Tatum", FromTeam: "Celtics", ToTeam: "Lakers"},
		},
		CreatedAt: f.clock.Now(),
	}))
	require.NoError(t, f.decisions.Insert(ctx, &models.DecisionRecord{
		ProposalID: messageID,
		Kind:       models.ProposalKindTrade,
		Decision:   models.DecisionApproved,
		Applied:    true,
		DecidedAt:  f.clock.Now(),
	}))
}

func (f *fixture) playerTeam(t *testing.T, id int64) string {
	t.Helper()
	p, err := f.players.GetByID(context.Background(), id)
	require.NoError(t, err)
	return p.Team
}

func TestReverse_Trade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.committedTrade(t, 2000)

	undone, err := f.engine.Reverse(ctx, 2000, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, 2, undone)

	assert.Equal(t, "Lakers", f.playerTeam(t, 1))
	assert.Equal(t, "Celtics", f.playerTeam(t, 2))

	trade, err := f.trades.Get(ctx, 2000)
	require.NoError(t, err)
	assert.NotNil(t, trade.ReversedAt)

	d, err := f.decisions.Get(ctx, 2000)
	require.NoError(t, err)
	assert.True(t, d.Reversed)
}

func TestReverse_SkipsPlayersWhoMovedSince(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.committedTrade(t, 2000)

	// LeBron has since been traded to the Heat; the reversal leaves him
	// there and only restores Tatum.
	require.NoError(t, f.players.ApplyTeamChanges(ctx, []storage.TeamChange{{PlayerID: 1, NewTeam: "Heat"}}))

	undone, err := f.engine.Reverse(ctx, 2000, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, 1, undone)
	assert.Equal(t, "Heat", f.playerTeam(t, 1))
	assert.Equal(t, "Celtics", f.playerTeam(t, 2))
}

func TestReverse_AlreadyReversed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.committedTrade(t, 2000)

	_, err := f.engine.Reverse(ctx, 2000, "admin-1")
	require.NoError(t, err)

	_, err = f.engine.Reverse(ctx, 2000, "admin-1")
	assert.ErrorIs(t, err, ErrNotReversible)
}

func TestReverse_PendingOrUnknown(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.Reverse(ctx, 9999, "admin-1")
	assert.ErrorIs(t, err, ErrNotReversible)

	// A recorded but never-applied decision is not reversible either.
	require.NoError(t, f.decisions.Insert(ctx, &models.DecisionRecord{
		ProposalID: 3000,
		Kind:       models.ProposalKindTrade,
		Decision:   models.DecisionApproved,
		Applied:    false,
		DecidedAt:  f.clock.Now(),
	}))
	_, err = f.engine.Reverse(ctx, 3000, "admin-1")
	assert.ErrorIs(t, err, ErrNotReversible)
}

func TestReverse_Bid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// State after a won bid: Schroder signed by the Lakers for 12,
	// Beasley cut, balance at 8.
	require.NoError(t, f.bids.Insert(ctx, &models.FABid{
		MessageID:    5000,
		WindowID:     1,
		Team:         "Lakers",
		PlayerToSign: "Dennis Schroder",
		PlayerToCut:  "Malik Beasley",
		BidAmount:    12,
		Status:       models.BidStatusWon,
		CreatedAt:    f.clock.Now(),
	}))
	require.NoError(t, f.decisions.Insert(ctx, &models.DecisionRecord{
		ProposalID: 5000,
		Kind:       models.ProposalKindFABid,
		Decision:   models.DecisionApproved,
		Applied:    true,
		DecidedAt:  f.clock.Now(),
	}))

	undone, err := f.engine.Reverse(ctx, 5000, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, 2, undone)

	assert.Equal(t, models.FreeAgentTeam, f.playerTeam(t, 3))
	assert.Equal(t, "Lakers", f.playerTeam(t, 4))

	tc, err := f.coins.Get(ctx, "Lakers")
	require.NoError(t, err)
	assert.Equal(t, 20, tc.CoinsRemaining)

	bid, err := f.bids.Get(ctx, 5000)
	require.NoError(t, err)
	assert.Equal(t, models.BidStatusCancelled, bid.Status)
}
