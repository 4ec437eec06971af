package vote

import (
	"context"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hardwood-league/commish/go/internal/ledger"
	"github.com/hardwood-league/commish/go/internal/models"
	"github.com/hardwood-league/commish/go/internal/playermatch"
	"github.com/hardwood-league/commish/go/internal/roster"
	"github.com/hardwood-league/commish/go/internal/storage"
	"github.com/hardwood-league/commish/go/internal/storage/memory"
)

type bidFixture struct {
	svc     *FABidService
	bids    *memory.BidStore
	coins   *memory.CoinStore
	players *memory.PlayerStore
	chat    *fakeChat
}

func newBidFixture(t *testing.T) *bidFixture {
	t.Helper()
	f := &bidFixture{
		bids:    memory.NewBidStore(),
		coins:   memory.NewCoinStore(),
		players: memory.NewPlayerStore(),
		chat:    newFakeChat(),
	}
	ctx := context.Background()
	seed := []models.Player{
		{ID: 1, Name: "Malik Beasley", Team: "Lakers", Overall: 80, Salary: 5},
		{ID: 2, Name: "Dennis Schroder", Team: models.FreeAgentTeam, Overall: 81, Salary: 6},
		{ID: 3, Name: "Lonnie Walker", Team: models.FreeAgentTeam, Overall: 78, Salary: 2},
	}
	for i := range seed {
		require.NoError(t, f.players.Insert(ctx, &seed[i]))
	}
	require.NoError(t, f.coins.Upsert(ctx, &models.TeamCoins{Team: "Lakers", CoinsRemaining: 20}))

	clock := clockwork.NewFakeClock()
	txns := memory.NewTransactionStore()
	engine := ledger.NewEngine(f.coins, txns, f.bids, f.players, clock, ledger.CapRule{
		RosterOverallCap: 500,
		BoundaryOverall:  75,
	})
	resolver := playermatch.NewResolver(f.players, memory.NewAliasStore(), nil, nil)
	mutator := roster.NewMutator(f.players, resolver)
	f.svc = NewFABidService(f.bids, memory.NewDecisionStore(), memory.NewOutboxStore(), engine, resolver, mutator, f.chat, clock, Config{
		CommitteeRoleID: committeeRole,
		AdminRoleID:     adminRole,
	})
	return f
}

func (f *bidFixture) openWindow(t *testing.T) int64 {
	t.Helper()
	w, err := f.svc.OpenWindow(context.Background())
	require.NoError(t, err)
	return w.ID
}

func TestPlaceBid(t *testing.T) {
	f := newBidFixture(t)
	ctx := context.Background()
	f.openWindow(t)

	err := f.svc.PlaceBid(ctx, 5000, "Lakers", &models.ParsedBid{
		PlayerToSign: "Dennis Schroder",
		PlayerToCut:  "Malik Beasley",
		BidAmount:    12,
	})
	require.NoError(t, err)

	bid, err := f.bids.Get(ctx, 5000)
	require.NoError(t, err)
	assert.Equal(t, models.BidStatusOpen, bid.Status)
	assert.Equal(t, 12, bid.BidAmount)
	assert.Equal(t, "Dennis Schroder", bid.PlayerToSign)
	assert.Contains(t, f.chat.reacts, "5000/✅")

	// Placement never touches the balance.
	tc, err := f.coins.Get(ctx, "Lakers")
	require.NoError(t, err)
	assert.Equal(t, 20, tc.CoinsRemaining)
}

func TestPlaceBid_NoOpenWindow(t *testing.T) {
	f := newBidFixture(t)

	err := f.svc.PlaceBid(context.Background(), 5000, "Lakers", &models.ParsedBid{
		PlayerToSign: "Dennis Schroder", BidAmount: 5,
	})
	assert.ErrorIs(t, err, ErrBiddingLocked)
}

func TestPlaceBid_LockedWindow(t *testing.T) {
	f := newBidFixture(t)
	ctx := context.Background()
	f.openWindow(t)
	require.NoError(t, f.svc.LockCurrentWindow(ctx))

	err := f.svc.PlaceBid(ctx, 5000, "Lakers", &models.ParsedBid{
		PlayerToSign: "Dennis Schroder", BidAmount: 5,
	})
	assert.ErrorIs(t, err, ErrBiddingLocked)

	_, err = f.bids.Get(ctx, 5000)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPlaceBid_OverCommitted(t *testing.T) {
	f := newBidFixture(t)
	ctx := context.Background()
	f.openWindow(t)

	require.NoError(t, f.svc.PlaceBid(ctx, 5000, "Lakers", &models.ParsedBid{
		PlayerToSign: "Dennis Schroder", BidAmount: 15,
	}))

	// 15 committed of 20; another 10 does not fit. The bid is reported
	// and dropped, not recorded.
	require.NoError(t, f.svc.PlaceBid(ctx, 5001, "Lakers", &models.ParsedBid{
		PlayerToSign: "Lonnie Walker", BidAmount: 10,
	}))
	_, err := f.bids.Get(ctx, 5001)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Contains(t, f.chat.reacts, "5001/❌")
}

func TestPlaceBid_UnknownFreeAgent(t *testing.T) {
	f := newBidFixture(t)
	ctx := context.Background()
	f.openWindow(t)

	require.NoError(t, f.svc.PlaceBid(ctx, 5000, "Lakers", &models.ParsedBid{
		PlayerToSign: "xyzzyqq", BidAmount: 5,
	}))
	_, err := f.bids.Get(ctx, 5000)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	require.NotEmpty(t, f.chat.posts)
	assert.Contains(t, f.chat.posts[0], "Could not find free agent")
}

func TestConfirmBid_AdminGate(t *testing.T) {
	f := newBidFixture(t)
	ctx := context.Background()
	f.openWindow(t)
	require.NoError(t, f.svc.PlaceBid(ctx, 5000, "Lakers", &models.ParsedBid{
		PlayerToSign: "Dennis Schroder", BidAmount: 5,
	}))

	err := f.svc.ConfirmBid(ctx, 5000, []string{committeeRole})
	assert.ErrorIs(t, err, ErrNotAdmin)

	require.NoError(t, f.svc.ConfirmBid(ctx, 5000, []string{adminRole}))
	bid, err := f.bids.Get(ctx, 5000)
	require.NoError(t, err)
	assert.Equal(t, models.BidStatusCounted, bid.Status)
}

func TestProcessBid(t *testing.T) {
	f := newBidFixture(t)
	ctx := context.Background()
	f.openWindow(t)
	require.NoError(t, f.svc.PlaceBid(ctx, 5000, "Lakers", &models.ParsedBid{
		PlayerToSign: "Dennis Schroder",
		PlayerToCut:  "Malik Beasley",
		BidAmount:    12,
	}))

	require.NoError(t, f.svc.ProcessBid(ctx, 5000, "admin-1", []string{adminRole}))

	bid, err := f.bids.Get(ctx, 5000)
	require.NoError(t, err)
	assert.Equal(t, models.BidStatusWon, bid.Status)

	tc, err := f.coins.Get(ctx, "Lakers")
	require.NoError(t, err)
	assert.Equal(t, 8, tc.CoinsRemaining)

	signed, err := f.players.GetByID(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Lakers", signed.Team)
	cut, err := f.players.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.FreeAgentTeam, cut.Team)

	// Second trigger is a no-op.
	err = f.svc.ProcessBid(ctx, 5000, "admin-1", []string{adminRole})
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
	tc, err = f.coins.Get(ctx, "Lakers")
	require.NoError(t, err)
	assert.Equal(t, 8, tc.CoinsRemaining)
}

func TestProcessBid_NonAdmin(t *testing.T) {
	f := newBidFixture(t)
	ctx := context.Background()
	f.openWindow(t)
	require.NoError(t, f.svc.PlaceBid(ctx, 5000, "Lakers", &models.ParsedBid{
		PlayerToSign: "Dennis Schroder", BidAmount: 5,
	}))

	err := f.svc.ProcessBid(ctx, 5000, "user-1", []string{committeeRole})
	assert.ErrorIs(t, err, ErrNotAdmin)
}

func TestProcessBid_SigningFailureRefunds(t *testing.T) {
	f := newBidFixture(t)
	ctx := context.Background()
	f.openWindow(t)
	require.NoError(t, f.svc.PlaceBid(ctx, 5000, "Lakers", &models.ParsedBid{
		PlayerToSign: "Dennis Schroder", BidAmount: 12,
	}))

	// The target signs elsewhere before processing; the signing fails and
	// the committed coins come back.
	require.NoError(t, f.players.ApplyTeamChanges(ctx, []storage.TeamChange{{PlayerID: 2, NewTeam: "Celtics"}}))

	require.NoError(t, f.svc.ProcessBid(ctx, 5000, "admin-1", []string{adminRole}))

	bid, err := f.bids.Get(ctx, 5000)
	require.NoError(t, err)
	assert.Equal(t, models.BidStatusLost, bid.Status)

	tc, err := f.coins.Get(ctx, "Lakers")
	require.NoError(t, err)
	assert.Equal(t, 20, tc.CoinsRemaining)
}
