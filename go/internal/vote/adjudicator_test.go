package vote

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hardwood-league/commish/go/internal/models"
	"github.com/hardwood-league/commish/go/internal/playermatch"
	"github.com/hardwood-league/commish/go/internal/roster"
	"github.com/hardwood-league/commish/go/internal/storage/memory"
)

const (
	committeeRole = "role-committee"
	adminRole     = "role-admin"
)

// fakeChat is an in-memory ChatClient holding reaction snapshots.
type fakeChat struct {
	mu        sync.Mutex
	reactions map[uint64]map[string][]Reactor
	removed   []string
	posts     []string
	reacts    []string
	notices   []string
}

func newFakeChat() *fakeChat {
	return &fakeChat{reactions: make(map[uint64]map[string][]Reactor)}
}

func (c *fakeChat) setReactors(messageID uint64, emoji string, reactors ...Reactor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.reactions[messageID] == nil {
		c.reactions[messageID] = make(map[string][]Reactor)
	}
	c.reactions[messageID][emoji] = reactors
}

func (c *fakeChat) ReactionUsers(_ context.Context, messageID uint64, emoji string) ([]Reactor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Reactor(nil), c.reactions[messageID][emoji]...), nil
}

func (c *fakeChat) RemoveReaction(_ context.Context, messageID uint64, emoji, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removed = append(c.removed, fmt.Sprintf("%d/%s/%s", messageID, emoji, userID))
	return nil
}

func (c *fakeChat) PostMessage(_ context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.posts = append(c.posts, text)
	return nil
}

func (c *fakeChat) React(_ context.Context, messageID uint64, emoji string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reacts = append(c.reacts, fmt.Sprintf("%d/%s", messageID, emoji))
	return nil
}

func (c *fakeChat) NotifyUser(_ context.Context, userID, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notices = append(c.notices, userID+": "+text)
	return nil
}

func (c *fakeChat) postCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.posts)
}

func committeeVoters(n int) []Reactor {
	voters := make([]Reactor, n)
	for i := range voters {
		voters[i] = Reactor{UserID: fmt.Sprintf("voter-%d", i), Roles: []string{committeeRole}}
	}
	return voters
}

type adjFixture struct {
	adj       *Adjudicator
	trades    *memory.TradeStore
	decisions *memory.DecisionStore
	outbox    *memory.OutboxStore
	players   *memory.PlayerStore
	chat      *fakeChat
	clock     *clockwork.FakeClock
}

func newAdjFixture(t *testing.T) *adjFixture {
	t.Helper()
	f := &adjFixture{
		trades:    memory.NewTradeStore(),
		decisions: memory.NewDecisionStore(),
		outbox:    memory.NewOutboxStore(),
		players:   memory.NewPlayerStore(),
		chat:      newFakeChat(),
		clock:     clockwork.NewFakeClock(),
	}
	ctx := context.Background()
	seed := []models.Player{
		{ID: 1, Name: "LeBron James", Team: "Lakers", Overall: 96, Salary: 47},
		{ID: 2, Name: "Jayson Tatum", Team: "Celtics", Overall: 95, Salary: 32},
	}
	for i := range seed {
		require.NoError(t, f.players.Insert(ctx, &seed[i]))
	}

	resolver := playermatch.NewResolver(f.players, memory.NewAliasStore(), nil, nil)
	mutator := roster.NewMutator(f.players, resolver)
	f.adj = NewAdjudicator(f.trades, f.decisions, f.outbox, mutator, f.chat, f.clock, Config{
		CommitteeRoleID: committeeRole,
		AdminRoleID:     adminRole,
		MessageIDFloor:  1000,
	})
	return f
}

func (f *adjFixture) trackTrade(t *testing.T, messageID uint64) {
	t.Helper()
	require.NoError(t, f.adj.TrackTrade(context.Background(), messageID, &models.ParsedTrade{
		Teams: [2]string{"Lakers", "Celtics"},
		Movements: []models.Movement{
			{PlayerName: "LeBron James", FromTeam: "Lakers", ToTeam: "Celtics"},
			{PlayerName: "Jayson Tatum", FromTeam: "Celtics", ToTeam: "Lakers"},
		},
	}))
}

func (f *adjFixture) playerTeam(t *testing.T, id int64) string {
	t.Helper()
	p, err := f.players.GetByID(context.Background(), id)
	require.NoError(t, err)
	return p.Team
}

func TestRecompute_ThresholdBoundary(t *testing.T) {
	f := newAdjFixture(t)
	ctx := context.Background()
	f.trackTrade(t, 2000)

	// 6 qualifying upvotes: still open.
	f.chat.setReactors(2000, "👍", committeeVoters(6)...)
	require.NoError(t, f.adj.Recompute(ctx, 2000))

	trade, err := f.trades.Get(ctx, 2000)
	require.NoError(t, err)
	assert.Equal(t, models.ProposalStatusPending, trade.Status)
	assert.Equal(t, 6, trade.Upvotes)

	// The 7th tips it to approved.
	f.chat.setReactors(2000, "👍", committeeVoters(7)...)
	require.NoError(t, f.adj.Recompute(ctx, 2000))

	trade, err = f.trades.Get(ctx, 2000)
	require.NoError(t, err)
	assert.Equal(t, models.ProposalStatusApproved, trade.Status)
	assert.Equal(t, "Celtics", f.playerTeam(t, 1))
	assert.Equal(t, "Lakers", f.playerTeam(t, 2))
}

func TestRecompute_Idempotent(t *testing.T) {
	f := newAdjFixture(t)
	ctx := context.Background()
	f.trackTrade(t, 2000)
	f.chat.setReactors(2000, "👍", committeeVoters(7)...)
	f.chat.setReactors(2000, "👎", committeeVoters(2)...)

	require.NoError(t, f.adj.Recompute(ctx, 2000))
	assert.Equal(t, "Celtics", f.playerTeam(t, 1))

	// Re-adjudication is a strict no-op: no second mutation, no second
	// outcome message.
	posts := f.chat.postCount()
	err := f.adj.Recompute(ctx, 2000)
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
	assert.Equal(t, "Celtics", f.playerTeam(t, 1))
	assert.Equal(t, posts, f.chat.postCount())
}

func TestRecompute_RejectPriority(t *testing.T) {
	f := newAdjFixture(t)
	ctx := context.Background()
	f.trackTrade(t, 2000)

	// Both thresholds met at once: reject wins.
	f.chat.setReactors(2000, "👍", committeeVoters(7)...)
	f.chat.setReactors(2000, "👎", committeeVoters(5)...)
	require.NoError(t, f.adj.Recompute(ctx, 2000))

	trade, err := f.trades.Get(ctx, 2000)
	require.NoError(t, err)
	assert.Equal(t, models.ProposalStatusRejected, trade.Status)
	assert.Equal(t, "Lakers", f.playerTeam(t, 1))

	d, err := f.decisions.Get(ctx, 2000)
	require.NoError(t, err)
	assert.Equal(t, models.DecisionRejected, d.Decision)
}

func TestRecompute_ConcurrentBurst(t *testing.T) {
	f := newAdjFixture(t)
	ctx := context.Background()
	f.trackTrade(t, 2000)
	f.chat.setReactors(2000, "👍", committeeVoters(7)...)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := f.adj.Recompute(ctx, 2000)
			assert.True(t, err == nil || errors.Is(err, ErrAlreadyProcessed), "unexpected error: %v", err)
		}()
	}
	wg.Wait()

	// Exactly one mutation: players swapped once, not an even number of
	// times back to where they started.
	assert.Equal(t, "Celtics", f.playerTeam(t, 1))
	assert.Equal(t, "Lakers", f.playerTeam(t, 2))
}

func TestHandleReaction_NonCommitteeStripped(t *testing.T) {
	f := newAdjFixture(t)
	ctx := context.Background()
	f.trackTrade(t, 2000)

	// Six committee votes plus one outsider: the outsider is stripped,
	// notified, and never counted, so the trade stays open.
	f.chat.setReactors(2000, "👍", append(committeeVoters(6), Reactor{UserID: "outsider"})...)
	require.NoError(t, f.adj.HandleReaction(ctx, 2000, "👍", "outsider", nil))

	assert.Contains(t, f.chat.removed, "2000/👍/outsider")
	require.Len(t, f.chat.notices, 1)

	trade, err := f.trades.Get(ctx, 2000)
	require.NoError(t, err)
	assert.Equal(t, models.ProposalStatusPending, trade.Status)
	assert.Equal(t, 6, trade.Upvotes)
}

func TestHandleReaction_BelowFloorIgnored(t *testing.T) {
	f := newAdjFixture(t)

	require.NoError(t, f.adj.HandleReaction(context.Background(), 999, "👍", "voter-0", []string{committeeRole}))
	assert.Empty(t, f.chat.removed)
}

func TestHandleReaction_UntrackedMessageIgnored(t *testing.T) {
	f := newAdjFixture(t)

	require.NoError(t, f.adj.HandleReaction(context.Background(), 5000, "👍", "voter-0", []string{committeeRole}))
}

func TestDecide_MutationFailureStillRecordsDecision(t *testing.T) {
	f := newAdjFixture(t)
	ctx := context.Background()

	require.NoError(t, f.adj.TrackTrade(ctx, 3000, &models.ParsedTrade{
		Teams: [2]string{"Lakers", "Celtics"},
		Movements: []models.Movement{
			{PlayerName: "xyzzyqq", FromTeam: "Lakers", ToTeam: "Celtics"},
		},
	}))
	f.chat.setReactors(3000, "👍", committeeVoters(7)...)
	require.NoError(t, f.adj.Recompute(ctx, 3000))

	// The decision row blocks re-adjudication even though nothing landed.
	d, err := f.decisions.Get(ctx, 3000)
	require.NoError(t, err)
	assert.Equal(t, models.DecisionApproved, d.Decision)
	assert.False(t, d.Applied)

	err = f.adj.Recompute(ctx, 3000)
	assert.ErrorIs(t, err, ErrAlreadyProcessed)

	require.NotEmpty(t, f.chat.posts)
	assert.Contains(t, f.chat.posts[0], "could not be applied")
}

func TestSweepOnce_AdjudicatesAndReminds(t *testing.T) {
	f := newAdjFixture(t)
	ctx := context.Background()

	f.trackTrade(t, 2000)
	f.chat.setReactors(2000, "👍", committeeVoters(7)...)

	// A second trade with no votes goes stale and earns a reminder.
	require.NoError(t, f.adj.TrackTrade(ctx, 2001, &models.ParsedTrade{
		Teams: [2]string{"Lakers", "Celtics"},
		Movements: []models.Movement{
			{PlayerName: "LeBron James", FromTeam: "Lakers", ToTeam: "Celtics"},
		},
	}))
	f.clock.Advance(3 * time.Hour)

	require.NoError(t, f.adj.SweepOnce(ctx, 2*time.Hour))

	trade, err := f.trades.Get(ctx, 2000)
	require.NoError(t, err)
	assert.Equal(t, models.ProposalStatusApproved, trade.Status)

	stale, err := f.trades.Get(ctx, 2001)
	require.NoError(t, err)
	require.NotNil(t, stale.LastReminderSent)

	// A second sweep inside the interval sends no second reminder.
	posts := f.chat.postCount()
	require.NoError(t, f.adj.SweepOnce(ctx, 2*time.Hour))
	assert.Equal(t, posts, f.chat.postCount())
}
