package roster

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hardwood-league/commish/go/internal/models"
	"github.com/hardwood-league/commish/go/internal/playermatch"
	"github.com/hardwood-league/commish/go/internal/storage/memory"
)

func newMutator(t *testing.T) (*Mutator, *memory.PlayerStore) {
	t.Helper()
	players := memory.NewPlayerStore()
	ctx := context.Background()
	seed := []models.Player{
		{ID: 1, Name: "LeBron James", Team: "Lakers", Overall: 96, Salary: 47},
		{ID: 2, Name: "Austin Reaves", Team: "Lakers", Overall: 82, Salary: 13},
		{ID: 3, Name: "Jayson Tatum", Team: "Celtics", Overall: 95, Salary: 32},
		{ID: 4, Name: "Lonnie Walker", Team: models.FreeAgentTeam, Overall: 78, Salary: 2},
	}
	for i := range seed {
		require.NoError(t, players.Insert(ctx, &seed[i]))
	}
	resolver := playermatch.NewResolver(players, memory.NewAliasStore(), nil, nil)
	return NewMutator(players, resolver), players
}

func team(t *testing.T, players *memory.PlayerStore, id int64) string {
	t.Helper()
	p, err := players.GetByID(context.Background(), id)
	require.NoError(t, err)
	return p.Team
}

func TestApplyTrade(t *testing.T) {
	m, players := newMutator(t)

	err := m.ApplyTrade(context.Background(), []models.Movement{
		{PlayerName: "LeBron James", FromTeam: "Lakers", ToTeam: "Celtics"},
		{PlayerName: "Jayson Tatum", FromTeam: "Celtics", ToTeam: "Lakers"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Celtics", team(t, players, 1))
	assert.Equal(t, "Lakers", team(t, players, 3))
}

func TestApplyTrade_UnresolvedNameAbortsAll(t *testing.T) {
	m, players := newMutator(t)

	err := m.ApplyTrade(context.Background(), []models.Movement{
		{PlayerName: "LeBron James", FromTeam: "Lakers", ToTeam: "Celtics"},
		{PlayerName: "xyzzyqq", FromTeam: "Celtics", ToTeam: "Lakers"},
	})
	assert.ErrorIs(t, err, playermatch.ErrPlayerNotFound)

	// Nothing moved, including the player listed before the failure.
	assert.Equal(t, "Lakers", team(t, players, 1))
}

func TestApplySigning_WithCut(t *testing.T) {
	m, players := newMutator(t)

	err := m.ApplySigning(context.Background(), "Lakers", "Lonnie Walker", "Austin Reaves")
	require.NoError(t, err)

	assert.Equal(t, "Lakers", team(t, players, 4))
	assert.Equal(t, models.FreeAgentTeam, team(t, players, 2))
}

func TestApplySigning_SignOnly(t *testing.T) {
	m, players := newMutator(t)

	require.NoError(t, m.ApplySigning(context.Background(), "Celtics", "Lonnie Walker", ""))
	assert.Equal(t, "Celtics", team(t, players, 4))
}

func TestApplySigning_RosteredPlayerNotSignable(t *testing.T) {
	m, players := newMutator(t)

	// Only free agents are candidates for the sign side.
	err := m.ApplySigning(context.Background(), "Celtics", "LeBron James", "")
	assert.ErrorIs(t, err, playermatch.ErrPlayerNotFound)
	assert.Equal(t, "Lakers", team(t, players, 1))
}
