// Package roster applies player-team reassignments for approved
// proposals. Every named player is resolved before anything is written;
// the storage layer applies the whole change set in one transaction so
// a late resolution failure never leaves a half-applied trade.
package roster

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/hardwood-league/commish/go/internal/models"
	"github.com/hardwood-league/commish/go/internal/playermatch"
	"github.com/hardwood-league/commish/go/internal/storage"
)

// Mutator applies roster changes.
type Mutator struct {
	players  storage.PlayerStore
	resolver *playermatch.Resolver
}

// NewMutator creates a roster mutator.
func NewMutator(players storage.PlayerStore, resolver *playermatch.Resolver) *Mutator {
	return &Mutator{players: players, resolver: resolver}
}

// ApplyTrade resolves every movement's player and reassigns them all in
// one transaction. Any unresolved name aborts the whole trade with no
// partial writes.
func (m *Mutator) ApplyTrade(ctx context.Context, movements []models.Movement) error {
	changes := make([]storage.TeamChange, 0, len(movements))
	for _, mv := range movements {
		p, err := m.resolver.Resolve(ctx, mv.PlayerName, playermatch.Options{})
		if err != nil {
			return fmt.Errorf("failed to resolve %q: %w", mv.PlayerName, err)
		}
		changes = append(changes, storage.TeamChange{PlayerID: p.ID, NewTeam: mv.ToTeam})
	}

	if err := m.players.ApplyTeamChanges(ctx, changes); err != nil {
		return fmt.Errorf("failed to apply trade: %w", err)
	}

	log.Info().Int("movements", len(movements)).Msg("applied trade")
	return nil
}

// ApplySigning signs a free agent to team and optionally cuts a current
// player to "Free Agent", both in one transaction. Resolution failures
// abort before any write.
func (m *Mutator) ApplySigning(ctx context.Context, team, signName, cutName string) error {
	var changes []storage.TeamChange

	sign, err := m.resolver.Resolve(ctx, signName, playermatch.Options{OnlyFreeAgents: true})
	if err != nil {
		return fmt.Errorf("failed to resolve free agent %q: %w", signName, err)
	}
	changes = append(changes, storage.TeamChange{PlayerID: sign.ID, NewTeam: team})

	if cutName != "" {
		cut, err := m.resolver.Resolve(ctx, cutName, playermatch.Options{})
		if err != nil {
			return fmt.Errorf("failed to resolve %q: %w", cutName, err)
		}
		changes = append(changes, storage.TeamChange{PlayerID: cut.ID, NewTeam: models.FreeAgentTeam})
	}

	if err := m.players.ApplyTeamChanges(ctx, changes); err != nil {
		return fmt.Errorf("failed to apply signing: %w", err)
	}

	log.Info().
		Str("team", team).
		Str("sign", sign.Name).
		Str("cut", cutName).
		Msg("applied signing")
	return nil
}
