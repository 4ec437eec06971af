// Package reversal undoes committed proposals with compensating
// transactions. A reversal never resurrects the pending state: it writes
// new ledger rows and roster changes and flags the original decision.
package reversal

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/hardwood-league/commish/go/internal/ledger"
	"github.com/hardwood-league/commish/go/internal/models"
	"github.com/hardwood-league/commish/go/internal/playermatch"
	"github.com/hardwood-league/commish/go/internal/storage"
)

var (
	// ErrNotReversible indicates the proposal is not in a state that can
	// be undone: still pending, rejected, never applied, or already
	// reversed.
	ErrNotReversible = errors.New("reversal: proposal is not reversible")
)

// Engine reverses committed proposals.
type Engine struct {
	trades    storage.TradeStore
	bids      storage.BidStore
	decisions storage.DecisionStore
	players   storage.PlayerStore
	resolver  *playermatch.Resolver
	coins     *ledger.Engine
	clock     clockwork.Clock
}

// NewEngine creates a reversal engine.
func NewEngine(trades storage.TradeStore, bids storage.BidStore, decisions storage.DecisionStore, players storage.PlayerStore, resolver *playermatch.Resolver, coins *ledger.Engine, clock clockwork.Clock) *Engine {
	return &Engine{
		trades:    trades,
		bids:      bids,
		decisions: decisions,
		players:   players,
		resolver:  resolver,
		coins:     coins,
		clock:     clock,
	}
}

// Reverse undoes a committed proposal identified by its message id. The
// decision row decides whether it was a trade or a bid. Returns the
// number of roster movements actually undone.
func (e *Engine) Reverse(ctx context.Context, proposalID uint64, actor string) (int, error) {
	d, err := e.decisions.Get(ctx, proposalID)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, ErrNotReversible
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load decision: %w", err)
	}
	if d.Decision != models.DecisionApproved || !d.Applied || d.Reversed {
		return 0, ErrNotReversible
	}

	var undone int
	switch d.Kind {
	case models.ProposalKindTrade:
		undone, err = e.reverseTrade(ctx, proposalID)
	case models.ProposalKindFABid:
		undone, err = e.reverseBid(ctx, proposalID, actor)
	default:
		return 0, fmt.Errorf("unknown proposal kind %q", d.Kind)
	}
	if err != nil {
		return 0, err
	}

	if err := e.decisions.SetReversed(ctx, proposalID); err != nil {
		return undone, fmt.Errorf("failed to flag decision reversed: %w", err)
	}

	log.Info().
		Uint64("proposal_id", proposalID).
		Str("kind", string(d.Kind)).
		Int("undone", undone).
		Msg("reversed proposal")
	return undone, nil
}

// reverseTrade applies the inverse of each recorded movement. A player
// who has since moved again is left alone rather than yanked off an
// unrelated roster; the caller sees how many movements actually ran.
func (e *Engine) reverseTrade(ctx context.Context, messageID uint64) (int, error) {
	trade, err := e.trades.Get(ctx, messageID)
	if err != nil {
		return 0, fmt.Errorf("failed to load trade: %w", err)
	}

	var changes []storage.TeamChange
	for _, mv := range trade.Movements {
		p, err := e.resolver.Resolve(ctx, mv.PlayerName, playermatch.Options{})
		if err != nil {
			return 0, fmt.Errorf("failed to resolve %q: %w", mv.PlayerName, err)
		}
		if p.Team != mv.ToTeam {
			log.Warn().
				Str("player", p.Name).
				Str("expected", mv.ToTeam).
				Str("actual", p.Team).
				Msg("skipping reversal movement, player has moved since")
			continue
		}
		changes = append(changes, storage.TeamChange{PlayerID: p.ID, NewTeam: mv.FromTeam})
	}

	if len(changes) > 0 {
		if err := e.players.ApplyTeamChanges(ctx, changes); err != nil {
			return 0, fmt.Errorf("failed to apply reversal: %w", err)
		}
	}

	if err := e.trades.SetReversed(ctx, messageID, e.clock.Now()); err != nil {
		return len(changes), fmt.Errorf("failed to mark trade reversed: %w", err)
	}
	return len(changes), nil
}

// reverseBid refunds the committed coins and puts both players back
// where they were, subject to the same moved-since check as trades.
func (e *Engine) reverseBid(ctx context.Context, messageID uint64, actor string) (int, error) {
	bid, err := e.bids.Get(ctx, messageID)
	if err != nil {
		return 0, fmt.Errorf("failed to load bid: %w", err)
	}
	if bid.Status != models.BidStatusWon {
		return 0, ErrNotReversible
	}

	var changes []storage.TeamChange

	sign, err := e.resolver.Resolve(ctx, bid.PlayerToSign, playermatch.Options{})
	if err != nil {
		return 0, fmt.Errorf("failed to resolve %q: %w", bid.PlayerToSign, err)
	}
	if sign.Team == bid.Team {
		changes = append(changes, storage.TeamChange{PlayerID: sign.ID, NewTeam: models.FreeAgentTeam})
	}

	if bid.PlayerToCut != "" {
		cut, err := e.resolver.Resolve(ctx, bid.PlayerToCut, playermatch.Options{})
		if err != nil {
			return 0, fmt.Errorf("failed to resolve %q: %w", bid.PlayerToCut, err)
		}
		if cut.IsFreeAgent() {
			changes = append(changes, storage.TeamChange{PlayerID: cut.ID, NewTeam: bid.Team})
		}
	}

	if len(changes) > 0 {
		if err := e.players.ApplyTeamChanges(ctx, changes); err != nil {
			return 0, fmt.Errorf("failed to apply reversal: %w", err)
		}
	}

	if bid.BidAmount > 0 {
		if err := e.coins.Refund(ctx, bid.Team, bid.BidAmount, bid.PlayerToSign, bid.PlayerToCut, actor); err != nil {
			return len(changes), fmt.Errorf("failed to refund bid: %w", err)
		}
	}

	if err := e.bids.SetStatus(ctx, messageID, models.BidStatusCancelled); err != nil {
		return len(changes), fmt.Errorf("failed to mark bid cancelled: %w", err)
	}
	return len(changes), nil
}
