// Package ledger validates and mutates per-team coin balances. Balances
// are committed only at adjudication time; bid placement performs a
// commitment check against the team's other open bids without escrowing
// anything.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/hardwood-league/commish/go/internal/models"
	"github.com/hardwood-league/commish/go/internal/storage"
)

// ErrInsufficientFunds indicates a bid or commit would take the team's
// balance below zero.
var ErrInsufficientFunds = errors.New("ledger: insufficient funds")

// CapRule configures the roster-overall cap exception. A team whose
// roster overall total exceeds RosterOverallCap pays nothing for players
// rated exactly BoundaryOverall, and a team at zero balance may only
// sign players rated at or below BoundaryOverall.
type CapRule struct {
	RosterOverallCap int `yaml:"roster_overall_cap"`
	BoundaryOverall  int `yaml:"boundary_overall"`
}

// Validation is the outcome of a placement-time bid check.
type Validation struct {
	OK               bool
	AvailableBalance int
	RequiredTotal    int

	// EffectiveAmount is the cost the bid will actually carry at commit
	// time, after the cap exception is applied.
	EffectiveAmount int
}

// Engine validates bids and applies coin movements.
type Engine struct {
	coins   storage.CoinStore
	txns    storage.TransactionStore
	bids    storage.BidStore
	players storage.PlayerStore
	clock   clockwork.Clock
	rule    CapRule
}

// NewEngine creates a ledger engine.
func NewEngine(coins storage.CoinStore, txns storage.TransactionStore, bids storage.BidStore, players storage.PlayerStore, clock clockwork.Clock, rule CapRule) *Engine {
	return &Engine{
		coins:   coins,
		txns:    txns,
		bids:    bids,
		players: players,
		clock:   clock,
		rule:    rule,
	}
}

// Balance returns the team's current balance. A team with no coin row
// has a balance of zero.
func (e *Engine) Balance(ctx context.Context, team string) (int, error) {
	tc, err := e.coins.Get(ctx, team)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get coin balance: %w", err)
	}
	return tc.CoinsRemaining, nil
}

// EffectiveCost returns what the bid will actually cost, applying the
// cap exception: a team over the roster-overall cap pays 0 for a player
// rated exactly at the boundary.
func (e *Engine) EffectiveCost(ctx context.Context, team string, player *models.Player, stated int) (int, error) {
	if player.Overall != e.rule.BoundaryOverall {
		return stated, nil
	}
	over, err := e.overCap(ctx, team)
	if err != nil {
		return 0, err
	}
	if over {
		return 0, nil
	}
	return stated, nil
}

func (e *Engine) overCap(ctx context.Context, team string) (bool, error) {
	players, err := e.players.ListAll(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to list players: %w", err)
	}
	total := 0
	for i := range players {
		if players[i].Team == team {
			total += players[i].Overall
		}
	}
	return total > e.rule.RosterOverallCap, nil
}

// ValidateBid checks a new bid against the team's balance and its other
// open bids in the window. Nothing is escrowed; this is a commitment
// check only. Returns ErrInsufficientFunds when a zero-balance team
// tries to sign above the boundary rating.
func (e *Engine) ValidateBid(ctx context.Context, team string, windowID int64, player *models.Player, amount int) (*Validation, error) {
	balance, err := e.Balance(ctx, team)
	if err != nil {
		return nil, err
	}

	if balance == 0 && player.Overall > e.rule.BoundaryOverall {
		return nil, fmt.Errorf("%w: zero-balance team may only sign players rated %d or below", ErrInsufficientFunds, e.rule.BoundaryOverall)
	}

	effective, err := e.EffectiveCost(ctx, team, player, amount)
	if err != nil {
		return nil, err
	}

	open, err := e.bids.ListOpenByTeam(ctx, windowID, team)
	if err != nil {
		return nil, fmt.Errorf("failed to list open bids: %w", err)
	}
	committed := 0
	for i := range open {
		committed += open[i].BidAmount
	}

	v := &Validation{
		AvailableBalance: balance,
		RequiredTotal:    committed + effective,
		EffectiveAmount:  effective,
	}
	v.OK = v.RequiredTotal <= balance
	return v, nil
}

// Commit deducts amount from the team's balance and appends a ledger
// record. A validation race can still leave the team short at commit
// time; in that case the balance is untouched and ErrInsufficientFunds
// is returned so the caller aborts the roster move.
func (e *Engine) Commit(ctx context.Context, team string, amount int, signPlayer, dropPlayer, actor string) error {
	remaining, err := e.coins.Adjust(ctx, team, -amount)
	switch {
	case errors.Is(err, storage.ErrInsufficientBalance):
		return fmt.Errorf("%w: team %s cannot cover bid of %d", ErrInsufficientFunds, team, amount)
	case errors.Is(err, storage.ErrNotFound):
		// No coin row means a zero balance.
		if amount > 0 {
			return fmt.Errorf("%w: team %s has no balance", ErrInsufficientFunds, team)
		}
		remaining = 0
	case err != nil:
		return fmt.Errorf("failed to adjust balance: %w", err)
	}

	if err := e.append(ctx, team, amount, remaining, signPlayer, dropPlayer, actor); err != nil {
		return err
	}

	log.Info().
		Str("team", team).
		Int("amount", amount).
		Int("remaining", remaining).
		Str("sign", signPlayer).
		Msg("committed bid")
	return nil
}

// Refund credits amount back to the team and appends a compensating
// ledger record with a negative signed amount.
func (e *Engine) Refund(ctx context.Context, team string, amount int, signPlayer, dropPlayer, actor string) error {
	remaining, err := e.coins.Adjust(ctx, team, amount)
	if errors.Is(err, storage.ErrNotFound) {
		// Refund into a missing row creates it.
		if upErr := e.coins.Upsert(ctx, &models.TeamCoins{Team: team, CoinsRemaining: amount}); upErr != nil {
			return fmt.Errorf("failed to create coin row: %w", upErr)
		}
		remaining = amount
	} else if err != nil {
		return fmt.Errorf("failed to adjust balance: %w", err)
	}

	if err := e.append(ctx, team, -amount, remaining, signPlayer, dropPlayer, actor); err != nil {
		return err
	}

	log.Info().
		Str("team", team).
		Int("amount", amount).
		Int("remaining", remaining).
		Msg("refunded bid")
	return nil
}

func (e *Engine) append(ctx context.Context, team string, signedAmount, remaining int, signPlayer, dropPlayer, actor string) error {
	tx := &models.FATransaction{
		ID:             uuid.New(),
		Team:           team,
		DropPlayer:     dropPlayer,
		SignPlayer:     signPlayer,
		BidAmount:      signedAmount,
		CoinsRemaining: remaining,
		Actor:          actor,
		CreatedAt:      e.clock.Now(),
	}
	if err := e.txns.Insert(ctx, tx); err != nil {
		return fmt.Errorf("failed to append ledger transaction: %w", err)
	}
	return nil
}
