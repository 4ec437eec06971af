package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/hardwood-league/commish/go/internal/league"
	"github.com/hardwood-league/commish/go/internal/parser"
	"github.com/hardwood-league/commish/go/internal/reversal"
	"github.com/hardwood-league/commish/go/internal/vote"
)

// Emoji vocabulary for admin-gated reactions. Vote emoji live in the
// vote config; these route around it.
type EmojiConfig struct {
	BidCounted string `yaml:"bid_counted"` // admin confirms a bid is counted
	BidProcess string `yaml:"bid_process"` // admin triggers bid processing
	Reversal   string `yaml:"reversal"`    // admin triggers reversal
}

// Defaults fills zero-valued emoji with the standard vocabulary.
func (c *EmojiConfig) Defaults() {
	if c.BidCounted == "" {
		c.BidCounted = "❗"
	}
	if c.BidProcess == "" {
		c.BidProcess = "⚡"
	}
	if c.Reversal == "" {
		c.Reversal = "⏪"
	}
}

// Dispatcher routes domain events to the right service.
type Dispatcher struct {
	parser      *parser.Parser
	registry    *league.Registry
	adjudicator *vote.Adjudicator
	bids        *vote.FABidService
	reversals   *reversal.Engine
	chat        vote.ChatClient
	voteCfg     vote.Config
	emoji       EmojiConfig
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(p *parser.Parser, registry *league.Registry, adjudicator *vote.Adjudicator, bids *vote.FABidService, reversals *reversal.Engine, chat vote.ChatClient, voteCfg vote.Config, emoji EmojiConfig) *Dispatcher {
	voteCfg.Defaults()
	emoji.Defaults()
	return &Dispatcher{
		parser:      p,
		registry:    registry,
		adjudicator: adjudicator,
		bids:        bids,
		reversals:   reversals,
		chat:        chat,
		voteCfg:     voteCfg,
		emoji:       emoji,
	}
}

// HandleMessage classifies a message as a trade proposal, a bid, or
// chatter. Non-parses are silent; parse results enter the pipeline.
func (d *Dispatcher) HandleMessage(ctx context.Context, ev MessageEvent) error {
	if ev.MessageID < d.voteCfg.MessageIDFloor {
		return nil
	}

	if trade := d.parser.ParseTrade(ev.Content); trade != nil {
		return d.adjudicator.TrackTrade(ctx, ev.MessageID, trade)
	}

	bid := d.parser.ParseBid(ev.Content)
	if bid == nil {
		return nil
	}

	team, ok := d.registry.TeamForOwner(ev.AuthorID)
	if !ok {
		log.Debug().Str("author", ev.AuthorID).Msg("bid from a user owning no franchise, ignoring")
		return nil
	}

	err := d.bids.PlaceBid(ctx, ev.MessageID, team, bid)
	if errors.Is(err, vote.ErrBiddingLocked) {
		if postErr := d.chat.PostMessage(ctx, fmt.Sprintf("Bidding is currently closed; the bid by %s was not recorded.", team)); postErr != nil {
			log.Warn().Err(postErr).Msg("failed to post bidding-closed notice")
		}
		return nil
	}
	return err
}

// HandleReaction routes a reaction by emoji: votes to the adjudicator,
// admin controls to the bid service and reversal engine.
func (d *Dispatcher) HandleReaction(ctx context.Context, ev ReactionEvent) error {
	if ev.MessageID < d.voteCfg.MessageIDFloor {
		return nil
	}

	switch ev.Emoji {
	case d.voteCfg.UpvoteEmoji, d.voteCfg.DownvoteEmoji:
		// Removals recompute too; the snapshot is the source of truth.
		userID := ev.UserID
		if ev.Removed {
			userID = ""
		}
		return d.adjudicator.HandleReaction(ctx, ev.MessageID, ev.Emoji, userID, ev.Roles)

	case d.emoji.BidCounted:
		if ev.Removed {
			return nil
		}
		return d.dropNotAdmin(d.bids.ConfirmBid(ctx, ev.MessageID, ev.Roles), ev)

	case d.emoji.BidProcess:
		if ev.Removed {
			return nil
		}
		err := d.bids.ProcessBid(ctx, ev.MessageID, ev.UserID, ev.Roles)
		if errors.Is(err, vote.ErrAlreadyProcessed) {
			return nil
		}
		return d.dropNotAdmin(err, ev)

	case d.emoji.Reversal:
		if ev.Removed {
			return nil
		}
		return d.handleReversal(ctx, ev)
	}
	return nil
}

func (d *Dispatcher) handleReversal(ctx context.Context, ev ReactionEvent) error {
	if !(vote.Reactor{Roles: ev.Roles}).HasRole(d.voteCfg.AdminRoleID) {
		log.Debug().Str("user", ev.UserID).Msg("reversal reaction from non-admin, ignoring")
		return nil
	}

	undone, err := d.reversals.Reverse(ctx, ev.MessageID, ev.UserID)
	if errors.Is(err, reversal.ErrNotReversible) {
		if postErr := d.chat.PostMessage(ctx, fmt.Sprintf("Proposal %d cannot be reversed.", ev.MessageID)); postErr != nil {
			log.Warn().Err(postErr).Msg("failed to post reversal notice")
		}
		return nil
	}
	if err != nil {
		return err
	}

	if postErr := d.chat.PostMessage(ctx, fmt.Sprintf("Proposal %d reversed; %d roster movement(s) undone.", ev.MessageID, undone)); postErr != nil {
		log.Warn().Err(postErr).Msg("failed to post reversal outcome")
	}
	return nil
}

// dropNotAdmin demotes admin-gate failures to a debug log; a stray
// reaction from a regular user is not a pipeline error.
func (d *Dispatcher) dropNotAdmin(err error, ev ReactionEvent) error {
	if errors.Is(err, vote.ErrNotAdmin) {
		log.Debug().Str("user", ev.UserID).Str("emoji", ev.Emoji).Msg("admin-gated reaction from non-admin, ignoring")
		return nil
	}
	return err
}
