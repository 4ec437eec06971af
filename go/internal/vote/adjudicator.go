// Package vote tallies committee reactions on tracked proposals and
// drives each one to a terminal decision exactly once. Counts are always
// recomputed from the current reaction snapshot so the procedure is
// idempotent; the same recompute runs for live events and for the
// reconciliation sweep.
package vote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/hardwood-league/commish/go/internal/models"
	"github.com/hardwood-league/commish/go/internal/roster"
	"github.com/hardwood-league/commish/go/internal/storage"
)

var (
	// ErrAlreadyProcessed indicates the proposal already has a terminal
	// decision. Re-adjudication is a no-op.
	ErrAlreadyProcessed = errors.New("vote: proposal already processed")

	// ErrBiddingLocked indicates the current bidding window is closed.
	ErrBiddingLocked = errors.New("vote: bidding window is locked")
)

const (
	successEmoji = "✅"
	errorEmoji   = "❌"
)

// Config holds the voting parameters.
type Config struct {
	ApproveThreshold int    `yaml:"approve_threshold"`
	RejectThreshold  int    `yaml:"reject_threshold"`
	CommitteeRoleID  string `yaml:"committee_role_id"`
	AdminRoleID      string `yaml:"admin_role_id"`
	UpvoteEmoji      string `yaml:"upvote_emoji"`
	DownvoteEmoji    string `yaml:"downvote_emoji"`

	// MessageIDFloor ignores messages predating the cutover. Comparison
	// is numeric on the unsigned 64-bit id.
	MessageIDFloor uint64 `yaml:"message_id_floor"`
}

// Defaults fills zero-valued fields with the standard thresholds and
// emoji.
func (c *Config) Defaults() {
	if c.ApproveThreshold == 0 {
		c.ApproveThreshold = 7
	}
	if c.RejectThreshold == 0 {
		c.RejectThreshold = 5
	}
	if c.UpvoteEmoji == "" {
		c.UpvoteEmoji = "👍"
	}
	if c.DownvoteEmoji == "" {
		c.DownvoteEmoji = "👎"
	}
}

// Adjudicator drives trade proposals from pending to a terminal state.
type Adjudicator struct {
	trades    storage.TradeStore
	decisions storage.DecisionStore
	outbox    storage.OutboxStore
	mutator   *roster.Mutator
	chat      ChatClient
	clock     clockwork.Clock
	cfg       Config
	locks     *keyedMutex
}

// NewAdjudicator creates an adjudicator.
func NewAdjudicator(trades storage.TradeStore, decisions storage.DecisionStore, outbox storage.OutboxStore, mutator *roster.Mutator, chat ChatClient, clock clockwork.Clock, cfg Config) *Adjudicator {
	cfg.Defaults()
	return &Adjudicator{
		trades:    trades,
		decisions: decisions,
		outbox:    outbox,
		mutator:   mutator,
		chat:      chat,
		clock:     clock,
		cfg:       cfg,
		locks:     newKeyedMutex(),
	}
}

// TrackTrade stores a freshly parsed trade as pending and acknowledges
// the source message. Duplicate message ids are silently ignored.
func (a *Adjudicator) TrackTrade(ctx context.Context, messageID uint64, parsed *models.ParsedTrade) error {
	if messageID < a.cfg.MessageIDFloor {
		return nil
	}

	t := &models.Trade{
		MessageID:     messageID,
		Status:        models.ProposalStatusPending,
		Teams:         parsed.Teams,
		Movements:     parsed.Movements,
		LowConfidence: parsed.LowConfidence,
		CreatedAt:     a.clock.Now(),
	}
	err := a.trades.Insert(ctx, t)
	if errors.Is(err, storage.ErrDuplicateKey) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to track trade: %w", err)
	}

	log.Info().
		Uint64("message_id", messageID).
		Str("teams", parsed.Teams[0]+"/"+parsed.Teams[1]).
		Bool("low_confidence", parsed.LowConfidence).
		Msg("tracking trade proposal")
	return nil
}

// HandleReaction processes one reaction-add or reaction-remove event on
// a tracked trade. Non-committee vote reactions are stripped and the
// actor notified; then the tally is recomputed from the live snapshot.
func (a *Adjudicator) HandleReaction(ctx context.Context, messageID uint64, emoji, userID string, roles []string) error {
	if messageID < a.cfg.MessageIDFloor {
		return nil
	}
	if emoji != a.cfg.UpvoteEmoji && emoji != a.cfg.DownvoteEmoji {
		return nil
	}

	if _, err := a.trades.Get(ctx, messageID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to load trade: %w", err)
	}

	if userID != "" && !(Reactor{UserID: userID, Roles: roles}).HasRole(a.cfg.CommitteeRoleID) {
		if err := a.chat.RemoveReaction(ctx, messageID, emoji, userID); err != nil {
			log.Warn().Err(err).Uint64("message_id", messageID).Str("user", userID).Msg("failed to strip non-committee reaction")
		}
		if err := a.chat.NotifyUser(ctx, userID, "Only trade committee members can vote on proposals."); err != nil {
			log.Warn().Err(err).Str("user", userID).Msg("failed to notify stripped voter")
		}
		// Fall through to the recompute anyway; the snapshot filter
		// excludes them regardless of whether the strip succeeded.
	}

	err := a.Recompute(ctx, messageID)
	if errors.Is(err, ErrAlreadyProcessed) {
		return nil
	}
	return err
}

// Recompute refetches the reaction snapshot for a pending trade, updates
// the stored counts, and adjudicates if a threshold is crossed. It is
// safe to call any number of times.
func (a *Adjudicator) Recompute(ctx context.Context, messageID uint64) error {
	trade, err := a.trades.Get(ctx, messageID)
	if err != nil {
		return fmt.Errorf("failed to load trade: %w", err)
	}
	if trade.Status != models.ProposalStatusPending {
		return ErrAlreadyProcessed
	}

	up, err := a.qualifyingCount(ctx, messageID, a.cfg.UpvoteEmoji)
	if err != nil {
		return err
	}
	down, err := a.qualifyingCount(ctx, messageID, a.cfg.DownvoteEmoji)
	if err != nil {
		return err
	}

	if err := a.trades.UpdateVotes(ctx, messageID, up, down); err != nil {
		return fmt.Errorf("failed to update votes: %w", err)
	}

	// Reject takes priority when both thresholds are met at once.
	switch {
	case down >= a.cfg.RejectThreshold:
		return a.decide(ctx, trade, up, down, models.DecisionRejected)
	case up >= a.cfg.ApproveThreshold:
		return a.decide(ctx, trade, up, down, models.DecisionApproved)
	}
	return nil
}

func (a *Adjudicator) qualifyingCount(ctx context.Context, messageID uint64, emoji string) (int, error) {
	reactors, err := a.chat.ReactionUsers(ctx, messageID, emoji)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch reaction snapshot: %w", err)
	}
	n := 0
	for _, r := range reactors {
		if r.HasRole(a.cfg.CommitteeRoleID) {
			n++
		}
	}
	return n, nil
}

// decide commits the terminal outcome exactly once. The keyed mutex
// serializes concurrent handlers in this process; the decision-row
// insert is the durable check that survives restarts.
func (a *Adjudicator) decide(ctx context.Context, trade *models.Trade, up, down int, decision models.Decision) error {
	unlock := a.locks.Lock(trade.MessageID)
	defer unlock()

	exists, err := a.decisions.Exists(ctx, trade.MessageID)
	if err != nil {
		return fmt.Errorf("failed to check decision row: %w", err)
	}
	if exists {
		return ErrAlreadyProcessed
	}

	now := a.clock.Now()
	record := &models.DecisionRecord{
		ProposalID: trade.MessageID,
		Kind:       models.ProposalKindTrade,
		Upvotes:    up,
		Downvotes:  down,
		Decision:   decision,
		DecidedAt:  now,
	}
	err = a.decisions.Insert(ctx, record)
	if errors.Is(err, storage.ErrDuplicateKey) {
		return ErrAlreadyProcessed
	}
	if err != nil {
		return fmt.Errorf("failed to persist decision: %w", err)
	}

	status := models.ProposalStatusRejected
	if decision == models.DecisionApproved {
		status = models.ProposalStatusApproved
	}

	applied := true
	if decision == models.DecisionApproved {
		if err := a.mutator.ApplyTrade(ctx, trade.Movements); err != nil {
			// The decision row stands so the vote never loops, but the
			// roster was not touched. Tell the channel.
			applied = false
			log.Error().Err(err).Uint64("message_id", trade.MessageID).Msg("trade approved but mutation failed")
			a.post(ctx, fmt.Sprintf("Trade %d was approved (%d-%d) but could not be applied: %v", trade.MessageID, up, down, err))
			a.react(ctx, trade.MessageID, errorEmoji)
		}
	}
	if err := a.decisions.SetApplied(ctx, trade.MessageID, applied); err != nil {
		log.Warn().Err(err).Uint64("message_id", trade.MessageID).Msg("failed to flag decision applied state")
	}

	if err := a.trades.SetStatus(ctx, trade.MessageID, status, now); err != nil {
		return fmt.Errorf("failed to set trade status: %w", err)
	}

	if applied {
		a.post(ctx, outcomeMessage(trade, up, down, decision))
		emoji := successEmoji
		if decision == models.DecisionRejected {
			emoji = errorEmoji
		}
		a.react(ctx, trade.MessageID, emoji)
	}

	enqueueEvent(ctx, a.outbox, a.clock, trade.MessageID, "trade."+string(decision), record)

	log.Info().
		Uint64("message_id", trade.MessageID).
		Str("decision", string(decision)).
		Int("upvotes", up).
		Int("downvotes", down).
		Bool("applied", applied).
		Msg("trade adjudicated")
	return nil
}

func outcomeMessage(trade *models.Trade, up, down int, decision models.Decision) string {
	verb := "REJECTED"
	if decision == models.DecisionApproved {
		verb = "APPROVED"
	}
	return fmt.Sprintf("Trade between %s and %s %s (%d 👍 / %d 👎).",
		trade.Teams[0], trade.Teams[1], verb, up, down)
}

func (a *Adjudicator) post(ctx context.Context, text string) {
	if err := a.chat.PostMessage(ctx, text); err != nil {
		log.Warn().Err(err).Msg("failed to post outcome message")
	}
}

func (a *Adjudicator) react(ctx context.Context, messageID uint64, emoji string) {
	if err := a.chat.React(ctx, messageID, emoji); err != nil {
		log.Warn().Err(err).Uint64("message_id", messageID).Msg("failed to react to source message")
	}
}

// enqueueEvent stages a decision event for the outbox relay. Enqueue
// failures are logged, not returned; the relay's backlog metric is the
// operational signal.
func enqueueEvent(ctx context.Context, outbox storage.OutboxStore, clock clockwork.Clock, proposalID uint64, eventType string, record *models.DecisionRecord) {
	payload, err := json.Marshal(record)
	if err != nil {
		log.Warn().Err(err).Uint64("proposal_id", proposalID).Msg("failed to marshal outcome payload")
		return
	}
	ev := &storage.OutboxEvent{
		ID:         uuid.New(),
		ProposalID: proposalID,
		EventType:  eventType,
		Payload:    payload,
		CreatedAt:  clock.Now(),
	}
	if err := outbox.Insert(ctx, ev); err != nil {
		log.Warn().Err(err).Uint64("proposal_id", proposalID).Msg("failed to enqueue outcome event")
	}
}

// pendingWindow is how many open proposals one sweep pass examines.
const pendingWindow = 200

// SweepOnce re-runs the recompute over recent pending trades. Missed
// reaction events are invisible to the live handler; this catches them.
func (a *Adjudicator) SweepOnce(ctx context.Context, reminderInterval time.Duration) error {
	pending, err := a.trades.ListPendingSince(ctx, a.cfg.MessageIDFloor, pendingWindow)
	if err != nil {
		return fmt.Errorf("failed to list pending trades: %w", err)
	}

	for i := range pending {
		trade := &pending[i]
		if err := a.Recompute(ctx, trade.MessageID); err != nil && !errors.Is(err, ErrAlreadyProcessed) {
			log.Warn().Err(err).Uint64("message_id", trade.MessageID).Msg("sweep recompute failed")
			continue
		}
		a.maybeRemind(ctx, trade, reminderInterval)
	}

	log.Debug().Int("pending", len(pending)).Msg("reconciliation sweep complete")
	return nil
}

func (a *Adjudicator) maybeRemind(ctx context.Context, trade *models.Trade, interval time.Duration) {
	if interval <= 0 {
		return
	}
	now := a.clock.Now()
	if now.Sub(trade.CreatedAt) < interval {
		return
	}
	if trade.LastReminderSent != nil && now.Sub(*trade.LastReminderSent) < interval {
		return
	}

	a.post(ctx, fmt.Sprintf("Reminder: trade %d between %s and %s is still awaiting committee votes.",
		trade.MessageID, trade.Teams[0], trade.Teams[1]))
	if err := a.trades.SetLastReminder(ctx, trade.MessageID, now); err != nil {
		log.Warn().Err(err).Uint64("message_id", trade.MessageID).Msg("failed to record reminder timestamp")
	}
}
