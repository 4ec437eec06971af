package vote

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/hardwood-league/commish/go/internal/ledger"
	"github.com/hardwood-league/commish/go/internal/models"
	"github.com/hardwood-league/commish/go/internal/playermatch"
	"github.com/hardwood-league/commish/go/internal/roster"
	"github.com/hardwood-league/commish/go/internal/storage"
)

// ErrNotAdmin indicates an admin-gated action from a non-admin actor.
var ErrNotAdmin = errors.New("vote: action requires admin role")

// FABidService records free-agency bids and resolves them on admin
// triggers. Coins are only committed when a bid is processed, never at
// placement.
type FABidService struct {
	bids      storage.BidStore
	decisions storage.DecisionStore
	outbox    storage.OutboxStore
	engine    *ledger.Engine
	resolver  *playermatch.Resolver
	mutator   *roster.Mutator
	chat      ChatClient
	clock     clockwork.Clock
	cfg       Config
	locks     *keyedMutex

	mu       sync.Mutex
	windowID int64 // current bidding window, 0 until opened
}

// NewFABidService creates a free-agency bid service.
func NewFABidService(bids storage.BidStore, decisions storage.DecisionStore, outbox storage.OutboxStore, engine *ledger.Engine, resolver *playermatch.Resolver, mutator *roster.Mutator, chat ChatClient, clock clockwork.Clock, cfg Config) *FABidService {
	cfg.Defaults()
	return &FABidService{
		bids:      bids,
		decisions: decisions,
		outbox:    outbox,
		engine:    engine,
		resolver:  resolver,
		mutator:   mutator,
		chat:      chat,
		clock:     clock,
		cfg:       cfg,
		locks:     newKeyedMutex(),
	}
}

// OpenWindow starts a new bidding window and makes it current.
func (s *FABidService) OpenWindow(ctx context.Context) (*models.FAWindow, error) {
	w, err := s.bids.CreateWindow(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open bidding window: %w", err)
	}

	s.mu.Lock()
	s.windowID = w.ID
	s.mu.Unlock()

	log.Info().Int64("window_id", w.ID).Msg("opened bidding window")
	return w, nil
}

// LockCurrentWindow closes the current window to new bids.
func (s *FABidService) LockCurrentWindow(ctx context.Context) error {
	s.mu.Lock()
	id := s.windowID
	s.mu.Unlock()
	if id == 0 {
		return storage.ErrNotFound
	}

	if err := s.bids.LockWindow(ctx, id); err != nil {
		return fmt.Errorf("failed to lock window: %w", err)
	}
	log.Info().Int64("window_id", id).Msg("locked bidding window")
	return nil
}

// CurrentWindow returns the current window id, or 0 when none is open.
func (s *FABidService) CurrentWindow() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.windowID
}

// PlaceBid records a parsed bid from a message. The window lock is
// checked before the resolver or ledger run. Validation failures are
// reported to the channel but do not error the event pipeline.
func (s *FABidService) PlaceBid(ctx context.Context, messageID uint64, team string, parsed *models.ParsedBid) error {
	if messageID < s.cfg.MessageIDFloor {
		return nil
	}

	s.mu.Lock()
	windowID := s.windowID
	s.mu.Unlock()
	if windowID == 0 {
		return ErrBiddingLocked
	}
	w, err := s.bids.GetWindow(ctx, windowID)
	if err != nil {
		return fmt.Errorf("failed to load window: %w", err)
	}
	if w.Locked {
		return ErrBiddingLocked
	}

	sign, err := s.resolver.Resolve(ctx, parsed.PlayerToSign, playermatch.Options{OnlyFreeAgents: true})
	if err != nil {
		if errors.Is(err, playermatch.ErrPlayerNotFound) {
			s.notifyReject(ctx, messageID, fmt.Sprintf("Could not find free agent %q.", parsed.PlayerToSign))
			return nil
		}
		return err
	}

	v, err := s.engine.ValidateBid(ctx, team, windowID, sign, parsed.BidAmount)
	if err != nil {
		if errors.Is(err, ledger.ErrInsufficientFunds) {
			s.notifyReject(ctx, messageID, fmt.Sprintf("%s cannot place this bid: %v", team, err))
			return nil
		}
		return err
	}
	if !v.OK {
		s.notifyReject(ctx, messageID, fmt.Sprintf("%s has %d coins but open bids would total %d.",
			team, v.AvailableBalance, v.RequiredTotal))
		return nil
	}

	bid := &models.FABid{
		MessageID:    messageID,
		WindowID:     windowID,
		Team:         team,
		PlayerToSign: sign.Name,
		PlayerToCut:  parsed.PlayerToCut,
		BidAmount:    v.EffectiveAmount,
		Status:       models.BidStatusOpen,
		CreatedAt:    s.clock.Now(),
	}
	err = s.bids.Insert(ctx, bid)
	if errors.Is(err, storage.ErrDuplicateKey) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to record bid: %w", err)
	}

	if err := s.chat.React(ctx, messageID, successEmoji); err != nil {
		log.Warn().Err(err).Uint64("message_id", messageID).Msg("failed to acknowledge bid")
	}

	log.Info().
		Uint64("message_id", messageID).
		Str("team", team).
		Str("sign", sign.Name).
		Int("amount", v.EffectiveAmount).
		Msg("recorded bid")
	return nil
}

// ConfirmBid marks a bid counted. Admin-gated via the ❗ reaction.
func (s *FABidService) ConfirmBid(ctx context.Context, messageID uint64, actorRoles []string) error {
	if !s.isAdmin(actorRoles) {
		return ErrNotAdmin
	}

	if err := s.bids.SetStatus(ctx, messageID, models.BidStatusCounted); err != nil {
		return fmt.Errorf("failed to mark bid counted: %w", err)
	}
	log.Info().Uint64("message_id", messageID).Msg("bid counted")
	return nil
}

// ProcessBid adjudicates one bid. Admin-gated via the ⚡ reaction. The
// winning team's coins are committed and the signing applied; a ledger
// shortfall at commit time aborts with no roster write, though the
// decision row still blocks re-processing.
func (s *FABidService) ProcessBid(ctx context.Context, messageID uint64, actorID string, actorRoles []string) error {
	if !s.isAdmin(actorRoles) {
		return ErrNotAdmin
	}

	unlock := s.locks.Lock(messageID)
	defer unlock()

	exists, err := s.decisions.Exists(ctx, messageID)
	if err != nil {
		return fmt.Errorf("failed to check decision row: %w", err)
	}
	if exists {
		return ErrAlreadyProcessed
	}

	bid, err := s.bids.Get(ctx, messageID)
	if err != nil {
		return fmt.Errorf("failed to load bid: %w", err)
	}

	record := &models.DecisionRecord{
		ProposalID: messageID,
		Kind:       models.ProposalKindFABid,
		Decision:   models.DecisionApproved,
		DecidedAt:  s.clock.Now(),
	}
	err = s.decisions.Insert(ctx, record)
	if errors.Is(err, storage.ErrDuplicateKey) {
		return ErrAlreadyProcessed
	}
	if err != nil {
		return fmt.Errorf("failed to persist decision: %w", err)
	}

	applied := s.applyBid(ctx, bid, actorID)
	if err := s.decisions.SetApplied(ctx, messageID, applied); err != nil {
		log.Warn().Err(err).Uint64("message_id", messageID).Msg("failed to flag decision applied state")
	}

	status := models.BidStatusWon
	if !applied {
		status = models.BidStatusLost
	}
	if err := s.bids.SetStatus(ctx, messageID, status); err != nil {
		return fmt.Errorf("failed to set bid status: %w", err)
	}

	if applied {
		s.postOutcome(ctx, bid)
	}
	s.enqueueOutcome(ctx, bid, record, applied)
	return nil
}

func (s *FABidService) applyBid(ctx context.Context, bid *models.FABid, actorID string) bool {
	if err := s.engine.Commit(ctx, bid.Team, bid.BidAmount, bid.PlayerToSign, bid.PlayerToCut, actorID); err != nil {
		log.Error().Err(err).Uint64("message_id", bid.MessageID).Msg("bid commit failed")
		s.notifyReject(ctx, bid.MessageID, fmt.Sprintf("Bid by %s could not be committed: %v", bid.Team, err))
		return false
	}

	if err := s.mutator.ApplySigning(ctx, bid.Team, bid.PlayerToSign, bid.PlayerToCut); err != nil {
		// Coins were already taken; give them back before reporting.
		log.Error().Err(err).Uint64("message_id", bid.MessageID).Msg("bid signing failed, refunding")
		if refundErr := s.engine.Refund(ctx, bid.Team, bid.BidAmount, bid.PlayerToSign, bid.PlayerToCut, actorID); refundErr != nil {
			log.Error().Err(refundErr).Uint64("message_id", bid.MessageID).Msg("refund after failed signing also failed")
		}
		s.notifyReject(ctx, bid.MessageID, fmt.Sprintf("Bid by %s could not be applied: %v", bid.Team, err))
		return false
	}
	return true
}

func (s *FABidService) postOutcome(ctx context.Context, bid *models.FABid) {
	text := fmt.Sprintf("%s sign %s for %d coins.", bid.Team, bid.PlayerToSign, bid.BidAmount)
	if bid.PlayerToCut != "" {
		text = fmt.Sprintf("%s sign %s for %d coins and waive %s.", bid.Team, bid.PlayerToSign, bid.BidAmount, bid.PlayerToCut)
	}
	if err := s.chat.PostMessage(ctx, text); err != nil {
		log.Warn().Err(err).Uint64("message_id", bid.MessageID).Msg("failed to post bid outcome")
	}
	if err := s.chat.React(ctx, bid.MessageID, successEmoji); err != nil {
		log.Warn().Err(err).Uint64("message_id", bid.MessageID).Msg("failed to react to bid message")
	}
}

func (s *FABidService) notifyReject(ctx context.Context, messageID uint64, text string) {
	if err := s.chat.PostMessage(ctx, text); err != nil {
		log.Warn().Err(err).Uint64("message_id", messageID).Msg("failed to post bid rejection")
	}
	if err := s.chat.React(ctx, messageID, errorEmoji); err != nil {
		log.Warn().Err(err).Uint64("message_id", messageID).Msg("failed to react to bid message")
	}
}

func (s *FABidService) enqueueOutcome(ctx context.Context, bid *models.FABid, record *models.DecisionRecord, applied bool) {
	eventType := "bid.won"
	if !applied {
		eventType = "bid.failed"
	}
	enqueueEvent(ctx, s.outbox, s.clock, bid.MessageID, eventType, record)
}

func (s *FABidService) isAdmin(roles []string) bool {
	return (Reactor{Roles: roles}).HasRole(s.cfg.AdminRoleID)
}
