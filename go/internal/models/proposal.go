package models

import "time"

// ProposalKind identifies what kind of proposal a message carries
type ProposalKind string

const (
	ProposalKindTrade ProposalKind = "trade"
	ProposalKindFABid ProposalKind = "fa_bid"
)

// ProposalStatus tracks a proposal through its lifecycle
type ProposalStatus string

const (
	ProposalStatusPending  ProposalStatus = "pending"
	ProposalStatusApproved ProposalStatus = "approved"
	ProposalStatusRejected ProposalStatus = "rejected"
)

// Decision is the terminal outcome of a vote
type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
)

// Movement is a single player reassignment inside a trade proposal
type Movement struct {
	PlayerName string `json:"player_name"`
	FromTeam   string `json:"from_team"`
	ToTeam     string `json:"to_team"`
}

// ParsedTrade is the structured form of a trade proposal message.
// Teams holds the first two distinct franchise names found in the text,
// in order of appearance. Every movement references one of those teams.
type ParsedTrade struct {
	Teams     [2]string  `json:"teams"`
	Movements []Movement `json:"movements"`

	// LowConfidence marks trades recovered via the even-split fallback
	// when no explicit "sends:" sections were present.
	LowConfidence bool `json:"low_confidence"`
}

// ParsedBid is the structured form of a free-agency bid message.
// Team is resolved later from message context, not by the parser.
type ParsedBid struct {
	PlayerToSign string `json:"player_to_sign"`
	PlayerToCut  string `json:"player_to_cut,omitempty"`
	BidAmount    int    `json:"bid_amount"`
	Team         string `json:"team,omitempty"`
}

// Trade is a persisted trade proposal keyed by its source message id.
type Trade struct {
	MessageID     uint64         `json:"message_id"`
	Status        ProposalStatus `json:"status"`
	Teams         [2]string      `json:"teams"`
	Movements     []Movement     `json:"movements"`
	Upvotes       int            `json:"upvotes"`
	Downvotes     int            `json:"downvotes"`
	LowConfidence bool           `json:"low_confidence"`
	CreatedAt     time.Time      `json:"created_at"`
	ProcessedAt   *time.Time     `json:"processed_at,omitempty"`
	ReversedAt    *time.Time     `json:"reversed_at,omitempty"`

	// LastReminderSent is the last time the sweep nudged the committee
	// about this still-open proposal.
	LastReminderSent *time.Time `json:"last_reminder_sent,omitempty"`
}

// BidStatus tracks a free-agency bid through its lifecycle
type BidStatus string

const (
	BidStatusOpen      BidStatus = "open"
	BidStatusCounted   BidStatus = "counted" // admin confirmed via reaction
	BidStatusWon       BidStatus = "won"
	BidStatusLost      BidStatus = "lost"
	BidStatusCancelled BidStatus = "cancelled"
)

// FABid is a persisted free-agency bid keyed by its source message id.
type FABid struct {
	MessageID    uint64    `json:"message_id"`
	WindowID     int64     `json:"window_id"`
	Team         string    `json:"team"`
	PlayerToSign string    `json:"player_to_sign"`
	PlayerToCut  string    `json:"player_to_cut,omitempty"`
	BidAmount    int       `json:"bid_amount"`
	Status       BidStatus `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// FAWindow is a bidding window. Once locked it accepts no new bids.
type FAWindow struct {
	ID     int64 `json:"id"`
	Locked bool  `json:"locked"`
}

// DecisionRecord is the durable row that makes adjudication exactly-once.
// Its existence for a proposal id means the proposal is terminal.
type DecisionRecord struct {
	ProposalID uint64       `json:"proposal_id"`
	Kind       ProposalKind `json:"kind"`
	Upvotes    int          `json:"upvotes"`
	Downvotes  int          `json:"downvotes"`
	Decision   Decision     `json:"decision"`

	// Applied is false when the vote concluded but the roster/ledger
	// mutation failed; the row still blocks re-adjudication.
	Applied   bool      `json:"applied"`
	Reversed  bool      `json:"reversed"`
	DecidedAt time.Time `json:"decided_at"`
}
