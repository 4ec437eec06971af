package models

import (
	"time"

	"github.com/google/uuid"
)

// TeamCoins is the per-franchise virtual-currency balance.
// CoinsRemaining never goes negative.
type TeamCoins struct {
	Team           string `json:"team"`
	CoinsRemaining int    `json:"coins_remaining"`
}

// FATransaction is an immutable ledger/audit record. BidAmount is signed:
// positive for signings, negative for refunds and reversals. CoinsRemaining
// is the balance after the transaction was applied.
type FATransaction struct {
	ID             uuid.UUID `json:"id"`
	Team           string    `json:"team"`
	DropPlayer     string    `json:"drop_player,omitempty"`
	SignPlayer     string    `json:"sign_player,omitempty"`
	BidAmount      int       `json:"bid_amount"`
	CoinsRemaining int       `json:"coins_remaining"`
	Actor          string    `json:"actor,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
