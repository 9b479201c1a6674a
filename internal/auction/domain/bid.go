package domain

import (
	"time"

	"github.com/google/uuid"
)

// Bid is one entry in an auction's append-only bid sequence. Entries are
// never mutated or removed; refunding an outbid bidder does not delete
// history. The last entry is always the current high bid.
type Bid struct {
	AuctionID uint64
	Bidder    uuid.UUID
	Amount    int64
	At        time.Time
}

// NewBid creates a new Bid instance.
func NewBid(auctionID uint64, bidder uuid.UUID, amount int64, at time.Time) *Bid {
	return &Bid{
		AuctionID: auctionID,
		Bidder:    bidder,
		Amount:    amount,
		At:        at,
	}
}
