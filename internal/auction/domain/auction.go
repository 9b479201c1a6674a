package domain

import (
	"time"

	"github.com/deedhouse/deedhouse/internal/shared/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// Auction is the engine's aggregate: one escrowed deed, an append-only bid
// sequence and a two-flag state machine. Created(active) is the sole
// non-terminal state; Cancelled(inactive) and Finalized(inactive,finalized)
// are absorbing. Records are never deleted, they remain as history.
//
// EscrowRefunded and ProceedsPaid are settlement checkpoints: each is set
// the moment the corresponding outbound transfer succeeds, so a retry after
// a later transfer failure can never refund or pay twice.
type Auction struct {
	ID         uint64
	Name       string
	Owner      uuid.UUID
	DeedID     int64
	StartPrice int64
	URI        string
	Deadline   time.Time
	CreatedAt  time.Time

	Active         bool
	Finalized      bool
	EscrowRefunded bool
	ProceedsPaid   bool

	Bids []*Bid
}

// NewAuction creates an active auction. The deadline is fixed here and
// never mutated afterwards.
func NewAuction(id uint64, name string, owner uuid.UUID, deedID int64, startPrice int64, uri string, createdAt time.Time, deadlineOffset time.Duration) *Auction {
	return &Auction{
		ID:         id,
		Name:       name,
		Owner:      owner,
		DeedID:     deedID,
		StartPrice: startPrice,
		URI:        uri,
		Deadline:   createdAt.Add(deadlineOffset),
		CreatedAt:  createdAt,
		Active:     true,
		Bids:       []*Bid{},
	}
}

// HighBid returns the last bid in the sequence, which by invariant is the
// largest, or nil when no bid has been placed.
func (a *Auction) HighBid() *Bid {
	if len(a.Bids) == 0 {
		return nil
	}
	return a.Bids[len(a.Bids)-1]
}

// ValidateBid checks every bid precondition without mutating anything.
// Check order is part of the contract: active, self-bid, deadline, amount.
func (a *Auction) ValidateBid(bidder uuid.UUID, amount int64, now time.Time) error {
	if !a.Active {
		return ErrAuctionNotActive
	}
	if bidder == a.Owner {
		log.Warn("Bid rejected: owner self-bid",
			zap.Uint64("auctionID", a.ID),
			zap.String("bidder", bidder.String()),
		)
		return ErrOwnerCannotBid
	}
	// Bids only while the deadline has not yet passed.
	if !now.Before(a.Deadline) {
		log.Warn("Bid rejected: deadline passed",
			zap.Uint64("auctionID", a.ID),
			zap.Time("deadline", a.Deadline),
		)
		return ErrDeadlinePassed
	}
	floor := a.StartPrice
	if high := a.HighBid(); high != nil {
		floor = high.Amount
	}
	if amount <= floor {
		log.Warn("Bid rejected: amount too low",
			zap.Uint64("auctionID", a.ID),
			zap.Int64("amount", amount),
			zap.Int64("floor", floor),
		)
		return ErrBidTooLow
	}
	return nil
}

// AcceptBid appends a validated bid. The caller must have run ValidateBid
// and refunded the previous high bidder first.
func (a *Auction) AcceptBid(bidder uuid.UUID, amount int64, now time.Time) *Bid {
	bid := NewBid(a.ID, bidder, amount, now)
	a.Bids = append(a.Bids, bid)
	a.EscrowRefunded = false
	return bid
}

// ValidateCancel checks the owner-gated cancel preconditions.
func (a *Auction) ValidateCancel(caller uuid.UUID, now time.Time) error {
	if a.Finalized {
		return ErrAuctionFinalized
	}
	if !a.Active {
		return ErrAuctionNotActive
	}
	if caller != a.Owner {
		log.Warn("Cancel rejected: caller is not the owner",
			zap.Uint64("auctionID", a.ID),
			zap.String("caller", caller.String()),
		)
		return ErrNotOwner
	}
	if !now.Before(a.Deadline) {
		return ErrDeadlinePassed
	}
	return nil
}

// ValidateFinalize checks the finalize preconditions. Finalization is open
// to any caller; only the deadline gates it.
func (a *Auction) ValidateFinalize(now time.Time) error {
	if a.Finalized {
		return ErrAuctionFinalized
	}
	if !a.Active {
		return ErrAuctionNotActive
	}
	if now.Before(a.Deadline) {
		log.Warn("Finalize rejected: deadline not reached",
			zap.Uint64("auctionID", a.ID),
			zap.Time("deadline", a.Deadline),
		)
		return ErrDeadlineNotReached
	}
	return nil
}

// Close moves the auction to the Cancelled terminal state.
func (a *Auction) Close() {
	a.Active = false
}

// Finalize moves the auction to the Finalized terminal state.
func (a *Auction) Finalize() {
	a.Active = false
	a.Finalized = true
}
