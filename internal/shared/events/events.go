package events

import (
	"time"

	"github.com/deedhouse/deedhouse/internal/shared/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

type Kind string

const (
	DeedRegistered   Kind = "deed.registered"
	DeedTransferred  Kind = "deed.transferred"
	AuctionCreated   Kind = "auction.created"
	BidAccepted      Kind = "auction.bid_accepted"
	AuctionCancelled Kind = "auction.cancelled"
	AuctionFinalized Kind = "auction.finalized"
)

// Event is the audit record emitted after every committed state change.
// Auction is zero for registry events, Deed is zero for pure fund moves.
type Event struct {
	Kind    Kind      `json:"kind"`
	Actor   uuid.UUID `json:"actor"`
	Auction uint64    `json:"auction_id,omitempty"`
	Deed    int64     `json:"deed_id,omitempty"`
	Amount  int64     `json:"amount,omitempty"`
	At      time.Time `json:"at"`
}

// Publisher fans a committed event out to external subscribers. Emission is
// best effort: a failing subscriber must never roll back the state change
// that produced the event.
type Publisher interface {
	Publish(event Event) error
}

// Emit publishes through p if one is wired, stamping the event time.
// Publish errors are logged and swallowed.
func Emit(p Publisher, event Event) {
	if p == nil {
		return
	}
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	if err := p.Publish(event); err != nil {
		log.Warn("Event publish failed",
			zap.String("kind", string(event.Kind)),
			zap.Uint64("auctionID", event.Auction),
			zap.Error(err),
		)
	}
}

// Fanout publishes to several publishers in order.
type Fanout []Publisher

func (f Fanout) Publish(event Event) error {
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(event); err != nil {
			return err
		}
	}
	return nil
}
