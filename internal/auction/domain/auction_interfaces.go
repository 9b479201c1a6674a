package domain

import (
	"context"

	"github.com/google/uuid"
)

// AuctionRepository persists auction records (with their embedded bid
// sequences) and serves the owner index. Save is a full-aggregate upsert;
// the owner index is derived from the record's owner field, appended once
// at creation and kept in insertion order.
type AuctionRepository interface {
	GetByID(ctx context.Context, id uint64) (*Auction, error)
	Save(ctx context.Context, auction *Auction) error
	// Count reports how many auctions were ever created. Identifiers are
	// allocated monotonically from this counter and never reused.
	Count(ctx context.Context) (uint64, error)
	GetByOwner(ctx context.Context, owner uuid.UUID) ([]uint64, error)
	GetActive(ctx context.Context) ([]*Auction, error)
}

// DeedRegistry is the slice of the registry the engine consumes. It is an
// injected capability so tests can substitute a registry that fails or
// misbehaves on transfer.
type DeedRegistry interface {
	OwnerOf(ctx context.Context, id int64) (uuid.UUID, error)
	Transfer(ctx context.Context, caller, from, to uuid.UUID, id int64) error
}

// Treasury moves escrowed value. Collect pulls the value attached to a bid
// into engine escrow; Disburse pays escrowed value out to an untrusted
// recipient and may fail, in which case the enclosing operation aborts.
// Strand records value left in escrow after a failed disbursement as a
// claim the recipient can withdraw later.
type Treasury interface {
	Collect(ctx context.Context, from uuid.UUID, amount int64) error
	Disburse(ctx context.Context, to uuid.UUID, amount int64) error
	Strand(ctx context.Context, to uuid.UUID, amount int64) error
}
