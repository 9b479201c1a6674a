package application

import (
	"context"
	"time"

	"github.com/deedhouse/deedhouse/internal/auction/domain"
	"github.com/google/uuid"
)

// AuctionDTO is the read-model projection of an auction record.
type AuctionDTO struct {
	ID         uint64    `json:"id"`
	Name       string    `json:"name"`
	Owner      uuid.UUID `json:"owner"`
	DeedID     int64     `json:"deed_id"`
	StartPrice int64     `json:"start_price"`
	URI        string    `json:"uri"`
	Deadline   time.Time `json:"deadline"`
	CreatedAt  time.Time `json:"created_at"`
	Active     bool      `json:"active"`
	Finalized  bool      `json:"finalized"`
	BidsCount  int       `json:"bids_count"`
}

type BidDTO struct {
	Bidder uuid.UUID `json:"bidder"`
	Amount int64     `json:"amount"`
	At     time.Time `json:"at"`
}

// AuctionQueries serves the engine's read-only surface.
type AuctionQueries struct {
	auctions domain.AuctionRepository
}

func NewAuctionQueries(auctions domain.AuctionRepository) *AuctionQueries {
	return &AuctionQueries{auctions: auctions}
}

func toDTO(a *domain.Auction) *AuctionDTO {
	return &AuctionDTO{
		ID:         a.ID,
		Name:       a.Name,
		Owner:      a.Owner,
		DeedID:     a.DeedID,
		StartPrice: a.StartPrice,
		URI:        a.URI,
		Deadline:   a.Deadline,
		CreatedAt:  a.CreatedAt,
		Active:     a.Active,
		Finalized:  a.Finalized,
		BidsCount:  len(a.Bids),
	}
}

func (q *AuctionQueries) GetAuctionByID(ctx context.Context, id uint64) (*AuctionDTO, error) {
	auction, err := q.auctions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toDTO(auction), nil
}

// GetCount reports how many auctions have ever been created.
func (q *AuctionQueries) GetCount(ctx context.Context) (uint64, error) {
	return q.auctions.Count(ctx)
}

func (q *AuctionQueries) GetBidsCount(ctx context.Context, id uint64) (int, error) {
	auction, err := q.auctions.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	return len(auction.Bids), nil
}

// GetCurrentBid returns the high bid, or nil when no bid has been placed.
func (q *AuctionQueries) GetCurrentBid(ctx context.Context, id uint64) (*BidDTO, error) {
	auction, err := q.auctions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	high := auction.HighBid()
	if high == nil {
		return nil, nil
	}
	return &BidDTO{Bidder: high.Bidder, Amount: high.Amount, At: high.At}, nil
}

// GetActiveAuctions lists every auction still open for bidding, in id order.
func (q *AuctionQueries) GetActiveAuctions(ctx context.Context) ([]*AuctionDTO, error) {
	auctions, err := q.auctions.GetActive(ctx)
	if err != nil {
		return nil, err
	}
	dtos := make([]*AuctionDTO, 0, len(auctions))
	for _, auction := range auctions {
		dtos = append(dtos, toDTO(auction))
	}
	return dtos, nil
}

func (q *AuctionQueries) GetAuctionsOf(ctx context.Context, owner uuid.UUID) ([]*AuctionDTO, error) {
	ids, err := q.auctions.GetByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	dtos := make([]*AuctionDTO, 0, len(ids))
	for _, id := range ids {
		auction, err := q.auctions.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		dtos = append(dtos, toDTO(auction))
	}
	return dtos, nil
}

func (q *AuctionQueries) GetAuctionsCountOfOwner(ctx context.Context, owner uuid.UUID) (int, error) {
	ids, err := q.auctions.GetByOwner(ctx, owner)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}
