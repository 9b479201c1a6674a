package application

import (
	"context"
	"fmt"
	"time"

	"github.com/deedhouse/deedhouse/internal/auction/domain"
	"github.com/deedhouse/deedhouse/internal/shared/events"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PlaceBidDTO carries the input for PlaceBidUseCase. Amount is the value
// attached to the call; it moves into escrow atomically with acceptance
// and cannot be supplied out of band.
type PlaceBidDTO struct {
	AuctionID uint64
	Bidder    uuid.UUID
	Amount    int64
}

type PlaceBidUseCase struct {
	auctions domain.AuctionRepository
	treasury domain.Treasury
	events   events.Publisher
	now      func() time.Time
}

func NewPlaceBidUseCase(auctions domain.AuctionRepository, treasury domain.Treasury, publisher events.Publisher) *PlaceBidUseCase {
	return &PlaceBidUseCase{
		auctions: auctions,
		treasury: treasury,
		events:   publisher,
		now:      time.Now,
	}
}

// Execute escrows the attached amount, refunds the previous high bidder and
// appends the bid. Any transfer failure unwinds the call completely, so
// escrowed funds always belong to exactly the current high bidder.
func (uc *PlaceBidUseCase) Execute(ctx context.Context, cmd PlaceBidDTO) (*domain.Bid, error) {
	auction, err := uc.auctions.GetByID(ctx, cmd.AuctionID)
	if err != nil {
		return nil, err
	}
	if err := auction.ValidateBid(cmd.Bidder, cmd.Amount, uc.now()); err != nil {
		return nil, err
	}

	// Pull the attached value into escrow before touching the previous
	// bidder's funds. Rejected here means the value was never attached.
	if err := uc.treasury.Collect(ctx, cmd.Bidder, cmd.Amount); err != nil {
		log.Warn("Bid rejected: failed to collect attached value",
			zap.Uint64("auctionID", cmd.AuctionID),
			zap.String("bidder", cmd.Bidder.String()),
			zap.Int64("amount", cmd.Amount),
			zap.Error(err),
		)
		return nil, fmt.Errorf("place bid: collect attached value: %w", err)
	}

	// A failed cancel may have already refunded the high bidder; skip the
	// refund then, the checkpoint flag clears on acceptance.
	if prev := auction.HighBid(); prev != nil && !auction.EscrowRefunded {
		if err := uc.treasury.Disburse(ctx, prev.Bidder, prev.Amount); err != nil {
			// Refund failure is a hard abort: give the new bidder their
			// attached value back and record nothing. If the return itself
			// is rejected, the value stays in escrow as a pending claim.
			if rbErr := uc.treasury.Disburse(ctx, cmd.Bidder, cmd.Amount); rbErr != nil {
				if claimErr := uc.treasury.Strand(ctx, cmd.Bidder, cmd.Amount); claimErr != nil {
					log.Error("Failed to record claim for stranded value",
						zap.Uint64("auctionID", cmd.AuctionID),
						zap.String("bidder", cmd.Bidder.String()),
						zap.Int64("amount", cmd.Amount),
						zap.Error(claimErr),
					)
				}
			}
			return nil, fmt.Errorf("place bid: refund previous bidder %s: %w: %v",
				prev.Bidder, domain.ErrTransferFailed, err)
		}
		log.Info("Previous high bidder refunded",
			zap.Uint64("auctionID", cmd.AuctionID),
			zap.String("bidder", prev.Bidder.String()),
			zap.Int64("amount", prev.Amount),
		)
	}

	bid := auction.AcceptBid(cmd.Bidder, cmd.Amount, uc.now())
	if err := uc.auctions.Save(ctx, auction); err != nil {
		return nil, fmt.Errorf("place bid: failed to save auction %d: %w", cmd.AuctionID, err)
	}

	log.Info("Bid accepted",
		zap.Uint64("auctionID", cmd.AuctionID),
		zap.String("bidder", cmd.Bidder.String()),
		zap.Int64("amount", cmd.Amount),
	)
	events.Emit(uc.events, events.Event{
		Kind:    events.BidAccepted,
		Actor:   cmd.Bidder,
		Auction: cmd.AuctionID,
		Amount:  cmd.Amount,
	})
	return bid, nil
}
