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

type CancelAuctionUseCase struct {
	auctions domain.AuctionRepository
	registry domain.DeedRegistry
	treasury domain.Treasury
	engineID uuid.UUID
	events   events.Publisher
	now      func() time.Time
}

func NewCancelAuctionUseCase(auctions domain.AuctionRepository, registry domain.DeedRegistry, treasury domain.Treasury, engineID uuid.UUID, publisher events.Publisher) *CancelAuctionUseCase {
	return &CancelAuctionUseCase{
		auctions: auctions,
		registry: registry,
		treasury: treasury,
		engineID: engineID,
		events:   publisher,
		now:      time.Now,
	}
}

// Execute cancels an open auction: refund the high bidder if one exists,
// return the deed to the owner, then close the record. A committed refund
// is checkpointed on the record before the custody return is attempted, so
// a retry after a failed return skips the refund instead of doubling it.
func (uc *CancelAuctionUseCase) Execute(ctx context.Context, auctionID uint64, caller uuid.UUID) error {
	auction, err := uc.auctions.GetByID(ctx, auctionID)
	if err != nil {
		return err
	}
	if err := auction.ValidateCancel(caller, uc.now()); err != nil {
		return err
	}

	if high := auction.HighBid(); high != nil && !auction.EscrowRefunded {
		if err := uc.treasury.Disburse(ctx, high.Bidder, high.Amount); err != nil {
			return fmt.Errorf("cancel auction %d: refund bidder %s: %w: %v",
				auctionID, high.Bidder, domain.ErrTransferFailed, err)
		}
		auction.EscrowRefunded = true
		if err := uc.auctions.Save(ctx, auction); err != nil {
			return fmt.Errorf("cancel auction %d: failed to checkpoint refund: %w", auctionID, err)
		}
		log.Info("High bidder refunded on cancel",
			zap.Uint64("auctionID", auctionID),
			zap.String("bidder", high.Bidder.String()),
			zap.Int64("amount", high.Amount),
		)
	}

	if err := uc.registry.Transfer(ctx, uc.engineID, uc.engineID, auction.Owner, auction.DeedID); err != nil {
		// Auction stays active; the owner may retry the cancellation.
		log.Warn("Cancel aborted: custody return failed",
			zap.Uint64("auctionID", auctionID),
			zap.Int64("deedID", auction.DeedID),
			zap.Error(err),
		)
		return fmt.Errorf("cancel auction %d: return deed %d to owner: %w: %v",
			auctionID, auction.DeedID, domain.ErrTransferFailed, err)
	}

	auction.Close()
	if err := uc.auctions.Save(ctx, auction); err != nil {
		return fmt.Errorf("cancel auction %d: failed to save: %w", auctionID, err)
	}

	log.Info("Auction cancelled",
		zap.Uint64("auctionID", auctionID),
		zap.String("owner", auction.Owner.String()),
	)
	events.Emit(uc.events, events.Event{
		Kind:    events.AuctionCancelled,
		Actor:   caller,
		Auction: auctionID,
		Deed:    auction.DeedID,
	})
	return nil
}
