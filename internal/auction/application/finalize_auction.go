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

type FinalizeAuctionUseCase struct {
	auctions domain.AuctionRepository
	registry domain.DeedRegistry
	treasury domain.Treasury
	engineID uuid.UUID
	events   events.Publisher
	now      func() time.Time
}

func NewFinalizeAuctionUseCase(auctions domain.AuctionRepository, registry domain.DeedRegistry, treasury domain.Treasury, engineID uuid.UUID, publisher events.Publisher) *FinalizeAuctionUseCase {
	return &FinalizeAuctionUseCase{
		auctions: auctions,
		registry: registry,
		treasury: treasury,
		engineID: engineID,
		events:   publisher,
		now:      time.Now,
	}
}

// Execute settles an auction whose deadline has passed. Anyone may call it,
// including for auctions that drew no bids: the no-bid branch needs no
// authorization and simply returns custody to the owner, ending the auction
// without marking it finalized. A high bid already refunded by an
// interrupted cancel is unwound, so that auction settles the same way. With
// a live bid, the high bid is paid to the owner and the deed transferred to
// the high bidder; either transfer failing aborts the call, and a committed
// payout is checkpointed so a retry cannot pay the owner twice.
func (uc *FinalizeAuctionUseCase) Execute(ctx context.Context, auctionID uint64, caller uuid.UUID) error {
	auction, err := uc.auctions.GetByID(ctx, auctionID)
	if err != nil {
		return err
	}
	if err := auction.ValidateFinalize(uc.now()); err != nil {
		return err
	}

	// EscrowRefunded means a cancel already paid the high bidder back but
	// failed to return custody; no value remains in escrow for this auction,
	// so paying the owner here would spend other auctions' escrowed bids.
	high := auction.HighBid()
	if high == nil || auction.EscrowRefunded {
		if err := uc.registry.Transfer(ctx, uc.engineID, uc.engineID, auction.Owner, auction.DeedID); err != nil {
			return fmt.Errorf("finalize auction %d: return deed %d to owner: %w: %v",
				auctionID, auction.DeedID, domain.ErrTransferFailed, err)
		}
		auction.Close()
		if err := uc.auctions.Save(ctx, auction); err != nil {
			return fmt.Errorf("finalize auction %d: failed to save: %w", auctionID, err)
		}
		log.Info("Auction ended with no bids, deed returned to owner",
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

	if !auction.ProceedsPaid {
		if err := uc.treasury.Disburse(ctx, auction.Owner, high.Amount); err != nil {
			// Deed stays in escrow, auction stays active, finalize can be
			// retried by anyone.
			return fmt.Errorf("finalize auction %d: pay owner %s: %w: %v",
				auctionID, auction.Owner, domain.ErrTransferFailed, err)
		}
		auction.ProceedsPaid = true
		if err := uc.auctions.Save(ctx, auction); err != nil {
			return fmt.Errorf("finalize auction %d: failed to checkpoint payout: %w", auctionID, err)
		}
		log.Info("Auction proceeds paid to owner",
			zap.Uint64("auctionID", auctionID),
			zap.String("owner", auction.Owner.String()),
			zap.Int64("amount", high.Amount),
		)
	}

	if err := uc.registry.Transfer(ctx, uc.engineID, uc.engineID, high.Bidder, auction.DeedID); err != nil {
		return fmt.Errorf("finalize auction %d: transfer deed %d to winner: %w: %v",
			auctionID, auction.DeedID, domain.ErrTransferFailed, err)
	}

	auction.Finalize()
	if err := uc.auctions.Save(ctx, auction); err != nil {
		return fmt.Errorf("finalize auction %d: failed to save: %w", auctionID, err)
	}

	log.Info("Auction finalized",
		zap.Uint64("auctionID", auctionID),
		zap.String("winner", high.Bidder.String()),
		zap.Int64("amount", high.Amount),
	)
	events.Emit(uc.events, events.Event{
		Kind:    events.AuctionFinalized,
		Actor:   caller,
		Auction: auctionID,
		Deed:    auction.DeedID,
		Amount:  high.Amount,
	})
	return nil
}
