package application

import (
	"context"
	"fmt"
	"time"

	"github.com/deedhouse/deedhouse/internal/auction/domain"
	"github.com/deedhouse/deedhouse/internal/shared/events"
	"github.com/deedhouse/deedhouse/internal/shared/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// CreateAuctionDTO carries the input for CreateAuctionUseCase. The caller
// must already have transferred custody of the deed to the engine; the
// engine never pulls custody itself.
type CreateAuctionDTO struct {
	Caller         uuid.UUID
	Name           string
	DeadlineOffset time.Duration
	StartPrice     int64
	URI            string
	DeedID         int64
}

type CreateAuctionUseCase struct {
	auctions domain.AuctionRepository
	registry domain.DeedRegistry
	engineID uuid.UUID
	events   events.Publisher
	now      func() time.Time
}

func NewCreateAuctionUseCase(auctions domain.AuctionRepository, registry domain.DeedRegistry, engineID uuid.UUID, publisher events.Publisher) *CreateAuctionUseCase {
	return &CreateAuctionUseCase{
		auctions: auctions,
		registry: registry,
		engineID: engineID,
		events:   publisher,
		now:      time.Now,
	}
}

// Execute validates in a fixed, documented order (registry wired, custody,
// name, deadline, price, uri — first failure wins), then allocates the next
// auction id. A rejected call allocates nothing: the id counter is derived
// from the number of stored records.
func (uc *CreateAuctionUseCase) Execute(ctx context.Context, cmd CreateAuctionDTO) (uint64, error) {
	if uc.registry == nil {
		return 0, domain.ErrNilRegistry
	}
	holder, err := uc.registry.OwnerOf(ctx, cmd.DeedID)
	if err != nil {
		return 0, fmt.Errorf("create auction: failed to resolve deed %d holder: %w", cmd.DeedID, err)
	}
	if holder != uc.engineID {
		log.Warn("Create rejected: deed not in engine custody",
			zap.Int64("deedID", cmd.DeedID),
			zap.String("holder", holder.String()),
			zap.String("caller", cmd.Caller.String()),
		)
		return 0, domain.ErrDeedNotInCustody
	}
	if cmd.Name == "" {
		return 0, domain.ErrEmptyName
	}
	if cmd.DeadlineOffset <= 0 {
		return 0, domain.ErrInvalidDeadline
	}
	if cmd.StartPrice <= 0 {
		return 0, domain.ErrInvalidStartPrice
	}
	if cmd.URI == "" {
		return 0, domain.ErrEmptyURI
	}

	count, err := uc.auctions.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("create auction: failed to read auction count: %w", err)
	}
	id := count + 1

	auction := domain.NewAuction(id, cmd.Name, cmd.Caller, cmd.DeedID, cmd.StartPrice, cmd.URI, uc.now(), cmd.DeadlineOffset)
	if err := uc.auctions.Save(ctx, auction); err != nil {
		return 0, fmt.Errorf("create auction: failed to save auction %d: %w", id, err)
	}

	log.Info("Auction created",
		zap.Uint64("auctionID", id),
		zap.String("owner", cmd.Caller.String()),
		zap.Int64("deedID", cmd.DeedID),
		zap.Int64("startPrice", cmd.StartPrice),
		zap.Time("deadline", auction.Deadline),
	)
	events.Emit(uc.events, events.Event{
		Kind:    events.AuctionCreated,
		Actor:   cmd.Caller,
		Auction: id,
		Deed:    cmd.DeedID,
	})
	return id, nil
}
