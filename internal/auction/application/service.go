package application

import (
	"context"
	"sync"
	"time"

	"github.com/deedhouse/deedhouse/internal/auction/domain"
	"github.com/deedhouse/deedhouse/internal/shared/events"
	"github.com/google/uuid"
)

// AuctionService is the engine's public contract. Every operation is
// all-or-nothing: it either commits completely or leaves no trace.
type AuctionService interface {
	CreateAuction(ctx context.Context, cmd CreateAuctionDTO) (uint64, error)
	PlaceBid(ctx context.Context, cmd PlaceBidDTO) (*domain.Bid, error)
	CancelAuction(ctx context.Context, auctionID uint64, caller uuid.UUID) error
	FinalizeAuction(ctx context.Context, auctionID uint64, caller uuid.UUID) error

	GetAuctionByID(ctx context.Context, id uint64) (*AuctionDTO, error)
	GetCount(ctx context.Context) (uint64, error)
	GetBidsCount(ctx context.Context, id uint64) (int, error)
	GetCurrentBid(ctx context.Context, id uint64) (*BidDTO, error)
	GetActiveAuctions(ctx context.Context) ([]*AuctionDTO, error)
	GetAuctionsOf(ctx context.Context, owner uuid.UUID) ([]*AuctionDTO, error)
	GetAuctionsCountOfOwner(ctx context.Context, owner uuid.UUID) (int, error)
}

// auctionService serializes every operation behind one mutex, giving each
// call the run-to-completion, no-interleaving discipline the state machine
// assumes. The mutex is held across outbound transfers as well, so a
// recipient calling back into the engine blocks instead of observing
// intermediate state.
type auctionService struct {
	mu         sync.Mutex
	createUC   *CreateAuctionUseCase
	placeBidUC *PlaceBidUseCase
	cancelUC   *CancelAuctionUseCase
	finalizeUC *FinalizeAuctionUseCase
	queries    *AuctionQueries
}

// EngineDeps gathers the engine's injected capabilities.
type EngineDeps struct {
	Auctions domain.AuctionRepository
	Registry domain.DeedRegistry
	Treasury domain.Treasury
	EngineID uuid.UUID
	Events   events.Publisher
}

func NewAuctionService(deps EngineDeps) AuctionService {
	return &auctionService{
		createUC:   NewCreateAuctionUseCase(deps.Auctions, deps.Registry, deps.EngineID, deps.Events),
		placeBidUC: NewPlaceBidUseCase(deps.Auctions, deps.Treasury, deps.Events),
		cancelUC:   NewCancelAuctionUseCase(deps.Auctions, deps.Registry, deps.Treasury, deps.EngineID, deps.Events),
		finalizeUC: NewFinalizeAuctionUseCase(deps.Auctions, deps.Registry, deps.Treasury, deps.EngineID, deps.Events),
		queries:    NewAuctionQueries(deps.Auctions),
	}
}

// WithClock overrides the time source of every use case. Tests use it to
// step over deadlines.
func WithClock(svc AuctionService, clock func() time.Time) AuctionService {
	s := svc.(*auctionService)
	s.createUC.now = clock
	s.placeBidUC.now = clock
	s.cancelUC.now = clock
	s.finalizeUC.now = clock
	return s
}

func (s *auctionService) CreateAuction(ctx context.Context, cmd CreateAuctionDTO) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createUC.Execute(ctx, cmd)
}

func (s *auctionService) PlaceBid(ctx context.Context, cmd PlaceBidDTO) (*domain.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.placeBidUC.Execute(ctx, cmd)
}

func (s *auctionService) CancelAuction(ctx context.Context, auctionID uint64, caller uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelUC.Execute(ctx, auctionID, caller)
}

func (s *auctionService) FinalizeAuction(ctx context.Context, auctionID uint64, caller uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finalizeUC.Execute(ctx, auctionID, caller)
}

func (s *auctionService) GetAuctionByID(ctx context.Context, id uint64) (*AuctionDTO, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries.GetAuctionByID(ctx, id)
}

func (s *auctionService) GetCount(ctx context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries.GetCount(ctx)
}

func (s *auctionService) GetBidsCount(ctx context.Context, id uint64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries.GetBidsCount(ctx, id)
}

func (s *auctionService) GetCurrentBid(ctx context.Context, id uint64) (*BidDTO, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries.GetCurrentBid(ctx, id)
}

func (s *auctionService) GetActiveAuctions(ctx context.Context) ([]*AuctionDTO, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries.GetActiveAuctions(ctx)
}

func (s *auctionService) GetAuctionsOf(ctx context.Context, owner uuid.UUID) ([]*AuctionDTO, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries.GetAuctionsOf(ctx, owner)
}

func (s *auctionService) GetAuctionsCountOfOwner(ctx context.Context, owner uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries.GetAuctionsCountOfOwner(ctx, owner)
}
