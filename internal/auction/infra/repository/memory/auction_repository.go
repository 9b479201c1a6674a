package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/deedhouse/deedhouse/internal/auction/domain"
	"github.com/google/uuid"
)

// AuctionRepository is the in-memory implementation of
// domain.AuctionRepository. GetByID hands out deep copies, so an aborted
// operation that mutated its working copy leaves the stored record intact;
// only Save commits.
type AuctionRepository struct {
	mu       sync.RWMutex
	auctions map[uint64]*domain.Auction
	ownerIdx map[uuid.UUID][]uint64
}

func NewAuctionRepository() *AuctionRepository {
	return &AuctionRepository{
		auctions: make(map[uint64]*domain.Auction),
		ownerIdx: make(map[uuid.UUID][]uint64),
	}
}

func clone(a *domain.Auction) *domain.Auction {
	c := *a
	c.Bids = make([]*domain.Bid, len(a.Bids))
	for i, b := range a.Bids {
		bc := *b
		c.Bids[i] = &bc
	}
	return &c
}

func (r *AuctionRepository) GetByID(ctx context.Context, id uint64) (*domain.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	auction, ok := r.auctions[id]
	if !ok {
		return nil, domain.ErrAuctionNotFound
	}
	return clone(auction), nil
}

func (r *AuctionRepository) Save(ctx context.Context, auction *domain.Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.auctions[auction.ID]; !exists {
		r.ownerIdx[auction.Owner] = append(r.ownerIdx[auction.Owner], auction.ID)
	}
	r.auctions[auction.ID] = clone(auction)
	return nil
}

func (r *AuctionRepository) Count(ctx context.Context) (uint64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	// Records are never deleted, so the map size is the creation counter.
	return uint64(len(r.auctions)), nil
}

func (r *AuctionRepository) GetByOwner(ctx context.Context, owner uuid.UUID) ([]uint64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]uint64, len(r.ownerIdx[owner]))
	copy(ids, r.ownerIdx[owner])
	return ids, nil
}

func (r *AuctionRepository) GetActive(ctx context.Context) ([]*domain.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var active []*domain.Auction
	for _, a := range r.auctions {
		if a.Active {
			active = append(active, clone(a))
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].ID < active[j].ID })
	return active, nil
}
