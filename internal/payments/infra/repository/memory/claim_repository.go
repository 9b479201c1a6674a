package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// ClaimRepository is the in-memory implementation of
// domain.ClaimRepository.
type ClaimRepository struct {
	mu     sync.RWMutex
	claims map[uuid.UUID]int64
}

func NewClaimRepository() *ClaimRepository {
	return &ClaimRepository{claims: make(map[uuid.UUID]int64)}
}

func (r *ClaimRepository) Add(ctx context.Context, account uuid.UUID, amount int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.claims[account] += amount
	return nil
}

func (r *ClaimRepository) Get(ctx context.Context, account uuid.UUID) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.claims[account], nil
}

func (r *ClaimRepository) Clear(ctx context.Context, account uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.claims, account)
	return nil
}
