package memory

import (
	"context"
	"sync"

	"github.com/deedhouse/deedhouse/internal/registry/domain"
	"github.com/google/uuid"
)

// DeedRepository is the in-memory implementation of domain.DeedRepository.
type DeedRepository struct {
	mu        sync.RWMutex
	deeds     map[int64]*domain.Deed
	approvals map[uuid.UUID]map[uuid.UUID]bool
}

func NewDeedRepository() *DeedRepository {
	return &DeedRepository{
		deeds:     make(map[int64]*domain.Deed),
		approvals: make(map[uuid.UUID]map[uuid.UUID]bool),
	}
}

func (r *DeedRepository) GetByID(ctx context.Context, id int64) (*domain.Deed, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	deed, ok := r.deeds[id]
	if !ok {
		return nil, domain.ErrDeedNotFound
	}
	c := *deed
	return &c, nil
}

func (r *DeedRepository) Save(ctx context.Context, deed *domain.Deed) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *deed
	r.deeds[deed.ID] = &c
	return nil
}

func (r *DeedRepository) GetByHolder(ctx context.Context, holder uuid.UUID) ([]*domain.Deed, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var held []*domain.Deed
	for _, deed := range r.deeds {
		if deed.Holder == holder {
			c := *deed
			held = append(held, &c)
		}
	}
	return held, nil
}

func (r *DeedRepository) SaveApproval(ctx context.Context, holder, operator uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.approvals[holder] == nil {
		r.approvals[holder] = make(map[uuid.UUID]bool)
	}
	r.approvals[holder][operator] = true
	return nil
}

func (r *DeedRepository) IsApproved(ctx context.Context, holder, operator uuid.UUID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.approvals[holder][operator], nil
}
