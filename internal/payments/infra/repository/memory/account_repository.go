package memory

import (
	"context"
	"sync"

	"github.com/deedhouse/deedhouse/internal/payments/domain"
	"github.com/google/uuid"
)

// AccountRepository is the in-memory implementation of
// domain.AccountRepository.
type AccountRepository struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]*domain.Account
}

func NewAccountRepository() *AccountRepository {
	return &AccountRepository{accounts: make(map[uuid.UUID]*domain.Account)}
}

func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	account, ok := r.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	c := *account
	return &c, nil
}

func (r *AccountRepository) Save(ctx context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *account
	r.accounts[account.ID] = &c
	return nil
}

func (r *AccountRepository) SaveAll(ctx context.Context, accounts ...*domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, account := range accounts {
		c := *account
		r.accounts[account.ID] = &c
	}
	return nil
}
