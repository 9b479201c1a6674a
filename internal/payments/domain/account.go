package domain

import (
	"context"

	"github.com/google/uuid"
)

// Account holds the ledger balance for one identity, in indivisible base
// units. The engine's escrow account is an ordinary account owned by the
// engine identity.
type Account struct {
	ID      uuid.UUID
	Balance int64
}

type AccountRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	Save(ctx context.Context, account *Account) error
	// SaveAll persists the given accounts atomically: either every balance
	// is written or none is.
	SaveAll(ctx context.Context, accounts ...*Account) error
}

// ClaimRepository records escrowed value owed to an account after a failed
// disbursement, so the funds stay recoverable instead of stranded. Claims
// accumulate per account and clear on successful withdrawal.
type ClaimRepository interface {
	Add(ctx context.Context, account uuid.UUID, amount int64) error
	Get(ctx context.Context, account uuid.UUID) (int64, error)
	Clear(ctx context.Context, account uuid.UUID) error
}
