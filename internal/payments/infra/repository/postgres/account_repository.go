package postgres

import (
	"context"
	"errors"

	"github.com/deedhouse/deedhouse/internal/payments/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AccountRepository implements domain.AccountRepository on postgres.
type AccountRepository struct {
	pool *pgxpool.Pool
}

func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	query := `
        SELECT id, balance
        FROM accounts
        WHERE id = $1
    `
	account := &domain.Account{}
	err := r.pool.QueryRow(ctx, query, id).Scan(&account.ID, &account.Balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return account, nil
}

func (r *AccountRepository) Save(ctx context.Context, account *domain.Account) error {
	query := `
        INSERT INTO accounts (id, balance)
        VALUES ($1, $2)
        ON CONFLICT (id) DO UPDATE
        SET balance = EXCLUDED.balance, updated_at = NOW();
    `
	_, err := r.pool.Exec(ctx, query, account.ID, account.Balance)
	return err
}

// SaveAll writes every balance in one transaction, so a ledger move can
// never commit its debit without its credit.
func (r *AccountRepository) SaveAll(ctx context.Context, accounts ...*domain.Account) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
        INSERT INTO accounts (id, balance)
        VALUES ($1, $2)
        ON CONFLICT (id) DO UPDATE
        SET balance = EXCLUDED.balance, updated_at = NOW();
    `
	for _, account := range accounts {
		if _, err := tx.Exec(ctx, query, account.ID, account.Balance); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
