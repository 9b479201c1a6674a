package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ClaimRepository implements domain.ClaimRepository on postgres.
type ClaimRepository struct {
	pool *pgxpool.Pool
}

func NewClaimRepository(pool *pgxpool.Pool) *ClaimRepository {
	return &ClaimRepository{pool: pool}
}

func (r *ClaimRepository) Add(ctx context.Context, account uuid.UUID, amount int64) error {
	query := `
        INSERT INTO claims (account, amount)
        VALUES ($1, $2)
        ON CONFLICT (account) DO UPDATE
        SET amount = claims.amount + EXCLUDED.amount, updated_at = NOW();
    `
	_, err := r.pool.Exec(ctx, query, account, amount)
	return err
}

func (r *ClaimRepository) Get(ctx context.Context, account uuid.UUID) (int64, error) {
	var amount int64
	err := r.pool.QueryRow(ctx, `SELECT amount FROM claims WHERE account = $1`, account).Scan(&amount)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return amount, err
}

func (r *ClaimRepository) Clear(ctx context.Context, account uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM claims WHERE account = $1`, account)
	return err
}
