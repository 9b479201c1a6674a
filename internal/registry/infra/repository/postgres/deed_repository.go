package postgres

import (
	"context"
	"errors"

	"github.com/deedhouse/deedhouse/internal/registry/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DeedRepository implements domain.DeedRepository on postgres.
type DeedRepository struct {
	pool *pgxpool.Pool
}

func NewDeedRepository(pool *pgxpool.Pool) *DeedRepository {
	return &DeedRepository{pool: pool}
}

func (r *DeedRepository) Save(ctx context.Context, deed *domain.Deed) error {
	query := `
        INSERT INTO deeds (id, holder, uri, registered_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (id) DO UPDATE
        SET holder = EXCLUDED.holder, updated_at = NOW();
    `
	_, err := r.pool.Exec(ctx, query, deed.ID, deed.Holder, deed.URI, deed.RegisteredAt)
	return err
}

func (r *DeedRepository) GetByID(ctx context.Context, id int64) (*domain.Deed, error) {
	query := `
        SELECT id, holder, uri, registered_at
        FROM deeds
        WHERE id = $1
    `
	deed := &domain.Deed{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&deed.ID,
		&deed.Holder,
		&deed.URI,
		&deed.RegisteredAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDeedNotFound
		}
		return nil, err
	}
	return deed, nil
}

func (r *DeedRepository) GetByHolder(ctx context.Context, holder uuid.UUID) ([]*domain.Deed, error) {
	query := `
        SELECT id, holder, uri, registered_at
        FROM deeds
        WHERE holder = $1
        ORDER BY id ASC
    `
	rows, err := r.pool.Query(ctx, query, holder)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deeds []*domain.Deed
	for rows.Next() {
		deed := &domain.Deed{}
		if err := rows.Scan(&deed.ID, &deed.Holder, &deed.URI, &deed.RegisteredAt); err != nil {
			return nil, err
		}
		deeds = append(deeds, deed)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return deeds, nil
}

func (r *DeedRepository) SaveApproval(ctx context.Context, holder, operator uuid.UUID) error {
	query := `
        INSERT INTO deed_approvals (holder, operator)
        VALUES ($1, $2)
        ON CONFLICT (holder, operator) DO NOTHING;
    `
	_, err := r.pool.Exec(ctx, query, holder, operator)
	return err
}

func (r *DeedRepository) IsApproved(ctx context.Context, holder, operator uuid.UUID) (bool, error) {
	query := `
        SELECT EXISTS (
            SELECT 1 FROM deed_approvals WHERE holder = $1 AND operator = $2
        )
    `
	var approved bool
	err := r.pool.QueryRow(ctx, query, holder, operator).Scan(&approved)
	return approved, err
}
