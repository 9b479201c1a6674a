package postgres

import (
	"context"
	"errors"

	"github.com/deedhouse/deedhouse/internal/auction/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuctionRepository implements domain.AuctionRepository on postgres. The
// aggregate spans two tables: an auctions row and its append-only bids rows
// keyed by (auction_id, idx). Save upserts the row and inserts only bid
// rows not yet present, so history can never be rewritten.
type AuctionRepository struct {
	pool *pgxpool.Pool
}

func NewAuctionRepository(pool *pgxpool.Pool) *AuctionRepository {
	return &AuctionRepository{pool: pool}
}

func (r *AuctionRepository) Save(ctx context.Context, auction *domain.Auction) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
        INSERT INTO auctions (id, name, owner, deed_id, start_price, uri, deadline, created_at, active, finalized, escrow_refunded, proceeds_paid)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
        ON CONFLICT (id) DO UPDATE
        SET
            active = EXCLUDED.active,
            finalized = EXCLUDED.finalized,
            escrow_refunded = EXCLUDED.escrow_refunded,
            proceeds_paid = EXCLUDED.proceeds_paid,
            updated_at = NOW();
    `
	_, err = tx.Exec(ctx, query,
		auction.ID,
		auction.Name,
		auction.Owner,
		auction.DeedID,
		auction.StartPrice,
		auction.URI,
		auction.Deadline,
		auction.CreatedAt,
		auction.Active,
		auction.Finalized,
		auction.EscrowRefunded,
		auction.ProceedsPaid,
	)
	if err != nil {
		return err
	}

	bidQuery := `
        INSERT INTO bids (auction_id, idx, bidder, amount, placed_at)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (auction_id, idx) DO NOTHING;
    `
	for idx, bid := range auction.Bids {
		if _, err := tx.Exec(ctx, bidQuery, auction.ID, idx, bid.Bidder, bid.Amount, bid.At); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *AuctionRepository) GetByID(ctx context.Context, id uint64) (*domain.Auction, error) {
	query := `
        SELECT id, name, owner, deed_id, start_price, uri, deadline, created_at, active, finalized, escrow_refunded, proceeds_paid
        FROM auctions
        WHERE id = $1
    `
	auction := &domain.Auction{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&auction.ID,
		&auction.Name,
		&auction.Owner,
		&auction.DeedID,
		&auction.StartPrice,
		&auction.URI,
		&auction.Deadline,
		&auction.CreatedAt,
		&auction.Active,
		&auction.Finalized,
		&auction.EscrowRefunded,
		&auction.ProceedsPaid,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAuctionNotFound
		}
		return nil, err
	}

	bids, err := r.getBids(ctx, id)
	if err != nil {
		return nil, err
	}
	auction.Bids = bids

	return auction, nil
}

func (r *AuctionRepository) getBids(ctx context.Context, auctionID uint64) ([]*domain.Bid, error) {
	query := `
        SELECT auction_id, bidder, amount, placed_at
        FROM bids
        WHERE auction_id = $1
        ORDER BY idx ASC
    `
	rows, err := r.pool.Query(ctx, query, auctionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bids := []*domain.Bid{}
	for rows.Next() {
		bid := &domain.Bid{}
		if err := rows.Scan(&bid.AuctionID, &bid.Bidder, &bid.Amount, &bid.At); err != nil {
			return nil, err
		}
		bids = append(bids, bid)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bids, nil
}

func (r *AuctionRepository) Count(ctx context.Context) (uint64, error) {
	var count uint64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM auctions`).Scan(&count)
	return count, err
}

func (r *AuctionRepository) GetByOwner(ctx context.Context, owner uuid.UUID) ([]uint64, error) {
	query := `
        SELECT id FROM auctions
        WHERE owner = $1
        ORDER BY id ASC
    `
	rows, err := r.pool.Query(ctx, query, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *AuctionRepository) GetActive(ctx context.Context) ([]*domain.Auction, error) {
	query := `
        SELECT id FROM auctions
        WHERE active = TRUE
        ORDER BY id ASC
    `
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var auctions []*domain.Auction
	for _, id := range ids {
		auction, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		auctions = append(auctions, auction)
	}
	return auctions, nil
}
