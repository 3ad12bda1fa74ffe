package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/electrabid/backend/internal/domain/auctions"
	pkgdb "github.com/electrabid/backend/pkg/database"
)

// PostgresAuctionRepository implements auctions.AuctionRepository
type PostgresAuctionRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresAuctionRepository(pool *pgxpool.Pool) *PostgresAuctionRepository {
	return &PostgresAuctionRepository{pool: pool}
}

const auctionColumns = `id, title, description, start_time, end_time, current_bid, highest_bidder, created_by, created_at`

func (r *PostgresAuctionRepository) CreateAuction(ctx context.Context, auction *auctions.Auction) error {
	query := `
		INSERT INTO auctions (` + auctionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.pool.Exec(ctx, query,
		auction.ID,
		auction.Title,
		auction.Description,
		auction.StartTime,
		auction.EndTime,
		auction.CurrentBid,
		auction.HighestBidder,
		auction.CreatedBy,
		auction.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert auction: %w", err)
	}
	return nil
}

func (r *PostgresAuctionRepository) ListAuctions(ctx context.Context) ([]*auctions.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query auctions: %w", err)
	}
	defer rows.Close()

	var result []*auctions.Auction
	for rows.Next() {
		var a auctions.Auction
		if err := scanAuction(rows, &a); err != nil {
			return nil, err
		}
		result = append(result, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating auctions: %w", err)
	}
	return result, nil
}

func (r *PostgresAuctionRepository) GetAuctionByID(ctx context.Context, auctionID uuid.UUID) (*auctions.Auction, error) {
	return r.getAuction(ctx, r.pool, auctionID, false)
}

func (r *PostgresAuctionRepository) GetAuctionByIDForUpdate(ctx context.Context, tx pkgdb.Tx, auctionID uuid.UUID) (*auctions.Auction, error) {
	pgxTx, err := asPgxTx(tx)
	if err != nil {
		return nil, err
	}
	return r.getAuction(ctx, pgxTx, auctionID, true)
}

func (r *PostgresAuctionRepository) getAuction(ctx context.Context, db queryRower, auctionID uuid.UUID, forUpdate bool) (*auctions.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE id = $1`
	if forUpdate {
		query += " FOR UPDATE"
	}

	var a auctions.Auction
	err := scanAuction(db.QueryRow(ctx, query, auctionID), &a)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auctions.ErrAuctionNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *PostgresAuctionRepository) UpdateCurrentBid(ctx context.Context, tx pkgdb.Tx, auctionID uuid.UUID, amount int64, bidder uuid.UUID) error {
	pgxTx, err := asPgxTx(tx)
	if err != nil {
		return err
	}

	query := `
		UPDATE auctions
		SET current_bid = $1, highest_bidder = $2
		WHERE id = $3
	`
	result, err := pgxTx.Exec(ctx, query, amount, bidder, auctionID)
	if err != nil {
		return fmt.Errorf("failed to update current bid: %w", err)
	}
	if result.RowsAffected() == 0 {
		return auctions.ErrAuctionNotFound
	}
	return nil
}

func (r *PostgresAuctionRepository) DeleteAuction(ctx context.Context, auctionID uuid.UUID) (bool, error) {
	// Bids cascade via the schema.
	result, err := r.pool.Exec(ctx, `DELETE FROM auctions WHERE id = $1`, auctionID)
	if err != nil {
		return false, fmt.Errorf("failed to delete auction: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

func scanAuction(row rowScanner, a *auctions.Auction) error {
	if err := row.Scan(
		&a.ID,
		&a.Title,
		&a.Description,
		&a.StartTime,
		&a.EndTime,
		&a.CurrentBid,
		&a.HighestBidder,
		&a.CreatedBy,
		&a.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		return fmt.Errorf("failed to scan auction: %w", err)
	}
	return nil
}
