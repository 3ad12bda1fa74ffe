package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/electrabid/backend/internal/domain/elections"
	pkgdb "github.com/electrabid/backend/pkg/database"
)

// PostgresVoteRepository implements elections.VoteRepository
type PostgresVoteRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresVoteRepository(pool *pgxpool.Pool) *PostgresVoteRepository {
	return &PostgresVoteRepository{pool: pool}
}

func (r *PostgresVoteRepository) HasVoted(ctx context.Context, tx pkgdb.Tx, electionID, userID uuid.UUID) (bool, error) {
	pgxTx, err := asPgxTx(tx)
	if err != nil {
		return false, err
	}

	var exists bool
	err = pgxTx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM votes WHERE election_id = $1 AND user_id = $2)`,
		electionID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check vote: %w", err)
	}
	return exists, nil
}

func (r *PostgresVoteRepository) SaveVote(ctx context.Context, tx pkgdb.Tx, vote *elections.Vote) error {
	pgxTx, err := asPgxTx(tx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO votes (id, election_id, user_id, candidate_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err = pgxTx.Exec(ctx, query,
		vote.ID,
		vote.ElectionID,
		vote.UserID,
		vote.CandidateID,
		vote.CreatedAt,
	)
	if err != nil {
		// Backstop for anything that slipped past the row lock.
		if isUniqueViolation(err) {
			return elections.ErrAlreadyVoted
		}
		return fmt.Errorf("failed to insert vote: %w", err)
	}
	return nil
}

func (r *PostgresVoteRepository) SaveReceipt(ctx context.Context, tx pkgdb.Tx, receipt *elections.VoteReceipt) error {
	pgxTx, err := asPgxTx(tx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO vote_receipts (id, vote_id, receipt_code, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err = pgxTx.Exec(ctx, query,
		receipt.ID,
		receipt.VoteID,
		receipt.ReceiptCode,
		receipt.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert receipt: %w", err)
	}
	return nil
}

func (r *PostgresVoteRepository) CountVotesByCandidate(ctx context.Context, electionID uuid.UUID) (map[uuid.UUID]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT candidate_id, COUNT(*) FROM votes WHERE election_id = $1 GROUP BY candidate_id`,
		electionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count votes: %w", err)
	}
	defer rows.Close()

	tally := make(map[uuid.UUID]int64)
	for rows.Next() {
		var candidateID uuid.UUID
		var count int64
		if err := rows.Scan(&candidateID, &count); err != nil {
			return nil, fmt.Errorf("failed to scan tally row: %w", err)
		}
		tally[candidateID] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tally: %w", err)
	}
	return tally, nil
}
