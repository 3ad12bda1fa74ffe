package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/electrabid/backend/internal/domain/elections"
	pkgdb "github.com/electrabid/backend/pkg/database"
)

// PostgresElectionRepository implements elections.ElectionRepository
type PostgresElectionRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresElectionRepository(pool *pgxpool.Pool) *PostgresElectionRepository {
	return &PostgresElectionRepository{pool: pool}
}

func (r *PostgresElectionRepository) CreateElection(ctx context.Context, tx pkgdb.Tx, election *elections.Election) error {
	pgxTx, err := asPgxTx(tx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO elections (id, title, description, start_time, end_time, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = pgxTx.Exec(ctx, query,
		election.ID,
		election.Title,
		election.Description,
		election.StartTime,
		election.EndTime,
		election.CreatedBy,
		election.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert election: %w", err)
	}

	for _, c := range election.Candidates {
		_, err = pgxTx.Exec(ctx,
			`INSERT INTO candidates (id, election_id, name) VALUES ($1, $2, $3)`,
			c.ID, c.ElectionID, c.Name,
		)
		if err != nil {
			return fmt.Errorf("failed to insert candidate: %w", err)
		}
	}
	return nil
}

func (r *PostgresElectionRepository) ListElections(ctx context.Context) ([]*elections.Election, error) {
	query := `
		SELECT id, title, description, start_time, end_time, created_by, created_at
		FROM elections
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query elections: %w", err)
	}
	defer rows.Close()

	var result []*elections.Election
	byID := make(map[uuid.UUID]*elections.Election)
	for rows.Next() {
		var e elections.Election
		if err := scanElection(rows, &e); err != nil {
			return nil, err
		}
		e.Candidates = []elections.Candidate{}
		result = append(result, &e)
		byID[e.ID] = &e
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating elections: %w", err)
	}

	candidates, err := r.pool.Query(ctx, `SELECT id, election_id, name FROM candidates ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidates: %w", err)
	}
	defer candidates.Close()

	for candidates.Next() {
		var c elections.Candidate
		if err := candidates.Scan(&c.ID, &c.ElectionID, &c.Name); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		if e, ok := byID[c.ElectionID]; ok {
			e.Candidates = append(e.Candidates, c)
		}
	}
	if err := candidates.Err(); err != nil {
		return nil, fmt.Errorf("error iterating candidates: %w", err)
	}

	return result, nil
}

func (r *PostgresElectionRepository) GetElectionByID(ctx context.Context, electionID uuid.UUID) (*elections.Election, error) {
	return r.getElection(ctx, r.pool, electionID, false)
}

func (r *PostgresElectionRepository) GetElectionByIDForUpdate(ctx context.Context, tx pkgdb.Tx, electionID uuid.UUID) (*elections.Election, error) {
	pgxTx, err := asPgxTx(tx)
	if err != nil {
		return nil, err
	}
	return r.getElection(ctx, pgxTx, electionID, true)
}

// queryRower is satisfied by both *pgxpool.Pool and pgx.Tx
type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *PostgresElectionRepository) getElection(ctx context.Context, db queryRower, electionID uuid.UUID, forUpdate bool) (*elections.Election, error) {
	query := `
		SELECT id, title, description, start_time, end_time, created_by, created_at
		FROM elections
		WHERE id = $1
	`
	if forUpdate {
		query += " FOR UPDATE"
	}

	var e elections.Election
	err := scanElection(db.QueryRow(ctx, query, electionID), &e)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, elections.ErrElectionNotFound
		}
		return nil, err
	}

	rows, err := db.Query(ctx,
		`SELECT id, election_id, name FROM candidates WHERE election_id = $1 ORDER BY name`,
		electionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidates: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c elections.Candidate
		if err := rows.Scan(&c.ID, &c.ElectionID, &c.Name); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		e.Candidates = append(e.Candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating candidates: %w", err)
	}

	return &e, nil
}

func (r *PostgresElectionRepository) DeleteElection(ctx context.Context, electionID uuid.UUID) (bool, error) {
	// Candidates, votes and receipts go with it via ON DELETE CASCADE.
	result, err := r.pool.Exec(ctx, `DELETE FROM elections WHERE id = $1`, electionID)
	if err != nil {
		return false, fmt.Errorf("failed to delete election: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// rowScanner is satisfied by pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanElection(row rowScanner, e *elections.Election) error {
	if err := row.Scan(
		&e.ID,
		&e.Title,
		&e.Description,
		&e.StartTime,
		&e.EndTime,
		&e.CreatedBy,
		&e.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		return fmt.Errorf("failed to scan election: %w", err)
	}
	return nil
}
