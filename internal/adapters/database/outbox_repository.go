package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	pkgdb "github.com/electrabid/backend/pkg/database"
	"github.com/electrabid/backend/pkg/events"
)

// PostgresOutboxRepository implements events.OutboxRepository
type PostgresOutboxRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresOutboxRepository(pool *pgxpool.Pool) *PostgresOutboxRepository {
	return &PostgresOutboxRepository{pool: pool}
}

func (r *PostgresOutboxRepository) SaveEvent(ctx context.Context, tx pkgdb.Tx, event *events.OutboxEvent) error {
	pgxTx, err := asPgxTx(tx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO outbox_events (id, event_type, payload, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err = pgxTx.Exec(ctx, query,
		event.ID,
		event.EventType,
		event.Payload,
		event.Status,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}
	return nil
}

// GetPendingEvents fetches pending events FOR UPDATE SKIP LOCKED so that
// concurrent relays never pick up the same batch.
func (r *PostgresOutboxRepository) GetPendingEvents(ctx context.Context, tx pkgdb.Tx, limit int) ([]*events.OutboxEvent, error) {
	pgxTx, err := asPgxTx(tx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, event_type, payload, status, created_at, processed_at
		FROM outbox_events
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	`
	rows, err := pgxTx.Query(ctx, query, events.OutboxStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending events: %w", err)
	}
	defer rows.Close()

	var pending []*events.OutboxEvent
	for rows.Next() {
		var event events.OutboxEvent
		if err := rows.Scan(
			&event.ID,
			&event.EventType,
			&event.Payload,
			&event.Status,
			&event.CreatedAt,
			&event.ProcessedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		pending = append(pending, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}
	return pending, nil
}

func (r *PostgresOutboxRepository) UpdateEventStatus(ctx context.Context, tx pkgdb.Tx, eventID uuid.UUID, status events.OutboxStatus) error {
	pgxTx, err := asPgxTx(tx)
	if err != nil {
		return err
	}

	var processedAt *time.Time
	if status == events.OutboxStatusPublished || status == events.OutboxStatusFailed {
		now := time.Now()
		processedAt = &now
	}

	result, err := pgxTx.Exec(ctx,
		`UPDATE outbox_events SET status = $1, processed_at = $2 WHERE id = $3`,
		status, processedAt, eventID,
	)
	if err != nil {
		return fmt.Errorf("failed to update event status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("event not found")
	}
	return nil
}
