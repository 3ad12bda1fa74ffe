package memstore

import (
	"context"

	"github.com/google/uuid"

	"github.com/electrabid/backend/pkg/database"
	"github.com/electrabid/backend/pkg/events"
)

// OutboxRepository returns the events.OutboxRepository view of the store.
func (s *Store) OutboxRepository() events.OutboxRepository {
	return (*outboxStore)(s)
}

type outboxStore Store

func (o *outboxStore) SaveEvent(_ context.Context, tx database.Tx, event *events.OutboxEvent) error {
	s := (*Store)(o)
	if err := s.checkTx(tx); err != nil {
		return err
	}
	clone := *event
	clone.Payload = append([]byte(nil), event.Payload...)
	s.outbox = append(s.outbox, &clone)
	return nil
}

func (o *outboxStore) GetPendingEvents(_ context.Context, tx database.Tx, limit int) ([]*events.OutboxEvent, error) {
	s := (*Store)(o)
	if err := s.checkTx(tx); err != nil {
		return nil, err
	}
	result := make([]*events.OutboxEvent, 0, limit)
	for _, event := range s.outbox {
		if event.Status != events.OutboxStatusPending {
			continue
		}
		clone := *event
		clone.Payload = append([]byte(nil), event.Payload...)
		result = append(result, &clone)
		if len(result) == limit {
			break
		}
	}
	return result, nil
}

func (o *outboxStore) UpdateEventStatus(_ context.Context, tx database.Tx, eventID uuid.UUID, status events.OutboxStatus) error {
	s := (*Store)(o)
	if err := s.checkTx(tx); err != nil {
		return err
	}
	for _, event := range s.outbox {
		if event.ID == eventID {
			event.Status = status
			return nil
		}
	}
	return nil
}
