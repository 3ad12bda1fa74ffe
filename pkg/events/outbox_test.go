package events_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/electrabid/backend/internal/adapters/memstore"
	"github.com/electrabid/backend/pkg/events"
)

type fakePublisher struct {
	mu        sync.Mutex
	published []string // routing keys in publish order
	failUntil int      // fail the first N publish calls
	calls     int
}

func (p *fakePublisher) Publish(_ context.Context, _, routingKey string, _ []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.calls <= p.failUntil {
		return errors.New("broker unavailable")
	}
	p.published = append(p.published, routingKey)
	return nil
}

func (p *fakePublisher) publishedKeys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.published...)
}

func saveEvent(t *testing.T, store *memstore.Store, eventType string) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	tx, err := store.BeginTx(ctx)
	require.NoError(t, err)
	id := uuid.New()
	require.NoError(t, store.OutboxRepository().SaveEvent(ctx, tx, &events.OutboxEvent{
		ID:        id,
		EventType: eventType,
		Payload:   []byte(`{}`),
		Status:    events.OutboxStatusPending,
		CreatedAt: time.Now(),
	}))
	require.NoError(t, tx.Commit(ctx))
	return id
}

func pendingCount(t *testing.T, store *memstore.Store) int {
	t.Helper()
	ctx := context.Background()
	tx, err := store.BeginTx(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)
	pending, err := store.OutboxRepository().GetPendingEvents(ctx, tx, 100)
	require.NoError(t, err)
	return len(pending)
}

func newRelay(store *memstore.Store, publisher events.Publisher, interval time.Duration) *events.OutboxRelay {
	return events.NewOutboxRelay(
		store.OutboxRepository(),
		publisher,
		store,
		10,
		interval,
		events.Exchange,
		slog.New(slog.DiscardHandler),
	)
}

func TestOutboxRelay_PublishesPendingEvents(t *testing.T) {
	store := memstore.New()
	saveEvent(t, store, events.EventTypeVoteCast)
	saveEvent(t, store, events.EventTypeBidPlaced)

	publisher := &fakePublisher{}
	relay := newRelay(store, publisher, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = relay.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		return len(publisher.publishedKeys()) == 2
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done

	assert.Equal(t, []string{events.EventTypeVoteCast, events.EventTypeBidPlaced}, publisher.publishedKeys())
	assert.Zero(t, pendingCount(t, store))
}

func TestOutboxRelay_RetriesFailedPublish(t *testing.T) {
	store := memstore.New()
	saveEvent(t, store, events.EventTypeUserRegistered)

	// The first publish attempt fails; the event stays pending and is
	// retried on a later tick.
	publisher := &fakePublisher{failUntil: 1}
	relay := newRelay(store, publisher, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = relay.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		return len(publisher.publishedKeys()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done

	assert.Zero(t, pendingCount(t, store))
}
