//go:build integration

package events_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"

	"github.com/electrabid/backend/internal/adapters/database"
	pkgdb "github.com/electrabid/backend/pkg/database"
	pkgevents "github.com/electrabid/backend/pkg/events"
	"github.com/electrabid/backend/pkg/testhelpers"
)

// TestRelayIntegrationWithRabbitMQ drives the outbox relay against real
// Postgres and RabbitMQ containers and verifies end-to-end delivery.
func TestRelayIntegrationWithRabbitMQ(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	rabbitmqContainer, err := rabbitmq.Run(ctx,
		"rabbitmq:3.12-management-alpine",
		rabbitmq.WithAdminPassword("password"),
	)
	require.NoError(t, err)
	defer func() {
		if termErr := rabbitmqContainer.Terminate(ctx); termErr != nil {
			t.Fatalf("failed to terminate container: %s", termErr)
		}
	}()

	amqpURL, err := rabbitmqContainer.AmqpURL(ctx)
	require.NoError(t, err)

	testDB := testhelpers.NewTestDatabase(t)
	defer testDB.Close()

	pubConn, err := amqp.Dial(amqpURL)
	require.NoError(t, err)
	defer pubConn.Close()

	publisher, err := pkgevents.NewRabbitMQPublisher(pubConn)
	require.NoError(t, err)
	defer publisher.Close()

	txManager := pkgdb.NewPostgresTransactionManager(testDB.Pool, time.Second)
	outboxRepo := database.NewPostgresOutboxRepository(testDB.Pool)
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	relay := pkgevents.NewOutboxRelay(
		outboxRepo,
		publisher,
		txManager,
		10,
		50*time.Millisecond,
		pkgevents.Exchange,
		logger,
	)

	// Separate consumer connection bound to the vote.cast routing key.
	conConn, err := amqp.Dial(amqpURL)
	require.NoError(t, err)
	defer conConn.Close()

	ch, err := conConn.Channel()
	require.NoError(t, err)
	defer ch.Close()

	queue, err := ch.QueueDeclare("", false, true, true, false, nil)
	require.NoError(t, err)
	require.NoError(t, ch.QueueBind(queue.Name, pkgevents.EventTypeVoteCast, pkgevents.Exchange, false, nil))

	deliveries, err := ch.Consume(queue.Name, "", true, true, false, false, nil)
	require.NoError(t, err)

	// Enqueue an event the way the services do.
	payload, err := json.Marshal(map[string]string{
		"vote_id":     uuid.New().String(),
		"election_id": uuid.New().String(),
	})
	require.NoError(t, err)

	tx, err := txManager.BeginTx(ctx)
	require.NoError(t, err)
	event := &pkgevents.OutboxEvent{
		ID:        uuid.New(),
		EventType: pkgevents.EventTypeVoteCast,
		Payload:   payload,
		Status:    pkgevents.OutboxStatusPending,
		CreatedAt: time.Now(),
	}
	require.NoError(t, outboxRepo.SaveEvent(ctx, tx, event))
	require.NoError(t, tx.Commit(ctx))

	relayCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		_ = relay.Run(relayCtx)
	}()

	select {
	case delivery := <-deliveries:
		assert.Equal(t, pkgevents.EventTypeVoteCast, delivery.RoutingKey)
		assert.JSONEq(t, string(payload), string(delivery.Body))
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for the relayed event")
	}

	// The event must be marked published.
	require.Eventually(t, func() bool {
		var status string
		if err := testDB.Pool.QueryRow(ctx,
			`SELECT status FROM outbox_events WHERE id = $1`, event.ID).Scan(&status); err != nil {
			return false
		}
		return status == string(pkgevents.OutboxStatusPublished)
	}, 5*time.Second, 100*time.Millisecond)
}
