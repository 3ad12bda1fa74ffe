//go:build integration

package database_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/electrabid/backend/internal/adapters/database"
	"github.com/electrabid/backend/internal/domain/auctions"
	"github.com/electrabid/backend/internal/domain/elections"
	"github.com/electrabid/backend/internal/domain/users"
	"github.com/electrabid/backend/pkg/auth"
	pkgdb "github.com/electrabid/backend/pkg/database"
	"github.com/electrabid/backend/pkg/events"
	"github.com/electrabid/backend/pkg/testhelpers"
)

type testApp struct {
	pool      *pgxpool.Pool
	txManager pkgdb.TransactionManager
	users     *users.Service
	elections *elections.Service
	auctions  *auctions.Service
}

func setupApp(t *testing.T) *testApp {
	t.Helper()
	testDB := testhelpers.NewTestDatabase(t)
	t.Cleanup(testDB.Close)

	signer, err := auth.NewSigner("integration-test-secret", "test")
	require.NoError(t, err)

	txManager := pkgdb.NewPostgresTransactionManager(testDB.Pool, 3*time.Second)
	userRepo := database.NewPostgresUserRepository(testDB.Pool)
	electionRepo := database.NewPostgresElectionRepository(testDB.Pool)
	voteRepo := database.NewPostgresVoteRepository(testDB.Pool)
	auctionRepo := database.NewPostgresAuctionRepository(testDB.Pool)
	bidRepo := database.NewPostgresBidRepository(testDB.Pool)
	outboxRepo := database.NewPostgresOutboxRepository(testDB.Pool)
	logger := slog.New(slog.DiscardHandler)

	return &testApp{
		pool:      testDB.Pool,
		txManager: txManager,
		users:     users.NewService(userRepo, outboxRepo, txManager, signer),
		elections: elections.NewService(electionRepo, voteRepo, outboxRepo, txManager, nil, logger),
		auctions:  auctions.NewService(auctionRepo, bidRepo, outboxRepo, txManager),
	}
}

func registerUser(t *testing.T, app *testApp, email string) *users.User {
	t.Helper()
	user, err := app.users.Register(context.Background(), "Test User", email, "password123")
	require.NoError(t, err)
	return user
}

func TestUserRegistration_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	app := setupApp(t)
	ctx := context.Background()

	user := registerUser(t, app, "ada@example.com")

	t.Run("duplicate email hits the unique index", func(t *testing.T) {
		_, err := app.users.Register(ctx, "Imposter", "ADA@example.com", "password123")
		assert.ErrorIs(t, err, users.ErrEmailAlreadyRegistered)
	})

	t.Run("registration writes an outbox event", func(t *testing.T) {
		var count int
		err := app.pool.QueryRow(ctx,
			`SELECT count(*) FROM outbox_events WHERE event_type = $1 AND status = 'pending'`,
			events.EventTypeUserRegistered,
		).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("login round-trips", func(t *testing.T) {
		token, err := app.users.Login(ctx, user.Email, "password123")
		require.NoError(t, err)
		assert.NotEmpty(t, token)

		_, err = app.users.Login(ctx, user.Email, "wrong-password")
		assert.ErrorIs(t, err, users.ErrInvalidCredentials)
	})
}

func TestVoteFlow_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	app := setupApp(t)
	ctx := context.Background()

	admin := registerUser(t, app, "admin@example.com")
	election, err := app.elections.Create(ctx, elections.CreateElectionCommand{
		Title:          "Board Election",
		CandidateNames: []string{"Alice", "Bob"},
		CreatedBy:      admin.ID,
	})
	require.NoError(t, err)

	t.Run("concurrent votes by the same user yield one vote", func(t *testing.T) {
		voter := registerUser(t, app, "voter@example.com")

		const attempts = 10
		var wg sync.WaitGroup
		results := make([]error, attempts)
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, results[i] = app.elections.CastVote(ctx, elections.CastVoteCommand{
					ElectionID:  election.ID,
					CandidateID: election.Candidates[i%2].ID,
					UserID:      voter.ID,
				})
			}(i)
		}
		wg.Wait()

		var successes int
		for _, err := range results {
			if err == nil {
				successes++
			} else if !errors.Is(err, elections.ErrAlreadyVoted) {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		assert.Equal(t, 1, successes)

		var count int
		err := app.pool.QueryRow(ctx,
			`SELECT count(*) FROM votes WHERE election_id = $1 AND user_id = $2`,
			election.ID, voter.ID,
		).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("results tally from the database", func(t *testing.T) {
		results, err := app.elections.Results(ctx, election.ID)
		require.NoError(t, err)
		require.Len(t, results, 2)
		var total int64
		for _, r := range results {
			total += r.Votes
		}
		assert.Equal(t, int64(1), total)
	})

	t.Run("delete cascades votes and receipts", func(t *testing.T) {
		require.NoError(t, app.elections.Delete(ctx, election.ID))

		for _, table := range []string{"candidates", "votes", "vote_receipts"} {
			var count int
			err := app.pool.QueryRow(ctx, `SELECT count(*) FROM `+table).Scan(&count)
			require.NoError(t, err)
			assert.Zero(t, count, table)
		}
	})
}

func TestConcurrentBids_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	app := setupApp(t)
	ctx := context.Background()

	admin := registerUser(t, app, "admin@example.com")
	auction, err := app.auctions.Create(ctx, auctions.CreateAuctionCommand{
		Title:       "Vintage Clock",
		StartingBid: 100,
		CreatedBy:   admin.ID,
	})
	require.NoError(t, err)

	const bidders = 10
	bidderIDs := make([]uuid.UUID, bidders)
	for i := range bidderIDs {
		bidderIDs[i] = registerUser(t, app, string(rune('a'+i))+"-bidder@example.com").ID
	}

	// The row lock serialises concurrent bids; every accepted bid was
	// strictly higher than the current bid it read.
	var wg sync.WaitGroup
	results := make([]error, bidders)
	for i := 0; i < bidders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = app.auctions.PlaceBid(ctx, auctions.PlaceBidCommand{
				AuctionID: auction.ID,
				UserID:    bidderIDs[i],
				Amount:    int64(101 + i),
			})
		}(i)
	}
	wg.Wait()

	var accepted int
	for _, err := range results {
		if err == nil {
			accepted++
		} else if !errors.Is(err, auctions.ErrBidTooLow) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.GreaterOrEqual(t, accepted, 1)

	got, err := app.auctions.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(100+bidders), got[0].CurrentBid)
	require.NotNil(t, got[0].HighestBidder)

	var bidCount int
	require.NoError(t, app.pool.QueryRow(ctx,
		`SELECT count(*) FROM bids WHERE auction_id = $1`, auction.ID).Scan(&bidCount))
	assert.Equal(t, accepted, bidCount)
}

func TestOutboxRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	app := setupApp(t)
	ctx := context.Background()
	outboxRepo := database.NewPostgresOutboxRepository(app.pool)

	event := &events.OutboxEvent{
		ID:        uuid.New(),
		EventType: events.EventTypeBidPlaced,
		Payload:   []byte(`{"bid_id":"test"}`),
		Status:    events.OutboxStatusPending,
		CreatedAt: time.Now(),
	}

	tx, err := app.txManager.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, outboxRepo.SaveEvent(ctx, tx, event))
	require.NoError(t, tx.Commit(ctx))

	tx, err = app.txManager.BeginTx(ctx)
	require.NoError(t, err)
	pending, err := outboxRepo.GetPendingEvents(ctx, tx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, event.ID, pending[0].ID)
	require.NoError(t, outboxRepo.UpdateEventStatus(ctx, tx, event.ID, events.OutboxStatusPublished))
	require.NoError(t, tx.Commit(ctx))

	tx, err = app.txManager.BeginTx(ctx)
	require.NoError(t, err)
	pending, err = outboxRepo.GetPendingEvents(ctx, tx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
	require.NoError(t, tx.Rollback(ctx))
}
