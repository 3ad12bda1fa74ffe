package elections

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/electrabid/backend/pkg/database"
	"github.com/electrabid/backend/pkg/events"
)

// MockElectionRepository is a mock implementation of ElectionRepository
type MockElectionRepository struct {
	mock.Mock
}

func (m *MockElectionRepository) CreateElection(ctx context.Context, tx database.Tx, election *Election) error {
	args := m.Called(ctx, tx, election)
	return args.Error(0)
}

func (m *MockElectionRepository) ListElections(ctx context.Context) ([]*Election, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Election), args.Error(1)
}

func (m *MockElectionRepository) GetElectionByID(ctx context.Context, electionID uuid.UUID) (*Election, error) {
	args := m.Called(ctx, electionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Election), args.Error(1)
}

func (m *MockElectionRepository) GetElectionByIDForUpdate(ctx context.Context, tx database.Tx, electionID uuid.UUID) (*Election, error) {
	args := m.Called(ctx, tx, electionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Election), args.Error(1)
}

func (m *MockElectionRepository) DeleteElection(ctx context.Context, electionID uuid.UUID) (bool, error) {
	args := m.Called(ctx, electionID)
	return args.Bool(0), args.Error(1)
}

// MockVoteRepository is a mock implementation of VoteRepository
type MockVoteRepository struct {
	mock.Mock
}

func (m *MockVoteRepository) HasVoted(ctx context.Context, tx database.Tx, electionID, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, tx, electionID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockVoteRepository) SaveVote(ctx context.Context, tx database.Tx, vote *Vote) error {
	args := m.Called(ctx, tx, vote)
	return args.Error(0)
}

func (m *MockVoteRepository) SaveReceipt(ctx context.Context, tx database.Tx, receipt *VoteReceipt) error {
	args := m.Called(ctx, tx, receipt)
	return args.Error(0)
}

func (m *MockVoteRepository) CountVotesByCandidate(ctx context.Context, electionID uuid.UUID) (map[uuid.UUID]int64, error) {
	args := m.Called(ctx, electionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]int64), args.Error(1)
}

// MockOutboxRepository is a mock implementation of events.OutboxRepository
type MockOutboxRepository struct {
	mock.Mock
}

func (m *MockOutboxRepository) SaveEvent(ctx context.Context, tx database.Tx, event *events.OutboxEvent) error {
	args := m.Called(ctx, tx, event)
	return args.Error(0)
}

func (m *MockOutboxRepository) GetPendingEvents(ctx context.Context, tx database.Tx, limit int) ([]*events.OutboxEvent, error) {
	args := m.Called(ctx, tx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*events.OutboxEvent), args.Error(1)
}

func (m *MockOutboxRepository) UpdateEventStatus(ctx context.Context, tx database.Tx, id uuid.UUID, status events.OutboxStatus) error {
	args := m.Called(ctx, tx, id, status)
	return args.Error(0)
}

type stubTx struct {
	commitErr error
}

func (t *stubTx) Commit(context.Context) error   { return t.commitErr }
func (t *stubTx) Rollback(context.Context) error { return nil }

type stubTxManager struct {
	tx *stubTx
}

func (m *stubTxManager) BeginTx(context.Context) (database.Tx, error) {
	return m.tx, nil
}

func newTestService(electionRepo *MockElectionRepository, voteRepo *MockVoteRepository, outboxRepo *MockOutboxRepository) *Service {
	return NewService(
		electionRepo,
		voteRepo,
		outboxRepo,
		&stubTxManager{tx: &stubTx{}},
		nil,
		slog.New(slog.DiscardHandler),
	)
}

func timePtr(t time.Time) *time.Time { return &t }

func openElection(candidateIDs ...uuid.UUID) *Election {
	e := &Election{
		ID:        uuid.New(),
		Title:     "Board Election",
		StartTime: timePtr(time.Now().Add(-time.Hour)),
		EndTime:   timePtr(time.Now().Add(time.Hour)),
		CreatedBy: uuid.New(),
		CreatedAt: time.Now(),
	}
	for _, id := range candidateIDs {
		e.Candidates = append(e.Candidates, Candidate{ID: id, ElectionID: e.ID, Name: "Candidate"})
	}
	return e
}

func TestService_CastVote(t *testing.T) {
	candidateID := uuid.New()
	userID := uuid.New()

	tests := []struct {
		name      string
		election  *Election
		setupMock func(*MockElectionRepository, *MockVoteRepository, *MockOutboxRepository, *Election)
		wantErr   error
	}{
		{
			name:     "successfully casts a vote",
			election: openElection(candidateID),
			setupMock: func(er *MockElectionRepository, vr *MockVoteRepository, or *MockOutboxRepository, e *Election) {
				er.On("GetElectionByIDForUpdate", mock.Anything, mock.Anything, e.ID).Return(e, nil)
				vr.On("HasVoted", mock.Anything, mock.Anything, e.ID, userID).Return(false, nil)
				vr.On("SaveVote", mock.Anything, mock.Anything, mock.AnythingOfType("*elections.Vote")).Return(nil)
				vr.On("SaveReceipt", mock.Anything, mock.Anything, mock.AnythingOfType("*elections.VoteReceipt")).Return(nil)
				or.On("SaveEvent", mock.Anything, mock.Anything, mock.AnythingOfType("*events.OutboxEvent")).Return(nil)
			},
		},
		{
			name:     "fails when election does not exist",
			election: openElection(candidateID),
			setupMock: func(er *MockElectionRepository, vr *MockVoteRepository, or *MockOutboxRepository, e *Election) {
				er.On("GetElectionByIDForUpdate", mock.Anything, mock.Anything, e.ID).Return(nil, ErrElectionNotFound)
			},
			wantErr: ErrElectionNotFound,
		},
		{
			name: "fails before the start time",
			election: func() *Election {
				e := openElection(candidateID)
				e.StartTime = timePtr(time.Now().Add(time.Hour))
				return e
			}(),
			setupMock: func(er *MockElectionRepository, vr *MockVoteRepository, or *MockOutboxRepository, e *Election) {
				er.On("GetElectionByIDForUpdate", mock.Anything, mock.Anything, e.ID).Return(e, nil)
			},
			wantErr: ErrElectionNotStarted,
		},
		{
			name: "fails after the end time",
			election: func() *Election {
				e := openElection(candidateID)
				e.EndTime = timePtr(time.Now().Add(-time.Minute))
				return e
			}(),
			setupMock: func(er *MockElectionRepository, vr *MockVoteRepository, or *MockOutboxRepository, e *Election) {
				er.On("GetElectionByIDForUpdate", mock.Anything, mock.Anything, e.ID).Return(e, nil)
			},
			wantErr: ErrElectionEnded,
		},
		{
			name: "succeeds with no time bounds",
			election: func() *Election {
				e := openElection(candidateID)
				e.StartTime = nil
				e.EndTime = nil
				return e
			}(),
			setupMock: func(er *MockElectionRepository, vr *MockVoteRepository, or *MockOutboxRepository, e *Election) {
				er.On("GetElectionByIDForUpdate", mock.Anything, mock.Anything, e.ID).Return(e, nil)
				vr.On("HasVoted", mock.Anything, mock.Anything, e.ID, userID).Return(false, nil)
				vr.On("SaveVote", mock.Anything, mock.Anything, mock.Anything).Return(nil)
				vr.On("SaveReceipt", mock.Anything, mock.Anything, mock.Anything).Return(nil)
				or.On("SaveEvent", mock.Anything, mock.Anything, mock.Anything).Return(nil)
			},
		},
		{
			name:     "fails when candidate belongs to another election",
			election: openElection(uuid.New()),
			setupMock: func(er *MockElectionRepository, vr *MockVoteRepository, or *MockOutboxRepository, e *Election) {
				er.On("GetElectionByIDForUpdate", mock.Anything, mock.Anything, e.ID).Return(e, nil)
			},
			wantErr: ErrCandidateNotFound,
		},
		{
			name:     "fails when the user already voted",
			election: openElection(candidateID),
			setupMock: func(er *MockElectionRepository, vr *MockVoteRepository, or *MockOutboxRepository, e *Election) {
				er.On("GetElectionByIDForUpdate", mock.Anything, mock.Anything, e.ID).Return(e, nil)
				vr.On("HasVoted", mock.Anything, mock.Anything, e.ID, userID).Return(true, nil)
			},
			wantErr: ErrAlreadyVoted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			electionRepo := new(MockElectionRepository)
			voteRepo := new(MockVoteRepository)
			outboxRepo := new(MockOutboxRepository)
			tt.setupMock(electionRepo, voteRepo, outboxRepo, tt.election)

			svc := newTestService(electionRepo, voteRepo, outboxRepo)
			receipt, err := svc.CastVote(context.Background(), CastVoteCommand{
				ElectionID:  tt.election.ID,
				CandidateID: candidateID,
				UserID:      userID,
			})

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotEqual(t, uuid.Nil, receipt.VoteID)
			assert.True(t, strings.HasPrefix(receipt.ReceiptCode, "VOTE-"))
			assert.Len(t, receipt.ReceiptCode, len("VOTE-")+receiptCodeLen)
			electionRepo.AssertExpectations(t)
			voteRepo.AssertExpectations(t)
			outboxRepo.AssertExpectations(t)
		})
	}
}

func TestService_Create(t *testing.T) {
	adminID := uuid.New()

	tests := []struct {
		name    string
		cmd     CreateElectionCommand
		wantErr error
	}{
		{
			name: "successfully creates an election with candidates",
			cmd: CreateElectionCommand{
				Title:          "Board Election",
				CandidateNames: []string{"Alice", "Bob"},
				CreatedBy:      adminID,
			},
		},
		{
			name:    "fails without a title",
			cmd:     CreateElectionCommand{CandidateNames: []string{"Alice"}, CreatedBy: adminID},
			wantErr: ErrInvalidInput,
		},
		{
			name: "fails when end precedes start",
			cmd: CreateElectionCommand{
				Title:     "Board Election",
				StartTime: timePtr(time.Now().Add(time.Hour)),
				EndTime:   timePtr(time.Now()),
				CreatedBy: adminID,
			},
			wantErr: ErrInvalidInput,
		},
		{
			name: "fails with an empty candidate name",
			cmd: CreateElectionCommand{
				Title:          "Board Election",
				CandidateNames: []string{"Alice", ""},
				CreatedBy:      adminID,
			},
			wantErr: ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			electionRepo := new(MockElectionRepository)
			if tt.wantErr == nil {
				electionRepo.On("CreateElection", mock.Anything, mock.Anything, mock.AnythingOfType("*elections.Election")).Return(nil)
			}

			svc := newTestService(electionRepo, new(MockVoteRepository), new(MockOutboxRepository))
			election, err := svc.Create(context.Background(), tt.cmd)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotEqual(t, uuid.Nil, election.ID)
			assert.Len(t, election.Candidates, len(tt.cmd.CandidateNames))
			for _, c := range election.Candidates {
				assert.Equal(t, election.ID, c.ElectionID)
				assert.NotEqual(t, uuid.Nil, c.ID)
			}
		})
	}
}

func TestService_Results(t *testing.T) {
	aliceID := uuid.New()
	bobID := uuid.New()
	election := openElection(aliceID, bobID)

	electionRepo := new(MockElectionRepository)
	electionRepo.On("GetElectionByID", mock.Anything, election.ID).Return(election, nil)

	voteRepo := new(MockVoteRepository)
	voteRepo.On("CountVotesByCandidate", mock.Anything, election.ID).
		Return(map[uuid.UUID]int64{aliceID: 3}, nil)

	svc := newTestService(electionRepo, voteRepo, new(MockOutboxRepository))
	results, err := svc.Results(context.Background(), election.ID)
	require.NoError(t, err)

	// Every candidate appears, including those with zero votes.
	require.Len(t, results, 2)
	byID := map[uuid.UUID]int64{}
	for _, r := range results {
		byID[r.CandidateID] = r.Votes
	}
	assert.Equal(t, int64(3), byID[aliceID])
	assert.Equal(t, int64(0), byID[bobID])
}

func TestService_Delete(t *testing.T) {
	t.Run("deletes an existing election", func(t *testing.T) {
		electionID := uuid.New()
		electionRepo := new(MockElectionRepository)
		electionRepo.On("DeleteElection", mock.Anything, electionID).Return(true, nil)

		svc := newTestService(electionRepo, new(MockVoteRepository), new(MockOutboxRepository))
		require.NoError(t, svc.Delete(context.Background(), electionID))
	})

	t.Run("reports unknown elections", func(t *testing.T) {
		electionID := uuid.New()
		electionRepo := new(MockElectionRepository)
		electionRepo.On("DeleteElection", mock.Anything, electionID).Return(false, nil)

		svc := newTestService(electionRepo, new(MockVoteRepository), new(MockOutboxRepository))
		assert.ErrorIs(t, svc.Delete(context.Background(), electionID), ErrElectionNotFound)
	})
}

func TestGenerateReceiptCode(t *testing.T) {
	seen := map[string]bool{}
	for range 100 {
		code, err := generateReceiptCode()
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(code, "VOTE-"))
		assert.Len(t, code, len("VOTE-")+receiptCodeLen)
		for _, r := range code[len("VOTE-"):] {
			assert.Contains(t, receiptCodeAlphabet, string(r))
		}
		assert.False(t, seen[code], "receipt codes must not repeat")
		seen[code] = true
	}
}
