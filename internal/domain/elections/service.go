package elections

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/electrabid/backend/pkg/database"
	"github.com/electrabid/backend/pkg/events"
)

var (
	ErrElectionNotFound   = errors.New("election not found")
	ErrCandidateNotFound  = errors.New("candidate does not belong to this election")
	ErrElectionNotStarted = errors.New("election has not started")
	ErrElectionEnded      = errors.New("election has ended")
	ErrAlreadyVoted       = errors.New("already voted in this election")
	ErrInvalidInput       = errors.New("invalid input")
)

// CreateElectionCommand carries the admin request to open an election.
type CreateElectionCommand struct {
	Title          string
	Description    string
	StartTime      *time.Time
	EndTime        *time.Time
	CandidateNames []string
	CreatedBy      uuid.UUID
}

// CastVoteCommand carries a single vote request.
type CastVoteCommand struct {
	ElectionID  uuid.UUID
	CandidateID uuid.UUID
	UserID      uuid.UUID
}

// Receipt is returned to the voter after a successful cast.
type Receipt struct {
	VoteID      uuid.UUID
	ReceiptCode string
}

// Service implements election listing, administration and vote casting.
type Service struct {
	electionRepo ElectionRepository
	voteRepo     VoteRepository
	outboxRepo   events.OutboxRepository
	txManager    database.TransactionManager
	tallyCache   TallyCache // optional, nil disables caching
	logger       *slog.Logger
}

func NewService(
	electionRepo ElectionRepository,
	voteRepo VoteRepository,
	outboxRepo events.OutboxRepository,
	txManager database.TransactionManager,
	tallyCache TallyCache,
	logger *slog.Logger,
) *Service {
	return &Service{
		electionRepo: electionRepo,
		voteRepo:     voteRepo,
		outboxRepo:   outboxRepo,
		txManager:    txManager,
		tallyCache:   tallyCache,
		logger:       logger,
	}
}

// List returns all elections with their candidates, newest first.
func (s *Service) List(ctx context.Context) ([]*Election, error) {
	list, err := s.electionRepo.ListElections(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list elections: %w", err)
	}
	return list, nil
}

// Create opens a new election with its candidates in one transaction.
func (s *Service) Create(ctx context.Context, cmd CreateElectionCommand) (*Election, error) {
	if err := validateElection(cmd); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	now := time.Now()
	election := &Election{
		ID:          uuid.New(),
		Title:       cmd.Title,
		Description: cmd.Description,
		StartTime:   cmd.StartTime,
		EndTime:     cmd.EndTime,
		CreatedBy:   cmd.CreatedBy,
		CreatedAt:   now,
	}
	for _, name := range cmd.CandidateNames {
		election.Candidates = append(election.Candidates, Candidate{
			ID:         uuid.New(),
			ElectionID: election.ID,
			Name:       name,
		})
	}

	tx, err := s.txManager.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := s.electionRepo.CreateElection(ctx, tx, election); err != nil {
		return nil, fmt.Errorf("failed to create election: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return election, nil
}

// Delete removes an election and everything attached to it.
func (s *Service) Delete(ctx context.Context, electionID uuid.UUID) error {
	found, err := s.electionRepo.DeleteElection(ctx, electionID)
	if err != nil {
		return fmt.Errorf("failed to delete election: %w", err)
	}
	if !found {
		return ErrElectionNotFound
	}

	if s.tallyCache != nil {
		if cacheErr := s.tallyCache.InvalidateTally(ctx, electionID); cacheErr != nil {
			s.logger.Warn("failed to invalidate tally cache", "election_id", electionID, "error", cacheErr)
		}
	}
	return nil
}

type voteCastEvent struct {
	VoteID     string    `json:"vote_id"`
	ElectionID string    `json:"election_id"`
	UserID     string    `json:"user_id"`
	CastAt     time.Time `json:"cast_at"`
}

// CastVote records a single vote and its receipt.
//
// The election row is locked for the duration of the transaction, so two
// concurrent votes by the same user serialise and the second one fails the
// HasVoted check; the unique index on (election_id, user_id) backs this up
// at the schema level.
func (s *Service) CastVote(ctx context.Context, cmd CastVoteCommand) (*Receipt, error) {
	tx, err := s.txManager.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	election, err := s.electionRepo.GetElectionByIDForUpdate(ctx, tx, cmd.ElectionID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	started, ended := election.IsOpenAt(now)
	if !started {
		return nil, ErrElectionNotStarted
	}
	if ended {
		return nil, ErrElectionEnded
	}

	if !election.HasCandidate(cmd.CandidateID) {
		return nil, ErrCandidateNotFound
	}

	voted, err := s.voteRepo.HasVoted(ctx, tx, cmd.ElectionID, cmd.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing vote: %w", err)
	}
	if voted {
		return nil, ErrAlreadyVoted
	}

	vote := &Vote{
		ID:          uuid.New(),
		ElectionID:  cmd.ElectionID,
		UserID:      cmd.UserID,
		CandidateID: cmd.CandidateID,
		CreatedAt:   now,
	}
	if err := s.voteRepo.SaveVote(ctx, tx, vote); err != nil {
		return nil, fmt.Errorf("failed to save vote: %w", err)
	}

	code, err := generateReceiptCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate receipt code: %w", err)
	}
	receipt := &VoteReceipt{
		ID:          uuid.New(),
		VoteID:      vote.ID,
		ReceiptCode: code,
		CreatedAt:   now,
	}
	if err := s.voteRepo.SaveReceipt(ctx, tx, receipt); err != nil {
		return nil, fmt.Errorf("failed to save receipt: %w", err)
	}

	// The event omits the candidate choice; subscribers only learn that a
	// vote happened.
	payload, err := json.Marshal(voteCastEvent{
		VoteID:     vote.ID.String(),
		ElectionID: vote.ElectionID.String(),
		UserID:     vote.UserID.String(),
		CastAt:     now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	outboxEvent := &events.OutboxEvent{
		ID:        uuid.New(),
		EventType: events.EventTypeVoteCast,
		Payload:   payload,
		Status:    events.OutboxStatusPending,
		CreatedAt: now,
	}
	if err := s.outboxRepo.SaveEvent(ctx, tx, outboxEvent); err != nil {
		return nil, fmt.Errorf("failed to save outbox event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if s.tallyCache != nil {
		if cacheErr := s.tallyCache.IncrementCandidate(ctx, cmd.ElectionID, cmd.CandidateID); cacheErr != nil {
			s.logger.Warn("failed to update tally cache", "election_id", cmd.ElectionID, "error", cacheErr)
		}
	}

	return &Receipt{VoteID: vote.ID, ReceiptCode: code}, nil
}

// Results returns the per-candidate tally, served from the cache when primed.
func (s *Service) Results(ctx context.Context, electionID uuid.UUID) ([]CandidateResult, error) {
	election, err := s.electionRepo.GetElectionByID(ctx, electionID)
	if err != nil {
		return nil, err
	}

	tally, ok := s.cachedTally(ctx, electionID)
	if !ok {
		tally, err = s.voteRepo.CountVotesByCandidate(ctx, electionID)
		if err != nil {
			return nil, fmt.Errorf("failed to count votes: %w", err)
		}
		if s.tallyCache != nil {
			if cacheErr := s.tallyCache.SetTally(ctx, electionID, tally); cacheErr != nil {
				s.logger.Warn("failed to prime tally cache", "election_id", electionID, "error", cacheErr)
			}
		}
	}

	results := make([]CandidateResult, 0, len(election.Candidates))
	for _, c := range election.Candidates {
		results = append(results, CandidateResult{
			CandidateID: c.ID,
			Name:        c.Name,
			Votes:       tally[c.ID],
		})
	}
	return results, nil
}

func (s *Service) cachedTally(ctx context.Context, electionID uuid.UUID) (map[uuid.UUID]int64, bool) {
	if s.tallyCache == nil {
		return nil, false
	}
	tally, ok, err := s.tallyCache.GetTally(ctx, electionID)
	if err != nil {
		s.logger.Warn("failed to read tally cache", "election_id", electionID, "error", err)
		return nil, false
	}
	return tally, ok
}

func validateElection(cmd CreateElectionCommand) error {
	if cmd.Title == "" {
		return errors.New("title is required")
	}
	if cmd.StartTime != nil && cmd.EndTime != nil && cmd.EndTime.Before(*cmd.StartTime) {
		return errors.New("end time must not be before start time")
	}
	for _, name := range cmd.CandidateNames {
		if name == "" {
			return errors.New("candidate name must not be empty")
		}
	}
	return nil
}

const receiptCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
const receiptCodeLen = 12

// generateReceiptCode produces an opaque code like VOTE-6QXR0M2KD9PT.
func generateReceiptCode() (string, error) {
	buf := make([]byte, receiptCodeLen)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = receiptCodeAlphabet[int(b)%len(receiptCodeAlphabet)]
	}
	return "VOTE-" + string(buf), nil
}
