package elections

import (
	"context"

	"github.com/google/uuid"

	"github.com/electrabid/backend/pkg/database"
)

// ElectionRepository defines the persistence interface for elections and
// their candidates.
type ElectionRepository interface {
	// CreateElection saves the election and its candidates within a transaction.
	CreateElection(ctx context.Context, tx database.Tx, election *Election) error

	// ListElections returns all elections with candidates, newest first.
	ListElections(ctx context.Context) ([]*Election, error)

	// GetElectionByID retrieves an election with its candidate list.
	GetElectionByID(ctx context.Context, electionID uuid.UUID) (*Election, error)

	// GetElectionByIDForUpdate locks the election row for the duration of the
	// transaction, serialising concurrent votes on the same election.
	GetElectionByIDForUpdate(ctx context.Context, tx database.Tx, electionID uuid.UUID) (*Election, error)

	// DeleteElection removes the election and cascades to candidates, votes
	// and receipts. Returns false when the id is unknown.
	DeleteElection(ctx context.Context, electionID uuid.UUID) (bool, error)
}

// VoteRepository defines the persistence interface for votes and receipts.
type VoteRepository interface {
	// HasVoted reports whether the user already voted in the election.
	// Called under the election row lock.
	HasVoted(ctx context.Context, tx database.Tx, electionID, userID uuid.UUID) (bool, error)

	// SaveVote saves a vote within a transaction.
	SaveVote(ctx context.Context, tx database.Tx, vote *Vote) error

	// SaveReceipt saves the vote's receipt within the same transaction.
	SaveReceipt(ctx context.Context, tx database.Tx, receipt *VoteReceipt) error

	// CountVotesByCandidate tallies votes per candidate for an election.
	CountVotesByCandidate(ctx context.Context, electionID uuid.UUID) (map[uuid.UUID]int64, error)
}

// TallyCache is an optional read-through cache for election results.
// Implementations must be safe for concurrent use; the service tolerates a
// nil cache and any cache failure.
type TallyCache interface {
	GetTally(ctx context.Context, electionID uuid.UUID) (map[uuid.UUID]int64, bool, error)
	SetTally(ctx context.Context, electionID uuid.UUID, tally map[uuid.UUID]int64) error
	IncrementCandidate(ctx context.Context, electionID, candidateID uuid.UUID) error
	InvalidateTally(ctx context.Context, electionID uuid.UUID) error
}
