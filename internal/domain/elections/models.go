package elections

import (
	"time"

	"github.com/google/uuid"
)

// Election is an admin-created poll with a nested candidate list. Start and
// end times are optional; an election with no bounds is always open.
type Election struct {
	ID          uuid.UUID   `json:"id" db:"id"`
	Title       string      `json:"title" db:"title"`
	Description string      `json:"description" db:"description"`
	StartTime   *time.Time  `json:"start_time" db:"start_time"`
	EndTime     *time.Time  `json:"end_time" db:"end_time"`
	CreatedBy   uuid.UUID   `json:"created_by" db:"created_by"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	Candidates  []Candidate `json:"candidates"`
}

// Candidate belongs to exactly one election.
type Candidate struct {
	ID         uuid.UUID `json:"id" db:"id"`
	ElectionID uuid.UUID `json:"-" db:"election_id"`
	Name       string    `json:"name" db:"name"`
}

// Vote is append-only; at most one per (election, user) pair, enforced by a
// unique index and re-checked under the election row lock.
type Vote struct {
	ID          uuid.UUID `db:"id"`
	ElectionID  uuid.UUID `db:"election_id"`
	UserID      uuid.UUID `db:"user_id"`
	CandidateID uuid.UUID `db:"candidate_id"`
	CreatedAt   time.Time `db:"created_at"`
}

// VoteReceipt pairs a vote with an opaque code returned to the voter as
// proof of participation. The code is random, generated once at vote
// creation, and is not cryptographically bound to the vote content.
type VoteReceipt struct {
	ID          uuid.UUID `db:"id"`
	VoteID      uuid.UUID `db:"vote_id"`
	ReceiptCode string    `db:"receipt_code"`
	CreatedAt   time.Time `db:"created_at"`
}

// CandidateResult is a tally row for the results endpoint.
type CandidateResult struct {
	CandidateID uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Votes       int64     `json:"votes"`
}

// IsOpenAt reports whether the election accepts votes at the given time.
// Unset bounds do not constrain.
func (e *Election) IsOpenAt(t time.Time) (started, ended bool) {
	started = e.StartTime == nil || !t.Before(*e.StartTime)
	ended = e.EndTime != nil && t.After(*e.EndTime)
	return started, ended
}

// HasCandidate reports whether the candidate belongs to this election.
func (e *Election) HasCandidate(candidateID uuid.UUID) bool {
	for _, c := range e.Candidates {
		if c.ID == candidateID {
			return true
		}
	}
	return false
}
