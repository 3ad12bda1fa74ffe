package memstore

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/electrabid/backend/internal/domain/elections"
	"github.com/electrabid/backend/pkg/database"
)

// ElectionRepository returns the elections.ElectionRepository view of the store.
func (s *Store) ElectionRepository() elections.ElectionRepository {
	return (*electionStore)(s)
}

// VoteRepository returns the elections.VoteRepository view of the store.
func (s *Store) VoteRepository() elections.VoteRepository {
	return (*voteStore)(s)
}

type electionStore Store

func (e *electionStore) CreateElection(_ context.Context, tx database.Tx, election *elections.Election) error {
	s := (*Store)(e)
	if err := s.checkTx(tx); err != nil {
		return err
	}
	s.elections[election.ID] = cloneElection(election)
	return nil
}

func (e *electionStore) ListElections(_ context.Context) ([]*elections.Election, error) {
	s := (*Store)(e)
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]*elections.Election, 0, len(s.elections))
	for _, election := range s.elections {
		result = append(result, cloneElection(election))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (e *electionStore) GetElectionByID(_ context.Context, electionID uuid.UUID) (*elections.Election, error) {
	s := (*Store)(e)
	s.mu.Lock()
	defer s.mu.Unlock()
	return e.get(electionID)
}

func (e *electionStore) GetElectionByIDForUpdate(_ context.Context, tx database.Tx, electionID uuid.UUID) (*elections.Election, error) {
	s := (*Store)(e)
	if err := s.checkTx(tx); err != nil {
		return nil, err
	}
	return e.get(electionID)
}

// get assumes the store lock is held.
func (e *electionStore) get(electionID uuid.UUID) (*elections.Election, error) {
	election, ok := (*Store)(e).elections[electionID]
	if !ok {
		return nil, elections.ErrElectionNotFound
	}
	return cloneElection(election), nil
}

func (e *electionStore) DeleteElection(_ context.Context, electionID uuid.UUID) (bool, error) {
	s := (*Store)(e)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.elections[electionID]; !ok {
		return false, nil
	}
	// Cascade the way the relational schema does.
	for _, vote := range s.votes[electionID] {
		for id, receipt := range s.receipts {
			if receipt.VoteID == vote.ID {
				delete(s.receipts, id)
			}
		}
	}
	delete(s.votes, electionID)
	delete(s.elections, electionID)
	return true, nil
}

type voteStore Store

func (v *voteStore) HasVoted(_ context.Context, tx database.Tx, electionID, userID uuid.UUID) (bool, error) {
	s := (*Store)(v)
	if err := s.checkTx(tx); err != nil {
		return false, err
	}
	for _, vote := range s.votes[electionID] {
		if vote.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (v *voteStore) SaveVote(_ context.Context, tx database.Tx, vote *elections.Vote) error {
	s := (*Store)(v)
	if err := s.checkTx(tx); err != nil {
		return err
	}
	for _, existing := range s.votes[vote.ElectionID] {
		if existing.UserID == vote.UserID {
			return elections.ErrAlreadyVoted
		}
	}
	clone := *vote
	s.votes[vote.ElectionID] = append(s.votes[vote.ElectionID], &clone)
	return nil
}

func (v *voteStore) SaveReceipt(_ context.Context, tx database.Tx, receipt *elections.VoteReceipt) error {
	s := (*Store)(v)
	if err := s.checkTx(tx); err != nil {
		return err
	}
	clone := *receipt
	s.receipts[receipt.ID] = &clone
	return nil
}

func (v *voteStore) CountVotesByCandidate(_ context.Context, electionID uuid.UUID) (map[uuid.UUID]int64, error) {
	s := (*Store)(v)
	s.mu.Lock()
	defer s.mu.Unlock()

	tally := make(map[uuid.UUID]int64)
	for _, vote := range s.votes[electionID] {
		tally[vote.CandidateID]++
	}
	return tally, nil
}

func cloneElection(e *elections.Election) *elections.Election {
	clone := *e
	clone.Candidates = append([]elections.Candidate(nil), e.Candidates...)
	return &clone
}
