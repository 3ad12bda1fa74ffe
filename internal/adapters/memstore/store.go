// Package memstore is an in-memory implementation of the persistence ports,
// used for offline demo mode and as a test double. It implements the same
// repository interfaces as the postgres adapters and is selected by
// configuration.
package memstore

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/electrabid/backend/internal/domain/auctions"
	"github.com/electrabid/backend/internal/domain/elections"
	"github.com/electrabid/backend/internal/domain/users"
	"github.com/electrabid/backend/pkg/database"
	"github.com/electrabid/backend/pkg/events"
)

var errTxDone = errors.New("transaction already finished")

// Store holds all state behind a single mutex. Transactions hold the mutex
// from BeginTx until Commit or Rollback, which serialises the
// read-check-write sequences the same way the postgres row locks do.
// Writes apply immediately; Rollback only releases the lock.
type Store struct {
	mu sync.Mutex

	users     map[uuid.UUID]*users.User
	elections map[uuid.UUID]*elections.Election
	votes     map[uuid.UUID][]*elections.Vote // keyed by election id
	receipts  map[uuid.UUID]*elections.VoteReceipt
	auctions  map[uuid.UUID]*auctions.Auction
	bids      map[uuid.UUID][]*auctions.Bid // keyed by auction id
	outbox    []*events.OutboxEvent
}

func New() *Store {
	return &Store{
		users:     make(map[uuid.UUID]*users.User),
		elections: make(map[uuid.UUID]*elections.Election),
		votes:     make(map[uuid.UUID][]*elections.Vote),
		receipts:  make(map[uuid.UUID]*elections.VoteReceipt),
		auctions:  make(map[uuid.UUID]*auctions.Auction),
		bids:      make(map[uuid.UUID][]*auctions.Bid),
	}
}

type memTx struct {
	store *Store
	done  bool
}

func (t *memTx) Commit(_ context.Context) error {
	return t.finish()
}

func (t *memTx) Rollback(_ context.Context) error {
	_ = t.finish()
	return nil
}

func (t *memTx) finish() error {
	if t.done {
		return errTxDone
	}
	t.done = true
	t.store.mu.Unlock()
	return nil
}

// BeginTx acquires the store lock; the returned handle releases it on
// Commit or Rollback.
func (s *Store) BeginTx(_ context.Context) (database.Tx, error) {
	s.mu.Lock()
	return &memTx{store: s}, nil
}

var _ database.TransactionManager = (*Store)(nil)

// checkTx verifies that a transaction handle belongs to this store and is
// still open. Methods taking a tx run under the lock the tx holds.
func (s *Store) checkTx(tx database.Tx) error {
	mt, ok := tx.(*memTx)
	if !ok || mt.store != s {
		return errors.New("transaction does not belong to this store")
	}
	if mt.done {
		return errTxDone
	}
	return nil
}
