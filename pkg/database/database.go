package database

import (
	"context"
)

// Tx is the minimal transaction handle the domain layer works with.
// The postgres implementation hands out a pgx.Tx (which satisfies this
// interface directly); the in-memory store hands out a mutex-backed handle.
type Tx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager starts transactions for the read-check-write sequences
// in vote casting and bid placement.
type TransactionManager interface {
	BeginTx(ctx context.Context) (Tx, error)
}
