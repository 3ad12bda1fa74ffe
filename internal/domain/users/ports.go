package users

import (
	"context"

	"github.com/google/uuid"

	"github.com/electrabid/backend/pkg/database"
)

// UserRepository defines the persistence interface for accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, tx database.Tx, user *User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	// GetUserByEmail returns (nil, nil) when no account has the email.
	GetUserByEmail(ctx context.Context, email string) (*User, error)
}
