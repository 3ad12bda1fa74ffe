package memstore

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/electrabid/backend/internal/domain/users"
	"github.com/electrabid/backend/pkg/database"
)

// UserRepository returns the users.UserRepository view of the store.
func (s *Store) UserRepository() users.UserRepository {
	return (*userStore)(s)
}

type userStore Store

func (u *userStore) CreateUser(_ context.Context, tx database.Tx, user *users.User) error {
	s := (*Store)(u)
	if err := s.checkTx(tx); err != nil {
		return err
	}
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return users.ErrEmailAlreadyRegistered
		}
	}
	clone := *user
	s.users[user.ID] = &clone
	return nil
}

func (u *userStore) GetUserByID(_ context.Context, id uuid.UUID) (*users.User, error) {
	s := (*Store)(u)
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	clone := *user
	return &clone, nil
}

func (u *userStore) GetUserByEmail(_ context.Context, email string) (*users.User, error) {
	s := (*Store)(u)
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if strings.EqualFold(user.Email, email) {
			clone := *user
			return &clone, nil
		}
	}
	return nil, nil
}
