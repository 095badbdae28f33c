package datastore

import (
	"context"

	"github.com/xraph/gatehouse/entity"
	"github.com/xraph/gatehouse/user"
)

// Compile-time interface check.
var _ user.Store = (*Store)(nil)

func (s *Store) InsertUser(ctx context.Context, u *user.User) error {
	return s.users.Insert(ctx, u)
}

func (s *Store) GetUser(ctx context.Context, userID int64) (*user.User, error) {
	return s.users.Get(ctx, userID)
}

func (s *Store) GetUserByName(ctx context.Context, username string) (*user.User, error) {
	return s.users.Single(ctx, entity.Eq(user.ColUsername, username))
}

func (s *Store) UserExists(ctx context.Context, username string) (bool, error) {
	return s.users.Exists(ctx, entity.Eq(user.ColUsername, username))
}

func (s *Store) UpdateUser(ctx context.Context, u *user.User) error {
	return s.users.Update(ctx, u)
}

func (s *Store) ListUsers(ctx context.Context) ([]*user.User, error) {
	return s.users.GetAll(ctx)
}
