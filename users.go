package gatehouse

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/xraph/gatehouse/datastore"
	"github.com/xraph/gatehouse/user"
)

// Tenant resolves the tenant an operation on ctx would run against.
func (e *Engine) Tenant(ctx context.Context) (int64, error) {
	return e.store.Tenant(e.scoped(ctx))
}

// CreateUser stores a new account with an already hashed password and
// returns its ID. It returns -1 when the username is blank or taken.
func (e *Engine) CreateUser(ctx context.Context, username, passwordHash string) (int64, error) {
	ctx = e.scoped(ctx)
	if strings.TrimSpace(username) == "" {
		e.reject("create user", "blank username")
		return -1, nil
	}

	var created *user.User
	err := e.locked(ctx, func(ctx context.Context) error {
		exists, err := e.store.UserExists(ctx, username)
		if err != nil || exists {
			return err
		}
		u := &user.User{Username: username, PasswordHash: passwordHash}
		if err := e.store.InsertUser(ctx, u); err != nil {
			return err
		}
		created = u
		return nil
	})
	if err != nil {
		return -1, wrap("create user", err)
	}
	if created == nil {
		e.reject("create user", "username taken", slog.String("username", username))
		return -1, nil
	}
	return created.ID, nil
}

// GetUser returns a user by ID, or nil when absent.
func (e *Engine) GetUser(ctx context.Context, userID int64) (*user.User, error) {
	u, err := e.store.GetUser(e.scoped(ctx), userID)
	if err != nil {
		return nil, wrap("get user", err)
	}
	return u, nil
}

// FindUser returns a user by username, or nil when absent.
func (e *Engine) FindUser(ctx context.Context, username string) (*user.User, error) {
	u, err := e.store.GetUserByName(e.scoped(ctx), username)
	if errors.Is(err, datastore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("find user", err)
	}
	return u, nil
}

// ListUsers returns every user of the tenant.
func (e *Engine) ListUsers(ctx context.Context) ([]*user.User, error) {
	users, err := e.store.ListUsers(e.scoped(ctx))
	if err != nil {
		return nil, wrap("list users", err)
	}
	return users, nil
}

// MarkLoggedIn flags a user as logged in. It returns false when the user
// does not exist.
func (e *Engine) MarkLoggedIn(ctx context.Context, userID int64) (bool, error) {
	return e.updateUser(ctx, "mark logged in", userID, func(u *user.User) {
		u.LoggedIn = true
	})
}

// MarkLoggedOut clears the logged-in flag and stamps the logout time.
// Tokens issued at or before at no longer pass the session gate.
func (e *Engine) MarkLoggedOut(ctx context.Context, userID int64, at time.Time) (bool, error) {
	at = at.UTC().Truncate(time.Second)
	return e.updateUser(ctx, "mark logged out", userID, func(u *user.User) {
		u.LoggedIn = false
		u.LastLogOut = &at
	})
}

func (e *Engine) updateUser(ctx context.Context, op string, userID int64, mutate func(*user.User)) (bool, error) {
	ctx = e.scoped(ctx)

	found := false
	err := e.locked(ctx, func(ctx context.Context) error {
		u, err := e.store.GetUser(ctx, userID)
		if err != nil || u == nil {
			return err
		}
		mutate(u)
		if err := e.store.UpdateUser(ctx, u); err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		return false, wrap(op, err)
	}
	if !found {
		e.reject(op, "user not found", slog.Int64("user_id", userID))
	}
	return found, nil
}
