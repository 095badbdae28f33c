package user

import "context"

// Store defines persistence operations for users of the active tenant.
type Store interface {
	// InsertUser persists a new user.
	InsertUser(ctx context.Context, u *User) error

	// GetUser retrieves a user by ID. Returns nil when absent.
	GetUser(ctx context.Context, userID int64) (*User, error)

	// GetUserByName retrieves a user by username. Fails with a not-found
	// error when zero or several users match.
	GetUserByName(ctx context.Context, username string) (*User, error)

	// UserExists reports whether a username is taken.
	UserExists(ctx context.Context, username string) (bool, error)

	// UpdateUser persists changes to a user.
	UpdateUser(ctx context.Context, u *User) error

	// ListUsers returns all users.
	ListUsers(ctx context.Context) ([]*User, error)
}
