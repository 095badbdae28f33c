package role

import "context"

// Store defines persistence operations for roles and user→role grants of
// the active tenant. It does not validate preconditions; the engine does.
type Store interface {
	// InsertRole persists a new role.
	InsertRole(ctx context.Context, r *Role) error

	// GetRoleByID retrieves a role by ID. Returns nil when absent.
	GetRoleByID(ctx context.Context, roleID int64) (*Role, error)

	// GetRole retrieves a role by name. Fails with a not-found error when
	// zero or several roles match.
	GetRole(ctx context.Context, name string) (*Role, error)

	// CheckRoleExists reports whether a role with the given name exists.
	CheckRoleExists(ctx context.Context, name string) (bool, error)

	// ListRoles returns all roles.
	ListRoles(ctx context.Context) ([]*Role, error)

	// SoftDeleteRole marks a role deleted.
	SoftDeleteRole(ctx context.Context, r *Role) error

	// GetRolesOfUser returns the roles granted to a user.
	GetRolesOfUser(ctx context.Context, userID int64) ([]*Role, error)

	// ListUsersOfRole returns the IDs of users holding the named role.
	ListUsersOfRole(ctx context.Context, name string) ([]int64, error)

	// AssignRoleToUser grants the named role to a user unconditionally.
	AssignRoleToUser(ctx context.Context, name string, userID int64) error

	// RemoveRoleFromUser soft-deletes the grant. No-op when absent.
	RemoveRoleFromUser(ctx context.Context, name string, userID int64) error

	// UserHasRole reports whether a user holds the named role.
	UserHasRole(ctx context.Context, userID int64, name string) (bool, error)
}
