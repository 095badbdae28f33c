package permission

import "context"

// Store defines persistence operations for permissions and role→permission
// grants of the active tenant.
type Store interface {
	// InsertPermission persists a new permission.
	InsertPermission(ctx context.Context, p *Permission) error

	// GetPermissionByID retrieves a permission by ID. Returns nil when absent.
	GetPermissionByID(ctx context.Context, permID int64) (*Permission, error)

	// GetPermission retrieves a permission by name. Fails with a not-found
	// error when zero or several permissions match.
	GetPermission(ctx context.Context, name string) (*Permission, error)

	// CheckPermissionExists reports whether a permission with the given name exists.
	CheckPermissionExists(ctx context.Context, name string) (bool, error)

	// ListPermissions returns all permissions.
	ListPermissions(ctx context.Context) ([]*Permission, error)

	// SoftDeletePermission marks a permission deleted.
	SoftDeletePermission(ctx context.Context, p *Permission) error

	// AssignPermissionToRole grants the named permission to a role unconditionally.
	AssignPermissionToRole(ctx context.Context, name string, roleID int64) error

	// RemovePermissionFromRole soft-deletes the grant. No-op when absent.
	RemovePermissionFromRole(ctx context.Context, name string, roleID int64) error

	// RoleHasPermission reports whether a role holds the named permission.
	RoleHasPermission(ctx context.Context, roleID int64, name string) (bool, error)

	// GetPermissionsOfRole returns the permissions granted to a role.
	GetPermissionsOfRole(ctx context.Context, roleID int64) ([]*Permission, error)

	// GetPermissionsOfUser returns the permissions a user holds through
	// their roles, deduplicated.
	GetPermissionsOfUser(ctx context.Context, userID int64) ([]*Permission, error)

	// UserHasPermission reports whether a user holds the named permission
	// through any of their roles.
	UserHasPermission(ctx context.Context, userID int64, name string) (bool, error)
}
