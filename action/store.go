package action

import (
	"context"

	"github.com/xraph/gatehouse/permission"
	"github.com/xraph/gatehouse/role"
)

// Store defines action grant bookkeeping for the active tenant.
type Store interface {
	// AssignRoleToAction grants a role to an action. Returns an
	// already-assigned error when the pair exists.
	AssignRoleToAction(ctx context.Context, actionName string, roleID int64) error

	// AssignPermissionToAction grants a permission to an action. Returns an
	// already-assigned error when the pair exists.
	AssignPermissionToAction(ctx context.Context, actionName string, permID int64) error

	// RemoveRoleFromAction hard-deletes the grant. No-op when absent.
	RemoveRoleFromAction(ctx context.Context, actionName string, roleID int64) error

	// RemovePermissionFromAction hard-deletes the grant. No-op when absent.
	RemovePermissionFromAction(ctx context.Context, actionName string, permID int64) error

	// GetRolesOfAction returns the roles granted directly to an action.
	GetRolesOfAction(ctx context.Context, actionName string) ([]*role.Role, error)

	// GetPermissionsOfAction returns the permissions granted directly to an action.
	GetPermissionsOfAction(ctx context.Context, actionName string) ([]*permission.Permission, error)

	// GetDerivedPermissionsOfAction returns the permissions held by the
	// roles granted to an action. Not deduplicated against direct grants.
	GetDerivedPermissionsOfAction(ctx context.Context, actionName string) ([]*permission.Permission, error)

	// ListActions returns the distinct action names that carry grants.
	ListActions(ctx context.Context) ([]string, error)
}
