package datastore

import (
	"context"

	"github.com/xraph/gatehouse/action"
	"github.com/xraph/gatehouse/checklog"
	"github.com/xraph/gatehouse/entity"
	"github.com/xraph/gatehouse/permission"
	"github.com/xraph/gatehouse/role"
	"github.com/xraph/gatehouse/user"
)

// Table is the backend contract for one entity type. Implementations are
// safe for concurrent use and scope every call to the given tenant.
// Soft-deleted rows are returned unless a condition excludes them.
type Table[E entity.Record] interface {
	// List returns the tenant's rows matching every condition, in ID order.
	List(ctx context.Context, tenantID int64, conds ...entity.Cond) ([]E, error)

	// Get returns the row with the given ID, reporting whether it exists.
	Get(ctx context.Context, tenantID, rowID int64) (E, bool, error)

	// Insert persists a new row.
	Insert(ctx context.Context, e E) error

	// Update persists changes to an existing row.
	Update(ctx context.Context, e E) error

	// Delete physically removes a row.
	Delete(ctx context.Context, e E) error
}

// Driver is a storage backend exposing one table per entity.
type Driver interface {
	Users() Table[*user.User]
	Roles() Table[*role.Role]
	UserRoles() Table[*role.UserRole]
	Permissions() Table[*permission.Permission]
	RolePermissions() Table[*permission.RolePermission]
	ActionRoles() Table[*action.ActionRole]
	ActionPermissions() Table[*action.ActionPermission]
	CheckLogs() checklog.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}
