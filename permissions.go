package gatehouse

import (
	"context"
	"log/slog"
	"strings"

	"github.com/xraph/gatehouse/permission"
	"github.com/xraph/gatehouse/role"
)

// InsertPermission creates a permission and returns its ID. It returns -1
// when the name is blank or already taken.
func (e *Engine) InsertPermission(ctx context.Context, name string) (int64, error) {
	ctx = e.scoped(ctx)
	if strings.TrimSpace(name) == "" {
		e.reject("insert permission", "blank name")
		return -1, nil
	}

	var created *permission.Permission
	err := e.locked(ctx, func(ctx context.Context) error {
		exists, err := e.store.CheckPermissionExists(ctx, name)
		if err != nil || exists {
			return err
		}
		p := &permission.Permission{Name: name}
		if err := e.store.InsertPermission(ctx, p); err != nil {
			return err
		}
		created = p
		return nil
	})
	if err != nil {
		return -1, wrap("insert permission", err)
	}
	if created == nil {
		e.reject("insert permission", "name taken", slog.String("permission", name))
		return -1, nil
	}

	e.changed(ctx)
	if e.plugins != nil {
		e.plugins.EmitPermissionCreated(ctx, created)
	}
	return created.ID, nil
}

// DeletePermission soft-deletes a permission. It returns false when the
// permission does not exist.
func (e *Engine) DeletePermission(ctx context.Context, permID int64) (bool, error) {
	ctx = e.scoped(ctx)

	var deleted *permission.Permission
	err := e.locked(ctx, func(ctx context.Context) error {
		p, err := e.store.GetPermissionByID(ctx, permID)
		if err != nil || p == nil {
			return err
		}
		if err := e.store.SoftDeletePermission(ctx, p); err != nil {
			return err
		}
		deleted = p
		return nil
	})
	if err != nil {
		return false, wrap("delete permission", err)
	}
	if deleted == nil {
		e.reject("delete permission", "not found", slog.Int64("permission_id", permID))
		return false, nil
	}

	e.changed(ctx)
	if e.plugins != nil {
		e.plugins.EmitPermissionDeleted(ctx, deleted)
	}
	return true, nil
}

// AssignPermissionToRole grants a permission to a role. It returns false
// when either does not exist or the role already holds the permission.
func (e *Engine) AssignPermissionToRole(ctx context.Context, permName, roleName string) (bool, error) {
	ctx = e.scoped(ctx)

	var (
		r      *role.Role
		p      *permission.Permission
		reason string
	)
	err := e.locked(ctx, func(ctx context.Context) error {
		var err error
		if p, err = e.findPermission(ctx, permName); err != nil {
			return err
		}
		if r, err = e.findRole(ctx, roleName); err != nil {
			return err
		}
		if p == nil || r == nil {
			reason = "not found"
			return nil
		}
		has, err := e.store.RoleHasPermission(ctx, r.ID, permName)
		if err != nil {
			return err
		}
		if has {
			reason = "already held"
			return nil
		}
		return e.store.AssignPermissionToRole(ctx, permName, r.ID)
	})
	if err != nil {
		return false, wrap("assign permission", err)
	}
	if reason != "" {
		e.reject("assign permission", reason, slog.String("permission", permName), slog.String("role", roleName))
		return false, nil
	}

	e.changed(ctx)
	if e.plugins != nil {
		e.plugins.EmitPermissionAttached(ctx, r, p)
	}
	return true, nil
}

// RemovePermissionFromRole takes a permission from a role. It returns false
// when either does not exist or the role does not hold the permission.
func (e *Engine) RemovePermissionFromRole(ctx context.Context, permName, roleName string) (bool, error) {
	ctx = e.scoped(ctx)

	var (
		r      *role.Role
		p      *permission.Permission
		reason string
	)
	err := e.locked(ctx, func(ctx context.Context) error {
		var err error
		if p, err = e.findPermission(ctx, permName); err != nil {
			return err
		}
		if r, err = e.findRole(ctx, roleName); err != nil {
			return err
		}
		if p == nil || r == nil {
			reason = "not found"
			return nil
		}
		has, err := e.store.RoleHasPermission(ctx, r.ID, permName)
		if err != nil {
			return err
		}
		if !has {
			reason = "not held"
			return nil
		}
		return e.store.RemovePermissionFromRole(ctx, permName, r.ID)
	})
	if err != nil {
		return false, wrap("remove permission", err)
	}
	if reason != "" {
		e.reject("remove permission", reason, slog.String("permission", permName), slog.String("role", roleName))
		return false, nil
	}

	e.changed(ctx)
	if e.plugins != nil {
		e.plugins.EmitPermissionDetached(ctx, r, p)
	}
	return true, nil
}

// GetPermissionsOfRole returns the permissions a role holds. The result is
// nil when the role does not exist and empty when it holds none.
func (e *Engine) GetPermissionsOfRole(ctx context.Context, roleName string) ([]*permission.Permission, error) {
	ctx = e.scoped(ctx)

	var out []*permission.Permission
	err := e.locked(ctx, func(ctx context.Context) error {
		r, err := e.findRole(ctx, roleName)
		if err != nil || r == nil {
			return err
		}
		perms, err := e.store.GetPermissionsOfRole(ctx, r.ID)
		if err != nil {
			return err
		}
		out = perms
		if out == nil {
			out = []*permission.Permission{}
		}
		return nil
	})
	if err != nil {
		return nil, wrap("permissions of role", err)
	}
	return out, nil
}

// ListPermissions returns every permission of the tenant.
func (e *Engine) ListPermissions(ctx context.Context) ([]*permission.Permission, error) {
	perms, err := e.store.ListPermissions(e.scoped(ctx))
	if err != nil {
		return nil, wrap("list permissions", err)
	}
	return perms, nil
}

// GetPermissionsOfUser returns the names of the permissions a user holds
// through its roles.
func (e *Engine) GetPermissionsOfUser(ctx context.Context, userID int64) ([]string, error) {
	perms, err := e.store.GetPermissionsOfUser(e.scoped(ctx), userID)
	if err != nil {
		return nil, wrap("permissions of user", err)
	}
	return permission.Names(perms), nil
}

// UserHasPermission reports whether a user holds the named permission
// through one of its roles.
func (e *Engine) UserHasPermission(ctx context.Context, userID int64, permName string) (bool, error) {
	has, err := e.store.UserHasPermission(e.scoped(ctx), userID, permName)
	if err != nil {
		return false, wrap("user has permission", err)
	}
	return has, nil
}
