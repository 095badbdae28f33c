package gatehouse

import (
	"context"
	"log/slog"
	"strings"

	"github.com/xraph/gatehouse/role"
)

// InsertRole creates a role and returns its ID. It returns -1 when the name
// is blank or already taken.
func (e *Engine) InsertRole(ctx context.Context, name string) (int64, error) {
	ctx = e.scoped(ctx)
	if strings.TrimSpace(name) == "" {
		e.reject("insert role", "blank name")
		return -1, nil
	}

	var created *role.Role
	err := e.locked(ctx, func(ctx context.Context) error {
		exists, err := e.store.CheckRoleExists(ctx, name)
		if err != nil || exists {
			return err
		}
		r := &role.Role{Name: name}
		if err := e.store.InsertRole(ctx, r); err != nil {
			return err
		}
		created = r
		return nil
	})
	if err != nil {
		return -1, wrap("insert role", err)
	}
	if created == nil {
		e.reject("insert role", "name taken", slog.String("role", name))
		return -1, nil
	}

	e.changed(ctx)
	if e.plugins != nil {
		e.plugins.EmitRoleCreated(ctx, created)
	}
	return created.ID, nil
}

// DeleteRole soft-deletes a role. It returns false when the role does not
// exist.
func (e *Engine) DeleteRole(ctx context.Context, roleID int64) (bool, error) {
	ctx = e.scoped(ctx)

	var deleted *role.Role
	err := e.locked(ctx, func(ctx context.Context) error {
		r, err := e.store.GetRoleByID(ctx, roleID)
		if err != nil || r == nil {
			return err
		}
		if err := e.store.SoftDeleteRole(ctx, r); err != nil {
			return err
		}
		deleted = r
		return nil
	})
	if err != nil {
		return false, wrap("delete role", err)
	}
	if deleted == nil {
		e.reject("delete role", "not found", slog.Int64("role_id", roleID))
		return false, nil
	}

	e.changed(ctx)
	if e.plugins != nil {
		e.plugins.EmitRoleDeleted(ctx, deleted)
	}
	return true, nil
}

// AssignRoleToUser grants a role to a user. It returns false when the role
// or user does not exist or the user already holds the role.
func (e *Engine) AssignRoleToUser(ctx context.Context, roleName string, userID int64) (bool, error) {
	ctx = e.scoped(ctx)

	var granted *role.Role
	reason := ""
	err := e.locked(ctx, func(ctx context.Context) error {
		r, err := e.findRole(ctx, roleName)
		if err != nil {
			return err
		}
		if r == nil {
			reason = "role not found"
			return nil
		}
		u, err := e.store.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		if u == nil {
			reason = "user not found"
			return nil
		}
		has, err := e.store.UserHasRole(ctx, userID, roleName)
		if err != nil {
			return err
		}
		if has {
			reason = "already held"
			return nil
		}
		if err := e.store.AssignRoleToUser(ctx, roleName, userID); err != nil {
			return err
		}
		granted = r
		return nil
	})
	if err != nil {
		return false, wrap("assign role", err)
	}
	if granted == nil {
		e.reject("assign role", reason, slog.String("role", roleName), slog.Int64("user_id", userID))
		return false, nil
	}

	if e.plugins != nil {
		e.plugins.EmitRoleAssigned(ctx, userID, granted)
	}
	return true, nil
}

// RemoveRoleFromUser takes a role from a user. It returns false when the
// role or user does not exist or the user does not hold the role.
func (e *Engine) RemoveRoleFromUser(ctx context.Context, roleName string, userID int64) (bool, error) {
	ctx = e.scoped(ctx)

	var removed *role.Role
	reason := ""
	err := e.locked(ctx, func(ctx context.Context) error {
		r, err := e.findRole(ctx, roleName)
		if err != nil {
			return err
		}
		if r == nil {
			reason = "role not found"
			return nil
		}
		u, err := e.store.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		if u == nil {
			reason = "user not found"
			return nil
		}
		has, err := e.store.UserHasRole(ctx, userID, roleName)
		if err != nil {
			return err
		}
		if !has {
			reason = "not held"
			return nil
		}
		if err := e.store.RemoveRoleFromUser(ctx, roleName, userID); err != nil {
			return err
		}
		removed = r
		return nil
	})
	if err != nil {
		return false, wrap("remove role", err)
	}
	if removed == nil {
		e.reject("remove role", reason, slog.String("role", roleName), slog.Int64("user_id", userID))
		return false, nil
	}

	if e.plugins != nil {
		e.plugins.EmitRoleUnassigned(ctx, userID, removed)
	}
	return true, nil
}

// ListRoles returns every role of the tenant.
func (e *Engine) ListRoles(ctx context.Context) ([]*role.Role, error) {
	roles, err := e.store.ListRoles(e.scoped(ctx))
	if err != nil {
		return nil, wrap("list roles", err)
	}
	return roles, nil
}

// RoleExists reports whether the named role exists.
func (e *Engine) RoleExists(ctx context.Context, name string) (bool, error) {
	ok, err := e.store.CheckRoleExists(e.scoped(ctx), name)
	if err != nil {
		return false, wrap("role exists", err)
	}
	return ok, nil
}

// GetRolesOfUser returns the names of the roles a user holds.
func (e *Engine) GetRolesOfUser(ctx context.Context, userID int64) ([]string, error) {
	roles, err := e.store.GetRolesOfUser(e.scoped(ctx), userID)
	if err != nil {
		return nil, wrap("roles of user", err)
	}
	return roleNames(roles), nil
}

// UserHasRole reports whether a user holds the named role.
func (e *Engine) UserHasRole(ctx context.Context, userID int64, roleName string) (bool, error) {
	has, err := e.store.UserHasRole(e.scoped(ctx), userID, roleName)
	if err != nil {
		return false, wrap("user has role", err)
	}
	return has, nil
}

func roleNames(roles []*role.Role) []string {
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, r.Name)
	}
	return names
}
