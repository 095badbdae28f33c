package gatehouse

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/xraph/gatehouse/permission"
	"github.com/xraph/gatehouse/plugin"
)

// RegisterRoleToAction makes an action accept callers holding a role. It
// returns false when the role does not exist, and false with an error
// wrapping ErrAlreadyAssigned when the grant already exists.
func (e *Engine) RegisterRoleToAction(ctx context.Context, actionName, roleName string) (bool, error) {
	ctx = e.scoped(ctx)
	if strings.TrimSpace(actionName) == "" {
		e.reject("register role", "blank action")
		return false, nil
	}

	found := false
	err := e.locked(ctx, func(ctx context.Context) error {
		r, err := e.findRole(ctx, roleName)
		if err != nil || r == nil {
			return err
		}
		found = true
		return e.store.AssignRoleToAction(ctx, actionName, r.ID)
	})
	if errors.Is(err, ErrAlreadyAssigned) {
		e.reject("register role", "already assigned", slog.String("action", actionName), slog.String("role", roleName))
		return false, wrap("register role", err)
	}
	if err != nil {
		return false, wrap("register role", err)
	}
	if !found {
		e.reject("register role", "role not found", slog.String("action", actionName), slog.String("role", roleName))
		return false, nil
	}

	e.grantChanged(ctx, actionName, plugin.GrantRole, roleName, true)
	return true, nil
}

// RemoveRoleFromAction retracts a role grant. It returns false unless the
// action currently lists the role.
func (e *Engine) RemoveRoleFromAction(ctx context.Context, actionName, roleName string) (bool, error) {
	ctx = e.scoped(ctx)

	removed := false
	err := e.locked(ctx, func(ctx context.Context) error {
		r, err := e.findRole(ctx, roleName)
		if err != nil || r == nil {
			return err
		}
		roles, err := e.store.GetRolesOfAction(ctx, actionName)
		if err != nil {
			return err
		}
		for _, granted := range roles {
			if granted.ID == r.ID {
				removed = true
				return e.store.RemoveRoleFromAction(ctx, actionName, r.ID)
			}
		}
		return nil
	})
	if err != nil {
		return false, wrap("remove role from action", err)
	}
	if !removed {
		e.reject("remove role from action", "not granted", slog.String("action", actionName), slog.String("role", roleName))
		return false, nil
	}

	e.grantChanged(ctx, actionName, plugin.GrantRole, roleName, false)
	return true, nil
}

// RegisterPermissionToAction makes an action accept callers holding a
// permission. It returns false when the permission does not exist, and
// false with an error wrapping ErrAlreadyAssigned when the grant already
// exists.
func (e *Engine) RegisterPermissionToAction(ctx context.Context, actionName, permName string) (bool, error) {
	ctx = e.scoped(ctx)
	if strings.TrimSpace(actionName) == "" {
		e.reject("register permission", "blank action")
		return false, nil
	}

	found := false
	err := e.locked(ctx, func(ctx context.Context) error {
		p, err := e.findPermission(ctx, permName)
		if err != nil || p == nil {
			return err
		}
		found = true
		return e.store.AssignPermissionToAction(ctx, actionName, p.ID)
	})
	if errors.Is(err, ErrAlreadyAssigned) {
		e.reject("register permission", "already assigned", slog.String("action", actionName), slog.String("permission", permName))
		return false, wrap("register permission", err)
	}
	if err != nil {
		return false, wrap("register permission", err)
	}
	if !found {
		e.reject("register permission", "permission not found", slog.String("action", actionName), slog.String("permission", permName))
		return false, nil
	}

	e.grantChanged(ctx, actionName, plugin.GrantPermission, permName, true)
	return true, nil
}

// RemovePermissionFromAction retracts a direct permission grant. It returns
// false unless the action currently lists the permission directly.
func (e *Engine) RemovePermissionFromAction(ctx context.Context, actionName, permName string) (bool, error) {
	ctx = e.scoped(ctx)

	removed := false
	err := e.locked(ctx, func(ctx context.Context) error {
		p, err := e.findPermission(ctx, permName)
		if err != nil || p == nil {
			return err
		}
		perms, err := e.store.GetPermissionsOfAction(ctx, actionName)
		if err != nil {
			return err
		}
		for _, granted := range perms {
			if granted.ID == p.ID {
				removed = true
				return e.store.RemovePermissionFromAction(ctx, actionName, p.ID)
			}
		}
		return nil
	})
	if err != nil {
		return false, wrap("remove permission from action", err)
	}
	if !removed {
		e.reject("remove permission from action", "not granted", slog.String("action", actionName), slog.String("permission", permName))
		return false, nil
	}

	e.grantChanged(ctx, actionName, plugin.GrantPermission, permName, false)
	return true, nil
}

// GetRolesOfAction returns the names of the roles granted to an action.
func (e *Engine) GetRolesOfAction(ctx context.Context, actionName string) ([]string, error) {
	roles, err := e.store.GetRolesOfAction(e.scoped(ctx), actionName)
	if err != nil {
		return nil, wrap("roles of action", err)
	}
	return roleNames(roles), nil
}

// GetPermissionsOfAction returns the effective permission names of an
// action: direct grants followed by those derived from its roles, each
// name once.
func (e *Engine) GetPermissionsOfAction(ctx context.Context, actionName string) ([]string, error) {
	ctx = e.scoped(ctx)

	var out []string
	err := e.locked(ctx, func(ctx context.Context) error {
		names, err := e.effectivePermissions(ctx, actionName)
		out = names
		return err
	})
	if err != nil {
		return nil, wrap("permissions of action", err)
	}
	return out, nil
}

func (e *Engine) effectivePermissions(ctx context.Context, actionName string) ([]string, error) {
	direct, err := e.store.GetPermissionsOfAction(ctx, actionName)
	if err != nil {
		return nil, err
	}
	derived, err := e.store.GetDerivedPermissionsOfAction(ctx, actionName)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(direct)+len(derived))
	out := make([]string, 0, len(direct)+len(derived))
	for _, list := range [][]*permission.Permission{direct, derived} {
		for _, p := range list {
			if _, ok := seen[p.Name]; ok {
				continue
			}
			seen[p.Name] = struct{}{}
			out = append(out, p.Name)
		}
	}
	return out, nil
}

// ListActions returns the names of every action that carries a grant.
func (e *Engine) ListActions(ctx context.Context) ([]string, error) {
	actions, err := e.store.ListActions(e.scoped(ctx))
	if err != nil {
		return nil, wrap("list actions", err)
	}
	return actions, nil
}

// Requirements returns what an action demands of its caller, served from
// the cache when one is configured.
func (e *Engine) Requirements(ctx context.Context, actionName string) (*Requirements, error) {
	ctx = e.scoped(ctx)
	tenant, err := e.store.Tenant(ctx)
	if err != nil {
		return nil, wrap("requirements", err)
	}
	var gen uint64
	if e.cache != nil {
		if req, ok := e.cache.Get(ctx, tenant, actionName); ok {
			return req, nil
		}
		gen = e.generation(tenant).Load()
	}

	req := &Requirements{Action: actionName}
	err = e.locked(ctx, func(ctx context.Context) error {
		roles, err := e.store.GetRolesOfAction(ctx, actionName)
		if err != nil {
			return err
		}
		req.Roles = roleNames(roles)
		req.Permissions, err = e.effectivePermissions(ctx, actionName)
		return err
	})
	if err != nil {
		return nil, wrap("requirements", err)
	}

	if e.cache != nil {
		e.cache.Set(ctx, tenant, actionName, req)
		// A grant changed while the requirements were read or stored.
		if e.generation(tenant).Load() != gen {
			e.cache.InvalidateTenant(ctx, tenant)
		}
	}
	return req, nil
}

func (e *Engine) grantChanged(ctx context.Context, actionName string, kind plugin.GrantKind, target string, granted bool) {
	e.changed(ctx)
	if e.plugins == nil {
		return
	}
	tenant, _ := e.store.Tenant(ctx)
	e.plugins.EmitActionGrantChanged(ctx, &plugin.GrantChange{
		TenantID: tenant,
		Action:   actionName,
		Kind:     kind,
		Target:   target,
		Granted:  granted,
	})
}
