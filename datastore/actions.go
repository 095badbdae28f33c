package datastore

import (
	"context"
	"fmt"
	"sort"

	"github.com/xraph/gatehouse/action"
	"github.com/xraph/gatehouse/entity"
	"github.com/xraph/gatehouse/permission"
	"github.com/xraph/gatehouse/role"
)

// Compile-time interface check.
var _ action.Store = (*Store)(nil)

func (s *Store) AssignRoleToAction(ctx context.Context, actionName string, roleID int64) error {
	exists, err := s.actionRoles.Exists(ctx,
		entity.Eq(action.ColActionName, actionName),
		entity.Eq(action.ColRoleID, roleID),
	)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("role %d on action %q: %w", roleID, actionName, action.ErrAlreadyAssigned)
	}
	return s.actionRoles.Insert(ctx, &action.ActionRole{ActionName: actionName, RoleID: roleID})
}

func (s *Store) AssignPermissionToAction(ctx context.Context, actionName string, permID int64) error {
	exists, err := s.actionPermissions.Exists(ctx,
		entity.Eq(action.ColActionName, actionName),
		entity.Eq(action.ColPermissionID, permID),
	)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("permission %d on action %q: %w", permID, actionName, action.ErrAlreadyAssigned)
	}
	return s.actionPermissions.Insert(ctx, &action.ActionPermission{ActionName: actionName, PermissionID: permID})
}

func (s *Store) RemoveRoleFromAction(ctx context.Context, actionName string, roleID int64) error {
	grants, err := s.actionRoles.Find(ctx,
		entity.Eq(action.ColActionName, actionName),
		entity.Eq(action.ColRoleID, roleID),
	)
	if err != nil {
		return err
	}
	for _, g := range grants {
		if err := s.actionRoles.HardDelete(ctx, g); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) RemovePermissionFromAction(ctx context.Context, actionName string, permID int64) error {
	grants, err := s.actionPermissions.Find(ctx,
		entity.Eq(action.ColActionName, actionName),
		entity.Eq(action.ColPermissionID, permID),
	)
	if err != nil {
		return err
	}
	for _, g := range grants {
		if err := s.actionPermissions.HardDelete(ctx, g); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) GetRolesOfAction(ctx context.Context, actionName string) ([]*role.Role, error) {
	grants, err := s.actionRoles.Find(ctx, entity.Eq(action.ColActionName, actionName))
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(grants))
	for _, g := range grants {
		ids = append(ids, g.RoleID)
	}
	return s.rolesByID(ctx, ids)
}

func (s *Store) GetPermissionsOfAction(ctx context.Context, actionName string) ([]*permission.Permission, error) {
	grants, err := s.actionPermissions.Find(ctx, entity.Eq(action.ColActionName, actionName))
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(grants))
	for _, g := range grants {
		ids = append(ids, g.PermissionID)
	}
	return s.permissionsByID(ctx, ids)
}

func (s *Store) GetDerivedPermissionsOfAction(ctx context.Context, actionName string) ([]*permission.Permission, error) {
	roles, err := s.GetRolesOfAction(ctx, actionName)
	if err != nil {
		return nil, err
	}
	var ids []int64
	for _, r := range roles {
		grants, err := s.rolePermissions.Find(ctx, entity.Eq(permission.ColRoleID, r.ID))
		if err != nil {
			return nil, err
		}
		for _, g := range grants {
			ids = append(ids, g.PermissionID)
		}
	}
	return s.permissionsByID(ctx, ids)
}

func (s *Store) ListActions(ctx context.Context) ([]string, error) {
	ars, err := s.actionRoles.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	aps, err := s.actionPermissions.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(ars)+len(aps))
	for _, g := range ars {
		seen[g.ActionName] = struct{}{}
	}
	for _, g := range aps {
		seen[g.ActionName] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}
