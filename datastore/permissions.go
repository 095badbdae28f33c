package datastore

import (
	"context"
	"errors"

	"github.com/xraph/gatehouse/entity"
	"github.com/xraph/gatehouse/permission"
)

// Compile-time interface check.
var _ permission.Store = (*Store)(nil)

// ──────────────────────────────────────────────────
// Permissions
// ──────────────────────────────────────────────────

func (s *Store) InsertPermission(ctx context.Context, p *permission.Permission) error {
	return s.permissions.Insert(ctx, p)
}

func (s *Store) GetPermissionByID(ctx context.Context, permID int64) (*permission.Permission, error) {
	return s.permissions.Get(ctx, permID)
}

func (s *Store) GetPermission(ctx context.Context, name string) (*permission.Permission, error) {
	return s.permissions.Single(ctx, entity.Eq(permission.ColName, name))
}

func (s *Store) CheckPermissionExists(ctx context.Context, name string) (bool, error) {
	return s.permissions.Exists(ctx, entity.Eq(permission.ColName, name))
}

func (s *Store) ListPermissions(ctx context.Context) ([]*permission.Permission, error) {
	return s.permissions.GetAll(ctx)
}

func (s *Store) SoftDeletePermission(ctx context.Context, p *permission.Permission) error {
	return s.permissions.SoftDelete(ctx, p)
}

// ──────────────────────────────────────────────────
// Role → permission grants
// ──────────────────────────────────────────────────

func (s *Store) AssignPermissionToRole(ctx context.Context, name string, roleID int64) error {
	p, err := s.GetPermission(ctx, name)
	if err != nil {
		return err
	}
	return s.rolePermissions.Insert(ctx, &permission.RolePermission{RoleID: roleID, PermissionID: p.ID})
}

func (s *Store) RemovePermissionFromRole(ctx context.Context, name string, roleID int64) error {
	p, err := s.GetPermission(ctx, name)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	grants, err := s.rolePermissions.Find(ctx,
		entity.Eq(permission.ColRoleID, roleID),
		entity.Eq(permission.ColPermissionID, p.ID),
	)
	if err != nil {
		return err
	}
	for _, g := range grants {
		if err := s.rolePermissions.SoftDelete(ctx, g); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) RoleHasPermission(ctx context.Context, roleID int64, name string) (bool, error) {
	perms, err := s.GetPermissionsOfRole(ctx, roleID)
	if err != nil {
		return false, err
	}
	for _, p := range perms {
		if p.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) GetPermissionsOfRole(ctx context.Context, roleID int64) ([]*permission.Permission, error) {
	grants, err := s.rolePermissions.Find(ctx, entity.Eq(permission.ColRoleID, roleID))
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(grants))
	for _, g := range grants {
		ids = append(ids, g.PermissionID)
	}
	return s.permissionsByID(ctx, ids)
}

func (s *Store) GetPermissionsOfUser(ctx context.Context, userID int64) ([]*permission.Permission, error) {
	roles, err := s.GetRolesOfUser(ctx, userID)
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

func (s *Store) UserHasPermission(ctx context.Context, userID int64, name string) (bool, error) {
	perms, err := s.GetPermissionsOfUser(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, p := range perms {
		if p.Name == name {
			return true, nil
		}
	}
	return false, nil
}

// permissionsByID resolves permission IDs to live permissions, dropping
// deleted ones and duplicates while keeping order.
func (s *Store) permissionsByID(ctx context.Context, ids []int64) ([]*permission.Permission, error) {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]*permission.Permission, 0, len(ids))
	for _, pid := range ids {
		if _, ok := seen[pid]; ok {
			continue
		}
		seen[pid] = struct{}{}
		p, err := s.permissions.Get(ctx, pid)
		if err != nil {
			return nil, err
		}
		if p != nil {
			out = append(out, p)
		}
	}
	return out, nil
}
