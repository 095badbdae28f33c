package datastore

import (
	"context"
	"errors"

	"github.com/xraph/gatehouse/entity"
	"github.com/xraph/gatehouse/role"
)

// Compile-time interface check.
var _ role.Store = (*Store)(nil)

// ──────────────────────────────────────────────────
// Roles
// ──────────────────────────────────────────────────

func (s *Store) InsertRole(ctx context.Context, r *role.Role) error {
	return s.roles.Insert(ctx, r)
}

func (s *Store) GetRoleByID(ctx context.Context, roleID int64) (*role.Role, error) {
	return s.roles.Get(ctx, roleID)
}

func (s *Store) GetRole(ctx context.Context, name string) (*role.Role, error) {
	return s.roles.Single(ctx, entity.Eq(role.ColName, name))
}

func (s *Store) CheckRoleExists(ctx context.Context, name string) (bool, error) {
	return s.roles.Exists(ctx, entity.Eq(role.ColName, name))
}

func (s *Store) ListRoles(ctx context.Context) ([]*role.Role, error) {
	return s.roles.GetAll(ctx)
}

func (s *Store) SoftDeleteRole(ctx context.Context, r *role.Role) error {
	return s.roles.SoftDelete(ctx, r)
}

// ──────────────────────────────────────────────────
// User → role grants
// ──────────────────────────────────────────────────

func (s *Store) GetRolesOfUser(ctx context.Context, userID int64) ([]*role.Role, error) {
	grants, err := s.userRoles.Find(ctx, entity.Eq(role.ColUserID, userID))
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(grants))
	for _, g := range grants {
		ids = append(ids, g.RoleID)
	}
	return s.rolesByID(ctx, ids)
}

func (s *Store) ListUsersOfRole(ctx context.Context, name string) ([]int64, error) {
	r, err := s.GetRole(ctx, name)
	if err != nil {
		return nil, err
	}
	grants, err := s.userRoles.Find(ctx, entity.Eq(role.ColRoleID, r.ID))
	if err != nil {
		return nil, err
	}
	seen := make(map[int64]struct{}, len(grants))
	out := make([]int64, 0, len(grants))
	for _, g := range grants {
		if _, ok := seen[g.UserID]; ok {
			continue
		}
		seen[g.UserID] = struct{}{}
		out = append(out, g.UserID)
	}
	return out, nil
}

func (s *Store) AssignRoleToUser(ctx context.Context, name string, userID int64) error {
	r, err := s.GetRole(ctx, name)
	if err != nil {
		return err
	}
	return s.userRoles.Insert(ctx, &role.UserRole{UserID: userID, RoleID: r.ID})
}

func (s *Store) RemoveRoleFromUser(ctx context.Context, name string, userID int64) error {
	r, err := s.GetRole(ctx, name)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	grants, err := s.userRoles.Find(ctx,
		entity.Eq(role.ColUserID, userID),
		entity.Eq(role.ColRoleID, r.ID),
	)
	if err != nil {
		return err
	}
	for _, g := range grants {
		if err := s.userRoles.SoftDelete(ctx, g); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) UserHasRole(ctx context.Context, userID int64, name string) (bool, error) {
	roles, err := s.GetRolesOfUser(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, r := range roles {
		if r.Name == name {
			return true, nil
		}
	}
	return false, nil
}

// rolesByID resolves role IDs to live roles, dropping deleted ones and
// duplicates while keeping order.
func (s *Store) rolesByID(ctx context.Context, ids []int64) ([]*role.Role, error) {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]*role.Role, 0, len(ids))
	for _, rid := range ids {
		if _, ok := seen[rid]; ok {
			continue
		}
		seen[rid] = struct{}{}
		r, err := s.roles.Get(ctx, rid)
		if err != nil {
			return nil, err
		}
		if r != nil {
			out = append(out, r)
		}
	}
	return out, nil
}
