// Package memory provides an in-memory gatehouse backend. It is intended
// for testing and development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/xraph/gatehouse/action"
	"github.com/xraph/gatehouse/checklog"
	"github.com/xraph/gatehouse/datastore"
	"github.com/xraph/gatehouse/entity"
	"github.com/xraph/gatehouse/permission"
	"github.com/xraph/gatehouse/role"
	"github.com/xraph/gatehouse/user"
)

// Compile-time interface check.
var _ datastore.Driver = (*Store)(nil)

// errDuplicate mirrors a unique-constraint violation in SQL backends.
var errDuplicate = fmt.Errorf("duplicate key")

// Store is a thread-safe in-memory backend for all gatehouse entities.
type Store struct {
	users             *table[*user.User]
	roles             *table[*role.Role]
	userRoles         *table[*role.UserRole]
	permissions       *table[*permission.Permission]
	rolePermissions   *table[*permission.RolePermission]
	actionRoles       *table[*action.ActionRole]
	actionPermissions *table[*action.ActionPermission]
	checkLogs         *checkLogStore
}

// New creates a new in-memory backend. Unique keys match the partial
// unique indexes of the SQL backends: they apply to non-deleted rows only.
func New() *Store {
	return &Store{
		users: newTable((*user.User).Clone,
			[]string{user.ColUsername}),
		roles: newTable((*role.Role).Clone,
			[]string{role.ColName}),
		userRoles: newTable((*role.UserRole).Clone,
			[]string{role.ColUserID, role.ColRoleID}),
		permissions: newTable((*permission.Permission).Clone,
			[]string{permission.ColName}),
		rolePermissions: newTable((*permission.RolePermission).Clone,
			[]string{permission.ColRoleID, permission.ColPermissionID}),
		actionRoles: newTable((*action.ActionRole).Clone,
			[]string{action.ColActionName, action.ColRoleID}),
		actionPermissions: newTable((*action.ActionPermission).Clone,
			[]string{action.ColActionName, action.ColPermissionID}),
		checkLogs: newCheckLogStore(),
	}
}

// Users returns the user table.
func (s *Store) Users() datastore.Table[*user.User] { return s.users }

// Roles returns the role table.
func (s *Store) Roles() datastore.Table[*role.Role] { return s.roles }

// UserRoles returns the user→role grant table.
func (s *Store) UserRoles() datastore.Table[*role.UserRole] { return s.userRoles }

// Permissions returns the permission table.
func (s *Store) Permissions() datastore.Table[*permission.Permission] { return s.permissions }

// RolePermissions returns the role→permission grant table.
func (s *Store) RolePermissions() datastore.Table[*permission.RolePermission] {
	return s.rolePermissions
}

// ActionRoles returns the action→role grant table.
func (s *Store) ActionRoles() datastore.Table[*action.ActionRole] { return s.actionRoles }

// ActionPermissions returns the action→permission grant table.
func (s *Store) ActionPermissions() datastore.Table[*action.ActionPermission] {
	return s.actionPermissions
}

// CheckLogs returns the check log store.
func (s *Store) CheckLogs() checklog.Store { return s.checkLogs }

// Migrate is a no-op for the memory store.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping is a no-op for the memory store.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (s *Store) Close() error { return nil }

// ──────────────────────────────────────────────────
// Generic table
// ──────────────────────────────────────────────────

type table[E entity.Record] struct {
	mu     sync.RWMutex
	rows   map[int64]E
	clone  func(E) E
	unique []string
}

func newTable[E entity.Record](clone func(E) E, unique []string) *table[E] {
	return &table[E]{rows: make(map[int64]E), clone: clone, unique: unique}
}

func (t *table[E]) List(_ context.Context, tenantID int64, conds ...entity.Cond) ([]E, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]E, 0)
	for _, e := range t.rows {
		if e.Meta().TenantID != tenantID || !entity.Matches(e, conds) {
			continue
		}
		out = append(out, t.clone(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Meta().ID < out[j].Meta().ID })
	return out, nil
}

func (t *table[E]) Get(_ context.Context, tenantID, rowID int64) (E, bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.rows[rowID]
	if !ok || e.Meta().TenantID != tenantID {
		var zero E
		return zero, false, nil
	}
	return t.clone(e), true, nil
}

func (t *table[E]) Insert(_ context.Context, e E) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	m := e.Meta()
	if _, ok := t.rows[m.ID]; ok {
		return fmt.Errorf("id %d: %w", m.ID, errDuplicate)
	}
	if err := t.checkUnique(e); err != nil {
		return err
	}
	t.rows[m.ID] = t.clone(e)
	return nil
}

func (t *table[E]) Update(_ context.Context, e E) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	m := e.Meta()
	cur, ok := t.rows[m.ID]
	if !ok || cur.Meta().TenantID != m.TenantID {
		return fmt.Errorf("id %d: not found", m.ID)
	}
	if err := t.checkUnique(e); err != nil {
		return err
	}
	t.rows[m.ID] = t.clone(e)
	return nil
}

func (t *table[E]) Delete(_ context.Context, e E) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.rows, e.Meta().ID)
	return nil
}

// checkUnique rejects e when another live row of the same tenant has the
// same values in every unique column. Callers hold t.mu.
func (t *table[E]) checkUnique(e E) error {
	if len(t.unique) == 0 || e.Meta().IsDeleted {
		return nil
	}
	conds := make([]entity.Cond, 0, len(t.unique)+1)
	for _, col := range t.unique {
		v, _ := e.Column(col)
		conds = append(conds, entity.Eq(col, v))
	}
	conds = append(conds, entity.Eq(entity.ColIsDeleted, false))
	m := e.Meta()
	for rid, other := range t.rows {
		if rid == m.ID || other.Meta().TenantID != m.TenantID {
			continue
		}
		if entity.Matches(other, conds) {
			return fmt.Errorf("%v: %w", t.unique, errDuplicate)
		}
	}
	return nil
}
