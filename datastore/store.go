// Package datastore is the tenant-scoped data layer. It wraps a storage
// Driver in per-entity repositories that serialize all access to a tenant
// through a Gate, and builds the role, permission, action grant, user and
// check log stores on top of them.
package datastore

import (
	"context"
	"log/slog"

	"github.com/xraph/gatehouse/action"
	"github.com/xraph/gatehouse/permission"
	"github.com/xraph/gatehouse/role"
	"github.com/xraph/gatehouse/store"
	"github.com/xraph/gatehouse/user"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store implements the composite store over a Driver.
type Store struct {
	driver        Driver
	gate          *Gate
	logger        *slog.Logger
	defaultTenant int64

	users             *Repository[*user.User]
	roles             *Repository[*role.Role]
	userRoles         *Repository[*role.UserRole]
	permissions       *Repository[*permission.Permission]
	rolePermissions   *Repository[*permission.RolePermission]
	actionRoles       *Repository[*action.ActionRole]
	actionPermissions *Repository[*action.ActionPermission]
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option { return func(s *Store) { s.logger = l } }

// WithGate shares a gate between stores over the same backend.
func WithGate(g *Gate) Option { return func(s *Store) { s.gate = g } }

// WithDefaultTenant sets the tenant used when the context carries none.
// Zero disables the fallback.
func WithDefaultTenant(tenantID int64) Option {
	return func(s *Store) { s.defaultTenant = tenantID }
}

// New creates a Store over the given driver.
func New(d Driver, opts ...Option) *Store {
	s := &Store{
		driver: d,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.gate == nil {
		s.gate = NewGate()
	}
	s.users = newRepository(s, "user", d.Users())
	s.roles = newRepository(s, "role", d.Roles())
	s.userRoles = newRepository(s, "user role", d.UserRoles())
	s.permissions = newRepository(s, "permission", d.Permissions())
	s.rolePermissions = newRepository(s, "role permission", d.RolePermissions())
	s.actionRoles = newRepository(s, "action role", d.ActionRoles())
	s.actionPermissions = newRepository(s, "action permission", d.ActionPermissions())
	return s
}

// Gate returns the tenant gate.
func (s *Store) Gate() *Gate { return s.gate }

// Driver returns the underlying backend.
func (s *Store) Driver() Driver { return s.driver }

// Tenant resolves the active tenant from ctx, falling back to the default
// tenant.
func (s *Store) Tenant(ctx context.Context) (int64, error) {
	if t, ok := TenantFromContext(ctx); ok {
		return t, nil
	}
	if s.defaultTenant != 0 {
		return s.defaultTenant, nil
	}
	return 0, ErrNoTenant
}

// Hold takes the active tenant's gate slot for the lifetime of the
// returned context, so a sequence of store calls runs as one unit.
func (s *Store) Hold(ctx context.Context) (context.Context, func(), error) {
	tenant, err := s.Tenant(ctx)
	if err != nil {
		return nil, nil, err
	}
	held, release, err := s.gate.Hold(WithTenant(ctx, tenant), tenant)
	if err != nil {
		return nil, nil, err
	}
	return held, release, nil
}

// Migrate runs the backend migrations.
func (s *Store) Migrate(ctx context.Context) error { return s.driver.Migrate(ctx) }

// Ping checks backend connectivity.
func (s *Store) Ping(ctx context.Context) error { return s.driver.Ping(ctx) }

// Close closes the backend.
func (s *Store) Close() error { return s.driver.Close() }
