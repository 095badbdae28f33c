package gatehouse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/xraph/gatehouse/permission"
	"github.com/xraph/gatehouse/user"
)

// Actions guarded by the HTTP API.
const (
	// ActionManage covers every role, permission and grant mutation.
	ActionManage = "Gatehouse.Manage"

	// ActionAudit covers reading the decision check log.
	ActionAudit = "Gatehouse.Audit"
)

// Seeded role names.
const (
	RoleAdmin       = "Admin"
	RoleUser        = "User"
	RoleDataManager = "DataManager"
)

// Seeded permission names.
const (
	PermCreateAccount   = "CreateAccount"
	PermManageRoles     = "ManageRoles"
	PermViewAnalytics   = "ViewAnalytics"
	PermGenerateReports = "GenerateReports"
)

// SeedFunc is one bootstrap step.
type SeedFunc func(ctx context.Context, e *Engine) error

// SeedStep is a named bootstrap step.
type SeedStep struct {
	Name string
	Run  SeedFunc
}

// Seeder runs bootstrap steps in the order they were added.
type Seeder struct {
	steps []SeedStep
}

// NewSeeder creates a seeder from the given steps.
func NewSeeder(steps ...SeedStep) *Seeder {
	return &Seeder{steps: steps}
}

// Add appends a step.
func (s *Seeder) Add(name string, run SeedFunc) *Seeder {
	s.steps = append(s.steps, SeedStep{Name: name, Run: run})
	return s
}

// Names returns the step names in run order.
func (s *Seeder) Names() []string {
	names := make([]string, 0, len(s.steps))
	for _, st := range s.steps {
		names = append(names, st.Name)
	}
	return names
}

// Run executes every step against the context's tenant, stopping at the
// first failure.
func (s *Seeder) Run(ctx context.Context, e *Engine) error {
	ctx = e.scoped(ctx)
	for _, st := range s.steps {
		if err := st.Run(ctx, e); err != nil {
			return fmt.Errorf("gatehouse: seed %s: %w", st.Name, err)
		}
		e.logger.Debug("gatehouse: seed step done", slog.String("step", st.Name))
	}
	return nil
}

// RunAll seeds several tenants concurrently, each under its own tenant
// context.
func (s *Seeder) RunAll(ctx context.Context, e *Engine, tenants ...int64) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, t := range tenants {
		g.Go(func() error {
			if err := s.Run(WithTenant(gctx, t), e); err != nil {
				return fmt.Errorf("tenant %d: %w", t, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// PasswordHasher turns a plaintext password into a stored hash.
type PasswordHasher func(password string) (string, error)

// SeedUser is an account the seed ensures exists. An empty password gets
// a generated one-time password, logged once when the account is created.
type SeedUser struct {
	Username string   `json:"username" mapstructure:"username" yaml:"username"`
	Password string   `json:"-" mapstructure:"password" yaml:"password"`
	Roles    []string `json:"roles" mapstructure:"roles" yaml:"roles"`
}

// SeedSet declares the roles, permissions and grants a tenant must have.
// Grants are reconciled only for the roles and actions that appear as
// keys; others are left alone.
type SeedSet struct {
	Roles             []string            `json:"roles" mapstructure:"roles" yaml:"roles"`
	Permissions       []string            `json:"permissions" mapstructure:"permissions" yaml:"permissions"`
	RolePermissions   map[string][]string `json:"role_permissions" mapstructure:"role_permissions" yaml:"role_permissions"`
	ActionRoles       map[string][]string `json:"action_roles" mapstructure:"action_roles" yaml:"action_roles"`
	ActionPermissions map[string][]string `json:"action_permissions" mapstructure:"action_permissions" yaml:"action_permissions"`
	Users             []SeedUser          `json:"users" mapstructure:"users" yaml:"users"`
}

// DefaultSeedSet returns the built-in roles, permissions and grants.
func DefaultSeedSet(cfg Config) *SeedSet {
	crud := []string{
		Wildcard(VerbCreate),
		Wildcard(VerbRead),
		Wildcard(VerbUpdate),
		Wildcard(VerbDelete),
	}
	perms := append([]string{
		PermCreateAccount,
		PermManageRoles,
		PermViewAnalytics,
		PermGenerateReports,
	}, crud...)

	set := &SeedSet{
		Roles:       []string{RoleAdmin, RoleUser, RoleDataManager},
		Permissions: perms,
		RolePermissions: map[string][]string{
			RoleAdmin:       perms,
			RoleDataManager: append(slices.Clone(crud), PermViewAnalytics, PermGenerateReports),
		},
		ActionRoles: map[string][]string{
			"DeleteUser": {RoleAdmin},
		},
		ActionPermissions: map[string][]string{
			ActionManage: {PermManageRoles},
			ActionAudit:  {PermViewAnalytics},
		},
	}
	if admin := cfg.BootstrapAdmin; admin.Username != "" {
		set.Users = append(set.Users, SeedUser{
			Username: admin.Username,
			Password: admin.Password,
			Roles:    []string{RoleAdmin},
		})
	}
	return set
}

// Seeder returns the reconciliation steps for the set.
func (set *SeedSet) Seeder(hash PasswordHasher) *Seeder {
	step := func(fn func(context.Context, *Engine) (int, error)) SeedFunc {
		return func(ctx context.Context, e *Engine) error {
			_, err := fn(ctx, e)
			return err
		}
	}
	return NewSeeder(
		SeedStep{Name: "roles", Run: step(set.reconcileRoles)},
		SeedStep{Name: "permissions", Run: step(set.reconcilePermissions)},
		SeedStep{Name: "role-permissions", Run: step(set.reconcileRolePermissions)},
		SeedStep{Name: "action-roles", Run: step(set.reconcileActionRoles)},
		SeedStep{Name: "action-permissions", Run: step(set.reconcileActionPermissions)},
		SeedStep{Name: "users", Run: step(func(ctx context.Context, e *Engine) (int, error) {
			return set.reconcileUsers(ctx, e, hash)
		})},
	)
}

// DefaultSeed returns the seeder for DefaultSeedSet.
func DefaultSeed(cfg Config, hash PasswordHasher) *Seeder {
	return DefaultSeedSet(cfg).Seeder(hash)
}

// Reconcile brings the context's tenant in line with the set and reports
// how many changes were made. A second run with the same set makes none.
func (e *Engine) Reconcile(ctx context.Context, set *SeedSet, hash PasswordHasher) (int, error) {
	ctx = e.scoped(ctx)
	steps := []func(context.Context, *Engine) (int, error){
		set.reconcileRoles,
		set.reconcilePermissions,
		set.reconcileRolePermissions,
		set.reconcileActionRoles,
		set.reconcileActionPermissions,
		func(ctx context.Context, e *Engine) (int, error) { return set.reconcileUsers(ctx, e, hash) },
	}
	total := 0
	for _, fn := range steps {
		n, err := fn(ctx, e)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (set *SeedSet) reconcileRoles(ctx context.Context, e *Engine) (int, error) {
	n := 0
	for _, name := range set.Roles {
		if strings.TrimSpace(name) == "" {
			return n, fmt.Errorf("%w: blank role name", ErrInvalidName)
		}
		exists, err := e.store.CheckRoleExists(ctx, name)
		if err != nil {
			return n, err
		}
		if exists {
			continue
		}
		id, err := e.InsertRole(ctx, name)
		if err != nil {
			return n, err
		}
		if id != -1 {
			n++
		}
	}
	return n, nil
}

func (set *SeedSet) reconcilePermissions(ctx context.Context, e *Engine) (int, error) {
	n := 0
	for _, name := range set.Permissions {
		if strings.TrimSpace(name) == "" {
			return n, fmt.Errorf("%w: blank permission name", ErrInvalidName)
		}
		exists, err := e.store.CheckPermissionExists(ctx, name)
		if err != nil {
			return n, err
		}
		if exists {
			continue
		}
		id, err := e.InsertPermission(ctx, name)
		if err != nil {
			return n, err
		}
		if id != -1 {
			n++
		}
	}
	return n, nil
}

func (set *SeedSet) reconcileRolePermissions(ctx context.Context, e *Engine) (int, error) {
	n := 0
	for _, roleName := range sortedKeys(set.RolePermissions) {
		current, err := e.GetPermissionsOfRole(ctx, roleName)
		if err != nil {
			return n, err
		}
		if current == nil {
			return n, fmt.Errorf("%w: %s", ErrRoleNotFound, roleName)
		}
		c, err := reconcileNames(permission.Names(current), set.RolePermissions[roleName], ErrPermissionNotFound,
			func(p string) (bool, error) { return e.AssignPermissionToRole(ctx, p, roleName) },
			func(p string) (bool, error) { return e.RemovePermissionFromRole(ctx, p, roleName) },
		)
		n += c
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

func (set *SeedSet) reconcileActionRoles(ctx context.Context, e *Engine) (int, error) {
	n := 0
	for _, actionName := range sortedKeys(set.ActionRoles) {
		current, err := e.GetRolesOfAction(ctx, actionName)
		if err != nil {
			return n, err
		}
		c, err := reconcileNames(current, set.ActionRoles[actionName], ErrRoleNotFound,
			func(r string) (bool, error) { return e.RegisterRoleToAction(ctx, actionName, r) },
			func(r string) (bool, error) { return e.RemoveRoleFromAction(ctx, actionName, r) },
		)
		n += c
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

func (set *SeedSet) reconcileActionPermissions(ctx context.Context, e *Engine) (int, error) {
	n := 0
	for _, actionName := range sortedKeys(set.ActionPermissions) {
		direct, err := e.store.GetPermissionsOfAction(ctx, actionName)
		if err != nil {
			return n, err
		}
		c, err := reconcileNames(permission.Names(direct), set.ActionPermissions[actionName], ErrPermissionNotFound,
			func(p string) (bool, error) { return e.RegisterPermissionToAction(ctx, actionName, p) },
			func(p string) (bool, error) { return e.RemovePermissionFromAction(ctx, actionName, p) },
		)
		n += c
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

func (set *SeedSet) reconcileUsers(ctx context.Context, e *Engine, hash PasswordHasher) (int, error) {
	n := 0
	for _, su := range set.Users {
		exists, err := e.store.UserExists(ctx, su.Username)
		if err != nil {
			return n, err
		}
		if !exists {
			if hash == nil {
				return n, errors.New("no password hasher configured")
			}
			password, generated := su.Password, false
			if password == "" {
				password, generated = uuid.NewString(), true
			}
			h, err := hash(password)
			if err != nil {
				return n, err
			}
			if err := e.store.InsertUser(ctx, &user.User{Username: su.Username, PasswordHash: h}); err != nil {
				return n, err
			}
			n++
			if generated {
				tenant, _ := e.store.Tenant(ctx)
				e.logger.Warn("gatehouse: generated one-time password for seeded user, change it after first login",
					slog.String("username", su.Username),
					slog.Int64("tenant_id", tenant),
					slog.String("password", password),
				)
			}
		}
		u, err := e.store.GetUserByName(ctx, su.Username)
		if err != nil {
			return n, err
		}
		for _, r := range su.Roles {
			has, err := e.store.UserHasRole(ctx, u.ID, r)
			if err != nil {
				return n, err
			}
			if has {
				continue
			}
			ok, err := e.AssignRoleToUser(ctx, r, u.ID)
			if err != nil {
				return n, err
			}
			if !ok {
				return n, fmt.Errorf("%w: %s", ErrRoleNotFound, r)
			}
			n++
		}
	}
	return n, nil
}

// reconcileNames adds the declared names missing from current and removes
// the current names no longer declared, counting successful changes. A
// declared name that cannot be added does not exist and fails with missing.
func reconcileNames(current, declared []string, missing error, add, remove func(string) (bool, error)) (int, error) {
	n := 0
	for _, name := range declared {
		if slices.Contains(current, name) {
			continue
		}
		ok, err := add(name)
		if err != nil {
			return n, err
		}
		if !ok {
			return n, fmt.Errorf("%w: %s", missing, name)
		}
		n++
	}
	for _, name := range current {
		if slices.Contains(declared, name) {
			continue
		}
		ok, err := remove(name)
		if err != nil {
			return n, err
		}
		if ok {
			n++
		}
	}
	return n, nil
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
