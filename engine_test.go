package gatehouse

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/xraph/gatehouse/datastore"
	"github.com/xraph/gatehouse/permission"
	"github.com/xraph/gatehouse/store/memory"
	"github.com/xraph/gatehouse/user"
)

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *datastore.Store) {
	t.Helper()
	s := datastore.New(memory.New())
	eng, err := NewEngine(append([]Option{WithStore(s)}, opts...)...)
	if err != nil {
		t.Fatal(err)
	}
	return eng, s
}

func newUser(t *testing.T, ctx context.Context, s *datastore.Store, name string) *user.User {
	t.Helper()
	u := &user.User{Username: name, LoggedIn: true}
	if err := s.InsertUser(ctx, u); err != nil {
		t.Fatal(err)
	}
	return u
}

func mustInsertRole(t *testing.T, ctx context.Context, eng *Engine, name string) int64 {
	t.Helper()
	id, err := eng.InsertRole(ctx, name)
	if err != nil {
		t.Fatal(err)
	}
	if id == -1 {
		t.Fatalf("insert role %q rejected", name)
	}
	return id
}

func mustInsertPermission(t *testing.T, ctx context.Context, eng *Engine, name string) int64 {
	t.Helper()
	id, err := eng.InsertPermission(ctx, name)
	if err != nil {
		t.Fatal(err)
	}
	if id == -1 {
		t.Fatalf("insert permission %q rejected", name)
	}
	return id
}

// isTrue returns a checker for (bool, error) results that must be (true, nil).
// Use as isTrue(t)(eng.Op(...)).
func isTrue(t *testing.T) func(bool, error) {
	return func(ok bool, err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			t.Fatal("expected true")
		}
	}
}

// isFalse returns a checker for (bool, error) results that must be (false, nil).
func isFalse(t *testing.T) func(bool, error) {
	return func(ok bool, err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
		if ok {
			t.Fatal("expected false")
		}
	}
}

func TestNewEngine_RequiresStore(t *testing.T) {
	_, err := NewEngine()
	if err == nil {
		t.Fatal("expected error when store is nil")
	}
}

func TestNewEngine_ValidatorFromConfig(t *testing.T) {
	eng, _ := newTestEngine(t)
	if _, ok := eng.Validator().(*ClaimsValidator); !ok {
		t.Fatalf("default validator = %T, want *ClaimsValidator", eng.Validator())
	}

	f := false
	cfg := DefaultConfig()
	cfg.ValidateFromClaims = &f
	eng, _ = newTestEngine(t, WithConfig(cfg))
	if _, ok := eng.Validator().(*StoreValidator); !ok {
		t.Fatalf("validator = %T, want *StoreValidator", eng.Validator())
	}
}

func TestInsertRoleUniqueness(t *testing.T) {
	ctx := WithTenant(context.Background(), 1)
	eng, _ := newTestEngine(t)

	first := mustInsertRole(t, ctx, eng, "Admin")
	if first <= 0 {
		t.Fatalf("expected positive id, got %d", first)
	}

	for _, name := range []string{"Admin", "", "   ", "\t"} {
		id, err := eng.InsertRole(ctx, name)
		if err != nil {
			t.Fatal(err)
		}
		if id != -1 {
			t.Fatalf("InsertRole(%q) = %d, want -1", name, id)
		}
	}

	// Names are case-sensitive.
	mustInsertRole(t, ctx, eng, "admin")
}

func TestInsertPermissionUniqueness(t *testing.T) {
	ctx := WithTenant(context.Background(), 1)
	eng, _ := newTestEngine(t)

	mustInsertPermission(t, ctx, eng, "ManageRoles")
	id, err := eng.InsertPermission(ctx, "ManageRoles")
	if err != nil {
		t.Fatal(err)
	}
	if id != -1 {
		t.Fatalf("duplicate permission got id %d", id)
	}
	if id, _ := eng.InsertPermission(ctx, " "); id != -1 {
		t.Fatal("blank permission accepted")
	}
}

func TestDeleteRoleAndPermission(t *testing.T) {
	ctx := WithTenant(context.Background(), 1)
	eng, _ := newTestEngine(t)

	roleID := mustInsertRole(t, ctx, eng, "Temp")
	isTrue(t)(eng.DeleteRole(ctx, roleID))
	isFalse(t)(eng.DeleteRole(ctx, roleID))
	isFalse(t)(eng.DeleteRole(ctx, 424242))

	// The name is free again once the role is gone.
	mustInsertRole(t, ctx, eng, "Temp")

	permID := mustInsertPermission(t, ctx, eng, "Read *")
	isTrue(t)(eng.DeletePermission(ctx, permID))
	isFalse(t)(eng.DeletePermission(ctx, permID))
}

func TestAssignRoleToUserIdempotence(t *testing.T) {
	ctx := WithTenant(context.Background(), 1)
	eng, s := newTestEngine(t)

	u := newUser(t, ctx, s, "alice")
	mustInsertRole(t, ctx, eng, "Admin")

	isTrue(t)(eng.AssignRoleToUser(ctx, "Admin", u.ID))
	isFalse(t)(eng.AssignRoleToUser(ctx, "Admin", u.ID))

	roles, err := eng.GetRolesOfUser(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(roles) != 1 || roles[0] != "Admin" {
		t.Fatalf("roles = %v, want [Admin]", roles)
	}

	// Missing role or user.
	isFalse(t)(eng.AssignRoleToUser(ctx, "Nope", u.ID))
	isFalse(t)(eng.AssignRoleToUser(ctx, "Admin", 999))
}

func TestRoleAssignmentSymmetry(t *testing.T) {
	ctx := WithTenant(context.Background(), 1)
	eng, s := newTestEngine(t)

	u := newUser(t, ctx, s, "alice")
	mustInsertRole(t, ctx, eng, "Editor")

	isTrue(t)(eng.AssignRoleToUser(ctx, "Editor", u.ID))
	isTrue(t)(eng.RemoveRoleFromUser(ctx, "Editor", u.ID))
	isFalse(t)(eng.UserHasRole(ctx, u.ID, "Editor"))

	// Removing a role never held changes nothing.
	mustInsertRole(t, ctx, eng, "Viewer")
	isFalse(t)(eng.RemoveRoleFromUser(ctx, "Viewer", u.ID))
	roles, err := eng.GetRolesOfUser(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(roles) != 0 {
		t.Fatalf("expected no roles, got %v", roles)
	}

	// The role can be granted again after removal.
	isTrue(t)(eng.AssignRoleToUser(ctx, "Editor", u.ID))
}

func TestPermissionRoleGrants(t *testing.T) {
	ctx := WithTenant(context.Background(), 1)
	eng, s := newTestEngine(t)

	u := newUser(t, ctx, s, "alice")
	mustInsertRole(t, ctx, eng, "Admin")
	mustInsertPermission(t, ctx, eng, "ManageRoles")

	isFalse(t)(eng.AssignPermissionToRole(ctx, "Missing", "Admin"))
	isFalse(t)(eng.AssignPermissionToRole(ctx, "ManageRoles", "Missing"))
	isTrue(t)(eng.AssignPermissionToRole(ctx, "ManageRoles", "Admin"))
	isFalse(t)(eng.AssignPermissionToRole(ctx, "ManageRoles", "Admin"))

	isTrue(t)(eng.AssignRoleToUser(ctx, "Admin", u.ID))
	isTrue(t)(eng.UserHasPermission(ctx, u.ID, "ManageRoles"))

	isTrue(t)(eng.RemovePermissionFromRole(ctx, "ManageRoles", "Admin"))
	isFalse(t)(eng.RemovePermissionFromRole(ctx, "ManageRoles", "Admin"))
	isFalse(t)(eng.UserHasPermission(ctx, u.ID, "ManageRoles"))
}

func TestGetPermissionsOfRole_NilVersusEmpty(t *testing.T) {
	ctx := WithTenant(context.Background(), 1)
	eng, _ := newTestEngine(t)

	perms, err := eng.GetPermissionsOfRole(ctx, "Ghost")
	if err != nil {
		t.Fatal(err)
	}
	if perms != nil {
		t.Fatalf("expected nil for unknown role, got %v", perms)
	}

	mustInsertRole(t, ctx, eng, "Empty")
	perms, err = eng.GetPermissionsOfRole(ctx, "Empty")
	if err != nil {
		t.Fatal(err)
	}
	if perms == nil || len(perms) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", perms)
	}
}

func TestRegisterRoleToAction(t *testing.T) {
	ctx := WithTenant(context.Background(), 1)
	eng, _ := newTestEngine(t)

	isFalse(t)(eng.RegisterRoleToAction(ctx, "DeleteUser", "Admin"))

	mustInsertRole(t, ctx, eng, "Admin")
	isTrue(t)(eng.RegisterRoleToAction(ctx, "DeleteUser", "Admin"))

	ok, err := eng.RegisterRoleToAction(ctx, "DeleteUser", "Admin")
	if ok {
		t.Fatal("duplicate grant reported success")
	}
	if !errors.Is(err, ErrAlreadyAssigned) {
		t.Fatalf("expected ErrAlreadyAssigned, got %v", err)
	}

	roles, err := eng.GetRolesOfAction(ctx, "DeleteUser")
	if err != nil {
		t.Fatal(err)
	}
	if len(roles) != 1 || roles[0] != "Admin" {
		t.Fatalf("roles of action = %v", roles)
	}

	mustInsertRole(t, ctx, eng, "User")
	isFalse(t)(eng.RemoveRoleFromAction(ctx, "DeleteUser", "User"))
	isTrue(t)(eng.RemoveRoleFromAction(ctx, "DeleteUser", "Admin"))
	isFalse(t)(eng.RemoveRoleFromAction(ctx, "DeleteUser", "Admin"))
}

func TestRegisterPermissionToAction(t *testing.T) {
	ctx := WithTenant(context.Background(), 1)
	eng, _ := newTestEngine(t)

	isFalse(t)(eng.RegisterPermissionToAction(ctx, "Export", "GenerateReports"))
	mustInsertPermission(t, ctx, eng, "GenerateReports")
	isTrue(t)(eng.RegisterPermissionToAction(ctx, "Export", "GenerateReports"))

	_, err := eng.RegisterPermissionToAction(ctx, "Export", "GenerateReports")
	if !errors.Is(err, ErrAlreadyAssigned) {
		t.Fatalf("expected ErrAlreadyAssigned, got %v", err)
	}

	actions, err := eng.ListActions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(actions) != 1 || actions[0] != "Export" {
		t.Fatalf("actions = %v", actions)
	}

	isTrue(t)(eng.RemovePermissionFromAction(ctx, "Export", "GenerateReports"))
	isFalse(t)(eng.RemovePermissionFromAction(ctx, "Export", "GenerateReports"))
}

func TestDerivedPermissionUnion(t *testing.T) {
	ctx := WithTenant(context.Background(), 1)
	eng, _ := newTestEngine(t)

	mustInsertPermission(t, ctx, eng, "P1")
	mustInsertPermission(t, ctx, eng, "P2")
	mustInsertRole(t, ctx, eng, "Role1")
	isTrue(t)(eng.AssignPermissionToRole(ctx, "P2", "Role1"))
	isTrue(t)(eng.AssignPermissionToRole(ctx, "P1", "Role1"))

	isTrue(t)(eng.RegisterPermissionToAction(ctx, "A", "P1"))
	isTrue(t)(eng.RegisterRoleToAction(ctx, "A", "Role1"))

	perms, err := eng.GetPermissionsOfAction(ctx, "A")
	if err != nil {
		t.Fatal(err)
	}
	counts := map[string]int{}
	for _, p := range perms {
		counts[p]++
	}
	if len(perms) != 2 || counts["P1"] != 1 || counts["P2"] != 1 {
		t.Fatalf("permissions of action = %v, want P1 and P2 once each", perms)
	}
}

func TestTenantIsolation(t *testing.T) {
	eng, _ := newTestEngine(t)
	t1 := WithTenant(context.Background(), 1)
	t2 := WithTenant(context.Background(), 2)

	mustInsertRole(t, t1, eng, "Admin")
	// Same name in another tenant is independent.
	mustInsertRole(t, t2, eng, "Admin")
	mustInsertRole(t, t2, eng, "Auditor")

	r1, err := eng.ListRoles(t1)
	if err != nil {
		t.Fatal(err)
	}
	r2, err := eng.ListRoles(t2)
	if err != nil {
		t.Fatal(err)
	}
	if len(r1) != 1 || len(r2) != 2 {
		t.Fatalf("tenant 1 has %d roles, tenant 2 has %d", len(r1), len(r2))
	}
	for _, r := range r1 {
		if r.TenantID != 1 {
			t.Fatalf("tenant 1 sees role of tenant %d", r.TenantID)
		}
	}
}

func TestDefaultTenantFallback(t *testing.T) {
	eng, _ := newTestEngine(t)
	mustInsertRole(t, context.Background(), eng, "Admin")

	roles, err := eng.ListRoles(WithTenant(context.Background(), 1))
	if err != nil {
		t.Fatal(err)
	}
	if len(roles) != 1 {
		t.Fatalf("expected role in default tenant 1, got %d", len(roles))
	}

	cfg := DefaultConfig()
	cfg.DefaultTenantID = 0
	strict, _ := newTestEngine(t, WithConfig(cfg))
	if _, err := strict.InsertRole(context.Background(), "Admin"); !errors.Is(err, ErrNoTenant) {
		t.Fatalf("expected ErrNoTenant, got %v", err)
	}
}

func TestConcurrentAssignIsExactlyOnce(t *testing.T) {
	ctx := WithTenant(context.Background(), 1)
	eng, s := newTestEngine(t)

	u := newUser(t, ctx, s, "alice")
	mustInsertRole(t, ctx, eng, "Admin")

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := eng.AssignRoleToUser(ctx, "Admin", u.ID)
			if err != nil {
				t.Error(err)
				return
			}
			if ok {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("%d concurrent assigns succeeded, want 1", wins)
	}
	roles, err := eng.GetRolesOfUser(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(roles) != 1 {
		t.Fatalf("roles = %v", roles)
	}
}

// fakeCache records calls so invalidation can be observed.
type fakeCache struct {
	mu          sync.Mutex
	entries     map[string]*Requirements
	invalidated int
}

func (c *fakeCache) key(tenant int64, action string) string {
	return strconv.FormatInt(tenant, 10) + "|" + action
}

func (c *fakeCache) Get(_ context.Context, tenant int64, action string) (*Requirements, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.entries[c.key(tenant, action)]
	return r, ok
}

func (c *fakeCache) Set(_ context.Context, tenant int64, action string, r *Requirements) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = map[string]*Requirements{}
	}
	c.entries[c.key(tenant, action)] = r
}

func (c *fakeCache) InvalidateTenant(_ context.Context, _ int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = nil
	c.invalidated++
}

func TestRequirementsCacheInvalidation(t *testing.T) {
	ctx := WithTenant(context.Background(), 1)
	c := &fakeCache{}
	eng, _ := newTestEngine(t, WithCache(c))

	mustInsertRole(t, ctx, eng, "Admin")
	mustInsertPermission(t, ctx, eng, "ManageRoles")
	isTrue(t)(eng.RegisterRoleToAction(ctx, "DeleteUser", "Admin"))

	req, err := eng.Requirements(ctx, "DeleteUser")
	if err != nil {
		t.Fatal(err)
	}
	if len(req.Roles) != 1 || len(req.Permissions) != 0 {
		t.Fatalf("requirements = %+v", req)
	}
	if _, ok := c.Get(ctx, 1, "DeleteUser"); !ok {
		t.Fatal("requirements were not cached")
	}

	// A derived permission changes the requirements and must evict.
	isTrue(t)(eng.AssignPermissionToRole(ctx, "ManageRoles", "Admin"))
	req, err = eng.Requirements(ctx, "DeleteUser")
	if err != nil {
		t.Fatal(err)
	}
	if len(req.Permissions) != 1 || req.Permissions[0] != "ManageRoles" {
		t.Fatalf("stale requirements: %+v", req)
	}
}

// racingCache runs beforeSet once, ahead of the first Set, to land a grant
// change between the read of the requirements and their caching.
type racingCache struct {
	fakeCache
	beforeSet func()
}

func (c *racingCache) Set(ctx context.Context, tenant int64, action string, r *Requirements) {
	if fn := c.beforeSet; fn != nil {
		c.beforeSet = nil
		fn()
	}
	c.fakeCache.Set(ctx, tenant, action, r)
}

func TestRequirementsCacheDropsEntryStaleBeforeSet(t *testing.T) {
	ctx := WithTenant(context.Background(), 1)
	c := &racingCache{}
	eng, _ := newTestEngine(t, WithCache(c))

	mustInsertRole(t, ctx, eng, "Admin")
	c.beforeSet = func() {
		isTrue(t)(eng.RegisterRoleToAction(ctx, "DeleteUser", "Admin"))
	}

	caller := &Principal{UserID: 7}
	d, err := eng.Authorize(ctx, caller, "DeleteUser")
	if err != nil {
		t.Fatal(err)
	}
	if !d.Allowed {
		t.Fatal("first call read the action before it was protected")
	}
	if _, ok := c.Get(ctx, 1, "DeleteUser"); ok {
		t.Fatal("requirements read before the grant change stayed cached")
	}

	d, err = eng.Authorize(ctx, caller, "DeleteUser")
	if err != nil {
		t.Fatal(err)
	}
	if d.Allowed {
		t.Fatal("caller without Admin passed after the role was registered")
	}
	if len(d.MissingRoles) != 1 || d.MissingRoles[0] != "Admin" {
		t.Fatalf("missing roles = %v", d.MissingRoles)
	}
}

func permissionNames(perms []*permission.Permission) []string {
	return permission.Names(perms)
}
