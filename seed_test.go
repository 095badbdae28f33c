package gatehouse

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"testing"
)

func plainHash(pw string) (string, error) { return "hashed:" + pw, nil }

func TestSeedEndToEnd(t *testing.T) {
	ctx := WithTenant(context.Background(), 1)
	eng, s := newTestEngine(t)

	cfg := DefaultConfig()
	cfg.BootstrapAdmin = BootstrapAdmin{Username: "root", Password: "secret"}
	if err := DefaultSeed(cfg, plainHash).Run(ctx, eng); err != nil {
		t.Fatal(err)
	}

	perms, err := eng.GetPermissionsOfRole(ctx, RoleAdmin)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Contains(permissionNames(perms), PermManageRoles) {
		t.Fatalf("Admin permissions = %v", permissionNames(perms))
	}
	roles, err := eng.GetRolesOfAction(ctx, "DeleteUser")
	if err != nil {
		t.Fatal(err)
	}
	if len(roles) != 1 || roles[0] != RoleAdmin {
		t.Fatalf("DeleteUser roles = %v", roles)
	}

	admin, err := s.GetUserByName(ctx, "root")
	if err != nil {
		t.Fatal(err)
	}
	if admin.PasswordHash != "hashed:secret" {
		t.Fatalf("password hash = %q", admin.PasswordHash)
	}

	// A principal issued from the admin's current grants passes.
	adminRoles, err := eng.GetRolesOfUser(ctx, admin.ID)
	if err != nil {
		t.Fatal(err)
	}
	adminPerms, err := eng.GetPermissionsOfUser(ctx, admin.ID)
	if err != nil {
		t.Fatal(err)
	}
	p := &Principal{UserID: admin.ID, TenantID: 1, Roles: adminRoles, Permissions: adminPerms}
	d, err := eng.Authorize(ctx, p, "DeleteUser")
	if err != nil {
		t.Fatal(err)
	}
	if !d.Allowed {
		t.Fatalf("admin rejected: %+v", d)
	}

	// A principal holding no roles is told which role it lacks.
	d, err = eng.Authorize(ctx, &Principal{UserID: 99, TenantID: 1}, "DeleteUser")
	if err != nil {
		t.Fatal(err)
	}
	if d.Allowed {
		t.Fatal("principal without roles passed")
	}
	if len(d.MissingRoles) != 1 || d.MissingRoles[0] != RoleAdmin {
		t.Fatalf("missing roles = %v", d.MissingRoles)
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	ctx := WithTenant(context.Background(), 1)
	eng, _ := newTestEngine(t)
	set := DefaultSeedSet(DefaultConfig())

	n, err := eng.Reconcile(ctx, set, plainHash)
	if err != nil {
		t.Fatal(err)
	}
	if n == 0 {
		t.Fatal("first run made no changes")
	}

	n, err = eng.Reconcile(ctx, set, plainHash)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("second run made %d changes, want 0", n)
	}

	roles, err := eng.ListRoles(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(roles) != 3 {
		t.Fatalf("expected 3 roles, got %d", len(roles))
	}
}

func TestSeedReconcilesDrift(t *testing.T) {
	ctx := WithTenant(context.Background(), 1)
	eng, _ := newTestEngine(t)
	set := &SeedSet{
		Roles:           []string{"Admin"},
		Permissions:     []string{"A", "B"},
		RolePermissions: map[string][]string{"Admin": {"A"}},
		ActionRoles:     map[string][]string{"Purge": {"Admin"}},
	}
	if _, err := eng.Reconcile(ctx, set, nil); err != nil {
		t.Fatal(err)
	}

	// Drift: an undeclared grant appears.
	isTrue(t)(eng.AssignPermissionToRole(ctx, "B", "Admin"))
	// A newly declared permission is introduced.
	set.Permissions = append(set.Permissions, "C")
	set.RolePermissions["Admin"] = []string{"A", "C"}

	n, err := eng.Reconcile(ctx, set, nil)
	if err != nil {
		t.Fatal(err)
	}
	// Insert C, attach C, detach B.
	if n != 3 {
		t.Fatalf("changes = %d, want 3", n)
	}
	perms, err := eng.GetPermissionsOfRole(ctx, "Admin")
	if err != nil {
		t.Fatal(err)
	}
	got := permissionNames(perms)
	slices.Sort(got)
	if !slices.Equal(got, []string{"A", "C"}) {
		t.Fatalf("Admin permissions = %v", got)
	}
}

func TestSeedUserNeedsHasher(t *testing.T) {
	ctx := WithTenant(context.Background(), 1)
	eng, _ := newTestEngine(t)
	set := &SeedSet{Users: []SeedUser{{Username: "root", Password: "x"}}}
	if _, err := eng.Reconcile(ctx, set, nil); err == nil {
		t.Fatal("expected error without a password hasher")
	}
}

func TestSeedUnknownRoleFails(t *testing.T) {
	ctx := WithTenant(context.Background(), 1)
	eng, _ := newTestEngine(t)
	set := &SeedSet{RolePermissions: map[string][]string{"Ghost": {"A"}}}
	_, err := eng.Reconcile(ctx, set, nil)
	if !errors.Is(err, ErrRoleNotFound) {
		t.Fatalf("expected ErrRoleNotFound, got %v", err)
	}
}

func TestSeedRejectsUndeclaredGrantTargets(t *testing.T) {
	cases := []struct {
		name string
		set  *SeedSet
		want error
	}{
		{"blank role", &SeedSet{Roles: []string{" "}}, ErrInvalidName},
		{"blank permission", &SeedSet{Permissions: []string{""}}, ErrInvalidName},
		{"role permission", &SeedSet{
			Roles:           []string{"Admin"},
			RolePermissions: map[string][]string{"Admin": {"Ghost"}},
		}, ErrPermissionNotFound},
		{"action role", &SeedSet{ActionRoles: map[string][]string{"Purge": {"Ghost"}}}, ErrRoleNotFound},
		{"action permission", &SeedSet{ActionPermissions: map[string][]string{"Purge": {"Ghost"}}}, ErrPermissionNotFound},
		{"user role", &SeedSet{Users: []SeedUser{{Username: "root", Password: "x", Roles: []string{"Ghost"}}}}, ErrRoleNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := WithTenant(context.Background(), 1)
			eng, _ := newTestEngine(t)
			_, err := eng.Reconcile(ctx, tc.set, plainHash)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestSeederOrderAndRunAll(t *testing.T) {
	eng, _ := newTestEngine(t)
	var order []string
	s := NewSeeder().
		Add("first", func(context.Context, *Engine) error { order = append(order, "first"); return nil }).
		Add("second", func(context.Context, *Engine) error { order = append(order, "second"); return nil })
	if err := s.Run(context.Background(), eng); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(order, []string{"first", "second"}) || !slices.Equal(s.Names(), order) {
		t.Fatalf("order = %v", order)
	}

	if err := DefaultSeed(DefaultConfig(), plainHash).RunAll(context.Background(), eng, 1, 2, 3); err != nil {
		t.Fatal(err)
	}
	for _, tenant := range []int64{1, 2, 3} {
		roles, err := eng.ListRoles(WithTenant(context.Background(), tenant))
		if err != nil {
			t.Fatal(err)
		}
		if len(roles) != 3 {
			t.Fatalf("tenant %d has %d roles", tenant, len(roles))
		}
	}

	failing := NewSeeder().Add("boom", func(context.Context, *Engine) error { return errors.New("boom") })
	if err := failing.Run(context.Background(), eng); err == nil {
		t.Fatal("expected step failure")
	}
}

func TestDefaultSeedCreatesBootstrapAdminWithoutPassword(t *testing.T) {
	ctx := WithTenant(context.Background(), 1)
	var logs bytes.Buffer
	eng, _ := newTestEngine(t, WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))

	cfg := DefaultConfig()
	if cfg.BootstrapAdmin.Password != "" {
		t.Fatal("default config should carry no bootstrap password")
	}
	seed := DefaultSeed(cfg, plainHash)
	if err := seed.Run(ctx, eng); err != nil {
		t.Fatal(err)
	}

	users, err := eng.ListUsers(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 1 || users[0].Username != "admin" {
		t.Fatalf("users = %v", users)
	}
	ok, err := eng.UserHasRole(ctx, users[0].ID, RoleAdmin)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("bootstrap admin does not hold Admin")
	}

	password := strings.TrimPrefix(users[0].PasswordHash, "hashed:")
	if password == "" || password == users[0].PasswordHash {
		t.Fatalf("password hash = %q", users[0].PasswordHash)
	}
	if strings.Count(logs.String(), password) != 1 {
		t.Fatalf("generated password not logged once:\n%s", logs.String())
	}

	// The account exists now; a second run neither replaces nor re-logs it.
	if err := seed.Run(ctx, eng); err != nil {
		t.Fatal(err)
	}
	users, err = eng.ListUsers(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 1 || users[0].PasswordHash != "hashed:"+password {
		t.Fatalf("users after second run = %v", users)
	}
	if strings.Count(logs.String(), password) != 1 {
		t.Fatal("generated password logged again")
	}
}
