package gatehouse

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/gatehouse/checklog"
)

func TestAuthorizeUnprotectedAction(t *testing.T) {
	ctx := WithTenant(context.Background(), 1)
	eng, _ := newTestEngine(t)

	d, err := eng.Authorize(ctx, nil, "Ping")
	if err != nil {
		t.Fatal(err)
	}
	if !d.Allowed {
		t.Fatal("anonymous caller should pass an action without requirements")
	}
}

func TestAuthorizeRejectsAnonymous(t *testing.T) {
	ctx := WithTenant(context.Background(), 1)
	eng, _ := newTestEngine(t)

	mustInsertRole(t, ctx, eng, "Admin")
	isTrue(t)(eng.RegisterRoleToAction(ctx, "DeleteUser", "Admin"))

	d, err := eng.Authorize(ctx, &Principal{}, "DeleteUser")
	if err != nil {
		t.Fatal(err)
	}
	if d.Allowed {
		t.Fatal("anonymous caller passed a protected action")
	}
	if len(d.MissingRoles) != 1 || d.MissingRoles[0] != "Admin" {
		t.Fatalf("missing roles = %v", d.MissingRoles)
	}
	if d.Require != RequireAll {
		t.Fatalf("require = %q", d.Require)
	}

	err = eng.Enforce(ctx, nil, "DeleteUser")
	if !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}
}

func TestAuthorizeDistinguishesRolesAndPermissions(t *testing.T) {
	ctx := WithTenant(context.Background(), 1)
	eng, _ := newTestEngine(t)

	mustInsertRole(t, ctx, eng, "Admin")
	mustInsertPermission(t, ctx, eng, "Create *")
	isTrue(t)(eng.RegisterRoleToAction(ctx, "Import", "Admin"))
	isTrue(t)(eng.RegisterPermissionToAction(ctx, "Import", "Create *"))

	d, err := eng.Authorize(ctx, &Principal{UserID: 1, Roles: []string{"Admin"}}, "Import")
	if err != nil {
		t.Fatal(err)
	}
	if d.Allowed || len(d.MissingRoles) != 0 || len(d.MissingPermissions) != 1 {
		t.Fatalf("decision = %+v", d)
	}

	d, err = eng.Authorize(ctx, &Principal{UserID: 1, Permissions: []string{"Create *"}}, "Import")
	if err != nil {
		t.Fatal(err)
	}
	if d.Allowed || len(d.MissingRoles) != 1 || len(d.MissingPermissions) != 0 {
		t.Fatalf("decision = %+v", d)
	}

	d, err = eng.Authorize(ctx, &Principal{UserID: 1, Roles: []string{"Admin"}, Permissions: []string{"Create *"}}, "Import")
	if err != nil {
		t.Fatal(err)
	}
	if !d.Allowed {
		t.Fatalf("decision = %+v", d)
	}
}

func TestStaticGates(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)
	p := &Principal{UserID: 3, Roles: []string{"User"}, Permissions: []string{"Read *"}}

	d, err := eng.CheckRoles(ctx, p, "User")
	if err != nil || !d.Allowed {
		t.Fatalf("CheckRoles: %+v, %v", d, err)
	}
	d, err = eng.CheckPermissions(ctx, p, "Read Widget", "Update Widget")
	if err != nil {
		t.Fatal(err)
	}
	if d.Allowed || len(d.MissingPermissions) != 1 || d.MissingPermissions[0] != "Update Widget" {
		t.Fatalf("CheckPermissions: %+v", d)
	}
	d, err = eng.CheckAnyPermission(ctx, p, "Update Widget", "Read Widget")
	if err != nil || !d.Allowed {
		t.Fatalf("CheckAnyPermission: %+v, %v", d, err)
	}
	d, err = eng.CheckAnyPermission(ctx, p, "Update Widget", "Delete Widget")
	if err != nil {
		t.Fatal(err)
	}
	if d.Allowed || d.Require != RequireAny || len(d.MissingPermissions) != 2 {
		t.Fatalf("CheckAnyPermission: %+v", d)
	}
}

func TestAuditDecisions(t *testing.T) {
	ctx := WithRequestIP(WithTenant(context.Background(), 1), "10.0.0.1")
	cfg := DefaultConfig()
	on := true
	cfg.AuditDecisions = &on
	eng, s := newTestEngine(t, WithConfig(cfg))

	mustInsertRole(t, ctx, eng, "Admin")
	isTrue(t)(eng.RegisterRoleToAction(ctx, "DeleteUser", "Admin"))

	if _, err := eng.Authorize(ctx, &Principal{UserID: 5, TenantID: 1, Username: "bob"}, "DeleteUser"); err != nil {
		t.Fatal(err)
	}

	denied := false
	logs, err := s.ListCheckLogs(ctx, &checklog.QueryFilter{Allowed: &denied})
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected 1 check log, got %d", len(logs))
	}
	e := logs[0]
	if e.UserID != 5 || e.Username != "bob" || e.Action != "DeleteUser" || e.RequestIP != "10.0.0.1" {
		t.Fatalf("entry = %+v", e)
	}
	if len(e.MissingRoles) != 1 || e.MissingRoles[0] != "Admin" {
		t.Fatalf("missing roles = %v", e.MissingRoles)
	}

	all, total, err := eng.ListCheckLogs(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || len(all) != 1 {
		t.Fatalf("engine listing: total=%d len=%d", total, len(all))
	}

	purged, err := eng.PurgeCheckLogs(context.Background(), time.Now().Add(time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if purged != 1 {
		t.Fatalf("purged %d entries, want 1", purged)
	}
}

func TestSessionInvalidation(t *testing.T) {
	ctx := WithTenant(context.Background(), 1)
	eng, s := newTestEngine(t)
	u := newUser(t, ctx, s, "alice")

	t1 := time.Now().Add(-time.Hour).Truncate(time.Second)
	p := &Principal{UserID: u.ID, TenantID: 1, IssuedAt: t1}
	isTrue(t)(eng.ValidateSession(ctx, p))

	// Logout at T2 > T1.
	t2 := t1.Add(10 * time.Minute)
	u.LoggedIn = false
	u.LastLogOut = &t2
	if err := s.UpdateUser(ctx, u); err != nil {
		t.Fatal(err)
	}
	isFalse(t)(eng.ValidateSession(ctx, p))

	// Log back in; the old token stays invalid, a new one at T3 > T2 passes.
	u.LoggedIn = true
	if err := s.UpdateUser(ctx, u); err != nil {
		t.Fatal(err)
	}
	isFalse(t)(eng.ValidateSession(ctx, p))
	t3 := t2.Add(time.Minute)
	isTrue(t)(eng.ValidateSession(ctx, &Principal{UserID: u.ID, TenantID: 1, IssuedAt: t3}))

	// Same second as the logout is not after it.
	isFalse(t)(eng.ValidateSession(ctx, &Principal{UserID: u.ID, TenantID: 1, IssuedAt: t2.Add(500 * time.Millisecond)}))
}

func TestSessionAnonymousAndUnknown(t *testing.T) {
	ctx := WithTenant(context.Background(), 1)
	eng, _ := newTestEngine(t)

	isTrue(t)(eng.ValidateSession(ctx, nil))
	isTrue(t)(eng.ValidateSession(ctx, &Principal{}))
	isFalse(t)(eng.ValidateSession(ctx, &Principal{UserID: 12345, IssuedAt: time.Now()}))
}
