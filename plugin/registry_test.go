package plugin

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/xraph/gatehouse/permission"
	"github.com/xraph/gatehouse/role"
)

// testPlugin implements Plugin + RoleCreated + PermissionAttached + ActionGrantChanged.
type testPlugin struct {
	roleCreated int
	attached    int
	changes     []*GrantChange
}

func (t *testPlugin) Name() string { return "test-plugin" }

func (t *testPlugin) OnRoleCreated(_ context.Context, _ *role.Role) error {
	t.roleCreated++
	return nil
}

func (t *testPlugin) OnPermissionAttached(_ context.Context, _ *role.Role, _ *permission.Permission) error {
	t.attached++
	return nil
}

func (t *testPlugin) OnActionGrantChanged(_ context.Context, c *GrantChange) error {
	t.changes = append(t.changes, c)
	return nil
}

// minimalPlugin only implements Plugin (no hooks).
type minimalPlugin struct{}

func (m *minimalPlugin) Name() string { return "minimal" }

// failingPlugin returns an error from its hook.
type failingPlugin struct{ called bool }

func (f *failingPlugin) Name() string { return "failing" }

func (f *failingPlugin) OnRoleCreated(_ context.Context, _ *role.Role) error {
	f.called = true
	return errors.New("boom")
}

func TestRegistryDispatch(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(slog.Default())

	tp := &testPlugin{}
	reg.Register(tp)
	reg.Register(&minimalPlugin{})

	if len(reg.Plugins()) != 2 {
		t.Fatalf("expected 2 plugins, got %d", len(reg.Plugins()))
	}

	reg.EmitRoleCreated(ctx, &role.Role{Name: "Admin"})
	if tp.roleCreated != 1 {
		t.Fatalf("OnRoleCreated called %d times, want 1", tp.roleCreated)
	}

	reg.EmitPermissionAttached(ctx, &role.Role{Name: "Admin"}, &permission.Permission{Name: "ManageRoles"})
	if tp.attached != 1 {
		t.Fatal("OnPermissionAttached was not called")
	}

	reg.EmitActionGrantChanged(ctx, &GrantChange{Action: "DeleteUser", Kind: GrantRole, Target: "Admin", Granted: true})
	if len(tp.changes) != 1 || tp.changes[0].Target != "Admin" {
		t.Fatalf("unexpected grant changes: %+v", tp.changes)
	}

	// Hooks with no listeners are no-ops.
	reg.EmitRoleDeleted(ctx, &role.Role{Name: "Admin"})
	reg.EmitDecisionMade(ctx, nil, nil)
	reg.EmitShutdown(ctx)
}

func TestRegistryHookErrorDoesNotStopDispatch(t *testing.T) {
	reg := NewRegistry(nil)
	fp := &failingPlugin{}
	tp := &testPlugin{}
	reg.Register(fp)
	reg.Register(tp)

	reg.EmitRoleCreated(context.Background(), &role.Role{Name: "User"})
	if !fp.called {
		t.Fatal("failing hook was not called")
	}
	if tp.roleCreated != 1 {
		t.Fatal("later plugin was skipped after a hook error")
	}
}
