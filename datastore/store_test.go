package datastore_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/gatehouse/action"
	"github.com/xraph/gatehouse/datastore"
	"github.com/xraph/gatehouse/permission"
	"github.com/xraph/gatehouse/role"
	"github.com/xraph/gatehouse/store/memory"
	"github.com/xraph/gatehouse/user"
)

func newStore(t *testing.T) *datastore.Store {
	t.Helper()
	return datastore.New(memory.New())
}

func tenantCtx(tenant int64) context.Context {
	return datastore.WithTenant(context.Background(), tenant)
}

func mustUser(t *testing.T, ctx context.Context, s *datastore.Store, name string) *user.User {
	t.Helper()
	u := &user.User{Username: name}
	require.NoError(t, s.InsertUser(ctx, u))
	return u
}

func mustRole(t *testing.T, ctx context.Context, s *datastore.Store, name string) *role.Role {
	t.Helper()
	r := &role.Role{Name: name}
	require.NoError(t, s.InsertRole(ctx, r))
	return r
}

func mustPermission(t *testing.T, ctx context.Context, s *datastore.Store, name string) *permission.Permission {
	t.Helper()
	p := &permission.Permission{Name: name}
	require.NoError(t, s.InsertPermission(ctx, p))
	return p
}

func TestNoTenant(t *testing.T) {
	s := newStore(t)
	_, err := s.ListRoles(context.Background())
	assert.ErrorIs(t, err, datastore.ErrNoTenant)

	withDefault := datastore.New(memory.New(), datastore.WithDefaultTenant(1))
	_, err = withDefault.ListRoles(context.Background())
	assert.NoError(t, err)
}

func TestInsertStampsBase(t *testing.T) {
	s := newStore(t)
	ctx := tenantCtx(7)

	r := mustRole(t, ctx, s, "Admin")
	assert.NotZero(t, r.ID)
	assert.Equal(t, int64(7), r.TenantID)
	assert.False(t, r.CreatedAt.IsZero())
	assert.Nil(t, r.ModifiedAt)
}

func TestGetAbsentAndSoftDeleted(t *testing.T) {
	s := newStore(t)
	ctx := tenantCtx(1)

	got, err := s.GetRoleByID(ctx, 12345)
	require.NoError(t, err)
	assert.Nil(t, got)

	r := mustRole(t, ctx, s, "Temp")
	require.NoError(t, s.SoftDeleteRole(ctx, r))
	assert.True(t, r.IsDeleted)
	assert.NotNil(t, r.DeletedAt)

	got, err = s.GetRoleByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Nil(t, got, "soft-deleted rows are hidden")

	roles, err := s.ListRoles(ctx)
	require.NoError(t, err)
	assert.Empty(t, roles)

	// The row is still stored for audit.
	_, ok, err := s.Driver().Roles().Get(ctx, 1, r.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSingleLookupNotFound(t *testing.T) {
	s := newStore(t)
	ctx := tenantCtx(1)

	_, err := s.GetRole(ctx, "missing")
	assert.ErrorIs(t, err, datastore.ErrNotFound)

	exists, err := s.CheckRoleExists(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUpdateStampsModified(t *testing.T) {
	s := newStore(t)
	ctx := tenantCtx(1)

	u := mustUser(t, ctx, s, "alice")
	u.LoggedIn = true
	require.NoError(t, s.UpdateUser(ctx, u))
	require.NotNil(t, u.ModifiedAt)

	got, err := s.GetUserByName(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, got.LoggedIn)
}

func TestCrossTenantWriteRejected(t *testing.T) {
	s := newStore(t)
	u := mustUser(t, tenantCtx(1), s, "alice")

	err := s.UpdateUser(tenantCtx(2), u)
	assert.ErrorIs(t, err, datastore.ErrCrossTenant)
}

func TestUserRoleGrants(t *testing.T) {
	s := newStore(t)
	ctx := tenantCtx(1)

	u := mustUser(t, ctx, s, "alice")
	mustRole(t, ctx, s, "Admin")

	require.NoError(t, s.AssignRoleToUser(ctx, "Admin", u.ID))
	has, err := s.UserHasRole(ctx, u.ID, "Admin")
	require.NoError(t, err)
	assert.True(t, has)

	users, err := s.ListUsersOfRole(ctx, "Admin")
	require.NoError(t, err)
	assert.Equal(t, []int64{u.ID}, users)

	require.NoError(t, s.RemoveRoleFromUser(ctx, "Admin", u.ID))
	has, err = s.UserHasRole(ctx, u.ID, "Admin")
	require.NoError(t, err)
	assert.False(t, has)

	// Removing again, or removing an unknown role, is a no-op.
	assert.NoError(t, s.RemoveRoleFromUser(ctx, "Admin", u.ID))
	assert.NoError(t, s.RemoveRoleFromUser(ctx, "Nope", u.ID))
}

func TestPermissionsOfUserDeduplicated(t *testing.T) {
	s := newStore(t)
	ctx := tenantCtx(1)

	u := mustUser(t, ctx, s, "alice")
	admin := mustRole(t, ctx, s, "Admin")
	editor := mustRole(t, ctx, s, "Editor")
	mustPermission(t, ctx, s, "Read *")
	mustPermission(t, ctx, s, "ManageRoles")

	require.NoError(t, s.AssignPermissionToRole(ctx, "Read *", admin.ID))
	require.NoError(t, s.AssignPermissionToRole(ctx, "ManageRoles", admin.ID))
	require.NoError(t, s.AssignPermissionToRole(ctx, "Read *", editor.ID))
	require.NoError(t, s.AssignRoleToUser(ctx, "Admin", u.ID))
	require.NoError(t, s.AssignRoleToUser(ctx, "Editor", u.ID))

	perms, err := s.GetPermissionsOfUser(ctx, u.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Read *", "ManageRoles"}, permission.Names(perms))

	has, err := s.UserHasPermission(ctx, u.ID, "ManageRoles")
	require.NoError(t, err)
	assert.True(t, has)

	require.NoError(t, s.RemovePermissionFromRole(ctx, "ManageRoles", admin.ID))
	has, err = s.RoleHasPermission(ctx, admin.ID, "ManageRoles")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestActionGrants(t *testing.T) {
	s := newStore(t)
	ctx := tenantCtx(1)

	admin := mustRole(t, ctx, s, "Admin")
	p1 := mustPermission(t, ctx, s, "DeleteAccounts")
	p2 := mustPermission(t, ctx, s, "ManageRoles")
	require.NoError(t, s.AssignPermissionToRole(ctx, "ManageRoles", admin.ID))

	require.NoError(t, s.AssignRoleToAction(ctx, "DeleteUser", admin.ID))
	require.NoError(t, s.AssignPermissionToAction(ctx, "DeleteUser", p1.ID))

	err := s.AssignRoleToAction(ctx, "DeleteUser", admin.ID)
	assert.ErrorIs(t, err, action.ErrAlreadyAssigned)
	err = s.AssignPermissionToAction(ctx, "DeleteUser", p1.ID)
	assert.ErrorIs(t, err, action.ErrAlreadyAssigned)

	roles, err := s.GetRolesOfAction(ctx, "DeleteUser")
	require.NoError(t, err)
	require.Len(t, roles, 1)
	assert.Equal(t, "Admin", roles[0].Name)

	direct, err := s.GetPermissionsOfAction(ctx, "DeleteUser")
	require.NoError(t, err)
	assert.Equal(t, []string{"DeleteAccounts"}, permission.Names(direct))

	derived, err := s.GetDerivedPermissionsOfAction(ctx, "DeleteUser")
	require.NoError(t, err)
	assert.Equal(t, []string{p2.Name}, permission.Names(derived))

	actions, err := s.ListActions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"DeleteUser"}, actions)

	// Retraction hard-deletes.
	require.NoError(t, s.RemoveRoleFromAction(ctx, "DeleteUser", admin.ID))
	require.NoError(t, s.RemovePermissionFromAction(ctx, "DeleteUser", p1.ID))
	ars, err := s.Driver().ActionRoles().List(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, ars)

	// Absent grants are a no-op.
	assert.NoError(t, s.RemoveRoleFromAction(ctx, "DeleteUser", admin.ID))
}

func TestTenantIsolation(t *testing.T) {
	s := newStore(t)
	ctx1, ctx2 := tenantCtx(1), tenantCtx(2)

	mustRole(t, ctx1, s, "Admin")
	mustRole(t, ctx2, s, "Auditor")

	roles1, err := s.ListRoles(ctx1)
	require.NoError(t, err)
	roles2, err := s.ListRoles(ctx2)
	require.NoError(t, err)
	require.Len(t, roles1, 1)
	require.Len(t, roles2, 1)
	assert.Equal(t, "Admin", roles1[0].Name)
	assert.Equal(t, "Auditor", roles2[0].Name)

	// Holding tenant 1 does not block tenant 2.
	_, release, err := s.Hold(ctx1)
	require.NoError(t, err)
	defer release()

	tctx, cancel := context.WithTimeout(ctx2, 200*time.Millisecond)
	defer cancel()
	_, err = s.ListRoles(tctx)
	assert.NoError(t, err)
}

func TestConcurrentTenants(t *testing.T) {
	s := newStore(t)
	var wg sync.WaitGroup
	for tenant := int64(1); tenant <= 4; tenant++ {
		wg.Add(1)
		go func(tenant int64) {
			defer wg.Done()
			ctx := tenantCtx(tenant)
			for i := 0; i < 25; i++ {
				u := &user.User{Username: "user-" + string(rune('a'+i))}
				if err := s.InsertUser(ctx, u); err != nil {
					t.Error(err)
					return
				}
			}
		}(tenant)
	}
	wg.Wait()

	for tenant := int64(1); tenant <= 4; tenant++ {
		users, err := s.ListUsers(tenantCtx(tenant))
		require.NoError(t, err)
		assert.Len(t, users, 25)
		for _, u := range users {
			assert.Equal(t, tenant, u.TenantID)
		}
	}
}

func TestHoldBlocksOtherCallers(t *testing.T) {
	s := newStore(t)
	ctx := tenantCtx(1)

	held, release, err := s.Hold(ctx)
	require.NoError(t, err)

	// Calls through the held context proceed.
	mustRole(t, held, s, "Admin")

	tctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = s.ListRoles(tctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	roles, err := s.ListRoles(ctx)
	require.NoError(t, err)
	assert.Len(t, roles, 1)
}
