package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/gatehouse/checklog"
	"github.com/xraph/gatehouse/entity"
	"github.com/xraph/gatehouse/id"
	"github.com/xraph/gatehouse/role"
)

func newRole(tenant int64, name string) *role.Role {
	return &role.Role{
		Base: entity.Base{ID: id.New(), TenantID: tenant, CreatedAt: time.Now()},
		Name: name,
	}
}

func TestTableCRUD(t *testing.T) {
	ctx := context.Background()
	s := New()
	tbl := s.Roles()

	r := newRole(1, "Admin")
	if err := tbl.Insert(ctx, r); err != nil {
		t.Fatal(err)
	}

	got, ok, err := tbl.Get(ctx, 1, r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !ok || got.Name != "Admin" {
		t.Fatalf("expected Admin, got %+v", got)
	}

	// Returned rows are copies.
	got.Name = "mutated"
	again, _, _ := tbl.Get(ctx, 1, r.ID)
	if again.Name != "Admin" {
		t.Fatalf("stored row was mutated through a returned copy: %s", again.Name)
	}

	r.Name = "Administrator"
	if err := tbl.Update(ctx, r); err != nil {
		t.Fatal(err)
	}
	got, _, _ = tbl.Get(ctx, 1, r.ID)
	if got.Name != "Administrator" {
		t.Fatalf("expected Administrator, got %s", got.Name)
	}

	if err := tbl.Delete(ctx, r); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := tbl.Get(ctx, 1, r.ID); ok {
		t.Fatal("expected row to be gone after delete")
	}
}

func TestTableTenantScoping(t *testing.T) {
	ctx := context.Background()
	s := New()
	tbl := s.Roles()

	r1 := newRole(1, "Admin")
	r2 := newRole(2, "Admin")
	for _, r := range []*role.Role{r1, r2} {
		if err := tbl.Insert(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	rows, err := tbl.List(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].ID != r1.ID {
		t.Fatalf("expected only tenant 1 row, got %d rows", len(rows))
	}
	if _, ok, _ := tbl.Get(ctx, 2, r1.ID); ok {
		t.Fatal("tenant 2 must not see tenant 1 row")
	}
}

func TestTableListConditions(t *testing.T) {
	ctx := context.Background()
	s := New()
	tbl := s.Roles()

	a := newRole(1, "A")
	b := newRole(1, "B")
	b.IsDeleted = true
	_ = tbl.Insert(ctx, a)
	_ = tbl.Insert(ctx, b)

	live, _ := tbl.List(ctx, 1, entity.Eq(entity.ColIsDeleted, false))
	if len(live) != 1 || live[0].Name != "A" {
		t.Fatalf("expected only A, got %d rows", len(live))
	}
	byName, _ := tbl.List(ctx, 1, entity.Eq(role.ColName, "B"))
	if len(byName) != 1 {
		t.Fatalf("expected deleted row to be listed without a deletion filter, got %d", len(byName))
	}
}

func TestTableUniqueAmongLiveRows(t *testing.T) {
	ctx := context.Background()
	s := New()
	tbl := s.Roles()

	first := newRole(1, "Admin")
	if err := tbl.Insert(ctx, first); err != nil {
		t.Fatal(err)
	}
	if err := tbl.Insert(ctx, newRole(1, "Admin")); !errors.Is(err, errDuplicate) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	// Same name in another tenant is fine.
	if err := tbl.Insert(ctx, newRole(2, "Admin")); err != nil {
		t.Fatal(err)
	}

	// After a soft delete the name is free again.
	first.IsDeleted = true
	if err := tbl.Update(ctx, first); err != nil {
		t.Fatal(err)
	}
	if err := tbl.Insert(ctx, newRole(1, "Admin")); err != nil {
		t.Fatalf("expected insert after soft delete to succeed: %v", err)
	}
}

func TestCheckLogs(t *testing.T) {
	ctx := context.Background()
	s := New().CheckLogs()

	old := &checklog.Entry{ID: id.NewCheckLogID(), TenantID: 1, Action: "DeleteUser", CreatedAt: time.Now().Add(-48 * time.Hour)}
	recent := &checklog.Entry{ID: id.NewCheckLogID(), TenantID: 1, Action: "DeleteUser", Allowed: true, CreatedAt: time.Now()}
	other := &checklog.Entry{ID: id.NewCheckLogID(), TenantID: 2, Action: "DeleteUser", CreatedAt: time.Now()}
	for _, e := range []*checklog.Entry{old, recent, other} {
		if err := s.CreateCheckLog(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	list, err := s.ListCheckLogs(ctx, &checklog.QueryFilter{TenantID: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID.String() != recent.ID.String() {
		t.Fatalf("expected 2 entries newest first, got %d", len(list))
	}

	allowed := true
	n, _ := s.CountCheckLogs(ctx, &checklog.QueryFilter{TenantID: 1, Allowed: &allowed})
	if n != 1 {
		t.Fatalf("expected 1 allowed entry, got %d", n)
	}

	purged, err := s.PurgeCheckLogs(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if purged != 1 {
		t.Fatalf("expected 1 purged, got %d", purged)
	}
	if _, err := s.GetCheckLog(ctx, old.ID); err == nil {
		t.Fatal("expected purged entry to be gone")
	}
}
