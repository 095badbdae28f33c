package metrics

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/xraph/gatehouse"
	"github.com/xraph/gatehouse/datastore"
	"github.com/xraph/gatehouse/store/memory"
)

func TestPluginCountsDecisionsAndGrants(t *testing.T) {
	ctx := gatehouse.WithTenant(context.Background(), 1)
	reg := prometheus.NewRegistry()
	m := New(reg)

	eng, err := gatehouse.NewEngine(
		gatehouse.WithStore(datastore.New(memory.New())),
		gatehouse.WithPlugin(m),
	)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := eng.InsertRole(ctx, "Admin"); err != nil {
		t.Fatal(err)
	}
	if ok, err := eng.RegisterRoleToAction(ctx, "DeleteUser", "Admin"); err != nil || !ok {
		t.Fatalf("register: %v %v", ok, err)
	}
	if ok, err := eng.RemoveRoleFromAction(ctx, "DeleteUser", "Admin"); err != nil || !ok {
		t.Fatalf("remove: %v %v", ok, err)
	}
	if ok, err := eng.RegisterRoleToAction(ctx, "DeleteUser", "Admin"); err != nil || !ok {
		t.Fatalf("register: %v %v", ok, err)
	}

	if _, err := eng.Authorize(ctx, &gatehouse.Principal{UserID: 1, Roles: []string{"Admin"}}, "DeleteUser"); err != nil {
		t.Fatal(err)
	}
	if _, err := eng.Authorize(ctx, &gatehouse.Principal{UserID: 2}, "DeleteUser"); err != nil {
		t.Fatal(err)
	}
	if _, err := eng.Authorize(ctx, nil, "DeleteUser"); err != nil {
		t.Fatal(err)
	}

	if got := testutil.ToFloat64(m.decisions.WithLabelValues("true")); got != 1 {
		t.Fatalf("allowed decisions = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.decisions.WithLabelValues("false")); got != 2 {
		t.Fatalf("denied decisions = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.grantChanges.WithLabelValues("role", "true")); got != 2 {
		t.Fatalf("role grants = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.grantChanges.WithLabelValues("role", "false")); got != 1 {
		t.Fatalf("role retractions = %v, want 1", got)
	}
}

func TestPluginIgnoresForeignDecisions(t *testing.T) {
	m := New(prometheus.NewRegistry())
	if err := m.OnDecisionMade(context.Background(), nil, "not a decision"); err != nil {
		t.Fatal(err)
	}
	if got := testutil.CollectAndCount(m.decisions); got != 0 {
		t.Fatalf("expected no series, got %d", got)
	}
}
