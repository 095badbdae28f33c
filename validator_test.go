package gatehouse

import (
	"context"
	"errors"
	"testing"
)

func TestMatchPermission(t *testing.T) {
	tests := []struct {
		held, required string
		want           bool
	}{
		{"Read Widget", "Read Widget", true},
		{"Read *", "Read Widget", true},
		{"Read *", "Read Purchase Order", true},
		{"Read *", "Read *", true},
		{"Read *", "Update Widget", false},
		{"Read *", "Read", false},
		{"Read *", "ReadWidget", false},
		{"*", "Read Widget", false},
		{"Read Widget", "Read Gadget", false},
		{"ManageRoles", "ManageRoles", true},
	}
	for _, tt := range tests {
		t.Run(tt.held+"→"+tt.required, func(t *testing.T) {
			if got := matchPermission(tt.held, tt.required); got != tt.want {
				t.Fatalf("matchPermission(%q, %q) = %v, want %v", tt.held, tt.required, got, tt.want)
			}
		})
	}
}

func TestAlternatives(t *testing.T) {
	got := Alternatives(PermissionName(VerbCreate, "Widget"))
	if len(got) != 2 || got[0] != "Create Widget" || got[1] != "Create *" {
		t.Fatalf("Alternatives = %v", got)
	}
	if got := Alternatives("ManageRoles"); len(got) != 1 {
		t.Fatalf("Alternatives(ManageRoles) = %v", got)
	}
	if got := Alternatives(Wildcard(VerbRead)); len(got) != 1 {
		t.Fatalf("Alternatives(Read *) = %v", got)
	}
}

func TestClaimsValidator(t *testing.T) {
	ctx := context.Background()
	v := NewClaimsValidator()
	p := &Principal{
		UserID:      7,
		Roles:       []string{"Admin", "User"},
		Permissions: []string{"Create *", "ViewAnalytics"},
	}

	cases := []struct {
		name string
		fn   func() (bool, error)
		want bool
	}{
		{"all roles held", func() (bool, error) { return v.ValidateRoles(ctx, p, []string{"Admin", "User"}) }, true},
		{"one role missing", func() (bool, error) { return v.ValidateRoles(ctx, p, []string{"Admin", "DataManager"}) }, false},
		{"empty roles pass", func() (bool, error) { return v.ValidateRoles(ctx, p, nil) }, true},
		{"wildcard satisfies", func() (bool, error) { return v.ValidatePermissions(ctx, p, []string{"Create Widget"}) }, true},
		{"wildcard is per verb", func() (bool, error) {
			return v.ValidatePermissions(ctx, p, []string{"Create Widget", "Delete Widget"})
		}, false},
		{"any one of", func() (bool, error) {
			return v.ValidateOnePermission(ctx, p, []string{"GenerateReports", "ViewAnalytics"})
		}, true},
		{"any one via wildcard", func() (bool, error) {
			return v.ValidateOnePermission(ctx, p, []string{"Create Invoice"})
		}, true},
		{"none of", func() (bool, error) { return v.ValidateOnePermission(ctx, p, []string{"ManageRoles"}) }, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.fn()
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.want {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}

	missing, err := v.MissingPermissions(ctx, p, []string{"Create Widget", "ManageRoles", "Delete *"})
	if err != nil {
		t.Fatal(err)
	}
	if len(missing) != 2 || missing[0] != "ManageRoles" || missing[1] != "Delete *" {
		t.Fatalf("missing = %v", missing)
	}
}

func TestValidatorRejectsClaimlessPrincipal(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)
	validators := map[string]RoleValidator{
		"claims": NewClaimsValidator(),
		"store":  NewStoreValidator(eng.Store()),
	}
	for name, v := range validators {
		t.Run(name, func(t *testing.T) {
			for _, p := range []*Principal{nil, {}} {
				if _, err := v.ValidateRoles(ctx, p, nil); !errors.Is(err, ErrUnauthenticated) {
					t.Fatalf("ValidateRoles: expected ErrUnauthenticated, got %v", err)
				}
				if _, err := v.ValidatePermissions(ctx, p, []string{"x"}); !errors.Is(err, ErrUnauthenticated) {
					t.Fatalf("ValidatePermissions: expected ErrUnauthenticated, got %v", err)
				}
				if _, err := v.ValidateOnePermission(ctx, p, []string{"x"}); !errors.Is(err, ErrUnauthenticated) {
					t.Fatalf("ValidateOnePermission: expected ErrUnauthenticated, got %v", err)
				}
			}
		})
	}
}

func TestStoreValidatorSeesLiveGrants(t *testing.T) {
	ctx := WithTenant(context.Background(), 1)
	eng, s := newTestEngine(t)
	v := NewStoreValidator(s)

	u := newUser(t, ctx, s, "alice")
	mustInsertRole(t, ctx, eng, "DataManager")
	mustInsertPermission(t, ctx, eng, "Read *")
	isTrue(t)(eng.AssignPermissionToRole(ctx, "Read *", "DataManager"))

	// Claims are stale: the principal carries nothing but its identity.
	p := &Principal{UserID: u.ID, TenantID: 1}
	isFalse(t)(v.ValidatePermissions(ctx, p, []string{"Read Widget"}))

	isTrue(t)(eng.AssignRoleToUser(ctx, "DataManager", u.ID))
	isTrue(t)(v.ValidateRoles(ctx, p, []string{"DataManager"}))
	isTrue(t)(v.ValidatePermissions(ctx, p, []string{"Read Widget"}))
	isTrue(t)(v.ValidateOnePermission(ctx, p, Alternatives("Read Widget")))
}
