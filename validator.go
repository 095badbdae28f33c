package gatehouse

import (
	"context"
	"slices"

	"github.com/xraph/gatehouse/permission"
	"github.com/xraph/gatehouse/store"
)

// RoleValidator checks a principal's roles and permissions. Every method
// fails with ErrUnauthenticated when the principal carries no claims.
type RoleValidator interface {
	// ValidateRoles reports whether the principal holds every role.
	ValidateRoles(ctx context.Context, p *Principal, roles []string) (bool, error)

	// ValidatePermissions reports whether the principal holds every
	// permission, honouring "Verb *" wildcards.
	ValidatePermissions(ctx context.Context, p *Principal, perms []string) (bool, error)

	// ValidateOnePermission reports whether the principal holds any one of
	// the candidates, honouring "Verb *" wildcards.
	ValidateOnePermission(ctx context.Context, p *Principal, candidates []string) (bool, error)

	// MissingRoles returns the roles the principal does not hold.
	MissingRoles(ctx context.Context, p *Principal, roles []string) ([]string, error)

	// MissingPermissions returns the permissions the principal does not hold.
	MissingPermissions(ctx context.Context, p *Principal, perms []string) ([]string, error)
}

// grantSource yields the roles and permissions a principal holds.
type grantSource interface {
	roles(ctx context.Context, p *Principal) ([]string, error)
	permissions(ctx context.Context, p *Principal) ([]string, error)
}

// validator implements RoleValidator over a grantSource.
type validator struct {
	src grantSource
}

func (v validator) MissingRoles(ctx context.Context, p *Principal, roles []string) ([]string, error) {
	if !p.HasClaims() {
		return nil, ErrUnauthenticated
	}
	if len(roles) == 0 {
		return nil, nil
	}
	held, err := v.src.roles(ctx, p)
	if err != nil {
		return nil, err
	}
	var missing []string
	for _, r := range roles {
		if !slices.Contains(held, r) {
			missing = append(missing, r)
		}
	}
	return missing, nil
}

func (v validator) MissingPermissions(ctx context.Context, p *Principal, perms []string) ([]string, error) {
	if !p.HasClaims() {
		return nil, ErrUnauthenticated
	}
	if len(perms) == 0 {
		return nil, nil
	}
	held, err := v.src.permissions(ctx, p)
	if err != nil {
		return nil, err
	}
	var missing []string
	for _, perm := range perms {
		if !holdsPermission(held, perm) {
			missing = append(missing, perm)
		}
	}
	return missing, nil
}

func (v validator) ValidateRoles(ctx context.Context, p *Principal, roles []string) (bool, error) {
	missing, err := v.MissingRoles(ctx, p, roles)
	return err == nil && len(missing) == 0, err
}

func (v validator) ValidatePermissions(ctx context.Context, p *Principal, perms []string) (bool, error) {
	missing, err := v.MissingPermissions(ctx, p, perms)
	return err == nil && len(missing) == 0, err
}

func (v validator) ValidateOnePermission(ctx context.Context, p *Principal, candidates []string) (bool, error) {
	if !p.HasClaims() {
		return false, ErrUnauthenticated
	}
	held, err := v.src.permissions(ctx, p)
	if err != nil {
		return false, err
	}
	for _, c := range candidates {
		if holdsPermission(held, c) {
			return true, nil
		}
	}
	return false, nil
}

// ──────────────────────────────────────────────────
// Claims
// ──────────────────────────────────────────────────

type claimsSource struct{}

func (claimsSource) roles(_ context.Context, p *Principal) ([]string, error) {
	return p.Roles, nil
}

func (claimsSource) permissions(_ context.Context, p *Principal) ([]string, error) {
	return p.Permissions, nil
}

// ClaimsValidator checks the roles and permissions embedded in the
// principal's token. Grants changed after the token was issued are not
// seen until it is reissued.
type ClaimsValidator struct{ validator }

// NewClaimsValidator creates a claims-based validator.
func NewClaimsValidator() *ClaimsValidator {
	return &ClaimsValidator{validator{src: claimsSource{}}}
}

// ──────────────────────────────────────────────────
// Live store
// ──────────────────────────────────────────────────

type storeSource struct {
	store store.Store
}

func (s storeSource) roles(ctx context.Context, p *Principal) ([]string, error) {
	roles, err := s.store.GetRolesOfUser(principalContext(ctx, p), p.UserID)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, r.Name)
	}
	return names, nil
}

func (s storeSource) permissions(ctx context.Context, p *Principal) ([]string, error) {
	perms, err := s.store.GetPermissionsOfUser(principalContext(ctx, p), p.UserID)
	if err != nil {
		return nil, err
	}
	return permission.Names(perms), nil
}

// StoreValidator re-reads the principal's roles and permissions from the
// store on every check.
type StoreValidator struct{ validator }

// NewStoreValidator creates a validator backed by the live store.
func NewStoreValidator(s store.Store) *StoreValidator {
	return &StoreValidator{validator{src: storeSource{store: s}}}
}

// Compile-time interface checks.
var (
	_ RoleValidator = (*ClaimsValidator)(nil)
	_ RoleValidator = (*StoreValidator)(nil)
)
