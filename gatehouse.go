// Package gatehouse provides tenant-scoped role, permission and action
// authorization for Go services.
//
// Users hold roles, roles hold permissions, and every protected action is
// addressed by a string key that lists the roles and permissions it
// accepts. An action also accepts the permissions of the roles granted to
// it (derived permissions). Permissions named "Verb *" satisfy any
// "Verb Entity" requirement.
//
//	eng, err := gatehouse.NewEngine(
//	    gatehouse.WithStore(datastore.New(memory.New())),
//	)
//	ctx = gatehouse.WithTenant(ctx, 1)
//	id, err := eng.InsertRole(ctx, "Admin")
//	ok, err := eng.RegisterRoleToAction(ctx, "DeleteUser", "Admin")
//	decision, err := eng.Authorize(ctx, principal, "DeleteUser")
package gatehouse

import "time"

// Principal is the authenticated caller as described by its token claims.
type Principal struct {
	UserID      int64     `json:"user_id"`
	TenantID    int64     `json:"tenant_id"`
	Username    string    `json:"username,omitempty"`
	IssuedAt    time.Time `json:"iat"`
	Roles       []string  `json:"roles,omitempty"`
	Permissions []string  `json:"permissions,omitempty"`
	TokenID     string    `json:"jti,omitempty"`
}

// HasClaims reports whether the principal carries any identity or grant
// claims. Anonymous callers have none.
func (p *Principal) HasClaims() bool {
	if p == nil {
		return false
	}
	return p.UserID != 0 || len(p.Roles) > 0 || len(p.Permissions) > 0
}

// Require tells a rejected caller whether every listed item was needed or
// any one of them would have done.
type Require string

const (
	// RequireAll means every listed role and permission is required.
	RequireAll Require = "all"

	// RequireAny means any one of the listed permissions is enough.
	RequireAny Require = "any"
)

// Decision is the outcome of an authorization gate.
type Decision struct {
	Allowed            bool     `json:"allowed"`
	Action             string   `json:"action,omitempty"`
	MissingRoles       []string `json:"missing_roles"`
	MissingPermissions []string `json:"missing_permissions"`
	Require            Require  `json:"require"`
	Reason             string   `json:"reason,omitempty"`
	EvalTimeNs         int64    `json:"eval_time_ns"`
}

// Requirements lists what an action demands of its caller: every granted
// role and the deduplicated union of direct and derived permissions.
type Requirements struct {
	Action      string   `json:"action"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}

// Empty reports whether the action is unprotected.
func (r *Requirements) Empty() bool {
	return r == nil || (len(r.Roles) == 0 && len(r.Permissions) == 0)
}
