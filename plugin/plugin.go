// Package plugin defines the lifecycle hooks of the gatehouse engine.
// Plugins are told about role, permission and grant changes and about
// every authorization decision, and can react to them (metrics, audit,
// cache warming).
//
// Each hook is its own interface; a plugin implements only the ones it
// needs.
package plugin

import (
	"context"

	"github.com/xraph/gatehouse/permission"
	"github.com/xraph/gatehouse/role"
)

// Plugin is the base interface all plugins must implement.
type Plugin interface {
	// Name returns a unique human-readable name for the plugin.
	Name() string
}

// GrantKind identifies what an action grant points at.
type GrantKind string

const (
	// GrantRole is an action → role grant.
	GrantRole GrantKind = "role"

	// GrantPermission is an action → permission grant.
	GrantPermission GrantKind = "permission"
)

// GrantChange describes a registered or retracted action grant.
type GrantChange struct {
	TenantID int64     `json:"tenant_id"`
	Action   string    `json:"action"`
	Kind     GrantKind `json:"kind"`
	Target   string    `json:"target"`
	Granted  bool      `json:"granted"`
}

// ──────────────────────────────────────────────────
// Role hooks
// ──────────────────────────────────────────────────

// RoleCreated is called after a role is inserted.
type RoleCreated interface {
	OnRoleCreated(ctx context.Context, r *role.Role) error
}

// RoleDeleted is called after a role is soft-deleted.
type RoleDeleted interface {
	OnRoleDeleted(ctx context.Context, r *role.Role) error
}

// RoleAssigned is called after a role is granted to a user.
type RoleAssigned interface {
	OnRoleAssigned(ctx context.Context, userID int64, r *role.Role) error
}

// RoleUnassigned is called after a role is taken from a user.
type RoleUnassigned interface {
	OnRoleUnassigned(ctx context.Context, userID int64, r *role.Role) error
}

// ──────────────────────────────────────────────────
// Permission hooks
// ──────────────────────────────────────────────────

// PermissionCreated is called after a permission is inserted.
type PermissionCreated interface {
	OnPermissionCreated(ctx context.Context, p *permission.Permission) error
}

// PermissionDeleted is called after a permission is soft-deleted.
type PermissionDeleted interface {
	OnPermissionDeleted(ctx context.Context, p *permission.Permission) error
}

// PermissionAttached is called after a permission is granted to a role.
type PermissionAttached interface {
	OnPermissionAttached(ctx context.Context, r *role.Role, p *permission.Permission) error
}

// PermissionDetached is called after a permission is taken from a role.
type PermissionDetached interface {
	OnPermissionDetached(ctx context.Context, r *role.Role, p *permission.Permission) error
}

// ──────────────────────────────────────────────────
// Action and decision hooks
// ──────────────────────────────────────────────────

// ActionGrantChanged is called after an action grant is registered or
// retracted.
type ActionGrantChanged interface {
	OnActionGrantChanged(ctx context.Context, change *GrantChange) error
}

// DecisionMade is called after every authorization decision. The decision
// is a *gatehouse.Decision, passed as any to avoid an import cycle.
type DecisionMade interface {
	OnDecisionMade(ctx context.Context, principal, decision any) error
}

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
