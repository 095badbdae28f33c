package plugin

import (
	"context"
	"log/slog"

	"github.com/xraph/gatehouse/permission"
	"github.com/xraph/gatehouse/role"
)

// entry pairs a hook with the plugin name for logging.
type entry[H any] struct {
	name string
	hook H
}

// Registry holds registered plugins and dispatches lifecycle events.
// Plugins are sorted into per-hook lists at registration time so emit
// calls only visit plugins implementing the hook.
type Registry struct {
	plugins []Plugin
	logger  *slog.Logger

	roleCreated        []entry[RoleCreated]
	roleDeleted        []entry[RoleDeleted]
	roleAssigned       []entry[RoleAssigned]
	roleUnassigned     []entry[RoleUnassigned]
	permissionCreated  []entry[PermissionCreated]
	permissionDeleted  []entry[PermissionDeleted]
	permissionAttached []entry[PermissionAttached]
	permissionDetached []entry[PermissionDetached]
	actionGrantChanged []entry[ActionGrantChanged]
	decisionMade       []entry[DecisionMade]
	shutdown           []entry[Shutdown]
}

// NewRegistry creates a plugin registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

// collect appends p to list when it implements H.
func collect[H any](list []entry[H], name string, p Plugin) []entry[H] {
	if h, ok := p.(H); ok {
		return append(list, entry[H]{name: name, hook: h})
	}
	return list
}

// Register adds a plugin. Plugins are notified in registration order.
func (r *Registry) Register(p Plugin) {
	r.plugins = append(r.plugins, p)
	name := p.Name()

	r.roleCreated = collect(r.roleCreated, name, p)
	r.roleDeleted = collect(r.roleDeleted, name, p)
	r.roleAssigned = collect(r.roleAssigned, name, p)
	r.roleUnassigned = collect(r.roleUnassigned, name, p)
	r.permissionCreated = collect(r.permissionCreated, name, p)
	r.permissionDeleted = collect(r.permissionDeleted, name, p)
	r.permissionAttached = collect(r.permissionAttached, name, p)
	r.permissionDetached = collect(r.permissionDetached, name, p)
	r.actionGrantChanged = collect(r.actionGrantChanged, name, p)
	r.decisionMade = collect(r.decisionMade, name, p)
	r.shutdown = collect(r.shutdown, name, p)
}

// Plugins returns all registered plugins.
func (r *Registry) Plugins() []Plugin { return r.plugins }

// dispatch calls fn for every entry, logging failures.
func dispatch[H any](r *Registry, hook string, list []entry[H], fn func(H) error) {
	for _, e := range list {
		if err := fn(e.hook); err != nil {
			r.logHookError(hook, e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Role emitters
// ──────────────────────────────────────────────────

// EmitRoleCreated notifies RoleCreated plugins.
func (r *Registry) EmitRoleCreated(ctx context.Context, rl *role.Role) {
	dispatch(r, "OnRoleCreated", r.roleCreated, func(h RoleCreated) error {
		return h.OnRoleCreated(ctx, rl)
	})
}

// EmitRoleDeleted notifies RoleDeleted plugins.
func (r *Registry) EmitRoleDeleted(ctx context.Context, rl *role.Role) {
	dispatch(r, "OnRoleDeleted", r.roleDeleted, func(h RoleDeleted) error {
		return h.OnRoleDeleted(ctx, rl)
	})
}

// EmitRoleAssigned notifies RoleAssigned plugins.
func (r *Registry) EmitRoleAssigned(ctx context.Context, userID int64, rl *role.Role) {
	dispatch(r, "OnRoleAssigned", r.roleAssigned, func(h RoleAssigned) error {
		return h.OnRoleAssigned(ctx, userID, rl)
	})
}

// EmitRoleUnassigned notifies RoleUnassigned plugins.
func (r *Registry) EmitRoleUnassigned(ctx context.Context, userID int64, rl *role.Role) {
	dispatch(r, "OnRoleUnassigned", r.roleUnassigned, func(h RoleUnassigned) error {
		return h.OnRoleUnassigned(ctx, userID, rl)
	})
}

// ──────────────────────────────────────────────────
// Permission emitters
// ──────────────────────────────────────────────────

// EmitPermissionCreated notifies PermissionCreated plugins.
func (r *Registry) EmitPermissionCreated(ctx context.Context, p *permission.Permission) {
	dispatch(r, "OnPermissionCreated", r.permissionCreated, func(h PermissionCreated) error {
		return h.OnPermissionCreated(ctx, p)
	})
}

// EmitPermissionDeleted notifies PermissionDeleted plugins.
func (r *Registry) EmitPermissionDeleted(ctx context.Context, p *permission.Permission) {
	dispatch(r, "OnPermissionDeleted", r.permissionDeleted, func(h PermissionDeleted) error {
		return h.OnPermissionDeleted(ctx, p)
	})
}

// EmitPermissionAttached notifies PermissionAttached plugins.
func (r *Registry) EmitPermissionAttached(ctx context.Context, rl *role.Role, p *permission.Permission) {
	dispatch(r, "OnPermissionAttached", r.permissionAttached, func(h PermissionAttached) error {
		return h.OnPermissionAttached(ctx, rl, p)
	})
}

// EmitPermissionDetached notifies PermissionDetached plugins.
func (r *Registry) EmitPermissionDetached(ctx context.Context, rl *role.Role, p *permission.Permission) {
	dispatch(r, "OnPermissionDetached", r.permissionDetached, func(h PermissionDetached) error {
		return h.OnPermissionDetached(ctx, rl, p)
	})
}

// ──────────────────────────────────────────────────
// Action and decision emitters
// ──────────────────────────────────────────────────

// EmitActionGrantChanged notifies ActionGrantChanged plugins.
func (r *Registry) EmitActionGrantChanged(ctx context.Context, change *GrantChange) {
	dispatch(r, "OnActionGrantChanged", r.actionGrantChanged, func(h ActionGrantChanged) error {
		return h.OnActionGrantChanged(ctx, change)
	})
}

// EmitDecisionMade notifies DecisionMade plugins.
func (r *Registry) EmitDecisionMade(ctx context.Context, principal, decision any) {
	dispatch(r, "OnDecisionMade", r.decisionMade, func(h DecisionMade) error {
		return h.OnDecisionMade(ctx, principal, decision)
	})
}

// EmitShutdown notifies Shutdown plugins.
func (r *Registry) EmitShutdown(ctx context.Context) {
	dispatch(r, "OnShutdown", r.shutdown, func(h Shutdown) error {
		return h.OnShutdown(ctx)
	})
}

// logHookError logs a warning when a hook fails. Hook errors never reach
// the caller.
func (r *Registry) logHookError(hook, pluginName string, err error) {
	r.logger.Warn("plugin hook error",
		slog.String("hook", hook),
		slog.String("plugin", pluginName),
		slog.String("error", err.Error()),
	)
}
