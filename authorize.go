package gatehouse

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/gatehouse/checklog"
)

// Authorize runs the role/permission gate for an action. The caller must
// hold every role granted to the action and every effective permission of
// it. A principal without claims is rejected outright unless the action
// has no requirements.
func (e *Engine) Authorize(ctx context.Context, p *Principal, actionName string) (*Decision, error) {
	start := time.Now()
	ctx = e.scoped(principalContext(ctx, p))

	req, err := e.Requirements(ctx, actionName)
	if err != nil {
		return nil, err
	}
	d, err := e.decide(ctx, p, actionName, req.Roles, req.Permissions, RequireAll)
	if err != nil {
		return nil, err
	}
	e.finish(ctx, p, d, start)
	return d, nil
}

// Enforce is Authorize returning ErrAccessDenied on rejection.
func (e *Engine) Enforce(ctx context.Context, p *Principal, actionName string) error {
	d, err := e.Authorize(ctx, p, actionName)
	if err != nil {
		return err
	}
	if !d.Allowed {
		return fmt.Errorf("%w: %s: %s", ErrAccessDenied, actionName, d.Reason)
	}
	return nil
}

// CheckRoles is a static gate requiring every listed role.
func (e *Engine) CheckRoles(ctx context.Context, p *Principal, roles ...string) (*Decision, error) {
	return e.static(ctx, p, roles, nil, RequireAll)
}

// CheckPermissions is a static gate requiring every listed permission.
func (e *Engine) CheckPermissions(ctx context.Context, p *Principal, perms ...string) (*Decision, error) {
	return e.static(ctx, p, nil, perms, RequireAll)
}

// CheckAnyPermission is a static gate requiring any one listed permission.
func (e *Engine) CheckAnyPermission(ctx context.Context, p *Principal, perms ...string) (*Decision, error) {
	return e.static(ctx, p, nil, perms, RequireAny)
}

func (e *Engine) static(ctx context.Context, p *Principal, roles, perms []string, mode Require) (*Decision, error) {
	start := time.Now()
	ctx = e.scoped(principalContext(ctx, p))
	d, err := e.decide(ctx, p, "", roles, perms, mode)
	if err != nil {
		return nil, err
	}
	e.finish(ctx, p, d, start)
	return d, nil
}

func (e *Engine) decide(ctx context.Context, p *Principal, actionName string, roles, perms []string, mode Require) (*Decision, error) {
	d := &Decision{
		Action:             actionName,
		Require:            mode,
		MissingRoles:       []string{},
		MissingPermissions: []string{},
	}
	if len(roles) == 0 && len(perms) == 0 {
		d.Allowed = true
		return d, nil
	}
	if !p.HasClaims() {
		d.MissingRoles = append(d.MissingRoles, roles...)
		d.MissingPermissions = append(d.MissingPermissions, perms...)
		d.Reason = "unauthenticated"
		return d, nil
	}

	if mode == RequireAny {
		ok, err := e.validator.ValidateOnePermission(ctx, p, perms)
		if err != nil {
			return nil, wrap("validate permissions", err)
		}
		d.Allowed = ok
		if !ok {
			d.MissingPermissions = append(d.MissingPermissions, perms...)
			d.Reason = "missing permissions"
		}
		return d, nil
	}

	missingRoles, err := e.validator.MissingRoles(ctx, p, roles)
	if err != nil {
		return nil, wrap("validate roles", err)
	}
	missingPerms, err := e.validator.MissingPermissions(ctx, p, perms)
	if err != nil {
		return nil, wrap("validate permissions", err)
	}
	d.MissingRoles = append(d.MissingRoles, missingRoles...)
	d.MissingPermissions = append(d.MissingPermissions, missingPerms...)
	switch {
	case len(missingRoles) > 0:
		d.Reason = "missing roles"
	case len(missingPerms) > 0:
		d.Reason = "missing permissions"
	default:
		d.Allowed = true
	}
	return d, nil
}

// finish stamps, logs, audits and announces a decision.
func (e *Engine) finish(ctx context.Context, p *Principal, d *Decision, start time.Time) {
	d.EvalTimeNs = time.Since(start).Nanoseconds()

	if !d.Allowed {
		e.logger.Info("gatehouse: denied",
			slog.String("action", d.Action),
			slog.String("reason", d.Reason),
			slog.Any("missing_roles", d.MissingRoles),
			slog.Any("missing_permissions", d.MissingPermissions),
		)
	}

	if e.config.auditDecisions() {
		entry := &checklog.Entry{
			Action:             d.Action,
			Allowed:            d.Allowed,
			Require:            string(d.Require),
			MissingRoles:       d.MissingRoles,
			MissingPermissions: d.MissingPermissions,
			EvalTimeNs:         d.EvalTimeNs,
			RequestIP:          requestIPFromContext(ctx),
		}
		if p != nil {
			entry.UserID = p.UserID
			entry.Username = p.Username
		}
		if err := e.store.CreateCheckLog(ctx, entry); err != nil {
			e.logger.Warn("gatehouse: check log write failed", slog.Any("error", err))
		}
	}

	if e.plugins != nil {
		e.plugins.EmitDecisionMade(ctx, p, d)
	}
}
