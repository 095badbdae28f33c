package gatehouse

import (
	"context"

	"github.com/xraph/gatehouse/datastore"
)

type contextKey int

const (
	ctxKeyPrincipal contextKey = iota
	ctxKeyRequestIP
)

// WithTenant returns a context bound to the given tenant. Use this in
// standalone mode (without a forge scope).
func WithTenant(ctx context.Context, tenantID int64) context.Context {
	return datastore.WithTenant(ctx, tenantID)
}

// TenantFromContext returns the tenant the context is bound to.
func TenantFromContext(ctx context.Context) (int64, bool) {
	return datastore.TenantFromContext(ctx)
}

// WithPrincipal stores the authenticated caller in the context and binds
// the context to the caller's tenant.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	if p == nil {
		return ctx
	}
	ctx = context.WithValue(ctx, ctxKeyPrincipal, p)
	if p.TenantID != 0 {
		ctx = datastore.WithTenant(ctx, p.TenantID)
	}
	return ctx
}

// PrincipalFromContext returns the caller stored by WithPrincipal, or nil
// for anonymous requests.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(ctxKeyPrincipal).(*Principal)
	return p
}

// principalContext binds ctx to the principal's tenant when it has one.
func principalContext(ctx context.Context, p *Principal) context.Context {
	if p != nil && p.TenantID != 0 {
		return datastore.WithTenant(ctx, p.TenantID)
	}
	return ctx
}

// WithRequestIP records the caller's address for the check log.
func WithRequestIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestIP, ip)
}

func requestIPFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(ctxKeyRequestIP).(string)
	return ip
}
