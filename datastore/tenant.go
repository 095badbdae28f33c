package datastore

import (
	"context"
	"strconv"

	"github.com/xraph/forge"
)

type contextKey int

const ctxKeyTenantID contextKey = iota

// WithTenant returns a context bound to the given tenant.
func WithTenant(ctx context.Context, tenantID int64) context.Context {
	return context.WithValue(ctx, ctxKeyTenantID, tenantID)
}

// TenantFromContext returns the tenant bound with WithTenant, falling back
// to the organization of a forge scope when it parses as an integer.
func TenantFromContext(ctx context.Context) (int64, bool) {
	if v, ok := ctx.Value(ctxKeyTenantID).(int64); ok && v != 0 {
		return v, true
	}
	if s, ok := forge.ScopeFrom(ctx); ok {
		if v, err := strconv.ParseInt(s.OrgID(), 10, 64); err == nil && v != 0 {
			return v, true
		}
	}
	return 0, false
}
