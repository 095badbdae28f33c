package gatehouse

import "context"

// Cache stores computed action requirements per tenant.
type Cache interface {
	// Get returns the cached requirements of an action, if available.
	Get(ctx context.Context, tenantID int64, action string) (*Requirements, bool)

	// Set stores the requirements of an action.
	Set(ctx context.Context, tenantID int64, action string, req *Requirements)

	// InvalidateTenant removes every cached entry of a tenant.
	InvalidateTenant(ctx context.Context, tenantID int64)
}
