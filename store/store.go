// Package store defines the aggregate persistence interface. Each entity
// package (user, role, permission, action, checklog) defines its own store
// interface; the composite Store composes them all. The datastore package
// implements it over the memory, postgres, sqlite and mongo backends.
package store

import (
	"context"

	"github.com/xraph/gatehouse/action"
	"github.com/xraph/gatehouse/checklog"
	"github.com/xraph/gatehouse/permission"
	"github.com/xraph/gatehouse/role"
	"github.com/xraph/gatehouse/user"
)

// Store is the aggregate persistence interface. All operations are scoped
// to the tenant carried by the context.
type Store interface {
	user.Store
	role.Store
	permission.Store
	action.Store
	checklog.Store

	// Tenant resolves the tenant the context is bound to.
	Tenant(ctx context.Context) (int64, error)

	// Hold takes exclusive access to the context's tenant until release is
	// called. Store calls made with the returned context do not wait on it.
	Hold(ctx context.Context) (held context.Context, release func(), err error)

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks database connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
