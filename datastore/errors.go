package datastore

import "errors"

var (
	// ErrNotFound is returned by single-row lookups when zero or more than
	// one row matches.
	ErrNotFound = errors.New("gatehouse: not found")

	// ErrNoTenant is returned when no tenant can be resolved from the context.
	ErrNoTenant = errors.New("gatehouse: no tenant in context")

	// ErrCrossTenant is returned when an entity is written through a
	// context bound to a different tenant.
	ErrCrossTenant = errors.New("gatehouse: entity belongs to another tenant")
)
