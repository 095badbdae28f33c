// Package entity defines the attributes shared by every tenant-scoped record
// and the equality conditions used to query them.
package entity

import "time"

// Base column names shared by every table.
const (
	ColID        = "id"
	ColTenantID  = "tenant_id"
	ColIsDeleted = "is_deleted"
)

// Base holds the attributes common to all tenant-scoped entities.
// Soft-deleted rows keep IsDeleted set and are hidden from default queries.
type Base struct {
	ID         int64      `json:"id" db:"id"`
	TenantID   int64      `json:"tenant_id" db:"tenant_id"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	ModifiedAt *time.Time `json:"modified_at,omitempty" db:"modified_at"`
	IsDeleted  bool       `json:"is_deleted" db:"is_deleted"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// Meta returns the base attributes of the entity.
func (b *Base) Meta() *Base { return b }

// Column returns the value of a base column.
func (b *Base) Column(name string) (any, bool) {
	switch name {
	case ColID:
		return b.ID, true
	case ColTenantID:
		return b.TenantID, true
	case ColIsDeleted:
		return b.IsDeleted, true
	}
	return nil, false
}

// Record is implemented by pointers to entity structs embedding Base.
type Record interface {
	Meta() *Base
	// Column returns the value stored under a column name, used for
	// equality matching by backends that do not speak SQL.
	Column(name string) (any, bool)
}

// Cond is an equality predicate on a single column.
type Cond struct {
	Column string
	Value  any
}

// Eq builds an equality condition.
func Eq(column string, value any) Cond {
	return Cond{Column: column, Value: value}
}

// Matches reports whether r satisfies every condition.
func Matches(r Record, conds []Cond) bool {
	for _, c := range conds {
		v, ok := r.Column(c.Column)
		if !ok || v != c.Value {
			return false
		}
	}
	return true
}
