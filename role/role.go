// Package role defines the Role entity, the UserRole grant and the role
// store interface.
package role

import "github.com/xraph/gatehouse/entity"

// Column names.
const (
	ColName   = "name"
	ColUserID = "user_id"
	ColRoleID = "role_id"
)

// Role is a named set of permissions that can be granted to users and
// required by actions. Names are unique per tenant.
type Role struct {
	entity.Base
	Name string `json:"name" db:"name"`
}

// Column implements entity.Record.
func (r *Role) Column(name string) (any, bool) {
	if name == ColName {
		return r.Name, true
	}
	return r.Base.Column(name)
}

// Clone returns a copy of the role.
func (r *Role) Clone() *Role {
	cp := *r
	return &cp
}

// UserRole grants a role to a user.
type UserRole struct {
	entity.Base
	UserID int64 `json:"user_id" db:"user_id"`
	RoleID int64 `json:"role_id" db:"role_id"`
}

// Column implements entity.Record.
func (ur *UserRole) Column(name string) (any, bool) {
	switch name {
	case ColUserID:
		return ur.UserID, true
	case ColRoleID:
		return ur.RoleID, true
	}
	return ur.Base.Column(name)
}

// Clone returns a copy of the grant.
func (ur *UserRole) Clone() *UserRole {
	cp := *ur
	return &cp
}
