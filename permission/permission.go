// Package permission defines the Permission entity, the RolePermission
// grant and the permission store interface.
package permission

import "github.com/xraph/gatehouse/entity"

// Column names.
const (
	ColName         = "name"
	ColRoleID       = "role_id"
	ColPermissionID = "permission_id"
)

// Permission is a named capability. A name of the form "Verb *" is a
// wildcard that satisfies any "Verb <Entity>" requirement.
type Permission struct {
	entity.Base
	Name string `json:"name" db:"name"`
}

// Column implements entity.Record.
func (p *Permission) Column(name string) (any, bool) {
	if name == ColName {
		return p.Name, true
	}
	return p.Base.Column(name)
}

// Clone returns a copy of the permission.
func (p *Permission) Clone() *Permission {
	cp := *p
	return &cp
}

// RolePermission grants a permission to a role.
type RolePermission struct {
	entity.Base
	RoleID       int64 `json:"role_id" db:"role_id"`
	PermissionID int64 `json:"permission_id" db:"permission_id"`
}

// Column implements entity.Record.
func (rp *RolePermission) Column(name string) (any, bool) {
	switch name {
	case ColRoleID:
		return rp.RoleID, true
	case ColPermissionID:
		return rp.PermissionID, true
	}
	return rp.Base.Column(name)
}

// Clone returns a copy of the grant.
func (rp *RolePermission) Clone() *RolePermission {
	cp := *rp
	return &cp
}

// Names returns the names of the given permissions in order.
func Names(perms []*Permission) []string {
	out := make([]string, len(perms))
	for i, p := range perms {
		out[i] = p.Name
	}
	return out
}
