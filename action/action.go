// Package action defines the action grant entities that map a protected
// operation, addressed by a stable string key, to the roles and permissions
// allowed to invoke it.
package action

import (
	"errors"

	"github.com/xraph/gatehouse/entity"
)

// Column names.
const (
	ColActionName   = "action_name"
	ColRoleID       = "role_id"
	ColPermissionID = "permission_id"
)

// ErrAlreadyAssigned is returned when an identical action grant exists.
var ErrAlreadyAssigned = errors.New("gatehouse: already assigned")

// ActionRole states that an action accepts callers holding a role.
type ActionRole struct {
	entity.Base
	ActionName string `json:"action_name" db:"action_name"`
	RoleID     int64  `json:"role_id" db:"role_id"`
}

// Column implements entity.Record.
func (ar *ActionRole) Column(name string) (any, bool) {
	switch name {
	case ColActionName:
		return ar.ActionName, true
	case ColRoleID:
		return ar.RoleID, true
	}
	return ar.Base.Column(name)
}

// Clone returns a copy of the grant.
func (ar *ActionRole) Clone() *ActionRole {
	cp := *ar
	return &cp
}

// ActionPermission states that an action accepts callers holding a
// permission directly.
type ActionPermission struct {
	entity.Base
	ActionName   string `json:"action_name" db:"action_name"`
	PermissionID int64  `json:"permission_id" db:"permission_id"`
}

// Column implements entity.Record.
func (ap *ActionPermission) Column(name string) (any, bool) {
	switch name {
	case ColActionName:
		return ap.ActionName, true
	case ColPermissionID:
		return ap.PermissionID, true
	}
	return ap.Base.Column(name)
}

// Clone returns a copy of the grant.
func (ap *ActionPermission) Clone() *ActionPermission {
	cp := *ap
	return &cp
}
