package mongo

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/gatehouse/action"
	"github.com/xraph/gatehouse/checklog"
	"github.com/xraph/gatehouse/entity"
	"github.com/xraph/gatehouse/id"
	"github.com/xraph/gatehouse/permission"
	"github.com/xraph/gatehouse/role"
	"github.com/xraph/gatehouse/user"
)

// ──────────────────────────────────────────────────
// User model
// ──────────────────────────────────────────────────

type userModel struct {
	grove.BaseModel `grove:"table:gatehouse_users"`
	ID              int64      `grove:"id,pk" bson:"_id"`
	TenantID        int64      `grove:"tenant_id" bson:"tenant_id"`
	Username        string     `grove:"username" bson:"username"`
	PasswordHash    string     `grove:"password_hash" bson:"password_hash"`
	LoggedIn        bool       `grove:"logged_in" bson:"logged_in"`
	LastLogOut      *time.Time `grove:"last_log_out" bson:"last_log_out,omitempty"`
	CreatedAt       time.Time  `grove:"created_at" bson:"created_at"`
	ModifiedAt      *time.Time `grove:"modified_at" bson:"modified_at,omitempty"`
	IsDeleted       bool       `grove:"is_deleted" bson:"is_deleted"`
	DeletedAt       *time.Time `grove:"deleted_at" bson:"deleted_at,omitempty"`
}

func userToModel(u *user.User) *userModel {
	return &userModel{
		ID:           u.ID,
		TenantID:     u.TenantID,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		LoggedIn:     u.LoggedIn,
		LastLogOut:   u.LastLogOut,
		CreatedAt:    u.CreatedAt,
		ModifiedAt:   u.ModifiedAt,
		IsDeleted:    u.IsDeleted,
		DeletedAt:    u.DeletedAt,
	}
}

func userFromModel(m *userModel) *user.User {
	return &user.User{
		Base:         base(m.ID, m.TenantID, m.CreatedAt, m.ModifiedAt, m.IsDeleted, m.DeletedAt),
		Username:     m.Username,
		PasswordHash: m.PasswordHash,
		LoggedIn:     m.LoggedIn,
		LastLogOut:   m.LastLogOut,
	}
}

// ──────────────────────────────────────────────────
// Role models
// ──────────────────────────────────────────────────

type roleModel struct {
	grove.BaseModel `grove:"table:gatehouse_roles"`
	ID              int64      `grove:"id,pk" bson:"_id"`
	TenantID        int64      `grove:"tenant_id" bson:"tenant_id"`
	Name            string     `grove:"name" bson:"name"`
	CreatedAt       time.Time  `grove:"created_at" bson:"created_at"`
	ModifiedAt      *time.Time `grove:"modified_at" bson:"modified_at,omitempty"`
	IsDeleted       bool       `grove:"is_deleted" bson:"is_deleted"`
	DeletedAt       *time.Time `grove:"deleted_at" bson:"deleted_at,omitempty"`
}

func roleToModel(r *role.Role) *roleModel {
	return &roleModel{
		ID:         r.ID,
		TenantID:   r.TenantID,
		Name:       r.Name,
		CreatedAt:  r.CreatedAt,
		ModifiedAt: r.ModifiedAt,
		IsDeleted:  r.IsDeleted,
		DeletedAt:  r.DeletedAt,
	}
}

func roleFromModel(m *roleModel) *role.Role {
	return &role.Role{
		Base: base(m.ID, m.TenantID, m.CreatedAt, m.ModifiedAt, m.IsDeleted, m.DeletedAt),
		Name: m.Name,
	}
}

type userRoleModel struct {
	grove.BaseModel `grove:"table:gatehouse_user_roles"`
	ID              int64      `grove:"id,pk" bson:"_id"`
	TenantID        int64      `grove:"tenant_id" bson:"tenant_id"`
	UserID          int64      `grove:"user_id" bson:"user_id"`
	RoleID          int64      `grove:"role_id" bson:"role_id"`
	CreatedAt       time.Time  `grove:"created_at" bson:"created_at"`
	ModifiedAt      *time.Time `grove:"modified_at" bson:"modified_at,omitempty"`
	IsDeleted       bool       `grove:"is_deleted" bson:"is_deleted"`
	DeletedAt       *time.Time `grove:"deleted_at" bson:"deleted_at,omitempty"`
}

func userRoleToModel(ur *role.UserRole) *userRoleModel {
	return &userRoleModel{
		ID:         ur.ID,
		TenantID:   ur.TenantID,
		UserID:     ur.UserID,
		RoleID:     ur.RoleID,
		CreatedAt:  ur.CreatedAt,
		ModifiedAt: ur.ModifiedAt,
		IsDeleted:  ur.IsDeleted,
		DeletedAt:  ur.DeletedAt,
	}
}

func userRoleFromModel(m *userRoleModel) *role.UserRole {
	return &role.UserRole{
		Base:   base(m.ID, m.TenantID, m.CreatedAt, m.ModifiedAt, m.IsDeleted, m.DeletedAt),
		UserID: m.UserID,
		RoleID: m.RoleID,
	}
}

// ──────────────────────────────────────────────────
// Permission models
// ──────────────────────────────────────────────────

type permissionModel struct {
	grove.BaseModel `grove:"table:gatehouse_permissions"`
	ID              int64      `grove:"id,pk" bson:"_id"`
	TenantID        int64      `grove:"tenant_id" bson:"tenant_id"`
	Name            string     `grove:"name" bson:"name"`
	CreatedAt       time.Time  `grove:"created_at" bson:"created_at"`
	ModifiedAt      *time.Time `grove:"modified_at" bson:"modified_at,omitempty"`
	IsDeleted       bool       `grove:"is_deleted" bson:"is_deleted"`
	DeletedAt       *time.Time `grove:"deleted_at" bson:"deleted_at,omitempty"`
}

func permissionToModel(p *permission.Permission) *permissionModel {
	return &permissionModel{
		ID:         p.ID,
		TenantID:   p.TenantID,
		Name:       p.Name,
		CreatedAt:  p.CreatedAt,
		ModifiedAt: p.ModifiedAt,
		IsDeleted:  p.IsDeleted,
		DeletedAt:  p.DeletedAt,
	}
}

func permissionFromModel(m *permissionModel) *permission.Permission {
	return &permission.Permission{
		Base: base(m.ID, m.TenantID, m.CreatedAt, m.ModifiedAt, m.IsDeleted, m.DeletedAt),
		Name: m.Name,
	}
}

type rolePermissionModel struct {
	grove.BaseModel `grove:"table:gatehouse_role_permissions"`
	ID              int64      `grove:"id,pk" bson:"_id"`
	TenantID        int64      `grove:"tenant_id" bson:"tenant_id"`
	RoleID          int64      `grove:"role_id" bson:"role_id"`
	PermissionID    int64      `grove:"permission_id" bson:"permission_id"`
	CreatedAt       time.Time  `grove:"created_at" bson:"created_at"`
	ModifiedAt      *time.Time `grove:"modified_at" bson:"modified_at,omitempty"`
	IsDeleted       bool       `grove:"is_deleted" bson:"is_deleted"`
	DeletedAt       *time.Time `grove:"deleted_at" bson:"deleted_at,omitempty"`
}

func rolePermissionToModel(rp *permission.RolePermission) *rolePermissionModel {
	return &rolePermissionModel{
		ID:           rp.ID,
		TenantID:     rp.TenantID,
		RoleID:       rp.RoleID,
		PermissionID: rp.PermissionID,
		CreatedAt:    rp.CreatedAt,
		ModifiedAt:   rp.ModifiedAt,
		IsDeleted:    rp.IsDeleted,
		DeletedAt:    rp.DeletedAt,
	}
}

func rolePermissionFromModel(m *rolePermissionModel) *permission.RolePermission {
	return &permission.RolePermission{
		Base:         base(m.ID, m.TenantID, m.CreatedAt, m.ModifiedAt, m.IsDeleted, m.DeletedAt),
		RoleID:       m.RoleID,
		PermissionID: m.PermissionID,
	}
}

// ──────────────────────────────────────────────────
// Action grant models
// ──────────────────────────────────────────────────

type actionRoleModel struct {
	grove.BaseModel `grove:"table:gatehouse_action_roles"`
	ID              int64      `grove:"id,pk" bson:"_id"`
	TenantID        int64      `grove:"tenant_id" bson:"tenant_id"`
	ActionName      string     `grove:"action_name" bson:"action_name"`
	RoleID          int64      `grove:"role_id" bson:"role_id"`
	CreatedAt       time.Time  `grove:"created_at" bson:"created_at"`
	ModifiedAt      *time.Time `grove:"modified_at" bson:"modified_at,omitempty"`
	IsDeleted       bool       `grove:"is_deleted" bson:"is_deleted"`
	DeletedAt       *time.Time `grove:"deleted_at" bson:"deleted_at,omitempty"`
}

func actionRoleToModel(ar *action.ActionRole) *actionRoleModel {
	return &actionRoleModel{
		ID:         ar.ID,
		TenantID:   ar.TenantID,
		ActionName: ar.ActionName,
		RoleID:     ar.RoleID,
		CreatedAt:  ar.CreatedAt,
		ModifiedAt: ar.ModifiedAt,
		IsDeleted:  ar.IsDeleted,
		DeletedAt:  ar.DeletedAt,
	}
}

func actionRoleFromModel(m *actionRoleModel) *action.ActionRole {
	return &action.ActionRole{
		Base:       base(m.ID, m.TenantID, m.CreatedAt, m.ModifiedAt, m.IsDeleted, m.DeletedAt),
		ActionName: m.ActionName,
		RoleID:     m.RoleID,
	}
}

type actionPermissionModel struct {
	grove.BaseModel `grove:"table:gatehouse_action_permissions"`
	ID              int64      `grove:"id,pk" bson:"_id"`
	TenantID        int64      `grove:"tenant_id" bson:"tenant_id"`
	ActionName      string     `grove:"action_name" bson:"action_name"`
	PermissionID    int64      `grove:"permission_id" bson:"permission_id"`
	CreatedAt       time.Time  `grove:"created_at" bson:"created_at"`
	ModifiedAt      *time.Time `grove:"modified_at" bson:"modified_at,omitempty"`
	IsDeleted       bool       `grove:"is_deleted" bson:"is_deleted"`
	DeletedAt       *time.Time `grove:"deleted_at" bson:"deleted_at,omitempty"`
}

func actionPermissionToModel(ap *action.ActionPermission) *actionPermissionModel {
	return &actionPermissionModel{
		ID:           ap.ID,
		TenantID:     ap.TenantID,
		ActionName:   ap.ActionName,
		PermissionID: ap.PermissionID,
		CreatedAt:    ap.CreatedAt,
		ModifiedAt:   ap.ModifiedAt,
		IsDeleted:    ap.IsDeleted,
		DeletedAt:    ap.DeletedAt,
	}
}

func actionPermissionFromModel(m *actionPermissionModel) *action.ActionPermission {
	return &action.ActionPermission{
		Base:         base(m.ID, m.TenantID, m.CreatedAt, m.ModifiedAt, m.IsDeleted, m.DeletedAt),
		ActionName:   m.ActionName,
		PermissionID: m.PermissionID,
	}
}

// ──────────────────────────────────────────────────
// Check log model
// ──────────────────────────────────────────────────

type checkLogModel struct {
	grove.BaseModel    `grove:"table:gatehouse_check_logs"`
	ID                 string    `grove:"id,pk" bson:"_id"`
	TenantID           int64     `grove:"tenant_id" bson:"tenant_id"`
	UserID             int64     `grove:"user_id" bson:"user_id"`
	Username           string    `grove:"username" bson:"username"`
	Action             string    `grove:"action" bson:"action"`
	Allowed            bool      `grove:"allowed" bson:"allowed"`
	Require            string    `grove:"require" bson:"require"`
	MissingRoles       []string  `grove:"missing_roles" bson:"missing_roles"`
	MissingPermissions []string  `grove:"missing_permissions" bson:"missing_permissions"`
	EvalTimeNs         int64     `grove:"eval_time_ns" bson:"eval_time_ns"`
	RequestIP          string    `grove:"request_ip" bson:"request_ip"`
	CreatedAt          time.Time `grove:"created_at" bson:"created_at"`
}

func checkLogToModel(e *checklog.Entry) *checkLogModel {
	return &checkLogModel{
		ID:                 e.ID.String(),
		TenantID:           e.TenantID,
		UserID:             e.UserID,
		Username:           e.Username,
		Action:             e.Action,
		Allowed:            e.Allowed,
		Require:            e.Require,
		MissingRoles:       e.MissingRoles,
		MissingPermissions: e.MissingPermissions,
		EvalTimeNs:         e.EvalTimeNs,
		RequestIP:          e.RequestIP,
		CreatedAt:          e.CreatedAt,
	}
}

func checkLogFromModel(m *checkLogModel) *checklog.Entry {
	clid, _ := id.ParseCheckLogID(m.ID) //nolint:errcheck // stored IDs are always valid
	return &checklog.Entry{
		ID:                 clid,
		TenantID:           m.TenantID,
		UserID:             m.UserID,
		Username:           m.Username,
		Action:             m.Action,
		Allowed:            m.Allowed,
		Require:            m.Require,
		MissingRoles:       m.MissingRoles,
		MissingPermissions: m.MissingPermissions,
		EvalTimeNs:         m.EvalTimeNs,
		RequestIP:          m.RequestIP,
		CreatedAt:          m.CreatedAt,
	}
}

func base(rowID, tenantID int64, created time.Time, modified *time.Time, deleted bool, deletedAt *time.Time) entity.Base {
	return entity.Base{
		ID:         rowID,
		TenantID:   tenantID,
		CreatedAt:  created,
		ModifiedAt: modified,
		IsDeleted:  deleted,
		DeletedAt:  deletedAt,
	}
}
