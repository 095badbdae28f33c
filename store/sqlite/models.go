package sqlite

import (
	"encoding/json"
	"fmt"
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
	ID              int64      `grove:"id,pk"`
	TenantID        int64      `grove:"tenant_id,notnull"`
	Username        string     `grove:"username,notnull"`
	PasswordHash    string     `grove:"password_hash,notnull"`
	LoggedIn        bool       `grove:"logged_in,notnull"`
	LastLogOut      *time.Time `grove:"last_log_out"`
	CreatedAt       time.Time  `grove:"created_at,notnull"`
	ModifiedAt      *time.Time `grove:"modified_at"`
	IsDeleted       bool       `grove:"is_deleted,notnull"`
	DeletedAt       *time.Time `grove:"deleted_at"`
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
	ID              int64      `grove:"id,pk"`
	TenantID        int64      `grove:"tenant_id,notnull"`
	Name            string     `grove:"name,notnull"`
	CreatedAt       time.Time  `grove:"created_at,notnull"`
	ModifiedAt      *time.Time `grove:"modified_at"`
	IsDeleted       bool       `grove:"is_deleted,notnull"`
	DeletedAt       *time.Time `grove:"deleted_at"`
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
	ID              int64      `grove:"id,pk"`
	TenantID        int64      `grove:"tenant_id,notnull"`
	UserID          int64      `grove:"user_id,notnull"`
	RoleID          int64      `grove:"role_id,notnull"`
	CreatedAt       time.Time  `grove:"created_at,notnull"`
	ModifiedAt      *time.Time `grove:"modified_at"`
	IsDeleted       bool       `grove:"is_deleted,notnull"`
	DeletedAt       *time.Time `grove:"deleted_at"`
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
	ID              int64      `grove:"id,pk"`
	TenantID        int64      `grove:"tenant_id,notnull"`
	Name            string     `grove:"name,notnull"`
	CreatedAt       time.Time  `grove:"created_at,notnull"`
	ModifiedAt      *time.Time `grove:"modified_at"`
	IsDeleted       bool       `grove:"is_deleted,notnull"`
	DeletedAt       *time.Time `grove:"deleted_at"`
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
	ID              int64      `grove:"id,pk"`
	TenantID        int64      `grove:"tenant_id,notnull"`
	RoleID          int64      `grove:"role_id,notnull"`
	PermissionID    int64      `grove:"permission_id,notnull"`
	CreatedAt       time.Time  `grove:"created_at,notnull"`
	ModifiedAt      *time.Time `grove:"modified_at"`
	IsDeleted       bool       `grove:"is_deleted,notnull"`
	DeletedAt       *time.Time `grove:"deleted_at"`
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
	ID              int64      `grove:"id,pk"`
	TenantID        int64      `grove:"tenant_id,notnull"`
	ActionName      string     `grove:"action_name,notnull"`
	RoleID          int64      `grove:"role_id,notnull"`
	CreatedAt       time.Time  `grove:"created_at,notnull"`
	ModifiedAt      *time.Time `grove:"modified_at"`
	IsDeleted       bool       `grove:"is_deleted,notnull"`
	DeletedAt       *time.Time `grove:"deleted_at"`
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
	ID              int64      `grove:"id,pk"`
	TenantID        int64      `grove:"tenant_id,notnull"`
	ActionName      string     `grove:"action_name,notnull"`
	PermissionID    int64      `grove:"permission_id,notnull"`
	CreatedAt       time.Time  `grove:"created_at,notnull"`
	ModifiedAt      *time.Time `grove:"modified_at"`
	IsDeleted       bool       `grove:"is_deleted,notnull"`
	DeletedAt       *time.Time `grove:"deleted_at"`
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
	ID                 string    `grove:"id,pk"`
	TenantID           int64     `grove:"tenant_id,notnull"`
	UserID             int64     `grove:"user_id,notnull"`
	Username           string    `grove:"username"`
	Action             string    `grove:"action,notnull"`
	Allowed            bool      `grove:"allowed,notnull"`
	Require            string    `grove:"require"`
	MissingRoles       string    `grove:"missing_roles"`       // JSON text
	MissingPermissions string    `grove:"missing_permissions"` // JSON text
	EvalTimeNs         int64     `grove:"eval_time_ns,notnull"`
	RequestIP          string    `grove:"request_ip"`
	CreatedAt          time.Time `grove:"created_at,notnull"`
}

func checkLogToModel(e *checklog.Entry) (*checkLogModel, error) {
	roles, err := json.Marshal(nonNil(e.MissingRoles))
	if err != nil {
		return nil, fmt.Errorf("marshal check log missing roles: %w", err)
	}
	perms, err := json.Marshal(nonNil(e.MissingPermissions))
	if err != nil {
		return nil, fmt.Errorf("marshal check log missing permissions: %w", err)
	}
	return &checkLogModel{
		ID:                 e.ID.String(),
		TenantID:           e.TenantID,
		UserID:             e.UserID,
		Username:           e.Username,
		Action:             e.Action,
		Allowed:            e.Allowed,
		Require:            e.Require,
		MissingRoles:       string(roles),
		MissingPermissions: string(perms),
		EvalTimeNs:         e.EvalTimeNs,
		RequestIP:          e.RequestIP,
		CreatedAt:          e.CreatedAt,
	}, nil
}

func checkLogFromModel(m *checkLogModel) (*checklog.Entry, error) {
	clid, _ := id.ParseCheckLogID(m.ID) //nolint:errcheck // stored IDs are always valid
	var roles, perms []string
	if m.MissingRoles != "" {
		if err := json.Unmarshal([]byte(m.MissingRoles), &roles); err != nil {
			return nil, fmt.Errorf("unmarshal check log missing roles: %w", err)
		}
	}
	if m.MissingPermissions != "" {
		if err := json.Unmarshal([]byte(m.MissingPermissions), &perms); err != nil {
			return nil, fmt.Errorf("unmarshal check log missing permissions: %w", err)
		}
	}
	return &checklog.Entry{
		ID:                 clid,
		TenantID:           m.TenantID,
		UserID:             m.UserID,
		Username:           m.Username,
		Action:             m.Action,
		Allowed:            m.Allowed,
		Require:            m.Require,
		MissingRoles:       roles,
		MissingPermissions: perms,
		EvalTimeNs:         m.EvalTimeNs,
		RequestIP:          m.RequestIP,
		CreatedAt:          m.CreatedAt,
	}, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
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
