package api

// ──────────────────────────────────────────────────
// Check requests
// ──────────────────────────────────────────────────

// CheckRequest asks whether the caller may run an action.
type CheckRequest struct {
	Action string `json:"action" description:"Action name"`
}

// StaticCheckRequest asks whether the caller holds roles or permissions.
type StaticCheckRequest struct {
	Roles       []string `json:"roles,omitempty" description:"Roles that must all be held"`
	Permissions []string `json:"permissions,omitempty" description:"Permissions to check"`
	Require     string   `json:"require,omitempty" description:"all (default) or any; any applies to permissions only"`
}

// ──────────────────────────────────────────────────
// Role and permission requests
// ──────────────────────────────────────────────────

// CreateRoleRequest is the body for creating a role.
type CreateRoleRequest struct {
	Name string `json:"name" description:"Role name, unique within the tenant"`
}

// RoleIDRequest is the path parameter of a role.
type RoleIDRequest struct {
	RoleID string `path:"roleId" description:"Role ID"`
}

// RolePermissionsRequest is the path parameter of a role's permission list.
type RolePermissionsRequest struct {
	Role string `path:"role" description:"Role name"`
}

// AttachPermissionRequest is the body for granting a permission to a role.
type AttachPermissionRequest struct {
	Permission string `json:"permission" description:"Permission name"`
}

// DetachPermissionRequest holds the path parameters for taking a
// permission from a role.
type DetachPermissionRequest struct {
	Role       string `path:"role" description:"Role name"`
	Permission string `path:"permission" description:"Permission name"`
}

// CreatePermissionRequest is the body for creating a permission.
type CreatePermissionRequest struct {
	Name string `json:"name" description:"Permission name, e.g. \"ManageRoles\" or \"Read *\""`
}

// PermissionIDRequest is the path parameter of a permission.
type PermissionIDRequest struct {
	PermissionID string `path:"permissionId" description:"Permission ID"`
}

// ListRequest holds paging query parameters.
type ListRequest struct {
	Limit  int `query:"limit" description:"Maximum results (default: 50)"`
	Offset int `query:"offset" description:"Results to skip"`
}

// ──────────────────────────────────────────────────
// User grant requests
// ──────────────────────────────────────────────────

// UserRequest is the path parameter of a user.
type UserRequest struct {
	UserID string `path:"userId" description:"User ID"`
}

// AssignRoleRequest is the body for granting a role to a user.
type AssignRoleRequest struct {
	Role string `json:"role" description:"Role name"`
}

// UnassignRoleRequest holds the path parameters for taking a role from a
// user.
type UnassignRoleRequest struct {
	UserID string `path:"userId" description:"User ID"`
	Role   string `path:"role" description:"Role name"`
}

// ──────────────────────────────────────────────────
// Action grant requests
// ──────────────────────────────────────────────────

// ActionRequest is the path parameter of an action.
type ActionRequest struct {
	Action string `path:"action" description:"Action name"`
}

// GrantRoleRequest is the body for registering a role to an action.
type GrantRoleRequest struct {
	Role string `json:"role" description:"Role name"`
}

// GrantPermissionRequest is the body for registering a permission to an
// action.
type GrantPermissionRequest struct {
	Permission string `json:"permission" description:"Permission name"`
}

// RevokeRoleRequest holds the path parameters for retracting a role grant.
type RevokeRoleRequest struct {
	Action string `path:"action" description:"Action name"`
	Role   string `path:"role" description:"Role name"`
}

// RevokePermissionRequest holds the path parameters for retracting a
// permission grant.
type RevokePermissionRequest struct {
	Action     string `path:"action" description:"Action name"`
	Permission string `path:"permission" description:"Permission name"`
}

// ──────────────────────────────────────────────────
// Check log requests
// ──────────────────────────────────────────────────

// ListCheckLogsRequest holds query parameters for listing check logs.
type ListCheckLogsRequest struct {
	UserID  int64  `query:"user_id" description:"Filter by user ID"`
	Action  string `query:"action" description:"Filter by action"`
	Allowed string `query:"allowed" description:"Filter by outcome (true or false)"`
	After   string `query:"after" description:"RFC3339 lower bound"`
	Before  string `query:"before" description:"RFC3339 upper bound"`
	Limit   int    `query:"limit" description:"Maximum results (default: 50)"`
	Offset  int    `query:"offset" description:"Results to skip"`
}

// ──────────────────────────────────────────────────
// Account requests
// ──────────────────────────────────────────────────

// CredentialsRequest is the body of the register and token endpoints.
type CredentialsRequest struct {
	Username string `json:"username" description:"Account name"`
	Password string `json:"password" description:"Account password"`
}

// EmptyRequest is used by endpoints without input.
type EmptyRequest struct{}
