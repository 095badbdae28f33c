package api

import (
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/gatehouse"
	"github.com/xraph/gatehouse/permission"
	"github.com/xraph/gatehouse/role"
)

func (a *API) registerRoleRoutes(router forge.Router) error {
	g := router.Group("/v1", forge.WithGroupTags("roles"))

	if err := g.POST("/roles", a.createRole,
		forge.WithSummary("Create role"),
		forge.WithDescription("Creates a new role. Fails with 400 when the name is blank or taken."),
		forge.WithOperationID("createRole"),
		forge.WithRequestSchema(CreateRoleRequest{}),
		forge.WithCreatedResponse(&CreatedResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.DELETE("/roles/:roleId", a.deleteRole,
		forge.WithSummary("Delete role"),
		forge.WithDescription("Soft-deletes a role."),
		forge.WithOperationID("deleteRole"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/roles", a.listRoles,
		forge.WithSummary("List roles"),
		forge.WithOperationID("listRoles"),
		forge.WithRequestSchema(ListRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Role list", ListResponse[*role.Role]{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/roles/:role/permissions", a.listRolePermissions,
		forge.WithSummary("List role permissions"),
		forge.WithDescription("Returns the permissions a role holds. 404 when the role does not exist."),
		forge.WithOperationID("listRolePermissions"),
		forge.WithResponseSchema(http.StatusOK, "Permission list", []*permission.Permission{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.POST("/roles/:role/permissions", a.attachPermissionToRole,
		forge.WithSummary("Attach permission to role"),
		forge.WithDescription("Grants a permission to a role."),
		forge.WithOperationID("attachPermission"),
		forge.WithRequestSchema(AttachPermissionRequest{}),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.DELETE("/roles/:role/permissions/:permission", a.detachPermissionFromRole,
		forge.WithSummary("Detach permission from role"),
		forge.WithDescription("Takes a permission from a role."),
		forge.WithOperationID("detachPermission"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	)
}

func (a *API) createRole(ctx forge.Context, req *CreateRoleRequest) (*CreatedResponse, error) {
	if denied, err := a.guard(ctx, gatehouse.ActionManage); denied {
		return nil, err
	}
	if req.Name == "" {
		return nil, forge.BadRequest("name is required")
	}

	roleID, err := a.eng.InsertRole(ctx.Context(), req.Name)
	if err != nil {
		return nil, mapError(ctx, err)
	}
	if roleID == -1 {
		return nil, forge.BadRequest("role name is blank or already taken")
	}

	resp := &CreatedResponse{ID: roleID, Name: req.Name}
	return resp, ctx.JSON(http.StatusCreated, resp)
}

func (a *API) deleteRole(ctx forge.Context, _ *RoleIDRequest) (*struct{}, error) {
	if denied, err := a.guard(ctx, gatehouse.ActionManage); denied {
		return nil, err
	}
	roleID, err := parseID(ctx, "roleId")
	if err != nil {
		return nil, err
	}

	ok, err := a.eng.DeleteRole(ctx.Context(), roleID)
	if err != nil {
		return nil, mapError(ctx, err)
	}
	if err := rejected(ok, "role not found"); err != nil {
		return nil, err
	}
	return nil, ctx.NoContent(http.StatusNoContent)
}

func (a *API) listRoles(ctx forge.Context, req *ListRequest) (*ListResponse[*role.Role], error) {
	roles, err := a.eng.ListRoles(ctx.Context())
	if err != nil {
		return nil, mapError(ctx, err)
	}
	resp := page(roles, req.Limit, req.Offset)
	return &resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) listRolePermissions(ctx forge.Context, _ *RolePermissionsRequest) ([]*permission.Permission, error) {
	name, err := requireParam(ctx, "role")
	if err != nil {
		return nil, err
	}

	perms, err := a.eng.GetPermissionsOfRole(ctx.Context(), name)
	if err != nil {
		return nil, mapError(ctx, err)
	}
	if perms == nil {
		return nil, forge.NotFound("role not found")
	}
	return perms, ctx.JSON(http.StatusOK, perms)
}

func (a *API) attachPermissionToRole(ctx forge.Context, req *AttachPermissionRequest) (*struct{}, error) {
	if denied, err := a.guard(ctx, gatehouse.ActionManage); denied {
		return nil, err
	}
	name, err := requireParam(ctx, "role")
	if err != nil {
		return nil, err
	}
	if req.Permission == "" {
		return nil, forge.BadRequest("permission is required")
	}

	ok, err := a.eng.AssignPermissionToRole(ctx.Context(), req.Permission, name)
	if err != nil {
		return nil, mapError(ctx, err)
	}
	if err := rejected(ok, "role or permission not found, or already granted"); err != nil {
		return nil, err
	}
	return nil, ctx.NoContent(http.StatusNoContent)
}

func (a *API) detachPermissionFromRole(ctx forge.Context, _ *DetachPermissionRequest) (*struct{}, error) {
	if denied, err := a.guard(ctx, gatehouse.ActionManage); denied {
		return nil, err
	}
	name, err := requireParam(ctx, "role")
	if err != nil {
		return nil, err
	}
	perm, err := requireParam(ctx, "permission")
	if err != nil {
		return nil, err
	}

	ok, err := a.eng.RemovePermissionFromRole(ctx.Context(), perm, name)
	if err != nil {
		return nil, mapError(ctx, err)
	}
	if err := rejected(ok, "permission not granted to role"); err != nil {
		return nil, err
	}
	return nil, ctx.NoContent(http.StatusNoContent)
}
