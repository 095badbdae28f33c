package api

import (
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/gatehouse"
	"github.com/xraph/gatehouse/user"
)

func (a *API) registerUserRoutes(router forge.Router) error {
	g := router.Group("/v1", forge.WithGroupTags("users"))

	if err := g.GET("/users", a.listUsers,
		forge.WithSummary("List users"),
		forge.WithOperationID("listUsers"),
		forge.WithRequestSchema(ListRequest{}),
		forge.WithResponseSchema(http.StatusOK, "User list", ListResponse[*user.User]{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/users/:userId/roles", a.listUserRoles,
		forge.WithSummary("List user roles"),
		forge.WithDescription("Returns the names of the roles a user holds."),
		forge.WithOperationID("listUserRoles"),
		forge.WithResponseSchema(http.StatusOK, "Role names", NamesResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/users/:userId/permissions", a.listUserPermissions,
		forge.WithSummary("List user permissions"),
		forge.WithDescription("Returns the names of the permissions a user holds through its roles."),
		forge.WithOperationID("listUserPermissions"),
		forge.WithResponseSchema(http.StatusOK, "Permission names", NamesResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.POST("/users/:userId/roles", a.assignRole,
		forge.WithSummary("Assign role"),
		forge.WithDescription("Grants a role to a user."),
		forge.WithOperationID("assignRole"),
		forge.WithRequestSchema(AssignRoleRequest{}),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.DELETE("/users/:userId/roles/:role", a.unassignRole,
		forge.WithSummary("Unassign role"),
		forge.WithDescription("Takes a role from a user."),
		forge.WithOperationID("unassignRole"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	)
}

func (a *API) listUsers(ctx forge.Context, req *ListRequest) (*ListResponse[*user.User], error) {
	if denied, err := a.guard(ctx, gatehouse.ActionManage); denied {
		return nil, err
	}
	users, err := a.eng.ListUsers(ctx.Context())
	if err != nil {
		return nil, mapError(ctx, err)
	}
	resp := page(users, req.Limit, req.Offset)
	return &resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) listUserRoles(ctx forge.Context, _ *UserRequest) (*NamesResponse, error) {
	userID, err := parseID(ctx, "userId")
	if err != nil {
		return nil, err
	}
	roles, err := a.eng.GetRolesOfUser(ctx.Context(), userID)
	if err != nil {
		return nil, mapError(ctx, err)
	}
	resp := &NamesResponse{Items: roles}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) listUserPermissions(ctx forge.Context, _ *UserRequest) (*NamesResponse, error) {
	userID, err := parseID(ctx, "userId")
	if err != nil {
		return nil, err
	}
	perms, err := a.eng.GetPermissionsOfUser(ctx.Context(), userID)
	if err != nil {
		return nil, mapError(ctx, err)
	}
	resp := &NamesResponse{Items: perms}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) assignRole(ctx forge.Context, req *AssignRoleRequest) (*struct{}, error) {
	if denied, err := a.guard(ctx, gatehouse.ActionManage); denied {
		return nil, err
	}
	userID, err := parseID(ctx, "userId")
	if err != nil {
		return nil, err
	}
	if req.Role == "" {
		return nil, forge.BadRequest("role is required")
	}

	ok, err := a.eng.AssignRoleToUser(ctx.Context(), req.Role, userID)
	if err != nil {
		return nil, mapError(ctx, err)
	}
	if err := rejected(ok, "role or user not found, or role already held"); err != nil {
		return nil, err
	}
	return nil, ctx.NoContent(http.StatusNoContent)
}

func (a *API) unassignRole(ctx forge.Context, _ *UnassignRoleRequest) (*struct{}, error) {
	if denied, err := a.guard(ctx, gatehouse.ActionManage); denied {
		return nil, err
	}
	userID, err := parseID(ctx, "userId")
	if err != nil {
		return nil, err
	}
	name, err := requireParam(ctx, "role")
	if err != nil {
		return nil, err
	}

	ok, err := a.eng.RemoveRoleFromUser(ctx.Context(), name, userID)
	if err != nil {
		return nil, mapError(ctx, err)
	}
	if err := rejected(ok, "role not held by user"); err != nil {
		return nil, err
	}
	return nil, ctx.NoContent(http.StatusNoContent)
}
