package api

import (
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/gatehouse"
)

func (a *API) registerActionRoutes(router forge.Router) error {
	g := router.Group("/v1", forge.WithGroupTags("actions"))

	if err := g.GET("/actions", a.listActions,
		forge.WithSummary("List actions"),
		forge.WithDescription("Returns every action with at least one grant."),
		forge.WithOperationID("listActions"),
		forge.WithResponseSchema(http.StatusOK, "Action names", NamesResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/actions/:action/requirements", a.getRequirements,
		forge.WithSummary("Action requirements"),
		forge.WithDescription("Returns the roles and effective permissions an action requires."),
		forge.WithOperationID("getRequirements"),
		forge.WithResponseSchema(http.StatusOK, "Requirements", &gatehouse.Requirements{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.POST("/actions/:action/roles", a.registerRoleToAction,
		forge.WithSummary("Register role to action"),
		forge.WithDescription("Makes an action require a role. 409 when already registered."),
		forge.WithOperationID("registerActionRole"),
		forge.WithRequestSchema(GrantRoleRequest{}),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.DELETE("/actions/:action/roles/:role", a.removeRoleFromAction,
		forge.WithSummary("Remove role from action"),
		forge.WithOperationID("removeActionRole"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.POST("/actions/:action/permissions", a.registerPermissionToAction,
		forge.WithSummary("Register permission to action"),
		forge.WithDescription("Makes an action require a permission. 409 when already registered."),
		forge.WithOperationID("registerActionPermission"),
		forge.WithRequestSchema(GrantPermissionRequest{}),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.DELETE("/actions/:action/permissions/:permission", a.removePermissionFromAction,
		forge.WithSummary("Remove permission from action"),
		forge.WithOperationID("removeActionPermission"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	)
}

func (a *API) listActions(ctx forge.Context, _ *EmptyRequest) (*NamesResponse, error) {
	actions, err := a.eng.ListActions(ctx.Context())
	if err != nil {
		return nil, mapError(ctx, err)
	}
	resp := &NamesResponse{Items: actions}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) getRequirements(ctx forge.Context, _ *ActionRequest) (*gatehouse.Requirements, error) {
	name, err := requireParam(ctx, "action")
	if err != nil {
		return nil, err
	}
	req, err := a.eng.Requirements(ctx.Context(), name)
	if err != nil {
		return nil, mapError(ctx, err)
	}
	return req, ctx.JSON(http.StatusOK, req)
}

func (a *API) registerRoleToAction(ctx forge.Context, req *GrantRoleRequest) (*struct{}, error) {
	if denied, err := a.guard(ctx, gatehouse.ActionManage); denied {
		return nil, err
	}
	name, err := requireParam(ctx, "action")
	if err != nil {
		return nil, err
	}
	if req.Role == "" {
		return nil, forge.BadRequest("role is required")
	}

	ok, err := a.eng.RegisterRoleToAction(ctx.Context(), name, req.Role)
	if err != nil {
		return nil, mapError(ctx, err)
	}
	if err := rejected(ok, "role not found"); err != nil {
		return nil, err
	}
	return nil, ctx.NoContent(http.StatusNoContent)
}

func (a *API) removeRoleFromAction(ctx forge.Context, _ *RevokeRoleRequest) (*struct{}, error) {
	if denied, err := a.guard(ctx, gatehouse.ActionManage); denied {
		return nil, err
	}
	name, err := requireParam(ctx, "action")
	if err != nil {
		return nil, err
	}
	roleName, err := requireParam(ctx, "role")
	if err != nil {
		return nil, err
	}

	ok, err := a.eng.RemoveRoleFromAction(ctx.Context(), name, roleName)
	if err != nil {
		return nil, mapError(ctx, err)
	}
	if err := rejected(ok, "role not registered to action"); err != nil {
		return nil, err
	}
	return nil, ctx.NoContent(http.StatusNoContent)
}

func (a *API) registerPermissionToAction(ctx forge.Context, req *GrantPermissionRequest) (*struct{}, error) {
	if denied, err := a.guard(ctx, gatehouse.ActionManage); denied {
		return nil, err
	}
	name, err := requireParam(ctx, "action")
	if err != nil {
		return nil, err
	}
	if req.Permission == "" {
		return nil, forge.BadRequest("permission is required")
	}

	ok, err := a.eng.RegisterPermissionToAction(ctx.Context(), name, req.Permission)
	if err != nil {
		return nil, mapError(ctx, err)
	}
	if err := rejected(ok, "permission not found"); err != nil {
		return nil, err
	}
	return nil, ctx.NoContent(http.StatusNoContent)
}

func (a *API) removePermissionFromAction(ctx forge.Context, _ *RevokePermissionRequest) (*struct{}, error) {
	if denied, err := a.guard(ctx, gatehouse.ActionManage); denied {
		return nil, err
	}
	name, err := requireParam(ctx, "action")
	if err != nil {
		return nil, err
	}
	perm, err := requireParam(ctx, "permission")
	if err != nil {
		return nil, err
	}

	ok, err := a.eng.RemovePermissionFromAction(ctx.Context(), name, perm)
	if err != nil {
		return nil, mapError(ctx, err)
	}
	if err := rejected(ok, "permission not registered to action"); err != nil {
		return nil, err
	}
	return nil, ctx.NoContent(http.StatusNoContent)
}
