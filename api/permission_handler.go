package api

import (
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/gatehouse"
	"github.com/xraph/gatehouse/permission"
)

func (a *API) registerPermissionRoutes(router forge.Router) error {
	g := router.Group("/v1", forge.WithGroupTags("permissions"))

	if err := g.POST("/permissions", a.createPermission,
		forge.WithSummary("Create permission"),
		forge.WithDescription("Creates a new permission. \"Verb *\" names act as wildcards."),
		forge.WithOperationID("createPermission"),
		forge.WithRequestSchema(CreatePermissionRequest{}),
		forge.WithCreatedResponse(&CreatedResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.DELETE("/permissions/:permissionId", a.deletePermission,
		forge.WithSummary("Delete permission"),
		forge.WithOperationID("deletePermission"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.GET("/permissions", a.listPermissions,
		forge.WithSummary("List permissions"),
		forge.WithOperationID("listPermissions"),
		forge.WithRequestSchema(ListRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Permission list", ListResponse[*permission.Permission]{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) createPermission(ctx forge.Context, req *CreatePermissionRequest) (*CreatedResponse, error) {
	if denied, err := a.guard(ctx, gatehouse.ActionManage); denied {
		return nil, err
	}
	if req.Name == "" {
		return nil, forge.BadRequest("name is required")
	}

	permID, err := a.eng.InsertPermission(ctx.Context(), req.Name)
	if err != nil {
		return nil, mapError(ctx, err)
	}
	if permID == -1 {
		return nil, forge.BadRequest("permission name is blank or already taken")
	}

	resp := &CreatedResponse{ID: permID, Name: req.Name}
	return resp, ctx.JSON(http.StatusCreated, resp)
}

func (a *API) deletePermission(ctx forge.Context, _ *PermissionIDRequest) (*struct{}, error) {
	if denied, err := a.guard(ctx, gatehouse.ActionManage); denied {
		return nil, err
	}
	permID, err := parseID(ctx, "permissionId")
	if err != nil {
		return nil, err
	}

	ok, err := a.eng.DeletePermission(ctx.Context(), permID)
	if err != nil {
		return nil, mapError(ctx, err)
	}
	if err := rejected(ok, "permission not found"); err != nil {
		return nil, err
	}
	return nil, ctx.NoContent(http.StatusNoContent)
}

func (a *API) listPermissions(ctx forge.Context, req *ListRequest) (*ListResponse[*permission.Permission], error) {
	perms, err := a.eng.ListPermissions(ctx.Context())
	if err != nil {
		return nil, mapError(ctx, err)
	}
	resp := page(perms, req.Limit, req.Offset)
	return &resp, ctx.JSON(http.StatusOK, resp)
}
