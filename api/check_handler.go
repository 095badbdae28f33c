package api

import (
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/gatehouse"
	"github.com/xraph/gatehouse/middleware"
)

// SessionResponse reports whether the caller's session is still valid.
type SessionResponse struct {
	Valid     bool                  `json:"valid" description:"Whether the caller's token passes the session gate"`
	Principal *gatehouse.Principal `json:"principal,omitempty" description:"Claims of the caller"`
}

func (a *API) registerCheckRoutes(router forge.Router) error {
	g := router.Group("/v1", forge.WithGroupTags("authorization"))

	if err := g.POST("/check", a.check,
		forge.WithSummary("Authorization check"),
		forge.WithDescription("Runs the role/permission gate of an action for the caller."),
		forge.WithOperationID("check"),
		forge.WithRequestSchema(CheckRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Decision", &gatehouse.Decision{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.POST("/check/static", a.checkStatic,
		forge.WithSummary("Static role/permission check"),
		forge.WithDescription("Checks the caller against explicit roles and permissions."),
		forge.WithOperationID("checkStatic"),
		forge.WithRequestSchema(StaticCheckRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Decision", &gatehouse.Decision{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.GET("/session", a.session,
		forge.WithSummary("Session status"),
		forge.WithDescription("Reports whether the caller's token predates a logout."),
		forge.WithOperationID("session"),
		forge.WithResponseSchema(http.StatusOK, "Session status", SessionResponse{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) check(ctx forge.Context, req *CheckRequest) (*gatehouse.Decision, error) {
	if req.Action == "" {
		return nil, forge.BadRequest("action is required")
	}

	d, err := a.eng.Authorize(ctx.Context(), middleware.PrincipalFrom(ctx.Context()), req.Action)
	if err != nil {
		return nil, mapError(ctx, err)
	}
	return d, ctx.JSON(http.StatusOK, d)
}

func (a *API) checkStatic(ctx forge.Context, req *StaticCheckRequest) (*gatehouse.Decision, error) {
	p := middleware.PrincipalFrom(ctx.Context())

	var (
		d   *gatehouse.Decision
		err error
	)
	switch gatehouse.Require(req.Require) {
	case gatehouse.RequireAny:
		if len(req.Roles) > 0 {
			return nil, forge.BadRequest("require=any applies to permissions only")
		}
		d, err = a.eng.CheckAnyPermission(ctx.Context(), p, req.Permissions...)
	case gatehouse.RequireAll, "":
		d, err = a.checkAll(ctx, p, req)
	default:
		return nil, forge.BadRequest("require must be all or any")
	}
	if err != nil {
		return nil, mapError(ctx, err)
	}
	return d, ctx.JSON(http.StatusOK, d)
}

func (a *API) checkAll(ctx forge.Context, p *gatehouse.Principal, req *StaticCheckRequest) (*gatehouse.Decision, error) {
	roles, err := a.eng.CheckRoles(ctx.Context(), p, req.Roles...)
	if err != nil {
		return nil, err
	}
	perms, err := a.eng.CheckPermissions(ctx.Context(), p, req.Permissions...)
	if err != nil {
		return nil, err
	}
	return &gatehouse.Decision{
		Allowed:            roles.Allowed && perms.Allowed,
		MissingRoles:       roles.MissingRoles,
		MissingPermissions: perms.MissingPermissions,
		Require:            gatehouse.RequireAll,
		EvalTimeNs:         roles.EvalTimeNs + perms.EvalTimeNs,
	}, nil
}

func (a *API) session(ctx forge.Context, _ *EmptyRequest) (*SessionResponse, error) {
	p := middleware.PrincipalFrom(ctx.Context())
	valid, err := a.eng.ValidateSession(ctx.Context(), p)
	if err != nil {
		return nil, mapError(ctx, err)
	}
	resp := &SessionResponse{Valid: valid, Principal: p}
	return resp, ctx.JSON(http.StatusOK, resp)
}
