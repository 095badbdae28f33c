package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/xraph/forge"

	"github.com/xraph/gatehouse"
	"github.com/xraph/gatehouse/checklog"
)

func (a *API) registerCheckLogRoutes(router forge.Router) error {
	g := router.Group("/v1", forge.WithGroupTags("check-logs"))

	return g.GET("/check-logs", a.listCheckLogs,
		forge.WithSummary("Query check logs"),
		forge.WithDescription("Returns authorization decision audit logs with optional filters."),
		forge.WithOperationID("listCheckLogs"),
		forge.WithRequestSchema(ListCheckLogsRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Check log list", ListResponse[*checklog.Entry]{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) listCheckLogs(ctx forge.Context, req *ListCheckLogsRequest) (*ListResponse[*checklog.Entry], error) {
	if denied, err := a.guard(ctx, gatehouse.ActionAudit); denied {
		return nil, err
	}

	filter := &checklog.QueryFilter{
		Action: req.Action,
		Limit:  defaultLimit(req.Limit),
		Offset: req.Offset,
	}
	if req.UserID != 0 {
		uid := req.UserID
		filter.UserID = &uid
	}
	if req.Allowed != "" {
		allowed, err := strconv.ParseBool(req.Allowed)
		if err != nil {
			return nil, forge.BadRequest("invalid allowed flag")
		}
		filter.Allowed = &allowed
	}
	if req.After != "" {
		t, err := time.Parse(time.RFC3339, req.After)
		if err != nil {
			return nil, forge.BadRequest("invalid after timestamp")
		}
		filter.After = &t
	}
	if req.Before != "" {
		t, err := time.Parse(time.RFC3339, req.Before)
		if err != nil {
			return nil, forge.BadRequest("invalid before timestamp")
		}
		filter.Before = &t
	}

	logs, total, err := a.eng.ListCheckLogs(ctx.Context(), filter)
	if err != nil {
		return nil, mapError(ctx, err)
	}

	resp := &ListResponse[*checklog.Entry]{Items: logs, Total: total, Limit: filter.Limit, Offset: filter.Offset}
	return resp, ctx.JSON(http.StatusOK, resp)
}
