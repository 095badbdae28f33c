package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/xraph/forge"

	"github.com/xraph/gatehouse"
	"github.com/xraph/gatehouse/auth"
	"github.com/xraph/gatehouse/middleware"
)

// mapError maps domain errors to Forge HTTP errors. Conflicts and
// authentication failures are written directly since forge has no error
// value for them here.
func mapError(ctx forge.Context, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case isNotFound(err):
		return forge.NotFound(err.Error())
	case errors.Is(err, gatehouse.ErrAlreadyAssigned), errors.Is(err, gatehouse.ErrUserExists):
		return ctx.JSON(http.StatusConflict, &ErrorResponse{Error: err.Error()})
	case errors.Is(err, gatehouse.ErrUnauthenticated),
		errors.Is(err, gatehouse.ErrInvalidCredentials),
		errors.Is(err, gatehouse.ErrSessionExpired),
		errors.Is(err, auth.ErrInvalidToken):
		return ctx.JSON(http.StatusUnauthorized, &ErrorResponse{Error: err.Error()})
	case errors.Is(err, gatehouse.ErrAccessDenied):
		return forge.Forbidden(err.Error())
	case errors.Is(err, gatehouse.ErrNoTenant), errors.Is(err, gatehouse.ErrInvalidName):
		return forge.BadRequest(err.Error())
	}
	return err
}

func isNotFound(err error) bool {
	return errors.Is(err, gatehouse.ErrNotFound) ||
		errors.Is(err, gatehouse.ErrRoleNotFound) ||
		errors.Is(err, gatehouse.ErrPermissionNotFound) ||
		errors.Is(err, gatehouse.ErrUserNotFound)
}

// guard runs the session gate and then the gate of action for the caller.
// When the caller is rejected the response has already been written and
// denied is true.
func (a *API) guard(ctx forge.Context, action string) (denied bool, err error) {
	p := middleware.PrincipalFrom(ctx.Context())
	valid, err := a.eng.ValidateSession(ctx.Context(), p)
	if err != nil {
		return true, mapError(ctx, err)
	}
	if !valid {
		return true, mapError(ctx, gatehouse.ErrSessionExpired)
	}
	d, err := a.eng.Authorize(ctx.Context(), p, action)
	if err != nil {
		return true, mapError(ctx, err)
	}
	if d.Allowed {
		return false, nil
	}
	return true, ctx.JSON(http.StatusUnauthorized, middleware.NewDenial(d))
}

// rejected turns a false manager result into a 400.
func rejected(ok bool, msg string) error {
	if ok {
		return nil
	}
	return forge.BadRequest(msg)
}

func parseID(ctx forge.Context, param string) (int64, error) {
	v, err := strconv.ParseInt(ctx.Param(param), 10, 64)
	if err != nil || v <= 0 {
		return 0, forge.BadRequest("invalid " + param)
	}
	return v, nil
}

func requireParam(ctx forge.Context, param string) (string, error) {
	v := ctx.Param(param)
	if v == "" {
		return "", forge.BadRequest(param + " is required")
	}
	return v, nil
}

func defaultLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}

func page[T any](items []T, limit, offset int) ListResponse[T] {
	total := int64(len(items))
	limit = defaultLimit(limit)
	if offset < 0 {
		offset = 0
	}
	if offset > len(items) {
		offset = len(items)
	}
	end := min(offset+limit, len(items))
	return ListResponse[T]{Items: items[offset:end], Total: total, Limit: limit, Offset: offset}
}
