package api

import (
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/gatehouse"
	"github.com/xraph/gatehouse/auth"
	"github.com/xraph/gatehouse/middleware"
)

// AccountPaths lists the unauthenticated account endpoints, for callers
// that rate-limit them.
var AccountPaths = []string{"/v1/account/token", "/v1/account/register"}

func (a *API) registerAccountRoutes(router forge.Router) error {
	g := router.Group("/v1/account", forge.WithGroupTags("account"))

	if err := g.POST("/register", a.register,
		forge.WithSummary("Register account"),
		forge.WithDescription("Creates an account holding the default role. 409 when the username is taken."),
		forge.WithOperationID("register"),
		forge.WithRequestSchema(CredentialsRequest{}),
		forge.WithCreatedResponse(&CreatedResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.POST("/token", a.token,
		forge.WithSummary("Log in"),
		forge.WithDescription("Exchanges credentials for a bearer token."),
		forge.WithOperationID("token"),
		forge.WithRequestSchema(CredentialsRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Token", &auth.Token{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.POST("/refresh", a.refresh,
		forge.WithSummary("Refresh token"),
		forge.WithDescription("Reissues the caller's token with its current roles and permissions."),
		forge.WithOperationID("refresh"),
		forge.WithResponseSchema(http.StatusOK, "Token", &auth.Token{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.POST("/logout", a.logout,
		forge.WithSummary("Log out"),
		forge.WithDescription("Ends every session of the caller."),
		forge.WithOperationID("logout"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	)
}

func (a *API) register(ctx forge.Context, req *CredentialsRequest) (*CreatedResponse, error) {
	if req.Username == "" || req.Password == "" {
		return nil, forge.BadRequest("username and password are required")
	}

	ok, err := a.accounts.Register(ctx.Context(), req.Username, req.Password, a.defaultRole)
	if err != nil {
		return nil, mapError(ctx, err)
	}
	if !ok {
		return nil, mapError(ctx, gatehouse.ErrUserExists)
	}

	u, err := a.eng.FindUser(ctx.Context(), req.Username)
	if err != nil {
		return nil, mapError(ctx, err)
	}
	resp := &CreatedResponse{Name: req.Username}
	if u != nil {
		resp.ID = u.ID
	}
	return resp, ctx.JSON(http.StatusCreated, resp)
}

func (a *API) token(ctx forge.Context, req *CredentialsRequest) (*auth.Token, error) {
	if req.Username == "" || req.Password == "" {
		return nil, forge.BadRequest("username and password are required")
	}

	tok, err := a.accounts.Login(ctx.Context(), req.Username, req.Password)
	if err != nil {
		return nil, mapError(ctx, err)
	}
	return tok, ctx.JSON(http.StatusOK, tok)
}

func (a *API) refresh(ctx forge.Context, _ *EmptyRequest) (*auth.Token, error) {
	p, err := a.caller(ctx)
	if err != nil {
		return nil, mapError(ctx, err)
	}

	tok, err := a.accounts.Refresh(ctx.Context(), p.UserID)
	if err != nil {
		return nil, mapError(ctx, err)
	}
	return tok, ctx.JSON(http.StatusOK, tok)
}

func (a *API) logout(ctx forge.Context, _ *EmptyRequest) (*struct{}, error) {
	p, err := a.caller(ctx)
	if err != nil {
		return nil, mapError(ctx, err)
	}

	if _, err := a.accounts.Logout(ctx.Context(), p.UserID); err != nil {
		return nil, mapError(ctx, err)
	}
	return nil, ctx.NoContent(http.StatusNoContent)
}

// caller returns the authenticated principal of a request whose session is
// still valid.
func (a *API) caller(ctx forge.Context) (*gatehouse.Principal, error) {
	p := middleware.PrincipalFrom(ctx.Context())
	if p == nil || p.UserID == 0 {
		return nil, gatehouse.ErrUnauthenticated
	}
	valid, err := a.eng.ValidateSession(ctx.Context(), p)
	if err != nil {
		return nil, err
	}
	if !valid {
		return nil, gatehouse.ErrSessionExpired
	}
	return p, nil
}
