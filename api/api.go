// Package api provides the forge HTTP handlers of the gatehouse manager
// surface and the account endpoints.
package api

import (
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/gatehouse"
	"github.com/xraph/gatehouse/auth"
)

// API wires all gatehouse HTTP handlers together.
type API struct {
	eng         *gatehouse.Engine
	accounts    *auth.Service
	router      forge.Router
	defaultRole string
}

// Option configures the API.
type Option func(*API)

// WithAccounts enables the /v1/account endpoints.
func WithAccounts(s *auth.Service) Option { return func(a *API) { a.accounts = s } }

// WithDefaultRole sets the role granted to self-registered accounts.
func WithDefaultRole(name string) Option { return func(a *API) { a.defaultRole = name } }

// New creates an API from an Engine and a Forge router.
func New(eng *gatehouse.Engine, router forge.Router, opts ...Option) *API {
	a := &API{eng: eng, router: router, defaultRole: gatehouse.RoleUser}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Handler returns the fully assembled http.Handler with all routes.
func (a *API) Handler() http.Handler {
	if a.router == nil {
		a.router = forge.NewRouter()
	}
	if err := a.RegisterRoutes(a.router); err != nil {
		panic("gatehouse: register routes: " + err.Error())
	}
	return a.router.Handler()
}

// RegisterRoutes registers all API routes into the given Forge router.
func (a *API) RegisterRoutes(router forge.Router) error {
	registerers := []func(forge.Router) error{
		a.registerCheckRoutes,
		a.registerRoleRoutes,
		a.registerPermissionRoutes,
		a.registerUserRoutes,
		a.registerActionRoutes,
		a.registerCheckLogRoutes,
	}
	if a.accounts != nil {
		registerers = append(registerers, a.registerAccountRoutes)
	}
	for _, fn := range registerers {
		if err := fn(router); err != nil {
			return err
		}
	}
	return nil
}
