// Package extension provides a Forge extension entry point for gatehouse.
package extension

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"

	"github.com/xraph/forge"
	"github.com/xraph/grove"
	"github.com/xraph/vessel"

	"github.com/xraph/gatehouse"
	"github.com/xraph/gatehouse/api"
	"github.com/xraph/gatehouse/auth"
	"github.com/xraph/gatehouse/cache"
	"github.com/xraph/gatehouse/metrics"
	"github.com/xraph/gatehouse/middleware"
	"github.com/xraph/gatehouse/plugin"
	"github.com/xraph/gatehouse/store"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "gatehouse"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Multi-tenant role, permission and action authorization"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts gatehouse as a Forge extension.
type Extension struct {
	config     Config
	store      store.Store
	eng        *gatehouse.Engine
	accounts   *auth.Service
	apiHandler *api.API
	logger     *slog.Logger
	engineOpts []gatehouse.Option
	plugins    []plugin.Plugin
	seeder     *gatehouse.Seeder
	proxies    []netip.Prefix
}

// New creates a gatehouse Forge extension with the given options.
func New(opts ...ExtOption) *Extension {
	e := &Extension{config: DefaultConfig()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns the extension name.
func (e *Extension) Name() string { return ExtensionName }

// Description returns the extension description.
func (e *Extension) Description() string { return ExtensionDescription }

// Version returns the extension version.
func (e *Extension) Version() string { return ExtensionVersion }

// Dependencies returns the list of extension names this extension depends on.
func (e *Extension) Dependencies() []string { return []string{} }

// Engine returns the underlying engine.
func (e *Extension) Engine() *gatehouse.Engine { return e.eng }

// Accounts returns the account service, or nil when no secret is configured.
func (e *Extension) Accounts() *auth.Service { return e.accounts }

// API returns the API handler.
func (e *Extension) API() *api.API { return e.apiHandler }

// Register implements [forge.Extension]. It initializes the engine,
// registers it in the DI container, and optionally registers HTTP routes.
func (e *Extension) Register(fapp forge.App) error {
	c := fapp.Container()
	err := e.init(fapp.Router(), &injector{
		store: func() (store.Store, error) { return forge.Inject[store.Store](c) },
		db:    func() (*grove.DB, error) { return forge.Inject[*grove.DB](c) },
	})
	if err != nil {
		return err
	}

	if err := vessel.Provide(fapp.Container(), func() (*gatehouse.Engine, error) {
		return e.eng, nil
	}); err != nil {
		return fmt.Errorf("gatehouse: register engine in container: %w", err)
	}
	if e.accounts != nil {
		if err := vessel.Provide(fapp.Container(), func() (*auth.Service, error) {
			return e.accounts, nil
		}); err != nil {
			return fmt.Errorf("gatehouse: register accounts in container: %w", err)
		}
	}

	if !e.config.DisableRoutes {
		if err := e.apiHandler.RegisterRoutes(fapp.Router()); err != nil {
			return fmt.Errorf("gatehouse: register routes: %w", err)
		}
	}
	return nil
}

// Init builds the engine without a Forge app, for standalone servers.
func (e *Extension) Init() error {
	return e.init(nil, nil)
}

func (e *Extension) init(router forge.Router, inj *injector) error {
	logger := e.logger
	if logger == nil {
		logger = slog.Default()
	}

	proxies, err := middleware.ParseTrustedProxies(e.config.TrustedProxies)
	if err != nil {
		return fmt.Errorf("gatehouse: %w", err)
	}
	e.proxies = proxies

	s, err := e.resolveStore(inj, logger)
	if err != nil {
		return err
	}

	opts := make([]gatehouse.Option, 0, len(e.engineOpts)+len(e.plugins)+5)
	opts = append(opts,
		gatehouse.WithLogger(logger),
		gatehouse.WithConfig(e.config.Engine),
		gatehouse.WithStore(s),
	)
	if e.config.CacheSize > 0 && e.config.Engine.CacheTTL > 0 {
		opts = append(opts, gatehouse.WithCache(cache.NewMemory(
			cache.WithTTL(e.config.Engine.CacheTTL),
			cache.WithMaxSize(e.config.CacheSize),
		)))
	}
	opts = append(opts, e.engineOpts...)

	if e.config.EnableMetrics {
		opts = append(opts, gatehouse.WithPlugin(metrics.New(nil)))
	}
	for _, x := range e.plugins {
		opts = append(opts, gatehouse.WithPlugin(x))
	}

	eng, err := gatehouse.NewEngine(opts...)
	if err != nil {
		return fmt.Errorf("gatehouse: create engine: %w", err)
	}
	e.eng = eng

	apiOpts := []api.Option{api.WithDefaultRole(e.config.DefaultRole)}
	if e.config.Auth.Secret != "" {
		issuer, err := auth.NewIssuer(e.config.Auth)
		if err != nil {
			return fmt.Errorf("gatehouse: create issuer: %w", err)
		}
		e.accounts = auth.NewService(eng, issuer, auth.WithLogger(logger))
		apiOpts = append(apiOpts, api.WithAccounts(e.accounts))
	}
	e.apiHandler = api.New(eng, router, apiOpts...)
	return nil
}

// injector resolves dependencies from the Forge container.
type injector struct {
	store func() (store.Store, error)
	db    func() (*grove.DB, error)
}

// resolveStore picks the store in order: the WithStore option, a store
// registered in the container, then the configured driver.
func (e *Extension) resolveStore(inj *injector, logger *slog.Logger) (store.Store, error) {
	if e.store != nil {
		return e.store, nil
	}
	var db *grove.DB
	if inj != nil {
		if s, err := inj.store(); err == nil {
			return s, nil
		}
		if e.config.Driver != "" && e.config.Driver != DriverMemory {
			injected, err := inj.db()
			if err != nil {
				return nil, fmt.Errorf("gatehouse: resolve grove database for %s: %w", e.config.Driver, err)
			}
			db = injected
		}
	}
	s, err := NewStore(e.config.Driver, db, e.config.Engine.DefaultTenantID, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("gatehouse: store ready", slog.String("driver", e.config.Driver))
	return s, nil
}

// Start runs migrations and the seed if enabled, then starts the engine.
func (e *Extension) Start(ctx context.Context) error {
	if e.eng == nil {
		return errors.New("gatehouse: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.eng.Store().Migrate(ctx); err != nil {
			return fmt.Errorf("gatehouse: migration failed: %w", err)
		}
	}

	if err := e.eng.Start(ctx); err != nil {
		return err
	}

	if !e.config.DisableSeed {
		if err := e.seed(ctx); err != nil {
			return fmt.Errorf("gatehouse: seed failed: %w", err)
		}
	}
	return nil
}

func (e *Extension) seed(ctx context.Context) error {
	s := e.seeder
	if s == nil {
		s = gatehouse.DefaultSeed(e.config.Engine, auth.HashPassword)
	}
	if len(e.config.SeedTenants) == 0 {
		return s.Run(ctx, e.eng)
	}
	return s.RunAll(ctx, e.eng, e.config.SeedTenants...)
}

// Stop gracefully shuts down the engine.
func (e *Extension) Stop(ctx context.Context) error {
	if e.eng == nil {
		return nil
	}
	return e.eng.Stop(ctx)
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.eng == nil {
		return errors.New("gatehouse: extension not initialized")
	}
	return e.eng.Store().Ping(ctx)
}

// Handler returns the HTTP handler for all API routes. When token
// issuance is configured, bearer tokens are authenticated in front of it.
func (e *Extension) Handler() http.Handler {
	if e.apiHandler == nil {
		return http.NotFoundHandler()
	}
	h := e.apiHandler.Handler()
	if e.accounts != nil {
		h = middleware.Authenticate(e.accounts.Issuer(), middleware.WithTrustedProxies(e.proxies...))(h)
	}
	return h
}

// RegisterRoutes registers all gatehouse API routes into a Forge router.
func (e *Extension) RegisterRoutes(router forge.Router) error {
	if e.apiHandler != nil {
		return e.apiHandler.RegisterRoutes(router)
	}
	return nil
}
