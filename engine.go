package gatehouse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/xraph/gatehouse/datastore"
	"github.com/xraph/gatehouse/permission"
	"github.com/xraph/gatehouse/plugin"
	"github.com/xraph/gatehouse/role"
	"github.com/xraph/gatehouse/store"
)

// Engine is the role/permission manager and authorization gate. It
// validates manager preconditions the store does not enforce, resolves
// action requirements and fires plugin hooks.
type Engine struct {
	store     store.Store
	validator RoleValidator
	cache     Cache
	plugins   *plugin.Registry
	logger    *slog.Logger
	config    Config

	// generations counts grant changes per tenant (int64 -> *atomic.Uint64).
	generations sync.Map
}

// NewEngine creates a new engine with the given options.
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{
		logger: slog.Default(),
		config: DefaultConfig(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.store == nil {
		return nil, errors.New("gatehouse: store is required")
	}
	if e.validator == nil {
		if e.config.validateFromClaims() {
			e.validator = NewClaimsValidator()
		} else {
			e.validator = NewStoreValidator(e.store)
		}
	}
	return e, nil
}

// Store returns the underlying composite store.
func (e *Engine) Store() store.Store { return e.store }

// Plugins returns the plugin registry (may be nil).
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// Validator returns the role validator in use.
func (e *Engine) Validator() RoleValidator { return e.validator }

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.config }

// Start performs any startup initialization.
func (e *Engine) Start(ctx context.Context) error {
	return e.store.Ping(ctx)
}

// Stop notifies plugins of shutdown.
func (e *Engine) Stop(ctx context.Context) error {
	if e.plugins != nil {
		e.plugins.EmitShutdown(ctx)
	}
	return nil
}

// scoped binds ctx to the configured default tenant when it carries none.
func (e *Engine) scoped(ctx context.Context) context.Context {
	if _, ok := datastore.TenantFromContext(ctx); ok {
		return ctx
	}
	if e.config.DefaultTenantID != 0 {
		return datastore.WithTenant(ctx, e.config.DefaultTenantID)
	}
	return ctx
}

// locked runs fn with the tenant gate held for its whole duration when
// LockWholeOperation is set. Store calls inside fn must use the context
// passed to it.
func (e *Engine) locked(ctx context.Context, fn func(ctx context.Context) error) error {
	if !e.config.lockWholeOperation() {
		return fn(ctx)
	}
	held, release, err := e.store.Hold(ctx)
	if err != nil {
		return err
	}
	defer release()
	return fn(held)
}

// changed drops the tenant's cached requirements after a mutation. The
// generation is bumped before the cache is cleared so that a concurrent
// Requirements call can tell its result went stale.
func (e *Engine) changed(ctx context.Context) {
	if e.cache == nil {
		return
	}
	tenant, err := e.store.Tenant(ctx)
	if err != nil {
		return
	}
	e.generation(tenant).Add(1)
	e.cache.InvalidateTenant(ctx, tenant)
}

func (e *Engine) generation(tenant int64) *atomic.Uint64 {
	if g, ok := e.generations.Load(tenant); ok {
		return g.(*atomic.Uint64)
	}
	g, _ := e.generations.LoadOrStore(tenant, new(atomic.Uint64))
	return g.(*atomic.Uint64)
}

// reject logs a manager precondition failure.
func (e *Engine) reject(op, reason string, attrs ...slog.Attr) {
	args := make([]any, 0, len(attrs)+2)
	args = append(args, slog.String("op", op), slog.String("reason", reason))
	for _, a := range attrs {
		args = append(args, a)
	}
	e.logger.Info("gatehouse: rejected", args...)
}

// findRole returns the named role, or nil when it does not exist.
func (e *Engine) findRole(ctx context.Context, name string) (*role.Role, error) {
	r, err := e.store.GetRole(ctx, name)
	if errors.Is(err, datastore.ErrNotFound) {
		return nil, nil
	}
	return r, err
}

// findPermission returns the named permission, or nil when it does not exist.
func (e *Engine) findPermission(ctx context.Context, name string) (*permission.Permission, error) {
	p, err := e.store.GetPermission(ctx, name)
	if errors.Is(err, datastore.ErrNotFound) {
		return nil, nil
	}
	return p, err
}

func wrap(op string, err error) error {
	return fmt.Errorf("gatehouse: %s: %w", op, err)
}
