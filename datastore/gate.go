package datastore

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Gate serializes access to each tenant's data. Every tenant has a
// single-slot semaphore; tenants never contend with each other.
type Gate struct {
	mu    sync.Mutex
	slots map[int64]*semaphore.Weighted
}

// NewGate creates an empty gate.
func NewGate() *Gate {
	return &Gate{slots: make(map[int64]*semaphore.Weighted)}
}

type heldKey struct {
	gate   *Gate
	tenant int64
}

func (g *Gate) slot(tenant int64) *semaphore.Weighted {
	g.mu.Lock()
	defer g.mu.Unlock()
	sem, ok := g.slots[tenant]
	if !ok {
		sem = semaphore.NewWeighted(1)
		g.slots[tenant] = sem
	}
	return sem
}

// Acquire blocks until the tenant's slot is free or ctx is done. The
// returned release func is safe to call more than once. When ctx was
// returned by Hold for the same tenant, Acquire does not block.
func (g *Gate) Acquire(ctx context.Context, tenant int64) (func(), error) {
	if held, _ := ctx.Value(heldKey{g, tenant}).(bool); held {
		return func() {}, nil
	}
	sem := g.slot(tenant)
	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("gatehouse: acquire tenant %d: %w", tenant, err)
	}
	var once sync.Once
	return func() { once.Do(func() { sem.Release(1) }) }, nil
}

// Hold acquires the tenant's slot and returns a context under which
// further acquisitions for that tenant pass straight through. The slot is
// held until release is called. The returned context must not be shared
// with goroutines running concurrently with the holder.
func (g *Gate) Hold(ctx context.Context, tenant int64) (context.Context, func(), error) {
	release, err := g.Acquire(ctx, tenant)
	if err != nil {
		return nil, nil, err
	}
	return context.WithValue(ctx, heldKey{g, tenant}, true), release, nil
}

// TryAcquire acquires the tenant's slot without blocking.
func (g *Gate) TryAcquire(tenant int64) (func(), bool) {
	sem := g.slot(tenant)
	if !sem.TryAcquire(1) {
		return nil, false
	}
	var once sync.Once
	return func() { once.Do(func() { sem.Release(1) }) }, true
}
