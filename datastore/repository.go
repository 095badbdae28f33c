package datastore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/gatehouse/entity"
	"github.com/xraph/gatehouse/id"
)

// Repository is the tenant-scoped data store for one entity type. Every
// call resolves the active tenant, takes that tenant's gate slot, runs
// against the backend table and releases the slot, including on failure.
// Writes are applied immediately.
type Repository[E entity.Record] struct {
	kind   string
	table  Table[E]
	store  *Store
	logger *slog.Logger
}

func newRepository[E entity.Record](s *Store, kind string, t Table[E]) *Repository[E] {
	return &Repository[E]{kind: kind, table: t, store: s, logger: s.logger}
}

func (r *Repository[E]) run(ctx context.Context, op string, fn func(tenant int64) error) error {
	tenant, err := r.store.Tenant(ctx)
	if err != nil {
		return err
	}
	release, err := r.store.gate.Acquire(ctx, tenant)
	if err != nil {
		return err
	}
	defer release()

	if err := fn(tenant); err != nil {
		r.logger.Error("datastore: "+op+" failed",
			slog.String("kind", r.kind),
			slog.Int64("tenant_id", tenant),
			slog.Any("error", err),
		)
		return fmt.Errorf("gatehouse: %s %s: %w", op, r.kind, err)
	}
	return nil
}

// GetAll returns every non-deleted row of the active tenant.
func (r *Repository[E]) GetAll(ctx context.Context) ([]E, error) {
	return r.Find(ctx)
}

// Get returns the row with the given ID, or the zero value (nil) when it
// does not exist or was soft-deleted.
func (r *Repository[E]) Get(ctx context.Context, rowID int64) (E, error) {
	var out E
	err := r.run(ctx, "get", func(tenant int64) error {
		e, ok, err := r.table.Get(ctx, tenant, rowID)
		if err != nil {
			return err
		}
		if ok && !e.Meta().IsDeleted {
			out = e
		}
		return nil
	})
	return out, err
}

// Find returns the non-deleted rows matching every condition.
func (r *Repository[E]) Find(ctx context.Context, conds ...entity.Cond) ([]E, error) {
	var out []E
	all := make([]entity.Cond, 0, len(conds)+1)
	all = append(all, conds...)
	all = append(all, entity.Eq(entity.ColIsDeleted, false))
	err := r.run(ctx, "find", func(tenant int64) error {
		rows, err := r.table.List(ctx, tenant, all...)
		out = rows
		return err
	})
	return out, err
}

// Single returns the only non-deleted row matching the conditions. It
// fails with ErrNotFound when zero or several rows match.
func (r *Repository[E]) Single(ctx context.Context, conds ...entity.Cond) (E, error) {
	var zero E
	rows, err := r.Find(ctx, conds...)
	if err != nil {
		return zero, err
	}
	if len(rows) != 1 {
		return zero, fmt.Errorf("%s %v (%d matches): %w", r.kind, conds, len(rows), ErrNotFound)
	}
	return rows[0], nil
}

// Exists reports whether any non-deleted row matches the conditions.
func (r *Repository[E]) Exists(ctx context.Context, conds ...entity.Cond) (bool, error) {
	rows, err := r.Find(ctx, conds...)
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// Insert persists a new row, assigning its ID when unset and binding it to
// the active tenant.
func (r *Repository[E]) Insert(ctx context.Context, e E) error {
	return r.run(ctx, "insert", func(tenant int64) error {
		m := e.Meta()
		if m.ID == 0 {
			m.ID = id.New()
		}
		m.TenantID = tenant
		m.CreatedAt = now()
		m.ModifiedAt = nil
		m.IsDeleted = false
		m.DeletedAt = nil
		if err := r.table.Insert(ctx, e); err != nil {
			return err
		}
		r.logger.Debug("datastore: insert", slog.String("kind", r.kind), slog.Int64("id", m.ID), slog.Int64("tenant_id", tenant))
		return nil
	})
}

// Update persists changes to a row and stamps its modification time.
func (r *Repository[E]) Update(ctx context.Context, e E) error {
	return r.run(ctx, "update", func(tenant int64) error {
		m := e.Meta()
		if m.TenantID != tenant {
			return ErrCrossTenant
		}
		t := now()
		m.ModifiedAt = &t
		if err := r.table.Update(ctx, e); err != nil {
			return err
		}
		r.logger.Debug("datastore: update", slog.String("kind", r.kind), slog.Int64("id", m.ID), slog.Int64("tenant_id", tenant))
		return nil
	})
}

// SoftDelete marks a row deleted. The row stays in storage.
func (r *Repository[E]) SoftDelete(ctx context.Context, e E) error {
	return r.run(ctx, "soft delete", func(tenant int64) error {
		m := e.Meta()
		if m.TenantID != tenant {
			return ErrCrossTenant
		}
		t := now()
		m.IsDeleted = true
		m.DeletedAt = &t
		m.ModifiedAt = &t
		if err := r.table.Update(ctx, e); err != nil {
			return err
		}
		r.logger.Debug("datastore: soft delete", slog.String("kind", r.kind), slog.Int64("id", m.ID), slog.Int64("tenant_id", tenant))
		return nil
	})
}

// HardDelete physically removes a row.
func (r *Repository[E]) HardDelete(ctx context.Context, e E) error {
	return r.run(ctx, "hard delete", func(tenant int64) error {
		m := e.Meta()
		if m.TenantID != tenant {
			return ErrCrossTenant
		}
		if err := r.table.Delete(ctx, e); err != nil {
			return err
		}
		r.logger.Debug("datastore: hard delete", slog.String("kind", r.kind), slog.Int64("id", m.ID), slog.Int64("tenant_id", tenant))
		return nil
	})
}

func now() time.Time {
	return time.Now().UTC()
}
