package datastore

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/gatehouse/checklog"
	"github.com/xraph/gatehouse/id"
)

// Compile-time interface check.
var _ checklog.Store = (*Store)(nil)

// gated runs fn for the active tenant while holding its gate slot.
func (s *Store) gated(ctx context.Context, fn func(tenant int64) error) error {
	tenant, err := s.Tenant(ctx)
	if err != nil {
		return err
	}
	release, err := s.gate.Acquire(ctx, tenant)
	if err != nil {
		return err
	}
	defer release()
	return fn(tenant)
}

func (s *Store) CreateCheckLog(ctx context.Context, e *checklog.Entry) error {
	return s.gated(ctx, func(tenant int64) error {
		if e.ID.IsNil() {
			e.ID = id.NewCheckLogID()
		}
		e.TenantID = tenant
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now()
		}
		return s.driver.CheckLogs().CreateCheckLog(ctx, e)
	})
}

func (s *Store) GetCheckLog(ctx context.Context, logID id.CheckLogID) (*checklog.Entry, error) {
	var out *checklog.Entry
	err := s.gated(ctx, func(tenant int64) error {
		e, err := s.driver.CheckLogs().GetCheckLog(ctx, logID)
		if err != nil {
			return err
		}
		if e.TenantID != tenant {
			return fmt.Errorf("check log %s: %w", logID, ErrNotFound)
		}
		out = e
		return nil
	})
	return out, err
}

func (s *Store) ListCheckLogs(ctx context.Context, filter *checklog.QueryFilter) ([]*checklog.Entry, error) {
	var out []*checklog.Entry
	err := s.gated(ctx, func(tenant int64) error {
		f := scopedFilter(filter, tenant)
		entries, err := s.driver.CheckLogs().ListCheckLogs(ctx, f)
		out = entries
		return err
	})
	return out, err
}

func (s *Store) CountCheckLogs(ctx context.Context, filter *checklog.QueryFilter) (int64, error) {
	var out int64
	err := s.gated(ctx, func(tenant int64) error {
		n, err := s.driver.CheckLogs().CountCheckLogs(ctx, scopedFilter(filter, tenant))
		out = n
		return err
	})
	return out, err
}

// PurgeCheckLogs removes old entries across all tenants.
func (s *Store) PurgeCheckLogs(ctx context.Context, before time.Time) (int64, error) {
	return s.driver.CheckLogs().PurgeCheckLogs(ctx, before)
}

func scopedFilter(f *checklog.QueryFilter, tenant int64) *checklog.QueryFilter {
	out := checklog.QueryFilter{}
	if f != nil {
		out = *f
	}
	out.TenantID = tenant
	return &out
}
