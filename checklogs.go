package gatehouse

import (
	"context"
	"time"

	"github.com/xraph/gatehouse/checklog"
)

// ListCheckLogs returns the tenant's decision audit entries matching filter,
// newest first, along with the total number of matches.
func (e *Engine) ListCheckLogs(ctx context.Context, filter *checklog.QueryFilter) ([]*checklog.Entry, int64, error) {
	ctx = e.scoped(ctx)
	if filter == nil {
		filter = &checklog.QueryFilter{}
	}
	entries, err := e.store.ListCheckLogs(ctx, filter)
	if err != nil {
		return nil, 0, wrap("list check logs", err)
	}
	total, err := e.store.CountCheckLogs(ctx, filter)
	if err != nil {
		return nil, 0, wrap("count check logs", err)
	}
	return entries, total, nil
}

// PurgeCheckLogs removes audit entries older than before, across tenants.
func (e *Engine) PurgeCheckLogs(ctx context.Context, before time.Time) (int64, error) {
	n, err := e.store.PurgeCheckLogs(e.scoped(ctx), before)
	if err != nil {
		return 0, wrap("purge check logs", err)
	}
	return n, nil
}
