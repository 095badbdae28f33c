package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/xraph/gatehouse/checklog"
	"github.com/xraph/gatehouse/id"
)

var errNotFound = fmt.Errorf("not found")

type checkLogStore struct {
	mu      sync.RWMutex
	entries map[string]*checklog.Entry
}

func newCheckLogStore() *checkLogStore {
	return &checkLogStore{entries: make(map[string]*checklog.Entry)}
}

func (s *checkLogStore) CreateCheckLog(_ context.Context, e *checklog.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[e.ID.String()] = copyCheckLog(e)
	return nil
}

func (s *checkLogStore) GetCheckLog(_ context.Context, logID id.CheckLogID) (*checklog.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[logID.String()]
	if !ok {
		return nil, fmt.Errorf("check log %s: %w", logID, errNotFound)
	}
	return copyCheckLog(e), nil
}

func (s *checkLogStore) ListCheckLogs(_ context.Context, filter *checklog.QueryFilter) ([]*checklog.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*checklog.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if filter.Match(e) {
			result = append(result, copyCheckLog(e))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	if filter == nil {
		return result, nil
	}
	return applyPagination(result, filter.Limit, filter.Offset), nil
}

func (s *checkLogStore) CountCheckLogs(_ context.Context, filter *checklog.QueryFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, e := range s.entries {
		if filter.Match(e) {
			n++
		}
	}
	return n, nil
}

func (s *checkLogStore) PurgeCheckLogs(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for k, e := range s.entries {
		if e.CreatedAt.Before(before) {
			delete(s.entries, k)
			count++
		}
	}
	return count, nil
}

func copyCheckLog(e *checklog.Entry) *checklog.Entry {
	c := *e
	c.MissingRoles = append([]string(nil), e.MissingRoles...)
	c.MissingPermissions = append([]string(nil), e.MissingPermissions...)
	return &c
}

func applyPagination[T any](items []*T, limit, offset int) []*T {
	if offset >= len(items) {
		return nil
	}
	if offset > 0 {
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
