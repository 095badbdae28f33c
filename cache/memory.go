// Package cache provides requirement cache implementations for gatehouse.
package cache

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/xraph/gatehouse"
)

// Compile-time interface check.
var _ gatehouse.Cache = (*Memory)(nil)

// Memory is an in-process LRU cache of action requirements with a TTL.
type Memory struct {
	lru     *expirable.LRU[string, *gatehouse.Requirements]
	ttl     time.Duration
	maxSize int
}

// MemoryOption configures the in-memory cache.
type MemoryOption func(*Memory)

// WithTTL sets the time-to-live for cache entries.
func WithTTL(d time.Duration) MemoryOption {
	return func(m *Memory) { m.ttl = d }
}

// WithMaxSize sets the maximum number of cached entries.
func WithMaxSize(n int) MemoryOption {
	return func(m *Memory) { m.maxSize = n }
}

// NewMemory creates a new in-memory cache.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		ttl:     5 * time.Minute,
		maxSize: 10000,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.lru = expirable.NewLRU[string, *gatehouse.Requirements](m.maxSize, nil, m.ttl)
	return m
}

// Get returns a copy of the cached requirements of an action.
func (m *Memory) Get(_ context.Context, tenantID int64, action string) (*gatehouse.Requirements, bool) {
	req, ok := m.lru.Get(cacheKey(tenantID, action))
	if !ok {
		return nil, false
	}
	return clone(req), true
}

// Set stores the requirements of an action.
func (m *Memory) Set(_ context.Context, tenantID int64, action string, req *gatehouse.Requirements) {
	if req == nil {
		return
	}
	m.lru.Add(cacheKey(tenantID, action), clone(req))
}

// InvalidateTenant drops every entry of a tenant.
func (m *Memory) InvalidateTenant(_ context.Context, tenantID int64) {
	prefix := tenantPrefix(tenantID)
	for _, k := range m.lru.Keys() {
		if strings.HasPrefix(k, prefix) {
			m.lru.Remove(k)
		}
	}
}

// Len returns the number of live entries.
func (m *Memory) Len() int { return m.lru.Len() }

func tenantPrefix(tenantID int64) string {
	return strconv.FormatInt(tenantID, 10) + ":"
}

func cacheKey(tenantID int64, action string) string {
	return tenantPrefix(tenantID) + action
}

func clone(req *gatehouse.Requirements) *gatehouse.Requirements {
	return &gatehouse.Requirements{
		Action:      req.Action,
		Roles:       append([]string(nil), req.Roles...),
		Permissions: append([]string(nil), req.Permissions...),
	}
}
