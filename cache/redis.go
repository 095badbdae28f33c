package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xraph/gatehouse"
)

// Compile-time interface check.
var _ gatehouse.Cache = (*Redis)(nil)

// Redis is a shared requirement cache for deployments with more than one
// gatehouse instance. Values are stored as JSON.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

// RedisOption configures the Redis cache.
type RedisOption func(*Redis)

// WithPrefix sets the key prefix. Defaults to "gatehouse:req:".
func WithPrefix(p string) RedisOption {
	return func(r *Redis) { r.prefix = p }
}

// WithRedisTTL sets the expiry of stored entries.
func WithRedisTTL(d time.Duration) RedisOption {
	return func(r *Redis) { r.ttl = d }
}

// WithRedisLogger sets the logger used for backend failures.
func WithRedisLogger(l *slog.Logger) RedisOption {
	return func(r *Redis) { r.logger = l }
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client, opts ...RedisOption) *Redis {
	r := &Redis{
		client: client,
		prefix: "gatehouse:req:",
		ttl:    5 * time.Minute,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns the cached requirements of an action. Backend errors are
// logged and reported as a miss.
func (r *Redis) Get(ctx context.Context, tenantID int64, action string) (*gatehouse.Requirements, bool) {
	raw, err := r.client.Get(ctx, r.key(tenantID, action)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn("cache: redis get failed", slog.String("error", err.Error()))
		}
		return nil, false
	}
	var req gatehouse.Requirements
	if err := json.Unmarshal(raw, &req); err != nil {
		r.logger.Warn("cache: corrupt entry", slog.String("action", action), slog.String("error", err.Error()))
		return nil, false
	}
	return &req, true
}

// Set stores the requirements of an action.
func (r *Redis) Set(ctx context.Context, tenantID int64, action string, req *gatehouse.Requirements) {
	if req == nil {
		return
	}
	raw, err := json.Marshal(req)
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, r.key(tenantID, action), raw, r.ttl).Err(); err != nil {
		r.logger.Warn("cache: redis set failed", slog.String("error", err.Error()))
	}
}

// InvalidateTenant deletes every key of a tenant.
func (r *Redis) InvalidateTenant(ctx context.Context, tenantID int64) {
	match := r.prefix + tenantPrefix(tenantID) + "*"
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, match, 100).Result()
		if err != nil {
			r.logger.Warn("cache: redis scan failed", slog.String("error", err.Error()))
			return
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				r.logger.Warn("cache: redis del failed", slog.String("error", err.Error()))
				return
			}
		}
		if next == 0 {
			return
		}
		cursor = next
	}
}

func (r *Redis) key(tenantID int64, action string) string {
	return r.prefix + cacheKey(tenantID, action)
}
