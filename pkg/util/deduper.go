package util

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Deduper answers whether a key is seen for the first time within its TTL.
type Deduper interface {
	AcquireOnce(ctx context.Context, key string) bool
}

type RedisDeduper struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisDeduper(rdb *redis.Client, prefix string, ttl time.Duration, logger *zap.Logger) *RedisDeduper {
	return &RedisDeduper{
		rdb:    rdb,
		prefix: prefix,
		ttl:    ttl,
		logger: logger,
	}
}

// AcquireOnce returns true if this is the FIRST time the key is seen.
func (d *RedisDeduper) AcquireOnce(ctx context.Context, key string) bool {
	full := d.prefix + "dedup:" + key

	ok, err := d.rdb.SetNX(ctx, full, 1, d.ttl).Result()
	if err != nil {
		// Redis 挂了？不阻止处理，返回 true
		if d.logger != nil {
			d.logger.Warn("Redis dedup check failed, allowing processing",
				zap.String("dedup_key", full),
				zap.Error(err),
			)
		}
		return true
	}

	// 去重命中
	if !ok && d.logger != nil {
		d.logger.Debug("Skipped duplicated event", zap.String("dedup_key", full))
	}
	return ok
}

// MemoryDeduper is the single-process fallback. Expired keys are dropped
// lazily on the next acquire.
type MemoryDeduper struct {
	mu   sync.Mutex
	ttl  time.Duration
	seen map[string]time.Time
	now  func() time.Time
}

func NewMemoryDeduper(ttl time.Duration) *MemoryDeduper {
	return &MemoryDeduper{ttl: ttl, seen: make(map[string]time.Time), now: time.Now}
}

func (d *MemoryDeduper) AcquireOnce(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	for k, exp := range d.seen {
		if !now.Before(exp) {
			delete(d.seen, k)
		}
	}
	if _, ok := d.seen[key]; ok {
		return false
	}
	d.seen[key] = now.Add(d.ttl)
	return true
}
