package daylock

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Redis is a Locker shared by every API instance pointing at the same Redis.
// A lock expires after ttl even if its holder dies.
type Redis struct {
	rdb      redis.UniversalClient
	prefix   string
	ttl      time.Duration
	wait     time.Duration
	interval time.Duration
	log      *zap.Logger
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

func NewRedis(rdb redis.UniversalClient, prefix string, ttl, wait time.Duration, log *zap.Logger) *Redis {
	prefix = strings.TrimRight(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = "lock"
	}
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &Redis{
		rdb:      rdb,
		prefix:   prefix,
		ttl:      ttl,
		wait:     wait,
		interval: 25 * time.Millisecond,
		log:      log,
	}
}

func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	fullKey := r.prefix + ":" + key
	token := uuid.NewString()

	var deadline <-chan time.Time
	if r.wait > 0 {
		timer := time.NewTimer(r.wait)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		ok, err := r.rdb.SetNX(ctx, fullKey, token, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquiring lock %s: %w", fullKey, err)
		}
		if ok {
			return func() { r.unlock(fullKey, token) }, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline:
			return nil, ErrLockTimeout
		case <-time.After(r.interval):
		}
	}
}

func (r *Redis) unlock(key, token string) {
	// The request context may already be canceled; the lock must still go.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := releaseScript.Run(ctx, r.rdb, []string{key}, token).Err(); err != nil {
		r.log.Warn("failed to release booking lock", zap.String("key", key), zap.Error(err))
	}
}
