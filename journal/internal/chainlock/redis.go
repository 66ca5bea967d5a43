package chainlock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisLocker serializes scopes across journal instances with SET NX and a
// TTL so a crashed holder cannot wedge a chain forever.
type RedisLocker struct {
	client *redis.Client
	cfg    Config
}

// NewRedisLocker creates a distributed locker on an existing client
func NewRedisLocker(client *redis.Client, cfg Config) *RedisLocker {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultConfig().TTL
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultConfig().RetryDelay
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = DefaultConfig().MaxWait
	}
	return &RedisLocker{client: client, cfg: cfg}
}

// releaseScript deletes the lock only if this holder still owns it, so an
// expired-and-reacquired lock is never released by the previous holder.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func (l *RedisLocker) Acquire(ctx context.Context, scope string) (func(), error) {
	key := "chainlock:" + scope
	token := uuid.NewString()
	deadline := time.Now().Add(l.cfg.MaxWait)

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.cfg.TTL).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			release := func() {
				releaseScript.Run(context.Background(), l.client, []string{key}, token)
			}
			return release, nil
		}

		if time.Now().After(deadline) {
			return nil, ErrLockTimeout
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.cfg.RetryDelay):
		}
	}
}
