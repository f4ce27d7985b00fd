package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/seu-repo/handover-engine/internal/domain"
	"github.com/seu-repo/handover-engine/internal/ports"
)

const keyPrefix = "lock:"

// releaseScript deletes the key only if it still holds our token, so an
// expired lock taken over by another worker is never removed by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// ErrLockLost is returned by Release when the TTL expired before release.
var ErrLockLost = errors.New("lock expired before release")

type RedisLocker struct {
	client        *redis.Client
	ttl           time.Duration
	waitTimeout   time.Duration
	retryInterval time.Duration
	newToken      func() string
	log           *zap.Logger
}

func NewRedisLocker(client *redis.Client, ttl, waitTimeout, retryInterval time.Duration, log *zap.Logger) *RedisLocker {
	return &RedisLocker{
		client:        client,
		ttl:           ttl,
		waitTimeout:   waitTimeout,
		retryInterval: retryInterval,
		newToken:      func() string { return uuid.New().String() },
		log:           log,
	}
}

var _ ports.Locker = (*RedisLocker)(nil)

func (l *RedisLocker) Acquire(ctx context.Context, key string) (ports.Lock, error) {
	fullKey := keyPrefix + key
	token := l.newToken()
	deadline := time.Now().Add(l.waitTimeout)

	for {
		ok, err := l.client.SetNX(ctx, fullKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("redis lock %s: %w", fullKey, err)
		}
		if ok {
			return &redisLock{client: l.client, key: fullKey, token: token}, nil
		}

		if !time.Now().Add(l.retryInterval).Before(deadline) {
			l.log.Debug("Lock wait timed out", zap.String("key", fullKey), zap.Duration("wait", l.waitTimeout))
			return nil, domain.ErrBusy
		}

		timer := time.NewTimer(l.retryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("waiting for lock %s: %w", fullKey, ctx.Err())
		case <-timer.C:
		}
	}
}

type redisLock struct {
	client *redis.Client
	key    string
	token  string
	once   sync.Once
	err    error
}

func (l *redisLock) Release(ctx context.Context) error {
	l.once.Do(func() {
		n, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Int64()
		switch {
		case err != nil:
			l.err = fmt.Errorf("redis unlock %s: %w", l.key, err)
		case n == 0:
			l.err = ErrLockLost
		}
	})
	return l.err
}
