package ports

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by Cache.Get when the key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// Lock is a held exclusive lock.
type Lock interface {
	Release(ctx context.Context) error
}

// Locker hands out exclusive per-key locks with a bounded wait.
// Acquire returns domain.ErrBusy when the wait budget is exhausted.
type Locker interface {
	Acquire(ctx context.Context, key string) (Lock, error)
}

// MessageQueue is the broker abstraction shared by the NATS, RabbitMQ and Kafka adapters.
type MessageQueue interface {
	Publish(subject string, data []byte) error
	Subscribe(subject string, handler func([]byte) error) error
	Ping() error
	Close() error
}
