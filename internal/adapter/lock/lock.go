package lock

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/seu-repo/handover-engine/internal/ports"
	"github.com/seu-repo/handover-engine/pkg/config"
)

// New builds the locker selected by locking.driver.
func New(cfg config.LockingConfig, client *redis.Client, log *zap.Logger) (ports.Locker, error) {
	switch cfg.Driver {
	case "redis":
		if client == nil {
			return nil, fmt.Errorf("redis locker requires a redis client")
		}
		log.Info("Using Redis booking locks",
			zap.Duration("ttl", cfg.TTL),
			zap.Duration("wait_timeout", cfg.WaitTimeout),
		)
		return NewRedisLocker(client, cfg.TTL, cfg.WaitTimeout, cfg.RetryInterval, log), nil
	case "local", "":
		log.Warn("Using in-process booking locks; run a single instance only")
		return NewLocalLocker(cfg.WaitTimeout), nil
	default:
		return nil, fmt.Errorf("unknown locking driver %q", cfg.Driver)
	}
}
