package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")
	v.AddConfigPath("/app/configs")

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Allow common env vars without APP_ prefix for Docker/VM deploys
	v.BindEnv("http.port", "HTTP_PORT", "APP_HTTP_PORT")
	v.BindEnv("database.url", "DATABASE_URL", "APP_DATABASE_URL")
	v.BindEnv("redis.url", "REDIS_URL", "APP_REDIS_URL")
	v.BindEnv("queue.nats.url", "NATS_URL", "APP_QUEUE_NATS_URL")
	v.BindEnv("queue.rabbitmq.url", "RABBITMQ_URL", "APP_QUEUE_RABBITMQ_URL")
	v.BindEnv("payment.stripe.secret_key", "STRIPE_SECRET_KEY")
	v.BindEnv("payment.stripe.webhook_secret", "STRIPE_WEBHOOK_SECRET")
	v.BindEnv("vault.address", "VAULT_ADDR", "APP_VAULT_ADDRESS")
	v.BindEnv("vault.token", "VAULT_TOKEN", "APP_VAULT_TOKEN")
	v.BindEnv("app.environment", "APP_ENVIRONMENT")
	v.BindEnv("logging.level", "LOG_LEVEL")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "handover-engine")
	v.SetDefault("app.environment", "development")

	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", 10*time.Second)
	v.SetDefault("http.write_timeout", 10*time.Second)
	v.SetDefault("http.idle_timeout", 60*time.Second)
	v.SetDefault("http.body_limit", 1<<20)

	v.SetDefault("grpc.enabled", true)
	v.SetDefault("grpc.port", 9090)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.conn_max_idle_time", time.Minute)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.dial_timeout", 5*time.Second)

	v.SetDefault("queue.driver", "nats")
	v.SetDefault("queue.subject", "booking.events")
	v.SetDefault("queue.nats.max_reconnects", 10)
	v.SetDefault("queue.nats.reconnect_wait", 2*time.Second)
	v.SetDefault("queue.nats.timeout", 5*time.Second)
	v.SetDefault("queue.rabbitmq.reconnect_delay", 5*time.Second)
	v.SetDefault("queue.kafka.group_id", "handover-dashboard")
	v.SetDefault("queue.kafka.batch_timeout", 50*time.Millisecond)

	v.SetDefault("locking.driver", "redis")
	v.SetDefault("locking.ttl", 10*time.Second)
	v.SetDefault("locking.wait_timeout", 3*time.Second)
	v.SetDefault("locking.retry_interval", 50*time.Millisecond)

	v.SetDefault("cache.booking_ttl", 10*time.Minute)
	v.SetDefault("cache.cleanup_interval", time.Minute)

	v.SetDefault("catalog.vehicle_url", "")
	v.SetDefault("catalog.customer_url", "")
	v.SetDefault("catalog.seed_file", "")
	v.SetDefault("catalog.timeout", 3*time.Second)

	v.SetDefault("payment.stripe.currency", "inr")

	v.SetDefault("notification.buffer_size", 1024)
	v.SetDefault("notification.publish_timeout", 5*time.Second)

	v.SetDefault("opentelemetry.service_name", "handover-engine")
	v.SetDefault("opentelemetry.jaeger.endpoint", "http://localhost:14268/api/traces")
	v.SetDefault("opentelemetry.jaeger.sampler_param", 1.0)

	v.SetDefault("prometheus.enabled", true)
	v.SetDefault("prometheus.path", "/metrics")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("rate_limiting.max_requests", 100)
	v.SetDefault("rate_limiting.window", time.Minute)

	v.SetDefault("circuit_breaker.max_requests", 5)
	v.SetDefault("circuit_breaker.interval", 60*time.Second)
	v.SetDefault("circuit_breaker.timeout", 30*time.Second)
	v.SetDefault("circuit_breaker.failure_threshold", 0.6)

	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Origin", "Content-Type", "Accept", "X-Request-ID"})
	v.SetDefault("cors.max_age", 3600)

	v.SetDefault("vault.mount_path", "secret")
	v.SetDefault("vault.secret_path", "handover-engine")
}
