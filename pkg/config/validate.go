package config

import (
	"errors"
	"fmt"
)

// Validate checks the loaded configuration for settings that would fail at startup.
func (c *Config) Validate() error {
	var errs []error

	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("http.port %d out of range", c.HTTP.Port))
	}

	switch c.Database.Driver {
	case "memory":
	case "postgres":
		if c.Database.URL == "" && !c.Vault.Enabled {
			errs = append(errs, errors.New("database.url is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown database.driver %q", c.Database.Driver))
	}

	switch c.Locking.Driver {
	case "local":
	case "redis":
		if !c.Redis.Enabled || c.Redis.URL == "" {
			errs = append(errs, errors.New("locking.driver redis requires redis.enabled and redis.url"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown locking.driver %q", c.Locking.Driver))
	}
	if c.Locking.WaitTimeout <= 0 || c.Locking.TTL <= 0 || c.Locking.RetryInterval <= 0 {
		errs = append(errs, errors.New("locking ttl, wait_timeout and retry_interval must be positive"))
	}

	switch c.Queue.Driver {
	case "none", "memory":
	case "nats":
		if c.Queue.NATS.URL == "" {
			errs = append(errs, errors.New("queue.nats.url is required"))
		}
	case "rabbitmq":
		if c.Queue.RabbitMQ.URL == "" {
			errs = append(errs, errors.New("queue.rabbitmq.url is required"))
		}
	case "kafka":
		if len(c.Queue.Kafka.Brokers) == 0 {
			errs = append(errs, errors.New("queue.kafka.brokers is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown queue.driver %q", c.Queue.Driver))
	}

	switch {
	case (c.Catalog.VehicleURL == "") != (c.Catalog.CustomerURL == ""):
		errs = append(errs, errors.New("catalog.vehicle_url and catalog.customer_url must be set together"))
	case c.Catalog.VehicleURL == "" && c.Catalog.SeedFile == "":
		errs = append(errs, errors.New("catalog needs vehicle_url and customer_url or a seed_file"))
	}

	if c.Payment.Stripe.Enabled && c.Payment.Stripe.SecretKey == "" && !c.Vault.Enabled {
		errs = append(errs, errors.New("payment.stripe.secret_key is required when stripe is enabled"))
	}

	if c.Vault.Enabled && c.Vault.Address == "" {
		errs = append(errs, errors.New("vault.address is required when vault is enabled"))
	}

	return errors.Join(errs...)
}
